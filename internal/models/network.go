package models

// NetworkIdentity is what the modem reports about the network it is
// registered on. Either field may be empty.
type NetworkIdentity struct {
	OperatorName     string
	SubscriberPrefix string // first 5 IMSI digits (MCC+MNC)
}

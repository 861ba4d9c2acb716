package models

// CarrierRule maps an operator name fragment to the access point to use.
type CarrierRule struct {
	Pattern string `yaml:"pattern"`
	APN     string `yaml:"apn"`
}

// PrefixRule maps a 5 digit IMSI prefix (MCC+MNC) to the access point to use.
type PrefixRule struct {
	Prefix string `yaml:"prefix"`
	APN    string `yaml:"apn"`
}

package network

import "github.com/benmeehan/gps-uplink-agent/internal/models"

// DefaultCarriers is evaluated top to bottom and the first pattern contained
// in the operator name wins. The Vodafone Idea aliases must stay ahead of the
// international VODAFONE entry they contain.
var DefaultCarriers = []models.CarrierRule{
	{Pattern: "AIRTEL", APN: "airtelgprs.com"},
	{Pattern: "JIO", APN: "jionet"},
	{Pattern: "VODAFONE IDEA", APN: "www"},
	{Pattern: "VI INDIA", APN: "www"},
	{Pattern: "IDEA", APN: "www"},
	{Pattern: "BSNL", APN: "bsnlnet"},
	{Pattern: "VODAFONE", APN: "internet"},
	{Pattern: "T-MOBILE", APN: "fast.t-mobile.com"},
	{Pattern: "AT&T", APN: "broadband"},
	{Pattern: "VERIZON", APN: "vzwinternet"},
	{Pattern: "ORANGE", APN: "orange"},
}

// DefaultPrefixes maps home network codes (MCC+MNC, first 5 IMSI digits).
var DefaultPrefixes = []models.PrefixRule{
	{Prefix: "40410", APN: "airtelgprs.com"},
	{Prefix: "40445", APN: "airtelgprs.com"},
	{Prefix: "40495", APN: "airtelgprs.com"},
	{Prefix: "40584", APN: "jionet"},
	{Prefix: "40585", APN: "jionet"},
	{Prefix: "40586", APN: "jionet"},
	{Prefix: "40587", APN: "jionet"},
	{Prefix: "40420", APN: "www"},
	{Prefix: "40446", APN: "www"},
	{Prefix: "40434", APN: "bsnlnet"},
	{Prefix: "40472", APN: "bsnlnet"},
	{Prefix: "23415", APN: "internet"},
	{Prefix: "31026", APN: "fast.t-mobile.com"},
	{Prefix: "31041", APN: "broadband"},
	{Prefix: "31148", APN: "vzwinternet"},
	{Prefix: "20801", APN: "orange"},
}

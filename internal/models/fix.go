package models

// Fix sources.
const (
	FixSourceModem = "modem"
	FixSourceNMEA  = "nmea"
)

// GPSFix is a single position reading parsed from one modem reply.
// When Valid is false the other fields carry no meaning.
type GPSFix struct {
	TimeOfFix  string  `json:"time_of_fix"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	Altitude   float64 `json:"altitude"`
	Speed      float64 `json:"speed"`
	Heading    float64 `json:"heading"`
	FixMode    int     `json:"fix_mode"`
	Date       string  `json:"date"`
	Satellites int     `json:"satellites"`
	HDOP       float64 `json:"hdop"`
	Valid      bool    `json:"valid"`
	Source     string  `json:"source"`
}

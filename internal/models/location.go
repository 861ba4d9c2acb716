package models

import (
	"time"
)

// FixMessage is the MQTT mirror of an uploaded fix.
type FixMessage struct {
	DeviceID   string    `json:"device_id"`
	Timestamp  time.Time `json:"timestamp"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	Altitude   float64   `json:"altitude"`
	Speed      float64   `json:"speed"`
	Heading    float64   `json:"heading"`
	Satellites int       `json:"satellites"`
	HDOP       float64   `json:"hdop"`
	Signal     int       `json:"signal"`
}

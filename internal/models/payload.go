package models

import "encoding/json"

// serverTimestampMarker asks the data sink to stamp the record on arrival.
var serverTimestampMarker = []byte(`{".sv":"timestamp"}`)

// ServerTimestamp serializes as a server-side timestamp request instead of
// a client supplied time value.
type ServerTimestamp struct{}

// MarshalJSON implements json.Marshaler.
func (ServerTimestamp) MarshalJSON() ([]byte, error) {
	return serverTimestampMarker, nil
}

// UploadPayload is the record posted to the remote data sink every cycle.
type UploadPayload struct {
	DeviceID   string          `json:"device_id"`
	Latitude   float64         `json:"latitude"`
	Longitude  float64         `json:"longitude"`
	Altitude   float64         `json:"altitude"`
	Speed      float64         `json:"speed"`
	Heading    float64         `json:"heading"`
	Satellites int             `json:"satellites"`
	HDOP       float64         `json:"hdop"`
	Signal     int             `json:"signal"`
	Timestamp  ServerTimestamp `json:"timestamp"`
}

// Marshal serializes the payload for upload.
func (p UploadPayload) Marshal() ([]byte, error) {
	return json.Marshal(p)
}

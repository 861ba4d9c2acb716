package models

import "time"

// Heartbeat represents the structure for a device health event.
type Heartbeat struct {
	DeviceID        string             `json:"device_id"`
	Timestamp       time.Time          `json:"timestamp"`
	Status          string             `json:"status"`
	State           string             `json:"state"`
	APN             string             `json:"apn"`
	Cycles          int64              `json:"cycles"`
	Published       int64              `json:"published"`
	FixFailures     int64              `json:"fix_failures"`
	PublishFailures int64              `json:"publish_failures"`
	LastSignal      int64              `json:"last_signal"`
	Metrics         map[string]float64 `json:"metrics,omitempty"` // Host metrics by collector name
}

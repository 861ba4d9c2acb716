package uplink

import "github.com/benmeehan/gps-uplink-agent/internal/models"

// BuildPayload assembles the record uploaded for a valid fix.
func BuildPayload(deviceID string, fix models.GPSFix, signal int) models.UploadPayload {
	return models.UploadPayload{
		DeviceID:   deviceID,
		Latitude:   fix.Latitude,
		Longitude:  fix.Longitude,
		Altitude:   fix.Altitude,
		Speed:      fix.Speed,
		Heading:    fix.Heading,
		Satellites: fix.Satellites,
		HDOP:       fix.HDOP,
		Signal:     signal,
	}
}

package uplink

import (
	"time"

	"github.com/benmeehan/gps-uplink-agent/internal/models"
	"github.com/benmeehan/gps-uplink-agent/pkg/mqtt"
	"github.com/rs/zerolog"
)

// MQTTMirror republishes uploaded fixes on an MQTT topic.
type MQTTMirror struct {
	client  mqtt.MQTTClient
	topic   string
	qos     byte
	timeout time.Duration
	logger  zerolog.Logger
	now     func() time.Time
}

// NewMQTTMirror creates a mirror publishing to topic.
func NewMQTTMirror(client mqtt.MQTTClient, topic string, qos int, timeout time.Duration, logger zerolog.Logger) *MQTTMirror {
	return &MQTTMirror{
		client:  client,
		topic:   topic,
		qos:     byte(qos),
		timeout: timeout,
		logger:  logger.With().Str("component", "mirror").Logger(),
		now:     time.Now,
	}
}

// Mirror publishes payload stamped with the local clock.
func (m *MQTTMirror) Mirror(payload models.UploadPayload) error {
	msg := models.FixMessage{
		DeviceID:   payload.DeviceID,
		Timestamp:  m.now().UTC(),
		Latitude:   payload.Latitude,
		Longitude:  payload.Longitude,
		Altitude:   payload.Altitude,
		Speed:      payload.Speed,
		Heading:    payload.Heading,
		Satellites: payload.Satellites,
		HDOP:       payload.HDOP,
		Signal:     payload.Signal,
	}

	if err := mqtt.PublishJSON(m.client, m.topic, m.qos, msg, m.timeout); err != nil {
		m.logger.Warn().Err(err).Str("topic", m.topic).Msg("Failed to mirror fix")
		return err
	}
	m.logger.Debug().Str("topic", m.topic).Msg("Fix mirrored")
	return nil
}

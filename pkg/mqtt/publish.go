package mqtt

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrPublishTimeout is returned when the broker does not acknowledge in time.
var ErrPublishTimeout = errors.New("mqtt publish timed out")

// PublishJSON marshals v and publishes it to topic, waiting up to timeout
// for the broker to acknowledge.
func PublishJSON(client MQTTClient, topic string, qos byte, v any, timeout time.Duration) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s message: %w", topic, err)
	}

	token := client.Publish(topic, qos, false, payload)
	if !token.WaitTimeout(timeout) {
		return ErrPublishTimeout
	}
	return token.Error()
}

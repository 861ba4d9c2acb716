package mqtt

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"

	"github.com/benmeehan/gps-uplink-agent/pkg/file"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

// ErrInvalidCACertificate is returned when the CA file holds no usable PEM block.
var ErrInvalidCACertificate = errors.New("failed to append CA certificate")

// MQTTClient defines the subset of the paho client the agent uses.
type MQTTClient interface {
	Connect() mqtt.Token
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// Options describes how to reach the broker.
type Options struct {
	Broker        string
	ClientID      string
	CACertificate string // PEM file; empty means plain TCP
}

// MqttService provides methods for MQTT operations.
type MqttService struct {
	client     MQTTClient
	fileClient file.FileOperations
}

// NewMqttService creates a new MqttService instance.
func NewMqttService(fileClient file.FileOperations) *MqttService {
	return &MqttService{
		fileClient: fileClient,
	}
}

// NewMqttServiceWithClient wraps an already built client.
func NewMqttServiceWithClient(client MQTTClient) *MqttService {
	return &MqttService{client: client}
}

// Initialize builds the paho client, with TLS when a CA certificate is
// configured, and connects to the broker.
func (s *MqttService) Initialize(options Options) error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(options.Broker)
	// a random suffix keeps two agents with the same config from kicking each other off
	opts.SetClientID(fmt.Sprintf("%s-%s", options.ClientID, uuid.NewString()[:8]))
	opts.SetAutoReconnect(true)

	if options.CACertificate != "" {
		tlsConfig, err := s.tlsConfig(options.CACertificate)
		if err != nil {
			return err
		}
		opts.SetTLSConfig(tlsConfig)
	}

	s.client = mqtt.NewClient(opts)

	token := s.Connect()
	if token.Wait() && token.Error() != nil {
		return token.Error()
	}

	return nil
}

func (s *MqttService) tlsConfig(caCertPath string) (*tls.Config, error) {
	caCert, err := s.fileClient.ReadFileRaw(caCertPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA certificate: %w", err)
	}

	caCertPool := x509.NewCertPool()
	if !caCertPool.AppendCertsFromPEM(caCert) {
		return nil, ErrInvalidCACertificate
	}
	return &tls.Config{RootCAs: caCertPool, MinVersion: tls.VersionTLS12}, nil
}

// Connect connects to the MQTT broker.
func (s *MqttService) Connect() mqtt.Token {
	return s.client.Connect()
}

// Publish sends a message to the specified topic.
func (s *MqttService) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	return s.client.Publish(topic, qos, retained, payload)
}

// Disconnect gracefully disconnects the MQTT client.
func (s *MqttService) Disconnect(quiesce uint) {
	s.client.Disconnect(quiesce)
}

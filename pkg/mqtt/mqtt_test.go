package mqtt_test

import (
	"errors"
	"testing"
	"time"

	"github.com/benmeehan/gps-uplink-agent/internal/mocks"
	"github.com/benmeehan/gps-uplink-agent/pkg/mqtt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestMqttService_Initialize_InvalidCACertificate(t *testing.T) {
	fileOps := new(mocks.MockFileOperations)
	fileOps.On("ReadFileRaw", "ca.crt").Return([]byte("not a certificate"), nil)
	service := mqtt.NewMqttService(fileOps)

	err := service.Initialize(mqtt.Options{Broker: "ssl://localhost:8883", ClientID: "agent", CACertificate: "ca.crt"})

	assert.ErrorIs(t, err, mqtt.ErrInvalidCACertificate)
}

func TestMqttService_Initialize_MissingCACertificate(t *testing.T) {
	fileOps := new(mocks.MockFileOperations)
	fileOps.On("ReadFileRaw", "ca.crt").Return(nil, errors.New("no such file"))
	service := mqtt.NewMqttService(fileOps)

	err := service.Initialize(mqtt.Options{Broker: "ssl://localhost:8883", ClientID: "agent", CACertificate: "ca.crt"})

	assert.ErrorContains(t, err, "failed to read CA certificate")
}

func TestPublishJSON_Success(t *testing.T) {
	client := new(mocks.MockMQTTClient)
	client.On("Publish", "devices/health", byte(1), false, []byte(`{"status":"alive"}`)).Return(mocks.CompletedToken(nil))

	err := mqtt.PublishJSON(client, "devices/health", 1, map[string]string{"status": "alive"}, time.Second)

	assert.NoError(t, err)
	client.AssertExpectations(t)
}

func TestPublishJSON_Timeout(t *testing.T) {
	token := new(mocks.MockToken)
	token.On("WaitTimeout", time.Second).Return(false)
	client := new(mocks.MockMQTTClient)
	client.On("Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(token)

	err := mqtt.PublishJSON(client, "devices/health", 0, struct{}{}, time.Second)

	assert.ErrorIs(t, err, mqtt.ErrPublishTimeout)
}

func TestPublishJSON_MarshalError(t *testing.T) {
	client := new(mocks.MockMQTTClient)

	err := mqtt.PublishJSON(client, "devices/health", 0, make(chan int), time.Second)

	assert.Error(t, err)
	client.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestMqttService_DelegatesToClient(t *testing.T) {
	client := new(mocks.MockMQTTClient)
	client.On("Publish", "t", byte(0), true, "x").Return(mocks.CompletedToken(nil))
	client.On("Disconnect", uint(250)).Return()
	service := mqtt.NewMqttServiceWithClient(client)

	assert.NoError(t, service.Publish("t", 0, true, "x").Error())
	service.Disconnect(250)

	client.AssertExpectations(t)
}

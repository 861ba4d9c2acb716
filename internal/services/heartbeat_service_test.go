package services_test

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/benmeehan/gps-uplink-agent/internal/constants"
	"github.com/benmeehan/gps-uplink-agent/internal/metrics_collectors"
	"github.com/benmeehan/gps-uplink-agent/internal/mocks"
	"github.com/benmeehan/gps-uplink-agent/internal/models"
	"github.com/benmeehan/gps-uplink-agent/internal/services"
	"github.com/benmeehan/gps-uplink-agent/internal/state_managers"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newHeartbeat(client *mocks.MockMQTTClient, stats *state_managers.CycleStats, interval time.Duration) *services.HeartbeatService {
	return services.NewHeartbeatService(
		"devices/health",
		interval,
		time.Second,
		"ESP32_001",
		1,
		client,
		stats,
		metrics_collectors.NewDefaultRegistry(zerolog.Nop()),
		models.MetricsConfig{},
		zerolog.Nop(),
	)
}

// TestHeartbeatService_StartStop tests the start and stop guards of the HeartbeatService.
func TestHeartbeatService_StartStop(t *testing.T) {
	h := newHeartbeat(new(mocks.MockMQTTClient), state_managers.NewCycleStats(), time.Hour)

	assert.NoError(t, h.Start())
	assert.EqualError(t, h.Start(), "heartbeat service is already running")

	assert.NoError(t, h.Stop())
	assert.EqualError(t, h.Stop(), "heartbeat service is not running")
}

// TestHeartbeatService_PublishesStats tests that published heartbeats carry the tracker counters.
func TestHeartbeatService_PublishesStats(t *testing.T) {
	stats := state_managers.NewCycleStats()
	stats.SetLabel(state_managers.LabelState, services.StateRunning.String())
	stats.SetLabel(state_managers.LabelAPN, "airtelgprs.com")
	stats.Incr(state_managers.StatCycles)
	stats.Incr(state_managers.StatCycles)
	stats.Incr(state_managers.StatPublished)
	stats.Set(state_managers.StatLastSignal, 19)

	published := make(chan []byte, 10)
	client := new(mocks.MockMQTTClient)
	client.On("Publish", "devices/health", byte(1), false, mock.Anything).
		Run(func(args mock.Arguments) { published <- args.Get(3).([]byte) }).
		Return(mocks.CompletedToken(nil))

	h := newHeartbeat(client, stats, 20*time.Millisecond)
	require.NoError(t, h.Start())

	var payload []byte
	select {
	case payload = <-published:
	case <-time.After(time.Second):
		t.Fatal("no heartbeat published")
	}
	require.NoError(t, h.Stop())

	var heartbeat models.Heartbeat
	require.NoError(t, json.Unmarshal(payload, &heartbeat))
	assert.Equal(t, "ESP32_001", heartbeat.DeviceID)
	assert.Equal(t, constants.StatusAlive, heartbeat.Status)
	assert.Equal(t, "running", heartbeat.State)
	assert.Equal(t, "airtelgprs.com", heartbeat.APN)
	assert.Equal(t, int64(2), heartbeat.Cycles)
	assert.Equal(t, int64(1), heartbeat.Published)
	assert.Equal(t, int64(19), heartbeat.LastSignal)
	assert.Nil(t, heartbeat.Metrics)
}

// TestHeartbeatService_PublishError tests that a broker failure does not stop the loop.
func TestHeartbeatService_PublishError(t *testing.T) {
	attempts := make(chan struct{}, 10)
	client := new(mocks.MockMQTTClient)
	client.On("Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { attempts <- struct{}{} }).
		Return(mocks.CompletedToken(errors.New("publish failed")))

	h := newHeartbeat(client, state_managers.NewCycleStats(), 10*time.Millisecond)
	require.NoError(t, h.Start())

	for i := 0; i < 2; i++ {
		select {
		case <-attempts:
		case <-time.After(time.Second):
			t.Fatal("heartbeat loop stopped after a failed publish")
		}
	}
	require.NoError(t, h.Stop())
}

func TestHeartbeatService_Snapshot_StartingBeforeRunning(t *testing.T) {
	stats := state_managers.NewCycleStats()
	stats.SetLabel(state_managers.LabelState, services.StateModuleReady.String())
	h := newHeartbeat(new(mocks.MockMQTTClient), stats, time.Hour)

	heartbeat := h.Snapshot()

	assert.Equal(t, constants.StatusStarting, heartbeat.Status)
	assert.Equal(t, "module_ready", heartbeat.State)
}

func TestHeartbeatService_Snapshot_CollectsEnabledMetrics(t *testing.T) {
	registry := metrics_collectors.NewMetricsRegistry()
	registry.Register(&fixedCollector{name: "cpu", value: 12.5})
	h := services.NewHeartbeatService("devices/health", time.Hour, time.Second, "ESP32_001", 0,
		new(mocks.MockMQTTClient), state_managers.NewCycleStats(), registry,
		models.MetricsConfig{MonitorCPU: true}, zerolog.Nop())
	require.NoError(t, h.Start())
	defer h.Stop()

	heartbeat := h.Snapshot()

	assert.Equal(t, map[string]float64{"cpu": 12.5}, heartbeat.Metrics)
}

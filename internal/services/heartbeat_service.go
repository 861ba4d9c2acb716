package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/benmeehan/gps-uplink-agent/internal/constants"
	"github.com/benmeehan/gps-uplink-agent/internal/metrics_collectors"
	"github.com/benmeehan/gps-uplink-agent/internal/models"
	"github.com/benmeehan/gps-uplink-agent/internal/state_managers"
	"github.com/benmeehan/gps-uplink-agent/internal/utils"
	"github.com/benmeehan/gps-uplink-agent/pkg/mqtt"
	"github.com/rs/zerolog"
)

// HeartbeatService manages periodic health messages.
type HeartbeatService struct {
	PubTopic      string
	Interval      time.Duration
	Timeout       time.Duration
	DeviceID      string
	QOS           int
	MqttClient    mqtt.MQTTClient
	Stats         *state_managers.CycleStats
	Registry      *metrics_collectors.MetricsRegistry
	MetricsConfig models.MetricsConfig
	Logger        zerolog.Logger

	workerPool *utils.WorkerPool
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
}

// NewHeartbeatService initializes a new HeartbeatService.
func NewHeartbeatService(pubTopic string, interval, timeout time.Duration, deviceID string, qos int,
	mqttClient mqtt.MQTTClient, stats *state_managers.CycleStats, registry *metrics_collectors.MetricsRegistry,
	metricsConfig models.MetricsConfig, logger zerolog.Logger) *HeartbeatService {

	return &HeartbeatService{
		PubTopic:      pubTopic,
		Interval:      interval,
		Timeout:       timeout,
		DeviceID:      deviceID,
		QOS:           qos,
		MqttClient:    mqttClient,
		Stats:         stats,
		Registry:      registry,
		MetricsConfig: metricsConfig,
		Logger:        logger.With().Str("component", "heartbeat").Logger(),
	}
}

// Start launches the heartbeat loop in a separate goroutine.
func (h *HeartbeatService) Start() error {
	if h.ctx != nil {
		h.Logger.Warn().Msg("HeartbeatService is already running")
		return errors.New("heartbeat service is already running")
	}

	h.ctx, h.cancel = context.WithCancel(context.Background())
	h.workerPool = utils.NewWorkerPool(2)

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		h.runHeartbeatLoop()
	}()

	h.Logger.Info().Str("topic", h.PubTopic).Msg("HeartbeatService started successfully")
	return nil
}

// Stop gracefully stops the heartbeat service.
func (h *HeartbeatService) Stop() error {
	if h.ctx == nil {
		h.Logger.Warn().Msg("HeartbeatService is not running")
		return errors.New("heartbeat service is not running")
	}

	h.cancel()
	h.wg.Wait()
	h.workerPool.Shutdown()

	h.ctx = nil
	h.cancel = nil

	h.Logger.Info().Msg("HeartbeatService stopped successfully")
	return nil
}

// runHeartbeatLoop sends heartbeat messages at the specified interval.
func (h *HeartbeatService) runHeartbeatLoop() {
	ticker := time.NewTicker(h.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := h.publish(h.Snapshot()); err != nil {
				h.Logger.Error().Err(err).Msg("Failed to publish heartbeat message")
			} else {
				h.Logger.Debug().Msg("Heartbeat published successfully")
			}

		case <-h.ctx.Done():
			h.Logger.Info().Msg("HeartbeatService stopping gracefully")
			return
		}
	}
}

func (h *HeartbeatService) publish(heartbeat models.Heartbeat) error {
	return mqtt.PublishJSON(h.MqttClient, h.PubTopic, byte(h.QOS), heartbeat, h.Timeout)
}

// Snapshot builds a heartbeat from the tracker's counters and the enabled
// host metrics.
func (h *HeartbeatService) Snapshot() models.Heartbeat {
	heartbeat := models.Heartbeat{
		DeviceID:        h.DeviceID,
		Timestamp:       time.Now().UTC(),
		Status:          constants.StatusStarting,
		State:           h.Stats.Label(state_managers.LabelState),
		APN:             h.Stats.Label(state_managers.LabelAPN),
		Cycles:          h.Stats.Get(state_managers.StatCycles),
		Published:       h.Stats.Get(state_managers.StatPublished),
		FixFailures:     h.Stats.Get(state_managers.StatFixFailures),
		PublishFailures: h.Stats.Get(state_managers.StatPublishFailures),
		LastSignal:      h.Stats.Get(state_managers.StatLastSignal),
		Metrics:         h.collectMetrics(),
	}
	if heartbeat.State == StateRunning.String() {
		heartbeat.Status = constants.StatusAlive
	}
	return heartbeat
}

// collectMetrics runs the enabled collectors concurrently, bounded by Timeout.
func (h *HeartbeatService) collectMetrics() map[string]float64 {
	if h.Registry == nil || h.workerPool == nil {
		return nil
	}

	parent := h.ctx
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithTimeout(parent, h.Timeout)
	defer cancel()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		metrics = make(map[string]float64)
	)
	for _, collector := range h.Registry.GetCollectors() {
		if !collector.IsEnabled(&h.MetricsConfig) {
			continue
		}
		collector := collector
		wg.Add(1)
		submitted := h.workerPool.Submit(func() {
			defer wg.Done()
			value := collector.Collect(ctx)
			if value == nil {
				return
			}
			mu.Lock()
			metrics[collector.Name()] = *value
			mu.Unlock()
		})
		if !submitted {
			wg.Done()
		}
	}
	wg.Wait()

	if len(metrics) == 0 {
		return nil
	}
	return metrics
}

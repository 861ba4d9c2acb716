package service_registry

import (
	"errors"
	"fmt"

	"github.com/benmeehan/gps-uplink-agent/internal/gps"
	"github.com/benmeehan/gps-uplink-agent/internal/metrics_collectors"
	"github.com/benmeehan/gps-uplink-agent/internal/network"
	"github.com/benmeehan/gps-uplink-agent/internal/registry"
	"github.com/benmeehan/gps-uplink-agent/internal/services"
	"github.com/benmeehan/gps-uplink-agent/internal/state_managers"
	"github.com/benmeehan/gps-uplink-agent/internal/uplink"
	"github.com/benmeehan/gps-uplink-agent/internal/utils"
	"github.com/benmeehan/gps-uplink-agent/pkg/at"
	"github.com/benmeehan/gps-uplink-agent/pkg/mqtt"
	"github.com/elliotchance/orderedmap/v2"
	"github.com/rs/zerolog"
)

// ServiceRegistry manages the lifecycle of the agent's services.
type ServiceRegistry struct {
	services   *orderedmap.OrderedMap[string, registry.Service]
	commander  at.Commander
	mqttClient mqtt.MQTTClient
	stats      *state_managers.CycleStats
	Logger     zerolog.Logger
}

// NewServiceRegistry initializes a new service registry. mqttClient is nil
// when MQTT is disabled.
func NewServiceRegistry(commander at.Commander, mqttClient mqtt.MQTTClient, stats *state_managers.CycleStats,
	logger zerolog.Logger) *ServiceRegistry {
	return &ServiceRegistry{
		services:   orderedmap.NewOrderedMap[string, registry.Service](),
		commander:  commander,
		mqttClient: mqttClient,
		stats:      stats,
		Logger:     logger,
	}
}

// RegisterService adds a new service to the registry.
func (sr *ServiceRegistry) RegisterService(name string, svc registry.Service) {
	if _, exists := sr.services.Get(name); exists {
		sr.Logger.Warn().Msgf("Service %s is already registered", name)
		return
	}
	sr.services.Set(name, svc)
	sr.Logger.Info().Msgf("Registered service: %s", name)
}

// Service returns the registered service called name.
func (sr *ServiceRegistry) Service(name string) (registry.Service, bool) {
	return sr.services.Get(name)
}

// StartServices starts all registered services in order.
// If a service fails to start, it stops already started services.
func (sr *ServiceRegistry) StartServices() error {
	var started []registry.Service

	for el := sr.services.Front(); el != nil; el = el.Next() {
		sr.Logger.Info().Msgf("Starting service: %s", el.Key)
		if err := el.Value.Start(); err != nil {
			sr.Logger.Error().Err(err).Msgf("Failed to start service: %s", el.Key)

			sr.Logger.Warn().Msg("Stopping already started services due to startup failure...")
			for i := len(started) - 1; i >= 0; i-- {
				_ = started[i].Stop()
			}
			return fmt.Errorf("start %s: %w", el.Key, err)
		}
		started = append(started, el.Value)
	}

	return nil
}

// StopServices stops all services in reverse order.
func (sr *ServiceRegistry) StopServices() error {
	var stopErrors []error
	for el := sr.services.Back(); el != nil; el = el.Prev() {
		if err := el.Value.Stop(); err != nil {
			stopErrors = append(stopErrors, fmt.Errorf("failed to stop %s: %w", el.Key, err))
		}
	}
	if len(stopErrors) > 0 {
		for _, e := range stopErrors {
			sr.Logger.Error().Err(e).Msg("Service stop failure")
		}
		return errors.Join(stopErrors...)
	}
	return nil
}

// RegisterServices builds the enabled services from config. The heartbeat
// comes first so health is reported while the modem is still being set up.
func (sr *ServiceRegistry) RegisterServices(config *utils.Config, deviceID string) error {
	mqttReady := sr.mqttClient != nil

	servicesInOrder := []struct {
		name        string
		enabled     bool
		constructor func() (registry.Service, error)
	}{
		{
			name:    "heartbeat",
			enabled: config.Services.Health.Enabled && mqttReady,
			constructor: func() (registry.Service, error) {
				return services.NewHeartbeatService(
					config.Services.Health.Topic,
					config.Services.Health.Interval,
					config.Services.Health.Timeout,
					deviceID,
					config.Services.Health.QOS,
					sr.mqttClient,
					sr.stats,
					metrics_collectors.NewDefaultRegistry(sr.Logger),
					config.Services.Health.Metrics,
					sr.Logger,
				), nil
			},
		},
		{
			name:    "tracker",
			enabled: true,
			constructor: func() (registry.Service, error) {
				return sr.newTracker(config, deviceID, mqttReady), nil
			},
		},
	}

	var registered []string
	for _, svc := range servicesInOrder {
		if !svc.enabled {
			continue
		}
		instance, err := svc.constructor()
		if err != nil {
			sr.Logger.Error().Err(err).Msgf("Failed to create %s service", svc.name)
			return err
		}
		sr.RegisterService(svc.name, instance)
		registered = append(registered, svc.name)
	}

	sr.Logger.Info().Msgf("Registered services in order: %v", registered)
	return nil
}

func (sr *ServiceRegistry) newTracker(config *utils.Config, deviceID string, mqttReady bool) *services.TrackerService {
	fixes := gps.NewFixReader(sr.commander, gps.Config{
		QueryCommand:  config.GPS.QueryCommand,
		ReplyMarker:   config.GPS.ReplyMarker,
		Timeout:       config.GPS.Timeout,
		StrictNumeric: config.GPS.StrictNumeric,
		NMEAFallback:  config.GPS.NMEAFallback,
	}, sr.Logger)

	resolver := network.NewResolver(sr.commander, config.APN.Carriers, config.APN.Prefixes, sr.Logger)
	packet := network.NewPacketContext(sr.commander, config.Modem.ContextID, network.Timeouts{})

	publisher := uplink.NewPublisher(sr.commander, uplink.Config{
		Endpoint:        config.Uplink.Endpoint,
		InputTime:       config.Uplink.InputTime,
		ResponseTime:    config.Uplink.ResponseTime,
		ResponseTimeout: config.Uplink.ResponseTimeout,
	}, sr.Logger)

	var mirror services.FixMirror
	if config.Services.Mirror.Enabled && mqttReady {
		mirror = uplink.NewMQTTMirror(sr.mqttClient, config.Services.Mirror.Topic, config.Services.Mirror.QOS,
			config.Services.Health.Timeout, sr.Logger)
	}

	return services.NewTrackerService(sr.commander, fixes, resolver, packet, publisher, mirror, sr.stats,
		services.TrackerConfig{
			DeviceID:      deviceID,
			Interval:      config.Uplink.Interval,
			BootAttempts:  config.Modem.BootAttempts,
			AutoDetectAPN: config.AutoDetectAPN(),
			FallbackAPN:   config.APN.Fallback,
			APNUser:       config.APN.User,
			APNPassword:   config.APN.Password,
		}, sr.Logger)
}

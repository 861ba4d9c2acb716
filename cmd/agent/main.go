package main

import (
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/benmeehan/gps-uplink-agent/internal/service_registry"
	"github.com/benmeehan/gps-uplink-agent/internal/services"
	"github.com/benmeehan/gps-uplink-agent/internal/state_managers"
	"github.com/benmeehan/gps-uplink-agent/internal/utils"
	"github.com/benmeehan/gps-uplink-agent/pkg/at"
	"github.com/benmeehan/gps-uplink-agent/pkg/file"
	"github.com/benmeehan/gps-uplink-agent/pkg/identity"
	"github.com/benmeehan/gps-uplink-agent/pkg/mqtt"
	"github.com/benmeehan/gps-uplink-agent/pkg/serial"
	"github.com/rs/zerolog"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the agent configuration")
	flag.Parse()

	log := zerolog.New(os.Stdout).With().Timestamp().Logger()

	// Initialize file operations handler
	fileClient := file.NewFileService()

	config, err := utils.LoadConfig(*configPath, fileClient)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	log = newLogger(config)

	deviceInfo := identity.NewDeviceInfo(config.Device.IdentityFile, fileClient)
	deviceID, err := deviceInfo.EnsureDeviceID(config.Device.ID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to establish device identity")
	}
	log.Info().Str("device_id", deviceID).Msg("Device identity loaded")

	port, err := serial.Open(serial.Config{
		Driver:      config.Serial.Driver,
		PortName:    config.Serial.Port,
		BaudRate:    config.Serial.BaudRate,
		ReadTimeout: config.Serial.ReadTimeout,
	})
	if err != nil {
		log.Fatal().Err(err).Str("port", config.Serial.Port).Msg("Failed to open modem port")
	}
	defer port.Close()

	engine := at.NewEngine(port, config.Modem.PollInterval, config.Modem.Verbose, log)

	// MQTT is optional; the registry skips MQTT services when the client is nil
	var mqttClient mqtt.MQTTClient
	if config.MQTT.Enabled {
		mqttService := mqtt.NewMqttService(fileClient)
		err = mqttService.Initialize(mqtt.Options{
			Broker:        config.MQTT.Broker,
			ClientID:      config.MQTT.ClientID,
			CACertificate: config.MQTT.CACertificate,
		})
		if err != nil {
			log.Fatal().Err(err).Str("broker", config.MQTT.Broker).Msg("Failed to initialize MQTT connection")
		}
		defer mqttService.Disconnect(250)
		mqttClient = mqttService
	}

	serviceRegistry := service_registry.NewServiceRegistry(engine, mqttClient, state_managers.NewCycleStats(), log)
	if err := serviceRegistry.RegisterServices(config, deviceID); err != nil {
		log.Fatal().Err(err).Msg("Failed to register services")
	}

	if err := serviceRegistry.StartServices(); err != nil {
		if errors.Is(err, services.ErrFatalSetup) {
			log.Error().Err(err).Msg("Modem could not be brought up, halting")
		} else {
			log.Error().Err(err).Msg("Failed to start services")
		}
		port.Close()
		os.Exit(1)
	}
	log.Info().Msg("All services started successfully")

	// Handle graceful shutdown
	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)
	<-stopCh

	log.Info().Msg("Shutting down gracefully...")
	if err := serviceRegistry.StopServices(); err != nil {
		log.Error().Err(err).Msg("Some services did not stop cleanly")
	}
}

// newLogger builds the root logger from the log section of config.
func newLogger(config *utils.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(config.Log.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	if config.Log.Format == "console" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout})
	} else {
		logger = zerolog.New(os.Stdout)
	}
	return logger.Level(level).With().Timestamp().Logger()
}

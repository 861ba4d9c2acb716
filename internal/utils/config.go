package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/benmeehan/gps-uplink-agent/internal/models"
	"github.com/benmeehan/gps-uplink-agent/pkg/file"
)

var (
	// ErrMissingEndpoint is returned when no upload endpoint is configured.
	ErrMissingEndpoint = errors.New("uplink endpoint is required")
	// ErrInvalidPrefix is returned for an IMSI prefix that is not exactly 5 digits.
	ErrInvalidPrefix = errors.New("imsi prefix must be exactly 5 digits")
	// ErrInvalidCarrier is returned for a carrier rule with an empty pattern or APN.
	ErrInvalidCarrier = errors.New("carrier rule needs a pattern and an apn")
	// ErrInvalidInterval is returned for a cycle or heartbeat interval that is not positive.
	ErrInvalidInterval = errors.New("interval must be positive")
)

// Config represents the structure of the configuration file.
type Config struct {
	SecretsFile string `yaml:"secrets_file"` // Optional YAML file overlaid on this one (endpoint, device id, APN)

	Log struct {
		Level  string `yaml:"level"`  // debug, info, warn, error
		Format string `yaml:"format"` // json or console
	} `yaml:"log"`

	Serial struct {
		Driver      string        `yaml:"driver"`       // tarm or bugst
		Port        string        `yaml:"port"`         // Modem AT port, or "auto"
		BaudRate    int           `yaml:"baud_rate"`    // Baud rate of the AT port
		ReadTimeout time.Duration `yaml:"read_timeout"` // Poll window of a single read
	} `yaml:"serial"`

	Modem struct {
		Verbose      bool          `yaml:"verbose"`       // Log every AT exchange at info level
		PollInterval time.Duration `yaml:"poll_interval"` // Sleep between empty reads
		BootAttempts int           `yaml:"boot_attempts"` // Liveness checks before giving up
		ContextID    int           `yaml:"context_id"`    // Packet-data context used for HTTP
	} `yaml:"modem"`

	Device struct {
		ID           string `yaml:"id"`            // Device identifier sent with every fix
		IdentityFile string `yaml:"identity_file"` // Where a generated identifier is persisted
	} `yaml:"device"`

	GPS struct {
		QueryCommand  string        `yaml:"query_command"`  // Location query
		ReplyMarker   string        `yaml:"reply_marker"`   // Prefix of a fix reply
		Timeout       time.Duration `yaml:"timeout"`        // Wait for a fix reply
		StrictNumeric bool          `yaml:"strict_numeric"` // Reject fixes with unparsable numbers
		NMEAFallback  bool          `yaml:"nmea_fallback"`  // Try GGA/RMC sentences when the fix reply is unusable
	} `yaml:"gps"`

	APN struct {
		Fallback   string               `yaml:"fallback"`    // Used when detection finds nothing
		User       string               `yaml:"user"`        // APN user name
		Password   string               `yaml:"password"`    // APN password
		AutoDetect *bool                `yaml:"auto_detect"` // Detect the APN from operator/IMSI (default true)
		Carriers   []models.CarrierRule `yaml:"carriers"`    // Replaces the built-in operator table
		Prefixes   []models.PrefixRule  `yaml:"prefixes"`    // Replaces the built-in IMSI prefix table
	} `yaml:"apn"`

	Uplink struct {
		Endpoint        string        `yaml:"endpoint"`         // Remote data sink URL
		Interval        time.Duration `yaml:"interval"`         // Time between cycles
		InputTime       int           `yaml:"input_time"`       // Seconds the modem waits for URL/body bytes
		ResponseTime    int           `yaml:"response_time"`    // Seconds the modem waits for the HTTP response
		ResponseTimeout time.Duration `yaml:"response_timeout"` // Our wait for the HTTP status notification
	} `yaml:"uplink"`

	MQTT struct {
		Enabled       bool   `yaml:"enabled"`        // Connect to an MQTT broker at all
		Broker        string `yaml:"broker"`         // MQTT broker address
		ClientID      string `yaml:"client_id"`      // MQTT client ID
		CACertificate string `yaml:"ca_certificate"` // Path to the CA certificate, empty for plain TCP
	} `yaml:"mqtt"`

	Services struct {
		Health struct {
			Enabled  bool                 `yaml:"enabled"`  // Enable/disable health heartbeats
			Topic    string               `yaml:"topic"`    // MQTT topic for heartbeats
			Interval time.Duration        `yaml:"interval"` // Interval between heartbeats
			QOS      int                  `yaml:"qos"`      // MQTT QoS level for heartbeats
			Timeout  time.Duration        `yaml:"timeout"`  // Timeout for collecting host metrics
			Metrics  models.MetricsConfig `yaml:"metrics"`  // Host metrics attached to heartbeats
		} `yaml:"health"`

		Mirror struct {
			Enabled bool   `yaml:"enabled"` // Mirror uploaded fixes to MQTT
			Topic   string `yaml:"topic"`   // MQTT topic for mirrored fixes
			QOS     int    `yaml:"qos"`     // MQTT QoS level for mirrored fixes
		} `yaml:"mirror"`
	} `yaml:"services"`
}

// LoadConfig loads the YAML configuration from the specified file, overlays
// the secrets file if one is named, fills in defaults and validates it.
func LoadConfig(filename string, fileClient file.FileOperations) (*Config, error) {
	var config Config
	if err := fileClient.ReadYamlFile(filename, &config); err != nil {
		return nil, fmt.Errorf("read config %s: %w", filename, err)
	}

	if config.SecretsFile != "" {
		if err := fileClient.ReadYamlFile(config.SecretsFile, &config); err != nil {
			return nil, fmt.Errorf("read secrets %s: %w", config.SecretsFile, err)
		}
	}

	config.applyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// AutoDetectAPN reports whether the access point should be detected from the
// network rather than taken from the fallback.
func (c *Config) AutoDetectAPN() bool {
	return c.APN.AutoDetect == nil || *c.APN.AutoDetect
}

func (c *Config) applyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Serial.Port == "" {
		c.Serial.Port = "/dev/ttyUSB2"
	}
	if c.Serial.BaudRate == 0 {
		c.Serial.BaudRate = 115200
	}
	if c.Serial.ReadTimeout == 0 {
		c.Serial.ReadTimeout = 50 * time.Millisecond
	}
	if c.Modem.PollInterval == 0 {
		c.Modem.PollInterval = 20 * time.Millisecond
	}
	if c.Modem.BootAttempts == 0 {
		c.Modem.BootAttempts = 3
	}
	if c.Modem.ContextID == 0 {
		c.Modem.ContextID = 1
	}
	if c.Device.IdentityFile == "" {
		c.Device.IdentityFile = "configs/device.json"
	}
	if c.GPS.Timeout == 0 {
		c.GPS.Timeout = 5 * time.Second
	}
	if c.Uplink.Interval == 0 {
		c.Uplink.Interval = 30 * time.Second
	}
	if c.Uplink.InputTime == 0 {
		c.Uplink.InputTime = 80
	}
	if c.Uplink.ResponseTime == 0 {
		c.Uplink.ResponseTime = 80
	}
	if c.Uplink.ResponseTimeout == 0 {
		c.Uplink.ResponseTimeout = time.Duration(c.Uplink.ResponseTime+5) * time.Second
	}
	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = "gps-uplink-agent"
	}
	if c.Services.Health.Topic == "" {
		c.Services.Health.Topic = "devices/health"
	}
	if c.Services.Health.Interval == 0 {
		c.Services.Health.Interval = time.Minute
	}
	if c.Services.Health.Timeout == 0 {
		c.Services.Health.Timeout = 5 * time.Second
	}
	if c.Services.Mirror.Topic == "" {
		c.Services.Mirror.Topic = "devices/location"
	}
}

// Validate checks the values the agent cannot run without.
func (c *Config) Validate() error {
	if c.Uplink.Endpoint == "" {
		return ErrMissingEndpoint
	}
	if c.Uplink.Interval <= 0 {
		return fmt.Errorf("%w: uplink.interval %s", ErrInvalidInterval, c.Uplink.Interval)
	}
	if c.Services.Health.Interval <= 0 {
		return fmt.Errorf("%w: services.health.interval %s", ErrInvalidInterval, c.Services.Health.Interval)
	}
	for _, rule := range c.APN.Carriers {
		if rule.Pattern == "" || rule.APN == "" {
			return fmt.Errorf("%w: %+v", ErrInvalidCarrier, rule)
		}
	}
	for _, rule := range c.APN.Prefixes {
		if !IsDigits(rule.Prefix, 5) {
			return fmt.Errorf("%w: %q", ErrInvalidPrefix, rule.Prefix)
		}
	}
	return nil
}

// IsDigits reports whether s consists of exactly n ASCII digits.
func IsDigits(s string, n int) bool {
	if len(s) != n {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

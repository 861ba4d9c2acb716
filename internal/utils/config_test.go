package utils_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/benmeehan/gps-uplink-agent/internal/utils"
	"github.com/benmeehan/gps-uplink-agent/pkg/file"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadConfig_AppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", `
uplink:
  endpoint: https://example-rtdb.firebaseio.com/gps.json
`)

	config, err := utils.LoadConfig(path, file.NewFileService())

	require.NoError(t, err)
	assert.Equal(t, "info", config.Log.Level)
	assert.Equal(t, 115200, config.Serial.BaudRate)
	assert.Equal(t, 3, config.Modem.BootAttempts)
	assert.Equal(t, 1, config.Modem.ContextID)
	assert.Equal(t, 30*time.Second, config.Uplink.Interval)
	assert.Equal(t, 85*time.Second, config.Uplink.ResponseTimeout)
	assert.True(t, config.AutoDetectAPN())
}

func TestLoadConfig_OverlaysSecrets(t *testing.T) {
	dir := t.TempDir()
	secrets := writeFile(t, dir, "secrets.yaml", `
device:
  id: ESP32_001
apn:
  fallback: internet
  user: gps
uplink:
  endpoint: https://secret-rtdb.firebaseio.com/gps.json
`)
	path := writeFile(t, dir, "config.yaml", `
secrets_file: `+secrets+`
uplink:
  endpoint: https://placeholder.invalid/gps.json
  interval: 10s
apn:
  auto_detect: false
`)

	config, err := utils.LoadConfig(path, file.NewFileService())

	require.NoError(t, err)
	assert.Equal(t, "ESP32_001", config.Device.ID)
	assert.Equal(t, "internet", config.APN.Fallback)
	assert.Equal(t, "gps", config.APN.User)
	assert.Equal(t, "https://secret-rtdb.firebaseio.com/gps.json", config.Uplink.Endpoint)
	assert.Equal(t, 10*time.Second, config.Uplink.Interval)
	assert.False(t, config.AutoDetectAPN())
}

func TestLoadConfig_MissingEndpoint(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", "log:\n  level: debug\n")

	_, err := utils.LoadConfig(path, file.NewFileService())

	assert.ErrorIs(t, err, utils.ErrMissingEndpoint)
}

func TestLoadConfig_RejectsShortPrefix(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", `
uplink:
  endpoint: https://example.invalid/gps.json
apn:
  prefixes:
    - prefix: "4044"
      apn: airtelgprs.com
`)

	_, err := utils.LoadConfig(path, file.NewFileService())

	assert.ErrorIs(t, err, utils.ErrInvalidPrefix)
}

func TestLoadConfig_RejectsEmptyCarrierRule(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", `
uplink:
  endpoint: https://example.invalid/gps.json
apn:
  carriers:
    - pattern: AIRTEL
`)

	_, err := utils.LoadConfig(path, file.NewFileService())

	assert.ErrorIs(t, err, utils.ErrInvalidCarrier)
}

func TestLoadConfig_RejectsNonPositiveIntervals(t *testing.T) {
	cases := map[string]string{
		"negative uplink interval": "uplink:\n  endpoint: https://example.invalid/gps.json\n  interval: -5s\n",
		"negative health interval": "uplink:\n  endpoint: https://example.invalid/gps.json\n" +
			"services:\n  health:\n    interval: -1m\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "config.yaml", content)

			_, err := utils.LoadConfig(path, file.NewFileService())

			assert.ErrorIs(t, err, utils.ErrInvalidInterval)
		})
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := utils.LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"), file.NewFileService())

	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestIsDigits(t *testing.T) {
	assert.True(t, utils.IsDigits("40445", 5))
	assert.False(t, utils.IsDigits("4044", 5))
	assert.False(t, utils.IsDigits("4044a", 5))
	assert.False(t, utils.IsDigits("404450", 5))
}

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFillsDefaults(t *testing.T) {
	cfg, err := Parse([]byte("controller:\n  host: 192.168.4.1\n"))
	require.NoError(t, err)

	assert.Equal(t, 81, cfg.Controller.StreamPort)
	assert.Equal(t, 1000, cfg.Monitor.LogCapacity)
	assert.Equal(t, 3*time.Second, cfg.Monitor.RetryInterval())
	assert.Equal(t, "localhost", cfg.MQTT.Host)
	assert.Equal(t, 1883, cfg.MQTT.Port)
	assert.Equal(t, "webasto", cfg.MQTT.Prefix)
	assert.True(t, strings.HasPrefix(cfg.MQTT.ClientID, "webasto-monitor-"))
	assert.Equal(t, "homeassistant", cfg.HomeAssistant.Prefix)
	assert.Equal(t, ":8080", cfg.HTTP.Listen)
	assert.Equal(t, "info", cfg.Log)
	assert.Zero(t, cfg.Controller.Timeout())
}

func TestParseRequiresHost(t *testing.T) {
	_, err := Parse([]byte("log: debug\n"))
	assert.Error(t, err)
}

func TestParseRejectsInvalidYAML(t *testing.T) {
	_, err := Parse([]byte("controller: [unterminated"))
	assert.Error(t, err)
}

func TestAPIBaseURL(t *testing.T) {
	assert.Equal(t, "http://heater.local", ControllerConfig{Host: "heater.local"}.APIBaseURL())
	assert.Equal(t, "https://heater.local", ControllerConfig{Host: "heater.local", Secure: true}.APIBaseURL())
	assert.Equal(t, "http://10.0.0.5:8081", ControllerConfig{Host: "10.0.0.5", APIPort: 8081}.APIBaseURL())
}

func TestLoadConfigReadsGivenPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "monitor.yml")
	content := "controller:\n  host: heater.local\n  secure: true\n  request_timeout: 5\nmonitor:\n  log_capacity: 50\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.True(t, cfg.Controller.Secure)
	assert.Equal(t, 50, cfg.Monitor.LogCapacity)
	assert.Equal(t, 5*time.Second, cfg.Controller.Timeout())
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)
}

package config

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v2"
)

type Config struct {
	Controller    ControllerConfig    `yaml:"controller"`
	Monitor       MonitorConfig       `yaml:"monitor"`
	MQTT          MQTTConfig          `yaml:"mqtt"`
	HomeAssistant HomeAssistantConfig `yaml:"homeassistant"`
	HTTP          HTTPConfig          `yaml:"http"`
	Log           string              `yaml:"log"`
}

type ControllerConfig struct {
	Host           string `yaml:"host"`
	Secure         bool   `yaml:"secure"`
	APIPort        int    `yaml:"api_port"`
	StreamPort     int    `yaml:"stream_port"`
	RequestTimeout int    `yaml:"request_timeout"` // seconds, 0 disables
}

type MonitorConfig struct {
	LogCapacity    int `yaml:"log_capacity"`
	ReconnectDelay int `yaml:"reconnect_delay"` // milliseconds
}

type MQTTConfig struct {
	Enabled   bool   `yaml:"enabled"`
	ClientID  string `yaml:"client_id"`
	URL       string `yaml:"url"` // mqtt://host:port, overrides host and port
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	Keepalive int    `yaml:"keepalive"`
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`
	QOS       int    `yaml:"qos"`
	Retain    bool   `yaml:"retain"`
	RetainLog bool   `yaml:"retain_log"`
	Prefix    string `yaml:"prefix"`
	Clean     bool   `yaml:"clean"`
}

type HomeAssistantConfig struct {
	Discovery bool   `yaml:"discovery"`
	Prefix    string `yaml:"prefix"`
}

type HTTPConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

func LoadConfig(configFile string) (*Config, error) {
	data, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML and fills in defaults.
func Parse(data []byte) (*Config, error) {
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if config.Controller.Host == "" {
		return nil, fmt.Errorf("controller.host is required")
	}

	// Set default values
	if config.Controller.StreamPort == 0 {
		config.Controller.StreamPort = 81
	}
	if config.Monitor.LogCapacity <= 0 {
		config.Monitor.LogCapacity = 1000
	}
	if config.Monitor.ReconnectDelay <= 0 {
		config.Monitor.ReconnectDelay = 3000
	}
	if config.MQTT.ClientID == "" {
		config.MQTT.ClientID = "webasto-monitor-" + uuid.NewString()[:8]
	}
	if config.MQTT.Host == "" {
		config.MQTT.Host = "localhost"
	}
	if config.MQTT.Port == 0 {
		config.MQTT.Port = 1883
	}
	if config.MQTT.Keepalive == 0 {
		config.MQTT.Keepalive = 60
	}
	if config.MQTT.Prefix == "" {
		config.MQTT.Prefix = "webasto"
	}
	if config.HomeAssistant.Prefix == "" {
		config.HomeAssistant.Prefix = "homeassistant"
	}
	if config.HTTP.Listen == "" {
		config.HTTP.Listen = ":8080"
	}
	if config.Log == "" {
		config.Log = "info"
	}

	return &config, nil
}

func (m MonitorConfig) RetryInterval() time.Duration {
	return time.Duration(m.ReconnectDelay) * time.Millisecond
}

// Timeout is the gateway request timeout; zero means none.
func (c ControllerConfig) Timeout() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Second
}

// APIBaseURL is the control API root, scheme following Secure.
func (c ControllerConfig) APIBaseURL() string {
	scheme := "http"
	if c.Secure {
		scheme = "https"
	}
	if c.APIPort == 0 {
		return fmt.Sprintf("%s://%s", scheme, c.Host)
	}
	return fmt.Sprintf("%s://%s:%d", scheme, c.Host, c.APIPort)
}

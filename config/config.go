// Package config loads the coin-sensor daemon configuration from a YAML file.
// Flags override file values; the file keeps deployments reconfigurable
// (including compressed time scales for bench testing) without rebuilding.
package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the overall daemon configuration.
type Config struct {
	Sensor SensorConfig `yaml:"sensor"`
	MQTT   MQTTConfig   `yaml:"mqtt"`
	Server ServerConfig `yaml:"server"`
}

// SensorConfig holds sampling and FSM timing configuration.
type SensorConfig struct {
	Pin          int `yaml:"pin"`
	PollMs       int `yaml:"poll_ms"`
	StuckAfterMs int `yaml:"stuck_after_ms"`
	RenotifyMs   int `yaml:"renotify_ms"`

	Poll       time.Duration `yaml:"-"` // Computed from PollMs
	StuckAfter time.Duration `yaml:"-"`
	Renotify   time.Duration `yaml:"-"`
}

// MQTTConfig holds broker configuration.
type MQTTConfig struct {
	Broker      string `yaml:"broker"`
	WSBroker    string `yaml:"ws_broker"`
	HeartbeatMs int    `yaml:"heartbeat_ms"`

	Heartbeat time.Duration `yaml:"-"`
}

// ServerConfig holds the HTTP status server configuration.
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr"`
}

// Defaults for the deployed pool table.
const (
	DefaultPin          = 17
	DefaultPollMs       = 100
	DefaultStuckAfterMs = 30 * 60 * 1000 // 30 minutes
	DefaultRenotifyMs   = 5 * 60 * 1000  // 5 minutes
	DefaultHeartbeatMs  = 15 * 60 * 1000
	DefaultBroker       = "tcp://192.168.1.200:1883"
	DefaultHTTPAddr     = ":80"
)

// Default returns the built-in configuration.
func Default() *Config {
	cfg := &Config{
		Sensor: SensorConfig{
			Pin:          DefaultPin,
			PollMs:       DefaultPollMs,
			StuckAfterMs: DefaultStuckAfterMs,
			RenotifyMs:   DefaultRenotifyMs,
		},
		MQTT: MQTTConfig{
			Broker:      DefaultBroker,
			WSBroker:    "=broker",
			HeartbeatMs: DefaultHeartbeatMs,
		},
		Server: ServerConfig{
			HTTPAddr: DefaultHTTPAddr,
		},
	}
	cfg.computeDurations()
	return cfg
}

// Load reads the configuration from the given path.
// Missing or non-positive timing values fall back to the defaults;
// heartbeat_ms may be 0 to disable heartbeats.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cfg := &Config{MQTT: MQTTConfig{HeartbeatMs: -1}}
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(cfg); err != nil {
		return nil, err
	}

	if cfg.Sensor.Pin <= 0 {
		cfg.Sensor.Pin = DefaultPin
	}
	if cfg.Sensor.PollMs <= 0 {
		cfg.Sensor.PollMs = DefaultPollMs
	}
	if cfg.Sensor.StuckAfterMs <= 0 {
		cfg.Sensor.StuckAfterMs = DefaultStuckAfterMs
	}
	if cfg.Sensor.RenotifyMs <= 0 {
		cfg.Sensor.RenotifyMs = DefaultRenotifyMs
	}
	if cfg.MQTT.Broker == "" {
		cfg.MQTT.Broker = DefaultBroker
	}
	if cfg.MQTT.WSBroker == "" {
		cfg.MQTT.WSBroker = "=broker"
	}
	if cfg.MQTT.HeartbeatMs < 0 {
		cfg.MQTT.HeartbeatMs = DefaultHeartbeatMs
	}
	if cfg.Server.HTTPAddr == "" {
		cfg.Server.HTTPAddr = DefaultHTTPAddr
	}

	cfg.computeDurations()
	return cfg, nil
}

func (c *Config) computeDurations() {
	c.Sensor.Poll = time.Duration(c.Sensor.PollMs) * time.Millisecond
	c.Sensor.StuckAfter = time.Duration(c.Sensor.StuckAfterMs) * time.Millisecond
	c.Sensor.Renotify = time.Duration(c.Sensor.RenotifyMs) * time.Millisecond
	c.MQTT.Heartbeat = time.Duration(c.MQTT.HeartbeatMs) * time.Millisecond
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "coin-sensor.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Sensor.Pin != 17 {
		t.Errorf("pin: got %d, want 17", cfg.Sensor.Pin)
	}
	if cfg.Sensor.Poll != 100*time.Millisecond {
		t.Errorf("poll: got %v, want 100ms", cfg.Sensor.Poll)
	}
	if cfg.Sensor.StuckAfter != 30*time.Minute {
		t.Errorf("stuck after: got %v, want 30m", cfg.Sensor.StuckAfter)
	}
	if cfg.Sensor.Renotify != 5*time.Minute {
		t.Errorf("renotify: got %v, want 5m", cfg.Sensor.Renotify)
	}
	if cfg.MQTT.Heartbeat != 15*time.Minute {
		t.Errorf("heartbeat: got %v, want 15m", cfg.MQTT.Heartbeat)
	}
	if cfg.Server.HTTPAddr != ":80" {
		t.Errorf("http addr: got %q, want :80", cfg.Server.HTTPAddr)
	}
}

func TestLoadFull(t *testing.T) {
	path := writeConfig(t, `
sensor:
  pin: 22
  poll_ms: 50
  stuck_after_ms: 1000
  renotify_ms: 300
mqtt:
  broker: tcp://10.0.0.5:1883
  ws_broker: ws://10.0.0.5:9001
  heartbeat_ms: 60000
server:
  http_addr: ":8080"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Sensor.Pin != 22 {
		t.Errorf("pin: got %d, want 22", cfg.Sensor.Pin)
	}
	if cfg.Sensor.Poll != 50*time.Millisecond {
		t.Errorf("poll: got %v, want 50ms", cfg.Sensor.Poll)
	}
	if cfg.Sensor.StuckAfter != time.Second {
		t.Errorf("stuck after: got %v, want 1s", cfg.Sensor.StuckAfter)
	}
	if cfg.Sensor.Renotify != 300*time.Millisecond {
		t.Errorf("renotify: got %v, want 300ms", cfg.Sensor.Renotify)
	}
	if cfg.MQTT.Broker != "tcp://10.0.0.5:1883" {
		t.Errorf("broker: got %q", cfg.MQTT.Broker)
	}
	if cfg.MQTT.WSBroker != "ws://10.0.0.5:9001" {
		t.Errorf("ws broker: got %q", cfg.MQTT.WSBroker)
	}
	if cfg.MQTT.Heartbeat != time.Minute {
		t.Errorf("heartbeat: got %v, want 1m", cfg.MQTT.Heartbeat)
	}
	if cfg.Server.HTTPAddr != ":8080" {
		t.Errorf("http addr: got %q", cfg.Server.HTTPAddr)
	}
}

func TestLoadDefaultsForMissingValues(t *testing.T) {
	path := writeConfig(t, `
mqtt:
  broker: tcp://10.0.0.5:1883
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Sensor.Pin != DefaultPin {
		t.Errorf("pin: got %d, want default %d", cfg.Sensor.Pin, DefaultPin)
	}
	if cfg.Sensor.StuckAfter != 30*time.Minute {
		t.Errorf("stuck after: got %v, want 30m", cfg.Sensor.StuckAfter)
	}
	if cfg.MQTT.Heartbeat != 15*time.Minute {
		t.Errorf("heartbeat: got %v, want default 15m", cfg.MQTT.Heartbeat)
	}
}

func TestLoadHeartbeatDisabled(t *testing.T) {
	path := writeConfig(t, `
mqtt:
  heartbeat_ms: 0
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MQTT.Heartbeat != 0 {
		t.Errorf("heartbeat: got %v, want 0 (disabled)", cfg.MQTT.Heartbeat)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := writeConfig(t, "sensor: [not a map")
	if _, err := Load(path); err == nil {
		t.Error("expected error for invalid YAML")
	}
}

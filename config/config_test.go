package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, data string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `mqtt:
  broker: "tcp://localhost:1883"
  client_id: "battrelay-test"
  username: "user"
  password: "pass"
  status_topic: "battery/status"
  sample_topic: "battery/raw"
  retain_status: true
battery:
  capacity_ah: 100
  v_min: 20.8
  v_max: 26.5
gate:
  voltage: 0.1
  current: 0.2
  soc: 0.5
alert:
  low_threshold: 20
  recovery_threshold: 25
  max_subscribers: 10
  subscribers:
    - "ops-channel"
metrics:
  prometheus_enabled: true
  prometheus_port: ":9100"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	checks := []struct {
		name string
		got  any
		want any
	}{
		{"broker", cfg.MQTT.Broker, "tcp://localhost:1883"},
		{"client_id", cfg.MQTT.ClientID, "battrelay-test"},
		{"status_topic", cfg.MQTT.StatusTopic, "battery/status"},
		{"sample_topic", cfg.MQTT.SampleTopic, "battery/raw"},
		{"retain_status", cfg.MQTT.RetainStatus, true},
		{"capacity_ah", cfg.Battery.CapacityAh, 100.0},
		{"v_min", cfg.Battery.VMin, 20.8},
		{"v_max", cfg.Battery.VMax, 26.5},
		{"gate.voltage", cfg.Gate.Voltage, 0.1},
		{"gate.current", cfg.Gate.Current, 0.2},
		{"gate.soc", cfg.Gate.SOC, 0.5},
		{"alert.low", cfg.Alert.LowThreshold, 20.0},
		{"alert.recovery", cfg.Alert.RecoveryThreshold, 25.0},
		{"alert.cap", cfg.Alert.MaxSubscribers, 10},
		{"alert.subscribers", len(cfg.Alert.Subscribers), 1},
		{"prometheus", cfg.Metrics.PrometheusEnabled, true},
		{"prometheus_port", cfg.Metrics.PrometheusPort, ":9100"},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s: expected %v got %v", c.name, c.want, c.got)
		}
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `mqtt:
  broker: "tcp://localhost:1883"
battery:
  capacity_ah: 100
  v_min: 20.8
  v_max: 26.5
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if cfg.Gate.Voltage != 0.1 || cfg.Gate.Current != 0.2 || cfg.Gate.SOC != 0.5 {
		t.Errorf("gate defaults not applied: %+v", cfg.Gate)
	}
	if cfg.Alert.LowThreshold != 20 || cfg.Alert.RecoveryThreshold != 25 {
		t.Errorf("alert defaults not applied: %+v", cfg.Alert)
	}
	if cfg.MQTT.StatusTopic != "battery/status" {
		t.Errorf("mqtt topic default not applied: %q", cfg.MQTT.StatusTopic)
	}
	if cfg.MQTT.ClientID == "" {
		t.Errorf("client id should be generated")
	}
}

func TestLoadRejectsBadBatteryRange(t *testing.T) {
	path := writeConfig(t, `mqtt:
  broker: "tcp://localhost:1883"
battery:
  capacity_ah: 100
  v_min: 26.5
  v_max: 20.8
`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for inverted voltage range")
	}
}

func TestLoadRejectsNegativeGateThreshold(t *testing.T) {
	path := writeConfig(t, `mqtt:
  broker: "tcp://localhost:1883"
battery:
  capacity_ah: 100
  v_min: 20.8
  v_max: 26.5
gate:
  voltage: -0.1
`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for negative threshold")
	}
}

func TestLoadRejectsMissingBroker(t *testing.T) {
	path := writeConfig(t, `battery:
  capacity_ah: 100
  v_min: 20.8
  v_max: 26.5
`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for missing broker")
	}
}

func TestLoadUnsupportedFormat(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("x = 1"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for unsupported extension")
	}
}

func TestEnvOverride(t *testing.T) {
	path := writeConfig(t, `mqtt:
  broker: "tcp://localhost:1883"
battery:
  capacity_ah: 100
  v_min: 20.8
  v_max: 26.5
`)
	t.Setenv("B_MQTT__CLIENT_ID", "from-env")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if cfg.MQTT.ClientID != "from-env" {
		t.Errorf("env override not applied: %q", cfg.MQTT.ClientID)
	}
}

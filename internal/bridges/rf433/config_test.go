//nolint:goconst // Test files use repeated literals for clarity
package rf433

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rf433.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
bridge:
  id: "rf433-hall"
  health_interval: 15
  dedup_window_ms: 1500
  transmitter_id: "tx-hall"

receivers: ["hall", "garage"]

protocols:
  - selectplus_doorbell

devices:
  - device_id: "front-door-bell"
    name: "Front door"
    protocol: "selectplus_doorbell"
    id: 4242

capture:
  enabled: true
  path: "/tmp/rf.cbor"
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Bridge.ID != "rf433-hall" || cfg.Bridge.TransmitterID != "tx-hall" {
		t.Errorf("Bridge = %+v", cfg.Bridge)
	}
	if cfg.GetHealthInterval() != 15*time.Second {
		t.Errorf("GetHealthInterval() = %v", cfg.GetHealthInterval())
	}
	if cfg.GetDedupWindow() != 1500*time.Millisecond {
		t.Errorf("GetDedupWindow() = %v", cfg.GetDedupWindow())
	}
	if len(cfg.Devices) != 1 || cfg.Devices[0].ID != 4242 {
		t.Errorf("Devices = %+v", cfg.Devices)
	}
	if !cfg.Capture.Enabled || cfg.Capture.Path != "/tmp/rf.cbor" {
		t.Errorf("Capture = %+v", cfg.Capture)
	}
	if !cfg.ReceiverAllowed("garage") || cfg.ReceiverAllowed("attic") {
		t.Error("ReceiverAllowed() does not follow the allow-list")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "bridge:\n  id: \"minimal\"\n"))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Bridge.HealthInterval != 30 {
		t.Errorf("HealthInterval = %d, want 30", cfg.Bridge.HealthInterval)
	}
	if cfg.Bridge.DedupWindowMS != 1000 {
		t.Errorf("DedupWindowMS = %d, want 1000", cfg.Bridge.DedupWindowMS)
	}
	if !cfg.ProtocolEnabled("selectplus_doorbell") {
		t.Error("selectplus_doorbell not enabled by default")
	}
	if !cfg.ReceiverAllowed("anything") {
		t.Error("empty allow-list should accept every receiver")
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("LoadConfig() expected error for missing file")
	}
}

func TestLoadConfigBadYAML(t *testing.T) {
	if _, err := LoadConfig(writeConfig(t, "bridge: [")); err == nil {
		t.Error("LoadConfig() expected error for bad YAML")
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("RF433_BRIDGE_ID", "from-env")
	t.Setenv("RF433_BRIDGE_TRANSMITTER_ID", "tx-env")
	t.Setenv("RF433_BRIDGE_DEDUP_WINDOW_MS", "250")
	t.Setenv("RF433_BRIDGE_RECEIVERS", "hall, porch")
	t.Setenv("RF433_BRIDGE_CAPTURE_ENABLED", "true")
	t.Setenv("RF433_BRIDGE_CAPTURE_PATH", "/var/lib/rf.cbor")

	cfg, err := LoadConfig(writeConfig(t, "bridge:\n  id: \"from-file\"\n"))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Bridge.ID != "from-env" || cfg.Bridge.TransmitterID != "tx-env" {
		t.Errorf("Bridge = %+v", cfg.Bridge)
	}
	if cfg.Bridge.DedupWindowMS != 250 {
		t.Errorf("DedupWindowMS = %d", cfg.Bridge.DedupWindowMS)
	}
	if len(cfg.Receivers) != 2 || cfg.Receivers[1] != "porch" {
		t.Errorf("Receivers = %v", cfg.Receivers)
	}
	if !cfg.Capture.Enabled || cfg.Capture.Path != "/var/lib/rf.cbor" {
		t.Errorf("Capture = %+v", cfg.Capture)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"missing id", func(c *Config) { c.Bridge.ID = "" }, "bridge.id is required"},
		{"health interval", func(c *Config) { c.Bridge.HealthInterval = 0 }, "bridge.health_interval"},
		{"negative dedup", func(c *Config) { c.Bridge.DedupWindowMS = -1 }, "bridge.dedup_window_ms"},
		{"missing transmitter", func(c *Config) { c.Bridge.TransmitterID = "" }, "bridge.transmitter_id"},
		{"no protocols", func(c *Config) { c.Protocols = nil; c.Devices = nil }, "at least one protocol"},
		{"unknown protocol", func(c *Config) { c.Protocols = append(c.Protocols, "x10") }, `"x10" is not a known protocol`},
		{"device without id", func(c *Config) { c.Devices[0].DeviceID = "" }, "devices[0].device_id is required"},
		{"duplicate device", func(c *Config) { c.Devices = append(c.Devices, c.Devices[0]) }, "is duplicate"},
		{"device protocol disabled", func(c *Config) { c.Devices[0].Protocol = "x10" }, "is not enabled"},
		{"negative code id", func(c *Config) { c.Devices[0].ID = -1 }, "devices[0].id"},
		{"capture without path", func(c *Config) { c.Capture = CaptureConfig{Enabled: true} }, "capture.path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := createTestConfig()
			tt.modify(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestConfigValidateCollectsAllErrors(t *testing.T) {
	cfg := createTestConfig()
	cfg.Bridge.ID = ""
	cfg.Bridge.TransmitterID = ""

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() expected error")
	}
	if !strings.Contains(err.Error(), "bridge.id") || !strings.Contains(err.Error(), "bridge.transmitter_id") {
		t.Errorf("Validate() error = %v, want both problems", err)
	}
}

func TestLoadConfig_Shipped(t *testing.T) {
	cfg, err := LoadConfig("../../../configs/rf433.yaml")
	if err != nil {
		t.Fatalf("LoadConfig(configs/rf433.yaml) error = %v", err)
	}
	if len(cfg.Devices) != 1 || cfg.Devices[0].DeviceID != "front-door-bell" || cfg.Devices[0].ID != 4242 {
		t.Errorf("Devices = %+v", cfg.Devices)
	}
	if cfg.Bridge.DedupWindowMS != 1000 {
		t.Errorf("DedupWindowMS = %d, want 1000", cfg.Bridge.DedupWindowMS)
	}
}

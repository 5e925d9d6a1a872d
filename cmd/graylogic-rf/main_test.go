package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-rf/internal/bridges/rf433"
	"github.com/nerrad567/gray-logic-rf/internal/bridges/rf433/selectplus"
	"github.com/nerrad567/gray-logic-rf/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-rf/internal/infrastructure/logging"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

// TestRun_InvalidConfig verifies run fails with invalid config path.
func TestRun_InvalidConfig(t *testing.T) {
	t.Setenv("GRAYLOGIC_RF_CONFIG", "/nonexistent/path/config.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
}

// TestRun_RF433Disabled verifies run refuses to start with nothing to do.
func TestRun_RF433Disabled(t *testing.T) {
	path := writeFile(t, "config.yaml", `
site:
  id: test-site
protocols:
  rf433:
    enabled: false
`)
	t.Setenv("GRAYLOGIC_RF_CONFIG", path)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail when the RF433 bridge is disabled")
	}
}

// TestRun_BadBridgeConfig verifies a broken bridge file stops startup before
// any connection is attempted.
func TestRun_BadBridgeConfig(t *testing.T) {
	bridgePath := writeFile(t, "rf433.yaml", `
devices:
  - device_id: front-door
    protocol: kaku
    id: 1
`)
	path := writeFile(t, "config.yaml", `
site:
  id: test-site
protocols:
  rf433:
    enabled: true
    config_file: "`+bridgePath+`"
`)
	t.Setenv("GRAYLOGIC_RF_CONFIG", path)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail with an unknown device protocol")
	}
}

// TestRun_SuccessfulStartupAndShutdown tests full startup with running services.
// Requires MQTT broker at 127.0.0.1:1883.
func TestRun_SuccessfulStartupAndShutdown(t *testing.T) {
	path := writeFile(t, "config.yaml", `
site:
  id: test-site
mqtt:
  broker:
    host: "127.0.0.1"
    port: 1883
    client_id: "test-rf-startup"
api:
  enabled: false
logging:
  level: info
  format: text
  output: stdout
`)
	t.Setenv("GRAYLOGIC_RF_CONFIG", path)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := run(ctx); err != nil {
		t.Logf("run() returned error: %v (may be due to missing MQTT broker)", err)
	}
}

// TestGetConfigPath_Default verifies default config path.
func TestGetConfigPath_Default(t *testing.T) {
	t.Setenv("GRAYLOGIC_RF_CONFIG", "")

	if path := getConfigPath(); path != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", path, defaultConfigPath)
	}
}

// TestGetConfigPath_EnvOverride verifies environment variable override.
func TestGetConfigPath_EnvOverride(t *testing.T) {
	expected := "/custom/path/config.yaml"
	t.Setenv("GRAYLOGIC_RF_CONFIG", expected)

	if path := getConfigPath(); path != expected {
		t.Errorf("getConfigPath() = %q, want %q", path, expected)
	}
}

func TestLoadBridgeConfig(t *testing.T) {
	cfg, err := loadBridgeConfig("")
	if err != nil {
		t.Fatalf("loadBridgeConfig(\"\") error = %v", err)
	}
	if !cfg.ProtocolEnabled(selectplus.ProtocolID) {
		t.Error("default bridge config should enable selectplus")
	}

	path := writeFile(t, "rf433.yaml", `
bridge:
  id: rf-hall
devices:
  - device_id: front-door-bell
    protocol: selectplus_doorbell
    id: 4242
`)
	cfg, err = loadBridgeConfig(path)
	if err != nil {
		t.Fatalf("loadBridgeConfig() error = %v", err)
	}
	if cfg.Bridge.ID != "rf-hall" || len(cfg.Devices) != 1 || cfg.Devices[0].ID != 4242 {
		t.Errorf("cfg = %+v", cfg)
	}

	if _, err := loadBridgeConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("loadBridgeConfig() of a missing file should fail")
	}
}

func TestConnectInflux_Disabled(t *testing.T) {
	cfg := &config.Config{}
	log := logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test")

	client, err := connectInflux(context.Background(), cfg, log)
	if err != nil {
		t.Fatalf("connectInflux() error = %v", err)
	}
	if client != nil {
		t.Error("connectInflux() should return nil when disabled")
	}
}

type nopMQTT struct{}

func (nopMQTT) Publish(string, []byte, byte, bool) error                         { return nil }
func (nopMQTT) Subscribe(string, byte, func(topic string, payload []byte)) error { return nil }
func (nopMQTT) IsConnected() bool                                                { return true }
func (nopMQTT) Disconnect(uint)                                                  {}

func TestNewReceiverManager_FeedsBridge(t *testing.T) {
	train, err := selectplus.Codec{}.Encode(4242)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	bridge, err := rf433.NewBridge(rf433.BridgeOptions{
		Config:     rf433.DefaultConfig(),
		MQTTClient: nopMQTT{},
	})
	if err != nil {
		t.Fatalf("NewBridge() error = %v", err)
	}

	cfg := &config.Config{}
	cfg.Protocols.RF433.Receiver = config.ReceiverProcessConfig{
		Managed:    true,
		Binary:     "/bin/sh",
		Args:       []string{"-c", "echo 'not a train'; echo '" + train.String() + "'; sleep 60"},
		ReceiverID: "rx-test",
	}
	log := logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test")

	mgr := newReceiverManager(cfg, bridge, log)
	if err := mgr.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer mgr.Stop() //nolint:errcheck // test cleanup

	deadline := time.Now().Add(5 * time.Second)
	for bridge.Stats().TrainsDecoded != 1 {
		if time.Now().After(deadline) {
			t.Fatalf("stats = %+v, want one decoded train", bridge.Stats())
		}
		time.Sleep(10 * time.Millisecond)
	}
	if got := bridge.Stats().TrainsReceived; got != 1 {
		t.Errorf("TrainsReceived = %d, want 1 (bad line skipped)", got)
	}
}

func TestServiceInfo(t *testing.T) {
	cfg := &config.Config{}
	cfg.Site.ID = "site-001"
	cfg.API.Port = 8433
	cfg.API.MDNS.Instance = "Hall radio"

	bridgeCfg := rf433.DefaultConfig()
	bridgeCfg.Bridge.ID = "rf-hall"

	info := serviceInfo(cfg, bridgeCfg)
	if info.InstanceName() != "Hall radio" || info.BridgeID != "rf-hall" || info.Port != 8433 || info.Path != "/api/v1" {
		t.Errorf("serviceInfo() = %+v", info)
	}
	if len(info.Protocols) == 0 || info.Protocols[0] != selectplus.ProtocolID {
		t.Errorf("Protocols = %v", info.Protocols)
	}
}

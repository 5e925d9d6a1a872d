package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

func TestLoad_ValidConfig(t *testing.T) {
	content := `
site:
  id: "test-site"
mqtt:
  broker:
    host: "broker.local"
    port: 1883
    client_id: "rf-test"
  qos: 1
api:
  port: 9090
protocols:
  rf433:
    enabled: true
    config_file: "/etc/graylogic/rf433.yaml"
`
	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Site.ID != "test-site" {
		t.Errorf("Site.ID = %q, want %q", cfg.Site.ID, "test-site")
	}
	if cfg.MQTT.Broker.Host != "broker.local" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "broker.local")
	}
	if cfg.API.Port != 9090 {
		t.Errorf("API.Port = %d, want 9090", cfg.API.Port)
	}
	if cfg.Protocols.RF433.ConfigFile != "/etc/graylogic/rf433.yaml" {
		t.Errorf("RF433.ConfigFile = %q", cfg.Protocols.RF433.ConfigFile)
	}
	// Unset values keep their defaults.
	if cfg.WebSocket.Path != "/ws" {
		t.Errorf("WebSocket.Path = %q, want /ws", cfg.WebSocket.Path)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "invalid: [yaml: content"))
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	content := `
site:
  id: ""
mqtt:
  qos: 5
`
	_, err := Load(writeConfig(t, content))
	if err == nil {
		t.Fatal("Load() expected validation error, got nil")
	}
	for _, want := range []string{"site.id is required", "mqtt.qos must be 0, 1, or 2"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Load() error = %v, want it to mention %q", err, want)
		}
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			modify: func(*Config) {},
		},
		{
			name:    "missing site id",
			modify:  func(c *Config) { c.Site.ID = "" },
			wantErr: "site.id is required",
		},
		{
			name:    "missing broker host",
			modify:  func(c *Config) { c.MQTT.Broker.Host = "" },
			wantErr: "mqtt.broker.host is required",
		},
		{
			name:    "broker port out of range",
			modify:  func(c *Config) { c.MQTT.Broker.Port = 70000 },
			wantErr: "mqtt.broker.port",
		},
		{
			name:    "bad qos",
			modify:  func(c *Config) { c.MQTT.QoS = 3 },
			wantErr: "mqtt.qos",
		},
		{
			name:    "api port zero",
			modify:  func(c *Config) { c.API.Port = 0 },
			wantErr: "api.port",
		},
		{
			name: "api port ignored when disabled",
			modify: func(c *Config) {
				c.API.Enabled = false
				c.API.Port = 0
			},
		},
		{
			name:    "tls without cert",
			modify:  func(c *Config) { c.API.TLS.Enabled = true },
			wantErr: "api.tls.cert_file",
		},
		{
			name:    "influxdb enabled without url",
			modify:  func(c *Config) { c.InfluxDB.Enabled = true; c.InfluxDB.Org = "o"; c.InfluxDB.Bucket = "b" },
			wantErr: "influxdb.url is required",
		},
		{
			name:    "influxdb enabled without bucket",
			modify:  func(c *Config) { c.InfluxDB.Enabled = true; c.InfluxDB.URL = "http://influx:8086" },
			wantErr: "influxdb.org and influxdb.bucket",
		},
		{
			name:    "bad log level",
			modify:  func(c *Config) { c.Logging.Level = "verbose" },
			wantErr: "logging.level",
		},
		{
			name:    "bad log format",
			modify:  func(c *Config) { c.Logging.Format = "xml" },
			wantErr: "logging.format",
		},
		{
			name:    "managed receiver without binary",
			modify:  func(c *Config) { c.Protocols.RF433.Receiver.Managed = true },
			wantErr: "protocols.rf433.receiver.binary is required",
		},
		{
			name: "managed receiver without id",
			modify: func(c *Config) {
				c.Protocols.RF433.Receiver.Managed = true
				c.Protocols.RF433.Receiver.Binary = "/usr/local/bin/rf-sampler"
				c.Protocols.RF433.Receiver.ReceiverID = ""
			},
			wantErr: "receiver_id is required",
		},
		{
			name: "managed receiver negative idle timeout",
			modify: func(c *Config) {
				c.Protocols.RF433.Receiver.Managed = true
				c.Protocols.RF433.Receiver.Binary = "/usr/local/bin/rf-sampler"
				c.Protocols.RF433.Receiver.IdleTimeout = -1
			},
			wantErr: "timings must not be negative",
		},
		{
			name: "unmanaged receiver not checked",
			modify: func(c *Config) {
				c.Protocols.RF433.Receiver.Binary = ""
				c.Protocols.RF433.Receiver.ReceiverID = ""
			},
		},
		{
			name:   "upper case level accepted",
			modify: func(c *Config) { c.Logging.Level = "DEBUG" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.modify(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() error = nil, want %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_Validate_CollectsAll(t *testing.T) {
	cfg := defaultConfig()
	cfg.Site.ID = ""
	cfg.MQTT.Broker.Host = ""

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() error = nil")
	}
	if !strings.Contains(err.Error(), "; ") {
		t.Errorf("Validate() error = %v, want both problems joined", err)
	}
}

func TestConfig_GetTimeouts(t *testing.T) {
	cfg := &Config{
		API: APIConfig{
			Timeouts: APITimeoutConfig{Read: 15, Write: 20, Idle: 90},
		},
	}

	if got := cfg.GetReadTimeout(); got != 15*time.Second {
		t.Errorf("GetReadTimeout() = %v, want 15s", got)
	}
	if got := cfg.GetWriteTimeout(); got != 20*time.Second {
		t.Errorf("GetWriteTimeout() = %v, want 20s", got)
	}
	if got := cfg.GetIdleTimeout(); got != 90*time.Second {
		t.Errorf("GetIdleTimeout() = %v, want 90s", got)
	}

	cfg.Protocols.RF433.Receiver = ReceiverProcessConfig{RestartDelay: 3, IdleTimeout: 120}
	if got := cfg.GetReceiverRestartDelay(); got != 3*time.Second {
		t.Errorf("GetReceiverRestartDelay() = %v, want 3s", got)
	}
	if got := cfg.GetReceiverIdleTimeout(); got != 2*time.Minute {
		t.Errorf("GetReceiverIdleTimeout() = %v, want 2m", got)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("GRAYLOGIC_RF_MQTT_HOST", "mqtt.example")
	t.Setenv("GRAYLOGIC_RF_MQTT_PORT", "8883")
	t.Setenv("GRAYLOGIC_RF_MQTT_USERNAME", "rf")
	t.Setenv("GRAYLOGIC_RF_MQTT_PASSWORD", "secret")
	t.Setenv("GRAYLOGIC_RF_API_HOST", "127.0.0.1")
	t.Setenv("GRAYLOGIC_RF_API_PORT", "9000")
	t.Setenv("GRAYLOGIC_RF_INFLUXDB_TOKEN", "token")
	t.Setenv("GRAYLOGIC_RF_LOG_LEVEL", "debug")
	t.Setenv("GRAYLOGIC_RF_RF433_CONFIG_FILE", "/tmp/rf433.yaml")
	t.Setenv("GRAYLOGIC_RF_RF433_RECEIVER_BINARY", "/opt/rx/sampler")

	cfg := defaultConfig()
	applyEnvOverrides(cfg)

	if cfg.MQTT.Broker.Host != "mqtt.example" {
		t.Errorf("MQTT.Broker.Host = %q", cfg.MQTT.Broker.Host)
	}
	if cfg.MQTT.Broker.Port != 8883 {
		t.Errorf("MQTT.Broker.Port = %d", cfg.MQTT.Broker.Port)
	}
	if cfg.MQTT.Auth.Username != "rf" || cfg.MQTT.Auth.Password != "secret" {
		t.Errorf("MQTT.Auth = %+v", cfg.MQTT.Auth)
	}
	if cfg.API.Host != "127.0.0.1" || cfg.API.Port != 9000 {
		t.Errorf("API = %s:%d", cfg.API.Host, cfg.API.Port)
	}
	if cfg.InfluxDB.Token != "token" {
		t.Errorf("InfluxDB.Token = %q", cfg.InfluxDB.Token)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q", cfg.Logging.Level)
	}
	if cfg.Protocols.RF433.ConfigFile != "/tmp/rf433.yaml" {
		t.Errorf("RF433.ConfigFile = %q", cfg.Protocols.RF433.ConfigFile)
	}
	if cfg.Protocols.RF433.Receiver.Binary != "/opt/rx/sampler" {
		t.Errorf("RF433.Receiver.Binary = %q", cfg.Protocols.RF433.Receiver.Binary)
	}
}

func TestApplyEnvOverrides_BadPortIgnored(t *testing.T) {
	t.Setenv("GRAYLOGIC_RF_MQTT_PORT", "not-a-port")

	cfg := defaultConfig()
	applyEnvOverrides(cfg)

	if cfg.MQTT.Broker.Port != 1883 {
		t.Errorf("MQTT.Broker.Port = %d, want default 1883", cfg.MQTT.Broker.Port)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.MQTT.Broker.ClientID != "graylogic-rf" {
		t.Errorf("ClientID = %q", cfg.MQTT.Broker.ClientID)
	}
	if cfg.API.Port != 8433 {
		t.Errorf("API.Port = %d", cfg.API.Port)
	}
	if !cfg.Protocols.RF433.Enabled {
		t.Error("RF433 should be enabled by default")
	}
	if rx := cfg.Protocols.RF433.Receiver; rx.Managed || rx.ReceiverID != "rx-local" || !rx.RestartOnFailure {
		t.Errorf("RF433.Receiver = %+v", rx)
	}
	if cfg.InfluxDB.Enabled {
		t.Error("InfluxDB should be disabled by default")
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "json" {
		t.Errorf("Logging = %+v", cfg.Logging)
	}
}

func TestLoad_ShippedConfig(t *testing.T) {
	cfg, err := Load("../../../configs/config.yaml")
	if err != nil {
		t.Fatalf("Load(configs/config.yaml) error = %v", err)
	}
	if cfg.Protocols.RF433.ConfigFile != "configs/rf433.yaml" {
		t.Errorf("RF433.ConfigFile = %q", cfg.Protocols.RF433.ConfigFile)
	}
	if rx := cfg.Protocols.RF433.Receiver; rx.Managed || len(rx.Args) != 2 {
		t.Errorf("RF433.Receiver = %+v", rx)
	}
}

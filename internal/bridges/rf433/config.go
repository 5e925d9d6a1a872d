package rf433

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for the RF433 bridge.
// Loaded from YAML with environment variable overrides.
type Config struct {
	Bridge    BridgeConfig   `yaml:"bridge"`
	Receivers []string       `yaml:"receivers"`
	Protocols []string       `yaml:"protocols"`
	Devices   []DeviceConfig `yaml:"devices"`
	Capture   CaptureConfig  `yaml:"capture"`
}

// BridgeConfig contains bridge identity and operational settings.
type BridgeConfig struct {
	// ID uniquely identifies this bridge instance in health reports.
	ID string `yaml:"id"`

	// HealthInterval is how often to publish health status (seconds).
	// Default: 30 seconds.
	HealthInterval int `yaml:"health_interval"`

	// DedupWindowMS suppresses repeated decodes of the same code within
	// this many milliseconds. A single press of a doorbell button yields
	// dozens of identical frames. 0 disables suppression.
	// Default: 1000.
	DedupWindowMS int `yaml:"dedup_window_ms"`

	// TransmitterID names the transmitter that sends outgoing frames.
	TransmitterID string `yaml:"transmitter_id"`
}

// DeviceConfig binds a Gray Logic device to an RF code.
type DeviceConfig struct {
	// DeviceID is the Gray Logic device identifier.
	DeviceID string `yaml:"device_id"`

	// Name is a human-readable label (optional).
	Name string `yaml:"name"`

	// Protocol is the RF protocol id, e.g. "selectplus_doorbell".
	Protocol string `yaml:"protocol"`

	// ID is the code id the device transmits or responds to.
	ID int `yaml:"id"`
}

// CaptureConfig controls diagnostic recording of received frames.
type CaptureConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// LoadConfig reads configuration from a YAML file.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: RF433_BRIDGE_KEY
// For example: RF433_BRIDGE_ID, RF433_BRIDGE_TRANSMITTER_ID
func LoadConfig(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path) //nolint:gosec // path comes from the root config
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// DefaultConfig returns a Config with sensible defaults and every built-in
// protocol enabled. Used when no bridge config file is given.
func DefaultConfig() *Config {
	cfg := defaultConfig()
	applyEnvOverrides(cfg)
	return cfg
}

func defaultConfig() *Config {
	return &Config{
		Bridge: BridgeConfig{
			ID:             "rf433-bridge-01",
			HealthInterval: 30,
			DedupWindowMS:  1000,
			TransmitterID:  "rf433-tx-01",
		},
		Receivers: []string{},
		Protocols: BuiltinProtocolIDs(),
		Devices:   []DeviceConfig{},
		Capture: CaptureConfig{
			Path: "./data/rf433-capture.cbor",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("RF433_BRIDGE_ID"); v != "" {
		cfg.Bridge.ID = v
	}
	if v := os.Getenv("RF433_BRIDGE_TRANSMITTER_ID"); v != "" {
		cfg.Bridge.TransmitterID = v
	}
	if v := os.Getenv("RF433_BRIDGE_DEDUP_WINDOW_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Bridge.DedupWindowMS = n
		}
	}
	if v := os.Getenv("RF433_BRIDGE_RECEIVERS"); v != "" {
		cfg.Receivers = splitList(v)
	}
	if v := os.Getenv("RF433_BRIDGE_CAPTURE_ENABLED"); v != "" {
		cfg.Capture.Enabled = v == "true" || v == "1"
	}
	if v := os.Getenv("RF433_BRIDGE_CAPTURE_PATH"); v != "" {
		cfg.Capture.Path = v
	}
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []string

	errs = append(errs, c.validateBridge()...)
	errs = append(errs, c.validateProtocols()...)
	errs = append(errs, c.validateDevices()...)
	errs = append(errs, c.validateCapture()...)

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

func (c *Config) validateBridge() []string {
	var errs []string
	if c.Bridge.ID == "" {
		errs = append(errs, "bridge.id is required")
	}
	if c.Bridge.HealthInterval < 1 {
		errs = append(errs, "bridge.health_interval must be at least 1 second")
	}
	if c.Bridge.DedupWindowMS < 0 {
		errs = append(errs, "bridge.dedup_window_ms must not be negative")
	}
	if c.Bridge.TransmitterID == "" {
		errs = append(errs, "bridge.transmitter_id is required")
	}
	return errs
}

func (c *Config) validateProtocols() []string {
	var errs []string
	known := make(map[string]bool)
	for _, id := range BuiltinProtocolIDs() {
		known[id] = true
	}

	if len(c.Protocols) == 0 {
		errs = append(errs, "protocols must list at least one protocol")
	}
	for i, id := range c.Protocols {
		if !known[id] {
			errs = append(errs, fmt.Sprintf("protocols[%d] %q is not a known protocol", i, id))
		}
	}
	return errs
}

func (c *Config) validateDevices() []string {
	var errs []string
	deviceIDs := make(map[string]bool)

	for i, dev := range c.Devices {
		if dev.DeviceID == "" {
			errs = append(errs, fmt.Sprintf("devices[%d].device_id is required", i))
			continue
		}
		if deviceIDs[dev.DeviceID] {
			errs = append(errs, fmt.Sprintf("devices[%d].device_id %q is duplicate", i, dev.DeviceID))
		}
		deviceIDs[dev.DeviceID] = true

		if !c.ProtocolEnabled(dev.Protocol) {
			errs = append(errs, fmt.Sprintf("devices[%d].protocol %q is not enabled", i, dev.Protocol))
		}
		if dev.ID < 0 {
			errs = append(errs, fmt.Sprintf("devices[%d].id must not be negative", i))
		}
	}

	return errs
}

func (c *Config) validateCapture() []string {
	if c.Capture.Enabled && c.Capture.Path == "" {
		return []string{"capture.path is required when capture is enabled"}
	}
	return nil
}

// ProtocolEnabled reports whether id is listed in protocols.
func (c *Config) ProtocolEnabled(id string) bool {
	for _, p := range c.Protocols {
		if p == id {
			return true
		}
	}
	return false
}

// ReceiverAllowed reports whether frames from the receiver are accepted.
// An empty allow-list accepts every receiver.
func (c *Config) ReceiverAllowed(id string) bool {
	if len(c.Receivers) == 0 {
		return true
	}
	for _, r := range c.Receivers {
		if r == id {
			return true
		}
	}
	return false
}

// GetHealthInterval returns the health reporting interval as a Duration.
func (c *Config) GetHealthInterval() time.Duration {
	return time.Duration(c.Bridge.HealthInterval) * time.Second
}

// GetDedupWindow returns the duplicate suppression window as a Duration.
func (c *Config) GetDedupWindow() time.Duration {
	return time.Duration(c.Bridge.DedupWindowMS) * time.Millisecond
}

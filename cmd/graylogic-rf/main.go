// Gray Logic RF - 433 MHz radio bridge
//
// This is the main entry point for the Gray Logic RF service. It connects
// RF433 receivers and transmitters to the Gray Logic MQTT bus:
//   - Raw pulse trains from receivers are decoded into device messages
//   - Commands from Core are encoded into pulse trains for a transmitter
//   - Detections are optionally recorded to InfluxDB and a capture file
//   - A REST/WebSocket API exposes the protocols and a live event feed
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nerrad567/gray-logic-rf/internal/api"
	"github.com/nerrad567/gray-logic-rf/internal/bridges/rf433"
	"github.com/nerrad567/gray-logic-rf/internal/bridges/rf433/capture"
	"github.com/nerrad567/gray-logic-rf/internal/bridges/rf433/pulse"
	"github.com/nerrad567/gray-logic-rf/internal/discovery"
	"github.com/nerrad567/gray-logic-rf/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-rf/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-rf/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-rf/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-rf/internal/process"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// It returns nil on clean shutdown.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Gray Logic RF",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	if !cfg.Protocols.RF433.Enabled {
		return errors.New("rf433 bridge is disabled; nothing to run")
	}

	bridgeCfg, err := loadBridgeConfig(cfg.Protocols.RF433.ConfigFile)
	if err != nil {
		return err
	}
	log.Info("RF433 bridge config loaded",
		"path", cfg.Protocols.RF433.ConfigFile,
		"devices", len(bridgeCfg.Devices),
		"protocols", bridgeCfg.Protocols,
	)

	// The broker publishes the bridge's offline status if we vanish.
	lwt, err := json.Marshal(rf433.NewLWTMessage(bridgeCfg.Bridge.ID))
	if err != nil {
		return fmt.Errorf("building last will: %w", err)
	}

	mqttClient, err := mqtt.Connect(cfg.MQTT, mqtt.WithWill(rf433.HealthTopic(), lwt))
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	mqttClient.SetLogger(log)
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})

	opts := rf433.BridgeOptions{
		Config:     bridgeCfg,
		MQTTClient: &mqttBridgeAdapter{client: mqttClient},
		Logger:     log,
		Version:    version,
	}

	influxClient, err := connectInflux(ctx, cfg, log)
	if err != nil {
		return err
	}
	if influxClient != nil {
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		opts.Recorder = influxClient
	}

	if bridgeCfg.Capture.Enabled {
		captureWriter, captureErr := capture.Create(bridgeCfg.Capture.Path)
		if captureErr != nil {
			return fmt.Errorf("opening capture file: %w", captureErr)
		}
		defer func() {
			if closeErr := captureWriter.Close(); closeErr != nil {
				log.Error("error closing capture file", "error", closeErr)
			}
		}()
		opts.Capture = captureWriter
		log.Info("capture enabled", "path", bridgeCfg.Capture.Path)
	}

	bridge, err := rf433.NewBridge(opts)
	if err != nil {
		return fmt.Errorf("creating RF433 bridge: %w", err)
	}
	if err := bridge.Start(ctx); err != nil {
		return fmt.Errorf("starting RF433 bridge: %w", err)
	}
	defer func() {
		log.Info("stopping RF433 bridge")
		bridge.Stop()
	}()
	log.Info("RF433 bridge started")

	if cfg.Protocols.RF433.Receiver.Managed {
		receiver := newReceiverManager(cfg, bridge, log)
		if err := receiver.Start(ctx); err != nil {
			return fmt.Errorf("starting local receiver: %w", err)
		}
		defer func() {
			log.Info("stopping local receiver")
			if stopErr := receiver.Stop(); stopErr != nil {
				log.Error("error stopping local receiver", "error", stopErr)
			}
		}()
		log.Info("local receiver started",
			"binary", cfg.Protocols.RF433.Receiver.Binary,
			"receiver_id", cfg.Protocols.RF433.Receiver.ReceiverID,
		)
	}

	var apiServer *api.Server
	if cfg.API.Enabled {
		apiServer, err = api.New(api.Deps{
			Config:  cfg.API,
			WS:      cfg.WebSocket,
			Logger:  log,
			Bridge:  bridge,
			Version: version,
		})
		if err != nil {
			return fmt.Errorf("creating API server: %w", err)
		}
		if err := apiServer.Start(ctx); err != nil {
			return fmt.Errorf("starting API server: %w", err)
		}
		defer func() {
			if closeErr := apiServer.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()

		if cfg.API.MDNS.Enabled {
			advertiser := discovery.NewAdvertiser(discovery.Config{Interface: cfg.API.MDNS.Interface})
			advertiser.SetLogger(log)
			// Discovery is a convenience; the API stays up without it.
			if advErr := advertiser.Advertise(serviceInfo(cfg, bridgeCfg)); advErr != nil {
				log.Warn("mdns advertisement failed", "error", advErr)
			} else {
				defer advertiser.Stop()
			}
		}
	} else {
		log.Info("API disabled")
	}

	if err := healthCheck(ctx, mqttClient, influxClient, apiServer); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")

	// Deferred calls run in reverse: mDNS, API, receiver, bridge, capture, InfluxDB, MQTT.

	log.Info("Gray Logic RF stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses GRAYLOGIC_RF_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("GRAYLOGIC_RF_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// loadBridgeConfig reads the RF433 bridge file, or falls back to defaults
// (every built-in protocol, no devices) when no file is configured.
func loadBridgeConfig(path string) (*rf433.Config, error) {
	if path == "" {
		return rf433.DefaultConfig(), nil
	}
	cfg, err := rf433.LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("loading RF433 bridge config: %w", err)
	}
	return cfg, nil
}

// serviceInfo describes the API for mDNS advertisement.
func serviceInfo(cfg *config.Config, bridgeCfg *rf433.Config) discovery.ServiceInfo {
	return discovery.ServiceInfo{
		Instance:  cfg.API.MDNS.Instance,
		BridgeID:  bridgeCfg.Bridge.ID,
		SiteID:    cfg.Site.ID,
		Version:   version,
		Port:      cfg.API.Port,
		Path:      "/api/v1",
		Protocols: bridgeCfg.Protocols,
	}
}

// newReceiverManager supervises the local receiver program. Each stdout line
// is one raw train; lines that do not parse are logged and skipped.
func newReceiverManager(cfg *config.Config, bridge *rf433.Bridge, log *logging.Logger) *process.Manager {
	rx := cfg.Protocols.RF433.Receiver

	mgr := process.NewManager(process.Config{
		Name:               rx.ReceiverID,
		Binary:             rx.Binary,
		Args:               rx.Args,
		RestartOnFailure:   rx.RestartOnFailure,
		RestartDelay:       cfg.GetReceiverRestartDelay(),
		MaxRestartAttempts: rx.MaxRestartAttempts,
		IdleTimeout:        cfg.GetReceiverIdleTimeout(),
		OnLine: func(line string) {
			train, err := pulse.Parse(line)
			if err != nil {
				log.Debug("skipping receiver line", "receiver", rx.ReceiverID, "error", err)
				return
			}
			bridge.Receive(rx.ReceiverID, train, time.Now())
		},
		OnRestart: func(attempt int) {
			log.Warn("restarting local receiver", "receiver", rx.ReceiverID, "attempt", attempt)
		},
	})
	mgr.SetLogger(log)
	return mgr
}

// connectInflux connects to InfluxDB when enabled. A nil client means
// recording is off.
func connectInflux(ctx context.Context, cfg *config.Config, log *logging.Logger) (*influxdb.Client, error) {
	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
	if errors.Is(err, influxdb.ErrDisabled) {
		log.Info("InfluxDB disabled")
		return nil, nil //nolint:nilnil // disabled is not an error
	}
	if err != nil {
		return nil, fmt.Errorf("connecting to InfluxDB: %w", err)
	}

	client.SetOnError(func(err error) {
		log.Error("InfluxDB write error", "error", err)
	})
	log.Info("InfluxDB connected",
		"url", cfg.InfluxDB.URL,
		"org", cfg.InfluxDB.Org,
		"bucket", cfg.InfluxDB.Bucket,
	)
	return client, nil
}

// healthCheck verifies all infrastructure connections are healthy.
// influxClient and apiServer may be nil when disabled.
func healthCheck(ctx context.Context, mqttClient *mqtt.Client, influxClient *influxdb.Client, apiServer *api.Server) error {
	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	if apiServer != nil {
		if err := apiServer.HealthCheck(ctx); err != nil {
			return fmt.Errorf("api: %w", err)
		}
	}

	return nil
}

// mqttBridgeAdapter adapts the infrastructure MQTT client to the RF433 bridge's
// MQTTClient interface. The difference is the Subscribe handler signature:
// - Infrastructure mqtt: func(topic, payload []byte) error
// - RF433 bridge expects: func(topic, payload []byte)
type mqttBridgeAdapter struct {
	client *mqtt.Client
}

// Publish implements rf433.MQTTClient.
func (a *mqttBridgeAdapter) Publish(topic string, payload []byte, qos byte, retained bool) error {
	return a.client.Publish(topic, payload, qos, retained)
}

// Subscribe implements rf433.MQTTClient.
func (a *mqttBridgeAdapter) Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error {
	return a.client.Subscribe(topic, qos, func(t string, p []byte) error {
		handler(t, p)
		return nil
	})
}

// IsConnected implements rf433.MQTTClient.
func (a *mqttBridgeAdapter) IsConnected() bool {
	return a.client.IsConnected()
}

// Disconnect implements rf433.MQTTClient.
// The MQTT client lifecycle belongs to run's defer chain, so this is a no-op.
func (a *mqttBridgeAdapter) Disconnect(_ uint) {}

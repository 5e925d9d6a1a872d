package commands

import (
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-rf/internal/bridges/rf433"
	"github.com/nerrad567/gray-logic-rf/internal/bridges/rf433/selectplus"
	"github.com/nerrad567/gray-logic-rf/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-rf/internal/infrastructure/mqtt"
)

const sendConnectTimeout = 5 * time.Second

// SendOptions configures the send command.
type SendOptions struct {
	ConfigPath string
	ID         string
	DeviceID   string
	State      string
	JSON       bool
}

// brokerClient is what send needs from an MQTT connection.
type brokerClient interface {
	rf433.MQTTClient
	Close() error
}

// connectBroker is replaced in tests.
var connectBroker = func(cfg config.MQTTConfig) (brokerClient, error) {
	client, err := mqtt.Connect(cfg, mqtt.WithConnectTimeout(sendConnectTimeout))
	if err != nil {
		return nil, err
	}
	return &mqttAdapter{client: client}, nil
}

// RunSend runs the send command: it encodes the frame and publishes a
// transmit request for the bridge's transmitter.
func RunSend(args []string, stdout, stderr io.Writer) int {
	opts, err := parseSendArgs(args, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitCommandError
	}

	id, err := parseID(opts.ID)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitCommandError
	}

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: loading config: %v\n", err)
		return ExitCommandError
	}
	bridgeCfg := rf433.DefaultConfig()
	if path := cfg.Protocols.RF433.ConfigFile; path != "" {
		if bridgeCfg, err = rf433.LoadConfig(path); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return ExitCommandError
		}
	}

	client, err := connectBroker(cfg.MQTT)
	if err != nil {
		fmt.Fprintf(stderr, "Error: connecting to MQTT: %v\n", err)
		return ExitCommandError
	}
	defer client.Close() //nolint:errcheck // best-effort on exit

	bridge, err := rf433.NewBridge(rf433.BridgeOptions{Config: bridgeCfg, MQTTClient: client})
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitCommandError
	}

	req := rf433.SendRequest{
		CommandID: uuid.NewString(),
		DeviceID:  opts.DeviceID,
		ID:        id,
		State:     opts.State,
	}
	if opts.DeviceID == "" {
		req.Protocol = selectplus.ProtocolID
	}

	msg, err := bridge.Send(req)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitCommandError
	}

	if opts.JSON {
		return writeJSON(stdout, stderr, msg)
	}
	fmt.Fprintf(stdout, "queued %s on %s (%d pulses, %d repeats)\n",
		msg.CommandID, rf433.TransmitTopic(bridgeCfg.Bridge.TransmitterID), len(msg.Pulses), msg.Repeats)
	return ExitSuccess
}

func parseSendArgs(args []string, stderr io.Writer) (SendOptions, error) {
	fs := flag.NewFlagSet("send", flag.ContinueOnError)
	fs.SetOutput(stderr)
	opts := SendOptions{}

	defaultConfig := os.Getenv("GRAYLOGIC_RF_CONFIG")
	if defaultConfig == "" {
		defaultConfig = "configs/config.yaml"
	}

	fs.StringVar(&opts.ConfigPath, "config", defaultConfig, "Service config file")
	fs.StringVar(&opts.ID, "id", "", "Device id (0-131071)")
	fs.StringVar(&opts.ID, "i", "", "Device id (shorthand)")
	fs.StringVar(&opts.DeviceID, "device", "", "Configured device to ring")
	fs.StringVar(&opts.State, "state", "on", "Requested state (on, off)")
	fs.BoolVar(&opts.JSON, "json", false, "Print the transmit request as JSON")

	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if fs.NArg() > 0 {
		return opts, fmt.Errorf("unexpected argument %q", fs.Arg(0))
	}
	return opts, nil
}

// mqttAdapter adapts the infrastructure MQTT client to rf433.MQTTClient.
type mqttAdapter struct {
	client *mqtt.Client
}

func (a *mqttAdapter) Publish(topic string, payload []byte, qos byte, retained bool) error {
	return a.client.Publish(topic, payload, qos, retained)
}

func (a *mqttAdapter) Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error {
	return a.client.Subscribe(topic, qos, func(t string, p []byte) error {
		handler(t, p)
		return nil
	})
}

func (a *mqttAdapter) IsConnected() bool { return a.client.IsConnected() }

func (a *mqttAdapter) Disconnect(_ uint) {}

func (a *mqttAdapter) Close() error { return a.client.Close() }

package rf433

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/nerrad567/gray-logic-rf/internal/bridges/rf433/protocol"
	"github.com/nerrad567/gray-logic-rf/internal/bridges/rf433/pulse"
)

// MQTT message types exchanged between Gray Logic Core, RF433 receivers and
// transmitters, and this bridge.

// ProtocolName is the protocol identifier carried in acks and state messages.
const ProtocolName = "rf433"

// RawMessage is published by a receiver for every frame it captures.
// Topic: graylogic/raw/rf433/{receiver_id}
type RawMessage struct {
	// Receiver identifies the radio that heard the frame. When empty the
	// bridge takes it from the topic.
	Receiver string `json:"receiver"`

	// Timestamp is when the frame was captured (UTC, RFC3339).
	Timestamp time.Time `json:"timestamp"`

	// Pulses are the measured durations in microseconds.
	Pulses pulse.Train `json:"pulses"`
}

// CommandMessage is sent from Core to the bridge to transmit a code.
// Topic: graylogic/command/rf433/{device_id}
type CommandMessage struct {
	// ID uniquely identifies this command for correlation with acknowledgments.
	ID string `json:"id"`

	// Timestamp is when the command was issued (UTC, ISO8601).
	Timestamp time.Time `json:"timestamp"`

	// DeviceID is the Gray Logic device identifier.
	DeviceID string `json:"device_id"`

	// Command is "on" or "off".
	Command string `json:"command"`

	// Parameters contains command-specific values.
	// Example: {"id": 4242} overrides the configured code id.
	Parameters map[string]any `json:"parameters,omitempty"`

	// Source indicates where the command originated ("api", "automation", "cli").
	Source string `json:"source"`
}

// AckStatus represents the acknowledgment status of a command.
type AckStatus string

const (
	// AckAccepted indicates the frame was handed to the transmitter topic.
	AckAccepted AckStatus = "accepted"

	// AckFailed indicates the command could not be executed.
	AckFailed AckStatus = "failed"
)

// AckMessage is sent from the bridge to Core to acknowledge a command.
// Topic: graylogic/ack/rf433/{device_id}
type AckMessage struct {
	CommandID string    `json:"command_id"`
	Timestamp time.Time `json:"timestamp"`
	DeviceID  string    `json:"device_id"`
	Status    AckStatus `json:"status"`
	Protocol  string    `json:"protocol"`

	// Address is the RF protocol and code id, e.g. "selectplus_doorbell/4242".
	Address string `json:"address,omitempty"`

	Error *AckError `json:"error,omitempty"`
}

// AckError contains error details for failed commands.
type AckError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes for command failures.
const (
	ErrCodeInvalidCommand    = "INVALID_COMMAND"
	ErrCodeInvalidParameters = "INVALID_PARAMETERS"
	ErrCodeNotConfigured     = "NOT_CONFIGURED"
	ErrCodeBridgeError       = "BRIDGE_ERROR"
)

// StateMessage is published when a frame decodes.
// Topic: graylogic/state/rf433/{protocol}/{id}
// QoS: 1, Retained: No (a doorbell press is an event, not a state)
type StateMessage struct {
	// EventID uniquely identifies this detection.
	EventID string `json:"event_id"`

	// DeviceID is the configured Gray Logic device for this code, if any.
	DeviceID string `json:"device_id,omitempty"`

	Timestamp time.Time `json:"timestamp"`

	// State is the decoded message, {"id":4242,"state":"on"}.
	State protocol.Message `json:"state"`

	// Protocol is the RF protocol identifier, e.g. "selectplus_doorbell".
	Protocol string `json:"protocol"`

	// Receiver is the radio that heard the frame.
	Receiver string `json:"receiver"`
}

// TransmitMessage asks a transmitter to send a frame.
// Topic: graylogic/transmit/rf433/{transmitter_id}
type TransmitMessage struct {
	CommandID string      `json:"command_id"`
	Timestamp time.Time   `json:"timestamp"`
	Protocol  string      `json:"protocol"`
	Pulses    pulse.Train `json:"pulses"`

	// Repeats is how many times the transmitter must send the frame.
	Repeats int `json:"repeats"`
}

// HealthStatus represents the operational status of the bridge.
type HealthStatus string

const (
	HealthHealthy  HealthStatus = "healthy"
	HealthDegraded HealthStatus = "degraded"
	HealthOffline  HealthStatus = "offline"
	HealthStarting HealthStatus = "starting"
	HealthStopping HealthStatus = "stopping"
)

// HealthMessage reports the bridge's operational status.
// Topic: graylogic/health/rf433
// QoS: 1, Retained: Yes
type HealthMessage struct {
	Bridge         string            `json:"bridge"`
	Timestamp      time.Time         `json:"timestamp"`
	Status         HealthStatus      `json:"status"`
	Version        string            `json:"version"`
	UptimeSeconds  int64             `json:"uptime_seconds"`
	Protocols      []string          `json:"protocols,omitempty"`
	Statistics     *BridgeStatistics `json:"statistics,omitempty"`
	DevicesManaged int               `json:"devices_managed"`
	Reason         string            `json:"reason,omitempty"`
}

// BridgeStatistics contains operational counters.
type BridgeStatistics struct {
	// TrainsReceived counts raw frames accepted from receivers.
	TrainsReceived uint64 `json:"trains_received"`

	// TrainsMatched counts frames whose shape matched a protocol.
	TrainsMatched uint64 `json:"trains_matched"`

	// TrainsDecoded counts frames that decoded into a message.
	TrainsDecoded uint64 `json:"trains_decoded"`

	// TrainsRejected counts frames that matched but failed to decode.
	TrainsRejected uint64 `json:"trains_rejected"`

	// Duplicates counts decodes suppressed as repeats of the same press.
	Duplicates uint64 `json:"duplicates"`

	// FramesTransmitted counts transmit requests published.
	FramesTransmitted uint64 `json:"frames_transmitted"`

	Errors uint64 `json:"errors"`
}

// UnmarshalJSON accepts timestamps in RFC3339 with or without fractions.
func (m *CommandMessage) UnmarshalJSON(data []byte) error {
	type Alias CommandMessage
	aux := &struct {
		*Alias
		Timestamp string `json:"timestamp"`
	}{
		Alias: (*Alias)(m),
	}
	if err := json.Unmarshal(data, aux); err != nil {
		return fmt.Errorf("unmarshal command message: %w", err)
	}
	if aux.Timestamp != "" {
		t, err := time.Parse(time.RFC3339, aux.Timestamp)
		if err != nil {
			return fmt.Errorf("parse timestamp: %w", err)
		}
		m.Timestamp = t
	}
	return nil
}

// NewAckMessage creates an acknowledgment message for a command.
func NewAckMessage(cmd CommandMessage, status AckStatus, address string) AckMessage {
	return AckMessage{
		CommandID: cmd.ID,
		Timestamp: time.Now().UTC(),
		DeviceID:  cmd.DeviceID,
		Status:    status,
		Protocol:  ProtocolName,
		Address:   address,
	}
}

// NewAckError creates an acknowledgment with error details.
func NewAckError(cmd CommandMessage, address, code, message string) AckMessage {
	ack := NewAckMessage(cmd, AckFailed, address)
	ack.Error = &AckError{Code: code, Message: message}
	return ack
}

// NewLWTMessage creates the Last Will and Testament message for MQTT.
func NewLWTMessage(bridgeID string) HealthMessage {
	return HealthMessage{
		Bridge:    bridgeID,
		Timestamp: time.Now().UTC(),
		Status:    HealthOffline,
		Reason:    "unexpected_disconnect",
	}
}

// Address formats the protocol-specific address of a code.
func Address(protocolID string, id int) string {
	return protocolID + "/" + strconv.Itoa(id)
}

// Topic helpers

const (
	// TopicPrefix is the base topic for all Gray Logic messages.
	TopicPrefix = "graylogic"
)

// RawTopic returns the topic a receiver publishes frames on.
// Example: graylogic/raw/rf433/hall
func RawTopic(receiverID string) string {
	return fmt.Sprintf("%s/raw/%s/%s", TopicPrefix, ProtocolName, receiverID)
}

// RawSubscribeTopic returns the subscription pattern for all receivers.
func RawSubscribeTopic() string {
	return fmt.Sprintf("%s/raw/%s/+", TopicPrefix, ProtocolName)
}

// StateTopic returns the topic decoded messages are published on.
// Example: graylogic/state/rf433/selectplus_doorbell/4242
func StateTopic(protocolID string, id int) string {
	return fmt.Sprintf("%s/state/%s/%s/%d", TopicPrefix, ProtocolName, protocolID, id)
}

// CommandTopic returns the topic commands for a device arrive on.
// Example: graylogic/command/rf433/front-door-bell
func CommandTopic(deviceID string) string {
	return fmt.Sprintf("%s/command/%s/%s", TopicPrefix, ProtocolName, deviceID)
}

// CommandSubscribeTopic returns the subscription pattern for all commands.
func CommandSubscribeTopic() string {
	return fmt.Sprintf("%s/command/%s/+", TopicPrefix, ProtocolName)
}

// AckTopic returns the topic command acknowledgments are published on.
func AckTopic(deviceID string) string {
	return fmt.Sprintf("%s/ack/%s/%s", TopicPrefix, ProtocolName, deviceID)
}

// TransmitTopic returns the topic a transmitter takes frames from.
// Example: graylogic/transmit/rf433/tx-01
func TransmitTopic(transmitterID string) string {
	return fmt.Sprintf("%s/transmit/%s/%s", TopicPrefix, ProtocolName, transmitterID)
}

// HealthTopic returns the topic for bridge health status.
func HealthTopic() string {
	return fmt.Sprintf("%s/health/%s", TopicPrefix, ProtocolName)
}

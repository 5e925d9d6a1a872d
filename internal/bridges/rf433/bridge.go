package rf433

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-rf/internal/bridges/rf433/capture"
	"github.com/nerrad567/gray-logic-rf/internal/bridges/rf433/protocol"
	"github.com/nerrad567/gray-logic-rf/internal/bridges/rf433/pulse"
)

// minTopicParts is the minimum number of parts in a valid MQTT topic.
const minTopicParts = 4

// Bridge hosts RF433 protocol codecs on the Gray Logic MQTT bus.
// It handles:
//   - Receiving raw pulse trains from receivers and publishing decoded messages
//   - Receiving commands from Core and publishing frames for a transmitter
//   - Health reporting and graceful shutdown
//
// Thread Safety: All methods are safe for concurrent use.
type Bridge struct {
	cfg     *Config
	mqtt    MQTTClient
	health  *HealthReporter
	version string

	// Protocol table, fixed after NewBridge.
	protocols   []protocol.Protocol
	descriptors []protocol.Descriptor
	byID        map[string]protocol.Protocol

	// Device bindings, fixed after NewBridge.
	devices     map[string]DeviceConfig
	codeDevices map[string]string // Address(protocol, id) → device_id

	dedup *dedupCache
	now   func() time.Time

	capture  CaptureWriter
	recorder Recorder

	listeners   []func(Event)
	listenersMu sync.RWMutex

	stats counters

	// Shutdown coordination
	done     chan struct{}
	stopOnce sync.Once

	logger   Logger
	loggerMu sync.RWMutex
}

// counters holds the bridge statistics.
type counters struct {
	received    atomic.Uint64
	matched     atomic.Uint64
	decoded     atomic.Uint64
	rejected    atomic.Uint64
	duplicates  atomic.Uint64
	transmitted atomic.Uint64
	errors      atomic.Uint64
}

// Logger is the structured logger the bridge writes to.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// MQTTClient is the interface for MQTT operations.
// This allows mocking in tests and flexibility in implementation.
type MQTTClient interface {
	// Publish sends a message to a topic.
	Publish(topic string, payload []byte, qos byte, retained bool) error

	// Subscribe registers a handler for a topic pattern.
	Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error

	// IsConnected returns true if connected to the broker.
	IsConnected() bool

	// Disconnect closes the connection gracefully.
	Disconnect(quiesce uint)
}

// Recorder stores detections as time-series points.
// This interface is satisfied by *influxdb.Client. It is optional.
type Recorder interface {
	// WriteRingEvent records a decoded, non-duplicate detection.
	WriteRingEvent(protocolID string, id int, receiver string, at time.Time)

	// WriteDecodeOutcome records what became of one received train.
	WriteDecodeOutcome(receiver, outcome string, at time.Time)
}

// CaptureWriter records received trains for offline replay.
// This interface is satisfied by *capture.Writer. It is optional.
type CaptureWriter interface {
	Write(rec capture.Record) error
}

// Event is a published detection, handed to listeners registered with OnEvent.
type Event struct {
	ID        string           `json:"id"`
	Timestamp time.Time        `json:"timestamp"`
	Protocol  string           `json:"protocol"`
	Receiver  string           `json:"receiver"`
	DeviceID  string           `json:"device_id,omitempty"`
	Message   protocol.Message `json:"message"`
}

// Result describes what the bridge made of one received train.
type Result struct {
	Outcome capture.Outcome

	// Protocol is the last protocol whose shape matched, if any.
	Protocol string

	// Duplicate is set when a decode was suppressed by the dedup window.
	Duplicate bool

	// Event is set for published detections.
	Event *Event
}

// SendRequest asks the bridge to transmit a code.
type SendRequest struct {
	// CommandID correlates the transmit request. Generated when empty.
	CommandID string

	// DeviceID selects a configured device. Its protocol and code id are
	// used unless Protocol or ID override them.
	DeviceID string

	// Protocol selects the protocol directly when DeviceID is empty.
	Protocol string

	// ID is the code id, or protocol.MissingID to use the device's.
	ID int

	// State is "on" or "off". Default: "on".
	State string
}

// BridgeOptions holds configuration for creating a bridge.
type BridgeOptions struct {
	// Config is the loaded bridge configuration.
	Config *Config

	// MQTTClient is the MQTT client implementation.
	MQTTClient MQTTClient

	// Protocols overrides the built-in protocol set (tests). Only the
	// protocols enabled in Config are registered either way.
	Protocols []protocol.Protocol

	// Logger is optional structured logger.
	Logger Logger

	// Capture is an optional diagnostic capture sink.
	Capture CaptureWriter

	// Recorder is an optional time-series sink.
	Recorder Recorder

	// Version is reported in health messages. Default: "dev".
	Version string
}

// NewBridge creates a new bridge instance.
// Call Start() to begin operation.
func NewBridge(opts BridgeOptions) (*Bridge, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if opts.MQTTClient == nil {
		return nil, fmt.Errorf("MQTT client is required")
	}

	candidates := opts.Protocols
	if candidates == nil {
		candidates = BuiltinProtocols()
	}

	version := opts.Version
	if version == "" {
		version = "dev"
	}

	b := &Bridge{
		cfg:         opts.Config,
		mqtt:        opts.MQTTClient,
		version:     version,
		byID:        make(map[string]protocol.Protocol),
		devices:     make(map[string]DeviceConfig),
		codeDevices: make(map[string]string),
		dedup:       newDedupCache(opts.Config.GetDedupWindow()),
		now:         time.Now,
		capture:     opts.Capture,
		recorder:    opts.Recorder,
		done:        make(chan struct{}),
		logger:      opts.Logger,
	}

	for _, p := range candidates {
		d := p.Descriptor()
		if !opts.Config.ProtocolEnabled(d.ID) {
			continue
		}
		if _, dup := b.byID[d.ID]; dup {
			return nil, fmt.Errorf("protocol %q registered twice", d.ID)
		}
		b.protocols = append(b.protocols, p)
		b.descriptors = append(b.descriptors, d)
		b.byID[d.ID] = p
	}
	if len(b.protocols) == 0 {
		return nil, fmt.Errorf("%w: no enabled protocol is available", ErrUnknownProtocol)
	}

	for _, dev := range opts.Config.Devices {
		if _, ok := b.byID[dev.Protocol]; !ok {
			return nil, fmt.Errorf("%w: device %s uses %q", ErrUnknownProtocol, dev.DeviceID, dev.Protocol)
		}
		b.devices[dev.DeviceID] = dev
		b.codeDevices[Address(dev.Protocol, dev.ID)] = dev.DeviceID
	}

	protocolIDs := make([]string, len(b.descriptors))
	for i, d := range b.descriptors {
		protocolIDs[i] = d.ID
	}

	b.health = NewHealthReporter(HealthReporterConfig{
		BridgeID:  opts.Config.Bridge.ID,
		Version:   version,
		Protocols: protocolIDs,
		Interval:  opts.Config.GetHealthInterval(),
		Publisher: opts.MQTTClient,
		Stats:     b.Stats,
	})
	b.health.SetDeviceCount(len(b.devices))
	if opts.Logger != nil {
		b.health.SetLogger(opts.Logger)
	}

	return b, nil
}

// Start subscribes to receiver and command topics and starts health reporting.
func (b *Bridge) Start(ctx context.Context) error {
	if err := b.health.PublishStarting(); err != nil {
		b.logError("failed to publish starting status", err)
	}

	rawTopic := RawSubscribeTopic()
	if err := b.mqtt.Subscribe(rawTopic, 0, b.handleMQTTMessage); err != nil {
		return fmt.Errorf("subscribe to raw trains: %w", err)
	}
	b.logInfo("subscribed to receivers", "topic", rawTopic)

	commandTopic := CommandSubscribeTopic()
	if err := b.mqtt.Subscribe(commandTopic, 1, b.handleMQTTMessage); err != nil {
		return fmt.Errorf("subscribe to commands: %w", err)
	}
	b.logInfo("subscribed to commands", "topic", commandTopic)

	b.health.Start(ctx)

	b.logInfo("bridge started",
		"bridge_id", b.cfg.Bridge.ID,
		"protocols", len(b.protocols),
		"devices", len(b.devices))

	return nil
}

// Stop gracefully shuts down the bridge. Messages arriving afterwards are dropped.
func (b *Bridge) Stop() {
	b.stopOnce.Do(func() {
		close(b.done)
		b.health.Stop()
		b.logInfo("bridge stopped")
	})
}

func (b *Bridge) stopped() bool {
	select {
	case <-b.done:
		return true
	default:
		return false
	}
}

// handleMQTTMessage routes incoming MQTT messages to appropriate handlers.
func (b *Bridge) handleMQTTMessage(topic string, payload []byte) {
	if b.stopped() {
		return
	}

	// graylogic/{type}/rf433/{id}
	parts := strings.Split(topic, "/")
	if len(parts) < minTopicParts {
		b.logError("invalid topic format", fmt.Errorf("topic: %s", topic))
		return
	}

	switch parts[1] {
	case "raw":
		if _, err := b.HandleRaw(parts[3], payload); err != nil {
			b.logDebug("raw train dropped", "receiver", parts[3], "reason", err.Error())
		}
	case "command":
		b.handleCommand(parts[3], payload)
	default:
		b.logError("unknown message type", fmt.Errorf("type: %s", parts[1]))
	}
}

// HandleRaw parses a receiver's RawMessage and processes its train.
// topicReceiver is used when the payload does not name its receiver.
func (b *Bridge) HandleRaw(topicReceiver string, payload []byte) (Result, error) {
	var raw RawMessage
	if err := json.Unmarshal(payload, &raw); err != nil {
		b.stats.errors.Add(1)
		return Result{}, fmt.Errorf("%w: %w", ErrInvalidTrain, err)
	}

	receiver := raw.Receiver
	if receiver == "" {
		receiver = topicReceiver
	}
	if !b.cfg.ReceiverAllowed(receiver) {
		return Result{}, fmt.Errorf("%w: %s", ErrReceiverNotAllowed, receiver)
	}
	if !raw.Pulses.Valid() {
		b.stats.errors.Add(1)
		return Result{}, fmt.Errorf("%w: empty or non-positive durations", ErrInvalidTrain)
	}

	at := raw.Timestamp
	if at.IsZero() {
		at = b.now().UTC()
	}

	return b.Receive(receiver, raw.Pulses, at), nil
}

// Receive dispatches one train to every registered protocol in order and
// publishes the first successful decode.
//
// A train counts as matched when any protocol accepts its shape, and as
// rejected when none of the matching protocols can decode it.
func (b *Bridge) Receive(receiver string, train pulse.Train, at time.Time) Result {
	b.stats.received.Add(1)

	res := Result{Outcome: capture.OutcomeUnmatched}
	var msg protocol.Message

	for i, p := range b.protocols {
		d := b.descriptors[i]
		if !d.AcceptsLength(len(train)) || !p.Validate(train) {
			continue
		}
		if res.Outcome == capture.OutcomeUnmatched {
			b.stats.matched.Add(1)
		}
		res.Outcome = capture.OutcomeRejected
		res.Protocol = d.ID

		m, ok := p.DecodeMessage(train)
		if !ok {
			continue
		}
		res.Outcome = capture.OutcomeDecoded
		msg = m
		break
	}

	switch res.Outcome {
	case capture.OutcomeRejected:
		b.stats.rejected.Add(1)
		b.logDebug("train rejected", "receiver", receiver, "protocol", res.Protocol, "pulses", len(train))
	case capture.OutcomeDecoded:
		b.stats.decoded.Add(1)
	}

	b.captureTrain(receiver, train, at, res)
	if b.recorder != nil {
		b.recorder.WriteDecodeOutcome(receiver, string(res.Outcome), at)
	}

	if res.Outcome != capture.OutcomeDecoded {
		return res
	}

	if b.dedup.duplicate(Address(res.Protocol, msg.ID), b.now()) {
		b.stats.duplicates.Add(1)
		res.Duplicate = true
		return res
	}

	ev := Event{
		ID:        uuid.NewString(),
		Timestamp: at,
		Protocol:  res.Protocol,
		Receiver:  receiver,
		DeviceID:  b.codeDevices[Address(res.Protocol, msg.ID)],
		Message:   msg,
	}
	res.Event = &ev

	b.publishState(ev)
	if b.recorder != nil {
		b.recorder.WriteRingEvent(ev.Protocol, msg.ID, receiver, at)
	}
	b.notify(ev)

	b.logInfo("code received",
		"protocol", ev.Protocol,
		"id", msg.ID,
		"receiver", receiver,
		"device_id", ev.DeviceID)

	return res
}

func (b *Bridge) captureTrain(receiver string, train pulse.Train, at time.Time, res Result) {
	if b.capture == nil {
		return
	}
	rec := capture.Record{
		Timestamp: at,
		Receiver:  receiver,
		Pulses:    train,
		Protocol:  res.Protocol,
		Outcome:   res.Outcome,
	}
	if err := b.capture.Write(rec); err != nil {
		b.logDebug("capture write skipped", "reason", err.Error())
	}
}

// publishState publishes a decoded message to the state topic.
func (b *Bridge) publishState(ev Event) {
	msg := StateMessage{
		EventID:   ev.ID,
		DeviceID:  ev.DeviceID,
		Timestamp: ev.Timestamp,
		State:     ev.Message,
		Protocol:  ev.Protocol,
		Receiver:  ev.Receiver,
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		b.stats.errors.Add(1)
		b.logError("failed to marshal state", err)
		return
	}

	if err := b.mqtt.Publish(StateTopic(ev.Protocol, ev.Message.ID), payload, 1, false); err != nil {
		b.stats.errors.Add(1)
		b.logError("failed to publish state", err)
	}
}

// OnEvent registers fn to be called for every published detection.
// fn runs on the MQTT handler goroutine and must not block.
func (b *Bridge) OnEvent(fn func(Event)) {
	b.listenersMu.Lock()
	b.listeners = append(b.listeners, fn)
	b.listenersMu.Unlock()
}

func (b *Bridge) notify(ev Event) {
	b.listenersMu.RLock()
	listeners := b.listeners
	b.listenersMu.RUnlock()

	for _, fn := range listeners {
		fn(ev)
	}
}

// Send encodes a request and publishes it for the configured transmitter.
//
// Errors wrap ErrUnknownDevice, ErrUnknownProtocol, ErrEncodingFailed (with
// the protocol's own error) or ErrPublishFailed.
func (b *Bridge) Send(req SendRequest) (TransmitMessage, error) {
	protoID := req.Protocol
	id := req.ID

	if req.DeviceID != "" {
		dev, ok := b.devices[req.DeviceID]
		if !ok {
			return TransmitMessage{}, fmt.Errorf("%w: %s", ErrUnknownDevice, req.DeviceID)
		}
		if protoID == "" {
			protoID = dev.Protocol
		}
		if id == protocol.MissingID {
			id = dev.ID
		}
	}

	p, ok := b.byID[protoID]
	if !ok {
		return TransmitMessage{}, fmt.Errorf("%w: %q", ErrUnknownProtocol, protoID)
	}

	state := req.State
	if state == "" {
		state = protocol.StateOn
	}

	train, err := p.EncodeRequest(protocol.Request{ID: id, State: state})
	if err != nil {
		return TransmitMessage{}, fmt.Errorf("%w: %w", ErrEncodingFailed, err)
	}

	commandID := req.CommandID
	if commandID == "" {
		commandID = uuid.NewString()
	}

	msg := TransmitMessage{
		CommandID: commandID,
		Timestamp: b.now().UTC(),
		Protocol:  protoID,
		Pulses:    train,
		Repeats:   p.Descriptor().Repeats,
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		b.stats.errors.Add(1)
		return TransmitMessage{}, fmt.Errorf("marshal transmit message: %w", err)
	}

	topic := TransmitTopic(b.cfg.Bridge.TransmitterID)
	if err := b.mqtt.Publish(topic, payload, 1, false); err != nil {
		b.stats.errors.Add(1)
		return TransmitMessage{}, fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}
	b.stats.transmitted.Add(1)

	b.logInfo("frame queued for transmit",
		"command_id", commandID,
		"protocol", protoID,
		"id", id,
		"transmitter", b.cfg.Bridge.TransmitterID)

	return msg, nil
}

// handleCommand processes a command message from Core.
func (b *Bridge) handleCommand(topicDevice string, payload []byte) {
	var cmd CommandMessage
	if err := json.Unmarshal(payload, &cmd); err != nil {
		b.stats.errors.Add(1)
		b.logError("failed to parse command", err)
		return
	}
	if cmd.DeviceID == "" {
		cmd.DeviceID = topicDevice
	}

	b.logInfo("received command",
		"command_id", cmd.ID,
		"device_id", cmd.DeviceID,
		"command", cmd.Command)

	if cmd.Command != protocol.StateOn && cmd.Command != protocol.StateOff {
		b.publishAckError(cmd, "", ErrCodeInvalidCommand,
			fmt.Sprintf("unknown command: %s", cmd.Command))
		return
	}

	id := protocol.MissingID
	if v, ok := cmd.Parameters["id"]; ok {
		parsed, err := parseIDParameter(v)
		if err != nil {
			b.publishAckError(cmd, "", ErrCodeInvalidParameters, err.Error())
			return
		}
		id = parsed
	}

	msg, err := b.Send(SendRequest{
		CommandID: cmd.ID,
		DeviceID:  cmd.DeviceID,
		ID:        id,
		State:     cmd.Command,
	})
	if err != nil {
		b.publishAckError(cmd, "", AckCode(err), err.Error())
		return
	}

	if id == protocol.MissingID {
		id = b.devices[cmd.DeviceID].ID
	}
	b.publishAck(cmd, Address(msg.Protocol, id), AckAccepted)
}

// parseIDParameter accepts an id as a JSON number or a decimal string.
func parseIDParameter(v any) (int, error) {
	switch id := v.(type) {
	case float64:
		if id != math.Trunc(id) || id < math.MinInt32 || id > math.MaxInt32 {
			return 0, fmt.Errorf("'id' must be an integer, got %v", id)
		}
		return int(id), nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(id))
		if err != nil {
			return 0, fmt.Errorf("'id' must be an integer, got %q", id)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("'id' must be an integer, got %T", v)
	}
}

// AckCode maps a Send error to an ack error code.
func AckCode(err error) string {
	switch {
	case errors.Is(err, ErrUnknownDevice), errors.Is(err, ErrUnknownProtocol):
		return ErrCodeNotConfigured
	case errors.Is(err, ErrEncodingFailed):
		return ErrCodeInvalidParameters
	default:
		return ErrCodeBridgeError
	}
}

// publishAck publishes a command acknowledgment.
func (b *Bridge) publishAck(cmd CommandMessage, address string, status AckStatus) {
	b.publishAckMessage(cmd.DeviceID, NewAckMessage(cmd, status, address))
}

// publishAckError publishes a failed command acknowledgment.
func (b *Bridge) publishAckError(cmd CommandMessage, address, code, message string) {
	b.stats.errors.Add(1)
	b.publishAckMessage(cmd.DeviceID, NewAckError(cmd, address, code, message))
	b.logWarn("command failed", "command_id", cmd.ID, "code", code, "message", message)
}

func (b *Bridge) publishAckMessage(deviceID string, ack AckMessage) {
	payload, err := json.Marshal(ack)
	if err != nil {
		b.logError("failed to marshal ack", err)
		return
	}
	if err := b.mqtt.Publish(AckTopic(deviceID), payload, 1, false); err != nil {
		b.logError("failed to publish ack", err)
	}
}

// Protocols returns the descriptors of the registered protocols in dispatch order.
func (b *Bridge) Protocols() []protocol.Descriptor {
	out := make([]protocol.Descriptor, len(b.descriptors))
	copy(out, b.descriptors)
	return out
}

// Protocol looks up a registered protocol by id.
func (b *Bridge) Protocol(id string) (protocol.Protocol, bool) {
	p, ok := b.byID[id]
	return p, ok
}

// Devices returns the configured device bindings.
func (b *Bridge) Devices() []DeviceConfig {
	out := make([]DeviceConfig, 0, len(b.devices))
	for _, d := range b.cfg.Devices {
		out = append(out, d)
	}
	return out
}

// ClearDedup forgets every recent detection, so the next copy of any code
// is published again.
func (b *Bridge) ClearDedup() {
	b.dedup.clear()
}

// Stats returns a snapshot of the bridge counters.
func (b *Bridge) Stats() BridgeStatistics {
	return BridgeStatistics{
		TrainsReceived:    b.stats.received.Load(),
		TrainsMatched:     b.stats.matched.Load(),
		TrainsDecoded:     b.stats.decoded.Load(),
		TrainsRejected:    b.stats.rejected.Load(),
		Duplicates:        b.stats.duplicates.Load(),
		FramesTransmitted: b.stats.transmitted.Load(),
		Errors:            b.stats.errors.Load(),
	}
}

// BridgeMetrics contains metrics data for the API metrics endpoint.
type BridgeMetrics struct {
	Connected      bool             `json:"connected"`
	Status         HealthStatus     `json:"status"`
	Reason         string           `json:"reason,omitempty"`
	Version        string           `json:"version"`
	UptimeSeconds  int64            `json:"uptime_seconds"`
	Statistics     BridgeStatistics `json:"statistics"`
	DevicesManaged int              `json:"devices_managed"`
	Protocols      int              `json:"protocols"`
}

// GetMetrics returns current bridge metrics for the API metrics endpoint.
func (b *Bridge) GetMetrics() BridgeMetrics {
	status, reason := b.health.Status()
	return BridgeMetrics{
		Connected:      b.mqtt.IsConnected(),
		Status:         status,
		Reason:         reason,
		Version:        b.version,
		UptimeSeconds:  int64(b.health.Uptime().Seconds()),
		Statistics:     b.Stats(),
		DevicesManaged: len(b.devices),
		Protocols:      len(b.protocols),
	}
}

// SetLogger sets the logger for the bridge.
func (b *Bridge) SetLogger(logger Logger) {
	b.loggerMu.Lock()
	b.logger = logger
	b.loggerMu.Unlock()

	if b.health != nil {
		b.health.SetLogger(logger)
	}
}

func (b *Bridge) getLogger() Logger {
	b.loggerMu.RLock()
	defer b.loggerMu.RUnlock()
	return b.logger
}

// logInfo logs an info message if logger is set.
func (b *Bridge) logInfo(msg string, keysAndValues ...any) {
	if logger := b.getLogger(); logger != nil {
		logger.Info(msg, keysAndValues...)
	}
}

// logWarn logs a warning if logger is set.
func (b *Bridge) logWarn(msg string, keysAndValues ...any) {
	if logger := b.getLogger(); logger != nil {
		logger.Warn(msg, keysAndValues...)
	}
}

// logError logs an error message if logger is set.
func (b *Bridge) logError(msg string, err error) {
	if logger := b.getLogger(); logger != nil {
		logger.Error(msg, "error", err)
	}
}

// logDebug logs a debug message if logger is set.
func (b *Bridge) logDebug(msg string, keysAndValues ...any) {
	if logger := b.getLogger(); logger != nil {
		logger.Debug(msg, keysAndValues...)
	}
}

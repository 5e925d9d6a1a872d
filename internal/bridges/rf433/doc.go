// Package rf433 implements the RF433 protocol bridge for Gray Logic.
//
// The bridge never touches a radio. Receivers (an RTL-SDR, an ESP32 with a
// superheterodyne module, a pilight daemon) publish the pulse durations of
// each captured frame to MQTT; the bridge decodes them with the protocols it
// hosts and publishes device messages. In the other direction it turns
// commands into canonical pulse trains for a transmitter to send.
//
// # Architecture
//
//	┌────────────┐  raw    ┌─────────────────┐  state  ┌─────────────────┐
//	│ receivers  │────────►│  RF433 Bridge   │────────►│ Gray Logic Core │
//	└────────────┘  MQTT   │   (this pkg)    │◄────────│                 │
//	┌────────────┐transmit │                 │ command └─────────────────┘
//	│transmitter │◄────────│                 │
//	└────────────┘         └─────────────────┘
//
// # Topics
//
//   - graylogic/raw/rf433/{receiver}          receiver → bridge, RawMessage
//   - graylogic/state/rf433/{protocol}/{id}   bridge → core, StateMessage
//   - graylogic/command/rf433/{device}        core → bridge, CommandMessage
//   - graylogic/ack/rf433/{device}            bridge → core, AckMessage
//   - graylogic/transmit/rf433/{transmitter}  bridge → transmitter, TransmitMessage
//   - graylogic/health/rf433                  bridge → core, HealthMessage
//
// # Protocols
//
// Each protocol implements protocol.Protocol. The bridge keeps its own
// table of the protocols enabled in its config and tries them in order for
// every received train. Built-in protocols:
//
//   - selectplus_doorbell: SelectPlus wireless doorbells (package selectplus)
//
// # Duplicate suppression
//
// A remote repeats its frame dozens of times per press. Decodes of the
// same protocol and id within bridge.dedup_window_ms of the previous copy
// are counted but not published.
//
// # Thread Safety
//
// All exported types are safe for concurrent use from multiple goroutines.
package rf433

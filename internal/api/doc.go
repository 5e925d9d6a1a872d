// Package api implements the HTTP REST API and WebSocket server for the RF service.
//
// This package provides:
//   - REST endpoints for protocol metadata, encode/decode diagnostics and
//     transmit requests
//   - WebSocket hub broadcasting decoded RF events
//   - Middleware stack (request ID, logging, recovery, CORS)
//   - TLS support for production deployments
//
// # Architecture
//
// The API sits beside the MQTT bus. Transmit requests go through the RF433
// bridge (which publishes them for the transmitter); decoded ring events
// come back from the bridge and are relayed to WebSocket clients on the
// "rf433.event" channel. The hub keeps a short backlog per channel so a
// client that subscribes with "replay": true sees the most recent rings.
//
// # Validation
//
// Encode and send requests are checked against the protocol's option
// patterns before encoding. Invalid or out of range ids answer 400 with
// code "validation_error" and the codec's message.
package api

package rf433

import "errors"

// Domain errors for the RF433 bridge package.
var (
	// ErrUnknownProtocol is returned when a protocol id is not registered
	// with the bridge.
	ErrUnknownProtocol = errors.New("rf433: unknown protocol")

	// ErrUnknownDevice is returned when a device id is not configured.
	ErrUnknownDevice = errors.New("rf433: unknown device")

	// ErrEncodingFailed is returned when a protocol cannot encode a request.
	// The protocol's own error is wrapped alongside it.
	ErrEncodingFailed = errors.New("rf433: encoding failed")

	// ErrInvalidTrain is returned when a raw message carries no usable pulses.
	ErrInvalidTrain = errors.New("rf433: invalid pulse train")

	// ErrReceiverNotAllowed is returned for frames from receivers outside
	// the configured allow-list.
	ErrReceiverNotAllowed = errors.New("rf433: receiver not allowed")

	// ErrPublishFailed is returned when a message cannot be handed to MQTT.
	ErrPublishFailed = errors.New("rf433: publish failed")
)

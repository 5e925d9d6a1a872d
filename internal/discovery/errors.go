package discovery

import "errors"

var (
	// ErrInvalidInfo is returned when ServiceInfo is missing a required field.
	ErrInvalidInfo = errors.New("discovery: invalid service info")

	// ErrRegisterFailed wraps the zeroconf registration error.
	ErrRegisterFailed = errors.New("discovery: mdns registration failed")
)

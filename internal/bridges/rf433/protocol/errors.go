package protocol

import "errors"

var (
	// ErrUnknownOption is returned when a descriptor has no option of the given name.
	ErrUnknownOption = errors.New("protocol: unknown option")

	// ErrInvalidOption is returned when an option value fails validation.
	ErrInvalidOption = errors.New("protocol: invalid option value")
)

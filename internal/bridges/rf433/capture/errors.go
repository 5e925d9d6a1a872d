package capture

import "errors"

var (
	// ErrClosed is returned by Write after Close.
	ErrClosed = errors.New("capture: writer closed")

	// ErrCorrupt is returned by Next when a record cannot be decoded.
	ErrCorrupt = errors.New("capture: corrupt record")
)

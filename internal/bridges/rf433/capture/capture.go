// Package capture records received RF433 pulse trains to a CBOR file and
// reads them back for offline replay.
//
// A capture file is a plain concatenation of CBOR-encoded Records with no
// framing or header, so it can be appended to across restarts and streamed
// without loading it whole.
package capture

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/nerrad567/gray-logic-rf/internal/bridges/rf433/pulse"
)

// Outcome is what the bridge made of a captured train.
type Outcome string

// Capture outcomes.
const (
	OutcomeUnmatched Outcome = "unmatched"
	OutcomeRejected  Outcome = "rejected"
	OutcomeDecoded   Outcome = "decoded"
)

// Record is one captured train. Integer keys keep files compact.
type Record struct {
	Timestamp time.Time   `cbor:"1,keyasint"`
	Receiver  string      `cbor:"2,keyasint"`
	Pulses    pulse.Train `cbor:"3,keyasint"`
	Protocol  string      `cbor:"4,keyasint,omitempty"`
	Outcome   Outcome     `cbor:"5,keyasint,omitempty"`
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error

	encOpts := cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeRFC3339Nano,
	}
	encMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("capture: building CBOR encoder mode: %v", err))
	}

	decOpts := cbor.DecOptions{
		DupMapKey:   cbor.DupMapKeyQuiet,
		IndefLength: cbor.IndefLengthAllowed,
	}
	decMode, err = decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("capture: building CBOR decoder mode: %v", err))
	}
}

// Writer appends Records to a stream. It is safe for concurrent use.
type Writer struct {
	mu      sync.Mutex
	closer  io.Closer
	encoder *cbor.Encoder
	closed  bool
}

// NewWriter returns a Writer encoding to w. Close does not close w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{encoder: encMode.NewEncoder(w)}
}

// Create opens path for appending, creating it if needed.
func Create(path string) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644) //nolint:gosec // capture files are not secret
	if err != nil {
		return nil, fmt.Errorf("opening capture file: %w", err)
	}
	return &Writer{closer: f, encoder: encMode.NewEncoder(f)}, nil
}

// Write appends one record. The pulses are copied before encoding.
func (w *Writer) Write(rec Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrClosed
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	rec.Pulses = rec.Pulses.Clone()

	if err := w.encoder.Encode(rec); err != nil {
		return fmt.Errorf("encoding capture record: %w", err)
	}
	return nil
}

// Close stops the writer. It is safe to call more than once.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	if w.closer != nil {
		return w.closer.Close()
	}
	return nil
}

// Filter selects records during replay. Empty fields match everything.
type Filter struct {
	Receiver string
	Since    time.Time
}

func (f Filter) matches(rec Record) bool {
	if f.Receiver != "" && rec.Receiver != f.Receiver {
		return false
	}
	if !f.Since.IsZero() && rec.Timestamp.Before(f.Since) {
		return false
	}
	return true
}

// Reader streams Records back from a capture.
type Reader struct {
	closer  io.Closer
	decoder *cbor.Decoder
	filter  Filter
}

// NewReader returns a Reader decoding from r.
func NewReader(r io.Reader, filter Filter) *Reader {
	return &Reader{decoder: decMode.NewDecoder(r), filter: filter}
}

// Open opens a capture file for reading.
func Open(path string, filter Filter) (*Reader, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from operator config or CLI
	if err != nil {
		return nil, fmt.Errorf("opening capture file: %w", err)
	}
	return &Reader{closer: f, decoder: decMode.NewDecoder(f), filter: filter}, nil
}

// Next returns the next matching record, or io.EOF at the end of the stream.
func (r *Reader) Next() (Record, error) {
	for {
		var rec Record
		if err := r.decoder.Decode(&rec); err != nil {
			if errors.Is(err, io.EOF) {
				return Record{}, io.EOF
			}
			return Record{}, fmt.Errorf("%w: %w", ErrCorrupt, err)
		}
		if r.filter.matches(rec) {
			return rec, nil
		}
	}
}

// Close closes the underlying file, if the Reader opened one.
func (r *Reader) Close() error {
	if r.closer != nil {
		return r.closer.Close()
	}
	return nil
}

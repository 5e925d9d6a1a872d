package selectplus

import (
	"fmt"

	"github.com/nerrad567/gray-logic-rf/internal/bridges/rf433/protocol"
	"github.com/nerrad567/gray-logic-rf/internal/bridges/rf433/pulse"
)

// Frame layout.
const (
	// RawLength is the number of pulses in one frame.
	RawLength = 36

	// BinaryLength is the number of data bits in one frame.
	BinaryLength = 17

	// RepeatCount is how many times a transmitter sends a frame.
	RepeatCount = 68

	// MaxID is the largest identifier that fits BinaryLength bits.
	MaxID = 1<<BinaryLength - 1

	// MissingID marks "no id supplied" for Encode.
	MissingID = protocol.MissingID
)

// Nominal pulse durations in microseconds and the receive tolerance.
const (
	ShortPulse  = 372
	MediumPulse = 1094
	LongPulse   = 6536

	// PeakToPeakJitter is the total receive tolerance, split evenly either
	// side of the nominal duration.
	PeakToPeakJitter = 80
)

// Receive bands.
var (
	Short  = pulse.NewBand("short", ShortPulse, PeakToPeakJitter)
	Medium = pulse.NewBand("medium", MediumPulse, PeakToPeakJitter)
	Long   = pulse.NewBand("long", LongPulse, PeakToPeakJitter)
)

const (
	headerIndex = 0
	footerIndex = RawLength - 1
	firstCell   = 1
)

// DeviceMessage is the decoded content of a frame. State is always "on":
// a doorbell only ever reports that it was pressed.
type DeviceMessage struct {
	ID    int    `json:"id"`
	State string `json:"state"`
}

// Codec validates, decodes and encodes SelectPlus frames.
// The zero value is ready to use.
type Codec struct{}

// Validate reports whether the train has the SelectPlus frame shape:
// exactly RawLength pulses, a SHORT header and a LONG footer.
// Bit cells are not examined.
func (Codec) Validate(train pulse.Train) bool {
	return len(train) == RawLength &&
		Short.Contains(train[headerIndex]) &&
		Long.Contains(train[footerIndex])
}

// Decode extracts the identifier from a train. It returns false when the
// train is too short or any bit cell is unclassifiable. Callers normally
// check Validate first; Decode itself never looks at the header or footer.
func (c Codec) Decode(train pulse.Train) (DeviceMessage, bool) {
	msg, err := c.DecodeErr(train)
	return msg, err == nil
}

// DecodeErr is Decode with a reason. Failures wrap ErrStructure or
// ErrClassification; the latter names the first bad cell.
func (Codec) DecodeErr(train pulse.Train) (DeviceMessage, error) {
	if len(train) < footerIndex {
		return DeviceMessage{}, fmt.Errorf("%w: got %d pulses, need at least %d", ErrStructure, len(train), footerIndex)
	}

	id := 0
	for cell := range BinaryLength {
		x := firstCell + 2*cell
		first, second := train[x], train[x+1]

		var bit int
		switch {
		case Medium.Contains(first) && Short.Contains(second):
			bit = 0
		case Short.Contains(first) && Medium.Contains(second):
			bit = 1
		default:
			return DeviceMessage{}, fmt.Errorf("%w: cell %d (%d, %d)", ErrClassification, cell, first, second)
		}
		id = id<<1 | bit
	}

	return DeviceMessage{ID: id, State: protocol.StateOn}, nil
}

// Encode builds the canonical frame for id using nominal durations only.
// The result is a fresh slice owned by the caller.
//
// Passing MissingID returns ErrMissingID; any other id outside 0..MaxID
// returns ErrIDOutOfRange. Both match ErrInvalidID.
func (Codec) Encode(id int) (pulse.Train, error) {
	if id == MissingID {
		return nil, ErrMissingID
	}
	if id < 0 || id > MaxID {
		return nil, ErrIDOutOfRange
	}

	train := make(pulse.Train, RawLength)
	train[headerIndex] = ShortPulse
	for cell := range BinaryLength {
		x := firstCell + 2*cell
		if id>>(BinaryLength-1-cell)&1 == 1 {
			train[x], train[x+1] = ShortPulse, MediumPulse
		} else {
			train[x], train[x+1] = MediumPulse, ShortPulse
		}
	}
	train[footerIndex] = LongPulse

	return train, nil
}

// Repeats returns the number of times a transmitter should send a frame.
func (Codec) Repeats() int {
	return RepeatCount
}

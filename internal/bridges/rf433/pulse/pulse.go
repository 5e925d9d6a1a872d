// Package pulse holds the timing primitives shared by RF433 protocol codecs.
//
// On/off-keyed 433 MHz remotes encode data purely in the duration of the
// alternating high and low periods. A receiver measures those durations in
// microseconds and hands them over as a Train. Codecs classify each duration
// against a small set of Bands, each a tolerance window around a nominal
// duration.
package pulse

import (
	"fmt"
	"strconv"
	"strings"
)

// Band is a tolerance window around an expected pulse duration.
// All values are in microseconds. Min and Max are inclusive.
type Band struct {
	Name string
	Min  int
	Avg  int
	Max  int
}

// NewBand builds a band centred on avg that accepts half of the
// peak-to-peak jitter either side.
//
// Example:
//
//	short := pulse.NewBand("short", 372, 80) // 332..412
func NewBand(name string, avg, peakToPeakJitter int) Band {
	half := peakToPeakJitter / 2 //nolint:mnd // half of peak-to-peak
	return Band{
		Name: name,
		Min:  avg - half,
		Avg:  avg,
		Max:  avg + half,
	}
}

// Contains reports whether d falls inside the band.
func (b Band) Contains(d int) bool {
	return d >= b.Min && d <= b.Max
}

// String returns "name(min..max)".
func (b Band) String() string {
	return fmt.Sprintf("%s(%d..%d)", b.Name, b.Min, b.Max)
}

// Overlaps reports whether two bands share at least one duration.
// Codecs that classify by band membership require disjoint bands.
func Overlaps(a, b Band) bool {
	return a.Min <= b.Max && b.Min <= a.Max
}

// Train is an ordered sequence of pulse durations in microseconds.
//
// Trains are treated as immutable once produced. Encoders return a freshly
// allocated Train per call, so callers may hand the same Train to several
// goroutines for reading.
type Train []int

// Clone returns an independent copy of the train.
func (t Train) Clone() Train {
	if t == nil {
		return nil
	}
	out := make(Train, len(t))
	copy(out, t)
	return out
}

// Valid reports whether every duration is positive.
func (t Train) Valid() bool {
	for _, d := range t {
		if d <= 0 {
			return false
		}
	}
	return len(t) > 0
}

// String renders the train as space-separated durations, the format
// pilight-style tools print raw codes in.
func (t Train) String() string {
	parts := make([]string, len(t))
	for i, d := range t {
		parts[i] = strconv.Itoa(d)
	}
	return strings.Join(parts, " ")
}

// Parse reads a train from space, comma or newline separated durations.
func Parse(s string) (Train, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == ',' || r == '\n' || r == '\t' || r == '\r'
	})
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: no durations", ErrInvalidTrain)
	}

	out := make(Train, 0, len(fields))
	for i, f := range fields {
		d, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("%w: element %d: %w", ErrInvalidTrain, i, err)
		}
		if d <= 0 {
			return nil, fmt.Errorf("%w: element %d is %d, durations must be positive", ErrInvalidTrain, i, d)
		}
		out = append(out, d)
	}
	return out, nil
}

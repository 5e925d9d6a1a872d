// Package protocol defines the contract between the RF433 bridge and the
// individual remote-control codecs it hosts.
//
// Each codec describes itself with a Descriptor (identity, framing bounds,
// command options) and implements Protocol for the receive and transmit
// paths. The bridge owns the table of registered protocols; there is no
// process-wide registry.
package protocol

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/nerrad567/gray-logic-rf/internal/bridges/rf433/pulse"
)

// MissingID marks a transmit request that carries no device identifier.
const MissingID = -1

// StateOn and StateOff are the switch states a command may request.
const (
	StateOn  = "on"
	StateOff = "off"
)

// Protocol is implemented by every RF433 codec the bridge can host.
//
// Implementations must be safe for concurrent use; the bridge calls them
// from MQTT handler goroutines without additional locking.
type Protocol interface {
	// Descriptor returns the static description of the protocol.
	Descriptor() Descriptor

	// Validate is a cheap structural check deciding whether DecodeMessage
	// is worth attempting.
	Validate(train pulse.Train) bool

	// DecodeMessage turns a received train into a device message.
	// It returns false when any part of the train cannot be classified.
	DecodeMessage(train pulse.Train) (Message, bool)

	// EncodeRequest builds the canonical train for a transmit request.
	EncodeRequest(req Request) (pulse.Train, error)
}

// Message is a decoded device message, published on the state topic.
type Message struct {
	ID    int    `json:"id"`
	State string `json:"state"`
}

// Request is a transmit request addressed to one device.
type Request struct {
	// ID is the device identifier, or MissingID when the caller gave none.
	ID int

	// State is the requested switch state ("on" or "off").
	State string
}

// DeviceType classifies what kind of device a protocol controls.
type DeviceType string

// DeviceSwitch is an on/off device such as a doorbell push.
const DeviceSwitch DeviceType = "switch"

// Hardware names the radio a protocol runs on.
type Hardware string

// HardwareRF433 is the 433.92 MHz OOK band.
const HardwareRF433 Hardware = "rf433"

// ArgMode states whether an option takes a value.
type ArgMode int

// Option argument modes.
const (
	NoValue ArgMode = iota
	HasValue
	OptionalValue
)

// OptionKind states what an option configures.
type OptionKind int

// Option kinds.
const (
	KindState OptionKind = iota
	KindID
	KindOptional
	KindSetting
)

// String returns the lower-case name of the kind.
func (k OptionKind) String() string {
	switch k {
	case KindState:
		return "state"
	case KindID:
		return "id"
	case KindOptional:
		return "optional"
	case KindSetting:
		return "setting"
	default:
		return "unknown"
	}
}

// Option describes one command option a protocol accepts.
type Option struct {
	Short   string     `json:"short,omitempty"`
	Long    string     `json:"long"`
	Arg     ArgMode    `json:"arg"`
	Kind    OptionKind `json:"kind"`
	Pattern string     `json:"pattern,omitempty"`
	Default string     `json:"default,omitempty"`
	Help    string     `json:"help,omitempty"`
}

// Device is a device name a protocol is registered under.
type Device struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Descriptor is the static description of a protocol.
type Descriptor struct {
	ID         string     `json:"id"`
	Devices    []Device   `json:"devices"`
	DeviceType DeviceType `json:"device_type"`
	Hardware   Hardware   `json:"hardware"`

	// MinRawLength and MaxRawLength bound the number of pulses in a frame.
	MinRawLength int `json:"min_raw_length"`
	MaxRawLength int `json:"max_raw_length"`

	// MinGapLength and MaxGapLength bound the inter-frame gap (µs) a receiver
	// uses to split the pulse stream into frames.
	MinGapLength int `json:"min_gap_length"`
	MaxGapLength int `json:"max_gap_length"`

	// Repeats is how many times a transmitter sends each frame.
	Repeats int `json:"repeats"`

	Options []Option `json:"options"`
}

// AcceptsLength reports whether a frame of n pulses can belong to the protocol.
func (d Descriptor) AcceptsLength(n int) bool {
	return n >= d.MinRawLength && n <= d.MaxRawLength
}

// AcceptsGap reports whether a gap of the given duration can terminate a frame.
func (d Descriptor) AcceptsGap(gap int) bool {
	return gap >= d.MinGapLength && gap <= d.MaxGapLength
}

// Option looks up an option by its long or short name.
func (d Descriptor) Option(name string) (Option, bool) {
	for _, o := range d.Options {
		if o.Long == name || (o.Short != "" && o.Short == name) {
			return o, true
		}
	}
	return Option{}, false
}

// ValidateOption checks value against the option's pattern.
func (d Descriptor) ValidateOption(name, value string) error {
	opt, ok := d.Option(name)
	if !ok {
		return fmt.Errorf("%w: %s has no option %q", ErrUnknownOption, d.ID, name)
	}

	switch opt.Arg {
	case NoValue:
		if value != "" {
			return fmt.Errorf("%w: option %q takes no value", ErrInvalidOption, opt.Long)
		}
		return nil
	case HasValue:
		if value == "" {
			return fmt.Errorf("%w: option %q requires a value", ErrInvalidOption, opt.Long)
		}
	case OptionalValue:
		if value == "" {
			return nil
		}
	}

	if opt.Pattern == "" {
		return nil
	}
	re, err := regexp.Compile(opt.Pattern)
	if err != nil {
		return fmt.Errorf("%w: option %q has a bad pattern: %w", ErrInvalidOption, opt.Long, err)
	}
	if !re.MatchString(value) {
		return fmt.Errorf("%w: option %q value %q does not match %s", ErrInvalidOption, opt.Long, value, opt.Pattern)
	}
	return nil
}

// Help renders the options that carry help text, one per line, in the
// "-s --long\t\t\thelp" layout the command line tools print.
func (d Descriptor) Help() string {
	var sb strings.Builder
	for _, o := range d.Options {
		if o.Help == "" {
			continue
		}
		flag := "--" + o.Long
		if o.Arg == HasValue {
			flag += "=" + o.Long
		}
		if o.Short != "" {
			flag = "-" + o.Short + " " + flag
		}
		fmt.Fprintf(&sb, "\t %s\t\t\t%s\n", flag, o.Help)
	}
	return sb.String()
}

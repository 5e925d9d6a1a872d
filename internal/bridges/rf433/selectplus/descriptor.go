package selectplus

import (
	"github.com/nerrad567/gray-logic-rf/internal/bridges/rf433/protocol"
	"github.com/nerrad567/gray-logic-rf/internal/bridges/rf433/pulse"
)

// ProtocolID is the identifier the bridge registers this protocol under.
const ProtocolID = "selectplus_doorbell"

// Descriptor returns the static description of the SelectPlus protocol.
// Each call returns a fresh value.
func Descriptor() protocol.Descriptor {
	return protocol.Descriptor{
		ID: ProtocolID,
		Devices: []protocol.Device{
			{ID: ProtocolID, Name: "SelectPlus doorbell"},
		},
		DeviceType:   protocol.DeviceSwitch,
		Hardware:     protocol.HardwareRF433,
		MinRawLength: RawLength,
		MaxRawLength: RawLength,
		MinGapLength: Long.Min,
		MaxGapLength: Long.Max,
		Repeats:      RepeatCount,
		Options: []protocol.Option{
			{Short: "t", Long: "on", Arg: protocol.NoValue, Kind: protocol.KindState, Help: "ring the doorbell"},
			{Short: "f", Long: "off", Arg: protocol.NoValue, Kind: protocol.KindState},
			{Short: "u", Long: "unit", Arg: protocol.HasValue, Kind: protocol.KindID, Pattern: `^([1-4])$`},
			{
				Short:   "i",
				Long:    "id",
				Arg:     protocol.HasValue,
				Kind:    protocol.KindID,
				Pattern: `^([0-9]{1}|[0-9]{2}|[0-9]{3}|[0-9]{4}|[0-9]{5}|[0-9]{6})$`,
				Help:    "control a device with this id",
			},
			{Short: "a", Long: "all", Arg: protocol.OptionalValue, Kind: protocol.KindOptional},
			{Short: "l", Long: "learn", Arg: protocol.NoValue, Kind: protocol.KindOptional},
			{Long: "readonly", Arg: protocol.HasValue, Kind: protocol.KindSetting, Pattern: `^[10]{1}$`, Default: "0"},
			{Long: "confirm", Arg: protocol.HasValue, Kind: protocol.KindSetting, Pattern: `^[10]{1}$`, Default: "0"},
		},
	}
}

// Protocol hosts Codec on the RF433 bridge.
type Protocol struct {
	Codec
}

// New returns the SelectPlus protocol ready to register with a bridge.
func New() *Protocol {
	return &Protocol{}
}

// Descriptor implements protocol.Protocol.
func (p *Protocol) Descriptor() protocol.Descriptor {
	return Descriptor()
}

// DecodeMessage implements protocol.Protocol.
func (p *Protocol) DecodeMessage(train pulse.Train) (protocol.Message, bool) {
	msg, ok := p.Decode(train)
	if !ok {
		return protocol.Message{}, false
	}
	return protocol.Message{ID: msg.ID, State: msg.State}, true
}

// EncodeRequest implements protocol.Protocol. The doorbell has a single
// state on the air, so "on" and "off" produce the same frame.
func (p *Protocol) EncodeRequest(req protocol.Request) (pulse.Train, error) {
	return p.Encode(req.ID)
}

var _ protocol.Protocol = (*Protocol)(nil)

// Package selectplus implements the pulse codec for SelectPlus wireless
// doorbell transmitters on 433.92 MHz.
//
// A SelectPlus frame is 36 pulse durations long:
//
//	index 0       header, one SHORT pulse
//	index 1..34   17 bit cells of two pulses each
//	index 35      footer, one LONG pulse (also the inter-frame gap)
//
// Each bit cell is either MEDIUM then SHORT (bit 0) or SHORT then MEDIUM
// (bit 1). The 17 bits form the transmitter's identifier, most significant
// bit first, giving ids in the range 0..131071.
//
// Nominal durations are SHORT 372 µs, MEDIUM 1094 µs and LONG 6536 µs. The
// receive path accepts ±40 µs around each of them; the transmit path only
// ever emits the nominal values.
//
// # Usage
//
//	var c selectplus.Codec
//	if c.Validate(train) {
//	    msg, ok := c.Decode(train)
//	    ...
//	}
//
//	train, err := c.Encode(4242)
//	if errors.Is(err, selectplus.ErrInvalidID) { ... }
//
// Codec is stateless and safe for concurrent use. The bridge hosts it
// through Protocol, which adds the descriptor and the protocol.Protocol
// adapter methods.
package selectplus

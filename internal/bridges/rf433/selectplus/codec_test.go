package selectplus

import (
	"errors"
	"testing"

	"github.com/nerrad567/gray-logic-rf/internal/bridges/rf433/pulse"
)

// frame builds a valid train from a header, 17 bits MSB first and a footer.
func frame(header int, bits [BinaryLength]int, footer int) pulse.Train {
	t := make(pulse.Train, 0, RawLength)
	t = append(t, header)
	for _, b := range bits {
		if b == 1 {
			t = append(t, ShortPulse, MediumPulse)
		} else {
			t = append(t, MediumPulse, ShortPulse)
		}
	}
	return append(t, footer)
}

func TestBandsDoNotOverlap(t *testing.T) {
	bands := []pulse.Band{Short, Medium, Long}
	for i := range bands {
		for j := i + 1; j < len(bands); j++ {
			if pulse.Overlaps(bands[i], bands[j]) {
				t.Errorf("bands %s and %s overlap", bands[i], bands[j])
			}
		}
	}
}

func TestBandBounds(t *testing.T) {
	tests := []struct {
		band     pulse.Band
		min, max int
	}{
		{Short, 332, 412},
		{Medium, 1054, 1134},
		{Long, 6496, 6576},
	}
	for _, tt := range tests {
		if tt.band.Min != tt.min || tt.band.Max != tt.max {
			t.Errorf("%s = %d..%d, want %d..%d", tt.band.Name, tt.band.Min, tt.band.Max, tt.min, tt.max)
		}
	}
}

func TestCodec_Validate(t *testing.T) {
	var c Codec
	zero := [BinaryLength]int{}

	tests := []struct {
		name  string
		train pulse.Train
		want  bool
	}{
		{"canonical", frame(ShortPulse, zero, LongPulse), true},
		{"header at min", frame(332, zero, LongPulse), true},
		{"header below min", frame(331, zero, LongPulse), false},
		{"header at max", frame(412, zero, LongPulse), true},
		{"header above max", frame(413, zero, LongPulse), false},
		{"footer at min", frame(ShortPulse, zero, 6496), true},
		{"footer below min", frame(ShortPulse, zero, 6495), false},
		{"footer at max", frame(ShortPulse, zero, 6576), true},
		{"footer above max", frame(ShortPulse, zero, 6577), false},
		{"medium header", frame(MediumPulse, zero, LongPulse), false},
		{"too short", frame(ShortPulse, zero, LongPulse)[:35], false},
		{"too long", append(frame(ShortPulse, zero, LongPulse), LongPulse), false},
		{"empty", pulse.Train{}, false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Validate(tt.train); got != tt.want {
				t.Errorf("Validate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCodec_Validate_IgnoresCells(t *testing.T) {
	train := make(pulse.Train, RawLength)
	for i := range train {
		train[i] = 2000
	}
	train[0] = ShortPulse
	train[RawLength-1] = LongPulse

	if !(Codec{}).Validate(train) {
		t.Error("Validate() examined interior pulses")
	}
}

func TestCodec_Decode_AllZero(t *testing.T) {
	msg, ok := Codec{}.Decode(frame(ShortPulse, [BinaryLength]int{}, LongPulse))
	if !ok {
		t.Fatal("Decode() failed on an all-zero frame")
	}
	if msg.ID != 0 || msg.State != "on" {
		t.Errorf("Decode() = %+v, want {0 on}", msg)
	}
}

func TestCodec_Decode_MSBFirst(t *testing.T) {
	var bits [BinaryLength]int
	bits[0] = 1

	msg, ok := Codec{}.Decode(frame(ShortPulse, bits, LongPulse))
	if !ok {
		t.Fatal("Decode() failed")
	}
	if msg.ID != 1<<16 {
		t.Errorf("Decode() id = %d, want %d", msg.ID, 1<<16)
	}
}

func TestCodec_Decode_JitteredCells(t *testing.T) {
	var bits [BinaryLength]int
	for i := range bits {
		bits[i] = i % 2
	}
	train := frame(ShortPulse, bits, LongPulse)
	// Push every cell pulse to the edge of its band.
	for i := 1; i < RawLength-1; i++ {
		if train[i] == ShortPulse {
			train[i] = Short.Max
		} else {
			train[i] = Medium.Min
		}
	}

	msg, ok := Codec{}.Decode(train)
	if !ok {
		t.Fatal("Decode() rejected in-band jitter")
	}
	if msg.ID != 0b01010101010101010 {
		t.Errorf("Decode() id = %b", msg.ID)
	}
}

func TestCodec_Decode_BadCell(t *testing.T) {
	for pos := 1; pos < RawLength-1; pos++ {
		train := frame(ShortPulse, [BinaryLength]int{}, LongPulse)
		train[pos] = 2000

		if _, ok := (Codec{}).Decode(train); ok {
			t.Errorf("Decode() accepted 2000 µs at position %d", pos)
		}
	}
}

func TestCodec_Decode_SameBandCell(t *testing.T) {
	train := frame(ShortPulse, [BinaryLength]int{}, LongPulse)
	train[5], train[6] = ShortPulse, ShortPulse

	_, err := Codec{}.DecodeErr(train)
	if !errors.Is(err, ErrClassification) {
		t.Errorf("DecodeErr() error = %v, want ErrClassification", err)
	}
}

func TestCodec_Decode_ShortTrain(t *testing.T) {
	train := frame(ShortPulse, [BinaryLength]int{}, LongPulse)

	for _, n := range []int{0, 1, 10, 34} {
		_, err := Codec{}.DecodeErr(train[:n])
		if !errors.Is(err, ErrStructure) {
			t.Errorf("DecodeErr(len %d) error = %v, want ErrStructure", n, err)
		}
	}

	// 35 pulses still hold every cell; the footer is not read.
	if _, ok := (Codec{}).Decode(train[:35]); !ok {
		t.Error("Decode() of 35 pulses failed")
	}
}

func TestCodec_Encode_One(t *testing.T) {
	train, err := Codec{}.Encode(1)
	if err != nil {
		t.Fatalf("Encode(1) error = %v", err)
	}
	if len(train) != RawLength {
		t.Fatalf("len = %d, want %d", len(train), RawLength)
	}
	if train[0] != 372 {
		t.Errorf("header = %d, want 372", train[0])
	}
	if train[35] != 6536 {
		t.Errorf("footer = %d, want 6536", train[35])
	}
	for x := 1; x < 33; x += 2 {
		if train[x] != 1094 || train[x+1] != 372 {
			t.Errorf("cell at %d = (%d, %d), want (1094, 372)", x, train[x], train[x+1])
		}
	}
	if train[33] != 372 || train[34] != 1094 {
		t.Errorf("last cell = (%d, %d), want (372, 1094)", train[33], train[34])
	}

	msg, ok := Codec{}.Decode(train)
	if !ok || msg.ID != 1 {
		t.Errorf("Decode(Encode(1)) = %+v, %v", msg, ok)
	}
}

func TestCodec_Encode_OnlyNominalDurations(t *testing.T) {
	train, err := Codec{}.Encode(0b10110011100011110)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	for i, d := range train {
		if d != ShortPulse && d != MediumPulse && d != LongPulse {
			t.Errorf("train[%d] = %d is not a nominal duration", i, d)
		}
	}
}

func TestCodec_Encode_FreshBuffer(t *testing.T) {
	a, _ := Codec{}.Encode(7)
	b, _ := Codec{}.Encode(7)
	a[1] = 1

	if b[1] == 1 {
		t.Error("Encode() returned shared storage")
	}
}

func TestCodec_Encode_Errors(t *testing.T) {
	tests := []struct {
		name    string
		id      int
		want    error
		wantMsg string
	}{
		{"missing", -1, ErrMissingID, "insufficient number of arguments; provide id"},
		{"negative", -2, ErrIDOutOfRange, "invalid id range. id should be between 0 and 131071"},
		{"too large", 131072, ErrIDOutOfRange, "invalid id range. id should be between 0 and 131071"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			train, err := Codec{}.Encode(tt.id)
			if train != nil {
				t.Errorf("Encode(%d) returned a train", tt.id)
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("Encode(%d) error = %v, want %v", tt.id, err, tt.want)
			}
			if !errors.Is(err, ErrInvalidID) {
				t.Errorf("Encode(%d) error does not match ErrInvalidID", tt.id)
			}
			if err.Error() != tt.wantMsg {
				t.Errorf("Encode(%d) message = %q, want %q", tt.id, err.Error(), tt.wantMsg)
			}
		})
	}

	if errors.Is(ErrMissingID, ErrIDOutOfRange) || errors.Is(ErrIDOutOfRange, ErrMissingID) {
		t.Error("ErrMissingID and ErrIDOutOfRange must be distinct")
	}
}

func TestCodec_Encode_Bounds(t *testing.T) {
	for _, id := range []int{0, MaxID} {
		if _, err := (Codec{}).Encode(id); err != nil {
			t.Errorf("Encode(%d) error = %v", id, err)
		}
	}
}

func TestCodec_RoundTrip(t *testing.T) {
	var c Codec
	for id := 0; id <= MaxID; id++ {
		train, err := c.Encode(id)
		if err != nil {
			t.Fatalf("Encode(%d) error = %v", id, err)
		}
		if !c.Validate(train) {
			t.Fatalf("Validate(Encode(%d)) = false", id)
		}
		msg, ok := c.Decode(train)
		if !ok || msg.ID != id || msg.State != "on" {
			t.Fatalf("Decode(Encode(%d)) = %+v, %v", id, msg, ok)
		}
	}
}

func TestCodec_Repeats(t *testing.T) {
	if got := (Codec{}).Repeats(); got != 68 {
		t.Errorf("Repeats() = %d, want 68", got)
	}
}

func BenchmarkCodec_Decode(b *testing.B) {
	var c Codec
	train, _ := c.Encode(0x1A5A5)
	for b.Loop() {
		c.Decode(train)
	}
}

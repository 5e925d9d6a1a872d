package selectplus

import (
	"errors"
	"fmt"
)

// idError is an identifier validation failure. It matches both ErrInvalidID
// and its own specific sentinel under errors.Is.
type idError struct {
	kind error
	msg  string
}

func (e *idError) Error() string   { return e.msg }
func (e *idError) Unwrap() []error { return []error{ErrInvalidID, e.kind} }

var (
	// ErrInvalidID is the parent of every Encode argument error.
	ErrInvalidID = errors.New("selectplus: invalid id")

	// ErrMissingID is returned by Encode when the caller supplied no id.
	ErrMissingID error = &idError{
		kind: errors.New("missing id"),
		msg:  "insufficient number of arguments; provide id",
	}

	// ErrIDOutOfRange is returned by Encode when the id does not fit 17 bits.
	ErrIDOutOfRange error = &idError{
		kind: errors.New("id out of range"),
		msg:  fmt.Sprintf("invalid id range. id should be between 0 and %d", MaxID),
	}
)

var (
	// ErrStructure is returned by DecodeErr when the train is too short to
	// hold every bit cell.
	ErrStructure = errors.New("selectplus: train too short")

	// ErrClassification is returned by DecodeErr when a bit cell matches
	// neither the 0 nor the 1 pattern.
	ErrClassification = errors.New("selectplus: unclassifiable bit cell")
)

package pulse

import "errors"

// ErrInvalidTrain is returned when a textual pulse train cannot be parsed.
var ErrInvalidTrain = errors.New("pulse: invalid train")

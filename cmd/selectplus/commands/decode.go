package commands

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/nerrad567/gray-logic-rf/internal/bridges/rf433/pulse"
	"github.com/nerrad567/gray-logic-rf/internal/bridges/rf433/selectplus"
)

// DecodeOptions configures the decode command.
type DecodeOptions struct {
	JSON   bool
	Pulses string
}

// DecodeOutput is the JSON form of a decode attempt.
type DecodeOutput struct {
	Protocol string `json:"protocol"`
	Valid    bool   `json:"valid"`
	Decoded  bool   `json:"decoded"`
	ID       *int   `json:"id,omitempty"` // set only when Decoded; 0 is a valid id
	State    string `json:"state,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// RunDecode runs the decode command. Durations come from the arguments, or
// from stdin when there are none.
func RunDecode(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	opts, err := parseDecodeArgs(args, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitCommandError
	}

	text := opts.Pulses
	if text == "" {
		data, readErr := io.ReadAll(stdin)
		if readErr != nil {
			fmt.Fprintf(stderr, "Error: reading stdin: %v\n", readErr)
			return ExitCommandError
		}
		text = string(data)
	}

	train, err := pulse.Parse(text)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitCommandError
	}

	out := decodeTrain(train)
	if opts.JSON {
		if code := writeJSON(stdout, stderr, out); code != ExitSuccess {
			return code
		}
	} else {
		printDecode(stdout, out)
	}

	if !out.Decoded {
		return ExitNoMatch
	}
	return ExitSuccess
}

func decodeTrain(train pulse.Train) DecodeOutput {
	codec := selectplus.Codec{}
	out := DecodeOutput{Protocol: selectplus.ProtocolID, Valid: codec.Validate(train)}
	if !out.Valid {
		out.Reason = fmt.Sprintf("not a %s frame (%d pulses)", selectplus.ProtocolID, len(train))
		return out
	}

	msg, err := codec.DecodeErr(train)
	if err != nil {
		out.Reason = err.Error()
		return out
	}
	out.Decoded = true
	out.ID = &msg.ID
	out.State = msg.State
	return out
}

func printDecode(w io.Writer, out DecodeOutput) {
	if !out.Decoded {
		fmt.Fprintf(w, "no match: %s\n", out.Reason)
		return
	}
	fmt.Fprintf(w, "%s id=%d state=%s\n", out.Protocol, *out.ID, out.State)
}

func parseDecodeArgs(args []string, stderr io.Writer) (DecodeOptions, error) {
	fs := flag.NewFlagSet("decode", flag.ContinueOnError)
	fs.SetOutput(stderr)
	opts := DecodeOptions{}

	fs.BoolVar(&opts.JSON, "json", false, "Print JSON")

	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	opts.Pulses = strings.Join(fs.Args(), " ")
	return opts, nil
}

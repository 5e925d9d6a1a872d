package commands

import (
	"flag"
	"fmt"
	"io"
	"strconv"

	"github.com/nerrad567/gray-logic-rf/internal/bridges/rf433/protocol"
	"github.com/nerrad567/gray-logic-rf/internal/bridges/rf433/pulse"
	"github.com/nerrad567/gray-logic-rf/internal/bridges/rf433/selectplus"
)

// EncodeOptions configures the encode command.
type EncodeOptions struct {
	ID   string
	JSON bool
}

// EncodeOutput is the JSON form of an encoded frame.
type EncodeOutput struct {
	Protocol string      `json:"protocol"`
	ID       int         `json:"id"`
	Pulses   pulse.Train `json:"pulses"`
	Repeats  int         `json:"repeats"`
}

// RunEncode runs the encode command.
func RunEncode(args []string, stdout, stderr io.Writer) int {
	opts, err := parseEncodeArgs(args, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitCommandError
	}

	id, err := parseID(opts.ID)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitCommandError
	}

	codec := selectplus.Codec{}
	train, err := codec.Encode(id)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitCommandError
	}

	if opts.JSON {
		return writeJSON(stdout, stderr, EncodeOutput{
			Protocol: selectplus.ProtocolID,
			ID:       id,
			Pulses:   train,
			Repeats:  codec.Repeats(),
		})
	}
	fmt.Fprintln(stdout, train.String())
	return ExitSuccess
}

// parseID checks a textual id against the protocol's "id" option.
// An empty value maps to MissingID so the codec reports it.
func parseID(value string) (int, error) {
	if value == "" {
		return protocol.MissingID, nil
	}
	if err := selectplus.Descriptor().ValidateOption("id", value); err != nil {
		return 0, err
	}
	id, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("parsing id: %w", err)
	}
	return id, nil
}

func parseEncodeArgs(args []string, stderr io.Writer) (EncodeOptions, error) {
	fs := flag.NewFlagSet("encode", flag.ContinueOnError)
	fs.SetOutput(stderr)
	opts := EncodeOptions{}

	fs.StringVar(&opts.ID, "id", "", "Device id (0-131071)")
	fs.StringVar(&opts.ID, "i", "", "Device id (shorthand)")
	fs.BoolVar(&opts.JSON, "json", false, "Print JSON instead of raw durations")

	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if fs.NArg() > 0 {
		return opts, fmt.Errorf("unexpected argument %q", fs.Arg(0))
	}
	return opts, nil
}

package commands

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/nerrad567/gray-logic-rf/internal/bridges/rf433"
	"github.com/nerrad567/gray-logic-rf/internal/bridges/rf433/capture"
	"github.com/nerrad567/gray-logic-rf/internal/bridges/rf433/protocol"
)

// ReplayOptions configures the replay command.
type ReplayOptions struct {
	Receiver string
	Since    string
	File     string
}

// ReplaySummary counts replay outcomes.
type ReplaySummary struct {
	Records   int
	Decoded   int
	Rejected  int
	Unmatched int
}

// RunReplay decodes every train in a capture file with the built-in
// protocols and prints one line per record.
func RunReplay(args []string, stdout, stderr io.Writer) int {
	opts, err := parseReplayArgs(args, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitCommandError
	}
	if opts.File == "" {
		fmt.Fprintln(stderr, "Error: no capture file specified")
		return ExitCommandError
	}

	filter := capture.Filter{Receiver: opts.Receiver}
	if opts.Since != "" {
		if filter.Since, err = time.Parse(time.RFC3339, opts.Since); err != nil {
			fmt.Fprintf(stderr, "Error: --since: %v\n", err)
			return ExitCommandError
		}
	}

	r, err := capture.Open(opts.File, filter)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitCommandError
	}
	defer r.Close() //nolint:errcheck // read-only file

	summary, err := replay(r, rf433.BuiltinProtocols(), stdout)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitCommandError
	}

	fmt.Fprintf(stdout, "%d records: %d decoded, %d rejected, %d unmatched\n",
		summary.Records, summary.Decoded, summary.Rejected, summary.Unmatched)
	if summary.Decoded == 0 {
		return ExitNoMatch
	}
	return ExitSuccess
}

func replay(r *capture.Reader, protocols []protocol.Protocol, w io.Writer) (ReplaySummary, error) {
	var s ReplaySummary
	for {
		rec, err := r.Next()
		if errors.Is(err, io.EOF) {
			return s, nil
		}
		if err != nil {
			return s, err
		}
		s.Records++

		at := rec.Timestamp.UTC().Format(time.RFC3339Nano)
		outcome, protoID, msg := decodeRecord(rec, protocols)
		switch outcome {
		case capture.OutcomeDecoded:
			s.Decoded++
			fmt.Fprintf(w, "%s %s %s id=%d state=%s\n", at, rec.Receiver, protoID, msg.ID, msg.State)
		case capture.OutcomeRejected:
			s.Rejected++
			fmt.Fprintf(w, "%s %s %s rejected (%d pulses)\n", at, rec.Receiver, protoID, len(rec.Pulses))
		default:
			s.Unmatched++
			fmt.Fprintf(w, "%s %s unmatched (%d pulses)\n", at, rec.Receiver, len(rec.Pulses))
		}
	}
}

func decodeRecord(rec capture.Record, protocols []protocol.Protocol) (capture.Outcome, string, protocol.Message) {
	outcome := capture.OutcomeUnmatched
	var protoID string
	for _, p := range protocols {
		d := p.Descriptor()
		if !d.AcceptsLength(len(rec.Pulses)) || !p.Validate(rec.Pulses) {
			continue
		}
		outcome, protoID = capture.OutcomeRejected, d.ID
		if msg, ok := p.DecodeMessage(rec.Pulses); ok {
			return capture.OutcomeDecoded, d.ID, msg
		}
	}
	return outcome, protoID, protocol.Message{}
}

func parseReplayArgs(args []string, stderr io.Writer) (ReplayOptions, error) {
	fs := flag.NewFlagSet("replay", flag.ContinueOnError)
	fs.SetOutput(stderr)
	opts := ReplayOptions{}

	fs.StringVar(&opts.Receiver, "receiver", "", "Only replay trains from this receiver")
	fs.StringVar(&opts.Since, "since", "", "Only replay trains at or after this RFC3339 time")

	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if fs.NArg() > 0 {
		opts.File = fs.Arg(0)
	}
	return opts, nil
}

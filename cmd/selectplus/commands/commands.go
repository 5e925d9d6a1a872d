// Package commands implements the selectplus subcommands. Each Run function
// takes its arguments and output streams and returns a process exit code.
package commands

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/nerrad567/gray-logic-rf/internal/bridges/rf433/selectplus"
)

// Exit codes.
const (
	ExitSuccess      = 0
	ExitCommandError = 1

	// ExitNoMatch is returned by decode and replay when no frame decoded.
	ExitNoMatch = 2
)

// PrintUsage writes the top-level usage with the protocol's option help.
func PrintUsage(w io.Writer) {
	fmt.Fprintln(w, `selectplus - SelectPlus doorbell RF433 tool

Usage:
  selectplus <command> [options]

Commands:
  encode     Print the pulse train for an id
  decode     Decode a pulse train given as arguments or on stdin
  send       Ring a doorbell through the MQTT transmitter
  replay     Decode every train in a capture file
  describe   Print the protocol descriptor as JSON
  shell      Interactive prompt for the commands above
  help       Show this help message

Protocol options:`)
	fmt.Fprint(w, selectplus.Descriptor().Help())
	fmt.Fprintln(w, `
Examples:
  selectplus encode --id 4242
  selectplus decode 372 1094 372 ... 6536
  selectplus send --device front-door-bell
  selectplus replay --receiver rx-hall data/rf433-capture.cbor`)
}

// RunDescribe prints the protocol descriptor.
func RunDescribe(args []string, stdout, stderr io.Writer) int {
	if len(args) > 0 {
		fmt.Fprintf(stderr, "Error: describe takes no arguments\n")
		return ExitCommandError
	}
	return writeJSON(stdout, stderr, selectplus.Descriptor())
}

func writeJSON(stdout, stderr io.Writer, v any) int {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitCommandError
	}
	fmt.Fprintln(stdout, string(data))
	return ExitSuccess
}

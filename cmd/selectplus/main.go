// selectplus is a command line tool for the SelectPlus doorbell RF433 protocol:
// it encodes and decodes pulse trains, rings a doorbell through the bridge's
// transmitter, replays capture files and offers an interactive shell.
package main

import (
	"fmt"
	"os"

	"github.com/nerrad567/gray-logic-rf/cmd/selectplus/commands"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) < 1 {
		commands.PrintUsage(os.Stderr)
		return commands.ExitCommandError
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "encode":
		return commands.RunEncode(rest, os.Stdout, os.Stderr)
	case "decode":
		return commands.RunDecode(rest, os.Stdin, os.Stdout, os.Stderr)
	case "send":
		return commands.RunSend(rest, os.Stdout, os.Stderr)
	case "replay":
		return commands.RunReplay(rest, os.Stdout, os.Stderr)
	case "describe":
		return commands.RunDescribe(rest, os.Stdout, os.Stderr)
	case "shell":
		return commands.RunShell(rest, os.Stdout, os.Stderr)
	case "help", "-h", "--help":
		commands.PrintUsage(os.Stdout)
		return commands.ExitSuccess
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		commands.PrintUsage(os.Stderr)
		return commands.ExitCommandError
	}
}

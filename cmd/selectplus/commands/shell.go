package commands

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
)

// RunShell starts an interactive prompt that accepts the other subcommands
// without the program name, e.g. "encode -i 4242" or "decode 372 1094 ...".
func RunShell(args []string, stdout, stderr io.Writer) int {
	if len(args) > 0 {
		fmt.Fprintf(stderr, "Error: shell takes no arguments\n")
		return ExitCommandError
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "selectplus> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		HistoryLimit:    200,
		Stdout:          stdout,
		Stderr:          stderr,
	})
	if err != nil {
		fmt.Fprintf(stderr, "Error: starting shell: %v\n", err)
		return ExitCommandError
	}
	defer rl.Close()

	printShellHelp(rl.Stdout())
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if err != nil {
			return ExitSuccess
		}
		if quit := execShellLine(line, rl.Stdout(), rl.Stderr()); quit {
			return ExitSuccess
		}
	}
}

// execShellLine runs one shell line and reports whether the shell should exit.
// Exit codes of the subcommands are shown but never end the session.
func execShellLine(line string, stdout, stderr io.Writer) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}

	cmd, args := strings.ToLower(fields[0]), fields[1:]
	code := ExitSuccess
	switch cmd {
	case "encode", "e":
		code = RunEncode(args, stdout, stderr)
	case "decode", "d":
		if len(args) == 0 {
			fmt.Fprintln(stderr, "Error: decode needs pulse durations")
			return false
		}
		code = RunDecode(args, strings.NewReader(""), stdout, stderr)
	case "send", "s":
		code = RunSend(args, stdout, stderr)
	case "replay":
		code = RunReplay(args, stdout, stderr)
	case "describe":
		code = RunDescribe(args, stdout, stderr)
	case "help", "?":
		printShellHelp(stdout)
	case "quit", "exit", "q":
		return true
	default:
		fmt.Fprintf(stderr, "Unknown command: %s (type 'help' for commands)\n", cmd)
		return false
	}

	if code != ExitSuccess {
		fmt.Fprintf(stderr, "(exit %d)\n", code)
	}
	return false
}

func printShellHelp(w io.Writer) {
	fmt.Fprintln(w, `Commands:
  encode|e -i <id> [--json]        Print the pulse train for an id
  decode|d <durations...> [--json] Decode a pulse train
  send|s --device <id> | -i <id>   Ring a doorbell through the transmitter
  replay <file>                    Decode a capture file
  describe                         Print the protocol descriptor
  help|?                           Show this help
  quit|exit|q                      Leave the shell`)
}

package cli

import (
	"fmt"
	"io"

	"github.com/nlterm/nlterm/internal/session"
)

// timeoutExitCode mirrors coreutils timeout(1) for forcibly terminated
// commands, which have no exit status of their own.
const timeoutExitCode = 124

// renderRecord writes a finished record's output to the terminal and returns
// the exit code the process should propagate.
func renderRecord(stdout, stderr io.Writer, rec *session.Record) int {
	if rec.Outcome == "blocked" {
		fmt.Fprintf(stderr, "nlterm: blocked: %s (rule %s)\n", rec.Reason, rec.Rule)
		return 1
	}
	if rec.Error != "" {
		fmt.Fprintf(stderr, "nlterm: %s\n", rec.Error)
		return 2
	}

	io.WriteString(stdout, rec.Stdout)
	io.WriteString(stderr, rec.Stderr)

	if rec.TimedOut {
		fmt.Fprintf(stderr, "nlterm: command timed out after %.1fs\n", rec.DurationMs/1000.0)
		return timeoutExitCode
	}
	if rec.ExitCode != nil {
		return *rec.ExitCode
	}
	return 0
}

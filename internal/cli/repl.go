package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nlterm/nlterm/internal/pipeline"
	"github.com/nlterm/nlterm/internal/session"
)

const replHelp = `Type a request in plain language and it is translated into one shell
command, shown, and run after confirmation. Lines starting with ! run
directly without translation. Everything, translated or typed, passes
through the safety filter first.

  !<command>   run a shell command directly
  history      show this session's records
  summary      show this session's counts
  help         show this help
  exit         leave the session`

func newReplCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "repl",
		Aliases: []string{"shell"},
		Short:   "Interactive session: natural-language requests and direct commands",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pipe, log, err := a.openPipeline()
			if err != nil {
				return err
			}
			defer log.Close()

			return runRepl(cmd, a, pipe, log)
		},
	}
}

func runRepl(cmd *cobra.Command, a *app, pipe *pipeline.Pipeline, log session.Log) error {
	in := cmd.InOrStdin()
	out := cmd.OutOrStdout()
	errOut := cmd.ErrOrStderr()

	fmt.Fprintln(out, "nlterm interactive session. Type help for commands, exit to leave.")

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "nlterm> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch line {
		case "exit", "quit":
			return nil
		case "help":
			fmt.Fprintln(out, replHelp)
			continue
		case "history":
			printHistory(out, log, pipe.SessionID(), 20)
			continue
		case "summary":
			printSummary(out, pipe)
			continue
		}

		text := line
		origin := session.OriginDirect
		if after, direct := strings.CutPrefix(line, "!"); direct {
			text = strings.TrimSpace(after)
			if text == "" {
				continue
			}
		} else {
			command, err := a.translator().Translate(cmd.Context(), line)
			if err != nil {
				fmt.Fprintf(errOut, "nlterm: %v\n", err)
				continue
			}
			fmt.Fprintf(out, "$ %s\n", command)
			if !confirm(scanner, out) {
				fmt.Fprintln(out, "cancelled")
				continue
			}
			text = command
			origin = session.OriginTranslated
		}

		rec, err := pipe.Submit(cmd.Context(), pipeline.Request{Text: text, Origin: origin})
		if err != nil {
			return err
		}
		renderRecord(out, errOut, rec)
	}
}

func printHistory(out io.Writer, log session.Log, sessionID string, limit int) {
	records, err := log.Query(session.Filter{SessionID: sessionID})
	if err != nil {
		fmt.Fprintf(out, "history unavailable: %v\n", err)
		return
	}
	if limit > 0 && len(records) > limit {
		records = records[len(records)-limit:]
	}
	if len(records) == 0 {
		fmt.Fprintln(out, "no records yet")
		return
	}
	for _, r := range records {
		fmt.Fprintln(out, formatRecordLine(&r))
	}
}

func printSummary(out io.Writer, pipe *pipeline.Pipeline) {
	sum, err := pipe.Summary()
	if err != nil {
		fmt.Fprintf(out, "summary unavailable: %v\n", err)
		return
	}
	fmt.Fprintf(out, "total %d  approved %d  blocked %d  timed out %d  errors %d\n",
		sum.Total, sum.Approved, sum.Blocked, sum.TimedOut, sum.Errors)
}

// formatRecordLine is the one-line history rendering: sequence, verdict, and
// the command text.
func formatRecordLine(r *session.Record) string {
	status := "ok"
	switch {
	case r.Outcome == "blocked":
		status = "blocked (" + r.Reason + ")"
	case r.Error != "":
		status = "error"
	case r.TimedOut:
		status = "timeout"
	case r.ExitCode != nil && *r.ExitCode != 0:
		status = fmt.Sprintf("exit %d", *r.ExitCode)
	}
	return fmt.Sprintf("%4d  %s  [%s]  %s", r.Seq, r.Time.Format("15:04:05"), status, r.Text)
}

package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nlterm/nlterm/internal/pipeline"
	"github.com/nlterm/nlterm/internal/session"
)

func newAskCmd(a *app) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "ask <request...>",
		Short: "Translate a natural-language request into a shell command and run it",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			request := joinArgs(args)
			if request == "" {
				return errors.New("usage: nlterm ask <request>")
			}

			command, err := a.translator().Translate(cmd.Context(), request)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "$ %s\n", command)
			if !yes && !confirm(bufio.NewScanner(cmd.InOrStdin()), cmd.OutOrStdout()) {
				fmt.Fprintln(cmd.OutOrStdout(), "cancelled")
				return nil
			}

			pipe, log, err := a.openPipeline()
			if err != nil {
				return err
			}
			defer log.Close()

			rec, err := pipe.Submit(cmd.Context(), pipeline.Request{
				Text:   command,
				Origin: session.OriginTranslated,
			})
			if err != nil {
				return err
			}

			if code := renderRecord(cmd.OutOrStdout(), cmd.ErrOrStderr(), rec); code != 0 {
				return &ExitError{Code: code}
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Run the translated command without confirmation")
	return cmd
}

// confirm asks before running a translated command. The translation is only a
// guess at the user's intent; they see it before it runs.
func confirm(scanner *bufio.Scanner, out io.Writer) bool {
	fmt.Fprint(out, "Run? [y/N] ")
	if !scanner.Scan() {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(scanner.Text()))
	return answer == "y" || answer == "yes"
}

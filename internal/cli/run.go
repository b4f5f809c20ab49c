package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/nlterm/nlterm/internal/pipeline"
	"github.com/nlterm/nlterm/internal/session"
)

func newRunCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "run -- <command> [args...]",
		Short: "Run one shell command through the safety filter",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			text := joinArgs(args)
			if text == "" {
				return errors.New("usage: nlterm run -- <command> [args...]")
			}

			pipe, log, err := a.openPipeline()
			if err != nil {
				return err
			}
			defer log.Close()

			rec, err := pipe.Submit(cmd.Context(), pipeline.Request{
				Text:   text,
				Origin: session.OriginDirect,
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
}

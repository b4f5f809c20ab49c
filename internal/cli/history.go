package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nlterm/nlterm/internal/session"
)

func newHistoryCmd(a *app) *cobra.Command {
	var (
		limit     int
		blocked   bool
		approved  bool
		errored   bool
		sessionID string
		since     string
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded commands across all sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if blocked && approved {
				return errors.New("use either --blocked or --approved, not both")
			}

			log, err := a.cfg.OpenLog()
			if err != nil {
				return fmt.Errorf("open session log: %w", err)
			}
			defer log.Close()

			f := session.Filter{SessionID: sessionID, Errored: errored}
			if blocked {
				f.Outcome = "blocked"
			}
			if approved {
				f.Outcome = "approved"
			}
			if since != "" {
				d, err := time.ParseDuration(since)
				if err != nil {
					return fmt.Errorf("parse --since: %w", err)
				}
				f.Since = time.Now().UTC().Add(-d)
			}

			records, err := log.Query(f)
			if err != nil {
				return err
			}
			if limit > 0 && len(records) > limit {
				records = records[len(records)-limit:]
			}

			if len(records) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no records")
				return nil
			}
			for _, r := range records {
				if asJSON {
					data, _ := json.MarshalIndent(r, "", "  ")
					fmt.Fprintf(cmd.OutOrStdout(), "%s\n", data)
					continue
				}
				fmt.Fprintln(cmd.OutOrStdout(), formatRecordLine(&r))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of most recent records to show (0 = all)")
	cmd.Flags().BoolVar(&blocked, "blocked", false, "Only blocked commands")
	cmd.Flags().BoolVar(&approved, "approved", false, "Only approved commands")
	cmd.Flags().BoolVar(&errored, "errored", false, "Only commands whose shell failed to start")
	cmd.Flags().StringVar(&sessionID, "session", "", "Only records from the given session id")
	cmd.Flags().StringVar(&since, "since", "", "Only records newer than this duration (for example: 24h)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print full records as JSON")
	return cmd
}

func newSummaryCmd(a *app) *cobra.Command {
	var sessionID string

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show aggregate counts over the session log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			log, err := a.cfg.OpenLog()
			if err != nil {
				return fmt.Errorf("open session log: %w", err)
			}
			defer log.Close()

			sum, err := log.Summary(sessionID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Total:     %d\n", sum.Total)
			fmt.Fprintf(out, "Approved:  %d\n", sum.Approved)
			fmt.Fprintf(out, "Blocked:   %d\n", sum.Blocked)
			fmt.Fprintf(out, "Timed out: %d\n", sum.TimedOut)
			fmt.Fprintf(out, "Errors:    %d\n", sum.Errors)
			return nil
		},
	}

	cmd.Flags().StringVar(&sessionID, "session", "", "Restrict counts to the given session id")
	return cmd
}

func newVerifyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Verify the session log's hash chain",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.cfg.Session.Backend == "sqlite" {
				return errors.New("verify supports the jsonl backend only")
			}
			if err := session.Verify(a.cfg.SessionPath()); err != nil {
				return fmt.Errorf("session log verification FAILED: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "session log integrity verified")
			return nil
		},
	}
}

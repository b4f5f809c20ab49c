// Package cli wires configuration, logging, and the pipeline into the nlterm
// command tree.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/nlterm/nlterm/internal/classify"
	"github.com/nlterm/nlterm/internal/config"
	"github.com/nlterm/nlterm/internal/execute"
	"github.com/nlterm/nlterm/internal/pipeline"
	"github.com/nlterm/nlterm/internal/session"
	"github.com/nlterm/nlterm/internal/translate"
)

// ExitError carries a process exit code out of a command without printing
// anything further: the command's own output is sufficient.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit status %d", e.Code)
}

func (e *ExitError) Unwrap() error { return e.Err }

// app holds the resolved runtime dependencies shared by subcommands. They are
// populated lazily in PersistentPreRunE so flags are parsed first.
type app struct {
	configPath string
	cfg        *config.Config
	logger     zerolog.Logger
}

func (a *app) setup() error {
	var err error
	if a.configPath != "" {
		a.cfg, err = config.LoadFrom(a.configPath)
	} else {
		a.cfg, err = config.Load()
	}
	if err != nil {
		return err
	}

	level, err := zerolog.ParseLevel(a.cfg.Log.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	a.logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(level).
		With().Timestamp().Logger()

	return nil
}

// openPipeline builds the classify → execute → log path from the loaded
// config. The caller owns the returned log and must Close it.
func (a *app) openPipeline() (*pipeline.Pipeline, session.Log, error) {
	log, err := a.cfg.OpenLog()
	if err != nil {
		return nil, nil, fmt.Errorf("open session log: %w", err)
	}

	exec := execute.New(
		execute.WithShell(a.cfg.Shell),
		execute.WithWorkdir(a.cfg.Workdir),
		execute.WithTimeout(a.cfg.Timeout()),
	)

	pipe := pipeline.New(
		classify.New(classify.DefaultRules()),
		exec,
		log,
		pipeline.WithLogger(a.logger),
	)
	return pipe, log, nil
}

func (a *app) translator() *translate.Client {
	return &translate.Client{
		Model:   a.cfg.Translate.Model,
		Timeout: a.cfg.Translate.TimeoutDuration(),
	}
}

// NewRootCommand builds the nlterm command tree.
func NewRootCommand(version string) *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:     "nlterm",
		Short:   "Run shell commands, typed or translated from natural language, behind a safety filter",
		Version: version,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return a.setup()
		},
	}

	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true
	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", "", "Config file path (default "+config.ConfigPath()+")")

	rootCmd.AddCommand(
		newRunCmd(a),
		newAskCmd(a),
		newReplCmd(a),
		newHistoryCmd(a),
		newSummaryCmd(a),
		newVerifyCmd(a),
		newMCPCmd(a, version),
	)

	return rootCmd
}

// Execute runs the root command and maps the error to a process exit code.
func Execute(ctx context.Context, version string) int {
	err := NewRootCommand(version).ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		if exitErr.Err != nil {
			fmt.Fprintf(os.Stderr, "nlterm: %v\n", exitErr.Err)
		}
		return exitErr.Code
	}
	fmt.Fprintf(os.Stderr, "nlterm: %v\n", err)
	return 1
}

func joinArgs(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

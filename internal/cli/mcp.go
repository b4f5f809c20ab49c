package cli

import (
	"github.com/spf13/cobra"

	"github.com/nlterm/nlterm/internal/mcpserver"
)

func newMCPCmd(a *app, version string) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the pipeline to agents over MCP on stdin/stdout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pipe, log, err := a.openPipeline()
			if err != nil {
				return err
			}
			defer log.Close()

			return mcpserver.New(pipe, log, version).ServeStdio()
		},
	}
}

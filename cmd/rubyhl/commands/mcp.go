package commands

import (
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/rubyhl/internal/mcp"
	"github.com/Sumatoshi-tech/rubyhl/pkg/observability"
)

// NewMCPCommand creates the MCP server command.
func NewMCPCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server for AI agent integration",
		Long: `Start a Model Context Protocol (MCP) server on stdio transport.

The server exposes:
  - ruby_local_variables: local variable occurrences of a Ruby program, grouped by name
  - ruby_sexp: the Ripper-style s-expression of a Ruby program`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := loadEnv(cmd, observability.ModeMCP)
			if err != nil {
				return err
			}
			defer e.close()

			stopMetrics, err := e.serveMetrics(cmd.Context())
			if err != nil {
				return err
			}
			defer stopMetrics()

			srv := mcp.NewServer(mcp.ServerDeps{
				Logger:  e.logger,
				Metrics: e.metrics,
				Tracer:  e.providers.Tracer,
				Extract: &e.cfg.Extract,
				Cache:   e.cache,
			})

			return srv.Run(cmd.Context())
		},
	}
}

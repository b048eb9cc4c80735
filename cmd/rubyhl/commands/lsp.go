package commands

import (
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/rubyhl/pkg/lsp"
	"github.com/Sumatoshi-tech/rubyhl/pkg/observability"
)

// NewLSPCommand creates the lsp subcommand.
func NewLSPCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "lsp",
		Short: "Start the language server (stdio)",
		Long: `Start a language server on stdio. documentHighlight marks every
occurrence of the local variable under the cursor; hover reports how often
and where it occurs. Syntax errors are published as diagnostics.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := loadEnv(cmd, observability.ModeLSP)
			if err != nil {
				return err
			}
			defer e.close()

			stopMetrics, err := e.serveMetrics(cmd.Context())
			if err != nil {
				return err
			}
			defer stopMetrics()

			srv := lsp.NewServer(e.service,
				lsp.WithLogger(e.logger),
				lsp.WithMetrics(e.metrics),
				lsp.WithWarnings(e.cfg.Extract.ShowWarnings),
			)

			return srv.Run()
		},
	}
}

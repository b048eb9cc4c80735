package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/rubyhl/pkg/observability"
)

// NewTreeCommand creates the tree subcommand.
func NewTreeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tree [file|-]",
		Short: "Print the Ripper-style s-expression of a Ruby program",
		Long: `Print the tree the extractor walks, in the format of Ruby's
"p Ripper.sexp(src)", whichever backend produced it.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd, observability.ModeCLI)
			if err != nil {
				return err
			}
			defer e.close()

			path := stdinPath
			if len(args) == 1 {
				path = args[0]
			}

			src, err := readInput(path, cmd.InOrStdin())
			if err != nil {
				return err
			}

			tree, err := e.provider.Tree(cmd.Context(), src)
			if err != nil {
				return fmt.Errorf("%s: %w", e.provider.Name(), err)
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), tree.String())
			if err != nil {
				return fmt.Errorf("write: %w", err)
			}

			return nil
		},
	}
}

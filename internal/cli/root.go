// Package cli implements the pdc command line tool: validating flow chart definitions,
// listing their questions and calculating the public domain status of items.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/liamcoop/pdc/internal/logger"
)

// Version is injected at build time via -ldflags
var Version = "dev"

type rootOptions struct {
	chartsDir string
	logLevel  string
	noColor   bool
}

// NewRootCommand creates the root command with all subcommands attached
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "pdc",
		Short: "Public domain calculator",
		Long: `pdc decides whether a cultural artifact is in the public domain by walking
a jurisdiction's flow chart of yes/no questions. Questions the item metadata
can answer are answered automatically; the rest come from --answer flags or,
with --interactive, from the terminal.`,
		Version:      Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := logger.ParseLevel(opts.logLevel)
			if err != nil {
				return err
			}
			logger.SetOutput(cmd.ErrOrStderr())
			logger.SetLevel(level)
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.chartsDir, "charts", "charts", "Directory holding flow chart definitions")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "Log level (trace, debug, info, warn, error)")
	cmd.PersistentFlags().BoolVar(&opts.noColor, "no-color", false, "Disable colored output")

	cmd.AddCommand(newValidateCommand(opts))
	cmd.AddCommand(newQuestionsCommand(opts))
	cmd.AddCommand(newCalculateCommand(opts))

	return cmd
}

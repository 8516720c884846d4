// Package cli implements the goexpect command line: offline verification
// of recorded message logs against filter files.
package cli

import (
	"errors"
	"fmt"
	"slices"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPaths []string
	Format      string // "json" | "text"
	Verbose     bool
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "goexpect",
		Short: "Verify recorded message logs against filters",
		Long: `goexpect replays a JSON-lines message log through a checkpointed stream
and resolves filters against it the same way a live test would.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringSliceVarP(&opts.ConfigPaths, "config", "c", nil, "configuration file, repeat to layer (weakest first)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging on stderr")

	cmd.AddCommand(NewWaitCommand(opts))
	cmd.AddCommand(NewCountCommand(opts))
	cmd.AddCommand(NewEvalCommand(opts))

	return cmd
}

// ReportedError marks a failure whose details were already written to the
// command output.
type ReportedError struct {
	Err error
}

func (e *ReportedError) Error() string { return e.Err.Error() }
func (e *ReportedError) Unwrap() error { return e.Err }

// IsReported reports whether err was already rendered for the user.
func IsReported(err error) bool {
	var reported *ReportedError
	return errors.As(err, &reported)
}

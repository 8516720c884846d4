package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// CountResult is the structured result of the count command.
type CountResult struct {
	Status   string   `json:"status"`
	Count    int      `json:"count"`
	Expected string   `json:"expected"`
	Bugs     []string `json:"bugs,omitempty"`
}

// NewCountCommand creates the count command.
func NewCountCommand(rootOpts *RootOptions) *cobra.Command {
	flags := &streamFlags{}
	var expected string
	cmd := &cobra.Command{
		Use:   "count",
		Short: "Count messages of the log matching a filter",
		Long: `Accept every message of the log that matches the filter without failed
fields and check the total against a count specification such as 3,
>=2, [1..4] or a known-bug expectation like Expected(2).Bug("dup").Actual(3).`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCount(cmd, rootOpts, flags, expected)
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVarP(&expected, "expect", "e", "", "count specification")
	_ = cmd.MarkFlagRequired("expect")
	return cmd
}

func runCount(cmd *cobra.Command, opts *RootOptions, flags *streamFlags, expected string) error {
	rt, err := loadRuntime(opts, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer rt.Close()
	defer rt.writeMetrics(cmd.ErrOrStderr())

	out := newOutput(opts, "count", cmd.OutOrStdout(), cmd.ErrOrStderr())
	spec, err := rt.engine.BuildCountFilter(expected, nil)
	if err != nil {
		return out.failure(nil, err)
	}
	filter, err := rt.loadFilter(flags.filterPath)
	if err != nil {
		return out.failure(nil, err)
	}
	_, cursor, err := rt.replay(cmd.Context(), flags)
	if err != nil {
		return out.failure(nil, err)
	}

	resolution, err := rt.orchestrator().CountMessages(cmd.Context(), cursor, filter, spec, rt.timeout(flags))
	if err != nil {
		return out.failure(CountResult{Status: "mismatch", Expected: spec.Condition()}, err)
	}

	result := CountResult{
		Status:   resolution.Status.String(),
		Count:    resolution.Count,
		Expected: spec.Condition(),
	}
	if resolution.KnownBug != nil {
		result.Bugs = resolution.KnownBug.Bugs()
	}
	return out.success(result, fmt.Sprintf("%s: %d message(s), expected %s", result.Status, result.Count, result.Expected))
}

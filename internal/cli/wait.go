package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-expect/message"
	"github.com/goliatone/go-expect/wait"
)

// WaitResult is the structured result of the wait command.
type WaitResult struct {
	Status     string   `json:"status"`
	Message    string   `json:"message,omitempty"`
	Bugs       []string `json:"bugs,omitempty"`
	Checkpoint uint64   `json:"checkpoint,omitempty"`
}

// NewWaitCommand creates the wait command.
func NewWaitCommand(rootOpts *RootOptions) *cobra.Command {
	flags := &streamFlags{}
	cmd := &cobra.Command{
		Use:   "wait",
		Short: "Resolve a filter to exactly one message of the log",
		Long: `Scan the log from the consumer's checkpoint for a message matching the
filter. An exact match stops the scan; otherwise the single surviving
candidate decides between success, a known bug and a mismatch.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWait(cmd, rootOpts, flags)
		},
	}
	flags.register(cmd)
	return cmd
}

func runWait(cmd *cobra.Command, opts *RootOptions, flags *streamFlags) error {
	rt, err := loadRuntime(opts, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer rt.Close()
	defer rt.writeMetrics(cmd.ErrOrStderr())

	out := newOutput(opts, "wait", cmd.OutOrStdout(), cmd.ErrOrStderr())
	filter, err := rt.loadFilter(flags.filterPath)
	if err != nil {
		return out.failure(nil, err)
	}
	_, cursor, err := rt.replay(cmd.Context(), flags)
	if err != nil {
		return out.failure(nil, err)
	}

	resolution, err := rt.orchestrator().WaitForMessage(cmd.Context(), cursor, filter, rt.timeout(flags))
	if err != nil {
		return out.failure(WaitResult{Status: "mismatch"}, err)
	}

	result := WaitResult{
		Status:  resolution.Status.String(),
		Message: message.Format(resolution.Message),
	}
	if resolution.KnownBug != nil {
		result.Bugs = resolution.KnownBug.Bugs()
	}
	if cp, ok := cursor.Checkpoint(); ok {
		result.Checkpoint = cp.Seq
	}

	text := fmt.Sprintf("%s %s", result.Status, result.Message)
	if resolution.Status == wait.StatusKnownBug {
		text += " (known bugs: " + strings.Join(result.Bugs, ", ") + ")"
	}
	return out.success(result, text)
}

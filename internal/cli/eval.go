package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-expect"
)

// EvalResult is the structured result of the eval command.
type EvalResult struct {
	Engine string `json:"engine"`
	Kind   string `json:"kind"`
	Value  string `json:"value"`
}

// NewEvalCommand creates the eval command.
func NewEvalCommand(rootOpts *RootOptions) *cobra.Command {
	var vars map[string]string
	cmd := &cobra.Command{
		Use:   "eval <condition>",
		Short: "Evaluate a condition with the configured engine",
		Long: `Evaluate a condition once, the way a filter is built from it, and print
how it classifies. Variables are passed as --var name=value; values are
read as YAML scalars so numbers and booleans keep their type.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEval(cmd, rootOpts, args[0], vars)
		},
	}
	cmd.Flags().StringToStringVar(&vars, "var", nil, "variable binding name=value")
	return cmd
}

func runEval(cmd *cobra.Command, opts *RootOptions, condition string, vars map[string]string) error {
	rt, err := loadRuntime(opts, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer rt.Close()
	defer rt.writeMetrics(cmd.ErrOrStderr())

	out := newOutput(opts, "eval", cmd.OutOrStdout(), cmd.ErrOrStderr())
	bindings, err := parseBindings(vars)
	if err != nil {
		return out.failure(nil, err)
	}
	value, err := rt.engine.EvaluateText(condition, bindings)
	if err != nil {
		return out.failure(nil, err)
	}

	result := EvalResult{
		Engine: rt.engine.Name(),
		Kind:   expect.Classify(value).String(),
		Value:  fmt.Sprint(value),
	}
	return out.success(result, fmt.Sprintf("%s %s", result.Kind, result.Value))
}

func parseBindings(vars map[string]string) (expect.Bindings, error) {
	bindings := make(expect.Bindings, len(vars))
	for name, raw := range vars {
		var value any
		if err := yaml.Unmarshal([]byte(raw), &value); err != nil {
			return nil, fmt.Errorf("var %s: %w", name, err)
		}
		bindings[name] = value
	}
	return bindings, nil
}

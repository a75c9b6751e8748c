package cmd

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/layerlint/internal/observability"
	"github.com/xkilldash9x/layerlint/internal/rules"
)

// newRulesCmd creates the `rules` command, which lists the rule catalogue.
func newRulesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "Lists the available rules and whether they are enabled",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := getConfigFromContext(cmd.Context())
			if err != nil {
				return err
			}
			registry := rules.DefaultRegistry(observability.GetLogger())
			return runRules(cmd.OutOrStdout(), registry, cfg.Rules().Disabled)
		},
	}
}

func runRules(out io.Writer, registry *rules.Registry, disabled []string) error {
	enabled, err := registry.Enabled(disabled)
	if err != nil {
		return fmt.Errorf("invalid rules.disabled: %w", err)
	}
	on := make(map[string]bool, len(enabled))
	for _, r := range enabled {
		on[r.Name()] = true
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, r := range registry.All() {
		state := "on"
		if !on[r.Name()] {
			state = "off"
		}
		var flags []string
		if r.NeedsPatches() {
			flags = append(flags, "patched")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.Name(), state, strings.Join(flags, ","), r.Description())
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("failed to print rules: %w", err)
	}
	fmt.Fprintf(out, "%d rules, %d enabled\n", len(registry.All()), len(enabled))
	return nil
}

package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newProvidersCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List the configured backend providers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "PROVIDER\tDEFAULT MODEL\tAPI KEY ENV")
			for _, p := range a.registry.Providers() {
				marker := ""
				if p.Name == a.cfg.Provider {
					marker = " *"
				}
				fmt.Fprintf(tw, "%s%s\t%s\t%s\n", p.Name, marker, p.DefaultModel, p.APIKeyEnv)
			}
			return tw.Flush()
		},
	}
}

package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"weaver/internal/deps"
	"weaver/internal/generator"
	"weaver/internal/schema"
)

func newEstimateCmd(a *app) *cobra.Command {
	var (
		typesFile string
		count     int
	)
	cmd := &cobra.Command{
		Use:   "estimate",
		Short: "Show generation order and relative cost without calling the backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cat, err := schema.LoadFile(typesFile)
			if err != nil {
				return err
			}
			order, err := (&deps.Resolver{Strict: a.cfg.StrictCycles, Logger: a.log}).Order(cat)
			if err != nil {
				return err
			}
			cost := generator.EstimateCost(cat, count)

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "STEP\tTYPE\tDEPENDS ON\tCOST")
			total := 0
			for i, name := range order {
				td, _ := cat.Get(name)
				requires := deps.DetectDependencies(td, cat.Has)
				dependsOn := "-"
				if len(requires) > 0 {
					dependsOn = fmt.Sprint(requires)
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\t%d\n", i+1, name, dependsOn, cost[name])
				total += cost[name]
			}
			fmt.Fprintf(tw, "\t\ttotal\t%d\n", total)
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&typesFile, "types", "", "YAML or JSON descriptor file")
	cmd.Flags().IntVarP(&count, "count", "n", 1, "records per type")
	_ = cmd.MarkFlagRequired("types")
	return cmd
}

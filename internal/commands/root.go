// Package commands holds the weaver CLI.
package commands

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the weaver root command.
func NewRootCmd() *cobra.Command {
	return newRootCmd(&app{})
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:               "weaver",
		Short:             "Generate schema-conformant synthetic records with an LLM",
		SilenceUsage:      true,
		PersistentPreRunE: a.preRun,
	}
	root.PersistentFlags().StringVar(&a.envFile, "env-file", "", "dotenv file to load (default .env)")
	root.PersistentFlags().StringVar(&a.provider, "provider", "", "backend provider (gemini, openai, openrouter)")
	root.PersistentFlags().StringVar(&a.model, "model", "", "backend model")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "info", "debug, info, warn or error")
	root.PersistentFlags().BoolVar(&a.strict, "strict-cycles", false, "fail on dependency cycles instead of falling back to declaration order")
	root.PersistentFlags().StringVar(&a.traceDir, "trace-dir", "", "write every prompt and raw response under this directory")

	root.AddCommand(
		newGenerateCmd(a),
		newRelatedCmd(a),
		newServeCmd(a),
		newProvidersCmd(a),
		newEstimateCmd(a),
	)
	return root
}

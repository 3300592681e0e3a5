package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"weaver/internal/export"
	"weaver/internal/generator"
	"weaver/internal/prompt"
	"weaver/internal/schema"
)

type relatedOptions struct {
	typesFile   string
	prompt      string
	promptsFile string
	count       int
	only        []string
	export      string
	out         string
	format      string
}

func newRelatedCmd(a *app) *cobra.Command {
	o := &relatedOptions{}
	cmd := &cobra.Command{
		Use:   "related",
		Short: "Generate every type of a descriptor file with cross-type correlation",
		Example: `  weaver related --types shop.yaml --count 5
  weaver related --types shop.yaml --prompts prompts.yaml --export postgres`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRelated(cmd, a, o)
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.typesFile, "types", "", "YAML or JSON descriptor file")
	f.StringVarP(&o.prompt, "prompt", "p", "", "prompt applied to every type")
	f.StringVar(&o.promptsFile, "prompts", "", "YAML file mapping type names to prompts")
	f.IntVarP(&o.count, "count", "n", 1, "records per type")
	f.StringSliceVar(&o.only, "only", nil, "generate only these types, in this order")
	f.StringVar(&o.export, "export", "", "also write results to file, postgres or s3")
	f.StringVarP(&o.out, "out", "o", "", "directory for --export file")
	f.StringVarP(&o.format, "format", "f", generator.FormatSummary, "summary, json or detailed")
	_ = cmd.MarkFlagRequired("types")
	cmd.MarkFlagsMutuallyExclusive("prompt", "prompts")
	return cmd
}

func runRelated(cmd *cobra.Command, a *app, o *relatedOptions) error {
	if o.count < 1 {
		return fmt.Errorf("--count must be at least 1")
	}
	cat, err := schema.LoadFile(o.typesFile)
	if err != nil {
		return err
	}
	if len(o.only) > 0 {
		if cat, err = cat.Subset(o.only); err != nil {
			return err
		}
	}
	prompts, err := loadPrompts(o, cat.Names())
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	var sink export.Sink
	if o.export != "" {
		if sink, err = export.Open(ctx, o.export, o.out, a.cfg.Export); err != nil {
			return err
		}
		defer sink.Close()
	}

	gen, release, err := a.generator(ctx)
	if err != nil {
		return err
	}
	defer release()

	results, err := gen.GenerateRelated(ctx, cat, prompts, o.count, a.cfg.GeneratorOptions())
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	for _, name := range cat.Names() {
		text, err := generator.Format(results[name], o.format)
		if err != nil {
			return err
		}
		if o.format == generator.FormatJSON {
			fmt.Fprintf(w, "# %s\n", name)
		}
		fmt.Fprintln(w, text)
	}

	if sink != nil {
		runID := uuid.NewString()
		if err := sink.Write(ctx, runID, results); err != nil {
			return fmt.Errorf("export %s: %w", o.export, err)
		}
		fmt.Fprintf(w, "exported run %s to %s\n", runID, o.export)
	}
	return nil
}

func loadPrompts(o *relatedOptions, names []string) (map[string]string, error) {
	if o.promptsFile == "" {
		var in any
		if strings.TrimSpace(o.prompt) != "" {
			in = o.prompt
		}
		return prompt.NormalizePrompts(in, names)
	}
	data, err := os.ReadFile(o.promptsFile)
	if err != nil {
		return nil, fmt.Errorf("read prompts file: %w", err)
	}
	var m map[string]string
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode prompts file: %w", err)
	}
	return prompt.NormalizePrompts(m, names)
}

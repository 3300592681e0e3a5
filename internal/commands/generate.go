package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"weaver/internal/generator"
	"weaver/internal/prompt"
	"weaver/internal/schema"
)

type generateOptions struct {
	typesFile   string
	typeName    string
	prompt      string
	count       int
	options     []string
	format      string
	out         string
	temperature float64
	maxRetries  int
}

func newGenerateCmd(a *app) *cobra.Command {
	o := &generateOptions{}
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate records of one type",
		Example: `  weaver generate --types types.yaml --type User --count 5 --format json
  weaver generate --types types.yaml --type User --option region=EU --option age_range=18-30`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGenerate(cmd, a, o)
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.typesFile, "types", "", "YAML or JSON descriptor file")
	f.StringVar(&o.typeName, "type", "", "type to generate (default: the only type in the file)")
	f.StringVarP(&o.prompt, "prompt", "p", "", "user prompt (default: inferred from the type name)")
	f.IntVarP(&o.count, "count", "n", 1, "number of records")
	f.StringArrayVar(&o.options, "option", nil, "prompt option as key=value, repeatable")
	f.StringVarP(&o.format, "format", "f", generator.FormatJSON, "summary, json or detailed")
	f.StringVarP(&o.out, "out", "o", "", "write output to this file")
	f.Float64Var(&o.temperature, "temperature", -1, "sampling temperature (default from config)")
	f.IntVar(&o.maxRetries, "max-retries", -1, "validation retries (default from config)")
	_ = cmd.MarkFlagRequired("types")
	return cmd
}

func runGenerate(cmd *cobra.Command, a *app, o *generateOptions) error {
	if o.count < 1 {
		return fmt.Errorf("--count must be at least 1")
	}
	cat, err := schema.LoadFile(o.typesFile)
	if err != nil {
		return err
	}
	td, err := pickType(cat, o.typeName)
	if err != nil {
		return err
	}
	opts := a.cfg.GeneratorOptions()
	if o.temperature >= 0 {
		opts = opts.WithTemperature(o.temperature)
	}
	if o.maxRetries >= 0 {
		opts = opts.WithMaxRetries(o.maxRetries)
	}
	if len(o.options) > 0 {
		po, err := parsePromptOptions(o.options)
		if err != nil {
			return err
		}
		opts.Prompt = &po
	}

	gen, release, err := a.generator(cmd.Context())
	if err != nil {
		return err
	}
	defer release()

	res, err := gen.Generate(cmd.Context(), td, o.prompt, o.count, opts)
	if err != nil {
		return err
	}
	text, err := generator.Format(res, o.format)
	if err != nil {
		return err
	}
	return writeOutput(cmd, o.out, text)
}

func pickType(cat *schema.Catalog, name string) (*schema.TypeDescriptor, error) {
	if name == "" {
		if cat.Len() != 1 {
			return nil, fmt.Errorf("--type is required when the file declares %d types", cat.Len())
		}
		name = cat.Names()[0]
	}
	td, ok := cat.Get(name)
	if !ok {
		return nil, fmt.Errorf("type %q not found (have %s)", name, strings.Join(cat.Names(), ", "))
	}
	return td, nil
}

// parsePromptOptions turns key=value pairs into prompt options. Values stay
// strings; OptionsFromMap converts booleans and ranges.
func parsePromptOptions(pairs []string) (prompt.Options, error) {
	m := make(map[string]any, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return prompt.Options{}, fmt.Errorf("--option %q: want key=value", p)
		}
		m[k] = strings.TrimSpace(v)
	}
	return prompt.OptionsFromMap(m)
}

package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"weaver/internal/config"
	"weaver/internal/generator"
	"weaver/internal/llm"
	llmclient "weaver/internal/llmClient"
)

// app carries what every subcommand needs once the root pre-run has loaded
// configuration.
type app struct {
	envFile  string
	provider string
	model    string
	logLevel string
	traceDir string
	strict   bool

	cfg      *config.Config
	log      *slog.Logger
	registry *llmclient.Registry

	// newBackend replaces provider construction; tests inject fakes here.
	newBackend func(ctx context.Context, cfg *config.Config) (llmclient.Backend, error)
}

func (a *app) preRun(cmd *cobra.Command, _ []string) error {
	var files []string
	if a.envFile != "" {
		files = append(files, a.envFile)
	}
	cfg, err := config.Load(files...)
	if err != nil {
		return err
	}
	if a.provider != "" {
		cfg.UseProvider(a.provider)
	}
	if a.model != "" {
		cfg.Model = a.model
	}
	if cmd.Flags().Changed("strict-cycles") {
		cfg.StrictCycles = a.strict
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	level, err := parseLevel(a.logLevel)
	if err != nil {
		return err
	}
	a.log = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	if a.registry == nil {
		a.registry = llmclient.DefaultRegistry()
	}
	return nil
}

// generator builds the backend stack and a generator over it. The returned
// func releases the backend.
func (a *app) generator(ctx context.Context) (*generator.Generator, func(), error) {
	var (
		backend llmclient.Backend
		release = func() {}
	)
	if a.newBackend != nil {
		b, err := a.newBackend(ctx, a.cfg)
		if err != nil {
			return nil, nil, err
		}
		backend = llm.Wrap(b, llm.WithLogging(a.log), llm.WithHooks())
		release = func() { _ = backend.Close() }
	} else {
		cache, err := llm.NewProviderCache(a.registry, 4,
			llm.WithLogging(a.log),
			llm.RetryTransient(3, time.Second),
			llm.RateLimit(a.cfg.RPS, a.cfg.Burst),
			llm.WithHooks(),
		)
		if err != nil {
			return nil, nil, err
		}
		backend, err = cache.Get(ctx, a.cfg.LLM())
		if err != nil {
			_ = cache.Close()
			return nil, nil, fmt.Errorf("backend %s: %w", a.cfg.Provider, err)
		}
		release = func() { _ = cache.Close() }
	}

	opts := []generator.Option{
		generator.WithLogger(a.log),
		generator.WithStrictCycles(a.cfg.StrictCycles),
	}
	if a.traceDir != "" {
		opts = append(opts, generator.WithPromptHook(&llm.PromptSaver{Dir: a.traceDir}))
	}
	return generator.New(backend, opts...), release, nil
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log level %q", s)
}

// writeOutput writes to path, or to the command's stdout when path is empty.
func writeOutput(cmd *cobra.Command, path, text string) error {
	if path == "" {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), text)
		return err
	}
	return os.WriteFile(path, []byte(text+"\n"), 0o644)
}

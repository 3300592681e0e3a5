package llm

import (
	"context"

	llmclient "weaver/internal/llmClient"
)

// PromptHook observes every backend call made under a context. Phase is
// the name of the type being generated.
type PromptHook interface {
	Before(ctx context.Context, phase string, req llmclient.Request)
	After(ctx context.Context, phase string, raw string, err error)
}

type ctxKeyHook struct{}
type ctxKeyPhase struct{}

// WithHook attaches a PromptHook to ctx. WithHooks picks it up.
func WithHook(ctx context.Context, hook PromptHook) context.Context {
	if hook == nil {
		return ctx
	}
	return context.WithValue(ctx, ctxKeyHook{}, hook)
}

func WithPhase(ctx context.Context, phase string) context.Context {
	return context.WithValue(ctx, ctxKeyPhase{}, phase)
}

// HookFrom returns the hook stored in the context.
func HookFrom(ctx context.Context) PromptHook {
	if h, ok := ctx.Value(ctxKeyHook{}).(PromptHook); ok {
		return h
	}
	return nil
}

// PhaseFrom returns the phase string stored in the context.
func PhaseFrom(ctx context.Context) string {
	if s, ok := ctx.Value(ctxKeyPhase{}).(string); ok && s != "" {
		return s
	}
	return "unknown"
}

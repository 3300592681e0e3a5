package llm

import (
	"context"
	"errors"
	"log/slog"
	"time"

	llmclient "weaver/internal/llmClient"
)

// Middleware decorates a Backend to inject cross-cutting concerns
// (rate limiting, retries, logging, hooks).
type Middleware func(llmclient.Backend) llmclient.Backend

// Wrap applies middlewares in left-to-right order.
// Example: Wrap(inner, A, B) => A(B(inner))
func Wrap(inner llmclient.Backend, mws ...Middleware) llmclient.Backend {
	out := inner
	for i := len(mws) - 1; i >= 0; i-- {
		if mws[i] != nil {
			out = mws[i](out)
		}
	}
	return out
}

// -------- Rate limiting --------

// RateLimit paces calls to rps, allowing burst calls back to back.
// If rps <= 0, the middleware is a no-op.
func RateLimit(rps float64, burst int) Middleware {
	return func(next llmclient.Backend) llmclient.Backend {
		p := newPacer(rps, burst)
		if p == nil {
			return next
		}
		return &rateLimited{next: next, pace: p}
	}
}

type rateLimited struct {
	next llmclient.Backend
	pace *pacer
}

func (c *rateLimited) Name() string { return c.next.Name() }
func (c *rateLimited) Close() error {
	c.pace.Stop()
	return c.next.Close()
}

func (c *rateLimited) Generate(ctx context.Context, req llmclient.Request) (string, error) {
	if err := c.pace.Wait(ctx); err != nil {
		return "", llmclient.NewBackendError(c.next.Name(), err)
	}
	return c.next.Generate(ctx, req)
}

// -------- Transient retry --------

// RetryTransient repeats calls that failed with a non-permanent quota or
// network error, with exponential backoff from baseDelay. Validation is
// not its concern; the generator owns that loop.
func RetryTransient(maxAttempts int, baseDelay time.Duration) Middleware {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if baseDelay <= 0 {
		baseDelay = 500 * time.Millisecond
	}
	return func(next llmclient.Backend) llmclient.Backend {
		return &retrying{next: next, max: maxAttempts, base: baseDelay}
	}
}

type retrying struct {
	next llmclient.Backend
	max  int
	base time.Duration
}

func (r *retrying) Name() string { return r.next.Name() }
func (r *retrying) Close() error { return r.next.Close() }

func (r *retrying) Generate(ctx context.Context, req llmclient.Request) (string, error) {
	var last error
	for i := 0; i < r.max; i++ {
		out, err := r.next.Generate(ctx, req)
		if err == nil {
			return out, nil
		}
		last = err
		if !transient(err) {
			return "", err
		}
		select {
		case <-ctx.Done():
			return "", err
		case <-time.After(r.base * time.Duration(1<<i)):
		}
	}
	return "", last
}

func transient(err error) bool {
	var be *llmclient.BackendError
	if errors.As(err, &be) {
		if be.Permanent {
			return false
		}
		return be.Reason == llmclient.ReasonQuota || be.Reason == llmclient.ReasonNetwork
	}
	switch llmclient.Classify(err) {
	case llmclient.ReasonQuota, llmclient.ReasonNetwork:
		return true
	}
	return false
}

// -------- Logging & hooks --------

// WithLogging logs request size, latency and errors. A nil logger uses
// slog.Default().
func WithLogging(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next llmclient.Backend) llmclient.Backend {
		return &logging{next: next, log: logger}
	}
}

type logging struct {
	next llmclient.Backend
	log  *slog.Logger
}

func (l *logging) Name() string { return l.next.Name() }
func (l *logging) Close() error { return l.next.Close() }

func (l *logging) Generate(ctx context.Context, req llmclient.Request) (string, error) {
	start := time.Now()
	l.log.DebugContext(ctx, "llm: request",
		"backend", l.next.Name(),
		"phase", PhaseFrom(ctx),
		"bytes", len(req.SystemPrompt)+len(req.UserPrompt),
	)
	out, err := l.next.Generate(ctx, req)
	if err != nil {
		l.log.WarnContext(ctx, "llm: request failed",
			"backend", l.next.Name(),
			"phase", PhaseFrom(ctx),
			"elapsed", time.Since(start),
			"error", err,
		)
		return out, err
	}
	l.log.DebugContext(ctx, "llm: response",
		"backend", l.next.Name(),
		"phase", PhaseFrom(ctx),
		"bytes", len(out),
		"elapsed", time.Since(start),
	)
	return out, nil
}

// WithHooks calls HookFrom(ctx).Before/After around Generate.
// If no hook is present in the context, it is a no-op.
func WithHooks() Middleware {
	return func(next llmclient.Backend) llmclient.Backend {
		return &hooked{next: next}
	}
}

type hooked struct{ next llmclient.Backend }

func (h *hooked) Name() string { return h.next.Name() }
func (h *hooked) Close() error { return h.next.Close() }

func (h *hooked) Generate(ctx context.Context, req llmclient.Request) (string, error) {
	hook := HookFrom(ctx)
	if hook != nil {
		hook.Before(ctx, PhaseFrom(ctx), req)
	}
	out, err := h.next.Generate(ctx, req)
	if hook != nil {
		hook.After(ctx, PhaseFrom(ctx), out, err)
	}
	return out, err
}

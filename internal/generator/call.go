package generator

import (
	"context"
	"errors"
	"fmt"
	"time"

	llmclient "weaver/internal/llmClient"
)

// DefaultTimeout bounds a single backend call.
const DefaultTimeout = 60 * time.Second

type callResult struct {
	text string
	err  error
}

// BlockingCall runs one backend call on its own goroutine and waits for it
// at most timeout. The wait is the same whether or not the caller is itself
// running inside a handler or worker goroutine. On timeout the worker's
// context is cancelled and its late result is dropped into a buffered
// channel nobody reads.
//
// Every failure comes back as a *llmclient.BackendError, including a
// panicking backend.
func BlockingCall(ctx context.Context, timeout time.Duration, b llmclient.Backend, req llmclient.Request) (string, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan callResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- callResult{err: &llmclient.BackendError{
					Provider: b.Name(),
					Reason:   llmclient.ReasonUnknown,
					Err:      fmt.Errorf("backend worker panicked: %v", r),
				}}
			}
		}()
		text, err := b.Generate(callCtx, req)
		done <- callResult{text: text, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return "", llmclient.NewBackendError(b.Name(), r.err)
		}
		return r.text, nil
	case <-callCtx.Done():
		err := callCtx.Err()
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			err = fmt.Errorf("request timed out after %s: %w", timeout, err)
		}
		return "", llmclient.NewBackendError(b.Name(), err)
	}
}

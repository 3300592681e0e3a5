package llmclient

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// FakeClient replays scripted responses for offline runs and tests.
// Each call consumes the next step; the last step repeats once the script
// is exhausted.
type FakeClient struct {
	mu       sync.Mutex
	steps    []FakeStep
	next     int
	requests []Request
}

// FakeStep is one scripted reply. Respond, when set, computes the reply
// from the request.
type FakeStep struct {
	Text    string
	Err     error
	Delay   time.Duration
	Respond func(Request) (string, error)
}

// NewFakeClient scripts plain text replies.
func NewFakeClient(responses ...string) *FakeClient {
	steps := make([]FakeStep, 0, len(responses))
	for _, r := range responses {
		steps = append(steps, FakeStep{Text: r})
	}
	return &FakeClient{steps: steps}
}

// NewFakeScript scripts arbitrary steps.
func NewFakeScript(steps ...FakeStep) *FakeClient {
	return &FakeClient{steps: steps}
}

func (f *FakeClient) Name() string { return "fake" }
func (f *FakeClient) Close() error { return nil }

func (f *FakeClient) Generate(ctx context.Context, req Request) (string, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	if len(f.steps) == 0 {
		f.mu.Unlock()
		return "", NewBackendError(f.Name(), fmt.Errorf("no scripted response"))
	}
	i := f.next
	if i >= len(f.steps) {
		i = len(f.steps) - 1
	} else {
		f.next++
	}
	step := f.steps[i]
	f.mu.Unlock()

	if step.Delay > 0 {
		select {
		case <-time.After(step.Delay):
		case <-ctx.Done():
			return "", NewBackendError(f.Name(), ctx.Err())
		}
	}
	if step.Respond != nil {
		return step.Respond(req)
	}
	if step.Err != nil {
		return "", step.Err
	}
	return step.Text, nil
}

// Requests returns a copy of every request received so far.
func (f *FakeClient) Requests() []Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Request, len(f.requests))
	copy(out, f.requests)
	return out
}

// Calls returns how many requests were received.
func (f *FakeClient) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

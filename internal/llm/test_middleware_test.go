package llm

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	llmclient "weaver/internal/llmClient"
)

type tagging struct {
	next llmclient.Backend
	tag  string
	log  *[]string
}

func (t *tagging) Name() string { return t.next.Name() }
func (t *tagging) Close() error { return t.next.Close() }
func (t *tagging) Generate(ctx context.Context, req llmclient.Request) (string, error) {
	*t.log = append(*t.log, t.tag)
	return t.next.Generate(ctx, req)
}

func tag(name string, log *[]string) Middleware {
	return func(next llmclient.Backend) llmclient.Backend { return &tagging{next: next, tag: name, log: log} }
}

func TestWrap_FirstMiddlewareIsOutermost(t *testing.T) {
	var order []string
	b := Wrap(llmclient.NewFakeClient("{}"), tag("a", &order), nil, tag("b", &order))
	_, err := b.Generate(context.Background(), llmclient.Request{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, order)
}

func TestRateLimit_BlocksUntilContextDone(t *testing.T) {
	b := Wrap(llmclient.NewFakeClient("{}"), RateLimit(0.001, 1))
	defer b.Close()

	_, err := b.Generate(context.Background(), llmclient.Request{})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = b.Generate(ctx, llmclient.Request{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, llmclient.ErrBackend))
}

func TestRateLimit_DisabledPassesThrough(t *testing.T) {
	inner := llmclient.NewFakeClient("{}")
	assert.Same(t, llmclient.Backend(inner), Wrap(inner, RateLimit(0, 0)))
}

func TestRetryTransient_RetriesQuotaOnly(t *testing.T) {
	quota := &llmclient.BackendError{Provider: "fake", Reason: llmclient.ReasonQuota, Err: errors.New("429")}
	f := llmclient.NewFakeScript(llmclient.FakeStep{Err: quota}, llmclient.FakeStep{Text: "ok"})
	out, err := Wrap(f, RetryTransient(3, time.Millisecond)).Generate(context.Background(), llmclient.Request{})
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, 2, f.Calls())

	auth := llmclient.NewPermanentError("fake", llmclient.ReasonAuth, errors.New("bad key"))
	f = llmclient.NewFakeScript(llmclient.FakeStep{Err: auth}, llmclient.FakeStep{Text: "ok"})
	_, err = Wrap(f, RetryTransient(3, time.Millisecond)).Generate(context.Background(), llmclient.Request{})
	require.Error(t, err)
	assert.Equal(t, 1, f.Calls())
}

func TestWithLogging_LogsFailures(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	f := llmclient.NewFakeScript(llmclient.FakeStep{Err: errors.New("boom")})

	_, err := Wrap(f, WithLogging(logger)).Generate(WithPhase(context.Background(), "User"), llmclient.Request{UserPrompt: "x"})
	require.Error(t, err)
	assert.Contains(t, buf.String(), "llm: request failed")
	assert.Contains(t, buf.String(), "phase=User")
}

type recordingHook struct {
	mu     sync.Mutex
	phases []string
	raws   []string
}

func (h *recordingHook) Before(_ context.Context, phase string, _ llmclient.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.phases = append(h.phases, phase)
}

func (h *recordingHook) After(_ context.Context, _ string, raw string, _ error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.raws = append(h.raws, raw)
}

func TestWithHooks_UsesContextHook(t *testing.T) {
	hook := &recordingHook{}
	b := Wrap(llmclient.NewFakeClient(`{"id":1}`), WithHooks())

	ctx := WithPhase(WithHook(context.Background(), hook), "Order")
	_, err := b.Generate(ctx, llmclient.Request{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Order"}, hook.phases)
	assert.Equal(t, []string{`{"id":1}`}, hook.raws)

	_, err = b.Generate(context.Background(), llmclient.Request{})
	require.NoError(t, err)
	assert.Len(t, hook.phases, 1)
}

func TestPhaseFrom_Default(t *testing.T) {
	assert.Equal(t, "unknown", PhaseFrom(context.Background()))
}

func TestPromptSaver_WritesFiles(t *testing.T) {
	dir := t.TempDir()
	s := &PromptSaver{Dir: dir}
	ctx := context.Background()

	s.Before(ctx, "User", llmclient.Request{SystemPrompt: "sys", UserPrompt: "make users"})
	s.After(ctx, "User", `{"id":1}`, nil)

	log, err := os.ReadFile(filepath.Join(dir, "prompt", "User.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(log), "[SYSTEM]\nsys")
	assert.Contains(t, string(log), "[USER]\nmake users")
	assert.Contains(t, string(log), "[RESPONSE]\n{\"id\":1}")

	raw, err := os.ReadFile(filepath.Join(dir, "User.raw.txt"))
	require.NoError(t, err)
	assert.Equal(t, `{"id":1}`, string(raw))
}

type closeCounter struct {
	llmclient.Backend
	closed *int32
}

func (c closeCounter) Close() error {
	atomic.AddInt32(c.closed, 1)
	return nil
}

func TestProviderCache_ReusesAndEvicts(t *testing.T) {
	var built, closed int32
	reg := llmclient.NewRegistry()
	require.NoError(t, reg.Register(llmclient.ProviderRegistration{
		Name:         "stub",
		DefaultModel: "m1",
		Factory: func(_ context.Context, cfg llmclient.Config) (llmclient.Backend, error) {
			atomic.AddInt32(&built, 1)
			return closeCounter{Backend: llmclient.NewFakeClient(cfg.Model), closed: &closed}, nil
		},
	}))

	cache, err := NewProviderCache(reg, 1)
	require.NoError(t, err)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := cache.Get(ctx, llmclient.Config{Provider: "stub"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), atomic.LoadInt32(&built))

	a, err := cache.Get(ctx, llmclient.Config{Provider: "stub", Model: "m1"})
	require.NoError(t, err)
	out, err := a.Generate(ctx, llmclient.Request{})
	require.NoError(t, err)
	assert.Equal(t, "m1", out)
	assert.Equal(t, int32(1), atomic.LoadInt32(&built))

	_, err = cache.Get(ctx, llmclient.Config{Provider: "stub", Model: "m2"})
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&built))
	assert.Equal(t, int32(1), atomic.LoadInt32(&closed))
	assert.Equal(t, 1, cache.Len())

	require.NoError(t, cache.Close())
	assert.Equal(t, int32(2), atomic.LoadInt32(&closed))
	_, err = cache.Get(ctx, llmclient.Config{Provider: "stub", Model: "m3"})
	require.Error(t, err)
}

func TestProviderCache_UnknownProvider(t *testing.T) {
	cache, err := NewProviderCache(llmclient.NewRegistry(), 4)
	require.NoError(t, err)
	_, err = cache.Get(context.Background(), llmclient.Config{Provider: "missing"})
	require.Error(t, err)
}

func TestProviderCache_CloseDuringConstruction(t *testing.T) {
	var closed int32
	started := make(chan struct{})
	release := make(chan struct{})
	reg := llmclient.NewRegistry()
	require.NoError(t, reg.Register(llmclient.ProviderRegistration{
		Name:         "slow",
		DefaultModel: "m",
		Factory: func(_ context.Context, cfg llmclient.Config) (llmclient.Backend, error) {
			close(started)
			<-release
			return closeCounter{Backend: llmclient.NewFakeClient("{}"), closed: &closed}, nil
		},
	}))
	cache, err := NewProviderCache(reg, 4)
	require.NoError(t, err)

	errCh := make(chan error, 1)
	go func() {
		_, err := cache.Get(context.Background(), llmclient.Config{Provider: "slow"})
		errCh <- err
	}()

	<-started
	require.NoError(t, cache.Close())
	close(release)

	require.Error(t, <-errCh)
	assert.Equal(t, int32(1), atomic.LoadInt32(&closed))
	assert.Equal(t, 0, cache.Len())
}

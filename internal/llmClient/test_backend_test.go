package llmclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAICompat_SendsJSONModeRequest(t *testing.T) {
	var got chatCompletionRequest
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		auth = r.Header.Get("Authorization")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = fmt.Fprint(w, `{"choices":[{"message":{"content":"{\"id\":1}"},"finish_reason":"stop"}]}`)
	}))
	defer srv.Close()

	c := NewOpenAI("sk-test", "", srv.URL+"/v1")
	out, err := c.Generate(context.Background(), Request{SystemPrompt: "sys", UserPrompt: "user", Temperature: 0.1, MaxTokens: 64})
	require.NoError(t, err)

	assert.Equal(t, `{"id":1}`, out)
	assert.Equal(t, "Bearer sk-test", auth)
	assert.Equal(t, defaultOpenAIModel, got.Model)
	assert.Equal(t, "json_object", got.ResponseFormat.Type)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "user", got.Messages[1].Content)
	assert.Equal(t, 64, got.MaxTokens)
	assert.Equal(t, "openai:gpt-4-turbo", c.Name())
}

func TestOpenAICompat_StatusClassification(t *testing.T) {
	cases := []struct {
		code      int
		reason    Reason
		permanent bool
	}{
		{http.StatusUnauthorized, ReasonAuth, true},
		{http.StatusTooManyRequests, ReasonQuota, false},
		{http.StatusNotFound, ReasonModel, true},
		{http.StatusBadGateway, ReasonNetwork, false},
	}
	for _, tc := range cases {
		t.Run(http.StatusText(tc.code), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", tc.code)
			}))
			defer srv.Close()

			_, err := NewOpenRouter("k", "m", srv.URL).Generate(context.Background(), Request{UserPrompt: "x"})
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrBackend))
			var be *BackendError
			require.ErrorAs(t, err, &be)
			assert.Equal(t, tc.reason, be.Reason)
			assert.Equal(t, tc.permanent, IsPermanent(err))
		})
	}
}

func TestOpenAICompat_EmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, `{"choices":[]}`)
	}))
	defer srv.Close()

	_, err := NewOpenAI("k", "m", srv.URL).Generate(context.Background(), Request{UserPrompt: "x"})
	assert.True(t, errors.Is(err, ErrEmptyResponse))
}

func TestClassify(t *testing.T) {
	assert.Equal(t, ReasonTimeout, Classify(fmt.Errorf("call: %w", context.DeadlineExceeded)))
	assert.Equal(t, ReasonQuota, Classify(errors.New("Error 429, RESOURCE_EXHAUSTED")))
	assert.Equal(t, ReasonAuth, Classify(errors.New("API key not valid")))
	assert.Equal(t, ReasonUnknown, Classify(errors.New("weird")))
}

func TestNewBackendError_KeepsExisting(t *testing.T) {
	inner := NewPermanentError("p", ReasonAuth, errors.New("bad key"))
	wrapped := fmt.Errorf("ctx: %w", inner)
	assert.Same(t, inner, NewBackendError("other", wrapped))
}

func TestFakeClient_ScriptAndRecording(t *testing.T) {
	f := NewFakeScript(
		FakeStep{Text: "one"},
		FakeStep{Respond: func(r Request) (string, error) { return "echo:" + r.UserPrompt, nil }},
	)
	out, err := f.Generate(context.Background(), Request{UserPrompt: "a"})
	require.NoError(t, err)
	assert.Equal(t, "one", out)

	out, _ = f.Generate(context.Background(), Request{UserPrompt: "b"})
	assert.Equal(t, "echo:b", out)
	out, _ = f.Generate(context.Background(), Request{UserPrompt: "c"})
	assert.Equal(t, "echo:c", out)

	assert.Equal(t, 3, f.Calls())
	assert.Equal(t, "a", f.Requests()[0].UserPrompt)
}

func TestFakeClient_DelayHonoursContext(t *testing.T) {
	f := NewFakeScript(FakeStep{Text: "late", Delay: time.Second})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := f.Generate(ctx, Request{})
	var be *BackendError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, ReasonTimeout, be.Reason)
}

func TestRegistry_ResolveDefaults(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "env-key")
	r := DefaultRegistry()

	cfg, _, err := r.Resolve(Config{Provider: "OpenRouter"})
	require.NoError(t, err)
	assert.Equal(t, "openrouter", cfg.Provider)
	assert.Equal(t, defaultOpenRouterModel, cfg.Model)
	assert.Equal(t, "env-key", cfg.APIKey)

	_, _, err = r.Resolve(Config{Provider: "nope"})
	require.Error(t, err)

	names := []string{}
	for _, p := range r.Providers() {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"gemini", "openai", "openrouter"}, names)
}

func TestRegistry_MissingKeyIsPermanent(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	_, err := DefaultRegistry().New(context.Background(), Config{Provider: "openai"})
	require.Error(t, err)
	assert.True(t, IsPermanent(err))
}

package llmclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultOpenAIBaseURL     = "https://api.openai.com/v1"
	defaultOpenAIModel       = "gpt-4-turbo"
	defaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"
	defaultOpenRouterModel   = "google/gemini-2.5-flash-lite"
)

// OpenAICompatClient talks to any chat-completions endpoint that follows
// the OpenAI wire format (OpenAI, OpenRouter, local gateways).
type OpenAICompatClient struct {
	provider string
	baseURL  string
	apiKey   string
	model    string
	headers  map[string]string
	client   *http.Client
}

// NewOpenAI creates a client for the OpenAI API.
func NewOpenAI(apiKey, model, baseURL string) *OpenAICompatClient {
	return newOpenAICompat("openai", apiKey, firstNonEmpty(model, defaultOpenAIModel), firstNonEmpty(baseURL, defaultOpenAIBaseURL), nil)
}

// NewOpenRouter creates a client for OpenRouter.
func NewOpenRouter(apiKey, model, baseURL string) *OpenAICompatClient {
	return newOpenAICompat("openrouter", apiKey, firstNonEmpty(model, defaultOpenRouterModel), firstNonEmpty(baseURL, defaultOpenRouterBaseURL), map[string]string{
		"X-Title": "weaver",
	})
}

func newOpenAICompat(provider, apiKey, model, baseURL string, headers map[string]string) *OpenAICompatClient {
	return &OpenAICompatClient{
		provider: provider,
		baseURL:  strings.TrimRight(baseURL, "/"),
		apiKey:   apiKey,
		model:    model,
		headers:  headers,
		// The generator bounds each call; this only guards stalled sockets.
		client: &http.Client{Timeout: 5 * time.Minute},
	}
}

func (c *OpenAICompatClient) Name() string { return c.provider + ":" + c.model }
func (c *OpenAICompatClient) Close() error {
	c.client.CloseIdleConnections()
	return nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatCompletionRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Generate sends one chat completion in JSON mode.
func (c *OpenAICompatClient) Generate(ctx context.Context, req Request) (string, error) {
	body := chatCompletionRequest{
		Model:          c.model,
		Temperature:    req.Temperature,
		MaxTokens:      req.MaxTokens,
		ResponseFormat: &responseFormat{Type: "json_object"},
	}
	if s := strings.TrimSpace(req.SystemPrompt); s != "" {
		body.Messages = append(body.Messages, chatMessage{Role: "system", Content: s})
	}
	body.Messages = append(body.Messages, chatMessage{Role: "user", Content: req.UserPrompt})

	raw, err := c.doPost(ctx, "/chat/completions", body)
	if err != nil {
		return "", err
	}
	var resp chatCompletionResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", NewBackendError(c.Name(), fmt.Errorf("decoding chat response: %w", err))
	}
	if resp.Error != nil {
		return "", NewBackendError(c.Name(), fmt.Errorf("%s", resp.Error.Message))
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", NewBackendError(c.Name(), ErrEmptyResponse)
	}
	return resp.Choices[0].Message.Content, nil
}

func (c *OpenAICompatClient) doPost(ctx context.Context, path string, body any) ([]byte, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	url := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, NewBackendError(c.Name(), ctx.Err())
		}
		return nil, &BackendError{Provider: c.Name(), Reason: ReasonNetwork, Err: fmt.Errorf("request to %s failed: %w", url, err)}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &BackendError{Provider: c.Name(), Reason: ReasonNetwork, Err: fmt.Errorf("reading response body: %w", err)}
	}
	if resp.StatusCode == http.StatusOK {
		return respBody, nil
	}
	return nil, statusError(c.Name(), resp.StatusCode, respBody)
}

func statusError(provider string, code int, body []byte) *BackendError {
	err := fmt.Errorf("API error %d: %s", code, strings.TrimSpace(string(body)))
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return &BackendError{Provider: provider, Reason: ReasonAuth, Permanent: true, Err: err}
	case code == http.StatusTooManyRequests || code == http.StatusPaymentRequired:
		return &BackendError{Provider: provider, Reason: ReasonQuota, Err: err}
	case code == http.StatusNotFound:
		return &BackendError{Provider: provider, Reason: ReasonModel, Permanent: true, Err: err}
	case code >= 500:
		return &BackendError{Provider: provider, Reason: ReasonNetwork, Err: err}
	default:
		return &BackendError{Provider: provider, Reason: ReasonUnknown, Permanent: true, Err: err}
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

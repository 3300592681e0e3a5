package llmclient

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
)

// Request is one generation call.
type Request struct {
	SystemPrompt string
	UserPrompt   string
	// Schema is the document the response must match. Backends that accept
	// structured output may forward it; the prompt always embeds it.
	Schema      *jsonschema.Schema
	Temperature float64
	MaxTokens   int
}

// Backend is a text-generation service. It is the only external
// collaborator of the generator and the only blocking call.
type Backend interface {
	Name() string
	Generate(ctx context.Context, req Request) (string, error)
	Close() error
}

var (
	// ErrBackend is the sentinel every BackendError unwraps to.
	ErrBackend = errors.New("backend error")
	// ErrEmptyResponse is returned when the backend produced no text.
	ErrEmptyResponse = errors.New("empty response from backend")
)

// Reason classifies a backend failure.
type Reason string

const (
	ReasonAuth    Reason = "auth"
	ReasonQuota   Reason = "quota"
	ReasonNetwork Reason = "network"
	ReasonModel   Reason = "model"
	ReasonTimeout Reason = "timeout"
	ReasonUnknown Reason = "unknown"
)

// BackendError wraps a failure of the backend itself. The generator never
// retries these; Permanent marks errors that no retry layer should repeat.
type BackendError struct {
	Provider  string
	Reason    Reason
	Permanent bool
	Err       error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("backend %s: %s: %v", e.Provider, e.Reason, e.Err)
}

func (e *BackendError) Unwrap() []error { return []error{ErrBackend, e.Err} }

// NewBackendError classifies err and wraps it. An existing BackendError is
// returned unchanged.
func NewBackendError(provider string, err error) *BackendError {
	var be *BackendError
	if errors.As(err, &be) {
		return be
	}
	reason := Classify(err)
	return &BackendError{
		Provider:  provider,
		Reason:    reason,
		Permanent: reason == ReasonAuth || reason == ReasonModel,
		Err:       err,
	}
}

// NewPermanentError marks err as not worth retrying.
func NewPermanentError(provider string, reason Reason, err error) *BackendError {
	return &BackendError{Provider: provider, Reason: reason, Permanent: true, Err: err}
}

// IsPermanent reports whether err carries a permanent BackendError.
func IsPermanent(err error) bool {
	var be *BackendError
	return errors.As(err, &be) && be.Permanent
}

// Classify guesses the failure reason from an error chain and message.
func Classify(err error) Reason {
	if err == nil {
		return ReasonUnknown
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ReasonTimeout
	}
	msg := strings.ToLower(err.Error())
	switch {
	case containsAny(msg, "401", "403", "unauthorized", "permission_denied", "api key", "api_key"):
		return ReasonAuth
	case containsAny(msg, "429", "quota", "rate limit", "resource_exhausted"):
		return ReasonQuota
	case containsAny(msg, "404", "model not found", "not_found", "does not exist"):
		return ReasonModel
	case containsAny(msg, "connection refused", "no such host", "eof", "502", "503", "504", "unavailable"):
		return ReasonNetwork
	}
	return ReasonUnknown
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

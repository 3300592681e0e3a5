// Package generator drives the backend to produce validated records for one
// type or for a set of related types.
package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/jsonschema-go/jsonschema"
	"github.com/google/uuid"

	"weaver/internal/llm"
	llmclient "weaver/internal/llmClient"
	"weaver/internal/prompt"
	"weaver/internal/schema"
	"weaver/internal/util/jsonutil"
	"weaver/internal/validate"
)

const (
	DefaultTemperature = 0.1
	DefaultMaxRetries  = 3
)

// Options tune one generation call. Nil Temperature and MaxRetries and a
// zero Timeout take the package defaults, so Options{} behaves like
// DefaultOptions.
type Options struct {
	Temperature *float64      `json:"temperature,omitempty" validate:"omitempty,gte=0,lte=1"`
	MaxTokens   int           `json:"max_tokens,omitempty" validate:"gte=0"`
	MaxRetries  *int          `json:"max_retries,omitempty" validate:"omitempty,gte=0,lte=10"`
	Timeout     time.Duration `json:"timeout,omitempty" validate:"gte=0"`
	// Prompt, when set, appends option sentences to the user prompt.
	Prompt *prompt.Options `json:"prompt,omitempty"`
}

// DefaultOptions returns temperature 0.1, three retries and a 60s timeout.
func DefaultOptions() Options {
	return Options{}.withDefaults()
}

// WithTemperature returns a copy of o with the temperature set.
func (o Options) WithTemperature(t float64) Options {
	o.Temperature = &t
	return o
}

// WithMaxRetries returns a copy of o with the retry budget set; zero means a
// single backend call.
func (o Options) WithMaxRetries(n int) Options {
	o.MaxRetries = &n
	return o
}

func (o Options) withDefaults() Options {
	if o.Temperature == nil {
		o = o.WithTemperature(DefaultTemperature)
	}
	if o.MaxRetries == nil {
		o = o.WithMaxRetries(DefaultMaxRetries)
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	return o
}

// GenerationRequest is what one Generate call works on. It lives only for
// the duration of that call.
type GenerationRequest struct {
	ID      string
	Type    *schema.TypeDescriptor `validate:"required"`
	Prompt  string
	Count   int `validate:"min=1"`
	Options Options
	// Digest is the correlation context; empty means independent.
	Digest string
}

// Result holds the records generated for one type.
type Result struct {
	Type      string            `json:"type"`
	Records   []validate.Record `json:"records"`
	Attempts  int               `json:"attempts"`
	RequestID string            `json:"request_id"`
}

// Single returns the first record, or nil.
func (r Result) Single() validate.Record {
	if len(r.Records) == 0 {
		return nil
	}
	return r.Records[0]
}

// Value is the single record when one was requested, the list otherwise.
func (r Result) Value() any {
	if len(r.Records) == 1 {
		return r.Records[0]
	}
	return r.Records
}

// Generator owns a backend and runs the compose/call/validate/retry loop.
type Generator struct {
	backend  llmclient.Backend
	log      *slog.Logger
	hook     llm.PromptHook
	strict   bool
	validate *validator.Validate
}

type Option func(*Generator)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(g *Generator) {
		if l != nil {
			g.log = l
		}
	}
}

// WithPromptHook observes every backend call. The backend must be wrapped
// with llm.WithHooks for the hook to fire.
func WithPromptHook(h llm.PromptHook) Option {
	return func(g *Generator) { g.hook = h }
}

// WithStrictCycles makes GenerateRelated fail on dependency cycles instead
// of falling back to declaration order.
func WithStrictCycles(strict bool) Option {
	return func(g *Generator) { g.strict = strict }
}

func New(backend llmclient.Backend, opts ...Option) *Generator {
	g := &Generator{
		backend:  backend,
		log:      slog.Default(),
		validate: validator.New(),
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Backend returns the backend the generator calls.
func (g *Generator) Backend() llmclient.Backend { return g.backend }

// Generate produces count records of td from a natural-language prompt. An
// empty prompt is inferred from the type name.
func (g *Generator) Generate(ctx context.Context, td *schema.TypeDescriptor, userPrompt string, count int, opts Options) (Result, error) {
	return g.Run(ctx, GenerationRequest{Type: td, Prompt: userPrompt, Count: count, Options: opts})
}

// Run executes one request through the retry loop.
func (g *Generator) Run(ctx context.Context, req GenerationRequest) (Result, error) {
	if err := g.validate.Struct(req); err != nil {
		name := "<nil>"
		if req.Type != nil {
			name = req.Type.Name
		}
		return Result{}, &GenerationError{Type: name, Err: fmt.Errorf("invalid request: %w", err)}
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	req.Options = req.Options.withDefaults()
	maxRetries := *req.Options.MaxRetries
	td := req.Type

	call, err := compose(req)
	if err != nil {
		return Result{}, &GenerationError{Type: td.Name, Err: err}
	}

	ctx = llm.WithPhase(ctx, td.Name)
	if g.hook != nil {
		ctx = llm.WithHook(ctx, g.hook)
	}
	log := g.log.With("type", td.Name, "request_id", req.ID, "count", req.Count)

	var lastErr error
	attempts := 0
	for attempt := 0; attempt <= maxRetries; attempt++ {
		attempts++
		userPrompt := call.UserPrompt
		if attempt > 0 {
			userPrompt = prompt.RetryPrompt(call.UserPrompt, attempt+1)
		}
		start := time.Now()
		raw, err := BlockingCall(ctx, req.Options.Timeout, g.backend, llmclient.Request{
			SystemPrompt: call.SystemPrompt,
			UserPrompt:   userPrompt,
			Schema:       call.Schema,
			Temperature:  *req.Options.Temperature,
			MaxTokens:    req.Options.MaxTokens,
		})
		if err != nil {
			log.Error("generator: backend call failed", "attempt", attempts, "elapsed", time.Since(start), "error", err)
			return Result{}, &GenerationError{Type: td.Name, Attempts: attempts, Err: err}
		}

		records, err := accept(raw, td, req.Count)
		if err == nil {
			log.Debug("generator: generated", "attempt", attempts, "records", len(records), "elapsed", time.Since(start))
			return Result{Type: td.Name, Records: records, Attempts: attempts, RequestID: req.ID}, nil
		}
		var ve *validate.ValidationError
		if !errors.As(err, &ve) {
			return Result{}, &GenerationError{Type: td.Name, Attempts: attempts, Err: err}
		}
		lastErr = err
		if attempt < maxRetries {
			log.Warn("generator: invalid response, retrying", "attempt", attempts, "error", err, "diff", responseDiff(call.Schema, raw))
		}
	}
	log.Error("generator: retries exhausted", "attempts", attempts, "error", lastErr)
	return Result{}, &GenerationError{Type: td.Name, Attempts: attempts, Err: lastErr}
}

// composed is the output of the Composing state.
type composed struct {
	SystemPrompt string
	UserPrompt   string
	Schema       *jsonschema.Schema
}

func compose(req GenerationRequest) (composed, error) {
	td := req.Type
	doc, err := schema.ToPortableSchema(td)
	if err != nil {
		return composed{}, err
	}
	if req.Count > 1 {
		doc = schema.EnvelopeSchema(doc, req.Count)
	}
	instructions, err := schema.CreateInstructionPrompt(doc, td.Name)
	if err != nil {
		return composed{}, err
	}
	correlated := req.Digest != ""

	user := req.Prompt
	if user == "" {
		user = prompt.InferBasePrompt(td.Name)
	}
	if req.Options.Prompt != nil {
		user = prompt.Enhance(user, *req.Options.Prompt)
	}
	if correlated {
		user = prompt.BuildCorrelationPrompt(user, req.Digest)
	}
	if req.Count > 1 {
		user = prompt.BuildBatchPrompt(td.Name, user, req.Count)
	}
	return composed{
		SystemPrompt: instructions + "\n\n" + prompt.BuildSystemPrompt(td.Name, correlated),
		UserPrompt:   user,
		Schema:       doc,
	}, nil
}

// accept parses raw text and enforces the requested count. Extra records
// are trimmed; too few is a validation failure.
func accept(raw string, td *schema.TypeDescriptor, count int) ([]validate.Record, error) {
	if count == 1 {
		out, err := validate.Parse(raw, td, false)
		if err != nil {
			return nil, err
		}
		if len(out.Records) == 0 {
			return nil, validate.CountError(td.Name, 1, 0, raw)
		}
		return out.Records[:1], nil
	}
	out, err := validate.ParseEnvelope(raw, td, schema.EnvelopeField, false)
	if err != nil {
		return nil, err
	}
	if len(out.Records) < count {
		return nil, validate.CountError(td.Name, count, len(out.Records), raw)
	}
	return out.Records[:count], nil
}

// responseDiff compares the decoded response with the requested schema for
// the retry log. Text that holds no JSON object yields "".
func responseDiff(doc *jsonschema.Schema, raw string) string {
	v, err := jsonutil.DecodeString(raw)
	if err != nil {
		candidate, ok := validate.ExtractJSON(raw)
		if !ok {
			return ""
		}
		if v, err = jsonutil.DecodeString(candidate); err != nil {
			return ""
		}
	}
	m, ok := v.(map[string]any)
	if !ok {
		return ""
	}
	return validate.Diff(doc, m)
}

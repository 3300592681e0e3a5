package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"weaver/internal/export"
	"weaver/internal/generator"
	llmclient "weaver/internal/llmClient"
	"weaver/internal/prompt"
	"weaver/internal/schema"
)

// Handler serves the generation API.
type Handler struct {
	gen      *generator.Generator
	defaults generator.Options
	registry *llmclient.Registry
	sink     export.Sink
	log      *slog.Logger
	validate *validator.Validate
}

type HandlerConfig struct {
	Generator *generator.Generator
	Defaults  generator.Options
	Registry  *llmclient.Registry
	// Sink, when set, receives the results of every related run.
	Sink   export.Sink
	Logger *slog.Logger
}

func NewHandler(cfg HandlerConfig) *Handler {
	reg := cfg.Registry
	if reg == nil {
		reg = llmclient.DefaultRegistry()
	}
	return &Handler{
		gen:      cfg.Generator,
		defaults: cfg.Defaults,
		registry: reg,
		sink:     cfg.Sink,
		log:      logger(cfg.Logger),
		validate: validator.New(),
	}
}

type tuning struct {
	Temperature *float64       `json:"temperature,omitempty" validate:"omitempty,gte=0,lte=1"`
	MaxTokens   *int           `json:"max_tokens,omitempty" validate:"omitempty,gte=0"`
	MaxRetries  *int           `json:"max_retries,omitempty" validate:"omitempty,gte=0,lte=10"`
	Options     map[string]any `json:"options,omitempty"`
}

type generateRequest struct {
	Schema json.RawMessage `json:"schema" validate:"required"`
	Type   string          `json:"type" validate:"required"`
	Prompt string          `json:"prompt"`
	Count  int             `json:"count" validate:"omitempty,min=1,max=100"`
	tuning
}

type relatedRequest struct {
	Schema json.RawMessage `json:"schema" validate:"required"`
	// Types restricts generation to a subset of the schema.
	Types   []string `json:"types,omitempty"`
	Prompts any      `json:"prompts,omitempty"`
	Count   int      `json:"count" validate:"omitempty,min=1,max=100"`
	tuning
}

type relatedResponse struct {
	RunID   string                      `json:"run_id"`
	Types   []string                    `json:"types"`
	Results map[string]generator.Result `json:"results"`
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "backend": h.gen.Backend().Name()})
}

func (h *Handler) Providers(w http.ResponseWriter, r *http.Request) {
	type provider struct {
		Name         string `json:"name"`
		DefaultModel string `json:"default_model"`
		APIKeyEnv    string `json:"api_key_env"`
	}
	var out []provider
	for _, p := range h.registry.Providers() {
		out = append(out, provider{Name: p.Name, DefaultModel: p.DefaultModel, APIKeyEnv: p.APIKeyEnv})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := h.decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	cat, err := schema.Parse(req.Schema)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	td, ok := cat.Get(req.Type)
	if !ok {
		h.writeError(w, r, &schema.SchemaError{Type: req.Type, Message: "unknown type"})
		return
	}
	opts, err := h.options(req.tuning)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	res, err := h.gen.Generate(r.Context(), td, req.Prompt, countOrOne(req.Count), opts)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) GenerateRelated(w http.ResponseWriter, r *http.Request) {
	var req relatedRequest
	if err := h.decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	cat, err := schema.Parse(req.Schema)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if len(req.Types) > 0 {
		if cat, err = cat.Subset(req.Types); err != nil {
			h.writeError(w, r, err)
			return
		}
	}
	prompts, err := prompt.NormalizePrompts(req.Prompts, cat.Names())
	if err != nil {
		h.writeError(w, r, badRequest(err))
		return
	}
	opts, err := h.options(req.tuning)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	results, err := h.gen.GenerateRelated(r.Context(), cat, prompts, countOrOne(req.Count), opts)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	runID := uuid.NewString()
	if h.sink != nil {
		if err := h.sink.Write(r.Context(), runID, results); err != nil {
			h.writeError(w, r, fmt.Errorf("export run %s: %w", runID, err))
			return
		}
	}
	writeJSON(w, http.StatusOK, relatedResponse{RunID: runID, Types: cat.Names(), Results: results})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) error {
	if err := readJSON(w, r, dst); err != nil {
		return badRequest(err)
	}
	if err := h.validate.Struct(dst); err != nil {
		return badRequest(err)
	}
	return nil
}

func (h *Handler) options(t tuning) (generator.Options, error) {
	opts := h.defaults
	if t.Temperature != nil {
		opts = opts.WithTemperature(*t.Temperature)
	}
	if t.MaxTokens != nil {
		opts.MaxTokens = *t.MaxTokens
	}
	if t.MaxRetries != nil {
		opts = opts.WithMaxRetries(*t.MaxRetries)
	}
	if len(t.Options) > 0 {
		po, err := prompt.OptionsFromMap(t.Options)
		if err != nil {
			return opts, badRequest(err)
		}
		opts.Prompt = &po
	}
	return opts, nil
}

func countOrOne(n int) int {
	if n <= 0 {
		return 1
	}
	return n
}

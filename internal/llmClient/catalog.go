package llmclient

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
)

// Config selects and parameterises a backend. It is comparable so it can
// key an instance cache.
type Config struct {
	Provider string
	Model    string
	APIKey   string
	BaseURL  string
}

// Factory creates a backend for a resolved config.
type Factory func(ctx context.Context, cfg Config) (Backend, error)

// ProviderRegistration describes one backend provider.
type ProviderRegistration struct {
	Name         string
	DefaultModel string
	APIKeyEnv    string
	Factory      Factory
}

// Registry maps provider names to registrations.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]ProviderRegistration
}

func NewRegistry() *Registry {
	return &Registry{providers: map[string]ProviderRegistration{}}
}

// Register adds a provider. Names are case-insensitive.
func (r *Registry) Register(p ProviderRegistration) error {
	name := strings.ToLower(strings.TrimSpace(p.Name))
	if name == "" {
		return fmt.Errorf("llmclient: provider name is empty")
	}
	if p.Factory == nil {
		return fmt.Errorf("llmclient: provider %s has no factory", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.providers[name]; dup {
		return fmt.Errorf("llmclient: provider %s already registered", name)
	}
	p.Name = name
	r.providers[name] = p
	return nil
}

// Get returns a registration.
func (r *Registry) Get(name string) (ProviderRegistration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[strings.ToLower(strings.TrimSpace(name))]
	return p, ok
}

// Providers lists registered providers sorted by name.
func (r *Registry) Providers() []ProviderRegistration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ProviderRegistration, 0, len(r.providers))
	for _, p := range r.providers {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Resolve fills the model and API key defaults of cfg.
func (r *Registry) Resolve(cfg Config) (Config, ProviderRegistration, error) {
	p, ok := r.Get(cfg.Provider)
	if !ok {
		return cfg, p, fmt.Errorf("llmclient: unknown provider %q", cfg.Provider)
	}
	cfg.Provider = p.Name
	cfg.Model = firstNonEmpty(cfg.Model, p.DefaultModel)
	if cfg.APIKey == "" && p.APIKeyEnv != "" {
		cfg.APIKey = os.Getenv(p.APIKeyEnv)
	}
	return cfg, p, nil
}

// New resolves cfg and builds a fresh backend.
func (r *Registry) New(ctx context.Context, cfg Config) (Backend, error) {
	resolved, p, err := r.Resolve(cfg)
	if err != nil {
		return nil, err
	}
	return p.Factory(ctx, resolved)
}

// DefaultRegistry knows the built-in providers.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, p := range builtinProviders() {
		_ = r.Register(p)
	}
	return r
}

func builtinProviders() []ProviderRegistration {
	return []ProviderRegistration{
		{
			Name:         "gemini",
			DefaultModel: defaultGeminiModel,
			APIKeyEnv:    "GEMINI_API_KEY",
			Factory: func(ctx context.Context, cfg Config) (Backend, error) {
				return NewGeminiClient(ctx, cfg.APIKey, cfg.Model)
			},
		},
		{
			Name:         "openai",
			DefaultModel: defaultOpenAIModel,
			APIKeyEnv:    "OPENAI_API_KEY",
			Factory: func(_ context.Context, cfg Config) (Backend, error) {
				if cfg.APIKey == "" {
					return nil, NewPermanentError("openai", ReasonAuth, fmt.Errorf("OPENAI_API_KEY is not set"))
				}
				return NewOpenAI(cfg.APIKey, cfg.Model, cfg.BaseURL), nil
			},
		},
		{
			Name:         "openrouter",
			DefaultModel: defaultOpenRouterModel,
			APIKeyEnv:    "OPENROUTER_API_KEY",
			Factory: func(_ context.Context, cfg Config) (Backend, error) {
				if cfg.APIKey == "" {
					return nil, NewPermanentError("openrouter", ReasonAuth, fmt.Errorf("OPENROUTER_API_KEY is not set"))
				}
				return NewOpenRouter(cfg.APIKey, cfg.Model, cfg.BaseURL), nil
			},
		},
	}
}

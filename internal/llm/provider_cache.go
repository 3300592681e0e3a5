package llm

import (
	"context"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	llmclient "weaver/internal/llmClient"
)

const defaultProviderCacheSize = 32

// ProviderCache builds backends through a registry and reuses them for
// equal configs. Concurrent first requests for the same config share one
// construction. Evicted backends are closed.
type ProviderCache struct {
	registry *llmclient.Registry
	wrap     []Middleware

	cache *lru.Cache[llmclient.Config, llmclient.Backend]
	group singleflight.Group

	mu     sync.Mutex
	closed bool
}

// NewProviderCache creates a cache of at most size backends. Every backend
// it builds is wrapped with mws.
func NewProviderCache(registry *llmclient.Registry, size int, mws ...Middleware) (*ProviderCache, error) {
	if registry == nil {
		registry = llmclient.DefaultRegistry()
	}
	if size <= 0 {
		size = defaultProviderCacheSize
	}
	c, err := lru.NewWithEvict[llmclient.Config, llmclient.Backend](size, func(_ llmclient.Config, b llmclient.Backend) {
		_ = b.Close()
	})
	if err != nil {
		return nil, err
	}
	return &ProviderCache{registry: registry, wrap: mws, cache: c}, nil
}

// Get returns the backend for cfg, building it on first use.
func (p *ProviderCache) Get(ctx context.Context, cfg llmclient.Config) (llmclient.Backend, error) {
	resolved, _, err := p.registry.Resolve(cfg)
	if err != nil {
		return nil, err
	}
	if b, ok := p.cache.Get(resolved); ok {
		return b, nil
	}

	v, err, _ := p.group.Do(cacheKey(resolved), func() (any, error) {
		if b, ok := p.cache.Get(resolved); ok {
			return b, nil
		}
		p.mu.Lock()
		closed := p.closed
		p.mu.Unlock()
		if closed {
			return nil, fmt.Errorf("llm: provider cache is closed")
		}
		b, err := p.registry.New(ctx, resolved)
		if err != nil {
			return nil, err
		}
		b = Wrap(b, p.wrap...)
		p.mu.Lock()
		defer p.mu.Unlock()
		if p.closed {
			_ = b.Close()
			return nil, fmt.Errorf("llm: provider cache is closed")
		}
		p.cache.Add(resolved, b)
		return b, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(llmclient.Backend), nil
}

// Len reports how many backends are cached.
func (p *ProviderCache) Len() int { return p.cache.Len() }

// Close closes every cached backend.
func (p *ProviderCache) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	p.cache.Purge()
	return nil
}

func cacheKey(c llmclient.Config) string {
	return c.Provider + "::" + c.Model + "::" + c.BaseURL + "::" + c.APIKey
}

package generator

import (
	"context"
	"time"

	"github.com/google/uuid"

	"weaver/internal/deps"
	"weaver/internal/prompt"
	"weaver/internal/schema"
)

// GenerateRelated generates every type of cat in dependency order. Types
// whose dependencies are already generated receive a correlation digest of
// those records. prompts maps type names to prompts; missing entries use the
// default prompt for the type.
//
// Generation is sequential. The first failure aborts the call and nothing
// generated so far is returned.
func (g *Generator) GenerateRelated(ctx context.Context, cat *schema.Catalog, prompts map[string]string, count int, opts Options) (map[string]Result, error) {
	order, err := (&deps.Resolver{Strict: g.strict, Logger: g.log}).Order(cat)
	if err != nil {
		return nil, err
	}
	normalized, err := prompt.NormalizePrompts(prompts, cat.Names())
	if err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	log := g.log.With("run_id", runID)
	log.Info("generator: related generation", "order", order, "count", count)
	start := time.Now()

	pool := deps.NewPool()
	results := make(map[string]Result, len(order))
	for _, name := range order {
		td, _ := cat.Get(name)
		available := pool.Available(deps.DetectDependencies(td, cat.Has))

		req := GenerationRequest{
			Type:    td,
			Prompt:  normalized[name],
			Count:   count,
			Options: opts,
		}
		if len(available) > 0 {
			req.Digest = deps.BuildCorrelationContext(pool, available)
			log.Debug("generator: correlated", "type", name, "dependencies", available)
		}

		res, err := g.Run(ctx, req)
		if err != nil {
			return nil, err
		}
		pool.Put(td, res.Records)
		results[name] = res
	}

	out := make(map[string]Result, len(results))
	for name, recs := range pool.Restrict(cat.Names()) {
		r := results[name]
		r.Records = recs
		out[name] = r
	}
	log.Info("generator: related generation done", "types", len(out), "elapsed", time.Since(start))
	return out, nil
}

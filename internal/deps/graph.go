package deps

import (
	"log/slog"

	"weaver/internal/schema"
)

// DetectDependencies lists the types td references that are present in
// known, in field order, without duplicates. Self references and names
// unknown to the request are ignored.
func DetectDependencies(td *schema.TypeDescriptor, known func(string) bool) []string {
	if td == nil {
		return nil
	}
	var out []string
	seen := map[string]struct{}{}
	for _, f := range td.Fields {
		if !f.Kind.IsReference() && !f.IsForeignKey() {
			continue
		}
		name := f.TargetName()
		if name == "" || name == td.Name {
			continue
		}
		if known != nil && !known(name) {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

// Graph holds dependency edges between the members of one catalog.
// An edge dep -> dependent means dep must be generated first.
type Graph struct {
	names      []string
	index      map[string]int
	dependents map[string][]string
	requires   map[string][]string
}

// NewGraph builds the dependency graph of a catalog.
func NewGraph(cat *schema.Catalog) *Graph {
	names := cat.Names()
	g := &Graph{
		names:      names,
		index:      make(map[string]int, len(names)),
		dependents: make(map[string][]string, len(names)),
		requires:   make(map[string][]string, len(names)),
	}
	for i, n := range names {
		g.index[n] = i
	}
	for _, n := range names {
		td, _ := cat.Get(n)
		for _, dep := range DetectDependencies(td, cat.Has) {
			g.dependents[dep] = append(g.dependents[dep], n)
			g.requires[n] = append(g.requires[n], dep)
		}
	}
	return g
}

// Requires returns the direct dependencies of name.
func (g *Graph) Requires(name string) []string { return g.requires[name] }

// Resolver orders the types of a catalog for generation.
type Resolver struct {
	// Strict turns a dependency cycle into a DependencyError instead of
	// falling back to input order.
	Strict bool
	Logger *slog.Logger
}

// BuildOrder orders a catalog with the default lenient policy.
func BuildOrder(cat *schema.Catalog) ([]string, error) {
	return (&Resolver{}).Order(cat)
}

// Order runs Kahn's algorithm. Among the nodes ready at each step the one
// declared first wins, so the result is deterministic.
func (r *Resolver) Order(cat *schema.Catalog) ([]string, error) {
	g := NewGraph(cat)
	indegree := make([]int, len(g.names))
	for i, n := range g.names {
		indegree[i] = len(g.requires[n])
	}
	done := make([]bool, len(g.names))
	out := make([]string, 0, len(g.names))
	for len(out) < len(g.names) {
		next := -1
		for i := range g.names {
			if !done[i] && indegree[i] == 0 {
				next = i
				break
			}
		}
		if next < 0 {
			break
		}
		done[next] = true
		out = append(out, g.names[next])
		for _, d := range g.dependents[g.names[next]] {
			indegree[g.index[d]]--
		}
	}
	if len(out) == len(g.names) {
		return out, nil
	}

	var stuck []string
	for i, n := range g.names {
		if !done[i] {
			stuck = append(stuck, n)
		}
	}
	if r.Strict {
		return nil, &DependencyError{Cycle: stuck}
	}
	r.logger().Warn("deps: dependency cycle, using declaration order", "types", stuck)
	return g.names, nil
}

func (r *Resolver) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

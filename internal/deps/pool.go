package deps

import (
	"sync"

	"weaver/internal/schema"
)

// Record is one generated instance, keyed by field name.
type Record = map[string]any

// Entry is what the pool keeps for one generated type.
type Entry struct {
	Type    *schema.TypeDescriptor
	Records []Record
}

// Pool accumulates generated records during one multi-type request.
// It is append-only: a type is stored once and never overwritten.
type Pool struct {
	mu      sync.RWMutex
	order   []string
	entries map[string]Entry
}

func NewPool() *Pool {
	return &Pool{entries: map[string]Entry{}}
}

// Put stores the records of a type. A second Put for the same type is ignored
// and reported as false.
func (p *Pool) Put(td *schema.TypeDescriptor, records []Record) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.entries[td.Name]; ok {
		return false
	}
	cp := make([]Record, len(records))
	copy(cp, records)
	p.entries[td.Name] = Entry{Type: td, Records: cp}
	p.order = append(p.order, td.Name)
	return true
}

// Get returns the entry for a type.
func (p *Pool) Get(name string) (Entry, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	e, ok := p.entries[name]
	return e, ok
}

// Has reports whether the type has been generated.
func (p *Pool) Has(name string) bool {
	_, ok := p.Get(name)
	return ok
}

// Names lists generated types in insertion order.
func (p *Pool) Names() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]string, len(p.order))
	copy(out, p.order)
	return out
}

// Available filters names down to those already in the pool.
func (p *Pool) Available(names []string) []string {
	var out []string
	for _, n := range names {
		if p.Has(n) {
			out = append(out, n)
		}
	}
	return out
}

// Restrict returns the records of the named types only.
func (p *Pool) Restrict(names []string) map[string][]Record {
	out := make(map[string][]Record, len(names))
	for _, n := range names {
		if e, ok := p.Get(n); ok {
			out[n] = e.Records
		}
	}
	return out
}

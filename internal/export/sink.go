// Package export persists generated records outside the process.
package export

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"weaver/internal/generator"
	"weaver/internal/util/jsonutil"
)

// Sink stores the records of one run, one entry per type.
type Sink interface {
	Write(ctx context.Context, runID string, results map[string]generator.Result) error
	Close() error
}

// typeNames returns result keys in a stable order.
func typeNames(results map[string]generator.Result) []string {
	names := make([]string, 0, len(results))
	for n := range results {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func encodeRecords(r generator.Result) ([]byte, error) {
	recs := r.Records
	if recs == nil {
		recs = []map[string]any{}
	}
	return jsonutil.MarshalNoEscapeIndent(recs, "", "  ")
}

func checkRunID(runID string) (string, error) {
	runID = strings.TrimSpace(runID)
	if runID == "" {
		return "", fmt.Errorf("run_id is required")
	}
	if strings.ContainsAny(runID, `/\`) {
		return "", fmt.Errorf("run_id %q must not contain path separators", runID)
	}
	return runID, nil
}

// initGate runs a setup step until it first succeeds. Failed attempts, such
// as ones cut short by a cancelled context, are retried on the next call.
type initGate struct {
	mu   sync.Mutex
	done bool
}

func (g *initGate) Do(setup func() error) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.done {
		return nil
	}
	if err := setup(); err != nil {
		return err
	}
	g.done = true
	return nil
}

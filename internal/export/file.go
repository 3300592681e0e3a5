package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"weaver/internal/generator"
)

// FileSink writes <Dir>/<run>/<Type>.json.
type FileSink struct {
	Dir string
}

func NewFileSink(dir string) *FileSink {
	return &FileSink{Dir: dir}
}

func (s *FileSink) Write(ctx context.Context, runID string, results map[string]generator.Result) error {
	runID, err := checkRunID(runID)
	if err != nil {
		return err
	}
	dir := filepath.Join(s.Dir, runID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	for _, name := range typeNames(results) {
		if err := ctx.Err(); err != nil {
			return err
		}
		body, err := encodeRecords(results[name])
		if err != nil {
			return fmt.Errorf("encode %s: %w", name, err)
		}
		path := filepath.Join(dir, name+".json")
		if err := os.WriteFile(path, append(body, '\n'), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	return nil
}

func (s *FileSink) Close() error { return nil }

package export

import (
	"context"
	"fmt"
	"strings"

	"weaver/internal/config"
)

// Open builds the sink named by kind: file, postgres or s3.
func Open(ctx context.Context, kind, dir string, cfg config.ExportConfig) (Sink, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", "file":
		if dir == "" {
			dir = "weaver-out"
		}
		return NewFileSink(dir), nil
	case "postgres", "pg":
		if cfg.PostgresDSN == "" {
			return nil, fmt.Errorf("export postgres: WEAVER_EXPORT_PG_DSN is not set")
		}
		return OpenPostgres(ctx, cfg.PostgresDSN)
	case "s3":
		if !cfg.S3.Enabled() {
			return nil, fmt.Errorf("export s3: WEAVER_EXPORT_S3_ENDPOINT is not set")
		}
		return NewS3Sink(cfg.S3)
	default:
		return nil, fmt.Errorf("unknown export target %q (want file, postgres or s3)", kind)
	}
}

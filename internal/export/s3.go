package export

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"weaver/internal/config"
	"weaver/internal/generator"
	"weaver/internal/util/jsonutil"
)

// S3Sink uploads runs/<run>/<Type>.json to an S3-compatible bucket.
type S3Sink struct {
	client     *minio.Client
	bucketName string
	region     string
	bucket     initGate
}

func NewS3Sink(cfg config.S3Config) (*S3Sink, error) {
	for name, v := range map[string]string{
		"endpoint":   cfg.Endpoint,
		"access key": cfg.AccessKey,
		"secret key": cfg.SecretKey,
		"bucket":     cfg.Bucket,
	} {
		if strings.TrimSpace(v) == "" {
			return nil, fmt.Errorf("export s3: %s is required", name)
		}
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}
	client, err := minio.New(strings.TrimSpace(cfg.Endpoint), &minio.Options{
		Creds:  credentials.NewStaticV4(strings.TrimSpace(cfg.AccessKey), strings.TrimSpace(cfg.SecretKey), ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("export s3: client: %w", err)
	}
	return &S3Sink{client: client, bucketName: strings.TrimSpace(cfg.Bucket), region: region}, nil
}

func (s *S3Sink) ensureBucket(ctx context.Context) error {
	return s.bucket.Do(func() error {
		exists, err := s.client.BucketExists(ctx, s.bucketName)
		if err != nil || exists {
			return err
		}
		return s.client.MakeBucket(ctx, s.bucketName, minio.MakeBucketOptions{Region: s.region})
	})
}

// Write uploads one object per type plus a manifest listing record counts.
func (s *S3Sink) Write(ctx context.Context, runID string, results map[string]generator.Result) error {
	runID, err := checkRunID(runID)
	if err != nil {
		return err
	}
	if err := s.ensureBucket(ctx); err != nil {
		return fmt.Errorf("export s3: bucket %s: %w", s.bucketName, err)
	}
	counts := make(map[string]int, len(results))
	for _, name := range typeNames(results) {
		body, err := encodeRecords(results[name])
		if err != nil {
			return fmt.Errorf("encode %s: %w", name, err)
		}
		meta := map[string]string{"run-id": runID, "record-type": name}
		if err := s.put(ctx, ObjectKey(runID, name), body, meta); err != nil {
			return err
		}
		counts[name] = len(results[name].Records)
	}
	manifest, err := jsonutil.MarshalNoEscapeIndent(map[string]any{"run_id": runID, "counts": counts}, "", "  ")
	if err != nil {
		return err
	}
	return s.put(ctx, path.Join("runs", runID, "manifest.json"), manifest, map[string]string{"run-id": runID})
}

func (s *S3Sink) put(ctx context.Context, key string, body []byte, meta map[string]string) error {
	_, err := s.client.PutObject(ctx, s.bucketName, key, bytes.NewReader(body), int64(len(body)), minio.PutObjectOptions{
		ContentType:  "application/json",
		UserMetadata: meta,
	})
	if err != nil {
		return fmt.Errorf("export s3: put %s: %w", key, err)
	}
	return nil
}

func (s *S3Sink) Close() error { return nil }

// ObjectKey is the bucket key of one type's records.
func ObjectKey(runID, typeName string) string {
	return path.Join("runs", strings.TrimSpace(runID), strings.TrimSpace(typeName)+".json")
}

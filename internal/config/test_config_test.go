package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"WEAVER_PROVIDER", "WEAVER_API_KEY", "WEAVER_BASE_URL", "WEAVER_TEMPERATURE",
		"WEAVER_MAX_TOKENS", "WEAVER_MAX_RETRIES", "WEAVER_TIMEOUT", "WEAVER_RPS", "WEAVER_BURST",
		"WEAVER_STRICT_CYCLES", "PORT", "GEMINI_API_KEY", "OPENAI_API_KEY",
		"WEAVER_EXPORT_PG_DSN", "WEAVER_EXPORT_S3_ENDPOINT", "WEAVER_EXPORT_S3_BUCKET",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("GEMINI_API_KEY", "g-key")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "gemini", cfg.Provider)
	assert.Equal(t, "g-key", cfg.APIKey)
	assert.InDelta(t, 0.1, cfg.Temperature, 1e-9)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, 60*time.Second, cfg.Timeout)
	assert.Equal(t, ":8080", cfg.Port)
	assert.False(t, cfg.Export.S3.Enabled())
	assert.Equal(t, "weaver-records", cfg.Export.S3.Bucket)

	opts := cfg.GeneratorOptions()
	require.NotNil(t, opts.MaxRetries)
	assert.Equal(t, 3, *opts.MaxRetries)
	assert.Equal(t, "gemini", cfg.LLM().Provider)
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("WEAVER_PROVIDER", "OpenAI")
	t.Setenv("OPENAI_API_KEY", "sk-1")
	t.Setenv("WEAVER_TEMPERATURE", "0.7")
	t.Setenv("WEAVER_TIMEOUT", "90")
	t.Setenv("WEAVER_MAX_RETRIES", "0")
	t.Setenv("WEAVER_STRICT_CYCLES", "true")
	t.Setenv("PORT", "9000")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, "openai", cfg.Provider)
	assert.Equal(t, "sk-1", cfg.APIKey)
	assert.InDelta(t, 0.7, cfg.Temperature, 1e-9)
	assert.Equal(t, 90*time.Second, cfg.Timeout)
	assert.Equal(t, 0, cfg.MaxRetries)
	assert.True(t, cfg.StrictCycles)
	assert.Equal(t, ":9000", cfg.Port)
}

func TestLoad_Rejects(t *testing.T) {
	cases := map[string][2]string{
		"unknown provider": {"WEAVER_PROVIDER", "cohere"},
		"temperature":      {"WEAVER_TEMPERATURE", "1.5"},
		"not a number":     {"WEAVER_MAX_RETRIES", "many"},
		"bad duration":     {"WEAVER_TIMEOUT", "soon"},
	}
	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(kv[0], kv[1])
			_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
			require.Error(t, err)
		})
	}
}

func TestLoad_ReadsEnvFile(t *testing.T) {
	clearEnv(t)
	if _, set := os.LookupEnv("WEAVER_MODEL"); set {
		t.Skip("WEAVER_MODEL already set in the environment")
	}
	t.Cleanup(func() { _ = os.Unsetenv("WEAVER_MODEL") })

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("WEAVER_MODEL=gemini-2.5-pro\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "gemini-2.5-pro", cfg.Model)
}

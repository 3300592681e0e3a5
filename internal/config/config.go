package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"weaver/internal/generator"
	llmclient "weaver/internal/llmClient"
)

type Config struct {
	Provider string `validate:"required,oneof=gemini openai openrouter"`
	Model    string
	APIKey   string
	BaseURL  string `validate:"omitempty,url"`

	Temperature  float64       `validate:"gte=0,lte=1"`
	MaxTokens    int           `validate:"gte=0"`
	MaxRetries   int           `validate:"gte=0,lte=10"`
	Timeout      time.Duration `validate:"gt=0"`
	RPS          float64       `validate:"gte=0"`
	Burst        int           `validate:"gte=0"`
	StrictCycles bool

	Port   string `validate:"required"`
	Export ExportConfig
}

type ExportConfig struct {
	PostgresDSN string
	S3          S3Config
}

type S3Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string `validate:"required_with=Endpoint"`
	UseSSL    bool
}

// Enabled reports whether an S3 endpoint is configured.
func (c S3Config) Enabled() bool { return c.Endpoint != "" }

// Load reads .env files (default ".env", missing files are ignored) and
// then the process environment.
func Load(envFiles ...string) (*Config, error) {
	_ = godotenv.Load(envFiles...)

	provider := strings.ToLower(firstNonEmpty(os.Getenv("WEAVER_PROVIDER"), "gemini"))
	cfg := &Config{
		Provider: provider,
		Model:    strings.TrimSpace(os.Getenv("WEAVER_MODEL")),
		APIKey:   firstNonEmpty(os.Getenv("WEAVER_API_KEY"), os.Getenv(apiKeyEnv(provider))),
		BaseURL:  strings.TrimSpace(os.Getenv("WEAVER_BASE_URL")),
		Port:     normalizePort(firstNonEmpty(os.Getenv("PORT"), ":8080")),
		Export:   loadExportConfig(),
	}

	var err error
	if cfg.Temperature, err = envFloat("WEAVER_TEMPERATURE", generator.DefaultTemperature); err != nil {
		return nil, err
	}
	if cfg.MaxTokens, err = envInt("WEAVER_MAX_TOKENS", 0); err != nil {
		return nil, err
	}
	if cfg.MaxRetries, err = envInt("WEAVER_MAX_RETRIES", generator.DefaultMaxRetries); err != nil {
		return nil, err
	}
	if cfg.Timeout, err = envDuration("WEAVER_TIMEOUT", generator.DefaultTimeout); err != nil {
		return nil, err
	}
	if cfg.RPS, err = envFloat("WEAVER_RPS", 0); err != nil {
		return nil, err
	}
	if cfg.Burst, err = envInt("WEAVER_BURST", 1); err != nil {
		return nil, err
	}
	if cfg.StrictCycles, err = envBool("WEAVER_STRICT_CYCLES", false); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// UseProvider switches provider and re-resolves its API key.
func (c *Config) UseProvider(name string) {
	c.Provider = strings.ToLower(strings.TrimSpace(name))
	c.APIKey = firstNonEmpty(os.Getenv("WEAVER_API_KEY"), os.Getenv(apiKeyEnv(c.Provider)))
}

// LLM returns the backend selection for the provider registry.
func (c *Config) LLM() llmclient.Config {
	return llmclient.Config{Provider: c.Provider, Model: c.Model, APIKey: c.APIKey, BaseURL: c.BaseURL}
}

// GeneratorOptions maps the generation settings.
func (c *Config) GeneratorOptions() generator.Options {
	return generator.Options{
		MaxTokens: c.MaxTokens,
		Timeout:   c.Timeout,
	}.WithTemperature(c.Temperature).WithMaxRetries(c.MaxRetries)
}

func loadExportConfig() ExportConfig {
	return ExportConfig{
		PostgresDSN: strings.TrimSpace(os.Getenv("WEAVER_EXPORT_PG_DSN")),
		S3: S3Config{
			Endpoint:  strings.TrimSpace(os.Getenv("WEAVER_EXPORT_S3_ENDPOINT")),
			Region:    firstNonEmpty(os.Getenv("WEAVER_EXPORT_S3_REGION"), "us-east-1"),
			AccessKey: firstNonEmpty(os.Getenv("WEAVER_EXPORT_S3_ACCESS_KEY"), os.Getenv("MINIO_ROOT_USER")),
			SecretKey: firstNonEmpty(os.Getenv("WEAVER_EXPORT_S3_SECRET_KEY"), os.Getenv("MINIO_ROOT_PASSWORD")),
			Bucket:    firstNonEmpty(os.Getenv("WEAVER_EXPORT_S3_BUCKET"), "weaver-records"),
			UseSSL:    parseBoolDefault(os.Getenv("WEAVER_EXPORT_S3_USE_SSL"), true),
		},
	}
}

func apiKeyEnv(provider string) string {
	switch provider {
	case "openai":
		return "OPENAI_API_KEY"
	case "openrouter":
		return "OPENROUTER_API_KEY"
	default:
		return "GEMINI_API_KEY"
	}
}

func normalizePort(p string) string {
	if strings.HasPrefix(p, ":") || strings.Contains(p, ":") {
		return p
	}
	return ":" + p
}

func envFloat(key string, def float64) (float64, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return v, nil
}

func envInt(key string, def int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return v, nil
}

// envDuration accepts Go durations ("90s") or plain seconds ("90").
func envDuration(key string, def time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	if secs, err := strconv.ParseFloat(raw, 64); err == nil {
		return time.Duration(secs * float64(time.Second)), nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return d, nil
}

func envBool(key string, def bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("config: %s: %w", key, err)
	}
	return v, nil
}

func parseBoolDefault(raw string, def bool) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return def
	}
	return v
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// Package weaver generates synthetic records that conform to declared
// record types by prompting an LLM backend and validating what it returns.
//
//	type User struct {
//		Name  string `json:"name"`
//		Email string `json:"email" desc:"work address"`
//	}
//
//	backend, _ := weaver.NewBackend(ctx, weaver.BackendConfig{Provider: "gemini"})
//	g := weaver.New(backend)
//	res, err := g.Generate(ctx, weaver.MustDescribe(User{}), "", 5, weaver.DefaultOptions())
package weaver

import (
	"context"

	"weaver/internal/deps"
	"weaver/internal/generator"
	llmclient "weaver/internal/llmClient"
	"weaver/internal/schema"
	"weaver/internal/validate"
)

type (
	TypeDescriptor = schema.TypeDescriptor
	FieldSpec      = schema.FieldSpec
	Catalog        = schema.Catalog
	Record         = validate.Record

	Generator = generator.Generator
	Option    = generator.Option
	Options   = generator.Options
	Result    = generator.Result

	Backend       = llmclient.Backend
	BackendConfig = llmclient.Config

	SchemaError     = schema.SchemaError
	DependencyError = deps.DependencyError
	ValidationError = validate.ValidationError
	BackendError    = llmclient.BackendError
	GenerationError = generator.GenerationError
)

// Sentinels for errors.Is.
var (
	ErrSchema     = schema.ErrSchema
	ErrDependency = deps.ErrDependency
	ErrValidation = validate.ErrValidation
	ErrBackend    = llmclient.ErrBackend
	ErrGeneration = generator.ErrGeneration
)

var (
	WithLogger       = generator.WithLogger
	WithPromptHook   = generator.WithPromptHook
	WithStrictCycles = generator.WithStrictCycles
)

// New returns a generator over backend.
func New(backend Backend, opts ...Option) *Generator {
	return generator.New(backend, opts...)
}

// DefaultOptions returns temperature 0.1, three retries and a 60s timeout.
func DefaultOptions() Options { return generator.DefaultOptions() }

// NewBackend builds a backend from the built-in providers.
func NewBackend(ctx context.Context, cfg BackendConfig) (Backend, error) {
	return llmclient.DefaultRegistry().New(ctx, cfg)
}

// Describe builds a descriptor from a Go struct value.
func Describe(v any) (*TypeDescriptor, error) { return schema.FromStruct(v) }

// MustDescribe is Describe that panics on error.
func MustDescribe(v any) *TypeDescriptor { return schema.MustFromStruct(v) }

// NewCatalog links descriptors into a catalog for related generation.
func NewCatalog(types ...*TypeDescriptor) (*Catalog, error) { return schema.NewCatalog(types...) }

// LoadCatalog reads a YAML or JSON descriptor file.
func LoadCatalog(path string) (*Catalog, error) { return schema.LoadFile(path) }

package weaver

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	llmclient "weaver/internal/llmClient"
)

type author struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type book struct {
	Title  string `json:"title"`
	Author author `json:"author"`
}

func TestGenerate(t *testing.T) {
	fake := llmclient.NewFakeClient(`{"name": "Ana", "email": "ana@example.com"}`)
	res, err := New(fake).Generate(context.Background(), MustDescribe(author{}), "", 1, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, "Ana", res.Single()["name"])
}

func TestGenerateRelated(t *testing.T) {
	td := MustDescribe(book{})
	require.NotNil(t, td)
	ref, ok := td.Field("author")
	require.True(t, ok)

	cat, err := NewCatalog(ref.Target, td)
	require.NoError(t, err)

	fake := llmclient.NewFakeClient(
		`{"name": "Ana", "email": "ana@example.com"}`,
		`{"title": "Dune", "author": {"name": "Ana", "email": "ana@example.com"}}`,
	)
	out, err := New(fake).GenerateRelated(context.Background(), cat, nil, 1, DefaultOptions())
	require.NoError(t, err)
	assert.Len(t, out, 2)
}

func TestErrorSentinels(t *testing.T) {
	fake := llmclient.NewFakeClient("not json")
	opts := DefaultOptions().WithMaxRetries(0)
	_, err := New(fake).Generate(context.Background(), MustDescribe(author{}), "", 1, opts)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrGeneration))
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestGenerate_EmptyOptionsRetry(t *testing.T) {
	fake := llmclient.NewFakeClient("not json", `{"name": "Ana", "email": "ana@example.com"}`)
	res, err := New(fake).Generate(context.Background(), MustDescribe(author{}), "", 1, Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, fake.Calls())
	assert.Equal(t, 2, res.Attempts)
}

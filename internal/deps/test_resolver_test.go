package deps

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weaver/internal/schema"
)

func prim(name string, p schema.Primitive) schema.FieldSpec {
	return schema.FieldSpec{Name: name, Kind: schema.KindPrimitive, Primitive: p, Required: true}
}

func ref(name, target string) schema.FieldSpec {
	return schema.FieldSpec{Name: name, Kind: schema.KindReference, Ref: target, Required: true}
}

func mustCatalog(t *testing.T, types ...*schema.TypeDescriptor) *schema.Catalog {
	t.Helper()
	cat, err := schema.NewCatalog(types...)
	require.NoError(t, err)
	return cat
}

func position(order []string, name string) int {
	for i, n := range order {
		if n == name {
			return i
		}
	}
	return -1
}

func TestDetectDependencies_KindsAndFiltering(t *testing.T) {
	td := &schema.TypeDescriptor{Name: "Order", Fields: []schema.FieldSpec{
		prim("id", schema.Integer),
		{Name: "user_id", Kind: schema.KindPrimitive, Primitive: schema.Integer, Ref: "User"},
		ref("buyer", "User"),
		{Name: "lines", Kind: schema.KindListOfReference, Ref: "LineItem"},
		{Name: "parent", Kind: schema.KindOptionalReference, Ref: "Order"},
		ref("meta", "External"),
	}}
	known := func(n string) bool { return n == "User" || n == "LineItem" || n == "Order" }

	assert.Equal(t, []string{"User", "LineItem"}, DetectDependencies(td, known))
}

func TestBuildOrder_TopologicalValidity(t *testing.T) {
	order := &schema.TypeDescriptor{Name: "Order", Fields: []schema.FieldSpec{ref("user", "User"), ref("product", "Product")}}
	review := &schema.TypeDescriptor{Name: "Review", Fields: []schema.FieldSpec{ref("order", "Order"), ref("user", "User")}}
	user := &schema.TypeDescriptor{Name: "User", Fields: []schema.FieldSpec{prim("id", schema.Integer)}}
	product := &schema.TypeDescriptor{Name: "Product", Fields: []schema.FieldSpec{prim("id", schema.Integer)}}
	cat := mustCatalog(t, review, order, user, product)

	got, err := BuildOrder(cat)
	require.NoError(t, err)
	require.Len(t, got, 4)

	g := NewGraph(cat)
	for _, n := range got {
		for _, dep := range g.Requires(n) {
			assert.Less(t, position(got, dep), position(got, n), "%s must precede %s", dep, n)
		}
	}
	assert.Equal(t, []string{"User", "Product", "Order", "Review"}, got)
}

func TestBuildOrder_TiesFollowInputOrder(t *testing.T) {
	a := &schema.TypeDescriptor{Name: "A", Fields: []schema.FieldSpec{prim("id", schema.Integer)}}
	b := &schema.TypeDescriptor{Name: "B", Fields: []schema.FieldSpec{prim("id", schema.Integer)}}
	c := &schema.TypeDescriptor{Name: "C", Fields: []schema.FieldSpec{prim("id", schema.Integer)}}

	got, err := BuildOrder(mustCatalog(t, c, a, b))
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "A", "B"}, got)
}

func TestBuildOrder_SelfReferenceIgnored(t *testing.T) {
	emp := &schema.TypeDescriptor{Name: "Employee", Fields: []schema.FieldSpec{
		prim("id", schema.Integer),
		{Name: "manager", Kind: schema.KindOptionalReference, Ref: "Employee"},
	}}
	got, err := BuildOrder(mustCatalog(t, emp))
	require.NoError(t, err)
	assert.Equal(t, []string{"Employee"}, got)
}

func TestBuildOrder_CycleFallsBackToInputOrder(t *testing.T) {
	a := &schema.TypeDescriptor{Name: "A", Fields: []schema.FieldSpec{ref("b", "B")}}
	b := &schema.TypeDescriptor{Name: "B", Fields: []schema.FieldSpec{ref("a", "A")}}
	solo := &schema.TypeDescriptor{Name: "Solo", Fields: []schema.FieldSpec{prim("id", schema.Integer)}}

	got, err := BuildOrder(mustCatalog(t, a, b, solo))
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "Solo"}, got)
}

func TestResolver_StrictCycle(t *testing.T) {
	a := &schema.TypeDescriptor{Name: "A", Fields: []schema.FieldSpec{ref("b", "B")}}
	b := &schema.TypeDescriptor{Name: "B", Fields: []schema.FieldSpec{ref("a", "A")}}
	solo := &schema.TypeDescriptor{Name: "Solo", Fields: []schema.FieldSpec{prim("id", schema.Integer)}}

	_, err := (&Resolver{Strict: true}).Order(mustCatalog(t, solo, a, b))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDependency))
	var de *DependencyError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, []string{"A", "B"}, de.Cycle)
}

func userDescriptor() *schema.TypeDescriptor {
	return &schema.TypeDescriptor{Name: "User", Fields: []schema.FieldSpec{
		prim("id", schema.Integer),
		prim("name", schema.String),
		prim("bio", schema.String),
	}}
}

func TestBuildCorrelationContext_DigestShape(t *testing.T) {
	pool := NewPool()
	pool.Put(userDescriptor(), []Record{
		{"id": json.Number("1"), "name": "Alice", "bio": strings.Repeat("x", 80)},
		{"id": json.Number("2"), "name": "Bob", "bio": "short"},
	})

	got := BuildCorrelationContext(pool, []string{"User"})
	want := "Available User instances to reference:\n" +
		"  - {\"id\": 1, \"name\": \"Alice\"}\n" +
		"  - {\"id\": 2, \"name\": \"Bob\", \"bio\": \"short\"}"
	assert.Equal(t, want, got)
}

func TestBuildCorrelationContext_ValueLengthBoundary(t *testing.T) {
	pool := NewPool()
	pool.Put(userDescriptor(), []Record{
		{"id": json.Number("1"), "bio": strings.Repeat("b", 48)},
		{"id": json.Number("2"), "bio": strings.Repeat("c", 49)},
		{"id": json.Number("3"), "bio": strings.Repeat("d", 50)},
		{"id": json.Number("4"), "bio": strings.Repeat("é", 49)},
	})

	got := BuildCorrelationContext(pool, []string{"User"})
	assert.Contains(t, got, strings.Repeat("b", 48))
	assert.Contains(t, got, strings.Repeat("c", 49))
	assert.NotContains(t, got, strings.Repeat("d", 50))
	assert.Contains(t, got, strings.Repeat("é", 49))
	assert.Contains(t, got, `{"id": 3}`)
}

func TestBuildCorrelationContext_CapsAtTen(t *testing.T) {
	pool := NewPool()
	recs := make([]Record, 20)
	for i := range recs {
		recs[i] = Record{"id": json.Number(fmt.Sprint(i + 1)), "name": fmt.Sprintf("user-%d", i+1)}
	}
	pool.Put(userDescriptor(), recs)

	got := BuildCorrelationContext(pool, []string{"User"})
	assert.Equal(t, 10, strings.Count(got, "\n  - "))
	assert.Contains(t, got, `"id": 10,`)
	assert.NotContains(t, got, `"id": 11,`)
	assert.Len(t, pool.Restrict([]string{"User"})["User"], 20)
}

func TestBuildCorrelationContext_NameFallbackAndMissingDeps(t *testing.T) {
	tag := &schema.TypeDescriptor{Name: "Tag", Fields: []schema.FieldSpec{prim("label", schema.String), prim("name", schema.String)}}
	pool := NewPool()
	pool.Put(tag, []Record{{"label": "x", "name": "go"}})

	got := BuildCorrelationContext(pool, []string{"Missing", "Tag"})
	assert.Equal(t, "Available Tag instances to reference:\n  - {\"name\": \"go\", \"label\": \"x\"}", got)
	assert.Empty(t, BuildCorrelationContext(pool, []string{"Missing"}))
}

func TestPool_AppendOnly(t *testing.T) {
	pool := NewPool()
	assert.True(t, pool.Put(userDescriptor(), []Record{{"id": 1}}))
	assert.False(t, pool.Put(userDescriptor(), []Record{{"id": 2}}))

	e, ok := pool.Get("User")
	require.True(t, ok)
	assert.Equal(t, 1, e.Records[0]["id"])
	assert.Equal(t, []string{"User"}, pool.Available([]string{"Order", "User"}))
}

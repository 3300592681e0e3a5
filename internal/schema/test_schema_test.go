package schema

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func userType() *TypeDescriptor {
	return &TypeDescriptor{
		Name: "User",
		Fields: []FieldSpec{
			{Name: "id", Kind: KindPrimitive, Primitive: Integer, Required: true},
			{Name: "name", Kind: KindPrimitive, Primitive: String, Required: true},
			{Name: "email", Kind: KindPrimitive, Primitive: String, Required: true},
			{Name: "birthday", Kind: KindPrimitive, Primitive: Date},
		},
	}
}

func TestToPortableSchema_Primitives(t *testing.T) {
	doc, err := ToPortableSchema(userType())
	require.NoError(t, err)

	assert.Equal(t, "object", doc.Type)
	assert.Equal(t, []string{"id", "name", "email"}, doc.Required)
	assert.Equal(t, "integer", doc.Properties["id"].Type)
	assert.Equal(t, "A positive integer ID", doc.Properties["id"].Description)
	assert.Equal(t, "email", doc.Properties["email"].Format)
	assert.Equal(t, "string", doc.Properties["birthday"].Type)
	assert.Equal(t, "date", doc.Properties["birthday"].Format)
}

func TestToPortableSchema_InlinesReferences(t *testing.T) {
	addr := &TypeDescriptor{Name: "Address", Fields: []FieldSpec{
		{Name: "city", Kind: KindPrimitive, Primitive: String, Required: true},
	}}
	person := &TypeDescriptor{Name: "Person", Fields: []FieldSpec{
		{Name: "home", Kind: KindReference, Ref: "Address", Target: addr, Required: true},
		{Name: "past", Kind: KindListOfReference, Ref: "Address", Target: addr},
		{Name: "work", Kind: KindOptionalReference, Ref: "Address", Target: addr},
	}}

	doc, err := ToPortableSchema(person)
	require.NoError(t, err)

	home := doc.Properties["home"]
	assert.Equal(t, "object", home.Type)
	assert.Equal(t, "string", home.Properties["city"].Type)
	assert.Empty(t, home.Ref)

	past := doc.Properties["past"]
	assert.Equal(t, "array", past.Type)
	assert.Equal(t, "string", past.Items.Properties["city"].Type)

	work := doc.Properties["work"]
	require.Len(t, work.AnyOf, 2)
	assert.Equal(t, "null", work.AnyOf[1].Type)
}

func TestToPortableSchema_CycleBoundary(t *testing.T) {
	node := &TypeDescriptor{Name: "Node"}
	node.Fields = []FieldSpec{
		{Name: "label", Kind: KindPrimitive, Primitive: String, Required: true},
		{Name: "next", Kind: KindOptionalReference, Ref: "Node", Target: node},
		{Name: "children", Kind: KindListOfReference, Ref: "Node", Target: node},
	}

	doc, err := ToPortableSchema(node)
	require.NoError(t, err)

	next := doc.Properties["next"].AnyOf[0]
	assert.Equal(t, "object", next.Type)
	assert.Nil(t, next.Properties)
	assert.Nil(t, doc.Properties["children"].Items.Properties)
}

func TestToPortableSchema_MutualCycleExpandsOnce(t *testing.T) {
	a := &TypeDescriptor{Name: "A"}
	b := &TypeDescriptor{Name: "B"}
	a.Fields = []FieldSpec{{Name: "b", Kind: KindReference, Ref: "B", Target: b, Required: true}}
	b.Fields = []FieldSpec{{Name: "a", Kind: KindReference, Ref: "A", Target: a, Required: true}}

	doc, err := ToPortableSchema(a)
	require.NoError(t, err)

	inner := doc.Properties["b"]
	require.NotNil(t, inner.Properties)
	back := inner.Properties["a"]
	assert.Equal(t, "object", back.Type)
	assert.Nil(t, back.Properties)
}

func TestToPortableSchema_OpaqueReference(t *testing.T) {
	td := &TypeDescriptor{Name: "Post", Fields: []FieldSpec{
		{Name: "meta", Kind: KindReference, Ref: "Unknown", Required: true},
	}}
	doc, err := ToPortableSchema(td)
	require.NoError(t, err)
	assert.Equal(t, "object", doc.Properties["meta"].Type)
	assert.Nil(t, doc.Properties["meta"].Properties)
}

func TestToPortableSchema_RejectsUnknownPrimitive(t *testing.T) {
	td := &TypeDescriptor{Name: "Bad", Fields: []FieldSpec{
		{Name: "x", Kind: KindPrimitive, Primitive: "decimal"},
	}}
	_, err := ToPortableSchema(td)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSchema))
	var se *SchemaError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "x", se.Field)
}

func TestEnvelopeSchema_FixesCount(t *testing.T) {
	item, err := ToPortableSchema(userType())
	require.NoError(t, err)

	env := EnvelopeSchema(item, 3)
	items := env.Properties[EnvelopeField]
	assert.Equal(t, []string{"items"}, env.Required)
	assert.Equal(t, "array", items.Type)
	assert.Equal(t, 3, *items.MinItems)
	assert.Equal(t, 3, *items.MaxItems)
	assert.Same(t, item, items.Items)
}

func TestCreateInstructionPrompt_EmbedsSchema(t *testing.T) {
	doc, err := ToPortableSchema(userType())
	require.NoError(t, err)

	out, err := CreateInstructionPrompt(doc, "User")
	require.NoError(t, err)
	assert.Contains(t, out, "for the User type")
	assert.Contains(t, out, "JSON Schema:\n{")
	assert.Contains(t, out, `"email"`)
	assert.True(t, strings.HasSuffix(out, "Generate valid JSON that matches this schema exactly."))
}

func TestHintFor_Table(t *testing.T) {
	h, ok := HintFor("Phone_Number", String)
	require.True(t, ok)
	assert.Equal(t, "A valid phone number", h.Description)

	h, ok = HintFor("quantity", Integer)
	require.True(t, ok)
	assert.Equal(t, "A positive integer quantity", h.Description)

	_, ok = HintFor("color", String)
	assert.False(t, ok)
}

func TestCatalog_LinksAndKeepsOrder(t *testing.T) {
	order := &TypeDescriptor{Name: "Order", Fields: []FieldSpec{
		{Name: "buyer", Kind: KindReference, Ref: "User", Required: true},
		{Name: "coupon", Kind: KindReference, Ref: "Coupon"},
	}}
	cat, err := NewCatalog(order, userType())
	require.NoError(t, err)

	assert.Equal(t, []string{"Order", "User"}, cat.Names())
	td, _ := cat.Get("Order")
	require.NotNil(t, td.Fields[0].Target)
	assert.Equal(t, "User", td.Fields[0].Target.Name)
	assert.Nil(t, td.Fields[1].Target)
}

func TestCatalog_RejectsDuplicate(t *testing.T) {
	_, err := NewCatalog(userType(), userType())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate type name")
}

func TestParse_YAML(t *testing.T) {
	src := []byte(`
types:
  - name: User
    fields:
      - {name: id, type: integer}
      - {name: name, type: string}
      - {name: nickname, type: string, required: false}
  - name: Order
    fields:
      - {name: id, type: int}
      - {name: user_id, type: integer, ref: User}
      - {name: status, type: string, enum: [open, shipped]}
      - {name: lines, type: list, ref: LineItem}
`)
	cat, err := Parse(src)
	require.NoError(t, err)
	assert.Equal(t, []string{"User", "Order"}, cat.Names())

	order, _ := cat.Get("Order")
	fk, ok := order.Field("user_id")
	require.True(t, ok)
	assert.True(t, fk.IsForeignKey())
	assert.Equal(t, []string{"open", "shipped"}, order.Fields[2].Enum)
	assert.Equal(t, KindListOfReference, order.Fields[3].Kind)
	assert.Nil(t, order.Fields[3].Target)

	user, _ := cat.Get("User")
	assert.False(t, user.Fields[2].Required)
}

func TestParse_JSON(t *testing.T) {
	cat, err := Parse([]byte(`{"types":[{"name":"Tag","fields":[{"name":"label","type":"string"}]}]}`))
	require.NoError(t, err)
	assert.Equal(t, 1, cat.Len())
}

func TestParse_UnknownType(t *testing.T) {
	_, err := Parse([]byte("types:\n  - name: X\n    fields:\n      - {name: a, type: money}\n"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSchema))
}

type address struct {
	City string `json:"city"`
	Zip  string `json:"zip,omitempty"`
}

type account struct {
	ID        int64     `json:"id"`
	FullName  string    `json:"full_name" desc:"Display name"`
	Plan      string    `json:"plan" weaver:"enum=free|pro"`
	OwnerID   int       `json:"owner_id" weaver:"ref=User"`
	Home      address   `json:"home"`
	Previous  []address `json:"previous"`
	Parent    *account  `json:"parent"`
	CreatedAt time.Time `json:"created_at"`
	Internal  string    `json:"-"`
	Secret    string    `weaver:"-"`
}

func TestFromStruct_MapsFields(t *testing.T) {
	td, err := FromStruct(account{})
	require.NoError(t, err)

	assert.Equal(t, "account", td.Name)
	assert.Equal(t, []string{"id", "full_name", "plan", "owner_id", "home", "previous", "parent", "created_at"}, td.FieldNames())

	f, _ := td.Field("full_name")
	assert.Equal(t, "Display name", f.Description)

	f, _ = td.Field("plan")
	assert.Equal(t, []string{"free", "pro"}, f.Enum)

	f, _ = td.Field("owner_id")
	assert.True(t, f.IsForeignKey())

	f, _ = td.Field("home")
	assert.Equal(t, KindReference, f.Kind)
	zip, _ := f.Target.Field("zip")
	assert.False(t, zip.Required)

	f, _ = td.Field("parent")
	assert.Equal(t, KindOptionalReference, f.Kind)
	assert.Same(t, td, f.Target)
	assert.False(t, f.Required)

	f, _ = td.Field("created_at")
	assert.Equal(t, DateTime, f.Primitive)

	_, err = ToPortableSchema(td)
	require.NoError(t, err)
}

func TestFromStruct_RejectsNonStruct(t *testing.T) {
	_, err := FromStruct(42)
	require.Error(t, err)
}

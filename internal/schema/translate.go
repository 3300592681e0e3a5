package schema

import (
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
)

// ToPortableSchema converts a descriptor into a self-contained JSON Schema
// document. Referenced types are inlined; no $ref or $defs are emitted.
//
// A reference to a type that is already being expanded further up the same
// path is emitted as a bare {"type":"object"}, which bounds recursion.
func ToPortableSchema(td *TypeDescriptor) (*jsonschema.Schema, error) {
	if err := td.Check(); err != nil {
		return nil, err
	}
	return objectSchema(td, nil)
}

// EnvelopeSchema wraps an item schema in the batch envelope
// {"items": [item x count]}.
func EnvelopeSchema(item *jsonschema.Schema, count int) *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			EnvelopeField: {
				Type:     "array",
				Items:    item,
				MinItems: intPtr(count),
				MaxItems: intPtr(count),
			},
		},
		Required: []string{EnvelopeField},
	}
}

// EnvelopeField is the property that carries batch items.
const EnvelopeField = "items"

func objectSchema(td *TypeDescriptor, path []string) (*jsonschema.Schema, error) {
	s := &jsonschema.Schema{
		Type:        "object",
		Title:       td.Name,
		Description: td.Description,
		Properties:  make(map[string]*jsonschema.Schema, len(td.Fields)),
	}
	path = append(path[:len(path):len(path)], td.Name)
	for _, f := range td.Fields {
		fs, err := fieldSchema(td.Name, f, path)
		if err != nil {
			return nil, err
		}
		s.Properties[f.Name] = fs
		if f.Required {
			s.Required = append(s.Required, f.Name)
		}
	}
	return s, nil
}

func fieldSchema(owner string, f FieldSpec, path []string) (*jsonschema.Schema, error) {
	switch f.Kind {
	case KindPrimitive:
		return primitiveSchema(owner, f)
	case KindReference:
		return referenceSchema(f, path)
	case KindOptionalReference:
		inner, err := referenceSchema(f, path)
		if err != nil {
			return nil, err
		}
		return &jsonschema.Schema{
			Description: f.Description,
			AnyOf:       []*jsonschema.Schema{inner, {Type: "null"}},
		}, nil
	case KindListOfReference:
		inner, err := referenceSchema(FieldSpec{Ref: f.Ref, Target: f.Target}, path)
		if err != nil {
			return nil, err
		}
		return &jsonschema.Schema{Type: "array", Description: f.Description, Items: inner}, nil
	default:
		return nil, &SchemaError{Type: owner, Field: f.Name, Message: fmt.Sprintf("unsupported field kind %s", f.Kind)}
	}
}

func referenceSchema(f FieldSpec, path []string) (*jsonschema.Schema, error) {
	if f.Target == nil || onPath(path, f.Target.Name) {
		return &jsonschema.Schema{Type: "object", Description: f.Description}, nil
	}
	s, err := objectSchema(f.Target, path)
	if err != nil {
		return nil, err
	}
	if f.Description != "" {
		s.Description = f.Description
	}
	return s, nil
}

func primitiveSchema(owner string, f FieldSpec) (*jsonschema.Schema, error) {
	s := &jsonschema.Schema{Description: f.Description}
	switch f.Primitive {
	case String:
		s.Type = "string"
	case Integer:
		s.Type = "integer"
	case Number:
		s.Type = "number"
	case Boolean:
		s.Type = "boolean"
	case Date:
		s.Type, s.Format = "string", "date"
	case DateTime:
		s.Type, s.Format = "string", "date-time"
	case Any:
	default:
		return nil, &SchemaError{Type: owner, Field: f.Name, Message: fmt.Sprintf("unsupported primitive %q", f.Primitive)}
	}
	if len(f.Enum) > 0 {
		s.Enum = make([]any, 0, len(f.Enum))
		for _, e := range f.Enum {
			s.Enum = append(s.Enum, e)
		}
	}
	if f.IsForeignKey() && s.Description == "" {
		s.Description = fmt.Sprintf("Must be an existing %s.%s", f.Ref, RefFieldOf(f))
	}
	if h, ok := HintFor(f.Name, f.Primitive); ok {
		if s.Description == "" {
			s.Description = h.Description
		}
		if s.Format == "" {
			s.Format = h.Format
		}
	}
	return s, nil
}

// RefFieldOf returns the referenced field of a foreign key, defaulting to id.
func RefFieldOf(f FieldSpec) string {
	if f.RefField != "" {
		return f.RefField
	}
	return "id"
}

func onPath(path []string, name string) bool {
	for _, p := range path {
		if p == name {
			return true
		}
	}
	return false
}

func intPtr(n int) *int { return &n }

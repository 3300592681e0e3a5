package schema

import (
	"fmt"
	"strings"
)

// Kind classifies how a field's value is shaped.
type Kind int

const (
	KindPrimitive Kind = iota
	KindReference
	KindListOfReference
	KindOptionalReference
)

func (k Kind) String() string {
	switch k {
	case KindPrimitive:
		return "primitive"
	case KindReference:
		return "reference"
	case KindListOfReference:
		return "list"
	case KindOptionalReference:
		return "optional"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// IsReference reports whether the kind points at another type.
func (k Kind) IsReference() bool {
	return k == KindReference || k == KindListOfReference || k == KindOptionalReference
}

// Primitive is the scalar type of a primitive field.
type Primitive string

const (
	String   Primitive = "string"
	Integer  Primitive = "integer"
	Number   Primitive = "number"
	Boolean  Primitive = "boolean"
	Date     Primitive = "date"
	DateTime Primitive = "datetime"
	Any      Primitive = "any"
)

// Valid reports whether p is one of the known primitive kinds.
func (p Primitive) Valid() bool {
	switch p {
	case String, Integer, Number, Boolean, Date, DateTime, Any:
		return true
	}
	return false
}

// FieldSpec describes one field of a record type.
//
// For reference kinds Ref names the target type and Target is the resolved
// descriptor (nil when the name is unknown to the request; the field is then
// opaque). A primitive field may also carry Ref, marking it as a foreign key
// into the identifier of another type.
type FieldSpec struct {
	Name        string
	Kind        Kind
	Primitive   Primitive
	Ref         string
	RefField    string
	Target      *TypeDescriptor
	Required    bool
	Description string
	Enum        []string
}

// IsForeignKey reports whether a primitive field points at another type.
func (f FieldSpec) IsForeignKey() bool {
	return f.Kind == KindPrimitive && strings.TrimSpace(f.Ref) != ""
}

// TargetName returns the name of the referenced type, preferring the
// resolved descriptor.
func (f FieldSpec) TargetName() string {
	if f.Target != nil {
		return f.Target.Name
	}
	return strings.TrimSpace(f.Ref)
}

// TypeDescriptor is the declarative description of a record type.
// Field order is significant and preserved end to end.
type TypeDescriptor struct {
	Name        string
	Description string
	Fields      []FieldSpec
}

// Field returns the named field.
func (td *TypeDescriptor) Field(name string) (FieldSpec, bool) {
	if td == nil {
		return FieldSpec{}, false
	}
	for _, f := range td.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// FieldNames lists field names in declaration order.
func (td *TypeDescriptor) FieldNames() []string {
	if td == nil {
		return nil
	}
	out := make([]string, 0, len(td.Fields))
	for _, f := range td.Fields {
		out = append(out, f.Name)
	}
	return out
}

// Check verifies that every field is representable.
func (td *TypeDescriptor) Check() error {
	if td == nil {
		return &SchemaError{Message: "type descriptor is nil"}
	}
	if strings.TrimSpace(td.Name) == "" {
		return &SchemaError{Message: "type name is empty"}
	}
	seen := make(map[string]struct{}, len(td.Fields))
	for _, f := range td.Fields {
		if strings.TrimSpace(f.Name) == "" {
			return &SchemaError{Type: td.Name, Message: "field name is empty"}
		}
		if _, dup := seen[f.Name]; dup {
			return &SchemaError{Type: td.Name, Field: f.Name, Message: "duplicate field"}
		}
		seen[f.Name] = struct{}{}
		switch f.Kind {
		case KindPrimitive:
			if !f.Primitive.Valid() {
				return &SchemaError{Type: td.Name, Field: f.Name, Message: fmt.Sprintf("unsupported primitive %q", f.Primitive)}
			}
		case KindReference, KindListOfReference, KindOptionalReference:
			if f.TargetName() == "" {
				return &SchemaError{Type: td.Name, Field: f.Name, Message: "reference has no target type"}
			}
		default:
			return &SchemaError{Type: td.Name, Field: f.Name, Message: fmt.Sprintf("unsupported field kind %s", f.Kind)}
		}
	}
	return nil
}

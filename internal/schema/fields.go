package schema

import (
	"fmt"
	"reflect"
	"strings"
	"time"
)

// FieldOptions controls how struct fields map to FieldSpec.
type FieldOptions struct {
	NameTag string
	DescTag string
	// Tag holds comma separated directives: "-", "required", "optional",
	// "ref=Type", "ref_field=id", "enum=a|b|c", "type=date".
	Tag string
}

// DefaultFieldOptions returns the standard tag mapping.
func DefaultFieldOptions() FieldOptions {
	return FieldOptions{
		NameTag: "json",
		DescTag: "desc",
		Tag:     "weaver",
	}
}

var timeType = reflect.TypeOf(time.Time{})

// FromStruct builds a descriptor from a Go struct. Nested struct fields
// become references; slices of structs become list references; pointers to
// structs become optional references. Recursive types resolve to the same
// descriptor.
func FromStruct(v any, opts ...FieldOptions) (*TypeDescriptor, error) {
	if v == nil {
		return nil, &SchemaError{Message: "struct is nil"}
	}
	cfg := DefaultFieldOptions()
	if len(opts) > 0 {
		cfg = opts[0]
	}
	t := reflect.TypeOf(v)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, &SchemaError{Message: fmt.Sprintf("expected struct, got %s", t.Kind())}
	}
	b := &structBuilder{cfg: cfg, seen: map[reflect.Type]*TypeDescriptor{}}
	return b.build(t)
}

// MustFromStruct panics on error; useful for package-level descriptors.
func MustFromStruct(v any, opts ...FieldOptions) *TypeDescriptor {
	td, err := FromStruct(v, opts...)
	if err != nil {
		panic(err)
	}
	return td
}

type structBuilder struct {
	cfg  FieldOptions
	seen map[reflect.Type]*TypeDescriptor
}

func (b *structBuilder) build(t reflect.Type) (*TypeDescriptor, error) {
	if td, ok := b.seen[t]; ok {
		return td, nil
	}
	td := &TypeDescriptor{Name: t.Name()}
	if td.Name == "" {
		return nil, &SchemaError{Message: "anonymous struct types are not supported"}
	}
	b.seen[t] = td
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		dir := parseDirectives(f.Tag.Get(b.cfg.Tag))
		if dir.skip {
			continue
		}
		name, omitEmpty := fieldName(f, b.cfg.NameTag)
		if name == "" {
			continue
		}
		fs, err := b.fieldSpec(f.Type, dir)
		if err != nil {
			return nil, &SchemaError{Type: td.Name, Field: name, Message: err.Error()}
		}
		fs.Name = name
		fs.Description = strings.TrimSpace(f.Tag.Get(b.cfg.DescTag))
		fs.Required = !omitEmpty && f.Type.Kind() != reflect.Pointer
		if dir.required != nil {
			fs.Required = *dir.required
		}
		td.Fields = append(td.Fields, fs)
	}
	return td, nil
}

func (b *structBuilder) fieldSpec(t reflect.Type, dir directives) (FieldSpec, error) {
	optional := false
	for t.Kind() == reflect.Pointer {
		optional = true
		t = t.Elem()
	}
	if dir.primitive != "" {
		return FieldSpec{Kind: KindPrimitive, Primitive: dir.primitive, Ref: dir.ref, RefField: dir.refField, Enum: dir.enum}, nil
	}
	switch {
	case t == timeType:
		return FieldSpec{Kind: KindPrimitive, Primitive: DateTime}, nil
	case t.Kind() == reflect.Struct:
		target, err := b.build(t)
		if err != nil {
			return FieldSpec{}, err
		}
		kind := KindReference
		if optional {
			kind = KindOptionalReference
		}
		return FieldSpec{Kind: kind, Ref: target.Name, Target: target}, nil
	case t.Kind() == reflect.Slice || t.Kind() == reflect.Array:
		elem := t.Elem()
		for elem.Kind() == reflect.Pointer {
			elem = elem.Elem()
		}
		if elem.Kind() == reflect.Struct && elem != timeType {
			target, err := b.build(elem)
			if err != nil {
				return FieldSpec{}, err
			}
			return FieldSpec{Kind: KindListOfReference, Ref: target.Name, Target: target}, nil
		}
		return FieldSpec{Kind: KindPrimitive, Primitive: Any}, nil
	}
	p := primitiveOf(t)
	return FieldSpec{Kind: KindPrimitive, Primitive: p, Ref: dir.ref, RefField: dir.refField, Enum: dir.enum}, nil
}

func primitiveOf(t reflect.Type) Primitive {
	switch t.Kind() {
	case reflect.String:
		return String
	case reflect.Bool:
		return Boolean
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return Integer
	case reflect.Float32, reflect.Float64:
		return Number
	default:
		return Any
	}
}

type directives struct {
	skip      bool
	required  *bool
	ref       string
	refField  string
	enum      []string
	primitive Primitive
}

func parseDirectives(tag string) directives {
	var d directives
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return d
	}
	for _, part := range strings.Split(tag, ",") {
		part = strings.TrimSpace(part)
		key, val, _ := strings.Cut(part, "=")
		switch key {
		case "-", "omit":
			d.skip = true
		case "required":
			r := true
			d.required = &r
		case "optional":
			r := false
			d.required = &r
		case "ref":
			d.ref = strings.TrimSpace(val)
		case "ref_field":
			d.refField = strings.TrimSpace(val)
		case "enum":
			for _, e := range strings.Split(val, "|") {
				if e = strings.TrimSpace(e); e != "" {
					d.enum = append(d.enum, e)
				}
			}
		case "type":
			d.primitive = Primitive(strings.TrimSpace(val))
		}
	}
	return d
}

func fieldName(f reflect.StructField, nameTag string) (string, bool) {
	tag := strings.TrimSpace(f.Tag.Get(nameTag))
	omitEmpty := false
	if tag != "" {
		parts := strings.Split(tag, ",")
		for _, p := range parts[1:] {
			if p == "omitempty" {
				omitEmpty = true
			}
		}
		if parts[0] == "-" {
			return "", false
		}
		if parts[0] != "" {
			return parts[0], omitEmpty
		}
	}
	return toSnake(f.Name), omitEmpty
}

func toSnake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				prev := rune(s[i-1])
				var next rune
				if i+1 < len(s) {
					next = rune(s[i+1])
				}
				if prev >= 'a' && prev <= 'z' || (next >= 'a' && next <= 'z') {
					b.WriteByte('_')
				}
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

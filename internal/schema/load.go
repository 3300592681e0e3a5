package schema

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// fileDoc is the on-disk shape of a descriptor file. JSON files decode
// through the same path since JSON is valid YAML.
type fileDoc struct {
	Types []typeDoc `yaml:"types"`
}

type typeDoc struct {
	Name        string     `yaml:"name"`
	Description string     `yaml:"description"`
	Fields      []fieldDoc `yaml:"fields"`
}

type fieldDoc struct {
	Name        string   `yaml:"name"`
	Type        string   `yaml:"type"`
	Ref         string   `yaml:"ref"`
	RefField    string   `yaml:"ref_field"`
	Required    *bool    `yaml:"required"`
	Description string   `yaml:"description"`
	Enum        []string `yaml:"enum"`
}

// LoadFile reads a YAML or JSON descriptor file into a linked catalog.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read descriptor file: %w", err)
	}
	return Parse(data)
}

// Parse decodes descriptor bytes into a linked catalog.
//
//	types:
//	  - name: Order
//	    fields:
//	      - {name: id, type: integer}
//	      - {name: user_id, type: integer, ref: User}
//	      - {name: items, type: list, ref: LineItem}
func Parse(data []byte) (*Catalog, error) {
	var doc fileDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode descriptor file: %w", err)
	}
	if len(doc.Types) == 0 {
		return nil, &SchemaError{Message: "descriptor file declares no types"}
	}
	types := make([]*TypeDescriptor, 0, len(doc.Types))
	for _, t := range doc.Types {
		td, err := t.descriptor()
		if err != nil {
			return nil, err
		}
		types = append(types, td)
	}
	return NewCatalog(types...)
}

func (t typeDoc) descriptor() (*TypeDescriptor, error) {
	td := &TypeDescriptor{
		Name:        strings.TrimSpace(t.Name),
		Description: strings.TrimSpace(t.Description),
		Fields:      make([]FieldSpec, 0, len(t.Fields)),
	}
	for _, f := range t.Fields {
		fs, err := f.spec()
		if err != nil {
			return nil, &SchemaError{Type: td.Name, Field: f.Name, Message: err.Error()}
		}
		td.Fields = append(td.Fields, fs)
	}
	return td, nil
}

func (f fieldDoc) spec() (FieldSpec, error) {
	fs := FieldSpec{
		Name:        strings.TrimSpace(f.Name),
		Ref:         strings.TrimSpace(f.Ref),
		RefField:    strings.TrimSpace(f.RefField),
		Description: strings.TrimSpace(f.Description),
		Enum:        f.Enum,
		Required:    true,
	}
	typ := strings.ToLower(strings.TrimSpace(f.Type))
	switch typ {
	case "ref", "reference", "object":
		fs.Kind = KindReference
	case "list", "array":
		fs.Kind = KindListOfReference
	case "optional":
		fs.Kind = KindOptionalReference
		fs.Required = false
	case "", "str":
		fs.Kind, fs.Primitive = KindPrimitive, String
	case "int":
		fs.Kind, fs.Primitive = KindPrimitive, Integer
	case "float", "double":
		fs.Kind, fs.Primitive = KindPrimitive, Number
	case "bool":
		fs.Kind, fs.Primitive = KindPrimitive, Boolean
	case "date-time", "timestamp":
		fs.Kind, fs.Primitive = KindPrimitive, DateTime
	default:
		p := Primitive(typ)
		if !p.Valid() {
			return FieldSpec{}, fmt.Errorf("unknown field type %q", f.Type)
		}
		fs.Kind, fs.Primitive = KindPrimitive, p
	}
	if fs.Kind.IsReference() && fs.Ref == "" {
		return FieldSpec{}, fmt.Errorf("%s field needs a ref", typ)
	}
	if f.Required != nil {
		fs.Required = *f.Required
	}
	return fs, nil
}

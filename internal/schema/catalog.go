package schema

import (
	"fmt"
	"strings"
)

// Catalog is an ordered collection of type descriptors keyed by name.
// Insertion order is kept because dependency ordering breaks ties with it.
type Catalog struct {
	order  []string
	byName map[string]*TypeDescriptor
}

// NewCatalog builds a catalog and links reference targets between its members.
func NewCatalog(types ...*TypeDescriptor) (*Catalog, error) {
	c := &Catalog{byName: make(map[string]*TypeDescriptor, len(types))}
	for _, td := range types {
		if err := c.Add(td); err != nil {
			return nil, err
		}
	}
	c.Link()
	return c, nil
}

// Add appends a descriptor. Names must be unique.
func (c *Catalog) Add(td *TypeDescriptor) error {
	if err := td.Check(); err != nil {
		return err
	}
	if c.byName == nil {
		c.byName = make(map[string]*TypeDescriptor)
	}
	if _, dup := c.byName[td.Name]; dup {
		return &SchemaError{Type: td.Name, Message: "duplicate type name"}
	}
	c.order = append(c.order, td.Name)
	c.byName[td.Name] = td
	return nil
}

// Link resolves Target for every reference field whose Ref names a member
// of the catalog. Unknown names stay unresolved and are treated as opaque.
func (c *Catalog) Link() {
	for _, name := range c.order {
		td := c.byName[name]
		for i := range td.Fields {
			f := &td.Fields[i]
			if !f.Kind.IsReference() || f.Target != nil {
				continue
			}
			if target, ok := c.byName[strings.TrimSpace(f.Ref)]; ok {
				f.Target = target
			}
		}
	}
}

// Names returns the type names in insertion order.
func (c *Catalog) Names() []string {
	if c == nil {
		return nil
	}
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Get returns the named descriptor.
func (c *Catalog) Get(name string) (*TypeDescriptor, bool) {
	if c == nil {
		return nil, false
	}
	td, ok := c.byName[name]
	return td, ok
}

// Has reports whether the name is a member.
func (c *Catalog) Has(name string) bool {
	_, ok := c.Get(name)
	return ok
}

func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.order)
}

// Subset returns a catalog restricted to names, in the order given.
func (c *Catalog) Subset(names []string) (*Catalog, error) {
	out := &Catalog{byName: make(map[string]*TypeDescriptor, len(names))}
	for _, n := range names {
		td, ok := c.Get(n)
		if !ok {
			return nil, &SchemaError{Type: n, Message: "unknown type"}
		}
		if _, dup := out.byName[n]; dup {
			continue
		}
		out.order = append(out.order, n)
		out.byName[n] = td
	}
	return out, nil
}

func (c *Catalog) String() string {
	return fmt.Sprintf("Catalog%v", c.order)
}

package schema

import (
	"errors"
	"fmt"
)

// ErrSchema is the sentinel every SchemaError unwraps to.
var ErrSchema = errors.New("schema error")

// SchemaError reports a type descriptor that cannot be represented.
type SchemaError struct {
	Type    string
	Field   string
	Message string
}

func (e *SchemaError) Error() string {
	switch {
	case e.Type != "" && e.Field != "":
		return fmt.Sprintf("schema: %s.%s: %s", e.Type, e.Field, e.Message)
	case e.Type != "":
		return fmt.Sprintf("schema: %s: %s", e.Type, e.Message)
	default:
		return "schema: " + e.Message
	}
}

func (e *SchemaError) Unwrap() error { return ErrSchema }

package validate

import (
	"errors"
	"fmt"
	"strings"
)

// ErrValidation is the sentinel every ValidationError unwraps to.
var ErrValidation = errors.New("validation error")

// Kinds of field errors.
const (
	KindParse   = "parse"
	KindMissing = "missing"
	KindType    = "type"
	KindEnum    = "enum"
	KindFormat  = "format"
	KindCount   = "count"
)

// FieldError locates one problem inside a response.
type FieldError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
	Kind    string `json:"kind"`
}

func (fe FieldError) String() string {
	if fe.Path == "" {
		return fmt.Sprintf("%s (type: %s)", fe.Message, fe.Kind)
	}
	return fmt.Sprintf("%s: %s (type: %s)", fe.Path, fe.Message, fe.Kind)
}

// ValidationError reports a response that could not be turned into valid
// records. Raw keeps the backend text for debugging.
type ValidationError struct {
	Type    string
	Message string
	Errors  []FieldError
	Raw     string
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	b.WriteString("validation failed")
	if e.Type != "" {
		b.WriteString(" for ")
		b.WriteString(e.Type)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if len(e.Errors) > 0 {
		parts := make([]string, 0, len(e.Errors))
		for _, fe := range e.Errors {
			parts = append(parts, fe.String())
		}
		b.WriteString(": ")
		b.WriteString(strings.Join(parts, "; "))
	}
	return b.String()
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// CountError reports a batch that came back short.
func CountError(typeName string, expected, got int, raw string) *ValidationError {
	msg := fmt.Sprintf("expected %d instances, got %d", expected, got)
	return &ValidationError{
		Type:    typeName,
		Message: msg,
		Errors:  []FieldError{{Path: "items", Message: msg, Kind: KindCount}},
		Raw:     raw,
	}
}

func withRaw(err error, raw string) error {
	var ve *ValidationError
	if errors.As(err, &ve) && ve.Raw == "" {
		ve.Raw = raw
	}
	return err
}

package schema

import (
	"fmt"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"

	"weaver/internal/util/jsonutil"
)

// CreateInstructionPrompt renders the fixed instruction block that embeds
// the schema document and demands strict JSON output.
func CreateInstructionPrompt(doc *jsonschema.Schema, typeName string) (string, error) {
	if doc == nil {
		return "", &SchemaError{Type: typeName, Message: "schema document is nil"}
	}
	body, err := jsonutil.MarshalNoEscapeIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode schema for %s: %w", typeName, err)
	}
	subject := ""
	if t := strings.TrimSpace(typeName); t != "" {
		subject = " for the " + t + " type"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are a data generation assistant. Generate realistic test data%s based on the user's natural language description.\n\n", subject)
	b.WriteString("IMPORTANT INSTRUCTIONS:\n")
	b.WriteString("1. Generate ONLY valid JSON that strictly conforms to the provided schema\n")
	b.WriteString("2. Use realistic, contextual data that makes sense for the described scenario\n")
	b.WriteString("3. Ensure all required fields are included\n")
	b.WriteString("4. Use appropriate data types and formats\n")
	b.WriteString("5. Generate diverse, non-repetitive data\n")
	b.WriteString("6. Do not include any explanations, comments, or text outside the JSON\n\n")
	b.WriteString("JSON Schema:\n")
	b.Write(body)
	b.WriteString("\n\nGenerate valid JSON that matches this schema exactly.")
	return b.String(), nil
}

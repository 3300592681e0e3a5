package validate

import (
	"fmt"
	"slices"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"

	"weaver/internal/util/jsonutil"
)

// NoMismatch is returned by Diff when nothing looks wrong.
const NoMismatch = "No obvious schema mismatches found"

// Diff lists top-level differences between an expected schema and an actual
// object: missing required fields (-), undeclared fields (+) and JSON type
// class mismatches (!). It is a debugging aid and does not validate.
func Diff(expected *jsonschema.Schema, actual map[string]any) string {
	if expected == nil {
		return NoMismatch
	}
	var lines []string
	for _, name := range expected.Required {
		if _, ok := actual[name]; !ok {
			lines = append(lines, fmt.Sprintf("- Missing required field '%s' (type: %s)", name, typeOf(expected.Properties[name])))
		}
	}

	keys := make([]string, 0, len(actual))
	for k := range actual {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, k := range keys {
		if _, ok := expected.Properties[k]; !ok {
			lines = append(lines, fmt.Sprintf("+ Unexpected field '%s' with value: %s", k, jsonutil.Compact(actual[k])))
		}
	}
	for _, k := range keys {
		prop, ok := expected.Properties[k]
		if !ok {
			continue
		}
		want := typeOf(prop)
		if want == "unknown" {
			continue
		}
		got := jsonutil.TypeName(actual[k])
		if compatible(want, got) {
			continue
		}
		lines = append(lines, fmt.Sprintf("! Type mismatch for '%s': expected %s, got %s (%s)", k, want, got, jsonutil.Compact(actual[k])))
	}
	if len(lines) == 0 {
		return NoMismatch
	}
	return strings.Join(lines, "\n")
}

func typeOf(s *jsonschema.Schema) string {
	switch {
	case s == nil:
		return "unknown"
	case s.Type != "":
		return s.Type
	case len(s.Types) > 0:
		return strings.Join(s.Types, "|")
	case len(s.AnyOf) > 0:
		var parts []string
		for _, a := range s.AnyOf {
			parts = append(parts, typeOf(a))
		}
		return strings.Join(parts, "|")
	default:
		return "unknown"
	}
}

func compatible(want, got string) bool {
	for _, w := range strings.Split(want, "|") {
		if w == got || w == "unknown" || (w == "number" && got == "integer") {
			return true
		}
	}
	return false
}

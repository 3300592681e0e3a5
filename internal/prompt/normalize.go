package prompt

import (
	"fmt"
	"strings"
)

// NormalizePrompts expands the accepted prompt inputs into one prompt per
// type. A string applies to every type; a map fills missing or blank
// entries with the default prompt; nil gives every type the default.
func NormalizePrompts(in any, names []string) (map[string]string, error) {
	out := make(map[string]string, len(names))
	switch x := in.(type) {
	case nil:
		for _, n := range names {
			out[n] = DefaultPrompt(n)
		}
	case string:
		for _, n := range names {
			out[n] = x
		}
	case map[string]string:
		for _, n := range names {
			if p := strings.TrimSpace(x[n]); p != "" {
				out[n] = x[n]
			} else {
				out[n] = DefaultPrompt(n)
			}
		}
	case map[string]any:
		m := make(map[string]string, len(x))
		for k, v := range x {
			if s, ok := v.(string); ok {
				m[k] = s
			}
		}
		return NormalizePrompts(m, names)
	default:
		return nil, fmt.Errorf("prompt: unsupported prompts input %T, expected string or map", in)
	}
	return out, nil
}

package generator

import (
	"fmt"
	"strings"

	"weaver/internal/deps"
	"weaver/internal/schema"
	"weaver/internal/util/jsonutil"
)

// Output formats accepted by Format.
const (
	FormatSummary  = "summary"
	FormatJSON     = "json"
	FormatDetailed = "detailed"
)

// Format renders a result for display.
func Format(r Result, format string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", FormatSummary:
		if len(r.Records) == 1 {
			return fmt.Sprintf("Generated 1 instance of %s", r.Type), nil
		}
		return fmt.Sprintf("Generated %d instances of %s", len(r.Records), r.Type), nil
	case FormatJSON:
		b, err := jsonutil.MarshalNoEscapeIndent(r.Value(), "", "  ")
		if err != nil {
			return "", err
		}
		return string(b), nil
	case FormatDetailed:
		if len(r.Records) == 1 {
			b, err := jsonutil.MarshalNoEscapeIndent(r.Records[0], "", "  ")
			if err != nil {
				return "", err
			}
			return "Generated 1 instance:\n" + string(b), nil
		}
		lines := []string{fmt.Sprintf("Generated %d instances:\n", len(r.Records))}
		for i, rec := range r.Records {
			b, err := jsonutil.MarshalNoEscapeIndent(rec, "", "  ")
			if err != nil {
				return "", err
			}
			lines = append(lines, fmt.Sprintf("=== Instance %d ===", i+1), string(b))
		}
		return strings.Join(lines, "\n"), nil
	default:
		return "", fmt.Errorf("unknown format %q (want summary, json or detailed)", format)
	}
}

// EstimateCost gives a rough relative cost per type: one unit per record,
// half a unit per record per dependency, a tenth per record per field.
func EstimateCost(cat *schema.Catalog, count int) map[string]int {
	out := make(map[string]int, cat.Len())
	for _, name := range cat.Names() {
		td, _ := cat.Get(name)
		n := float64(count)
		dependencies := float64(len(deps.DetectDependencies(td, cat.Has)))
		fields := float64(len(td.Fields))
		out[name] = int(n + dependencies*n*0.5 + fields*n*0.1)
	}
	return out
}

package prompt

import (
	"fmt"
	"strings"
)

var coreRules = []string{
	"Always return valid data matching the exact schema",
	"Use diverse, realistic values",
	"Ensure all required fields are present",
	"Be creative but maintain data consistency",
}

var correlationRules = []string{
	"MUST use only the exact IDs provided in the context",
	"MUST maintain referential integrity",
	"All foreign key relationships must be valid",
	"Generate diverse but correlated data",
	"Do NOT create new IDs - only reference existing ones",
}

// ReferentialIntegrityNotice closes every correlated user prompt.
const ReferentialIntegrityNotice = "The generated data MUST reference the exact IDs and values provided above. Do not create new IDs - only use the ones listed."

// BuildSystemPrompt renders the fixed system rules for a type. With
// correlations the referential-integrity rules are appended.
func BuildSystemPrompt(typeName string, hasCorrelations bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Generate realistic, varied %s data.\n\n", typeName)
	writeSection(&b, "CORE RULES", coreRules)
	if hasCorrelations {
		b.WriteString("\n\n")
		writeSection(&b, "CORRELATION RULES", correlationRules)
	}
	return b.String()
}

// BuildCorrelationPrompt appends the correlation digest to a base prompt.
// An empty digest leaves the prompt unchanged.
func BuildCorrelationPrompt(base, digest string) string {
	digest = strings.TrimSpace(digest)
	if digest == "" {
		return base
	}
	return base + "\n\nCRITICAL CORRELATION REQUIREMENTS:\n" + digest + "\n\n" + ReferentialIntegrityNotice
}

// BuildBatchPrompt asks for exactly count distinct instances inside the
// batch envelope.
func BuildBatchPrompt(typeName, userPrompt string, count int) string {
	return fmt.Sprintf("Generate exactly %d different, varied instances of %s.\n\nOriginal prompt: %s\n\nEnsure each instance is unique and realistic. Return all %d instances in the 'items' array.",
		count, typeName, userPrompt, count)
}

// RetryPrompt marks a retried attempt.
func RetryPrompt(userPrompt string, attempt int) string {
	return fmt.Sprintf("%s (Attempt %d: Please ensure valid JSON format)", userPrompt, attempt)
}

func writeSection(b *strings.Builder, title string, items []string) {
	b.WriteString(title)
	b.WriteString(":\n")
	b.WriteString(formatList(items))
}

func formatList(items []string) string {
	var buf strings.Builder
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		fmt.Fprintf(&buf, "- %s\n", item)
	}
	return strings.TrimRight(buf.String(), "\n")
}

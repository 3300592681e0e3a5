// Package prompt composes the natural-language side of a generation request.
package prompt

import (
	"fmt"
	"strings"
)

// typeHints maps a case-insensitive substring of a type name to a base
// prompt. The first matching entry wins.
var typeHints = []struct {
	match  string
	prompt string
}{
	{"user", "Generate diverse user profiles with realistic personal information"},
	{"product", "Generate varied product listings with realistic prices and descriptions"},
	{"order", "Generate realistic order data with proper quantities and totals"},
	{"company", "Generate realistic company information with proper business details"},
	{"address", "Generate realistic address information with proper formatting"},
	{"payment", "Generate realistic payment information with valid formats"},
	{"customer", "Generate diverse customer profiles with realistic demographics"},
	{"employee", "Generate realistic employee information with job details"},
}

// InferBasePrompt picks a base prompt from the type name.
func InferBasePrompt(typeName string) string {
	lower := strings.ToLower(typeName)
	for _, h := range typeHints {
		if strings.Contains(lower, h.match) {
			return h.prompt
		}
	}
	return DefaultPrompt(typeName)
}

// DefaultPrompt is the generic prompt used when nothing more specific is known.
func DefaultPrompt(typeName string) string {
	return fmt.Sprintf("Generate realistic %s data", strings.ToLower(typeName))
}

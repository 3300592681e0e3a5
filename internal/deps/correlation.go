package deps

import (
	"bytes"
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"weaver/internal/schema"
	"weaver/internal/util/jsonutil"
)

const (
	// MaxDigestInstances caps how many instances of one dependency are listed.
	MaxDigestInstances = 10
	// MaxDigestValueLen is the exclusive upper bound on the text length of
	// non-identifying fields included in the digest. Strings are measured
	// without quotes.
	MaxDigestValueLen = 50
)

// BuildCorrelationContext renders the digest of already generated
// dependencies. Dependencies absent from the pool are skipped; the result is
// empty when none is present.
func BuildCorrelationContext(pool *Pool, dependencies []string) string {
	var parts []string
	for _, dep := range dependencies {
		e, ok := pool.Get(dep)
		if !ok {
			continue
		}
		var b strings.Builder
		fmt.Fprintf(&b, "Available %s instances to reference:\n", dep)
		for i, rec := range e.Records {
			if i == MaxDigestInstances {
				break
			}
			fmt.Fprintf(&b, "  - %s\n", digestInstance(e.Type, rec))
		}
		parts = append(parts, strings.TrimRight(b.String(), "\n"))
	}
	return strings.Join(parts, "\n\n")
}

// digestInstance reduces a record to its identifying field plus every other
// short field, in declaration order.
func digestInstance(td *schema.TypeDescriptor, rec Record) string {
	keys := orderedKeys(td, rec)
	ident := identifyingField(keys)

	var buf bytes.Buffer
	buf.WriteByte('{')
	n := 0
	write := func(k string, v any) {
		if n > 0 {
			buf.WriteString(", ")
		}
		kb, _ := jsonutil.MarshalNoEscape(k)
		buf.Write(kb)
		buf.WriteString(": ")
		buf.WriteString(jsonutil.Compact(v))
		n++
	}
	if ident != "" {
		write(ident, rec[ident])
	}
	for _, k := range keys {
		if k == ident {
			continue
		}
		if valueLen(rec[k]) < MaxDigestValueLen {
			write(k, rec[k])
		}
	}
	buf.WriteByte('}')
	return buf.String()
}

// valueLen measures the text form of v: strings without quotes, nested
// values as compact JSON, in characters.
func valueLen(v any) int {
	switch x := v.(type) {
	case string:
		return utf8.RuneCountInString(x)
	case map[string]any, []any, []Record:
		return utf8.RuneCountInString(jsonutil.Compact(x))
	case nil:
		return len("null")
	default:
		return utf8.RuneCountInString(fmt.Sprint(x))
	}
}

func identifyingField(keys []string) string {
	for _, k := range keys {
		if k == "id" {
			return k
		}
	}
	for _, k := range keys {
		if schema.IsIdentifierName(k) {
			return k
		}
	}
	for _, k := range keys {
		if k == "name" {
			return k
		}
	}
	for _, k := range keys {
		if schema.IsNameLike(k) {
			return k
		}
	}
	return ""
}

// orderedKeys lists declared fields first, then any extra keys sorted.
func orderedKeys(td *schema.TypeDescriptor, rec Record) []string {
	out := make([]string, 0, len(rec))
	seen := make(map[string]struct{}, len(rec))
	for _, name := range td.FieldNames() {
		if _, ok := rec[name]; ok {
			out = append(out, name)
			seen[name] = struct{}{}
		}
	}
	var extra []string
	for k := range rec {
		if _, ok := seen[k]; !ok {
			extra = append(extra, k)
		}
	}
	slices.Sort(extra)
	return append(out, extra...)
}

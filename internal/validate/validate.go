// Package validate turns raw backend text into records that conform to a
// type descriptor.
package validate

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"weaver/internal/schema"
	"weaver/internal/util/jsonutil"
)

// Record is one validated instance. Only declared fields are kept; integers
// decode as int64 and other numbers as float64.
type Record = map[string]any

// Outcome is the result of a successful parse.
type Outcome struct {
	Records []Record
	// List reports whether the response was a JSON array.
	List bool
}

// Parse decodes raw text and validates it against td. The text is decoded
// directly first and through ExtractJSON second.
func Parse(raw string, td *schema.TypeDescriptor, allowPartial bool) (Outcome, error) {
	v, err := decode(raw, td)
	if err != nil {
		return Outcome{}, err
	}
	return validateValue(v, td, allowPartial, raw)
}

// ParseEnvelope decodes a batch response whose items live under field. A
// bare array is accepted as well.
func ParseEnvelope(raw string, td *schema.TypeDescriptor, field string, allowPartial bool) (Outcome, error) {
	v, err := decode(raw, td)
	if err != nil {
		return Outcome{}, err
	}
	if m, ok := v.(map[string]any); ok {
		items, present := m[field]
		if !present {
			return Outcome{}, &ValidationError{
				Type:    td.Name,
				Message: fmt.Sprintf("response has no %q array", field),
				Errors:  []FieldError{{Path: field, Message: "field required", Kind: KindMissing}},
				Raw:     raw,
			}
		}
		v = items
	}
	if _, ok := v.([]any); !ok {
		return Outcome{}, &ValidationError{
			Type:    td.Name,
			Message: fmt.Sprintf("%q must be an array, got %s", field, jsonutil.TypeName(v)),
			Errors:  []FieldError{{Path: field, Message: "expected array", Kind: KindType}},
			Raw:     raw,
		}
	}
	return validateValue(v, td, allowPartial, raw)
}

func decode(raw string, td *schema.TypeDescriptor) (any, error) {
	v, err := jsonutil.DecodeString(raw)
	if err == nil {
		return v, nil
	}
	if candidate, ok := ExtractJSON(raw); ok {
		if v, err2 := jsonutil.DecodeString(candidate); err2 == nil {
			return v, nil
		}
	}
	return nil, &ValidationError{
		Type:    td.Name,
		Message: "invalid JSON in response",
		Errors:  []FieldError{{Message: err.Error(), Kind: KindParse}},
		Raw:     raw,
	}
}

func validateValue(v any, td *schema.TypeDescriptor, allowPartial bool, raw string) (Outcome, error) {
	switch x := v.(type) {
	case []any:
		recs, err := ValidateList(x, td, allowPartial)
		if err != nil {
			return Outcome{}, withRaw(err, raw)
		}
		return Outcome{Records: recs, List: true}, nil
	case map[string]any:
		rec, err := ValidateSingle(x, td, allowPartial)
		if err != nil {
			return Outcome{}, withRaw(err, raw)
		}
		return Outcome{Records: []Record{rec}}, nil
	default:
		return Outcome{}, &ValidationError{
			Type:    td.Name,
			Message: "expected a JSON object or array, got " + jsonutil.TypeName(v),
			Errors:  []FieldError{{Message: "unexpected top-level value", Kind: KindType}},
			Raw:     raw,
		}
	}
}

// ValidateSingle checks one decoded object. With allowPartial, invalid
// optional fields are dropped instead of failing the record; required fields
// must still be valid.
func ValidateSingle(data any, td *schema.TypeDescriptor, allowPartial bool) (Record, error) {
	m, ok := data.(map[string]any)
	if !ok {
		return nil, &ValidationError{
			Type:    td.Name,
			Message: "expected object, got " + jsonutil.TypeName(data),
			Errors:  []FieldError{{Message: "expected object", Kind: KindType}},
		}
	}
	rec, errs := checkObject(m, td, "", false)
	if len(errs) == 0 {
		return rec, nil
	}
	if allowPartial {
		if rec, again := checkObject(m, td, "", true); len(again) == 0 {
			return rec, nil
		}
	}
	return nil, &ValidationError{Type: td.Name, Errors: errs}
}

// ValidateList checks each item. Without allowPartial any failure rejects
// the batch and every failing index is reported; with it, failing items are
// dropped.
func ValidateList(items []any, td *schema.TypeDescriptor, allowPartial bool) ([]Record, error) {
	out := make([]Record, 0, len(items))
	var errs []FieldError
	var failed []string
	for i, item := range items {
		rec, err := ValidateSingle(item, td, allowPartial)
		if err != nil {
			failed = append(failed, strconv.Itoa(i))
			if ve, ok := err.(*ValidationError); ok {
				for _, fe := range ve.Errors {
					fe.Path = joinPath(fmt.Sprintf("[%d]", i), fe.Path)
					errs = append(errs, fe)
				}
			}
			continue
		}
		out = append(out, rec)
	}
	if len(failed) > 0 && !allowPartial {
		return nil, &ValidationError{
			Type:    td.Name,
			Message: "invalid items at index " + strings.Join(failed, ", "),
			Errors:  errs,
		}
	}
	return out, nil
}

// checkObject validates m against td and returns the normalised record.
// In lenient mode invalid optional fields are skipped.
func checkObject(m map[string]any, td *schema.TypeDescriptor, path string, lenient bool) (Record, []FieldError) {
	rec := make(Record, len(td.Fields))
	var errs []FieldError
	for _, f := range td.Fields {
		p := joinPath(path, f.Name)
		v, present := m[f.Name]
		if !present || v == nil {
			switch {
			case !present && f.Required:
				errs = append(errs, FieldError{Path: p, Message: "field required", Kind: KindMissing})
			case present && f.Required && f.Kind != schema.KindOptionalReference:
				errs = append(errs, FieldError{Path: p, Message: "must not be null", Kind: KindType})
			case present:
				rec[f.Name] = nil
			}
			continue
		}
		nv, ferrs := checkField(v, f, p, lenient)
		if len(ferrs) > 0 {
			if lenient && !f.Required {
				continue
			}
			errs = append(errs, ferrs...)
			continue
		}
		rec[f.Name] = nv
	}
	return rec, errs
}

func checkField(v any, f schema.FieldSpec, path string, lenient bool) (any, []FieldError) {
	switch f.Kind {
	case schema.KindPrimitive:
		nv, fe := checkPrimitive(v, f, path)
		if fe != nil {
			return nil, []FieldError{*fe}
		}
		return nv, nil
	case schema.KindReference, schema.KindOptionalReference:
		return checkNested(v, f.Target, path, lenient)
	case schema.KindListOfReference:
		list, ok := v.([]any)
		if !ok {
			return nil, []FieldError{typeError(path, "array", v)}
		}
		out := make([]any, 0, len(list))
		var errs []FieldError
		for i, item := range list {
			nv, ferrs := checkNested(item, f.Target, fmt.Sprintf("%s[%d]", path, i), lenient)
			if len(ferrs) > 0 {
				errs = append(errs, ferrs...)
				continue
			}
			out = append(out, nv)
		}
		return out, errs
	default:
		return nil, []FieldError{{Path: path, Message: "unsupported field kind " + f.Kind.String(), Kind: KindType}}
	}
}

// checkNested validates a nested object. An unresolved target accepts any
// JSON object.
func checkNested(v any, target *schema.TypeDescriptor, path string, lenient bool) (any, []FieldError) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, []FieldError{typeError(path, "object", v)}
	}
	if target == nil {
		return normalize(m), nil
	}
	rec, errs := checkObject(m, target, path, lenient)
	if len(errs) > 0 {
		return nil, errs
	}
	return rec, nil
}

var dateTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

func checkPrimitive(v any, f schema.FieldSpec, path string) (any, *FieldError) {
	var out any
	switch f.Primitive {
	case schema.String:
		s, ok := v.(string)
		if !ok {
			fe := typeError(path, "string", v)
			return nil, &fe
		}
		out = s
	case schema.Integer:
		n, ok := asInteger(v)
		if !ok {
			fe := typeError(path, "integer", v)
			return nil, &fe
		}
		out = n
	case schema.Number:
		n, ok := asNumber(v)
		if !ok {
			fe := typeError(path, "number", v)
			return nil, &fe
		}
		out = n
	case schema.Boolean:
		b, ok := v.(bool)
		if !ok {
			fe := typeError(path, "boolean", v)
			return nil, &fe
		}
		out = b
	case schema.Date:
		s, ok := v.(string)
		if !ok {
			fe := typeError(path, "date string", v)
			return nil, &fe
		}
		if _, err := time.Parse("2006-01-02", strings.TrimSpace(s)); err != nil {
			return nil, &FieldError{Path: path, Message: fmt.Sprintf("invalid date %q, expected YYYY-MM-DD", s), Kind: KindFormat}
		}
		out = s
	case schema.DateTime:
		s, ok := v.(string)
		if !ok {
			fe := typeError(path, "datetime string", v)
			return nil, &fe
		}
		if !parsesAsDateTime(strings.TrimSpace(s)) {
			return nil, &FieldError{Path: path, Message: fmt.Sprintf("invalid datetime %q, expected ISO 8601", s), Kind: KindFormat}
		}
		out = s
	case schema.Any:
		out = normalize(v)
	default:
		return nil, &FieldError{Path: path, Message: fmt.Sprintf("unsupported primitive %q", f.Primitive), Kind: KindType}
	}
	if len(f.Enum) > 0 {
		if s := fmt.Sprint(out); !slices.Contains(f.Enum, s) {
			return nil, &FieldError{Path: path, Message: fmt.Sprintf("value %q is not one of %s", s, strings.Join(f.Enum, ", ")), Kind: KindEnum}
		}
	}
	return out, nil
}

func parsesAsDateTime(s string) bool {
	for _, layout := range dateTimeLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}

func asInteger(v any) (int64, bool) {
	switch x := v.(type) {
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return n, true
		}
		f, err := x.Float64()
		if err != nil || f != float64(int64(f)) {
			return 0, false
		}
		return int64(f), true
	case float64:
		if x != float64(int64(x)) {
			return 0, false
		}
		return int64(x), true
	case int:
		return int64(x), true
	case int64:
		return x, true
	}
	return 0, false
}

func asNumber(v any) (float64, bool) {
	switch x := v.(type) {
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	case float64:
		return x, true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	}
	return 0, false
}

// normalize converts json.Number values in an untyped tree.
func normalize(v any) any {
	switch x := v.(type) {
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return n
		}
		f, _ := x.Float64()
		return f
	case []any:
		out := make([]any, len(x))
		for i := range x {
			out[i] = normalize(x[i])
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = normalize(e)
		}
		return out
	default:
		return v
	}
}

func typeError(path, want string, got any) FieldError {
	return FieldError{
		Path:    path,
		Message: fmt.Sprintf("expected %s, got %s", want, jsonutil.TypeName(got)),
		Kind:    KindType,
	}
}

func joinPath(parent, child string) string {
	switch {
	case parent == "":
		return child
	case child == "":
		return parent
	case strings.HasPrefix(child, "["):
		return parent + child
	default:
		return parent + "." + child
	}
}

package schema

import "strings"

// Hint is advisory text attached to a field in the portable schema.
// Hints never influence validation.
type Hint struct {
	Description string
	Format      string
}

var (
	emailNames  = []string{"email", "e_mail", "email_address"}
	humanNames  = []string{"name", "first_name", "last_name", "full_name"}
	phoneNames  = []string{"phone", "telephone", "phone_number", "mobile"}
	postalNames = []string{"zip", "zip_code", "postal_code", "postcode"}
	urlNames    = []string{"url", "website", "homepage"}
	qtyNames    = []string{"quantity", "count", "amount"}
)

// HintFor looks up the hint for a field name and primitive kind.
func HintFor(field string, p Primitive) (Hint, bool) {
	name := strings.ToLower(strings.TrimSpace(field))
	switch p {
	case String:
		switch {
		case in(name, emailNames):
			return Hint{Description: "A valid email address", Format: "email"}, true
		case in(name, humanNames):
			return Hint{Description: "A realistic human name"}, true
		case in(name, phoneNames):
			return Hint{Description: "A valid phone number"}, true
		case in(name, postalNames):
			return Hint{Description: "A postal code in the local format"}, true
		case in(name, urlNames):
			return Hint{Description: "An absolute URL", Format: "uri"}, true
		case strings.Contains(name, "date"):
			return Hint{Description: "ISO 8601 datetime string"}, true
		}
	case Date:
		return Hint{Description: "Date in YYYY-MM-DD format (date only, no time)"}, true
	case DateTime:
		return Hint{Description: "ISO 8601 datetime string"}, true
	case Integer:
		switch {
		case isIdentifier(name):
			return Hint{Description: "A positive integer ID"}, true
		case name == "age":
			return Hint{Description: "Age in years (positive integer)"}, true
		case in(name, qtyNames):
			return Hint{Description: "A positive integer quantity"}, true
		}
	}
	return Hint{}, false
}

// IsIdentifierName reports whether a field name looks like a record identifier.
func IsIdentifierName(field string) bool {
	return isIdentifier(strings.ToLower(strings.TrimSpace(field)))
}

// IsNameLike reports whether a field name looks like a display name.
func IsNameLike(field string) bool {
	name := strings.ToLower(strings.TrimSpace(field))
	return in(name, humanNames) || name == "title" || name == "username" || strings.HasSuffix(name, "_name")
}

func isIdentifier(name string) bool {
	return name == "id" || name == "uuid" || strings.HasSuffix(name, "_id")
}

func in(s string, set []string) bool {
	for _, v := range set {
		if s == v {
			return true
		}
	}
	return false
}

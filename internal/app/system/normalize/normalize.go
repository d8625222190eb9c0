// Package normalize holds the canonical forms stored for user-entered
// identity fields so lookups and uniqueness checks agree.
package normalize

import (
	"strings"
	"unicode"
)

// Email trims and lower-cases an email address.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Name trims and collapses internal whitespace. Case is preserved.
func Name(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Username trims surrounding whitespace. Case is preserved for display;
// uniqueness is enforced on the stored value as given.
func Username(s string) string {
	return strings.TrimSpace(s)
}

// Role lower-cases and trims a role string for table lookups.
func Role(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// QueryParam trims a raw query-string value.
func QueryParam(s string) string {
	return strings.TrimSpace(s)
}

// Bool parses the tri-state filter values used by list endpoints.
// ok is false when the value is empty or unrecognized (no filter).
func Bool(s string) (val bool, ok bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true, true
	case "0", "false", "no", "off":
		return false, true
	}
	return false, false
}

// HasControl reports whether s contains control characters, which are
// never valid in usernames or names.
func HasControl(s string) bool {
	for _, r := range s {
		if unicode.IsControl(r) {
			return true
		}
	}
	return false
}

// Package htmlsanitize strips markup from user-supplied text before it is
// stored.
package htmlsanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// strict removes every tag and attribute. The policy is safe for
// concurrent use once built.
var strict = bluemonday.StrictPolicy()

// PlainText removes all HTML from s and returns the visible text.
// Entities produced by the sanitizer are decoded again so names like
// "O'Brien" or "Smith & Sons" round-trip unchanged.
func PlainText(s string) string {
	if s == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(strict.Sanitize(s)))
}

package profilebind

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/dalemusser/rosterhub/internal/domain/models"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	slugStrip    = regexp.MustCompile(`[^a-z0-9_\s-]`)
	slugCollapse = regexp.MustCompile(`[-\s]+`)
)

// Slugify reduces s to lower-case ASCII words joined by single dashes.
// Accented letters keep their base letter ("José" becomes "jose").
func Slugify(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.Predicate(func(r rune) bool {
		return r > unicode.MaxASCII
	})))
	ascii, _, err := transform.String(t, s)
	if err != nil {
		ascii = s
	}
	ascii = strings.ToLower(ascii)
	ascii = slugStrip.ReplaceAllString(ascii, "")
	ascii = slugCollapse.ReplaceAllString(ascii, "-")
	return strings.Trim(ascii, "-_")
}

// BaseSlug is the slug a user's profile should carry before any
// uniqueness suffix is added.
func BaseSlug(u *models.User) string {
	first := strings.TrimSpace(u.FirstName)
	last := strings.TrimSpace(u.LastName)
	if first != "" && last != "" {
		if s := Slugify(first + " " + last); s != "" {
			return s
		}
	}
	if s := Slugify(u.Username); s != "" {
		return s
	}
	return "user-" + u.ID.Hex()
}

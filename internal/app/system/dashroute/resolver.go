package dashroute

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"go.uber.org/zap"
)

// ErrBadPath is returned for a path-table entry that is not key=/path.
var ErrBadPath = errors.New("route path must be key=/path")

// Resolver turns destination keys into URL paths.
type Resolver struct {
	paths map[Destination]string
	log   *zap.Logger
}

// DefaultPaths maps every built-in destination to its path.
func DefaultPaths() map[Destination]string {
	return map[Destination]string{
		Login:              "/login",
		AdminIndex:         "/admin/",
		Home:               "/",
		AttendeesDashboard: "/attendees/dashboard",
		LeadersDashboard:   "/leaders/dashboard",
		FacultyDashboard:   "/faculty/dashboard",
		PortalDashboard:    "/portal/dashboard",
	}
}

// ParsePaths reads extra named destinations from "key=/path" entries,
// e.g. "reports:list=/reports". Later entries win.
func ParsePaths(entries []string) (map[Destination]string, error) {
	out := make(map[Destination]string, len(entries))
	for _, e := range entries {
		k, p, ok := strings.Cut(e, "=")
		k, p = strings.TrimSpace(k), strings.TrimSpace(p)
		if !ok || k == "" || strings.HasPrefix(k, "/") || !SafePath(p) {
			return nil, fmt.Errorf("%w: %q", ErrBadPath, e)
		}
		out[Destination(k)] = p
	}
	return out, nil
}

func NewResolver(paths map[Destination]string, log *zap.Logger) *Resolver {
	if paths == nil {
		paths = DefaultPaths()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Resolver{paths: paths, log: log}
}

// WithPaths returns a resolver over the default table plus extra.
func WithPaths(extra map[Destination]string, log *zap.Logger) *Resolver {
	paths := DefaultPaths()
	for k, v := range extra {
		paths[k] = v
	}
	return NewResolver(paths, log)
}

// Known reports whether d is a named destination in the table.
func (r *Resolver) Known(d Destination) bool {
	_, ok := r.paths[d]
	return ok
}

// ValidOverride reports whether s may be stored as a per-user route
// override: a known destination key or a same-site absolute path.
func (r *Resolver) ValidOverride(s string) bool {
	s = strings.TrimSpace(s)
	return r.Known(Destination(s)) || SafePath(s)
}

// SafePath reports whether s is a same-site absolute path. Scheme-relative
// forms ("//host", "/\host") and embedded whitespace or control
// characters are rejected.
func SafePath(s string) bool {
	if !strings.HasPrefix(s, "/") || strings.HasPrefix(s, "//") || strings.HasPrefix(s, `/\`) {
		return false
	}
	for _, c := range s {
		if unicode.IsSpace(c) || unicode.IsControl(c) {
			return false
		}
	}
	return true
}

// Path returns the URL for d. Destinations that are already safe absolute
// paths pass through; anything else resolves to "/".
func (r *Resolver) Path(d Destination) string {
	if p, ok := r.paths[d]; ok {
		return p
	}
	s := string(d)
	if SafePath(s) {
		return s
	}
	r.log.Warn("unknown destination, using /", zap.String("destination", s))
	return "/"
}

// Package dashroute decides where an authenticated session lands.
package dashroute

import (
	"fmt"
	"strings"

	"github.com/dalemusser/rosterhub/internal/app/system/metrics"
	"go.uber.org/zap"
)

// Destination is a named route key such as "attendees:dashboard", or an
// absolute path supplied by a per-user override.
type Destination string

const (
	Login      Destination = "login"
	AdminIndex Destination = "admin:index"
	Home       Destination = "home"

	AttendeesDashboard Destination = "attendees:dashboard"
	LeadersDashboard   Destination = "leaders:dashboard"
	FacultyDashboard   Destination = "faculty:dashboard"
	PortalDashboard    Destination = "portal:dashboard"
)

// Subject is the identity being routed.
type Subject interface {
	Authenticated() bool
	Superuser() bool
	Role() string
}

// RoutableUser is implemented by subjects that may carry their own
// destination.
type RoutableUser interface {
	OverrideRoute() (string, bool)
}

// DefaultRoles is the role to dashboard table. Keys are lower-case.
func DefaultRoles() map[string]Destination {
	return map[string]Destination{
		"attendee": AttendeesDashboard,
		"leader":   LeadersDashboard,
		"faculty":  FacultyDashboard,
		"admin":    PortalDashboard,
	}
}

type Router struct {
	roles   map[string]Destination
	log     *zap.Logger
	metrics *metrics.Metrics
}

func New(roles map[string]Destination, log *zap.Logger, m *metrics.Metrics) *Router {
	if roles == nil {
		roles = DefaultRoles()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Router{roles: roles, log: log, metrics: m}
}

// Route picks the destination for subject. It never fails: anything it
// cannot place goes to Home.
//
// Precedence: anonymous, superuser, per-user override, role table, home.
func (r *Router) Route(subject Subject) Destination {
	d, overridden := r.route(subject)
	if overridden {
		r.metrics.Routed(metrics.RouteOverride)
	} else {
		r.metrics.Routed(string(d))
	}
	return d
}

func (r *Router) route(subject Subject) (Destination, bool) {
	if subject == nil || !safeBool(subject.Authenticated) {
		return Login, false
	}
	if safeBool(subject.Superuser) {
		return AdminIndex, false
	}
	if ru, ok := subject.(RoutableUser); ok {
		if d, ok := r.override(ru); ok {
			return d, true
		}
	}

	role := strings.ToLower(strings.TrimSpace(safeString(subject.Role)))
	if d, ok := r.roles[role]; ok {
		return d, false
	}

	r.log.Warn("no dashboard for role, routing home", zap.String("role", role))
	return Home, false
}

func (r *Router) override(ru RoutableUser) (d Destination, ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Warn("route override panicked; ignoring", zap.String("panic", fmt.Sprint(rec)))
			d, ok = "", false
		}
	}()
	s, has := ru.OverrideRoute()
	s = strings.TrimSpace(s)
	if !has || s == "" {
		return "", false
	}
	return Destination(s), true
}

func safeBool(f func() bool) (v bool) {
	defer func() {
		if recover() != nil {
			v = false
		}
	}()
	return f()
}

func safeString(f func() string) (v string) {
	defer func() {
		if recover() != nil {
			v = ""
		}
	}()
	return f()
}

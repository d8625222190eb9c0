// Package metrics holds the Prometheus collectors for the identity and
// routing flows. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "rosterhub"

type Metrics struct {
	reg *prometheus.Registry

	registrations  *prometheus.CounterVec
	routes         *prometheus.CounterVec
	activations    *prometheus.CounterVec
	mailDeliveries *prometheus.CounterVec
}

// New builds a registry with the process and Go runtime collectors plus
// the application counters.
func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registrations_total",
			Help:      "Users created through registration, by user type.",
		}, []string{"user_type"}),
		routes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dashboard_routes_total",
			Help:      "Dashboard routing decisions, by destination key.",
		}, []string{"destination"}),
		activations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "activations_total",
			Help:      "Activation attempts, by outcome.",
		}, []string{"outcome"}),
		mailDeliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mail_deliveries_total",
			Help:      "Outbound email deliveries, by transport and outcome.",
		}, []string{"transport", "outcome"}),
	}
	m.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.registrations,
		m.routes,
		m.activations,
		m.mailDeliveries,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry (tests gather from it).
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.reg
}

func (m *Metrics) Registered(userType string) {
	if m != nil {
		m.registrations.WithLabelValues(userType).Inc()
	}
}

func (m *Metrics) Routed(destination string) {
	if m != nil {
		m.routes.WithLabelValues(destination).Inc()
	}
}

// RouteOverride is the destination label recorded for every per-user
// override, whatever its target.
const RouteOverride = "override"

// Activation outcomes.
const (
	OutcomeActivated = "activated"
	OutcomeRedundant = "redundant"
	OutcomeInvalid   = "invalid"
)

func (m *Metrics) Activation(outcome string) {
	if m != nil {
		m.activations.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) MailDelivered(transport string, err error) {
	if m == nil {
		return
	}
	outcome := "sent"
	if err != nil {
		outcome = "failed"
	}
	m.mailDeliveries.WithLabelValues(transport, outcome).Inc()
}

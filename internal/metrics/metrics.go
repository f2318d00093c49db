package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Pipeline metrics
	StageTransitionsTotal *prometheus.CounterVec
	DealMovesTotal        *prometheus.CounterVec

	// Authorization metrics
	AuthorizationDenialsTotal *prometheus.CounterVec
}

// New creates and registers all metrics on registry.
func New(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		registry: registry,

		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crm_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "crm_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		StageTransitionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crm_stage_transitions_total",
				Help: "Deal stage changes that were committed",
			},
			[]string{"from", "to"},
		),
		DealMovesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crm_deal_moves_total",
				Help: "Board moves by outcome",
			},
			[]string{"result"},
		),

		AuthorizationDenialsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crm_authorization_denials_total",
				Help: "Requests rejected by the authorization gate",
			},
			[]string{"permission", "reason"},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.StageTransitionsTotal,
		m.DealMovesTotal,
		m.AuthorizationDenialsTotal,
	)
	return m
}

// Move outcomes
const (
	MoveApplied  = "applied"
	MoveNoop     = "noop"
	MoveRejected = "rejected"
)

func (m *Metrics) ObserveRequest(method, path, status string, seconds float64) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(seconds)
}

func (m *Metrics) StageTransition(from, to string) {
	if m == nil {
		return
	}
	m.StageTransitionsTotal.WithLabelValues(from, to).Inc()
}

func (m *Metrics) DealMove(result string) {
	if m == nil {
		return
	}
	m.DealMovesTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) AuthorizationDenied(permission, reason string) {
	if m == nil {
		return
	}
	m.AuthorizationDenialsTotal.WithLabelValues(permission, reason).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

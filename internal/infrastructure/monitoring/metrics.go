package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/omega-networks/mapkit-auth/pkg/constants"
)

// Metrics manages the Prometheus metrics.
type Metrics struct {
	TokenIssueRequests    *prometheus.CounterVec
	TokenIssueLatency     *prometheus.HistogramVec
	CredentialValidations *prometheus.CounterVec
	IntegrityRejections   *prometheus.CounterVec
	RateLimitHits         *prometheus.CounterVec
	StoreOperations       *prometheus.HistogramVec
	StoreErrors           *prometheus.CounterVec
	CredentialAuthorized  prometheus.Gauge
	HTTPRequests          *prometheus.CounterVec
	HTTPLatency           *prometheus.HistogramVec
	HTTPInFlight          prometheus.Gauge
}

// NewMetrics creates the Prometheus metrics and registers them with reg.
// A nil reg registers with the default registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	ns := "mapkit"

	return &Metrics{
		TokenIssueRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Name:      "token_issue_requests_total",
				Help:      "Total number of token issue requests.",
			},
			[]string{"kind", "result", "error_code"},
		),
		TokenIssueLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: ns,
				Name:      "token_issue_latency_seconds",
				Help:      "Latency of token issue requests.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"kind"},
		),
		CredentialValidations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Name:      "credential_validations_total",
				Help:      "Outcomes of credential validation on settings save.",
			},
			[]string{"result", "error_code"},
		),
		IntegrityRejections: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Name:      "integrity_rejections_total",
				Help:      "Requests rejected for a missing or stale integrity token.",
			},
			[]string{"action"},
		),
		RateLimitHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Name:      "rate_limit_hits_total",
				Help:      "Total number of rate limit hits.",
			},
			[]string{"scope"},
		),
		StoreOperations: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: ns,
				Name:      "store_operation_seconds",
				Help:      "Latency of credential store operations.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"driver", "operation"},
		),
		StoreErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Name:      "store_errors_total",
				Help:      "Failed credential store operations.",
			},
			[]string{"driver", "operation"},
		),
		CredentialAuthorized: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: ns,
				Name:      "credentials_authorized",
				Help:      "1 when the stored credentials passed their last validation.",
			},
		),
		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Name:      "http_requests_total",
				Help:      "HTTP requests by route and status.",
			},
			[]string{"method", "route", "status"},
		),
		HTTPLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: ns,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency by route.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		HTTPInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: ns,
				Name:      "http_requests_in_flight",
				Help:      "HTTP requests currently being served.",
			},
		),
	}
}

// RecordRateLimitHit records a rate limit hit.
func (m *Metrics) RecordRateLimitHit(scope constants.RateLimitScope) {
	m.RateLimitHits.WithLabelValues(string(scope)).Inc()
}

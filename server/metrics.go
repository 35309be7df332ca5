package server

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metrics holds the Prometheus collectors. Each Server owns its registry
// so constructing more than one (as tests do) never double-registers.
type metrics struct {
	registry   *prometheus.Registry
	requests   *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	minted     prometheus.Counter
	legacyHits prometheus.Counter
}

func newMetrics() *metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)
	return &metrics{
		registry: registry,
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "termeric_requests_total",
			Help: "HTTP requests by route class, method and status code.",
		}, []string{"route", "method", "code"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "termeric_request_duration_seconds",
			Help:    "HTTP request latency by route class.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		minted: factory.NewCounter(prometheus.CounterOpts{
			Name: "termeric_identifiers_minted_total",
			Help: "Identifiers minted by the allocator.",
		}),
		legacyHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "termeric_legacy_map_hits_total",
			Help: "Resolutions served by the legacy mapping table.",
		}),
	}
}

func (m *metrics) observe(route, method string, status int, d time.Duration) {
	m.requests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(route).Observe(d.Seconds())
}

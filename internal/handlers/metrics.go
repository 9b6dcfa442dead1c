package handlers

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds Prometheus metrics for monitoring.
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Cache metrics
	CacheLookupsTotal *prometheus.CounterVec

	// Upstream metrics
	PortalFetchesTotal *prometheus.CounterVec
	PortalLoginsTotal  *prometheus.CounterVec
}

// NewMetrics creates the Prometheus metrics and registers them on the
// default registry.
func NewMetrics() *Metrics {
	return NewMetricsWithRegistry(prometheus.DefaultRegisterer)
}

// NewMetricsWithRegistry creates the Prometheus metrics and registers them
// on the given registerer.
func NewMetricsWithRegistry(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cepreuna_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status_code"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cepreuna_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		CacheLookupsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cepreuna_cache_lookups_total",
				Help: "Statistics cache lookups by kind and result",
			},
			[]string{"kind", "result"},
		),
		PortalFetchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cepreuna_portal_fetches_total",
				Help: "Upstream portal fetches by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
		PortalLoginsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cepreuna_portal_logins_total",
				Help: "Upstream portal logins by outcome",
			},
			[]string{"outcome"},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.CacheLookupsTotal,
		m.PortalFetchesTotal,
		m.PortalLoginsTotal,
	)

	return m
}

// cacheResult renders a cache lookup outcome as a metric label.
func cacheResult(hit bool) string {
	if hit {
		return "hit"
	}
	return "miss"
}

// fetchOutcome renders a fetch outcome as a metric label.
func fetchOutcome(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	UpstreamRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstream_requests_total",
			Help: "Requests sent to upstream APIs, by upstream, operation and status",
		},
		[]string{"upstream", "operation", "status"},
	)
	UpstreamDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upstream_request_duration_seconds",
			Help:    "Latency of upstream API calls",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"upstream", "operation"},
	)
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Requests served, by method, route pattern and status",
		},
		[]string{"method", "route", "status"},
	)
)

// Register adds the collectors to reg. Call it once at startup.
func Register(reg prometheus.Registerer) {
	reg.MustRegister(UpstreamRequests, UpstreamDuration, HTTPRequests)
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveUpstream records one upstream call. status is 0 when the request
// never got a response.
func ObserveUpstream(upstream, operation string, status int, start time.Time) {
	label := "transport_error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	UpstreamRequests.WithLabelValues(upstream, operation, label).Inc()
	UpstreamDuration.WithLabelValues(upstream, operation).Observe(time.Since(start).Seconds())
}

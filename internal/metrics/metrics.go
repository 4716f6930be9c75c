package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eventide_http_requests_total",
		Help: "HTTP requests by method, route and status code.",
	}, []string{"method", "route", "code"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "eventide_http_request_duration_seconds",
		Help:    "HTTP request latency by method and route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	Registrations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eventide_registrations_total",
		Help: "Registration attempts by outcome.",
	}, []string{"outcome"})

	CheckIns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eventide_checkins_total",
		Help: "Check-in scans by outcome.",
	}, []string{"outcome"})

	Retries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eventide_storage_retries_total",
		Help: "Retried storage operations by operation name.",
	}, []string{"op"})

	MessagesPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eventide_messages_published_total",
		Help: "Async messages by type and result.",
	}, []string{"type", "result"})
)

func Handler() http.Handler {
	return promhttp.Handler()
}

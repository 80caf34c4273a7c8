// Package metrics owns the Prometheus collectors of the service.
//
// Collectors are registered on the default registry at init so that
// promhttp.Handler exposes them without further wiring.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry = prometheus.DefaultRegisterer

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hackhub_http_requests_total",
			Help: "HTTP requests by route pattern, method and status code.",
		},
		[]string{"route", "method", "code"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hackhub_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern, method and status code.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method", "code"},
	)

	domainEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hackhub_events_total",
			Help: "Business events by name and result.",
		},
		[]string{"event", "result"},
	)

	emails = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hackhub_emails_total",
			Help: "Outgoing emails by kind and result (sent, failed, dropped).",
		},
		[]string{"kind", "result"},
	)

	staleRetries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hackhub_stale_retries_total",
			Help: "Optimistic-concurrency retries by aggregate.",
		},
		[]string{"aggregate"},
	)
)

func init() {
	for _, c := range []prometheus.Collector{httpRequests, httpDuration, domainEvents, emails, staleRetries} {
		_ = registry.Register(c)
	}
}

// Handler serves the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveHTTP records one finished request.
func ObserveHTTP(route, method string, status int, elapsed time.Duration) {
	code := strconv.Itoa(status)
	httpRequests.WithLabelValues(route, method, code).Inc()
	httpDuration.WithLabelValues(route, method, code).Observe(elapsed.Seconds())
}

// Event counts a business event such as "team_created" or "submission_scored".
func Event(name string, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	domainEvents.WithLabelValues(name, result).Inc()
}

// Email counts an outgoing email attempt.
func Email(kind, result string) {
	emails.WithLabelValues(kind, result).Inc()
}

// StaleRetry counts a save that lost an optimistic-concurrency race.
func StaleRetry(aggregate string) {
	staleRetries.WithLabelValues(aggregate).Inc()
}

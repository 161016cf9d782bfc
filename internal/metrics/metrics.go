// Package metrics exposes Prometheus instrumentation for the API and the push dispatcher.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Notification delivery outcomes.
const (
	OutcomeSent    = "sent"
	OutcomeFailed  = "failed"
	OutcomeDropped = "dropped"
	OutcomeSkipped = "skipped"
)

// Collector records request and notification metrics.
type Collector struct {
	requests      *prometheus.CounterVec
	latency       *prometheus.HistogramVec
	notifications *prometheus.CounterVec
	queueDepth    prometheus.Gauge
	rateLimited   prometheus.Counter
}

// NewCollector creates a Collector and registers it with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "postboard_http_requests_total",
			Help: "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "postboard_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "postboard_notifications_total",
			Help: "Push notifications by kind and outcome.",
		}, []string{"kind", "outcome"}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "postboard_notification_queue_depth",
			Help: "Notifications waiting for a worker.",
		}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "postboard_rate_limited_total",
			Help: "Requests rejected by the auth rate limiter.",
		}),
	}

	reg.MustRegister(
		c.requests,
		c.latency,
		c.notifications,
		c.queueDepth,
		c.rateLimited,
	)
	return c
}

func (c *Collector) ObserveRequest(method, route string, status int, d time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	c.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.latency.WithLabelValues(method, route).Observe(d.Seconds())
}

func (c *Collector) ObserveNotification(kind, outcome string) {
	c.notifications.WithLabelValues(kind, outcome).Inc()
}

func (c *Collector) SetQueueDepth(n int) {
	c.queueDepth.Set(float64(n))
}

func (c *Collector) IncRateLimited() {
	c.rateLimited.Inc()
}

// Handler serves the gathered metrics in the Prometheus exposition format.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ouvidoria"

// Metrics holds the Prometheus collectors of the service. Each instance owns
// its registry so tests can build several without colliding.
type Metrics struct {
	registry *prometheus.Registry

	RequestCounter      *prometheus.CounterVec
	RequestDuration     *prometheus.HistogramVec
	RequestsInFlight    prometheus.Gauge
	ErrorCounter        *prometheus.CounterVec
	TicketsSubmitted    *prometheus.CounterVec
	ContestsTotal       *prometheus.CounterVec
	NotificationsFailed *prometheus.CounterVec
	EmailsDelivered     prometheus.Counter
}

// NewMetrics registers every collector on a fresh registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		RequestCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		RequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_in_flight",
				Help:      "Number of HTTP requests currently being served",
			},
		),
		ErrorCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "errors_total",
				Help:      "Errors rendered to clients by code",
			},
			[]string{"route", "code"},
		),
		TicketsSubmitted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tickets_submitted_total",
				Help:      "Tickets submitted through the public form",
			},
			[]string{"type", "anonymous"},
		),
		ContestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "contests_total",
				Help:      "Contest attempts by outcome",
			},
			[]string{"outcome"},
		),
		NotificationsFailed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "notification_failures_total",
				Help:      "Ticket notifications that could not be stored or delivered",
			},
			[]string{"event"},
		),
		EmailsDelivered: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "emails_delivered_total",
				Help:      "Outbox emails handed to the mail provider",
			},
		),
	}
}

// RecordRequest observes a finished request.
func (m *Metrics) RecordRequest(route, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.RequestCounter.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordError counts an error rendered to a client.
func (m *Metrics) RecordError(route, code string) {
	if m == nil {
		return
	}
	m.ErrorCounter.WithLabelValues(route, code).Inc()
}

// RecordSubmission counts a stored ticket.
func (m *Metrics) RecordSubmission(ticketType string, anonymous bool) {
	if m == nil {
		return
	}
	m.TicketsSubmitted.WithLabelValues(ticketType, strconv.FormatBool(anonymous)).Inc()
}

// RecordContest counts a contest attempt by outcome code.
func (m *Metrics) RecordContest(outcome string) {
	if m == nil {
		return
	}
	m.ContestsTotal.WithLabelValues(outcome).Inc()
}

// RecordNotificationFailure counts a notification that was dropped or deferred.
func (m *Metrics) RecordNotificationFailure(event string) {
	if m == nil {
		return
	}
	m.NotificationsFailed.WithLabelValues(event).Inc()
}

// RecordEmailDelivered counts a successful provider hand-off.
func (m *Metrics) RecordEmailDelivered() {
	if m == nil {
		return
	}
	m.EmailsDelivered.Inc()
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

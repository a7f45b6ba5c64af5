package observability

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics stores Prometheus collectors used by the API and worker flows.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	jobsCompletedTotal   prometheus.Counter
	jobsFailedTotal      *prometheus.CounterVec
	jobsRetryTotal       prometheus.Counter
	jobsStalledTotal     prometheus.Counter
	notificationsCreated prometheus.Counter
	emailsDeliveredTotal *prometheus.CounterVec
	emailsFailedTotal    *prometheus.CounterVec
	jobProcessDuration   prometheus.Histogram
	workerInflight       prometheus.Gauge
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "practo_cms",
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests processed by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "practo_cms",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds by method and path.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		jobsCompletedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "practo_cms",
				Name:      "notification_jobs_completed_total",
				Help:      "Total number of notification jobs that completed.",
			},
		),
		jobsFailedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "practo_cms",
				Name:      "notification_jobs_failed_total",
				Help:      "Total number of notification jobs that ended in failed state.",
			},
			[]string{"reason"},
		),
		jobsRetryTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "practo_cms",
				Name:      "notification_jobs_retry_scheduled_total",
				Help:      "Total number of notification jobs scheduled for retry.",
			},
		),
		jobsStalledTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "practo_cms",
				Name:      "notification_jobs_stalled_total",
				Help:      "Total number of stall recoveries performed on active jobs.",
			},
		),
		notificationsCreated: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "practo_cms",
				Name:      "inapp_notifications_created_total",
				Help:      "Total number of in-app notification rows created.",
			},
		),
		emailsDeliveredTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "practo_cms",
				Name:      "emails_delivered_total",
				Help:      "Total number of email dispatches reported delivered, by provider.",
			},
			[]string{"provider"},
		),
		emailsFailedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "practo_cms",
				Name:      "emails_failed_total",
				Help:      "Total number of email dispatches reported undelivered, by provider.",
			},
			[]string{"provider"},
		),
		jobProcessDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "practo_cms",
				Name:      "notification_job_duration_seconds",
				Help:      "End-to-end delivery duration of one notification job in seconds.",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
			},
		),
		workerInflight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "practo_cms",
				Name:      "worker_inflight",
				Help:      "Current number of jobs being processed by workers.",
			},
		),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.jobsCompletedTotal,
		m.jobsFailedTotal,
		m.jobsRetryTotal,
		m.jobsStalledTotal,
		m.notificationsCreated,
		m.emailsDeliveredTotal,
		m.emailsFailedTotal,
		m.jobProcessDuration,
		m.workerInflight,
	)

	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) HTTPMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		path := routePath(c)
		// Avoid self-scrape noise for request counters.
		if path == "/metrics" {
			return err
		}

		m.recordHTTPRequest(c.Method(), path, statusFromResult(c, err), time.Since(start))
		return err
	}
}

func (m *Metrics) IncJobCompleted() {
	if m == nil {
		return
	}
	m.jobsCompletedTotal.Inc()
}

func (m *Metrics) IncJobFailed(reason string) {
	if m == nil {
		return
	}
	reasonLabel := strings.TrimSpace(strings.ToLower(reason))
	if reasonLabel == "" {
		reasonLabel = "unknown"
	}
	m.jobsFailedTotal.WithLabelValues(reasonLabel).Inc()
}

func (m *Metrics) IncRetryScheduled() {
	if m == nil {
		return
	}
	m.jobsRetryTotal.Inc()
}

func (m *Metrics) IncJobStalled() {
	if m == nil {
		return
	}
	m.jobsStalledTotal.Inc()
}

func (m *Metrics) AddNotificationsCreated(count int) {
	if m == nil || count <= 0 {
		return
	}
	m.notificationsCreated.Add(float64(count))
}

func (m *Metrics) IncEmailDelivered(provider string) {
	if m == nil {
		return
	}
	m.emailsDeliveredTotal.WithLabelValues(normalizeLabel(provider)).Inc()
}

func (m *Metrics) IncEmailFailed(provider string) {
	if m == nil {
		return
	}
	m.emailsFailedTotal.WithLabelValues(normalizeLabel(provider)).Inc()
}

func (m *Metrics) ObserveJobDuration(duration time.Duration) {
	if m == nil {
		return
	}
	seconds := duration.Seconds()
	if seconds < 0 {
		seconds = 0
	}
	m.jobProcessDuration.Observe(seconds)
}

func (m *Metrics) IncWorkerInFlight() {
	if m == nil {
		return
	}
	m.workerInflight.Inc()
}

func (m *Metrics) DecWorkerInFlight() {
	if m == nil {
		return
	}
	m.workerInflight.Dec()
}

func (m *Metrics) recordHTTPRequest(method string, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}

	methodLabel := strings.ToUpper(strings.TrimSpace(method))
	if methodLabel == "" {
		methodLabel = "UNKNOWN"
	}
	pathLabel := strings.TrimSpace(path)
	if pathLabel == "" {
		pathLabel = "unmatched"
	}

	m.httpRequestsTotal.WithLabelValues(methodLabel, pathLabel, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(methodLabel, pathLabel).Observe(duration.Seconds())
}

func routePath(c *fiber.Ctx) string {
	if c == nil {
		return "unmatched"
	}

	if route := c.Route(); route != nil {
		if path := strings.TrimSpace(route.Path); path != "" {
			return path
		}
	}
	return "unmatched"
}

func statusFromResult(c *fiber.Ctx, err error) int {
	if err != nil {
		if fiberErr, ok := err.(*fiber.Error); ok {
			return fiberErr.Code
		}
		return fiber.StatusInternalServerError
	}

	if c == nil {
		return fiber.StatusOK
	}

	status := c.Response().StatusCode()
	if status == 0 {
		return fiber.StatusOK
	}
	return status
}

func normalizeLabel(value string) string {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if normalized == "" {
		return "unknown"
	}
	return normalized
}

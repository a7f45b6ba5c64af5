package observability

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsJobCollectors(t *testing.T) {
	t.Parallel()

	metrics := NewMetrics()

	metrics.IncJobCompleted()
	metrics.IncJobFailed("retry_exhausted")
	metrics.IncRetryScheduled()
	metrics.IncJobStalled()
	metrics.AddNotificationsCreated(3)
	metrics.IncEmailDelivered("resend")
	metrics.IncEmailFailed("ses")
	metrics.ObserveJobDuration(120 * time.Millisecond)
	metrics.IncWorkerInFlight()
	metrics.DecWorkerInFlight()

	if got := testutil.ToFloat64(metrics.jobsCompletedTotal); got != 1 {
		t.Fatalf("jobs_completed_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.jobsFailedTotal.WithLabelValues("retry_exhausted")); got != 1 {
		t.Fatalf("jobs_failed_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.jobsRetryTotal); got != 1 {
		t.Fatalf("jobs_retry_scheduled_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.jobsStalledTotal); got != 1 {
		t.Fatalf("jobs_stalled_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.notificationsCreated); got != 3 {
		t.Fatalf("notifications_created_total = %v, want 3", got)
	}
	if got := testutil.ToFloat64(metrics.emailsDeliveredTotal.WithLabelValues("resend")); got != 1 {
		t.Fatalf("emails_delivered_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.emailsFailedTotal.WithLabelValues("ses")); got != 1 {
		t.Fatalf("emails_failed_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.workerInflight); got != 0 {
		t.Fatalf("worker_inflight = %v, want 0", got)
	}
}

func TestMetricsNilReceiverIsSafe(t *testing.T) {
	t.Parallel()

	var metrics *Metrics
	metrics.IncJobCompleted()
	metrics.IncJobFailed("any")
	metrics.AddNotificationsCreated(1)
	metrics.ObserveJobDuration(time.Second)
	metrics.IncWorkerInFlight()
	metrics.DecWorkerInFlight()
}

func TestMetricsHTTPMiddlewareRecordsRequest(t *testing.T) {
	t.Parallel()

	metrics := NewMetrics()
	app := fiber.New()
	app.Use(metrics.HTTPMiddleware())
	app.Get("/livez", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	req := httptest.NewRequest("GET", "/livez", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	if got := testutil.ToFloat64(metrics.httpRequestsTotal.WithLabelValues("GET", "/livez", "200")); got != 1 {
		t.Fatalf("http_requests_total = %v, want 1", got)
	}
}

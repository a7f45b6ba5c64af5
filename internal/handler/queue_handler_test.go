package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/sai-roshan-dev/practo-cms-backend/internal/service"
	"github.com/sai-roshan-dev/practo-cms-backend/internal/transport"
)

type stubMonitor struct {
	stats *service.QueueStats
	err   error
}

func (s *stubMonitor) Stats(context.Context) (*service.QueueStats, error) {
	return s.stats, s.err
}

func newQueueTestApp(t *testing.T, monitor QueueInspector) *fiber.App {
	t.Helper()

	app := fiber.New(fiber.Config{
		ErrorHandler: transport.ErrorHandler(zap.NewNop()),
	})
	if err := RegisterQueueRoutes(app, monitor); err != nil {
		t.Fatalf("RegisterQueueRoutes: %v", err)
	}
	return app
}

func TestQueueStats(t *testing.T) {
	t.Parallel()

	monitor := &stubMonitor{stats: &service.QueueStats{
		Waiting:   4,
		Active:    1,
		Completed: 90,
		Failed:    2,
		RecentFailed: []service.JobSummary{
			{ID: "job-9", State: "FAILED", AttemptCount: 3, FailureReason: "retry_exhausted: db down"},
		},
	}}
	app := newQueueTestApp(t, monitor)

	resp, body := performRequest(t, app, http.MethodGet, "/v1/queue/stats", "")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", resp.StatusCode, body)
	}

	var stats service.QueueStats
	if err := json.Unmarshal(body, &stats); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if stats.Waiting != 4 || stats.Completed != 90 {
		t.Errorf("stats = %+v", stats)
	}
	if len(stats.RecentFailed) != 1 || stats.RecentFailed[0].ID != "job-9" {
		t.Errorf("RecentFailed = %v", stats.RecentFailed)
	}
}

func TestQueueStats_MonitorError(t *testing.T) {
	t.Parallel()

	app := newQueueTestApp(t, &stubMonitor{err: errors.New("db down")})

	resp, _ := performRequest(t, app, http.MethodGet, "/v1/queue/stats", "")
	if resp.StatusCode != fiber.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", resp.StatusCode)
	}
}

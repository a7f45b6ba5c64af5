package service

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/sai-roshan-dev/practo-cms-backend/internal/domain"
)

func newTestDispatchScanner(t *testing.T, jobs *fakeJobRepo, publisher *fakePublisher, now time.Time) *DispatchScanner {
	t.Helper()

	s, err := NewDispatchScanner(jobs, publisher, time.Second, 100, zap.NewNop())
	if err != nil {
		t.Fatalf("NewDispatchScanner: %v", err)
	}
	s.now = func() time.Time { return now }
	return s
}

func TestScanDue_RepublishesDueBackoffJob(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	runAt := now.Add(-time.Second)
	job := &domain.QueuedJob{
		ID:        "job-1",
		State:     domain.JobStateWaiting,
		NextRunAt: &runAt,
		UpdatedAt: now,
	}
	jobs := newFakeJobRepo(job)
	publisher := &fakePublisher{}
	s := newTestDispatchScanner(t, jobs, publisher, now)

	if err := s.scanDue(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	msgs := publisher.messages()
	if len(msgs) != 1 || msgs[0].JobID != "job-1" {
		t.Fatalf("published = %v, want job-1", msgs)
	}
	got := jobs.get("job-1")
	if got.State != domain.JobStateWaiting {
		t.Errorf("state = %s, want WAITING", got.State)
	}
	if got.NextRunAt != nil {
		t.Errorf("NextRunAt = %v, want cleared after dispatch", got.NextRunAt)
	}
}

func TestScanDue_IgnoresFutureBackoff(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	runAt := now.Add(time.Minute)
	jobs := newFakeJobRepo(&domain.QueuedJob{
		ID:        "job-1",
		State:     domain.JobStateWaiting,
		NextRunAt: &runAt,
		UpdatedAt: now,
	})
	publisher := &fakePublisher{}
	s := newTestDispatchScanner(t, jobs, publisher, now)

	if err := s.scanDue(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msgs := publisher.messages(); len(msgs) != 0 {
		t.Fatalf("published = %v, want none before the backoff expires", msgs)
	}
}

func TestScanDue_RepublishesLostWaitingJob(t *testing.T) {
	t.Parallel()

	// A waiting job with no schedule and no recent touch means its original
	// publication never reached a consumer.
	now := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	jobs := newFakeJobRepo(&domain.QueuedJob{
		ID:        "job-1",
		State:     domain.JobStateWaiting,
		UpdatedAt: now.Add(-2 * time.Minute),
	})
	publisher := &fakePublisher{}
	s := newTestDispatchScanner(t, jobs, publisher, now)

	if err := s.scanDue(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msgs := publisher.messages(); len(msgs) != 1 {
		t.Fatalf("published = %v, want the lost job republished", msgs)
	}
}

func TestScanDue_LeavesFreshWaitingJobAlone(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	jobs := newFakeJobRepo(&domain.QueuedJob{
		ID:        "job-1",
		State:     domain.JobStateWaiting,
		UpdatedAt: now.Add(-5 * time.Second),
	})
	publisher := &fakePublisher{}
	s := newTestDispatchScanner(t, jobs, publisher, now)

	if err := s.scanDue(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msgs := publisher.messages(); len(msgs) != 0 {
		t.Fatalf("published = %v, want none for a freshly enqueued job", msgs)
	}
}

func TestScanDue_RepublishesRecoveredStalledJob(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	runAt := now.Add(-time.Second)
	jobs := newFakeJobRepo(&domain.QueuedJob{
		ID:         "job-1",
		State:      domain.JobStateStalled,
		StallCount: 1,
		NextRunAt:  &runAt,
		UpdatedAt:  now,
	})
	publisher := &fakePublisher{}
	s := newTestDispatchScanner(t, jobs, publisher, now)

	if err := s.scanDue(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if msgs := publisher.messages(); len(msgs) != 1 {
		t.Fatalf("published = %v, want the stalled job", msgs)
	}
	got := jobs.get("job-1")
	if got.State != domain.JobStateWaiting {
		t.Errorf("state = %s, want WAITING so a worker can reclaim it", got.State)
	}
}

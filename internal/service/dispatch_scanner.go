package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sai-roshan-dev/practo-cms-backend/internal/queue"
	"github.com/sai-roshan-dev/practo-cms-backend/internal/repository"
	"go.uber.org/zap"
)

const (
	defaultDispatchScanInterval = 5 * time.Second
	defaultDispatchScanLimit    = 100
	defaultRepublishAfter       = time.Minute
)

// DispatchScanner periodically publishes due jobs to the broker: retries whose
// backoff expired, recovered stalled jobs, and waiting jobs whose original
// publication was lost.
type DispatchScanner struct {
	jobs           repository.JobRepository
	publisher      queue.Publisher
	logger         *zap.Logger
	interval       time.Duration
	limit          int
	republishAfter time.Duration
	now            func() time.Time
}

func NewDispatchScanner(
	jobs repository.JobRepository,
	publisher queue.Publisher,
	interval time.Duration,
	limit int,
	logger *zap.Logger,
) (*DispatchScanner, error) {
	if jobs == nil {
		return nil, fmt.Errorf("job repository is required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("publisher is required")
	}
	if interval <= 0 {
		interval = defaultDispatchScanInterval
	}
	if limit <= 0 {
		limit = defaultDispatchScanLimit
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &DispatchScanner{
		jobs:           jobs,
		publisher:      publisher,
		logger:         logger,
		interval:       interval,
		limit:          limit,
		republishAfter: defaultRepublishAfter,
		now:            time.Now,
	}, nil
}

func (s *DispatchScanner) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	// Run an initial scan so already-due jobs do not wait for the first ticker edge.
	if err := s.scanDue(ctx); err != nil && ctx.Err() == nil {
		s.logger.Error("dispatch scanner initial scan failed", zap.Error(err))
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := s.scanDue(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				s.logger.Error("dispatch scanner scan failed", zap.Error(err))
			}
		}
	}
}

func (s *DispatchScanner) scanDue(ctx context.Context) error {
	now := s.now().UTC()
	due, err := s.jobs.GetDueForDispatch(ctx, now, now.Add(-s.republishAfter), s.limit)
	if err != nil {
		return fmt.Errorf("failed to fetch due jobs: %w", err)
	}

	for i := range due {
		job := due[i]
		msg := queue.JobMessage{JobID: job.ID, EventType: job.EventTypeLabel()}

		if err := s.publisher.Publish(ctx, queue.JobQueue, msg); err != nil {
			s.logger.Error("failed to publish due job",
				zap.String("jobId", job.ID),
				zap.Error(err),
			)
			continue
		}

		if err := s.jobs.MarkDispatched(ctx, job.ID); err != nil {
			s.logger.Error("failed to mark job dispatched",
				zap.String("jobId", job.ID),
				zap.Error(err),
			)
			continue
		}
	}

	return nil
}

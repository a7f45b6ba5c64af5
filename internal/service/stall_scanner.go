package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sai-roshan-dev/practo-cms-backend/internal/observability"
	"github.com/sai-roshan-dev/practo-cms-backend/internal/repository"
	"go.uber.org/zap"
)

const (
	defaultStallInterval  = 30 * time.Second
	defaultStallScanLimit = 50
)

// StallScanner recovers jobs left active by a crashed or hung worker. Each
// recovery consumes one unit of the job's stall budget; once the budget is
// spent the job is forced to failed instead of cycling forever.
type StallScanner struct {
	jobs          repository.JobRepository
	logger        *zap.Logger
	metrics       *observability.Metrics
	stallInterval time.Duration
	maxStalled    int
	limit         int
	now           func() time.Time
}

func NewStallScanner(
	jobs repository.JobRepository,
	stallInterval time.Duration,
	maxStalled int,
	logger *zap.Logger,
) (*StallScanner, error) {
	if jobs == nil {
		return nil, fmt.Errorf("job repository is required")
	}
	if stallInterval <= 0 {
		stallInterval = defaultStallInterval
	}
	if maxStalled < 0 {
		maxStalled = defaultMaxStalledCount
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &StallScanner{
		jobs:          jobs,
		logger:        logger,
		stallInterval: stallInterval,
		maxStalled:    maxStalled,
		limit:         defaultStallScanLimit,
		now:           time.Now,
	}, nil
}

func (s *StallScanner) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

func (s *StallScanner) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	ticker := time.NewTicker(s.stallInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := s.scan(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				s.logger.Error("stall scanner scan failed", zap.Error(err))
			}
		}
	}
}

func (s *StallScanner) scan(ctx context.Context) error {
	now := s.now().UTC()
	cutoff := now.Add(-s.stallInterval)

	stalled, err := s.jobs.FindStalled(ctx, cutoff, s.limit)
	if err != nil {
		return fmt.Errorf("failed to fetch stalled jobs: %w", err)
	}

	for i := range stalled {
		job := stalled[i]

		if job.StallCount >= s.maxStalled {
			forced, err := s.jobs.FailStalled(ctx, job.ID, cutoff, "stalled: worker did not report an outcome")
			if err != nil {
				s.logger.Error("failed to fail stalled job",
					zap.String("jobId", job.ID),
					zap.Error(err),
				)
				continue
			}
			if forced {
				s.metrics.IncJobFailed("stalled")
				s.logger.Error("stalled job forced to failed",
					zap.String("jobId", job.ID),
					zap.Int("stallCount", job.StallCount),
				)
			}
			continue
		}

		recovered, err := s.jobs.MarkStalled(ctx, job.ID, cutoff, now)
		if err != nil {
			s.logger.Error("failed to recover stalled job",
				zap.String("jobId", job.ID),
				zap.Error(err),
			)
			continue
		}
		if recovered {
			s.metrics.IncJobStalled()
			s.logger.Warn("stalled job recovered for re-dispatch",
				zap.String("jobId", job.ID),
				zap.Int("stallCount", job.StallCount+1),
			)
		}
	}

	return nil
}

package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sai-roshan-dev/practo-cms-backend/internal/builder"
	"github.com/sai-roshan-dev/practo-cms-backend/internal/domain"
	"github.com/sai-roshan-dev/practo-cms-backend/internal/observability"
	"github.com/sai-roshan-dev/practo-cms-backend/internal/queue"
	"github.com/sai-roshan-dev/practo-cms-backend/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const minWorkerConcurrency = 1

// WorkerService consumes job IDs from the broker and drives each queued job to
// exactly one terminal outcome. The database row claim is what guarantees a
// job is never processed by two workers at once, so duplicate or redelivered
// broker messages degrade to an acknowledge-and-skip.
type WorkerService struct {
	jobs        repository.JobRepository
	builder     *builder.Builder
	executor    *Executor
	consumer    queue.Consumer
	policy      RetryPolicy
	retention   Retention
	logger      *zap.Logger
	metrics     *observability.Metrics
	concurrency int
	now         func() time.Time
}

func NewWorkerService(
	jobs repository.JobRepository,
	b *builder.Builder,
	executor *Executor,
	consumer queue.Consumer,
	policy RetryPolicy,
	retention Retention,
	concurrency int,
	logger *zap.Logger,
) (*WorkerService, error) {
	if jobs == nil {
		return nil, fmt.Errorf("job repository is required")
	}
	if b == nil {
		return nil, fmt.Errorf("builder is required")
	}
	if executor == nil {
		return nil, fmt.Errorf("executor is required")
	}
	if consumer == nil {
		return nil, fmt.Errorf("consumer is required")
	}
	if concurrency < minWorkerConcurrency {
		concurrency = minWorkerConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &WorkerService{
		jobs:        jobs,
		builder:     b,
		executor:    executor,
		consumer:    consumer,
		policy:      policy.Normalize(),
		retention:   retention.Normalize(),
		logger:      logger,
		concurrency: concurrency,
		now:         time.Now,
	}, nil
}

func (s *WorkerService) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

// Start runs the configured number of consumers until context cancellation.
func (s *WorkerService) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	g, groupCtx := errgroup.WithContext(ctx)
	for i := 0; i < s.concurrency; i++ {
		workerID := i + 1

		g.Go(func() error {
			s.logger.Info("worker started", zap.Int("workerId", workerID))

			err := s.consumer.Consume(groupCtx, queue.JobQueue, s.processMessage)
			if err != nil {
				s.logger.Error("worker stopped with error",
					zap.Int("workerId", workerID),
					zap.Error(err),
				)
				return err
			}

			s.logger.Info("worker stopped", zap.Int("workerId", workerID))
			return nil
		})
	}

	return g.Wait()
}

func (s *WorkerService) processMessage(ctx context.Context, msg queue.JobMessage) error {
	// Worker log lines correlate by job ID.
	ctx = observability.WithRequestID(ctx, msg.JobID)

	job, err := s.jobs.ClaimForProcessing(ctx, msg.JobID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.logger.Warn("queued job not found during claim, skipping",
				zap.String("jobId", msg.JobID),
			)
			return nil
		}
		return fmt.Errorf("failed to claim job: %w", err)
	}

	// Nil means another owner has it, or it already reached a terminal state.
	if job == nil {
		return nil
	}

	s.metrics.IncWorkerInFlight()
	defer s.metrics.DecWorkerInFlight()

	built := job.Job
	if built == nil {
		if job.Event == nil {
			return s.failJob(ctx, job, "job carries neither an event nor a built payload", "corrupt_job")
		}

		b, buildErr := s.builder.Build(*job.Event)
		if buildErr != nil {
			// Malformed payloads are terminal: a retry cannot fix the data.
			return s.failJob(ctx, job, buildErr.Error(), "invalid_payload")
		}
		if b == nil {
			s.logger.Info("no notification mapping for queued event, completing",
				zap.String("jobId", job.ID),
				zap.String("eventType", job.EventTypeLabel()),
			)
			return s.completeJob(ctx, job)
		}

		if err := s.jobs.SetBuiltJob(ctx, job.ID, b); err != nil {
			// The retry path rebuilds from the event if this write is lost.
			s.logger.Warn("failed to persist built job",
				zap.String("jobId", job.ID),
				zap.Error(err),
			)
		}
		built = b
	}

	start := s.now()
	outcome, execErr := s.executor.Execute(ctx, *built)
	s.metrics.ObserveJobDuration(s.now().Sub(start))

	if execErr == nil {
		if outcome.Partial() {
			s.logger.Warn("job completed with partial failures",
				zap.String("jobId", job.ID),
				zap.Int("created", outcome.CreatedCount),
				zap.Int("failed", len(outcome.Errors)),
			)
		}
		return s.completeJob(ctx, job)
	}

	if job.AttemptCount < job.MaxAttempts {
		nextRunAt := s.now().UTC().Add(s.policy.Delay(job.AttemptCount))
		if err := s.jobs.MarkForRetry(ctx, job.ID, nextRunAt); err != nil {
			return fmt.Errorf("failed to schedule job retry: %w", err)
		}
		s.metrics.IncRetryScheduled()
		s.logger.Warn("job scheduled for retry",
			zap.String("jobId", job.ID),
			zap.Int("attempt", job.AttemptCount),
			zap.Time("nextRunAt", nextRunAt),
			zap.Error(execErr),
		)
		return nil
	}

	return s.failJob(ctx, job, execErr.Error(), "retry_exhausted")
}

func (s *WorkerService) completeJob(ctx context.Context, job *domain.QueuedJob) error {
	if err := s.jobs.MarkCompleted(ctx, job.ID); err != nil {
		return fmt.Errorf("failed to mark job completed: %w", err)
	}
	s.metrics.IncJobCompleted()
	s.pruneTerminal(ctx, domain.JobStateCompleted, s.retention.KeepCompleted)
	return nil
}

func (s *WorkerService) failJob(ctx context.Context, job *domain.QueuedJob, reason, reasonLabel string) error {
	if err := s.jobs.MarkFailed(ctx, job.ID, reason); err != nil {
		return fmt.Errorf("failed to mark job failed: %w", err)
	}
	s.metrics.IncJobFailed(reasonLabel)
	s.logger.Error("job failed",
		zap.String("jobId", job.ID),
		zap.Int("attempt", job.AttemptCount),
		zap.String("reason", reason),
	)
	s.pruneTerminal(ctx, domain.JobStateFailed, s.retention.KeepFailed)
	return nil
}

func (s *WorkerService) pruneTerminal(ctx context.Context, state domain.JobState, keep int) {
	if err := s.jobs.PruneTerminal(ctx, state, keep); err != nil {
		s.logger.Warn("failed to prune terminal jobs",
			zap.String("state", state.String()),
			zap.Error(err),
		)
	}
}

package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sai-roshan-dev/practo-cms-backend/internal/builder"
	"github.com/sai-roshan-dev/practo-cms-backend/internal/domain"
	"github.com/sai-roshan-dev/practo-cms-backend/internal/observability"
	"github.com/sai-roshan-dev/practo-cms-backend/internal/queue"
	"github.com/sai-roshan-dev/practo-cms-backend/internal/repository"
	"go.uber.org/zap"
)

// SyncResult reports the outcome of an inline delivery. Callers may ignore it:
// notification failures must never fail the business action that produced the
// event, so nothing here is propagated as an error return.
type SyncResult struct {
	Outcome domain.DeliveryOutcome
	Skipped bool
	Err     error
}

// Dispatcher is the producer-facing entry point. Enqueue hands an event to the
// durable queue for the worker loop; ProcessSync delivers inline within the
// caller's request lifecycle for deployments without a broker.
type Dispatcher struct {
	builder   *builder.Builder
	executor  *Executor
	jobs      repository.JobRepository
	publisher queue.Publisher
	policy    RetryPolicy
	logger    *zap.Logger
	now       func() time.Time
	newID     func() string
}

func NewDispatcher(
	b *builder.Builder,
	executor *Executor,
	jobs repository.JobRepository,
	publisher queue.Publisher,
	policy RetryPolicy,
	logger *zap.Logger,
) (*Dispatcher, error) {
	if b == nil {
		return nil, fmt.Errorf("builder is required")
	}
	if executor == nil {
		return nil, fmt.Errorf("executor is required")
	}
	if (jobs == nil) != (publisher == nil) {
		return nil, fmt.Errorf("job repository and publisher must be configured together")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Dispatcher{
		builder:   b,
		executor:  executor,
		jobs:      jobs,
		publisher: publisher,
		policy:    policy.Normalize(),
		logger:    logger,
		now:       time.Now,
		newID:     uuid.NewString,
	}, nil
}

// QueueEnabled reports whether the durable queue path is configured.
func (d *Dispatcher) QueueEnabled() bool {
	return d != nil && d.jobs != nil && d.publisher != nil
}

// ProcessSync builds and executes the event inline. All delivery errors are
// logged and folded into the returned result, never raised.
func (d *Dispatcher) ProcessSync(ctx context.Context, event domain.NotificationEvent) SyncResult {
	if ctx == nil {
		ctx = context.Background()
	}

	logger := observability.WithRequestLogger(d.logger, ctx)

	job, err := d.builder.Build(event)
	if err != nil {
		logger.Error("sync delivery skipped: event could not be built",
			zap.String("eventType", event.EventType.String()),
			zap.Error(err),
		)
		return SyncResult{Err: err}
	}
	if job == nil {
		return SyncResult{Skipped: true}
	}

	outcome, err := d.executor.Execute(ctx, *job)
	if err != nil {
		logger.Error("sync delivery failed",
			zap.String("eventType", event.EventType.String()),
			zap.Error(err),
		)
	} else if outcome.Partial() {
		logger.Warn("sync delivery completed with partial failures",
			zap.String("eventType", event.EventType.String()),
			zap.Int("failed", len(outcome.Errors)),
		)
	}

	return SyncResult{Outcome: outcome, Err: err}
}

// Enqueue durably stores the event as a waiting job and publishes its ID to
// the broker. A publish failure does not lose the job: the row is armed for
// the dispatch scanner and Enqueue still reports success.
func (d *Dispatcher) Enqueue(ctx context.Context, event domain.NotificationEvent) (string, error) {
	if !d.QueueEnabled() {
		return "", fmt.Errorf("job queue is not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if err := event.Validate(); err != nil {
		return "", err
	}

	job := &domain.QueuedJob{
		ID:          d.newID(),
		Event:       &event,
		State:       domain.JobStateWaiting,
		MaxAttempts: d.policy.MaxAttempts,
	}
	if err := d.jobs.Create(ctx, job); err != nil {
		return "", fmt.Errorf("failed to enqueue notification job: %w", err)
	}

	msg := queue.JobMessage{JobID: job.ID, EventType: event.EventType.String()}
	if err := d.publisher.Publish(ctx, queue.JobQueue, msg); err != nil {
		d.logger.Warn("publish failed, job will be re-dispatched by the scanner",
			zap.String("jobId", job.ID),
			zap.Error(err),
		)
		if scheduleErr := d.jobs.ScheduleDispatch(ctx, job.ID, d.now().UTC()); scheduleErr != nil {
			d.logger.Error("failed to arm job for re-dispatch",
				zap.String("jobId", job.ID),
				zap.Error(scheduleErr),
			)
		}
	}

	return job.ID, nil
}

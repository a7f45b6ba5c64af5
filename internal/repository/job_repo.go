package repository

import (
	"context"
	"errors"
	"time"

	"github.com/sai-roshan-dev/practo-cms-backend/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StateCount pairs a job state with its queue depth.
type StateCount struct {
	State domain.JobState `gorm:"column:state"`
	Count int64           `gorm:"column:count"`
}

// JobRepository owns queued job rows and their state transitions. All
// transitions are guarded by the current state so that a job reaches at most
// one terminal outcome regardless of how many workers or scanners race on it.
type JobRepository interface {
	Create(ctx context.Context, job *domain.QueuedJob) error
	GetByID(ctx context.Context, id string) (*domain.QueuedJob, error)

	// ClaimForProcessing atomically moves a waiting job to active and
	// increments its attempt count. Returns nil without error when the job is
	// not claimable (already active or terminal), which consumers treat as an
	// acknowledge-and-skip.
	ClaimForProcessing(ctx context.Context, id string) (*domain.QueuedJob, error)

	// SetBuiltJob persists the built delivery payload so retries replay it
	// instead of re-deriving it from the raw event.
	SetBuiltJob(ctx context.Context, id string, job *domain.NotificationJob) error

	MarkCompleted(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, reason string) error
	MarkForRetry(ctx context.Context, id string, nextRunAt time.Time) error

	// ScheduleDispatch arms a waiting job for (re-)publication by the dispatch
	// scanner at the given time.
	ScheduleDispatch(ctx context.Context, id string, runAt time.Time) error

	// GetDueForDispatch returns jobs the dispatch scanner should publish:
	// waiting jobs whose backoff expired, waiting jobs last touched before
	// republishBefore (covers lost broker messages), and recovered stalled
	// jobs.
	GetDueForDispatch(ctx context.Context, now, republishBefore time.Time, limit int) ([]domain.QueuedJob, error)

	// MarkDispatched moves a published waiting/stalled job back to waiting
	// with its dispatch schedule cleared.
	MarkDispatched(ctx context.Context, id string) error

	// FindStalled returns active jobs with no progress since the cutoff.
	FindStalled(ctx context.Context, cutoff time.Time, limit int) ([]domain.QueuedJob, error)

	// MarkStalled moves an untouched active job to stalled, consuming one unit
	// of the stall budget and arming it for re-dispatch. Reports whether the
	// transition happened; false means the worker finished in the meantime.
	MarkStalled(ctx context.Context, id string, cutoff time.Time, runAt time.Time) (bool, error)

	// FailStalled forces an untouched active job to failed once its stall
	// budget is exhausted.
	FailStalled(ctx context.Context, id string, cutoff time.Time, reason string) (bool, error)

	CountByState(ctx context.Context) (map[domain.JobState]int64, error)
	RecentTerminal(ctx context.Context, state domain.JobState, limit int) ([]domain.QueuedJob, error)

	// PruneTerminal evicts terminal jobs oldest-first beyond the keep bound.
	PruneTerminal(ctx context.Context, state domain.JobState, keep int) error
}

type GormJobRepo struct {
	db  *gorm.DB
	now func() time.Time
}

func NewGormJobRepo(db *gorm.DB) *GormJobRepo {
	return &GormJobRepo{db: db, now: time.Now}
}

func (r *GormJobRepo) Create(ctx context.Context, job *domain.QueuedJob) error {
	model, err := queuedJobModelFromDomain(job)
	if err != nil {
		return err
	}

	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}

	job.CreatedAt = model.CreatedAt
	job.UpdatedAt = model.UpdatedAt
	return nil
}

func (r *GormJobRepo) GetByID(ctx context.Context, id string) (*domain.QueuedJob, error) {
	var model QueuedJobModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return queuedJobModelToDomain(&model)
}

func (r *GormJobRepo) ClaimForProcessing(ctx context.Context, id string) (*domain.QueuedJob, error) {
	var claimed *domain.QueuedJob

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model QueuedJobModel
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&model, "id = ?", id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrNotFound
		}
		if err != nil {
			return err
		}

		if model.State != domain.JobStateWaiting {
			return nil
		}

		startedAt := r.now().UTC()
		updates := map[string]any{
			"state":         domain.JobStateActive,
			"attempt_count": gorm.Expr("attempt_count + 1"),
			"started_at":    startedAt,
			"next_run_at":   nil,
		}
		if err := tx.Model(&model).Updates(updates).Error; err != nil {
			return err
		}

		model.State = domain.JobStateActive
		model.AttemptCount++
		model.StartedAt = &startedAt
		model.NextRunAt = nil

		claimed, err = queuedJobModelToDomain(&model)
		return err
	})
	if err != nil {
		return nil, err
	}

	return claimed, nil
}

func (r *GormJobRepo) SetBuiltJob(ctx context.Context, id string, job *domain.NotificationJob) error {
	temp := &domain.QueuedJob{Job: job}
	model, err := queuedJobModelFromDomain(temp)
	if err != nil {
		return err
	}

	result := r.db.WithContext(ctx).
		Model(&QueuedJobModel{}).
		Where("id = ?", id).
		Update("job", model.Job)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *GormJobRepo) MarkCompleted(ctx context.Context, id string) error {
	return r.transitionFromActive(ctx, id, map[string]any{
		"state":          domain.JobStateCompleted,
		"failure_reason": nil,
	})
}

func (r *GormJobRepo) MarkFailed(ctx context.Context, id string, reason string) error {
	return r.transitionFromActive(ctx, id, map[string]any{
		"state":          domain.JobStateFailed,
		"failure_reason": reason,
	})
}

func (r *GormJobRepo) MarkForRetry(ctx context.Context, id string, nextRunAt time.Time) error {
	return r.transitionFromActive(ctx, id, map[string]any{
		"state":       domain.JobStateWaiting,
		"next_run_at": nextRunAt,
	})
}

func (r *GormJobRepo) transitionFromActive(ctx context.Context, id string, updates map[string]any) error {
	result := r.db.WithContext(ctx).
		Model(&QueuedJobModel{}).
		Where("id = ? AND state = ?", id, domain.JobStateActive).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrConflict
	}
	return nil
}

func (r *GormJobRepo) ScheduleDispatch(ctx context.Context, id string, runAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&QueuedJobModel{}).
		Where("id = ? AND state = ?", id, domain.JobStateWaiting).
		Update("next_run_at", runAt)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrConflict
	}
	return nil
}

func (r *GormJobRepo) GetDueForDispatch(ctx context.Context, now, republishBefore time.Time, limit int) ([]domain.QueuedJob, error) {
	var models []QueuedJobModel
	err := r.db.WithContext(ctx).
		Where(
			"(state = ? AND next_run_at IS NOT NULL AND next_run_at <= ?)"+
				" OR (state = ? AND next_run_at IS NULL AND updated_at <= ?)"+
				" OR (state = ? AND next_run_at <= ?)",
			domain.JobStateWaiting, now,
			domain.JobStateWaiting, republishBefore,
			domain.JobStateStalled, now,
		).
		Order("updated_at ASC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	return queuedJobModelsToDomain(models)
}

func (r *GormJobRepo) MarkDispatched(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).
		Model(&QueuedJobModel{}).
		Where("id = ? AND state IN ?", id, []domain.JobState{domain.JobStateWaiting, domain.JobStateStalled}).
		Updates(map[string]any{
			"state":       domain.JobStateWaiting,
			"next_run_at": nil,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrConflict
	}
	return nil
}

func (r *GormJobRepo) FindStalled(ctx context.Context, cutoff time.Time, limit int) ([]domain.QueuedJob, error) {
	var models []QueuedJobModel
	err := r.db.WithContext(ctx).
		Where("state = ? AND updated_at < ?", domain.JobStateActive, cutoff).
		Order("updated_at ASC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	return queuedJobModelsToDomain(models)
}

func (r *GormJobRepo) MarkStalled(ctx context.Context, id string, cutoff time.Time, runAt time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&QueuedJobModel{}).
		Where("id = ? AND state = ? AND updated_at < ?", id, domain.JobStateActive, cutoff).
		Updates(map[string]any{
			"state":       domain.JobStateStalled,
			"stall_count": gorm.Expr("stall_count + 1"),
			"next_run_at": runAt,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *GormJobRepo) FailStalled(ctx context.Context, id string, cutoff time.Time, reason string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&QueuedJobModel{}).
		Where("id = ? AND state = ? AND updated_at < ?", id, domain.JobStateActive, cutoff).
		Updates(map[string]any{
			"state":          domain.JobStateFailed,
			"failure_reason": reason,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *GormJobRepo) CountByState(ctx context.Context) (map[domain.JobState]int64, error) {
	var counts []StateCount
	err := r.db.WithContext(ctx).
		Model(&QueuedJobModel{}).
		Select("state, COUNT(*) AS count").
		Group("state").
		Find(&counts).Error
	if err != nil {
		return nil, err
	}

	result := make(map[domain.JobState]int64, len(counts))
	for _, c := range counts {
		result[c.State] = c.Count
	}
	return result, nil
}

func (r *GormJobRepo) RecentTerminal(ctx context.Context, state domain.JobState, limit int) ([]domain.QueuedJob, error) {
	var models []QueuedJobModel
	err := r.db.WithContext(ctx).
		Where("state = ?", state).
		Order("updated_at DESC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	return queuedJobModelsToDomain(models)
}

func (r *GormJobRepo) PruneTerminal(ctx context.Context, state domain.JobState, keep int) error {
	if keep < 0 {
		keep = 0
	}

	return r.db.WithContext(ctx).Exec(
		`DELETE FROM queued_jobs
		 WHERE state = ?
		   AND id NOT IN (
		     SELECT id FROM queued_jobs WHERE state = ? ORDER BY updated_at DESC LIMIT ?
		   )`,
		state, state, keep,
	).Error
}

func queuedJobModelsToDomain(models []QueuedJobModel) ([]domain.QueuedJob, error) {
	jobs := make([]domain.QueuedJob, 0, len(models))
	for i := range models {
		job, err := queuedJobModelToDomain(&models[i])
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, nil
}

package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sai-roshan-dev/practo-cms-backend/internal/domain"
	"github.com/sai-roshan-dev/practo-cms-backend/internal/mailer"
	"github.com/sai-roshan-dev/practo-cms-backend/internal/queue"
)

type fakeNotificationRepo struct {
	mu      sync.Mutex
	created []domain.InAppNotification
	failFor map[string]error
}

func newFakeNotificationRepo() *fakeNotificationRepo {
	return &fakeNotificationRepo{failFor: map[string]error{}}
}

func (r *fakeNotificationRepo) Create(_ context.Context, n *domain.InAppNotification) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err, ok := r.failFor[n.UserID]; ok {
		return err
	}
	r.created = append(r.created, *n)
	return nil
}

type fakeUserRepo struct {
	emails map[string]string
	err    error
}

func (r *fakeUserRepo) FindUserEmails(_ context.Context, userIDs []string) (map[string]string, error) {
	if r.err != nil {
		return nil, r.err
	}
	result := make(map[string]string)
	for _, id := range userIDs {
		if email, ok := r.emails[id]; ok {
			result[id] = email
		}
	}
	return result, nil
}

type fakeSender struct {
	mu        sync.Mutex
	delivered bool
	sent      []mailer.Message
}

func (s *fakeSender) Send(_ context.Context, msg mailer.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, msg)
	return s.delivered
}

func (s *fakeSender) Name() string { return "fake" }

type fakeLimiter struct {
	waitErr   error
	waitCalls int
}

func (l *fakeLimiter) Allow(context.Context, string) (bool, error) { return l.waitErr == nil, nil }

func (l *fakeLimiter) Wait(context.Context, string) error {
	l.waitCalls++
	return l.waitErr
}

type fakePublisher struct {
	mu        sync.Mutex
	published []queue.JobMessage
	err       error
}

func (p *fakePublisher) Publish(_ context.Context, _ string, msg queue.JobMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, msg)
	return nil
}

func (p *fakePublisher) Close() error { return nil }

func (p *fakePublisher) messages() []queue.JobMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]queue.JobMessage, len(p.published))
	copy(out, p.published)
	return out
}

// fakeJobRepo keeps jobs in memory and mimics the state-guarded transitions of
// the database-backed repository.
type fakeJobRepo struct {
	mu   sync.Mutex
	jobs map[string]*domain.QueuedJob

	claimErr      error
	retrySchedule []time.Time
	dispatched    []string
	pruned        []domain.JobState
}

func newFakeJobRepo(jobs ...*domain.QueuedJob) *fakeJobRepo {
	r := &fakeJobRepo{jobs: map[string]*domain.QueuedJob{}}
	for _, job := range jobs {
		r.jobs[job.ID] = job
	}
	return r
}

func (r *fakeJobRepo) Create(_ context.Context, job *domain.QueuedJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *job
	r.jobs[job.ID] = &clone
	return nil
}

func (r *fakeJobRepo) GetByID(_ context.Context, id string) (*domain.QueuedJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *job
	return &clone, nil
}

func (r *fakeJobRepo) ClaimForProcessing(_ context.Context, id string) (*domain.QueuedJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.claimErr != nil {
		return nil, r.claimErr
	}

	job, ok := r.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if job.State != domain.JobStateWaiting {
		return nil, nil
	}

	job.State = domain.JobStateActive
	job.AttemptCount++
	job.NextRunAt = nil
	clone := *job
	return &clone, nil
}

func (r *fakeJobRepo) SetBuiltJob(_ context.Context, id string, built *domain.NotificationJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return domain.ErrNotFound
	}
	job.Job = built
	return nil
}

func (r *fakeJobRepo) MarkCompleted(_ context.Context, id string) error {
	return r.transition(id, domain.JobStateActive, domain.JobStateCompleted, nil)
}

func (r *fakeJobRepo) MarkFailed(_ context.Context, id string, reason string) error {
	return r.transition(id, domain.JobStateActive, domain.JobStateFailed, &reason)
}

func (r *fakeJobRepo) MarkForRetry(_ context.Context, id string, nextRunAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return domain.ErrNotFound
	}
	if job.State != domain.JobStateActive {
		return domain.ErrConflict
	}
	job.State = domain.JobStateWaiting
	job.NextRunAt = &nextRunAt
	r.retrySchedule = append(r.retrySchedule, nextRunAt)
	return nil
}

func (r *fakeJobRepo) ScheduleDispatch(_ context.Context, id string, runAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return domain.ErrNotFound
	}
	job.NextRunAt = &runAt
	return nil
}

func (r *fakeJobRepo) GetDueForDispatch(_ context.Context, now, republishBefore time.Time, limit int) ([]domain.QueuedJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var due []domain.QueuedJob
	for _, job := range r.jobs {
		if len(due) >= limit {
			break
		}
		switch job.State {
		case domain.JobStateWaiting:
			if job.NextRunAt != nil && !job.NextRunAt.After(now) {
				due = append(due, *job)
			} else if job.NextRunAt == nil && !job.UpdatedAt.After(republishBefore) {
				due = append(due, *job)
			}
		case domain.JobStateStalled:
			if job.NextRunAt != nil && !job.NextRunAt.After(now) {
				due = append(due, *job)
			}
		}
	}
	return due, nil
}

func (r *fakeJobRepo) MarkDispatched(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return domain.ErrNotFound
	}
	if job.State != domain.JobStateWaiting && job.State != domain.JobStateStalled {
		return domain.ErrConflict
	}
	job.State = domain.JobStateWaiting
	job.NextRunAt = nil
	r.dispatched = append(r.dispatched, id)
	return nil
}

func (r *fakeJobRepo) FindStalled(_ context.Context, cutoff time.Time, limit int) ([]domain.QueuedJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var stalled []domain.QueuedJob
	for _, job := range r.jobs {
		if len(stalled) >= limit {
			break
		}
		if job.State == domain.JobStateActive && !job.UpdatedAt.After(cutoff) {
			stalled = append(stalled, *job)
		}
	}
	return stalled, nil
}

func (r *fakeJobRepo) MarkStalled(_ context.Context, id string, cutoff time.Time, runAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return false, nil
	}
	if job.State != domain.JobStateActive || job.UpdatedAt.After(cutoff) {
		return false, nil
	}
	job.State = domain.JobStateStalled
	job.StallCount++
	job.NextRunAt = &runAt
	return true, nil
}

func (r *fakeJobRepo) FailStalled(_ context.Context, id string, cutoff time.Time, reason string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return false, nil
	}
	if job.State != domain.JobStateActive || job.UpdatedAt.After(cutoff) {
		return false, nil
	}
	job.State = domain.JobStateFailed
	job.FailureReason = &reason
	return true, nil
}

func (r *fakeJobRepo) CountByState(context.Context) (map[domain.JobState]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[domain.JobState]int64)
	for _, job := range r.jobs {
		counts[job.State]++
	}
	return counts, nil
}

func (r *fakeJobRepo) RecentTerminal(_ context.Context, state domain.JobState, limit int) ([]domain.QueuedJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.QueuedJob
	for _, job := range r.jobs {
		if len(out) >= limit {
			break
		}
		if job.State == state {
			out = append(out, *job)
		}
	}
	return out, nil
}

func (r *fakeJobRepo) PruneTerminal(_ context.Context, state domain.JobState, _ int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pruned = append(r.pruned, state)
	return nil
}

func (r *fakeJobRepo) transition(id string, from, to domain.JobState, reason *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return domain.ErrNotFound
	}
	if job.State != from {
		return fmt.Errorf("%w: job %s is %s, not %s", domain.ErrConflict, id, job.State, from)
	}
	job.State = to
	job.FailureReason = reason
	return nil
}

func (r *fakeJobRepo) stateOf(id string) domain.JobState {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return ""
	}
	return job.State
}

func (r *fakeJobRepo) get(id string) domain.QueuedJob {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return domain.QueuedJob{}
	}
	return *job
}

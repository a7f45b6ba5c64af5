package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sai-roshan-dev/practo-cms-backend/internal/domain"
	"github.com/sai-roshan-dev/practo-cms-backend/internal/repository"
)

const defaultSampleLimit = 5

// JobSummary is a bounded operational view of one queued job.
type JobSummary struct {
	ID            string          `json:"id"`
	EventType     string          `json:"eventType"`
	State         domain.JobState `json:"state"`
	AttemptCount  int             `json:"attemptCount"`
	StallCount    int             `json:"stallCount"`
	FailureReason string          `json:"failureReason,omitempty"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// QueueStats is the read-only monitoring surface: queue depth per state plus
// a bounded sample of recently finished jobs.
type QueueStats struct {
	Waiting         int64        `json:"waiting"`
	Active          int64        `json:"active"`
	Completed       int64        `json:"completed"`
	Failed          int64        `json:"failed"`
	Stalled         int64        `json:"stalled"`
	RecentCompleted []JobSummary `json:"recentCompleted"`
	RecentFailed    []JobSummary `json:"recentFailed"`
}

// QueueMonitor serves the operational inspection endpoint. It only reads;
// the delivery contract is untouched by anything here.
type QueueMonitor struct {
	jobs        repository.JobRepository
	sampleLimit int
}

func NewQueueMonitor(jobs repository.JobRepository, sampleLimit int) (*QueueMonitor, error) {
	if jobs == nil {
		return nil, fmt.Errorf("job repository is required")
	}
	if sampleLimit <= 0 {
		sampleLimit = defaultSampleLimit
	}

	return &QueueMonitor{jobs: jobs, sampleLimit: sampleLimit}, nil
}

func (m *QueueMonitor) Stats(ctx context.Context) (*QueueStats, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	counts, err := m.jobs.CountByState(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count jobs by state: %w", err)
	}

	recentCompleted, err := m.jobs.RecentTerminal(ctx, domain.JobStateCompleted, m.sampleLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch recent completed jobs: %w", err)
	}

	recentFailed, err := m.jobs.RecentTerminal(ctx, domain.JobStateFailed, m.sampleLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch recent failed jobs: %w", err)
	}

	return &QueueStats{
		Waiting:         counts[domain.JobStateWaiting],
		Active:          counts[domain.JobStateActive],
		Completed:       counts[domain.JobStateCompleted],
		Failed:          counts[domain.JobStateFailed],
		Stalled:         counts[domain.JobStateStalled],
		RecentCompleted: summarize(recentCompleted),
		RecentFailed:    summarize(recentFailed),
	}, nil
}

func summarize(jobs []domain.QueuedJob) []JobSummary {
	summaries := make([]JobSummary, 0, len(jobs))
	for i := range jobs {
		job := jobs[i]

		reason := ""
		if job.FailureReason != nil {
			reason = *job.FailureReason
		}

		summaries = append(summaries, JobSummary{
			ID:            job.ID,
			EventType:     job.EventTypeLabel(),
			State:         job.State,
			AttemptCount:  job.AttemptCount,
			StallCount:    job.StallCount,
			FailureReason: reason,
			UpdatedAt:     job.UpdatedAt,
		})
	}
	return summaries
}

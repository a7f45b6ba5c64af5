package repository

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/sai-roshan-dev/practo-cms-backend/internal/domain"
)

// UserModel is the slice of the users table this pipeline reads: contact
// lookup only, never written here.
type UserModel struct {
	ID        string `gorm:"type:uuid;primaryKey"`
	Email     string `gorm:"type:varchar(255)"`
	Name      string `gorm:"type:varchar(255)"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (UserModel) TableName() string { return "users" }

type NotificationModel struct {
	ID        string                  `gorm:"type:uuid;primaryKey"`
	UserID    string                  `gorm:"type:uuid;not null;index"`
	Type      domain.NotificationType `gorm:"type:varchar(20);not null"`
	Title     string                  `gorm:"type:varchar(255);not null"`
	Message   string                  `gorm:"type:text;not null"`
	Metadata  []byte                  `gorm:"type:jsonb"`
	ReadAt    *time.Time
	CreatedAt time.Time
}

func (NotificationModel) TableName() string { return "notifications" }

type QueuedJobModel struct {
	ID            string          `gorm:"type:uuid;primaryKey"`
	State         domain.JobState `gorm:"type:varchar(20);not null;index"`
	Event         []byte          `gorm:"type:jsonb"`
	Job           []byte          `gorm:"type:jsonb"`
	AttemptCount  int             `gorm:"not null;default:0"`
	MaxAttempts   int             `gorm:"not null;default:3"`
	StallCount    int             `gorm:"not null;default:0"`
	NextRunAt     *time.Time
	StartedAt     *time.Time
	FailureReason *string `gorm:"type:text"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (QueuedJobModel) TableName() string { return "queued_jobs" }

func notificationModelFromDomain(n *domain.InAppNotification) (*NotificationModel, error) {
	if n == nil {
		return nil, nil
	}

	var metadata []byte
	if len(n.Metadata) > 0 {
		encoded, err := json.Marshal(n.Metadata)
		if err != nil {
			return nil, fmt.Errorf("failed to encode notification metadata: %w", err)
		}
		metadata = encoded
	}

	return &NotificationModel{
		ID:        n.ID,
		UserID:    n.UserID,
		Type:      n.Type,
		Title:     n.Title,
		Message:   n.Message,
		Metadata:  metadata,
		ReadAt:    n.ReadAt,
		CreatedAt: n.CreatedAt,
	}, nil
}

func notificationModelToDomain(m *NotificationModel) (*domain.InAppNotification, error) {
	if m == nil {
		return nil, nil
	}

	var metadata map[string]any
	if len(m.Metadata) > 0 {
		if err := json.Unmarshal(m.Metadata, &metadata); err != nil {
			return nil, fmt.Errorf("failed to decode notification metadata: %w", err)
		}
	}

	return &domain.InAppNotification{
		ID:        m.ID,
		UserID:    m.UserID,
		Type:      m.Type,
		Title:     m.Title,
		Message:   m.Message,
		Metadata:  metadata,
		ReadAt:    m.ReadAt,
		CreatedAt: m.CreatedAt,
	}, nil
}

func queuedJobModelFromDomain(q *domain.QueuedJob) (*QueuedJobModel, error) {
	if q == nil {
		return nil, nil
	}

	var event []byte
	if q.Event != nil {
		encoded, err := json.Marshal(q.Event)
		if err != nil {
			return nil, fmt.Errorf("failed to encode job event: %w", err)
		}
		event = encoded
	}

	var job []byte
	if q.Job != nil {
		encoded, err := json.Marshal(q.Job)
		if err != nil {
			return nil, fmt.Errorf("failed to encode built job: %w", err)
		}
		job = encoded
	}

	return &QueuedJobModel{
		ID:            q.ID,
		State:         q.State,
		Event:         event,
		Job:           job,
		AttemptCount:  q.AttemptCount,
		MaxAttempts:   q.MaxAttempts,
		StallCount:    q.StallCount,
		NextRunAt:     q.NextRunAt,
		StartedAt:     q.StartedAt,
		FailureReason: q.FailureReason,
		CreatedAt:     q.CreatedAt,
		UpdatedAt:     q.UpdatedAt,
	}, nil
}

func queuedJobModelToDomain(m *QueuedJobModel) (*domain.QueuedJob, error) {
	if m == nil {
		return nil, nil
	}

	var event *domain.NotificationEvent
	if len(m.Event) > 0 {
		event = &domain.NotificationEvent{}
		if err := json.Unmarshal(m.Event, event); err != nil {
			return nil, fmt.Errorf("failed to decode job event: %w", err)
		}
	}

	var job *domain.NotificationJob
	if len(m.Job) > 0 {
		job = &domain.NotificationJob{}
		if err := json.Unmarshal(m.Job, job); err != nil {
			return nil, fmt.Errorf("failed to decode built job: %w", err)
		}
	}

	return &domain.QueuedJob{
		ID:            m.ID,
		Event:         event,
		Job:           job,
		State:         m.State,
		AttemptCount:  m.AttemptCount,
		MaxAttempts:   m.MaxAttempts,
		StallCount:    m.StallCount,
		NextRunAt:     m.NextRunAt,
		StartedAt:     m.StartedAt,
		FailureReason: m.FailureReason,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}, nil
}

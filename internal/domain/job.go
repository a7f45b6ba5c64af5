package domain

import (
	"fmt"
	"time"
)

// JobState represents the lifecycle state of a queued delivery job.
type JobState string

const (
	JobStateWaiting   JobState = "WAITING"
	JobStateActive    JobState = "ACTIVE"
	JobStateCompleted JobState = "COMPLETED"
	JobStateFailed    JobState = "FAILED"
	JobStateStalled   JobState = "STALLED"
)

func (s JobState) String() string { return string(s) }

func (s JobState) IsValid() bool {
	switch s {
	case JobStateWaiting, JobStateActive, JobStateCompleted, JobStateFailed, JobStateStalled:
		return true
	}
	return false
}

// IsTerminal reports whether the state admits no further transitions.
func (s JobState) IsTerminal() bool {
	return s == JobStateCompleted || s == JobStateFailed
}

// NotificationJob is the concrete delivery instruction built from an event.
// Built once, immutable; executed inline or serialized onto the queue.
type NotificationJob struct {
	RecipientIDs []string       `json:"recipientIds"`
	Title        string         `json:"title"`
	Message      string         `json:"message"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	EmailSubject string         `json:"emailSubject,omitempty"`
	EmailHTML    string         `json:"emailHtml,omitempty"`
}

// HasEmail reports whether the job carries a rendered email dispatch.
func (j *NotificationJob) HasEmail() bool {
	return j != nil && j.EmailSubject != "" && j.EmailHTML != ""
}

func (j *NotificationJob) Validate() error {
	if j == nil {
		return fmt.Errorf("%w: job is required", ErrValidation)
	}
	if len(j.RecipientIDs) == 0 && !j.HasEmail() {
		return fmt.Errorf("%w: job must have recipients or an email payload", ErrValidation)
	}
	return nil
}

// QueuedJob wraps a delivery job with queue bookkeeping. The row carries the
// raw event until the first successful build; afterwards the built job is
// persisted and retries replay it verbatim.
type QueuedJob struct {
	ID            string
	Event         *NotificationEvent
	Job           *NotificationJob
	State         JobState
	AttemptCount  int
	MaxAttempts   int
	StallCount    int
	NextRunAt     *time.Time
	StartedAt     *time.Time
	FailureReason *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// EventTypeLabel returns the originating event type for operational views.
func (q *QueuedJob) EventTypeLabel() string {
	if q == nil {
		return ""
	}
	if q.Event != nil {
		return q.Event.EventType.String()
	}
	return ""
}

// DeliveryError records a single recipient-level failure. Recipient is empty
// for failures not attributable to one recipient, such as the address lookup.
type DeliveryError struct {
	Recipient string `json:"recipient,omitempty"`
	Reason    string `json:"reason"`
}

// DeliveryOutcome aggregates the result of one job execution. Partial failures
// live in Errors and are never escalated; callers inspect rather than catch.
type DeliveryOutcome struct {
	CreatedCount        int             `json:"createdCount"`
	EmailAttemptedCount int             `json:"emailAttemptedCount"`
	EmailSucceededCount int             `json:"emailSucceededCount"`
	Errors              []DeliveryError `json:"errors,omitempty"`
}

// Partial reports whether some, but not necessarily all, deliveries failed.
func (o DeliveryOutcome) Partial() bool { return len(o.Errors) > 0 }

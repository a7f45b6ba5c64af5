package queue

import (
	"fmt"
	"strings"
)

// JobMessage is the broker payload for notification delivery. The broker only
// carries the job ID; the job state and payload live in the database, so a
// redelivered or duplicated message is harmless.
type JobMessage struct {
	JobID     string `json:"jobId"`
	EventType string `json:"eventType,omitempty"`
}

func (m JobMessage) Validate() error {
	if strings.TrimSpace(m.JobID) == "" {
		return fmt.Errorf("jobId is required")
	}
	return nil
}

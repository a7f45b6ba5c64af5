package domain

import (
	"fmt"
	"strings"
	"time"
)

// NotificationType distinguishes delivery surfaces for persisted notifications.
type NotificationType string

const (
	NotificationTypeInApp NotificationType = "IN_APP"
)

func (t NotificationType) String() string { return string(t) }

// InAppNotification is a persisted record surfaced inside the product UI,
// distinct from email delivery. Created once per recipient by the executor;
// read-state mutation belongs to the CRUD layer, not this pipeline.
type InAppNotification struct {
	ID        string
	UserID    string
	Type      NotificationType
	Title     string
	Message   string
	Metadata  map[string]any
	ReadAt    *time.Time
	CreatedAt time.Time
}

func (n *InAppNotification) Validate() error {
	if n == nil {
		return fmt.Errorf("%w: notification is required", ErrValidation)
	}
	if strings.TrimSpace(n.UserID) == "" {
		return fmt.Errorf("%w: user id is required", ErrValidation)
	}
	if strings.TrimSpace(n.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}
	if strings.TrimSpace(n.Message) == "" {
		return fmt.Errorf("%w: message is required", ErrValidation)
	}
	return nil
}

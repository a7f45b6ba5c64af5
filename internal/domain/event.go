package domain

import (
	"fmt"
	"strings"
)

// EventType identifies a business-logic occurrence that may warrant notifying users.
type EventType string

const (
	EventTestNotification       EventType = "TEST_NOTIFICATION"
	EventUserInvited            EventType = "USER_INVITED"
	EventPasswordResetRequested EventType = "PASSWORD_RESET_REQUESTED"
	EventArticlePublished       EventType = "ARTICLE_PUBLISHED"
	EventCommentAdded           EventType = "COMMENT_ADDED"
)

func (e EventType) String() string { return string(e) }

// NotificationEvent is the in-process intake contract produced by business logic.
// It is immutable once constructed and consumed exactly once by the builder.
type NotificationEvent struct {
	EventType    EventType      `json:"eventType"`
	RecipientIDs []string       `json:"recipientIds"`
	Payload      map[string]any `json:"payload,omitempty"`
}

func (e *NotificationEvent) Validate() error {
	if e == nil {
		return fmt.Errorf("%w: event is required", ErrValidation)
	}
	if strings.TrimSpace(string(e.EventType)) == "" {
		return fmt.Errorf("%w: event type is required", ErrValidation)
	}
	return nil
}

// StringField extracts a non-empty string payload field.
func (e *NotificationEvent) StringField(key string) (string, bool) {
	if e == nil || e.Payload == nil {
		return "", false
	}
	value, ok := e.Payload[key].(string)
	if !ok {
		return "", false
	}
	value = strings.TrimSpace(value)
	return value, value != ""
}

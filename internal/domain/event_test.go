package domain

import (
	"errors"
	"testing"
)

func TestNotificationEvent_Validate(t *testing.T) {
	t.Parallel()

	valid := &NotificationEvent{EventType: EventCommentAdded, RecipientIDs: []string{"user-1"}}
	if err := valid.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, event := range []*NotificationEvent{nil, {}, {EventType: "  "}} {
		if err := event.Validate(); !errors.Is(err, ErrValidation) {
			t.Errorf("Validate(%+v) = %v, want ErrValidation", event, err)
		}
	}
}

func TestNotificationEvent_StringField(t *testing.T) {
	t.Parallel()

	event := &NotificationEvent{
		EventType: EventTestNotification,
		Payload: map[string]any{
			"title":   "  hello  ",
			"blank":   "   ",
			"number":  42,
			"boolean": true,
		},
	}

	if got, ok := event.StringField("title"); !ok || got != "hello" {
		t.Errorf(`StringField("title") = %q, %v`, got, ok)
	}
	for _, key := range []string{"blank", "number", "boolean", "missing"} {
		if _, ok := event.StringField(key); ok {
			t.Errorf(`StringField(%q) = true, want false`, key)
		}
	}

	var nilEvent *NotificationEvent
	if _, ok := nilEvent.StringField("title"); ok {
		t.Error("StringField on nil event = true")
	}
}

package mailer

import (
	"context"
	"testing"

	"go.uber.org/zap"
)

func TestNew_SelectsResendWhenKeyPresent(t *testing.T) {
	t.Parallel()

	sender := New(Config{
		ResendAPIKey:   "re_test_key",
		AWSAccessKeyID: "AKIA_TEST",
		SESFromEmail:   "ses@example.com",
	}, zap.NewNop())

	if sender.Name() != "resend" {
		t.Fatalf("Name() = %q, want resend to win over ses", sender.Name())
	}
}

func TestNew_SelectsSESWhenOnlyAWSConfigured(t *testing.T) {
	t.Parallel()

	sender := New(Config{
		AWSRegion:          "us-east-1",
		AWSAccessKeyID:     "AKIA_TEST",
		AWSSecretAccessKey: "secret",
		SESFromEmail:       "ses@example.com",
		SESFromName:        "Practo CMS",
	}, zap.NewNop())

	if sender.Name() != "ses" {
		t.Fatalf("Name() = %q, want ses", sender.Name())
	}
}

func TestNew_FallsBackToLogSender(t *testing.T) {
	t.Parallel()

	sender := New(Config{}, zap.NewNop())
	if sender.Name() != "log" {
		t.Fatalf("Name() = %q, want log", sender.Name())
	}
}

func TestLogSender_AlwaysReportsDelivered(t *testing.T) {
	t.Parallel()

	sender := NewLogSender(zap.NewNop())

	if !sender.Send(context.Background(), Message{To: []string{"a@example.com"}, Subject: "s", HTML: "b"}) {
		t.Error("Send() = false, want true")
	}
	// Even an empty message "delivers": the provider only logs.
	if !sender.Send(context.Background(), Message{}) {
		t.Error("Send() with empty message = false, want true")
	}
}

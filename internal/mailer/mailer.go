package mailer

import (
	"context"

	"go.uber.org/zap"
)

// Message is a rendered email addressed to one or more recipients.
type Message struct {
	To      []string
	Subject string
	HTML    string
	Text    string
}

// Sender delivers a rendered message to its recipients. Implementations
// report delivery as a boolean and never surface provider failures as errors;
// a timeout, auth error, or malformed address all become delivered=false.
type Sender interface {
	Send(ctx context.Context, msg Message) bool
	Name() string
}

// Config holds provider credentials. Provider selection is driven purely by
// which credentials are present; there is no explicit mode flag.
type Config struct {
	ResendAPIKey       string
	FromEmail          string
	AWSRegion          string
	AWSAccessKeyID     string
	AWSSecretAccessKey string
	SESFromEmail       string
	SESFromName        string
}

// New selects the email provider once, for the process lifetime: Resend when
// its API key is configured, AWS SES when an access key and sender identity
// are configured, and otherwise the always-succeeding log sender for
// local/offline operation.
func New(cfg Config, logger *zap.Logger) Sender {
	if logger == nil {
		logger = zap.NewNop()
	}

	if cfg.ResendAPIKey != "" {
		sender := NewResendSender(cfg.ResendAPIKey, cfg.FromEmail, logger)
		logger.Info("email provider selected", zap.String("provider", sender.Name()))
		return sender
	}

	if cfg.AWSAccessKeyID != "" && cfg.SESFromEmail != "" {
		sender, err := NewSESSender(cfg, logger)
		if err == nil {
			logger.Info("email provider selected", zap.String("provider", sender.Name()))
			return sender
		}
		logger.Error("ses sender initialization failed, falling back to log provider",
			zap.Error(err),
		)
	}

	sender := NewLogSender(logger)
	logger.Info("email provider selected", zap.String("provider", sender.Name()))
	return sender
}

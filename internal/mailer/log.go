package mailer

import (
	"context"

	"go.uber.org/zap"
)

// LogSender is the fallback provider used when no email credentials are
// configured. It logs the message and reports success, so local and offline
// deployments exercise the full delivery path without outbound mail.
type LogSender struct {
	logger *zap.Logger
}

func NewLogSender(logger *zap.Logger) *LogSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSender{logger: logger}
}

func (s *LogSender) Name() string { return "log" }

func (s *LogSender) Send(_ context.Context, msg Message) bool {
	s.logger.Info("email logged instead of sent",
		zap.Strings("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.Int("htmlBytes", len(msg.HTML)),
	)
	return true
}

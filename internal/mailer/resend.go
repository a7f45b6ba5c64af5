package mailer

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const (
	resendEndpoint     = "https://api.resend.com/emails"
	defaultSendTimeout = 10 * time.Second
	defaultFromEmail   = "noreply@practocms.com"
)

type resendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
	Text    string   `json:"text,omitempty"`
}

// ResendSender delivers mail through Resend's transactional HTTPS API.
type ResendSender struct {
	client   *resty.Client
	endpoint string
	from     string
	logger   *zap.Logger
}

func NewResendSender(apiKey, from string, logger *zap.Logger) *ResendSender {
	client := resty.New()
	client.SetTimeout(defaultSendTimeout)
	client.SetRetryCount(0)
	client.SetAuthToken(apiKey)

	return newResendSender(client, resendEndpoint, from, logger)
}

func newResendSender(client *resty.Client, endpoint, from string, logger *zap.Logger) *ResendSender {
	if strings.TrimSpace(from) == "" {
		from = defaultFromEmail
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if client.GetClient().Timeout == 0 {
		client.SetTimeout(defaultSendTimeout)
	}

	return &ResendSender{
		client:   client,
		endpoint: endpoint,
		from:     from,
		logger:   logger,
	}
}

func (s *ResendSender) Name() string { return "resend" }

func (s *ResendSender) Send(ctx context.Context, msg Message) bool {
	if s == nil || s.client == nil {
		return false
	}
	if len(msg.To) == 0 {
		return true
	}

	response, err := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(resendRequest{
			From:    s.from,
			To:      msg.To,
			Subject: msg.Subject,
			HTML:    msg.HTML,
			Text:    msg.Text,
		}).
		Post(s.endpoint)
	if err != nil {
		s.logger.Warn("resend request failed",
			zap.Int("recipients", len(msg.To)),
			zap.Error(err),
		)
		return false
	}

	statusCode := response.StatusCode()
	if statusCode >= http.StatusOK && statusCode < http.StatusMultipleChoices {
		return true
	}

	s.logger.Warn("resend rejected email",
		zap.Int("status", statusCode),
		zap.Int("recipients", len(msg.To)),
		zap.String("body", strings.TrimSpace(response.String())),
	)
	return false
}

package mailer

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"go.uber.org/zap"
)

const charsetUTF8 = "UTF-8"

// sesAPI is the slice of the SES v2 client the sender uses.
type sesAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESSender delivers mail through Amazon SES.
type SESSender struct {
	client sesAPI
	source string
	logger *zap.Logger
}

func NewSESSender(cfg Config, logger *zap.Logger) (*SESSender, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(cfg.AWSRegion),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWSAccessKeyID, cfg.AWSSecretAccessKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	return newSESSender(sesv2.NewFromConfig(awsCfg), cfg, logger), nil
}

func newSESSender(client sesAPI, cfg Config, logger *zap.Logger) *SESSender {
	if logger == nil {
		logger = zap.NewNop()
	}

	source := cfg.SESFromEmail
	if cfg.SESFromName != "" {
		source = fmt.Sprintf("%s <%s>", cfg.SESFromName, cfg.SESFromEmail)
	}

	return &SESSender{
		client: client,
		source: source,
		logger: logger,
	}
}

func (s *SESSender) Name() string { return "ses" }

func (s *SESSender) Send(ctx context.Context, msg Message) bool {
	if s == nil || s.client == nil {
		return false
	}
	if len(msg.To) == 0 {
		return true
	}

	ctx, cancel := context.WithTimeout(ctx, defaultSendTimeout)
	defer cancel()

	body := &types.Body{
		Html: &types.Content{Data: aws.String(msg.HTML), Charset: aws.String(charsetUTF8)},
	}
	if msg.Text != "" {
		body.Text = &types.Content{Data: aws.String(msg.Text), Charset: aws.String(charsetUTF8)}
	}

	_, err := s.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(s.source),
		Destination:      &types.Destination{ToAddresses: msg.To},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(msg.Subject), Charset: aws.String(charsetUTF8)},
				Body:    body,
			},
		},
	})
	if err != nil {
		s.logger.Warn("ses send failed",
			zap.Int("recipients", len(msg.To)),
			zap.Error(err),
		)
		return false
	}

	return true
}

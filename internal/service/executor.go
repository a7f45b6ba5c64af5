package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sai-roshan-dev/practo-cms-backend/internal/domain"
	"github.com/sai-roshan-dev/practo-cms-backend/internal/mailer"
	"github.com/sai-roshan-dev/practo-cms-backend/internal/observability"
	"github.com/sai-roshan-dev/practo-cms-backend/internal/ratelimit"
	"github.com/sai-roshan-dev/practo-cms-backend/internal/repository"
	"go.uber.org/zap"
)

const emailRateLimitScope = "email"

// Executor fans a built job out to its recipients: one in-app notification row
// per recipient plus, when the job carries a rendered email, one batched email
// dispatch to every recipient with a known address. Recipient-level failures
// are collected in the outcome; only a total infrastructure outage escalates.
type Executor struct {
	notifications repository.NotificationRepository
	users         repository.UserRepository
	sender        mailer.Sender
	limiter       ratelimit.RateLimiter
	logger        *zap.Logger
	metrics       *observability.Metrics
	now           func() time.Time
	newID         func() string
}

func NewExecutor(
	notifications repository.NotificationRepository,
	users repository.UserRepository,
	sender mailer.Sender,
	limiter ratelimit.RateLimiter,
	logger *zap.Logger,
) (*Executor, error) {
	if notifications == nil {
		return nil, fmt.Errorf("notification repository is required")
	}
	if users == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if sender == nil {
		return nil, fmt.Errorf("email sender is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Executor{
		notifications: notifications,
		users:         users,
		sender:        sender,
		limiter:       limiter,
		logger:        logger,
		now:           time.Now,
		newID:         uuid.NewString,
	}, nil
}

func (e *Executor) SetMetrics(metrics *observability.Metrics) {
	if e == nil {
		return
	}
	e.metrics = metrics
}

func (e *Executor) Execute(ctx context.Context, job domain.NotificationJob) (domain.DeliveryOutcome, error) {
	outcome := domain.DeliveryOutcome{}
	if ctx == nil {
		ctx = context.Background()
	}

	rowFailures := 0
	for _, userID := range job.RecipientIDs {
		notification := &domain.InAppNotification{
			ID:        e.newID(),
			UserID:    userID,
			Type:      domain.NotificationTypeInApp,
			Title:     job.Title,
			Message:   job.Message,
			Metadata:  job.Metadata,
			CreatedAt: e.now().UTC(),
		}

		// A row that fails validation is a data defect, not an outage: it is
		// recorded against the recipient but never counts toward escalation.
		if err := notification.Validate(); err != nil {
			outcome.Errors = append(outcome.Errors, domain.DeliveryError{
				Recipient: userID,
				Reason:    err.Error(),
			})
			e.logger.Warn("skipping invalid in-app notification",
				zap.String("userId", userID),
				zap.Error(err),
			)
			continue
		}

		if err := e.notifications.Create(ctx, notification); err != nil {
			rowFailures++
			outcome.Errors = append(outcome.Errors, domain.DeliveryError{
				Recipient: userID,
				Reason:    fmt.Sprintf("notification create failed: %v", err),
			})
			e.logger.Warn("in-app notification create failed",
				zap.String("userId", userID),
				zap.Error(err),
			)
			continue
		}
		outcome.CreatedCount++
	}
	e.metrics.AddNotificationsCreated(outcome.CreatedCount)

	if job.HasEmail() {
		e.dispatchEmail(ctx, &job, &outcome)
	}

	if len(job.RecipientIDs) > 0 && rowFailures == len(job.RecipientIDs) && outcome.EmailSucceededCount == 0 {
		return outcome, fmt.Errorf("%w: all %d notification writes failed and no email was delivered",
			domain.ErrTotalOutage, rowFailures)
	}

	return outcome, nil
}

func (e *Executor) dispatchEmail(ctx context.Context, job *domain.NotificationJob, outcome *domain.DeliveryOutcome) {
	emails, err := e.users.FindUserEmails(ctx, job.RecipientIDs)
	if err != nil {
		outcome.Errors = append(outcome.Errors, domain.DeliveryError{
			Reason: fmt.Sprintf("email address lookup failed: %v", err),
		})
		e.logger.Warn("email address lookup failed", zap.Error(err))
		return
	}

	// Addresses resolve in recipient order; users with no address are skipped.
	resolvedIDs := make([]string, 0, len(job.RecipientIDs))
	addresses := make([]string, 0, len(job.RecipientIDs))
	for _, id := range job.RecipientIDs {
		if address, ok := emails[id]; ok {
			resolvedIDs = append(resolvedIDs, id)
			addresses = append(addresses, address)
		}
	}
	outcome.EmailAttemptedCount = len(addresses)

	if e.limiter != nil && len(addresses) > 0 {
		if err := e.limiter.Wait(ctx, emailRateLimitScope); err != nil {
			for _, id := range resolvedIDs {
				outcome.Errors = append(outcome.Errors, domain.DeliveryError{
					Recipient: id,
					Reason:    fmt.Sprintf("email rate limiter wait failed: %v", err),
				})
			}
			e.logger.Warn("email rate limiter wait failed", zap.Error(err))
			return
		}
	}

	delivered := e.sender.Send(ctx, mailer.Message{
		To:      addresses,
		Subject: job.EmailSubject,
		HTML:    job.EmailHTML,
	})
	if delivered {
		outcome.EmailSucceededCount = len(addresses)
		e.metrics.IncEmailDelivered(e.sender.Name())
		return
	}

	e.metrics.IncEmailFailed(e.sender.Name())
	for _, id := range resolvedIDs {
		outcome.Errors = append(outcome.Errors, domain.DeliveryError{
			Recipient: id,
			Reason:    "email delivery failed",
		})
	}
}

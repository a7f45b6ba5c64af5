package builder

import (
	"fmt"

	"github.com/sai-roshan-dev/practo-cms-backend/internal/domain"
	"go.uber.org/zap"
)

type buildFunc func(event *domain.NotificationEvent) (*domain.NotificationJob, error)

// eventBuilders maps event types to their job construction. Event types
// without an entry produce no notification at all.
var eventBuilders = map[domain.EventType]buildFunc{
	domain.EventTestNotification:       buildTestNotification,
	domain.EventUserInvited:            buildUserInvited,
	domain.EventPasswordResetRequested: buildPasswordResetRequested,
	domain.EventArticlePublished:       buildArticlePublished,
	domain.EventCommentAdded:           buildCommentAdded,
}

// Builder turns domain events into delivery jobs. The mapping is deterministic
// and side-effect free; building the same event twice yields identical jobs.
type Builder struct {
	logger *zap.Logger
}

func New(logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{logger: logger}
}

// Build returns the delivery job for an event, or nil when the event type has
// no notification mapping or the mapped job would have nothing to deliver.
// Missing required payload fields yield domain.ErrInvalidPayload.
func (b *Builder) Build(event domain.NotificationEvent) (*domain.NotificationJob, error) {
	if err := event.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidPayload, err)
	}

	build, ok := eventBuilders[event.EventType]
	if !ok {
		b.logger.Info("no notification mapping for event",
			zap.String("eventType", event.EventType.String()),
		)
		return nil, nil
	}

	job, err := build(&event)
	if err != nil {
		return nil, err
	}

	job.RecipientIDs = dedupe(event.RecipientIDs)
	if len(job.RecipientIDs) == 0 && !job.HasEmail() {
		b.logger.Info("event has no recipients and no email payload, skipping",
			zap.String("eventType", event.EventType.String()),
		)
		return nil, nil
	}

	return job, nil
}

func buildTestNotification(event *domain.NotificationEvent) (*domain.NotificationJob, error) {
	title, err := requireField(event, "title")
	if err != nil {
		return nil, err
	}
	message, err := requireField(event, "message")
	if err != nil {
		return nil, err
	}

	subject, html := optionalEmail(event)
	return &domain.NotificationJob{
		Title:        title,
		Message:      message,
		Metadata:     metadataField(event),
		EmailSubject: subject,
		EmailHTML:    html,
	}, nil
}

func buildUserInvited(event *domain.NotificationEvent) (*domain.NotificationJob, error) {
	inviterName, err := requireField(event, "inviterName")
	if err != nil {
		return nil, err
	}
	workspaceName, err := requireField(event, "workspaceName")
	if err != nil {
		return nil, err
	}

	subject, html := optionalEmail(event)
	return &domain.NotificationJob{
		Title:   "Workspace invitation",
		Message: fmt.Sprintf("%s invited you to join %s", inviterName, workspaceName),
		Metadata: map[string]any{
			"inviterName":   inviterName,
			"workspaceName": workspaceName,
		},
		EmailSubject: subject,
		EmailHTML:    html,
	}, nil
}

func buildPasswordResetRequested(event *domain.NotificationEvent) (*domain.NotificationJob, error) {
	// Reset flows are useless without the rendered email carrying the link.
	subject, err := requireField(event, "emailSubject")
	if err != nil {
		return nil, err
	}
	html, err := requireField(event, "emailHtml")
	if err != nil {
		return nil, err
	}

	return &domain.NotificationJob{
		Title:        "Password reset requested",
		Message:      "We received a request to reset your password. If this was not you, you can ignore it.",
		EmailSubject: subject,
		EmailHTML:    html,
	}, nil
}

func buildArticlePublished(event *domain.NotificationEvent) (*domain.NotificationJob, error) {
	articleTitle, err := requireField(event, "articleTitle")
	if err != nil {
		return nil, err
	}

	metadata := map[string]any{"articleTitle": articleTitle}
	if authorName, ok := event.StringField("authorName"); ok {
		metadata["authorName"] = authorName
	}

	subject, html := optionalEmail(event)
	return &domain.NotificationJob{
		Title:        "New article published",
		Message:      fmt.Sprintf("%q is now live", articleTitle),
		Metadata:     metadata,
		EmailSubject: subject,
		EmailHTML:    html,
	}, nil
}

func buildCommentAdded(event *domain.NotificationEvent) (*domain.NotificationJob, error) {
	articleTitle, err := requireField(event, "articleTitle")
	if err != nil {
		return nil, err
	}
	authorName, err := requireField(event, "authorName")
	if err != nil {
		return nil, err
	}

	return &domain.NotificationJob{
		Title:   "New comment",
		Message: fmt.Sprintf("%s commented on %q", authorName, articleTitle),
		Metadata: map[string]any{
			"articleTitle": articleTitle,
			"authorName":   authorName,
		},
	}, nil
}

func requireField(event *domain.NotificationEvent, key string) (string, error) {
	value, ok := event.StringField(key)
	if !ok {
		return "", fmt.Errorf("%w: %s requires payload field %q",
			domain.ErrInvalidPayload, event.EventType, key)
	}
	return value, nil
}

// optionalEmail returns the pre-rendered email pair, or nothing when either
// half is missing. Bodies are rendered by the caller, never composed here.
func optionalEmail(event *domain.NotificationEvent) (subject string, html string) {
	subject, okSubject := event.StringField("emailSubject")
	html, okHTML := event.StringField("emailHtml")
	if !okSubject || !okHTML {
		return "", ""
	}
	return subject, html
}

func metadataField(event *domain.NotificationEvent) map[string]any {
	if event.Payload == nil {
		return nil
	}
	metadata, ok := event.Payload["metadata"].(map[string]any)
	if !ok {
		return nil
	}
	return metadata
}

func dedupe(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(ids))
	result := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		result = append(result, id)
	}
	return result
}

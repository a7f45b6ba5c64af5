package handler

import (
	"context"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sai-roshan-dev/practo-cms-backend/internal/domain"
	"github.com/sai-roshan-dev/practo-cms-backend/internal/service"
)

// EventDispatcher is the producer-facing slice of the dispatcher.
type EventDispatcher interface {
	QueueEnabled() bool
	Enqueue(ctx context.Context, event domain.NotificationEvent) (string, error)
	ProcessSync(ctx context.Context, event domain.NotificationEvent) service.SyncResult
}

type EventHandler struct {
	dispatcher EventDispatcher
}

func NewEventHandler(dispatcher EventDispatcher) (*EventHandler, error) {
	if dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}
	return &EventHandler{dispatcher: dispatcher}, nil
}

func RegisterEventRoutes(router fiber.Router, dispatcher EventDispatcher) error {
	h, err := NewEventHandler(dispatcher)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/events", h.IntakeEvent)

	return nil
}

type eventRequest struct {
	EventType    string         `json:"eventType"`
	RecipientIDs []string       `json:"recipientIds"`
	Payload      map[string]any `json:"payload"`
}

type enqueueResponse struct {
	JobID  string `json:"jobId"`
	Status string `json:"status"`
}

type syncResponse struct {
	Skipped bool                   `json:"skipped,omitempty"`
	Outcome domain.DeliveryOutcome `json:"outcome"`
}

// IntakeEvent accepts a domain event and either enqueues it or delivers it
// inline, depending on deployment. Delivery failures never produce a 5xx:
// the triggering business action must succeed regardless.
func (h *EventHandler) IntakeEvent(c *fiber.Ctx) error {
	var req eventRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.EventType) == "" {
		return fiber.NewError(fiber.StatusBadRequest, "eventType is required")
	}

	event := domain.NotificationEvent{
		EventType:    domain.EventType(strings.TrimSpace(req.EventType)),
		RecipientIDs: req.RecipientIDs,
		Payload:      req.Payload,
	}

	if h.dispatcher.QueueEnabled() {
		jobID, err := h.dispatcher.Enqueue(c.UserContext(), event)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to enqueue event")
		}
		return c.Status(fiber.StatusAccepted).JSON(enqueueResponse{
			JobID:  jobID,
			Status: domain.JobStateWaiting.String(),
		})
	}

	result := h.dispatcher.ProcessSync(c.UserContext(), event)
	return c.Status(fiber.StatusOK).JSON(syncResponse{
		Skipped: result.Skipped,
		Outcome: result.Outcome,
	})
}

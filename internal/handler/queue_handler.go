package handler

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/sai-roshan-dev/practo-cms-backend/internal/service"
)

// QueueInspector reports aggregate queue state for operators.
type QueueInspector interface {
	Stats(ctx context.Context) (*service.QueueStats, error)
}

type QueueHandler struct {
	monitor QueueInspector
}

func NewQueueHandler(monitor QueueInspector) (*QueueHandler, error) {
	if monitor == nil {
		return nil, fmt.Errorf("monitor is required")
	}
	return &QueueHandler{monitor: monitor}, nil
}

func RegisterQueueRoutes(router fiber.Router, monitor QueueInspector) error {
	h, err := NewQueueHandler(monitor)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Get("/queue/stats", h.Stats)

	return nil
}

func (h *QueueHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.monitor.Stats(c.UserContext())
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to collect queue stats")
	}
	return c.Status(fiber.StatusOK).JSON(stats)
}

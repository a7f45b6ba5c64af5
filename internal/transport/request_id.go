package transport

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/sai-roshan-dev/practo-cms-backend/internal/observability"
)

const requestIDHeader = "X-Request-Id"

// RequestIDMiddleware tags every request with an identifier, honoring one
// supplied by the caller. The ID rides the user context so downstream log
// lines carry it, and is echoed back in the response header.
func RequestIDMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		requestID := c.Get(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		c.SetUserContext(observability.WithRequestID(c.UserContext(), requestID))
		c.Set(requestIDHeader, requestID)

		return c.Next()
	}
}

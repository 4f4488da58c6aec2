package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const correlationLocal = "correlation_id"

// CorrelationID tags every request with a correlation identifier so log
// lines from the same request can be grouped. An incoming header wins over
// a freshly generated one, which keeps IDs stable across a reverse proxy.
func CorrelationID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := strings.TrimSpace(c.Get("X-Correlation-ID"))
		if id == "" {
			id = strings.TrimSpace(c.Get("X-Request-ID"))
		}
		if id == "" {
			id = uuid.NewString()
		}

		c.Locals(correlationLocal, id)
		c.Set("X-Correlation-ID", id)

		return c.Next()
	}
}

// GetCorrelationID returns the correlation identifier bound to the active
// request, or an empty string outside the middleware chain.
func GetCorrelationID(c *fiber.Ctx) string {
	if c == nil {
		return ""
	}

	id, _ := c.Locals(correlationLocal).(string)
	return id
}

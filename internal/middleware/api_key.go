package middleware

import (
	"crypto/subtle"

	"github.com/gofiber/fiber/v2"
)

// APIKey guards the admin API. The X-API-Key header must match the
// configured key; in debug deployments the gate is disabled entirely.
func APIKey(key string, debug bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if debug {
			return c.Next()
		}

		provided := c.Get("X-API-Key")
		if key == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(key)) != 1 {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "invalid or missing API key",
			})
		}

		return c.Next()
	}
}

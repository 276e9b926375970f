package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// RequireJSON answers 406 when a write request does not declare a JSON body.
func RequireJSON(c *fiber.Ctx) error {
	contentType := strings.ToLower(c.Get(fiber.HeaderContentType))
	if contentType != fiber.MIMEApplicationJSON && !strings.HasPrefix(contentType, fiber.MIMEApplicationJSON+";") {
		return c.SendStatus(fiber.StatusNotAcceptable)
	}
	return c.Next()
}

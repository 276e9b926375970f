package middleware

import (
	"github.com/gofiber/fiber/v2"
)

// RoleRequired must run after AuthRequired. It answers 403 unless the user
// has at least one of the roles.
func RoleRequired(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		granted, _ := c.Locals(localRoles).([]string)
		if HasRole(granted, roles...) {
			return c.Next()
		}
		c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
		return c.Status(fiber.StatusForbidden).SendString("Forbidden")
	}
}

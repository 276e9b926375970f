package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/rs/zerolog"
)

// RequestLog writes one debug line per request; failed requests are logged
// at warn level.
func RequestLog(log zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		event := log.Debug()
		if err != nil || c.Response().StatusCode() >= fiber.StatusInternalServerError {
			event = log.Warn().Err(err)
		}
		event.
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", c.Response().StatusCode()).
			Dur("latency", time.Since(start)).
			Str("user", Username(c)).
			Msg("request")
		return err
	}
}

// RateLimit limits requests per client IP within window. Counters are kept
// per name, so limiters sharing one storage do not count each other's
// requests. A nil storage keeps the counters in memory.
func RateLimit(name string, max int, window time.Duration, storage fiber.Storage) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: window,
		Storage:    storage,
		KeyGenerator: func(c *fiber.Ctx) string {
			return name + ":" + c.IP()
		},
		Next: func(c *fiber.Ctx) bool {
			return max <= 0
		},
		LimitReached: func(c *fiber.Ctx) error {
			c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
			return c.Status(fiber.StatusTooManyRequests).SendString("Too Many Requests")
		},
	})
}

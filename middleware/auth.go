package middleware

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/rs/zerolog"

	"katalog/handlers"
)

const (
	RoleAdmin       = "admin"
	RoleMitarbeiter = "mitarbeiter"
)

const (
	localUser  = "username"
	localRoles = "roles"
)

type userKey struct{}

type identity struct {
	username string
	roles    []string
}

// AuthRequired lets only requests with a logged-in session pass and puts
// the user name and roles into the request locals and the user context.
func AuthRequired(store *session.Store, log zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !identify(c, store, log) {
			return unauthorized(c)
		}
		return c.Next()
	}
}

// LoadSession is AuthRequired without the 401: anonymous requests pass
// through and the handler decides.
func LoadSession(store *session.Store, log zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identify(c, store, log)
		return c.Next()
	}
}

func identify(c *fiber.Ctx, store *session.Store, log zerolog.Logger) bool {
	sess, err := store.Get(c)
	if err != nil {
		log.Warn().Err(err).Msg("session lookup failed")
		return false
	}

	username, _ := sess.Get(handlers.SessionUser).(string)
	if username == "" {
		return false
	}
	roles := splitRoles(sess.Get(handlers.SessionRoles))

	c.Locals(localUser, username)
	c.Locals(localRoles, roles)
	c.SetUserContext(WithUser(c.UserContext(), username, roles))
	return true
}

// WithUser returns a copy of ctx carrying the logged-in user.
func WithUser(ctx context.Context, username string, roles []string) context.Context {
	return context.WithValue(ctx, userKey{}, identity{username: username, roles: roles})
}

// UserFrom returns the user stored by WithUser; the name is empty for
// anonymous requests.
func UserFrom(ctx context.Context) (string, []string) {
	id, _ := ctx.Value(userKey{}).(identity)
	return id.username, id.roles
}

// Username returns the user set by AuthRequired.
func Username(c *fiber.Ctx) string {
	u, _ := c.Locals(localUser).(string)
	return u
}

// HasRole reports whether granted contains at least one of roles.
func HasRole(granted []string, roles ...string) bool {
	for _, have := range granted {
		for _, want := range roles {
			if have == want {
				return true
			}
		}
	}
	return false
}

func unauthorized(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
	return c.Status(fiber.StatusUnauthorized).SendString("Unauthorized")
}

func splitRoles(v interface{}) []string {
	s, _ := v.(string)
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"katalog/config"
)

// Session keys shared with the middleware package.
const (
	SessionUser  = "username"
	SessionRoles = "roles"
)

type AuthHandler struct {
	store *session.Store
	auth  config.Auth
	log   zerolog.Logger
}

func NewAuthHandler(store *session.Store, auth config.Auth, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{store: store, auth: auth, log: log.With().Str("handler", "auth").Logger()}
}

// Login checks the credentials against the configured users and opens a
// session carrying the user's roles.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var loginData struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&loginData); err != nil {
		h.log.Debug().Err(err).Msg("login: body")
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Ungueltiger Request-Body"})
	}

	user, ok := h.auth.FindUser(loginData.Username)
	if !ok {
		h.log.Debug().Str("username", loginData.Username).Msg("login: unknown user")
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(loginData.Password)); err != nil {
		h.log.Debug().Str("username", user.Username).Msg("login: wrong password")
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	sess, err := h.store.Get(c)
	if err != nil {
		h.log.Error().Err(err).Msg("login: session")
		return fiber.ErrInternalServerError
	}
	// new session id after login
	if err := sess.Regenerate(); err != nil {
		h.log.Error().Err(err).Msg("login: session regenerate")
		return fiber.ErrInternalServerError
	}
	sess.Set(SessionUser, user.Username)
	sess.Set(SessionRoles, strings.Join(user.Roles, ","))
	if err := sess.Save(); err != nil {
		h.log.Error().Err(err).Msg("login: session save")
		return fiber.ErrInternalServerError
	}

	h.log.Info().Str("username", user.Username).Msg("login")
	return c.JSON(fiber.Map{"username": user.Username, "roles": user.Roles})
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	sess, err := h.store.Get(c)
	if err != nil {
		h.log.Error().Err(err).Msg("logout: session")
		return fiber.ErrInternalServerError
	}
	if err := sess.Destroy(); err != nil {
		h.log.Error().Err(err).Msg("logout: session destroy")
		return fiber.ErrInternalServerError
	}
	return c.SendStatus(fiber.StatusNoContent)
}

package main

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/graphql-go/graphql"
	"github.com/rs/zerolog"

	"katalog/config"
	"katalog/gql"
	"katalog/handlers"
	"katalog/metrics"
	"katalog/middleware"
	"katalog/models"
	"katalog/service"
)

// deps are the components the HTTP layer is built from.
type deps struct {
	cfg      config.Config
	log      zerolog.Logger
	films    service.Service[models.Film]
	songs    service.Service[models.Song]
	sessions *session.Store
	storage  fiber.Storage
	schema   graphql.Schema
	metrics  *metrics.Metrics
	health   *handlers.HealthHandler
}

func newApp(d deps) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "katalog",
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler(d.log),
	})

	app.Use(d.metrics.Middleware())
	app.Use(middleware.RequestLog(d.log))

	app.Get("/health", d.health.Health)
	app.Get("/metrics", d.metrics.Handler())
	app.Post("/graphql",
		d.limit("graphql"),
		middleware.LoadSession(d.sessions, d.log),
		middleware.RequireJSON,
		gql.Handler(d.schema))

	api := app.Group("/api")

	auth := handlers.NewAuthHandler(d.sessions, d.cfg.Auth, d.log)
	api.Post("/login", d.limit("login"), auth.Login)
	api.Post("/logout", auth.Logout)

	films := handlers.NewRecordHandler(d.films, service.FilmKind.Name, "/api/filme", d.cfg.Server.BaseURI, d.log)
	mountRecords(api.Group("/filme"), d, "filme", films.Find, films.GetByID, films.Create, films.Update, films.Delete)

	songs := handlers.NewRecordHandler(d.songs, service.SongKind.Name, "/api/songs", d.cfg.Server.BaseURI, d.log)
	mountRecords(api.Group("/songs"), d, "songs", songs.Find, songs.GetByID, songs.Create, songs.Update, songs.Delete)

	return app
}

// mountRecords registers the five record routes; writes need a session,
// deleting needs the admin role.
func mountRecords(r fiber.Router, d deps, name string, find, get, create, update, remove fiber.Handler) {
	authRequired := middleware.AuthRequired(d.sessions, d.log)
	limit := d.limit(name)
	writer := middleware.RoleRequired(middleware.RoleAdmin, middleware.RoleMitarbeiter)

	r.Get("/", find)
	r.Get("/:id", get)
	r.Post("/", limit, authRequired, writer, middleware.RequireJSON, create)
	r.Put("/:id", limit, authRequired, writer, middleware.RequireJSON, update)
	r.Delete("/:id", limit, authRequired, middleware.RoleRequired(middleware.RoleAdmin), remove)
}

func (d deps) limit(name string) fiber.Handler {
	return middleware.RateLimit(name, d.cfg.RateLimit.Max, d.cfg.RateLimit.Window, d.storage)
}

func errorHandler(log zerolog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		msg := "Internal Server Error"
		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
			msg = fe.Message
		}
		if code >= fiber.StatusInternalServerError {
			log.Error().Err(err).Str("path", c.Path()).Msg("request failed")
		}
		c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
		return c.Status(code).SendString(msg)
	}
}

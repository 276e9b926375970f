package handlers

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"katalog/models"
	"katalog/service"
)

type link struct {
	Href string `json:"href"`
}

// RecordHandler serves one record kind under a collection path such as
// /api/filme.
type RecordHandler[T models.Entity] struct {
	service service.Service[T]
	kind    string
	path    string
	base    string
	log     zerolog.Logger
}

// NewRecordHandler creates the handler. base prefixes Location headers and
// links; when empty the request's own base URL is used.
func NewRecordHandler[T models.Entity](svc service.Service[T], kind, path, base string, log zerolog.Logger) *RecordHandler[T] {
	return &RecordHandler[T]{
		service: svc,
		kind:    kind,
		path:    path,
		base:    base,
		log:     log.With().Str("handler", kind).Logger(),
	}
}

func (h *RecordHandler[T]) baseURI(c *fiber.Ctx) string {
	if h.base != "" {
		return h.base + h.path
	}
	return c.BaseURL() + h.path
}

// GetByID returns one record with its ETag and navigation links.
func (h *RecordHandler[T]) GetByID(c *fiber.Ctx) error {
	id := c.Params("id")
	rec, err := h.service.FindByID(c.UserContext(), id)
	if err != nil {
		return h.unexpected(c, "findById", err)
	}
	if rec == nil {
		h.log.Debug().Str("id", id).Msg("findById: not found")
		return c.SendStatus(fiber.StatusNotFound)
	}

	etag := fmt.Sprintf("\"%d\"", rec.Version)
	if c.Get(fiber.HeaderIfNoneMatch) == etag {
		return c.SendStatus(fiber.StatusNotModified)
	}
	c.Set(fiber.HeaderETag, etag)

	base := h.baseURI(c)
	self := base + "/" + rec.ID
	body, err := withLinks(rec.Data, map[string]link{
		"self":   {Href: self},
		"list":   {Href: base},
		"add":    {Href: base},
		"update": {Href: self},
		"remove": {Href: self},
	})
	if err != nil {
		return h.unexpected(c, "findById", err)
	}
	return c.JSON(body)
}

// Find lists the records matching the query string; 404 when none match.
func (h *RecordHandler[T]) Find(c *fiber.Ctx) error {
	criteria := service.Criteria(c.Queries())
	records, err := h.service.Find(c.UserContext(), criteria)
	if err != nil {
		return h.unexpected(c, "find", err)
	}
	if len(records) == 0 {
		return c.SendStatus(fiber.StatusNotFound)
	}

	base := h.baseURI(c)
	bodies := make([]map[string]any, 0, len(records))
	for _, rec := range records {
		body, err := withLinks(rec.Data, map[string]link{"self": {Href: base + "/" + rec.ID}})
		if err != nil {
			return h.unexpected(c, "find", err)
		}
		bodies = append(bodies, body)
	}
	return c.JSON(bodies)
}

// Create answers 201 with a Location header and an empty body.
func (h *RecordHandler[T]) Create(c *fiber.Ctx) error {
	var candidate T
	if err := c.BodyParser(&candidate); err != nil {
		h.log.Debug().Err(err).Msg("create: body")
		return sendText(c, fiber.StatusBadRequest, "Ungueltiger Request-Body")
	}

	id, err := h.service.Create(c.UserContext(), candidate)
	if err != nil {
		return h.fail(c, "create", err)
	}
	location := h.baseURI(c) + "/" + id
	h.log.Debug().Str("location", location).Msg("create")
	c.Location(location)
	return c.SendStatus(fiber.StatusCreated)
}

// Update requires If-Match and answers 204 with the new version as ETag.
func (h *RecordHandler[T]) Update(c *fiber.Ctx) error {
	id := c.Params("id")
	header := c.Get(fiber.HeaderIfMatch)
	if header == "" {
		return sendText(c, fiber.StatusPreconditionRequired, "Versionsnummer fehlt")
	}
	if len(header) < 3 {
		return sendText(c, fiber.StatusPreconditionFailed, "Ungueltige Versionsnummer: "+header)
	}
	version := header[1 : len(header)-1]

	var candidate T
	if err := c.BodyParser(&candidate); err != nil {
		h.log.Debug().Err(err).Msg("update: body")
		return sendText(c, fiber.StatusBadRequest, "Ungueltiger Request-Body")
	}

	newVersion, err := h.service.Update(c.UserContext(), id, candidate, version)
	if err != nil {
		return h.fail(c, "update", err)
	}
	c.Set(fiber.HeaderETag, fmt.Sprintf("\"%d\"", newVersion))
	return c.SendStatus(fiber.StatusNoContent)
}

// Delete answers 204 whether or not the record existed.
func (h *RecordHandler[T]) Delete(c *fiber.Ctx) error {
	id := c.Params("id")
	deleted, err := h.service.Delete(c.UserContext(), id)
	if err != nil {
		return h.unexpected(c, "delete", err)
	}
	h.log.Debug().Str("id", id).Bool("deleted", deleted).Msg("delete")
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *RecordHandler[T]) fail(c *fiber.Ctx, op string, err error) error {
	var svcErr service.Error
	if !errors.As(err, &svcErr) {
		return h.unexpected(c, op, err)
	}
	h.log.Debug().Err(err).Str("op", op).Msg("rejected")

	var status int
	switch e := svcErr.(type) {
	case *service.ValidationError:
		return c.Status(fiber.StatusBadRequest).JSON(e.Messages)
	case *service.TitleExistsError, *service.KeyExistsError:
		status = fiber.StatusBadRequest
	case *service.NotFoundError, *service.VersionOutdatedError:
		status = fiber.StatusPreconditionFailed
	case *service.VersionInvalidError:
		status = fiber.StatusPreconditionFailed
		if e.Missing {
			status = fiber.StatusPreconditionRequired
		}
	default:
		return h.unexpected(c, op, err)
	}
	return sendText(c, status, service.Text(h.kind, svcErr))
}

// unexpected logs store or transport failures; the client only sees a 500.
func (h *RecordHandler[T]) unexpected(c *fiber.Ctx, op string, err error) error {
	h.log.Error().Err(err).Str("op", op).Msg("unexpected failure")
	return fiber.ErrInternalServerError
}

// withLinks renders data as a JSON object and adds the _links member.
func withLinks[T any](data T, links map[string]link) (map[string]any, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	body := map[string]any{}
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, err
	}
	body["_links"] = links
	return body, nil
}

func sendText(c *fiber.Ctx, status int, msg string) error {
	c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
	return c.Status(status).SendString(msg)
}

package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"katalog/handlers"
	"katalog/mail"
	"katalog/models"
	"katalog/service"
	"katalog/store"
)

const filmeURI = "http://example.com/api/filme"

var uuidRegexp = regexp.MustCompile(`[\da-f]{8}-[\da-f]{4}-[\da-f]{4}-[\da-f]{4}-[\da-f]{12}$`)

func filmApp(t *testing.T) *fiber.App {
	t.Helper()
	st := store.NewMemory[models.Film](store.WithUniqueFields("titel", "isan"))
	require.NoError(t, service.Populate(context.Background(), store.Store[models.Film](st), models.FilmFixtures))
	svc := service.NewRecordService(service.FilmKind, store.Store[models.Film](st), mail.Noop{}, zerolog.Nop())
	return recordApp(service.Service[models.Film](svc))
}

func recordApp(svc service.Service[models.Film]) *fiber.App {
	h := handlers.NewRecordHandler(svc, "Film", "/api/filme", "http://example.com", zerolog.Nop())
	app := fiber.New()
	app.Get("/api/filme", h.Find)
	app.Get("/api/filme/:id", h.GetByID)
	app.Post("/api/filme", h.Create)
	app.Put("/api/filme/:id", h.Update)
	app.Delete("/api/filme/:id", h.Delete)
	return app
}

func do(t *testing.T, app *fiber.App, method, target, body string, headers map[string]string) (*http.Response, string) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(raw)
}

const neuerFilm = `{
	"titel": "Neu",
	"rating": 2,
	"art": "DVD",
	"studio": "WarnerBros",
	"preis": 99.99,
	"rabatt": 0.099,
	"lieferbar": true,
	"datum": "2016-02-28",
	"isan": "0-0070-0644-6",
	"regisseur": "Max Mustermann",
	"genre": ["COMEDY", "ABENTEUER"]
}`

func TestCreate(t *testing.T) {
	app := filmApp(t)

	resp, body := do(t, app, fiber.MethodPost, "/api/filme", neuerFilm, nil)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
	assert.Empty(t, body)
	location := resp.Header.Get(fiber.HeaderLocation)
	assert.True(t, strings.HasPrefix(location, filmeURI+"/"), location)
	assert.Regexp(t, uuidRegexp, location)
}

func TestCreateInvalid(t *testing.T) {
	app := filmApp(t)
	invalid := `{"titel": "?!", "rating": -1, "art": "UNSICHTBAR", "studio": "foo", "datum": "12345-123-123", "isan": "falsche-ISBN"}`

	resp, body := do(t, app, fiber.MethodPost, "/api/filme", invalid, nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	var msg map[string]string
	require.NoError(t, json.Unmarshal([]byte(body), &msg))
	assert.Equal(t, "Die ISAN-Nummer ist nicht korrekt.", msg["isan"])
	assert.Len(t, msg, 6)
}

func TestCreateTitleExists(t *testing.T) {
	app := filmApp(t)
	film := strings.Replace(neuerFilm, `"Neu"`, `"Die nackte Kanone"`, 1)

	resp, body := do(t, app, fiber.MethodPost, "/api/filme", film, nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body, "Titel")
	assert.Contains(t, resp.Header.Get(fiber.HeaderContentType), "text/plain")
}

func TestCreateBrokenJSON(t *testing.T) {
	app := filmApp(t)
	resp, _ := do(t, app, fiber.MethodPost, "/api/filme", `{"titel":`, nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestGetByID(t *testing.T) {
	app := filmApp(t)
	id := models.FilmFixtures[0].ID

	resp, body := do(t, app, fiber.MethodGet, "/api/filme/"+id, "", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, `"0"`, resp.Header.Get(fiber.HeaderETag))

	var film map[string]any
	require.NoError(t, json.Unmarshal([]byte(body), &film))
	assert.Equal(t, "Die nackte Kanone", film["titel"])
	assert.NotContains(t, film, "id")
	assert.NotContains(t, film, "version")
	links, ok := film["_links"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, map[string]any{"href": filmeURI + "/" + id}, links["self"])
	assert.Equal(t, map[string]any{"href": filmeURI}, links["list"])
	assert.Len(t, links, 5)
}

func TestGetByIDNotModified(t *testing.T) {
	app := filmApp(t)
	id := models.FilmFixtures[0].ID

	resp, body := do(t, app, fiber.MethodGet, "/api/filme/"+id, "", map[string]string{fiber.HeaderIfNoneMatch: `"0"`})
	assert.Equal(t, fiber.StatusNotModified, resp.StatusCode)
	assert.Empty(t, body)

	resp, _ = do(t, app, fiber.MethodGet, "/api/filme/"+id, "", map[string]string{fiber.HeaderIfNoneMatch: `"1"`})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestGetByIDNotFound(t *testing.T) {
	app := filmApp(t)
	for _, id := range []string{"00000000-0000-0000-0000-999999999999", "xxx"} {
		resp, _ := do(t, app, fiber.MethodGet, "/api/filme/"+id, "", nil)
		assert.Equal(t, fiber.StatusNotFound, resp.StatusCode, id)
	}
}

func TestFind(t *testing.T) {
	app := filmApp(t)

	resp, body := do(t, app, fiber.MethodGet, "/api/filme?titel=a", "", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var filme []map[string]any
	require.NoError(t, json.Unmarshal([]byte(body), &filme))
	assert.Len(t, filme, 4)
	for _, f := range filme {
		assert.Contains(t, strings.ToLower(f["titel"].(string)), "a")
		links := f["_links"].(map[string]any)
		self := links["self"].(map[string]any)["href"].(string)
		assert.Regexp(t, uuidRegexp, self)
	}

	resp, _ = do(t, app, fiber.MethodGet, "/api/filme?abenteuer=true", "", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, _ = do(t, app, fiber.MethodGet, "/api/filme?titel=xyz", "", nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestUpdate(t *testing.T) {
	app := filmApp(t)
	id := models.FilmFixtures[2].ID
	raw, err := json.Marshal(models.FilmFixtures[2].Data)
	require.NoError(t, err)

	resp, body := do(t, app, fiber.MethodPut, "/api/filme/"+id, string(raw), map[string]string{fiber.HeaderIfMatch: `"0"`})
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	assert.Empty(t, body)
	assert.Equal(t, `"1"`, resp.Header.Get(fiber.HeaderETag))

	resp, body = do(t, app, fiber.MethodPut, "/api/filme/"+id, string(raw), map[string]string{fiber.HeaderIfMatch: `"0"`})
	assert.Equal(t, fiber.StatusPreconditionFailed, resp.StatusCode)
	assert.Equal(t, `Die Versionsnummer "0" ist nicht aktuell.`, body)
}

func TestUpdatePreconditions(t *testing.T) {
	app := filmApp(t)
	id := models.FilmFixtures[2].ID
	raw, err := json.Marshal(models.FilmFixtures[2].Data)
	require.NoError(t, err)

	resp, body := do(t, app, fiber.MethodPut, "/api/filme/"+id, string(raw), nil)
	assert.Equal(t, fiber.StatusPreconditionRequired, resp.StatusCode)
	assert.Equal(t, "Versionsnummer fehlt", body)

	resp, body = do(t, app, fiber.MethodPut, "/api/filme/"+id, string(raw), map[string]string{fiber.HeaderIfMatch: "1"})
	assert.Equal(t, fiber.StatusPreconditionFailed, resp.StatusCode)
	assert.Equal(t, "Ungueltige Versionsnummer: 1", body)

	resp, body = do(t, app, fiber.MethodPut, "/api/filme/"+id, string(raw), map[string]string{fiber.HeaderIfMatch: `"x"`})
	assert.Equal(t, fiber.StatusPreconditionFailed, resp.StatusCode)
	assert.Contains(t, body, "Versionsnummer")

	resp, body = do(t, app, fiber.MethodPut, "/api/filme/"+id, string(raw), map[string]string{fiber.HeaderIfMatch: `"2147483648"`})
	assert.Equal(t, fiber.StatusPreconditionFailed, resp.StatusCode)
	assert.Equal(t, `Die Versionsnummer "2147483648" ist ungueltig.`, body)

	resp, body = do(t, app, fiber.MethodPut, "/api/filme/"+id, string(raw), map[string]string{fiber.HeaderIfMatch: `"-1"`})
	assert.Equal(t, fiber.StatusPreconditionFailed, resp.StatusCode)
	assert.Contains(t, body, "Versionsnummer")

	missing := "00000000-0000-0000-0000-999999999999"
	resp, body = do(t, app, fiber.MethodPut, "/api/filme/"+missing, neuerFilm, map[string]string{fiber.HeaderIfMatch: `"0"`})
	assert.Equal(t, fiber.StatusPreconditionFailed, resp.StatusCode)
	assert.Equal(t, `Es gibt kein Film mit der ID "`+missing+`".`, body)
}

func TestDelete(t *testing.T) {
	app := filmApp(t)
	id := models.FilmFixtures[0].ID

	resp, _ := do(t, app, fiber.MethodDelete, "/api/filme/"+id, "", nil)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	resp, _ = do(t, app, fiber.MethodDelete, "/api/filme/"+id, "", nil)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	resp, _ = do(t, app, fiber.MethodGet, "/api/filme/"+id, "", nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

type brokenService struct {
	service.Service[models.Film]
}

func (brokenService) Find(context.Context, service.Criteria) ([]service.Record[models.Film], error) {
	return nil, errors.New("connection refused")
}

func TestUnexpectedErrorIsHidden(t *testing.T) {
	app := recordApp(brokenService{})
	resp, body := do(t, app, fiber.MethodGet, "/api/filme", "", nil)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	assert.NotContains(t, body, "connection refused")
}

package main

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"katalog/config"
	"katalog/gql"
	"katalog/handlers"
	"katalog/mail"
	"katalog/metrics"
	"katalog/models"
)

func testApp(t *testing.T) *fiber.App {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.RateLimit.Max = 0

	lg := zerolog.Nop()
	health := handlers.NewHealthHandler(lg)
	films, songs, closeDB, err := buildServices(context.Background(), cfg.DB, mail.Noop{}, lg, health)
	require.NoError(t, err)
	t.Cleanup(closeDB)

	schema, err := gql.NewResolver(songs, lg).Schema()
	require.NoError(t, err)

	return newApp(deps{
		cfg:      cfg,
		log:      lg,
		films:    films,
		songs:    songs,
		sessions: session.New(),
		schema:   schema,
		metrics:  metrics.New(),
		health:   health,
	})
}

func send(t *testing.T, app *fiber.App, method, target, body, cookie string) (*http.Response, string) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if cookie != "" {
		req.Header.Set("Cookie", cookie)
	}
	req.Header.Set(fiber.HeaderIfMatch, `"0"`)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(raw)
}

func loginAs(t *testing.T, app *fiber.App, username string) string {
	t.Helper()
	resp, _ := send(t, app, fiber.MethodPost, "/api/login", `{"username":"`+username+`","password":"`+config.DefaultPassword+`"}`, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	return strings.SplitN(resp.Header.Get("Set-Cookie"), ";", 2)[0]
}

const neuerSong = `{"titel":"Neu","label":"SONY_MUSIC","produzent":"Rick Rubin","interpret":"TRIVIUM","lauflaenge":3.2,"erscheinungsdatum":"2022-02-02"}`

func TestWritesNeedSession(t *testing.T) {
	app := testApp(t)

	resp, body := send(t, app, fiber.MethodPost, "/api/songs", neuerSong, "")
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Unauthorized", body)

	resp, _ = send(t, app, fiber.MethodDelete, "/api/songs/00000000-0000-0000-0000-000000000001", "", "")
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp, _ = send(t, app, fiber.MethodPost, "/api/songs", neuerSong, "session_id=FALSCH")
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestRoles(t *testing.T) {
	app := testApp(t)
	kunde := loginAs(t, app, "alfred")
	mitarbeiter := loginAs(t, app, "adriana")

	resp, _ := send(t, app, fiber.MethodPost, "/api/songs", neuerSong, kunde)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp, _ = send(t, app, fiber.MethodPost, "/api/songs", neuerSong, mitarbeiter)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
	location := resp.Header.Get(fiber.HeaderLocation)
	require.Contains(t, location, "/api/songs/")

	id := location[strings.LastIndex(location, "/")+1:]
	resp, _ = send(t, app, fiber.MethodDelete, "/api/songs/"+id, "", mitarbeiter)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp, _ = send(t, app, fiber.MethodDelete, "/api/songs/"+id, "", loginAs(t, app, "admin"))
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
}

func TestFilmScenario(t *testing.T) {
	app := testApp(t)
	admin := loginAs(t, app, "admin")

	film := `{"titel":"Neu","rating":2,"art":"DVD","studio":"WarnerBros","preis":99.99,"rabatt":0.099,"lieferbar":true,"datum":"2016-02-28","isan":"0-0070-0644-6","genre":["COMEDY"]}`
	resp, body := send(t, app, fiber.MethodPost, "/api/filme", film, admin)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
	assert.Empty(t, body)
	assert.Regexp(t, `/api/filme/[\da-f]{8}-[\da-f]{4}-[\da-f]{4}-[\da-f]{4}-[\da-f]{12}$`, resp.Header.Get(fiber.HeaderLocation))

	dup := strings.Replace(film, `"Neu"`, `"Die nackte Kanone"`, 1)
	dup = strings.Replace(dup, "0-0070-0644-6", "0-0070-9732-8", 1)
	resp, body = send(t, app, fiber.MethodPost, "/api/filme", dup, admin)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body, "Titel")

	pate := strings.Replace(film, `"Neu"`, `"Der Pate"`, 1)
	req := httptest.NewRequest(fiber.MethodPut, "/api/filme/00000000-0000-0000-0000-000000000003", strings.NewReader(pate))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	req.Header.Set(fiber.HeaderIfMatch, `"-1"`)
	req.Header.Set("Cookie", admin)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusPreconditionFailed, resp.StatusCode)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "Versionsnummer")
}

func TestNotAcceptable(t *testing.T) {
	app := testApp(t)
	req := httptest.NewRequest(fiber.MethodPost, "/api/songs", strings.NewReader(neuerSong))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMETextPlain)
	req.Header.Set("Cookie", loginAs(t, app, "admin"))
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotAcceptable, resp.StatusCode)
}

func TestOperationalEndpoints(t *testing.T) {
	app := testApp(t)

	resp, body := send(t, app, fiber.MethodGet, "/health", "", "")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"db":"up","status":"up"}`, body)

	resp, _ = send(t, app, fiber.MethodGet, "/api/songs", "", "")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, body = send(t, app, fiber.MethodGet, "/metrics", "", "")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `route="/api/songs`)

	resp, body = send(t, app, fiber.MethodPost, "/graphql", `{"query":"{ songs(titel: \"Mood\") { titel } }"}`, "")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"data":{"songs":[{"titel":"Mood"}]}}`, body)
}

func TestGraphQLMutationsNeedSession(t *testing.T) {
	app := testApp(t)
	id := models.SongFixtures[0].ID
	deleteSong := `{"query":"mutation { deleteSong(id: \"` + id + `\") }"}`

	resp, body := send(t, app, fiber.MethodPost, "/graphql", deleteSong, "")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"message":"Unauthorized"`)

	resp, _ = send(t, app, fiber.MethodGet, "/api/songs/"+id, "", "")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	_, body = send(t, app, fiber.MethodPost, "/graphql", deleteSong, loginAs(t, app, "adriana"))
	assert.Contains(t, body, `"message":"Forbidden"`)

	_, body = send(t, app, fiber.MethodPost, "/graphql", deleteSong, loginAs(t, app, "admin"))
	assert.JSONEq(t, `{"data":{"deleteSong":true}}`, body)

	resp, _ = send(t, app, fiber.MethodGet, "/api/songs/"+id, "", "")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestBuildStorage(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health := handlers.NewHealthHandler(zerolog.Nop())

	storage, closeStorage, err := buildStorage(ctx, config.Redis{}, zerolog.Nop(), health)
	require.NoError(t, err)
	assert.Nil(t, storage)
	require.NotNil(t, closeStorage)
	closeStorage()

	_, _, err = buildStorage(ctx, config.Redis{Addr: "localhost"}, zerolog.Nop(), health)
	assert.ErrorContains(t, err, "redis addr")

	_, _, err = buildStorage(ctx, config.Redis{Addr: "127.0.0.1:1"}, zerolog.Nop(), health)
	assert.ErrorContains(t, err, "redis ping")
}

func TestMockDriver(t *testing.T) {
	health := handlers.NewHealthHandler(zerolog.Nop())
	films, _, closeDB, err := buildServices(context.Background(), config.DB{Driver: "mock"}, mail.Noop{}, zerolog.Nop(), health)
	require.NoError(t, err)
	defer closeDB()

	v, err := films.Update(context.Background(), "egal", models.FilmFixtures[0].Data, "7")
	require.NoError(t, err)
	assert.Equal(t, 8, v)

	_, _, _, err = buildServices(context.Background(), config.DB{Driver: "mongo"}, mail.Noop{}, zerolog.Nop(), health)
	assert.Error(t, err)
}

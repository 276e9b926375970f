// Package gql serves songs through a GraphQL schema on top of the song
// service. Queries are open; mutations need a session, see
// middleware.LoadSession.
package gql

import (
	"context"
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"
	"github.com/rs/zerolog"

	"katalog/middleware"
	"katalog/models"
	"katalog/service"
)

var (
	errInternal     = errors.New("Interner Fehler")
	errUnauthorized = errors.New("Unauthorized")
	errForbidden    = errors.New("Forbidden")
)

// Resolver binds the schema to a song service.
type Resolver struct {
	songs service.Service[models.Song]
	log   zerolog.Logger
}

func NewResolver(songs service.Service[models.Song], log zerolog.Logger) *Resolver {
	return &Resolver{songs: songs, log: log.With().Str("component", "graphql").Logger()}
}

var songType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Song",
	Fields: graphql.Fields{
		"id":                &graphql.Field{Type: graphql.ID},
		"version":           &graphql.Field{Type: graphql.Int},
		"titel":             &graphql.Field{Type: graphql.String},
		"label":             &graphql.Field{Type: graphql.String},
		"produzent":         &graphql.Field{Type: graphql.String},
		"interpret":         &graphql.Field{Type: graphql.String},
		"lauflaenge":        &graphql.Field{Type: graphql.Float},
		"erscheinungsdatum": &graphql.Field{Type: graphql.String},
	},
})

// songArgs are the input fields shared by createSong and updateSong.
func songArgs(extra graphql.FieldConfigArgument) graphql.FieldConfigArgument {
	args := graphql.FieldConfigArgument{
		"titel":             &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
		"label":             &graphql.ArgumentConfig{Type: graphql.String},
		"produzent":         &graphql.ArgumentConfig{Type: graphql.String},
		"interpret":         &graphql.ArgumentConfig{Type: graphql.String},
		"lauflaenge":        &graphql.ArgumentConfig{Type: graphql.Float},
		"erscheinungsdatum": &graphql.ArgumentConfig{Type: graphql.String},
	}
	for k, v := range extra {
		args[k] = v
	}
	return args
}

// Schema builds the executable schema.
func (r *Resolver) Schema() (graphql.Schema, error) {
	query := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"songs": &graphql.Field{
				Type:    graphql.NewList(songType),
				Args:    graphql.FieldConfigArgument{"titel": &graphql.ArgumentConfig{Type: graphql.String}},
				Resolve: r.findSongs,
			},
			"song": &graphql.Field{
				Type:    songType,
				Args:    graphql.FieldConfigArgument{"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)}},
				Resolve: r.findSong,
			},
		},
	})
	mutation := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"createSong": &graphql.Field{
				Type:    graphql.String,
				Args:    songArgs(nil),
				Resolve: r.createSong,
			},
			"updateSong": &graphql.Field{
				Type: graphql.Int,
				Args: songArgs(graphql.FieldConfigArgument{
					"id":      &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
					"version": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)},
				}),
				Resolve: r.updateSong,
			},
			"deleteSong": &graphql.Field{
				Type:    graphql.Boolean,
				Args:    graphql.FieldConfigArgument{"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)}},
				Resolve: r.deleteSong,
			},
		},
	})
	return graphql.NewSchema(graphql.SchemaConfig{Query: query, Mutation: mutation})
}

func (r *Resolver) findSongs(p graphql.ResolveParams) (interface{}, error) {
	criteria := service.Criteria{}
	if titel, ok := p.Args["titel"].(string); ok {
		criteria["titel"] = titel
	}
	records, err := r.songs.Find(p.Context, criteria)
	if err != nil {
		return nil, r.failure("songs", err)
	}
	result := make([]map[string]interface{}, 0, len(records))
	for _, rec := range records {
		result = append(result, songMap(rec))
	}
	return result, nil
}

func (r *Resolver) findSong(p graphql.ResolveParams) (interface{}, error) {
	id, _ := p.Args["id"].(string)
	rec, err := r.songs.FindByID(p.Context, id)
	if err != nil {
		return nil, r.failure("song", err)
	}
	if rec == nil {
		return nil, nil
	}
	return songMap(*rec), nil
}

func (r *Resolver) createSong(p graphql.ResolveParams) (interface{}, error) {
	if err := r.authorize(p.Context, "createSong", middleware.RoleAdmin, middleware.RoleMitarbeiter); err != nil {
		return nil, err
	}
	id, err := r.songs.Create(p.Context, songFromArgs(p.Args))
	if err != nil {
		return nil, r.failure("createSong", err)
	}
	return id, nil
}

func (r *Resolver) updateSong(p graphql.ResolveParams) (interface{}, error) {
	if err := r.authorize(p.Context, "updateSong", middleware.RoleAdmin, middleware.RoleMitarbeiter); err != nil {
		return nil, err
	}
	id, _ := p.Args["id"].(string)
	version, _ := p.Args["version"].(int)
	newVersion, err := r.songs.Update(p.Context, id, songFromArgs(p.Args), strconv.Itoa(version))
	if err != nil {
		return nil, r.failure("updateSong", err)
	}
	return newVersion, nil
}

func (r *Resolver) deleteSong(p graphql.ResolveParams) (interface{}, error) {
	if err := r.authorize(p.Context, "deleteSong", middleware.RoleAdmin); err != nil {
		return nil, err
	}
	id, _ := p.Args["id"].(string)
	deleted, err := r.songs.Delete(p.Context, id)
	if err != nil {
		return nil, r.failure("deleteSong", err)
	}
	return deleted, nil
}

// authorize checks the user that the session middleware put into ctx.
// Mutations need the same roles as the REST writes.
func (r *Resolver) authorize(ctx context.Context, op string, roles ...string) error {
	username, granted := middleware.UserFrom(ctx)
	if username == "" {
		r.log.Debug().Str("op", op).Msg("anonymous mutation rejected")
		return errUnauthorized
	}
	if !middleware.HasRole(granted, roles...) {
		r.log.Debug().Str("op", op).Str("user", username).Msg("mutation forbidden")
		return errForbidden
	}
	return nil
}

// failure logs the error and turns it into the message the client sees.
// Unexpected errors are not passed on.
func (r *Resolver) failure(op string, err error) error {
	var svcErr service.Error
	if errors.As(err, &svcErr) {
		r.log.Debug().Err(err).Str("op", op).Msg("rejected")
		return errors.New(service.Text(service.SongKind.Name, svcErr))
	}
	r.log.Error().Err(err).Str("op", op).Msg("unexpected failure")
	return errInternal
}

func songFromArgs(args map[string]interface{}) models.Song {
	s := models.Song{}
	s.Titel, _ = args["titel"].(string)
	s.Label, _ = args["label"].(string)
	s.Produzent, _ = args["produzent"].(string)
	s.Interpret, _ = args["interpret"].(string)
	s.Erscheinungsdatum, _ = args["erscheinungsdatum"].(string)
	if l, ok := args["lauflaenge"].(float64); ok {
		s.Lauflaenge = &l
	}
	return s
}

func songMap(rec service.Record[models.Song]) map[string]interface{} {
	m := map[string]interface{}{
		"id":                rec.ID,
		"version":           rec.Version,
		"titel":             rec.Data.Titel,
		"label":             rec.Data.Label,
		"produzent":         rec.Data.Produzent,
		"interpret":         rec.Data.Interpret,
		"erscheinungsdatum": rec.Data.Erscheinungsdatum,
	}
	if rec.Data.Lauflaenge != nil {
		m["lauflaenge"] = *rec.Data.Lauflaenge
	}
	return m
}

type request struct {
	Query         string                 `json:"query"`
	OperationName string                 `json:"operationName"`
	Variables     map[string]interface{} `json:"variables"`
}

// Handler serves POST /graphql.
func Handler(schema graphql.Schema) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req request
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Ungueltiger Request-Body"})
		}
		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.UserContext(),
		})
		return c.JSON(result)
	}
}

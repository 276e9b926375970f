package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"katalog/models"
	"katalog/store"
)

func seeded(t *testing.T) *store.Memory[models.Film] {
	t.Helper()
	m := store.NewMemory[models.Film](store.WithUniqueFields("titel", "isan"))
	docs := make([]store.Document[models.Film], 0, len(models.FilmFixtures))
	for _, f := range models.FilmFixtures {
		docs = append(docs, store.Document[models.Film]{ID: f.ID, Data: f.Data})
	}
	require.NoError(t, m.Reset(context.Background(), docs))
	return m
}

func titles(docs []store.Document[models.Film]) []string {
	out := make([]string, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.Data.Titel)
	}
	return out
}

func TestMemoryFindAllOrderedByTitle(t *testing.T) {
	m := seeded(t)
	docs, err := m.Find(context.Background(), store.Query{})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"Blood Diamond",
		"Der Pate",
		"Die nackte Kanone",
		"Im einem Land vor unserer Zeit",
		"Inside Out",
	}, titles(docs))
}

func TestMemoryFind(t *testing.T) {
	m := seeded(t)
	ctx := context.Background()

	docs, err := m.Find(ctx, store.Query{TitleContains: "KANONE"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Die nackte Kanone"}, titles(docs))

	docs, err = m.Find(ctx, store.Query{Equal: map[string]string{"studio": "ParamountPictures"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"Der Pate", "Die nackte Kanone"}, titles(docs))

	docs, err = m.Find(ctx, store.Query{TagField: "genre", Tags: []string{"ABENTEUER"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"Im einem Land vor unserer Zeit"}, titles(docs))

	docs, err = m.Find(ctx, store.Query{TagField: "genre", Tags: []string{"ABENTEUER", "COMEDY"}})
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestMemoryInsertAndFindByID(t *testing.T) {
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	m := store.NewMemory[models.Film](store.WithClock(func() time.Time { return now }))
	ctx := context.Background()

	id, err := m.Insert(ctx, models.Film{Titel: "Neu"})
	require.NoError(t, err)
	assert.Len(t, id, 36)

	doc, err := m.FindByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, 0, doc.Version)
	assert.Equal(t, now, doc.CreatedAt)
	assert.Equal(t, "Neu", doc.Data.Titel)

	doc, err = m.FindByID(ctx, "kein-uuid")
	require.NoError(t, err)
	assert.Nil(t, doc)
}

func TestMemoryUniqueFields(t *testing.T) {
	m := seeded(t)
	ctx := context.Background()

	_, err := m.Insert(ctx, models.Film{Titel: "Der Pate"})
	var dup *store.DuplicateError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, "titel", dup.Field)

	_, err = m.Insert(ctx, models.Film{Titel: "Anders", Isan: models.FilmFixtures[0].Data.Isan})
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, "isan", dup.Field)

	// empty values are not compared
	_, err = m.Insert(ctx, models.Film{Titel: "Ohne ISAN 1"})
	require.NoError(t, err)
	_, err = m.Insert(ctx, models.Film{Titel: "Ohne ISAN 2"})
	require.NoError(t, err)
}

func TestMemoryReplace(t *testing.T) {
	m := seeded(t)
	ctx := context.Background()
	id := models.FilmFixtures[2].ID
	film := models.FilmFixtures[2].Data
	film.Preis = 1

	v, err := m.Replace(ctx, id, 0, film)
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	_, err = m.Replace(ctx, id, 0, film)
	assert.ErrorIs(t, err, store.ErrVersionConflict)

	_, err = m.Replace(ctx, "00000000-0000-0000-0000-999999999999", 0, film)
	assert.ErrorIs(t, err, store.ErrNotFound)

	// keeping its own title is no conflict, taking another one is
	film.Titel = "Inside Out"
	_, err = m.Replace(ctx, id, 1, film)
	var dup *store.DuplicateError
	assert.True(t, errors.As(err, &dup))

	doc, err := m.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 1, doc.Version)
	assert.Equal(t, 1.0, doc.Data.Preis)
}

func TestMemoryDelete(t *testing.T) {
	m := seeded(t)
	ctx := context.Background()
	id := models.FilmFixtures[0].ID

	deleted, err := m.Delete(ctx, id)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = m.Delete(ctx, id)
	require.NoError(t, err)
	assert.False(t, deleted)

	doc, err := m.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, doc)
}

func TestMemoryDoesNotShareData(t *testing.T) {
	m := store.NewMemory[models.Film]()
	ctx := context.Background()

	genre := []string{"COMEDY"}
	id, err := m.Insert(ctx, models.Film{Titel: "Neu", Genre: genre})
	require.NoError(t, err)
	genre[0] = "DRAMA"

	doc, err := m.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []string{"COMEDY"}, doc.Data.Genre)
	doc.Data.Genre[0] = "HORROR"

	docs, err := m.Find(ctx, store.Query{TagField: "genre", Tags: []string{"COMEDY"}})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, []string{"COMEDY"}, docs[0].Data.Genre)
	docs[0].Data.Genre[0] = "HORROR"

	replaced := models.Film{Titel: "Neu", Genre: []string{"ABENTEUER"}}
	_, err = m.Replace(ctx, id, 0, replaced)
	require.NoError(t, err)
	replaced.Genre[0] = "HORROR"

	doc, err = m.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []string{"ABENTEUER"}, doc.Data.Genre)
}

func TestQueryEmpty(t *testing.T) {
	assert.True(t, store.Query{TagField: "genre"}.Empty())
	assert.False(t, store.Query{TitleContains: "a"}.Empty())
}

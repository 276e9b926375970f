// Package service holds the application core of the catalog: finding,
// creating, updating and deleting films and songs with validation,
// uniqueness checks and optimistic concurrency control.
package service

import (
	"context"
	"sort"
	"unicode/utf8"

	"katalog/models"
	"katalog/store"
)

// MaxTitlePattern bounds the length of a title used as a substring pattern.
// Longer titles are matched exactly.
const MaxTitlePattern = 10

// Record is a record as returned to callers, without bookkeeping timestamps.
type Record[T models.Entity] struct {
	ID      string
	Version int
	Data    T
}

// Criteria are search criteria as received from query strings.
type Criteria map[string]string

// Service is implemented by the store-backed RecordService and by the
// FixtureService used when no database is available.
type Service[T models.Entity] interface {
	// FindByID returns nil when no record has the id.
	FindByID(ctx context.Context, id string) (*Record[T], error)
	Find(ctx context.Context, criteria Criteria) ([]Record[T], error)
	// Create returns the id of the new record.
	Create(ctx context.Context, candidate T) (string, error)
	// Update returns the new version of the record.
	Update(ctx context.Context, id string, candidate T, version string) (int, error)
	// Delete reports whether a record existed and was removed.
	Delete(ctx context.Context, id string) (bool, error)
}

// Kind describes how one record kind is searched and announced.
type Kind struct {
	// Name is used in log lines and notification mails.
	Name string
	// Collection is the store collection of the kind.
	Collection string
	// EqualFields may be used as exact-match criteria.
	EqualFields []string
	// TagField is the tag list field; TagFlags maps a criterion set to
	// "true" onto the tag it requires.
	TagField string
	TagFlags map[string]string
}

var FilmKind = Kind{
	Name:        "Film",
	Collection:  "film",
	EqualFields: []string{"art", "studio", "regisseur", "isan"},
	TagField:    "genre",
	TagFlags:    map[string]string{"comedy": "COMEDY", "abenteuer": "ABENTEUER"},
}

var SongKind = Kind{
	Name:        "Song",
	Collection:  "song",
	EqualFields: []string{"label", "interpret", "produzent"},
}

// Query translates search criteria. Unknown criteria are ignored.
func (k Kind) Query(criteria Criteria) store.Query {
	q := store.Query{TagField: k.TagField}
	for key, value := range criteria {
		if key == "titel" {
			if value == "" {
				continue
			}
			if utf8.RuneCountInString(value) < MaxTitlePattern {
				q.TitleContains = value
			} else {
				q.Equal = setEqual(q.Equal, key, value)
			}
			continue
		}
		if tag, ok := k.TagFlags[key]; ok {
			if value == "true" {
				q.Tags = append(q.Tags, tag)
			}
			continue
		}
		for _, f := range k.EqualFields {
			if f == key {
				q.Equal = setEqual(q.Equal, key, value)
			}
		}
	}
	sort.Strings(q.Tags)
	return q
}

func setEqual(m map[string]string, k, v string) map[string]string {
	if m == nil {
		m = map[string]string{}
	}
	m[k] = v
	return m
}

// Package store is the document store the catalog services persist to.
//
// A collection holds documents of one record kind. Every document carries a
// generated identifier, a version counter and creation/update timestamps next
// to its data.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound is returned when no document has the requested id.
	ErrNotFound = errors.New("document not found")

	// ErrVersionConflict is returned by Replace when the stored version is
	// newer than the expected one.
	ErrVersionConflict = errors.New("document version is newer than expected")
)

// DuplicateError reports a unique field that is already taken.
type DuplicateError struct {
	Field string
	Value string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("duplicate value %q for unique field %s", e.Value, e.Field)
}

// Document is a stored record including its bookkeeping fields.
type Document[T any] struct {
	ID        string
	Version   int
	CreatedAt time.Time
	UpdatedAt time.Time
	Data      T
}

// Query selects documents. The zero Query selects all documents.
// Results are always ordered by title ascending.
type Query struct {
	// TitleContains matches titles containing the text, ignoring case.
	TitleContains string
	// Equal requires top-level fields to equal the given text.
	Equal map[string]string
	// Tags requires the tag list field to contain every listed tag.
	TagField string
	Tags     []string
}

// Empty reports whether the query has no criteria.
func (q Query) Empty() bool {
	return q.TitleContains == "" && len(q.Equal) == 0 && len(q.Tags) == 0
}

// Store is a collection of documents of one kind.
type Store[T any] interface {
	// FindByID returns nil without error when no document has the id,
	// including ids that are not well-formed.
	FindByID(ctx context.Context, id string) (*Document[T], error)
	Find(ctx context.Context, q Query) ([]Document[T], error)
	// Insert stores data as a new document with version 0 and returns its id.
	Insert(ctx context.Context, data T) (string, error)
	// Replace swaps the data of a document and increments its version by one.
	// It fails with ErrVersionConflict when the stored version is greater
	// than expected and with ErrNotFound when the document does not exist.
	Replace(ctx context.Context, id string, expected int, data T) (int, error)
	// Delete reports whether a document was removed.
	Delete(ctx context.Context, id string) (bool, error)
	// Reset drops all documents and loads the given ones with version 0.
	Reset(ctx context.Context, docs []Document[T]) error
	Ping(ctx context.Context) error
}

package service

import (
	"context"
	"fmt"

	"katalog/models"
	"katalog/store"
)

// Populate replaces the content of st with the fixtures.
func Populate[T any](ctx context.Context, st store.Store[T], fixtures []models.Fixture[T]) error {
	docs := make([]store.Document[T], 0, len(fixtures))
	for _, f := range fixtures {
		docs = append(docs, store.Document[T]{ID: f.ID, Data: f.Data})
	}
	if err := st.Reset(ctx, docs); err != nil {
		return fmt.Errorf("populate: %w", err)
	}
	return nil
}

package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"katalog/models"
)

var _ Service[models.Film] = (*FixtureService[models.Film])(nil)

// FixtureService answers from static test data and persists nothing. It
// stands in for RecordService when the application runs without a database.
type FixtureService[T models.Entity] struct {
	fixtures []models.Fixture[T]
	log      zerolog.Logger
}

func NewFixtureService[T models.Entity](fixtures []models.Fixture[T], log zerolog.Logger) *FixtureService[T] {
	return &FixtureService[T]{fixtures: fixtures, log: log}
}

func (s *FixtureService[T]) FindByID(_ context.Context, id string) (*Record[T], error) {
	for _, f := range s.fixtures {
		if f.ID == id {
			return &Record[T]{ID: f.ID, Data: f.Data}, nil
		}
	}
	return nil, nil
}

// Find ignores the criteria and returns all fixtures.
func (s *FixtureService[T]) Find(context.Context, Criteria) ([]Record[T], error) {
	records := make([]Record[T], 0, len(s.fixtures))
	for _, f := range s.fixtures {
		records = append(records, Record[T]{ID: f.ID, Data: f.Data})
	}
	return records, nil
}

func (s *FixtureService[T]) Create(_ context.Context, candidate T) (string, error) {
	id := uuid.NewString()
	s.log.Info().Str("id", id).Interface("record", candidate).Msg("fixture: new record")
	return id, nil
}

func (s *FixtureService[T]) Update(_ context.Context, id string, candidate T, versionStr string) (int, error) {
	version, err := parseVersion(versionStr)
	if err != nil {
		return 0, err
	}
	s.log.Info().Str("id", id).Interface("record", candidate).Msg("fixture: updated record")
	return version + 1, nil
}

func (s *FixtureService[T]) Delete(_ context.Context, id string) (bool, error) {
	s.log.Info().Str("id", id).Msg("fixture: deleted record")
	return true, nil
}

package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"katalog/mail"
	"katalog/models"
	"katalog/store"
)

var _ Service[models.Song] = (*RecordService[models.Song])(nil)

const mailTimeout = 30 * time.Second

// RecordService implements Service on top of a document store.
type RecordService[T models.Entity] struct {
	kind     Kind
	store    store.Store[T]
	notifier mail.Notifier
	log      zerolog.Logger
}

func NewRecordService[T models.Entity](kind Kind, st store.Store[T], notifier mail.Notifier, log zerolog.Logger) *RecordService[T] {
	if notifier == nil {
		notifier = mail.Noop{}
	}
	return &RecordService[T]{
		kind:     kind,
		store:    st,
		notifier: notifier,
		log:      log.With().Str("kind", kind.Name).Logger(),
	}
}

func (s *RecordService[T]) FindByID(ctx context.Context, id string) (*Record[T], error) {
	s.log.Debug().Str("id", id).Msg("findById")

	doc, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, nil
	}
	rec := toRecord(*doc)
	return &rec, nil
}

func (s *RecordService[T]) Find(ctx context.Context, criteria Criteria) ([]Record[T], error) {
	q := s.kind.Query(criteria)
	s.log.Debug().Interface("criteria", criteria).Interface("query", q).Msg("find")

	docs, err := s.store.Find(ctx, q)
	if err != nil {
		return nil, err
	}
	records := make([]Record[T], 0, len(docs))
	for _, d := range docs {
		records = append(records, toRecord(d))
	}
	return records, nil
}

func (s *RecordService[T]) Create(ctx context.Context, candidate T) (string, error) {
	s.log.Debug().Interface("candidate", candidate).Msg("create")

	if msg := candidate.Validate(); msg != nil {
		s.log.Debug().Interface("messages", msg).Msg("create: validation failed")
		return "", &ValidationError{Messages: msg}
	}

	titel := candidate.GetTitel()
	existing, err := s.findIDBy(ctx, "titel", titel)
	if err != nil {
		return "", err
	}
	if existing != "" {
		return "", &TitleExistsError{Titel: titel, ID: existing}
	}

	keys := candidate.UniqueKeys()
	for _, field := range sortedKeys(keys) {
		existing, err := s.findIDBy(ctx, field, keys[field])
		if err != nil {
			return "", err
		}
		if existing != "" {
			return "", &KeyExistsError{Field: field, Value: keys[field], ID: existing}
		}
	}

	id, err := s.store.Insert(ctx, candidate)
	if err != nil {
		return "", s.duplicate(ctx, err, candidate)
	}
	s.log.Debug().Str("id", id).Msg("create: ok")

	s.sendmail(ctx, id, titel)
	return id, nil
}

func (s *RecordService[T]) Update(ctx context.Context, id string, candidate T, versionStr string) (int, error) {
	s.log.Debug().Str("id", id).Str("version", versionStr).Interface("candidate", candidate).Msg("update")

	version, err := parseVersion(versionStr)
	if err != nil {
		s.log.Debug().Err(err).Msg("update: invalid version")
		return 0, err
	}

	if msg := candidate.Validate(); msg != nil {
		return 0, &ValidationError{Messages: msg}
	}

	titel := candidate.GetTitel()
	existing, err := s.findIDBy(ctx, "titel", titel)
	if err != nil {
		return 0, err
	}
	if existing != "" && existing != id {
		return 0, &TitleExistsError{Titel: titel, ID: existing}
	}

	if id == "" {
		return 0, &NotFoundError{}
	}
	current, err := s.store.FindByID(ctx, id)
	if err != nil {
		return 0, err
	}
	if current == nil {
		s.log.Debug().Str("id", id).Msg("update: not found")
		return 0, &NotFoundError{ID: id}
	}
	if version < current.Version {
		s.log.Debug().Int("stored", current.Version).Int("supplied", version).Msg("update: outdated")
		return 0, &VersionOutdatedError{ID: id, Version: version}
	}

	newVersion, err := s.store.Replace(ctx, id, version, candidate)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return 0, &NotFoundError{ID: id}
	case errors.Is(err, store.ErrVersionConflict):
		return 0, &VersionOutdatedError{ID: id, Version: version}
	case err != nil:
		return 0, s.duplicate(ctx, err, candidate)
	}
	s.log.Debug().Int("version", newVersion).Msg("update: ok")
	return newVersion, nil
}

func (s *RecordService[T]) Delete(ctx context.Context, id string) (bool, error) {
	deleted, err := s.store.Delete(ctx, id)
	if err != nil {
		return false, err
	}
	s.log.Debug().Str("id", id).Bool("deleted", deleted).Msg("delete")
	return deleted, nil
}

// findIDBy returns the id of a record whose field equals value, or "".
func (s *RecordService[T]) findIDBy(ctx context.Context, field, value string) (string, error) {
	docs, err := s.store.Find(ctx, store.Query{Equal: map[string]string{field: value}})
	if err != nil {
		return "", err
	}
	if len(docs) == 0 {
		return "", nil
	}
	return docs[0].ID, nil
}

// duplicate maps a unique index violation raised while persisting onto the
// same errors the pre-checks report. Other errors pass through.
func (s *RecordService[T]) duplicate(ctx context.Context, err error, candidate T) error {
	var dup *store.DuplicateError
	if !errors.As(err, &dup) {
		return err
	}
	s.log.Warn().Str("field", dup.Field).Msg("unique index rejected a record that passed the pre-check")

	if dup.Field == "titel" {
		id, _ := s.findIDBy(ctx, "titel", candidate.GetTitel())
		return &TitleExistsError{Titel: candidate.GetTitel(), ID: id}
	}
	value := candidate.UniqueKeys()[dup.Field]
	id, _ := s.findIDBy(ctx, dup.Field, value)
	return &KeyExistsError{Field: dup.Field, Value: value, ID: id}
}

// sendmail runs detached from the request; failures are only logged.
func (s *RecordService[T]) sendmail(ctx context.Context, id, titel string) {
	msg := mail.Message{
		Subject: fmt.Sprintf("Neuer %s %s", s.kind.Name, id),
		HTML:    fmt.Sprintf("Der %s mit dem Titel <strong>%s</strong> ist angelegt", s.kind.Name, html.EscapeString(titel)),
	}
	ctx = context.WithoutCancel(ctx)
	go func() {
		ctx, cancel := context.WithTimeout(ctx, mailTimeout)
		defer cancel()
		if err := s.notifier.Send(ctx, msg); err != nil {
			s.log.Error().Err(err).Str("id", id).Msg("Fehler beim Verschicken der Email")
		}
	}()
}

func parseVersion(s string) (int, error) {
	if s == "" {
		return 0, &VersionInvalidError{Missing: true}
	}
	v, err := strconv.Atoi(s)
	// the version column is a 32 bit integer
	if err != nil || v > math.MaxInt32 || v < math.MinInt32 {
		return 0, &VersionInvalidError{Version: s}
	}
	return v, nil
}

func toRecord[T models.Entity](d store.Document[T]) Record[T] {
	return Record[T]{ID: d.ID, Version: d.Version, Data: d.Data}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

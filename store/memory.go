package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var _ Store[struct{}] = (*Memory[struct{}])(nil)

// memoryEntry keeps the encoded data; every read decodes a fresh copy so
// callers never share slices with the store.
type memoryEntry[T any] struct {
	doc    Document[T]
	raw    []byte
	fields map[string]any
}

func (e *memoryEntry[T]) document() (Document[T], error) {
	doc := e.doc
	if err := json.Unmarshal(e.raw, &doc.Data); err != nil {
		return Document[T]{}, fmt.Errorf("decode document %s: %w", doc.ID, err)
	}
	return doc, nil
}

// Memory is an in-process Store. It enforces the same unique fields as the
// Postgres indexes so both behave alike in tests.
type Memory[T any] struct {
	mu           sync.RWMutex
	entries      map[string]*memoryEntry[T]
	titleField   string
	uniqueFields []string
	now          func() time.Time
}

type MemoryOption func(*memoryOptions)

type memoryOptions struct {
	titleField   string
	uniqueFields []string
	now          func() time.Time
}

// WithTitleField sets the JSON field used for title search and ordering.
func WithTitleField(field string) MemoryOption {
	return func(o *memoryOptions) { o.titleField = field }
}

// WithUniqueFields sets JSON fields whose non-empty values must be unique.
func WithUniqueFields(fields ...string) MemoryOption {
	return func(o *memoryOptions) { o.uniqueFields = fields }
}

// WithClock replaces time.Now for the bookkeeping timestamps.
func WithClock(now func() time.Time) MemoryOption {
	return func(o *memoryOptions) { o.now = now }
}

func NewMemory[T any](opts ...MemoryOption) *Memory[T] {
	o := memoryOptions{titleField: "titel", now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &Memory[T]{
		entries:      make(map[string]*memoryEntry[T]),
		titleField:   o.titleField,
		uniqueFields: o.uniqueFields,
		now:          o.now,
	}
}

func (m *Memory[T]) FindByID(_ context.Context, id string) (*Document[T], error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.entries[id]
	if !ok {
		return nil, nil
	}
	doc, err := e.document()
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (m *Memory[T]) Find(_ context.Context, q Query) ([]Document[T], error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	docs := make([]Document[T], 0, len(m.entries))
	titles := make(map[string]string, len(m.entries))
	for id, e := range m.entries {
		if !m.matches(e.fields, q) {
			continue
		}
		doc, err := e.document()
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
		titles[id] = text(e.fields[m.titleField])
	}
	sort.Slice(docs, func(i, j int) bool {
		return titles[docs[i].ID] < titles[docs[j].ID]
	})
	return docs, nil
}

func (m *Memory[T]) matches(fields map[string]any, q Query) bool {
	if q.TitleContains != "" {
		title := strings.ToLower(text(fields[m.titleField]))
		if !strings.Contains(title, strings.ToLower(q.TitleContains)) {
			return false
		}
	}
	for k, v := range q.Equal {
		if text(fields[k]) != v {
			return false
		}
	}
	if len(q.Tags) > 0 {
		raw, _ := fields[q.TagField].([]any)
		have := make(map[string]bool, len(raw))
		for _, t := range raw {
			have[text(t)] = true
		}
		for _, t := range q.Tags {
			if !have[t] {
				return false
			}
		}
	}
	return true
}

func (m *Memory[T]) Insert(_ context.Context, data T) (string, error) {
	raw, fields, err := toFields(data)
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkUnique("", fields); err != nil {
		return "", err
	}
	now := m.now()
	id := uuid.NewString()
	m.entries[id] = &memoryEntry[T]{
		doc:    Document[T]{ID: id, Version: 0, CreatedAt: now, UpdatedAt: now},
		raw:    raw,
		fields: fields,
	}
	return id, nil
}

func (m *Memory[T]) Replace(_ context.Context, id string, expected int, data T) (int, error) {
	raw, fields, err := toFields(data)
	if err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[id]
	if !ok {
		return 0, ErrNotFound
	}
	if e.doc.Version > expected {
		return 0, ErrVersionConflict
	}
	if err := m.checkUnique(id, fields); err != nil {
		return 0, err
	}
	e.raw = raw
	e.doc.Version++
	e.doc.UpdatedAt = m.now()
	e.fields = fields
	return e.doc.Version, nil
}

func (m *Memory[T]) Delete(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.entries[id]; !ok {
		return false, nil
	}
	delete(m.entries, id)
	return true, nil
}

func (m *Memory[T]) Reset(_ context.Context, docs []Document[T]) error {
	entries := make(map[string]*memoryEntry[T], len(docs))
	now := m.now()
	for _, d := range docs {
		raw, fields, err := toFields(d.Data)
		if err != nil {
			return err
		}
		entries[d.ID] = &memoryEntry[T]{
			doc:    Document[T]{ID: d.ID, CreatedAt: now, UpdatedAt: now},
			raw:    raw,
			fields: fields,
		}
	}

	m.mu.Lock()
	m.entries = entries
	m.mu.Unlock()
	return nil
}

func (m *Memory[T]) Ping(context.Context) error { return nil }

// checkUnique must be called with the write lock held.
func (m *Memory[T]) checkUnique(self string, fields map[string]any) error {
	for _, f := range m.uniqueFields {
		v := text(fields[f])
		if v == "" {
			continue
		}
		for id, e := range m.entries {
			if id != self && text(e.fields[f]) == v {
				return &DuplicateError{Field: f, Value: v}
			}
		}
	}
	return nil
}

// toFields returns the JSON encoding of data and its top-level fields.
func toFields(data any) ([]byte, map[string]any, error) {
	b, err := json.Marshal(data)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal document: %w", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(b, &fields); err != nil {
		return nil, nil, fmt.Errorf("unmarshal document fields: %w", err)
	}
	return b, fields, nil
}

func text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}

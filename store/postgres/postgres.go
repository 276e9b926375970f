// Package postgres stores catalog documents as JSONB rows, one table per
// record kind, using a pgx connection pool.
package postgres

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/jackc/pgx/v4/stdlib"
	"github.com/pressly/goose/v3"

	"katalog/store"
)

var _ store.Store[struct{}] = (*Collection[struct{}])(nil)

const uniqueViolation = "23505"

//go:embed migrations/*.sql
var migrations embed.FS

// Connect opens a connection pool and verifies it with a ping.
func Connect(ctx context.Context, connString string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.Connect(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}

// Migrate applies the embedded goose migrations.
func Migrate(ctx context.Context, connString string) error {
	cfg, err := pgx.ParseConfig(connString)
	if err != nil {
		return fmt.Errorf("parse postgres config: %w", err)
	}
	db := stdlib.OpenDB(*cfg)
	defer func() { _ = db.Close() }()

	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Collection is a store.Store backed by one table with the columns
// id, version, data, created_at and updated_at.
type Collection[T any] struct {
	pool       *pgxpool.Pool
	table      string
	ident      string
	titleField string
}

func NewCollection[T any](pool *pgxpool.Pool, table string) *Collection[T] {
	return &Collection[T]{
		pool:       pool,
		table:      table,
		ident:      pgx.Identifier{table}.Sanitize(),
		titleField: "titel",
	}
}

func (c *Collection[T]) FindByID(ctx context.Context, id string) (*store.Document[T], error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}
	row := c.pool.QueryRow(ctx,
		`SELECT id::text, version, created_at, updated_at, data FROM `+c.ident+` WHERE id = $1`, id)
	doc, err := scanDocument[T](row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find %s by id: %w", c.table, err)
	}
	return doc, nil
}

func (c *Collection[T]) Find(ctx context.Context, q store.Query) ([]store.Document[T], error) {
	where, args := c.where(q)
	sql := `SELECT id::text, version, created_at, updated_at, data FROM ` + c.ident + where +
		` ORDER BY data->>'` + c.titleField + `'`

	rows, err := c.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", c.table, err)
	}
	defer rows.Close()

	docs := []store.Document[T]{}
	for rows.Next() {
		doc, err := scanDocument[T](rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", c.table, err)
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("find %s: %w", c.table, err)
	}
	return docs, nil
}

func (c *Collection[T]) where(q store.Query) (string, []any) {
	var conds []string
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if q.TitleContains != "" {
		conds = append(conds, `data->>'`+c.titleField+`' ILIKE `+arg("%"+escapeLike(q.TitleContains)+"%"))
	}
	keys := make([]string, 0, len(q.Equal))
	for k := range q.Equal {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		conds = append(conds, `data->>`+arg(k)+` = `+arg(q.Equal[k]))
	}
	if len(q.Tags) > 0 {
		tags, _ := json.Marshal(q.Tags)
		conds = append(conds, `data->`+arg(q.TagField)+` @> `+arg(string(tags))+`::jsonb`)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// Insert runs in a transaction so a unique index violation leaves nothing behind.
func (c *Collection[T]) Insert(ctx context.Context, data T) (string, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("marshal %s: %w", c.table, err)
	}
	id := uuid.NewString()

	err = c.pool.BeginFunc(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`INSERT INTO `+c.ident+` (id, version, data, created_at, updated_at) VALUES ($1, 0, $2, now(), now())`,
			id, raw)
		return err
	})
	if err != nil {
		if dup := c.duplicate(err); dup != nil {
			return "", dup
		}
		return "", fmt.Errorf("insert %s: %w", c.table, err)
	}
	return id, nil
}

func (c *Collection[T]) Replace(ctx context.Context, id string, expected int, data T) (int, error) {
	if _, err := uuid.Parse(id); err != nil {
		return 0, store.ErrNotFound
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return 0, fmt.Errorf("marshal %s: %w", c.table, err)
	}

	var version int
	err = c.pool.QueryRow(ctx,
		`UPDATE `+c.ident+` SET data = $2, version = version + 1, updated_at = now()
		 WHERE id = $1 AND version <= $3 RETURNING version`,
		id, raw, expected).Scan(&version)
	if err == nil {
		return version, nil
	}
	if dup := c.duplicate(err); dup != nil {
		return 0, dup
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("replace %s: %w", c.table, err)
	}

	// nothing updated: either gone or a newer version is stored
	var current int
	err = c.pool.QueryRow(ctx, `SELECT version FROM `+c.ident+` WHERE id = $1`, id).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, store.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("replace %s: %w", c.table, err)
	}
	return 0, store.ErrVersionConflict
}

func (c *Collection[T]) Delete(ctx context.Context, id string) (bool, error) {
	if _, err := uuid.Parse(id); err != nil {
		return false, nil
	}
	tag, err := c.pool.Exec(ctx, `DELETE FROM `+c.ident+` WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete %s: %w", c.table, err)
	}
	return tag.RowsAffected() > 0, nil
}

func (c *Collection[T]) Reset(ctx context.Context, docs []store.Document[T]) error {
	return c.pool.BeginFunc(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM `+c.ident); err != nil {
			return fmt.Errorf("reset %s: %w", c.table, err)
		}
		for _, d := range docs {
			raw, err := json.Marshal(d.Data)
			if err != nil {
				return fmt.Errorf("marshal %s: %w", c.table, err)
			}
			if _, err := tx.Exec(ctx,
				`INSERT INTO `+c.ident+` (id, version, data) VALUES ($1, 0, $2)`, d.ID, raw); err != nil {
				return fmt.Errorf("reset %s: %w", c.table, err)
			}
		}
		return nil
	})
}

func (c *Collection[T]) Ping(ctx context.Context) error {
	return c.pool.Ping(ctx)
}

// duplicate translates a unique index violation on <table>_<field>_key.
func (c *Collection[T]) duplicate(err error) *store.DuplicateError {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return nil
	}
	field := strings.TrimSuffix(strings.TrimPrefix(pgErr.ConstraintName, c.table+"_"), "_key")
	return &store.DuplicateError{Field: field}
}

func scanDocument[T any](row pgx.Row) (*store.Document[T], error) {
	var doc store.Document[T]
	var raw []byte
	if err := row.Scan(&doc.ID, &doc.Version, &doc.CreatedAt, &doc.UpdatedAt, &raw); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, &doc.Data); err != nil {
		return nil, fmt.Errorf("unmarshal document: %w", err)
	}
	return &doc, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

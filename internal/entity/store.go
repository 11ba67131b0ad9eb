package entity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tarot-booking/backend/internal/snapshot"
)

// ErrRowNotFound is returned when a targeted update/delete/get matches nothing.
var ErrRowNotFound = errors.New("entity: row not found")

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx, letting the undo engine
// run store writes inside its transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Writer is the contract every watched entity store exposes. The undo engine
// calls exactly these three operations, never bespoke per-entity logic.
type Writer interface {
	Insert(ctx context.Context, entityType string, id uuid.UUID, doc snapshot.Document) error
	UpdateFields(ctx context.Context, entityType string, id uuid.UUID, doc snapshot.Document) error
	Delete(ctx context.Context, entityType string, id uuid.UUID) error
}

// Reader fetches the current state of a row as a snapshot document.
type Reader interface {
	Get(ctx context.Context, entityType string, id uuid.UUID) (snapshot.Document, error)
}

// Store is a generic pgx-backed entity store driven by the registry and the
// snapshot codec. Statements are assembled only from columns that exist in
// the live schema, so stale snapshot fields are dropped instead of producing
// broken SQL.
type Store struct {
	db       DBTX
	registry *Registry
	schema   *SchemaCache
}

func NewStore(pool *pgxpool.Pool, registry *Registry, schema *SchemaCache) *Store {
	return &Store{db: pool, registry: registry, schema: schema}
}

// WithTx returns a store bound to the given transaction. Registry and schema
// cache are shared.
func (s *Store) WithTx(tx pgx.Tx) *Store {
	return &Store{db: tx, registry: s.registry, schema: s.schema}
}

func (s *Store) Registry() *Registry { return s.registry }

// usable intersects a document with the live table shape and guarantees the
// id column carries the given id.
func (s *Store) usable(ctx context.Context, def Definition, id uuid.UUID, doc snapshot.Document) (snapshot.Document, error) {
	cols, err := s.schema.Columns(ctx, def.Table)
	if err != nil {
		return nil, err
	}
	out, err := snapshot.Intersect(doc, cols)
	if err != nil {
		return nil, err
	}
	out[def.IDColumn] = id
	return out, nil
}

func (s *Store) Insert(ctx context.Context, entityType string, id uuid.UUID, doc snapshot.Document) error {
	def, err := s.registry.Lookup(entityType)
	if err != nil {
		return err
	}
	row, err := s.usable(ctx, def, id, doc)
	if err != nil {
		return err
	}

	keys := row.Keys()
	cols := make([]string, 0, len(keys))
	marks := make([]string, 0, len(keys))
	args := make([]any, 0, len(keys))
	for i, k := range keys {
		cols = append(cols, pgx.Identifier{k}.Sanitize())
		marks = append(marks, fmt.Sprintf("$%d", i+1))
		args = append(args, row[k])
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		pgx.Identifier{def.Table}.Sanitize(),
		strings.Join(cols, ", "),
		strings.Join(marks, ", "),
	)
	_, err = s.db.Exec(ctx, query, args...)
	return err
}

func (s *Store) UpdateFields(ctx context.Context, entityType string, id uuid.UUID, doc snapshot.Document) error {
	def, err := s.registry.Lookup(entityType)
	if err != nil {
		return err
	}
	row, err := s.usable(ctx, def, id, doc)
	if err != nil {
		return err
	}
	// The id column identifies the row, it is never part of the SET list.
	delete(row, def.IDColumn)
	if len(row) == 0 {
		return snapshot.ErrSchemaMismatch
	}

	keys := row.Keys()
	sets := make([]string, 0, len(keys))
	args := make([]any, 0, len(keys)+1)
	for i, k := range keys {
		sets = append(sets, fmt.Sprintf("%s = $%d", pgx.Identifier{k}.Sanitize(), i+1))
		args = append(args, row[k])
	}
	args = append(args, id)

	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s = $%d",
		pgx.Identifier{def.Table}.Sanitize(),
		strings.Join(sets, ", "),
		pgx.Identifier{def.IDColumn}.Sanitize(),
		len(args),
	)
	tag, err := s.db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrRowNotFound
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, entityType string, id uuid.UUID) error {
	def, err := s.registry.Lookup(entityType)
	if err != nil {
		return err
	}
	query := fmt.Sprintf("DELETE FROM %s WHERE %s = $1",
		pgx.Identifier{def.Table}.Sanitize(),
		pgx.Identifier{def.IDColumn}.Sanitize(),
	)
	tag, err := s.db.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrRowNotFound
	}
	return nil
}

// Get captures the full current state of a row as a document via to_jsonb, so
// the snapshot always matches what the database actually holds.
func (s *Store) Get(ctx context.Context, entityType string, id uuid.UUID) (snapshot.Document, error) {
	def, err := s.registry.Lookup(entityType)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf("SELECT to_jsonb(t) FROM %s t WHERE %s = $1",
		pgx.Identifier{def.Table}.Sanitize(),
		pgx.Identifier{def.IDColumn}.Sanitize(),
	)
	var raw []byte
	if err := s.db.QueryRow(ctx, query, id).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRowNotFound
		}
		return nil, err
	}
	return snapshot.FromJSON(raw)
}

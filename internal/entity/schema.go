package entity

import (
	"context"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
)

// SchemaCache lazily introspects table columns from information_schema so
// snapshot documents captured under an older schema can be intersected with
// the live shape at undo time.
type SchemaCache struct {
	pool *pgxpool.Pool
	mu   sync.RWMutex
	cols map[string]map[string]struct{}
}

func NewSchemaCache(pool *pgxpool.Pool) *SchemaCache {
	return &SchemaCache{pool: pool, cols: make(map[string]map[string]struct{})}
}

// Columns returns the current column set of a table, cached after first load.
func (c *SchemaCache) Columns(ctx context.Context, table string) (map[string]struct{}, error) {
	c.mu.RLock()
	cols, ok := c.cols[table]
	c.mu.RUnlock()
	if ok {
		return cols, nil
	}

	rows, err := c.pool.Query(ctx, `
		SELECT column_name FROM information_schema.columns
		WHERE table_schema = current_schema() AND table_name = $1
	`, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols = make(map[string]struct{})
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		cols[name] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.cols[table] = cols
	c.mu.Unlock()
	return cols, nil
}

// Invalidate drops a cached table shape (e.g. after running migrations).
func (c *SchemaCache) Invalidate(table string) {
	c.mu.Lock()
	delete(c.cols, table)
	c.mu.Unlock()
}

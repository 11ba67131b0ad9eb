package audit

import (
	"context"

	"github.com/google/uuid"
)

type ctxKey int

const (
	actorKey ctxKey = iota
	bulkKey
)

// WithActor attaches the acting user to the context. The interceptor reads it
// on every write; a context without an actor produces an unaudited write,
// which is the intended behavior for system-initiated maintenance.
func WithActor(ctx context.Context, actorID uuid.UUID) context.Context {
	return context.WithValue(ctx, actorKey, actorID)
}

// ActorFrom extracts the acting user, if any.
func ActorFrom(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(actorKey).(uuid.UUID)
	return id, ok
}

// WithBulkOperation tags subsequent intercepted writes with a bulk correlation
// id so each per-row entry can be traced back to its batch.
func WithBulkOperation(ctx context.Context, bulkID uuid.UUID) context.Context {
	return context.WithValue(ctx, bulkKey, bulkID)
}

// BulkOperationFrom extracts the bulk correlation id, if any.
func BulkOperationFrom(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(bulkKey).(uuid.UUID)
	return id, ok
}

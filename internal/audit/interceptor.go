package audit

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tarot-booking/backend/internal/entity"
	"github.com/tarot-booking/backend/internal/models"
	"github.com/tarot-booking/backend/internal/snapshot"
)

// entityStore is what the interceptor needs from the wrapped store: the three
// write operations plus state capture for snapshots.
type entityStore interface {
	entity.Writer
	entity.Reader
}

// recorder lets tests substitute the audit recorder.
type recorder interface {
	Record(ctx context.Context, in RecordInput) (*models.AuditEntry, error)
}

// Interceptor decorates an entity store so every write is captured as an
// audit entry. Capture is best-effort: no audit failure ever propagates to
// the caller's mutation, and a context without an actor produces a silent,
// unaudited write (system-initiated maintenance).
type Interceptor struct {
	store    entityStore
	recorder recorder
	log      *zap.Logger
}

func NewInterceptor(store entityStore, rec *Recorder, log *zap.Logger) *Interceptor {
	return &Interceptor{store: store, recorder: rec, log: log}
}

var _ entity.Writer = (*Interceptor)(nil)

func (i *Interceptor) Insert(ctx context.Context, entityType string, id uuid.UUID, doc snapshot.Document) error {
	if err := i.store.Insert(ctx, entityType, id, doc); err != nil {
		return err
	}
	actorID, ok := ActorFrom(ctx)
	if !ok {
		return nil
	}

	after, err := i.store.Get(ctx, entityType, id)
	if err != nil {
		i.logCaptureFailure(entityType, id, err)
		return nil
	}
	i.record(ctx, RecordInput{
		ActorID:     actorID,
		ActionKind:  models.ActionCreate,
		EntityType:  entityType,
		AffectedIDs: []uuid.UUID{id},
		After:       after,
	})
	return nil
}

func (i *Interceptor) UpdateFields(ctx context.Context, entityType string, id uuid.UUID, doc snapshot.Document) error {
	// Capture the prior state before touching the row. A failed capture must
	// not block the write, so the error is held until after the update.
	before, beforeErr := i.store.Get(ctx, entityType, id)

	if err := i.store.UpdateFields(ctx, entityType, id, doc); err != nil {
		return err
	}
	actorID, ok := ActorFrom(ctx)
	if !ok {
		return nil
	}
	if beforeErr != nil {
		i.logCaptureFailure(entityType, id, beforeErr)
		return nil
	}

	after, err := i.store.Get(ctx, entityType, id)
	if err != nil {
		i.logCaptureFailure(entityType, id, err)
		return nil
	}
	i.record(ctx, RecordInput{
		ActorID:     actorID,
		ActionKind:  models.ActionUpdate,
		EntityType:  entityType,
		AffectedIDs: []uuid.UUID{id},
		Before:      before,
		After:       after,
	})
	return nil
}

func (i *Interceptor) Delete(ctx context.Context, entityType string, id uuid.UUID) error {
	before, beforeErr := i.store.Get(ctx, entityType, id)

	if err := i.store.Delete(ctx, entityType, id); err != nil {
		return err
	}
	actorID, ok := ActorFrom(ctx)
	if !ok {
		return nil
	}
	if beforeErr != nil {
		// Without a before snapshot the delete cannot be undone; skip rather
		// than store an unusable entry.
		i.logCaptureFailure(entityType, id, beforeErr)
		return nil
	}
	i.record(ctx, RecordInput{
		ActorID:     actorID,
		ActionKind:  models.ActionDelete,
		EntityType:  entityType,
		AffectedIDs: []uuid.UUID{id},
		Before:      before,
	})
	return nil
}

// Get passes through so callers can use the interceptor as their only store
// handle.
func (i *Interceptor) Get(ctx context.Context, entityType string, id uuid.UUID) (snapshot.Document, error) {
	return i.store.Get(ctx, entityType, id)
}

func (i *Interceptor) record(ctx context.Context, in RecordInput) {
	if bulkID, ok := BulkOperationFrom(ctx); ok {
		in.BulkOperationID = &bulkID
	}
	if _, err := i.recorder.Record(ctx, in); err != nil {
		i.log.Warn("audit capture failed",
			zap.String("entity_type", in.EntityType),
			zap.String("action_kind", in.ActionKind),
			zap.Error(err),
		)
	}
}

func (i *Interceptor) logCaptureFailure(entityType string, id uuid.UUID, err error) {
	i.log.Warn("snapshot capture failed, write left unaudited",
		zap.String("entity_type", entityType),
		zap.String("entity_id", id.String()),
		zap.Error(err),
	)
}

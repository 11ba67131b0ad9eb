package audit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/tarot-booking/backend/internal/entity"
	"github.com/tarot-booking/backend/internal/events"
	"github.com/tarot-booking/backend/internal/models"
	"github.com/tarot-booking/backend/internal/repositories"
	"github.com/tarot-booking/backend/internal/snapshot"
)

var (
	// ErrEntryNotFound is returned when the audit entry id is unknown.
	ErrEntryNotFound = repositories.ErrEntryNotFound
	// ErrInverseWrite wraps a store rejection of the reconstructed write.
	ErrInverseWrite = errors.New("inverse write failed")
)

// undoSession is one transactional undo attempt: the entry lock, the inverse
// write and the consumed-mark commit or roll back as a unit.
type undoSession interface {
	GetForUpdate(ctx context.Context, id uuid.UUID) (*models.AuditEntry, error)
	MarkUndone(ctx context.Context, id, actorID uuid.UUID, at time.Time) error
	Insert(ctx context.Context, entityType string, id uuid.UUID, doc snapshot.Document) error
	UpdateFields(ctx context.Context, entityType string, id uuid.UUID, doc snapshot.Document) error
	Delete(ctx context.Context, entityType string, id uuid.UUID) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

type sessionStarter interface {
	Begin(ctx context.Context) (undoSession, error)
}

// feedAppender lets tests substitute the activity feed writer.
type feedAppender interface {
	Append(ctx context.Context, e *models.ActivityFeedEntry) error
}

// pgxSessions starts real undo sessions, one pgx transaction each.
type pgxSessions struct {
	pool      *pgxpool.Pool
	store     *entity.Store
	auditRepo *repositories.AuditRepo
}

func (s *pgxSessions) Begin(ctx context.Context) (undoSession, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &pgxSession{sessions: s, tx: tx, store: s.store.WithTx(tx)}, nil
}

type pgxSession struct {
	sessions *pgxSessions
	tx       pgx.Tx
	store    *entity.Store
}

func (s *pgxSession) GetForUpdate(ctx context.Context, id uuid.UUID) (*models.AuditEntry, error) {
	return s.sessions.auditRepo.GetForUpdate(ctx, s.tx, id)
}

func (s *pgxSession) MarkUndone(ctx context.Context, id, actorID uuid.UUID, at time.Time) error {
	return s.sessions.auditRepo.MarkUndone(ctx, s.tx, id, actorID, at)
}

func (s *pgxSession) Insert(ctx context.Context, entityType string, id uuid.UUID, doc snapshot.Document) error {
	return s.store.Insert(ctx, entityType, id, doc)
}

func (s *pgxSession) UpdateFields(ctx context.Context, entityType string, id uuid.UUID, doc snapshot.Document) error {
	return s.store.UpdateFields(ctx, entityType, id, doc)
}

func (s *pgxSession) Delete(ctx context.Context, entityType string, id uuid.UUID) error {
	return s.store.Delete(ctx, entityType, id)
}

func (s *pgxSession) Commit(ctx context.Context) error   { return s.tx.Commit(ctx) }
func (s *pgxSession) Rollback(ctx context.Context) error { return s.tx.Rollback(ctx) }

// UndoEngine reverses an audited mutation purely from its captured snapshots.
// The inverse write and the consumed-mark run in one transaction: a crash
// between the two can never leave an entry marked undone without the data
// actually reverted, or vice versa.
type UndoEngine struct {
	sessions     sessionStarter
	activityRepo feedAppender
	publisher    events.Publisher
	log          *zap.Logger
}

func NewUndoEngine(
	pool *pgxpool.Pool,
	store *entity.Store,
	auditRepo *repositories.AuditRepo,
	activityRepo *repositories.ActivityRepo,
	publisher events.Publisher,
	log *zap.Logger,
) *UndoEngine {
	return &UndoEngine{
		sessions:     &pgxSessions{pool: pool, store: store, auditRepo: auditRepo},
		activityRepo: activityRepo,
		publisher:    publisher,
		log:          log,
	}
}

// inverse describes the single store call that reverses an entry.
type inverse struct {
	actionKind string // the inverse operation to perform
	targetID   uuid.UUID
	doc        snapshot.Document
}

// planInverse derives the inverse operation from an entry's snapshots:
// create is reversed by delete, update by rewriting the before fields,
// delete by re-inserting the before snapshot.
func planInverse(e *models.AuditEntry) (inverse, error) {
	if len(e.AffectedIDs) == 0 {
		return inverse{}, fmt.Errorf("entry %s has no affected ids", e.ID)
	}
	target := e.PrimaryAffectedID()
	switch e.ActionKind {
	case models.ActionCreate:
		return inverse{actionKind: models.ActionDelete, targetID: target}, nil
	case models.ActionUpdate:
		if e.BeforeSnapshot == nil {
			return inverse{}, fmt.Errorf("update entry %s is missing its before snapshot", e.ID)
		}
		return inverse{actionKind: models.ActionUpdate, targetID: target, doc: e.BeforeSnapshot}, nil
	case models.ActionDelete:
		if e.BeforeSnapshot == nil {
			return inverse{}, fmt.Errorf("delete entry %s is missing its before snapshot", e.ID)
		}
		return inverse{actionKind: models.ActionCreate, targetID: target, doc: e.BeforeSnapshot}, nil
	default:
		return inverse{}, fmt.Errorf("entry %s has unknown action kind %q", e.ID, e.ActionKind)
	}
}

// Undo reverses the mutation captured by the given entry and marks the entry
// consumed. Eligibility failures come back as the distinct sentinels from the
// models package so the caller sees exactly why the undo was refused.
//
// Known limitation, carried over deliberately: update-undo rewrites every
// field captured in the before snapshot, including fields another actor may
// have legitimately changed since capture.
func (e *UndoEngine) Undo(ctx context.Context, entryID, actorID uuid.UUID) (*models.AuditEntry, error) {
	sess, err := e.sessions.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer sess.Rollback(ctx) //nolint:errcheck

	// Row lock serializes racing undo attempts; losers reload the entry with
	// undone_at set and fail the eligibility check.
	entry, err := sess.GetForUpdate(ctx, entryID)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	if err := entry.CheckUndoable(now); err != nil {
		return nil, err
	}

	plan, err := planInverse(entry)
	if err != nil {
		return nil, err
	}

	switch plan.actionKind {
	case models.ActionDelete:
		err = sess.Delete(ctx, entry.EntityType, plan.targetID)
	case models.ActionUpdate:
		err = sess.UpdateFields(ctx, entry.EntityType, plan.targetID, plan.doc)
	case models.ActionCreate:
		err = sess.Insert(ctx, entry.EntityType, plan.targetID, plan.doc)
	}
	if err != nil {
		if errors.Is(err, snapshot.ErrSchemaMismatch) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrInverseWrite, err)
	}

	if err := sess.MarkUndone(ctx, entry.ID, actorID, now); err != nil {
		return nil, err
	}
	if err := sess.Commit(ctx); err != nil {
		return nil, err
	}

	entry.UndoneAt = &now
	entry.UndoneBy = &actorID
	entry.CanUndo = false

	title, priority := UndoSummary(entry.ActionKind, entry.EntityType)
	relatedID := entry.PrimaryAffectedID()
	if feedErr := e.activityRepo.Append(ctx, &models.ActivityFeedEntry{
		ActorID:           actorID,
		ActivityType:      "audit_undo",
		Title:             title,
		Description:       fmt.Sprintf("%s (entry %s)", title, entry.ID),
		RelatedEntityType: entry.EntityType,
		RelatedEntityID:   &relatedID,
		Priority:          priority,
	}); feedErr != nil {
		e.log.Warn("activity feed append failed after undo", zap.Error(feedErr), zap.String("entry_id", entry.ID.String()))
	}

	_ = e.publisher.Publish(ctx, events.StreamAudit, events.Event{
		Type: events.EventAuditUndone,
		Payload: map[string]any{
			"entry_id":    entry.ID.String(),
			"entity_type": entry.EntityType,
			"action_kind": entry.ActionKind,
			"undone_by":   actorID.String(),
		},
	})

	e.log.Info("audit entry undone",
		zap.String("entry_id", entry.ID.String()),
		zap.String("entity_type", entry.EntityType),
		zap.String("action_kind", entry.ActionKind),
		zap.String("undone_by", actorID.String()),
	)
	return entry, nil
}

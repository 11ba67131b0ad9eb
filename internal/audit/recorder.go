package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tarot-booking/backend/internal/events"
	"github.com/tarot-booking/backend/internal/models"
	"github.com/tarot-booking/backend/internal/repositories"
	"github.com/tarot-booking/backend/internal/snapshot"
)

// RecordInput is everything the interceptor hands over per mutation.
type RecordInput struct {
	ActorID         uuid.UUID
	ActionKind      string
	EntityType      string
	AffectedIDs     []uuid.UUID
	Before          snapshot.Document
	After           snapshot.Document
	BulkOperationID *uuid.UUID
}

// Recorder persists one audit entry per intercepted mutation and appends the
// matching activity-feed line. The audit entry is the system of record; the
// feed write and the event publish are best-effort telemetry.
type Recorder struct {
	auditRepo    *repositories.AuditRepo
	activityRepo *repositories.ActivityRepo
	publisher    events.Publisher
	undoWindow   time.Duration
	log          *zap.Logger
}

func NewRecorder(
	auditRepo *repositories.AuditRepo,
	activityRepo *repositories.ActivityRepo,
	publisher events.Publisher,
	undoWindow time.Duration,
	log *zap.Logger,
) *Recorder {
	if undoWindow <= 0 {
		undoWindow = models.DefaultUndoWindow
	}
	return &Recorder{
		auditRepo:    auditRepo,
		activityRepo: activityRepo,
		publisher:    publisher,
		undoWindow:   undoWindow,
		log:          log,
	}
}

func (r *Recorder) Record(ctx context.Context, in RecordInput) (*models.AuditEntry, error) {
	entry := &models.AuditEntry{
		ActorID:         &in.ActorID,
		ActionKind:      in.ActionKind,
		EntityType:      in.EntityType,
		AffectedIDs:     in.AffectedIDs,
		BeforeSnapshot:  in.Before,
		AfterSnapshot:   in.After,
		BulkOperationID: in.BulkOperationID,
		CanUndo:         true,
		ExpiresAt:       time.Now().Add(r.undoWindow),
	}
	if err := entry.Validate(); err != nil {
		return nil, err
	}
	if err := r.auditRepo.Create(ctx, entry); err != nil {
		return nil, err
	}

	title, priority := ActionSummary(in.ActionKind, in.EntityType)
	relatedID := entry.PrimaryAffectedID()
	feedErr := r.activityRepo.Append(ctx, &models.ActivityFeedEntry{
		ActorID:           in.ActorID,
		ActivityType:      "audit_" + in.ActionKind,
		Title:             title,
		Description:       title + " (" + relatedID.String() + ")",
		RelatedEntityType: in.EntityType,
		RelatedEntityID:   &relatedID,
		Priority:          priority,
	})
	if feedErr != nil {
		// The audit entry stays; the feed is telemetry.
		r.log.Warn("activity feed append failed", zap.Error(feedErr), zap.String("entry_id", entry.ID.String()))
	}

	_ = r.publisher.Publish(ctx, events.StreamAudit, events.Event{
		Type: events.EventAuditRecorded,
		Payload: map[string]any{
			"entry_id":    entry.ID.String(),
			"action_kind": in.ActionKind,
			"entity_type": in.EntityType,
		},
	})

	return entry, nil
}

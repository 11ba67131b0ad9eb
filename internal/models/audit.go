package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tarot-booking/backend/internal/snapshot"
)

// Action kinds recorded per intercepted mutation.
const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// Undo eligibility failures. Each condition gets its own sentinel so an admin
// sees exactly why an undo was refused.
var (
	ErrAlreadyUndone = errors.New("audit entry has already been undone")
	ErrExpired       = errors.New("audit entry has expired")
	ErrUndoDisabled  = errors.New("audit entry is not flagged as undoable")
)

// DefaultUndoWindow is how long an entry stays undoable unless configured
// otherwise.
const DefaultUndoWindow = 30 * 24 * time.Hour

// AuditEntry is the system of record for one intercepted mutation. Snapshots
// hold the full before/after state so the undo engine can reverse the write
// without entity-specific code.
type AuditEntry struct {
	ID              uuid.UUID         `json:"id"`
	ActorID         *uuid.UUID        `json:"actor_id,omitempty"` // nil = system-initiated
	ActionKind      string            `json:"action_kind"`
	EntityType      string            `json:"entity_type"`
	AffectedIDs     []uuid.UUID       `json:"affected_ids"`
	BeforeSnapshot  snapshot.Document `json:"before_snapshot,omitempty"`
	AfterSnapshot   snapshot.Document `json:"after_snapshot,omitempty"`
	BulkOperationID *uuid.UUID        `json:"bulk_operation_id,omitempty"`
	CanUndo         bool              `json:"can_undo"`
	UndoneAt        *time.Time        `json:"undone_at,omitempty"`
	UndoneBy        *uuid.UUID        `json:"undone_by,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	ExpiresAt       time.Time         `json:"expires_at"`
}

// Validate enforces the snapshot invariants per action kind:
// create has only an after snapshot, delete only a before, update both.
func (e *AuditEntry) Validate() error {
	if len(e.AffectedIDs) == 0 {
		return fmt.Errorf("audit entry for %s must reference at least one entity id", e.EntityType)
	}
	switch e.ActionKind {
	case ActionCreate:
		if e.BeforeSnapshot != nil || e.AfterSnapshot == nil {
			return fmt.Errorf("create entry must have after snapshot only")
		}
	case ActionUpdate:
		if e.BeforeSnapshot == nil || e.AfterSnapshot == nil {
			return fmt.Errorf("update entry must have both snapshots")
		}
	case ActionDelete:
		if e.BeforeSnapshot == nil || e.AfterSnapshot != nil {
			return fmt.Errorf("delete entry must have before snapshot only")
		}
	default:
		return fmt.Errorf("unknown action kind %q", e.ActionKind)
	}
	return nil
}

// CheckUndoable reports whether the entry may be undone at the given instant.
// Already-undone wins over expiry so racing undo calls observe
// ErrAlreadyUndone rather than a misleading expiry error.
func (e *AuditEntry) CheckUndoable(now time.Time) error {
	if e.UndoneAt != nil {
		return ErrAlreadyUndone
	}
	if !e.CanUndo {
		return ErrUndoDisabled
	}
	if !e.ExpiresAt.After(now) {
		return ErrExpired
	}
	return nil
}

// PrimaryAffectedID is the id used for update/create undo dispatch. Entries
// normally carry exactly one id; multi-row deletes carry more, and delete
// undo re-inserts the full before snapshot regardless.
func (e *AuditEntry) PrimaryAffectedID() uuid.UUID {
	return e.AffectedIDs[0]
}

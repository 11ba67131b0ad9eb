package models

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/tarot-booking/backend/internal/snapshot"
)

func TestAuditEntryValidate(t *testing.T) {
	id := uuid.New()
	doc := snapshot.Document{"status": "pending"}

	tests := []struct {
		name    string
		entry   AuditEntry
		wantErr bool
	}{
		{"create with after only", AuditEntry{ActionKind: ActionCreate, AffectedIDs: []uuid.UUID{id}, AfterSnapshot: doc}, false},
		{"create with before", AuditEntry{ActionKind: ActionCreate, AffectedIDs: []uuid.UUID{id}, BeforeSnapshot: doc, AfterSnapshot: doc}, true},
		{"create without after", AuditEntry{ActionKind: ActionCreate, AffectedIDs: []uuid.UUID{id}}, true},
		{"update with both", AuditEntry{ActionKind: ActionUpdate, AffectedIDs: []uuid.UUID{id}, BeforeSnapshot: doc, AfterSnapshot: doc}, false},
		{"update missing before", AuditEntry{ActionKind: ActionUpdate, AffectedIDs: []uuid.UUID{id}, AfterSnapshot: doc}, true},
		{"update missing after", AuditEntry{ActionKind: ActionUpdate, AffectedIDs: []uuid.UUID{id}, BeforeSnapshot: doc}, true},
		{"delete with before only", AuditEntry{ActionKind: ActionDelete, AffectedIDs: []uuid.UUID{id}, BeforeSnapshot: doc}, false},
		{"delete with after", AuditEntry{ActionKind: ActionDelete, AffectedIDs: []uuid.UUID{id}, BeforeSnapshot: doc, AfterSnapshot: doc}, true},
		{"no affected ids", AuditEntry{ActionKind: ActionCreate, AfterSnapshot: doc}, true},
		{"unknown kind", AuditEntry{ActionKind: "merge", AffectedIDs: []uuid.UUID{id}, AfterSnapshot: doc}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.entry.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestAuditEntryCheckUndoable(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)
	admin := uuid.New()

	tests := []struct {
		name    string
		entry   AuditEntry
		wantErr error
	}{
		{"eligible", AuditEntry{CanUndo: true, ExpiresAt: future}, nil},
		{"already undone", AuditEntry{CanUndo: false, UndoneAt: &past, UndoneBy: &admin, ExpiresAt: future}, ErrAlreadyUndone},
		{"flagged not undoable", AuditEntry{CanUndo: false, ExpiresAt: future}, ErrUndoDisabled},
		{"expired", AuditEntry{CanUndo: true, ExpiresAt: past}, ErrExpired},
		{"expired but undone wins", AuditEntry{CanUndo: false, UndoneAt: &past, ExpiresAt: past}, ErrAlreadyUndone},
		{"expires exactly now", AuditEntry{CanUndo: true, ExpiresAt: now}, ErrExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.entry.CheckUndoable(now)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("CheckUndoable() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestPrimaryAffectedID(t *testing.T) {
	first := uuid.New()
	second := uuid.New()
	e := AuditEntry{AffectedIDs: []uuid.UUID{first, second}}
	if got := e.PrimaryAffectedID(); got != first {
		t.Errorf("PrimaryAffectedID() = %v, want %v", got, first)
	}
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// Bulk operation statuses
const (
	BulkStatusProcessing = "processing"
	BulkStatusCompleted  = "completed"
	BulkStatusFailed     = "failed"
	BulkStatusCancelled  = "cancelled"
)

// ValidBulkTransitions defines the bulk operation state machine. Processing is
// the only non-terminal status.
var ValidBulkTransitions = map[string][]string{
	BulkStatusProcessing: {BulkStatusCompleted, BulkStatusFailed, BulkStatusCancelled},
	BulkStatusCompleted:  {},
	BulkStatusFailed:     {},
	BulkStatusCancelled:  {},
}

func IsValidBulkTransition(from, to string) bool {
	allowed, ok := ValidBulkTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// BulkOperation tracks a batch of related mutations under one correlation id.
// Per-row audit entries carry the bulk id; the batch itself has no single
// undo primitive.
type BulkOperation struct {
	ID                uuid.UUID      `json:"id"`
	ActorID           uuid.UUID      `json:"actor_id"`
	OperationType     string         `json:"operation_type"`
	EntityType        string         `json:"entity_type"`
	TotalRecords      int            `json:"total_records"`
	SuccessfulRecords int            `json:"successful_records"`
	FailedRecords     int            `json:"failed_records"`
	Status            string         `json:"status"`
	ErrorDetails      map[string]any `json:"error_details,omitempty"`
	StartedAt         time.Time      `json:"started_at"`
	CompletedAt       *time.Time     `json:"completed_at,omitempty"`
	CanUndo           bool           `json:"can_undo"`
	UndoneAt          *time.Time     `json:"undone_at,omitempty"`
}

// Open reports whether the operation still accepts item results.
func (b *BulkOperation) Open() bool {
	return b.Status == BulkStatusProcessing
}

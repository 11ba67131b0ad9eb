package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tarot-booking/backend/internal/events"
	"github.com/tarot-booking/backend/internal/models"
	"github.com/tarot-booking/backend/internal/repositories"
)

// bulkStore is what the tracker needs from the bulk repository.
type bulkStore interface {
	Create(ctx context.Context, b *models.BulkOperation) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.BulkOperation, error)
	IncrementCounter(ctx context.Context, id uuid.UUID, succeeded bool) error
	Close(ctx context.Context, id uuid.UUID, status string, details map[string]any, at time.Time) error
	CloseCompleted(ctx context.Context, id uuid.UUID, at time.Time) error
}

// Tracker wraps a batch of mutations with a single correlation record. The
// per-row audit entries the batch produces are tagged via WithBulkOperation;
// the tracker itself only keeps counters and overall status.
type Tracker struct {
	bulkRepo  bulkStore
	publisher events.Publisher
	log       *zap.Logger
}

func NewTracker(bulkRepo *repositories.BulkRepo, publisher events.Publisher, log *zap.Logger) *Tracker {
	return &Tracker{bulkRepo: bulkRepo, publisher: publisher, log: log}
}

func (t *Tracker) Start(ctx context.Context, actorID uuid.UUID, operationType, entityType string, total int) (*models.BulkOperation, error) {
	op := &models.BulkOperation{
		ActorID:       actorID,
		OperationType: operationType,
		EntityType:    entityType,
		TotalRecords:  total,
		Status:        models.BulkStatusProcessing,
		CanUndo:       true,
	}
	if err := t.bulkRepo.Create(ctx, op); err != nil {
		return nil, err
	}

	_ = t.publisher.Publish(ctx, events.StreamAudit, events.Event{
		Type: events.EventBulkStarted,
		Payload: map[string]any{
			"bulk_id":        op.ID.String(),
			"operation_type": operationType,
			"total_records":  total,
		},
	})
	return op, nil
}

// RecordItem counts one batch item. Callers are responsible for calling it
// once per logical item; the tracker does not deduplicate.
func (t *Tracker) RecordItem(ctx context.Context, bulkID uuid.UUID, succeeded bool) error {
	return t.bulkRepo.IncrementCounter(ctx, bulkID, succeeded)
}

// Finish closes the batch as completed. The close derives error_details from
// the counters in the same statement, so items recorded up to the moment the
// row leaves processing are always reflected. A batch only reports
// failed/cancelled when it was aborted as a whole.
func (t *Tracker) Finish(ctx context.Context, bulkID uuid.UUID) (*models.BulkOperation, error) {
	if err := t.bulkRepo.CloseCompleted(ctx, bulkID, time.Now()); err != nil {
		return nil, err
	}
	return t.closed(ctx, bulkID)
}

// Abort closes the batch as failed with the given details.
func (t *Tracker) Abort(ctx context.Context, bulkID uuid.UUID, details map[string]any) (*models.BulkOperation, error) {
	if err := t.bulkRepo.Close(ctx, bulkID, models.BulkStatusFailed, details, time.Now()); err != nil {
		return nil, err
	}
	return t.closed(ctx, bulkID)
}

// Cancel closes the batch as cancelled.
func (t *Tracker) Cancel(ctx context.Context, bulkID uuid.UUID) (*models.BulkOperation, error) {
	if err := t.bulkRepo.Close(ctx, bulkID, models.BulkStatusCancelled, nil, time.Now()); err != nil {
		return nil, err
	}
	return t.closed(ctx, bulkID)
}

func (t *Tracker) Get(ctx context.Context, bulkID uuid.UUID) (*models.BulkOperation, error) {
	return t.bulkRepo.GetByID(ctx, bulkID)
}

func (t *Tracker) closed(ctx context.Context, bulkID uuid.UUID) (*models.BulkOperation, error) {
	op, err := t.bulkRepo.GetByID(ctx, bulkID)
	if err != nil {
		return nil, err
	}
	_ = t.publisher.Publish(ctx, events.StreamAudit, events.Event{
		Type: events.EventBulkClosed,
		Payload: map[string]any{
			"bulk_id":    op.ID.String(),
			"status":     op.Status,
			"successful": op.SuccessfulRecords,
			"failed":     op.FailedRecords,
		},
	})
	return op, nil
}

package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tarot-booking/backend/internal/events"
	"github.com/tarot-booking/backend/internal/models"
	"github.com/tarot-booking/backend/internal/repositories"
)

// fakeBulkRepo mirrors the repository's guarded-update semantics in memory.
// beforeClose, when set, runs inside CloseCompleted before the status flips,
// standing in for a parallel worker whose item lands while the batch closes.
type fakeBulkRepo struct {
	ops         map[uuid.UUID]*models.BulkOperation
	beforeClose func(op *models.BulkOperation)
}

func newFakeBulkRepo() *fakeBulkRepo {
	return &fakeBulkRepo{ops: make(map[uuid.UUID]*models.BulkOperation)}
}

func (f *fakeBulkRepo) Create(_ context.Context, b *models.BulkOperation) error {
	b.ID = uuid.New()
	b.StartedAt = time.Now()
	cp := *b
	f.ops[b.ID] = &cp
	return nil
}

func (f *fakeBulkRepo) GetByID(_ context.Context, id uuid.UUID) (*models.BulkOperation, error) {
	op, ok := f.ops[id]
	if !ok {
		return nil, repositories.ErrBulkNotFound
	}
	cp := *op
	return &cp, nil
}

func (f *fakeBulkRepo) IncrementCounter(_ context.Context, id uuid.UUID, succeeded bool) error {
	op, ok := f.ops[id]
	if !ok {
		return repositories.ErrBulkNotFound
	}
	if !op.Open() {
		return repositories.ErrBulkClosed
	}
	if op.SuccessfulRecords+op.FailedRecords >= op.TotalRecords {
		return repositories.ErrBulkOverflow
	}
	if succeeded {
		op.SuccessfulRecords++
	} else {
		op.FailedRecords++
	}
	return nil
}

func (f *fakeBulkRepo) Close(_ context.Context, id uuid.UUID, status string, details map[string]any, at time.Time) error {
	op, ok := f.ops[id]
	if !ok {
		return repositories.ErrBulkNotFound
	}
	if !op.Open() {
		return repositories.ErrBulkClosed
	}
	op.Status = status
	op.ErrorDetails = details
	op.CompletedAt = &at
	return nil
}

func (f *fakeBulkRepo) CloseCompleted(_ context.Context, id uuid.UUID, at time.Time) error {
	op, ok := f.ops[id]
	if !ok {
		return repositories.ErrBulkNotFound
	}
	if !op.Open() {
		return repositories.ErrBulkClosed
	}
	if f.beforeClose != nil {
		f.beforeClose(op)
	}
	op.Status = models.BulkStatusCompleted
	if op.FailedRecords > 0 {
		op.ErrorDetails = map[string]any{"failed_records": op.FailedRecords}
	}
	op.CompletedAt = &at
	return nil
}

func newTestTracker() (*Tracker, *fakeBulkRepo, *fakePublisher) {
	repo := newFakeBulkRepo()
	pub := &fakePublisher{}
	return &Tracker{bulkRepo: repo, publisher: pub, log: zap.NewNop()}, repo, pub
}

func TestTrackerLifecycle(t *testing.T) {
	tracker, _, pub := newTestTracker()
	ctx := context.Background()

	op, err := tracker.Start(ctx, uuid.New(), "approve_bookings", "bookings", 3)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if op.Status != models.BulkStatusProcessing {
		t.Errorf("Status = %q, want processing", op.Status)
	}

	for _, succeeded := range []bool{true, true, false} {
		if err := tracker.RecordItem(ctx, op.ID, succeeded); err != nil {
			t.Fatalf("RecordItem() error = %v", err)
		}
	}

	closed, err := tracker.Finish(ctx, op.ID)
	if err != nil {
		t.Fatalf("Finish() error = %v", err)
	}
	if closed.Status != models.BulkStatusCompleted {
		t.Errorf("Status = %q, want completed", closed.Status)
	}
	if closed.SuccessfulRecords != 2 || closed.FailedRecords != 1 {
		t.Errorf("counters = %d/%d, want 2/1", closed.SuccessfulRecords, closed.FailedRecords)
	}
	if got := closed.ErrorDetails["failed_records"]; got != 1 {
		t.Errorf("error_details[failed_records] = %v, want 1", got)
	}

	var started, done int
	for _, ev := range pub.events {
		switch ev.Type {
		case events.EventBulkStarted:
			started++
		case events.EventBulkClosed:
			done++
		}
	}
	if started != 1 || done != 1 {
		t.Errorf("published %d started / %d closed events, want 1 each", started, done)
	}
}

func TestTrackerFinishCountsFailuresRecordedAtClose(t *testing.T) {
	tracker, repo, _ := newTestTracker()
	ctx := context.Background()

	op, err := tracker.Start(ctx, uuid.New(), "cancel_bookings", "bookings", 2)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := tracker.RecordItem(ctx, op.ID, true); err != nil {
		t.Fatalf("RecordItem() error = %v", err)
	}

	// A parallel worker's failed item lands while the batch is closing. The
	// close derives its details from the counters, so it must be counted.
	repo.beforeClose = func(o *models.BulkOperation) {
		o.FailedRecords++
	}

	closed, err := tracker.Finish(ctx, op.ID)
	if err != nil {
		t.Fatalf("Finish() error = %v", err)
	}
	if got := closed.ErrorDetails["failed_records"]; got != 1 {
		t.Errorf("error_details[failed_records] = %v, want the close-time failure counted", got)
	}
}

func TestTrackerFinishWithoutFailuresHasNoDetails(t *testing.T) {
	tracker, _, _ := newTestTracker()
	ctx := context.Background()

	op, _ := tracker.Start(ctx, uuid.New(), "approve_bookings", "bookings", 1)
	_ = tracker.RecordItem(ctx, op.ID, true)

	closed, err := tracker.Finish(ctx, op.ID)
	if err != nil {
		t.Fatalf("Finish() error = %v", err)
	}
	if closed.ErrorDetails != nil {
		t.Errorf("ErrorDetails = %v, want nil for a clean batch", closed.ErrorDetails)
	}
}

func TestTrackerFinishTwice(t *testing.T) {
	tracker, _, _ := newTestTracker()
	ctx := context.Background()

	op, _ := tracker.Start(ctx, uuid.New(), "approve_bookings", "bookings", 1)
	if _, err := tracker.Finish(ctx, op.ID); err != nil {
		t.Fatalf("Finish() error = %v", err)
	}
	if _, err := tracker.Finish(ctx, op.ID); !errors.Is(err, repositories.ErrBulkClosed) {
		t.Errorf("second Finish() error = %v, want ErrBulkClosed", err)
	}
}

func TestTrackerCancel(t *testing.T) {
	tracker, _, _ := newTestTracker()
	ctx := context.Background()

	op, _ := tracker.Start(ctx, uuid.New(), "approve_bookings", "bookings", 5)
	closed, err := tracker.Cancel(ctx, op.ID)
	if err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}
	if closed.Status != models.BulkStatusCancelled {
		t.Errorf("Status = %q, want cancelled", closed.Status)
	}
	if err := tracker.RecordItem(ctx, op.ID, true); !errors.Is(err, repositories.ErrBulkClosed) {
		t.Errorf("RecordItem() after cancel: error = %v, want ErrBulkClosed", err)
	}
}

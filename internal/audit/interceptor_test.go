package audit

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tarot-booking/backend/internal/entity"
	"github.com/tarot-booking/backend/internal/models"
	"github.com/tarot-booking/backend/internal/snapshot"
)

// fakeStore is an in-memory entity store for interceptor tests.
type fakeStore struct {
	rows map[string]map[uuid.UUID]snapshot.Document
}

func newFakeStore() *fakeStore {
	return &fakeStore{rows: make(map[string]map[uuid.UUID]snapshot.Document)}
}

func (s *fakeStore) table(entityType string) map[uuid.UUID]snapshot.Document {
	if s.rows[entityType] == nil {
		s.rows[entityType] = make(map[uuid.UUID]snapshot.Document)
	}
	return s.rows[entityType]
}

func (s *fakeStore) Insert(_ context.Context, entityType string, id uuid.UUID, doc snapshot.Document) error {
	s.table(entityType)[id] = doc.Clone()
	return nil
}

func (s *fakeStore) UpdateFields(_ context.Context, entityType string, id uuid.UUID, doc snapshot.Document) error {
	row, ok := s.table(entityType)[id]
	if !ok {
		return entity.ErrRowNotFound
	}
	for k, v := range doc {
		row[k] = v
	}
	return nil
}

func (s *fakeStore) Delete(_ context.Context, entityType string, id uuid.UUID) error {
	if _, ok := s.table(entityType)[id]; !ok {
		return entity.ErrRowNotFound
	}
	delete(s.table(entityType), id)
	return nil
}

func (s *fakeStore) Get(_ context.Context, entityType string, id uuid.UUID) (snapshot.Document, error) {
	row, ok := s.table(entityType)[id]
	if !ok {
		return nil, entity.ErrRowNotFound
	}
	return row.Clone(), nil
}

// fakeRecorder captures Record calls.
type fakeRecorder struct {
	calls []RecordInput
	err   error
}

func (r *fakeRecorder) Record(_ context.Context, in RecordInput) (*models.AuditEntry, error) {
	r.calls = append(r.calls, in)
	if r.err != nil {
		return nil, r.err
	}
	return &models.AuditEntry{}, nil
}

func newTestInterceptor() (*Interceptor, *fakeStore, *fakeRecorder) {
	store := newFakeStore()
	rec := &fakeRecorder{}
	return &Interceptor{store: store, recorder: rec, log: zap.NewNop()}, store, rec
}

func TestInterceptorSkipsAuditWithoutActor(t *testing.T) {
	ic, store, rec := newTestInterceptor()
	id := uuid.New()

	// System-initiated write: no actor in context.
	if err := ic.Insert(context.Background(), "bookings", id, snapshot.Document{"status": "pending"}); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if _, ok := store.rows["bookings"][id]; !ok {
		t.Fatal("mutation should have been applied")
	}
	if len(rec.calls) != 0 {
		t.Errorf("recorder called %d times, want 0", len(rec.calls))
	}
}

func TestInterceptorRecordsCreate(t *testing.T) {
	ic, _, rec := newTestInterceptor()
	actor := uuid.New()
	id := uuid.New()
	ctx := WithActor(context.Background(), actor)

	if err := ic.Insert(ctx, "bookings", id, snapshot.Document{"status": "pending"}); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if len(rec.calls) != 1 {
		t.Fatalf("recorder called %d times, want 1", len(rec.calls))
	}
	call := rec.calls[0]
	if call.ActionKind != models.ActionCreate {
		t.Errorf("ActionKind = %q, want create", call.ActionKind)
	}
	if call.ActorID != actor {
		t.Errorf("ActorID = %v, want %v", call.ActorID, actor)
	}
	if call.Before != nil {
		t.Error("create must not carry a before snapshot")
	}
	if call.After == nil || call.After["status"] != "pending" {
		t.Errorf("After = %v, want captured row state", call.After)
	}
}

func TestInterceptorRecordsUpdateWithPriorState(t *testing.T) {
	ic, _, rec := newTestInterceptor()
	actor := uuid.New()
	id := uuid.New()
	ctx := WithActor(context.Background(), actor)

	if err := ic.Insert(ctx, "bookings", id, snapshot.Document{"status": "pending"}); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if err := ic.UpdateFields(ctx, "bookings", id, snapshot.Document{"status": "confirmed"}); err != nil {
		t.Fatalf("UpdateFields() error = %v", err)
	}

	if len(rec.calls) != 2 {
		t.Fatalf("recorder called %d times, want 2", len(rec.calls))
	}
	call := rec.calls[1]
	if call.ActionKind != models.ActionUpdate {
		t.Errorf("ActionKind = %q, want update", call.ActionKind)
	}
	if call.Before["status"] != "pending" {
		t.Errorf("Before[status] = %v, want pending", call.Before["status"])
	}
	if call.After["status"] != "confirmed" {
		t.Errorf("After[status] = %v, want confirmed", call.After["status"])
	}
}

func TestInterceptorRecordsDeleteWithBeforeSnapshot(t *testing.T) {
	ic, store, rec := newTestInterceptor()
	actor := uuid.New()
	id := uuid.New()
	ctx := WithActor(context.Background(), actor)

	if err := ic.Insert(ctx, "reviews", id, snapshot.Document{"rating": 5}); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if err := ic.Delete(ctx, "reviews", id); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, ok := store.rows["reviews"][id]; ok {
		t.Fatal("row should be gone after delete")
	}

	call := rec.calls[len(rec.calls)-1]
	if call.ActionKind != models.ActionDelete {
		t.Errorf("ActionKind = %q, want delete", call.ActionKind)
	}
	if call.Before == nil {
		t.Fatal("delete must carry the before snapshot")
	}
	if call.After != nil {
		t.Error("delete must not carry an after snapshot")
	}
}

func TestInterceptorSwallowsRecorderFailure(t *testing.T) {
	ic, store, rec := newTestInterceptor()
	rec.err = errors.New("audit store down")
	ctx := WithActor(context.Background(), uuid.New())
	id := uuid.New()

	// The primary mutation must succeed even when audit capture fails.
	if err := ic.Insert(ctx, "bookings", id, snapshot.Document{"status": "pending"}); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if _, ok := store.rows["bookings"][id]; !ok {
		t.Fatal("mutation should have been applied despite recorder failure")
	}
}

func TestInterceptorTagsBulkOperation(t *testing.T) {
	ic, _, rec := newTestInterceptor()
	bulkID := uuid.New()
	ctx := WithActor(context.Background(), uuid.New())
	ctx = WithBulkOperation(ctx, bulkID)

	if err := ic.Insert(ctx, "bookings", uuid.New(), snapshot.Document{"status": "pending"}); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	call := rec.calls[0]
	if call.BulkOperationID == nil || *call.BulkOperationID != bulkID {
		t.Errorf("BulkOperationID = %v, want %v", call.BulkOperationID, bulkID)
	}
}

func TestInterceptorFailedMutationNotAudited(t *testing.T) {
	ic, _, rec := newTestInterceptor()
	ctx := WithActor(context.Background(), uuid.New())

	// Update against a missing row fails and must not be audited.
	err := ic.UpdateFields(ctx, "bookings", uuid.New(), snapshot.Document{"status": "confirmed"})
	if !errors.Is(err, entity.ErrRowNotFound) {
		t.Fatalf("UpdateFields() error = %v, want ErrRowNotFound", err)
	}
	if len(rec.calls) != 0 {
		t.Errorf("recorder called %d times, want 0", len(rec.calls))
	}
}

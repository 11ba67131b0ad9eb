package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tarot-booking/backend/internal/audit"
	"github.com/tarot-booking/backend/internal/models"
	"github.com/tarot-booking/backend/internal/snapshot"
)

// Watched entity type names, matching the entity registry.
const (
	EntityBookings = "bookings"
	EntityReviews  = "reviews"
)

// Service owns booking and review writes. All writes go through the audit
// interceptor, so every create/update/delete is captured with before/after
// snapshots and can be reversed by the undo engine.
type Service struct {
	store *audit.Interceptor
	log   *zap.Logger
}

func NewService(store *audit.Interceptor, log *zap.Logger) *Service {
	return &Service{store: store, log: log}
}

type CreateBookingInput struct {
	ClientID        uuid.UUID
	ReaderName      string
	SpreadType      string
	ScheduledAt     time.Time
	DurationMinutes int
	PriceCents      int64
	Notes           *string
}

func (s *Service) CreateBooking(ctx context.Context, in CreateBookingInput) (*models.Booking, error) {
	if in.ReaderName == "" || in.SpreadType == "" {
		return nil, fmt.Errorf("reader_name and spread_type are required")
	}
	if in.DurationMinutes <= 0 {
		in.DurationMinutes = 30
	}

	now := time.Now()
	b := &models.Booking{
		ID:              uuid.New(),
		ClientID:        in.ClientID,
		ReaderName:      in.ReaderName,
		SpreadType:      in.SpreadType,
		Status:          models.BookingStatusPending,
		ScheduledAt:     in.ScheduledAt,
		DurationMinutes: in.DurationMinutes,
		PriceCents:      in.PriceCents,
		Notes:           in.Notes,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	doc, err := snapshot.Encode(b)
	if err != nil {
		return nil, err
	}
	if err := s.store.Insert(ctx, EntityBookings, b.ID, doc); err != nil {
		return nil, err
	}
	return b, nil
}

type UpdateBookingInput struct {
	ReaderName  *string
	SpreadType  *string
	Status      *string
	ScheduledAt *time.Time
	PriceCents  *int64
	Notes       *string
}

func (s *Service) UpdateBooking(ctx context.Context, id uuid.UUID, in UpdateBookingInput) (*models.Booking, error) {
	fields := snapshot.Document{}
	if in.ReaderName != nil {
		fields["reader_name"] = *in.ReaderName
	}
	if in.SpreadType != nil {
		fields["spread_type"] = *in.SpreadType
	}
	if in.Status != nil {
		fields["status"] = *in.Status
		if *in.Status == models.BookingStatusCancelled {
			fields["cancelled_at"] = time.Now()
		}
	}
	if in.ScheduledAt != nil {
		fields["scheduled_at"] = *in.ScheduledAt
	}
	if in.PriceCents != nil {
		fields["price_cents"] = *in.PriceCents
	}
	if in.Notes != nil {
		fields["notes"] = *in.Notes
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("no fields to update")
	}
	fields["updated_at"] = time.Now()

	if err := s.store.UpdateFields(ctx, EntityBookings, id, fields); err != nil {
		return nil, err
	}
	return s.GetBooking(ctx, id)
}

func (s *Service) DeleteBooking(ctx context.Context, id uuid.UUID) error {
	return s.store.Delete(ctx, EntityBookings, id)
}

func (s *Service) GetBooking(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	doc, err := s.store.Get(ctx, EntityBookings, id)
	if err != nil {
		return nil, err
	}
	var b models.Booking
	if err := doc.DecodeInto(&b); err != nil {
		return nil, err
	}
	return &b, nil
}

type CreateReviewInput struct {
	BookingID uuid.UUID
	AuthorID  uuid.UUID
	Rating    int
	Comment   *string
}

func (s *Service) CreateReview(ctx context.Context, in CreateReviewInput) (*models.Review, error) {
	if in.Rating < 1 || in.Rating > 5 {
		return nil, fmt.Errorf("rating must be between 1 and 5")
	}
	rv := &models.Review{
		ID:        uuid.New(),
		BookingID: in.BookingID,
		AuthorID:  in.AuthorID,
		Rating:    in.Rating,
		Comment:   in.Comment,
		CreatedAt: time.Now(),
	}
	doc, err := snapshot.Encode(rv)
	if err != nil {
		return nil, err
	}
	if err := s.store.Insert(ctx, EntityReviews, rv.ID, doc); err != nil {
		return nil, err
	}
	return rv, nil
}

func (s *Service) DeleteReview(ctx context.Context, id uuid.UUID) error {
	return s.store.Delete(ctx, EntityReviews, id)
}

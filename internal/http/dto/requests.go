package dto

import "time"

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type StartBulkRequest struct {
	OperationType string `json:"operation_type"`
	EntityType    string `json:"entity_type"`
	TotalRecords  int    `json:"total_records"`
}

type RecordBulkItemRequest struct {
	Succeeded bool `json:"succeeded"`
}

type CreateBookingRequest struct {
	ReaderName      string    `json:"reader_name"`
	SpreadType      string    `json:"spread_type"` // celtic_cross / three_card / single_card
	ScheduledAt     time.Time `json:"scheduled_at"`
	DurationMinutes int       `json:"duration_minutes,omitempty"`
	PriceCents      int64     `json:"price_cents"`
	Notes           *string   `json:"notes,omitempty"`
}

type UpdateBookingRequest struct {
	ReaderName  *string    `json:"reader_name,omitempty"`
	SpreadType  *string    `json:"spread_type,omitempty"`
	Status      *string    `json:"status,omitempty"`
	ScheduledAt *time.Time `json:"scheduled_at,omitempty"`
	PriceCents  *int64     `json:"price_cents,omitempty"`
	Notes       *string    `json:"notes,omitempty"`
}

type CreateReviewRequest struct {
	BookingID string  `json:"booking_id"`
	Rating    int     `json:"rating"`
	Comment   *string `json:"comment,omitempty"`
}

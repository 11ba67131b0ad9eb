package events

import "context"

// Stream carrying all audit activity for dashboard consumers.
const StreamAudit = "events:audit"

// Event types
const (
	EventAuditRecorded = "audit_recorded"
	EventAuditUndone   = "audit_undone"
	EventBulkStarted   = "bulk_started"
	EventBulkClosed    = "bulk_closed"
)

type Event struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload"`
}

type Publisher interface {
	Publish(ctx context.Context, stream string, event Event) error
}

type Subscriber interface {
	Subscribe(ctx context.Context, stream string, handler func(Event)) error
}

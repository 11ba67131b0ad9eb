package models

import (
	"time"

	"github.com/google/uuid"
)

// Activity feed priorities
const (
	PriorityLow      = "low"
	PriorityNormal   = "normal"
	PriorityHigh     = "high"
	PriorityCritical = "critical"
)

// ActivityFeedEntry is the human-readable projection of audit activity for
// dashboards. Append-only; the retention sweeper trims it per actor.
type ActivityFeedEntry struct {
	ID                uuid.UUID   `json:"id"`
	ActorID           uuid.UUID   `json:"actor_id"`
	ActivityType      string      `json:"activity_type"`
	Title             string      `json:"title"`
	Description       string      `json:"description"`
	RelatedEntityType string      `json:"related_entity_type"`
	RelatedEntityID   *uuid.UUID  `json:"related_entity_id,omitempty"`
	Priority          string      `json:"priority"`
	ReadBy            []uuid.UUID `json:"read_by,omitempty"`
	CreatedAt         time.Time   `json:"created_at"`
}

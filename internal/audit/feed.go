package audit

import (
	"fmt"
	"strings"

	"github.com/tarot-booking/backend/internal/models"
)

// ActionSummary renders the human-readable feed line for an intercepted
// mutation. Deletes are surfaced at high priority so dashboards flag them.
func ActionSummary(actionKind, entityType string) (title string, priority string) {
	noun := humanizeEntity(entityType)
	switch actionKind {
	case models.ActionCreate:
		return "Created new " + noun, models.PriorityNormal
	case models.ActionUpdate:
		return "Updated " + noun, models.PriorityNormal
	case models.ActionDelete:
		return "Deleted " + noun, models.PriorityHigh
	default:
		return fmt.Sprintf("%s %s", actionKind, noun), models.PriorityNormal
	}
}

// UndoSummary renders the feed line for a completed undo, attributed to the
// undoing admin. Visible only on admin dashboards; the original actor gets no
// notification.
func UndoSummary(actionKind, entityType string) (title string, priority string) {
	return fmt.Sprintf("Reverted %s on %s", actionKind, humanizeEntity(entityType)), models.PriorityNormal
}

// humanizeEntity turns a registered entity type ("bookings", "payment_methods")
// into a readable singular noun ("booking", "payment method").
func humanizeEntity(entityType string) string {
	noun := strings.ReplaceAll(entityType, "_", " ")
	if strings.HasSuffix(noun, "s") && len(noun) > 1 {
		noun = noun[:len(noun)-1]
	}
	return noun
}

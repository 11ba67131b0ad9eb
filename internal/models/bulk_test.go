package models

import "testing"

func TestIsValidBulkTransition(t *testing.T) {
	tests := []struct {
		from     string
		to       string
		expected bool
	}{
		// Happy path
		{BulkStatusProcessing, BulkStatusCompleted, true},
		{BulkStatusProcessing, BulkStatusFailed, true},
		{BulkStatusProcessing, BulkStatusCancelled, true},

		// Terminal statuses never transition
		{BulkStatusCompleted, BulkStatusProcessing, false},
		{BulkStatusCompleted, BulkStatusFailed, false},
		{BulkStatusFailed, BulkStatusCompleted, false},
		{BulkStatusCancelled, BulkStatusProcessing, false},

		// Unknown statuses
		{"nonexistent", BulkStatusCompleted, false},
		{BulkStatusProcessing, "nonexistent", false},
	}

	for _, tt := range tests {
		t.Run(tt.from+"->"+tt.to, func(t *testing.T) {
			result := IsValidBulkTransition(tt.from, tt.to)
			if result != tt.expected {
				t.Errorf("IsValidBulkTransition(%q, %q) = %v, want %v", tt.from, tt.to, result, tt.expected)
			}
		})
	}
}

func TestTerminalBulkStatusesHaveNoTransitions(t *testing.T) {
	terminal := []string{BulkStatusCompleted, BulkStatusFailed, BulkStatusCancelled}
	for _, status := range terminal {
		transitions := ValidBulkTransitions[status]
		if len(transitions) != 0 {
			t.Errorf("terminal status %q should have no transitions, got %v", status, transitions)
		}
	}
}

func TestBulkOperationOpen(t *testing.T) {
	op := BulkOperation{Status: BulkStatusProcessing}
	if !op.Open() {
		t.Error("processing operation should be open")
	}
	for _, status := range []string{BulkStatusCompleted, BulkStatusFailed, BulkStatusCancelled} {
		op.Status = status
		if op.Open() {
			t.Errorf("%s operation should not be open", status)
		}
	}
}

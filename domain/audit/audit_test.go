package audit

import (
	"errors"
	"testing"
)

func TestNewEntry(t *testing.T) {
	t.Parallel()

	entry := NewEntry("cr-1", ActionReviewerApproved, "rev-1", map[string]any{"message": "ship it"})

	if entry.ID == "" {
		t.Error("ID is empty")
	}
	if entry.ChangeRequestID != "cr-1" {
		t.Errorf("ChangeRequestID = %q, want %q", entry.ChangeRequestID, "cr-1")
	}
	if entry.PerformedAt.IsZero() {
		t.Error("PerformedAt is zero")
	}
	if err := entry.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Entry)
		wantErr bool
	}{
		{"valid", func(e *Entry) {}, false},
		{"missing change request id", func(e *Entry) { e.ChangeRequestID = "" }, true},
		{"missing action", func(e *Entry) { e.Action = "" }, true},
		{"missing actor", func(e *Entry) { e.PerformedBy = "" }, true},
		{"missing id", func(e *Entry) { e.ID = "" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			entry := NewEntry("cr-1", ActionCreated, "u1", nil)
			tt.mutate(entry)
			err := entry.Validate()
			if tt.wantErr && !errors.Is(err, ErrInvalidEntry) {
				t.Errorf("Validate() error = %v, want %v", err, ErrInvalidEntry)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Validate() error = %v", err)
			}
		})
	}
}

// Package audit defines the append-only audit trail recorded for every
// state-changing action on a change request.
package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Action identifies what happened to a change request.
type Action string

const (
	ActionCreated          Action = "created"
	ActionSubmitted        Action = "submitted_for_review"
	ActionReviewerAdded    Action = "reviewer_added"
	ActionReviewerApproved Action = "reviewer_approved"
	ActionReviewerDenied   Action = "reviewer_denied"
	ActionApproved         Action = "approved"
	ActionRejected         Action = "rejected"
	ActionPublished        Action = "published"
)

// Entry is one audit record. Details carries action-specific context
// such as the reviewer ID or decision message.
type Entry struct {
	ID              string         `json:"id" bson:"_id"`
	ChangeRequestID string         `json:"changeRequestId" bson:"change_request_id"`
	Action          Action         `json:"action" bson:"action"`
	PerformedBy     string         `json:"performedBy" bson:"performed_by"`
	PerformedAt     time.Time      `json:"performedAt" bson:"performed_at"`
	Details         map[string]any `json:"details,omitempty" bson:"details,omitempty"`
}

// NewEntry creates an audit entry stamped with the current time.
func NewEntry(changeRequestID string, action Action, performedBy string, details map[string]any) *Entry {
	return &Entry{
		ID:              uuid.New().String(),
		ChangeRequestID: changeRequestID,
		Action:          action,
		PerformedBy:     performedBy,
		PerformedAt:     time.Now().UTC(),
		Details:         details,
	}
}

// ErrInvalidEntry indicates the entry is missing required fields.
var ErrInvalidEntry = errors.New("invalid audit entry")

// ErrStoreUnavailable indicates the audit backend could not be reached.
var ErrStoreUnavailable = errors.New("audit store unavailable")

// Validate checks required fields before persistence.
func (e *Entry) Validate() error {
	if e.ID == "" || e.ChangeRequestID == "" || e.Action == "" || e.PerformedBy == "" {
		return ErrInvalidEntry
	}
	return nil
}

// ListFilter narrows List results. Limit defaults to 100 when zero.
type ListFilter struct {
	ChangeRequestID string
	Limit           int
}

// DefaultListLimit bounds audit queries without an explicit limit.
const DefaultListLimit = 100

// Store persists audit entries. Entries are immutable once appended.
type Store interface {
	// Append stores a new entry.
	Append(ctx context.Context, entry *Entry) error

	// List returns entries matching filter, newest first.
	List(ctx context.Context, filter ListFilter) ([]*Entry, error)
}

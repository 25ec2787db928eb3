// Package notification provides the advisory notification contract for
// review workflow events. Delivery is best effort: failures are logged
// by callers and never fail the triggering operation.
package notification

import (
	"context"

	"github.com/rcflow/rcflow/domain/changerequest"
)

// EventType represents the type of notification event.
type EventType string

// Event types for workflow notifications.
const (
	// EventSubmittedForReview fires when a change request enters
	// pending_review.
	EventSubmittedForReview EventType = "change_request.submitted_for_review"

	// EventReviewerAdded fires when a reviewer is assigned.
	EventReviewerAdded EventType = "change_request.reviewer_added"
)

// Event carries the notification payload. ReviewerID is set for
// reviewer events only.
type Event struct {
	Type          EventType
	ChangeRequest *changerequest.ChangeRequest
	ReviewerID    string
}

// Notifier delivers events to an external channel such as Slack.
type Notifier interface {
	// Notify sends a notification event.
	Notify(ctx context.Context, event Event) error
}

// Nop discards all events. Used when no channel is configured.
type Nop struct{}

// Notify implements Notifier.
func (Nop) Notify(context.Context, Event) error { return nil }

var _ Notifier = Nop{}

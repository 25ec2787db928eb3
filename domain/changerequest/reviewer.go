package changerequest

import "time"

// ReviewerStatus is a reviewer's individual decision state.
type ReviewerStatus string

const (
	ReviewerPending  ReviewerStatus = "pending"
	ReviewerApproved ReviewerStatus = "approved"
	ReviewerDenied   ReviewerStatus = "denied"
)

// Reviewer records one assigned reviewer and their decision.
type Reviewer struct {
	UserID     string         `json:"userId" bson:"user_id"`
	Status     ReviewerStatus `json:"status" bson:"status"`
	Message    string         `json:"message,omitempty" bson:"message,omitempty"`
	ReviewedAt *time.Time     `json:"reviewedAt,omitempty" bson:"reviewed_at,omitempty"`
}

// Decided returns true once the reviewer has approved or denied.
func (r Reviewer) Decided() bool {
	return r.Status != ReviewerPending
}

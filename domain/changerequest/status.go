package changerequest

// Status represents the lifecycle state of a change request.
type Status string

const (
	// StatusDraft is the initial state for new change requests.
	StatusDraft Status = "draft"

	// StatusPendingReview indicates the request is awaiting reviewer
	// decisions. It is the only state from which reviewer mutation and
	// publish are possible.
	StatusPendingReview Status = "pending_review"

	// StatusApproved indicates the request was approved through the
	// standalone approve action. Terminal.
	StatusApproved Status = "approved"

	// StatusRejected indicates the request was rejected. Terminal.
	StatusRejected Status = "rejected"

	// StatusPublished indicates the new configuration was written to
	// the live template. Terminal.
	StatusPublished Status = "published"
)

// StatusTransitions defines valid forward transitions. The standalone
// approve/reject actions are reachable straight from draft; publish
// requires pending_review.
var StatusTransitions = map[Status][]Status{
	StatusDraft:         {StatusPendingReview, StatusApproved, StatusRejected},
	StatusPendingReview: {StatusApproved, StatusRejected, StatusPublished},
	StatusApproved:      {},
	StatusRejected:      {},
	StatusPublished:     {},
}

// CanTransitionTo returns true if moving from s to target is valid.
func (s Status) CanTransitionTo(target Status) bool {
	for _, valid := range StatusTransitions[s] {
		if valid == target {
			return true
		}
	}
	return false
}

// IsTerminal returns true if no further transition is possible.
func (s Status) IsTerminal() bool {
	return len(StatusTransitions[s]) == 0
}

// Valid returns true if s is a known status.
func (s Status) Valid() bool {
	_, ok := StatusTransitions[s]
	return ok
}

// Package changerequest defines the change request aggregate and its
// lifecycle rules: submission, reviewer decisions, approval and publish.
package changerequest

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rcflow/rcflow/domain/diff"
	"github.com/rcflow/rcflow/domain/remoteconfig"
)

// ChangeRequest is a proposed configuration change moving through the
// review workflow. Version supports optimistic concurrency: stores
// reject updates whose version does not match the stored value.
type ChangeRequest struct {
	ID          string                 `json:"id" bson:"_id"`
	Title       string                 `json:"title" bson:"title"`
	Description string                 `json:"description,omitempty" bson:"description,omitempty"`
	Env         remoteconfig.Env       `json:"environment" bson:"environment"`
	ProjectID   string                 `json:"projectId,omitempty" bson:"project_id,omitempty"`
	Status      Status                 `json:"status" bson:"status"`
	Base        *remoteconfig.Snapshot `json:"currentConfig" bson:"current_config"`
	Candidate   *remoteconfig.Snapshot `json:"newConfig" bson:"new_config"`
	Diff        diff.Diff              `json:"diff" bson:"diff"`
	Summary     string                 `json:"summary,omitempty" bson:"summary,omitempty"`
	CreatedBy   Principal              `json:"createdBy" bson:"created_by"`
	Reviewers   []Reviewer             `json:"reviewers" bson:"reviewers"`

	ApprovedBy     string     `json:"approvedBy,omitempty" bson:"approved_by,omitempty"`
	ApprovedAt     *time.Time `json:"approvedAt,omitempty" bson:"approved_at,omitempty"`
	RejectedBy     string     `json:"rejectedBy,omitempty" bson:"rejected_by,omitempty"`
	RejectedAt     *time.Time `json:"rejectedAt,omitempty" bson:"rejected_at,omitempty"`
	RejectedReason string     `json:"rejectedReason,omitempty" bson:"rejected_reason,omitempty"`
	PublishedBy    string     `json:"publishedBy,omitempty" bson:"published_by,omitempty"`
	PublishedAt    *time.Time `json:"publishedAt,omitempty" bson:"published_at,omitempty"`

	CreatedAt time.Time `json:"createdAt" bson:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updated_at"`
	Version   int64     `json:"version" bson:"version"`
}

// New creates a draft change request. The diff between base and
// candidate is computed here so that stored diffs always agree with the
// stored snapshots.
func New(title string, env remoteconfig.Env, base, candidate *remoteconfig.Snapshot, createdBy Principal) (*ChangeRequest, error) {
	if strings.TrimSpace(title) == "" {
		return nil, ErrInvalidRequest
	}
	if !env.Valid() {
		return nil, remoteconfig.ErrInvalidEnv
	}
	if base == nil || candidate == nil {
		return nil, ErrInvalidRequest
	}
	if !createdBy.Authenticated() {
		return nil, ErrUnauthenticated
	}

	now := time.Now().UTC()
	return &ChangeRequest{
		ID:        uuid.New().String(),
		Title:     strings.TrimSpace(title),
		Env:       env,
		Status:    StatusDraft,
		Base:      base.Clone(),
		Candidate: candidate.Clone(),
		Diff:      diff.Generate(base, candidate),
		CreatedBy: createdBy,
		Reviewers: []Reviewer{},
		CreatedAt: now,
		UpdatedAt: now,
		Version:   1,
	}, nil
}

// transition moves the request to target, enforcing the transition map.
func (cr *ChangeRequest) transition(target Status) error {
	if !cr.Status.CanTransitionTo(target) {
		return ErrInvalidTransition
	}
	cr.Status = target
	cr.UpdatedAt = time.Now().UTC()
	return nil
}

// SubmitForReview moves a draft into pending_review.
func (cr *ChangeRequest) SubmitForReview() error {
	if cr.Status != StatusDraft {
		return ErrInvalidTransition
	}
	return cr.transition(StatusPendingReview)
}

// AddReviewer assigns a reviewer with a pending decision. The creator
// cannot be assigned, and each user may appear at most once.
func (cr *ChangeRequest) AddReviewer(userID string) error {
	if cr.Status != StatusPendingReview {
		return ErrNotPendingReview
	}
	if userID == "" {
		return ErrInvalidRequest
	}
	if cr.CreatedBy.Is(userID) {
		return ErrCreatorAsReviewer
	}
	for _, r := range cr.Reviewers {
		if r.UserID == userID {
			return ErrDuplicateReviewer
		}
	}
	cr.Reviewers = append(cr.Reviewers, Reviewer{UserID: userID, Status: ReviewerPending})
	cr.UpdatedAt = time.Now().UTC()
	return nil
}

// ReviewerDecision records an approve or deny decision by an assigned
// reviewer. Decisions may be changed while the request stays in
// pending_review; the creator can never record one.
func (cr *ChangeRequest) ReviewerDecision(actor Principal, status ReviewerStatus, message string) error {
	if cr.Status != StatusPendingReview {
		return ErrNotPendingReview
	}
	if status != ReviewerApproved && status != ReviewerDenied {
		return ErrInvalidRequest
	}
	if !actor.Authenticated() {
		return ErrUnauthenticated
	}
	if cr.CreatedBy.Same(actor) {
		return ErrCreatorSelfReview
	}
	for i, r := range cr.Reviewers {
		if actor.Is(r.UserID) {
			now := time.Now().UTC()
			cr.Reviewers[i].Status = status
			cr.Reviewers[i].Message = message
			cr.Reviewers[i].ReviewedAt = &now
			cr.UpdatedAt = now
			return nil
		}
	}
	return ErrNotAReviewer
}

// Approve moves the request to the approved terminal state. The
// creator can never approve their own request.
func (cr *ChangeRequest) Approve(actor Principal) error {
	if !actor.Authenticated() {
		return ErrUnauthenticated
	}
	if cr.CreatedBy.Same(actor) {
		return ErrCreatorSelfApprove
	}
	if err := cr.transition(StatusApproved); err != nil {
		return err
	}
	cr.ApprovedBy = actor.ID()
	at := cr.UpdatedAt
	cr.ApprovedAt = &at
	return nil
}

// Reject moves the request to the rejected terminal state.
func (cr *ChangeRequest) Reject(actor Principal, reason string) error {
	if !actor.Authenticated() {
		return ErrUnauthenticated
	}
	if err := cr.transition(StatusRejected); err != nil {
		return err
	}
	cr.RejectedBy = actor.ID()
	cr.RejectedReason = reason
	at := cr.UpdatedAt
	cr.RejectedAt = &at
	return nil
}

// ApprovedReviewerCount returns how many reviewers have approved.
func (cr *ChangeRequest) ApprovedReviewerCount() int {
	n := 0
	for _, r := range cr.Reviewers {
		if r.Status == ReviewerApproved {
			n++
		}
	}
	return n
}

// CanPublish verifies the publish preconditions for the given actor:
// creator-only, pending_review, and at least one approved reviewer.
func (cr *ChangeRequest) CanPublish(actor Principal) error {
	if !actor.Authenticated() {
		return ErrUnauthenticated
	}
	if !cr.CreatedBy.Same(actor) {
		return ErrNotCreator
	}
	if cr.Status != StatusPendingReview {
		return ErrNotPendingReview
	}
	if cr.ApprovedReviewerCount() == 0 {
		return ErrNoApprovedReviewer
	}
	return nil
}

// MarkPublished moves the request to the published terminal state.
// Callers must have verified CanPublish and completed the upstream
// write first.
func (cr *ChangeRequest) MarkPublished(actor Principal) error {
	if err := cr.transition(StatusPublished); err != nil {
		return err
	}
	cr.PublishedBy = actor.ID()
	at := cr.UpdatedAt
	cr.PublishedAt = &at
	return nil
}

// Clone returns a deep copy of the change request.
func (cr *ChangeRequest) Clone() *ChangeRequest {
	if cr == nil {
		return nil
	}
	cp := *cr
	cp.Base = cr.Base.Clone()
	cp.Candidate = cr.Candidate.Clone()
	cp.Reviewers = make([]Reviewer, len(cr.Reviewers))
	for i, r := range cr.Reviewers {
		cp.Reviewers[i] = r
		if r.ReviewedAt != nil {
			t := *r.ReviewedAt
			cp.Reviewers[i].ReviewedAt = &t
		}
	}
	cp.ApprovedAt = copyTime(cr.ApprovedAt)
	cp.RejectedAt = copyTime(cr.RejectedAt)
	cp.PublishedAt = copyTime(cr.PublishedAt)
	return &cp
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	cp := *t
	return &cp
}

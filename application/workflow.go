// Package application orchestrates the change request workflow:
// creation against the live template, the review lifecycle, audit
// logging, notifications and publishing.
package application

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/rcflow/rcflow/domain/audit"
	"github.com/rcflow/rcflow/domain/changerequest"
	"github.com/rcflow/rcflow/domain/notification"
	"github.com/rcflow/rcflow/domain/remoteconfig"
	"github.com/rcflow/rcflow/domain/summary"
	"github.com/rcflow/rcflow/infrastructure/logging"
)

// Workflow coordinates change request operations across storage, the
// live template backend, summary generation and notifications.
//
// Audit logging is a required effect: if an audit append fails after a
// state change, the state change is rolled back and the operation
// fails. Notifications are advisory: failures are logged and swallowed.
type Workflow struct {
	requests  changerequest.Store
	auditLog  audit.Store
	source    remoteconfig.Source
	publisher remoteconfig.Publisher

	summarizer      summary.Generator
	notifier        notification.Notifier
	tracer          trace.Tracer
	upstreamTimeout time.Duration
}

// NewWorkflow creates a workflow service. Summary generation defaults
// to the deterministic fallback and notifications default to a no-op.
func NewWorkflow(
	requests changerequest.Store,
	auditLog audit.Store,
	source remoteconfig.Source,
	publisher remoteconfig.Publisher,
	opts ...Option,
) *Workflow {
	w := &Workflow{
		requests:        requests,
		auditLog:        auditLog,
		source:          source,
		publisher:       publisher,
		summarizer:      summary.FallbackGenerator{},
		notifier:        notification.Nop{},
		tracer:          otel.Tracer("rcflow/workflow"),
		upstreamTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// CreateInput carries the fields for a new change request.
type CreateInput struct {
	Title       string
	Description string
	Env         remoteconfig.Env
	ProjectID   string
	Parameters  []remoteconfig.Parameter
	Conditions  []remoteconfig.Condition
	Actor       changerequest.Principal
}

// Create fetches the live snapshot for the environment, diffs the
// proposed configuration against it and stores a draft change request.
func (w *Workflow) Create(ctx context.Context, in CreateInput) (*changerequest.ChangeRequest, error) {
	ctx, span := w.tracer.Start(ctx, "workflow.create")
	defer span.End()

	base, err := w.liveSnapshot(ctx, in.Env)
	if err != nil {
		return nil, w.fail(span, err)
	}

	candidate := remoteconfig.NewSnapshot(in.Parameters, in.Conditions, in.Actor.ID())
	cr, err := changerequest.New(in.Title, in.Env, base, candidate, in.Actor)
	if err != nil {
		return nil, w.fail(span, err)
	}
	cr.Description = strings.TrimSpace(in.Description)
	cr.ProjectID = strings.TrimSpace(in.ProjectID)

	if err := w.requests.Save(ctx, cr); err != nil {
		return nil, w.fail(span, fmt.Errorf("failed to save change request: %w", err))
	}

	if err := w.appendAudit(ctx, cr, audit.ActionCreated, in.Actor, nil); err != nil {
		// Audit is required: undo the save so no unaudited request
		// remains.
		if delErr := w.requests.Delete(ctx, cr.ID); delErr != nil {
			logging.Error().
				Add(logging.ChangeRequestID(cr.ID)).
				Add(logging.ErrorField(delErr)).
				Msg("failed to roll back change request after audit failure")
		}
		return nil, w.fail(span, err)
	}

	logging.Info().
		Add(logging.ChangeRequestID(cr.ID)).
		Add(logging.Env(cr.Env)).
		Add(logging.Actor(in.Actor.ID())).
		Msg("change request created")
	return cr, nil
}

// Get returns a change request by ID.
func (w *Workflow) Get(ctx context.Context, id string) (*changerequest.ChangeRequest, error) {
	return w.requests.Get(ctx, id)
}

// List returns change requests matching the filter, newest first.
func (w *Workflow) List(ctx context.Context, filter changerequest.ListFilter) ([]*changerequest.ChangeRequest, error) {
	return w.requests.List(ctx, filter)
}

// Submit moves a draft into pending_review, attaches a summary and
// fires a best-effort notification. Summary generation never blocks
// submission: on any failure the deterministic fallback is used.
func (w *Workflow) Submit(ctx context.Context, id string, actor changerequest.Principal) (*changerequest.ChangeRequest, error) {
	ctx, span := w.tracer.Start(ctx, "workflow.submit")
	defer span.End()

	cr, err := w.requests.Get(ctx, id)
	if err != nil {
		return nil, w.fail(span, err)
	}
	prev := cr.Clone()

	if err := cr.SubmitForReview(); err != nil {
		return nil, w.fail(span, err)
	}
	cr.Summary = w.generateSummary(ctx, cr)

	if err := w.commit(ctx, cr, prev, audit.ActionSubmitted, actor, nil); err != nil {
		return nil, w.fail(span, err)
	}

	w.notify(ctx, notification.Event{
		Type:          notification.EventSubmittedForReview,
		ChangeRequest: cr,
	})

	logging.Info().
		Add(logging.ChangeRequestID(cr.ID)).
		Add(logging.FromStatus(changerequest.StatusDraft)).
		Add(logging.ToStatus(cr.Status)).
		Msg("change request submitted for review")
	return cr, nil
}

// AddReviewer assigns a reviewer and fires a best-effort notification.
func (w *Workflow) AddReviewer(ctx context.Context, id string, actor changerequest.Principal, userID string) (*changerequest.ChangeRequest, error) {
	ctx, span := w.tracer.Start(ctx, "workflow.add_reviewer")
	defer span.End()

	cr, err := w.requests.Get(ctx, id)
	if err != nil {
		return nil, w.fail(span, err)
	}
	prev := cr.Clone()

	if err := cr.AddReviewer(userID); err != nil {
		return nil, w.fail(span, err)
	}

	details := map[string]any{"reviewerId": userID}
	if err := w.commit(ctx, cr, prev, audit.ActionReviewerAdded, actor, details); err != nil {
		return nil, w.fail(span, err)
	}

	w.notify(ctx, notification.Event{
		Type:          notification.EventReviewerAdded,
		ChangeRequest: cr,
		ReviewerID:    userID,
	})
	return cr, nil
}

// ReviewerApprove records an approval by an assigned reviewer.
func (w *Workflow) ReviewerApprove(ctx context.Context, id string, actor changerequest.Principal, message string) (*changerequest.ChangeRequest, error) {
	return w.reviewerDecision(ctx, id, actor, changerequest.ReviewerApproved, message)
}

// ReviewerDeny records a denial by an assigned reviewer.
func (w *Workflow) ReviewerDeny(ctx context.Context, id string, actor changerequest.Principal, message string) (*changerequest.ChangeRequest, error) {
	return w.reviewerDecision(ctx, id, actor, changerequest.ReviewerDenied, message)
}

func (w *Workflow) reviewerDecision(ctx context.Context, id string, actor changerequest.Principal, status changerequest.ReviewerStatus, message string) (*changerequest.ChangeRequest, error) {
	ctx, span := w.tracer.Start(ctx, "workflow.reviewer_decision")
	defer span.End()

	cr, err := w.requests.Get(ctx, id)
	if err != nil {
		return nil, w.fail(span, err)
	}
	prev := cr.Clone()

	if err := cr.ReviewerDecision(actor, status, message); err != nil {
		return nil, w.fail(span, err)
	}

	action := audit.ActionReviewerApproved
	if status == changerequest.ReviewerDenied {
		action = audit.ActionReviewerDenied
	}
	details := map[string]any{}
	if message != "" {
		details["message"] = message
	}
	if err := w.commit(ctx, cr, prev, action, actor, details); err != nil {
		return nil, w.fail(span, err)
	}
	return cr, nil
}

// Approve moves the request to the approved terminal state.
func (w *Workflow) Approve(ctx context.Context, id string, actor changerequest.Principal) (*changerequest.ChangeRequest, error) {
	ctx, span := w.tracer.Start(ctx, "workflow.approve")
	defer span.End()

	cr, err := w.requests.Get(ctx, id)
	if err != nil {
		return nil, w.fail(span, err)
	}
	prev := cr.Clone()

	if err := cr.Approve(actor); err != nil {
		return nil, w.fail(span, err)
	}
	if err := w.commit(ctx, cr, prev, audit.ActionApproved, actor, nil); err != nil {
		return nil, w.fail(span, err)
	}
	return cr, nil
}

// Reject moves the request to the rejected terminal state.
func (w *Workflow) Reject(ctx context.Context, id string, actor changerequest.Principal, reason string) (*changerequest.ChangeRequest, error) {
	ctx, span := w.tracer.Start(ctx, "workflow.reject")
	defer span.End()

	cr, err := w.requests.Get(ctx, id)
	if err != nil {
		return nil, w.fail(span, err)
	}
	prev := cr.Clone()

	if err := cr.Reject(actor, reason); err != nil {
		return nil, w.fail(span, err)
	}
	details := map[string]any{}
	if reason != "" {
		details["reason"] = reason
	}
	if err := w.commit(ctx, cr, prev, audit.ActionRejected, actor, details); err != nil {
		return nil, w.fail(span, err)
	}
	return cr, nil
}

// Publish writes the candidate snapshot to the live template and moves
// the request to published. The upstream write happens before the
// status change: a failed publish leaves the request in pending_review.
func (w *Workflow) Publish(ctx context.Context, id string, actor changerequest.Principal) (*changerequest.ChangeRequest, error) {
	ctx, span := w.tracer.Start(ctx, "workflow.publish")
	defer span.End()

	cr, err := w.requests.Get(ctx, id)
	if err != nil {
		return nil, w.fail(span, err)
	}
	prev := cr.Clone()

	if err := cr.CanPublish(actor); err != nil {
		return nil, w.fail(span, err)
	}

	publishCtx, cancel := context.WithTimeout(ctx, w.upstreamTimeout)
	defer cancel()
	if err := w.publisher.Publish(publishCtx, cr.Env, cr.Candidate); err != nil {
		return nil, w.fail(span, fmt.Errorf("%w: %w", remoteconfig.ErrPublishFailed, err))
	}

	if err := cr.MarkPublished(actor); err != nil {
		return nil, w.fail(span, err)
	}
	if err := w.commit(ctx, cr, prev, audit.ActionPublished, actor, nil); err != nil {
		return nil, w.fail(span, err)
	}

	logging.Info().
		Add(logging.ChangeRequestID(cr.ID)).
		Add(logging.Env(cr.Env)).
		Add(logging.Actor(actor.ID())).
		Msg("change request published")
	return cr, nil
}

// LiveSnapshot returns the current live template for an environment.
func (w *Workflow) LiveSnapshot(ctx context.Context, env remoteconfig.Env) (*remoteconfig.Snapshot, error) {
	ctx, span := w.tracer.Start(ctx, "workflow.live_snapshot")
	defer span.End()

	snap, err := w.liveSnapshot(ctx, env)
	if err != nil {
		return nil, w.fail(span, err)
	}
	return snap, nil
}

// AuditTrail returns audit entries, newest first.
func (w *Workflow) AuditTrail(ctx context.Context, filter audit.ListFilter) ([]*audit.Entry, error) {
	return w.auditLog.List(ctx, filter)
}

func (w *Workflow) liveSnapshot(ctx context.Context, env remoteconfig.Env) (*remoteconfig.Snapshot, error) {
	if !env.Valid() {
		return nil, remoteconfig.ErrInvalidEnv
	}
	ctx, cancel := context.WithTimeout(ctx, w.upstreamTimeout)
	defer cancel()

	snap, err := w.source.Snapshot(ctx, env)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", remoteconfig.ErrSourceUnavailable, err)
	}
	return snap, nil
}

// commit updates the change request and appends the audit entry. When
// the audit append fails the previous state is written back so the
// store never holds an unaudited transition.
func (w *Workflow) commit(ctx context.Context, cr, prev *changerequest.ChangeRequest, action audit.Action, actor changerequest.Principal, details map[string]any) error {
	if err := w.requests.Update(ctx, cr); err != nil {
		return err
	}
	if err := w.appendAudit(ctx, cr, action, actor, details); err != nil {
		w.revert(ctx, cr, prev)
		return err
	}
	return nil
}

func (w *Workflow) appendAudit(ctx context.Context, cr *changerequest.ChangeRequest, action audit.Action, actor changerequest.Principal, details map[string]any) error {
	entry := audit.NewEntry(cr.ID, action, actor.ID(), details)
	if err := w.auditLog.Append(ctx, entry); err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	return nil
}

// revert writes prev's fields back under cr's current version. Best
// effort: a failed revert is logged, not returned.
func (w *Workflow) revert(ctx context.Context, cr, prev *changerequest.ChangeRequest) {
	restored := prev.Clone()
	restored.Version = cr.Version
	if err := w.requests.Update(ctx, restored); err != nil {
		logging.Error().
			Add(logging.ChangeRequestID(cr.ID)).
			Add(logging.ErrorField(err)).
			Msg("failed to roll back change request after audit failure")
		return
	}
	*cr = *restored
}

// generateSummary produces the summary attached on submit. The
// deterministic fallback guarantees a non-empty result even when the
// configured generator fails.
func (w *Workflow) generateSummary(ctx context.Context, cr *changerequest.ChangeRequest) string {
	ctx, cancel := context.WithTimeout(ctx, w.upstreamTimeout)
	defer cancel()

	text, err := w.summarizer.Generate(ctx, cr)
	if err != nil || strings.TrimSpace(text) == "" {
		if err != nil {
			logging.Warn().
				Add(logging.ChangeRequestID(cr.ID)).
				Add(logging.ErrorField(err)).
				Msg("summary generation failed, using fallback")
		}
		return summary.Fallback(cr)
	}
	return text
}

// notify delivers an event, swallowing failures.
func (w *Workflow) notify(ctx context.Context, event notification.Event) {
	ctx, cancel := context.WithTimeout(ctx, w.upstreamTimeout)
	defer cancel()

	if err := w.notifier.Notify(ctx, event); err != nil {
		logging.Warn().
			Add(logging.ChangeRequestID(event.ChangeRequest.ID)).
			Add(logging.Str("event", string(event.Type))).
			Add(logging.ErrorField(err)).
			Msg("notification delivery failed")
	}
}

func (w *Workflow) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

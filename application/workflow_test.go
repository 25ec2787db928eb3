package application

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rcflow/rcflow/domain/audit"
	"github.com/rcflow/rcflow/domain/changerequest"
	"github.com/rcflow/rcflow/domain/notification"
	"github.com/rcflow/rcflow/domain/remoteconfig"
	"github.com/rcflow/rcflow/infrastructure/storage/memory"
)

type fakeSource struct {
	snapshot *remoteconfig.Snapshot
	err      error
}

func (f *fakeSource) Snapshot(ctx context.Context, env remoteconfig.Env) (*remoteconfig.Snapshot, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.snapshot.Clone(), nil
}

type fakePublisher struct {
	published []*remoteconfig.Snapshot
	err       error
}

func (f *fakePublisher) Publish(ctx context.Context, env remoteconfig.Env, snapshot *remoteconfig.Snapshot) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, snapshot)
	return nil
}

type fakeGenerator struct {
	text string
	err  error
}

func (f *fakeGenerator) Generate(ctx context.Context, cr *changerequest.ChangeRequest) (string, error) {
	return f.text, f.err
}

type fakeNotifier struct {
	events []notification.Event
	err    error
}

func (f *fakeNotifier) Notify(ctx context.Context, event notification.Event) error {
	f.events = append(f.events, event)
	return f.err
}

// failingAuditStore rejects appends after a given count.
type failingAuditStore struct {
	inner     *memory.AuditStore
	failAfter int
	appended  int
}

func (f *failingAuditStore) Append(ctx context.Context, entry *audit.Entry) error {
	if f.appended >= f.failAfter {
		return errors.New("audit backend down")
	}
	f.appended++
	return f.inner.Append(ctx, entry)
}

func (f *failingAuditStore) List(ctx context.Context, filter audit.ListFilter) ([]*audit.Entry, error) {
	return f.inner.List(ctx, filter)
}

type fixture struct {
	workflow  *Workflow
	requests  *memory.ChangeRequestStore
	auditLog  *memory.AuditStore
	publisher *fakePublisher
	notifier  *fakeNotifier
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()

	one := "1"
	base := remoteconfig.NewSnapshot([]remoteconfig.Parameter{{Key: "x", DefaultValue: &one}}, nil, "system")

	requests := memory.NewChangeRequestStore()
	auditLog := memory.NewAuditStore()
	publisher := &fakePublisher{}
	notifier := &fakeNotifier{}

	opts = append([]Option{WithNotifier(notifier)}, opts...)
	w := NewWorkflow(requests, auditLog, &fakeSource{snapshot: base}, publisher, opts...)

	return &fixture{
		workflow:  w,
		requests:  requests,
		auditLog:  auditLog,
		publisher: publisher,
		notifier:  notifier,
	}
}

var (
	creator  = changerequest.Principal{UID: "u-creator", Email: "creator@example.com"}
	reviewer = changerequest.Principal{UID: "rev-1", Email: "rev1@example.com"}
)

func createInput() CreateInput {
	two := "2"
	return CreateInput{
		Title:      "Raise x",
		Env:        remoteconfig.EnvProd,
		Parameters: []remoteconfig.Parameter{{Key: "x", DefaultValue: &two}},
		Actor:      creator,
	}
}

func mustCreate(t *testing.T, f *fixture) *changerequest.ChangeRequest {
	t.Helper()
	cr, err := f.workflow.Create(context.Background(), createInput())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return cr
}

func mustSubmit(t *testing.T, f *fixture, id string) *changerequest.ChangeRequest {
	t.Helper()
	cr, err := f.workflow.Submit(context.Background(), id, creator)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	return cr
}

func lastAuditAction(t *testing.T, f *fixture, id string) audit.Action {
	t.Helper()
	entries, err := f.workflow.AuditTrail(context.Background(), audit.ListFilter{ChangeRequestID: id})
	if err != nil {
		t.Fatalf("AuditTrail() error = %v", err)
	}
	if len(entries) == 0 {
		t.Fatal("no audit entries")
	}
	return entries[0].Action
}

func TestCreate(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	cr := mustCreate(t, f)

	if cr.Status != changerequest.StatusDraft {
		t.Errorf("Status = %v, want %v", cr.Status, changerequest.StatusDraft)
	}
	if len(cr.Diff.UpdatedParams) != 1 {
		t.Errorf("UpdatedParams = %d, want 1 (x changed)", len(cr.Diff.UpdatedParams))
	}
	if got := lastAuditAction(t, f, cr.ID); got != audit.ActionCreated {
		t.Errorf("audit action = %s, want %s", got, audit.ActionCreated)
	}
}

func TestCreateSourceUnavailable(t *testing.T) {
	t.Parallel()

	requests := memory.NewChangeRequestStore()
	w := NewWorkflow(requests, memory.NewAuditStore(), &fakeSource{err: errors.New("upstream 500")}, &fakePublisher{})

	_, err := w.Create(context.Background(), createInput())
	if !errors.Is(err, remoteconfig.ErrSourceUnavailable) {
		t.Errorf("Create() error = %v, want %v", err, remoteconfig.ErrSourceUnavailable)
	}
}

func TestCreateAuditFailureRollsBack(t *testing.T) {
	t.Parallel()

	requests := memory.NewChangeRequestStore()
	auditLog := &failingAuditStore{inner: memory.NewAuditStore(), failAfter: 0}
	one := "1"
	base := remoteconfig.NewSnapshot([]remoteconfig.Parameter{{Key: "x", DefaultValue: &one}}, nil, "system")
	w := NewWorkflow(requests, auditLog, &fakeSource{snapshot: base}, &fakePublisher{})

	_, err := w.Create(context.Background(), createInput())
	if err == nil {
		t.Fatal("Create() error = nil, want audit failure")
	}

	got, listErr := requests.List(context.Background(), changerequest.ListFilter{})
	if listErr != nil {
		t.Fatalf("List() error = %v", listErr)
	}
	if len(got) != 0 {
		t.Errorf("store holds %d unaudited requests, want 0", len(got))
	}
}

func TestSubmit(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	cr := mustCreate(t, f)
	submitted := mustSubmit(t, f, cr.ID)

	if submitted.Status != changerequest.StatusPendingReview {
		t.Errorf("Status = %v, want %v", submitted.Status, changerequest.StatusPendingReview)
	}
	if strings.TrimSpace(submitted.Summary) == "" {
		t.Error("Summary is empty after submit")
	}
	if got := lastAuditAction(t, f, cr.ID); got != audit.ActionSubmitted {
		t.Errorf("audit action = %s, want %s", got, audit.ActionSubmitted)
	}
	if len(f.notifier.events) != 1 || f.notifier.events[0].Type != notification.EventSubmittedForReview {
		t.Errorf("notifications = %+v, want one submitted_for_review event", f.notifier.events)
	}
}

func TestSubmitSummaryFallback(t *testing.T) {
	t.Parallel()

	f := newFixture(t, WithSummaryGenerator(&fakeGenerator{err: errors.New("llm down")}))
	cr := mustCreate(t, f)
	submitted := mustSubmit(t, f, cr.ID)

	if !strings.Contains(submitted.Summary, "## Overall Summary") {
		t.Errorf("Summary = %q, want fallback markdown", submitted.Summary)
	}
}

func TestSubmitEmptySummaryUsesFallback(t *testing.T) {
	t.Parallel()

	f := newFixture(t, WithSummaryGenerator(&fakeGenerator{text: "   "}))
	cr := mustCreate(t, f)
	submitted := mustSubmit(t, f, cr.ID)

	if strings.TrimSpace(submitted.Summary) == "" {
		t.Error("Summary is empty, fallback should have been used")
	}
}

func TestSubmitNotificationFailureIsSwallowed(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.notifier.err = errors.New("slack down")

	cr := mustCreate(t, f)
	submitted := mustSubmit(t, f, cr.ID)

	if submitted.Status != changerequest.StatusPendingReview {
		t.Errorf("Status = %v, notification failure must not affect lifecycle", submitted.Status)
	}
}

func TestSubmitAuditFailureRevertsStatus(t *testing.T) {
	t.Parallel()

	requests := memory.NewChangeRequestStore()
	auditLog := &failingAuditStore{inner: memory.NewAuditStore(), failAfter: 1}
	one := "1"
	base := remoteconfig.NewSnapshot([]remoteconfig.Parameter{{Key: "x", DefaultValue: &one}}, nil, "system")
	w := NewWorkflow(requests, auditLog, &fakeSource{snapshot: base}, &fakePublisher{})

	cr, err := w.Create(context.Background(), createInput())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if _, err := w.Submit(context.Background(), cr.ID, creator); err == nil {
		t.Fatal("Submit() error = nil, want audit failure")
	}

	got, err := requests.Get(context.Background(), cr.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Status != changerequest.StatusDraft {
		t.Errorf("Status = %v, want reverted to %v", got.Status, changerequest.StatusDraft)
	}
}

func TestAddReviewer(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	cr := mustCreate(t, f)
	mustSubmit(t, f, cr.ID)

	updated, err := f.workflow.AddReviewer(context.Background(), cr.ID, creator, "rev-1")
	if err != nil {
		t.Fatalf("AddReviewer() error = %v", err)
	}
	if len(updated.Reviewers) != 1 {
		t.Fatalf("len(Reviewers) = %d, want 1", len(updated.Reviewers))
	}
	if got := lastAuditAction(t, f, cr.ID); got != audit.ActionReviewerAdded {
		t.Errorf("audit action = %s, want %s", got, audit.ActionReviewerAdded)
	}

	var reviewerEvent *notification.Event
	for i := range f.notifier.events {
		if f.notifier.events[i].Type == notification.EventReviewerAdded {
			reviewerEvent = &f.notifier.events[i]
		}
	}
	if reviewerEvent == nil || reviewerEvent.ReviewerID != "rev-1" {
		t.Errorf("missing reviewer_added notification for rev-1: %+v", f.notifier.events)
	}
}

func TestAddReviewerCreator(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	cr := mustCreate(t, f)
	mustSubmit(t, f, cr.ID)

	_, err := f.workflow.AddReviewer(context.Background(), cr.ID, creator, creator.Email)
	if !errors.Is(err, changerequest.ErrCreatorAsReviewer) {
		t.Errorf("AddReviewer() error = %v, want %v", err, changerequest.ErrCreatorAsReviewer)
	}
}

func TestReviewerApproveAndDeny(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	cr := mustCreate(t, f)
	mustSubmit(t, f, cr.ID)
	if _, err := f.workflow.AddReviewer(context.Background(), cr.ID, creator, "rev-1"); err != nil {
		t.Fatalf("AddReviewer() error = %v", err)
	}

	updated, err := f.workflow.ReviewerApprove(context.Background(), cr.ID, reviewer, "lgtm")
	if err != nil {
		t.Fatalf("ReviewerApprove() error = %v", err)
	}
	if updated.Reviewers[0].Status != changerequest.ReviewerApproved {
		t.Errorf("reviewer status = %v, want approved", updated.Reviewers[0].Status)
	}
	if got := lastAuditAction(t, f, cr.ID); got != audit.ActionReviewerApproved {
		t.Errorf("audit action = %s, want %s", got, audit.ActionReviewerApproved)
	}

	updated, err = f.workflow.ReviewerDeny(context.Background(), cr.ID, reviewer, "on second thought")
	if err != nil {
		t.Fatalf("ReviewerDeny() error = %v", err)
	}
	if updated.Reviewers[0].Status != changerequest.ReviewerDenied {
		t.Errorf("reviewer status = %v, want denied", updated.Reviewers[0].Status)
	}
}

func TestApproveAndReject(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	cr := mustCreate(t, f)
	approved, err := f.workflow.Approve(context.Background(), cr.ID, reviewer)
	if err != nil {
		t.Fatalf("Approve() error = %v", err)
	}
	if approved.Status != changerequest.StatusApproved {
		t.Errorf("Status = %v, want approved", approved.Status)
	}

	if _, err := f.workflow.Approve(context.Background(), cr.ID, reviewer); !errors.Is(err, changerequest.ErrInvalidTransition) {
		t.Errorf("Approve() on terminal error = %v, want %v", err, changerequest.ErrInvalidTransition)
	}

	other := mustCreate(t, f)
	rejected, err := f.workflow.Reject(context.Background(), other.ID, reviewer, "not now")
	if err != nil {
		t.Fatalf("Reject() error = %v", err)
	}
	if rejected.Status != changerequest.StatusRejected || rejected.RejectedReason != "not now" {
		t.Errorf("Status = %v, reason = %q", rejected.Status, rejected.RejectedReason)
	}
}

func TestApproveCreatorSelf(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	cr := mustCreate(t, f)

	_, err := f.workflow.Approve(context.Background(), cr.ID, creator)
	if !errors.Is(err, changerequest.ErrCreatorSelfApprove) {
		t.Errorf("Approve() error = %v, want %v", err, changerequest.ErrCreatorSelfApprove)
	}
}

func TestPublish(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	cr := mustCreate(t, f)
	mustSubmit(t, f, cr.ID)
	if _, err := f.workflow.AddReviewer(context.Background(), cr.ID, creator, "rev-1"); err != nil {
		t.Fatalf("AddReviewer() error = %v", err)
	}
	if _, err := f.workflow.ReviewerApprove(context.Background(), cr.ID, reviewer, ""); err != nil {
		t.Fatalf("ReviewerApprove() error = %v", err)
	}

	published, err := f.workflow.Publish(context.Background(), cr.ID, creator)
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if published.Status != changerequest.StatusPublished {
		t.Errorf("Status = %v, want published", published.Status)
	}
	if len(f.publisher.published) != 1 {
		t.Errorf("publisher calls = %d, want 1", len(f.publisher.published))
	}
	if got := lastAuditAction(t, f, cr.ID); got != audit.ActionPublished {
		t.Errorf("audit action = %s, want %s", got, audit.ActionPublished)
	}
}

func TestPublishGuards(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	cr := mustCreate(t, f)
	mustSubmit(t, f, cr.ID)

	t.Run("not creator", func(t *testing.T) {
		_, err := f.workflow.Publish(context.Background(), cr.ID, reviewer)
		if !errors.Is(err, changerequest.ErrNotCreator) {
			t.Errorf("Publish() error = %v, want %v", err, changerequest.ErrNotCreator)
		}
	})

	t.Run("no approved reviewer", func(t *testing.T) {
		_, err := f.workflow.Publish(context.Background(), cr.ID, creator)
		if !errors.Is(err, changerequest.ErrNoApprovedReviewer) {
			t.Errorf("Publish() error = %v, want %v", err, changerequest.ErrNoApprovedReviewer)
		}
	})
}

func TestPublishUpstreamFailureKeepsPendingReview(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.publisher.err = errors.New("etag mismatch")

	cr := mustCreate(t, f)
	mustSubmit(t, f, cr.ID)
	if _, err := f.workflow.AddReviewer(context.Background(), cr.ID, creator, "rev-1"); err != nil {
		t.Fatalf("AddReviewer() error = %v", err)
	}
	if _, err := f.workflow.ReviewerApprove(context.Background(), cr.ID, reviewer, ""); err != nil {
		t.Fatalf("ReviewerApprove() error = %v", err)
	}

	_, err := f.workflow.Publish(context.Background(), cr.ID, creator)
	if !errors.Is(err, remoteconfig.ErrPublishFailed) {
		t.Fatalf("Publish() error = %v, want %v", err, remoteconfig.ErrPublishFailed)
	}

	got, getErr := f.workflow.Get(context.Background(), cr.ID)
	if getErr != nil {
		t.Fatalf("Get() error = %v", getErr)
	}
	if got.Status != changerequest.StatusPendingReview {
		t.Errorf("Status = %v, want still pending_review after failed publish", got.Status)
	}
}

func TestGetNotFound(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	if _, err := f.workflow.Get(context.Background(), "missing"); !errors.Is(err, changerequest.ErrNotFound) {
		t.Errorf("Get() error = %v, want %v", err, changerequest.ErrNotFound)
	}
}

func TestListFilters(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	mustCreate(t, f)
	cr := mustCreate(t, f)
	mustSubmit(t, f, cr.ID)

	pending, err := f.workflow.List(context.Background(), changerequest.ListFilter{Status: changerequest.StatusPendingReview})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(pending) != 1 || pending[0].ID != cr.ID {
		t.Errorf("pending = %d entries, want the submitted request only", len(pending))
	}
}

func TestLiveSnapshot(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	snap, err := f.workflow.LiveSnapshot(context.Background(), remoteconfig.EnvProd)
	if err != nil {
		t.Fatalf("LiveSnapshot() error = %v", err)
	}
	if len(snap.Parameters) != 1 {
		t.Errorf("Parameters = %d, want 1", len(snap.Parameters))
	}

	if _, err := f.workflow.LiveSnapshot(context.Background(), remoteconfig.Env("qa")); !errors.Is(err, remoteconfig.ErrInvalidEnv) {
		t.Errorf("LiveSnapshot() error = %v, want %v", err, remoteconfig.ErrInvalidEnv)
	}
}

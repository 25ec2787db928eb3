package memory

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rcflow/rcflow/domain/audit"
)

func TestAuditStoreAppendList(t *testing.T) {
	t.Parallel()

	store := NewAuditStore()
	ctx := context.Background()

	first := audit.NewEntry("cr-1", audit.ActionCreated, "u1", nil)
	first.PerformedAt = time.Now().Add(-time.Hour)
	second := audit.NewEntry("cr-1", audit.ActionSubmitted, "u1", nil)
	other := audit.NewEntry("cr-2", audit.ActionCreated, "u2", nil)

	for _, e := range []*audit.Entry{first, second, other} {
		if err := store.Append(ctx, e); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	got, err := store.List(ctx, audit.ListFilter{ChangeRequestID: "cr-1"})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Action != audit.ActionSubmitted {
		t.Errorf("first action = %s, want newest first", got[0].Action)
	}
}

func TestAuditStoreAppendInvalid(t *testing.T) {
	t.Parallel()

	store := NewAuditStore()
	entry := audit.NewEntry("", audit.ActionCreated, "u1", nil)
	if err := store.Append(context.Background(), entry); !errors.Is(err, audit.ErrInvalidEntry) {
		t.Errorf("Append() error = %v, want %v", err, audit.ErrInvalidEntry)
	}
}

func TestAuditStoreDefaultLimit(t *testing.T) {
	t.Parallel()

	store := NewAuditStore()
	ctx := context.Background()

	for i := 0; i < audit.DefaultListLimit+10; i++ {
		entry := audit.NewEntry("cr-1", audit.ActionReviewerApproved, fmt.Sprintf("u%d", i), nil)
		if err := store.Append(ctx, entry); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	got, err := store.List(ctx, audit.ListFilter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got) != audit.DefaultListLimit {
		t.Errorf("len = %d, want %d", len(got), audit.DefaultListLimit)
	}
}

func TestAuditStoreEntriesImmutable(t *testing.T) {
	t.Parallel()

	store := NewAuditStore()
	ctx := context.Background()

	entry := audit.NewEntry("cr-1", audit.ActionCreated, "u1", map[string]any{"k": "v"})
	if err := store.Append(ctx, entry); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	entry.Details["k"] = "mutated"

	got, err := store.List(ctx, audit.ListFilter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if got[0].Details["k"] != "v" {
		t.Error("stored entry shares details map with caller")
	}
}

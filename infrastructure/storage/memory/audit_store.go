package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/rcflow/rcflow/domain/audit"
)

// AuditStore is an in-memory implementation of audit.Store.
type AuditStore struct {
	mu      sync.RWMutex
	entries []*audit.Entry
}

// NewAuditStore creates a new in-memory audit store.
func NewAuditStore() *AuditStore {
	return &AuditStore{}
}

// Append stores a new audit entry.
func (s *AuditStore) Append(ctx context.Context, entry *audit.Entry) error {
	if err := entry.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *entry
	if entry.Details != nil {
		stored.Details = make(map[string]any, len(entry.Details))
		for k, v := range entry.Details {
			stored.Details[k] = v
		}
	}
	s.entries = append(s.entries, &stored)

	return nil
}

// List returns audit entries matching the filter, newest first.
func (s *AuditStore) List(ctx context.Context, filter audit.ListFilter) ([]*audit.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := []*audit.Entry{}
	for _, entry := range s.entries {
		if filter.ChangeRequestID != "" && entry.ChangeRequestID != filter.ChangeRequestID {
			continue
		}
		cp := *entry
		results = append(results, &cp)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].PerformedAt.After(results[j].PerformedAt)
	})

	limit := filter.Limit
	if limit <= 0 {
		limit = audit.DefaultListLimit
	}
	if len(results) > limit {
		results = results[:limit]
	}

	return results, nil
}

var _ audit.Store = (*AuditStore)(nil)

// Package memory provides in-memory storage implementations.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/rcflow/rcflow/domain/changerequest"
)

// ChangeRequestStore is an in-memory implementation of
// changerequest.Store.
type ChangeRequestStore struct {
	mu       sync.RWMutex
	requests map[string]*changerequest.ChangeRequest
}

// NewChangeRequestStore creates a new in-memory change request store.
func NewChangeRequestStore() *ChangeRequestStore {
	return &ChangeRequestStore{
		requests: make(map[string]*changerequest.ChangeRequest),
	}
}

// Save persists a new change request.
func (s *ChangeRequestStore) Save(ctx context.Context, cr *changerequest.ChangeRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cr.ID == "" {
		return changerequest.ErrInvalidRequest
	}

	if _, exists := s.requests[cr.ID]; exists {
		return changerequest.ErrExists
	}

	// Store a copy
	s.requests[cr.ID] = cr.Clone()

	return nil
}

// Get retrieves a change request by ID.
func (s *ChangeRequestStore) Get(ctx context.Context, id string) (*changerequest.ChangeRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cr, exists := s.requests[id]
	if !exists {
		return nil, changerequest.ErrNotFound
	}

	// Return a copy
	return cr.Clone(), nil
}

// Update replaces an existing change request under a version check.
func (s *ChangeRequestStore) Update(ctx context.Context, cr *changerequest.ChangeRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cr.ID == "" {
		return changerequest.ErrInvalidRequest
	}

	stored, exists := s.requests[cr.ID]
	if !exists {
		return changerequest.ErrNotFound
	}

	if stored.Version != cr.Version {
		return changerequest.ErrVersionConflict
	}

	updated := cr.Clone()
	updated.Version++
	s.requests[cr.ID] = updated
	cr.Version = updated.Version

	return nil
}

// List returns change requests matching the filter, newest first.
func (s *ChangeRequestStore) List(ctx context.Context, filter changerequest.ListFilter) ([]*changerequest.ChangeRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := []*changerequest.ChangeRequest{}

	for _, cr := range s.requests {
		if !matchesFilter(cr, filter) {
			continue
		}
		results = append(results, cr.Clone())
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].CreatedAt.After(results[j].CreatedAt)
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(results) {
			return []*changerequest.ChangeRequest{}, nil
		}
		results = results[filter.Offset:]
	}

	if filter.Limit > 0 && len(results) > filter.Limit {
		results = results[:filter.Limit]
	}

	return results, nil
}

// Delete removes a change request.
func (s *ChangeRequestStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.requests[id]; !exists {
		return changerequest.ErrNotFound
	}

	delete(s.requests, id)
	return nil
}

func matchesFilter(cr *changerequest.ChangeRequest, filter changerequest.ListFilter) bool {
	if filter.Env != "" && cr.Env != filter.Env {
		return false
	}
	if filter.Status != "" && cr.Status != filter.Status {
		return false
	}
	if filter.CreatedBy != "" && !cr.CreatedBy.Is(filter.CreatedBy) {
		return false
	}
	return true
}

var _ changerequest.Store = (*ChangeRequestStore)(nil)

package changerequest

import (
	"context"

	"github.com/rcflow/rcflow/domain/remoteconfig"
)

// ListFilter narrows List results. Zero values mean no filtering on
// that field.
type ListFilter struct {
	Env       remoteconfig.Env
	Status    Status
	CreatedBy string
	Limit     int
	Offset    int
}

// Store persists change requests.
//
// Update applies optimistic concurrency: the stored document must carry
// the same version as cr.Version, and the write bumps the stored
// version by one. A mismatch returns ErrVersionConflict. On success the
// passed-in cr reflects the new version.
type Store interface {
	// Save stores a new change request. Returns ErrExists when the ID
	// is already present.
	Save(ctx context.Context, cr *ChangeRequest) error

	// Get retrieves a change request by ID. Returns ErrNotFound when
	// absent.
	Get(ctx context.Context, id string) (*ChangeRequest, error)

	// Update replaces an existing change request under a version check.
	Update(ctx context.Context, cr *ChangeRequest) error

	// List returns change requests matching filter, newest first.
	List(ctx context.Context, filter ListFilter) ([]*ChangeRequest, error)

	// Delete removes a change request. Returns ErrNotFound when absent.
	Delete(ctx context.Context, id string) error
}

package changerequest

import "errors"

var (
	// ErrNotFound indicates the change request does not exist.
	ErrNotFound = errors.New("change request not found")

	// ErrExists indicates a change request with the same ID already exists.
	ErrExists = errors.New("change request already exists")

	// ErrInvalidRequest indicates the request payload failed validation.
	ErrInvalidRequest = errors.New("invalid change request")

	// ErrInvalidTransition indicates the requested status change is not
	// allowed from the current state.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrNotPendingReview indicates an operation that requires the
	// pending_review state was attempted from another state.
	ErrNotPendingReview = errors.New("change request is not pending review")

	// ErrDuplicateReviewer indicates the user is already assigned as a
	// reviewer.
	ErrDuplicateReviewer = errors.New("reviewer already added")

	// ErrCreatorAsReviewer indicates the creator attempted to add
	// themselves as a reviewer.
	ErrCreatorAsReviewer = errors.New("creator cannot be added as reviewer")

	// ErrCreatorSelfReview indicates the creator attempted to record a
	// reviewer decision on their own change request.
	ErrCreatorSelfReview = errors.New("creator cannot review own change request")

	// ErrCreatorSelfApprove indicates the creator attempted the
	// standalone approve action on their own change request.
	ErrCreatorSelfApprove = errors.New("creator cannot approve own change request")

	// ErrNotAReviewer indicates the acting user is not an assigned
	// reviewer.
	ErrNotAReviewer = errors.New("user is not an assigned reviewer")

	// ErrNotCreator indicates an operation reserved for the creator was
	// attempted by someone else.
	ErrNotCreator = errors.New("only the creator may perform this action")

	// ErrNoApprovedReviewer indicates publish was attempted before any
	// reviewer approved.
	ErrNoApprovedReviewer = errors.New("at least one reviewer must approve before publishing")

	// ErrVersionConflict indicates a concurrent update modified the
	// change request since it was read.
	ErrVersionConflict = errors.New("change request version conflict")

	// ErrUnauthenticated indicates the request carries no identity.
	ErrUnauthenticated = errors.New("authentication required")

	// ErrOperationTimeout indicates a storage operation exceeded its
	// deadline.
	ErrOperationTimeout = errors.New("storage operation timed out")

	// ErrStoreUnavailable indicates the storage backend could not be
	// reached.
	ErrStoreUnavailable = errors.New("change request store unavailable")
)

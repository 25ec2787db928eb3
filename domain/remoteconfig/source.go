package remoteconfig

import "context"

// Source fetches the current live template for an environment. The
// returned snapshot is the authoritative base for diffing at
// change-request creation time.
type Source interface {
	// Snapshot returns the live template for env.
	Snapshot(ctx context.Context, env Env) (*Snapshot, error)
}

// Publisher writes a snapshot as the new live template for an
// environment. Publishing is all-or-nothing: a returned error means the
// live template is unchanged.
type Publisher interface {
	// Publish writes the snapshot wholesale.
	Publish(ctx context.Context, env Env, snapshot *Snapshot) error
}

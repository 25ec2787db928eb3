// Package summary defines change summary generation. A deterministic
// fallback renderer always produces a summary; richer generators (for
// example an LLM-backed one) may replace it when configured.
package summary

import (
	"context"

	"github.com/rcflow/rcflow/domain/changerequest"
)

// Generator produces a human-readable summary of a change request.
type Generator interface {
	Generate(ctx context.Context, cr *changerequest.ChangeRequest) (string, error)
}

// FallbackGenerator renders a summary from the diff alone. It never
// fails and its output is deterministic for a given change request.
type FallbackGenerator struct{}

// Generate implements Generator.
func (FallbackGenerator) Generate(_ context.Context, cr *changerequest.ChangeRequest) (string, error) {
	return Fallback(cr), nil
}

var _ Generator = FallbackGenerator{}

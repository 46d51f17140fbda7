// Package generator defines the contract to the model-execution collaborator.
// The orchestration core never looks inside it: it initializes the resource,
// checks readiness and exchanges parameters for artifact bytes.
package generator

import (
	"context"

	"fluxserver/internal/domain"
)

// Generator is the heavyweight generation resource, a singleton per worker
// process. Implementations own model loading, adapter-weight application and
// inference; concurrent calls within one process serialize through it.
type Generator interface {
	// IsReady reports whether the resource is loaded and usable.
	IsReady() bool

	// Initialize loads the resource. Safe to call more than once.
	Initialize(ctx context.Context) error

	// Generate produces artifact bytes for the given parameters, or an
	// error when inference fails.
	Generate(ctx context.Context, params domain.GenerationParams) ([]byte, error)
}

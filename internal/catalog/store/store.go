package store

import (
	"context"
	"time"

	"assent/internal/catalog"
	"assent/pkg/domain"
)

// Store persists policy versions.
//
// Errors: implementations return sentinel.ErrNotFound for missing rows and
// sentinel.ErrConflict for duplicate (scope, version) pairs or overlapping
// published windows. The overlap rule is enforced here, not in the resolver.
type Store interface {
	// Create inserts a new version. Published windows that overlap an
	// existing published version of the same scope are rejected.
	Create(ctx context.Context, version *catalog.PolicyVersion) error

	// FindByID returns a version regardless of publication state.
	FindByID(ctx context.Context, id domain.PolicyVersionID) (*catalog.PolicyVersion, error)

	// FindEffective returns all published versions of the scope whose window
	// contains now. More than one element only occurs for data predating the
	// overlap constraint; the resolver tie-breaks deterministically.
	FindEffective(ctx context.Context, scope domain.Scope, now time.Time) ([]*catalog.PolicyVersion, error)

	// ListByScope returns all versions of a scope, newest effectiveFrom first.
	ListByScope(ctx context.Context, scope domain.Scope) ([]*catalog.PolicyVersion, error)

	// SetPublished flips publication state. Publishing re-checks the overlap
	// invariant; unpublishing always succeeds for existing rows.
	SetPublished(ctx context.Context, id domain.PolicyVersionID, published bool, updatedAt time.Time) error
}

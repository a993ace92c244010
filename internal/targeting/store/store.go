package store

import (
	"context"
	"time"

	"assent/internal/targeting"
	"assent/pkg/domain"
)

// Store persists targeting overrides.
//
// Errors: implementations return sentinel.ErrNotFound for missing rows.
// CreateReplacingActive makes last-writer-wins atomic; the partial unique
// index on active rows closes the race in Postgres.
type Store interface {
	// CreateReplacingActive deactivates any active override for the identity
	// and inserts the new one, atomically.
	CreateReplacingActive(ctx context.Context, override *targeting.Override) error

	// FindActive returns the identity's single active override, or
	// sentinel.ErrNotFound. Window checks are the caller's job; "active"
	// here is the lifecycle flag only.
	FindActive(ctx context.Context, identity domain.IdentityHash) (*targeting.Override, error)

	// FindByID returns an override regardless of lifecycle state.
	FindByID(ctx context.Context, id domain.OverrideID) (*targeting.Override, error)

	// Deactivate flips the active flag off. Deactivating an already-inactive
	// override is a no-op, not an error.
	Deactivate(ctx context.Context, id domain.OverrideID, deactivatedAt time.Time) error

	// ListByIdentity returns every override recorded for an identity, newest
	// first.
	ListByIdentity(ctx context.Context, identity domain.IdentityHash) ([]*targeting.Override, error)
}

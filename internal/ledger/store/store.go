package store

import (
	"context"

	"assent/internal/ledger"
	"assent/pkg/domain"
)

// Store persists consent records. The ledger is append-only: there is no
// update or delete operation on purpose.
//
// Errors: implementations return sentinel.ErrNotFound for missing rows and
// sentinel.ErrConflict when the (identity, version) uniqueness invariant
// trips. The constraint, not the service pre-check, is the idempotence
// guarantee.
type Store interface {
	// Create appends a record. Participates in a caller transaction when one
	// is carried in ctx (pkg/platform/tx).
	Create(ctx context.Context, record *ledger.ConsentRecord) error

	// FindByIdentityAndVersion returns the record proving the identity
	// accepted the given version, or sentinel.ErrNotFound.
	FindByIdentityAndVersion(ctx context.Context, identity domain.IdentityHash, versionID domain.PolicyVersionID) (*ledger.ConsentRecord, error)

	// LatestByIdentityAndScope returns the identity's most recent record in a
	// scope, or sentinel.ErrNotFound.
	LatestByIdentityAndScope(ctx context.Context, identity domain.IdentityHash, scope domain.Scope) (*ledger.ConsentRecord, error)

	// ListByIdentity returns the identity's full consent history, newest
	// first.
	ListByIdentity(ctx context.Context, identity domain.IdentityHash) ([]*ledger.ConsentRecord, error)

	// DistinctIdentityScopes returns every (identity, scope) pair present in
	// the ledger, paged by offset. The sweep worker walks these.
	DistinctIdentityScopes(ctx context.Context, limit, offset int) ([]ledger.IdentityScope, error)
}

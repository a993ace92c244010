// Package ledger holds the immutable consent record ledger. Rows are written
// exactly once by the acceptance recorder and never updated or deleted;
// supersession is a newer row, not a mutation.
package ledger

import (
	"time"

	"assent/pkg/domain"
)

// ConsentRecord is one ledger entry: proof that an identity accepted one
// policy version at one instant, with the capture context a dispute would
// need.
type ConsentRecord struct {
	ID domain.ConsentRecordID

	// ConsentRef is the externally quotable receipt number.
	ConsentRef string

	IdentityHash  domain.IdentityHash
	IdentityLast4 string

	Scope domain.Scope

	// PolicyVersionID points at the accepted catalog row; PolicyVersion is
	// the version string frozen at acceptance time so the record stays
	// readable even if the catalog row is retired.
	PolicyVersionID domain.PolicyVersionID
	PolicyVersion   string

	AcceptedAt time.Time

	// Capture context. IPAddress is stored anonymized.
	IPAddress     string
	UserAgent     string
	DeviceSummary string

	// ContentSnapshot optionally freezes the accepted text for audit.
	ContentSnapshot *string
}

// IdentityScope is one (identity, scope) pair seen in the ledger. The sweep
// worker re-evaluates compliance for each.
type IdentityScope struct {
	IdentityHash domain.IdentityHash
	Scope        domain.Scope
}

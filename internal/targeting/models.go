// Package targeting holds per-identity version pins. An active override
// beats default catalog resolution and may point at an unpublished version;
// that is the point of targeting (pilot groups, legal holds, staged rollouts).
package targeting

import (
	"time"

	"assent/pkg/domain"
	dErrors "assent/pkg/domain-errors"
)

// Override pins one identity to one policy version for the duration of its
// window. At most one override per identity is active at a time; creating a
// new one deactivates its predecessors.
type Override struct {
	ID            domain.OverrideID
	IdentityHash  domain.IdentityHash
	PolicyVersion domain.PolicyVersionID

	// StartDate and EndDate bound the override window; nil means open.
	// EndDate is exclusive.
	StartDate *time.Time
	EndDate   *time.Time

	Active        bool
	CreatedAt     time.Time
	CreatedBy     string
	DeactivatedAt *time.Time
}

// AppliesAt reports whether the override is active and its window contains t.
func (o *Override) AppliesAt(t time.Time) bool {
	if !o.Active {
		return false
	}
	if o.StartDate != nil && t.Before(*o.StartDate) {
		return false
	}
	if o.EndDate != nil && !t.Before(*o.EndDate) {
		return false
	}
	return true
}

// Validate applies the invariants an admin submission must satisfy.
func (o *Override) Validate() error {
	if o.IdentityHash.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "identity is required")
	}
	if o.PolicyVersion.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "policy version is required")
	}
	if o.StartDate != nil && o.EndDate != nil && !o.EndDate.After(*o.StartDate) {
		return dErrors.New(dErrors.CodeValidation, "endDate must be after startDate")
	}
	return nil
}

// Package compliance decides whether an identity's consent still satisfies
// the currently effective policy version for a scope. Evaluation is a pure
// read over the catalog, targeting, and ledger; nothing here writes.
package compliance

import (
	"time"

	"assent/internal/catalog"
)

// State is the compliance state of one (identity, scope) pair.
type State string

const (
	// StateNeverConsented means no ledger entry exists for the scope at all.
	StateNeverConsented State = "NEVER_CONSENTED"

	// StateConsented means the latest ledger entry matches the effective
	// version and no renewal is due.
	StateConsented State = "CONSENTED"

	// StateInGrace means consent covers an older version and the effective
	// version's grace window has not yet run out.
	StateInGrace State = "IN_GRACE"

	// StateMustReconsent means action is required: consent is for an older
	// version past grace, grace was never granted, or a periodic renewal is
	// overdue.
	StateMustReconsent State = "MUST_RECONSENT"
)

// Result is the evaluator's answer. EffectiveVersion is always the resolved
// version the state was judged against; GraceExpiresAt is set only for
// StateInGrace.
type Result struct {
	State            State
	EffectiveVersion *catalog.PolicyVersion
	GraceExpiresAt   *time.Time
	Reason           string
}

// RequiresAction reports whether the caller should block or prompt, before
// applying the version's enforce mode.
func (r *Result) RequiresAction() bool {
	switch r.State {
	case StateMustReconsent:
		return true
	case StateNeverConsented:
		return r.EffectiveVersion != nil && r.EffectiveVersion.Mandatory
	default:
		return false
	}
}

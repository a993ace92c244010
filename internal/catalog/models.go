// Package catalog holds the durable policy version catalog: every legal
// document version per (tenant, kind, audience, language) scope, with its
// effective window and enforcement metadata.
package catalog

import (
	"strings"
	"time"

	"assent/pkg/domain"
	dErrors "assent/pkg/domain-errors"
)

// EnforceMode tells callers how to react when an identity is out of
// compliance. The engine reports it; enforcement is the caller's job.
type EnforceMode string

const (
	// EnforceModeNone is advisory only.
	EnforceModeNone EnforceMode = "none"
	// EnforceModeActionGate blocks a specific action until consent.
	EnforceModeActionGate EnforceMode = "action_gate"
	// EnforceModeLoginGate blocks session creation until consent.
	EnforceModeLoginGate EnforceMode = "login_gate"
	// EnforceModeStrict blocks everything and forbids grace.
	EnforceModeStrict EnforceMode = "strict"
)

var validEnforceModes = map[EnforceMode]bool{
	EnforceModeNone:       true,
	EnforceModeActionGate: true,
	EnforceModeLoginGate:  true,
	EnforceModeStrict:     true,
}

// ParseEnforceMode constructs an EnforceMode from external input.
func ParseEnforceMode(s string) (EnforceMode, error) {
	m := EnforceMode(s)
	if !validEnforceModes[m] {
		return "", dErrors.New(dErrors.CodeInvalidInput, "unsupported enforce mode: "+s)
	}
	return m, nil
}

// ReconsentTrigger controls when a prior consent stops satisfying a version.
type ReconsentTrigger string

const (
	// TriggerVersionChange requires new consent when a newer version becomes
	// effective.
	TriggerVersionChange ReconsentTrigger = "version_change"
	// TriggerPeriodic additionally expires consent after the configured
	// renewal interval even without a version change.
	TriggerPeriodic ReconsentTrigger = "periodic"
	// TriggerManual only requires re-consent when an administrator says so
	// (by publishing a replacement version).
	TriggerManual ReconsentTrigger = "manual"
)

var validTriggers = map[ReconsentTrigger]bool{
	TriggerVersionChange: true,
	TriggerPeriodic:      true,
	TriggerManual:        true,
}

// ParseReconsentTrigger constructs a ReconsentTrigger from external input.
func ParseReconsentTrigger(s string) (ReconsentTrigger, error) {
	tr := ReconsentTrigger(s)
	if !validTriggers[tr] {
		return "", dErrors.New(dErrors.CodeInvalidInput, "unsupported reconsent trigger: "+s)
	}
	return tr, nil
}

// PolicyVersion is one row of the catalog. Version strings are opaque and
// only comparable within a scope; ordering comes from effective windows.
// Rows referenced by ledger entries are never hard-deleted; retirement is
// Published=false.
type PolicyVersion struct {
	ID    domain.PolicyVersionID
	Scope domain.Scope

	Version string
	Title   string
	Body    string

	EffectiveFrom time.Time
	// EffectiveTo is an exclusive upper bound; nil means open-ended.
	EffectiveTo *time.Time

	Mandatory        bool
	GraceDays        int
	EnforceMode      EnforceMode
	ReconsentTrigger ReconsentTrigger

	Published bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// EffectiveAt reports whether the version's window contains t.
func (v *PolicyVersion) EffectiveAt(t time.Time) bool {
	if t.Before(v.EffectiveFrom) {
		return false
	}
	if v.EffectiveTo != nil && !t.Before(*v.EffectiveTo) {
		return false
	}
	return true
}

// Overlaps reports whether two effective windows intersect. Used by the
// memory store; Postgres enforces the same rule with an EXCLUDE constraint.
func (v *PolicyVersion) Overlaps(other *PolicyVersion) bool {
	if other.EffectiveTo != nil && !other.EffectiveTo.After(v.EffectiveFrom) {
		return false
	}
	if v.EffectiveTo != nil && !v.EffectiveTo.After(other.EffectiveFrom) {
		return false
	}
	return true
}

// GraceDeadline returns the instant grace runs out for identities holding
// consent to an older version, or nil when the version grants no grace.
func (v *PolicyVersion) GraceDeadline() *time.Time {
	if v.GraceDays <= 0 || v.EnforceMode == EnforceModeStrict {
		return nil
	}
	deadline := v.EffectiveFrom.AddDate(0, 0, v.GraceDays)
	return &deadline
}

// Validate applies the invariants an admin submission must satisfy.
func (v *PolicyVersion) Validate() error {
	if strings.TrimSpace(v.Version) == "" {
		return dErrors.New(dErrors.CodeValidation, "version cannot be empty")
	}
	if strings.TrimSpace(v.Title) == "" {
		return dErrors.New(dErrors.CodeValidation, "title cannot be empty")
	}
	if v.EffectiveFrom.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "effectiveFrom is required")
	}
	if v.EffectiveTo != nil && !v.EffectiveTo.After(v.EffectiveFrom) {
		return dErrors.New(dErrors.CodeValidation, "effectiveTo must be after effectiveFrom")
	}
	if v.GraceDays < 0 {
		return dErrors.New(dErrors.CodeValidation, "graceDays cannot be negative")
	}
	if !validEnforceModes[v.EnforceMode] {
		return dErrors.New(dErrors.CodeValidation, "unsupported enforce mode")
	}
	if !validTriggers[v.ReconsentTrigger] {
		return dErrors.New(dErrors.CodeValidation, "unsupported reconsent trigger")
	}
	if v.EnforceMode == EnforceModeStrict && v.GraceDays > 0 {
		return dErrors.New(dErrors.CodeValidation, "strict enforcement forbids a grace period")
	}
	return nil
}

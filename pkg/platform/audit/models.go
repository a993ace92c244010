// Package audit captures the engine's auditable actions: catalog mutations,
// targeting changes, and consent acceptances. Events are written to a
// transactional outbox alongside the business write and relayed to Kafka by
// the outbox worker; Kafka is the source of truth for the audit trail.
package audit

import (
	"context"
	"time"

	"assent/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose.
// This enables different retention policies, storage backends, and routing.
type EventCategory string

const (
	// CategoryCompliance covers events with legal/regulatory significance.
	// These require tamper-proof storage and long retention.
	// Examples: consent acceptances, policy publications, targeting changes.
	CategoryCompliance EventCategory = "compliance"

	// CategoryOperations covers events useful for debugging and operational
	// visibility. These can be sampled or aggregated with shorter retention.
	// Examples: compliance checks, resolver misses.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out. Identities appear only
// as their salted hash.
type Event struct {
	Category  EventCategory
	Timestamp time.Time
	Action    string

	Tenant   string
	Kind     string
	Audience string
	Language string

	// IdentityHash is the salted hash of the affected identity, empty for
	// catalog-only events.
	IdentityHash domain.IdentityHash

	// PolicyVersionRef and ConsentRef tie the event to catalog and ledger rows.
	PolicyVersionRef string
	ConsentRef       string

	Decision string
	Reason   string

	// RequestID correlates with the HTTP request; ActorID records the
	// administrator for admin operations.
	RequestID string
	ActorID   string
}

// AuditEvent names every action the engine records.
type AuditEvent string

const (
	// Catalog events
	EventPolicyVersionCreated     AuditEvent = "policy_version_created"
	EventPolicyVersionPublished   AuditEvent = "policy_version_published"
	EventPolicyVersionUnpublished AuditEvent = "policy_version_unpublished"

	// Targeting events
	EventOverrideCreated     AuditEvent = "override_created"
	EventOverrideDeactivated AuditEvent = "override_deactivated"

	// Ledger events
	EventConsentAccepted  AuditEvent = "consent_accepted"
	EventConsentDuplicate AuditEvent = "consent_duplicate"

	// Read-path events
	EventComplianceChecked AuditEvent = "compliance_checked"
)

// eventCategories maps each audit event to its category.
var eventCategories = map[AuditEvent]EventCategory{
	EventPolicyVersionCreated:     CategoryCompliance,
	EventPolicyVersionPublished:   CategoryCompliance,
	EventPolicyVersionUnpublished: CategoryCompliance,
	EventOverrideCreated:          CategoryCompliance,
	EventOverrideDeactivated:      CategoryCompliance,
	EventConsentAccepted:          CategoryCompliance,
	EventConsentDuplicate:         CategoryCompliance,
	EventComplianceChecked:        CategoryOperations,
}

// Category returns the category for the event, defaulting to operations for
// unknown actions.
func (e AuditEvent) Category() EventCategory {
	if category, ok := eventCategories[e]; ok {
		return category
	}
	return CategoryOperations
}

// Store persists audit events. The postgres implementation writes to the
// outbox; the memory implementation backs unit tests.
type Store interface {
	Append(ctx context.Context, event Event) error
}

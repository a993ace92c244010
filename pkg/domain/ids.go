package domain

import (
	"github.com/google/uuid"

	dErrors "assent/pkg/domain-errors"
)

// PolicyVersionID identifies a single row in the policy catalog. Version
// strings are only comparable within one scope; the ID is the stable handle
// ledger entries and overrides point at.
type PolicyVersionID uuid.UUID

// NewPolicyVersionID generates a random policy version ID.
func NewPolicyVersionID() PolicyVersionID {
	return PolicyVersionID(uuid.New())
}

// ParsePolicyVersionID constructs a PolicyVersionID from external input.
//
// Errors: returns CodeInvalidInput when the value is not a valid UUID.
func ParsePolicyVersionID(s string) (PolicyVersionID, error) {
	parsed, err := uuid.Parse(s)
	if err != nil {
		return PolicyVersionID{}, dErrors.New(dErrors.CodeInvalidInput, "invalid policy version id")
	}
	return PolicyVersionID(parsed), nil
}

// IsNil reports whether the ID is the zero UUID.
func (id PolicyVersionID) IsNil() bool {
	return uuid.UUID(id) == uuid.Nil
}

func (id PolicyVersionID) String() string {
	return uuid.UUID(id).String()
}

// OverrideID identifies a targeting override row.
type OverrideID uuid.UUID

// NewOverrideID generates a random override ID.
func NewOverrideID() OverrideID {
	return OverrideID(uuid.New())
}

// ParseOverrideID constructs an OverrideID from external input.
func ParseOverrideID(s string) (OverrideID, error) {
	parsed, err := uuid.Parse(s)
	if err != nil {
		return OverrideID{}, dErrors.New(dErrors.CodeInvalidInput, "invalid override id")
	}
	return OverrideID(parsed), nil
}

// IsNil reports whether the ID is the zero UUID.
func (id OverrideID) IsNil() bool {
	return uuid.UUID(id) == uuid.Nil
}

func (id OverrideID) String() string {
	return uuid.UUID(id).String()
}

// ConsentRecordID identifies a ledger entry. External callers quote the
// ConsentRef instead; this ID stays internal.
type ConsentRecordID uuid.UUID

// NewConsentRecordID generates a random consent record ID.
func NewConsentRecordID() ConsentRecordID {
	return ConsentRecordID(uuid.New())
}

// IsNil reports whether the ID is the zero UUID.
func (id ConsentRecordID) IsNil() bool {
	return uuid.UUID(id) == uuid.Nil
}

func (id ConsentRecordID) String() string {
	return uuid.UUID(id).String()
}

// IdentityHash is the salted one-way hash of a real-world identity. The raw
// identity never crosses into stores or logs; only the hash and a last-4
// display fragment are retained.
type IdentityHash string

// IsZero reports whether the hash is unset.
func (h IdentityHash) IsZero() bool {
	return h == ""
}

func (h IdentityHash) String() string {
	return string(h)
}

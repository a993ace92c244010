// Package dErrors provides coded domain errors for the consent engine.
//
// Stores return sentinel errors (pkg/platform/sentinel) for infrastructure
// facts; services translate those into coded domain errors here. Codes are
// stable API: handlers map them to HTTP statuses, callers branch on them with
// HasCode. Messages are safe to expose for non-internal codes.
package dErrors

import (
	"errors"
	"fmt"
)

// Code classifies a domain error. The string value is what external callers
// see in the "error" field of responses.
type Code string

const (
	// CodeInvalidInput marks malformed caller input rejected at a trust
	// boundary (bad scope component, malformed identity, bad UUID).
	CodeInvalidInput Code = "invalid_input"

	// CodeBadRequest marks a structurally invalid request (bad JSON, missing
	// required fields).
	CodeBadRequest Code = "bad_request"

	// CodeValidation marks a request that parsed but violates a domain rule
	// (zero grace days with periodic trigger, effectiveTo before effectiveFrom).
	CodeValidation Code = "validation_failed"

	// CodeNotFound marks a missing resource, including an unresolvable policy
	// version for a requested scope. Never silently substituted.
	CodeNotFound Code = "not_found"

	// CodeConflict marks a storage-level uniqueness or overlap violation
	// (duplicate ledger entry, overlapping published windows).
	CodeConflict Code = "conflict"

	// CodeAlreadyConsented marks an idempotent re-submission: the identity
	// already holds a ledger entry for the resolved version. Callers should
	// treat this as success and use the prior record.
	CodeAlreadyConsented Code = "already_consented"

	// CodeVersionMismatch marks a caller-supplied version id that no longer
	// matches the freshly resolved version; the caller must re-fetch and retry.
	CodeVersionMismatch Code = "version_mismatch"

	// CodeInvariantViolation marks an internal consistency failure (an
	// override pointing at a vanished version). A bug or corrupt data, not
	// caller error.
	CodeInvariantViolation Code = "invariant_violation"

	// CodeUnauthorized marks missing or invalid credentials on the admin
	// surface.
	CodeUnauthorized Code = "unauthorized"

	// CodeForbidden marks valid credentials without sufficient rights.
	CodeForbidden Code = "forbidden"

	// CodeRateLimited marks a caller exceeding its request budget.
	CodeRateLimited Code = "rate_limited"

	// CodeTimeout marks a cancelled or deadline-exceeded operation.
	CodeTimeout Code = "timeout"

	// CodeUnavailable marks a transient dependency failure the caller may
	// retry.
	CodeUnavailable Code = "unavailable"

	// CodeInternal marks everything else. Messages for this code are never
	// exposed to callers.
	CodeInternal Code = "internal_error"
)

// Error is a coded domain error. Construct via New or Wrap.
type Error struct {
	code    Code
	message string
	cause   error
}

// New creates a domain error with the given code and caller-safe message.
func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

// Wrap annotates an underlying error with a domain code. The cause stays
// reachable through errors.Is/errors.As for sentinel checks.
func Wrap(cause error, code Code, message string) *Error {
	return &Error{code: code, message: message, cause: cause}
}

// Code returns the error's classification code.
func (e *Error) Code() Code {
	return e.code
}

// Message returns the caller-safe message.
func (e *Error) Message() string {
	return e.message
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

// Unwrap exposes the cause for errors.Is/errors.As chains.
func (e *Error) Unwrap() error {
	return e.cause
}

// HasCode reports whether err (or anything it wraps) is a domain error with
// the given code.
func HasCode(err error, code Code) bool {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.code == code
	}
	return false
}

// Is is an alias for HasCode kept for call-site readability:
// dErrors.Is(err, dErrors.CodeNotFound).
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// CodeOf extracts the code from err, defaulting to CodeInternal for errors
// that carry no domain code.
func CodeOf(err error) Code {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.code
	}
	return CodeInternal
}

package handler

import (
	"time"

	"assent/internal/catalog"
	"assent/internal/compliance"
	"assent/internal/ledger"
)

// Identity-bearing requests POST their body so the cleartext identity stays
// out of URLs and access logs. The four scope fields repeat across the
// request types on purpose: flat structs keep decoding and sanitizing dumb.
type resolveRequest struct {
	Tenant   string `json:"tenant"`
	Kind     string `json:"kind"`
	Audience string `json:"audience"`
	Language string `json:"language"`
	Identity string `json:"identity,omitempty"`
}

type statusRequest struct {
	Tenant   string `json:"tenant"`
	Kind     string `json:"kind"`
	Audience string `json:"audience"`
	Language string `json:"language"`
	Identity string `json:"identity"`
}

type acceptRequest struct {
	Tenant   string `json:"tenant"`
	Kind     string `json:"kind"`
	Audience string `json:"audience"`
	Language string `json:"language"`
	Identity string `json:"identity"`

	// PolicyVersionID is the version the client is accepting, from a prior
	// resolve call. Optional but recommended; a stale value is rejected.
	PolicyVersionID string `json:"policyVersionId,omitempty"`
}

type historyRequest struct {
	Identity string `json:"identity"`
}

type effectiveVersionResponse struct {
	ID            string     `json:"id"`
	Version       string     `json:"version"`
	Title         string     `json:"title"`
	Body          string     `json:"body"`
	EffectiveFrom time.Time  `json:"effectiveFrom"`
	EffectiveTo   *time.Time `json:"effectiveTo,omitempty"`
	Mandatory     bool       `json:"mandatory"`
	EnforceMode   string     `json:"enforceMode"`
}

func toVersionResponse(v *catalog.PolicyVersion) effectiveVersionResponse {
	return effectiveVersionResponse{
		ID:            v.ID.String(),
		Version:       v.Version,
		Title:         v.Title,
		Body:          v.Body,
		EffectiveFrom: v.EffectiveFrom,
		EffectiveTo:   v.EffectiveTo,
		Mandatory:     v.Mandatory,
		EnforceMode:   string(v.EnforceMode),
	}
}

type complianceResponse struct {
	State            string     `json:"state"`
	RequiresAction   bool       `json:"requiresAction"`
	EnforceMode      string     `json:"enforceMode"`
	EffectiveVersion string     `json:"effectiveVersion"`
	PolicyVersionID  string     `json:"policyVersionId"`
	GraceExpiresAt   *time.Time `json:"graceExpiresAt,omitempty"`
	Reason           string     `json:"reason"`
}

func toComplianceResponse(r *compliance.Result) complianceResponse {
	return complianceResponse{
		State:            string(r.State),
		RequiresAction:   r.RequiresAction(),
		EnforceMode:      string(r.EffectiveVersion.EnforceMode),
		EffectiveVersion: r.EffectiveVersion.Version,
		PolicyVersionID:  r.EffectiveVersion.ID.String(),
		GraceExpiresAt:   r.GraceExpiresAt,
		Reason:           r.Reason,
	}
}

type consentRecordResponse struct {
	ConsentRef    string    `json:"consentRef"`
	Tenant        string    `json:"tenant"`
	Kind          string    `json:"kind"`
	Audience      string    `json:"audience"`
	Language      string    `json:"language"`
	PolicyVersion string    `json:"policyVersion"`
	IdentityLast4 string    `json:"identityLast4"`
	AcceptedAt    time.Time `json:"acceptedAt"`
	DeviceSummary string    `json:"deviceSummary,omitempty"`
}

func toRecordResponse(r *ledger.ConsentRecord) consentRecordResponse {
	return consentRecordResponse{
		ConsentRef:    r.ConsentRef,
		Tenant:        string(r.Scope.Tenant),
		Kind:          string(r.Scope.Kind),
		Audience:      string(r.Scope.Audience),
		Language:      string(r.Scope.Language),
		PolicyVersion: r.PolicyVersion,
		IdentityLast4: r.IdentityLast4,
		AcceptedAt:    r.AcceptedAt,
		DeviceSummary: r.DeviceSummary,
	}
}

type acceptResponse struct {
	consentRecordResponse
	// AlreadyConsented marks an idempotent replay: the record is the
	// original, not a new one.
	AlreadyConsented bool `json:"alreadyConsented"`
}

package handler

import (
	"time"

	"assent/internal/catalog"
)

// createVersionRequest is the admin submission for a new policy version.
type createVersionRequest struct {
	Tenant   string `json:"tenant"`
	Kind     string `json:"kind"`
	Audience string `json:"audience"`
	Language string `json:"language"`

	Version string `json:"version"`
	Title   string `json:"title"`
	Body    string `json:"body"`

	EffectiveFrom time.Time  `json:"effectiveFrom"`
	EffectiveTo   *time.Time `json:"effectiveTo,omitempty"`

	Mandatory        bool   `json:"mandatory"`
	GraceDays        int    `json:"graceDays"`
	EnforceMode      string `json:"enforceMode"`
	ReconsentTrigger string `json:"reconsentTrigger"`

	Publish bool `json:"publish"`
}

type policyVersionResponse struct {
	ID       string `json:"id"`
	Tenant   string `json:"tenant"`
	Kind     string `json:"kind"`
	Audience string `json:"audience"`
	Language string `json:"language"`

	Version string `json:"version"`
	Title   string `json:"title"`
	Body    string `json:"body,omitempty"`

	EffectiveFrom time.Time  `json:"effectiveFrom"`
	EffectiveTo   *time.Time `json:"effectiveTo,omitempty"`

	Mandatory        bool   `json:"mandatory"`
	GraceDays        int    `json:"graceDays"`
	EnforceMode      string `json:"enforceMode"`
	ReconsentTrigger string `json:"reconsentTrigger"`

	Published bool      `json:"published"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func toResponse(v *catalog.PolicyVersion, includeBody bool) policyVersionResponse {
	resp := policyVersionResponse{
		ID:               v.ID.String(),
		Tenant:           string(v.Scope.Tenant),
		Kind:             string(v.Scope.Kind),
		Audience:         string(v.Scope.Audience),
		Language:         string(v.Scope.Language),
		Version:          v.Version,
		Title:            v.Title,
		EffectiveFrom:    v.EffectiveFrom,
		EffectiveTo:      v.EffectiveTo,
		Mandatory:        v.Mandatory,
		GraceDays:        v.GraceDays,
		EnforceMode:      string(v.EnforceMode),
		ReconsentTrigger: string(v.ReconsentTrigger),
		Published:        v.Published,
		CreatedAt:        v.CreatedAt,
		UpdatedAt:        v.UpdatedAt,
	}
	if includeBody {
		resp.Body = v.Body
	}
	return resp
}

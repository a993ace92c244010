package domain

import (
	"fmt"
	"strings"

	dErrors "assent/pkg/domain-errors"
)

// Tenant is the organizational scope under which policies are defined.
// Multi-brand deployments run several tenants against one catalog.
type Tenant string

// DocKind identifies the class of legal document a policy version belongs to.
//
// Usage: construct via ParseDocKind at trust boundaries to enforce the
// allowlist; direct casting bypasses validation.
type DocKind string

// Supported document kinds.
const (
	DocKindPrivacy   DocKind = "privacy"
	DocKindTerms     DocKind = "terms"
	DocKindCookie    DocKind = "cookie"
	DocKindMarketing DocKind = "marketing"
)

// validDocKinds is the single source of truth for valid document kinds.
var validDocKinds = map[DocKind]bool{
	DocKindPrivacy:   true,
	DocKindTerms:     true,
	DocKindCookie:    true,
	DocKindMarketing: true,
}

// ParseDocKind constructs a DocKind from external input.
//
// Errors: returns CodeInvalidInput when the value is empty or unsupported.
func ParseDocKind(s string) (DocKind, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "document kind cannot be empty")
	}
	k := DocKind(s)
	if !validDocKinds[k] {
		return "", dErrors.New(dErrors.CodeInvalidInput, "unsupported document kind: "+s)
	}
	return k, nil
}

// IsValid reports whether the kind is one of the supported document kinds.
func (k DocKind) IsValid() bool {
	return validDocKinds[k]
}

func (k DocKind) String() string {
	return string(k)
}

// Audience is the category of consenting party. A policy version published for
// one audience must never be served to another; resolution is audience-exact.
type Audience string

// Supported audiences.
const (
	AudienceCustomer Audience = "customer"
	AudienceEmployee Audience = "employee"
	AudiencePartner  Audience = "partner"
)

var validAudiences = map[Audience]bool{
	AudienceCustomer: true,
	AudienceEmployee: true,
	AudiencePartner:  true,
}

// ParseAudience constructs an Audience from external input.
//
// Errors: returns CodeInvalidInput when the value is empty or unsupported.
func ParseAudience(s string) (Audience, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "audience cannot be empty")
	}
	a := Audience(s)
	if !validAudiences[a] {
		return "", dErrors.New(dErrors.CodeInvalidInput, "unsupported audience: "+s)
	}
	return a, nil
}

// IsValid reports whether the audience is one of the supported audiences.
func (a Audience) IsValid() bool {
	return validAudiences[a]
}

func (a Audience) String() string {
	return string(a)
}

// Language is a lowercase ISO 639-1 language tag ("en", "th", ...).
type Language string

// ParseLanguage normalizes and validates a language tag.
func ParseLanguage(s string) (Language, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) != 2 || s[0] < 'a' || s[0] > 'z' || s[1] < 'a' || s[1] > 'z' {
		return "", dErrors.New(dErrors.CodeInvalidInput, "language must be a two-letter ISO 639-1 tag")
	}
	return Language(s), nil
}

func (l Language) String() string {
	return string(l)
}

// Scope is the resolution key for the policy catalog: one scope holds at most
// one currently-effective published version at any instant.
type Scope struct {
	Tenant   Tenant
	Kind     DocKind
	Audience Audience
	Language Language
}

// ParseScope validates all four scope components from external input.
func ParseScope(tenant, kind, audience, language string) (Scope, error) {
	if strings.TrimSpace(tenant) == "" {
		return Scope{}, dErrors.New(dErrors.CodeInvalidInput, "tenant cannot be empty")
	}
	k, err := ParseDocKind(kind)
	if err != nil {
		return Scope{}, err
	}
	a, err := ParseAudience(audience)
	if err != nil {
		return Scope{}, err
	}
	l, err := ParseLanguage(language)
	if err != nil {
		return Scope{}, err
	}
	return Scope{Tenant: Tenant(tenant), Kind: k, Audience: a, Language: l}, nil
}

func (s Scope) String() string {
	return fmt.Sprintf("%s/%s/%s/%s", s.Tenant, s.Kind, s.Audience, s.Language)
}

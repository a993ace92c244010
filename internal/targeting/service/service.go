// Package service orchestrates targeting override administration: identity
// hashing, target validation, last-writer-wins replacement, and audit
// emission.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"assent/internal/catalog"
	"assent/internal/targeting"
	targetingstore "assent/internal/targeting/store"
	"assent/pkg/domain"
	dErrors "assent/pkg/domain-errors"
	"assent/pkg/platform/audit"
	"assent/pkg/platform/privacy"
	"assent/pkg/platform/sentinel"
	"assent/pkg/requestcontext"
)

// Catalog is the slice of the catalog the targeting service needs: an
// override must point at an existing version, published or not.
type Catalog interface {
	FindByID(ctx context.Context, id domain.PolicyVersionID) (*catalog.PolicyVersion, error)
}

// CreateOverrideInput carries a validated admin submission. RawIdentity is
// the cleartext identity; it is hashed here and never stored.
type CreateOverrideInput struct {
	RawIdentity   string
	PolicyVersion domain.PolicyVersionID
	StartDate     *time.Time
	EndDate       *time.Time
}

type Service struct {
	store   targetingstore.Store
	catalog Catalog
	hasher  *privacy.IdentityHasher
	auditor audit.Store
	logger  *slog.Logger
}

func New(
	store targetingstore.Store,
	cat Catalog,
	hasher *privacy.IdentityHasher,
	auditor audit.Store,
	logger *slog.Logger,
) *Service {
	return &Service{store: store, catalog: cat, hasher: hasher, auditor: auditor, logger: logger}
}

// Create pins an identity to a policy version, deactivating any prior active
// override for the same identity.
func (s *Service) Create(ctx context.Context, input CreateOverrideInput) (*targeting.Override, error) {
	hash, _, err := s.hasher.Hash(input.RawIdentity)
	if err != nil {
		return nil, err
	}

	target, err := s.catalog.FindByID(ctx, input.PolicyVersion)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "target policy version not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load target policy version")
	}

	now := requestcontext.Now(ctx)
	override := &targeting.Override{
		ID:            domain.NewOverrideID(),
		IdentityHash:  hash,
		PolicyVersion: target.ID,
		StartDate:     input.StartDate,
		EndDate:       input.EndDate,
		Active:        true,
		CreatedAt:     now,
		CreatedBy:     requestcontext.ActorID(ctx),
	}
	if err := override.Validate(); err != nil {
		return nil, err
	}

	if err := s.store.CreateReplacingActive(ctx, override); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store override")
	}

	s.emit(ctx, audit.EventOverrideCreated, override, target)
	s.logger.Info("targeting override created",
		"override_id", override.ID.String(),
		"policy_version_id", target.ID.String(),
		"created_by", override.CreatedBy,
	)
	return override, nil
}

// Deactivate retires an override by ID. Idempotent for already-inactive
// overrides.
func (s *Service) Deactivate(ctx context.Context, id domain.OverrideID) (*targeting.Override, error) {
	now := requestcontext.Now(ctx)
	if err := s.store.Deactivate(ctx, id, now); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "override not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to deactivate override")
	}

	override, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to reload override")
	}

	s.emit(ctx, audit.EventOverrideDeactivated, override, nil)
	s.logger.Info("targeting override deactivated", "override_id", id.String())
	return override, nil
}

// ListForIdentity returns an identity's full override history, newest first.
func (s *Service) ListForIdentity(ctx context.Context, rawIdentity string) ([]*targeting.Override, error) {
	hash, _, err := s.hasher.Hash(rawIdentity)
	if err != nil {
		return nil, err
	}
	overrides, err := s.store.ListByIdentity(ctx, hash)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list overrides")
	}
	return overrides, nil
}

func (s *Service) emit(ctx context.Context, action audit.AuditEvent, override *targeting.Override, target *catalog.PolicyVersion) {
	event := audit.Event{
		Category:         action.Category(),
		Timestamp:        requestcontext.Now(ctx),
		Action:           string(action),
		IdentityHash:     override.IdentityHash,
		PolicyVersionRef: override.PolicyVersion.String(),
		RequestID:        requestcontext.RequestID(ctx),
		ActorID:          requestcontext.ActorID(ctx),
	}
	if target != nil {
		event.Tenant = string(target.Scope.Tenant)
		event.Kind = string(target.Scope.Kind)
		event.Audience = string(target.Scope.Audience)
		event.Language = string(target.Scope.Language)
	}
	if err := s.auditor.Append(ctx, event); err != nil {
		s.logger.Error("failed to append audit event",
			"action", string(action),
			"override_id", override.ID.String(),
			"error", err,
		)
	}
}

// Package service orchestrates catalog mutations: validation, conflict
// translation, and audit emission. Handlers stay thin; stores stay dumb.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"assent/internal/catalog"
	"assent/internal/catalog/metrics"
	catalogstore "assent/internal/catalog/store"
	"assent/pkg/domain"
	dErrors "assent/pkg/domain-errors"
	"assent/pkg/platform/audit"
	"assent/pkg/platform/sentinel"
	"assent/pkg/requestcontext"
)

// CreateVersionInput carries a validated admin submission.
type CreateVersionInput struct {
	Scope            domain.Scope
	Version          string
	Title            string
	Body             string
	EffectiveFrom    time.Time
	EffectiveTo      *time.Time
	Mandatory        bool
	GraceDays        int
	EnforceMode      catalog.EnforceMode
	ReconsentTrigger catalog.ReconsentTrigger
	Publish          bool
}

type Service struct {
	store   catalogstore.Store
	auditor audit.Store
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func New(store catalogstore.Store, auditor audit.Store, m *metrics.Metrics, logger *slog.Logger) *Service {
	return &Service{store: store, auditor: auditor, metrics: m, logger: logger}
}

// Create registers a new policy version. Publication can happen atomically at
// creation or later via Publish.
func (s *Service) Create(ctx context.Context, input CreateVersionInput) (*catalog.PolicyVersion, error) {
	now := requestcontext.Now(ctx)
	version := &catalog.PolicyVersion{
		ID:               domain.NewPolicyVersionID(),
		Scope:            input.Scope,
		Version:          input.Version,
		Title:            input.Title,
		Body:             input.Body,
		EffectiveFrom:    input.EffectiveFrom,
		EffectiveTo:      input.EffectiveTo,
		Mandatory:        input.Mandatory,
		GraceDays:        input.GraceDays,
		EnforceMode:      input.EnforceMode,
		ReconsentTrigger: input.ReconsentTrigger,
		Published:        input.Publish,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := version.Validate(); err != nil {
		s.metrics.IncrementOperation("create", "invalid")
		return nil, err
	}

	if err := s.store.Create(ctx, version); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			s.metrics.IncrementOperation("create", "conflict")
			return nil, dErrors.New(dErrors.CodeConflict,
				"version string already used or published window overlaps an existing version")
		}
		s.metrics.IncrementOperation("create", "error")
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store policy version")
	}

	s.emit(ctx, audit.EventPolicyVersionCreated, version)
	if input.Publish {
		s.emit(ctx, audit.EventPolicyVersionPublished, version)
	}
	s.metrics.IncrementOperation("create", "success")
	s.logger.Info("policy version created",
		"policy_version_id", version.ID.String(),
		"scope", version.Scope.String(),
		"version", version.Version,
		"published", version.Published,
	)
	return version, nil
}

// Publish makes a version eligible for resolution. Fails when another
// published version of the same scope overlaps its window.
func (s *Service) Publish(ctx context.Context, id domain.PolicyVersionID) (*catalog.PolicyVersion, error) {
	return s.setPublished(ctx, id, true)
}

// Unpublish retires a version without deleting it; ledger entries keep
// pointing at it.
func (s *Service) Unpublish(ctx context.Context, id domain.PolicyVersionID) (*catalog.PolicyVersion, error) {
	return s.setPublished(ctx, id, false)
}

func (s *Service) setPublished(ctx context.Context, id domain.PolicyVersionID, published bool) (*catalog.PolicyVersion, error) {
	operation := "unpublish"
	event := audit.EventPolicyVersionUnpublished
	if published {
		operation = "publish"
		event = audit.EventPolicyVersionPublished
	}

	now := requestcontext.Now(ctx)
	if err := s.store.SetPublished(ctx, id, published, now); err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			s.metrics.IncrementOperation(operation, "not_found")
			return nil, dErrors.New(dErrors.CodeNotFound, "policy version not found")
		case errors.Is(err, sentinel.ErrConflict):
			s.metrics.IncrementOperation(operation, "conflict")
			return nil, dErrors.New(dErrors.CodeConflict,
				"publishing would overlap another published version's window")
		default:
			s.metrics.IncrementOperation(operation, "error")
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update publication state")
		}
	}

	version, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to reload policy version")
	}

	s.emit(ctx, event, version)
	s.metrics.IncrementOperation(operation, "success")
	s.logger.Info("policy version publication changed",
		"policy_version_id", id.String(),
		"published", published,
	)
	return version, nil
}

// Get returns a version by ID regardless of publication state.
func (s *Service) Get(ctx context.Context, id domain.PolicyVersionID) (*catalog.PolicyVersion, error) {
	version, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "policy version not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load policy version")
	}
	return version, nil
}

// List returns every version of a scope, drafts included, newest first.
func (s *Service) List(ctx context.Context, scope domain.Scope) ([]*catalog.PolicyVersion, error) {
	versions, err := s.store.ListByScope(ctx, scope)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list policy versions")
	}
	return versions, nil
}

func (s *Service) emit(ctx context.Context, action audit.AuditEvent, version *catalog.PolicyVersion) {
	event := audit.Event{
		Category:         action.Category(),
		Timestamp:        requestcontext.Now(ctx),
		Action:           string(action),
		Tenant:           string(version.Scope.Tenant),
		Kind:             string(version.Scope.Kind),
		Audience:         string(version.Scope.Audience),
		Language:         string(version.Scope.Language),
		PolicyVersionRef: version.ID.String(),
		RequestID:        requestcontext.RequestID(ctx),
		ActorID:          requestcontext.ActorID(ctx),
	}
	if err := s.auditor.Append(ctx, event); err != nil {
		// Catalog mutations are admin actions; the write itself succeeded, so
		// log and continue rather than failing the request.
		s.logger.Error("failed to append audit event",
			"action", string(action),
			"policy_version_id", version.ID.String(),
			"error", err,
		)
	}
}

// Package service is the read side of the public consent surface: version
// resolution, compliance checks and consent history. Identities arrive raw
// and are hashed here, at the boundary; nothing below this layer sees the
// cleartext value.
package service

import (
	"context"
	"log/slog"

	"assent/internal/acceptance"
	"assent/internal/catalog"
	"assent/internal/compliance"
	"assent/internal/consent/metrics"
	"assent/internal/ledger"
	ledgerstore "assent/internal/ledger/store"
	"assent/pkg/domain"
	dErrors "assent/pkg/domain-errors"
	"assent/pkg/platform/privacy"
)

// Resolver answers which policy version is effective for a scope, honoring
// per-identity targeting when an identity hash is supplied.
type Resolver interface {
	Resolve(ctx context.Context, scope domain.Scope, identity domain.IdentityHash) (*catalog.PolicyVersion, error)
}

// Evaluator derives the compliance state for an identity within a scope.
type Evaluator interface {
	Evaluate(ctx context.Context, scope domain.Scope, identity domain.IdentityHash) (*compliance.Result, error)
}

// Acceptor records a consent submission.
type Acceptor interface {
	Accept(ctx context.Context, input acceptance.AcceptInput) (*ledger.ConsentRecord, error)
}

type Service struct {
	resolver  Resolver
	evaluator Evaluator
	acceptor  Acceptor
	ledger    ledgerstore.Store
	hasher    *privacy.IdentityHasher
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

func New(
	resolver Resolver,
	evaluator Evaluator,
	acceptor Acceptor,
	ledgerStore ledgerstore.Store,
	hasher *privacy.IdentityHasher,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Service {
	return &Service{
		resolver:  resolver,
		evaluator: evaluator,
		acceptor:  acceptor,
		ledger:    ledgerStore,
		hasher:    hasher,
		metrics:   m,
		logger:    logger,
	}
}

// ResolveEffective returns the version the given caller must be shown. The
// identity is optional: without it only the published catalog is consulted,
// with it an active targeting override may redirect the answer.
func (s *Service) ResolveEffective(ctx context.Context, scope domain.Scope, rawIdentity string) (*catalog.PolicyVersion, error) {
	var hash domain.IdentityHash
	if rawIdentity != "" {
		var err error
		if hash, _, err = s.hasher.Hash(rawIdentity); err != nil {
			return nil, err
		}
	}

	version, err := s.resolver.Resolve(ctx, scope, hash)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			s.metrics.IncrementResolution("not_found")
		} else {
			s.metrics.IncrementResolution("error")
		}
		return nil, err
	}

	s.metrics.IncrementResolution("resolved")
	return version, nil
}

// Status evaluates the caller's compliance state against the effective
// version. The answer is always computed fresh; the state cache serves bulk
// readers, not this endpoint.
func (s *Service) Status(ctx context.Context, scope domain.Scope, rawIdentity string) (*compliance.Result, error) {
	hash, _, err := s.hasher.Hash(rawIdentity)
	if err != nil {
		return nil, err
	}

	result, err := s.evaluator.Evaluate(ctx, scope, hash)
	if err != nil {
		return nil, err
	}

	s.metrics.IncrementEvaluation(string(result.State))
	return result, nil
}

// Accept records consent for the effective version of the scope.
//
// A duplicate submission is not an error from the caller's point of view:
// the existing record comes back flagged as already consented.
func (s *Service) Accept(ctx context.Context, scope domain.Scope, rawIdentity, claimedVersionID string) (*ledger.ConsentRecord, bool, error) {
	input := acceptance.AcceptInput{Scope: scope, RawIdentity: rawIdentity}
	if claimedVersionID != "" {
		id, err := domain.ParsePolicyVersionID(claimedVersionID)
		if err != nil {
			return nil, false, err
		}
		input.ClaimedVersionID = id
	}

	record, err := s.acceptor.Accept(ctx, input)
	switch {
	case err == nil:
		s.metrics.IncrementAcceptance("recorded")
		return record, false, nil
	case dErrors.HasCode(err, dErrors.CodeAlreadyConsented):
		s.metrics.IncrementAcceptance("duplicate")
		return record, true, nil
	case dErrors.HasCode(err, dErrors.CodeVersionMismatch),
		dErrors.HasCode(err, dErrors.CodeInvalidInput),
		dErrors.HasCode(err, dErrors.CodeNotFound):
		s.metrics.IncrementAcceptance("rejected")
		return nil, false, err
	default:
		s.metrics.IncrementAcceptance("error")
		return nil, false, err
	}
}

// History returns the identity's full consent trail, newest first. An
// identity with no records gets an empty list, not an error.
func (s *Service) History(ctx context.Context, rawIdentity string) ([]*ledger.ConsentRecord, error) {
	hash, _, err := s.hasher.Hash(rawIdentity)
	if err != nil {
		return nil, err
	}

	records, err := s.ledger.ListByIdentity(ctx, hash)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load consent history")
	}
	return records, nil
}

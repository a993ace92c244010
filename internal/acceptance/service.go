// Package acceptance records consent: the only writer of the ledger. The
// ledger insert and its audit outbox entry share one transaction; everything
// else (cache invalidation, metrics) is best-effort after commit.
package acceptance

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"assent/internal/catalog"
	"assent/internal/compliance"
	"assent/internal/ledger"
	ledgerstore "assent/internal/ledger/store"
	"assent/pkg/domain"
	dErrors "assent/pkg/domain-errors"
	"assent/pkg/platform/audit"
	"assent/pkg/platform/privacy"
	"assent/pkg/platform/sentinel"
	"assent/pkg/requestcontext"
)

var tracer = otel.Tracer("assent/acceptance")

// VersionResolver re-resolves the effective version at acceptance time. A
// caller-supplied version id is only a claim; the resolver's answer is the
// truth.
type VersionResolver interface {
	Resolve(ctx context.Context, scope domain.Scope, identity domain.IdentityHash) (*catalog.PolicyVersion, error)
}

// AcceptInput carries one consent submission.
type AcceptInput struct {
	Scope       domain.Scope
	RawIdentity string

	// ClaimedVersionID is the version the client believes it is accepting.
	// Optional; when set it must match the freshly resolved version or the
	// submission is rejected with CodeVersionMismatch.
	ClaimedVersionID domain.PolicyVersionID
}

type Service struct {
	resolver VersionResolver
	ledger   ledgerstore.Store
	auditor  audit.Store
	hasher   *privacy.IdentityHasher
	runner   TxRunner
	cache    *compliance.StateCache

	// snapshotContent freezes the accepted body onto the ledger row.
	snapshotContent bool

	logger *slog.Logger
}

func New(
	resolver VersionResolver,
	ledgerStore ledgerstore.Store,
	auditor audit.Store,
	hasher *privacy.IdentityHasher,
	runner TxRunner,
	cache *compliance.StateCache,
	snapshotContent bool,
	logger *slog.Logger,
) *Service {
	return &Service{
		resolver:        resolver,
		ledger:          ledgerStore,
		auditor:         auditor,
		hasher:          hasher,
		runner:          runner,
		cache:           cache,
		snapshotContent: snapshotContent,
		logger:          logger,
	}
}

// Accept records consent for the resolved effective version.
//
// Idempotence: when the identity already holds a record for the resolved
// version, the existing record is returned together with
// CodeAlreadyConsented. Callers treat that pair as success.
func (s *Service) Accept(ctx context.Context, input AcceptInput) (*ledger.ConsentRecord, error) {
	ctx, span := tracer.Start(ctx, "acceptance.Accept", trace.WithAttributes(
		attribute.String("scope", input.Scope.String()),
	))
	defer span.End()

	hash, lastFour, err := s.hasher.Hash(input.RawIdentity)
	if err != nil {
		return nil, err
	}

	version, err := s.resolver.Resolve(ctx, input.Scope, hash)
	if err != nil {
		return nil, err
	}

	if !input.ClaimedVersionID.IsNil() && input.ClaimedVersionID != version.ID {
		return nil, dErrors.New(dErrors.CodeVersionMismatch,
			"the submitted version is no longer the effective one; re-fetch and retry")
	}

	// Fast path for retries. The unique constraint below is the guarantee;
	// this read just spares the transaction.
	if existing, err := s.ledger.FindByIdentityAndVersion(ctx, hash, version.ID); err == nil {
		return existing, dErrors.New(dErrors.CodeAlreadyConsented,
			"consent for this version is already on record")
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check consent history")
	}

	record := s.buildRecord(ctx, version, hash, lastFour)

	err = s.runner.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.ledger.Create(txCtx, record); err != nil {
			return err
		}
		return s.auditor.Append(txCtx, s.acceptedEvent(ctx, record))
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			// A concurrent submission won the race. Surface its record.
			existing, findErr := s.ledger.FindByIdentityAndVersion(ctx, hash, version.ID)
			if findErr != nil {
				return nil, dErrors.Wrap(findErr, dErrors.CodeInternal, "failed to load concurrent consent record")
			}
			s.emitDuplicate(ctx, existing)
			return existing, dErrors.New(dErrors.CodeAlreadyConsented,
				"consent for this version is already on record")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record consent")
	}

	if err := s.cache.Invalidate(ctx, hash, input.Scope); err != nil {
		s.logger.WarnContext(ctx, "failed to invalidate compliance cache",
			"consent_ref", record.ConsentRef,
			"error", err,
		)
	}

	span.SetAttributes(attribute.String("consent_ref", record.ConsentRef))
	s.logger.InfoContext(ctx, "consent recorded",
		"consent_ref", record.ConsentRef,
		"scope", input.Scope.String(),
		"policy_version", record.PolicyVersion,
		"client_ip", privacy.AnonymizeIP(requestcontext.ClientIP(ctx)),
	)
	return record, nil
}

func (s *Service) buildRecord(ctx context.Context, version *catalog.PolicyVersion, hash domain.IdentityHash, lastFour string) *ledger.ConsentRecord {
	userAgent := requestcontext.UserAgent(ctx)
	record := &ledger.ConsentRecord{
		ID:              domain.NewConsentRecordID(),
		ConsentRef:      newConsentRef(ctx),
		IdentityHash:    hash,
		IdentityLast4:   lastFour,
		Scope:           version.Scope,
		PolicyVersionID: version.ID,
		PolicyVersion:   version.Version,
		AcceptedAt:      requestcontext.Now(ctx),
		IPAddress:       privacy.AnonymizeIP(requestcontext.ClientIP(ctx)),
		UserAgent:       userAgent,
		DeviceSummary:   summarizeDevice(userAgent),
	}
	if s.snapshotContent {
		snapshot := version.Body
		record.ContentSnapshot = &snapshot
	}
	return record
}

// newConsentRef builds the externally quotable receipt number: the acceptance
// date plus a random suffix. The ledger's unique constraint on consent_ref is
// the uniqueness guarantee; the randomness just makes collisions vanishingly
// rare.
func newConsentRef(ctx context.Context) string {
	suffix := make([]byte, 6)
	_, _ = rand.Read(suffix)
	return fmt.Sprintf("CR-%s-%s",
		requestcontext.Now(ctx).UTC().Format("20060102"),
		hex.EncodeToString(suffix),
	)
}

func (s *Service) acceptedEvent(ctx context.Context, record *ledger.ConsentRecord) audit.Event {
	return audit.Event{
		Category:         audit.EventConsentAccepted.Category(),
		Timestamp:        record.AcceptedAt,
		Action:           string(audit.EventConsentAccepted),
		Tenant:           string(record.Scope.Tenant),
		Kind:             string(record.Scope.Kind),
		Audience:         string(record.Scope.Audience),
		Language:         string(record.Scope.Language),
		IdentityHash:     record.IdentityHash,
		PolicyVersionRef: record.PolicyVersionID.String(),
		ConsentRef:       record.ConsentRef,
		RequestID:        requestcontext.RequestID(ctx),
	}
}

// emitDuplicate records the losing side of a concurrent duplicate outside the
// transaction; losing this event is acceptable, losing the acceptance is not.
func (s *Service) emitDuplicate(ctx context.Context, existing *ledger.ConsentRecord) {
	event := audit.Event{
		Category:         audit.EventConsentDuplicate.Category(),
		Timestamp:        requestcontext.Now(ctx),
		Action:           string(audit.EventConsentDuplicate),
		Tenant:           string(existing.Scope.Tenant),
		Kind:             string(existing.Scope.Kind),
		Audience:         string(existing.Scope.Audience),
		Language:         string(existing.Scope.Language),
		IdentityHash:     existing.IdentityHash,
		PolicyVersionRef: existing.PolicyVersionID.String(),
		ConsentRef:       existing.ConsentRef,
		RequestID:        requestcontext.RequestID(ctx),
	}
	if err := s.auditor.Append(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to append duplicate audit event", "error", err)
	}
}

package compliance

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"assent/internal/catalog"
	"assent/internal/ledger"
	ledgerstore "assent/internal/ledger/store"
	"assent/pkg/domain"
	dErrors "assent/pkg/domain-errors"
	"assent/pkg/platform/sentinel"
	"assent/pkg/requestcontext"
)

// VersionResolver is the slice of the resolver the evaluator needs.
type VersionResolver interface {
	Resolve(ctx context.Context, scope domain.Scope, identity domain.IdentityHash) (*catalog.PolicyVersion, error)
}

// Evaluator runs the consent state machine for one (identity, scope) pair.
type Evaluator struct {
	resolver VersionResolver
	ledger   ledgerstore.Store

	// renewalInterval bounds how long a periodic-trigger consent stays valid
	// without re-acceptance.
	renewalInterval time.Duration

	logger *slog.Logger
}

func NewEvaluator(resolver VersionResolver, ledgerStore ledgerstore.Store, renewalInterval time.Duration, logger *slog.Logger) *Evaluator {
	return &Evaluator{
		resolver:        resolver,
		ledger:          ledgerStore,
		renewalInterval: renewalInterval,
		logger:          logger,
	}
}

// Evaluate resolves the effective version for the scope and judges the
// identity's latest consent against it.
//
// Errors: CodeNotFound when no version is effective for the scope; the
// compliance question is meaningless without one.
func (e *Evaluator) Evaluate(ctx context.Context, scope domain.Scope, identity domain.IdentityHash) (*Result, error) {
	version, err := e.resolver.Resolve(ctx, scope, identity)
	if err != nil {
		return nil, err
	}

	latest, err := e.ledger.LatestByIdentityAndScope(ctx, identity, scope)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to query consent history")
	}

	return evaluate(version, latest, requestcontext.Now(ctx), e.renewalInterval), nil
}

// evaluate is the pure state machine: current effective version, latest
// consent record (nil for none), the evaluation instant, and the periodic
// renewal interval in.
func evaluate(version *catalog.PolicyVersion, latest *ledger.ConsentRecord, now time.Time, renewalInterval time.Duration) *Result {
	if latest == nil {
		return &Result{
			State:            StateNeverConsented,
			EffectiveVersion: version,
			Reason:           "no consent on record for this scope",
		}
	}

	if latest.PolicyVersionID == version.ID {
		if version.ReconsentTrigger == catalog.TriggerPeriodic && renewalInterval > 0 {
			renewalDue := latest.AcceptedAt.Add(renewalInterval)
			if !now.Before(renewalDue) {
				return &Result{
					State:            StateMustReconsent,
					EffectiveVersion: version,
					Reason:           "periodic renewal interval elapsed since acceptance",
				}
			}
		}
		return &Result{
			State:            StateConsented,
			EffectiveVersion: version,
			Reason:           "consent matches the effective version",
		}
	}

	// Consent is for an older version of the scope.
	if deadline := version.GraceDeadline(); deadline != nil && now.Before(*deadline) {
		return &Result{
			State:            StateInGrace,
			EffectiveVersion: version,
			GraceExpiresAt:   deadline,
			Reason:           "a newer version is effective; grace period still open",
		}
	}

	return &Result{
		State:            StateMustReconsent,
		EffectiveVersion: version,
		Reason:           "a newer version is effective and no grace remains",
	}
}

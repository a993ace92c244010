// Package resolver answers "which policy version applies to this identity in
// this scope right now". Resolution is a pure read: no writes, no caching,
// the same inputs at the same instant always give the same answer.
package resolver

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"assent/internal/catalog"
	catalogstore "assent/internal/catalog/store"
	targetingstore "assent/internal/targeting/store"
	"assent/pkg/domain"
	dErrors "assent/pkg/domain-errors"
	"assent/pkg/platform/sentinel"
	"assent/pkg/requestcontext"
)

var tracer = otel.Tracer("assent/resolver")

type Resolver struct {
	catalog   catalogstore.Store
	targeting targetingstore.Store
	logger    *slog.Logger
}

func New(cat catalogstore.Store, targeting targetingstore.Store, logger *slog.Logger) *Resolver {
	return &Resolver{catalog: cat, targeting: targeting, logger: logger}
}

// Resolve returns the policy version in force for the scope at the request
// time, honoring an active targeting override when an identity is given.
//
// Order:
//  1. An active override whose window contains "now" wins, published or not.
//  2. Otherwise the published version whose effective window contains "now".
//  3. Ties (legacy data predating the overlap constraint) break to the
//     latest effectiveFrom, then latest createdAt, then largest ID. The
//     order is total so concurrent resolutions always agree.
//
/// There is no cross-audience or cross-language fallback: a miss is
// CodeNotFound, never a neighbor's document.
func (r *Resolver) Resolve(ctx context.Context, scope domain.Scope, identity domain.IdentityHash) (*catalog.PolicyVersion, error) {
	ctx, span := tracer.Start(ctx, "resolver.Resolve", trace.WithAttributes(
		attribute.String("scope", scope.String()),
		attribute.Bool("has_identity", !identity.IsZero()),
	))
	defer span.End()

	now := requestcontext.Now(ctx)

	if !identity.IsZero() {
		version, err := r.resolveOverride(ctx, scope, identity)
		if err != nil {
			return nil, err
		}
		if version != nil {
			span.SetAttributes(attribute.Bool("via_override", true))
			return version, nil
		}
	}

	matches, err := r.catalog.FindEffective(ctx, scope, now)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to query effective versions")
	}
	if len(matches) == 0 {
		return nil, dErrors.New(dErrors.CodeNotFound,
			"no policy version is effective for the requested scope")
	}
	if len(matches) > 1 {
		// Pre-constraint data. FindEffective orders by the tie-break, so the
		// head is the winner; log because this data should be repaired.
		r.logger.WarnContext(ctx, "multiple effective versions for scope",
			"scope", scope.String(),
			"count", len(matches),
			"picked", matches[0].ID.String(),
		)
	}
	return matches[0], nil
}

// resolveOverride returns the override's target version, nil when no override
// applies at the request time.
func (r *Resolver) resolveOverride(ctx context.Context, scope domain.Scope, identity domain.IdentityHash) (*catalog.PolicyVersion, error) {
	override, err := r.targeting.FindActive(ctx, identity)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to query targeting override")
	}

	now := requestcontext.Now(ctx)
	if !override.AppliesAt(now) {
		return nil, nil
	}

	version, err := r.catalog.FindByID(ctx, override.PolicyVersion)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			// An override pointing at a vanished version is corrupt data, not
			// a caller mistake.
			return nil, dErrors.New(dErrors.CodeInvariantViolation,
				"targeting override references a missing policy version")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load override target")
	}

	// An override targeting a different scope does not speak for this
	// resolution; fall through to the catalog default.
	if version.Scope != scope {
		return nil, nil
	}
	return version, nil
}

// Package sweep recomputes compliance states for every identity the ledger
// knows about. It is the writer of the compliance state cache: dashboards and
// bulk exports read what the sweep left behind, while the live status
// endpoint always evaluates fresh.
package sweep

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"assent/internal/compliance"
	"assent/internal/ledger"
	ledgerstore "assent/internal/ledger/store"
	"assent/pkg/domain"
	dErrors "assent/pkg/domain-errors"
	"assent/pkg/requestcontext"
)

// Evaluator derives the compliance state for one identity and scope pair.
type Evaluator interface {
	Evaluate(ctx context.Context, scope domain.Scope, identity domain.IdentityHash) (*compliance.Result, error)
}

// StateWriter persists a computed state for bulk readers.
type StateWriter interface {
	Set(ctx context.Context, identity domain.IdentityHash, scope domain.Scope, state *compliance.CachedState) error
}

const (
	defaultInterval = 24 * time.Hour
	defaultPageSize = 500
)

// Worker walks the ledger's identity and scope pairs on a fixed interval and
// re-evaluates each one. All evaluations within one pass share a single
// reference time, so a pass is a consistent snapshot even when it takes a
// while.
type Worker struct {
	ledger    ledgerstore.Store
	evaluator Evaluator
	states    StateWriter
	metrics   *Metrics
	logger    *slog.Logger

	interval time.Duration
	pageSize int

	// now stands in for time.Now in tests.
	now func() time.Time
}

func NewWorker(ledgerStore ledgerstore.Store, evaluator Evaluator, states StateWriter, metrics *Metrics, logger *slog.Logger) *Worker {
	return &Worker{
		ledger:    ledgerStore,
		evaluator: evaluator,
		states:    states,
		metrics:   metrics,
		logger:    logger,
		interval:  defaultInterval,
		pageSize:  defaultPageSize,
		now:       time.Now,
	}
}

// WithInterval overrides the pass interval. Zero or negative keeps the
// default.
func (w *Worker) WithInterval(interval time.Duration) *Worker {
	if interval > 0 {
		w.interval = interval
	}
	return w
}

// Run sweeps immediately, then on every tick until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	if err := w.sweep(ctx); err != nil && !errors.Is(err, context.Canceled) {
		w.logger.ErrorContext(ctx, "compliance sweep failed", "error", err.Error())
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.sweep(ctx); err != nil && !errors.Is(err, context.Canceled) {
				w.logger.ErrorContext(ctx, "compliance sweep failed", "error", err.Error())
			}
		}
	}
}

// Sweep runs a single pass. Exposed for operational one-shot runs.
func (w *Worker) Sweep(ctx context.Context) error {
	return w.sweep(ctx)
}

func (w *Worker) sweep(ctx context.Context) error {
	started := w.now()
	ctx = requestcontext.WithTime(ctx, started)

	var evaluated, flagged, skipped int
	for offset := 0; ; offset += w.pageSize {
		pairs, err := w.ledger.DistinctIdentityScopes(ctx, w.pageSize, offset)
		if err != nil {
			w.metrics.incrementSweep("failed")
			return err
		}
		if len(pairs) == 0 {
			break
		}

		for _, pair := range pairs {
			if err := ctx.Err(); err != nil {
				return err
			}
			result, err := w.evaluatePair(ctx, pair)
			if err != nil {
				// A retired scope leaves ledger rows behind with nothing to
				// evaluate against. Skip it; the history stays auditable.
				if dErrors.HasCode(err, dErrors.CodeNotFound) {
					skipped++
					continue
				}
				w.metrics.incrementSweep("failed")
				return err
			}
			evaluated++
			if result.State == compliance.StateInGrace || result.State == compliance.StateMustReconsent {
				flagged++
			}
		}

		if len(pairs) < w.pageSize {
			break
		}
	}

	elapsed := time.Since(started)
	w.metrics.incrementSweep("completed")
	w.metrics.observeDuration(elapsed.Seconds())
	w.logger.InfoContext(ctx, "compliance sweep completed",
		"evaluated", evaluated,
		"flagged", flagged,
		"skipped", skipped,
		"elapsed", elapsed.String(),
	)
	return nil
}

func (w *Worker) evaluatePair(ctx context.Context, pair ledger.IdentityScope) (*compliance.Result, error) {
	result, err := w.evaluator.Evaluate(ctx, pair.Scope, pair.IdentityHash)
	if err != nil {
		return nil, err
	}
	w.metrics.incrementPair(string(result.State))

	cached := &compliance.CachedState{
		State:          result.State,
		GraceExpiresAt: result.GraceExpiresAt,
		EvaluatedAt:    requestcontext.Now(ctx),
	}
	if err := w.states.Set(ctx, pair.IdentityHash, pair.Scope, cached); err != nil {
		// The cache is an accelerator, not the record. Keep sweeping.
		w.logger.WarnContext(ctx, "failed to cache compliance state",
			"scope", pair.Scope.String(),
			"error", err.Error(),
		)
	}
	return result, nil
}

package compliance

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"assent/internal/catalog"
	catalogstore "assent/internal/catalog/store"
	"assent/internal/ledger"
	ledgerstore "assent/internal/ledger/store"
	"assent/internal/resolver"
	targetingstore "assent/internal/targeting/store"
	"assent/pkg/domain"
	dErrors "assent/pkg/domain-errors"
	"assent/pkg/requestcontext"
)

var (
	h1        = domain.IdentityHash("aabbccdd00112233")
	thaiScope = domain.Scope{
		Tenant:   "acme",
		Kind:     domain.DocKindPrivacy,
		Audience: domain.AudienceCustomer,
		Language: "th",
	}
)

const renewalInterval = 365 * 24 * time.Hour

type fixture struct {
	evaluator *Evaluator
	catalog   *catalogstore.MemoryStore
	ledger    *ledgerstore.MemoryStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cat := catalogstore.NewMemory()
	led := ledgerstore.NewMemory()
	res := resolver.New(cat, targetingstore.NewMemory(), logger)
	return &fixture{
		evaluator: NewEvaluator(res, led, renewalInterval, logger),
		catalog:   cat,
		ledger:    led,
	}
}

func (f *fixture) addVersion(t *testing.T, version string, from time.Time, to *time.Time, graceDays int, trigger catalog.ReconsentTrigger) *catalog.PolicyVersion {
	t.Helper()
	v := &catalog.PolicyVersion{
		ID:               domain.NewPolicyVersionID(),
		Scope:            thaiScope,
		Version:          version,
		Title:            "Privacy Policy " + version,
		EffectiveFrom:    from,
		EffectiveTo:      to,
		Mandatory:        true,
		GraceDays:        graceDays,
		EnforceMode:      catalog.EnforceModeActionGate,
		ReconsentTrigger: trigger,
		Published:        true,
		CreatedAt:        from.AddDate(0, 0, -30),
		UpdatedAt:        from.AddDate(0, 0, -30),
	}
	require.NoError(t, f.catalog.Create(context.Background(), v))
	return v
}

var refSeq int

func (f *fixture) accept(t *testing.T, identity domain.IdentityHash, v *catalog.PolicyVersion, acceptedAt time.Time) *ledger.ConsentRecord {
	t.Helper()
	refSeq++
	record := &ledger.ConsentRecord{
		ID:              domain.NewConsentRecordID(),
		ConsentRef:      fmt.Sprintf("CR-20260101-%06d", refSeq),
		IdentityHash:    identity,
		IdentityLast4:   "0123",
		Scope:           v.Scope,
		PolicyVersionID: v.ID,
		PolicyVersion:   v.Version,
		AcceptedAt:      acceptedAt,
	}
	require.NoError(t, f.ledger.Create(context.Background(), record))
	return record
}

func at(t time.Time) context.Context {
	return requestcontext.WithTime(context.Background(), t)
}

func TestEvaluate_NeverConsented(t *testing.T) {
	f := newFixture(t)
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	f.addVersion(t, "1.0", from, nil, 5, catalog.TriggerVersionChange)

	result, err := f.evaluator.Evaluate(at(from.AddDate(0, 1, 0)), thaiScope, h1)
	require.NoError(t, err)
	assert.Equal(t, StateNeverConsented, result.State)
	assert.True(t, result.RequiresAction(), "mandatory version demands action")
	assert.Nil(t, result.GraceExpiresAt)
}

func TestEvaluate_Consented(t *testing.T) {
	f := newFixture(t)
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	v1 := f.addVersion(t, "1.0", from, nil, 5, catalog.TriggerVersionChange)
	f.accept(t, h1, v1, from.AddDate(0, 0, 3))

	result, err := f.evaluator.Evaluate(at(from.AddDate(0, 6, 0)), thaiScope, h1)
	require.NoError(t, err)
	assert.Equal(t, StateConsented, result.State)
	assert.False(t, result.RequiresAction())
	assert.Equal(t, v1.ID, result.EffectiveVersion.ID)
}

func TestEvaluate_NoEffectiveVersionIsNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.evaluator.Evaluate(at(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)), thaiScope, h1)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestEvaluate_GracePeriodBoundary(t *testing.T) {
	f := newFixture(t)
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cut := t0.AddDate(0, 0, 60)
	v1 := f.addVersion(t, "1.0", t0, &cut, 0, catalog.TriggerVersionChange)
	f.accept(t, h1, v1, t0.AddDate(0, 0, 1))

	// Version change at T with graceDays=5.
	effectiveFrom := cut
	v2 := f.addVersion(t, "2.0", effectiveFrom, nil, 5, catalog.TriggerVersionChange)
	_ = v2

	t.Run("T+4 days is IN_GRACE", func(t *testing.T) {
		result, err := f.evaluator.Evaluate(at(effectiveFrom.AddDate(0, 0, 4)), thaiScope, h1)
		require.NoError(t, err)
		assert.Equal(t, StateInGrace, result.State)
		require.NotNil(t, result.GraceExpiresAt)
		assert.True(t, result.GraceExpiresAt.Equal(effectiveFrom.AddDate(0, 0, 5)))
	})

	t.Run("T+6 days is MUST_RECONSENT", func(t *testing.T) {
		result, err := f.evaluator.Evaluate(at(effectiveFrom.AddDate(0, 0, 6)), thaiScope, h1)
		require.NoError(t, err)
		assert.Equal(t, StateMustReconsent, result.State)
		assert.Nil(t, result.GraceExpiresAt)
		assert.True(t, result.RequiresAction())
	})
}

func TestEvaluate_ZeroGraceGoesStraightToReconsent(t *testing.T) {
	f := newFixture(t)
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cut := t0.AddDate(0, 0, 30)
	v1 := f.addVersion(t, "1.0", t0, &cut, 0, catalog.TriggerVersionChange)
	f.accept(t, h1, v1, t0)
	f.addVersion(t, "2.0", cut, nil, 0, catalog.TriggerVersionChange)

	result, err := f.evaluator.Evaluate(at(cut.Add(time.Hour)), thaiScope, h1)
	require.NoError(t, err)
	assert.Equal(t, StateMustReconsent, result.State)
}

func TestEvaluate_PeriodicRenewal(t *testing.T) {
	f := newFixture(t)
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	v1 := f.addVersion(t, "1.0", t0, nil, 5, catalog.TriggerPeriodic)
	f.accept(t, h1, v1, t0.AddDate(0, 0, 10))

	t.Run("within the interval", func(t *testing.T) {
		result, err := f.evaluator.Evaluate(at(t0.AddDate(0, 11, 0)), thaiScope, h1)
		require.NoError(t, err)
		assert.Equal(t, StateConsented, result.State)
	})

	t.Run("interval elapsed", func(t *testing.T) {
		result, err := f.evaluator.Evaluate(at(t0.AddDate(1, 1, 0)), thaiScope, h1)
		require.NoError(t, err)
		assert.Equal(t, StateMustReconsent, result.State)
		assert.Contains(t, result.Reason, "renewal")
	})
}

func TestEvaluate_VersionChangeTriggerIgnoresAge(t *testing.T) {
	f := newFixture(t)
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	v1 := f.addVersion(t, "1.0", t0, nil, 5, catalog.TriggerVersionChange)
	f.accept(t, h1, v1, t0)

	// Years later the same version still satisfies a version_change trigger.
	result, err := f.evaluator.Evaluate(at(t0.AddDate(3, 0, 0)), thaiScope, h1)
	require.NoError(t, err)
	assert.Equal(t, StateConsented, result.State)
}

// The §8-style walkthrough: consent to 1.0 at T0, 2.0 published with
// effectiveFrom T0+30d and graceDays 7.
func TestEvaluate_UpgradeScenario(t *testing.T) {
	f := newFixture(t)
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	effective2 := t0.AddDate(0, 0, 30)

	v1 := f.addVersion(t, "1.0", t0.AddDate(0, 0, -10), &effective2, 0, catalog.TriggerVersionChange)
	f.accept(t, h1, v1, t0)
	v2 := f.addVersion(t, "2.0", effective2, nil, 7, catalog.TriggerVersionChange)

	result, err := f.evaluator.Evaluate(at(t0.AddDate(0, 0, 32)), thaiScope, h1)
	require.NoError(t, err)
	assert.Equal(t, StateInGrace, result.State)
	require.NotNil(t, result.GraceExpiresAt)
	assert.True(t, result.GraceExpiresAt.Equal(t0.AddDate(0, 0, 37)), "grace runs out 37 days after T0")

	result, err = f.evaluator.Evaluate(at(t0.AddDate(0, 0, 40)), thaiScope, h1)
	require.NoError(t, err)
	assert.Equal(t, StateMustReconsent, result.State)

	f.accept(t, h1, v2, t0.AddDate(0, 0, 41))
	result, err = f.evaluator.Evaluate(at(t0.AddDate(0, 0, 42)), thaiScope, h1)
	require.NoError(t, err)
	assert.Equal(t, StateConsented, result.State)
}

func TestEvaluate_StrictModeForbidsGrace(t *testing.T) {
	f := newFixture(t)
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cut := t0.AddDate(0, 0, 30)
	v1 := f.addVersion(t, "1.0", t0, &cut, 0, catalog.TriggerVersionChange)
	f.accept(t, h1, v1, t0)

	strict := &catalog.PolicyVersion{
		ID:               domain.NewPolicyVersionID(),
		Scope:            thaiScope,
		Version:          "2.0",
		Title:            "Privacy Policy 2.0",
		EffectiveFrom:    cut,
		Mandatory:        true,
		GraceDays:        0,
		EnforceMode:      catalog.EnforceModeStrict,
		ReconsentTrigger: catalog.TriggerVersionChange,
		Published:        true,
		CreatedAt:        t0,
		UpdatedAt:        t0,
	}
	require.NoError(t, f.catalog.Create(context.Background(), strict))

	result, err := f.evaluator.Evaluate(at(cut.Add(time.Minute)), thaiScope, h1)
	require.NoError(t, err)
	assert.Equal(t, StateMustReconsent, result.State, "strict enforcement never grants grace")
}

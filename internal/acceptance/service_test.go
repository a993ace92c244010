package acceptance

import (
	"context"
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
	"assent/internal/targeting"
	targetingstore "assent/internal/targeting/store"
	"assent/pkg/domain"
	dErrors "assent/pkg/domain-errors"
	"assent/pkg/platform/audit"
	auditmem "assent/pkg/platform/audit/store/memory"
	"assent/pkg/platform/privacy"
	"assent/pkg/platform/sentinel"
	"assent/pkg/requestcontext"
)

const rawIdentity = "1234567890123"

var testScope = domain.Scope{
	Tenant:   "acme",
	Kind:     domain.DocKindPrivacy,
	Audience: domain.AudienceCustomer,
	Language: "en",
}

type fixture struct {
	svc       *Service
	catalog   *catalogstore.MemoryStore
	targeting *targetingstore.MemoryStore
	ledger    *ledgerstore.MemoryStore
	auditor   *auditmem.InMemoryStore
	hasher    *privacy.IdentityHasher
}

func newFixture(t *testing.T, snapshot bool) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	hasher, err := privacy.NewIdentityHasher("unit-test-salt")
	require.NoError(t, err)

	cat := catalogstore.NewMemory()
	tgt := targetingstore.NewMemory()
	led := ledgerstore.NewMemory()
	auditor := auditmem.NewInMemoryStore()
	res := resolver.New(cat, tgt, logger)

	svc := New(res, led, auditor, hasher, NoopTxRunner{}, nil, snapshot, logger)
	return &fixture{svc: svc, catalog: cat, targeting: tgt, ledger: led, auditor: auditor, hasher: hasher}
}

func (f *fixture) addVersion(t *testing.T, version string, from time.Time, published bool) *catalog.PolicyVersion {
	t.Helper()
	v := &catalog.PolicyVersion{
		ID:               domain.NewPolicyVersionID(),
		Scope:            testScope,
		Version:          version,
		Title:            "Privacy Policy " + version,
		Body:             "the policy text " + version,
		EffectiveFrom:    from,
		Mandatory:        true,
		GraceDays:        5,
		EnforceMode:      catalog.EnforceModeActionGate,
		ReconsentTrigger: catalog.TriggerVersionChange,
		Published:        published,
		CreatedAt:        from.AddDate(0, 0, -7),
		UpdatedAt:        from.AddDate(0, 0, -7),
	}
	require.NoError(t, f.catalog.Create(context.Background(), v))
	return v
}

func requestCtx(now time.Time) context.Context {
	ctx := requestcontext.WithTime(context.Background(), now)
	ctx = requestcontext.WithClientMetadata(ctx, "203.0.113.77",
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	return ctx
}

func TestAccept_HappyPath(t *testing.T) {
	f := newFixture(t, false)
	from := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	version := f.addVersion(t, "1.0", from, true)
	now := from.AddDate(0, 1, 0)

	record, err := f.svc.Accept(requestCtx(now), AcceptInput{Scope: testScope, RawIdentity: rawIdentity})
	require.NoError(t, err)

	assert.Equal(t, version.ID, record.PolicyVersionID)
	assert.Equal(t, "1.0", record.PolicyVersion)
	assert.True(t, record.AcceptedAt.Equal(now))
	assert.Regexp(t, `^CR-20260301-[0-9a-f]{12}$`, record.ConsentRef)
	assert.Equal(t, "0123", record.IdentityLast4)
	assert.NotContains(t, record.IdentityHash.String(), rawIdentity)
	assert.Equal(t, "203.0.113.0", record.IPAddress, "stored IP is anonymized")
	assert.Contains(t, record.DeviceSummary, "Chrome")
	assert.Contains(t, record.DeviceSummary, "Linux")
	assert.Nil(t, record.ContentSnapshot)

	events, err := f.auditor.ListByIdentity(context.Background(), record.IdentityHash)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, string(audit.EventConsentAccepted), events[0].Action)
	assert.Equal(t, record.ConsentRef, events[0].ConsentRef)
}

func TestAccept_SnapshotsContentWhenConfigured(t *testing.T) {
	f := newFixture(t, true)
	from := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	f.addVersion(t, "1.0", from, true)

	record, err := f.svc.Accept(requestCtx(from.AddDate(0, 1, 0)), AcceptInput{Scope: testScope, RawIdentity: rawIdentity})
	require.NoError(t, err)
	require.NotNil(t, record.ContentSnapshot)
	assert.Equal(t, "the policy text 1.0", *record.ContentSnapshot)
}

func TestAccept_IsIdempotent(t *testing.T) {
	f := newFixture(t, false)
	from := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	f.addVersion(t, "1.0", from, true)
	ctx := requestCtx(from.AddDate(0, 1, 0))

	first, err := f.svc.Accept(ctx, AcceptInput{Scope: testScope, RawIdentity: rawIdentity})
	require.NoError(t, err)

	second, err := f.svc.Accept(ctx, AcceptInput{Scope: testScope, RawIdentity: rawIdentity})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeAlreadyConsented))
	require.NotNil(t, second, "the prior record rides along with the rejection")
	assert.Equal(t, first.ConsentRef, second.ConsentRef)
	assert.True(t, second.AcceptedAt.Equal(first.AcceptedAt))

	history, err := f.ledger.ListByIdentity(ctx, first.IdentityHash)
	require.NoError(t, err)
	assert.Len(t, history, 1, "exactly one ledger row exists")
}

// racingLedger makes the first pre-check miss even though the winner's row is
// already present, reproducing a submission that loses the race between the
// pre-check and the insert.
type racingLedger struct {
	*ledgerstore.MemoryStore
	misses int
}

func (l *racingLedger) FindByIdentityAndVersion(ctx context.Context, identity domain.IdentityHash, versionID domain.PolicyVersionID) (*ledger.ConsentRecord, error) {
	if l.misses > 0 {
		l.misses--
		return nil, sentinel.ErrNotFound
	}
	return l.MemoryStore.FindByIdentityAndVersion(ctx, identity, versionID)
}

func TestAccept_RaceLoserGetsWinnersRecord(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	hasher, err := privacy.NewIdentityHasher("unit-test-salt")
	require.NoError(t, err)

	cat := catalogstore.NewMemory()
	racing := &racingLedger{MemoryStore: ledgerstore.NewMemory()}
	auditor := auditmem.NewInMemoryStore()
	res := resolver.New(cat, targetingstore.NewMemory(), logger)
	svc := New(res, racing, auditor, hasher, NoopTxRunner{}, nil, false, logger)

	from := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	version := &catalog.PolicyVersion{
		ID:               domain.NewPolicyVersionID(),
		Scope:            testScope,
		Version:          "1.0",
		Title:            "Privacy Policy 1.0",
		EffectiveFrom:    from,
		EnforceMode:      catalog.EnforceModeActionGate,
		ReconsentTrigger: catalog.TriggerVersionChange,
		Published:        true,
		CreatedAt:        from,
		UpdatedAt:        from,
	}
	require.NoError(t, cat.Create(context.Background(), version))
	ctx := requestCtx(from.AddDate(0, 1, 0))

	// The winner's row is already in the ledger.
	hash, _, err := hasher.Hash(rawIdentity)
	require.NoError(t, err)
	winner := &ledger.ConsentRecord{
		ID:              domain.NewConsentRecordID(),
		ConsentRef:      "CR-20260301-aaaaaaaaaaaa",
		IdentityHash:    hash,
		IdentityLast4:   "0123",
		Scope:           testScope,
		PolicyVersionID: version.ID,
		PolicyVersion:   "1.0",
		AcceptedAt:      from.AddDate(0, 0, 20),
	}
	require.NoError(t, racing.MemoryStore.Create(ctx, winner))

	// The loser's pre-check misses, the insert conflicts, and the winner's
	// record comes back with AlreadyConsented.
	racing.misses = 1
	record, err := svc.Accept(ctx, AcceptInput{Scope: testScope, RawIdentity: rawIdentity})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeAlreadyConsented))
	require.NotNil(t, record)
	assert.Equal(t, winner.ConsentRef, record.ConsentRef)

	events, err := auditor.ListByIdentity(ctx, hash)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, string(audit.EventConsentDuplicate), events[0].Action)
}

func TestAccept_VersionMismatch(t *testing.T) {
	f := newFixture(t, false)
	from := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	f.addVersion(t, "1.0", from, true)

	_, err := f.svc.Accept(requestCtx(from.AddDate(0, 1, 0)), AcceptInput{
		Scope:            testScope,
		RawIdentity:      rawIdentity,
		ClaimedVersionID: domain.NewPolicyVersionID(),
	})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeVersionMismatch))
}

func TestAccept_ClaimedVersionMatchSucceeds(t *testing.T) {
	f := newFixture(t, false)
	from := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	version := f.addVersion(t, "1.0", from, true)

	record, err := f.svc.Accept(requestCtx(from.AddDate(0, 1, 0)), AcceptInput{
		Scope:            testScope,
		RawIdentity:      rawIdentity,
		ClaimedVersionID: version.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, version.ID, record.PolicyVersionID)
}

func TestAccept_NoEffectiveVersion(t *testing.T) {
	f := newFixture(t, false)

	_, err := f.svc.Accept(requestCtx(time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)),
		AcceptInput{Scope: testScope, RawIdentity: rawIdentity})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestAccept_InvalidIdentityRejectedBeforeHashing(t *testing.T) {
	f := newFixture(t, false)
	from := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	f.addVersion(t, "1.0", from, true)

	_, err := f.svc.Accept(requestCtx(from.AddDate(0, 1, 0)),
		AcceptInput{Scope: testScope, RawIdentity: "ab"})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func TestAccept_OverrideTargetIsAcceptable(t *testing.T) {
	f := newFixture(t, false)
	from := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	f.addVersion(t, "1.0", from, true)
	pilot := f.addVersion(t, "2.0-pilot", from.AddDate(1, 0, 0), false)

	hash, _, err := f.hasher.Hash(rawIdentity)
	require.NoError(t, err)
	require.NoError(t, f.targeting.CreateReplacingActive(context.Background(), &targeting.Override{
		ID:            domain.NewOverrideID(),
		IdentityHash:  hash,
		PolicyVersion: pilot.ID,
		Active:        true,
		CreatedAt:     from,
	}))

	record, err := f.svc.Accept(requestCtx(from.AddDate(0, 1, 0)),
		AcceptInput{Scope: testScope, RawIdentity: rawIdentity})
	require.NoError(t, err)
	assert.Equal(t, pilot.ID, record.PolicyVersionID,
		"an override target is acceptable even while unpublished")
}

//go:build integration

package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"assent/internal/catalog"
	catalogstore "assent/internal/catalog/store"
	"assent/pkg/domain"
	"assent/pkg/platform/sentinel"
	"assent/pkg/testutil/containers"
)

func newPostgresFixture(t *testing.T) (*PostgresStore, domain.PolicyVersionID) {
	t.Helper()
	pg := containers.SharedPostgres(t)
	ctx := context.Background()
	require.NoError(t, pg.TruncateAll(ctx))

	// Overrides carry a foreign key into the catalog.
	target := &catalog.PolicyVersion{
		ID: domain.NewPolicyVersionID(),
		Scope: domain.Scope{
			Tenant:   "acme",
			Kind:     domain.DocKindPrivacy,
			Audience: domain.AudienceCustomer,
			Language: "en",
		},
		Version:          "1.0",
		Title:            "Privacy Policy 1.0",
		Body:             "body",
		EffectiveFrom:    time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		EnforceMode:      catalog.EnforceModeNone,
		ReconsentTrigger: catalog.TriggerManual,
		CreatedAt:        time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		UpdatedAt:        time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, catalogstore.NewPostgres(pg.DB).Create(ctx, target))

	return NewPostgres(pg.DB), target.ID
}

func TestPostgresStore_LastWriterWins(t *testing.T) {
	ctx := context.Background()
	store, versionID := newPostgresFixture(t)
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	first := newOverride(testIdentity, base)
	first.PolicyVersion = versionID
	require.NoError(t, store.CreateReplacingActive(ctx, first))

	second := newOverride(testIdentity, base.Add(time.Hour))
	second.PolicyVersion = versionID
	require.NoError(t, store.CreateReplacingActive(ctx, second))

	active, err := store.FindActive(ctx, testIdentity)
	require.NoError(t, err)
	assert.Equal(t, second.ID, active.ID)

	retired, err := store.FindByID(ctx, first.ID)
	require.NoError(t, err)
	assert.False(t, retired.Active)
	require.NotNil(t, retired.DeactivatedAt)
}

func TestPostgresStore_DeactivateAndList(t *testing.T) {
	ctx := context.Background()
	store, versionID := newPostgresFixture(t)
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	override := newOverride(testIdentity, base)
	override.PolicyVersion = versionID
	start := base.AddDate(0, 0, 1)
	end := base.AddDate(0, 0, 10)
	override.StartDate = &start
	override.EndDate = &end
	require.NoError(t, store.CreateReplacingActive(ctx, override))

	require.NoError(t, store.Deactivate(ctx, override.ID, base.Add(time.Hour)))
	_, err := store.FindActive(ctx, testIdentity)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)

	// Idempotent for already-inactive rows, error for unknown IDs.
	require.NoError(t, store.Deactivate(ctx, override.ID, base.Add(2*time.Hour)))
	assert.ErrorIs(t, store.Deactivate(ctx, domain.NewOverrideID(), base), sentinel.ErrNotFound)

	listed, err := store.ListByIdentity(ctx, testIdentity)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	require.NotNil(t, listed[0].StartDate)
	assert.True(t, listed[0].StartDate.Equal(start))
	require.NotNil(t, listed[0].EndDate)
	assert.True(t, listed[0].EndDate.Equal(end))
}

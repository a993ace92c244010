package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"assent/internal/catalog"
	"assent/pkg/domain"
	"assent/pkg/platform/sentinel"
)

var testScope = domain.Scope{
	Tenant:   "acme",
	Kind:     domain.DocKindPrivacy,
	Audience: domain.AudienceCustomer,
	Language: "en",
}

func newVersion(t *testing.T, version string, from time.Time, to *time.Time, published bool) *catalog.PolicyVersion {
	t.Helper()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return &catalog.PolicyVersion{
		ID:               domain.NewPolicyVersionID(),
		Scope:            testScope,
		Version:          version,
		Title:            "Privacy Policy " + version,
		Body:             "body",
		EffectiveFrom:    from,
		EffectiveTo:      to,
		Mandatory:        true,
		GraceDays:        5,
		EnforceMode:      catalog.EnforceModeActionGate,
		ReconsentTrigger: catalog.TriggerVersionChange,
		Published:        published,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

func ptrTime(t time.Time) *time.Time { return &t }

func TestMemoryStore_CreateAndFind(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	v1 := newVersion(t, "1.0", time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), nil, true)
	require.NoError(t, store.Create(ctx, v1))

	found, err := store.FindByID(ctx, v1.ID)
	require.NoError(t, err)
	assert.Equal(t, v1.Version, found.Version)
	assert.Equal(t, testScope, found.Scope)

	_, err = store.FindByID(ctx, domain.NewPolicyVersionID())
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestMemoryStore_CreateRejectsDuplicateVersion(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	from := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.Create(ctx, newVersion(t, "1.0", from, ptrTime(from.AddDate(0, 1, 0)), true)))

	dup := newVersion(t, "1.0", from.AddDate(0, 2, 0), nil, false)
	assert.ErrorIs(t, store.Create(ctx, dup), sentinel.ErrConflict)
}

func TestMemoryStore_CreateRejectsOverlappingPublishedWindows(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	from := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.Create(ctx, newVersion(t, "1.0", from, nil, true)))

	overlapping := newVersion(t, "2.0", from.AddDate(0, 1, 0), nil, true)
	assert.ErrorIs(t, store.Create(ctx, overlapping), sentinel.ErrConflict)

	// An unpublished draft may overlap freely.
	draft := newVersion(t, "2.1", from.AddDate(0, 1, 0), nil, false)
	assert.NoError(t, store.Create(ctx, draft))
}

func TestMemoryStore_CreateAllowsAdjacentWindows(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	from := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	cut := from.AddDate(0, 1, 0)
	require.NoError(t, store.Create(ctx, newVersion(t, "1.0", from, ptrTime(cut), true)))

	// [from, cut) and [cut, nil) share the boundary instant without overlap.
	next := newVersion(t, "2.0", cut, nil, true)
	assert.NoError(t, store.Create(ctx, next))
}

func TestMemoryStore_FindEffective(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	from := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	cut := from.AddDate(0, 1, 0)
	v1 := newVersion(t, "1.0", from, ptrTime(cut), true)
	v2 := newVersion(t, "2.0", cut, nil, true)
	draft := newVersion(t, "3.0-draft", cut.AddDate(0, 1, 0), nil, false)
	require.NoError(t, store.Create(ctx, v1))
	require.NoError(t, store.Create(ctx, v2))
	require.NoError(t, store.Create(ctx, draft))

	inFirstWindow, err := store.FindEffective(ctx, testScope, from.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, inFirstWindow, 1)
	assert.Equal(t, v1.ID, inFirstWindow[0].ID)

	// The boundary instant belongs to the successor window.
	atCut, err := store.FindEffective(ctx, testScope, cut)
	require.NoError(t, err)
	require.Len(t, atCut, 1)
	assert.Equal(t, v2.ID, atCut[0].ID)

	beforeAll, err := store.FindEffective(ctx, testScope, from.Add(-time.Hour))
	require.NoError(t, err)
	assert.Empty(t, beforeAll)

	otherScope := testScope
	otherScope.Audience = domain.AudienceEmployee
	crossAudience, err := store.FindEffective(ctx, otherScope, cut)
	require.NoError(t, err)
	assert.Empty(t, crossAudience, "versions must never leak across audiences")
}

func TestMemoryStore_ListByScopeOrdering(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	from := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	older := newVersion(t, "1.0", from, ptrTime(from.AddDate(0, 1, 0)), true)
	newer := newVersion(t, "2.0", from.AddDate(0, 1, 0), nil, true)
	require.NoError(t, store.Create(ctx, older))
	require.NoError(t, store.Create(ctx, newer))

	listed, err := store.ListByScope(ctx, testScope)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, newer.ID, listed[0].ID)
	assert.Equal(t, older.ID, listed[1].ID)
}

func TestMemoryStore_SetPublished(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	from := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	live := newVersion(t, "1.0", from, nil, true)
	draft := newVersion(t, "2.0", from.AddDate(0, 1, 0), nil, false)
	require.NoError(t, store.Create(ctx, live))
	require.NoError(t, store.Create(ctx, draft))

	// Publishing an overlapping draft is rejected while v1 is live.
	err := store.SetPublished(ctx, draft.ID, true, from.AddDate(0, 2, 0))
	assert.ErrorIs(t, err, sentinel.ErrConflict)

	// After retiring v1 the draft can go live.
	require.NoError(t, store.SetPublished(ctx, live.ID, false, from.AddDate(0, 2, 0)))
	require.NoError(t, store.SetPublished(ctx, draft.ID, true, from.AddDate(0, 2, 0)))

	promoted, err := store.FindByID(ctx, draft.ID)
	require.NoError(t, err)
	assert.True(t, promoted.Published)

	err = store.SetPublished(ctx, domain.NewPolicyVersionID(), true, from)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestMemoryStore_CopiesOnReadAndWrite(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	v1 := newVersion(t, "1.0", time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), nil, true)
	require.NoError(t, store.Create(ctx, v1))

	v1.Title = "mutated after create"
	found, err := store.FindByID(ctx, v1.ID)
	require.NoError(t, err)
	assert.Equal(t, "Privacy Policy 1.0", found.Title)

	found.Published = false
	again, err := store.FindByID(ctx, v1.ID)
	require.NoError(t, err)
	assert.True(t, again.Published)
}

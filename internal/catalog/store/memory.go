package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"assent/internal/catalog"
	"assent/pkg/domain"
	"assent/pkg/platform/sentinel"
)

// MemoryStore is the in-memory catalog used by unit tests and local
// development. It enforces the same invariants as the Postgres store.
type MemoryStore struct {
	mu       sync.RWMutex
	versions map[domain.PolicyVersionID]*catalog.PolicyVersion
}

func NewMemory() *MemoryStore {
	return &MemoryStore{versions: make(map[domain.PolicyVersionID]*catalog.PolicyVersion)}
}

func (s *MemoryStore) Create(_ context.Context, version *catalog.PolicyVersion) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.versions {
		if existing.Scope != version.Scope {
			continue
		}
		if existing.Version == version.Version {
			return sentinel.ErrConflict
		}
		if version.Published && existing.Published && existing.Overlaps(version) {
			return sentinel.ErrConflict
		}
	}

	copied := *version
	s.versions[version.ID] = &copied
	return nil
}

func (s *MemoryStore) FindByID(_ context.Context, id domain.PolicyVersionID) (*catalog.PolicyVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	version, ok := s.versions[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *version
	return &copied, nil
}

func (s *MemoryStore) FindEffective(_ context.Context, scope domain.Scope, now time.Time) ([]*catalog.PolicyVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matches []*catalog.PolicyVersion
	for _, version := range s.versions {
		if version.Scope == scope && version.Published && version.EffectiveAt(now) {
			copied := *version
			matches = append(matches, &copied)
		}
	}
	sortByRecency(matches)
	return matches, nil
}

func (s *MemoryStore) ListByScope(_ context.Context, scope domain.Scope) ([]*catalog.PolicyVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matches []*catalog.PolicyVersion
	for _, version := range s.versions {
		if version.Scope == scope {
			copied := *version
			matches = append(matches, &copied)
		}
	}
	sortByRecency(matches)
	return matches, nil
}

func (s *MemoryStore) SetPublished(_ context.Context, id domain.PolicyVersionID, published bool, updatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	version, ok := s.versions[id]
	if !ok {
		return sentinel.ErrNotFound
	}

	if published && !version.Published {
		for _, existing := range s.versions {
			if existing.ID != id && existing.Scope == version.Scope &&
				existing.Published && existing.Overlaps(version) {
				return sentinel.ErrConflict
			}
		}
	}

	version.Published = published
	version.UpdatedAt = updatedAt
	return nil
}

// sortByRecency orders by effectiveFrom descending, then createdAt
// descending, then ID. Matches the resolver tie-break and the Postgres
// ORDER BY.
func sortByRecency(versions []*catalog.PolicyVersion) {
	sort.Slice(versions, func(i, j int) bool {
		a, b := versions[i], versions[j]
		if !a.EffectiveFrom.Equal(b.EffectiveFrom) {
			return a.EffectiveFrom.After(b.EffectiveFrom)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID.String() > b.ID.String()
	})
}

package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"assent/internal/targeting"
	"assent/pkg/domain"
	"assent/pkg/platform/sentinel"
)

// MemoryStore is the in-memory override store used by unit tests and local
// development.
type MemoryStore struct {
	mu        sync.RWMutex
	overrides map[domain.OverrideID]*targeting.Override
}

func NewMemory() *MemoryStore {
	return &MemoryStore{overrides: make(map[domain.OverrideID]*targeting.Override)}
}

func (s *MemoryStore) CreateReplacingActive(_ context.Context, override *targeting.Override) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.overrides {
		if existing.IdentityHash == override.IdentityHash && existing.Active {
			existing.Active = false
			deactivated := override.CreatedAt
			existing.DeactivatedAt = &deactivated
		}
	}

	copied := *override
	s.overrides[override.ID] = &copied
	return nil
}

func (s *MemoryStore) FindActive(_ context.Context, identity domain.IdentityHash) (*targeting.Override, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, override := range s.overrides {
		if override.IdentityHash == identity && override.Active {
			copied := *override
			return &copied, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *MemoryStore) FindByID(_ context.Context, id domain.OverrideID) (*targeting.Override, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	override, ok := s.overrides[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *override
	return &copied, nil
}

func (s *MemoryStore) Deactivate(_ context.Context, id domain.OverrideID, deactivatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	override, ok := s.overrides[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	if !override.Active {
		return nil
	}
	override.Active = false
	override.DeactivatedAt = &deactivatedAt
	return nil
}

func (s *MemoryStore) ListByIdentity(_ context.Context, identity domain.IdentityHash) ([]*targeting.Override, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matches []*targeting.Override
	for _, override := range s.overrides {
		if override.IdentityHash == identity {
			copied := *override
			matches = append(matches, &copied)
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID.String() > b.ID.String()
	})
	return matches, nil
}

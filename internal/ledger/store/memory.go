package store

import (
	"context"
	"sort"
	"sync"

	"assent/internal/ledger"
	"assent/pkg/domain"
	"assent/pkg/platform/sentinel"
)

// MemoryStore is the in-memory ledger used by unit tests and local
// development. It enforces the same uniqueness invariants as Postgres.
type MemoryStore struct {
	mu      sync.RWMutex
	records []*ledger.ConsentRecord
	byRef   map[string]bool
}

func NewMemory() *MemoryStore {
	return &MemoryStore{byRef: make(map[string]bool)}
}

func (s *MemoryStore) Create(_ context.Context, record *ledger.ConsentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.byRef[record.ConsentRef] {
		return sentinel.ErrConflict
	}
	for _, existing := range s.records {
		if existing.IdentityHash == record.IdentityHash &&
			existing.PolicyVersionID == record.PolicyVersionID {
			return sentinel.ErrConflict
		}
	}

	copied := *record
	s.records = append(s.records, &copied)
	s.byRef[record.ConsentRef] = true
	return nil
}

func (s *MemoryStore) FindByIdentityAndVersion(_ context.Context, identity domain.IdentityHash, versionID domain.PolicyVersionID) (*ledger.ConsentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, record := range s.records {
		if record.IdentityHash == identity && record.PolicyVersionID == versionID {
			copied := *record
			return &copied, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *MemoryStore) LatestByIdentityAndScope(_ context.Context, identity domain.IdentityHash, scope domain.Scope) (*ledger.ConsentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *ledger.ConsentRecord
	for _, record := range s.records {
		if record.IdentityHash != identity || record.Scope != scope {
			continue
		}
		if latest == nil || record.AcceptedAt.After(latest.AcceptedAt) {
			latest = record
		}
	}
	if latest == nil {
		return nil, sentinel.ErrNotFound
	}
	copied := *latest
	return &copied, nil
}

func (s *MemoryStore) ListByIdentity(_ context.Context, identity domain.IdentityHash) ([]*ledger.ConsentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matches []*ledger.ConsentRecord
	for _, record := range s.records {
		if record.IdentityHash == identity {
			copied := *record
			matches = append(matches, &copied)
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if !a.AcceptedAt.Equal(b.AcceptedAt) {
			return a.AcceptedAt.After(b.AcceptedAt)
		}
		return a.ConsentRef > b.ConsentRef
	})
	return matches, nil
}

func (s *MemoryStore) DistinctIdentityScopes(_ context.Context, limit, offset int) ([]ledger.IdentityScope, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[ledger.IdentityScope]bool)
	var pairs []ledger.IdentityScope
	for _, record := range s.records {
		pair := ledger.IdentityScope{IdentityHash: record.IdentityHash, Scope: record.Scope}
		if !seen[pair] {
			seen[pair] = true
			pairs = append(pairs, pair)
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].IdentityHash != pairs[j].IdentityHash {
			return pairs[i].IdentityHash < pairs[j].IdentityHash
		}
		return pairs[i].Scope.String() < pairs[j].Scope.String()
	})

	if offset >= len(pairs) {
		return nil, nil
	}
	pairs = pairs[offset:]
	if limit > 0 && limit < len(pairs) {
		pairs = pairs[:limit]
	}
	return pairs, nil
}

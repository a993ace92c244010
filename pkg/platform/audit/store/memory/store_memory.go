package memory

import (
	"context"
	"sync"

	"assent/pkg/domain"
	audit "assent/pkg/platform/audit"
)

// InMemoryStore collects audit events for unit tests, keyed by identity hash.
// Catalog-only events (no identity) land under the empty key.
type InMemoryStore struct {
	mu     sync.RWMutex
	events map[domain.IdentityHash][]audit.Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{events: make(map[domain.IdentityHash][]audit.Event)}
}

func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = make(map[domain.IdentityHash][]audit.Event)
}

func (s *InMemoryStore) Append(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[event.IdentityHash] = append(s.events[event.IdentityHash], event)
	return nil
}

func (s *InMemoryStore) ListByIdentity(_ context.Context, hash domain.IdentityHash) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]audit.Event{}, s.events[hash]...), nil
}

// ListAll returns all recorded events across identities.
func (s *InMemoryStore) ListAll(_ context.Context) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var all []audit.Event
	for _, events := range s.events {
		all = append(all, events...)
	}
	return all, nil
}

package compliance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"assent/pkg/domain"
	"assent/pkg/platform/sentinel"
)

// StateCache holds precomputed compliance states in Redis. The daily sweep
// fills it; dashboards and bulk consumers read it. The live status endpoint
// always evaluates fresh, so a cold or unavailable cache only costs speed.
type StateCache struct {
	client *redis.Client
	ttl    time.Duration
}

// CachedState is the sweep's snapshot for one (identity, scope) pair.
type CachedState struct {
	State          State      `json:"state"`
	GraceExpiresAt *time.Time `json:"graceExpiresAt,omitempty"`
	EvaluatedAt    time.Time  `json:"evaluatedAt"`
}

// NewStateCache builds a cache over the given client. A nil client degrades
// to a no-op: Get misses, Set succeeds silently.
func NewStateCache(client *redis.Client, ttl time.Duration) *StateCache {
	return &StateCache{client: client, ttl: ttl}
}

func cacheKey(identity domain.IdentityHash, scope domain.Scope) string {
	return fmt.Sprintf("assent:compliance:%s:%s", identity, scope)
}

// Get returns the cached state or sentinel.ErrNotFound on a miss.
func (c *StateCache) Get(ctx context.Context, identity domain.IdentityHash, scope domain.Scope) (*CachedState, error) {
	if c == nil || c.client == nil {
		return nil, sentinel.ErrNotFound
	}

	raw, err := c.client.Get(ctx, cacheKey(identity, scope)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("read compliance cache: %w", err)
	}

	var cached CachedState
	if err := json.Unmarshal([]byte(raw), &cached); err != nil {
		return nil, fmt.Errorf("decode compliance cache entry: %w", err)
	}
	return &cached, nil
}

// Set stores the state until TTL; the next sweep refreshes it.
func (c *StateCache) Set(ctx context.Context, identity domain.IdentityHash, scope domain.Scope, state *CachedState) error {
	if c == nil || c.client == nil {
		return nil
	}
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode compliance cache entry: %w", err)
	}
	if err := c.client.Set(ctx, cacheKey(identity, scope), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("write compliance cache: %w", err)
	}
	return nil
}

// Invalidate drops a pair's entry, called after an acceptance lands so stale
// MUST_RECONSENT flags disappear immediately.
func (c *StateCache) Invalidate(ctx context.Context, identity domain.IdentityHash, scope domain.Scope) error {
	if c == nil || c.client == nil {
		return nil
	}
	if err := c.client.Del(ctx, cacheKey(identity, scope)).Err(); err != nil {
		return fmt.Errorf("invalidate compliance cache: %w", err)
	}
	return nil
}

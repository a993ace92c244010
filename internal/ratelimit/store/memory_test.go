package store

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllow_UnderAndOverLimit(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		d, err := s.Allow(ctx, "ip:203.0.113.7", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, d.Allowed)
		assert.Equal(t, 2-i, d.Remaining)
	}

	d, err := s.Allow(ctx, "ip:203.0.113.7", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 3, d.Limit)
	assert.False(t, d.ResetAt.IsZero())
}

func TestAllow_KeysAreIndependent(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	_, err := s.Allow(ctx, "ip:203.0.113.7", 1, time.Minute)
	require.NoError(t, err)

	d, err := s.Allow(ctx, "ip:203.0.113.8", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, d.Allowed, "another key has its own window")
}

func TestAllow_WindowSlides(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	current := base
	s.now = func() time.Time { return current }

	for i := 0; i < 2; i++ {
		d, err := s.Allow(ctx, "k", 2, time.Minute)
		require.NoError(t, err)
		require.True(t, d.Allowed)
	}

	current = base.Add(30 * time.Second)
	d, err := s.Allow(ctx, "k", 2, time.Minute)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.True(t, d.ResetAt.Equal(base.Add(time.Minute)), "reset when the oldest request expires")

	// Past the window the earlier requests no longer count.
	current = base.Add(61 * time.Second)
	d, err = s.Allow(ctx, "k", 2, time.Minute)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestReset(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	_, err := s.Allow(ctx, "k", 1, time.Minute)
	require.NoError(t, err)
	require.NoError(t, s.Reset(ctx, "k"))

	d, err := s.Allow(ctx, "k", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestPrune_DropsIdleKeys(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	current := base
	s.now = func() time.Time { return current }

	for i := 0; i < 5; i++ {
		_, err := s.Allow(ctx, fmt.Sprintf("ip:10.0.0.%d", i), 10, time.Minute)
		require.NoError(t, err)
	}
	require.Len(t, s.windows, 5)

	current = base.Add(2 * time.Minute)
	s.Prune()
	assert.Empty(t, s.windows)
}

func TestAllow_Concurrent(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	var wg sync.WaitGroup
	allowed := make(chan bool, 100)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, err := s.Allow(ctx, "shared", 40, time.Minute)
			require.NoError(t, err)
			allowed <- d.Allowed
		}()
	}
	wg.Wait()
	close(allowed)

	count := 0
	for ok := range allowed {
		if ok {
			count++
		}
	}
	assert.Equal(t, 40, count, "exactly the limit gets through")
}

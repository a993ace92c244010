//go:build integration

package containers

import (
	"sync"
	"testing"
)

// Manager hands out shared container instances so integration suites in one
// test binary reuse the same Postgres, Redis, and Redpanda rather than paying
// startup cost per suite. Ryuk reaps the containers when the binary exits.
var (
	postgresOnce sync.Once
	postgresInst *PostgresContainer

	redisOnce sync.Once
	redisInst *RedisContainer

	redpandaOnce sync.Once
	redpandaInst *RedpandaContainer
)

// SharedPostgres returns the singleton migrated Postgres container.
// Callers must TruncateAll between tests; the schema is shared.
func SharedPostgres(t *testing.T) *PostgresContainer {
	t.Helper()
	postgresOnce.Do(func() {
		postgresInst = NewPostgresContainer(t)
	})
	if postgresInst == nil {
		t.Fatal("postgres container failed to start in an earlier test")
	}
	return postgresInst
}

// SharedRedis returns the singleton Redis container. Callers must FlushAll
// between tests.
func SharedRedis(t *testing.T) *RedisContainer {
	t.Helper()
	redisOnce.Do(func() {
		redisInst = NewRedisContainer(t)
	})
	if redisInst == nil {
		t.Fatal("redis container failed to start in an earlier test")
	}
	return redisInst
}

// SharedRedpanda returns the singleton Redpanda broker.
func SharedRedpanda(t *testing.T) *RedpandaContainer {
	t.Helper()
	redpandaOnce.Do(func() {
		redpandaInst = NewRedpandaContainer(t)
	})
	if redpandaInst == nil {
		t.Fatal("redpanda container failed to start in an earlier test")
	}
	return redpandaInst
}

// Package ratelimit shields the HTTP surfaces from abusive clients. Limits
// are per client IP and per endpoint class; the public consent surface gets
// a tighter budget than the admin surface because it is unauthenticated and
// identity probing is the attack to blunt.
package ratelimit

import (
	"context"
	"time"

	"assent/internal/ratelimit/store"
)

// Class selects which budget applies to a route group.
type Class string

const (
	// ClassPublic covers the unauthenticated consent surface.
	ClassPublic Class = "public"
	// ClassAdmin covers the token-protected catalog and targeting surfaces.
	ClassAdmin Class = "admin"
)

// Budget is the allowance for one class.
type Budget struct {
	Limit  int
	Window time.Duration
}

// DefaultBudgets are tuned for a single instance; multiply by replica count
// for the effective fleet-wide rate.
var DefaultBudgets = map[Class]Budget{
	ClassPublic: {Limit: 60, Window: time.Minute},
	ClassAdmin:  {Limit: 300, Window: time.Minute},
}

// Store is the counter backend.
type Store interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (store.Decision, error)
}

type Limiter struct {
	store   Store
	budgets map[Class]Budget
}

func NewLimiter(s Store, budgets map[Class]Budget) *Limiter {
	if budgets == nil {
		budgets = DefaultBudgets
	}
	return &Limiter{store: s, budgets: budgets}
}

// CheckIP counts one request from ip against the class budget. A class with
// no configured budget is unlimited.
func (l *Limiter) CheckIP(ctx context.Context, ip string, class Class) (store.Decision, error) {
	budget, ok := l.budgets[class]
	if !ok || ip == "" {
		return store.Decision{Allowed: true}, nil
	}
	return l.store.Allow(ctx, string(class)+":ip:"+ip, budget.Limit, budget.Window)
}

// Package ratelimit provides fixed-window admission control keyed by an
// arbitrary string.
//
// A window opens at the first request for a key and lasts for the configured
// duration; it is not sliding. Callers depend on Limiter only, so a single
// process can use Memory while several instances share Redis.
package ratelimit

import (
	"context"
	"math"
	"time"
)

// Decision is the outcome of one Check.
type Decision struct {
	Admitted  bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Limiter admits or rejects one request for key.
type Limiter interface {
	Check(ctx context.Context, key string, limit int, window time.Duration) (Decision, error)
}

// Rule is a per-route quota.
type Rule struct {
	Limit  int
	Window time.Duration
}

// Enabled reports whether r limits anything.
func (r Rule) Enabled() bool {
	return r.Limit > 0 && r.Window > 0
}

// RetryAfter returns whole seconds until d's window resets, never less than 1.
func RetryAfter(d Decision, now time.Time) int {
	secs := int(math.Ceil(d.ResetAt.Sub(now).Seconds()))
	if secs < 1 {
		return 1
	}
	return secs
}

func decide(count int64, limit int, resetAt time.Time) Decision {
	remaining := limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Admitted:  count <= int64(limit),
		Limit:     limit,
		Remaining: remaining,
		ResetAt:   resetAt,
	}
}

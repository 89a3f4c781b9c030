package ratelimit

import (
	"context"
	"fmt"
	"log"
	"time"
)

// Decision is the outcome of a single Consume call.
type Decision struct {
	Allowed bool
	// Oldest is the oldest timestamp still inside the window. Zero when the window is empty.
	Oldest time.Time
}

// Store keeps per-key windows. Consume must prune, check and record atomically for a key.
type Store interface {
	Consume(ctx context.Context, key string, now time.Time, period time.Duration, max int) (Decision, error)
}

// Limiter is a sliding-window request counter keyed by caller.
type Limiter struct {
	store       Store
	maxRequests int
	period      time.Duration
	now         func() time.Time
}

func NewLimiter(store Store, maxRequests, periodSeconds int) *Limiter {
	if store == nil {
		store = NewMemoryStore(0)
	}
	return &Limiter{
		store:       store,
		maxRequests: maxRequests,
		period:      time.Duration(periodSeconds) * time.Second,
		now:         time.Now,
	}
}

// CheckAndConsume records a request for key if the window has room. When it does not,
// the returned message tells the caller how long to wait.
func (l *Limiter) CheckAndConsume(ctx context.Context, key string) (bool, string) {
	now := l.now()

	decision, err := l.store.Consume(ctx, key, now, l.period, l.maxRequests)
	if err != nil {
		log.Printf("[RateLimit] store error for %s, allowing request: %v", key, err)
		return true, ""
	}
	if decision.Allowed {
		return true, ""
	}

	remaining := l.period
	if !decision.Oldest.IsZero() {
		remaining = l.period - now.Sub(decision.Oldest)
	}
	return false, fmt.Sprintf("请求过于频繁，请等待 %d 秒后再试", int(remaining/time.Second))
}

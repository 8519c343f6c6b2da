// Package ratelimit provides per-source token buckets guarding outbound calls.
// Every external call must be preceded by Consume for its source name.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"prospection_backend/platform/logger"

	"golang.org/x/time/rate"
)

// waitWarnBound is the wait beyond which repeated throttling becomes worth
// surfacing. The call still proceeds after the delay rather than failing fast.
const waitWarnBound = 5 * time.Second

// Budget describes a token bucket: Points operations per Duration.
type Budget struct {
	Points   int
	Duration time.Duration
}

// Limiter manages one token bucket per named source. Safe for concurrent use
// by multiple in-flight searches.
type Limiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	budgets  map[string]Budget
	log      *logger.Logger
}

// New creates a limiter with the given per-source budgets. Sources without a
// budget, or with a non-positive one, pass through unthrottled.
func New(budgets map[string]Budget, log *logger.Logger) *Limiter {
	return &Limiter{
		limiters: make(map[string]*rate.Limiter),
		budgets:  budgets,
		log:      log,
	}
}

func (l *Limiter) limiterFor(source string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if limiter, ok := l.limiters[source]; ok {
		return limiter
	}

	budget, ok := l.budgets[source]
	if !ok || budget.Points <= 0 || budget.Duration <= 0 {
		return nil
	}

	interval := rate.Every(budget.Duration / time.Duration(budget.Points))
	limiter := rate.NewLimiter(interval, budget.Points)
	l.limiters[source] = limiter
	return limiter
}

// Consume takes one token for source, sleeping once if the bucket is empty.
// A wait above the warning bound is logged but still honored; limiter failures
// never block the call.
func (l *Limiter) Consume(ctx context.Context, source string) error {
	limiter := l.limiterFor(source)
	if limiter == nil {
		return nil
	}

	reservation := limiter.Reserve()
	if !reservation.OK() {
		return nil
	}

	delay := reservation.Delay()
	if delay == 0 {
		return nil
	}
	if delay > waitWarnBound {
		l.log.RateLimitWait(source, float64(delay.Milliseconds()))
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		reservation.Cancel()
		return ctx.Err()
	}
}

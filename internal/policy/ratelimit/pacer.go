package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Pacer spaces consecutive requests that share a key, such as page fetches
// against one source. Each key gets its own token bucket with burst 1.
type Pacer struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewPacer creates an empty Pacer.
func NewPacer() *Pacer {
	return &Pacer{limiters: make(map[string]*rate.Limiter)}
}

// Wait blocks until at least every has elapsed since the previous Wait for
// key. The first call for a key returns immediately. A non-positive every
// disables pacing.
func (p *Pacer) Wait(ctx context.Context, key string, every time.Duration) error {
	if every <= 0 {
		return nil
	}
	limit := rate.Every(every)

	p.mu.Lock()
	limiter, ok := p.limiters[key]
	if !ok {
		limiter = rate.NewLimiter(limit, 1)
		p.limiters[key] = limiter
	} else if limiter.Limit() != limit {
		limiter.SetLimit(limit)
	}
	p.mu.Unlock()

	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("pace %s: %w", key, err)
	}
	return nil
}

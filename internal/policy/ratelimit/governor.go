// Package ratelimit gates outbound operations: a shared Governor enforces
// per-class budgets against the storage sink, and a Pacer spaces requests to
// each source.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Operation classes understood by the Governor.
const (
	ClassRead  = "read"
	ClassWrite = "write"
	// ClassTotal is charged on every acquisition regardless of class.
	ClassTotal = "total"
)

// Budget permits at most Limit operations in any sliding Window. A
// non-positive Limit or Window disables the budget.
type Budget struct {
	Limit  int
	Window time.Duration
}

func (b Budget) enabled() bool {
	return b.Limit > 0 && b.Window > 0
}

// Governor enforces budgets using a sliding-window log per class. It never
// drops an acquisition, it only delays it.
type Governor struct {
	mu      sync.Mutex
	budgets map[string]Budget
	calls   map[string][]time.Time
	timeNow func() time.Time
}

// NewGovernor builds a Governor from budgets keyed by class. A budget under
// ClassTotal applies to every class.
func NewGovernor(budgets map[string]Budget) *Governor {
	copied := make(map[string]Budget, len(budgets))
	for class, b := range budgets {
		if b.enabled() {
			copied[class] = b
		}
	}
	return &Governor{
		budgets: copied,
		calls:   make(map[string][]time.Time, len(copied)),
		timeNow: time.Now,
	}
}

// Acquire blocks until one operation of class is permitted or ctx is done.
// Classes without a budget are limited only by the total budget.
func (g *Governor) Acquire(ctx context.Context, class string) error {
	for {
		wait, ok := g.reserve(class, g.timeNow())
		if ok {
			return nil
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("acquire %s: %w", class, ctx.Err())
		case <-timer.C:
		}
	}
}

// Stats returns the operations recorded in the current window for class and
// the remaining capacity. Remaining is -1 for an unlimited class.
func (g *Governor) Stats(class string) (inWindow, remaining int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	b, ok := g.budgets[class]
	if !ok {
		return 0, -1
	}
	g.evict(class, b, g.timeNow())
	inWindow = len(g.calls[class])
	return inWindow, max(0, b.Limit-inWindow)
}

// reserve records an operation at now when every applicable budget has room.
// Otherwise it returns how long until the fullest budget frees a slot.
func (g *Governor) reserve(class string, now time.Time) (time.Duration, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	classes := []string{class}
	if class != ClassTotal {
		classes = append(classes, ClassTotal)
	}

	var wait time.Duration
	charged := make([]string, 0, len(classes))
	for _, c := range classes {
		b, ok := g.budgets[c]
		if !ok {
			continue
		}
		g.evict(c, b, now)
		log := g.calls[c]
		if len(log) >= b.Limit {
			wait = max(wait, log[len(log)-b.Limit].Add(b.Window).Sub(now))
			continue
		}
		charged = append(charged, c)
	}
	if wait > 0 {
		return wait, false
	}
	for _, c := range charged {
		g.calls[c] = append(g.calls[c], now)
	}
	return 0, true
}

// evict drops timestamps at or before now-window. Must be called with the
// lock held.
func (g *Governor) evict(class string, b Budget, now time.Time) {
	cutoff := now.Add(-b.Window)
	log := g.calls[class]
	expired := 0
	for _, t := range log {
		if t.After(cutoff) {
			break
		}
		expired++
	}
	if expired > 0 {
		g.calls[class] = append(log[:0:0], log[expired:]...)
	}
}

package ratelimit

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGovernorReserveRespectsClassBudget(t *testing.T) {
	t.Parallel()

	g := NewGovernor(map[string]Budget{ClassWrite: {Limit: 2, Window: time.Minute}})
	start := time.Unix(1_700_000_000, 0)

	_, ok := g.reserve(ClassWrite, start)
	require.True(t, ok)
	_, ok = g.reserve(ClassWrite, start.Add(10*time.Second))
	require.True(t, ok)

	wait, ok := g.reserve(ClassWrite, start.Add(20*time.Second))
	require.False(t, ok)
	require.Equal(t, 40*time.Second, wait)

	_, ok = g.reserve(ClassWrite, start.Add(time.Minute))
	require.True(t, ok)

	// Unbudgeted classes pass freely.
	for range 10 {
		_, ok = g.reserve(ClassRead, start)
		require.True(t, ok)
	}
}

func TestGovernorTotalBudgetSpansClasses(t *testing.T) {
	t.Parallel()

	g := NewGovernor(map[string]Budget{
		ClassRead:  {Limit: 5, Window: time.Minute},
		ClassWrite: {Limit: 5, Window: time.Minute},
		ClassTotal: {Limit: 3, Window: 100 * time.Second},
	})
	now := time.Unix(1_700_000_000, 0)
	g.timeNow = func() time.Time { return now.Add(time.Second) }

	for _, class := range []string{ClassRead, ClassWrite, ClassRead} {
		_, ok := g.reserve(class, now)
		require.True(t, ok)
	}
	wait, ok := g.reserve(ClassWrite, now.Add(time.Second))
	require.False(t, ok)
	require.Equal(t, 99*time.Second, wait)

	inWindow, remaining := g.Stats(ClassTotal)
	require.Equal(t, 3, inWindow)
	require.Zero(t, remaining)
	_, remaining = g.Stats("unknown")
	require.Equal(t, -1, remaining)
}

func TestGovernorRejectedReservationChargesNothing(t *testing.T) {
	t.Parallel()

	g := NewGovernor(map[string]Budget{
		ClassWrite: {Limit: 1, Window: time.Minute},
		ClassTotal: {Limit: 10, Window: time.Minute},
	})
	now := time.Unix(1_700_000_000, 0)

	_, ok := g.reserve(ClassWrite, now)
	require.True(t, ok)
	for range 5 {
		_, ok = g.reserve(ClassWrite, now)
		require.False(t, ok)
	}
	require.Len(t, g.calls[ClassTotal], 1)
}

func TestGovernorNeverExceedsBudgetInAnyWindow(t *testing.T) {
	t.Parallel()

	budgets := map[string]Budget{
		ClassRead:  {Limit: 7, Window: 10 * time.Second},
		ClassWrite: {Limit: 3, Window: 5 * time.Second},
		ClassTotal: {Limit: 8, Window: 12 * time.Second},
	}
	g := NewGovernor(budgets)
	rng := rand.New(rand.NewSource(42))
	now := time.Unix(1_700_000_000, 0)
	granted := map[string][]time.Time{}

	for range 2000 {
		class := ClassRead
		if rng.Intn(3) == 0 {
			class = ClassWrite
		}
		wait, ok := g.reserve(class, now)
		if ok {
			granted[class] = append(granted[class], now)
			granted[ClassTotal] = append(granted[ClassTotal], now)
		} else {
			require.Positive(t, wait)
		}
		now = now.Add(time.Duration(rng.Intn(1500)) * time.Millisecond)
	}

	for class, times := range granted {
		b := budgets[class]
		require.NotEmpty(t, times, class)
		for i, end := range times {
			count := 0
			for _, ts := range times[:i+1] {
				if ts.After(end.Add(-b.Window)) {
					count++
				}
			}
			require.LessOrEqual(t, count, b.Limit, "class %s window ending %v", class, end)
		}
	}
}

func TestGovernorAcquireBlocksUntilSlotFrees(t *testing.T) {
	t.Parallel()

	g := NewGovernor(map[string]Budget{ClassWrite: {Limit: 2, Window: 150 * time.Millisecond}})
	ctx := context.Background()

	start := time.Now()
	require.NoError(t, g.Acquire(ctx, ClassWrite))
	require.NoError(t, g.Acquire(ctx, ClassWrite))
	require.NoError(t, g.Acquire(ctx, ClassWrite))
	require.GreaterOrEqual(t, time.Since(start), 140*time.Millisecond)
}

func TestGovernorAcquireHonorsCancellation(t *testing.T) {
	t.Parallel()

	g := NewGovernor(map[string]Budget{ClassWrite: {Limit: 1, Window: time.Hour}})
	require.NoError(t, g.Acquire(context.Background(), ClassWrite))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := g.Acquire(ctx, ClassWrite)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestGovernorConcurrentAcquire(t *testing.T) {
	t.Parallel()

	g := NewGovernor(map[string]Budget{ClassWrite: {Limit: 20, Window: time.Hour}})
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	var (
		mu      sync.Mutex
		granted int
		wg      sync.WaitGroup
	)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				if err := g.Acquire(ctx, ClassWrite); err != nil {
					return
				}
				mu.Lock()
				granted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	require.Equal(t, 20, granted)
}

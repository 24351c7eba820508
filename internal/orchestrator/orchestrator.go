// Package orchestrator owns the shared dedup index and rate governor and runs
// one worker per enabled source.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/JakeFAU/realtime-job-ingestor/internal/dedup"
	"github.com/JakeFAU/realtime-job-ingestor/internal/ingest"
	"github.com/JakeFAU/realtime-job-ingestor/internal/policy/ratelimit"
	"github.com/JakeFAU/realtime-job-ingestor/internal/worker"
)

// Orchestrator fans out ingestion to one worker per source.
type Orchestrator struct {
	sink    ingest.Sink
	index   *dedup.Index
	gate    worker.Gate
	workers []*worker.Worker
	logger  *zap.Logger

	seedMu sync.Mutex
	seeded bool
	ready  atomic.Bool
}

// New creates an Orchestrator. The workers must share index and gate.
func New(
	sink ingest.Sink,
	index *dedup.Index,
	gate worker.Gate,
	workers []*worker.Worker,
	logger *zap.Logger,
) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		sink:    sink,
		index:   index,
		gate:    gate,
		workers: workers,
		logger:  logger.Named("orchestrator"),
	}
}

// Seed loads the keys already in storage into the dedup index. It runs once;
// later calls return immediately.
func (o *Orchestrator) Seed(ctx context.Context) error {
	o.seedMu.Lock()
	defer o.seedMu.Unlock()
	if o.seeded {
		return nil
	}
	if err := o.gate.Acquire(ctx, ratelimit.ClassRead); err != nil {
		return fmt.Errorf("seed dedup index: %w", err)
	}
	keys, err := o.sink.ListExistingKeys(ctx)
	if err != nil {
		return fmt.Errorf("list existing keys: %w", err)
	}
	o.index.Seed(keys)
	o.seeded = true
	o.logger.Info("dedup index seeded", zap.Int("keys", o.index.Len()))
	return nil
}

// Run seeds the index, starts every worker concurrently, and blocks until
// ctx finishes and all workers have stopped.
func (o *Orchestrator) Run(ctx context.Context) error {
	if err := o.Seed(ctx); err != nil {
		return err
	}
	o.ready.Store(true)
	defer o.ready.Store(false)

	o.logger.Info("starting workers", zap.Int("workers", len(o.workers)))
	var wg sync.WaitGroup
	for _, w := range o.workers {
		wg.Add(1)
		go func(wk *worker.Worker) {
			defer wg.Done()
			wk.Run(ctx)
		}(w)
	}
	wg.Wait()
	o.logger.Info("all workers stopped")
	return nil
}

// RunOnce seeds the index and runs a single cycle for every worker
// concurrently, returning per-source counters.
func (o *Orchestrator) RunOnce(ctx context.Context) (map[string]ingest.CycleCounters, error) {
	if err := o.Seed(ctx); err != nil {
		return nil, err
	}
	var (
		mu      sync.Mutex
		results = make(map[string]ingest.CycleCounters, len(o.workers))
		errs    []error
		wg      sync.WaitGroup
	)
	for _, w := range o.workers {
		wg.Add(1)
		go func(wk *worker.Worker) {
			defer wg.Done()
			counters, err := wk.RunOnce(ctx)
			mu.Lock()
			defer mu.Unlock()
			results[wk.Name()] = counters
			if err != nil {
				errs = append(errs, err)
			}
		}(w)
	}
	wg.Wait()
	return results, errors.Join(errs...)
}

// Ready reports whether Run has seeded the index and started the workers.
func (o *Orchestrator) Ready() bool {
	return o.ready.Load()
}

// Snapshots returns every worker's schedule sorted by source name.
func (o *Orchestrator) Snapshots() []ingest.Schedule {
	out := make([]ingest.Schedule, 0, len(o.workers))
	for _, w := range o.workers {
		out = append(out, w.Snapshot())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Source < out[j].Source })
	return out
}

// Snapshot returns the schedule for the named source.
func (o *Orchestrator) Snapshot(name string) (ingest.Schedule, bool) {
	for _, w := range o.workers {
		if w.Name() == name {
			return w.Snapshot(), true
		}
	}
	return ingest.Schedule{}, false
}

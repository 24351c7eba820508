// Package worker implements the per-source ingestion loop: fetch pages,
// build records, gate them through the dedup index and rate governor, and
// persist them to the sink.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/realtime-job-ingestor/internal/dedup"
	"github.com/JakeFAU/realtime-job-ingestor/internal/ingest"
	"github.com/JakeFAU/realtime-job-ingestor/internal/policy/ratelimit"
	"github.com/JakeFAU/realtime-job-ingestor/internal/progress"
	"github.com/JakeFAU/realtime-job-ingestor/internal/record"
)

const (
	defaultInterval = time.Hour
	defaultTimeout  = 30 * time.Second
)

// Config controls Worker behavior.
type Config struct {
	// Interval is the target time between cycle starts.
	Interval time.Duration
	// Timeout bounds each collaborator call (page, detail, append).
	Timeout time.Duration
	// PageDelay spaces consecutive page fetches.
	PageDelay time.Duration
	// DetailDelay spaces consecutive detail fetches.
	DetailDelay time.Duration
	// MaxPages caps pages per cycle; zero means no cap.
	MaxPages int
	// Topic receives a notification per stored record when a publisher is set.
	Topic string
}

// Adapter pairs a source with the extraction contract for its payloads.
type Adapter struct {
	Source    ingest.Source
	Extractor record.Extractor
}

// Factory builds a worker's Adapter. An error is a fatal configuration error
// for that source and moves the worker to the stopped state.
type Factory func() (Adapter, error)

// Gate admits operations of a class, blocking until permitted.
type Gate interface {
	Acquire(ctx context.Context, class string) error
}

// Pacer spaces requests that share a key.
type Pacer interface {
	Wait(ctx context.Context, key string, every time.Duration) error
}

// Worker ingests one source on its own schedule.
type Worker struct {
	name      string
	factory   Factory
	index     *dedup.Index
	gate      Gate
	pacer     Pacer
	sink      ingest.Sink
	builder   *record.Builder
	publisher ingest.Publisher
	clock     ingest.Clock
	emitter   progress.Emitter
	cfg       Config
	logger    *zap.Logger

	adapterOnce sync.Once
	adapter     Adapter
	adapterErr  error

	mu       sync.Mutex
	schedule ingest.Schedule
}

// New constructs a Worker for the named source.
func New(
	name string,
	factory Factory,
	index *dedup.Index,
	gate Gate,
	pacer Pacer,
	sink ingest.Sink,
	builder *record.Builder,
	publisher ingest.Publisher,
	clock ingest.Clock,
	emitter progress.Emitter,
	cfg Config,
	logger *zap.Logger,
) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if emitter == nil {
		emitter = progress.Nop{}
	}
	if clock == nil {
		clock = wallClock{}
	}
	if cfg.Interval <= 0 {
		cfg.Interval = defaultInterval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Worker{
		name:      name,
		factory:   factory,
		index:     index,
		gate:      gate,
		pacer:     pacer,
		sink:      sink,
		builder:   builder,
		publisher: publisher,
		clock:     clock,
		emitter:   emitter,
		cfg:       cfg,
		logger:    logger.Named("worker").With(zap.String("source", name)),
		schedule: ingest.Schedule{
			Source:   name,
			State:    ingest.StateIdle,
			Interval: cfg.Interval,
		},
	}
}

// Name returns the source name the worker was configured for.
func (w *Worker) Name() string {
	return w.name
}

// Snapshot returns a copy of the worker's schedule.
func (w *Worker) Snapshot() ingest.Schedule {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.schedule
}

// Run executes cycles until ctx finishes, sleeping max(0, interval-elapsed)
// between cycle starts. It returns once the worker is stopped.
func (w *Worker) Run(ctx context.Context) {
	adapter, err := w.resolve()
	if err != nil {
		w.stop(err)
		return
	}
	for {
		if ctx.Err() != nil {
			w.stop(nil)
			return
		}
		started := w.clock.Now()
		w.runCycle(ctx, adapter, started)
		if ctx.Err() != nil {
			w.stop(nil)
			return
		}

		elapsed := w.clock.Now().Sub(started)
		wait := max(0, w.cfg.Interval-elapsed)
		w.update(func(s *ingest.Schedule) {
			s.State = ingest.StateSleeping
			s.NextRunAt = started.Add(elapsed + wait)
		})
		w.logger.Debug("sleeping until next cycle", zap.Duration("wait", wait))

		select {
		case <-ctx.Done():
			w.stop(nil)
			return
		case <-w.clock.After(wait):
		}
	}
}

// RunOnce executes a single cycle and returns the worker to idle.
func (w *Worker) RunOnce(ctx context.Context) (ingest.CycleCounters, error) {
	adapter, err := w.resolve()
	if err != nil {
		w.stop(err)
		return ingest.CycleCounters{}, err
	}
	counters := w.runCycle(ctx, adapter, w.clock.Now())
	w.update(func(s *ingest.Schedule) { s.State = ingest.StateIdle })
	if err := ctx.Err(); err != nil {
		return counters, fmt.Errorf("%s cycle interrupted: %w", w.name, err)
	}
	return counters, nil
}

func (w *Worker) resolve() (Adapter, error) {
	w.adapterOnce.Do(func() {
		if w.factory == nil {
			w.adapterErr = errors.New("no source factory configured")
			return
		}
		adapter, err := w.factory()
		switch {
		case err != nil:
			w.adapterErr = fmt.Errorf("build %s source: %w", w.name, err)
		case adapter.Source == nil || adapter.Extractor == nil:
			w.adapterErr = fmt.Errorf("build %s source: incomplete adapter", w.name)
		default:
			w.adapter = adapter
		}
	})
	return w.adapter, w.adapterErr
}

func (w *Worker) stop(err error) {
	note := ""
	if err != nil {
		note = err.Error()
		w.logger.Error("worker stopped", zap.Error(err))
	} else {
		w.logger.Info("worker stopped")
	}
	w.update(func(s *ingest.Schedule) {
		s.State = ingest.StateStopped
		s.NextRunAt = time.Time{}
		if note != "" {
			s.LastError = note
		}
	})
	w.emit(progress.Event{Stage: progress.StageWorkerStopped, Note: note})
}

func (w *Worker) runCycle(ctx context.Context, adapter Adapter, started time.Time) ingest.CycleCounters {
	w.update(func(s *ingest.Schedule) {
		s.State = ingest.StateFetching
		s.LastRunStartedAt = started
	})
	w.emit(progress.Event{Stage: progress.StageCycleStart})
	w.logger.Info("cycle started")

	var (
		counters ingest.CycleCounters
		lastErr  error
	)
	for page := 1; w.cfg.MaxPages <= 0 || page <= w.cfg.MaxPages; page++ {
		if ctx.Err() != nil {
			break
		}
		if page > 1 {
			if err := w.pace(ctx, "page", w.cfg.PageDelay); err != nil {
				break
			}
		}
		w.update(func(s *ingest.Schedule) { s.State = ingest.StateFetching })
		fetched, err := w.fetchPage(ctx, adapter.Source, page)
		if errors.Is(err, ingest.ErrNoMorePages) {
			break
		}
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			counters.PageErrors++
			lastErr = err
			w.logger.Warn("page fetch failed", zap.Int("page", page), zap.Error(err))
			w.emit(progress.Event{Stage: progress.StagePageFailed, Page: page, Note: err.Error()})
			break
		}
		counters.Pages++

		w.update(func(s *ingest.Schedule) { s.State = ingest.StateProcessing })
		for _, raw := range fetched.Items {
			if ctx.Err() != nil {
				break
			}
			w.processItem(ctx, adapter, page, raw, &counters)
		}
		if !fetched.HasMore {
			break
		}
	}

	elapsed := w.clock.Now().Sub(started)
	w.update(func(s *ingest.Schedule) {
		s.Cycles++
		s.LastCycle = counters
		s.LastError = ""
		if lastErr != nil {
			s.LastError = lastErr.Error()
		}
	})
	w.emit(progress.Event{Stage: progress.StageCycleDone, Dur: elapsed})
	w.logger.Info("cycle finished",
		zap.Int("pages", counters.Pages),
		zap.Int("page_errors", counters.PageErrors),
		zap.Int("stored", counters.Stored),
		zap.Int("duplicates", counters.Duplicates),
		zap.Int("skipped", counters.Skipped),
		zap.Int("failed", counters.Failed),
		zap.Duration("elapsed", elapsed),
	)
	return counters
}

func (w *Worker) fetchPage(ctx context.Context, source ingest.Source, page int) (ingest.Page, error) {
	callCtx, cancel := context.WithTimeout(ctx, w.cfg.Timeout)
	defer cancel()
	start := time.Now()
	fetched, err := source.FetchPage(callCtx, page)
	if err != nil {
		if errors.Is(err, ingest.ErrNoMorePages) {
			return ingest.Page{}, ingest.ErrNoMorePages
		}
		return ingest.Page{}, fmt.Errorf("fetch page %d: %w", page, err)
	}
	w.emit(progress.Event{
		Stage: progress.StagePageFetched,
		Page:  page,
		Items: len(fetched.Items),
		Dur:   time.Since(start),
	})
	return fetched, nil
}

// processItem takes one raw payload from reservation to append. The detail
// fragment is fetched only after the key is reserved, and the reservation is
// released on every path that does not end with the record durably stored.
func (w *Worker) processItem(
	ctx context.Context,
	adapter Adapter,
	page int,
	raw ingest.RawPayload,
	counters *ingest.CycleCounters,
) {
	sourceID, err := adapter.Extractor.SourceID(raw)
	if err != nil {
		counters.Skipped++
		w.logger.Warn("payload without source id", zap.Int("page", page), zap.Error(err))
		w.emit(progress.Event{
			Stage: progress.StageRecordSkipped,
			Page:  page,
			Key:   ingest.DedupKey{SourceName: w.name}.String(),
			Note:  err.Error(),
		})
		return
	}
	key := ingest.NewDedupKey(adapter.Extractor.SourceName(), sourceID)
	if err := adapter.Extractor.Screen(raw); err != nil {
		counters.Skipped++
		w.emitRecord(progress.StageRecordSkipped, page, key, err.Error())
		return
	}
	if !w.index.TryReserve(key) {
		counters.Duplicates++
		w.emitRecord(progress.StageRecordDuplicate, page, key, "")
		return
	}

	rec, err := w.prepare(ctx, adapter, raw, key)
	if err != nil {
		w.index.Release(key)
		switch {
		case errors.Is(err, ingest.ErrIneligible):
			counters.Skipped++
			w.emitRecord(progress.StageRecordSkipped, page, key, err.Error())
		case ctx.Err() != nil:
		default:
			counters.Failed++
			w.logger.Warn("record preparation failed", zap.String("key", key.String()), zap.Error(err))
			w.emitRecord(progress.StageRecordFailed, page, key, err.Error())
		}
		return
	}

	if err := w.gate.Acquire(ctx, ratelimit.ClassWrite); err != nil {
		w.index.Release(key)
		return
	}
	err = w.store(ctx, rec)
	switch {
	case errors.Is(err, ingest.ErrDuplicate):
		counters.Duplicates++
		w.emitRecord(progress.StageRecordDuplicate, page, key, "already in storage")
	case err != nil:
		w.index.Release(key)
		counters.Failed++
		w.logger.Error("append record failed", zap.String("key", key.String()), zap.Error(err))
		w.emitRecord(progress.StageRecordFailed, page, key, err.Error())
	default:
		counters.Stored++
		w.emitRecord(progress.StageRecordStored, page, key, "")
		w.publish(ctx, rec)
	}
}

func (w *Worker) prepare(
	ctx context.Context,
	adapter Adapter,
	raw ingest.RawPayload,
	key ingest.DedupKey,
) (ingest.Record, error) {
	if detail, ok := adapter.Source.(ingest.DetailSource); ok {
		if err := w.pace(ctx, "detail", w.cfg.DetailDelay); err != nil {
			return ingest.Record{}, err
		}
		callCtx, cancel := context.WithTimeout(ctx, w.cfg.Timeout)
		fragment, err := detail.FetchDetail(callCtx, key.SourceID, raw)
		cancel()
		if err != nil {
			return ingest.Record{}, fmt.Errorf("fetch detail %s: %w", key.SourceID, err)
		}
		raw = raw.Merge(fragment)
	}
	if err := adapter.Extractor.Screen(raw); err != nil {
		return ingest.Record{}, fmt.Errorf("screen %s: %w", key.SourceID, err)
	}
	rec, err := w.builder.Build(adapter.Extractor, raw)
	if err != nil {
		return ingest.Record{}, fmt.Errorf("build record: %w", err)
	}
	if rec.Key() != key {
		return ingest.Record{}, fmt.Errorf("built key %s does not match %s", rec.Key(), key)
	}
	return rec, nil
}

// store appends with a context detached from shutdown so an in-flight write
// completes before the worker exits.
func (w *Worker) store(ctx context.Context, rec ingest.Record) error {
	storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), w.cfg.Timeout)
	defer cancel()
	if err := w.sink.Append(storeCtx, rec); err != nil {
		if errors.Is(err, ingest.ErrDuplicate) {
			return ingest.ErrDuplicate
		}
		return fmt.Errorf("append %s: %w", rec.Key(), err)
	}
	return nil
}

func (w *Worker) publish(ctx context.Context, rec ingest.Record) {
	if w.publisher == nil || w.cfg.Topic == "" {
		return
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), w.cfg.Timeout)
	defer cancel()
	if _, err := w.publisher.Publish(pubCtx, w.cfg.Topic, rec); err != nil {
		w.logger.Warn("publish stored record failed", zap.String("key", rec.Key().String()), zap.Error(err))
	}
}

func (w *Worker) pace(ctx context.Context, kind string, every time.Duration) error {
	if w.pacer == nil {
		return nil
	}
	if err := w.pacer.Wait(ctx, w.name+"/"+kind, every); err != nil {
		return fmt.Errorf("pace %s: %w", kind, err)
	}
	return nil
}

func (w *Worker) update(fn func(*ingest.Schedule)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fn(&w.schedule)
}

func (w *Worker) emit(evt progress.Event) {
	evt.Source = w.name
	evt.TS = w.clock.Now().UTC()
	w.emitter.Emit(evt)
}

func (w *Worker) emitRecord(stage progress.Stage, page int, key ingest.DedupKey, note string) {
	w.emit(progress.Event{Stage: stage, Page: page, Key: key.String(), Note: note})
}

type wallClock struct{}

func (wallClock) Now() time.Time { return time.Now().UTC() }

func (wallClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

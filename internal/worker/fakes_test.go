package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/JakeFAU/realtime-job-ingestor/internal/ingest"
	"github.com/JakeFAU/realtime-job-ingestor/internal/progress"
	"github.com/JakeFAU/realtime-job-ingestor/internal/record"
)

type fakeSource struct {
	name  string
	cost  time.Duration
	mu    sync.Mutex
	pages map[int]ingest.Page
	errs  map[int]error
	calls []int
}

func (s *fakeSource) Name() string { return s.name }

func (s *fakeSource) FetchPage(ctx context.Context, page int) (ingest.Page, error) {
	s.mu.Lock()
	s.calls = append(s.calls, page)
	s.mu.Unlock()
	if s.cost > 0 {
		select {
		case <-ctx.Done():
			return ingest.Page{}, ctx.Err()
		case <-time.After(s.cost):
		}
	}
	if err := s.errs[page]; err != nil {
		return ingest.Page{}, err
	}
	p, ok := s.pages[page]
	if !ok {
		return ingest.Page{}, ingest.ErrNoMorePages
	}
	return p, nil
}

func (s *fakeSource) Calls() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.calls...)
}

type fakeDetailSource struct {
	*fakeSource
	details map[string]ingest.RawPayload
	failing map[string]error
	mu      sync.Mutex
	fetched []string
}

func (s *fakeDetailSource) FetchDetail(_ context.Context, id string, _ ingest.RawPayload) (ingest.RawPayload, error) {
	s.mu.Lock()
	s.fetched = append(s.fetched, id)
	s.mu.Unlock()
	if err := s.failing[id]; err != nil {
		return nil, err
	}
	return s.details[id], nil
}

func (s *fakeDetailSource) Fetched() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.fetched...)
}

type fakeExtractor struct {
	name string
}

func (x fakeExtractor) SourceName() string { return x.name }

func (x fakeExtractor) SourceID(raw ingest.RawPayload) (string, error) {
	return record.RequireID(raw, []string{"id"})
}

func (x fakeExtractor) Screen(raw ingest.RawPayload) error {
	if record.String(raw, "status") == "CLOSED" {
		return ingest.ErrIneligible
	}
	return nil
}

func (x fakeExtractor) Extract(raw ingest.RawPayload) (record.Fields, error) {
	return record.Fields{
		SourceID: record.String(raw, "id"),
		Title:    record.String(raw, "title"),
		Content:  record.String(raw, "description"),
	}, nil
}

type fakeSink struct {
	mu       sync.Mutex
	records  []ingest.Record
	failOnce map[string]bool
	dupes    map[string]bool
	block    chan struct{}
	entered  chan struct{}
}

func newFakeSink() *fakeSink {
	return &fakeSink{failOnce: map[string]bool{}, dupes: map[string]bool{}}
}

func (s *fakeSink) ListExistingKeys(context.Context) ([]ingest.DedupKey, error) {
	return nil, nil
}

func (s *fakeSink) Append(_ context.Context, rec ingest.Record) error {
	if s.entered != nil {
		select {
		case s.entered <- struct{}{}:
		default:
		}
	}
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failOnce[rec.SourceID] {
		delete(s.failOnce, rec.SourceID)
		return errors.New("sheet unavailable")
	}
	if s.dupes[rec.SourceID] {
		return fmt.Errorf("insert: %w", ingest.ErrDuplicate)
	}
	s.records = append(s.records, rec)
	return nil
}

func (s *fakeSink) Close() error { return nil }

func (s *fakeSink) IDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.records))
	for _, r := range s.records {
		ids = append(ids, r.SourceID)
	}
	return ids
}

type fakeIDs struct {
	mu sync.Mutex
	n  int
}

func (f *fakeIDs) NewID() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.n++
	return fmt.Sprintf("id-%d", f.n), nil
}

type fakePublisher struct {
	mu       sync.Mutex
	err      error
	messages []any
}

func (p *fakePublisher) Publish(_ context.Context, _ string, payload any) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return "", p.err
	}
	p.messages = append(p.messages, payload)
	return fmt.Sprintf("msg-%d", len(p.messages)), nil
}

func (p *fakePublisher) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.messages)
}

type recordingEmitter struct {
	mu     sync.Mutex
	events []progress.Event
}

func (e *recordingEmitter) Emit(evt progress.Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, evt)
}

func (e *recordingEmitter) Stages() []progress.Stage {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]progress.Stage, 0, len(e.events))
	for _, evt := range e.events {
		out = append(out, evt.Stage)
	}
	return out
}

func items(ids ...string) []ingest.RawPayload {
	out := make([]ingest.RawPayload, 0, len(ids))
	for _, id := range ids {
		out = append(out, ingest.RawPayload{"id": id, "title": "Staff " + id})
	}
	return out
}

// steppedClock only moves when the test fires a pending sleep.
type steppedClock struct {
	mu    sync.Mutex
	now   time.Time
	waits chan time.Duration
	wake  chan time.Time
}

func newSteppedClock(start time.Time) *steppedClock {
	return &steppedClock{now: start, waits: make(chan time.Duration), wake: make(chan time.Time)}
}

func (c *steppedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *steppedClock) After(d time.Duration) <-chan time.Time {
	c.waits <- d
	return c.wake
}

// nextWait blocks until the worker asks to sleep and returns the duration.
func (c *steppedClock) nextWait(t *testing.T) time.Duration {
	t.Helper()
	select {
	case d := <-c.waits:
		return d
	case <-time.After(time.Second):
		t.Fatal("worker never slept")
		return 0
	}
}

// fire advances the clock by d and releases the pending sleep.
func (c *steppedClock) fire(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	now := c.now
	c.mu.Unlock()
	c.wake <- now
}

// Package memory keeps stored records in-process for development and tests.
package memory

import (
	"context"
	"sync"

	"github.com/JakeFAU/realtime-job-ingestor/internal/ingest"
)

// Sink is an in-memory ingest.Sink.
type Sink struct {
	mu      sync.RWMutex
	records []ingest.Record
	keys    map[ingest.DedupKey]struct{}
}

// NewSink creates a Sink that already holds seed.
func NewSink(seed ...ingest.Record) *Sink {
	s := &Sink{keys: make(map[ingest.DedupKey]struct{})}
	for _, rec := range seed {
		s.keys[rec.Key()] = struct{}{}
		s.records = append(s.records, rec)
	}
	return s
}

// ListExistingKeys returns the keys of every stored record.
func (s *Sink) ListExistingKeys(context.Context) ([]ingest.DedupKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]ingest.DedupKey, 0, len(s.keys))
	for k := range s.keys {
		keys = append(keys, k)
	}
	return keys, nil
}

// Append stores rec unless its key is already present.
func (s *Sink) Append(_ context.Context, rec ingest.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := rec.Key()
	if _, ok := s.keys[key]; ok {
		return ingest.ErrDuplicate
	}
	s.keys[key] = struct{}{}
	s.records = append(s.records, rec)
	return nil
}

// Records returns a copy of the stored records in append order.
func (s *Sink) Records() []ingest.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ingest.Record, len(s.records))
	copy(out, s.records)
	return out
}

// Close implements ingest.Sink.
func (s *Sink) Close() error { return nil }

// Package dedup provides the process-wide membership set that gates
// persistence to at most once per posting key.
package dedup

import (
	"sync"

	"github.com/JakeFAU/realtime-job-ingestor/internal/ingest"
)

// Index is a concurrency-safe set of dedup keys. The zero value is not
// usable; construct with New.
type Index struct {
	mu   sync.Mutex
	keys map[ingest.DedupKey]struct{}
}

// New returns an Index seeded with keys already present in storage.
func New(existing ...ingest.DedupKey) *Index {
	idx := &Index{keys: make(map[ingest.DedupKey]struct{}, len(existing))}
	idx.Seed(existing)
	return idx
}

// Seed inserts keys without reservation semantics. Invalid keys are ignored.
func (i *Index) Seed(keys []ingest.DedupKey) {
	i.mu.Lock()
	defer i.mu.Unlock()
	for _, k := range keys {
		if k.Valid() {
			i.keys[k] = struct{}{}
		}
	}
}

// Contains reports whether key is present.
func (i *Index) Contains(key ingest.DedupKey) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	_, ok := i.keys[key]
	return ok
}

// TryReserve atomically inserts key and reports whether this caller inserted
// it. For any key at most one caller ever observes true, unless the key is
// released in between.
func (i *Index) TryReserve(key ingest.DedupKey) bool {
	if !key.Valid() {
		return false
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	if _, ok := i.keys[key]; ok {
		return false
	}
	i.keys[key] = struct{}{}
	return true
}

// Release removes a reservation whose record failed to persist so a later
// cycle can retry it.
func (i *Index) Release(key ingest.DedupKey) {
	i.mu.Lock()
	defer i.mu.Unlock()
	delete(i.keys, key)
}

// Len returns the number of keys held.
func (i *Index) Len() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.keys)
}

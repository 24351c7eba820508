// Package redis provides an ingest.Sink backed by a Redis key set plus one
// hash per record.
package redis

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/JakeFAU/realtime-job-ingestor/internal/ingest"
)

const defaultPrefix = "jobs"

// Config controls the key layout.
type Config struct {
	URL    string
	Prefix string
}

// Sink stores the set of keys at <prefix>:keys and each record's columns at
// <prefix>:record:<job_source>/<source_id>. SADD decides duplicates.
type Sink struct {
	client redis.UniversalClient
	prefix string
}

// Dial parses cfg.URL, verifies connectivity, and returns a Sink.
func Dial(ctx context.Context, cfg Config) (*Sink, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return New(client, cfg.Prefix)
}

// New wraps an existing client.
func New(client redis.UniversalClient, prefix string) (*Sink, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	prefix = strings.TrimSuffix(prefix, ":")
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Sink{client: client, prefix: prefix}, nil
}

func (s *Sink) keySet() string { return s.prefix + ":keys" }

func (s *Sink) recordKey(key ingest.DedupKey) string {
	return s.prefix + ":record:" + key.String()
}

// ListExistingKeys reads the key set.
func (s *Sink) ListExistingKeys(ctx context.Context) ([]ingest.DedupKey, error) {
	members, err := s.client.SMembers(ctx, s.keySet()).Result()
	if err != nil {
		return nil, fmt.Errorf("read key set: %w", err)
	}
	keys := make([]ingest.DedupKey, 0, len(members))
	for _, m := range members {
		name, id, ok := strings.Cut(m, "/")
		if !ok {
			continue
		}
		if key := ingest.NewDedupKey(name, id); key.Valid() {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

// Append claims the key in the set, then writes the record hash. A failed
// hash write gives the key back.
func (s *Sink) Append(ctx context.Context, rec ingest.Record) error {
	key := rec.Key()
	added, err := s.client.SAdd(ctx, s.keySet(), key.String()).Result()
	if err != nil {
		return fmt.Errorf("claim key %s: %w", key, err)
	}
	if added == 0 {
		return ingest.ErrDuplicate
	}

	fields := rec.Fields()
	values := make([]any, 0, 2*len(ingest.Columns))
	for _, col := range ingest.Columns {
		values = append(values, col, fields[col])
	}
	if err := s.client.HSet(ctx, s.recordKey(key), values...).Err(); err != nil {
		if remErr := s.client.SRem(ctx, s.keySet(), key.String()).Err(); remErr != nil {
			return fmt.Errorf("write record %s: %w (release key: %v)", key, err, remErr)
		}
		return fmt.Errorf("write record %s: %w", key, err)
	}
	return nil
}

// Close closes the client.
func (s *Sink) Close() error {
	return s.client.Close()
}

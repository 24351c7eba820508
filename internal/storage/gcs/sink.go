// Package gcs provides an ingest.Sink that stores one JSON object per record
// in a Google Cloud Storage bucket.
package gcs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"

	"github.com/JakeFAU/realtime-job-ingestor/internal/ingest"
)

const defaultPrefix = "jobs"

// Config captures the bucket layout.
type Config struct {
	Bucket string
	Prefix string
}

// Sink writes records to <prefix>/<job_source>/<source_id>.json. Objects are
// created with a DoesNotExist precondition so an existing key is reported
// as ingest.ErrDuplicate.
type Sink struct {
	client *storage.Client
	bucket string
	prefix string
}

// New creates a GCS-backed sink.
func New(client *storage.Client, cfg Config) (*Sink, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	prefix := strings.Trim(cfg.Prefix, "/")
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Sink{client: client, bucket: cfg.Bucket, prefix: prefix}, nil
}

// ObjectName returns the object path that holds key.
func (s *Sink) ObjectName(key ingest.DedupKey) string {
	return s.prefix + "/" + url.PathEscape(key.SourceName) + "/" + url.PathEscape(key.SourceID) + ".json"
}

// ListExistingKeys lists every record object under the prefix.
func (s *Sink) ListExistingKeys(ctx context.Context) ([]ingest.DedupKey, error) {
	it := s.client.Bucket(s.bucket).Objects(ctx, &storage.Query{Prefix: s.prefix + "/"})
	var keys []ingest.DedupKey
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list objects: %w", err)
		}
		if key, ok := s.parseName(attrs.Name); ok {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

func (s *Sink) parseName(name string) (ingest.DedupKey, bool) {
	rest, ok := strings.CutPrefix(name, s.prefix+"/")
	if !ok {
		return ingest.DedupKey{}, false
	}
	rest, ok = strings.CutSuffix(rest, ".json")
	if !ok {
		return ingest.DedupKey{}, false
	}
	source, id, ok := strings.Cut(rest, "/")
	if !ok || strings.Contains(id, "/") {
		return ingest.DedupKey{}, false
	}
	source, errSource := url.PathUnescape(source)
	id, errID := url.PathUnescape(id)
	if errSource != nil || errID != nil {
		return ingest.DedupKey{}, false
	}
	key := ingest.NewDedupKey(source, id)
	return key, key.Valid()
}

// Append uploads rec as JSON.
func (s *Sink) Append(ctx context.Context, rec ingest.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	name := s.ObjectName(rec.Key())
	writer := s.client.Bucket(s.bucket).Object(name).
		If(storage.Conditions{DoesNotExist: true}).
		NewWriter(ctx)
	writer.ContentType = "application/json"
	writer.ChunkSize = 0
	if _, err := writer.Write(data); err != nil {
		closeErr := writer.Close()
		if closeErr != nil {
			return fmt.Errorf("write object %s: %w (close writer: %v)", name, err, closeErr)
		}
		return fmt.Errorf("write object %s: %w", name, err)
	}
	if err := writer.Close(); err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && apiErr.Code == http.StatusPreconditionFailed {
			return ingest.ErrDuplicate
		}
		return fmt.Errorf("close writer for %s: %w", name, err)
	}
	return nil
}

// Close releases the storage client.
func (s *Sink) Close() error {
	return s.client.Close()
}

package ingest

import (
	"context"
	"errors"
	"net/http"
	"time"
)

var (
	// ErrDuplicate is returned by a Sink whose durable storage already holds
	// the record's key.
	ErrDuplicate = errors.New("record already stored")
	// ErrIneligible marks a raw payload the source does not want ingested.
	ErrIneligible = errors.New("payload not eligible for ingestion")
	// ErrNoMorePages is returned by a Source when the requested page is past
	// the end of the listing.
	ErrNoMorePages = errors.New("no more pages")
)

// Source fetches pages of raw job payloads.
type Source interface {
	Name() string
	FetchPage(ctx context.Context, page int) (Page, error)
}

// DetailSource is a Source that can fetch a per-posting detail fragment to
// be merged into the page-level payload before building.
type DetailSource interface {
	Source
	FetchDetail(ctx context.Context, sourceID string, raw RawPayload) (RawPayload, error)
}

// FetchRequest describes one HTTP call a source makes.
type FetchRequest struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// FetchResponse is the raw result of a FetchRequest. Non-2xx statuses are
// returned as responses, not errors, so sources can interpret them.
type FetchResponse struct {
	URL        string
	StatusCode int
	Header     http.Header
	Body       []byte
	Duration   time.Duration
}

// Fetcher performs HTTP calls on behalf of sources.
type Fetcher interface {
	Do(ctx context.Context, req FetchRequest) (FetchResponse, error)
}

// Sink persists canonical records.
type Sink interface {
	ListExistingKeys(ctx context.Context) ([]DedupKey, error)
	Append(ctx context.Context, record Record) error
	Close() error
}

// Publisher announces stored records on a topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Clock abstracts time for testability. After must honor the same timeline
// as Now, so schedules and sleeps agree.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

// IDGenerator produces unique internal record identifiers.
type IDGenerator interface {
	NewID() (string, error)
}

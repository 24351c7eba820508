// Package loker ingests postings from Loker.id's paged JSON listing.
package loker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"net/http"
	"strings"

	"github.com/JakeFAU/realtime-job-ingestor/internal/ingest"
	"github.com/JakeFAU/realtime-job-ingestor/internal/record"
)

const (
	// SourceName is the job_source value for Loker.id records.
	SourceName = "Loker.id"
	// DefaultBaseURL is the public Loker.id origin.
	DefaultBaseURL = "https://www.loker.id"

	defaultUserAgent = "Mozilla/5.0"
)

// Config controls the Loker.id client.
type Config struct {
	BaseURL   string
	UserAgent string
}

// Client fetches listing pages. Loker.id pages carry every field a record
// needs, so the client does not fetch details.
type Client struct {
	fetcher ingest.Fetcher
	baseURL string
	header  http.Header
}

// New builds a Client over fetcher.
func New(fetcher ingest.Fetcher, cfg Config) (*Client, error) {
	if fetcher == nil {
		return nil, errors.New("loker: fetcher is required")
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}
	return &Client{
		fetcher: fetcher,
		baseURL: base,
		header: http.Header{
			"User-Agent": {ua},
			"Accept":     {"application/json"},
		},
	}, nil
}

// Name implements ingest.Source.
func (c *Client) Name() string { return SourceName }

// FetchPage returns the jobs on a 1-based listing page. A 404 marks the end
// of the listing.
func (c *Client) FetchPage(ctx context.Context, page int) (ingest.Page, error) {
	url := fmt.Sprintf("%s/cari-lowongan-kerja/page/%d?_data", c.baseURL, page)
	resp, err := c.fetcher.Do(ctx, ingest.FetchRequest{Method: http.MethodGet, URL: url, Header: c.header})
	if err != nil {
		return ingest.Page{}, fmt.Errorf("loker page %d: %w", page, err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return ingest.Page{}, ingest.ErrNoMorePages
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return ingest.Page{}, fmt.Errorf("loker page %d: unexpected status %d", page, resp.StatusCode)
	}

	var body struct {
		Jobs []map[string]any `json:"jobs"`
	}
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return ingest.Page{}, fmt.Errorf("decode loker page %d: %w", page, err)
	}
	items := make([]ingest.RawPayload, 0, len(body.Jobs))
	for _, job := range body.Jobs {
		items = append(items, ingest.RawPayload(job))
	}
	return ingest.Page{Items: items, HasMore: len(items) > 0}, nil
}

// Extractor maps Loker.id job objects onto record fields.
type Extractor struct{}

// SourceName implements record.Extractor.
func (Extractor) SourceName() string { return SourceName }

// SourceID implements record.Extractor.
func (Extractor) SourceID(raw ingest.RawPayload) (string, error) {
	return record.RequireID(raw, []string{"id"})
}

// Screen implements record.Extractor; every listed job is eligible.
func (Extractor) Screen(ingest.RawPayload) error { return nil }

// Extract implements record.Extractor.
func (Extractor) Extract(raw ingest.RawPayload) (record.Fields, error) {
	id := record.String(raw, "id")
	workPolicy := ""
	if record.Bool(raw, "is_remote") {
		workPolicy = "remote"
	}
	var tags []string
	if tag := record.String(raw, "tag", "name"); tag != "" {
		tags = append(tags, tag)
	}
	return record.Fields{
		SourceID:      id,
		Link:          DefaultBaseURL + "/cari-lowongan-kerja?jobid=" + id,
		CompanyName:   record.String(raw, "company_name"),
		Title:         record.String(raw, "title"),
		Category:      record.String(raw, "category"),
		Content:       buildContent(raw),
		Province:      record.String(raw, "locations", "0", "parent", "name"),
		City:          record.String(raw, "locations", "0", "name"),
		Industry:      record.String(raw, "industries", "0", "name"),
		Education:     record.String(raw, "education"),
		JobType:       record.String(raw, "job_type"),
		WorkPolicy:    workPolicy,
		Gender:        record.String(raw, "gender"),
		ExplicitLevel: record.String(raw, "level", "name"),
		Experience:    record.String(raw, "job_experience"),
		Salary:        record.String(raw, "job_salary"),
		ExtraTags:     tags,
	}, nil
}

var contentSections = []struct {
	field   string
	heading string
}{
	{"job_description", "Deskripsi Pekerjaan"},
	{"responsibilities", "Tanggung Jawab"},
	{"qualifications", "Kualifikasi"},
}

// buildContent stitches the HTML sections under fixed headings, falling back
// to the plain content field.
func buildContent(raw ingest.RawPayload) string {
	var parts []string
	for _, s := range contentSections {
		body := record.String(raw, s.field)
		if body == "" {
			continue
		}
		parts = append(parts, "<h2>"+s.heading+"</h2>", html.UnescapeString(body))
	}
	if len(parts) == 0 {
		if plain := record.String(raw, "content"); plain != "" {
			parts = append(parts, "<p>"+html.EscapeString(plain)+"</p>")
		}
	}
	return strings.Join(parts, "\n")
}

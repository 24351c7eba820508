// Package glints ingests postings from the Glints GraphQL API. Search results
// are screened on status and enriched with the per-job detail query.
package glints

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/JakeFAU/realtime-job-ingestor/internal/ingest"
	"github.com/JakeFAU/realtime-job-ingestor/internal/record"
)

const (
	// SourceName is the job_source value for Glints records.
	SourceName = "Glints"
	// DefaultEndpoint is the public GraphQL endpoint.
	DefaultEndpoint = "https://glints.com/api/v2-alc/graphql"
	// JobURLPrefix is prepended to the job id to form the record link.
	JobURLPrefix = "https://glints.com/id/opportunities/jobs/"

	defaultPageSize    = 20
	defaultCountryCode = "ID"
	defaultUserAgent   = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

	statusOpen = "OPEN"
)

// Config controls the Glints client.
type Config struct {
	Endpoint    string
	UserAgent   string
	PageSize    int
	CountryCode string
}

// Client runs the search and detail GraphQL operations.
type Client struct {
	fetcher     ingest.Fetcher
	endpoint    string
	pageSize    int
	countryCode string
	header      http.Header
}

// New builds a Client over fetcher.
func New(fetcher ingest.Fetcher, cfg Config) (*Client, error) {
	if fetcher == nil {
		return nil, errors.New("glints: fetcher is required")
	}
	c := &Client{
		fetcher:     fetcher,
		endpoint:    strings.TrimRight(cfg.Endpoint, "/"),
		pageSize:    cfg.PageSize,
		countryCode: cfg.CountryCode,
	}
	if c.endpoint == "" {
		c.endpoint = DefaultEndpoint
	}
	if c.pageSize <= 0 {
		c.pageSize = defaultPageSize
	}
	if c.countryCode == "" {
		c.countryCode = defaultCountryCode
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}
	c.header = http.Header{
		"Content-Type": {"application/json"},
		"Accept":       {"application/json"},
		"User-Agent":   {ua},
	}
	return c, nil
}

// Name implements ingest.Source.
func (c *Client) Name() string { return SourceName }

type graphQLRequest struct {
	OperationName string         `json:"operationName"`
	Variables     map[string]any `json:"variables"`
	Query         string         `json:"query"`
}

type graphQLError struct {
	Message string `json:"message"`
}

// FetchPage runs searchJobsV3 for a 1-based page, newest first.
func (c *Client) FetchPage(ctx context.Context, page int) (ingest.Page, error) {
	req := graphQLRequest{
		OperationName: "searchJobsV3",
		Variables: map[string]any{
			"data": map[string]any{
				"CountryCode":         c.countryCode,
				"includeExternalJobs": true,
				"pageSize":            c.pageSize,
				"page":                page,
				"sortBy":              "LATEST",
			},
		},
		Query: searchQuery,
	}
	var body struct {
		Data struct {
			SearchJobsV3 *struct {
				JobsInPage []map[string]any `json:"jobsInPage"`
				HasMore    bool             `json:"hasMore"`
			} `json:"searchJobsV3"`
		} `json:"data"`
		Errors []graphQLError `json:"errors"`
	}
	found, err := c.post(ctx, req, &body)
	if err != nil {
		return ingest.Page{}, fmt.Errorf("glints search page %d: %w", page, err)
	}
	if !found {
		return ingest.Page{}, ingest.ErrNoMorePages
	}
	result := body.Data.SearchJobsV3
	if result == nil {
		return ingest.Page{}, fmt.Errorf("glints search page %d: %w", page, responseError(body.Errors))
	}
	items := make([]ingest.RawPayload, 0, len(result.JobsInPage))
	for _, job := range result.JobsInPage {
		items = append(items, ingest.RawPayload(job))
	}
	return ingest.Page{Items: items, HasMore: result.HasMore && len(items) > 0}, nil
}

// FetchDetail runs getJobDetailsById, forwarding the search result's trace
// info.
func (c *Client) FetchDetail(ctx context.Context, sourceID string, raw ingest.RawPayload) (ingest.RawPayload, error) {
	req := graphQLRequest{
		OperationName: "getJobDetailsById",
		Variables: map[string]any{
			"opportunityId": sourceID,
			"traceInfo":     record.String(raw, "traceInfo"),
			"source":        "Explore",
		},
		Query: detailQuery,
	}
	var body struct {
		Data struct {
			GetJobByID map[string]any `json:"getJobById"`
		} `json:"data"`
		Errors []graphQLError `json:"errors"`
	}
	found, err := c.post(ctx, req, &body)
	if err != nil {
		return nil, fmt.Errorf("glints detail %s: %w", sourceID, err)
	}
	if !found || len(body.Data.GetJobByID) == 0 {
		return nil, fmt.Errorf("glints detail %s: %w", sourceID, responseError(body.Errors))
	}
	return ingest.RawPayload(body.Data.GetJobByID), nil
}

// post sends one operation and decodes the reply into out. It reports false
// on 404.
func (c *Client) post(ctx context.Context, req graphQLRequest, out any) (bool, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return false, fmt.Errorf("encode %s: %w", req.OperationName, err)
	}
	resp, err := c.fetcher.Do(ctx, ingest.FetchRequest{
		Method: http.MethodPost,
		URL:    c.endpoint + "?op=" + req.OperationName,
		Header: c.header,
		Body:   payload,
	})
	if err != nil {
		return false, err
	}
	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return false, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return false, fmt.Errorf("decode %s: %w", req.OperationName, err)
	}
	return true, nil
}

func responseError(errs []graphQLError) error {
	if len(errs) == 0 {
		return errors.New("empty response")
	}
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		msgs = append(msgs, e.Message)
	}
	return fmt.Errorf("graphql: %s", strings.Join(msgs, "; "))
}

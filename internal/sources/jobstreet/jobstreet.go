// Package jobstreet ingests postings from the JobStreet Indonesia search API,
// enriched with the description scraped from each job's detail page.
package jobstreet

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	nethtml "golang.org/x/net/html"

	"github.com/JakeFAU/realtime-job-ingestor/internal/ingest"
	"github.com/JakeFAU/realtime-job-ingestor/internal/record"
)

const (
	// SourceName is the job_source value for JobStreet records.
	SourceName = "JobStreet"
	// DefaultBaseURL is the JobStreet Indonesia origin.
	DefaultBaseURL = "https://id.jobstreet.com"

	defaultPageSize  = 30
	defaultSiteKey   = "ID"
	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
)

// Detail fragment keys merged into the search payload.
const (
	FieldContent     = "content"
	FieldContentText = "contentText"
)

// Config controls the JobStreet client.
type Config struct {
	BaseURL   string
	UserAgent string
	PageSize  int
	SiteKey   string
}

// Client fetches search pages and job detail pages.
type Client struct {
	fetcher  ingest.Fetcher
	baseURL  string
	pageSize int
	siteKey  string
	header   http.Header
}

// New builds a Client over fetcher.
func New(fetcher ingest.Fetcher, cfg Config) (*Client, error) {
	if fetcher == nil {
		return nil, errors.New("jobstreet: fetcher is required")
	}
	c := &Client{
		fetcher:  fetcher,
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		pageSize: cfg.PageSize,
		siteKey:  cfg.SiteKey,
		header:   http.Header{"User-Agent": {cfg.UserAgent}},
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.pageSize <= 0 {
		c.pageSize = defaultPageSize
	}
	if c.siteKey == "" {
		c.siteKey = defaultSiteKey
	}
	if cfg.UserAgent == "" {
		c.header.Set("User-Agent", defaultUserAgent)
	}
	return c, nil
}

// Name implements ingest.Source.
func (c *Client) Name() string { return SourceName }

// FetchPage returns one page of search results. More pages remain while
// page < ceil(totalJobCount / pageSize).
func (c *Client) FetchPage(ctx context.Context, page int) (ingest.Page, error) {
	q := url.Values{}
	q.Set("siteKey", c.siteKey)
	q.Set("page", strconv.Itoa(page))
	q.Set("pageSize", strconv.Itoa(c.pageSize))
	header := c.header.Clone()
	header.Set("Accept", "application/json")

	resp, err := c.fetcher.Do(ctx, ingest.FetchRequest{
		Method: http.MethodGet,
		URL:    c.baseURL + "/api/jobsearch/v5/search?" + q.Encode(),
		Header: header,
	})
	if err != nil {
		return ingest.Page{}, fmt.Errorf("jobstreet search page %d: %w", page, err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return ingest.Page{}, ingest.ErrNoMorePages
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return ingest.Page{}, fmt.Errorf("jobstreet search page %d: unexpected status %d", page, resp.StatusCode)
	}

	var body struct {
		Data        []map[string]any `json:"data"`
		SolMetadata struct {
			TotalJobCount int `json:"totalJobCount"`
		} `json:"solMetadata"`
	}
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return ingest.Page{}, fmt.Errorf("decode jobstreet page %d: %w", page, err)
	}
	items := make([]ingest.RawPayload, 0, len(body.Data))
	for _, job := range body.Data {
		items = append(items, ingest.RawPayload(job))
	}
	totalPages := (body.SolMetadata.TotalJobCount + c.pageSize - 1) / c.pageSize
	return ingest.Page{Items: items, HasMore: len(items) > 0 && page < totalPages}, nil
}

// FetchDetail scrapes the job page for the description markup and its text.
func (c *Client) FetchDetail(ctx context.Context, sourceID string, _ ingest.RawPayload) (ingest.RawPayload, error) {
	header := c.header.Clone()
	header.Set("Accept", "text/html")
	resp, err := c.fetcher.Do(ctx, ingest.FetchRequest{
		Method: http.MethodGet,
		URL:    c.baseURL + "/id/job/" + url.PathEscape(sourceID),
		Header: header,
	})
	if err != nil {
		return nil, fmt.Errorf("jobstreet detail %s: %w", sourceID, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("jobstreet detail %s: unexpected status %d", sourceID, resp.StatusCode)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, fmt.Errorf("parse jobstreet detail %s: %w", sourceID, err)
	}
	markup, text := description(doc)
	return ingest.RawPayload{FieldContent: markup, FieldContentText: text}, nil
}

// description prefers the job description container and falls back to
// collecting each bold section title with the blocks that follow it.
func description(doc *goquery.Document) (string, string) {
	if desc := doc.Find(`div[data-automation="jobDescription"]`).First(); desc.Length() > 0 {
		markup, err := goquery.OuterHtml(desc)
		if err == nil {
			return markup, textOf(desc)
		}
	}

	var markup, text strings.Builder
	doc.Find("strong").Each(func(_ int, strong *goquery.Selection) {
		title := collapse(strong.Text())
		if title == "" {
			return
		}
		markup.WriteString("<strong>" + title + "</strong><br />")
		text.WriteString(title + " ")
		for sib := strong.Next(); sib.Length() > 0; sib = sib.Next() {
			name := goquery.NodeName(sib)
			if name == "strong" {
				break
			}
			switch name {
			case "ul", "ol", "p", "div", "br":
				if html, err := goquery.OuterHtml(sib); err == nil {
					markup.WriteString(html)
					text.WriteString(textOf(sib) + " ")
				}
			}
		}
	})
	if markup.Len() > 0 {
		return markup.String(), collapse(text.String())
	}
	return "", textOf(doc.Find("body"))
}

// textOf joins the text nodes under s with spaces so adjacent list items
// stay separate words.
func textOf(s *goquery.Selection) string {
	var parts []string
	var walk func(*nethtml.Node)
	walk = func(n *nethtml.Node) {
		if n.Type == nethtml.TextNode {
			parts = append(parts, n.Data)
			return
		}
		if n.Type == nethtml.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range s.Nodes {
		walk(n)
	}
	return collapse(strings.Join(parts, " "))
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Extractor maps JobStreet search results merged with detail fragments onto
// record fields.
type Extractor struct{}

// SourceName implements record.Extractor.
func (Extractor) SourceName() string { return SourceName }

// SourceID implements record.Extractor. The id lives at the top level or
// under solMetadata depending on the result kind.
func (Extractor) SourceID(raw ingest.RawPayload) (string, error) {
	return record.RequireID(raw, []string{"id"}, []string{"solMetadata", "jobId"})
}

// Screen implements record.Extractor; every search result is eligible.
func (Extractor) Screen(ingest.RawPayload) error { return nil }

// Extract implements record.Extractor.
func (x Extractor) Extract(raw ingest.RawPayload) (record.Fields, error) {
	id, err := x.SourceID(raw)
	if err != nil {
		return record.Fields{}, err
	}
	company := record.String(raw, "employer", "name")
	if company == "" {
		company = record.String(raw, "companyName")
	}
	category := record.String(raw, "classifications", "0", "classification", "description")
	province, city := location(raw)
	text := record.String(raw, FieldContentText)

	return record.Fields{
		SourceID:    id,
		Link:        DefaultBaseURL + "/id/job/" + id,
		CompanyName: company,
		Title:       record.String(raw, "title"),
		Category:    category,
		Content:     record.String(raw, FieldContent),
		Province:    province,
		City:        city,
		Industry:    category,
		Education:   text,
		JobType:     record.String(raw, "workTypes", "0"),
		WorkPolicy:  record.String(raw, "workArrangements", "data", "0", "label", "text"),
		Gender:      text,
		Experience:  text,
		Salary:      record.String(raw, "salaryLabel"),
	}, nil
}

// location reads the SEO hierarchy (city first, then province) and falls
// back to splitting a "City, Province" label.
func location(raw ingest.RawPayload) (string, string) {
	province := record.String(raw, "locations", "0", "seoHierarchy", "1", "contextualName")
	city := record.String(raw, "locations", "0", "seoHierarchy", "0", "contextualName")
	if city == "" {
		city = record.String(raw, "locations", "0", "label")
	}
	if province == "" {
		if c, p, ok := strings.Cut(city, ","); ok {
			city, province = strings.TrimSpace(c), strings.TrimSpace(p)
		}
	}
	return province, city
}

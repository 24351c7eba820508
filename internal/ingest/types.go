package ingest

import (
	"strconv"
	"strings"
	"time"
)

// RawPayload is one job posting as returned by a source, before any
// normalization. Values follow encoding/json decoding rules.
type RawPayload map[string]any

// Merge overlays fragment onto a copy of p. Empty fragment values never
// replace populated page values.
func (p RawPayload) Merge(fragment RawPayload) RawPayload {
	out := make(RawPayload, len(p)+len(fragment))
	for k, v := range p {
		out[k] = v
	}
	for k, v := range fragment {
		if isEmptyValue(v) {
			if _, exists := out[k]; exists {
				continue
			}
		}
		out[k] = v
	}
	return out
}

func isEmptyValue(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(val) == ""
	case []any:
		return len(val) == 0
	case map[string]any:
		return len(val) == 0
	default:
		return false
	}
}

// Page is a single page of raw payloads returned by a source.
type Page struct {
	Items   []RawPayload
	HasMore bool
}

// DedupKey identifies a posting across the whole system.
type DedupKey struct {
	SourceName string
	SourceID   string
}

// NewDedupKey builds a key from trimmed source name and id.
func NewDedupKey(sourceName, sourceID string) DedupKey {
	return DedupKey{
		SourceName: strings.TrimSpace(sourceName),
		SourceID:   strings.TrimSpace(sourceID),
	}
}

// String renders the key as "source_name/source_id".
func (k DedupKey) String() string {
	return k.SourceName + "/" + k.SourceID
}

// Valid reports whether both components are present.
func (k DedupKey) Valid() bool {
	return k.SourceName != "" && k.SourceID != ""
}

// Record is the canonical, source-independent job posting that reaches a
// storage sink. A Record is never mutated after it is built.
type Record struct {
	InternalID  string   `json:"internal_id"`
	SourceID    string   `json:"source_id"`
	SourceName  string   `json:"job_source"`
	Link        string   `json:"link"`
	CompanyName string   `json:"company_name"`
	Category    string   `json:"job_category"`
	Title       string   `json:"title"`
	Content     string   `json:"content"`
	Province    string   `json:"province"`
	City        string   `json:"city"`
	Experience  string   `json:"experience"`
	JobType     string   `json:"job_type"`
	Level       string   `json:"level"`
	SalaryMin   int64    `json:"salary_min"`
	SalaryMax   int64    `json:"salary_max"`
	Education   string   `json:"education"`
	WorkPolicy  string   `json:"work_policy"`
	Industry    string   `json:"industry"`
	Gender      string   `json:"gender"`
	Tags        []string `json:"tags"`
}

// Key returns the record's deduplication key.
func (r Record) Key() DedupKey {
	return NewDedupKey(r.SourceName, r.SourceID)
}

// TagString joins tags in extraction order.
func (r Record) TagString() string {
	return strings.Join(r.Tags, ", ")
}

// Columns lists the flat column names in storage order.
var Columns = []string{
	"internal_id",
	"source_id",
	"job_source",
	"link",
	"company_name",
	"job_category",
	"title",
	"content",
	"province",
	"city",
	"experience",
	"job_type",
	"level",
	"salary_min",
	"salary_max",
	"education",
	"work_policy",
	"industry",
	"gender",
	"tags",
}

// Fields flattens the record into column name to string value pairs, the
// shape used by tabular sinks.
func (r Record) Fields() map[string]string {
	return map[string]string{
		"internal_id":  r.InternalID,
		"source_id":    r.SourceID,
		"job_source":   r.SourceName,
		"link":         r.Link,
		"company_name": r.CompanyName,
		"job_category": r.Category,
		"title":        r.Title,
		"content":      r.Content,
		"province":     r.Province,
		"city":         r.City,
		"experience":   r.Experience,
		"job_type":     r.JobType,
		"level":        r.Level,
		"salary_min":   formatInt(r.SalaryMin),
		"salary_max":   formatInt(r.SalaryMax),
		"education":    r.Education,
		"work_policy":  r.WorkPolicy,
		"industry":     r.Industry,
		"gender":       r.Gender,
		"tags":         r.TagString(),
	}
}

func formatInt(v int64) string {
	return strconv.FormatInt(v, 10)
}

// WorkerState is the lifecycle state of a source worker.
type WorkerState string

// Supported worker states.
const (
	StateIdle       WorkerState = "idle"
	StateFetching   WorkerState = "fetching"
	StateProcessing WorkerState = "processing"
	StateSleeping   WorkerState = "sleeping"
	StateStopped    WorkerState = "stopped"
)

// CycleCounters summarizes the outcome of one worker cycle.
type CycleCounters struct {
	Pages      int `json:"pages"`
	PageErrors int `json:"page_errors"`
	Stored     int `json:"stored"`
	Duplicates int `json:"duplicates"`
	Skipped    int `json:"skipped"`
	Failed     int `json:"failed"`
}

// Schedule is a point-in-time view of a worker's scheduling state.
type Schedule struct {
	Source           string        `json:"source"`
	State            WorkerState   `json:"state"`
	Interval         time.Duration `json:"interval"`
	LastRunStartedAt time.Time     `json:"last_run_started_at"`
	NextRunAt        time.Time     `json:"next_run_at"`
	Cycles           int           `json:"cycles"`
	LastCycle        CycleCounters `json:"last_cycle"`
	LastError        string        `json:"last_error,omitempty"`
}

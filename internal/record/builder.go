// Package record builds canonical job records from raw source payloads. The
// Builder is pure apart from ID generation: it never performs I/O and never
// blocks.
package record

import (
	"errors"
	"fmt"
	"strings"

	"github.com/JakeFAU/realtime-job-ingestor/internal/content"
	"github.com/JakeFAU/realtime-job-ingestor/internal/ingest"
	"github.com/JakeFAU/realtime-job-ingestor/internal/normalize"
)

// Fields carries the source-specific values an Extractor pulls from a raw
// payload before normalization.
type Fields struct {
	SourceID    string
	Link        string
	CompanyName string
	Title       string
	Category    string
	Content     string
	Province    string
	City        string
	Industry    string

	Education     string
	JobType       string
	WorkPolicy    string
	Gender        string
	ExplicitLevel string

	Experience          string
	ExperienceMin       float64
	ExperienceMax       float64
	HasExperienceBounds bool

	Salary          string
	SalaryMin       float64
	SalaryMax       float64
	HasSalaryBounds bool

	ExtraTags []string
}

// Extractor is the per-source field-extraction contract.
type Extractor interface {
	SourceName() string
	// SourceID returns the posting's id within the source.
	SourceID(raw ingest.RawPayload) (string, error)
	// Screen returns ingest.ErrIneligible for payloads that must be skipped.
	Screen(raw ingest.RawPayload) error
	Extract(raw ingest.RawPayload) (Fields, error)
}

// ErrMissingSourceID is returned when a payload carries no usable id.
var ErrMissingSourceID = errors.New("payload has no source id")

// Builder turns raw payloads into canonical records.
type Builder struct {
	ids ingest.IDGenerator
}

// NewBuilder returns a Builder that assigns internal ids from ids.
func NewBuilder(ids ingest.IDGenerator) *Builder {
	return &Builder{ids: ids}
}

// Build extracts, normalizes, and assembles a record.
func (b *Builder) Build(x Extractor, raw ingest.RawPayload) (ingest.Record, error) {
	fields, err := x.Extract(raw)
	if err != nil {
		return ingest.Record{}, fmt.Errorf("extract %s payload: %w", x.SourceName(), err)
	}
	sourceID := strings.TrimSpace(fields.SourceID)
	if sourceID == "" {
		return ingest.Record{}, ErrMissingSourceID
	}
	internalID, err := b.ids.NewID()
	if err != nil {
		return ingest.Record{}, fmt.Errorf("generate internal id: %w", err)
	}

	experience, experienceKnown := experienceOf(fields)
	salaryMin, salaryMax := salaryOf(fields)
	education := normalize.Education(fields.Education)
	jobType := normalize.JobType(fields.JobType)
	workPolicy := normalize.WorkPolicy(fields.WorkPolicy)
	level := normalize.Level(fields.ExplicitLevel, fields.Title, experience, experienceKnown)

	rec := ingest.Record{
		InternalID:  internalID,
		SourceID:    sourceID,
		SourceName:  x.SourceName(),
		Link:        strings.TrimSpace(fields.Link),
		CompanyName: clean(fields.CompanyName),
		Category:    clean(fields.Category),
		Title:       clean(fields.Title),
		Content:     content.Canonicalize(fields.Content),
		Province:    clean(fields.Province),
		City:        clean(fields.City),
		Experience:  experience,
		JobType:     jobType,
		Level:       level,
		SalaryMin:   salaryMin,
		SalaryMax:   salaryMax,
		Education:   education,
		WorkPolicy:  workPolicy,
		Industry:    clean(fields.Industry),
		Gender:      normalize.Gender(fields.Gender),
	}
	rec.Tags = Tags(rec, fields.ExtraTags...)
	return rec, nil
}

// Tags derives the ordered tag list: category, education when specified,
// level, job type, work policy, industry, then extras. Empty values and
// case-insensitive repeats are dropped.
func Tags(rec ingest.Record, extras ...string) []string {
	candidates := []string{rec.Category}
	if rec.Education != normalize.EducationUnspecified {
		candidates = append(candidates, rec.Education)
	}
	candidates = append(candidates, rec.Level, rec.JobType, rec.WorkPolicy, rec.Industry)
	candidates = append(candidates, extras...)

	seen := make(map[string]bool, len(candidates))
	tags := make([]string, 0, len(candidates))
	for _, c := range candidates {
		c = clean(c)
		key := strings.ToLower(c)
		if c == "" || seen[key] {
			continue
		}
		seen[key] = true
		tags = append(tags, c)
	}
	return tags
}

func experienceOf(f Fields) (string, bool) {
	if f.HasExperienceBounds {
		if years, ok := normalize.ExperienceRangeYears(f.ExperienceMin, f.ExperienceMax); ok {
			return normalize.ExperienceBucket(years), true
		}
	}
	if years, ok := normalize.ExperienceYears(f.Experience); ok {
		return normalize.ExperienceBucket(years), true
	}
	return normalize.DefaultExperience, false
}

func salaryOf(f Fields) (int64, int64) {
	if f.HasSalaryBounds {
		lo, hi := normalize.SalaryBounds(f.SalaryMin, f.SalaryMax)
		if lo > 0 || hi > 0 {
			return lo, hi
		}
	}
	return normalize.Salary(f.Salary)
}

func clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

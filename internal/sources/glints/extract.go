package glints

import (
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/JakeFAU/realtime-job-ingestor/internal/ingest"
	"github.com/JakeFAU/realtime-job-ingestor/internal/record"
)

const (
	maxSkillTags        = 10
	maxDescribedSkills  = 15
	provinceLevel       = 2
	cityLevel           = 3
	districtLevel       = 4
	descriptionJSONPath = "descriptionJsonString"
)

// Extractor maps Glints job objects onto record fields.
type Extractor struct{}

// SourceName implements record.Extractor.
func (Extractor) SourceName() string { return SourceName }

// SourceID implements record.Extractor.
func (Extractor) SourceID(raw ingest.RawPayload) (string, error) {
	return record.RequireID(raw, []string{"id"})
}

// Screen implements record.Extractor. Only OPEN postings are ingested.
func (Extractor) Screen(raw ingest.RawPayload) error {
	if status := record.String(raw, "status"); !strings.EqualFold(status, statusOpen) {
		return fmt.Errorf("%w: status %q", ingest.ErrIneligible, status)
	}
	return nil
}

// Extract implements record.Extractor.
func (x Extractor) Extract(raw ingest.RawPayload) (record.Fields, error) {
	id, err := x.SourceID(raw)
	if err != nil {
		return record.Fields{}, err
	}
	province, city := location(raw)
	expMin, hasMin := record.Float(raw, "minYearsOfExperience")
	expMax, hasMax := record.Float(raw, "maxYearsOfExperience")
	salMin, hasSalMin := record.Float(raw, "salaries", "0", "minAmount")
	salMax, hasSalMax := record.Float(raw, "salaries", "0", "maxAmount")

	content := renderDraft(record.String(raw, descriptionJSONPath))
	if content == "" {
		content = summarize(raw)
	}

	return record.Fields{
		SourceID:            id,
		Link:                JobURLPrefix + id,
		CompanyName:         record.String(raw, "company", "name"),
		Title:               record.String(raw, "title"),
		Category:            record.String(raw, "hierarchicalJobCategory", "name"),
		Content:             content,
		Province:            province,
		City:                city,
		Industry:            record.String(raw, "company", "industry", "name"),
		Education:           record.String(raw, "educationLevel"),
		JobType:             record.String(raw, "type"),
		WorkPolicy:          record.String(raw, "workArrangementOption"),
		Gender:              record.String(raw, "gender"),
		ExperienceMin:       expMin,
		ExperienceMax:       expMax,
		HasExperienceBounds: hasMin || hasMax,
		SalaryMin:           salMin,
		SalaryMax:           salMax,
		HasSalaryBounds:     hasSalMin || hasSalMax,
		ExtraTags:           mustHaveSkills(raw),
	}, nil
}

// location walks the location parents: level 2 is the province and level 3
// the city. A district-level location stands in for a missing city.
func location(raw ingest.RawPayload) (string, string) {
	var province, city string
	for _, parent := range record.Slice(raw, "location", "parents") {
		level, _ := record.Float(parent, "level")
		admin := record.String(parent, "administrativeLevelName")
		switch {
		case level == provinceLevel || admin == "Province":
			province = nameOf(parent)
		case level == cityLevel || admin == "City":
			city = nameOf(parent)
		}
	}
	if city == "" {
		loc, _ := record.Lookup(raw, "location")
		if m, ok := loc.(map[string]any); ok {
			level, _ := record.Float(m, "level")
			if level == districtLevel || record.String(m, "administrativeLevelName") == "District" {
				city = nameOf(m)
			}
		}
	}
	return province, city
}

func nameOf(node ingest.RawPayload) string {
	if name := record.String(node, "name"); name != "" {
		return name
	}
	return record.String(node, "formattedName")
}

type skill struct {
	name     string
	mustHave bool
}

func skills(raw ingest.RawPayload) []skill {
	var out []skill
	for _, item := range record.Slice(raw, "skills") {
		name := record.String(item, "skill", "name")
		if name == "" {
			continue
		}
		out = append(out, skill{name: name, mustHave: record.Bool(item, "mustHave")})
	}
	return out
}

func mustHaveSkills(raw ingest.RawPayload) []string {
	var out []string
	for _, s := range skills(raw) {
		if s.mustHave && len(out) < maxSkillTags {
			out = append(out, s.name)
		}
	}
	return out
}

// summarize builds a description from structured fields for postings
// without a rich-text body.
func summarize(raw ingest.RawPayload) string {
	parts := []string{"<h2>Job Information</h2>"}
	para := func(label, value string) {
		if value != "" {
			parts = append(parts, "<p><strong>"+label+":</strong> "+html.EscapeString(value)+"</p>")
		}
	}
	para("Industry", record.String(raw, "company", "industry", "name"))
	minExp, _ := record.Float(raw, "minYearsOfExperience")
	maxExp, _ := record.Float(raw, "maxYearsOfExperience")
	if minExp > 0 || maxExp > 0 {
		para("Experience Required", formatYears(minExp)+"-"+formatYears(maxExp)+" years")
	}
	para("Education Level", record.String(raw, "educationLevel"))

	if list := skills(raw); len(list) > 0 {
		if len(list) > maxDescribedSkills {
			list = list[:maxDescribedSkills]
		}
		var ul strings.Builder
		ul.WriteString("<ul>")
		for _, s := range list {
			ul.WriteString("<li>" + html.EscapeString(s.name))
			if s.mustHave {
				ul.WriteString(" (Required)")
			}
			ul.WriteString("</li>")
		}
		ul.WriteString("</ul>")
		parts = append(parts, "<h2>Required Skills</h2>", ul.String())
	}
	para("Job Category", record.String(raw, "hierarchicalJobCategory", "name"))
	return strings.Join(parts, "\n")
}

func formatYears(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

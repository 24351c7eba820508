package normalize

import (
	"regexp"
	"strconv"
	"strings"
)

// Canonical experience buckets.
const (
	ExperienceShort  = "1-3 Tahun"
	ExperienceMid    = "3-5 Tahun"
	ExperienceLong   = "5-10 Tahun"
	ExperienceSenior = "Lebih dari 10 Tahun"

	DefaultExperience = ExperienceShort
)

const (
	number   = `(\d+(?:[.,]\d+)?)`
	yearUnit = `\s*(?:tahun|thn|th|years?|yrs?)\b`
	rangeSep = `\s*(?:-|–|—|s/d|sampai|to)\s*`
)

var (
	aboveYears  = regexp.MustCompile(`(?i)(?:lebih\s+dari|more\s+than|over|>)\s*` + number + yearUnit)
	plusYears   = regexp.MustCompile(`(?i)` + number + `\s*\+` + yearUnit)
	rangeYears  = regexp.MustCompile(`(?i)` + number + rangeSep + number + yearUnit)
	minYears    = regexp.MustCompile(`(?i)(?:minimal|minimum|min\.?|at\s+least)\s*` + number + yearUnit)
	singleYears = regexp.MustCompile(`(?i)` + number + yearUnit)
	freshGrad   = regexp.MustCompile(`(?i)fresh\s*grad(?:uate)?s?`)
)

// ExperienceBucket maps a representative number of years onto a bucket.
func ExperienceBucket(years float64) string {
	switch {
	case years <= 2:
		return ExperienceShort
	case years <= 5:
		return ExperienceMid
	case years <= 10:
		return ExperienceLong
	default:
		return ExperienceSenior
	}
}

// ExperienceValues lists the experience enumeration.
func ExperienceValues() []string {
	return []string{ExperienceShort, ExperienceMid, ExperienceLong, ExperienceSenior}
}

// Experience maps text such as "2-3 Tahun" or "minimal 3 tahun" onto a
// bucket. Text without a year figure yields DefaultExperience.
func Experience(text string) string {
	years, ok := ExperienceYears(text)
	if !ok {
		return DefaultExperience
	}
	return ExperienceBucket(years)
}

// ExperienceYears extracts the representative number of years from text.
// A range yields its average; "more than N" yields a value above N.
func ExperienceYears(text string) (float64, bool) {
	if strings.TrimSpace(text) == "" {
		return 0, false
	}
	if m := aboveYears.FindStringSubmatch(text); m != nil {
		if n, ok := parseYears(m[1]); ok {
			return n + 1, true
		}
	}
	if m := plusYears.FindStringSubmatch(text); m != nil {
		if n, ok := parseYears(m[1]); ok {
			return n + 1, true
		}
	}
	if m := rangeYears.FindStringSubmatch(text); m != nil {
		lo, okLo := parseYears(m[1])
		hi, okHi := parseYears(m[2])
		if okLo && okHi {
			return ExperienceRangeYears(lo, hi)
		}
	}
	if m := minYears.FindStringSubmatch(text); m != nil {
		if n, ok := parseYears(m[1]); ok {
			return n, true
		}
	}
	if m := singleYears.FindStringSubmatch(text); m != nil {
		if n, ok := parseYears(m[1]); ok {
			return n, true
		}
	}
	if freshGrad.MatchString(text) {
		return 0, true
	}
	return 0, false
}

// ExperienceRange maps numeric bounds onto a bucket.
func ExperienceRange(minYears, maxYears float64) string {
	years, ok := ExperienceRangeYears(minYears, maxYears)
	if !ok {
		return DefaultExperience
	}
	return ExperienceBucket(years)
}

// ExperienceRangeYears returns the minimum when only a lower bound is given
// and the average when both bounds are. Zero bounds mean unspecified.
func ExperienceRangeYears(minYears, maxYears float64) (float64, bool) {
	if minYears < 0 {
		minYears = 0
	}
	if maxYears < 0 {
		maxYears = 0
	}
	switch {
	case minYears == 0 && maxYears == 0:
		return 0, false
	case maxYears == 0:
		return minYears, true
	case minYears > maxYears:
		minYears, maxYears = maxYears, minYears
	}
	return (minYears + maxYears) / 2, true
}

func parseYears(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
	if err != nil || v < 0 || v > 100 {
		return 0, false
	}
	return v, true
}

// Package normalize maps raw, source-specific job vocabulary onto the fixed
// canonical enumerations stored with every record. Every exported function is
// total: any input string yields a canonical value, falling back to the
// documented default when nothing matches.
package normalize

import (
	"regexp"
	"strings"
)

// Rule maps a case-insensitive keyword to a canonical value.
type Rule struct {
	Keyword string
	Value   string
}

type compiledRule struct {
	pattern *regexp.Regexp
	value   string
}

// Table is an ordered, immutable keyword table. The first rule whose keyword
// appears as a whole word in the input wins.
type Table struct {
	rules  []compiledRule
	def    string
	values []string
}

// NewTable compiles rules in order. Keywords are matched on word boundaries
// after lowercasing and treating underscores as spaces.
func NewTable(def string, rules ...Rule) *Table {
	t := &Table{def: def}
	seen := map[string]bool{}
	if def != "" {
		seen[def] = true
		t.values = append(t.values, def)
	}
	for _, r := range rules {
		kw := regexp.QuoteMeta(fold(r.Keyword))
		kw = strings.ReplaceAll(kw, " ", `\s*`)
		t.rules = append(t.rules, compiledRule{
			pattern: regexp.MustCompile(`(?:^|[^\p{L}\p{N}])` + kw + `(?:$|[^\p{L}\p{N}])`),
			value:   r.Value,
		})
		if !seen[r.Value] {
			seen[r.Value] = true
			t.values = append(t.values, r.Value)
		}
	}
	return t
}

// Lookup returns the first matching canonical value.
func (t *Table) Lookup(raw string) (string, bool) {
	text := fold(raw)
	if text == "" {
		return "", false
	}
	for _, r := range t.rules {
		if r.pattern.MatchString(text) {
			return r.value, true
		}
	}
	return "", false
}

// Normalize returns the matching canonical value or the table default.
func (t *Table) Normalize(raw string) string {
	if v, ok := t.Lookup(raw); ok {
		return v
	}
	return t.def
}

// Default is the value returned when no rule matches.
func (t *Table) Default() string {
	return t.def
}

// Values lists every value the table can produce.
func (t *Table) Values() []string {
	return append([]string(nil), t.values...)
}

// Contains reports whether v is one of the table's canonical values.
func (t *Table) Contains(v string) bool {
	for _, candidate := range t.values {
		if candidate == v {
			return true
		}
	}
	return false
}

func fold(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "_", " ")
	return strings.Join(strings.Fields(s), " ")
}

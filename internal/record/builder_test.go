package record

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/realtime-job-ingestor/internal/ingest"
	"github.com/JakeFAU/realtime-job-ingestor/internal/normalize"
)

func TestBuilderBuildNormalizesFields(t *testing.T) {
	t.Parallel()

	x := &fakeExtractor{fields: Fields{
		SourceID:      " 101 ",
		Link:          "https://example.com/jobs/101",
		CompanyName:   "PT  Maju   Jaya",
		Title:         "Senior Backend Engineer",
		Category:      "IT",
		Content:       "<h4>Kualifikasi</h4><p>1. Go<br>2. SQL</p>",
		Province:      "DKI Jakarta",
		City:          "Jakarta Selatan",
		Industry:      "Teknologi",
		Education:     "Sarjana / S1",
		JobType:       "FULL_TIME",
		WorkPolicy:    "HYBRID",
		Experience:    "2-3 Tahun",
		Salary:        "Rp.4 – 5 Juta",
		Gender:        "Pria",
		ExtraTags:     []string{"golang", "it"},
		ExplicitLevel: "",
	}}
	b := NewBuilder(&fakeIDs{id: "id-1"})

	rec, err := b.Build(x, ingest.RawPayload{})
	require.NoError(t, err)

	require.Equal(t, ingest.Record{
		InternalID:  "id-1",
		SourceID:    "101",
		SourceName:  "Fake",
		Link:        "https://example.com/jobs/101",
		CompanyName: "PT Maju Jaya",
		Category:    "IT",
		Title:       "Senior Backend Engineer",
		Content:     "<h2>Kualifikasi</h2>\n<ol><li>Go</li><li>SQL</li></ol>",
		Province:    "DKI Jakarta",
		City:        "Jakarta Selatan",
		Experience:  normalize.ExperienceMid,
		JobType:     normalize.JobTypeFullTime,
		Level:       normalize.LevelSenior,
		SalaryMin:   4000000,
		SalaryMax:   5000000,
		Education:   normalize.EducationBachelor,
		WorkPolicy:  normalize.WorkPolicyHybrid,
		Industry:    "Teknologi",
		Gender:      normalize.GenderMale,
		Tags:        []string{"IT", "S1", "Senior Level", "Full Time", "Hybrid Working", "Teknologi", "golang"},
	}, rec)
}

func TestBuilderBuildDefaultsAndBounds(t *testing.T) {
	t.Parallel()

	x := &fakeExtractor{fields: Fields{
		SourceID:            "g-1",
		Title:               "Accountant",
		ExperienceMin:       0,
		ExperienceMax:       0,
		HasExperienceBounds: true,
		SalaryMin:           7000000,
		SalaryMax:           9000000,
		HasSalaryBounds:     true,
	}}
	rec, err := NewBuilder(&fakeIDs{id: "id-2"}).Build(x, ingest.RawPayload{})
	require.NoError(t, err)

	require.Equal(t, normalize.DefaultExperience, rec.Experience)
	require.Equal(t, normalize.LevelMid, rec.Level, "unknown experience falls back to mid level")
	require.Equal(t, normalize.EducationUnspecified, rec.Education)
	require.Equal(t, normalize.WorkPolicyOnsite, rec.WorkPolicy)
	require.Equal(t, normalize.GenderAny, rec.Gender)
	require.Equal(t, int64(7000000), rec.SalaryMin)
	require.Equal(t, int64(9000000), rec.SalaryMax)
	require.Equal(t, []string{"Mid Level", "Full Time", "On-site Working"}, rec.Tags)
}

func TestBuilderExperienceBoundsDriveLevel(t *testing.T) {
	t.Parallel()

	x := &fakeExtractor{fields: Fields{
		SourceID:            "g-2",
		Title:               "Accountant",
		ExperienceMin:       1,
		ExperienceMax:       2,
		HasExperienceBounds: true,
	}}
	rec, err := NewBuilder(&fakeIDs{id: "id-3"}).Build(x, ingest.RawPayload{})
	require.NoError(t, err)
	require.Equal(t, normalize.ExperienceShort, rec.Experience)
	require.Equal(t, normalize.LevelEntry, rec.Level)
}

func TestBuilderBuildErrors(t *testing.T) {
	t.Parallel()

	_, err := NewBuilder(&fakeIDs{id: "x"}).Build(&fakeExtractor{fields: Fields{SourceID: "  "}}, nil)
	require.ErrorIs(t, err, ErrMissingSourceID)

	_, err = NewBuilder(&fakeIDs{err: errors.New("entropy")}).Build(&fakeExtractor{fields: Fields{SourceID: "1"}}, nil)
	require.ErrorContains(t, err, "generate internal id")

	_, err = NewBuilder(&fakeIDs{id: "x"}).Build(&fakeExtractor{err: errors.New("bad json")}, nil)
	require.ErrorContains(t, err, "extract Fake payload")
}

func TestPayloadHelpers(t *testing.T) {
	t.Parallel()

	raw := ingest.RawPayload{
		"id":        float64(42),
		"is_remote": true,
		"company":   map[string]any{"name": " PT ABC "},
		"locations": []any{map[string]any{"name": "Bandung", "parent": map[string]any{"name": "Jawa Barat"}}},
		"workTypes": []any{"Full time", 3, ""},
		"salary":    "12.5",
	}

	require.Equal(t, "42", String(raw, "id"))
	require.Equal(t, "PT ABC", String(raw, "company", "name"))
	require.Equal(t, "Jawa Barat", String(raw, "locations", "0", "parent", "name"))
	require.Equal(t, "", String(raw, "locations", "1", "name"))
	require.True(t, Bool(raw, "is_remote"))
	require.False(t, Bool(raw, "missing"))
	require.Equal(t, []string{"Full time"}, Strings(raw, "workTypes"))
	require.Len(t, Slice(raw, "locations"), 1)

	f, ok := Float(raw, "salary")
	require.True(t, ok)
	require.InDelta(t, 12.5, f, 1e-9)

	id, err := RequireID(raw, []string{"missing"}, []string{"id"})
	require.NoError(t, err)
	require.Equal(t, "42", id)

	_, err = RequireID(raw, []string{"missing"})
	require.ErrorIs(t, err, ErrMissingSourceID)
}

type fakeExtractor struct {
	fields Fields
	err    error
}

func (f *fakeExtractor) SourceName() string { return "Fake" }

func (f *fakeExtractor) SourceID(ingest.RawPayload) (string, error) { return f.fields.SourceID, nil }

func (f *fakeExtractor) Screen(ingest.RawPayload) error { return nil }

func (f *fakeExtractor) Extract(ingest.RawPayload) (Fields, error) { return f.fields, f.err }

type fakeIDs struct {
	id  string
	err error
}

func (f *fakeIDs) NewID() (string, error) { return f.id, f.err }

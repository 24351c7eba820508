package normalize

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEducation(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"SMA / SMK / STM":          EducationHighSchool,
		"Diploma/D1/D2/D3":         EducationDiploma,
		"Sarjana / S1":             EducationBachelor,
		"Master / S2":              EducationMaster,
		"Doctor / S3":              EducationDoctorate,
		"HIGH_SCHOOL":              EducationHighSchool,
		"BACHELOR":                 EducationBachelor,
		"phd":                      EducationDoctorate,
		"Minimal lulusan S1/S2":    EducationMaster,
		"Tanpa Minimal Pendidikan": EducationUnspecified,
		"":                         EducationUnspecified,
		"small business owner":     EducationUnspecified,
	}
	for raw, want := range cases {
		require.Equalf(t, want, Education(raw), "input %q", raw)
	}
}

func TestSalary(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in       string
		min, max int64
	}{
		{"Rp.4 – 5 Juta", 4000000, 5000000},
		{"Rp.10 – 15 Juta", 10000000, 15000000},
		{"Negosiasi", 0, 0},
		{"negotiable", 0, 0},
		{"", 0, 0},
		{"Rp 4.000.000 - Rp 6.000.000 per month", 4000000, 6000000},
		{"IDR 10,000,000 – 12,500,000", 10000000, 12500000},
		{"Rp 4,5 - 6 juta", 4500000, 6000000},
		{"Rp 7.500.000", 7500000, 7500000},
		{"25k - 30k", 25000, 30000},
		{"Rp 6.000.000,00 – Rp 5.000.000,00", 5000000, 6000000},
		{"Rp4jt - 5jt", 4000000, 5000000},
		{"5jt", 5000000, 5000000},
		{"Rp 3,5jt", 3500000, 3500000},
		{"Rp 500 ribu - 1,5 juta", 500000, 1500000},
		{"800rb – 1 jt per minggu", 800000, 1000000},
		{"5 juta - 6", 5000000, 6000000},
		{"Rp 1 miliar", 1000000000, 1000000000},
		{"5 karyawan", 5, 5},
	}
	for _, tc := range cases {
		lo, hi := Salary(tc.in)
		require.Equalf(t, tc.min, lo, "min for %q", tc.in)
		require.Equalf(t, tc.max, hi, "max for %q", tc.in)
	}
}

func TestSalaryBounds(t *testing.T) {
	t.Parallel()

	lo, hi := SalaryBounds(-5, 100)
	require.Equal(t, int64(0), lo)
	require.Equal(t, int64(100), hi)

	lo, hi = SalaryBounds(8000000, 0)
	require.Equal(t, int64(8000000), lo)
	require.Equal(t, int64(8000000), hi)

	lo, hi = SalaryBounds(9, 3)
	require.Equal(t, int64(3), lo)
	require.Equal(t, int64(9), hi)
}

func TestExperience(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{"2-3 Tahun", ExperienceMid},
		{"1-2 Tahun", ExperienceShort},
		{"5-6 Tahun", ExperienceLong},
		{"Lebih dari 10 Tahun", ExperienceSenior},
		{"minimal 3 tahun di bidang yang sama", ExperienceMid},
		{"at least 7 years of experience", ExperienceLong},
		{"10+ years", ExperienceSenior},
		{"Fresh graduate dipersilakan", ExperienceShort},
		{"Kurang dari 1 Tahun", ExperienceShort},
		{"no requirement", DefaultExperience},
		{"", DefaultExperience},
	}
	for _, tc := range cases {
		require.Equalf(t, tc.want, Experience(tc.in), "input %q", tc.in)
	}
}

func TestExperienceRange(t *testing.T) {
	t.Parallel()

	require.Equal(t, ExperienceMid, ExperienceRange(2, 3))
	require.Equal(t, ExperienceMid, ExperienceRange(4, 0))
	require.Equal(t, ExperienceLong, ExperienceRange(5, 10))
	require.Equal(t, ExperienceSenior, ExperienceRange(12, 15))
	require.Equal(t, DefaultExperience, ExperienceRange(0, 0))

	_, known := ExperienceRangeYears(0, 0)
	require.False(t, known)
}

func TestWorkPolicyAndJobType(t *testing.T) {
	t.Parallel()

	require.Equal(t, WorkPolicyRemote, WorkPolicy("REMOTE"))
	require.Equal(t, WorkPolicyRemote, WorkPolicy("WORK_FROM_HOME"))
	require.Equal(t, WorkPolicyHybrid, WorkPolicy("Hybrid"))
	require.Equal(t, WorkPolicyOnsite, WorkPolicy("ONSITE"))
	require.Equal(t, WorkPolicyOnsite, WorkPolicy("Di kantor"))
	require.Equal(t, WorkPolicyOnsite, WorkPolicy(""))

	require.Equal(t, JobTypeFullTime, JobType("FULL_TIME"))
	require.Equal(t, JobTypePartTime, JobType("Part time"))
	require.Equal(t, JobTypeContract, JobType("Kontrak"))
	require.Equal(t, JobTypeInternship, JobType("INTERNSHIP"))
	require.Equal(t, JobTypeInternship, JobType("Magang"))
	require.Equal(t, JobTypeFreelance, JobType("FREELANCE"))
	require.Equal(t, JobTypeFullTime, JobType("something else"))
}

func TestGender(t *testing.T) {
	t.Parallel()

	require.Equal(t, GenderAny, Gender("Laki-laki/Perempuan"))
	require.Equal(t, GenderMale, Gender("Pria, usia maksimal 30 tahun"))
	require.Equal(t, GenderFemale, Gender("Wanita"))
	require.Equal(t, GenderFemale, Gender("female only"))
	require.Equal(t, GenderAny, Gender("tidak ada syarat"))
}

func TestLevel(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name       string
		explicit   string
		title      string
		bucket     string
		known      bool
		wantResult string
	}{
		{"explicit level wins", "Supervisor", "Staff Admin", ExperienceShort, true, LevelSenior},
		{"explicit staff", "Staff", "Admin", ExperienceShort, true, LevelMid},
		{"management title", "", "Head of Engineering", ExperienceShort, true, LevelManagement},
		{"vice president", "", "Vice President Sales", "", false, LevelManagement},
		{"senior title", "", "Sr. Backend Engineer", ExperienceShort, true, LevelSenior},
		{"manager title", "", "Marketing Manager", ExperienceShort, true, LevelSenior},
		{"junior title", "", "Junior Accountant", ExperienceLong, true, LevelEntry},
		{"short experience", "", "Accountant", ExperienceShort, true, LevelEntry},
		{"mid experience", "", "Accountant", ExperienceMid, true, LevelMid},
		{"long experience", "", "Accountant", ExperienceLong, true, LevelSenior},
		{"unknown experience", "", "Accountant", DefaultExperience, false, LevelMid},
		{"heading is not head", "", "Headline Writer", ExperienceMid, true, LevelMid},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.wantResult, Level(tc.explicit, tc.title, tc.bucket, tc.known))
		})
	}
}

func FuzzNormalizersAreTotal(f *testing.F) {
	for _, seed := range []string{
		"", "Rp.4 – 5 Juta", "2-3 Tahun", "Negosiasi", "REMOTE", "S1/S2",
		"999999999999999999999999", "lebih dari 99999 tahun", "\x00\xff", "1.2.3.4,5,6",
		"k k k 1k", "Ph.D", "-5 - -3 juta",
	} {
		f.Add(seed)
	}
	f.Fuzz(func(t *testing.T, raw string) {
		require.Contains(t, EducationValues(), Education(raw))
		require.Contains(t, ExperienceValues(), Experience(raw))
		require.Contains(t, WorkPolicyValues(), WorkPolicy(raw))
		require.Contains(t, JobTypeValues(), JobType(raw))
		require.Contains(t, GenderValues(), Gender(raw))
		require.Contains(t, LevelValues(), Level(raw, raw, Experience(raw), raw != ""))

		lo, hi := Salary(raw)
		require.GreaterOrEqual(t, lo, int64(0))
		require.GreaterOrEqual(t, hi, lo)
	})
}

package normalize

// Canonical work policies.
const (
	WorkPolicyOnsite = "On-site Working"
	WorkPolicyRemote = "Remote Working"
	WorkPolicyHybrid = "Hybrid Working"
)

// Canonical job types.
const (
	JobTypeFullTime   = "Full Time"
	JobTypePartTime   = "Part Time"
	JobTypeContract   = "Contract"
	JobTypeInternship = "Internship"
	JobTypeFreelance  = "Freelance"
)

// Canonical gender requirements.
const (
	GenderAny    = "Laki-laki/Perempuan"
	GenderMale   = "Laki-laki"
	GenderFemale = "Perempuan"
)

var workPolicyTable = NewTable(WorkPolicyOnsite,
	Rule{"hybrid", WorkPolicyHybrid},
	Rule{"remote", WorkPolicyRemote},
	Rule{"work from home", WorkPolicyRemote},
	Rule{"wfh", WorkPolicyRemote},
	Rule{"kerja dari rumah", WorkPolicyRemote},
	Rule{"on-site", WorkPolicyOnsite},
	Rule{"onsite", WorkPolicyOnsite},
	Rule{"on site", WorkPolicyOnsite},
	Rule{"wfo", WorkPolicyOnsite},
)

var jobTypeTable = NewTable(JobTypeFullTime,
	Rule{"internship", JobTypeInternship},
	Rule{"intern", JobTypeInternship},
	Rule{"magang", JobTypeInternship},
	Rule{"freelance", JobTypeFreelance},
	Rule{"freelancer", JobTypeFreelance},
	Rule{"pekerja lepas", JobTypeFreelance},
	Rule{"part time", JobTypePartTime},
	Rule{"part-time", JobTypePartTime},
	Rule{"parttime", JobTypePartTime},
	Rule{"paruh waktu", JobTypePartTime},
	Rule{"contract", JobTypeContract},
	Rule{"kontrak", JobTypeContract},
	Rule{"temporary", JobTypeContract},
	Rule{"casual", JobTypeContract},
	Rule{"full time", JobTypeFullTime},
	Rule{"full-time", JobTypeFullTime},
	Rule{"fulltime", JobTypeFullTime},
	Rule{"penuh waktu", JobTypeFullTime},
	Rule{"permanent", JobTypeFullTime},
)

var (
	maleTable = NewTable("",
		Rule{"laki-laki", GenderMale},
		Rule{"laki laki", GenderMale},
		Rule{"lelaki", GenderMale},
		Rule{"pria", GenderMale},
		Rule{"male", GenderMale},
	)
	femaleTable = NewTable("",
		Rule{"perempuan", GenderFemale},
		Rule{"wanita", GenderFemale},
		Rule{"female", GenderFemale},
	)
)

// WorkPolicy maps arrangement labels such as "REMOTE", "Hybrid" or
// "WORK_FROM_HOME" to a canonical policy. Unknown input is on-site.
func WorkPolicy(raw string) string {
	return workPolicyTable.Normalize(raw)
}

// WorkPolicyValues lists the work policy enumeration.
func WorkPolicyValues() []string {
	return workPolicyTable.Values()
}

// JobType maps employment labels such as "FULL_TIME" or "Kontrak" to a
// canonical job type. Unknown input is full-time.
func JobType(raw string) string {
	return jobTypeTable.Normalize(raw)
}

// JobTypeValues lists the job type enumeration.
func JobTypeValues() []string {
	return jobTypeTable.Values()
}

// Gender detects gender requirements mentioned in text. Mentions of both,
// or of neither, yield GenderAny.
func Gender(text string) string {
	_, male := maleTable.Lookup(text)
	_, female := femaleTable.Lookup(text)
	switch {
	case male && !female:
		return GenderMale
	case female && !male:
		return GenderFemale
	default:
		return GenderAny
	}
}

// GenderValues lists the gender enumeration.
func GenderValues() []string {
	return []string{GenderAny, GenderMale, GenderFemale}
}

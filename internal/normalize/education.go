package normalize

// Canonical education levels.
const (
	EducationHighSchool  = "SMA/SMK"
	EducationDiploma     = "D1-D4"
	EducationBachelor    = "S1"
	EducationMaster      = "S2"
	EducationDoctorate   = "S3"
	EducationUnspecified = "Tanpa Minimal Pendidikan"
)

// Highest degree first so that "S1/S2" style requirements resolve to the
// first listed keyword in priority order.
var educationTable = NewTable(EducationUnspecified,
	Rule{"s3", EducationDoctorate},
	Rule{"doctorate", EducationDoctorate},
	Rule{"doctor", EducationDoctorate},
	Rule{"doktor", EducationDoctorate},
	Rule{"phd", EducationDoctorate},
	Rule{"ph.d", EducationDoctorate},
	Rule{"s2", EducationMaster},
	Rule{"master", EducationMaster},
	Rule{"magister", EducationMaster},
	Rule{"s1", EducationBachelor},
	Rule{"sarjana", EducationBachelor},
	Rule{"bachelor", EducationBachelor},
	Rule{"d4", EducationDiploma},
	Rule{"d3", EducationDiploma},
	Rule{"d2", EducationDiploma},
	Rule{"d1", EducationDiploma},
	Rule{"diploma", EducationDiploma},
	Rule{"smk", EducationHighSchool},
	Rule{"sma", EducationHighSchool},
	Rule{"stm", EducationHighSchool},
	Rule{"slta", EducationHighSchool},
	Rule{"high school", EducationHighSchool},
)

// Education maps free text or an enum such as "BACHELOR" or
// "Sarjana / S1" to a canonical education level.
func Education(raw string) string {
	return educationTable.Normalize(raw)
}

// EducationValues lists the education enumeration.
func EducationValues() []string {
	return educationTable.Values()
}

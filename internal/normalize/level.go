package normalize

// Canonical job levels.
const (
	LevelEntry      = "Entry Level"
	LevelMid        = "Mid Level"
	LevelSenior     = "Senior Level"
	LevelManagement = "Management"
)

var titleLevelRules = []Rule{
	{"director", LevelManagement},
	{"direktur", LevelManagement},
	{"head", LevelManagement},
	{"kepala", LevelManagement},
	{"chief", LevelManagement},
	{"vice president", LevelManagement},
	{"vp", LevelManagement},
	{"general manager", LevelManagement},
	{"gm", LevelManagement},
	{"ceo", LevelManagement},
	{"cto", LevelManagement},
	{"cfo", LevelManagement},
	{"coo", LevelManagement},
	{"senior", LevelSenior},
	{"sr", LevelSenior},
	{"lead", LevelSenior},
	{"leader", LevelSenior},
	{"principal", LevelSenior},
	{"manager", LevelSenior},
	{"supervisor", LevelSenior},
	{"spv", LevelSenior},
	{"junior", LevelEntry},
	{"jr", LevelEntry},
	{"entry", LevelEntry},
	{"trainee", LevelEntry},
	{"intern", LevelEntry},
	{"internship", LevelEntry},
	{"magang", LevelEntry},
	{"fresh graduate", LevelEntry},
}

var (
	titleLevelTable    = NewTable("", titleLevelRules...)
	explicitLevelTable = NewTable("", append(append([]Rule(nil), titleLevelRules...),
		Rule{"mid", LevelMid},
		Rule{"middle", LevelMid},
		Rule{"staff", LevelMid},
		Rule{"staf", LevelMid},
		Rule{"officer", LevelMid},
		Rule{"associate", LevelMid},
		Rule{"specialist", LevelMid},
		Rule{"karyawan", LevelMid},
	)...)
)

// Level resolves a canonical level. An explicit source level wins when it
// maps onto the enumeration; otherwise title keywords decide, and failing
// that the experience bucket does. Unknown experience yields LevelMid.
func Level(explicit, title, experienceBucket string, experienceKnown bool) string {
	if v, ok := explicitLevelTable.Lookup(explicit); ok {
		return v
	}
	if v, ok := titleLevelTable.Lookup(title); ok {
		return v
	}
	if !experienceKnown {
		return LevelMid
	}
	switch experienceBucket {
	case ExperienceShort:
		return LevelEntry
	case ExperienceMid:
		return LevelMid
	default:
		return LevelSenior
	}
}

// LevelValues lists the level enumeration.
func LevelValues() []string {
	return []string{LevelEntry, LevelMid, LevelSenior, LevelManagement}
}

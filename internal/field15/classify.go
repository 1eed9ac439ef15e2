package field15

import "regexp"

// classRule is one entry in the ordered classification battery. Patterns
// are tried in order; the first match wins. This mirrors the teacher's
// patterns/compiler.go dispatch-table idiom rather than a single compiled
// alternation, because ordering here is load-bearing (more specific shapes
// must be tried before more general ones).
type classRule struct {
	re   *regexp.Regexp
	base BaseKind
	sub  SubKind
}

var (
	reSpeedLevelPlus = regexp.MustCompile(`^(?:N|M|K)[0-9]{3,4}(?:F[0-9]{3}|A[0-9]{3}|S[0-9]{4}|M[0-9]{4})PLUS$`)
	reSpeedLevelLvl  = regexp.MustCompile(`^(?:N|M|K)[0-9]{3,4}(?:F[0-9]{3}|A[0-9]{3}|S[0-9]{4}|M[0-9]{4})(?:F[0-9]{3}|A[0-9]{3}|S[0-9]{4}|M[0-9]{4})$`)
	reSpeedVFR       = regexp.MustCompile(`^(?:N|M|K)[0-9]{3,4}VFR$`)
	reSpeedLevel     = regexp.MustCompile(`^(?:N|M|K)[0-9]{3,4}(?:F[0-9]{3}|A[0-9]{3}|S[0-9]{4}|M[0-9]{4})$`)
	reLatLongBD      = regexp.MustCompile(`^(?:[0-9]{2}(?:N|S)[0-9]{3}(?:E|W)|[0-9]{4}(?:N|S)[0-9]{5}(?:E|W))[0-9]{6}$`)
	reLatLongDM      = regexp.MustCompile(`^[0-9]{4}(?:N|S)[0-9]{5}(?:E|W)$`)
	reLatLongD       = regexp.MustCompile(`^[0-9]{2}(?:N|S)[0-9]{3}(?:E|W)$`)
	reATSRoute       = regexp.MustCompile(`^[A-Z]{1,2}[0-9]{1,4}[A-Z]{0,2}$`)
	reSidStar        = regexp.MustCompile(`^[A-Z]{2,5}[0-9][A-Z]$`)
	rePoint          = regexp.MustCompile(`^[A-Z]{2,5}$`)
	reStayN          = regexp.MustCompile(`^STAY[1-9]$`)
	reStayTime       = regexp.MustCompile(`^[0-9]{4}$`)
)

// breakStarts maps BREAK_START keyword text to its SubKind.
var breakStarts = map[string]SubKind{
	"VFR":     SubVFR,
	"OAT":     SubOAT,
	"IFPSTOP": SubIFPSTOP,
}

// breakEnds maps BREAK_END keyword text to its SubKind.
var breakEnds = map[string]SubKind{
	"IFR":      SubIFR,
	"GAT":      SubGAT,
	"IFPSTART": SubIFPSTART,
}

// tooLongLimit is the inferred hard element-length cutoff; see
// SPEC_FULL.md §6.3 (Open Question resolution).
const tooLongLimit = 7

// Classify assigns a (BaseKind, SubKind) pair to a token's literal text.
// It is pure, total (every input yields exactly one pair), and idempotent.
// Keyword/literal tokens are checked before generic shape patterns so that
// e.g. "DCT" never falls through to POINT.
func Classify(text string) (BaseKind, SubKind) {
	switch text {
	case "DCT":
		return DCT, SubNone
	case "T":
		return TRUNCATE, SubNone
	case "C":
		return C_CRUISE_CLIMB, SubNone
	case "SID":
		return SID, SubNone
	case "STAR":
		return STAR, SubNone
	}
	if sub, ok := breakStarts[text]; ok {
		return BREAK_START, sub
	}
	if sub, ok := breakEnds[text]; ok {
		return BREAK_END, sub
	}

	switch {
	case reSpeedLevelPlus.MatchString(text):
		return SPEED_LEVEL_PLUS, SubNone
	case reSpeedLevelLvl.MatchString(text):
		return SPEED_LEVEL_LEVEL, SubNone
	case reSpeedVFR.MatchString(text):
		return SPEED_VFR, SubNone
	case reSpeedLevel.MatchString(text):
		return SPEED_LEVEL, SubNone
	case reLatLongBD.MatchString(text):
		return LAT_LONG_BEARING_DISTANCE, SubNone
	case reLatLongDM.MatchString(text), reLatLongD.MatchString(text):
		return LAT_LONG, SubNone
	case reSidStar.MatchString(text):
		return SID_STAR, SubNone
	case reATSRoute.MatchString(text):
		return ATS_ROUTE, SubNone
	case reStayN.MatchString(text):
		return STAY_N, SubNone
	case rePoint.MatchString(text):
		return POINT, SubNone
	case reStayTime.MatchString(text):
		return STAY_TIME, SubNone
	}

	if len(text) > tooLongLimit {
		return TOO_LONG, SubNone
	}
	return UNKNOWN, SubNone
}

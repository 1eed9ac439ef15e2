package field15

import "fmt"

// Rules is the flight-rules/message-handling regime in effect at a given
// point in the route.
type Rules int

const (
	RulesIFR Rules = iota
	RulesVFR
	RulesOAT
	RulesGAT
	RulesIFPS
)

func (r Rules) String() string {
	switch r {
	case RulesVFR:
		return "VFR"
	case RulesOAT:
		return "OAT"
	case RulesGAT:
		return "GAT"
	case RulesIFPS:
		return "IFPS"
	default:
		return "IFR"
	}
}

// RouteElement is one row of the Extracted Route Sequence: a point name
// (or synthetic ADEP/ADES marker, or a keyword such as DCT/C/SID/STAR, or
// a rule-change indicator), the rules/speed/level effective at that point,
// optional accumulated break text, and the source span of the token that
// produced it.
type RouteElement struct {
	PointName string
	Rules     Rules
	Speed     string
	Level     string
	BreakText string
	Start     int
	End       int

	// Coord holds the range-validated coordinate for LAT_LONG and
	// LAT_LONG_BEARING_DISTANCE elements; nil otherwise.
	Coord *LatLong
}

// String renders the element's printable form: "POINT_NAME RULES SPEED
// LEVEL [BREAK_TEXT]". The sentinel ADEP/ADES elements print as "ADEP
// RULES" / "ADES RULES" with no speed/level.
func (e RouteElement) String() string {
	if e.PointName == "ADEP" || e.PointName == "ADES" {
		return fmt.Sprintf("%s %s", e.PointName, e.Rules)
	}
	s := fmt.Sprintf("%s %s %s %s", e.PointName, e.Rules, e.Speed, e.Level)
	if e.BreakText != "" {
		s += " " + e.BreakText
	}
	return s
}

// ErrorRecord is a single diagnostic: a human-readable message and the
// source span of the offending token (or a synthesized position when no
// single token is to blame).
type ErrorRecord struct {
	Message string
	Start   int
	End     int
}

// ExtractedRouteSequence (ERS) is the sole output artifact of a parse: an
// append-only ordered list of RouteElements bracketed by synthetic
// ADEP/ADES elements, plus an append-only ordered list of errors.
type ExtractedRouteSequence struct {
	elements []*RouteElement
	errors   []ErrorRecord
	cursor   int
}

// NewExtractedRouteSequence creates an ERS prepopulated with ADEP and
// ADES sentinel elements (both defaulting to IFR, per spec.md §4.4).
func NewExtractedRouteSequence() *ExtractedRouteSequence {
	ers := &ExtractedRouteSequence{cursor: -1}
	ers.elements = []*RouteElement{
		{PointName: "ADEP", Rules: RulesIFR},
		{PointName: "ADES", Rules: RulesIFR},
	}
	return ers
}

// adep returns the always-first sentinel element.
func (e *ExtractedRouteSequence) adep() *RouteElement { return e.elements[0] }

// ades returns the always-last sentinel element.
func (e *ExtractedRouteSequence) ades() *RouteElement { return e.elements[len(e.elements)-1] }

// SetADEP overwrites the synthetic ADEP element's rules/speed/level. Used
// once, from the first SPEED_LEVEL/SPEED_VFR token, and again by the
// resync-after-error behavior in §4.4's terminal state.
func (e *ExtractedRouteSequence) SetADEP(rules Rules, speed, level string) {
	e.adep().Rules = rules
	e.adep().Speed = speed
	e.adep().Level = level
}

// SetADEPSpeedLevel updates the synthetic ADEP element's speed/level
// without touching its rules. Used when a SPEED_VFR resync opens a break
// immediately after the first element: the break, not ADEP, carries the
// VFR rules change.
func (e *ExtractedRouteSequence) SetADEPSpeedLevel(speed, level string) {
	e.adep().Speed = speed
	e.adep().Level = level
}

// AppendElement inserts a new RouteElement immediately before the ADES
// sentinel, which always remains last.
func (e *ExtractedRouteSequence) AppendElement(elem *RouteElement) {
	last := len(e.elements) - 1
	e.elements = append(e.elements, nil)
	copy(e.elements[last+1:], e.elements[last:])
	e.elements[last] = elem
}

// InsertBreakText concatenates text to the break buffer of the most
// recently appended element (the open BREAK_START element).
func (e *ExtractedRouteSequence) InsertBreakText(text string) {
	// len(e.elements) >= 2 always holds (ADEP, ADES); the break-open
	// element is the one immediately before ADES.
	target := e.elements[len(e.elements)-2]
	if target.BreakText == "" {
		target.BreakText = text
	} else {
		target.BreakText += " " + text
	}
}

// FinalizeADES sets the rules active at end-of-parse onto the ADES
// sentinel.
func (e *ExtractedRouteSequence) FinalizeADES(rules Rules) {
	e.ades().Rules = rules
}

// AppendError records a diagnostic. Errors are appended in the order
// encountered, which (because the parser reads left-to-right) is also
// source-position order, satisfying spec.md §8 invariant 5.
func (e *ExtractedRouteSequence) AppendError(message string, start, end int) {
	e.errors = append(e.errors, ErrorRecord{Message: message, Start: start, End: end})
}

// NumberOfErrors reports the total error count.
func (e *ExtractedRouteSequence) NumberOfErrors() int { return len(e.errors) }

// Errors returns the ordered list of recorded diagnostics.
func (e *ExtractedRouteSequence) Errors() []ErrorRecord { return e.errors }

// NumberOfElements reports the total element count, including the ADEP
// and ADES sentinels.
func (e *ExtractedRouteSequence) NumberOfElements() int { return len(e.elements) }

// ElementAt returns the element at the given index (0 is always ADEP),
// or nil if out of range.
func (e *ExtractedRouteSequence) ElementAt(i int) *RouteElement {
	if i < 0 || i >= len(e.elements) {
		return nil
	}
	return e.elements[i]
}

// FirstElement returns the ADEP sentinel.
func (e *ExtractedRouteSequence) FirstElement() *RouteElement { return e.adep() }

// LastElement returns the ADES sentinel.
func (e *ExtractedRouteSequence) LastElement() *RouteElement { return e.ades() }

// LastAppended returns the most recently appended non-ADES element, or
// the ADEP sentinel if nothing has been appended yet.
func (e *ExtractedRouteSequence) LastAppended() *RouteElement {
	return e.elements[len(e.elements)-2]
}

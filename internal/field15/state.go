package field15

import "fmt"

// parseState tags the route state machine's position, per spec.md §4.4 and
// §9's "model states as tagged variants" guidance.
type parseState int

const (
	stStart parseState = iota
	stAfterFirstSpeed
	stAfterPoint
	stAfterATSRoute
	stAfterDCT
	stAfterStayWaitSlash
	stAfterStayWaitTime
	stAfterC
	stAfterCWaitPoint
	stAfterCPointWaitSlash
	stAfterCPointSlashWaitLevel
	stAfterTruncate
	stInBreak
	stDone
)

// breakEndExpects maps a BREAK_END keyword to the BREAK_START keyword
// that should have preceded it, for the "No X section preceding..."
// diagnostic.
var breakEndExpects = map[string]string{
	"IFR":      "VFR",
	"GAT":      "OAT",
	"IFPSTART": "IFPSTOP",
}

// breakEndRulesFor maps a BREAK_END keyword to the Rules value adopted
// once the break is properly closed.
var breakEndRulesFor = map[string]Rules{
	"IFR":      RulesIFR,
	"GAT":      RulesGAT,
	"IFPSTART": RulesIFPS,
}

// parser carries the mutable state for a single ParseF15 run. It is
// discarded once the parse completes, per spec.md §4.4's ParserState
// definition.
type parser struct {
	ts    *TokenStream
	ers   *ExtractedRouteSequence
	rules Rules
	speed string
	level string
	state parseState

	sawRouteElement bool
	lastWasLatLong  bool

	// in_break bookkeeping.
	breakEndSeen  bool
	breakEndLabel string // "IFR" / "GAT" / "IFPSTART"
	breakEndRules Rules

	// STAY sub-sequence bookkeeping.
	stayTok Token

	// cruise/climb sub-sequence bookkeeping.
	cTok        Token
	cLastEnd    int
	cPointText  string
	cPointStart int
	cPointEnd   int
}

// ParseF15 drives the TokenStream, invokes Classify (already performed by
// Tokenize), mutates state, appends RouteElements and ErrorRecords to a
// fresh ExtractedRouteSequence, and returns it. Errors never abort the
// parse; the only caller-visible "failure" is ers.NumberOfErrors() > 0.
func ParseF15(ts *TokenStream) *ExtractedRouteSequence {
	ers := NewExtractedRouteSequence()

	if ts.Len() == 0 {
		ers.AppendError("Field 15 is empty", 0, 0)
		return ers
	}

	p := &parser{ts: ts, ers: ers, rules: RulesIFR, state: stStart}
	p.run()
	return ers
}

func quote(tok Token) string { return "'" + tok.Text + "'" }

func (p *parser) run() {
	first := p.ts.Next()
	switch first.Base {
	case SPEED_LEVEL:
		speed, level := splitSpeedLevel(first.Text)
		p.rules, p.speed, p.level = RulesIFR, speed, level
		p.ers.SetADEP(p.rules, p.speed, p.level)
		p.state = stAfterFirstSpeed
	case SPEED_VFR:
		speed, _ := splitSpeedVFR(first.Text)
		p.rules, p.speed, p.level = RulesVFR, speed, "F050"
		p.ers.SetADEP(p.rules, p.speed, p.level)
		p.ers.AppendElement(&RouteElement{
			PointName: "VFR", Rules: p.rules, Speed: p.speed, Level: p.level,
			Start: first.Start, End: first.End,
		})
		p.sawRouteElement = true
		p.breakEndRules = RulesIFR
		p.breakEndLabel = ""
		p.state = stInBreak
	default:
		p.ers.AppendError(
			fmt.Sprintf("The first Field 15 element must be a SPEED/LEVEL and not %s", quote(first)),
			first.Start, first.End)
		p.state = stDone
	}

	for p.state != stDone {
		tok := p.ts.Next()
		if tok.IsNone() {
			p.atEndOfStream()
			break
		}
		p.step(tok)
	}

	if !p.sawRouteElement && p.ers.NumberOfErrors() == 0 {
		p.ers.AppendError("Field 15 contains no route description", 0, 0)
	}
	p.ers.FinalizeADES(p.rules)
}

func (p *parser) step(tok Token) {
	switch p.state {
	case stAfterFirstSpeed:
		p.afterFirstSpeed(tok)
	case stAfterPoint:
		p.afterPoint(tok)
	case stAfterATSRoute:
		p.afterATSRoute(tok)
	case stAfterDCT:
		p.afterDCT(tok)
	case stAfterStayWaitSlash:
		p.afterStayWaitSlash(tok)
	case stAfterStayWaitTime:
		p.afterStayWaitTime(tok)
	case stAfterC:
		p.afterC(tok)
	case stAfterCWaitPoint:
		p.afterCWaitPoint(tok)
	case stAfterCPointWaitSlash:
		p.afterCPointWaitSlash(tok)
	case stAfterCPointSlashWaitLevel:
		p.afterCPointSlashWaitLevel(tok)
	case stAfterTruncate:
		p.afterTruncate(tok)
	case stInBreak:
		p.inBreak(tok)
	}
}

func (p *parser) atEndOfStream() {
	switch p.state {
	case stAfterC:
		p.ers.AppendElement(&RouteElement{
			PointName: "C", Rules: p.rules, Speed: p.speed, Level: p.level,
			Start: p.cTok.Start, End: p.cTok.End,
		})
		p.sawRouteElement = true
	case stAfterCWaitPoint, stAfterCPointWaitSlash:
		label := p.ts.Slice(p.cTok.Start, p.cLastEnd)
		p.ers.AppendError(
			fmt.Sprintf("Expecting point / speed / altitude / altitude after start of Cruise/Climb indicator '%s'", label),
			p.cLastEnd, p.cLastEnd)
	case stAfterCPointSlashWaitLevel:
		label := p.ts.Slice(p.cTok.Start, p.cLastEnd)
		p.ers.AppendError(
			fmt.Sprintf("Expecting speed / altitude / altitude after start of Cruise/Climb indicator '%s'", label),
			p.cLastEnd, p.cLastEnd)
	case stAfterStayWaitSlash:
		p.ers.AppendError(
			fmt.Sprintf("Expecting STAY time as '/HHMM' after %s", quote(p.stayTok)),
			p.stayTok.Start, p.stayTok.End)
	case stAfterStayWaitTime:
		p.ers.AppendError("Time value as HHMM token missing after '/'", p.stayTok.End, p.stayTok.End)
	}
}

// appendPointElement appends tok as a route element carrying the parser's
// current rules/speed/level, tracking whether it was a Lat/Long point (for
// the "ATS route cannot follow a Lat/Long point" rule) and, for Lat/Long
// tokens, range-validating and attaching the parsed coordinate.
func (p *parser) appendPointElement(tok Token) {
	elem := &RouteElement{PointName: tok.Text, Rules: p.rules, Speed: p.speed, Level: p.level, Start: tok.Start, End: tok.End}

	switch tok.Base {
	case LAT_LONG:
		p.attachCoord(elem, tok, tok.Text)
		p.lastWasLatLong = true
	case LAT_LONG_BEARING_DISTANCE:
		p.attachCoord(elem, tok, tok.Text[:len(tok.Text)-6])
		p.lastWasLatLong = true
	default:
		p.lastWasLatLong = false
	}

	p.ers.AppendElement(elem)
	p.sawRouteElement = true
}

func (p *parser) attachCoord(elem *RouteElement, tok Token, coordText string) {
	ll, ok := ParseLatLong(coordText)
	if !ok {
		return
	}
	elem.Coord = &ll
	if ll.LatOutOfRange {
		p.ers.AppendError(fmt.Sprintf("Latitude value in %s is out of range", quote(tok)), tok.Start, tok.End)
	}
	if ll.LonOutOfRange {
		p.ers.AppendError(fmt.Sprintf("Longitude value in %s is out of range", quote(tok)), tok.Start, tok.End)
	}
}

func (p *parser) afterFirstSpeed(tok Token) {
	switch tok.Base {
	case DCT:
		p.appendPointElement(tok)
		p.state = stAfterDCT
	case POINT, LAT_LONG, LAT_LONG_BEARING_DISTANCE, SID, STAR, SID_STAR:
		p.appendPointElement(tok)
		p.state = stAfterPoint
	case TRUNCATE:
		p.state = stAfterTruncate
	case C_CRUISE_CLIMB:
		p.cTok = tok
		p.cLastEnd = tok.End
		p.state = stAfterC
	case SLASH:
		next := p.ts.Peek(1)
		if next.IsNone() {
			p.ers.AppendError("Field 15 cannot end with the '/' element", tok.Start, tok.End)
			p.state = stDone
			return
		}
		if next.Base == SPEED_LEVEL {
			p.ts.Next()
			p.rules = RulesIFR
			p.speed, p.level = splitSpeedLevel(next.Text)
			p.ers.SetADEP(p.rules, p.speed, p.level)
			return
		}
		if next.Base == SPEED_VFR {
			p.ts.Next()
			p.rules = RulesVFR
			p.speed, _ = splitSpeedVFR(next.Text)
			p.level = "F050"
			p.ers.SetADEPSpeedLevel(p.speed, p.level)
			p.ers.AppendElement(&RouteElement{
				PointName: "VFR", Rules: p.rules, Speed: p.speed, Level: p.level,
				Start: next.Start, End: next.End,
			})
			p.sawRouteElement = true
			p.breakEndRules = RulesIFR
			p.breakEndLabel = ""
			p.state = stInBreak
			return
		}
		p.ers.AppendError(
			fmt.Sprintf("'/' not expected preceding %s", quote(next)), next.Start, next.End)
	case ATS_ROUTE:
		p.ers.AppendError(
			fmt.Sprintf("Expecting SID or DPF after first SPEED/LEVEL element instead of %s", quote(tok)),
			tok.Start, tok.End)
	default:
		p.ers.AppendError(
			fmt.Sprintf("The first SPEED/LEVEL cannot be followed by the element %s", quote(tok)),
			tok.Start, tok.End)
	}
}

func (p *parser) afterPoint(tok Token) {
	switch tok.Base {
	case ATS_ROUTE:
		if p.lastWasLatLong {
			p.ers.AppendError(fmt.Sprintf("ATS route %s cannot follow a Lat/Long point", quote(tok)), tok.Start, tok.End)
			return
		}
		p.appendPointElement(tok)
		p.state = stAfterATSRoute
	case DCT:
		p.appendPointElement(tok)
		p.state = stAfterDCT
	case POINT, LAT_LONG, LAT_LONG_BEARING_DISTANCE, SID_STAR, STAR:
		p.appendPointElement(tok)
	case C_CRUISE_CLIMB:
		p.cTok = tok
		p.cLastEnd = tok.End
		p.state = stAfterC
	case STAY_N:
		p.stayTok = tok
		p.state = stAfterStayWaitSlash
	case TRUNCATE:
		p.state = stAfterTruncate
	case BREAK_START:
		p.openBreak(tok)
	case BREAK_END:
		p.rejectBreakEnd(tok)
	case SLASH:
		p.ruleChangeSlash(tok)
	case SPEED_LEVEL, SPEED_VFR:
		p.ers.AppendError(fmt.Sprintf("Expecting '/' before %s", quote(tok)), tok.Start, tok.End)
	case SPEED_LEVEL_LEVEL, SPEED_LEVEL_PLUS:
		p.ers.AppendError(fmt.Sprintf("Expecting 'C/POINT/' before %s", quote(tok)), tok.Start, tok.End)
	case STAY_TIME:
		p.ers.AppendError(fmt.Sprintf("Expecting the keyword 'STAY' before %s", quote(tok)), tok.Start, tok.End)
	case SID:
		p.ers.AppendError(
			fmt.Sprintf("SID %s must follow the first SPEED/ALTITUDE and cannot appear anywhere else in field 15", quote(tok)),
			tok.Start, tok.End)
	case TOO_LONG:
		p.ers.AppendError(fmt.Sprintf("Element %s is too long for a Field 15 Element", quote(tok)), tok.Start, tok.End)
	default:
		p.ers.AppendError(fmt.Sprintf("The element %s is an unrecognised Field 15 element", quote(tok)), tok.Start, tok.End)
	}
}

func (p *parser) ruleChangeSlash(tok Token) {
	next := p.ts.Peek(1)
	if next.IsNone() {
		p.ers.AppendError("Field 15 is incomplete, expecting additional data after the final '/'", tok.Start, tok.End)
		p.state = stDone
		return
	}
	if next.Base != SPEED_LEVEL && next.Base != SPEED_VFR {
		p.ers.AppendError(
			fmt.Sprintf("Expecting SPEED/LEVEL or SPEED/VFR after '/' instead of %s", quote(next)),
			next.Start, next.End)
		return
	}
	p.ts.Next()
	if next.Base == SPEED_LEVEL {
		p.speed, p.level = splitSpeedLevel(next.Text)
	} else {
		p.speed, _ = splitSpeedVFR(next.Text)
		p.level = "F050"
	}
}

func (p *parser) openBreak(tok Token) {
	switch tok.Text {
	case "VFR":
		p.rules = RulesVFR
	case "OAT":
		p.rules = RulesOAT
	case "IFPSTOP":
		p.rules = RulesIFPS
	}
	p.ers.AppendElement(&RouteElement{PointName: tok.Text, Rules: p.rules, Speed: p.speed, Level: p.level, Start: tok.Start, End: tok.End})
	p.sawRouteElement = true
	p.breakEndSeen = false
	p.state = stInBreak
}

func (p *parser) rejectBreakEnd(tok Token) {
	expected := breakEndExpects[tok.Text]
	p.ers.AppendError(fmt.Sprintf("No %s section preceding this %s rule change indicator", expected, quote(tok)), tok.Start, tok.End)
}

func (p *parser) afterATSRoute(tok Token) {
	switch tok.Base {
	case POINT, LAT_LONG, LAT_LONG_BEARING_DISTANCE:
		p.appendPointElement(tok)
		p.state = stAfterPoint
	case C_CRUISE_CLIMB:
		p.cTok = tok
		p.cLastEnd = tok.End
		p.state = stAfterC
	case TRUNCATE:
		p.state = stAfterTruncate
	case ATS_ROUTE:
		p.ers.AppendError(fmt.Sprintf("Add crossing point between previous ATS route and %s", quote(tok)), tok.Start, tok.End)
	case STAR, SID_STAR:
		p.ers.AppendError(fmt.Sprintf("Add APF between previous ATS route and STAR %s", quote(tok)), tok.Start, tok.End)
	case SID:
		p.ers.AppendError(
			fmt.Sprintf("SID %s must follow the first SPEED/ALTITUDE and cannot appear anywhere else in field 15", quote(tok)),
			tok.Start, tok.End)
	case DCT:
		p.ers.AppendError("Cannot go direct ('DCT') from an ATS route element, must be preceded by a point", tok.Start, tok.End)
	case SPEED_LEVEL:
		p.ers.AppendError(fmt.Sprintf("The SPEED/LEVEL %s cannot follow an ATS route", quote(tok)), tok.Start, tok.End)
	case SLASH:
		p.ers.AppendError("Expecting a PRP after an ATS route instead of '/'", tok.Start, tok.End)
	case BREAK_START, SPEED_VFR:
		p.ers.AppendError(fmt.Sprintf("Rule change %s cannot occur following an ATS route element", quote(tok)), tok.Start, tok.End)
	case STAY_N:
		p.ers.AppendError(fmt.Sprintf("%s must be preceded by a point", quote(tok)), tok.Start, tok.End)
	case BREAK_END:
		p.rejectBreakEnd(tok)
	case STAY_TIME:
		p.ers.AppendError(fmt.Sprintf("Expecting the keyword 'STAY' before %s", quote(tok)), tok.Start, tok.End)
	case TOO_LONG:
		p.ers.AppendError(fmt.Sprintf("Element %s is too long for a Field 15 Element", quote(tok)), tok.Start, tok.End)
	default:
		p.ers.AppendError(fmt.Sprintf("The element %s is an unrecognised Field 15 element", quote(tok)), tok.Start, tok.End)
	}
}

func (p *parser) afterDCT(tok Token) {
	switch tok.Base {
	case POINT, LAT_LONG, LAT_LONG_BEARING_DISTANCE:
		p.appendPointElement(tok)
		p.state = stAfterPoint
	case C_CRUISE_CLIMB:
		p.cTok = tok
		p.cLastEnd = tok.End
		p.state = stAfterC
	case TRUNCATE:
		p.state = stAfterTruncate
	default:
		p.ers.AppendError(fmt.Sprintf("A 'DCT' must be followed by a point instead of %s", quote(tok)), tok.Start, tok.End)
	}
}

func (p *parser) afterStayWaitSlash(tok Token) {
	if tok.Base == SLASH {
		p.state = stAfterStayWaitTime
		return
	}
	p.ers.AppendError(fmt.Sprintf("Expecting STAY time as '/HHMM' after %s", quote(p.stayTok)), tok.Start, tok.End)
}

func (p *parser) afterStayWaitTime(tok Token) {
	if tok.Base == STAY_TIME {
		p.ers.AppendElement(&RouteElement{PointName: p.stayTok.Text, Rules: p.rules, Speed: p.speed, Level: tok.Text, Start: p.stayTok.Start, End: tok.End})
		p.sawRouteElement = true
		p.state = stAfterPoint
		return
	}
	p.ers.AppendError("Expecting HHMM token following STAYx/ element", tok.Start, tok.End)
}

// commitC appends the pending bare 'C' as its own route element, carrying
// the current rules/speed/level exactly as any other point would.
func (p *parser) commitC() {
	p.ers.AppendElement(&RouteElement{PointName: "C", Rules: p.rules, Speed: p.speed, Level: p.level, Start: p.cTok.Start, End: p.cTok.End})
	p.sawRouteElement = true
}

// afterC handles the token immediately following a bare 'C'. A following
// '/' opens the cruise/climb sub-sequence (C is not committed as its own
// element in that case). A token that forms a legitimate continuation
// (DCT, a point, another C, TRUNCATE, an ATS route, a rule-change start,
// or the special-cased bare SID) commits C and is processed as if C
// itself had been the preceding point. Anything else is a hard reject:
// neither C nor the offending token is committed, and the diagnostic is
// exactly the one the corresponding after_point rejection would produce.
// STAY_N is the exception: after_point accepts it, but after C it is
// rejected with "Expecting STAY time as '/HHMM' after ...".
func (p *parser) afterC(tok Token) {
	if tok.Base == SLASH {
		p.cLastEnd = tok.End
		p.state = stAfterCWaitPoint
		return
	}

	switch tok.Base {
	case DCT:
		p.commitC()
		p.appendPointElement(tok)
		p.state = stAfterDCT
	case POINT, LAT_LONG, LAT_LONG_BEARING_DISTANCE, SID_STAR, STAR:
		p.commitC()
		p.appendPointElement(tok)
		p.state = stAfterPoint
	case ATS_ROUTE:
		p.commitC()
		p.appendPointElement(tok)
		p.state = stAfterATSRoute
	case TRUNCATE:
		p.commitC()
		p.state = stAfterTruncate
	case C_CRUISE_CLIMB:
		p.commitC()
		p.cTok = tok
		p.cLastEnd = tok.End
		p.state = stAfterC
	case BREAK_START:
		p.commitC()
		p.openBreak(tok)
	case SID:
		p.commitC()
		p.ers.AppendElement(&RouteElement{PointName: "SID", Rules: p.rules, Speed: p.speed, Level: p.level, Start: tok.Start, End: tok.End})
		p.ers.AppendError(
			"SID 'SID' must follow the first SPEED/ALTITUDE and cannot appear anywhere else in field 15",
			tok.Start, tok.End)
		p.state = stAfterPoint
	case STAY_N:
		p.ers.AppendError(fmt.Sprintf("Expecting STAY time as '/HHMM' after %s", quote(tok)), tok.Start, tok.End)
		p.state = stAfterPoint
	case BREAK_END:
		p.rejectBreakEnd(tok)
		p.state = stAfterPoint
	case SPEED_LEVEL, SPEED_VFR:
		p.ers.AppendError(fmt.Sprintf("Expecting '/' before %s", quote(tok)), tok.Start, tok.End)
		p.state = stAfterPoint
	case SPEED_LEVEL_LEVEL, SPEED_LEVEL_PLUS:
		p.ers.AppendError(fmt.Sprintf("Expecting 'C/POINT/' before %s", quote(tok)), tok.Start, tok.End)
		p.state = stAfterPoint
	case STAY_TIME:
		p.ers.AppendError(fmt.Sprintf("Expecting the keyword 'STAY' before %s", quote(tok)), tok.Start, tok.End)
		p.state = stAfterPoint
	case TOO_LONG:
		p.ers.AppendError(fmt.Sprintf("Element %s is too long for a Field 15 Element", quote(tok)), tok.Start, tok.End)
		p.state = stAfterPoint
	default:
		p.ers.AppendError(fmt.Sprintf("The element %s is an unrecognised Field 15 element", quote(tok)), tok.Start, tok.End)
		p.state = stAfterPoint
	}
}

func (p *parser) afterCWaitPoint(tok Token) {
	if tok.Base == POINT {
		p.cPointText, p.cPointStart, p.cPointEnd = tok.Text, tok.Start, tok.End
		p.cLastEnd = tok.End
		p.state = stAfterCPointWaitSlash
		return
	}
	label := p.ts.Slice(p.cTok.Start, p.cLastEnd)
	p.ers.AppendError(
		fmt.Sprintf("Expecting point / speed / altitude / altitude after start of Cruise/Climb indicator '%s'", label),
		tok.Start, tok.End)
	p.state = stAfterPoint
}

func (p *parser) afterCPointWaitSlash(tok Token) {
	if tok.Base == SLASH {
		p.cLastEnd = tok.End
		p.state = stAfterCPointSlashWaitLevel
		return
	}
	label := p.ts.Slice(p.cTok.Start, p.cLastEnd)
	p.ers.AppendError(
		fmt.Sprintf("Expecting point / speed / altitude / altitude after start of Cruise/Climb indicator '%s'", label),
		tok.Start, tok.End)
	p.ers.AppendElement(&RouteElement{PointName: p.cPointText, Rules: p.rules, Speed: p.speed, Level: p.level, Start: p.cPointStart, End: p.cPointEnd})
	p.sawRouteElement = true
	p.state = stAfterPoint
}

func (p *parser) afterCPointSlashWaitLevel(tok Token) {
	if tok.Base == SPEED_LEVEL_LEVEL || tok.Base == SPEED_LEVEL_PLUS {
		var speed, level string
		if tok.Base == SPEED_LEVEL_LEVEL {
			var level1, level2 string
			speed, level1, level2, _ = splitSpeedLevelLevel(tok.Text)
			level = level1 + level2
		} else {
			speed, level = splitSpeedLevelPlus(tok.Text)
		}
		p.speed, p.level = speed, level
		p.ers.AppendElement(&RouteElement{PointName: p.cPointText, Rules: p.rules, Speed: p.speed, Level: p.level, Start: p.cPointStart, End: p.cPointEnd})
		p.sawRouteElement = true
		p.state = stAfterPoint
		return
	}
	label := p.ts.Slice(p.cTok.Start, p.cLastEnd)
	p.ers.AppendError(
		fmt.Sprintf("Expecting speed / altitude / altitude after start of Cruise/Climb indicator '%s'", label),
		tok.Start, tok.End)
	p.ers.AppendElement(&RouteElement{PointName: p.cPointText, Rules: p.rules, Speed: p.speed, Level: p.level, Start: p.cPointStart, End: p.cPointEnd})
	p.sawRouteElement = true
	p.state = stAfterPoint
}

func (p *parser) afterTruncate(tok Token) {
	p.ers.AppendError(
		fmt.Sprintf("Expecting end of field 15 after truncation indicator 'T' instead od %s", quote(tok)),
		tok.Start, tok.End)
}

// inBreak buffers raw text between a BREAK_START and either a legitimate
// closure (a POINT, LAT_LONG, or LAT_LONG_BEARING_DISTANCE point followed
// by / SPEED_LEVEL or / SPEED_VFR) or the end of Field 15. Once a
// BREAK_END keyword has been seen, every other token kind continues to be
// absorbed with zero errors; only a closing-candidate point that fails to
// complete the rule change raises a diagnostic.
func (p *parser) inBreak(tok Token) {
	if !p.breakEndSeen {
		if tok.Base == BREAK_END {
			p.breakEndSeen = true
			p.breakEndLabel = tok.Text
			p.breakEndRules = breakEndRulesFor[tok.Text]
		}
		p.ers.InsertBreakText(tok.Text)
		return
	}

	if tok.Base == POINT || tok.Base == LAT_LONG || tok.Base == LAT_LONG_BEARING_DISTANCE {
		next1 := p.ts.Peek(1)
		next2 := p.ts.Peek(2)
		if next1.Base == SLASH && (next2.Base == SPEED_LEVEL || next2.Base == SPEED_VFR) {
			p.ts.Next()
			lvlTok := p.ts.Next()
			var speed, level string
			if lvlTok.Base == SPEED_LEVEL {
				speed, level = splitSpeedLevel(lvlTok.Text)
			} else {
				speed, _ = splitSpeedVFR(lvlTok.Text)
				level = "F050"
			}
			p.rules = p.breakEndRules
			p.speed, p.level = speed, level
			elem := &RouteElement{PointName: tok.Text, Rules: p.rules, Speed: p.speed, Level: p.level, Start: tok.Start, End: lvlTok.End}
			switch tok.Base {
			case LAT_LONG:
				p.attachCoord(elem, tok, tok.Text)
				p.lastWasLatLong = true
			case LAT_LONG_BEARING_DISTANCE:
				p.attachCoord(elem, tok, tok.Text[:len(tok.Text)-6])
				p.lastWasLatLong = true
			default:
				p.lastWasLatLong = false
			}
			p.ers.AppendElement(elem)
			p.sawRouteElement = true
			p.state = stAfterPoint
			return
		}
		p.ers.AppendError(
			fmt.Sprintf("Expecting '/SPEED/LEVEL' following %s to complete rule change to %s", quote(tok), p.breakEndLabel),
			tok.Start, tok.End)
		p.ers.InsertBreakText(tok.Text)
		return
	}

	p.ers.InsertBreakText(tok.Text)
}

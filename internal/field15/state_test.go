package field15

import "testing"

// parse is a small helper combining Tokenize and ParseF15, mirroring the
// pairing every caller in cmd/ and the original Python driver performs.
func parse(raw string) *ExtractedRouteSequence {
	return ParseF15(Tokenize(raw))
}

func elementStrings(ers *ExtractedRouteSequence) []string {
	out := make([]string, ers.NumberOfElements())
	for i := range out {
		out[i] = ers.ElementAt(i).String()
	}
	return out
}

func TestParseF15EmptyField(t *testing.T) {
	ers := parse("")
	if ers.NumberOfErrors() != 1 {
		t.Fatalf("errors = %d, want 1", ers.NumberOfErrors())
	}
	if got := ers.Errors()[0].Message; got != "Field 15 is empty" {
		t.Errorf("message = %q", got)
	}
}

func TestParseF15NoRouteDescription(t *testing.T) {
	ers := parse("N0450F350")
	if ers.NumberOfErrors() != 1 {
		t.Fatalf("errors = %d, want 1", ers.NumberOfErrors())
	}
	if got := ers.Errors()[0].Message; got != "Field 15 contains no route description" {
		t.Errorf("message = %q", got)
	}
}

func TestParseF15SimpleVFR(t *testing.T) {
	ers := parse("N0450VFR")
	if ers.NumberOfErrors() != 0 {
		t.Fatalf("errors = %d, want 0: %+v", ers.NumberOfErrors(), ers.Errors())
	}
	want := []string{"ADEP VFR", "VFR VFR N0450 F050", "ADES VFR"}
	got := elementStrings(ers)
	if len(got) != len(want) {
		t.Fatalf("elements = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("element %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestParseF15BasicRoute(t *testing.T) {
	ers := parse("N0450F350 DCT ABC DCT DEF")
	if ers.NumberOfErrors() != 0 {
		t.Fatalf("errors = %+v", ers.Errors())
	}
	want := []string{
		"ADEP IFR",
		"DCT IFR N0450 F350",
		"ABC IFR N0450 F350",
		"DCT IFR N0450 F350",
		"DEF IFR N0450 F350",
		"ADES IFR",
	}
	got := elementStrings(ers)
	if len(got) != len(want) {
		t.Fatalf("elements = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("element %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestParseF15RuleChangeBreakClosesWithSpeedLevel(t *testing.T) {
	ers := parse("N0450M0825 BGH VFR THIS IS VFR TEXT IFR XYZ/N0460M0830")
	if ers.NumberOfErrors() != 0 {
		t.Fatalf("errors = %+v", ers.Errors())
	}
	if got := ers.LastElement().Rules; got != RulesIFR {
		t.Errorf("ADES rules = %v, want IFR once the break closes", got)
	}
}

func TestParseF15RuleChangeBreakNeverCloses(t *testing.T) {
	// The break-end keyword is seen but never followed by a legitimate
	// POINT/SPEED/LEVEL closure, so the rules revert to the value in
	// effect when the break opened (VFR), not the break-end's target (IFR).
	ers := parse("N0450M0825 BGH VFR THIS IS VFR TEXT IFR")
	if got := ers.LastElement().Rules; got != RulesVFR {
		t.Errorf("ADES rules = %v, want VFR (break never closed)", got)
	}
}

func TestParseF15FirstElementMustBeSpeedLevel(t *testing.T) {
	ers := parse("ABC DCT DEF")
	if ers.NumberOfErrors() != 1 {
		t.Fatalf("errors = %d, want 1", ers.NumberOfErrors())
	}
	want := "The first Field 15 element must be a SPEED/LEVEL and not 'ABC'"
	if got := ers.Errors()[0].Message; got != want {
		t.Errorf("message = %q, want %q", got, want)
	}
}

func TestParseF15ATSRouteCannotFollowLatLong(t *testing.T) {
	ers := parse("N0450F350 4620N05000W B9")
	if ers.NumberOfErrors() != 1 {
		t.Fatalf("errors = %d, want 1: %+v", ers.NumberOfErrors(), ers.Errors())
	}
	want := "ATS route 'B9' cannot follow a Lat/Long point"
	if got := ers.Errors()[0].Message; got != want {
		t.Errorf("message = %q, want %q", got, want)
	}
}

func TestParseF15DoubleLatLongRangeError(t *testing.T) {
	ers := parse("N0450F350 9520N18500W")
	if ers.NumberOfErrors() != 2 {
		t.Fatalf("errors = %d, want 2: %+v", ers.NumberOfErrors(), ers.Errors())
	}
	if ers.Errors()[0].Message == ers.Errors()[1].Message {
		t.Errorf("expected distinct latitude/longitude range messages, got %+v", ers.Errors())
	}
}

func TestParseF15TruncateEndsRoute(t *testing.T) {
	ers := parse("N0450F350 DCT ABC T")
	if ers.NumberOfErrors() != 0 {
		t.Fatalf("errors = %+v", ers.Errors())
	}
}

func TestParseF15TruncateRejectsTrailingTokens(t *testing.T) {
	ers := parse("N0450F350 DCT ABC T DEF")
	if ers.NumberOfErrors() != 1 {
		t.Fatalf("errors = %d, want 1", ers.NumberOfErrors())
	}
	want := "Expecting end of field 15 after truncation indicator 'T' instead od 'DEF'"
	if got := ers.Errors()[0].Message; got != want {
		t.Errorf("message = %q, want %q", got, want)
	}
}

func TestParseF15StaySubSequence(t *testing.T) {
	ers := parse("N0450F350 DCT ABC STAY1/0130 DCT DEF")
	if ers.NumberOfErrors() != 0 {
		t.Fatalf("errors = %+v", ers.Errors())
	}
	stayElem := ers.ElementAt(3)
	if stayElem.PointName != "STAY1" || stayElem.Level != "0130" {
		t.Errorf("stay element = %+v", stayElem)
	}
}

func TestParseF15StayMissingSlash(t *testing.T) {
	ers := parse("N0450F350 DCT ABC STAY1")
	if ers.NumberOfErrors() != 1 {
		t.Fatalf("errors = %d, want 1: %+v", ers.NumberOfErrors(), ers.Errors())
	}
	want := "Expecting STAY time as '/HHMM' after 'STAY1'"
	if got := ers.Errors()[0].Message; got != want {
		t.Errorf("message = %q, want %q", got, want)
	}
}

// Cruise/climb ('C') sub-sequence, grounded on the original Python test
// suite's "Cruise Climb" scenarios.

func TestParseF15CruiseClimbBareCAtEndOfStream(t *testing.T) {
	ers := parse("N0450M0846 ABC C")
	if ers.NumberOfErrors() != 0 {
		t.Fatalf("errors = %+v", ers.Errors())
	}
	if ers.NumberOfElements() != 4 {
		t.Fatalf("elements = %d, want 4 (ADEP, ABC, C, ADES)", ers.NumberOfElements())
	}
	if ers.ElementAt(2).PointName != "C" {
		t.Errorf("element 2 = %q, want C", ers.ElementAt(2).PointName)
	}
}

func TestParseF15CruiseClimbIncompleteSlash(t *testing.T) {
	ers := parse("N0450M0846 ABC C/")
	if ers.NumberOfErrors() != 1 {
		t.Fatalf("errors = %d, want 1", ers.NumberOfErrors())
	}
	want := "Expecting point / speed / altitude / altitude after start of Cruise/Climb indicator 'C/'"
	if got := ers.Errors()[0].Message; got != want {
		t.Errorf("message = %q, want %q", got, want)
	}
}

func TestParseF15CruiseClimbIncompletePoint(t *testing.T) {
	ers := parse("N0450M0846 ABC C/PNT")
	if ers.NumberOfErrors() != 1 {
		t.Fatalf("errors = %d, want 1", ers.NumberOfErrors())
	}
	want := "Expecting point / speed / altitude / altitude after start of Cruise/Climb indicator 'C/PNT'"
	if got := ers.Errors()[0].Message; got != want {
		t.Errorf("message = %q, want %q", got, want)
	}
}

func TestParseF15CruiseClimbIncompletePointSlash(t *testing.T) {
	ers := parse("N0450M0846 ABC C/PNT/")
	if ers.NumberOfErrors() != 1 {
		t.Fatalf("errors = %d, want 1", ers.NumberOfErrors())
	}
	want := "Expecting speed / altitude / altitude after start of Cruise/Climb indicator 'C/PNT/'"
	if got := ers.Errors()[0].Message; got != want {
		t.Errorf("message = %q, want %q", got, want)
	}
}

func TestParseF15CruiseClimbComplete(t *testing.T) {
	for _, text := range []string{
		"N0450M0846 ABC C/PNT/N0100F110F220",
		"N0450M0846 ABC C/PNT/N0100F110PLUS",
	} {
		ers := parse(text)
		if ers.NumberOfErrors() != 0 {
			t.Errorf("%q: errors = %+v", text, ers.Errors())
		}
	}
}

func TestParseF15CruiseClimbBareSpeedLevelRejected(t *testing.T) {
	ers := parse("N0450M0846 ABC C N0330F120")
	if ers.NumberOfErrors() != 1 {
		t.Fatalf("errors = %d, want 1: %+v", ers.NumberOfErrors(), ers.Errors())
	}
	want := "Expecting '/' before 'N0330F120'"
	if got := ers.Errors()[0].Message; got != want {
		t.Errorf("message = %q, want %q", got, want)
	}
	if ers.NumberOfElements() != 3 {
		t.Fatalf("elements = %d, want 3 (ADEP, ABC, ADES); C should not be committed", ers.NumberOfElements())
	}
}

func TestParseF15CruiseClimbAcceptedFollowers(t *testing.T) {
	for _, text := range []string{
		"N0450M0846 ABC C VFR",
		"N0450M0846 ABC C DCT",
		"N0450M0846 ABC C C",
		"N0450M0846 ABC C PNT",
		"N0450M0846 ABC C B9",
		"N0450M0846 ABC C LNZ1A",
		"N0450M0846 ABC C STAR",
		"N0450M0846 ABC C T",
	} {
		ers := parse(text)
		if ers.NumberOfErrors() != 0 {
			t.Errorf("%q: errors = %+v", text, ers.Errors())
		}
		if ers.ElementAt(2).PointName != "C" {
			t.Errorf("%q: expected C to be committed as element 2, got %q", text, ers.ElementAt(2).PointName)
		}
	}
}

func TestParseF15CruiseClimbUnrecognisedFollowerDropsC(t *testing.T) {
	ers := parse("N0450M0846 ABC C UNKNOWN")
	if ers.NumberOfErrors() != 1 {
		t.Fatalf("errors = %d, want 1: %+v", ers.NumberOfErrors(), ers.Errors())
	}
	want := "The element 'UNKNOWN' is an unrecognised Field 15 element"
	if got := ers.Errors()[0].Message; got != want {
		t.Errorf("message = %q, want %q", got, want)
	}
	if ers.NumberOfElements() != 3 {
		t.Fatalf("elements = %d, want 3; C should not be committed", ers.NumberOfElements())
	}
}

func TestParseF15CruiseClimbStayFollowerDropsC(t *testing.T) {
	ers := parse("N0450M0846 ABC C STAY5")
	if ers.NumberOfErrors() != 1 {
		t.Fatalf("errors = %d, want 1: %+v", ers.NumberOfErrors(), ers.Errors())
	}
	want := "Expecting STAY time as '/HHMM' after 'STAY5'"
	if got := ers.Errors()[0].Message; got != want {
		t.Errorf("message = %q, want %q", got, want)
	}
	if ers.NumberOfElements() != 3 {
		t.Fatalf("elements = %d, want 3; neither C nor STAY5 should be committed", ers.NumberOfElements())
	}
}

func TestParseF15CruiseClimbSIDQuirk(t *testing.T) {
	ers := parse("N0450M0846 ABC C SID")
	if ers.NumberOfErrors() != 1 {
		t.Fatalf("errors = %d, want 1: %+v", ers.NumberOfErrors(), ers.Errors())
	}
	want := "SID 'SID' must follow the first SPEED/ALTITUDE and cannot appear anywhere else in field 15"
	if got := ers.Errors()[0].Message; got != want {
		t.Errorf("message = %q, want %q", got, want)
	}
	// Unlike every other rejection after a bare 'C', SID is committed
	// alongside C despite the accompanying error.
	if ers.NumberOfElements() != 5 {
		t.Fatalf("elements = %d, want 5 (ADEP, ABC, C, SID, ADES)", ers.NumberOfElements())
	}
	if ers.ElementAt(3).PointName != "SID" {
		t.Errorf("element 3 = %q, want SID", ers.ElementAt(3).PointName)
	}
}

func TestParseF15CruiseClimbBareStayTimeDropsC(t *testing.T) {
	ers := parse("N0450M0846 ABC C 1234")
	if ers.NumberOfErrors() != 1 {
		t.Fatalf("errors = %d, want 1: %+v", ers.NumberOfErrors(), ers.Errors())
	}
	want := "Expecting the keyword 'STAY' before '1234'"
	if got := ers.Errors()[0].Message; got != want {
		t.Errorf("message = %q, want %q", got, want)
	}
}

func TestParseF15CruiseClimbTooLongDropsC(t *testing.T) {
	ers := parse("N0450M0846 ABC C ABCDEFGHIJKLMNOPQRSTUVWXYZ")
	if ers.NumberOfErrors() != 1 {
		t.Fatalf("errors = %d, want 1: %+v", ers.NumberOfErrors(), ers.Errors())
	}
	want := "Element 'ABCDEFGHIJKLMNOPQRSTUVWXYZ' is too long for a Field 15 Element"
	if got := ers.Errors()[0].Message; got != want {
		t.Errorf("message = %q, want %q", got, want)
	}
}

// Post-ATS-route diagnostics.

func TestParseF15PostATSRouteUnrecognised(t *testing.T) {
	ers := parse("N0450F350 DCT ABC B9 UNKNOWN")
	if ers.NumberOfErrors() != 1 {
		t.Fatalf("errors = %d, want 1: %+v", ers.NumberOfErrors(), ers.Errors())
	}
	want := "The element 'UNKNOWN' is an unrecognised Field 15 element"
	if got := ers.Errors()[0].Message; got != want {
		t.Errorf("message = %q, want %q", got, want)
	}
}

func TestParseF15PostATSRouteSlash(t *testing.T) {
	ers := parse("N0450F350 DCT ABC B9 /")
	if ers.NumberOfErrors() != 1 {
		t.Fatalf("errors = %d, want 1: %+v", ers.NumberOfErrors(), ers.Errors())
	}
	want := "Expecting a PRP after an ATS route instead of '/'"
	if got := ers.Errors()[0].Message; got != want {
		t.Errorf("message = %q, want %q", got, want)
	}
}

func TestParseF15PostATSRouteRuleChange(t *testing.T) {
	ers := parse("N0450F350 DCT ABC B9 VFR")
	if ers.NumberOfErrors() != 1 {
		t.Fatalf("errors = %d, want 1: %+v", ers.NumberOfErrors(), ers.Errors())
	}
	want := "Rule change 'VFR' cannot occur following an ATS route element"
	if got := ers.Errors()[0].Message; got != want {
		t.Errorf("message = %q, want %q", got, want)
	}
}

func TestParseF15BreakEndWithoutMatchingStart(t *testing.T) {
	ers := parse("N0450F350 DCT ABC GAT")
	if ers.NumberOfErrors() != 1 {
		t.Fatalf("errors = %d, want 1: %+v", ers.NumberOfErrors(), ers.Errors())
	}
	want := "No OAT section preceding this 'GAT' rule change indicator"
	if got := ers.Errors()[0].Message; got != want {
		t.Errorf("message = %q, want %q", got, want)
	}
}

func TestParseF15BreakClosesWithLatLong(t *testing.T) {
	ers := parse("N0450M0825 ABC VFR IFR 00N001W/N0350F100 01N001W")
	if ers.NumberOfErrors() != 0 {
		t.Fatalf("errors = %+v", ers.Errors())
	}
	if got := ers.LastElement().Rules; got != RulesIFR {
		t.Errorf("ADES rules = %v, want IFR once the break closes via Lat/Long", got)
	}
	want := "01N001W IFR N0350 F100"
	last := ers.ElementAt(ers.NumberOfElements() - 2)
	if got := last.String(); got != want {
		t.Errorf("element = %q, want %q", got, want)
	}
}

func TestParseF15SlashResyncNotExpectedQuotesLookahead(t *testing.T) {
	// B9 is rejected twice (once before the '/' and once again as the
	// unconsumed lookahead token after it); the '/' diagnostic itself is
	// the second of the three and must quote the lookahead, not the '/'.
	ers := parse("N0450M0800 B9 / B9")
	if ers.NumberOfErrors() != 3 {
		t.Fatalf("errors = %d, want 3: %+v", ers.NumberOfErrors(), ers.Errors())
	}
	want := "'/' not expected preceding 'B9'"
	if got := ers.Errors()[1].Message; got != want {
		t.Errorf("message = %q, want %q", got, want)
	}
}

func TestParseF15SlashResyncEndOfStream(t *testing.T) {
	ers := parse("N0450M0700 B9 /")
	if ers.NumberOfErrors() != 2 {
		t.Fatalf("errors = %d, want 2: %+v", ers.NumberOfErrors(), ers.Errors())
	}
	want := "Field 15 cannot end with the '/' element"
	if got := ers.Errors()[1].Message; got != want {
		t.Errorf("message = %q, want %q", got, want)
	}
}

func TestParseF15RuleChangeSlashEndOfStream(t *testing.T) {
	ers := parse("M082F350 PNT /")
	if ers.NumberOfErrors() != 1 {
		t.Fatalf("errors = %d, want 1: %+v", ers.NumberOfErrors(), ers.Errors())
	}
	want := "Field 15 is incomplete, expecting additional data after the final '/'"
	if got := ers.Errors()[0].Message; got != want {
		t.Errorf("message = %q, want %q", got, want)
	}
}

func TestParseF15SlashResyncToVFRLeavesADEPRulesAlone(t *testing.T) {
	ers := parse("N0450M0800 B9 /N0100VFR")
	if ers.NumberOfErrors() != 1 {
		t.Fatalf("errors = %d, want 1 (the rejected B9): %+v", ers.NumberOfErrors(), ers.Errors())
	}
	if ers.NumberOfElements() != 3 {
		t.Fatalf("elements = %d, want 3 (ADEP, VFR, ADES)", ers.NumberOfElements())
	}
	adep := ers.FirstElement()
	if adep.Rules != RulesIFR || adep.Speed != "N0100" || adep.Level != "F050" {
		t.Errorf("ADEP = %+v, want Rules=IFR Speed=N0100 Level=F050", adep)
	}
	wantVFR := "VFR VFR N0100 F050"
	if got := ers.ElementAt(1).String(); got != wantVFR {
		t.Errorf("element 1 = %q, want %q", got, wantVFR)
	}
	if got := ers.LastElement().Rules; got != RulesVFR {
		t.Errorf("ADES rules = %v, want VFR", got)
	}
}

func TestParseF15ErrorsAreInSourceOrder(t *testing.T) {
	ers := parse("N0450F350 DCT ABC UNKNOWN1 UNKNOWN2")
	if ers.NumberOfErrors() != 2 {
		t.Fatalf("errors = %d, want 2: %+v", ers.NumberOfErrors(), ers.Errors())
	}
	if ers.Errors()[0].Start >= ers.Errors()[1].Start {
		t.Errorf("errors should be reported in source-position order, got %+v", ers.Errors())
	}
}

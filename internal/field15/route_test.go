package field15

import "testing"

func TestNewExtractedRouteSequencePrepopulatesSentinels(t *testing.T) {
	ers := NewExtractedRouteSequence()
	if ers.NumberOfElements() != 2 {
		t.Fatalf("NumberOfElements() = %d, want 2", ers.NumberOfElements())
	}
	if ers.FirstElement().PointName != "ADEP" {
		t.Errorf("FirstElement() = %q, want ADEP", ers.FirstElement().PointName)
	}
	if ers.LastElement().PointName != "ADES" {
		t.Errorf("LastElement() = %q, want ADES", ers.LastElement().PointName)
	}
	if ers.FirstElement().Rules != RulesIFR || ers.LastElement().Rules != RulesIFR {
		t.Errorf("sentinels should default to IFR")
	}
}

func TestAppendElementInsertsBeforeADES(t *testing.T) {
	ers := NewExtractedRouteSequence()
	ers.AppendElement(&RouteElement{PointName: "ABC"})
	ers.AppendElement(&RouteElement{PointName: "DEF"})
	if ers.NumberOfElements() != 4 {
		t.Fatalf("NumberOfElements() = %d, want 4", ers.NumberOfElements())
	}
	if ers.ElementAt(1).PointName != "ABC" {
		t.Errorf("element 1 = %q, want ABC", ers.ElementAt(1).PointName)
	}
	if ers.ElementAt(2).PointName != "DEF" {
		t.Errorf("element 2 = %q, want DEF", ers.ElementAt(2).PointName)
	}
	if ers.ElementAt(3).PointName != "ADES" {
		t.Errorf("ADES did not remain last")
	}
}

func TestInsertBreakTextAccumulates(t *testing.T) {
	ers := NewExtractedRouteSequence()
	ers.AppendElement(&RouteElement{PointName: "VFR"})
	ers.InsertBreakText("THIS")
	ers.InsertBreakText("IS")
	ers.InsertBreakText("TEXT")
	if got := ers.ElementAt(1).BreakText; got != "THIS IS TEXT" {
		t.Errorf("BreakText = %q, want %q", got, "THIS IS TEXT")
	}
}

func TestRouteElementString(t *testing.T) {
	cases := []struct {
		name string
		elem RouteElement
		want string
	}{
		{"adep", RouteElement{PointName: "ADEP", Rules: RulesIFR}, "ADEP IFR"},
		{"ades", RouteElement{PointName: "ADES", Rules: RulesVFR}, "ADES VFR"},
		{"point", RouteElement{PointName: "ABC", Rules: RulesIFR, Speed: "N0450", Level: "F350"}, "ABC IFR N0450 F350"},
		{
			"break with text",
			RouteElement{PointName: "VFR", Rules: RulesVFR, Speed: "N0450", Level: "F050", BreakText: "THIS IS TEXT"},
			"VFR VFR N0450 F050 THIS IS TEXT",
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := c.elem.String(); got != c.want {
				t.Errorf("String() = %q, want %q", got, c.want)
			}
		})
	}
}

func TestAppendErrorPreservesOrder(t *testing.T) {
	ers := NewExtractedRouteSequence()
	ers.AppendError("first", 0, 1)
	ers.AppendError("second", 2, 3)
	if ers.NumberOfErrors() != 2 {
		t.Fatalf("NumberOfErrors() = %d, want 2", ers.NumberOfErrors())
	}
	errs := ers.Errors()
	if errs[0].Message != "first" || errs[1].Message != "second" {
		t.Errorf("errors out of order: %+v", errs)
	}
}

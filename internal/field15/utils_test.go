package field15

import "testing"

func TestSplitSpeedLevel(t *testing.T) {
	speed, level := splitSpeedLevel("N0450F350")
	if speed != "N0450" || level != "F350" {
		t.Fatalf("got (%q,%q), want (N0450,F350)", speed, level)
	}
	speed, level = splitSpeedLevel("K0850S1000")
	if speed != "K0850" || level != "S1000" {
		t.Fatalf("got (%q,%q), want (K0850,S1000)", speed, level)
	}
}

func TestSplitSpeedVFR(t *testing.T) {
	speed, ok := splitSpeedVFR("N0450VFR")
	if !ok || speed != "N0450" {
		t.Fatalf("got (%q,%v), want (N0450,true)", speed, ok)
	}
	if _, ok := splitSpeedVFR("N0450F350"); ok {
		t.Fatalf("splitSpeedVFR should reject a non-VFR token")
	}
}

func TestSplitSpeedLevelLevel(t *testing.T) {
	speed, l1, l2, ok := splitSpeedLevelLevel("N0100F110F220")
	if !ok || speed != "N0100" || l1 != "F110" || l2 != "F220" {
		t.Fatalf("got (%q,%q,%q,%v)", speed, l1, l2, ok)
	}
}

func TestSplitSpeedLevelPlus(t *testing.T) {
	speed, level := splitSpeedLevelPlus("N0100F110PLUS")
	if speed != "N0100" || level != "F110" {
		t.Fatalf("got (%q,%q), want (N0100,F110)", speed, level)
	}
}

func TestParseLatLongDegreesMinutes(t *testing.T) {
	ll, ok := ParseLatLong("4620N05000W")
	if !ok {
		t.Fatalf("ParseLatLong rejected a valid degrees-minutes coordinate")
	}
	if ll.LatDegrees != 46 || ll.LatMinutes != 20 || ll.LatHemisphere != 'N' {
		t.Errorf("latitude = %d %d %c, want 46 20 N", ll.LatDegrees, ll.LatMinutes, ll.LatHemisphere)
	}
	if ll.LonDegrees != 50 || ll.LonMinutes != 0 || ll.LonHemisphere != 'W' {
		t.Errorf("longitude = %d %d %c, want 50 0 W", ll.LonDegrees, ll.LonMinutes, ll.LonHemisphere)
	}
	if ll.LatOutOfRange || ll.LonOutOfRange {
		t.Errorf("expected no range violation")
	}
}

func TestParseLatLongDegreesOnly(t *testing.T) {
	ll, ok := ParseLatLong("46N050W")
	if !ok {
		t.Fatalf("ParseLatLong rejected a valid degrees-only coordinate")
	}
	if ll.LatDegrees != 46 || ll.LonDegrees != 50 {
		t.Errorf("got lat=%d lon=%d, want 46/50", ll.LatDegrees, ll.LonDegrees)
	}
}

func TestParseLatLongOutOfRange(t *testing.T) {
	ll, ok := ParseLatLong("9520N18500W")
	if !ok {
		t.Fatalf("expected a syntactically valid coordinate")
	}
	if !ll.LatOutOfRange {
		t.Errorf("expected latitude 95 degrees to be out of range")
	}
	if !ll.LonOutOfRange {
		t.Errorf("expected longitude 185 degrees to be out of range")
	}
}

func TestParseLatLongRejectsBadHemisphere(t *testing.T) {
	if _, ok := ParseLatLong("46X050W"); ok {
		t.Fatalf("expected rejection of an invalid hemisphere letter")
	}
}

func TestLatLongDecimal(t *testing.T) {
	ll := LatLong{LatDegrees: 46, LatMinutes: 30, LatHemisphere: 'S', LonDegrees: 50, LonMinutes: 0, LonHemisphere: 'W'}
	lat, lon := ll.Decimal()
	if !lat.Equal(lat.Neg().Neg()) {
		t.Fatalf("sanity check on decimal arithmetic failed")
	}
	if lat.Sign() >= 0 {
		t.Errorf("southern latitude should convert to a negative decimal")
	}
	if lon.Sign() >= 0 {
		t.Errorf("western longitude should convert to a negative decimal")
	}
}

func TestParseStayTime(t *testing.T) {
	h, m, ok := ParseStayTime("0130")
	if !ok || h != 1 || m != 30 {
		t.Fatalf("got (%d,%d,%v), want (1,30,true)", h, m, ok)
	}
	if _, _, ok := ParseStayTime("2500"); ok {
		t.Fatalf("expected rejection of hour 25")
	}
	if _, _, ok := ParseStayTime("0160"); ok {
		t.Fatalf("expected rejection of minute 60")
	}
}

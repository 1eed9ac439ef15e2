package field15

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// speedPrefixLen returns the length of a SPEED_LEVEL-family token's speed
// prefix (the leading letter plus its digits): N (knots) and K (km/h)
// carry 4 speed digits, M (Mach hundredths) carries 3.
func speedPrefixLen(text string) int {
	n := 4
	if text[0] == 'M' {
		n = 3
	}
	return 1 + n
}

// levelAtomLen returns the length of one level atom (letter plus digits)
// starting at the front of s: F/A levels carry 3 digits, S/M levels carry
// 4.
func levelAtomLen(s string) int {
	switch s[0] {
	case 'F', 'A':
		return 4
	default: // 'S', 'M'
		return 5
	}
}

// splitSpeedLevel splits a SPEED_LEVEL token's text into its speed and
// level components, e.g. "N0450F350" -> ("N0450", "F350").
func splitSpeedLevel(text string) (speed, level string) {
	n := speedPrefixLen(text)
	return text[:n], text[n:]
}

// splitSpeedVFR splits a SPEED_VFR token's text into its speed component,
// stripping the trailing literal "VFR".
func splitSpeedVFR(text string) (speed string, ok bool) {
	if !strings.HasSuffix(text, "VFR") {
		return text, false
	}
	return text[:len(text)-3], true
}

// splitSpeedLevelLevel splits a SPEED_LEVEL_LEVEL token's text into its
// speed and two level atoms, e.g. "N0100F110F220" -> ("N0100", "F110",
// "F220").
func splitSpeedLevelLevel(text string) (speed, level1, level2 string, ok bool) {
	n := speedPrefixLen(text)
	if n >= len(text) {
		return text, "", "", false
	}
	speed = text[:n]
	rest := text[n:]
	l := levelAtomLen(rest)
	if l > len(rest) {
		return speed, rest, "", false
	}
	return speed, rest[:l], rest[l:], true
}

// splitSpeedLevelPlus splits a SPEED_LEVEL_PLUS token's text into its
// speed and level, stripping the trailing literal "PLUS".
func splitSpeedLevelPlus(text string) (speed, level string) {
	n := speedPrefixLen(text)
	speed = text[:n]
	level = strings.TrimSuffix(text[n:], "PLUS")
	return speed, level
}

// LatLong holds the parsed, range-validated components of a LAT_LONG
// token, plus the decimal-degree conversion used for downstream export
// (e.g. KML).
type LatLong struct {
	LatDegrees, LatMinutes int
	LatHemisphere          byte // 'N' or 'S'
	LonDegrees, LonMinutes int
	LonHemisphere          byte // 'E' or 'W'
	LatOutOfRange          bool
	LonOutOfRange          bool
}

// Decimal converts the parsed coordinate to signed decimal degrees,
// matching the teacher's coordinates.go conversion but carried through
// shopspring/decimal to avoid float accumulation error across repeated
// batch conversions (KML export of long routes).
func (ll LatLong) Decimal() (lat, lon decimal.Decimal) {
	lat = decimal.NewFromInt(int64(ll.LatDegrees)).
		Add(decimal.NewFromInt(int64(ll.LatMinutes)).Div(decimal.NewFromInt(60)))
	if ll.LatHemisphere == 'S' {
		lat = lat.Neg()
	}
	lon = decimal.NewFromInt(int64(ll.LonDegrees)).
		Add(decimal.NewFromInt(int64(ll.LonMinutes)).Div(decimal.NewFromInt(60)))
	if ll.LonHemisphere == 'W' {
		lon = lon.Neg()
	}
	return lat, lon
}

// ParseLatLong parses the numeric/hemisphere fields out of a LAT_LONG
// token's text and range-checks them. It accepts both the degrees-only
// form (DDHDDDH) and the degrees-minutes form (DDMMHDDDMMH). Range
// failures are reported via the returned LatLong's OutOfRange flags; the
// caller (ParseF15) is responsible for turning those into ErrorRecords -
// Classify itself never rejects a LAT_LONG-shaped token outright.
func ParseLatLong(text string) (LatLong, bool) {
	// Degrees-minutes form: DDMM(N|S)DDDMM(E|W) - 11 chars.
	if len(text) == 11 {
		latDeg, err1 := strconv.Atoi(text[0:2])
		latMin, err2 := strconv.Atoi(text[2:4])
		latHemi := text[4]
		lonDeg, err3 := strconv.Atoi(text[5:8])
		lonMin, err4 := strconv.Atoi(text[8:10])
		lonHemi := text[10]
		if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
			return LatLong{}, false
		}
		if latHemi != 'N' && latHemi != 'S' {
			return LatLong{}, false
		}
		if lonHemi != 'E' && lonHemi != 'W' {
			return LatLong{}, false
		}
		ll := LatLong{
			LatDegrees: latDeg, LatMinutes: latMin, LatHemisphere: latHemi,
			LonDegrees: lonDeg, LonMinutes: lonMin, LonHemisphere: lonHemi,
		}
		ll.LatOutOfRange = latMin >= 60 || latDeg > 90 || (latDeg == 90 && latMin > 0)
		ll.LonOutOfRange = lonMin >= 60 || lonDeg > 180 || (lonDeg == 180 && lonMin > 0)
		return ll, true
	}

	// Degrees-only form: DD(N|S)DDD(E|W) - 7 chars.
	if len(text) == 7 {
		latDeg, err1 := strconv.Atoi(text[0:2])
		latHemi := text[2]
		lonDeg, err2 := strconv.Atoi(text[3:6])
		lonHemi := text[6]
		if err1 != nil || err2 != nil {
			return LatLong{}, false
		}
		if latHemi != 'N' && latHemi != 'S' {
			return LatLong{}, false
		}
		if lonHemi != 'E' && lonHemi != 'W' {
			return LatLong{}, false
		}
		ll := LatLong{
			LatDegrees: latDeg, LatHemisphere: latHemi,
			LonDegrees: lonDeg, LonHemisphere: lonHemi,
		}
		ll.LatOutOfRange = latDeg > 90
		ll.LonOutOfRange = lonDeg > 180
		return ll, true
	}

	return LatLong{}, false
}

// ParseStayTime validates a four-digit HHMM token: hour must be < 24,
// minute must be < 60.
func ParseStayTime(text string) (hour, minute int, ok bool) {
	if len(text) != 4 {
		return 0, 0, false
	}
	h, err1 := strconv.Atoi(text[0:2])
	m, err2 := strconv.Atoi(text[2:4])
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	if h >= 24 || m >= 60 {
		return 0, 0, false
	}
	return h, m, true
}

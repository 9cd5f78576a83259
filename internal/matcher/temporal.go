package matcher

import (
	"strings"
	"time"

	"github.com/dicomflow/upsrs/internal/dicom"
)

// matchTemporal matches DA/TM/DT query values. A wildcard value is tested
// textually; a value containing "-" is a start-end range with open ends;
// anything else compares as a parsed timestamp, falling back to exact string
// equality when parsing fails.
func (m *Matcher) matchTemporal(qe, re dicom.Element) bool {
	qvals := qe.StringValues()
	if len(qvals) == 0 {
		return true
	}
	rvals := re.StringValues()
	for _, q := range qvals {
		if q == "" || q == "*" {
			return true
		}
		for _, r := range rvals {
			if m.matchOneTemporal(qe.VR, q, r) {
				return true
			}
		}
	}
	return false
}

func (m *Matcher) matchOneTemporal(vr dicom.VR, q, r string) bool {
	if hasWildcard(q) {
		return m.wildcardRegexp(q).MatchString(r)
	}
	if strings.Contains(q, "-") {
		return matchTemporalRange(vr, q, r)
	}
	qt, qok := parseTemporal(vr, q)
	rt, rok := parseTemporal(vr, r)
	if !qok || !rok {
		return q == r
	}
	return qt.Equal(rt)
}

func matchTemporalRange(vr dicom.VR, q, r string) bool {
	start, end, ok := strings.Cut(q, "-")
	if !ok {
		return false
	}
	rt, rok := parseTemporal(vr, r)
	if !rok {
		return false
	}
	if start != "" {
		st, ok := parseTemporal(vr, start)
		if !ok || rt.Before(st) {
			return false
		}
	}
	if end != "" {
		et, ok := parseTemporal(vr, end)
		if !ok || rt.After(et) {
			return false
		}
	}
	return true
}

var temporalLayouts = map[dicom.VR][]string{
	dicom.VRDA: {"20060102"},
	dicom.VRTM: {"150405", "1504", "15"},
	dicom.VRDT: {"20060102150405", "200601021504", "2006010215", "20060102", "200601", "2006"},
}

// parseTemporal parses a DA, TM, or DT value. Fractional seconds and UTC
// offset suffixes (either sign) are stripped before matching against the
// layout ladder; the digits of a TM or DT value never contain '-'.
func parseTemporal(vr dicom.VR, s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if vr == dicom.VRDT || vr == dicom.VRTM {
		if i := strings.IndexAny(s, "+-"); i >= 0 {
			s = s[:i]
		}
		if i := strings.IndexByte(s, '.'); i >= 0 {
			s = s[:i]
		}
	}
	for _, layout := range temporalLayouts[vr] {
		if len(s) != len(layout) {
			continue
		}
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

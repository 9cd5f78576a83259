// Package matcher evaluates a content query record against a work-item
// record: string wildcards, date/time ranges, code-sequence item matching,
// and recursive sequence matching. Matching is a pure function of its two
// arguments.
package matcher

import (
	"regexp"
	"strings"

	"github.com/maypok86/otter"

	"github.com/dicomflow/upsrs/internal/dicom"
)

// Tags whose items are coded entries matched on CodeValue plus
// CodingSchemeDesignator rather than recursively.
var codeSequenceTags = map[dicom.Tag]bool{
	dicom.TagHumanPerformerCodeSeq:        true,
	dicom.TagScheduledWorkitemCodeSeq:     true,
	dicom.TagScheduledStationNameCodeSeq:  true,
	dicom.TagScheduledStationClassCodeSeq: true,
	dicom.TagScheduledStationGeoCodeSeq:   true,
}

// Matcher holds a bounded cache of compiled wildcard patterns. Compilation
// is deterministic, so a cached entry is always valid for its key.
type Matcher struct {
	patterns otter.Cache[string, *regexp.Regexp]
}

// New creates a matcher with a pattern cache bounded to maxPatterns entries.
func New(maxPatterns int) *Matcher {
	cache, err := otter.MustBuilder[string, *regexp.Regexp](maxPatterns).
		Cost(func(_ string, _ *regexp.Regexp) uint32 { return 1 }).
		Build()
	if err != nil {
		panic("matcher: failed to create pattern cache: " + err.Error())
	}
	return &Matcher{patterns: cache}
}

// Close releases the pattern cache.
func (m *Matcher) Close() {
	m.patterns.Close()
}

// Match reports whether record satisfies every constraint in query.
// Tags absent from the query do not constrain; a query tag absent from the
// record fails the match. File meta tags (group 0002) are ignored.
func (m *Matcher) Match(query, record dicom.DataSet) bool {
	for _, tag := range query.Tags() {
		if tag.Group() == 0x0002 {
			continue
		}
		qe := query[tag]
		re, ok := record[tag]
		if !ok {
			return false
		}
		if !m.matchElement(tag, qe, re) {
			return false
		}
	}
	return true
}

func (m *Matcher) matchElement(tag dicom.Tag, qe, re dicom.Element) bool {
	switch {
	case qe.VR == dicom.VRSQ:
		if isCodeSequence(tag, qe) {
			return matchCodeSequence(qe, re)
		}
		return m.matchSequence(qe, re)
	case qe.VR.IsDateTime():
		return m.matchTemporal(qe, re)
	case qe.VR.IsString() || len(qe.StringValues()) > 0:
		return m.matchStrings(qe, re)
	default:
		return matchEquality(qe, re)
	}
}

// matchStrings matches when any query value accepts any record value.
func (m *Matcher) matchStrings(qe, re dicom.Element) bool {
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
			if m.matchOneString(q, r) {
				return true
			}
		}
	}
	return false
}

func (m *Matcher) matchOneString(q, r string) bool {
	if hasWildcard(q) {
		return m.wildcardRegexp(q).MatchString(r)
	}
	return q == r
}

func hasWildcard(s string) bool {
	return strings.ContainsAny(s, "*?")
}

// wildcardRegexp compiles a query value with * and ? wildcards into an
// anchored regexp, caching the result.
func (m *Matcher) wildcardRegexp(pattern string) *regexp.Regexp {
	if re, ok := m.patterns.Get(pattern); ok {
		return re
	}
	quoted := regexp.QuoteMeta(pattern)
	quoted = strings.ReplaceAll(quoted, `\*`, `.*`)
	quoted = strings.ReplaceAll(quoted, `\?`, `.`)
	re := regexp.MustCompile("^" + quoted + "$")
	m.patterns.Set(pattern, re)
	return re
}

// isCodeSequence reports whether the query element addresses a coded-entry
// sequence, either by tag or structurally: a nonempty sequence whose first
// item carries the code triplet.
func isCodeSequence(tag dicom.Tag, qe dicom.Element) bool {
	if codeSequenceTags[tag] {
		return true
	}
	items := qe.Items()
	if len(items) == 0 {
		return false
	}
	first := items[0]
	return first.Has(dicom.TagCodeValue) &&
		first.Has(dicom.TagCodingSchemeDesig) &&
		first.Has(dicom.TagCodeMeaning)
}

// matchCodeSequence requires every query item to be satisfied by some record
// item with the same CodeValue and CodingSchemeDesignator. A query item
// missing either field is a wildcard item.
func matchCodeSequence(qe, re dicom.Element) bool {
	ritems := re.Items()
	for _, qitem := range qe.Items() {
		qcv, okCV := qitem.String(dicom.TagCodeValue)
		qcs, okCS := qitem.String(dicom.TagCodingSchemeDesig)
		if !okCV || !okCS {
			continue
		}
		found := false
		for _, ritem := range ritems {
			rcv, _ := ritem.String(dicom.TagCodeValue)
			rcs, _ := ritem.String(dicom.TagCodingSchemeDesig)
			if rcv == qcv && rcs == qcs {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// matchSequence is the generic sequence rule: an empty query sequence
// matches anything; otherwise some record item must match some query item.
func (m *Matcher) matchSequence(qe, re dicom.Element) bool {
	qitems := qe.Items()
	if len(qitems) == 0 {
		return true
	}
	for _, ritem := range re.Items() {
		for _, qitem := range qitems {
			if m.Match(qitem, ritem) {
				return true
			}
		}
	}
	return false
}

func matchEquality(qe, re dicom.Element) bool {
	if len(qe.Value) == 0 {
		return true
	}
	for _, q := range qe.Value {
		for _, r := range re.Value {
			if q == r {
				return true
			}
		}
	}
	return false
}

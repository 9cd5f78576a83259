package dicom

import (
	"sort"
	"strings"
)

// DataSet is an attribute record keyed by tag. It is the unit stored in the
// work-item registry and carried on every request, response, and push frame.
type DataSet map[Tag]Element

// NewDataSet returns an empty record.
func NewDataSet() DataSet { return DataSet{} }

// Has reports whether the tag is present.
func (d DataSet) Has(t Tag) bool {
	_, ok := d[t]
	return ok
}

// Set stores an element under the tag.
func (d DataSet) Set(t Tag, e Element) { d[t] = e }

// SetString stores string values under the tag with the given VR.
func (d DataSet) SetString(t Tag, vr VR, values ...string) {
	vs := make([]any, len(values))
	for i, v := range values {
		vs[i] = v
	}
	d[t] = Element{VR: vr, Value: vs}
}

// SetInt stores integer values under the tag with the given VR.
func (d DataSet) SetInt(t Tag, vr VR, values ...int) {
	vs := make([]any, len(values))
	for i, v := range values {
		vs[i] = v
	}
	d[t] = Element{VR: vr, Value: vs}
}

// SetPersonName stores a PN element from its alphabetic form.
func (d DataSet) SetPersonName(t Tag, alphabetic string) {
	d[t] = Element{VR: VRPN, Value: []any{PersonName{Alphabetic: alphabetic}}}
}

// SetSeq stores a sequence element whose items are the given records.
func (d DataSet) SetSeq(t Tag, items ...DataSet) {
	vs := make([]any, len(items))
	for i, it := range items {
		vs[i] = it
	}
	d[t] = Element{VR: VRSQ, Value: vs}
}

// String returns the first string value of the tag, with presence.
func (d DataSet) String(t Tag) (string, bool) {
	e, ok := d[t]
	if !ok {
		return "", false
	}
	s := e.FirstString()
	return s, s != ""
}

// Strings returns all string values of the tag.
func (d DataSet) Strings(t Tag) []string {
	e, ok := d[t]
	if !ok {
		return nil
	}
	return e.StringValues()
}

// Int returns the first integer value of the tag, with presence.
func (d DataSet) Int(t Tag) (int, bool) {
	e, ok := d[t]
	if !ok {
		return 0, false
	}
	for _, v := range e.Value {
		switch x := v.(type) {
		case int:
			return x, true
		case float64:
			return int(x), true
		}
	}
	return 0, false
}

// Seq returns the sequence items of the tag.
func (d DataSet) Seq(t Tag) []DataSet {
	e, ok := d[t]
	if !ok {
		return nil
	}
	return e.Items()
}

// Delete removes the tag.
func (d DataSet) Delete(t Tag) { delete(d, t) }

// Tags returns the present tags in ascending order.
func (d DataSet) Tags() []Tag {
	out := make([]Tag, 0, len(d))
	for t := range d {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Clone returns a deep copy, sequences included.
func (d DataSet) Clone() DataSet {
	c := make(DataSet, len(d))
	for t, e := range d {
		c[t] = e.clone()
	}
	return c
}

// Merge overwrites the receiver's elements with those of other, tag by tag.
// Nested sequences are replaced wholesale, not merged item-wise.
func (d DataSet) Merge(other DataSet) {
	for t, e := range other {
		d[t] = e.clone()
	}
}

// Pick returns a copy containing only the given tags (of those present).
func (d DataSet) Pick(tags []Tag) DataSet {
	c := NewDataSet()
	for _, t := range tags {
		if e, ok := d[t]; ok {
			c[t] = e.clone()
		}
	}
	return c
}

// DebugString renders a compact one-line form for logs and test failures.
func (d DataSet) DebugString() string {
	var b strings.Builder
	for i, t := range d.Tags() {
		if i > 0 {
			b.WriteByte(' ')
		}
		e := d[t]
		b.WriteString(t.String())
		b.WriteByte('=')
		if e.VR == VRSQ {
			b.WriteString("SQ[")
			for j, it := range e.Items() {
				if j > 0 {
					b.WriteByte(',')
				}
				b.WriteByte('{')
				b.WriteString(it.DebugString())
				b.WriteByte('}')
			}
			b.WriteByte(']')
		} else {
			b.WriteString(strings.Join(e.StringValues(), "\\"))
		}
	}
	return b.String()
}

package dicom

// Element is a single data element: a VR plus zero or more values. Value
// entries are string, int, float64, PersonName, or DataSet (sequence items)
// depending on the VR. An element with an empty Value slice encodes a
// zero-length attribute.
type Element struct {
	VR    VR
	Value []any
}

// Empty reports whether the element carries no values.
func (e Element) Empty() bool { return len(e.Value) == 0 }

// StringValues returns the element's values flattened to strings for
// comparison. Person names flatten to their primary component group; numeric
// values are skipped.
func (e Element) StringValues() []string {
	out := make([]string, 0, len(e.Value))
	for _, v := range e.Value {
		switch x := v.(type) {
		case string:
			out = append(out, x)
		case PersonName:
			out = append(out, x.Flat())
		}
	}
	return out
}

// FirstString returns the first string-typed value, or "".
func (e Element) FirstString() string {
	vals := e.StringValues()
	if len(vals) == 0 {
		return ""
	}
	return vals[0]
}

// Items returns the element's sequence items. Non-SQ elements yield nil.
func (e Element) Items() []DataSet {
	if e.VR != VRSQ {
		return nil
	}
	out := make([]DataSet, 0, len(e.Value))
	for _, v := range e.Value {
		if ds, ok := v.(DataSet); ok {
			out = append(out, ds)
		}
	}
	return out
}

func (e Element) clone() Element {
	c := Element{VR: e.VR}
	if e.Value == nil {
		return c
	}
	c.Value = make([]any, len(e.Value))
	for i, v := range e.Value {
		if ds, ok := v.(DataSet); ok {
			c.Value[i] = ds.Clone()
		} else {
			c.Value[i] = v
		}
	}
	return c
}

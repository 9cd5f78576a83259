package dicom

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// jsonElement is the wire shape of a single attribute per PS3.18 Annex F.
type jsonElement struct {
	VR    string            `json:"vr"`
	Value []json.RawMessage `json:"Value,omitempty"`
}

// MarshalJSON renders the record as a PS3.18 JSON object with tags in
// ascending order, so equal records always encode to identical bytes.
func (d DataSet) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, t := range d.Tags() {
		if i > 0 {
			buf.WriteByte(',')
		}
		fmt.Fprintf(&buf, "%q:", t.String())
		b, err := marshalElement(d[t])
		if err != nil {
			return nil, fmt.Errorf("dicom: marshal %s: %w", t, err)
		}
		buf.Write(b)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func marshalElement(e Element) ([]byte, error) {
	je := jsonElement{VR: string(e.VR)}
	for _, v := range e.Value {
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		je.Value = append(je.Value, raw)
	}
	return json.Marshal(je)
}

// UnmarshalJSON parses a PS3.18 JSON object. Values are decoded per VR:
// sequences become nested records, PN values become PersonName (a bare
// string is accepted and treated as the alphabetic group), US/IS become
// ints, DS accepts both numbers and strings, everything else is a string.
func (d *DataSet) UnmarshalJSON(data []byte) error {
	var raw map[string]jsonElement
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("dicom: %w", err)
	}
	out := make(DataSet, len(raw))
	for key, je := range raw {
		t, err := ParseTag(key)
		if err != nil {
			return err
		}
		vr := VR(je.VR)
		if vr == "" {
			vr = VROf(t)
		}
		e := Element{VR: vr}
		for _, rv := range je.Value {
			v, err := decodeValue(vr, rv)
			if err != nil {
				return fmt.Errorf("dicom: decode %s: %w", t, err)
			}
			e.Value = append(e.Value, v)
		}
		out[t] = e
	}
	*d = out
	return nil
}

func decodeValue(vr VR, raw json.RawMessage) (any, error) {
	switch vr {
	case VRSQ:
		var item DataSet
		if err := json.Unmarshal(raw, &item); err != nil {
			return nil, err
		}
		return item, nil
	case VRPN:
		var pn PersonName
		if err := json.Unmarshal(raw, &pn); err == nil {
			return pn, nil
		}
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		return PersonName{Alphabetic: s}, nil
	case VRUS, VRIS:
		var n int
		if err := json.Unmarshal(raw, &n); err == nil {
			return n, nil
		}
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		return s, nil
	case VRDS:
		var f float64
		if err := json.Unmarshal(raw, &f); err == nil {
			return f, nil
		}
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		return s, nil
	default:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		return s, nil
	}
}

// ParseDataSet decodes a single PS3.18 JSON record.
func ParseDataSet(data []byte) (DataSet, error) {
	var d DataSet
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, err
	}
	return d, nil
}

package dicom

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestParseTag(t *testing.T) {
	tag, err := ParseTag("00741000")
	if err != nil {
		t.Fatalf("ParseTag: %v", err)
	}
	if tag != TagProcedureStepState {
		t.Fatalf("expected %08X, got %08X", uint32(TagProcedureStepState), uint32(tag))
	}
	if tag.Group() != 0x0074 || tag.Elem() != 0x1000 {
		t.Fatalf("unexpected group/elem %04X/%04X", tag.Group(), tag.Elem())
	}
	if tag.String() != "00741000" {
		t.Fatalf("expected 00741000, got %s", tag.String())
	}
	for _, bad := range []string{"", "1000", "0074100Z", "00741000X"} {
		if _, err := ParseTag(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestResolveTagOrKeyword(t *testing.T) {
	tag, vr, ok := ResolveTagOrKeyword("PatientName")
	if !ok || tag != TagPatientName || vr != VRPN {
		t.Fatalf("keyword lookup failed: %v %v %v", tag, vr, ok)
	}
	tag, vr, ok = ResolveTagOrKeyword("00100010")
	if !ok || tag != TagPatientName || vr != VRPN {
		t.Fatalf("hex lookup failed: %v %v %v", tag, vr, ok)
	}
	if _, _, ok := ResolveTagOrKeyword("NoSuchKeyword"); ok {
		t.Fatal("expected unknown keyword to fail")
	}
}

func TestDataSetCloneIsDeep(t *testing.T) {
	d := NewDataSet()
	d.SetSeq(TagScheduledWorkitemCodeSeq, func() DataSet {
		item := NewDataSet()
		item.SetString(TagCodeValue, VRSH, "110005")
		return item
	}())

	c := d.Clone()
	c.Seq(TagScheduledWorkitemCodeSeq)[0].SetString(TagCodeValue, VRSH, "CHANGED")

	if v, _ := d.Seq(TagScheduledWorkitemCodeSeq)[0].String(TagCodeValue); v != "110005" {
		t.Fatalf("clone mutated the original: %q", v)
	}
}

func TestDataSetMergeOverwritesPerTag(t *testing.T) {
	d := NewDataSet()
	d.SetString(TagProcedureStepState, VRCS, "SCHEDULED")
	d.SetString(TagPatientID, VRLO, "PID1")

	upd := NewDataSet()
	upd.SetString(TagProcedureStepState, VRCS, "IN PROGRESS")
	upd.SetString(TagWorklistLabel, VRLO, "WL")
	d.Merge(upd)

	if v, _ := d.String(TagProcedureStepState); v != "IN PROGRESS" {
		t.Fatalf("expected IN PROGRESS, got %q", v)
	}
	if v, _ := d.String(TagPatientID); v != "PID1" {
		t.Fatalf("untouched tag changed: %q", v)
	}
	if v, _ := d.String(TagWorklistLabel); v != "WL" {
		t.Fatalf("new tag missing: %q", v)
	}
}

func TestJSONRoundTrip(t *testing.T) {
	d := NewDataSet()
	d.SetString(TagSOPInstanceUID, VRUI, "1.2.3.4")
	d.SetString(TagProcedureStepState, VRCS, "SCHEDULED")
	d.SetPersonName(TagPatientName, "DOE^JOHN")
	d.SetInt(TagEventTypeID, VRUS, 1)
	d.SetSeq(TagScheduledWorkitemCodeSeq, func() DataSet {
		item := NewDataSet()
		item.SetString(TagCodeValue, VRSH, "110005")
		item.SetString(TagCodingSchemeDesig, VRSH, "DCM")
		return item
	}())

	b, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	got, err := ParseDataSet(b)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if v, _ := got.String(TagSOPInstanceUID); v != "1.2.3.4" {
		t.Fatalf("uid: %q", v)
	}
	if n, ok := got.Int(TagEventTypeID); !ok || n != 1 {
		t.Fatalf("event type: %d %v", n, ok)
	}
	pn := got[TagPatientName].Value[0].(PersonName)
	if pn.Alphabetic != "DOE^JOHN" {
		t.Fatalf("person name: %+v", pn)
	}
	items := got.Seq(TagScheduledWorkitemCodeSeq)
	if len(items) != 1 {
		t.Fatalf("expected 1 sequence item, got %d", len(items))
	}
	if v, _ := items[0].String(TagCodeValue); v != "110005" {
		t.Fatalf("code value: %q", v)
	}
}

func TestJSONMarshalIsDeterministic(t *testing.T) {
	d := NewDataSet()
	d.SetString(TagWorklistLabel, VRLO, "WL")
	d.SetString(TagSOPClassUID, VRUI, "1.2.840.10008.5.1.4.34.6.1")
	d.SetString(TagPatientID, VRLO, "PID")

	a, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	b, _ := json.Marshal(d)
	if !bytes.Equal(a, b) {
		t.Fatal("encodings differ between calls")
	}
	// Tags must appear in ascending numeric order.
	if bytes.Index(a, []byte("00080016")) > bytes.Index(a, []byte("00100020")) {
		t.Fatalf("tags out of order: %s", a)
	}
}

func TestJSONPersonNameStringForm(t *testing.T) {
	raw := []byte(`{"00100010":{"vr":"PN","Value":["DOE^JANE"]}}`)
	d, err := ParseDataSet(raw)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	pn := d[TagPatientName].Value[0].(PersonName)
	if pn.Alphabetic != "DOE^JANE" {
		t.Fatalf("expected alphabetic fallback, got %+v", pn)
	}
}

func TestJSONEmptyValueOmitted(t *testing.T) {
	d := NewDataSet()
	d.Set(TagTransactionUID, Element{VR: VRUI})
	b, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"00081195":{"vr":"UI"}}`
	if string(b) != want {
		t.Fatalf("expected %s, got %s", want, b)
	}
}

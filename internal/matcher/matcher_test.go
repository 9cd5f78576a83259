package matcher

import (
	"testing"

	"github.com/dicomflow/upsrs/internal/dicom"
)

func newTestMatcher(t *testing.T) *Matcher {
	t.Helper()
	m := New(64)
	t.Cleanup(m.Close)
	return m
}

func record(mutate func(dicom.DataSet)) dicom.DataSet {
	d := dicom.NewDataSet()
	mutate(d)
	return d
}

func TestMatchWildcard(t *testing.T) {
	m := newTestMatcher(t)
	query := record(func(d dicom.DataSet) { d.SetPersonName(dicom.TagPatientName, "TEST*") })

	hit := record(func(d dicom.DataSet) { d.SetPersonName(dicom.TagPatientName, "TEST^PATIENT") })
	if !m.Match(query, hit) {
		t.Fatal("expected TEST* to match TEST^PATIENT")
	}
	miss := record(func(d dicom.DataSet) { d.SetPersonName(dicom.TagPatientName, "OTHER") })
	if m.Match(query, miss) {
		t.Fatal("expected TEST* not to match OTHER")
	}
}

func TestMatchQuestionMarkWildcard(t *testing.T) {
	m := newTestMatcher(t)
	query := record(func(d dicom.DataSet) { d.SetString(dicom.TagPatientID, dicom.VRLO, "PID?") })
	hit := record(func(d dicom.DataSet) { d.SetString(dicom.TagPatientID, dicom.VRLO, "PID7") })
	miss := record(func(d dicom.DataSet) { d.SetString(dicom.TagPatientID, dicom.VRLO, "PID77") })
	if !m.Match(query, hit) {
		t.Fatal("expected PID? to match PID7")
	}
	if m.Match(query, miss) {
		t.Fatal("expected PID? not to match PID77")
	}
}

func TestMatchAbsentTagFails(t *testing.T) {
	m := newTestMatcher(t)
	query := record(func(d dicom.DataSet) { d.SetString(dicom.TagPatientID, dicom.VRLO, "PID1") })
	if m.Match(query, dicom.NewDataSet()) {
		t.Fatal("expected match failure when record lacks the query tag")
	}
}

func TestMatchEmptyAndStarMatchAnything(t *testing.T) {
	m := newTestMatcher(t)
	rec := record(func(d dicom.DataSet) { d.SetString(dicom.TagPatientID, dicom.VRLO, "PID1") })
	for _, v := range []string{"", "*"} {
		query := record(func(d dicom.DataSet) { d.SetString(dicom.TagPatientID, dicom.VRLO, v) })
		if !m.Match(query, rec) {
			t.Fatalf("expected %q to match anything", v)
		}
	}
}

func TestMatchConjunctive(t *testing.T) {
	m := newTestMatcher(t)
	rec := record(func(d dicom.DataSet) {
		d.SetString(dicom.TagPatientID, dicom.VRLO, "PID1")
		d.SetString(dicom.TagProcedureStepState, dicom.VRCS, "SCHEDULED")
	})
	query := record(func(d dicom.DataSet) {
		d.SetString(dicom.TagPatientID, dicom.VRLO, "PID1")
		d.SetString(dicom.TagProcedureStepState, dicom.VRCS, "COMPLETED")
	})
	if m.Match(query, rec) {
		t.Fatal("expected conjunctive failure on second tag")
	}
}

func TestMatchDateRange(t *testing.T) {
	m := newTestMatcher(t)
	rec := record(func(d dicom.DataSet) { d.SetString(dicom.TagPatientBirthDate, dicom.VRDA, "19800615") })

	cases := []struct {
		q    string
		want bool
	}{
		{"19800101-19801231", true},
		{"19810101-19811231", false},
		{"19800615", true},
		{"19800616", false},
		{"-19801231", true},
		{"19800101-", true},
		{"19810101-", false},
		{"198006*", true},
		{"*", true},
	}
	for _, c := range cases {
		query := record(func(d dicom.DataSet) { d.SetString(dicom.TagPatientBirthDate, dicom.VRDA, c.q) })
		if got := m.Match(query, rec); got != c.want {
			t.Fatalf("query %q: expected %v, got %v", c.q, c.want, got)
		}
	}
}

func TestMatchDateTimeRange(t *testing.T) {
	m := newTestMatcher(t)
	rec := record(func(d dicom.DataSet) {
		d.SetString(dicom.TagScheduledProcStepStartDateTime, dicom.VRDT, "20250115103000")
	})
	query := record(func(d dicom.DataSet) {
		d.SetString(dicom.TagScheduledProcStepStartDateTime, dicom.VRDT, "20250115000000-20250115235959")
	})
	if !m.Match(query, rec) {
		t.Fatal("expected datetime inside range to match")
	}
}

func TestMatchDateTimeNegativeOffsetRecord(t *testing.T) {
	m := newTestMatcher(t)
	rec := record(func(d dicom.DataSet) {
		d.SetString(dicom.TagScheduledProcStepStartDateTime, dicom.VRDT, "20230101120000-0500")
	})

	inRange := record(func(d dicom.DataSet) {
		d.SetString(dicom.TagScheduledProcStepStartDateTime, dicom.VRDT, "20230101000000-20230101235959")
	})
	if !m.Match(inRange, rec) {
		t.Fatal("expected record with negative UTC offset to fall inside range")
	}

	equal := record(func(d dicom.DataSet) {
		d.SetString(dicom.TagScheduledProcStepStartDateTime, dicom.VRDT, "20230101120000")
	})
	if !m.Match(equal, rec) {
		t.Fatal("expected negative UTC offset to be ignored for equality")
	}
}

func TestMatchDateTimeEqualIgnoresFraction(t *testing.T) {
	m := newTestMatcher(t)
	rec := record(func(d dicom.DataSet) {
		d.SetString(dicom.TagScheduledProcStepStartDateTime, dicom.VRDT, "20250115103000.123456")
	})
	query := record(func(d dicom.DataSet) {
		d.SetString(dicom.TagScheduledProcStepStartDateTime, dicom.VRDT, "20250115103000")
	})
	if !m.Match(query, rec) {
		t.Fatal("expected fractional seconds to be ignored")
	}
}

func TestMatchCodeSequence(t *testing.T) {
	m := newTestMatcher(t)
	rec := record(func(d dicom.DataSet) {
		item := dicom.NewDataSet()
		item.SetString(dicom.TagCodeValue, dicom.VRSH, "110005")
		item.SetString(dicom.TagCodingSchemeDesig, dicom.VRSH, "DCM")
		item.SetString(dicom.TagCodeMeaning, dicom.VRLO, "CT Study")
		d.SetSeq(dicom.TagScheduledWorkitemCodeSeq, item)
	})

	match := record(func(d dicom.DataSet) {
		item := dicom.NewDataSet()
		item.SetString(dicom.TagCodeValue, dicom.VRSH, "110005")
		item.SetString(dicom.TagCodingSchemeDesig, dicom.VRSH, "DCM")
		d.SetSeq(dicom.TagScheduledWorkitemCodeSeq, item)
	})
	if !m.Match(match, rec) {
		t.Fatal("expected code value + scheme match")
	}

	wrongScheme := record(func(d dicom.DataSet) {
		item := dicom.NewDataSet()
		item.SetString(dicom.TagCodeValue, dicom.VRSH, "110005")
		item.SetString(dicom.TagCodingSchemeDesig, dicom.VRSH, "SCT")
		d.SetSeq(dicom.TagScheduledWorkitemCodeSeq, item)
	})
	if m.Match(wrongScheme, rec) {
		t.Fatal("expected scheme mismatch to fail")
	}

	wildcardItem := record(func(d dicom.DataSet) {
		item := dicom.NewDataSet()
		item.SetString(dicom.TagCodeValue, dicom.VRSH, "110005")
		d.SetSeq(dicom.TagScheduledWorkitemCodeSeq, item)
	})
	if !m.Match(wildcardItem, rec) {
		t.Fatal("expected query item missing the scheme to act as wildcard")
	}
}

func TestMatchGenericSequence(t *testing.T) {
	m := newTestMatcher(t)
	rec := record(func(d dicom.DataSet) {
		item := dicom.NewDataSet()
		item.SetString(dicom.TagProcStepProgressDesc, dicom.VRST, "halfway")
		d.SetSeq(dicom.TagProcStepProgressInfoSeq, item)
	})

	empty := record(func(d dicom.DataSet) { d.SetSeq(dicom.TagProcStepProgressInfoSeq) })
	if !m.Match(empty, rec) {
		t.Fatal("expected empty query sequence to match")
	}

	nested := record(func(d dicom.DataSet) {
		item := dicom.NewDataSet()
		item.SetString(dicom.TagProcStepProgressDesc, dicom.VRST, "half*")
		d.SetSeq(dicom.TagProcStepProgressInfoSeq, item)
	})
	if !m.Match(nested, rec) {
		t.Fatal("expected recursive item match")
	}
}

func TestMatchSkipsFileMetaGroup(t *testing.T) {
	m := newTestMatcher(t)
	query := record(func(d dicom.DataSet) {
		d.SetString(dicom.Tag(0x00020010), dicom.VRUI, "1.2.840.10008.1.2.1")
	})
	if !m.Match(query, dicom.NewDataSet()) {
		t.Fatal("expected group 0002 tags to be ignored")
	}
}

func TestParseTemporal(t *testing.T) {
	if _, ok := parseTemporal(dicom.VRDA, "20250115"); !ok {
		t.Fatal("DA parse failed")
	}
	if _, ok := parseTemporal(dicom.VRTM, "1030"); !ok {
		t.Fatal("short TM parse failed")
	}
	if _, ok := parseTemporal(dicom.VRDT, "20250115103000.500000+0100"); !ok {
		t.Fatal("DT with fraction and offset parse failed")
	}
	if _, ok := parseTemporal(dicom.VRDT, "20230101120000-0500"); !ok {
		t.Fatal("DT with negative offset parse failed")
	}
	if _, ok := parseTemporal(dicom.VRTM, "103000-0500"); !ok {
		t.Fatal("TM with negative offset parse failed")
	}
	if _, ok := parseTemporal(dicom.VRDA, "2025-01-15"); ok {
		t.Fatal("expected non-DICOM date form to fail")
	}
}

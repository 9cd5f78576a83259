package ups

import (
	"time"

	"github.com/dicomflow/upsrs/internal/dicom"
)

// WorkItem is one unit of scheduled procedural work. The Record holds the
// full attribute payload; UID, TransactionUID, and the timestamps are the
// fields the core derives and owns.
type WorkItem struct {
	UID            string
	Record         dicom.DataSet
	TransactionUID string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// State reads the procedure step state from the record. A record without the
// state tag reads as SCHEDULED (new items are normalized on create).
func (w *WorkItem) State() State {
	s, ok := w.Record.String(dicom.TagProcedureStepState)
	if !ok {
		return StateScheduled
	}
	return State(s)
}

// SetState writes the state tag into the record.
func (w *WorkItem) SetState(s State) {
	w.Record.SetString(dicom.TagProcedureStepState, dicom.VRCS, string(s))
}

// InputReadinessState reads the readiness tag, or "" when absent.
func (w *WorkItem) InputReadinessState() string {
	s, _ := w.Record.String(dicom.TagInputReadinessState)
	return s
}

// Clone deep-copies the work item, record included.
func (w *WorkItem) Clone() *WorkItem {
	c := *w
	c.Record = w.Record.Clone()
	return &c
}

// PublicRecord returns a copy of the record suitable for a retrieve or
// search response: the transaction UID is a lock token and is never echoed.
func (w *WorkItem) PublicRecord() dicom.DataSet {
	r := w.Record.Clone()
	r.Delete(dicom.TagTransactionUID)
	return r
}

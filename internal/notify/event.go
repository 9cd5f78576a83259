// Package notify implements the push side of the service: the channel
// registry over websocket connections, the per-subscriber pending-event
// queue, the event-report builder, and the fan-out notifier that routes
// work-item events to their subscribers.
package notify

import (
	"sync/atomic"

	"github.com/dicomflow/upsrs/internal/dicom"
	"github.com/dicomflow/upsrs/internal/ups"
)

// Builder constructs the five event-report shapes. Message IDs advance
// monotonically in [1, 65534] and wrap; the counter is process-wide.
type Builder struct {
	messageID atomic.Uint32
}

// NewBuilder returns a builder whose first message ID is 1.
func NewBuilder() *Builder { return &Builder{} }

func (b *Builder) nextMessageID() int {
	for {
		cur := b.messageID.Load()
		next := cur + 1
		if next > 65534 {
			next = 1
		}
		if b.messageID.CompareAndSwap(cur, next) {
			return int(next)
		}
	}
}

// envelope builds the elements shared by every event report.
func (b *Builder) envelope(uid string, et ups.EventTypeID, readiness string, state ups.State) dicom.DataSet {
	if readiness == "" {
		readiness = "READY"
	}
	if _, err := ups.ParseState(string(state)); err != nil {
		state = ups.StateScheduled
	}
	ev := dicom.NewDataSet()
	ev.SetString(dicom.TagAffectedSOPClassUID, dicom.VRUI, ups.UPSEventSOPClassUID)
	ev.SetInt(dicom.TagMessageID, dicom.VRUS, b.nextMessageID())
	ev.SetString(dicom.TagAffectedSOPInstanceUID, dicom.VRUI, uid)
	ev.SetInt(dicom.TagEventTypeID, dicom.VRUS, int(et))
	ev.SetString(dicom.TagInputReadinessState, dicom.VRCS, readiness)
	ev.SetString(dicom.TagProcedureStepState, dicom.VRCS, string(state))
	return ev
}

// StateReport builds a UPS State Report (type 1).
func (b *Builder) StateReport(uid string, state ups.State, readiness, cancelReason string) dicom.DataSet {
	ev := b.envelope(uid, ups.EventStateReport, readiness, state)
	if cancelReason != "" {
		ev.SetString(dicom.TagReasonForCancellation, dicom.VRLT, cancelReason)
	}
	return ev
}

// CancelInfo carries the requester details on a cancel request.
type CancelInfo struct {
	RequestingAE       string
	Reason             string
	ContactURI         string
	ContactDisplayName string
}

// CancelRequested builds a UPS Cancel Requested report (type 2).
func (b *Builder) CancelRequested(uid string, state ups.State, readiness string, info CancelInfo) dicom.DataSet {
	ev := b.envelope(uid, ups.EventCancelRequested, readiness, state)
	ev.SetString(dicom.TagRequestingAE, dicom.VRAE, info.RequestingAE)
	if info.Reason != "" {
		ev.SetString(dicom.TagReasonForCancellation, dicom.VRLT, info.Reason)
	}
	if info.ContactURI != "" {
		ev.SetString(dicom.TagContactURI, dicom.VRUR, info.ContactURI)
	}
	if info.ContactDisplayName != "" {
		ev.SetString(dicom.TagContactDisplayName, dicom.VRLO, info.ContactDisplayName)
	}
	return ev
}

// ProgressReport builds a UPS Progress Report (type 3). The progress value
// is clamped to [0, 100].
func (b *Builder) ProgressReport(uid string, state ups.State, readiness string, progress int, description, contactURI, contactName string) dicom.DataSet {
	if progress < 0 {
		progress = 0
	} else if progress > 100 {
		progress = 100
	}

	uriItem := dicom.NewDataSet()
	if contactURI != "" {
		uriItem.SetString(dicom.TagContactURI, dicom.VRUR, contactURI)
	}
	if contactName != "" {
		uriItem.SetString(dicom.TagContactDisplayName, dicom.VRLO, contactName)
	}

	infoItem := dicom.NewDataSet()
	infoItem.SetInt(dicom.TagProcedureStepProgress, dicom.VRDS, progress)
	if description != "" {
		infoItem.SetString(dicom.TagProcStepProgressDesc, dicom.VRST, description)
	}
	infoItem.SetSeq(dicom.TagProcStepCommunicationsSeq, uriItem)

	ev := b.envelope(uid, ups.EventProgressReport, readiness, state)
	ev.SetSeq(dicom.TagProcStepProgressInfoSeq, infoItem)
	return ev
}

// SCP and list status values for the status-change report.
const (
	SCPRestarted = "RESTARTED"
	SCPGoingDown = "GOING DOWN"
	ListWarm     = "WARM START"
	ListCold     = "COLD START"
)

// SCPStatusChange builds a report about the SCP itself (type 4). The
// affected instance UID is empty.
func (b *Builder) SCPStatusChange(scpStatus, subscriptionListStatus, upsListStatus string) dicom.DataSet {
	ev := b.envelope("", ups.EventSCPStatusChange, "", ups.StateScheduled)
	ev.SetString(dicom.TagSCPStatus, dicom.VRCS, scpStatus)
	ev.SetString(dicom.TagSubscriptionListStatus, dicom.VRCS, subscriptionListStatus)
	ev.SetString(dicom.TagUPSListStatus, dicom.VRCS, upsListStatus)
	return ev
}

// Assigned builds a UPS Assigned report (type 5), copying the assignment
// sequences from the work-item record when present.
func (b *Builder) Assigned(uid string, readiness string, record dicom.DataSet) dicom.DataSet {
	ev := b.envelope(uid, ups.EventAssigned, readiness, ups.StateScheduled)
	for _, tag := range []dicom.Tag{
		dicom.TagScheduledStationNameCodeSeq,
		dicom.TagHumanPerformerCodeSeq,
		dicom.TagHumanPerformersOrgSeq,
	} {
		if items := record.Seq(tag); len(items) > 0 {
			ev.SetSeq(tag, cloneItems(items)...)
		}
	}
	return ev
}

func cloneItems(items []dicom.DataSet) []dicom.DataSet {
	out := make([]dicom.DataSet, len(items))
	for i, it := range items {
		out[i] = it.Clone()
	}
	return out
}

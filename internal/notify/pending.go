package notify

import (
	"log"

	"github.com/puzpuzpuz/xsync/v4"

	"github.com/dicomflow/upsrs/internal/dicom"
)

// PendingQueue holds, per subscriber, the events generated while no push
// channel was open. Order of appends is preserved; a drain empties the
// queue unconditionally.
type PendingQueue struct {
	events *xsync.Map[string, []dicom.DataSet]

	// Oldest entries are dropped past this bound. Zero means unbounded.
	maxPerSubscriber int
}

// NewPendingQueue creates a queue bounding each subscriber's backlog to
// maxPerSubscriber events (0 = unbounded).
func NewPendingQueue(maxPerSubscriber int) *PendingQueue {
	return &PendingQueue{
		events:           xsync.NewMap[string, []dicom.DataSet](),
		maxPerSubscriber: maxPerSubscriber,
	}
}

// Append queues an event for the subscriber.
func (q *PendingQueue) Append(subscriberID string, ev dicom.DataSet) {
	q.events.Compute(subscriberID, func(cur []dicom.DataSet, _ bool) ([]dicom.DataSet, xsync.ComputeOp) {
		next := make([]dicom.DataSet, 0, len(cur)+1)
		next = append(next, cur...)
		next = append(next, ev)
		if q.maxPerSubscriber > 0 && len(next) > q.maxPerSubscriber {
			dropped := len(next) - q.maxPerSubscriber
			next = next[dropped:]
			log.Printf("notify: pending queue for %s over %d, dropped %d oldest",
				subscriberID, q.maxPerSubscriber, dropped)
		}
		return next, xsync.UpdateOp
	})
}

// Drain removes and returns the subscriber's queued events in append order.
func (q *PendingQueue) Drain(subscriberID string) []dicom.DataSet {
	evs, _ := q.events.LoadAndDelete(subscriberID)
	return evs
}

// Len returns the number of queued events for the subscriber.
func (q *PendingQueue) Len(subscriberID string) int {
	evs, _ := q.events.Load(subscriberID)
	return len(evs)
}

// PurgeIf drops entire queues for subscribers the predicate rejects,
// returning the number of events discarded. Used by the janitor to clear
// backlogs whose subscriber no longer holds any subscription.
func (q *PendingQueue) PurgeIf(keep func(subscriberID string) bool) int {
	dropped := 0
	q.events.Range(func(id string, evs []dicom.DataSet) bool {
		if !keep(id) {
			if purged, ok := q.events.LoadAndDelete(id); ok {
				dropped += len(purged)
			}
		}
		return true
	})
	return dropped
}

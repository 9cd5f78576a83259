package notify

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/puzpuzpuz/xsync/v4"

	"github.com/dicomflow/upsrs/internal/dicom"
	"github.com/dicomflow/upsrs/internal/matcher"
	"github.com/dicomflow/upsrs/internal/store"
	"github.com/dicomflow/upsrs/internal/ups"
)

// Notifier routes work-item events to their subscribers: it resolves the
// affected subscriber set (direct, global, and filtered through the
// matcher), sends to open channels, queues for closed ones, and drains the
// queue when a subscriber connects.
type Notifier struct {
	registry *Registry
	pending  *PendingQueue
	subs     *store.SubscriptionStore
	items    *store.WorkItemStore
	match    *matcher.Matcher
	builder  *Builder

	// Per-subscriber delivery lock. A reconnect drain holds it so queued
	// events always precede sends on the new channel.
	delivery *xsync.Map[string, *sync.Mutex]
}

// NewNotifier wires the notifier into the registry's connect path.
func NewNotifier(registry *Registry, pending *PendingQueue, subs *store.SubscriptionStore, items *store.WorkItemStore, match *matcher.Matcher, builder *Builder) *Notifier {
	n := &Notifier{
		registry: registry,
		pending:  pending,
		subs:     subs,
		items:    items,
		match:    match,
		builder:  builder,
		delivery: xsync.NewMap[string, *sync.Mutex](),
	}
	registry.RegisterConnectCallback(n.onConnect)
	return n
}

// Builder exposes the event builder for callers composing bespoke reports.
func (n *Notifier) Builder() *Builder { return n.builder }

func (n *Notifier) deliveryLock(subscriberID string) *sync.Mutex {
	mu, _ := n.delivery.LoadOrCompute(subscriberID, func() (*sync.Mutex, bool) {
		return &sync.Mutex{}, false
	})
	return mu
}

// NotifyCreation emits the two creation events for a new work item: a State
// report and an Assigned report.
func (n *Notifier) NotifyCreation(w *ups.WorkItem) {
	readiness := w.InputReadinessState()
	state := n.builder.StateReport(w.UID, w.State(), readiness, "")
	assigned := n.builder.Assigned(w.UID, readiness, w.Record)
	n.fanOut(w, state)
	n.fanOut(w, assigned)
}

// NotifyStatusChange emits the event for a committed update or transition:
// a Progress report when the record carries progress information and the
// item is not canceled, otherwise a State report carrying the cancellation
// reason when present.
func (n *Notifier) NotifyStatusChange(w *ups.WorkItem) {
	readiness := w.InputReadinessState()
	state := w.State()

	if items := w.Record.Seq(dicom.TagProcStepProgressInfoSeq); len(items) > 0 && state != ups.StateCanceled {
		info := items[0]
		progress, _ := info.Int(dicom.TagProcedureStepProgress)
		desc, _ := info.String(dicom.TagProcStepProgressDesc)
		var contactURI, contactName string
		if uris := info.Seq(dicom.TagProcStepCommunicationsSeq); len(uris) > 0 {
			contactURI, _ = uris[0].String(dicom.TagContactURI)
			contactName, _ = uris[0].String(dicom.TagContactDisplayName)
		}
		n.fanOut(w, n.builder.ProgressReport(w.UID, state, readiness, progress, desc, contactURI, contactName))
		return
	}

	reason, _ := w.Record.String(dicom.TagReasonForCancellation)
	n.fanOut(w, n.builder.StateReport(w.UID, state, readiness, reason))
}

// NotifyCancelRequested emits a Cancel Requested report to the subscribers
// of an item whose cancellation needs the performing AE's cooperation.
func (n *Notifier) NotifyCancelRequested(w *ups.WorkItem, info CancelInfo) {
	n.fanOut(w, n.builder.CancelRequested(w.UID, w.State(), w.InputReadinessState(), info))
}

// QueueStateReports queues the initial snapshot owed to a new subscription:
// one State report per work item the subscriber is entitled to see. When
// the subscriber's channel is already open the queue is flushed right away.
func (n *Notifier) QueueStateReports(sub *ups.Subscription) {
	switch {
	case !ups.IsReservedTarget(sub.TargetUID):
		if w, err := n.items.Get(sub.TargetUID); err == nil {
			n.pending.Append(sub.SubscriberID, n.builder.StateReport(w.UID, w.State(), w.InputReadinessState(), ""))
		}
	case sub.TargetUID == ups.UIDGlobal && sub.DeletionLock:
		for _, w := range n.items.ListAll() {
			n.pending.Append(sub.SubscriberID, n.builder.StateReport(w.UID, w.State(), w.InputReadinessState(), ""))
		}
	case sub.TargetUID == ups.UIDFiltered && sub.Filter != nil:
		for _, w := range n.items.ListAll() {
			if n.match.Match(sub.Filter, w.Record) {
				n.pending.Append(sub.SubscriberID, n.builder.StateReport(w.UID, w.State(), w.InputReadinessState(), ""))
			}
		}
	}
	if n.registry.Connected(sub.SubscriberID) {
		if err := n.onConnect(sub.SubscriberID); err != nil {
			log.Printf("notify: snapshot flush for %s: %v", sub.SubscriberID, err)
		}
	}
}

// BroadcastSCPStatus sends an SCP Status Change report to every connected
// subscriber. Used on shutdown.
func (n *Notifier) BroadcastSCPStatus(scpStatus, subscriptionListStatus, upsListStatus string) {
	ev := n.builder.SCPStatusChange(scpStatus, subscriptionListStatus, upsListStatus)
	frame, err := json.Marshal(ev)
	if err != nil {
		log.Printf("notify: encode status change: %v", err)
		return
	}
	for _, id := range n.registry.ConnectedSubscribers() {
		if !n.registry.Send(id, frame) {
			log.Printf("notify: status change to %s failed", id)
		}
	}
}

// fanOut resolves the subscriber set for an event on w and delivers to each.
func (n *Notifier) fanOut(w *ups.WorkItem, ev dicom.DataSet) {
	targets := map[string]string{} // subscriber -> target that included it
	for _, id := range n.registry.SubscribersFor(w.UID) {
		targets[id] = w.UID
	}
	for _, id := range n.registry.SubscribersFor(ups.UIDGlobal) {
		if _, ok := targets[id]; !ok {
			targets[id] = ups.UIDGlobal
		}
	}
	for _, id := range n.registry.SubscribersFor(ups.UIDFiltered) {
		if _, ok := targets[id]; ok {
			continue
		}
		sub, ok := n.subs.GetOne(ups.UIDFiltered, id)
		if !ok || sub.Filter == nil {
			continue
		}
		if n.match.Match(sub.Filter, w.Record) {
			targets[id] = ups.UIDFiltered
		}
	}

	for id, target := range targets {
		if sub, ok := n.subs.GetOne(target, id); ok && sub.Suspended {
			continue
		}
		n.deliver(id, ev)
	}
}

// deliver sends one event to one subscriber, queueing when no channel is
// open. The delivery lock orders it against a concurrent reconnect drain.
// A channel can become visible before its connect drain has run, so any
// queued backlog is flushed here first; the queue must empty before a new
// event goes out.
func (n *Notifier) deliver(subscriberID string, ev dicom.DataSet) {
	mu := n.deliveryLock(subscriberID)
	mu.Lock()
	defer mu.Unlock()

	if !n.registry.Connected(subscriberID) {
		n.pending.Append(subscriberID, ev)
		return
	}
	if n.pending.Len(subscriberID) > 0 {
		n.drainLocked(subscriberID)
	}
	frame, err := json.Marshal(ev)
	if err != nil {
		log.Printf("notify: encode event for %s: %v", subscriberID, err)
		return
	}
	if !n.registry.Send(subscriberID, frame) {
		log.Printf("notify: send to %s failed", subscriberID)
	}
}

// onConnect drains the subscriber's pending queue onto the fresh channel.
func (n *Notifier) onConnect(subscriberID string) error {
	mu := n.deliveryLock(subscriberID)
	mu.Lock()
	defer mu.Unlock()

	if n.pending.Len(subscriberID) > 0 {
		n.drainLocked(subscriberID)
	}
	return nil
}

// drainLocked sends every queued event for the subscriber on its open
// channel. Failures are logged and do not stop the drain; queued events
// are gone either way. The caller must hold the delivery lock.
func (n *Notifier) drainLocked(subscriberID string) {
	evs := n.pending.Drain(subscriberID)
	if len(evs) == 0 {
		return
	}
	sent := 0
	for _, ev := range evs {
		frame, err := json.Marshal(ev)
		if err != nil {
			log.Printf("notify: encode queued event for %s: %v", subscriberID, err)
			continue
		}
		if n.registry.Send(subscriberID, frame) {
			sent++
		}
	}
	log.Printf("notify: drained %d/%d queued events to %s", sent, len(evs), subscriberID)
}

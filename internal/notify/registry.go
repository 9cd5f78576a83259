package notify

import (
	"log"
	"sort"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/puzpuzpuz/xsync/v4"
)

// ConnectCallback runs on every accepted connection. An error is logged and
// does not affect other callbacks or the channel itself.
type ConnectCallback func(subscriberID string) error

// Registry tracks the open push channel per subscriber (at most one) and
// the bidirectional subscription indices used by fan-out.
type Registry struct {
	channels *xsync.Map[string, *Channel]

	// target UID -> subscriber set, and the inverse. Sets are replaced
	// copy-on-write under Compute so readers never see partial mutation.
	byTarget     *xsync.Map[string, map[string]struct{}]
	bySubscriber *xsync.Map[string, map[string]struct{}]

	mu        sync.Mutex
	callbacks []ConnectCallback
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		channels:     xsync.NewMap[string, *Channel](),
		byTarget:     xsync.NewMap[string, map[string]struct{}](),
		bySubscriber: xsync.NewMap[string, map[string]struct{}](),
	}
}

// RegisterConnectCallback adds a callback invoked on every accept. May be
// called multiple times; all registered callbacks run, in order.
func (r *Registry) RegisterConnectCallback(fn ConnectCallback) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.callbacks = append(r.callbacks, fn)
}

// Accept takes ownership of an upgraded connection for the subscriber,
// replacing any existing channel, fires the connect callbacks, and blocks
// in the read loop until the peer goes away. The channel entry is removed
// on return; subscription rows are untouched.
func (r *Registry) Accept(conn *websocket.Conn, subscriberID string) {
	ch := newChannel(subscriberID, conn)
	if old, ok := r.channels.Load(subscriberID); ok {
		old.Close()
	}
	r.channels.Store(subscriberID, ch)
	go ch.writePump()
	log.Printf("notify: channel open for %s", subscriberID)

	r.mu.Lock()
	callbacks := append([]ConnectCallback(nil), r.callbacks...)
	r.mu.Unlock()
	for _, fn := range callbacks {
		if err := fn(subscriberID); err != nil {
			log.Printf("notify: connect callback for %s: %v", subscriberID, err)
		}
	}

	ch.readLoop()
	ch.Close()
	// Only remove the entry if it is still ours; a replacement connection
	// may have raced in.
	r.channels.Compute(subscriberID, func(cur *Channel, loaded bool) (*Channel, xsync.ComputeOp) {
		if loaded && cur == ch {
			return cur, xsync.DeleteOp
		}
		return cur, xsync.CancelOp
	})
	log.Printf("notify: channel closed for %s", subscriberID)
}

// Subscribe records subscriber -> target in both indices. Idempotent.
func (r *Registry) Subscribe(subscriberID, targetUID string) {
	addToIndex(r.byTarget, targetUID, subscriberID)
	addToIndex(r.bySubscriber, subscriberID, targetUID)
}

// Unsubscribe removes the pair from both indices.
func (r *Registry) Unsubscribe(subscriberID, targetUID string) {
	removeFromIndex(r.byTarget, targetUID, subscriberID)
	removeFromIndex(r.bySubscriber, subscriberID, targetUID)
}

// SubscribersFor returns the subscribers of a target, sorted.
func (r *Registry) SubscribersFor(targetUID string) []string {
	set, ok := r.byTarget.Load(targetUID)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// TargetsFor returns the targets a subscriber is subscribed to, sorted.
func (r *Registry) TargetsFor(subscriberID string) []string {
	set, ok := r.bySubscriber.Load(subscriberID)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Connected reports whether the subscriber has an open channel.
func (r *Registry) Connected(subscriberID string) bool {
	_, ok := r.channels.Load(subscriberID)
	return ok
}

// Send queues a frame to the subscriber's channel. Returns false when no
// channel is open or the channel is stuck; a failed channel is dropped.
func (r *Registry) Send(subscriberID string, frame []byte) bool {
	ch, ok := r.channels.Load(subscriberID)
	if !ok {
		return false
	}
	if !ch.Send(frame) {
		ch.Close()
		r.channels.Compute(subscriberID, func(cur *Channel, loaded bool) (*Channel, xsync.ComputeOp) {
			if loaded && cur == ch {
				return cur, xsync.DeleteOp
			}
			return cur, xsync.CancelOp
		})
		return false
	}
	return true
}

// ConnectedSubscribers returns the IDs of every open channel, sorted.
func (r *Registry) ConnectedSubscribers() []string {
	var out []string
	r.channels.Range(func(id string, _ *Channel) bool {
		out = append(out, id)
		return true
	})
	sort.Strings(out)
	return out
}

// CloseAll closes every open channel. Used on shutdown.
func (r *Registry) CloseAll() {
	r.channels.Range(func(_ string, ch *Channel) bool {
		ch.Close()
		return true
	})
}

func addToIndex(idx *xsync.Map[string, map[string]struct{}], key, member string) {
	idx.Compute(key, func(cur map[string]struct{}, loaded bool) (map[string]struct{}, xsync.ComputeOp) {
		if loaded {
			if _, ok := cur[member]; ok {
				return cur, xsync.CancelOp
			}
		}
		next := make(map[string]struct{}, len(cur)+1)
		for m := range cur {
			next[m] = struct{}{}
		}
		next[member] = struct{}{}
		return next, xsync.UpdateOp
	})
}

func removeFromIndex(idx *xsync.Map[string, map[string]struct{}], key, member string) {
	idx.Compute(key, func(cur map[string]struct{}, loaded bool) (map[string]struct{}, xsync.ComputeOp) {
		if !loaded {
			return cur, xsync.CancelOp
		}
		if _, ok := cur[member]; !ok {
			return cur, xsync.CancelOp
		}
		if len(cur) == 1 {
			return cur, xsync.DeleteOp
		}
		next := make(map[string]struct{}, len(cur)-1)
		for m := range cur {
			if m != member {
				next[m] = struct{}{}
			}
		}
		return next, xsync.UpdateOp
	})
}

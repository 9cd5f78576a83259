package store

import (
	"github.com/puzpuzpuz/xsync/v4"

	"github.com/dicomflow/upsrs/internal/ups"
)

// SubscriptionStore holds subscription records keyed by
// (target UID, subscriber AE title).
type SubscriptionStore struct {
	subs *xsync.Map[ups.SubKey, *ups.Subscription]
}

// NewSubscriptionStore creates an empty store.
func NewSubscriptionStore() *SubscriptionStore {
	return &SubscriptionStore{subs: xsync.NewMap[ups.SubKey, *ups.Subscription]()}
}

// Create inserts the subscription. An existing suspended row under the same
// key is replaced; an existing non-suspended row is kept untouched, making
// the create idempotent. The stored row is returned.
func (s *SubscriptionStore) Create(sub *ups.Subscription) *ups.Subscription {
	stored, _ := s.subs.Compute(sub.Key(), func(cur *ups.Subscription, loaded bool) (*ups.Subscription, xsync.ComputeOp) {
		if loaded && !cur.Suspended {
			return cur, xsync.CancelOp
		}
		next := *sub
		return &next, xsync.UpdateOp
	})
	return stored
}

// GetOne returns the subscription under the key, if any.
func (s *SubscriptionStore) GetOne(targetUID, subscriberID string) (*ups.Subscription, bool) {
	sub, ok := s.subs.Load(ups.SubKey{TargetUID: targetUID, SubscriberID: subscriberID})
	return sub, ok
}

// GetBySubscriber returns every subscription held by the subscriber.
func (s *SubscriptionStore) GetBySubscriber(subscriberID string) []*ups.Subscription {
	var out []*ups.Subscription
	s.subs.Range(func(k ups.SubKey, sub *ups.Subscription) bool {
		if k.SubscriberID == subscriberID {
			out = append(out, sub)
		}
		return true
	})
	return out
}

// GetByTarget returns every subscription addressing the target UID.
func (s *SubscriptionStore) GetByTarget(targetUID string) []*ups.Subscription {
	var out []*ups.Subscription
	s.subs.Range(func(k ups.SubKey, sub *ups.Subscription) bool {
		if k.TargetUID == targetUID {
			out = append(out, sub)
		}
		return true
	})
	return out
}

// Delete removes the subscription, reporting whether it existed.
func (s *SubscriptionStore) Delete(targetUID, subscriberID string) bool {
	_, existed := s.subs.LoadAndDelete(ups.SubKey{TargetUID: targetUID, SubscriberID: subscriberID})
	return existed
}

// Size returns the number of stored subscriptions.
func (s *SubscriptionStore) Size() int {
	return s.subs.Size()
}

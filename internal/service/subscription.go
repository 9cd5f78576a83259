package service

import (
	"fmt"
	"time"

	"github.com/dicomflow/upsrs/internal/dicom"
	"github.com/dicomflow/upsrs/internal/notify"
	"github.com/dicomflow/upsrs/internal/store"
	"github.com/dicomflow/upsrs/internal/ups"
)

// SubscriptionService orchestrates subscription lifecycle across the
// subscription store, the channel registry, and the pending-event queue.
type SubscriptionService struct {
	subs     *store.SubscriptionStore
	registry *notify.Registry
	notifier *notify.Notifier
}

// NewSubscriptionService wires the service.
func NewSubscriptionService(subs *store.SubscriptionStore, registry *notify.Registry, notifier *notify.Notifier) *SubscriptionService {
	return &SubscriptionService{subs: subs, registry: registry, notifier: notifier}
}

// Create registers a subscription and queues its initial state snapshot.
// Re-creating an existing non-suspended subscription is idempotent; a
// suspended one is replaced and reactivated.
func (s *SubscriptionService) Create(targetUID, subscriberID string, deletionLock bool, filter dicom.DataSet) (*ups.Subscription, error) {
	if subscriberID == "" {
		return nil, invalidArg("subscriber AE title must not be empty")
	}
	if targetUID == ups.UIDFiltered && len(filter) == 0 {
		return nil, invalidArg("a filtered subscription requires a filter")
	}
	if len(filter) > 0 && targetUID != ups.UIDFiltered {
		return nil, invalidArg(fmt.Sprintf("a filter is only valid for target %s", ups.UIDFiltered))
	}
	if !ups.IsReservedTarget(targetUID) && !ups.ValidUID(targetUID) {
		return nil, invalidArg(fmt.Sprintf("invalid target UID %q", targetUID))
	}

	s.registry.Subscribe(subscriberID, targetUID)
	stored := s.subs.Create(&ups.Subscription{
		TargetUID:    targetUID,
		SubscriberID: subscriberID,
		CreatedAt:    time.Now().UTC(),
		DeletionLock: deletionLock,
		Filter:       filter,
	})
	s.notifier.QueueStateReports(stored)
	return stored, nil
}

// Delete removes a subscription.
func (s *SubscriptionService) Delete(targetUID, subscriberID string) error {
	s.registry.Unsubscribe(subscriberID, targetUID)
	if !s.subs.Delete(targetUID, subscriberID) {
		return notFound(fmt.Sprintf("no subscription for %s on %s", subscriberID, targetUID))
	}
	return nil
}

// Suspend replaces an active global or filtered subscription with a
// suspended copy and detaches it from fan-out. A later re-subscribe
// reactivates it.
func (s *SubscriptionService) Suspend(targetUID, subscriberID string) error {
	if !ups.IsReservedTarget(targetUID) {
		return invalidArg("only global and filtered subscriptions can be suspended")
	}
	sub, ok := s.subs.GetOne(targetUID, subscriberID)
	if !ok || sub.Suspended {
		return notFound(fmt.Sprintf("no active subscription for %s on %s", subscriberID, targetUID))
	}

	replacement := *sub
	replacement.Suspended = true

	s.registry.Unsubscribe(subscriberID, targetUID)
	s.subs.Delete(targetUID, subscriberID)
	s.subs.Create(&replacement)
	return nil
}

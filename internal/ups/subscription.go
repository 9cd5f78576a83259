package ups

import (
	"time"

	"github.com/dicomflow/upsrs/internal/dicom"
)

// Subscription links a subscriber AE title to a target: a concrete work-item
// UID, UIDGlobal, or UIDFiltered. The record is immutable; suspend and
// re-subscribe replace it wholesale.
type Subscription struct {
	TargetUID    string
	SubscriberID string
	CreatedAt    time.Time
	DeletionLock bool
	ContactURI   string
	Filter       dicom.DataSet
	Suspended    bool
}

// SubKey is the identity of a subscription.
type SubKey struct {
	TargetUID    string
	SubscriberID string
}

// Key returns the subscription's identity pair.
func (s *Subscription) Key() SubKey {
	return SubKey{TargetUID: s.TargetUID, SubscriberID: s.SubscriberID}
}

// Filtered reports whether this subscription carries a content filter.
func (s *Subscription) Filtered() bool {
	return s.TargetUID == UIDFiltered
}

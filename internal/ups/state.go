// Package ups holds the domain model for unified procedure steps: work
// items, subscriptions, the procedure-step state machine, and the reserved
// identifiers of the service class.
package ups

import "fmt"

// Reserved UIDs from PS3.4 CC / PS3.6.
const (
	// UIDGlobal is the well-known UID addressed to subscribe to all work items.
	UIDGlobal = "1.2.840.10008.5.1.4.34.5"
	// UIDFiltered is the well-known UID for filtered global subscriptions.
	UIDFiltered = "1.2.840.10008.5.1.4.34.5.1"
	// UPSPushSOPClassUID identifies the UPS Push service class on created items.
	UPSPushSOPClassUID = "1.2.840.10008.5.1.4.34.6.1"
	// UPSEventSOPClassUID identifies event reports pushed to subscribers.
	UPSEventSOPClassUID = "1.2.840.10008.5.1.4.34.6.4"
)

// IsReservedTarget reports whether uid names one of the well-known
// subscription targets rather than a concrete work item.
func IsReservedTarget(uid string) bool {
	return uid == UIDGlobal || uid == UIDFiltered
}

// State is a procedure step state.
type State string

const (
	StateScheduled  State = "SCHEDULED"
	StateInProgress State = "IN PROGRESS"
	StateCompleted  State = "COMPLETED"
	StateCanceled   State = "CANCELED"
)

// ParseState validates a state string.
func ParseState(s string) (State, error) {
	switch State(s) {
	case StateScheduled, StateInProgress, StateCompleted, StateCanceled:
		return State(s), nil
	}
	return "", fmt.Errorf("ups: unknown procedure step state %q", s)
}

// Terminal reports whether no further transition is allowed out of s.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateCanceled
}

// CanTransition reports whether the state machine permits moving from s to
// next. Terminal states allow nothing; SCHEDULED allows IN PROGRESS and
// CANCELED; IN PROGRESS allows COMPLETED and CANCELED.
func (s State) CanTransition(next State) bool {
	switch s {
	case StateScheduled:
		return next == StateInProgress || next == StateCanceled
	case StateInProgress:
		return next == StateCompleted || next == StateCanceled
	}
	return false
}

// EventTypeID numbers the five event-report shapes.
type EventTypeID int

const (
	EventStateReport     EventTypeID = 1
	EventCancelRequested EventTypeID = 2
	EventProgressReport  EventTypeID = 3
	EventSCPStatusChange EventTypeID = 4
	EventAssigned        EventTypeID = 5
)

// Package store holds the in-memory registries for work items and
// subscriptions. Records handed out are always deep copies; mutation goes
// through the store so concurrent readers never observe a torn record.
package store

import "errors"

var (
	// ErrNotFound is returned when the addressed record does not exist.
	ErrNotFound = errors.New("store: not found")
	// ErrDuplicate is returned when a create collides with an existing UID.
	ErrDuplicate = errors.New("store: duplicate")
)

package store

import (
	"sort"
	"time"

	"github.com/puzpuzpuz/xsync/v4"

	"github.com/dicomflow/upsrs/internal/dicom"
	"github.com/dicomflow/upsrs/internal/ups"
)

// Identity tags retained on projected search results even when the caller's
// includefield list omits them.
var identityTags = []dicom.Tag{
	dicom.TagSOPClassUID,
	dicom.TagSOPInstanceUID,
	dicom.TagProcedureStepState,
}

// WorkItemStore maps work-item UID to record. Stored items are private to
// the store; every item returned is a deep copy.
type WorkItemStore struct {
	items *xsync.Map[string, *ups.WorkItem]
}

// NewWorkItemStore creates an empty store.
func NewWorkItemStore() *WorkItemStore {
	return &WorkItemStore{items: xsync.NewMap[string, *ups.WorkItem]()}
}

// Create inserts the work item. ErrDuplicate if the UID already exists.
func (s *WorkItemStore) Create(w *ups.WorkItem) error {
	stored := w.Clone()
	_, loaded := s.items.LoadOrCompute(w.UID, func() (*ups.WorkItem, bool) {
		return stored, false
	})
	if loaded {
		return ErrDuplicate
	}
	return nil
}

// Get returns a copy of the work item, or ErrNotFound.
func (s *WorkItemStore) Get(uid string) (*ups.WorkItem, error) {
	w, ok := s.items.Load(uid)
	if !ok {
		return nil, ErrNotFound
	}
	return w.Clone(), nil
}

// Update applies fn to a private copy of the stored item and commits the
// result atomically. fn returning an error aborts the update. The committed
// copy is returned. Writes to a single UID are serialized by the map.
func (s *WorkItemStore) Update(uid string, fn func(*ups.WorkItem) error) (*ups.WorkItem, error) {
	var applyErr error
	var committed *ups.WorkItem
	_, ok := s.items.Compute(uid, func(cur *ups.WorkItem, loaded bool) (*ups.WorkItem, xsync.ComputeOp) {
		if !loaded {
			applyErr = ErrNotFound
			return cur, xsync.CancelOp
		}
		next := cur.Clone()
		if err := fn(next); err != nil {
			applyErr = err
			return cur, xsync.CancelOp
		}
		next.UpdatedAt = time.Now().UTC()
		committed = next
		return next, xsync.UpdateOp
	})
	if applyErr != nil {
		return nil, applyErr
	}
	if !ok {
		return nil, ErrNotFound
	}
	return committed.Clone(), nil
}

// UpdateMerge merges partial into the stored record. ErrNotFound if absent.
func (s *WorkItemStore) UpdateMerge(uid string, partial dicom.DataSet) (*ups.WorkItem, error) {
	return s.Update(uid, func(w *ups.WorkItem) error {
		w.Record.Merge(partial)
		return nil
	})
}

// Delete removes the work item, reporting whether it existed.
func (s *WorkItemStore) Delete(uid string) bool {
	_, existed := s.items.LoadAndDelete(uid)
	return existed
}

// ListAll returns a copied snapshot, ordered by creation time then UID so
// the sequence is stable within a call.
func (s *WorkItemStore) ListAll() []*ups.WorkItem {
	var out []*ups.WorkItem
	s.items.Range(func(_ string, w *ups.WorkItem) bool {
		out = append(out, w.Clone())
		return true
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].UID < out[j].UID
	})
	return out
}

// ListFiltered returns copies of the items whose record satisfies pred,
// paged by offset/limit (limit <= 0 means unbounded). When includeFields is
// nonempty and not ["all"], returned records are projected to those fields
// plus the identity tags.
func (s *WorkItemStore) ListFiltered(pred func(dicom.DataSet) bool, includeFields []string, offset, limit int) []*ups.WorkItem {
	all := s.ListAll()
	var out []*ups.WorkItem
	for _, w := range all {
		if pred != nil && !pred(w.Record) {
			continue
		}
		out = append(out, w)
	}
	if offset > 0 {
		if offset >= len(out) {
			return nil
		}
		out = out[offset:]
	}
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	if proj := projectionTags(includeFields); proj != nil {
		for _, w := range out {
			w.Record = w.Record.Pick(proj)
		}
	}
	return out
}

// Size returns the number of stored work items.
func (s *WorkItemStore) Size() int {
	return s.items.Size()
}

// projectionTags resolves includefield keywords and hex tags to the tag set
// kept on projected results, or nil when no projection applies.
func projectionTags(includeFields []string) []dicom.Tag {
	if len(includeFields) == 0 {
		return nil
	}
	tags := append([]dicom.Tag(nil), identityTags...)
	for _, f := range includeFields {
		if f == "all" {
			return nil
		}
		if t, _, ok := dicom.ResolveTagOrKeyword(f); ok {
			tags = append(tags, t)
		}
	}
	return tags
}

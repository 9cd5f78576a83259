package service

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/dicomflow/upsrs/internal/dicom"
	"github.com/dicomflow/upsrs/internal/matcher"
	"github.com/dicomflow/upsrs/internal/notify"
	"github.com/dicomflow/upsrs/internal/store"
	"github.com/dicomflow/upsrs/internal/ups"
)

// WorkItemService owns work-item mutations and triggers event fan-out after
// each committed change.
type WorkItemService struct {
	items    *store.WorkItemStore
	notifier *notify.Notifier
	match    *matcher.Matcher
}

// NewWorkItemService wires the service.
func NewWorkItemService(items *store.WorkItemStore, notifier *notify.Notifier, match *matcher.Matcher) *WorkItemService {
	return &WorkItemService{items: items, notifier: notifier, match: match}
}

// Create inserts a new work item. The effective UID is uidParam when given,
// else the record's SOP Instance UID, else a generated one. New items must
// be SCHEDULED; absent state and readiness tags are filled in.
func (s *WorkItemService) Create(record dicom.DataSet, uidParam string) (*ups.WorkItem, error) {
	uid := uidParam
	if uid == "" {
		uid, _ = record.String(dicom.TagSOPInstanceUID)
	}
	if uid == "" {
		uid = ups.NewUID()
	}
	if !ups.ValidUID(uid) {
		return nil, invalidArg(fmt.Sprintf("invalid workitem UID %q", uid))
	}

	if state, ok := record.String(dicom.TagProcedureStepState); ok {
		parsed, err := ups.ParseState(state)
		if err != nil {
			return nil, invalidArg(err.Error())
		}
		if parsed != ups.StateScheduled {
			return nil, invalidArg("a new workitem must be in the SCHEDULED state")
		}
	}

	now := time.Now().UTC()
	w := &ups.WorkItem{UID: uid, Record: record.Clone(), CreatedAt: now, UpdatedAt: now}
	w.Record.SetString(dicom.TagSOPInstanceUID, dicom.VRUI, uid)
	if !w.Record.Has(dicom.TagSOPClassUID) {
		w.Record.SetString(dicom.TagSOPClassUID, dicom.VRUI, ups.UPSPushSOPClassUID)
	}
	if !w.Record.Has(dicom.TagProcedureStepState) {
		w.SetState(ups.StateScheduled)
	}
	if !w.Record.Has(dicom.TagInputReadinessState) {
		w.Record.SetString(dicom.TagInputReadinessState, dicom.VRCS, "READY")
	}
	w.Record.Delete(dicom.TagTransactionUID)

	if err := s.items.Create(w); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, conflict(fmt.Sprintf("workitem %s already exists", uid))
		}
		return nil, &ServiceError{Code: "INTERNAL", Message: "create failed", Err: err}
	}
	s.notifier.NotifyCreation(w)
	return w, nil
}

// Get retrieves one work item.
func (s *WorkItemService) Get(uid string) (*ups.WorkItem, error) {
	w, err := s.items.Get(uid)
	if err != nil {
		return nil, notFound(fmt.Sprintf("workitem %s not found", uid))
	}
	return w, nil
}

// SearchParams carries the content-search arguments.
type SearchParams struct {
	Query         dicom.DataSet
	IncludeFields []string
	Offset        int
	Limit         int
	FuzzyMatching bool
}

// Search returns the work items matching the query, paged and projected.
func (s *WorkItemService) Search(p SearchParams) []*ups.WorkItem {
	if p.FuzzyMatching {
		log.Printf("service: fuzzy matching requested but not implemented, using exact matching")
	}
	var pred func(dicom.DataSet) bool
	if len(p.Query) > 0 {
		pred = func(r dicom.DataSet) bool { return s.match.Match(p.Query, r) }
	}
	return s.items.ListFiltered(pred, p.IncludeFields, p.Offset, p.Limit)
}

// Update merge-applies partial to the work item. The state tag may only
// change through ChangeState; when present it is stripped and a warning is
// returned alongside the result. Out of SCHEDULED the stored transaction
// UID must be presented.
func (s *WorkItemService) Update(uid string, partial dicom.DataSet, transactionUID string) (*ups.WorkItem, []string, error) {
	merged := partial.Clone()
	var warnings []string
	if merged.Has(dicom.TagProcedureStepState) {
		merged.Delete(dicom.TagProcedureStepState)
		warnings = append(warnings, WarnUpdatedWithModifications)
	}
	merged.Delete(dicom.TagTransactionUID)

	updated, err := s.items.Update(uid, func(w *ups.WorkItem) error {
		if w.State() != ups.StateScheduled {
			if transactionUID == "" {
				return invalidArg("a transaction UID is required to update this workitem",
					WarnInconsistentWithWorkitem, WarnTransactionUIDMissing)
			}
			if transactionUID != w.TransactionUID {
				return invalidArg("the transaction UID does not match",
					WarnInconsistentWithWorkitem, WarnTransactionUIDIncorrect)
			}
		} else if transactionUID != "" && w.TransactionUID != "" && transactionUID != w.TransactionUID {
			return invalidArg("the transaction UID does not match",
				WarnInconsistentWithWorkitem, WarnTransactionUIDIncorrect)
		}
		w.Record.Merge(merged)
		return nil
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, notFound(fmt.Sprintf("workitem %s not found", uid))
		}
		return nil, nil, err
	}
	return updated, warnings, nil
}

// ChangeState drives the state machine. A transition to IN PROGRESS claims
// the item with the supplied transaction UID; transitions out of
// IN PROGRESS must present the same UID. Terminal states reject everything,
// except that re-requesting the same terminal state reports Gone.
func (s *WorkItemService) ChangeState(uid string, newState ups.State, transactionUID string) (*ups.WorkItem, error) {
	if _, err := ups.ParseState(string(newState)); err != nil {
		return nil, invalidArg(err.Error())
	}
	updated, err := s.items.Update(uid, func(w *ups.WorkItem) error {
		cur := w.State()
		if cur.Terminal() {
			if cur == newState {
				warn := WarnAlreadyCompleted
				if cur == ups.StateCanceled {
					warn = WarnAlreadyCanceled
				}
				return gone(warn, warn)
			}
			return conflict(
				fmt.Sprintf("workitem is %s and cannot change state", cur),
				WarnInconsistentWithInstance)
		}
		if !cur.CanTransition(newState) {
			return conflict(
				fmt.Sprintf("illegal transition from %s to %s", cur, newState),
				WarnInconsistentWithInstance)
		}
		switch cur {
		case ups.StateScheduled:
			if newState == ups.StateInProgress {
				if transactionUID == "" {
					return invalidArg("a transaction UID is required to claim a workitem",
						WarnTransactionUIDMissing)
				}
				w.TransactionUID = transactionUID
			}
		case ups.StateInProgress:
			if transactionUID == "" {
				return invalidArg("a transaction UID is required",
					WarnInconsistentWithWorkitem, WarnTransactionUIDMissing)
			}
			if transactionUID != w.TransactionUID {
				return invalidArg("the transaction UID does not match",
					WarnInconsistentWithWorkitem, WarnTransactionUIDIncorrect)
			}
		}
		w.SetState(newState)
		return nil
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, notFound(fmt.Sprintf("workitem %s not found", uid))
		}
		return nil, err
	}
	s.notifier.NotifyStatusChange(updated)
	return updated, nil
}

// RequestCancel handles a cancel request from an AE that does not hold the
// transaction UID. A SCHEDULED item is canceled directly; an IN PROGRESS
// item cannot be, so its subscribers get a Cancel Requested event and the
// caller a conflict. Terminal items are a plain conflict.
func (s *WorkItemService) RequestCancel(uid string, partial dicom.DataSet) error {
	current, err := s.items.Get(uid)
	if err != nil {
		return notFound(fmt.Sprintf("workitem %s not found", uid))
	}

	switch current.State() {
	case ups.StateInProgress:
		s.notifier.NotifyCancelRequested(current, cancelInfoFrom(partial))
		return conflict("the workitem is IN PROGRESS and can only be canceled by its performer",
			WarnInconsistentWithInstance)
	case ups.StateCompleted, ups.StateCanceled:
		return conflict(
			fmt.Sprintf("workitem is %s and cannot be canceled", current.State()),
			WarnInconsistentWithInstance)
	}

	updated, err := s.items.Update(uid, func(w *ups.WorkItem) error {
		if w.State() != ups.StateScheduled {
			return conflict("the workitem state changed while canceling",
				WarnInconsistentWithInstance)
		}
		if partial != nil {
			merged := partial.Clone()
			merged.Delete(dicom.TagProcedureStepState)
			merged.Delete(dicom.TagTransactionUID)
			w.Record.Merge(merged)
		}
		w.SetState(ups.StateCanceled)
		return nil
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return notFound(fmt.Sprintf("workitem %s not found", uid))
		}
		return err
	}
	s.notifier.NotifyStatusChange(updated)
	return nil
}

// cancelInfoFrom extracts the requester details carried on a cancel request
// body.
func cancelInfoFrom(partial dicom.DataSet) notify.CancelInfo {
	var info notify.CancelInfo
	if partial == nil {
		return info
	}
	info.RequestingAE, _ = partial.String(dicom.TagRequestingAE)
	info.Reason, _ = partial.String(dicom.TagReasonForCancellation)
	if uris := partial.Seq(dicom.TagProcStepCommunicationsSeq); len(uris) > 0 {
		info.ContactURI, _ = uris[0].String(dicom.TagContactURI)
		info.ContactDisplayName, _ = uris[0].String(dicom.TagContactDisplayName)
	}
	if info.ContactURI == "" {
		info.ContactURI, _ = partial.String(dicom.TagContactURI)
	}
	if info.ContactDisplayName == "" {
		info.ContactDisplayName, _ = partial.String(dicom.TagContactDisplayName)
	}
	return info
}

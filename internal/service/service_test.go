package service

import (
	"errors"
	"testing"

	"github.com/dicomflow/upsrs/internal/dicom"
	"github.com/dicomflow/upsrs/internal/matcher"
	"github.com/dicomflow/upsrs/internal/notify"
	"github.com/dicomflow/upsrs/internal/store"
	"github.com/dicomflow/upsrs/internal/ups"
)

type env struct {
	items    *store.WorkItemStore
	subs     *store.SubscriptionStore
	registry *notify.Registry
	pending  *notify.PendingQueue
	workSvc  *WorkItemService
	subSvc   *SubscriptionService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	m := matcher.New(64)
	t.Cleanup(m.Close)
	e := &env{
		items:    store.NewWorkItemStore(),
		subs:     store.NewSubscriptionStore(),
		registry: notify.NewRegistry(),
		pending:  notify.NewPendingQueue(0),
	}
	notifier := notify.NewNotifier(e.registry, e.pending, e.subs, e.items, m, notify.NewBuilder())
	e.workSvc = NewWorkItemService(e.items, notifier, m)
	e.subSvc = NewSubscriptionService(e.subs, e.registry, notifier)
	return e
}

func scheduledRecord(uid string) dicom.DataSet {
	r := dicom.NewDataSet()
	if uid != "" {
		r.SetString(dicom.TagSOPInstanceUID, dicom.VRUI, uid)
	}
	r.SetString(dicom.TagProcedureStepState, dicom.VRCS, "SCHEDULED")
	return r
}

func asServiceError(t *testing.T, err error) *ServiceError {
	t.Helper()
	var svcErr *ServiceError
	if !errors.As(err, &svcErr) {
		t.Fatalf("expected *ServiceError, got %T: %v", err, err)
	}
	return svcErr
}

func TestCreateNormalizes(t *testing.T) {
	e := newEnv(t)
	w, err := e.workSvc.Create(dicom.NewDataSet(), "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !ups.ValidUID(w.UID) {
		t.Fatalf("expected generated UID, got %q", w.UID)
	}
	if w.State() != ups.StateScheduled {
		t.Fatalf("state: %q", w.State())
	}
	if v, _ := w.Record.String(dicom.TagSOPClassUID); v != ups.UPSPushSOPClassUID {
		t.Fatalf("sop class: %q", v)
	}
	if v := w.InputReadinessState(); v != "READY" {
		t.Fatalf("readiness: %q", v)
	}
}

func TestCreateUIDPrecedence(t *testing.T) {
	e := newEnv(t)
	w, err := e.workSvc.Create(scheduledRecord("1.2.3"), "4.5.6")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if w.UID != "4.5.6" {
		t.Fatalf("expected query-parameter UID to win, got %q", w.UID)
	}
	if v, _ := w.Record.String(dicom.TagSOPInstanceUID); v != "4.5.6" {
		t.Fatalf("record uid not rewritten: %q", v)
	}
}

func TestCreateDuplicateConflict(t *testing.T) {
	e := newEnv(t)
	if _, err := e.workSvc.Create(scheduledRecord("1.2.3"), ""); err != nil {
		t.Fatalf("create: %v", err)
	}
	_, err := e.workSvc.Create(scheduledRecord("1.2.3"), "")
	if svcErr := asServiceError(t, err); svcErr.Code != "CONFLICT" {
		t.Fatalf("expected CONFLICT, got %s", svcErr.Code)
	}
}

func TestCreateRejectsNonScheduled(t *testing.T) {
	e := newEnv(t)
	r := scheduledRecord("1.2.3")
	r.SetString(dicom.TagProcedureStepState, dicom.VRCS, "IN PROGRESS")
	_, err := e.workSvc.Create(r, "")
	if svcErr := asServiceError(t, err); svcErr.Code != "INVALID_ARGUMENT" {
		t.Fatalf("expected INVALID_ARGUMENT, got %s", svcErr.Code)
	}
}

func TestChangeStateHappyPath(t *testing.T) {
	e := newEnv(t)
	if _, err := e.workSvc.Create(scheduledRecord("1.2.3"), ""); err != nil {
		t.Fatalf("create: %v", err)
	}
	w, err := e.workSvc.ChangeState("1.2.3", ups.StateInProgress, "9.9.1")
	if err != nil {
		t.Fatalf("to IN PROGRESS: %v", err)
	}
	if w.TransactionUID != "9.9.1" {
		t.Fatalf("transaction uid not stored: %q", w.TransactionUID)
	}
	if _, err := e.workSvc.ChangeState("1.2.3", ups.StateCompleted, "9.9.1"); err != nil {
		t.Fatalf("to COMPLETED: %v", err)
	}
}

func TestChangeStateClaimNeedsTransactionUID(t *testing.T) {
	e := newEnv(t)
	if _, err := e.workSvc.Create(scheduledRecord("1.2.3"), ""); err != nil {
		t.Fatalf("create: %v", err)
	}
	_, err := e.workSvc.ChangeState("1.2.3", ups.StateInProgress, "")
	svcErr := asServiceError(t, err)
	if svcErr.Code != "INVALID_ARGUMENT" {
		t.Fatalf("expected INVALID_ARGUMENT, got %s", svcErr.Code)
	}
	if len(svcErr.Warnings) != 1 || svcErr.Warnings[0] != WarnTransactionUIDMissing {
		t.Fatalf("warnings: %v", svcErr.Warnings)
	}
}

func TestChangeStateWrongTransactionUID(t *testing.T) {
	e := newEnv(t)
	if _, err := e.workSvc.Create(scheduledRecord("1.2.3"), ""); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := e.workSvc.ChangeState("1.2.3", ups.StateInProgress, "T1"); err != nil {
		t.Fatalf("claim: %v", err)
	}
	_, err := e.workSvc.ChangeState("1.2.3", ups.StateCompleted, "T2")
	svcErr := asServiceError(t, err)
	if svcErr.Code != "INVALID_ARGUMENT" {
		t.Fatalf("expected INVALID_ARGUMENT, got %s", svcErr.Code)
	}
	if len(svcErr.Warnings) != 2 || svcErr.Warnings[1] != WarnTransactionUIDIncorrect {
		t.Fatalf("warnings: %v", svcErr.Warnings)
	}
}

func TestChangeStateTerminalSameStateIsGone(t *testing.T) {
	e := newEnv(t)
	if _, err := e.workSvc.Create(scheduledRecord("1.2.3"), ""); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := e.workSvc.ChangeState("1.2.3", ups.StateInProgress, "T1"); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if _, err := e.workSvc.ChangeState("1.2.3", ups.StateCompleted, "T1"); err != nil {
		t.Fatalf("complete: %v", err)
	}
	_, err := e.workSvc.ChangeState("1.2.3", ups.StateCompleted, "T1")
	svcErr := asServiceError(t, err)
	if svcErr.Code != "GONE" {
		t.Fatalf("expected GONE, got %s", svcErr.Code)
	}
	if len(svcErr.Warnings) != 1 || svcErr.Warnings[0] != WarnAlreadyCompleted {
		t.Fatalf("warnings: %v", svcErr.Warnings)
	}
}

func TestChangeStateTerminalOtherStateIsConflict(t *testing.T) {
	e := newEnv(t)
	if _, err := e.workSvc.Create(scheduledRecord("1.2.3"), ""); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := e.workSvc.ChangeState("1.2.3", ups.StateCanceled, ""); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	_, err := e.workSvc.ChangeState("1.2.3", ups.StateCompleted, "")
	if svcErr := asServiceError(t, err); svcErr.Code != "CONFLICT" {
		t.Fatalf("expected CONFLICT, got %s", svcErr.Code)
	}
}

func TestChangeStateIllegalTransition(t *testing.T) {
	e := newEnv(t)
	if _, err := e.workSvc.Create(scheduledRecord("1.2.3"), ""); err != nil {
		t.Fatalf("create: %v", err)
	}
	_, err := e.workSvc.ChangeState("1.2.3", ups.StateCompleted, "T1")
	if svcErr := asServiceError(t, err); svcErr.Code != "CONFLICT" {
		t.Fatalf("expected CONFLICT for SCHEDULED to COMPLETED, got %s", svcErr.Code)
	}
}

func TestUpdateStripsStateTag(t *testing.T) {
	e := newEnv(t)
	if _, err := e.workSvc.Create(scheduledRecord("1.2.3"), ""); err != nil {
		t.Fatalf("create: %v", err)
	}
	partial := dicom.NewDataSet()
	partial.SetString(dicom.TagProcedureStepState, dicom.VRCS, "COMPLETED")
	partial.SetString(dicom.TagWorklistLabel, dicom.VRLO, "WL")

	w, warnings, err := e.workSvc.Update("1.2.3", partial, "")
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if w.State() != ups.StateScheduled {
		t.Fatalf("state changed through update: %q", w.State())
	}
	if v, _ := w.Record.String(dicom.TagWorklistLabel); v != "WL" {
		t.Fatalf("merge lost tag: %q", v)
	}
	if len(warnings) != 1 || warnings[0] != WarnUpdatedWithModifications {
		t.Fatalf("warnings: %v", warnings)
	}
}

func TestUpdateLockedItem(t *testing.T) {
	e := newEnv(t)
	if _, err := e.workSvc.Create(scheduledRecord("1.2.3"), ""); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := e.workSvc.ChangeState("1.2.3", ups.StateInProgress, "T_A"); err != nil {
		t.Fatalf("claim: %v", err)
	}
	partial := dicom.NewDataSet()
	partial.SetString(dicom.TagWorklistLabel, dicom.VRLO, "WL")

	_, _, err := e.workSvc.Update("1.2.3", partial, "T_B")
	svcErr := asServiceError(t, err)
	if svcErr.Code != "INVALID_ARGUMENT" {
		t.Fatalf("expected INVALID_ARGUMENT, got %s", svcErr.Code)
	}
	if len(svcErr.Warnings) != 2 ||
		svcErr.Warnings[0] != WarnInconsistentWithWorkitem ||
		svcErr.Warnings[1] != WarnTransactionUIDIncorrect {
		t.Fatalf("warnings: %v", svcErr.Warnings)
	}

	if _, _, err := e.workSvc.Update("1.2.3", partial, ""); err == nil {
		t.Fatal("expected missing transaction UID to fail")
	}
	if _, _, err := e.workSvc.Update("1.2.3", partial, "T_A"); err != nil {
		t.Fatalf("update with correct transaction UID: %v", err)
	}
}

func TestRequestCancelScheduled(t *testing.T) {
	e := newEnv(t)
	if _, err := e.workSvc.Create(scheduledRecord("1.2.3"), ""); err != nil {
		t.Fatalf("create: %v", err)
	}
	reason := dicom.NewDataSet()
	reason.SetString(dicom.TagReasonForCancellation, dicom.VRLT, "no longer needed")
	if err := e.workSvc.RequestCancel("1.2.3", reason); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	w, err := e.workSvc.Get("1.2.3")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if w.State() != ups.StateCanceled {
		t.Fatalf("state: %q", w.State())
	}
	if v, _ := w.Record.String(dicom.TagReasonForCancellation); v != "no longer needed" {
		t.Fatalf("reason not merged: %q", v)
	}
}

func TestRequestCancelInProgressEmitsCancelRequested(t *testing.T) {
	e := newEnv(t)
	if _, err := e.workSvc.Create(scheduledRecord("1.2.3"), ""); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := e.workSvc.ChangeState("1.2.3", ups.StateInProgress, "T1"); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if _, err := e.subSvc.Create("1.2.3", "AE1", false, nil); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	e.pending.Drain("AE1") // discard the snapshot

	body := dicom.NewDataSet()
	body.SetString(dicom.TagRequestingAE, dicom.VRAE, "AE9")
	err := e.workSvc.RequestCancel("1.2.3", body)
	if svcErr := asServiceError(t, err); svcErr.Code != "CONFLICT" {
		t.Fatalf("expected CONFLICT, got %s", svcErr.Code)
	}

	evs := e.pending.Drain("AE1")
	if len(evs) != 1 {
		t.Fatalf("expected 1 cancel-requested event, got %d", len(evs))
	}
	if n, _ := evs[0].Int(dicom.TagEventTypeID); n != int(ups.EventCancelRequested) {
		t.Fatalf("event type: %d", n)
	}
	if v, _ := evs[0].String(dicom.TagRequestingAE); v != "AE9" {
		t.Fatalf("requesting ae: %q", v)
	}
	w, _ := e.workSvc.Get("1.2.3")
	if w.State() != ups.StateInProgress {
		t.Fatalf("state must be unchanged, got %q", w.State())
	}
}

func TestSearch(t *testing.T) {
	e := newEnv(t)
	r := scheduledRecord("1.2.3")
	r.SetPersonName(dicom.TagPatientName, "TEST^PATIENT")
	if _, err := e.workSvc.Create(r, ""); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := e.workSvc.Create(scheduledRecord("1.2.4"), ""); err != nil {
		t.Fatalf("create: %v", err)
	}

	query := dicom.NewDataSet()
	query.SetPersonName(dicom.TagPatientName, "TEST*")
	got := e.workSvc.Search(SearchParams{Query: query})
	if len(got) != 1 || got[0].UID != "1.2.3" {
		t.Fatalf("search result: %v", got)
	}
}

func TestSubscriptionCreateQueuesSnapshot(t *testing.T) {
	e := newEnv(t)
	if _, err := e.workSvc.Create(scheduledRecord("1.2.3"), ""); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := e.subSvc.Create("1.2.3", "AE1", false, nil); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if got := e.pending.Len("AE1"); got != 1 {
		t.Fatalf("expected 1 snapshot event, got %d", got)
	}
}

func TestSubscriptionFilteredRequiresFilter(t *testing.T) {
	e := newEnv(t)
	if _, err := e.subSvc.Create(ups.UIDFiltered, "AE1", false, nil); err == nil {
		t.Fatal("expected error for filtered subscription without filter")
	}
	filter := dicom.NewDataSet()
	filter.SetString(dicom.TagProcedureStepState, dicom.VRCS, "SCHEDULED")
	if _, err := e.subSvc.Create(ups.UIDGlobal, "AE1", false, filter); err == nil {
		t.Fatal("expected error for filter on a non-filtered target")
	}
}

func TestSuspendThenResubscribe(t *testing.T) {
	e := newEnv(t)
	if _, err := e.subSvc.Create(ups.UIDGlobal, "AE1", false, nil); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if err := e.subSvc.Suspend(ups.UIDGlobal, "AE1"); err != nil {
		t.Fatalf("suspend: %v", err)
	}

	// Suspended: no fan-out membership, no deliveries.
	if got := e.registry.SubscribersFor(ups.UIDGlobal); len(got) != 0 {
		t.Fatalf("suspended subscriber still indexed: %v", got)
	}
	if _, err := e.workSvc.Create(scheduledRecord("1.2.6"), ""); err != nil {
		t.Fatalf("create: %v", err)
	}
	if got := e.pending.Len("AE1"); got != 0 {
		t.Fatalf("suspended subscriber received %d events", got)
	}

	// Suspending again is a NOT_FOUND.
	err := e.subSvc.Suspend(ups.UIDGlobal, "AE1")
	if svcErr := asServiceError(t, err); svcErr.Code != "NOT_FOUND" {
		t.Fatalf("expected NOT_FOUND, got %s", svcErr.Code)
	}

	// Re-subscribing replaces the suspended row and reactivates delivery.
	sub, err := e.subSvc.Create(ups.UIDGlobal, "AE1", false, nil)
	if err != nil {
		t.Fatalf("re-subscribe: %v", err)
	}
	if sub.Suspended {
		t.Fatal("re-created subscription is suspended")
	}
	if _, err := e.workSvc.Create(scheduledRecord("1.2.7"), ""); err != nil {
		t.Fatalf("create: %v", err)
	}
	if got := e.pending.Len("AE1"); got != 2 {
		t.Fatalf("expected 2 events after reactivation, got %d", got)
	}
}

func TestSuspendConcreteTargetRejected(t *testing.T) {
	e := newEnv(t)
	if _, err := e.subSvc.Create("1.2.3", "AE1", false, nil); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	err := e.subSvc.Suspend("1.2.3", "AE1")
	if svcErr := asServiceError(t, err); svcErr.Code != "INVALID_ARGUMENT" {
		t.Fatalf("expected INVALID_ARGUMENT, got %s", svcErr.Code)
	}
}

func TestDeleteSubscription(t *testing.T) {
	e := newEnv(t)
	if _, err := e.subSvc.Create(ups.UIDGlobal, "AE1", false, nil); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if err := e.subSvc.Delete(ups.UIDGlobal, "AE1"); err != nil {
		t.Fatalf("unsubscribe: %v", err)
	}
	err := e.subSvc.Delete(ups.UIDGlobal, "AE1")
	if svcErr := asServiceError(t, err); svcErr.Code != "NOT_FOUND" {
		t.Fatalf("expected NOT_FOUND, got %s", svcErr.Code)
	}
}

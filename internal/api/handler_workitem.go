package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/zeebo/xxh3"

	"github.com/dicomflow/upsrs/internal/dicom"
	"github.com/dicomflow/upsrs/internal/service"
	"github.com/dicomflow/upsrs/internal/ups"
)

// HandleCreateWorkItem creates a work item from the request body. The UID
// comes from the workitem query parameter, the body's SOP Instance UID, or
// is assigned by the server.
func HandleCreateWorkItem(svc *service.WorkItemService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		record, err := decodeDataSet(r)
		if err != nil {
			writeInvalidArgument(w, err.Error())
			return
		}
		created, err := svc.Create(record, r.URL.Query().Get("workitem"))
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		resp := dicom.NewDataSet()
		resp.SetString(dicom.TagSOPInstanceUID, dicom.VRUI, created.UID)
		w.Header().Set("Content-Location", "/workitems/"+created.UID)
		WriteDICOMJSON(w, http.StatusCreated, resp)
	}
}

// HandleSearchWorkItems serves the content search. A workitem parameter
// short-circuits to a single lookup; an empty result set is a 404.
func HandleSearchWorkItems(svc *service.WorkItemService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if uid := r.URL.Query().Get("workitem"); uid != "" {
			item, err := svc.Get(uid)
			if err != nil {
				writeServiceError(w, r, err)
				return
			}
			WriteDICOMJSON(w, http.StatusOK, []dicom.DataSet{item.PublicRecord()})
			return
		}

		params, err := searchParamsFrom(r.URL.Query())
		if err != nil {
			writeInvalidArgument(w, err.Error())
			return
		}
		items := svc.Search(params)
		if len(items) == 0 {
			WriteError(w, http.StatusNotFound, "NOT_FOUND", "no matching workitems")
			return
		}
		records := make([]dicom.DataSet, len(items))
		for i, item := range items {
			records[i] = item.PublicRecord()
		}
		WriteDICOMJSON(w, http.StatusOK, records)
	}
}

// HandleGetWorkItem retrieves one work item. The response carries a strong
// ETag over the canonical encoding and honors If-None-Match.
func HandleGetWorkItem(svc *service.WorkItemService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		item, err := svc.Get(r.PathValue("uid"))
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		body, err := json.Marshal(item.PublicRecord())
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "INTERNAL", "encode failed")
			return
		}
		etag := fmt.Sprintf("\"%016x\"", xxh3.Hash(body))
		w.Header().Set("ETag", etag)
		if r.Header.Get("If-None-Match") == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("Content-Type", dicomJSONContentType)
		w.WriteHeader(http.StatusOK)
		w.Write(body)
	}
}

// HandleUpdateWorkItem merge-updates a work item. The transaction-uid query
// parameter presents the lock token for claimed items.
func HandleUpdateWorkItem(svc *service.WorkItemService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		partial, err := decodeDataSet(r)
		if err != nil {
			writeInvalidArgument(w, err.Error())
			return
		}
		updated, warnings, err := svc.Update(r.PathValue("uid"), partial, r.URL.Query().Get("transaction-uid"))
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		appendWarnings(w, r, warnings)
		WriteDICOMJSON(w, http.StatusOK, updated.PublicRecord())
	}
}

// HandleChangeState drives the work-item state machine. The body supplies
// the requested state and the transaction UID.
func HandleChangeState(svc *service.WorkItemService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := decodeDataSet(r)
		if err != nil {
			writeInvalidArgument(w, err.Error())
			return
		}
		state, ok := body.String(dicom.TagProcedureStepState)
		if !ok {
			writeInvalidArgument(w, "the request must carry a ProcedureStepState")
			return
		}
		transactionUID, _ := body.String(dicom.TagTransactionUID)
		updated, err := svc.ChangeState(r.PathValue("uid"), ups.State(state), transactionUID)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		WriteDICOMJSON(w, http.StatusOK, updated.PublicRecord())
	}
}

// HandleCancelRequest asks for a work item to be canceled on behalf of an
// AE that does not hold its transaction UID.
func HandleCancelRequest(svc *service.WorkItemService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := decodeDataSet(r)
		if err != nil {
			writeInvalidArgument(w, err.Error())
			return
		}
		if err := svc.RequestCancel(r.PathValue("uid"), body); err != nil {
			writeServiceError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}
}

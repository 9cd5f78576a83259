package api

import (
	"errors"
	"net/http"

	"github.com/dicomflow/upsrs/internal/service"
)

func writeInvalidArgument(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, "INVALID_ARGUMENT", message)
}

// writeServiceError maps service errors to HTTP response codes and appends
// the error's Warning headers.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "internal server error")
		return
	}

	var svcErr *service.ServiceError
	if errors.As(err, &svcErr) {
		var status int
		switch svcErr.Code {
		case "INVALID_ARGUMENT":
			status = http.StatusBadRequest
		case "NOT_FOUND":
			status = http.StatusNotFound
		case "CONFLICT":
			status = http.StatusConflict
		case "GONE":
			status = http.StatusGone
		default:
			status = http.StatusInternalServerError
		}
		appendWarnings(w, r, svcErr.Warnings)
		WriteError(w, status, svcErr.Code, svcErr.Message)
		return
	}

	WriteError(w, http.StatusInternalServerError, "INTERNAL", "internal server error")
}

// Package api implements the HTTP surface of the UPS-RS service: the
// work-item and subscription endpoints, the websocket push endpoint, and
// the middleware around them.
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
)

const dicomJSONContentType = "application/dicom+json; charset=utf-8"

// WriteDICOMJSON writes a DICOM JSON response with the given status code.
func WriteDICOMJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", dicomJSONContentType)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// ErrorResponse is the standard error envelope.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains the error code and human-readable message.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteError writes a standard error response.
func WriteError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Error: ErrorDetail{Code: code, Message: message},
	})
}

// appendWarnings adds one Warning: 299 header per text, attributed to the
// serving host.
func appendWarnings(w http.ResponseWriter, r *http.Request, warnings []string) {
	for _, text := range warnings {
		w.Header().Add("Warning", fmt.Sprintf("299 %s: %s", r.Host, text))
	}
}

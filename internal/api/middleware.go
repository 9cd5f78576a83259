package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/dicomflow/upsrs/internal/auditlog"
)

// AuthMiddleware returns an http.Handler that validates the Bearer token
// in the Authorization header against the configured API token.
// If validation fails, it returns 401 Unauthorized with a JSON error body.
// An empty expected token disables authentication.
func AuthMiddleware(apiToken string, next http.Handler) http.Handler {
	if apiToken == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if auth == "" {
			WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing Authorization header")
			return
		}

		const prefix = "Bearer "
		if !strings.HasPrefix(auth, prefix) {
			WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid Authorization header format")
			return
		}

		token := auth[len(prefix):]
		if token != apiToken {
			WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid API token")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// RequestBodyLimitMiddleware enforces a max request body size for downstream handlers.
func RequestBodyLimitMiddleware(maxBytes int64, next http.Handler) http.Handler {
	if maxBytes <= 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r != nil && r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
		}
		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the status code written by the wrapped handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// AuditMiddleware records each request in the audit log. Websocket
// upgrades bypass the status recorder because hijacked connections never
// write a plain HTTP response.
func AuditMiddleware(audit *auditlog.Service, next http.Handler) http.Handler {
	if audit == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
			next.ServeHTTP(w, r)
			return
		}
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)
		audit.Emit(auditlog.Entry{
			Timestamp:  start,
			Method:     r.Method,
			Path:       r.URL.Path,
			Status:     rec.status,
			Duration:   time.Since(start),
			RemoteAddr: r.RemoteAddr,
			Subscriber: subscriberFromPath(r.URL.Path),
		})
	})
}

// subscriberFromPath extracts the AE title from subscription and event
// channel paths so audit rows can be grouped per subscriber.
func subscriberFromPath(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	for i, p := range parts {
		if p == "subscribers" && i+1 < len(parts) {
			return parts[i+1]
		}
	}
	return ""
}

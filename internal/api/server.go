package api

import (
	"context"
	"net"
	"net/http"
	"strconv"

	"github.com/dicomflow/upsrs/internal/auditlog"
	"github.com/dicomflow/upsrs/internal/notify"
	"github.com/dicomflow/upsrs/internal/service"
)

// Server wraps the HTTP server and mux for the UPS-RS API.
type Server struct {
	httpServer *http.Server
	handler    http.Handler
}

// NewServer creates a new API server wired with all routes.
// audit may be nil to disable the audit trail.
func NewServer(
	port int,
	apiToken string,
	maxBodyBytes int64,
	workitems *service.WorkItemService,
	subscriptions *service.SubscriptionService,
	registry *notify.Registry,
	audit *auditlog.Service,
) *Server {
	return NewServerWithAddress("", port, apiToken, maxBodyBytes, workitems, subscriptions, registry, audit)
}

// NewServerWithAddress creates a new API server with an explicit listen address.
func NewServerWithAddress(
	listenAddress string,
	port int,
	apiToken string,
	maxBodyBytes int64,
	workitems *service.WorkItemService,
	subscriptions *service.SubscriptionService,
	registry *notify.Registry,
	audit *auditlog.Service,
) *Server {
	mux := http.NewServeMux()

	// Public (no auth): health and the websocket event channel. Event
	// channels are claimed by AE title after the subscription handshake.
	mux.Handle("GET /healthz", HandleHealthz())
	mux.Handle("GET /ws/subscribers/{aet}", HandleEventChannel(registry))

	// Authenticated routes.
	authed := http.NewServeMux()

	// Work items.
	authed.Handle("POST /workitems", HandleCreateWorkItem(workitems))
	authed.Handle("GET /workitems", HandleSearchWorkItems(workitems))
	authed.Handle("GET /workitems/{uid}", HandleGetWorkItem(workitems))
	authed.Handle("PUT /workitems/{uid}", HandleUpdateWorkItem(workitems))
	authed.Handle("PUT /workitems/{uid}/state", HandleChangeState(workitems))
	authed.Handle("POST /workitems/{uid}/cancelrequest", HandleCancelRequest(workitems))

	// Subscriptions. The target is a work-item UID or a reserved
	// well-known UID for the global and filtered-global lists.
	authed.Handle("POST /workitems/{target}/subscribers/{aet}", HandleSubscribe(subscriptions))
	authed.Handle("DELETE /workitems/{target}/subscribers/{aet}", HandleUnsubscribe(subscriptions))
	authed.Handle("POST /workitems/{target}/subscribers/{aet}/suspend", HandleSuspend(subscriptions))

	limitedAuthed := RequestBodyLimitMiddleware(maxBodyBytes, authed)
	mux.Handle("/workitems", AuthMiddleware(apiToken, limitedAuthed))
	mux.Handle("/workitems/", AuthMiddleware(apiToken, limitedAuthed))

	handler := AuditMiddleware(audit, mux)

	srv := &http.Server{
		Addr:    net.JoinHostPort(listenAddress, strconv.Itoa(port)),
		Handler: handler,
	}

	return &Server{
		httpServer: srv,
		handler:    handler,
	}
}

// ListenAndServe starts the HTTP server. It blocks until the server stops.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Handler returns the underlying http.Handler for testing.
func (s *Server) Handler() http.Handler {
	return s.handler
}

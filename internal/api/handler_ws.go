package api

import (
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/dicomflow/upsrs/internal/notify"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// Subscribers are identified by AE title, not browser origin.
	CheckOrigin: func(*http.Request) bool { return true },
}

// HandleEventChannel upgrades the connection to the websocket event
// channel for one subscriber. Accept blocks until the peer disconnects.
func HandleEventChannel(registry *notify.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		subscriber := r.PathValue("aet")
		if subscriber == "" {
			writeInvalidArgument(w, "missing subscriber AE title")
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("[api] websocket upgrade failed for %s: %v", subscriber, err)
			return
		}
		registry.Accept(conn, subscriber)
	}
}

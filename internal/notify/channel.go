package notify

import (
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// Outbound frames buffered per channel before the connection is
	// considered stuck and dropped.
	sendBuffer = 64
)

// Channel is one open push connection to a subscriber. Frames are queued on
// a buffered channel and written by a single pump goroutine, so Send never
// blocks on socket I/O.
type Channel struct {
	subscriberID string
	conn         *websocket.Conn
	send         chan []byte
	done         chan struct{}
	closeOnce    sync.Once
}

func newChannel(subscriberID string, conn *websocket.Conn) *Channel {
	return &Channel{
		subscriberID: subscriberID,
		conn:         conn,
		send:         make(chan []byte, sendBuffer),
		done:         make(chan struct{}),
	}
}

// SubscriberID returns the AE title this channel serves.
func (c *Channel) SubscriberID() string { return c.subscriberID }

// Send queues a frame for delivery. It reports false when the channel is
// closed or its buffer is full; the caller drops the channel in both cases.
func (c *Channel) Send(frame []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- frame:
		return true
	case <-c.done:
		return false
	default:
		log.Printf("notify: send buffer full for %s, dropping channel", c.subscriberID)
		return false
	}
}

// Close tears down the connection. Safe to call more than once.
func (c *Channel) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

// writePump drains the send queue onto the socket and keeps the connection
// alive with pings. It exits when the channel closes or a write fails.
func (c *Channel) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()
	for {
		select {
		case frame := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				log.Printf("notify: write to %s failed: %v", c.subscriberID, err)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

// readLoop consumes inbound frames until the peer closes or the transport
// errors. Inbound payloads are ignored; reading is what surfaces closure.
func (c *Channel) readLoop() {
	c.conn.SetReadLimit(1 << 20)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

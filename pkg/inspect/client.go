package inspect

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// writeWait bounds a single websocket write.
	writeWait = 10 * time.Second

	// pongWait is how long a client may stay silent.
	pongWait = 60 * time.Second

	// pingPeriod must be shorter than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// sendBuffer is the per-client outbound queue; a client that
	// falls this far behind is dropped.
	sendBuffer = 64
)

// Message types on the /live feed.
const (
	messageSnapshot = "snapshot"
	messageChange   = "change"
)

// wsMessage is one frame on the /live feed.
type wsMessage struct {
	Type    string         `json:"type"`
	State   map[string]any `json:"state,omitempty"`
	Key     string         `json:"key,omitempty"`
	Value   any            `json:"value,omitempty"`
	Created bool           `json:"created,omitempty"`
	Seq     uint64         `json:"seq,omitempty"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The inspector is a development tool; it serves same-host
	// tooling and local UIs.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// client is one connected /live subscriber.
type client struct {
	conn *websocket.Conn
	send chan wsMessage

	closeOnce sync.Once
	done      chan struct{}
}

func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	c := &client{
		conn: conn,
		send: make(chan wsMessage, sendBuffer),
		done: make(chan struct{}),
	}

	// Queue the initial snapshot before the client can observe any
	// change message.
	c.send <- wsMessage{
		Type:  messageSnapshot,
		State: s.mgr.Snapshot(),
	}

	s.register(c)
	go c.writePump(s)
	go c.readLoop(s)
}

// trySend queues a message without blocking. Reports false when the
// client's buffer is full.
func (c *client) trySend(msg wsMessage) bool {
	select {
	case c.send <- msg:
		return true
	case <-c.done:
		return true // already closing, nothing to report
	default:
		return false
	}
}

func (c *client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

// writePump moves queued messages onto the wire and keeps the
// connection alive with pings.
func (c *client) writePump(s *Server) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.unregister(c)
		c.close()
	}()

	for {
		select {
		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(msg); err != nil {
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

// readLoop drains client frames. The feed is one-way; reads exist
// only to notice disconnects and answer pings.
func (c *client) readLoop(s *Server) {
	defer func() {
		s.unregister(c)
		c.close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				s.logger.Error("inspector client read error", "error", err)
			}
			return
		}
	}
}

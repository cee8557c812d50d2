package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxCommandSize = 512

	// sendBufferSize bounds how far one slow connection may fall behind
	// before it is dropped.
	sendBufferSize = 64
)

// Client is one live websocket connection. Outbound traffic goes through a
// buffered send channel drained by writePump, so a stalled connection never
// blocks a broadcast to its peers.
type Client struct {
	conn *websocket.Conn
	send chan []byte
	info ConnInfo

	// mu orders enqueue against closeSend: the channel is never closed
	// while a send is in flight, and enqueue refuses once closed.
	mu     sync.Mutex
	closed bool
}

func newClient(conn *websocket.Conn, info ConnInfo) *Client {
	return &Client{
		conn: conn,
		send: make(chan []byte, sendBufferSize),
		info: info,
	}
}

// enqueue offers a payload without blocking and reports whether it fit.
// A closed client always reports false.
func (c *Client) enqueue(payload []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

func (c *Client) sendJSON(v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		return
	}
	c.enqueue(payload)
}

func (c *Client) sendAck(action string, channelID int) {
	c.sendJSON(map[string]any{"type": "ack", "action": action, "channel_id": channelID})
}

func (c *Client) sendError(reason string) {
	c.sendJSON(map[string]any{"type": "error", "error": reason})
}

// closeSend is idempotent; the hub calls it when dropping a client and the
// read loop calls it on disconnect.
func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"chatroom/contract"
)

const writeTimeout = 5 * time.Second

// wsConn wraps one websocket connection behind the EventSink contract.
// Writes are serialized under a mutex and bounded by a deadline, so a slow
// consumer can stall its own connection but never a broadcasting goroutine
// for longer than the timeout.
type wsConn struct {
	conn *websocket.Conn

	mu     sync.Mutex
	closed bool
}

func newWsConn(conn *websocket.Conn) *wsConn {
	return &wsConn{conn: conn}
}

func (c *wsConn) Send(e contract.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return websocket.ErrCloseSent
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteJSON(e)
}

// Close is idempotent; the read loop and the registry eviction path can
// both end up here.
func (c *wsConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.conn.Close()
}

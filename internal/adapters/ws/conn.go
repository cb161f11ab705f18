package ws

import (
	"errors"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/classpoll/classpoll/internal/core"
)

var ErrBackpressure = errors.New("backpressure")

// WSConn adapts a gorilla websocket to core.Conn. Frames go through a
// buffered channel drained by the write pump; TrySend never blocks.
type WSConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func NewWSConn(conn *websocket.Conn, buffer int) *WSConn {
	return &WSConn{
		conn: conn,
		send: make(chan core.Frame, buffer),
	}
}

func (c *WSConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *WSConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

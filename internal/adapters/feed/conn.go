package feed

import (
	"errors"
	"sync"

	"github.com/dkeye/VoiceTwin/internal/core"
	"github.com/gorilla/websocket"
)

var (
	ErrBackpressure = errors.New("backpressure")
	ErrClosed       = errors.New("feed connection closed")
)

// Conn is one UI feed subscriber. It implements core.SignalConnection.
type Conn struct {
	ws   *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

func NewConn(ws *websocket.Conn, buffer int) *Conn {
	return &Conn{
		ws:   ws,
		send: make(chan core.Frame, buffer),
		done: make(chan struct{}),
	}
}

func (c *Conn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrClosed
	}
	select {
	case c.send <- f:
		return nil
	default:
		return ErrBackpressure
	}
}

func (c *Conn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.done)
	c.mu.Unlock()
	_ = c.ws.Close()
}

func (c *Conn) Done() <-chan struct{} { return c.done }

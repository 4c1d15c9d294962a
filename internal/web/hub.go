package web

import (
	"sync"

	"github.com/gorilla/websocket"
)

// hub tracks the connected websocket clients and fans snapshots out to them.
type hub struct {
	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

func newHub() *hub {
	return &hub{conns: make(map[*websocket.Conn]struct{})}
}

func (h *hub) add(c *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[c] = struct{}{}
}

func (h *hub) remove(c *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, c)
}

// broadcast sends v to every connected client. Clients that fail to accept
// the write are dropped; the mutex also serializes writes to each
// connection.
func (h *hub) broadcast(v any) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.conns {
		if err := c.WriteJSON(v); err != nil {
			c.Close()
			delete(h.conns, c)
		}
	}
}

func (h *hub) clientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

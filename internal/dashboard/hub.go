package dashboard

import (
	"sync"

	"github.com/coder/websocket"
)

// clientQueueSize bounds the messages waiting for one client. A client that
// falls this far behind is disconnected rather than slowing everyone else.
const clientQueueSize = 16

type client struct {
	conn *websocket.Conn
	send chan []byte

	// Set by the hub before send is closed.
	closeCode   websocket.StatusCode
	closeReason string
}

func newClient(conn *websocket.Conn) *client {
	return &client{
		conn: conn,
		send: make(chan []byte, clientQueueSize),
	}
}

// hub tracks connected clients and fans messages out to their queues.
// Closing a client's send channel tells its writer to hang up.
type hub struct {
	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool
}

func newHub() *hub {
	return &hub{clients: make(map[*client]struct{})}
}

// add registers c and returns the new client count. It returns false once
// the hub is closed.
func (h *hub) add(c *client) (int, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return 0, false
	}
	h.clients[c] = struct{}{}
	return len(h.clients), true
}

// remove unregisters c. It reports whether c was still registered.
func (h *hub) remove(c *client, code websocket.StatusCode, reason string) (int, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return len(h.clients), false
	}
	h.drop(c, code, reason)
	return len(h.clients), true
}

// drop must be called with mu held.
func (h *hub) drop(c *client, code websocket.StatusCode, reason string) {
	delete(h.clients, c)
	c.closeCode = code
	c.closeReason = reason
	close(c.send)
}

// publish queues data for every client and returns how many were dropped
// because their queue was full.
func (h *hub) publish(data []byte) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	dropped := 0
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.drop(c, websocket.StatusPolicyViolation, "client too slow")
			dropped++
		}
	}
	return dropped
}

// close disconnects every client and refuses new ones.
func (h *hub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		h.drop(c, websocket.StatusGoingAway, "server shutting down")
	}
}

func (h *hub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

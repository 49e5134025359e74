package dashboard

import (
	"encoding/json"
	"log"
	"os"
	"time"

	"github.com/campusdesk/campussync/internal/status"
)

// StatusPublisher notifies observers of sync status changes.
type StatusPublisher interface {
	OnStatusChange(fn status.Observer) (unsubscribe func())
}

// ConnectivityPublisher notifies listeners of connectivity transitions.
type ConnectivityPublisher interface {
	OnChange(fn func(online bool)) (unsubscribe func())
}

// Handler turns status and connectivity changes into dashboard messages.
type Handler struct {
	server *Server
	logger *log.Logger
}

// NewHandler creates a new event handler connected to a dashboard server
func NewHandler(server *Server, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.New(os.Stderr, "[dashboard] ", log.LstdFlags)
	}
	return &Handler{
		server: server,
		logger: logger,
	}
}

// Attach subscribes the handler to both publishers. Either may be nil.
// The returned function removes both subscriptions.
func (h *Handler) Attach(statuses StatusPublisher, conn ConnectivityPublisher) (detach func()) {
	var unsubs []func()
	if statuses != nil {
		unsubs = append(unsubs, statuses.OnStatusChange(h.OnStatus))
	}
	if conn != nil {
		unsubs = append(unsubs, conn.OnChange(h.OnConnectivity))
	}
	return func() {
		for _, unsub := range unsubs {
			unsub()
		}
	}
}

// OnStatus broadcasts a status snapshot.
func (h *Handler) OnStatus(s status.Status) {
	data := StatusData{Status: s, Online: true}
	if h.server.connSrc != nil {
		data.Online = h.server.connSrc.IsOnline()
	}
	h.send(MessageTypeStatus, data)
}

// OnConnectivity broadcasts a connectivity transition.
func (h *Handler) OnConnectivity(online bool) {
	h.send(MessageTypeConnectivity, ConnectivityData{Online: online})
}

func (h *Handler) send(typ MessageType, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Printf("Failed to marshal %s data: %v", typ, err)
		return
	}

	h.server.Broadcast(Message{
		Type:      typ,
		Timestamp: time.Now(),
		Data:      data,
	})
}

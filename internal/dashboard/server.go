// Package dashboard provides a real-time WebSocket view of the sync status.
//
// Connected clients receive the current status when they connect and a
// message on every later status or connectivity change. /health and /status
// serve the same information for plain HTTP polling.
package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/campusdesk/campussync/internal/status"
)

const writeTimeout = 5 * time.Second

// MessageType identifies the payload of a Message.
type MessageType string

const (
	// MessageTypeStatus carries a StatusData snapshot.
	MessageTypeStatus MessageType = "status"

	// MessageTypeConnectivity carries ConnectivityData.
	MessageTypeConnectivity MessageType = "connectivity"
)

// Message is the envelope of everything sent to clients.
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// StatusData is the payload of status messages and the /status endpoint.
type StatusData struct {
	status.Status
	Online bool `json:"online"`
}

// ConnectivityData is the payload of connectivity messages.
type ConnectivityData struct {
	Online bool `json:"online"`
}

// StatusSource supplies the sync status for welcome messages and /status.
type StatusSource interface {
	Status() status.Status
}

// ConnectivitySource supplies the online flag.
type ConnectivitySource interface {
	IsOnline() bool
}

// Config holds server configuration.
type Config struct {
	// Port to listen on; 0 picks a free port.
	Port int

	// Status and Connectivity are read for welcome messages and /status.
	// Either may be nil.
	Status       StatusSource
	Connectivity ConnectivitySource

	Logger *log.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{Port: 8080}
}

// Server serves the dashboard endpoints and pushes messages to WebSocket
// clients.
type Server struct {
	addr      string
	statusSrc StatusSource
	connSrc   ConnectivitySource
	logger    *log.Logger

	hub *hub

	mu       sync.Mutex
	listener net.Listener
	http     *http.Server
	stopping bool // no new connection handlers once set

	wg sync.WaitGroup
}

// NewServer creates a server. Nothing listens until Start.
func NewServer(config *Config) *Server {
	if config == nil {
		config = DefaultConfig()
	}
	logger := config.Logger
	if logger == nil {
		logger = log.New(os.Stderr, "[dashboard] ", log.LstdFlags)
	}

	return &Server{
		addr:      fmt.Sprintf(":%d", config.Port),
		statusSrc: config.Status,
		connSrc:   config.Connectivity,
		logger:    logger,
		hub:       newHub(),
	}
}

// Start listens and serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", s.handleWebSocket)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /status", s.handleStatus)

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.mu.Lock()
	s.listener = ln
	s.http = srv
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.logger.Printf("Listening on %s", ln.Addr())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Printf("Server error: %v", err)
		}
	}()
	return nil
}

// Stop disconnects all clients and shuts the server down. It is safe to call
// on a server that was never started.
func (s *Server) Stop() error {
	s.mu.Lock()
	s.stopping = true
	srv := s.http
	s.mu.Unlock()

	s.hub.close()

	var err error
	if srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := srv.Shutdown(ctx); shutdownErr != nil {
			err = fmt.Errorf("failed to shut down dashboard: %w", shutdownErr)
		}
	}

	// Hijacked WebSocket connections are not covered by Shutdown.
	s.wg.Wait()
	return err
}

// Broadcast queues msg for every connected client. It never blocks; clients
// whose queue is full are disconnected.
func (s *Server) Broadcast(msg Message) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	data, err := json.Marshal(msg)
	if err != nil {
		s.logger.Printf("Failed to encode %s message: %v", msg.Type, err)
		return
	}
	if dropped := s.hub.publish(data); dropped > 0 {
		s.logger.Printf("Disconnected %d slow client(s)", dropped)
	}
}

func (s *Server) currentStatus() StatusData {
	data := StatusData{Online: true}
	if s.statusSrc != nil {
		data.Status = s.statusSrc.Status()
	}
	if s.connSrc != nil {
		data.Online = s.connSrc.IsOnline()
	}
	return data
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.logger.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	c := newClient(conn)

	// Queued before registering so it always arrives first.
	payload, _ := json.Marshal(s.currentStatus())
	welcome, _ := json.Marshal(Message{
		Type:      MessageTypeStatus,
		Timestamp: time.Now(),
		Data:      payload,
	})
	c.send <- welcome

	// Registered under mu so Stop either waits for this handler or refuses it.
	s.mu.Lock()
	if s.stopping {
		s.mu.Unlock()
		_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()
	defer s.wg.Done()

	n, ok := s.hub.add(c)
	if !ok {
		_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
		return
	}
	s.logger.Printf("Client connected (total: %d)", n)
	s.writeLoop(c)
}

// writeLoop delivers queued messages until the client goes away or the hub
// closes its queue. Client messages are read and discarded.
func (s *Server) writeLoop(c *client) {
	// Done once the peer closes or the connection breaks. Shutdown goes
	// through the hub instead, so clients get a proper close frame.
	ctx := c.conn.CloseRead(context.Background())

	for {
		select {
		case <-ctx.Done():
			s.disconnect(c, websocket.StatusNormalClosure, "")
			return

		case data, ok := <-c.send:
			if !ok {
				_ = c.conn.Close(c.closeCode, c.closeReason)
				return
			}

			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.conn.Write(wctx, websocket.MessageText, data)
			cancel()
			if err != nil {
				s.disconnect(c, websocket.StatusInternalError, "write failed")
				return
			}
		}
	}
}

func (s *Server) disconnect(c *client, code websocket.StatusCode, reason string) {
	n, ok := s.hub.remove(c, code, reason)
	if !ok {
		// Already dropped by the hub; c.closeCode carries its reason.
		code, reason = c.closeCode, c.closeReason
	}
	_ = c.conn.Close(code, reason)
	s.logger.Printf("Client disconnected (total: %d)", n)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":  "ok",
		"clients": s.ClientCount(),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.currentStatus())
}

// Addr returns the listening address, or the configured one before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// ClientCount returns the number of connected WebSocket clients.
func (s *Server) ClientCount() int {
	return s.hub.count()
}

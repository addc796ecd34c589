// Package ws pushes defs state to connected diagnostics clients: a snapshot
// on connect and an update after every hot reload. Clients never mutate
// anything over this channel.
package ws

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// StateMsg is the message pushed to clients.
type StateMsg struct {
	Type       string                 `json:"type"` // "DEFS_STATE"
	At         string                 `json:"at"`
	Catalogs   map[string]CatalogInfo `json:"catalogs"`
	Validation ValidationInfo         `json:"validation"`
}

type CatalogInfo struct {
	Digest string `json:"digest"`
	Count  int    `json:"count"`
}

type ValidationInfo struct {
	OK         bool `json:"ok"`
	ErrorCount int  `json:"error_count"`
}

// StateFunc returns the current state snapshot; it must be safe to call from
// any goroutine.
type StateFunc func() StateMsg

type Server struct {
	log   *log.Logger
	state StateFunc

	upgrader websocket.Upgrader

	mu    sync.Mutex
	conns map[*websocket.Conn]chan []byte
}

func NewServer(logger *log.Logger, state StateFunc) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{
		log:   logger,
		state: state,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
		conns: map[*websocket.Conn]chan []byte{},
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		out := make(chan []byte, 16)
		s.mu.Lock()
		s.conns[conn] = out
		s.mu.Unlock()

		// Snapshot on connect.
		if b, err := json.Marshal(s.state()); err == nil {
			out <- b
		}

		done := make(chan struct{})

		// Writer goroutine.
		go func() {
			defer close(done)
			for b := range out {
				_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
					return
				}
			}
		}()

		// Reader loop: clients only send keepalives; drain until the
		// connection drops.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}

		// Unregister before closing so Broadcast never hits a closed channel.
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()

		close(out)
		<-done
	}
}

// Broadcast pushes the current state to every connected client. Slow clients
// are skipped rather than blocking the reload path.
func (s *Server) Broadcast() {
	b, err := json.Marshal(s.state())
	if err != nil {
		s.log.Printf("ws broadcast marshal: %v", err)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, out := range s.conns {
		select {
		case out <- b:
		default:
		}
	}
}

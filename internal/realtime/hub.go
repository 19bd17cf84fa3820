// Package realtime maintains the set of connected websocket clients
// and fans domain events out to all of them.  Delivery is best-effort:
// the hub never fails or blocks the business operation that triggered
// a broadcast, and a client that cannot be written to is silently
// dropped.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Admission and liveness limits.  The per-IP counts are cleared
// wholesale every IPResetInterval, so the per-IP cap is approximate
// throttling rather than exact rate limiting.
const (
	DefaultMaxClients     = 500
	DefaultMaxPerIP       = 10
	HeartbeatInterval     = 30 * time.Second
	IPResetInterval       = 10 * time.Minute
	writeTimeout          = 5 * time.Second
)

// ErrTooManyConnections is returned by Add when the global cap is hit.
var ErrTooManyConnections = errors.New("too many connections")

// ErrTooManyPerIP is returned by Add when one address exceeds its cap.
var ErrTooManyPerIP = errors.New("too many connections from this address")

// Conn is the subset of *websocket.Conn the hub writes to.  Tests
// substitute fakes; production passes gorilla connections directly.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Envelope is the wire format of every hub message.
type Envelope struct {
	Type      string `json:"type"`
	Data      any    `json:"data"`
	Timestamp string `json:"timestamp"`
}

// Hub is the concurrency-safe client registry.  All access to the
// client set goes through one mutex; request handlers, the heartbeat
// and broadcasts may run on any goroutine.
type Hub struct {
	maxClients int
	maxPerIP   int
	now        func() time.Time

	mu      sync.Mutex
	clients map[Conn]struct{}
	perIP   map[string]int
}

// NewHub builds a hub.  Non-positive caps fall back to the defaults.
func NewHub(maxClients, maxPerIP int) *Hub {
	if maxClients <= 0 {
		maxClients = DefaultMaxClients
	}
	if maxPerIP <= 0 {
		maxPerIP = DefaultMaxPerIP
	}
	return &Hub{
		maxClients: maxClients,
		maxPerIP:   maxPerIP,
		now:        time.Now,
		clients:    make(map[Conn]struct{}),
		perIP:      make(map[string]int),
	}
}

// Add admits a connection from the given remote address.  It returns
// ErrTooManyConnections or ErrTooManyPerIP when a cap is hit; on
// success the connection is in the live set and will receive every
// subsequent broadcast.
func (h *Hub) Add(conn Conn, ip string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.clients) >= h.maxClients {
		log.Printf("[WebSocket] Connection rejected: max connections (%d) reached", h.maxClients)
		return ErrTooManyConnections
	}
	if h.perIP[ip] >= h.maxPerIP {
		log.Printf("[WebSocket] Connection rejected: per-address cap reached for %s", ip)
		return ErrTooManyPerIP
	}
	h.perIP[ip]++
	h.clients[conn] = struct{}{}
	log.Printf("[WebSocket] Client connected. Total clients: %d", len(h.clients))
	return nil
}

// Remove drops a connection from the live set.  Idempotent.
func (h *Hub) Remove(conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[conn]; !ok {
		return
	}
	delete(h.clients, conn)
	log.Printf("[WebSocket] Client disconnected. Total clients: %d", len(h.clients))
}

// Len returns the number of live connections.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Broadcast wraps the payload in an Envelope and attempts delivery to
// every live connection.  A failed send removes that connection and is
// never surfaced to the caller; the triggering transaction has already
// committed by the time this runs.
func (h *Hub) Broadcast(eventType string, data any) {
	payload, err := json.Marshal(Envelope{
		Type:      eventType,
		Data:      data,
		Timestamp: h.now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		log.Printf("[WebSocket] marshal %s event failed: %v", eventType, err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	log.Printf("[WebSocket] Broadcasting %s to %d clients", eventType, len(h.clients))
	for conn := range h.clients {
		if !h.writeLocked(conn, payload) {
			delete(h.clients, conn)
		}
	}
}

// SendTo writes one envelope to a single connection, removing it on
// failure.  Used for the connected ack and ping/pong replies so all
// writes stay serialized under the hub mutex.
func (h *Hub) SendTo(conn Conn, eventType string, data any) error {
	payload, err := json.Marshal(Envelope{
		Type:      eventType,
		Data:      data,
		Timestamp: h.now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.writeLocked(conn, payload) {
		delete(h.clients, conn)
		return errors.New("send failed")
	}
	return nil
}

// writeLocked writes one text message with a deadline.  Caller holds
// the mutex.
func (h *Hub) writeLocked(conn Conn, payload []byte) bool {
	_ = conn.SetWriteDeadline(h.now().Add(writeTimeout))
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		_ = conn.Close()
		return false
	}
	return true
}

// Ping sends a liveness ping to all connections, dropping any that
// fail exactly like a broadcast failure.
func (h *Hub) Ping() {
	h.Broadcast("ping", struct{}{})
}

// resetIPCounts clears the per-address admission counters.
func (h *Hub) resetIPCounts() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.perIP = make(map[string]int)
}

// Run drives the heartbeat and the periodic per-IP counter reset until
// ctx is cancelled.  Start it as a goroutine from main.
func (h *Hub) Run(ctx context.Context) {
	heartbeat := time.NewTicker(HeartbeatInterval)
	ipReset := time.NewTicker(IPResetInterval)
	defer heartbeat.Stop()
	defer ipReset.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-heartbeat.C:
			h.Ping()
		case <-ipReset.C:
			h.resetIPCounts()
		}
	}
}

// Package ws implements the WebSocket adapter for real-time client communication.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/coder/websocket"

	"github.com/ensembleapp/ensemble/internal/middleware"
)

// Message is the envelope for all WebSocket messages.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// conn is one subscriber. tenantID is empty for platform operators, who
// receive the events of every tenant.
type conn struct {
	ws          *websocket.Conn
	tenantID    string
	principalID string
}

// subscribed reports whether the connection should receive an event scoped
// to tenantID. An empty event scope addresses every connection.
func (c *conn) subscribed(tenantID string) bool {
	return tenantID == "" || c.tenantID == "" || c.tenantID == tenantID
}

// Hub tracks active WebSocket subscribers keyed by tenant and fans events
// out only to the connections whose tenant matches.
type Hub struct {
	mu    sync.RWMutex
	conns map[*conn]struct{}
}

// NewHub creates a new WebSocket hub.
func NewHub() *Hub {
	return &Hub{
		conns: make(map[*conn]struct{}),
	}
}

// HandleWS upgrades the request to a WebSocket subscription. The credential
// must already be resolved by the auth middleware; an anonymous request is
// rejected before the upgrade so no cross-tenant event ever reaches an
// unauthenticated socket. The handler blocks until the client disconnects,
// keeping the request context alive for the read loop.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFromContext(r.Context())
	if id == nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"unauthorized"}` + "\n"))
		return
	}

	sock, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // CORS handled by middleware
	})
	if err != nil {
		slog.Error("websocket accept failed", "error", err)
		return
	}

	c := &conn{ws: sock, tenantID: id.TenantID, principalID: id.PrincipalID}
	h.add(c)
	slog.Info("websocket connected",
		"principal_id", id.PrincipalID, "tenant_id", id.TenantID, "remote", r.RemoteAddr)

	defer func() {
		h.remove(c)
		_ = sock.Close(websocket.StatusNormalClosure, "")
	}()

	// Consume reads until the peer goes away. Clients only listen, so every
	// inbound frame is control traffic or a disconnect.
	for {
		if _, _, err := sock.Read(r.Context()); err != nil {
			return
		}
	}
}

// Broadcast sends msg to every connection subscribed to tenantID.
func (h *Hub) Broadcast(ctx context.Context, tenantID string, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("websocket marshal failed", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.conns {
		if !c.subscribed(tenantID) {
			continue
		}
		if err := c.ws.Write(ctx, websocket.MessageText, data); err != nil {
			slog.Debug("websocket write failed", "error", err)
		}
	}
}

// ConnectionCount returns the number of active connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

func (h *Hub) add(c *conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[c] = struct{}{}
}

func (h *Hub) remove(c *conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.conns[c]; ok {
		delete(h.conns, c)
		slog.Info("websocket disconnected", "principal_id", c.principalID)
	}
}

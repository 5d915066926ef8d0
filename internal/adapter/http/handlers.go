package http

import (
	"net/http"

	"github.com/ensembleapp/ensemble/internal/adapter/ws"
	"github.com/ensembleapp/ensemble/internal/middleware"
	"github.com/ensembleapp/ensemble/internal/port/database"
	"github.com/ensembleapp/ensemble/internal/port/messagequeue"
	"github.com/ensembleapp/ensemble/internal/service"
)

// Handlers holds the HTTP handler dependencies.
type Handlers struct {
	Tenants       *service.TenantService
	Team          *service.TeamService
	Notifications *service.NotificationService
	Directory     *service.DirectoryService
	Store         database.Store
	Hub           *ws.Hub
	Queue         messagequeue.Queue
}

// Health handles GET /health
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	nats := "disabled"
	if h.Queue != nil {
		nats = "disconnected"
		if h.Queue.IsConnected() {
			nats = "connected"
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"nats":   nats,
	})
}

// Me handles GET /api/v1/me
// It returns the resolved identity of the caller.
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFromContext(r.Context())
	if id == nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	writeJSON(w, http.StatusOK, id)
}

package http

import (
	"net/http"

	"github.com/ensembleapp/ensemble/internal/domain/notification"
	"github.com/ensembleapp/ensemble/internal/middleware"
)

// PostAnnouncement handles POST /api/v1/announcements
// It fans an announcement out to every active member of the caller's tenant.
func (h *Handlers) PostAnnouncement(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFromContext(r.Context())

	req, ok := readJSON[struct {
		Title   string `json:"title"`
		Message string `json:"message"`
		Link    string `json:"link"`
	}](w, r)
	if !ok {
		return
	}
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	h.Notifications.NotifyAllMembers(r.Context(), id.TenantID, notification.Content{
		Title:    req.Title,
		Message:  req.Message,
		Category: notification.CategoryAnnouncement,
		Link:     req.Link,
	})
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "dispatched"})
}

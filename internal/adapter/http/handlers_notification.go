package http

import (
	"net/http"

	"github.com/ensembleapp/ensemble/internal/domain/identity"
	"github.com/ensembleapp/ensemble/internal/domain/notification"
	"github.com/ensembleapp/ensemble/internal/middleware"
)

// memberID resolves the caller's member record ID. The member guard has
// already verified the record exists and is active.
func (h *Handlers) memberID(w http.ResponseWriter, r *http.Request, id *identity.Identity) (string, bool) {
	m, err := h.Store.GetMemberByPrincipal(r.Context(), id.TenantID, id.PrincipalID)
	if err != nil {
		writeDomainError(w, err, "member record not found")
		return "", false
	}
	return m.ID, true
}

// ListNotifications handles GET /api/v1/notifications
func (h *Handlers) ListNotifications(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFromContext(r.Context())
	memberID, ok := h.memberID(w, r, id)
	if !ok {
		return
	}

	ns, err := h.Store.ListMemberNotifications(r.Context(), id.TenantID, memberID)
	if err != nil {
		writeInternalError(w, err)
		return
	}
	if ns == nil {
		ns = []notification.MemberNotification{}
	}
	writeJSON(w, http.StatusOK, ns)
}

// UnreadNotificationCount handles GET /api/v1/notifications/unread-count
func (h *Handlers) UnreadNotificationCount(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFromContext(r.Context())
	memberID, ok := h.memberID(w, r, id)
	if !ok {
		return
	}

	n, err := h.Store.CountUnreadMemberNotifications(r.Context(), id.TenantID, memberID)
	if err != nil {
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, notification.UnreadCount{Unread: n})
}

// MarkNotificationRead handles POST /api/v1/notifications/{id}/read
func (h *Handlers) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFromContext(r.Context())
	memberID, ok := h.memberID(w, r, id)
	if !ok {
		return
	}

	if err := h.Store.MarkMemberNotificationRead(r.Context(), id.TenantID, memberID, urlParam(r, "id")); err != nil {
		writeDomainError(w, err, "notification not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "read"})
}

// MarkAllNotificationsRead handles POST /api/v1/notifications/read-all
func (h *Handlers) MarkAllNotificationsRead(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFromContext(r.Context())
	memberID, ok := h.memberID(w, r, id)
	if !ok {
		return
	}

	if err := h.Store.MarkAllMemberNotificationsRead(r.Context(), id.TenantID, memberID); err != nil {
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "read"})
}

// The admin pool handlers run behind the tenant-admin guard, so the identity
// always carries a tenant here.

// ListAdminNotifications handles GET /api/v1/admin/notifications
func (h *Handlers) ListAdminNotifications(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFromContext(r.Context())

	ns, err := h.Store.ListAdminNotifications(r.Context(), id.TenantID, id.PrincipalID)
	if err != nil {
		writeInternalError(w, err)
		return
	}
	if ns == nil {
		ns = []notification.AdminNotification{}
	}
	writeJSON(w, http.StatusOK, ns)
}

// UnreadAdminNotificationCount handles GET /api/v1/admin/notifications/unread-count
func (h *Handlers) UnreadAdminNotificationCount(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFromContext(r.Context())

	n, err := h.Store.CountUnreadAdminNotifications(r.Context(), id.TenantID, id.PrincipalID)
	if err != nil {
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, notification.UnreadCount{Unread: n})
}

// MarkAdminNotificationRead handles POST /api/v1/admin/notifications/{id}/read
func (h *Handlers) MarkAdminNotificationRead(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFromContext(r.Context())

	if err := h.Store.MarkAdminNotificationRead(r.Context(), id.TenantID, id.PrincipalID, urlParam(r, "id")); err != nil {
		writeDomainError(w, err, "notification not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "read"})
}

// MarkAllAdminNotificationsRead handles POST /api/v1/admin/notifications/read-all
func (h *Handlers) MarkAllAdminNotificationsRead(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFromContext(r.Context())

	if err := h.Store.MarkAllAdminNotificationsRead(r.Context(), id.TenantID, id.PrincipalID); err != nil {
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "read"})
}

package http

import (
	"net/http"

	"github.com/ensembleapp/ensemble/internal/domain/identity"
	"github.com/ensembleapp/ensemble/internal/middleware"
)

// ListTeam handles GET /api/v1/team
func (h *Handlers) ListTeam(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFromContext(r.Context())
	team, err := h.Team.List(r.Context(), id.TenantID)
	if err != nil {
		writeInternalError(w, err)
		return
	}
	if team == nil {
		team = []identity.Membership{}
	}
	writeJSON(w, http.StatusOK, team)
}

// AddTeamMember handles POST /api/v1/team
func (h *Handlers) AddTeamMember(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFromContext(r.Context())
	req, ok := readJSON[identity.CreateMembershipRequest](w, r)
	if !ok {
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	m, err := h.Team.Add(r.Context(), id.TenantID, id.PrincipalID, req)
	if err != nil {
		writeDomainError(w, err, "membership creation failed")
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

// SetTeamPermissions handles PUT /api/v1/team/{id}/permissions
func (h *Handlers) SetTeamPermissions(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFromContext(r.Context())
	membershipID := urlParam(r, "id")

	req, ok := readJSON[struct {
		Permissions identity.Permissions `json:"permissions"`
	}](w, r)
	if !ok {
		return
	}

	m, err := h.Team.SetPermissions(r.Context(), id.TenantID, membershipID, req.Permissions)
	if err != nil {
		writeDomainError(w, err, "membership not found")
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// RemoveTeamMember handles DELETE /api/v1/team/{id}
func (h *Handlers) RemoveTeamMember(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFromContext(r.Context())
	membershipID := urlParam(r, "id")

	if err := h.Team.Remove(r.Context(), id.TenantID, id.PrincipalID, membershipID); err != nil {
		writeDomainError(w, err, "membership not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

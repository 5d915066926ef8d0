package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/ensembleapp/ensemble/internal/domain"
	"github.com/ensembleapp/ensemble/internal/domain/member"
)

// MemberReader loads the member record linked to a principal. Implemented by
// the database store.
type MemberReader interface {
	GetMemberByPrincipal(ctx context.Context, tenantID, principalID string) (*member.Member, error)
}

// Guard bundles the role and permission middlewares. It carries the store
// for the member blocked-state check on session continuation.
type Guard struct {
	store MemberReader
}

func NewGuard(store MemberReader) *Guard {
	return &Guard{store: store}
}

// RequirePlatformAdmin restricts access to platform operators.
func (g *Guard) RequirePlatformAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := IdentityFromContext(r.Context())
		if id == nil {
			writeJSONError(w, http.StatusUnauthorized, map[string]any{"error": "unauthorized"})
			return
		}
		if !id.IsPlatformAdmin() {
			writeForbidden(w, domain.Forbidden("platform operator access required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin restricts access to tenant staff. Platform operators pass.
func (g *Guard) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := IdentityFromContext(r.Context())
		if id == nil {
			writeJSONError(w, http.StatusUnauthorized, map[string]any{"error": "unauthorized"})
			return
		}
		if !id.IsPlatformAdmin() && !id.IsTenantAdmin() {
			writeForbidden(w, domain.Forbidden("admin access required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireTenantAdmin restricts access to tenant staff. Platform operators do
// not pass: they hold no tenant, so tenant-scoped resources like the admin
// notification pool have nothing to show them.
func (g *Guard) RequireTenantAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := IdentityFromContext(r.Context())
		if id == nil {
			writeJSONError(w, http.StatusUnauthorized, map[string]any{"error": "unauthorized"})
			return
		}
		if !id.IsTenantAdmin() {
			writeForbidden(w, domain.Forbidden("tenant admin access required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequirePrincipalAdmin restricts access to the tenant's lead administrator.
// The role alone is not enough for tenant-wide destructive operations.
func (g *Guard) RequirePrincipalAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := IdentityFromContext(r.Context())
		if id == nil {
			writeJSONError(w, http.StatusUnauthorized, map[string]any{"error": "unauthorized"})
			return
		}
		if !id.IsTenantAdmin() || !id.PrincipalAdmin {
			writeForbidden(w, domain.Forbidden("principal administrator access required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireMember restricts access to signed-in tenant members and re-checks
// the member record on every request: a blocked record denies session
// continuation even though the credential is still valid.
func (g *Guard) RequireMember(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := IdentityFromContext(r.Context())
		if id == nil {
			writeJSONError(w, http.StatusUnauthorized, map[string]any{"error": "unauthorized"})
			return
		}
		if !id.IsMember() {
			writeForbidden(w, domain.Forbidden("member access required"))
			return
		}

		m, err := g.store.GetMemberByPrincipal(r.Context(), id.TenantID, id.PrincipalID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				writeForbidden(w, domain.Forbidden("no member record"))
				return
			}
			writeJSONError(w, http.StatusInternalServerError, map[string]any{"error": "internal error"})
			return
		}
		switch err := m.SessionError(); {
		case err == nil:
		case errors.Is(err, domain.ErrAccountBlocked):
			writeJSONError(w, http.StatusForbidden, map[string]any{"error": "account_blocked"})
			return
		default:
			var fe *domain.ForbiddenError
			if !errors.As(err, &fe) {
				fe = domain.Forbidden("member access denied")
			}
			writeForbidden(w, fe)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireModule restricts access to identities whose permission set covers
// the named feature module. The denial body names the missing permission and
// echoes the caller's own set.
func (g *Guard) RequireModule(module string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := IdentityFromContext(r.Context())
			if id == nil {
				writeJSONError(w, http.StatusUnauthorized, map[string]any{"error": "unauthorized"})
				return
			}
			if !id.HasModule(module) {
				writeForbidden(w, &domain.ForbiddenError{
					RequiredPermission: module,
					YourPermissions:    id.Permissions.Describe(),
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeForbidden(w http.ResponseWriter, fe *domain.ForbiddenError) {
	body := map[string]any{"error": "forbidden"}
	if fe.Reason != "" {
		body["reason"] = fe.Reason
	}
	if fe.RequiredPermission != "" {
		body["required_permission"] = fe.RequiredPermission
		body["your_permissions"] = fe.YourPermissions
	}
	writeJSONError(w, http.StatusForbidden, body)
}

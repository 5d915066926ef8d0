package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ensembleapp/ensemble/internal/domain"
	"github.com/ensembleapp/ensemble/internal/domain/identity"
)

type identityCtxKey struct{}

// IdentityResolver resolves an opaque credential into an identity.
// Implemented by service.IdentityService.
type IdentityResolver interface {
	Resolve(ctx context.Context, token string) (*identity.Identity, error)
}

// Auth returns middleware that resolves the bearer credential into an
// identity. A request without a credential passes through unresolved; the
// RBAC middlewares reject it where a role is required, so public endpoints
// need no exemption list here.
//
// WebSocket clients cannot set headers, so /ws accepts the credential as a
// ?token= query parameter.
func Auth(ids IdentityResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" && r.URL.Path == "/ws" {
				token = r.URL.Query().Get("token")
			}
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			id, err := ids.Resolve(r.Context(), token)
			if err != nil {
				writeResolveError(w, r, err)
				return
			}

			ctx := context.WithValue(r.Context(), identityCtxKey{}, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken extracts the token from "Authorization: Bearer <token>".
func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if h == "" {
		return ""
	}
	token := strings.TrimPrefix(h, "Bearer ")
	if token == h {
		return ""
	}
	return token
}

// writeResolveError maps resolution failures onto HTTP statuses. Suspension
// is a 403 with its own error code and the operator's reason so clients can
// render a suspension notice instead of a login redirect.
func writeResolveError(w http.ResponseWriter, r *http.Request, err error) {
	var se *domain.SuspendedError
	switch {
	case errors.As(err, &se):
		writeJSONError(w, http.StatusForbidden, map[string]any{
			"error":     "tenant_suspended",
			"tenant_id": se.TenantID,
			"reason":    se.Reason,
		})
	case errors.Is(err, domain.ErrUnauthorized):
		writeJSONError(w, http.StatusUnauthorized, map[string]any{
			"error": "unauthorized",
		})
	default:
		slog.ErrorContext(r.Context(), "identity resolution failed", "error", err)
		writeJSONError(w, http.StatusInternalServerError, map[string]any{
			"error": "internal error",
		})
	}
}

func writeJSONError(w http.ResponseWriter, status int, body map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// IdentityFromContext returns the resolved identity, or nil for an
// unauthenticated request.
func IdentityFromContext(ctx context.Context) *identity.Identity {
	id, _ := ctx.Value(identityCtxKey{}).(*identity.Identity)
	return id
}

// WithIdentity injects an identity into the context. Exported for handler
// tests that bypass the Auth middleware.
func WithIdentity(ctx context.Context, id *identity.Identity) context.Context {
	return context.WithValue(ctx, identityCtxKey{}, id)
}

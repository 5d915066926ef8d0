package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ensembleapp/ensemble/internal/domain"
	"github.com/ensembleapp/ensemble/internal/domain/identity"
	"github.com/ensembleapp/ensemble/internal/port/database"
	"github.com/ensembleapp/ensemble/internal/port/verifier"
)

// IdentityService resolves opaque bearer credentials into tenant-scoped
// identities. Resolution is read-only; the suspension check runs to
// completion before any handler sees the identity.
type IdentityService struct {
	verifier       verifier.Verifier
	store          database.Store
	directory      *DirectoryService
	platformAdmins map[string]bool
}

// NewIdentityService creates an IdentityService. platformAdmins is the email
// allow-list granting platform operator access to principals that hold no
// tenant membership.
func NewIdentityService(v verifier.Verifier, store database.Store, dir *DirectoryService, platformAdmins []string) *IdentityService {
	allow := make(map[string]bool, len(platformAdmins))
	for _, email := range platformAdmins {
		allow[strings.ToLower(email)] = true
	}
	return &IdentityService{
		verifier:       v,
		store:          store,
		directory:      dir,
		platformAdmins: allow,
	}
}

// Resolve verifies the credential and loads the caller's membership.
//
// A rejected credential yields domain.ErrUnauthorized; a provider outage
// passes through unchanged so callers do not log users out over downtime.
// A principal without a membership falls back to the platform-admin
// allow-list; otherwise the identity carries no role and no tenant. For
// tenant-bound roles the owning tenant is checked and a suspended tenant
// fails with domain.SuspendedError carrying the operator's reason.
func (s *IdentityService) Resolve(ctx context.Context, token string) (*identity.Identity, error) {
	p, err := s.verifier.Verify(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("verify credential: %w", err)
	}

	m, err := s.store.GetMembershipByPrincipal(ctx, p.ID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("load membership: %w", err)
		}
		// No membership. Platform operators are recognized by email.
		if s.platformAdmins[strings.ToLower(p.Email)] {
			return &identity.Identity{
				PrincipalID: p.ID,
				Email:       p.Email,
				Role:        identity.RolePlatformAdmin,
				Permissions: identity.AllModules(),
			}, nil
		}
		return &identity.Identity{PrincipalID: p.ID, Email: p.Email}, nil
	}

	id := &identity.Identity{
		PrincipalID:    p.ID,
		Email:          p.Email,
		TenantID:       m.TenantID,
		Role:           m.Role,
		Permissions:    m.Permissions,
		PrincipalAdmin: m.PrincipalAdmin,
		DisplayName:    m.DisplayName,
	}

	if m.Role != identity.RolePlatformAdmin {
		if err := s.directory.CheckActive(ctx, m.TenantID); err != nil {
			return nil, err
		}
	}

	return id, nil
}

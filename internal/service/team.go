package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ensembleapp/ensemble/internal/domain"
	"github.com/ensembleapp/ensemble/internal/domain/identity"
	"github.com/ensembleapp/ensemble/internal/domain/notification"
	"github.com/ensembleapp/ensemble/internal/domain/tenant"
	"github.com/ensembleapp/ensemble/internal/port/database"
)

// TeamService manages a tenant's staff roster: adding memberships, adjusting
// permission sets, and revoking access. Callers must already hold the
// principal-admin bit; these methods enforce the remaining invariants (the
// principal admin itself can never be demoted or removed).
type TeamService struct {
	store    database.Store
	notifier *NotificationService
}

func NewTeamService(store database.Store, notifier *NotificationService) *TeamService {
	return &TeamService{store: store, notifier: notifier}
}

// Add provisions a principal into the tenant. The other staff are notified;
// the acting admin is excluded from the announcement.
func (s *TeamService) Add(ctx context.Context, tenantID, actorPrincipalID string, req identity.CreateMembershipRequest) (*identity.Membership, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	m := &identity.Membership{
		ID:          generateID(),
		TenantID:    tenantID,
		PrincipalID: req.PrincipalID,
		Email:       req.Email,
		Role:        req.Role,
		Permissions: req.Permissions,
		DisplayName: req.DisplayName,
		AssignedAt:  now,
		UpdatedAt:   now,
	}
	if err := s.store.CreateMembership(ctx, m); err != nil {
		return nil, fmt.Errorf("create membership: %w", err)
	}
	slog.Info("membership created",
		"tenant_id", tenantID, "membership_id", m.ID, "role", m.Role)

	s.notifier.NotifyAllAdmins(ctx, tenantID, actorPrincipalID, notification.Content{
		Title:    "Team member added",
		Message:  fmt.Sprintf("%s joined the team as %s", m.DisplayName, m.Role),
		Category: notification.CategoryRole,
		Link:     "/team",
	}, tenant.ModuleRoles)
	return m, nil
}

// List returns every membership of the tenant.
func (s *TeamService) List(ctx context.Context, tenantID string) ([]identity.Membership, error) {
	return s.store.ListMemberships(ctx, tenantID)
}

// SetPermissions replaces the module permission set of a staff membership.
// The principal admin always holds all modules and cannot be restricted.
func (s *TeamService) SetPermissions(ctx context.Context, tenantID, id string, perms identity.Permissions) (*identity.Membership, error) {
	m, err := s.tenantMembership(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if m.PrincipalAdmin {
		return nil, domain.Forbidden("the principal admin's permissions cannot be changed")
	}
	if m.Role != identity.RoleTenantAdmin {
		return nil, domain.Forbidden("only staff memberships carry module permissions")
	}

	if err := s.store.UpdateMembershipPermissions(ctx, id, perms); err != nil {
		return nil, fmt.Errorf("update permissions: %w", err)
	}
	m.Permissions = perms
	slog.Info("membership permissions updated",
		"tenant_id", tenantID, "membership_id", id, "permissions", perms.Describe())
	return m, nil
}

// Remove revokes a membership. The principal admin cannot be removed, and the
// remaining staff are notified.
func (s *TeamService) Remove(ctx context.Context, tenantID, actorPrincipalID, id string) error {
	m, err := s.tenantMembership(ctx, tenantID, id)
	if err != nil {
		return err
	}
	if m.PrincipalAdmin {
		return domain.Forbidden("the principal admin cannot be removed")
	}

	if err := s.store.DeleteMembership(ctx, id); err != nil {
		return fmt.Errorf("delete membership: %w", err)
	}
	slog.Info("membership removed", "tenant_id", tenantID, "membership_id", id)

	s.notifier.NotifyAllAdmins(ctx, tenantID, actorPrincipalID, notification.Content{
		Title:    "Team member removed",
		Message:  fmt.Sprintf("%s no longer has access", m.DisplayName),
		Category: notification.CategoryRole,
		Link:     "/team",
	}, tenant.ModuleRoles)
	return nil
}

// tenantMembership loads a membership and verifies it belongs to the tenant.
// A membership of another tenant is reported as not found rather than
// forbidden, so the endpoint leaks nothing about other tenants' IDs.
func (s *TeamService) tenantMembership(ctx context.Context, tenantID, id string) (*identity.Membership, error) {
	m, err := s.store.GetMembership(ctx, id)
	if err != nil {
		return nil, err
	}
	if m.TenantID != tenantID {
		return nil, domain.ErrNotFound
	}
	return m, nil
}

package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ensembleapp/ensemble/internal/adapter/ws"
	"github.com/ensembleapp/ensemble/internal/domain/tenant"
	"github.com/ensembleapp/ensemble/internal/port/broadcast"
	"github.com/ensembleapp/ensemble/internal/port/database"
)

// TenantService implements the platform operator surface: provisioning
// tenants and toggling suspension. All methods assume the caller was already
// authorized as a platform admin.
type TenantService struct {
	store     database.Store
	directory *DirectoryService
	hub       broadcast.Broadcaster
}

func NewTenantService(store database.Store, directory *DirectoryService, hub broadcast.Broadcaster) *TenantService {
	return &TenantService{store: store, directory: directory, hub: hub}
}

// Create provisions a new tenant with the requested module set.
func (s *TenantService) Create(ctx context.Context, req tenant.CreateRequest) (*tenant.Tenant, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	t, err := s.store.CreateTenant(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("create tenant: %w", err)
	}
	slog.Info("tenant created", "tenant_id", t.ID, "slug", t.Slug)
	return t, nil
}

func (s *TenantService) Get(ctx context.Context, id string) (*tenant.Tenant, error) {
	return s.directory.Get(ctx, id)
}

func (s *TenantService) List(ctx context.Context) ([]tenant.Tenant, error) {
	return s.store.ListTenants(ctx)
}

// Suspend marks the tenant suspended. New requests by its tenant-scoped
// identities are rejected from the next directory read onward; the cached
// entry is dropped so the change takes effect without waiting out the TTL.
func (s *TenantService) Suspend(ctx context.Context, id, reason string) error {
	return s.setSuspended(ctx, id, true, reason)
}

// Unsuspend lifts a suspension.
func (s *TenantService) Unsuspend(ctx context.Context, id string) error {
	return s.setSuspended(ctx, id, false, "")
}

func (s *TenantService) setSuspended(ctx context.Context, id string, suspended bool, reason string) error {
	if _, err := s.store.GetTenant(ctx, id); err != nil {
		return err
	}
	if err := s.store.SetTenantSuspended(ctx, id, suspended, reason); err != nil {
		return fmt.Errorf("set tenant suspended: %w", err)
	}
	s.directory.Invalidate(ctx, id)

	slog.Info("tenant suspension changed", "tenant_id", id, "suspended", suspended)
	if s.hub != nil {
		s.hub.BroadcastEvent(ctx, id, ws.EventTenantSuspended, ws.TenantSuspendedEvent{
			TenantID:  id,
			Suspended: suspended,
			Reason:    reason,
		})
	}
	return nil
}

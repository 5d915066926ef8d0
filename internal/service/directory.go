// Package service contains application services.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/ensembleapp/ensemble/internal/domain"
	"github.com/ensembleapp/ensemble/internal/domain/tenant"
	"github.com/ensembleapp/ensemble/internal/port/cache"
	"github.com/ensembleapp/ensemble/internal/port/database"
)

// DirectoryService provides read-only tenant lookups for the auth path.
// Every authenticated request re-checks tenant suspension through here, so
// lookups are served from a short-TTL in-process cache rather than shared
// mutable state; an operator toggling suspension is visible within one TTL.
type DirectoryService struct {
	store database.Store
	cache cache.Cache
	ttl   time.Duration
}

// NewDirectoryService creates a DirectoryService. cache may be nil, in which
// case every lookup hits the store.
func NewDirectoryService(store database.Store, c cache.Cache, ttl time.Duration) *DirectoryService {
	return &DirectoryService{store: store, cache: c, ttl: ttl}
}

func directoryKey(tenantID string) string {
	return "tenant:" + tenantID
}

// Get returns the tenant by ID, via the cache when possible.
func (s *DirectoryService) Get(ctx context.Context, tenantID string) (*tenant.Tenant, error) {
	if s.cache != nil {
		if data, ok, err := s.cache.Get(ctx, directoryKey(tenantID)); err == nil && ok {
			var t tenant.Tenant
			if err := json.Unmarshal(data, &t); err == nil {
				return &t, nil
			}
		}
	}

	t, err := s.store.GetTenant(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("directory get tenant: %w", err)
	}

	if s.cache != nil {
		if data, err := json.Marshal(t); err == nil {
			if err := s.cache.Set(ctx, directoryKey(tenantID), data, s.ttl); err != nil {
				slog.Debug("directory cache set failed", "tenant_id", tenantID, "error", err)
			}
		}
	}
	return t, nil
}

// CheckActive fails with a SuspendedError when the tenant is suspended.
// The auth path calls this before any handler runs.
func (s *DirectoryService) CheckActive(ctx context.Context, tenantID string) error {
	t, err := s.Get(ctx, tenantID)
	if err != nil {
		return err
	}
	if t.Suspended {
		return &domain.SuspendedError{TenantID: t.ID, Reason: t.SuspensionReason}
	}
	return nil
}

// Invalidate drops the cached entry for a tenant. Suspension toggles call
// this so the change is visible before the TTL elapses.
func (s *DirectoryService) Invalidate(ctx context.Context, tenantID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, directoryKey(tenantID)); err != nil {
		slog.Debug("directory cache delete failed", "tenant_id", tenantID, "error", err)
	}
}

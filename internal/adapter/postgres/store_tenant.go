package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/ensembleapp/ensemble/internal/domain"
	"github.com/ensembleapp/ensemble/internal/domain/tenant"
)

func (s *Store) CreateTenant(ctx context.Context, req tenant.CreateRequest) (*tenant.Tenant, error) {
	var t tenant.Tenant
	err := s.pool.QueryRow(ctx,
		`INSERT INTO tenants (name, slug, modules) VALUES ($1, $2, $3)
		 RETURNING id, name, slug, suspended, suspension_reason, modules, created_at, updated_at`,
		req.Name, req.Slug, req.Modules,
	).Scan(&t.ID, &t.Name, &t.Slug, &t.Suspended, &t.SuspensionReason, &t.Modules, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("create tenant: %w", err)
	}
	return &t, nil
}

func (s *Store) GetTenant(ctx context.Context, id string) (*tenant.Tenant, error) {
	var t tenant.Tenant
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, slug, suspended, suspension_reason, modules, created_at, updated_at
		 FROM tenants WHERE id = $1`, id,
	).Scan(&t.ID, &t.Name, &t.Slug, &t.Suspended, &t.SuspensionReason, &t.Modules, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("get tenant %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get tenant %s: %w", id, err)
	}
	return &t, nil
}

func (s *Store) ListTenants(ctx context.Context) ([]tenant.Tenant, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, slug, suspended, suspension_reason, modules, created_at, updated_at
		 FROM tenants ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}
	defer rows.Close()

	var tenants []tenant.Tenant
	for rows.Next() {
		var t tenant.Tenant
		if err := rows.Scan(&t.ID, &t.Name, &t.Slug, &t.Suspended, &t.SuspensionReason, &t.Modules, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan tenant: %w", err)
		}
		tenants = append(tenants, t)
	}
	return tenants, rows.Err()
}

func (s *Store) SetTenantSuspended(ctx context.Context, id string, suspended bool, reason string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE tenants SET suspended = $2, suspension_reason = $3, updated_at = now()
		 WHERE id = $1`,
		id, suspended, reason)
	if err != nil {
		return fmt.Errorf("set tenant suspended %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("set tenant suspended %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

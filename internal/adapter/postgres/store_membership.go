package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/ensembleapp/ensemble/internal/domain"
	"github.com/ensembleapp/ensemble/internal/domain/identity"
)

const membershipColumns = `id, COALESCE(tenant_id::text, ''), principal_id, email, role, permissions,
	 principal_admin, display_name, COALESCE(avatar_url, ''), assigned_at, updated_at`

func (s *Store) CreateMembership(ctx context.Context, m *identity.Membership) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO memberships (id, tenant_id, principal_id, email, role, permissions, principal_admin, display_name, avatar_url)
		 VALUES ($1, NULLIF($2, '')::uuid, $3, $4, $5, $6, $7, $8, NULLIF($9, ''))
		 RETURNING assigned_at, updated_at`,
		m.ID, m.TenantID, m.PrincipalID, m.Email, string(m.Role), permsParam(m.Permissions),
		m.PrincipalAdmin, m.DisplayName, m.AvatarURL,
	).Scan(&m.AssignedAt, &m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create membership: %w", err)
	}
	return nil
}

func (s *Store) GetMembership(ctx context.Context, id string) (*identity.Membership, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+membershipColumns+` FROM memberships WHERE id = $1`, id)

	m, err := scanMembership(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("get membership %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get membership %s: %w", id, err)
	}
	return &m, nil
}

// GetMembershipByPrincipal returns the most recently assigned membership for
// the principal. A principal moved between tenants keeps old rows around; the
// newest assignment decides where they sign in.
func (s *Store) GetMembershipByPrincipal(ctx context.Context, principalID string) (*identity.Membership, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+membershipColumns+` FROM memberships
		 WHERE principal_id = $1 ORDER BY assigned_at DESC LIMIT 1`, principalID)

	m, err := scanMembership(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("get membership by principal: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get membership by principal: %w", err)
	}
	return &m, nil
}

func (s *Store) ListMemberships(ctx context.Context, tenantID string) ([]identity.Membership, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+membershipColumns+` FROM memberships
		 WHERE tenant_id = $1 ORDER BY assigned_at ASC`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list memberships: %w", err)
	}
	defer rows.Close()
	return collectMemberships(rows)
}

func (s *Store) ListAdminMemberships(ctx context.Context, tenantID string) ([]identity.Membership, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+membershipColumns+` FROM memberships
		 WHERE tenant_id = $1 AND role = $2 ORDER BY assigned_at ASC`,
		tenantID, string(identity.RoleTenantAdmin))
	if err != nil {
		return nil, fmt.Errorf("list admin memberships: %w", err)
	}
	defer rows.Close()
	return collectMemberships(rows)
}

func (s *Store) UpdateMembershipPermissions(ctx context.Context, id string, perms identity.Permissions) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE memberships SET permissions = $2, updated_at = now() WHERE id = $1`,
		id, permsParam(perms))
	if err != nil {
		return fmt.Errorf("update membership permissions %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update membership permissions %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (s *Store) DeleteMembership(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM memberships WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete membership %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete membership %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func scanMembership(row scannable) (identity.Membership, error) {
	var m identity.Membership
	var role string
	var modules []string
	err := row.Scan(&m.ID, &m.TenantID, &m.PrincipalID, &m.Email, &role, &modules,
		&m.PrincipalAdmin, &m.DisplayName, &m.AvatarURL, &m.AssignedAt, &m.UpdatedAt)
	if err != nil {
		return m, err
	}
	m.Role = identity.Role(role)
	m.Permissions = permsFromColumn(modules)
	return m, nil
}

func collectMemberships(rows pgx.Rows) ([]identity.Membership, error) {
	var out []identity.Membership
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, fmt.Errorf("scan membership: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

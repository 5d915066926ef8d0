package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/ensembleapp/ensemble/internal/domain"
	"github.com/ensembleapp/ensemble/internal/domain/member"
)

const memberColumns = `id, tenant_id, COALESCE(principal_id, ''), display_name, COALESCE(email, ''), status, created_at, updated_at`

func (s *Store) GetMember(ctx context.Context, tenantID, id string) (*member.Member, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+memberColumns+` FROM members WHERE id = $1 AND tenant_id = $2`, id, tenantID)

	m, err := scanMember(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("get member %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get member %s: %w", id, err)
	}
	return &m, nil
}

func (s *Store) GetMemberByPrincipal(ctx context.Context, tenantID, principalID string) (*member.Member, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+memberColumns+` FROM members
		 WHERE tenant_id = $1 AND principal_id = $2`, tenantID, principalID)

	m, err := scanMember(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("get member by principal: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get member by principal: %w", err)
	}
	return &m, nil
}

func (s *Store) ListActiveMembers(ctx context.Context, tenantID string) ([]member.Member, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+memberColumns+` FROM members
		 WHERE tenant_id = $1 AND status = $2 ORDER BY display_name ASC`,
		tenantID, string(member.StatusActive))
	if err != nil {
		return nil, fmt.Errorf("list active members: %w", err)
	}
	defer rows.Close()

	var out []member.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func scanMember(row scannable) (member.Member, error) {
	var m member.Member
	var status string
	err := row.Scan(&m.ID, &m.TenantID, &m.PrincipalID, &m.DisplayName, &m.Email, &status, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return m, err
	}
	m.Status = member.Status(status)
	return m, nil
}

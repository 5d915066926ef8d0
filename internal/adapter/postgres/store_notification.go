package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/ensembleapp/ensemble/internal/domain"
	"github.com/ensembleapp/ensemble/internal/domain/notification"
)

// Fan-out inserts are batched: one round trip regardless of audience size.

func (s *Store) CreateMemberNotifications(ctx context.Context, ns []notification.MemberNotification) error {
	if len(ns) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, n := range ns {
		batch.Queue(
			`INSERT INTO member_notifications (id, tenant_id, member_id, title, message, category, link, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8)`,
			n.ID, n.TenantID, n.MemberID, n.Content.Title, n.Content.Message,
			string(n.Content.Category), n.Content.Link, n.CreatedAt)
	}
	if err := s.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("create member notifications: %w", err)
	}
	return nil
}

func (s *Store) CreateAdminNotifications(ctx context.Context, ns []notification.AdminNotification) error {
	if len(ns) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, n := range ns {
		batch.Queue(
			`INSERT INTO admin_notifications (id, tenant_id, principal_id, title, message, category, link, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8)`,
			n.ID, n.TenantID, n.PrincipalID, n.Content.Title, n.Content.Message,
			string(n.Content.Category), n.Content.Link, n.CreatedAt)
	}
	if err := s.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("create admin notifications: %w", err)
	}
	return nil
}

func (s *Store) ListMemberNotifications(ctx context.Context, tenantID, memberID string) ([]notification.MemberNotification, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, tenant_id, member_id, title, message, category, COALESCE(link, ''), read, created_at
		 FROM member_notifications
		 WHERE tenant_id = $1 AND member_id = $2 ORDER BY created_at DESC`,
		tenantID, memberID)
	if err != nil {
		return nil, fmt.Errorf("list member notifications: %w", err)
	}
	defer rows.Close()

	var out []notification.MemberNotification
	for rows.Next() {
		var n notification.MemberNotification
		var category string
		if err := rows.Scan(&n.ID, &n.TenantID, &n.MemberID, &n.Content.Title, &n.Content.Message,
			&category, &n.Content.Link, &n.Read, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan member notification: %w", err)
		}
		n.Content.Category = notification.Category(category)
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *Store) ListAdminNotifications(ctx context.Context, tenantID, principalID string) ([]notification.AdminNotification, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, tenant_id, principal_id, title, message, category, COALESCE(link, ''), read, created_at
		 FROM admin_notifications
		 WHERE tenant_id = $1 AND principal_id = $2 ORDER BY created_at DESC`,
		tenantID, principalID)
	if err != nil {
		return nil, fmt.Errorf("list admin notifications: %w", err)
	}
	defer rows.Close()

	var out []notification.AdminNotification
	for rows.Next() {
		var n notification.AdminNotification
		var category string
		if err := rows.Scan(&n.ID, &n.TenantID, &n.PrincipalID, &n.Content.Title, &n.Content.Message,
			&category, &n.Content.Link, &n.Read, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan admin notification: %w", err)
		}
		n.Content.Category = notification.Category(category)
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *Store) CountUnreadMemberNotifications(ctx context.Context, tenantID, memberID string) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM member_notifications
		 WHERE tenant_id = $1 AND member_id = $2 AND read = false`,
		tenantID, memberID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count unread member notifications: %w", err)
	}
	return count, nil
}

func (s *Store) CountUnreadAdminNotifications(ctx context.Context, tenantID, principalID string) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM admin_notifications
		 WHERE tenant_id = $1 AND principal_id = $2 AND read = false`,
		tenantID, principalID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count unread admin notifications: %w", err)
	}
	return count, nil
}

func (s *Store) MarkMemberNotificationRead(ctx context.Context, tenantID, memberID, id string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE member_notifications SET read = true
		 WHERE id = $1 AND tenant_id = $2 AND member_id = $3`,
		id, tenantID, memberID)
	if err != nil {
		return fmt.Errorf("mark member notification read %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("mark member notification read %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (s *Store) MarkAllMemberNotificationsRead(ctx context.Context, tenantID, memberID string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE member_notifications SET read = true
		 WHERE tenant_id = $1 AND member_id = $2 AND read = false`,
		tenantID, memberID)
	if err != nil {
		return fmt.Errorf("mark all member notifications read: %w", err)
	}
	return nil
}

func (s *Store) MarkAdminNotificationRead(ctx context.Context, tenantID, principalID, id string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE admin_notifications SET read = true
		 WHERE id = $1 AND tenant_id = $2 AND principal_id = $3`,
		id, tenantID, principalID)
	if err != nil {
		return fmt.Errorf("mark admin notification read %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("mark admin notification read %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (s *Store) MarkAllAdminNotificationsRead(ctx context.Context, tenantID, principalID string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE admin_notifications SET read = true
		 WHERE tenant_id = $1 AND principal_id = $2 AND read = false`,
		tenantID, principalID)
	if err != nil {
		return fmt.Errorf("mark all admin notifications read: %w", err)
	}
	return nil
}

// Package database defines the database store port (interface).
package database

import (
	"context"
	"time"

	"github.com/ensembleapp/ensemble/internal/domain/event"
	"github.com/ensembleapp/ensemble/internal/domain/identity"
	"github.com/ensembleapp/ensemble/internal/domain/meeting"
	"github.com/ensembleapp/ensemble/internal/domain/member"
	"github.com/ensembleapp/ensemble/internal/domain/notification"
	"github.com/ensembleapp/ensemble/internal/domain/tenant"
)

// Store is the port interface for database operations.
type Store interface {
	// Tenants
	CreateTenant(ctx context.Context, req tenant.CreateRequest) (*tenant.Tenant, error)
	GetTenant(ctx context.Context, id string) (*tenant.Tenant, error)
	ListTenants(ctx context.Context) ([]tenant.Tenant, error)
	SetTenantSuspended(ctx context.Context, id string, suspended bool, reason string) error

	// Memberships
	CreateMembership(ctx context.Context, m *identity.Membership) error
	GetMembership(ctx context.Context, id string) (*identity.Membership, error)
	// GetMembershipByPrincipal returns the most recently assigned membership
	// for the principal, or domain.ErrNotFound when none exists.
	GetMembershipByPrincipal(ctx context.Context, principalID string) (*identity.Membership, error)
	ListMemberships(ctx context.Context, tenantID string) ([]identity.Membership, error)
	ListAdminMemberships(ctx context.Context, tenantID string) ([]identity.Membership, error)
	UpdateMembershipPermissions(ctx context.Context, id string, perms identity.Permissions) error
	DeleteMembership(ctx context.Context, id string) error

	// Members
	GetMember(ctx context.Context, tenantID, id string) (*member.Member, error)
	GetMemberByPrincipal(ctx context.Context, tenantID, principalID string) (*member.Member, error)
	ListActiveMembers(ctx context.Context, tenantID string) ([]member.Member, error)

	// Notifications
	CreateMemberNotifications(ctx context.Context, ns []notification.MemberNotification) error
	CreateAdminNotifications(ctx context.Context, ns []notification.AdminNotification) error
	ListMemberNotifications(ctx context.Context, tenantID, memberID string) ([]notification.MemberNotification, error)
	ListAdminNotifications(ctx context.Context, tenantID, principalID string) ([]notification.AdminNotification, error)
	CountUnreadMemberNotifications(ctx context.Context, tenantID, memberID string) (int, error)
	CountUnreadAdminNotifications(ctx context.Context, tenantID, principalID string) (int, error)
	MarkMemberNotificationRead(ctx context.Context, tenantID, memberID, id string) error
	MarkAllMemberNotificationsRead(ctx context.Context, tenantID, memberID string) error
	MarkAdminNotificationRead(ctx context.Context, tenantID, principalID, id string) error
	MarkAllAdminNotificationsRead(ctx context.Context, tenantID, principalID string) error

	// Reminder-eligible entities. The due scans are tenant-agnostic; the
	// Mark* calls report whether the row was still unmarked, re-checking the
	// null guard at write time.
	ListEventsDueForReminder(ctx context.Context, from, to time.Time) ([]event.Event, error)
	ListEventRegistrants(ctx context.Context, eventID string) ([]event.Registrant, error)
	MarkEventReminded(ctx context.Context, eventID string, at time.Time) (bool, error)
	ListMeetingsDueForReminder(ctx context.Context, from, to time.Time) ([]meeting.Meeting, error)
	ListMeetingParticipants(ctx context.Context, meetingID string) ([]meeting.Participant, error)
	MarkMeetingReminded(ctx context.Context, meetingID string, at time.Time) (bool, error)

	// TryBeginReminderRun records the start of the daily reminder run for
	// the given calendar day (YYYY-MM-DD). It returns false when another
	// instance already claimed the day.
	TryBeginReminderRun(ctx context.Context, day string) (bool, error)
}

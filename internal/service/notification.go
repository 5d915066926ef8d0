package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/ensembleapp/ensemble/internal/adapter/otel"
	"github.com/ensembleapp/ensemble/internal/adapter/ws"
	"github.com/ensembleapp/ensemble/internal/domain/notification"
	"github.com/ensembleapp/ensemble/internal/port/broadcast"
	"github.com/ensembleapp/ensemble/internal/port/database"
	"github.com/ensembleapp/ensemble/internal/port/messagequeue"
)

// Dispatch request kinds carried on the notify queue.
const (
	dispatchMember     = "member"
	dispatchMembers    = "members"
	dispatchAllMembers = "all_members"
	dispatchAdmin      = "admin"
	dispatchAllAdmins  = "all_admins"
)

// dispatchRequest is the queued form of one fan-out call.
type dispatchRequest struct {
	Kind        string               `json:"kind"`
	TenantID    string               `json:"tenant_id"`
	MemberIDs   []string             `json:"member_ids,omitempty"`
	PrincipalID string               `json:"principal_id,omitempty"`
	ExcludeID   string               `json:"exclude_principal_id,omitempty"`
	Module      string               `json:"module,omitempty"`
	Content     notification.Content `json:"content"`
}

// NotificationService fans in-app notifications out to resolved audiences.
//
// Delivery is best-effort by contract: every failure is logged and swallowed
// so the triggering business operation never fails or rolls back because a
// notification could not be written. When a queue is wired, the public
// methods only publish a dispatch request and return; the subscriber started
// by StartDispatchSubscriber resolves audiences and writes rows. Without a
// queue, dispatch runs inline (tests, the reminder job, the admin CLI).
type NotificationService struct {
	store   database.Store
	queue   messagequeue.Queue
	hub     broadcast.Broadcaster
	metrics *otel.Metrics
}

// NewNotificationService creates a NotificationService. queue, hub, and
// metrics may each be nil.
func NewNotificationService(store database.Store, queue messagequeue.Queue, hub broadcast.Broadcaster, metrics *otel.Metrics) *NotificationService {
	return &NotificationService{store: store, queue: queue, hub: hub, metrics: metrics}
}

// NotifyMember pushes one notification to a single member.
func (s *NotificationService) NotifyMember(ctx context.Context, tenantID, memberID string, content notification.Content) {
	s.submit(ctx, dispatchRequest{
		Kind:      dispatchMember,
		TenantID:  tenantID,
		MemberIDs: []string{memberID},
		Content:   content,
	})
}

// NotifyMembers pushes one notification to each listed member. No
// de-duplication happens beyond what the caller supplies.
func (s *NotificationService) NotifyMembers(ctx context.Context, tenantID string, memberIDs []string, content notification.Content) {
	if len(memberIDs) == 0 {
		return
	}
	s.submit(ctx, dispatchRequest{
		Kind:      dispatchMembers,
		TenantID:  tenantID,
		MemberIDs: memberIDs,
		Content:   content,
	})
}

// NotifyAllMembers pushes one notification to every active member of the
// tenant whose linked principal does not also hold an admin membership
// there. A person who is both staff and a tracked member receives exactly
// one notification for a tenant-wide broadcast, through the admin pool.
func (s *NotificationService) NotifyAllMembers(ctx context.Context, tenantID string, content notification.Content) {
	s.submit(ctx, dispatchRequest{
		Kind:     dispatchAllMembers,
		TenantID: tenantID,
		Content:  content,
	})
}

// NotifyAdmin pushes one notification to a single tenant admin.
func (s *NotificationService) NotifyAdmin(ctx context.Context, tenantID, principalID string, content notification.Content) {
	s.submit(ctx, dispatchRequest{
		Kind:        dispatchAdmin,
		TenantID:    tenantID,
		PrincipalID: principalID,
		Content:     content,
	})
}

// NotifyAllAdmins pushes one notification to every tenant admin except
// excludePrincipalID (the acting principal never hears about its own
// action). When module is non-empty the audience narrows to admins whose
// permission set covers the module; the principal administrator is always
// included.
func (s *NotificationService) NotifyAllAdmins(ctx context.Context, tenantID, excludePrincipalID string, content notification.Content, module string) {
	s.submit(ctx, dispatchRequest{
		Kind:      dispatchAllAdmins,
		TenantID:  tenantID,
		ExcludeID: excludePrincipalID,
		Module:    module,
		Content:   content,
	})
}

// submit publishes the request to the queue, or dispatches inline when no
// queue is wired. Failures are logged and swallowed at this boundary.
func (s *NotificationService) submit(ctx context.Context, req dispatchRequest) {
	if s.queue != nil {
		data, err := json.Marshal(req)
		if err != nil {
			slog.Error("marshal dispatch request", "kind", req.Kind, "error", err)
			return
		}
		if err := s.queue.Publish(ctx, messagequeue.SubjectNotifyDispatch, data); err != nil {
			slog.Warn("enqueue notification dispatch failed",
				"kind", req.Kind, "tenant_id", req.TenantID, "error", err)
		}
		return
	}

	if err := s.dispatch(ctx, req); err != nil {
		slog.Warn("notification dispatch failed",
			"kind", req.Kind, "tenant_id", req.TenantID, "error", err)
	}
}

// StartDispatchSubscriber consumes queued dispatch requests. The returned
// function cancels the subscription.
func (s *NotificationService) StartDispatchSubscriber(ctx context.Context) (func(), error) {
	cancel, err := s.queue.Subscribe(ctx, messagequeue.SubjectNotifyDispatch,
		func(ctx context.Context, _ string, data []byte) error {
			var req dispatchRequest
			if err := json.Unmarshal(data, &req); err != nil {
				slog.Error("unmarshal dispatch request", "error", err)
				return nil // malformed message, do not redeliver
			}
			if err := s.dispatch(ctx, req); err != nil {
				slog.Warn("notification dispatch failed",
					"kind", req.Kind, "tenant_id", req.TenantID, "error", err)
			}
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", messagequeue.SubjectNotifyDispatch, err)
	}
	slog.Info("notification dispatch subscriber started")
	return cancel, nil
}

// dispatch resolves the audience for one request and writes the rows.
func (s *NotificationService) dispatch(ctx context.Context, req dispatchRequest) error {
	switch req.Kind {
	case dispatchMember, dispatchMembers:
		return s.deliverToMembers(ctx, req.TenantID, req.MemberIDs, req.Content)
	case dispatchAllMembers:
		memberIDs, err := s.broadcastAudience(ctx, req.TenantID)
		if err != nil {
			return err
		}
		return s.deliverToMembers(ctx, req.TenantID, memberIDs, req.Content)
	case dispatchAdmin:
		return s.deliverToAdmins(ctx, req.TenantID, []string{req.PrincipalID}, req.Content)
	case dispatchAllAdmins:
		principalIDs, err := s.adminAudience(ctx, req.TenantID, req.ExcludeID, req.Module)
		if err != nil {
			return err
		}
		return s.deliverToAdmins(ctx, req.TenantID, principalIDs, req.Content)
	default:
		return fmt.Errorf("unknown dispatch kind %q", req.Kind)
	}
}

// broadcastAudience resolves the tenant-wide member audience: active members
// minus those whose linked principal holds an admin membership in the same
// tenant, so dual-role people receive exactly one notification.
func (s *NotificationService) broadcastAudience(ctx context.Context, tenantID string) ([]string, error) {
	members, err := s.store.ListActiveMembers(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list active members: %w", err)
	}

	admins, err := s.store.ListAdminMemberships(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list admin memberships: %w", err)
	}
	adminPrincipals := make(map[string]bool, len(admins))
	for _, a := range admins {
		adminPrincipals[a.PrincipalID] = true
	}

	ids := make([]string, 0, len(members))
	for _, m := range members {
		if m.PrincipalID != "" && adminPrincipals[m.PrincipalID] {
			continue
		}
		ids = append(ids, m.ID)
	}
	return ids, nil
}

// adminAudience resolves the admin audience: all tenant admins minus the
// excluded principal, optionally narrowed to a module. The principal
// administrator always stays in a module-scoped audience.
func (s *NotificationService) adminAudience(ctx context.Context, tenantID, excludeID, module string) ([]string, error) {
	admins, err := s.store.ListAdminMemberships(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list admin memberships: %w", err)
	}

	ids := make([]string, 0, len(admins))
	for _, a := range admins {
		if a.PrincipalID == excludeID {
			continue
		}
		if module != "" && !a.PrincipalAdmin && !a.Permissions.Allows(module) {
			continue
		}
		ids = append(ids, a.PrincipalID)
	}
	return ids, nil
}

func (s *NotificationService) deliverToMembers(ctx context.Context, tenantID string, memberIDs []string, content notification.Content) error {
	if len(memberIDs) == 0 {
		return nil
	}

	now := time.Now().UTC()
	rows := make([]notification.MemberNotification, 0, len(memberIDs))
	for _, id := range memberIDs {
		rows = append(rows, notification.MemberNotification{
			ID:        generateID(),
			TenantID:  tenantID,
			MemberID:  id,
			Content:   content,
			CreatedAt: now,
		})
	}

	if err := s.store.CreateMemberNotifications(ctx, rows); err != nil {
		return fmt.Errorf("create member notifications: %w", err)
	}
	s.metrics.AddNotificationsCreated(ctx, len(rows), "member")

	if s.hub != nil {
		for _, row := range rows {
			s.hub.BroadcastEvent(ctx, tenantID, ws.EventNotificationCreated, ws.NotificationCreatedEvent{
				TenantID:  tenantID,
				Pool:      "member",
				Recipient: row.MemberID,
				Category:  string(content.Category),
				Title:     content.Title,
			})
		}
	}
	return nil
}

func (s *NotificationService) deliverToAdmins(ctx context.Context, tenantID string, principalIDs []string, content notification.Content) error {
	if len(principalIDs) == 0 {
		return nil
	}

	now := time.Now().UTC()
	rows := make([]notification.AdminNotification, 0, len(principalIDs))
	for _, id := range principalIDs {
		rows = append(rows, notification.AdminNotification{
			ID:          generateID(),
			TenantID:    tenantID,
			PrincipalID: id,
			Content:     content,
			CreatedAt:   now,
		})
	}

	if err := s.store.CreateAdminNotifications(ctx, rows); err != nil {
		return fmt.Errorf("create admin notifications: %w", err)
	}
	s.metrics.AddNotificationsCreated(ctx, len(rows), "admin")

	if s.hub != nil {
		for _, row := range rows {
			s.hub.BroadcastEvent(ctx, tenantID, ws.EventNotificationCreated, ws.NotificationCreatedEvent{
				TenantID:  tenantID,
				Pool:      "admin",
				Recipient: row.PrincipalID,
				Category:  string(content.Category),
				Title:     content.Title,
			})
		}
	}
	return nil
}

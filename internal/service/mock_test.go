package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ensembleapp/ensemble/internal/domain"
	"github.com/ensembleapp/ensemble/internal/domain/event"
	"github.com/ensembleapp/ensemble/internal/domain/identity"
	"github.com/ensembleapp/ensemble/internal/domain/meeting"
	"github.com/ensembleapp/ensemble/internal/domain/member"
	"github.com/ensembleapp/ensemble/internal/domain/notification"
	"github.com/ensembleapp/ensemble/internal/domain/tenant"
	"github.com/ensembleapp/ensemble/internal/port/database"
	"github.com/ensembleapp/ensemble/internal/port/messagequeue"
	"github.com/ensembleapp/ensemble/internal/port/verifier"
)

// fakeStore is an in-memory database.Store for service tests. Error fields
// force failures on specific calls.
type fakeStore struct {
	mu sync.Mutex

	tenants      map[string]*tenant.Tenant
	memberships  map[string]*identity.Membership
	members      map[string]*member.Member
	events       map[string]*event.Event
	registrants  map[string][]event.Registrant
	meetings     map[string]*meeting.Meeting
	participants map[string][]meeting.Participant

	memberNotifs []notification.MemberNotification
	adminNotifs  []notification.AdminNotification
	claimedRuns  map[string]bool

	failMemberNotifs error
	failAdminNotifs  error
	failRegistrants  error
	failClaim        error

	tenantLookups int
}

var _ database.Store = (*fakeStore)(nil)

func newFakeStore() *fakeStore {
	return &fakeStore{
		tenants:      map[string]*tenant.Tenant{},
		memberships:  map[string]*identity.Membership{},
		members:      map[string]*member.Member{},
		events:       map[string]*event.Event{},
		registrants:  map[string][]event.Registrant{},
		meetings:     map[string]*meeting.Meeting{},
		participants: map[string][]meeting.Participant{},
		claimedRuns:  map[string]bool{},
	}
}

func (f *fakeStore) CreateTenant(_ context.Context, req tenant.CreateRequest) (*tenant.Tenant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := &tenant.Tenant{
		ID:        generateID(),
		Name:      req.Name,
		Slug:      req.Slug,
		Modules:   req.Modules,
		CreatedAt: time.Now().UTC(),
	}
	f.tenants[t.ID] = t
	return t, nil
}

func (f *fakeStore) GetTenant(_ context.Context, id string) (*tenant.Tenant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tenantLookups++
	t, ok := f.tenants[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (f *fakeStore) ListTenants(_ context.Context) ([]tenant.Tenant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]tenant.Tenant, 0, len(f.tenants))
	for _, t := range f.tenants {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) SetTenantSuspended(_ context.Context, id string, suspended bool, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tenants[id]
	if !ok {
		return domain.ErrNotFound
	}
	t.Suspended = suspended
	t.SuspensionReason = reason
	return nil
}

func (f *fakeStore) CreateMembership(_ context.Context, m *identity.Membership) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *m
	f.memberships[m.ID] = &cp
	return nil
}

func (f *fakeStore) GetMembership(_ context.Context, id string) (*identity.Membership, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.memberships[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (f *fakeStore) GetMembershipByPrincipal(_ context.Context, principalID string) (*identity.Membership, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var latest *identity.Membership
	for _, m := range f.memberships {
		if m.PrincipalID != principalID {
			continue
		}
		if latest == nil || m.AssignedAt.After(latest.AssignedAt) {
			latest = m
		}
	}
	if latest == nil {
		return nil, domain.ErrNotFound
	}
	cp := *latest
	return &cp, nil
}

func (f *fakeStore) ListMemberships(_ context.Context, tenantID string) ([]identity.Membership, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []identity.Membership
	for _, m := range f.memberships {
		if m.TenantID == tenantID {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) ListAdminMemberships(_ context.Context, tenantID string) ([]identity.Membership, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []identity.Membership
	for _, m := range f.memberships {
		if m.TenantID == tenantID && m.Role == identity.RoleTenantAdmin {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) UpdateMembershipPermissions(_ context.Context, id string, perms identity.Permissions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.memberships[id]
	if !ok {
		return domain.ErrNotFound
	}
	m.Permissions = perms
	return nil
}

func (f *fakeStore) DeleteMembership(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.memberships[id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.memberships, id)
	return nil
}

func (f *fakeStore) GetMember(_ context.Context, tenantID, id string) (*member.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.members[id]
	if !ok || m.TenantID != tenantID {
		return nil, domain.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (f *fakeStore) GetMemberByPrincipal(_ context.Context, tenantID, principalID string) (*member.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.members {
		if m.TenantID == tenantID && m.PrincipalID == principalID {
			cp := *m
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeStore) ListActiveMembers(_ context.Context, tenantID string) ([]member.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []member.Member
	for _, m := range f.members {
		if m.TenantID == tenantID && m.Status == member.StatusActive {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) CreateMemberNotifications(_ context.Context, ns []notification.MemberNotification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failMemberNotifs != nil {
		return f.failMemberNotifs
	}
	f.memberNotifs = append(f.memberNotifs, ns...)
	return nil
}

func (f *fakeStore) CreateAdminNotifications(_ context.Context, ns []notification.AdminNotification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAdminNotifs != nil {
		return f.failAdminNotifs
	}
	f.adminNotifs = append(f.adminNotifs, ns...)
	return nil
}

func (f *fakeStore) ListMemberNotifications(_ context.Context, tenantID, memberID string) ([]notification.MemberNotification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []notification.MemberNotification
	for _, n := range f.memberNotifs {
		if n.TenantID == tenantID && n.MemberID == memberID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (f *fakeStore) ListAdminNotifications(_ context.Context, tenantID, principalID string) ([]notification.AdminNotification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []notification.AdminNotification
	for _, n := range f.adminNotifs {
		if n.TenantID == tenantID && n.PrincipalID == principalID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (f *fakeStore) CountUnreadMemberNotifications(ctx context.Context, tenantID, memberID string) (int, error) {
	ns, _ := f.ListMemberNotifications(ctx, tenantID, memberID)
	count := 0
	for _, n := range ns {
		if !n.Read {
			count++
		}
	}
	return count, nil
}

func (f *fakeStore) CountUnreadAdminNotifications(ctx context.Context, tenantID, principalID string) (int, error) {
	ns, _ := f.ListAdminNotifications(ctx, tenantID, principalID)
	count := 0
	for _, n := range ns {
		if !n.Read {
			count++
		}
	}
	return count, nil
}

func (f *fakeStore) MarkMemberNotificationRead(_ context.Context, tenantID, memberID, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.memberNotifs {
		n := &f.memberNotifs[i]
		if n.ID == id && n.TenantID == tenantID && n.MemberID == memberID {
			n.Read = true
			return nil
		}
	}
	return domain.ErrNotFound
}

func (f *fakeStore) MarkAllMemberNotificationsRead(_ context.Context, tenantID, memberID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.memberNotifs {
		n := &f.memberNotifs[i]
		if n.TenantID == tenantID && n.MemberID == memberID {
			n.Read = true
		}
	}
	return nil
}

func (f *fakeStore) MarkAdminNotificationRead(_ context.Context, tenantID, principalID, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.adminNotifs {
		n := &f.adminNotifs[i]
		if n.ID == id && n.TenantID == tenantID && n.PrincipalID == principalID {
			n.Read = true
			return nil
		}
	}
	return domain.ErrNotFound
}

func (f *fakeStore) MarkAllAdminNotificationsRead(_ context.Context, tenantID, principalID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.adminNotifs {
		n := &f.adminNotifs[i]
		if n.TenantID == tenantID && n.PrincipalID == principalID {
			n.Read = true
		}
	}
	return nil
}

func (f *fakeStore) ListEventsDueForReminder(_ context.Context, from, to time.Time) ([]event.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []event.Event
	for _, e := range f.events {
		if e.ReminderEligible() && !e.StartsAt.Before(from) && !e.StartsAt.After(to) {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) ListEventRegistrants(_ context.Context, eventID string) ([]event.Registrant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failRegistrants != nil {
		return nil, f.failRegistrants
	}
	return append([]event.Registrant(nil), f.registrants[eventID]...), nil
}

func (f *fakeStore) MarkEventReminded(_ context.Context, eventID string, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.events[eventID]
	if !ok {
		return false, domain.ErrNotFound
	}
	if e.ReminderSentAt != nil {
		return false, nil
	}
	e.ReminderSentAt = &at
	return true, nil
}

func (f *fakeStore) ListMeetingsDueForReminder(_ context.Context, from, to time.Time) ([]meeting.Meeting, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []meeting.Meeting
	for _, m := range f.meetings {
		if m.ReminderEligible() && !m.StartsAt.Before(from) && !m.StartsAt.After(to) {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) ListMeetingParticipants(_ context.Context, meetingID string) ([]meeting.Participant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]meeting.Participant(nil), f.participants[meetingID]...), nil
}

func (f *fakeStore) MarkMeetingReminded(_ context.Context, meetingID string, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.meetings[meetingID]
	if !ok {
		return false, domain.ErrNotFound
	}
	if m.ReminderSentAt != nil {
		return false, nil
	}
	m.ReminderSentAt = &at
	return true, nil
}

func (f *fakeStore) TryBeginReminderRun(_ context.Context, day string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failClaim != nil {
		return false, f.failClaim
	}
	if f.claimedRuns[day] {
		return false, nil
	}
	f.claimedRuns[day] = true
	return true, nil
}

// fakeVerifier maps tokens to principals.
type fakeVerifier struct {
	principals map[string]*verifier.Principal
}

func (f *fakeVerifier) Verify(_ context.Context, token string) (*verifier.Principal, error) {
	p, ok := f.principals[token]
	if !ok {
		return nil, domain.ErrUnauthorized
	}
	return p, nil
}

// fakeQueue records published messages without delivering them.
type fakeQueue struct {
	mu        sync.Mutex
	published map[string][][]byte
	handlers  map[string]messagequeue.Handler
}

var _ messagequeue.Queue = (*fakeQueue)(nil)

func newFakeQueue() *fakeQueue {
	return &fakeQueue{
		published: map[string][][]byte{},
		handlers:  map[string]messagequeue.Handler{},
	}
}

func (q *fakeQueue) Publish(_ context.Context, subject string, data []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.published[subject] = append(q.published[subject], data)
	return nil
}

func (q *fakeQueue) Subscribe(_ context.Context, subject string, h messagequeue.Handler) (func(), error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[subject] = h
	return func() {}, nil
}

// deliverAll feeds every published message on subject to the subscriber.
func (q *fakeQueue) deliverAll(ctx context.Context, subject string) {
	q.mu.Lock()
	msgs := q.published[subject]
	q.published[subject] = nil
	h := q.handlers[subject]
	q.mu.Unlock()
	if h == nil {
		return
	}
	for _, m := range msgs {
		_ = h(ctx, subject, m)
	}
}

func (q *fakeQueue) Drain() error      { return nil }
func (q *fakeQueue) Close() error      { return nil }
func (q *fakeQueue) IsConnected() bool { return true }

// fakeMailer records sends and optionally fails for specific recipients.
type fakeMailer struct {
	mu     sync.Mutex
	sent   []string
	failTo map[string]error
}

func (m *fakeMailer) Send(_ context.Context, to, _, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.failTo[to]; ok {
		return err
	}
	m.sent = append(m.sent, to)
	return nil
}

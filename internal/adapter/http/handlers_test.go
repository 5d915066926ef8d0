package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	enshttp "github.com/ensembleapp/ensemble/internal/adapter/http"
	"github.com/ensembleapp/ensemble/internal/domain"
	"github.com/ensembleapp/ensemble/internal/domain/event"
	"github.com/ensembleapp/ensemble/internal/domain/identity"
	"github.com/ensembleapp/ensemble/internal/domain/meeting"
	"github.com/ensembleapp/ensemble/internal/domain/member"
	"github.com/ensembleapp/ensemble/internal/domain/notification"
	"github.com/ensembleapp/ensemble/internal/domain/tenant"
	"github.com/ensembleapp/ensemble/internal/middleware"
	"github.com/ensembleapp/ensemble/internal/port/database"
	"github.com/ensembleapp/ensemble/internal/service"
)

// mockStore implements database.Store for handler testing.
type mockStore struct {
	tenants      map[string]*tenant.Tenant
	memberships  map[string]*identity.Membership
	members      map[string]*member.Member
	memberNotifs []notification.MemberNotification
	adminNotifs  []notification.AdminNotification
}

var _ database.Store = (*mockStore)(nil)

func newMockStore() *mockStore {
	return &mockStore{
		tenants:     map[string]*tenant.Tenant{},
		memberships: map[string]*identity.Membership{},
		members:     map[string]*member.Member{},
	}
}

func (m *mockStore) CreateTenant(_ context.Context, req tenant.CreateRequest) (*tenant.Tenant, error) {
	t := &tenant.Tenant{ID: "t-new", Name: req.Name, Slug: req.Slug, Modules: req.Modules, CreatedAt: time.Now()}
	m.tenants[t.ID] = t
	return t, nil
}

func (m *mockStore) GetTenant(_ context.Context, id string) (*tenant.Tenant, error) {
	t, ok := m.tenants[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *mockStore) ListTenants(_ context.Context) ([]tenant.Tenant, error) {
	out := make([]tenant.Tenant, 0, len(m.tenants))
	for _, t := range m.tenants {
		out = append(out, *t)
	}
	return out, nil
}

func (m *mockStore) SetTenantSuspended(_ context.Context, id string, suspended bool, reason string) error {
	t, ok := m.tenants[id]
	if !ok {
		return domain.ErrNotFound
	}
	t.Suspended = suspended
	t.SuspensionReason = reason
	return nil
}

func (m *mockStore) CreateMembership(_ context.Context, ms *identity.Membership) error {
	m.memberships[ms.ID] = ms
	return nil
}

func (m *mockStore) GetMembership(_ context.Context, id string) (*identity.Membership, error) {
	ms, ok := m.memberships[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return ms, nil
}

func (m *mockStore) GetMembershipByPrincipal(_ context.Context, principalID string) (*identity.Membership, error) {
	for _, ms := range m.memberships {
		if ms.PrincipalID == principalID {
			return ms, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockStore) ListMemberships(_ context.Context, tenantID string) ([]identity.Membership, error) {
	var out []identity.Membership
	for _, ms := range m.memberships {
		if ms.TenantID == tenantID {
			out = append(out, *ms)
		}
	}
	return out, nil
}

func (m *mockStore) ListAdminMemberships(_ context.Context, tenantID string) ([]identity.Membership, error) {
	var out []identity.Membership
	for _, ms := range m.memberships {
		if ms.TenantID == tenantID && ms.Role == identity.RoleTenantAdmin {
			out = append(out, *ms)
		}
	}
	return out, nil
}

func (m *mockStore) UpdateMembershipPermissions(_ context.Context, id string, perms identity.Permissions) error {
	ms, ok := m.memberships[id]
	if !ok {
		return domain.ErrNotFound
	}
	ms.Permissions = perms
	return nil
}

func (m *mockStore) DeleteMembership(_ context.Context, id string) error {
	if _, ok := m.memberships[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.memberships, id)
	return nil
}

func (m *mockStore) GetMember(_ context.Context, tenantID, id string) (*member.Member, error) {
	mb, ok := m.members[id]
	if !ok || mb.TenantID != tenantID {
		return nil, domain.ErrNotFound
	}
	return mb, nil
}

func (m *mockStore) GetMemberByPrincipal(_ context.Context, tenantID, principalID string) (*member.Member, error) {
	for _, mb := range m.members {
		if mb.TenantID == tenantID && mb.PrincipalID == principalID {
			return mb, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockStore) ListActiveMembers(_ context.Context, tenantID string) ([]member.Member, error) {
	var out []member.Member
	for _, mb := range m.members {
		if mb.TenantID == tenantID && mb.Status == member.StatusActive {
			out = append(out, *mb)
		}
	}
	return out, nil
}

func (m *mockStore) CreateMemberNotifications(_ context.Context, ns []notification.MemberNotification) error {
	m.memberNotifs = append(m.memberNotifs, ns...)
	return nil
}

func (m *mockStore) CreateAdminNotifications(_ context.Context, ns []notification.AdminNotification) error {
	m.adminNotifs = append(m.adminNotifs, ns...)
	return nil
}

func (m *mockStore) ListMemberNotifications(_ context.Context, tenantID, memberID string) ([]notification.MemberNotification, error) {
	var out []notification.MemberNotification
	for _, n := range m.memberNotifs {
		if n.TenantID == tenantID && n.MemberID == memberID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (m *mockStore) ListAdminNotifications(_ context.Context, tenantID, principalID string) ([]notification.AdminNotification, error) {
	var out []notification.AdminNotification
	for _, n := range m.adminNotifs {
		if n.TenantID == tenantID && n.PrincipalID == principalID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (m *mockStore) CountUnreadMemberNotifications(_ context.Context, tenantID, memberID string) (int, error) {
	count := 0
	for _, n := range m.memberNotifs {
		if n.TenantID == tenantID && n.MemberID == memberID && !n.Read {
			count++
		}
	}
	return count, nil
}

func (m *mockStore) CountUnreadAdminNotifications(_ context.Context, tenantID, principalID string) (int, error) {
	count := 0
	for _, n := range m.adminNotifs {
		if n.TenantID == tenantID && n.PrincipalID == principalID && !n.Read {
			count++
		}
	}
	return count, nil
}

func (m *mockStore) MarkMemberNotificationRead(_ context.Context, tenantID, memberID, id string) error {
	for i := range m.memberNotifs {
		n := &m.memberNotifs[i]
		if n.ID == id && n.TenantID == tenantID && n.MemberID == memberID {
			n.Read = true
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *mockStore) MarkAllMemberNotificationsRead(_ context.Context, tenantID, memberID string) error {
	for i := range m.memberNotifs {
		n := &m.memberNotifs[i]
		if n.TenantID == tenantID && n.MemberID == memberID {
			n.Read = true
		}
	}
	return nil
}

func (m *mockStore) MarkAdminNotificationRead(_ context.Context, tenantID, principalID, id string) error {
	for i := range m.adminNotifs {
		n := &m.adminNotifs[i]
		if n.ID == id && n.TenantID == tenantID && n.PrincipalID == principalID {
			n.Read = true
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *mockStore) MarkAllAdminNotificationsRead(_ context.Context, tenantID, principalID string) error {
	for i := range m.adminNotifs {
		n := &m.adminNotifs[i]
		if n.TenantID == tenantID && n.PrincipalID == principalID {
			n.Read = true
		}
	}
	return nil
}

func (m *mockStore) ListEventsDueForReminder(_ context.Context, _, _ time.Time) ([]event.Event, error) {
	return nil, nil
}

func (m *mockStore) ListEventRegistrants(_ context.Context, _ string) ([]event.Registrant, error) {
	return nil, nil
}

func (m *mockStore) MarkEventReminded(_ context.Context, _ string, _ time.Time) (bool, error) {
	return false, nil
}

func (m *mockStore) ListMeetingsDueForReminder(_ context.Context, _, _ time.Time) ([]meeting.Meeting, error) {
	return nil, nil
}

func (m *mockStore) ListMeetingParticipants(_ context.Context, _ string) ([]meeting.Participant, error) {
	return nil, nil
}

func (m *mockStore) MarkMeetingReminded(_ context.Context, _ string, _ time.Time) (bool, error) {
	return false, nil
}

func (m *mockStore) TryBeginReminderRun(_ context.Context, _ string) (bool, error) {
	return true, nil
}

// noopCache satisfies the cache port with no storage.
type noopCache struct{}

func (noopCache) Get(_ context.Context, _ string) ([]byte, bool, error)          { return nil, false, nil }
func (noopCache) Set(_ context.Context, _ string, _ []byte, _ time.Duration) error { return nil }
func (noopCache) Delete(_ context.Context, _ string) error                       { return nil }

type fixture struct {
	store  *mockStore
	router chi.Router
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := newMockStore()
	directory := service.NewDirectoryService(store, noopCache{}, time.Minute)
	notifier := service.NewNotificationService(store, nil, nil, nil)
	h := &enshttp.Handlers{
		Tenants:       service.NewTenantService(store, directory, nil),
		Team:          service.NewTeamService(store, notifier),
		Notifications: notifier,
		Directory:     directory,
		Store:         store,
	}

	r := chi.NewRouter()
	enshttp.MountRoutes(r, h, middleware.NewGuard(store))
	return &fixture{store: store, router: r}
}

func (f *fixture) do(t *testing.T, method, path string, body any, id *identity.Identity) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if id != nil {
		req = req.WithContext(middleware.WithIdentity(req.Context(), id))
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func platformAdmin() *identity.Identity {
	return &identity.Identity{PrincipalID: "p-ops", Email: "ops@example.com", Role: identity.RolePlatformAdmin}
}

func leadAdmin(tenantID string) *identity.Identity {
	return &identity.Identity{
		PrincipalID:    "p-lead",
		TenantID:       tenantID,
		Role:           identity.RoleTenantAdmin,
		PrincipalAdmin: true,
	}
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/health", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestMeRequiresIdentity(t *testing.T) {
	f := newFixture(t)
	if rec := f.do(t, http.MethodGet, "/api/v1/me", nil, nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}

	rec := f.do(t, http.MethodGet, "/api/v1/me", nil, platformAdmin())
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var got identity.Identity
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.PrincipalID != "p-ops" {
		t.Errorf("principal = %q, want p-ops", got.PrincipalID)
	}
}

func TestTenantLifecycle(t *testing.T) {
	f := newFixture(t)
	ops := platformAdmin()

	rec := f.do(t, http.MethodPost, "/api/v1/tenants", tenant.CreateRequest{Name: "Maple Choir", Slug: "maple"}, ops)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, want 201: %s", rec.Code, rec.Body.String())
	}
	var created tenant.Tenant
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("decode: %v", err)
	}

	rec = f.do(t, http.MethodPost, "/api/v1/tenants/"+created.ID+"/suspend", tenant.SuspendRequest{Reason: "billing"}, ops)
	if rec.Code != http.StatusOK {
		t.Fatalf("suspend status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	rec = f.do(t, http.MethodGet, "/api/v1/tenants/"+created.ID, nil, ops)
	var got tenant.Tenant
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !got.Suspended || got.SuspensionReason != "billing" {
		t.Errorf("tenant = %+v, want suspended with reason", got)
	}

	if rec := f.do(t, http.MethodPost, "/api/v1/tenants/"+created.ID+"/unsuspend", nil, ops); rec.Code != http.StatusOK {
		t.Fatalf("unsuspend status = %d, want 200", rec.Code)
	}
}

func TestTenantSuspendRequiresReason(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/api/v1/tenants/t-1/suspend", tenant.SuspendRequest{}, platformAdmin())
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestTenantRoutesRejectNonOperators(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/api/v1/tenants", nil, leadAdmin("t-1"))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}

func TestTeamAddAndRemove(t *testing.T) {
	f := newFixture(t)
	lead := leadAdmin("t-1")

	rec := f.do(t, http.MethodPost, "/api/v1/team", identity.CreateMembershipRequest{
		PrincipalID: "p-new",
		Email:       "new@example.com",
		DisplayName: "New Staff",
		Role:        identity.RoleTenantAdmin,
		Permissions: identity.Subset(tenant.ModuleEvents),
	}, lead)
	if rec.Code != http.StatusCreated {
		t.Fatalf("add status = %d, want 201: %s", rec.Code, rec.Body.String())
	}
	var added identity.Membership
	if err := json.NewDecoder(rec.Body).Decode(&added); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if added.TenantID != "t-1" {
		t.Errorf("tenant = %q, want t-1", added.TenantID)
	}

	rec = f.do(t, http.MethodDelete, "/api/v1/team/"+added.ID, nil, lead)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("remove status = %d, want 204: %s", rec.Code, rec.Body.String())
	}
}

func TestTeamAddValidatesInput(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/team", identity.CreateMembershipRequest{
		PrincipalID: "p-new",
		Email:       "new@example.com",
		Role:        identity.RoleTenantAdmin,
	}, leadAdmin("t-1"))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400: %s", rec.Code, rec.Body.String())
	}
	if len(f.store.memberships) != 0 {
		t.Errorf("memberships = %d, want none created", len(f.store.memberships))
	}
}

func TestTeamRequiresLeadAdmin(t *testing.T) {
	f := newFixture(t)
	staff := &identity.Identity{PrincipalID: "p-staff", TenantID: "t-1", Role: identity.RoleTenantAdmin}
	rec := f.do(t, http.MethodGet, "/api/v1/team", nil, staff)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}

func TestMemberNotificationFlow(t *testing.T) {
	f := newFixture(t)
	f.store.members["m-1"] = &member.Member{
		ID: "m-1", TenantID: "t-1", PrincipalID: "p-alf", Status: member.StatusActive,
	}
	f.store.memberNotifs = []notification.MemberNotification{
		{ID: "n-1", TenantID: "t-1", MemberID: "m-1", Content: notification.Content{Title: "Rehearsal moved"}},
		{ID: "n-2", TenantID: "t-1", MemberID: "m-1", Content: notification.Content{Title: "New event"}},
	}
	alf := &identity.Identity{PrincipalID: "p-alf", TenantID: "t-1", Role: identity.RoleMember}

	rec := f.do(t, http.MethodGet, "/api/v1/notifications/unread-count", nil, alf)
	if rec.Code != http.StatusOK {
		t.Fatalf("count status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var count notification.UnreadCount
	if err := json.NewDecoder(rec.Body).Decode(&count); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if count.Unread != 2 {
		t.Errorf("unread = %d, want 2", count.Unread)
	}

	if rec := f.do(t, http.MethodPost, "/api/v1/notifications/n-1/read", nil, alf); rec.Code != http.StatusOK {
		t.Fatalf("mark status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if rec := f.do(t, http.MethodPost, "/api/v1/notifications/read-all", nil, alf); rec.Code != http.StatusOK {
		t.Fatalf("mark-all status = %d, want 200", rec.Code)
	}

	n, _ := f.store.CountUnreadMemberNotifications(context.Background(), "t-1", "m-1")
	if n != 0 {
		t.Errorf("unread after read-all = %d, want 0", n)
	}
}

func TestBlockedMemberIsDenied(t *testing.T) {
	f := newFixture(t)
	f.store.members["m-1"] = &member.Member{
		ID: "m-1", TenantID: "t-1", PrincipalID: "p-alf", Status: member.StatusBlocked,
	}
	alf := &identity.Identity{PrincipalID: "p-alf", TenantID: "t-1", Role: identity.RoleMember}

	rec := f.do(t, http.MethodGet, "/api/v1/notifications", nil, alf)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
	if body := rec.Body.String(); !bytes.Contains([]byte(body), []byte("account_blocked")) {
		t.Errorf("body = %s, want account_blocked", body)
	}
}

func TestAnnouncementFansOutToActiveMembers(t *testing.T) {
	f := newFixture(t)
	f.store.members["m-1"] = &member.Member{ID: "m-1", TenantID: "t-1", Status: member.StatusActive}
	f.store.members["m-2"] = &member.Member{ID: "m-2", TenantID: "t-1", Status: member.StatusActive}
	f.store.members["m-3"] = &member.Member{ID: "m-3", TenantID: "t-1", Status: member.StatusArchived}
	lead := leadAdmin("t-1")

	rec := f.do(t, http.MethodPost, "/api/v1/announcements", map[string]string{
		"title":   "Season opening",
		"message": "First concert on Saturday.",
	}, lead)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202: %s", rec.Code, rec.Body.String())
	}
	if len(f.store.memberNotifs) != 2 {
		t.Fatalf("notifications = %d, want 2", len(f.store.memberNotifs))
	}
	for _, n := range f.store.memberNotifs {
		if n.Content.Category != notification.CategoryAnnouncement {
			t.Errorf("category = %q, want announcement", n.Content.Category)
		}
	}
}

func TestAnnouncementRequiresModulePermission(t *testing.T) {
	f := newFixture(t)
	staff := &identity.Identity{
		PrincipalID: "p-staff",
		TenantID:    "t-1",
		Role:        identity.RoleTenantAdmin,
		Permissions: identity.Subset(tenant.ModuleEvents),
	}

	rec := f.do(t, http.MethodPost, "/api/v1/announcements", map[string]string{
		"title":   "x",
		"message": "y",
	}, staff)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403: %s", rec.Code, rec.Body.String())
	}
	var body struct {
		RequiredPermission string `json:"required_permission"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.RequiredPermission != tenant.ModuleAnnouncements {
		t.Errorf("required_permission = %q, want announcements", body.RequiredPermission)
	}
}

func TestAdminNotificationsRejectPlatformOperator(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/v1/admin/notifications", nil, platformAdmin())
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403: %s", rec.Code, rec.Body.String())
	}
}

func TestAdminNotificationPoolIsPerPrincipal(t *testing.T) {
	f := newFixture(t)
	f.store.adminNotifs = []notification.AdminNotification{
		{ID: "a-1", TenantID: "t-1", PrincipalID: "p-lead", Content: notification.Content{Title: "Staff change"}},
		{ID: "a-2", TenantID: "t-1", PrincipalID: "p-other", Content: notification.Content{Title: "Staff change"}},
	}
	lead := leadAdmin("t-1")

	rec := f.do(t, http.MethodGet, "/api/v1/admin/notifications", nil, lead)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var ns []notification.AdminNotification
	if err := json.NewDecoder(rec.Body).Decode(&ns); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(ns) != 1 || ns[0].ID != "a-1" {
		t.Errorf("notifications = %+v, want only a-1", ns)
	}
}

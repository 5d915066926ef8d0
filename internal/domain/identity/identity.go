// Package identity defines principals, tenant memberships, and the resolved
// identity every authenticated request carries.
package identity

import "time"

// Role is the authorization level of a membership.
type Role string

const (
	// RolePlatformAdmin is a platform operator. Platform admin memberships
	// never carry a tenant ID.
	RolePlatformAdmin Role = "platform_admin"
	// RoleTenantAdmin is staff of one tenant, possibly restricted to a
	// subset of feature modules.
	RoleTenantAdmin Role = "tenant_admin"
	// RoleMember is a signed-in member of one tenant.
	RoleMember Role = "member"
)

// ValidRoles is the set of all valid membership roles.
var ValidRoles = map[Role]bool{
	RolePlatformAdmin: true,
	RoleTenantAdmin:   true,
	RoleMember:        true,
}

// Membership binds a principal to at most one tenant with a role.
// A platform_admin membership has an empty TenantID.
type Membership struct {
	ID          string      `json:"id"`
	TenantID    string      `json:"tenant_id,omitempty"`
	PrincipalID string      `json:"principal_id"`
	Email       string      `json:"email"`
	Role        Role        `json:"role"`
	Permissions Permissions `json:"permissions"`
	// PrincipalAdmin marks the one non-revocable lead administrator of a
	// tenant. It, not the role alone, gates tenant-wide destructive
	// operations such as team management and tenant settings.
	PrincipalAdmin bool      `json:"principal_admin"`
	DisplayName    string    `json:"display_name"`
	AvatarURL      string    `json:"avatar_url,omitempty"`
	AssignedAt     time.Time `json:"assigned_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Identity is the fully resolved caller of a request: a verified principal
// plus whatever membership backs it. A verified principal with no membership
// has an empty Role and TenantID.
type Identity struct {
	PrincipalID    string      `json:"principal_id"`
	Email          string      `json:"email"`
	TenantID       string      `json:"tenant_id,omitempty"`
	Role           Role        `json:"role,omitempty"`
	Permissions    Permissions `json:"permissions"`
	PrincipalAdmin bool        `json:"principal_admin"`
	DisplayName    string      `json:"display_name,omitempty"`
}

// IsPlatformAdmin reports whether the identity is a platform operator.
func (id *Identity) IsPlatformAdmin() bool {
	return id.Role == RolePlatformAdmin && id.TenantID == ""
}

// IsTenantAdmin reports whether the identity is staff of a tenant.
func (id *Identity) IsTenantAdmin() bool {
	return id.Role == RoleTenantAdmin && id.TenantID != ""
}

// IsMember reports whether the identity is an ordinary tenant member.
func (id *Identity) IsMember() bool {
	return id.Role == RoleMember && id.TenantID != ""
}

// HasModule reports whether the identity may act on the named feature
// module. Platform admins always pass; tenant admins pass iff their
// permission set covers the module; everyone else fails.
func (id *Identity) HasModule(module string) bool {
	if id.IsPlatformAdmin() {
		return true
	}
	if !id.IsTenantAdmin() {
		return false
	}
	return id.Permissions.Allows(module)
}

// CreateMembershipRequest is the input for provisioning a principal into a
// tenant.
type CreateMembershipRequest struct {
	PrincipalID string      `json:"principal_id"`
	Email       string      `json:"email"`
	Role        Role        `json:"role"`
	Permissions Permissions `json:"permissions"`
	DisplayName string      `json:"display_name"`
}

// Validate checks the request fields.
func (r *CreateMembershipRequest) Validate() error {
	switch {
	case r.PrincipalID == "":
		return errRequired("principal_id")
	case r.Email == "":
		return errRequired("email")
	case r.DisplayName == "":
		return errRequired("display_name")
	case !ValidRoles[r.Role] || r.Role == RolePlatformAdmin:
		return errInvalidRole
	}
	return nil
}

// Package tenant defines the tenant domain model. A tenant is an isolated
// organization; its data and members are never visible across tenant
// boundaries.
package tenant

import (
	"errors"
	"time"
)

// Known feature module names a tenant may enable.
const (
	ModuleEvents        = "events"
	ModuleMembers       = "members"
	ModuleMeetings      = "meetings"
	ModuleChoir         = "choir"
	ModuleRoles         = "roles"
	ModuleAnnouncements = "announcements"
)

// Tenant represents one organization on the platform.
type Tenant struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Slug             string    `json:"slug"`
	Suspended        bool      `json:"suspended"`
	SuspensionReason string    `json:"suspension_reason,omitempty"`
	Modules          []string  `json:"modules"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// ModuleEnabled reports whether the tenant has the named feature module
// enabled. A tenant with no module list has everything enabled.
func (t *Tenant) ModuleEnabled(module string) bool {
	if len(t.Modules) == 0 {
		return true
	}
	for _, m := range t.Modules {
		if m == module {
			return true
		}
	}
	return false
}

// CreateRequest holds the fields required to create a new tenant.
type CreateRequest struct {
	Name    string   `json:"name"`
	Slug    string   `json:"slug"`
	Modules []string `json:"modules,omitempty"`
}

// Validate checks that the CreateRequest has all required fields.
func (r *CreateRequest) Validate() error {
	if r.Name == "" {
		return errors.New("name is required")
	}
	if r.Slug == "" {
		return errors.New("slug is required")
	}
	return nil
}

// SuspendRequest holds the operator-supplied reason for a suspension.
type SuspendRequest struct {
	Reason string `json:"reason"`
}

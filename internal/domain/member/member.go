// Package member defines a tenant's own people records. A Member is tracked
// by the tenant and is distinct from staff membership; the same person may
// hold both when they are staff and a tracked member at once.
package member

import (
	"time"

	"github.com/ensembleapp/ensemble/internal/domain"
)

// Status is the lifecycle state of a member record.
type Status string

const (
	StatusActive   Status = "active"
	StatusArchived Status = "archived"
	// StatusBlocked denies session continuation even when the member's
	// credential is otherwise valid.
	StatusBlocked Status = "blocked"
)

// Member is a person tracked by a tenant.
type Member struct {
	ID          string    `json:"id"`
	TenantID    string    `json:"tenant_id"`
	PrincipalID string    `json:"principal_id,omitempty"` // set when the member can sign in
	DisplayName string    `json:"display_name"`
	Email       string    `json:"email,omitempty"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// SessionError reports why the member may not continue a session, or nil
// for an active record. A blocked record yields domain.ErrAccountBlocked;
// any other inactive state is a plain permission denial.
func (m *Member) SessionError() error {
	switch m.Status {
	case StatusActive:
		return nil
	case StatusBlocked:
		return domain.ErrAccountBlocked
	default:
		return domain.Forbidden("member record is " + string(m.Status))
	}
}

// Package notification defines the in-app notification model. Member and
// admin notifications are two disjoint pools sharing one shape; their
// recipients and read-state lifecycles are independent.
package notification

import "time"

// Category tags a notification for iconography and filtering.
type Category string

const (
	CategoryEvent        Category = "event"
	CategoryMeeting      Category = "meeting"
	CategoryChoir        Category = "choir"
	CategoryRole         Category = "role"
	CategoryAnnouncement Category = "announcement"
	CategoryMember       Category = "member"
	CategoryInfo         Category = "info"
)

// Content is the payload of one logical notification before fan-out.
type Content struct {
	Title    string   `json:"title"`
	Message  string   `json:"message"`
	Category Category `json:"category"`
	Link     string   `json:"link,omitempty"` // optional deep link
}

// MemberNotification targets a tenant member record.
type MemberNotification struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenant_id"`
	MemberID  string    `json:"member_id"`
	Content   Content   `json:"content"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

// AdminNotification targets a principal holding a tenant admin membership.
type AdminNotification struct {
	ID          string    `json:"id"`
	TenantID    string    `json:"tenant_id"`
	PrincipalID string    `json:"principal_id"`
	Content     Content   `json:"content"`
	Read        bool      `json:"read"`
	CreatedAt   time.Time `json:"created_at"`
}

// UnreadCount is the per-pool unread tally returned by the HTTP surface.
type UnreadCount struct {
	Unread int `json:"unread"`
}

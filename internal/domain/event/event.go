// Package event defines the event domain model as seen by the reminder and
// notification core. Full event CRUD lives behind the HTTP collaborator
// surface and is out of scope here.
package event

import "time"

// Status is the lifecycle state of an event.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusCancelled Status = "cancelled"
	StatusArchived  Status = "archived"
)

// Event is a time-boxed, reminder-eligible entity.
type Event struct {
	ID       string    `json:"id"`
	TenantID string    `json:"tenant_id"`
	Title    string    `json:"title"`
	Location string    `json:"location,omitempty"`
	StartsAt time.Time `json:"starts_at"`
	Status   Status    `json:"status"`
	// ReminderSentAt transitions from nil to non-nil at most once; once set
	// the event is never reminded again.
	ReminderSentAt *time.Time `json:"reminder_sent_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// ReminderEligible reports whether the event may still receive its one-time
// reminder.
func (e *Event) ReminderEligible() bool {
	return e.Status == StatusScheduled && e.ReminderSentAt == nil
}

// Registrant is one signed-up attendee of an event.
type Registrant struct {
	MemberID    string `json:"member_id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email,omitempty"`
}

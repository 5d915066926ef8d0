// Package meeting defines the meeting domain model as seen by the reminder
// and notification core.
package meeting

import "time"

// Status is the lifecycle state of a meeting.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusCancelled Status = "cancelled"
	StatusArchived  Status = "archived"
)

// Meeting is a time-boxed, reminder-eligible entity.
type Meeting struct {
	ID       string    `json:"id"`
	TenantID string    `json:"tenant_id"`
	Title    string    `json:"title"`
	Location string    `json:"location,omitempty"`
	StartsAt time.Time `json:"starts_at"`
	Status   Status    `json:"status"`
	// ReminderSentAt transitions from nil to non-nil at most once.
	ReminderSentAt *time.Time `json:"reminder_sent_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// ReminderEligible reports whether the meeting may still receive its
// one-time reminder.
func (m *Meeting) ReminderEligible() bool {
	return m.Status == StatusScheduled && m.ReminderSentAt == nil
}

// Participant is one invited attendee of a meeting. Absent participants are
// excluded from reminders; the rest are resolved to active members with an
// email address.
type Participant struct {
	MemberID    string `json:"member_id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email,omitempty"`
	Absent      bool   `json:"absent"`
}

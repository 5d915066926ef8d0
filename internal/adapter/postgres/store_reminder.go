package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/ensembleapp/ensemble/internal/domain/event"
	"github.com/ensembleapp/ensemble/internal/domain/meeting"
)

// The due scans run across all tenants; reminders are a platform job.
// The Mark* writes re-check reminder_sent_at IS NULL so that a row selected
// by two overlapping runs is still marked exactly once.

func (s *Store) ListEventsDueForReminder(ctx context.Context, from, to time.Time) ([]event.Event, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, tenant_id, title, COALESCE(location, ''), starts_at, status, reminder_sent_at, created_at, updated_at
		 FROM events
		 WHERE status = $1 AND reminder_sent_at IS NULL AND starts_at BETWEEN $2 AND $3
		 ORDER BY starts_at ASC`,
		string(event.StatusScheduled), from, to)
	if err != nil {
		return nil, fmt.Errorf("list events due for reminder: %w", err)
	}
	defer rows.Close()

	var out []event.Event
	for rows.Next() {
		var e event.Event
		var status string
		if err := rows.Scan(&e.ID, &e.TenantID, &e.Title, &e.Location, &e.StartsAt, &status,
			&e.ReminderSentAt, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.Status = event.Status(status)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) ListEventRegistrants(ctx context.Context, eventID string) ([]event.Registrant, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT m.id, m.display_name, COALESCE(m.email, '')
		 FROM event_registrations r
		 JOIN members m ON m.id = r.member_id
		 WHERE r.event_id = $1
		 ORDER BY m.display_name ASC`, eventID)
	if err != nil {
		return nil, fmt.Errorf("list event registrants: %w", err)
	}
	defer rows.Close()

	var out []event.Registrant
	for rows.Next() {
		var r event.Registrant
		if err := rows.Scan(&r.MemberID, &r.DisplayName, &r.Email); err != nil {
			return nil, fmt.Errorf("scan registrant: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) MarkEventReminded(ctx context.Context, eventID string, at time.Time) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE events SET reminder_sent_at = $2, updated_at = now()
		 WHERE id = $1 AND reminder_sent_at IS NULL`,
		eventID, at)
	if err != nil {
		return false, fmt.Errorf("mark event reminded %s: %w", eventID, err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Store) ListMeetingsDueForReminder(ctx context.Context, from, to time.Time) ([]meeting.Meeting, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, tenant_id, title, COALESCE(location, ''), starts_at, status, reminder_sent_at, created_at, updated_at
		 FROM meetings
		 WHERE status = $1 AND reminder_sent_at IS NULL AND starts_at BETWEEN $2 AND $3
		 ORDER BY starts_at ASC`,
		string(meeting.StatusScheduled), from, to)
	if err != nil {
		return nil, fmt.Errorf("list meetings due for reminder: %w", err)
	}
	defer rows.Close()

	var out []meeting.Meeting
	for rows.Next() {
		var m meeting.Meeting
		var status string
		if err := rows.Scan(&m.ID, &m.TenantID, &m.Title, &m.Location, &m.StartsAt, &status,
			&m.ReminderSentAt, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan meeting: %w", err)
		}
		m.Status = meeting.Status(status)
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) ListMeetingParticipants(ctx context.Context, meetingID string) ([]meeting.Participant, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT m.id, m.display_name, COALESCE(m.email, ''), p.absent
		 FROM meeting_participants p
		 JOIN members m ON m.id = p.member_id
		 WHERE p.meeting_id = $1 AND m.status = 'active'
		 ORDER BY m.display_name ASC`, meetingID)
	if err != nil {
		return nil, fmt.Errorf("list meeting participants: %w", err)
	}
	defer rows.Close()

	var out []meeting.Participant
	for rows.Next() {
		var p meeting.Participant
		if err := rows.Scan(&p.MemberID, &p.DisplayName, &p.Email, &p.Absent); err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) MarkMeetingReminded(ctx context.Context, meetingID string, at time.Time) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE meetings SET reminder_sent_at = $2, updated_at = now()
		 WHERE id = $1 AND reminder_sent_at IS NULL`,
		meetingID, at)
	if err != nil {
		return false, fmt.Errorf("mark meeting reminded %s: %w", meetingID, err)
	}
	return tag.RowsAffected() > 0, nil
}

// TryBeginReminderRun claims the daily run. The primary key on run_date makes
// the claim race-free across instances.
func (s *Store) TryBeginReminderRun(ctx context.Context, day string) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO reminder_runs (run_date) VALUES ($1) ON CONFLICT (run_date) DO NOTHING`, day)
	if err != nil {
		return false, fmt.Errorf("begin reminder run %s: %w", day, err)
	}
	return tag.RowsAffected() > 0, nil
}

package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/ensembleapp/ensemble/internal/adapter/otel"
	"github.com/ensembleapp/ensemble/internal/config"
	"github.com/ensembleapp/ensemble/internal/domain/event"
	"github.com/ensembleapp/ensemble/internal/domain/meeting"
	"github.com/ensembleapp/ensemble/internal/domain/notification"
	"github.com/ensembleapp/ensemble/internal/domain/tenant"
	"github.com/ensembleapp/ensemble/internal/port/database"
	"github.com/ensembleapp/ensemble/internal/port/mailer"
)

// ReminderService runs the daily reminder job: once per day at a fixed local
// time it selects events and meetings starting inside the lookahead window,
// emails their audiences, posts an in-app summary to the tenant's admins,
// and marks each entity as reminded exactly once.
//
// Marking happens after the best-effort delivery attempts but is not
// contingent on their success: re-reminding a whole day's batch on the next
// run (mass duplicates) is the greater risk, so a partially failed email
// batch degrades to a few missed reminders instead.
type ReminderService struct {
	store    database.Store
	mail     mailer.Mailer
	notifier *NotificationService
	metrics  *otel.Metrics
	cfg      config.Reminder
	loc      *time.Location
	cron     *cron.Cron

	// now is stubbed in tests.
	now func() time.Time
}

// NewReminderService creates a ReminderService. The timezone in cfg must
// already be validated by config loading.
func NewReminderService(store database.Store, mail mailer.Mailer, notifier *NotificationService, metrics *otel.Metrics, cfg config.Reminder) (*ReminderService, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("reminder timezone: %w", err)
	}
	return &ReminderService{
		store:    store,
		mail:     mail,
		notifier: notifier,
		metrics:  metrics,
		cfg:      cfg,
		loc:      loc,
		now:      time.Now,
	}, nil
}

// Start schedules the daily run with a wall-clock cron in the configured
// timezone.
func (s *ReminderService) Start() error {
	s.cron = cron.New(cron.WithLocation(s.loc))
	spec := fmt.Sprintf("%d %d * * *", s.cfg.Minute, s.cfg.Hour)
	if _, err := s.cron.AddFunc(spec, func() {
		if err := s.RunOnce(context.Background()); err != nil {
			slog.Error("reminder run failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("schedule reminder job: %w", err)
	}
	s.cron.Start()
	slog.Info("reminder scheduler started",
		"at", fmt.Sprintf("%02d:%02d", s.cfg.Hour, s.cfg.Minute), "tz", s.cfg.Timezone)
	return nil
}

// Stop halts the scheduler and waits for a running job to finish.
func (s *ReminderService) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
}

// RunOnce executes one reminder run: claim the day, then process the events
// and meetings passes concurrently. A second instance (or an overlapping
// redeploy) claiming the same day skips without error.
func (s *ReminderService) RunOnce(ctx context.Context) error {
	now := s.now().UTC()
	day := now.In(s.loc).Format("2006-01-02")

	claimed, err := s.store.TryBeginReminderRun(ctx, day)
	if err != nil {
		return fmt.Errorf("claim reminder run: %w", err)
	}
	if !claimed {
		slog.Info("reminder run already claimed", "day", day)
		return nil
	}

	from := now.Add(s.cfg.WindowStart)
	to := now.Add(s.cfg.WindowEnd)
	slog.Info("reminder run started", "day", day, "from", from, "to", to)

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.remindEvents(gctx, now, from, to) })
	g.Go(func() error { return s.remindMeetings(gctx, now, from, to) })
	err = g.Wait()
	s.metrics.RecordRunDuration(ctx, time.Since(start).Seconds())
	return err
}

// remindEvents processes all events whose start time falls in the window.
// A failure on one event is logged and does not abort the batch.
func (s *ReminderService) remindEvents(ctx context.Context, now, from, to time.Time) error {
	events, err := s.store.ListEventsDueForReminder(ctx, from, to)
	if err != nil {
		return fmt.Errorf("list due events: %w", err)
	}

	for i := range events {
		e := &events[i]
		if err := s.remindEvent(ctx, now, e); err != nil {
			s.metrics.AddReminderFailure(ctx, "event")
			slog.Error("event reminder failed", "event_id", e.ID, "error", err)
		}
	}
	return nil
}

func (s *ReminderService) remindEvent(ctx context.Context, now time.Time, e *event.Event) error {
	if !e.ReminderEligible() {
		return nil
	}

	regs, err := s.store.ListEventRegistrants(ctx, e.ID)
	if err != nil {
		return fmt.Errorf("list registrants: %w", err)
	}

	subject, body := eventReminderEmail(e, s.loc)
	reminded := 0
	for _, r := range regs {
		if r.Email == "" {
			continue
		}
		if err := s.mail.Send(ctx, r.Email, subject, body); err != nil {
			slog.Warn("event reminder email failed",
				"event_id", e.ID, "to", r.Email, "error", err)
			continue
		}
		reminded++
	}

	s.notifier.NotifyAllAdmins(ctx, e.TenantID, "", notification.Content{
		Title:    "Event reminders sent",
		Message:  fmt.Sprintf("%q: %d of %d registrants reminded", e.Title, reminded, len(regs)),
		Category: notification.CategoryEvent,
		Link:     "/events/" + e.ID,
	}, tenant.ModuleEvents)

	marked, err := s.store.MarkEventReminded(ctx, e.ID, now)
	if err != nil {
		return fmt.Errorf("mark event reminded: %w", err)
	}
	if !marked {
		slog.Warn("event was already marked reminded", "event_id", e.ID)
		return nil
	}
	s.metrics.AddRemindersSent(ctx, "event")
	return nil
}

// remindMeetings processes all meetings whose start time falls in the
// window, with the same failure isolation as events.
func (s *ReminderService) remindMeetings(ctx context.Context, now, from, to time.Time) error {
	meetings, err := s.store.ListMeetingsDueForReminder(ctx, from, to)
	if err != nil {
		return fmt.Errorf("list due meetings: %w", err)
	}

	for i := range meetings {
		m := &meetings[i]
		if err := s.remindMeeting(ctx, now, m); err != nil {
			s.metrics.AddReminderFailure(ctx, "meeting")
			slog.Error("meeting reminder failed", "meeting_id", m.ID, "error", err)
		}
	}
	return nil
}

func (s *ReminderService) remindMeeting(ctx context.Context, now time.Time, m *meeting.Meeting) error {
	if !m.ReminderEligible() {
		return nil
	}

	parts, err := s.store.ListMeetingParticipants(ctx, m.ID)
	if err != nil {
		return fmt.Errorf("list participants: %w", err)
	}

	subject, body := meetingReminderEmail(m, s.loc)
	reminded := 0
	invited := 0
	for _, p := range parts {
		if p.Absent {
			continue
		}
		invited++
		if p.Email == "" {
			continue
		}
		if err := s.mail.Send(ctx, p.Email, subject, body); err != nil {
			slog.Warn("meeting reminder email failed",
				"meeting_id", m.ID, "to", p.Email, "error", err)
			continue
		}
		reminded++
	}

	s.notifier.NotifyAllAdmins(ctx, m.TenantID, "", notification.Content{
		Title:    "Meeting reminders sent",
		Message:  fmt.Sprintf("%q: %d of %d participants reminded", m.Title, reminded, invited),
		Category: notification.CategoryMeeting,
		Link:     "/meetings/" + m.ID,
	}, tenant.ModuleMeetings)

	marked, err := s.store.MarkMeetingReminded(ctx, m.ID, now)
	if err != nil {
		return fmt.Errorf("mark meeting reminded: %w", err)
	}
	if !marked {
		slog.Warn("meeting was already marked reminded", "meeting_id", m.ID)
		return nil
	}
	s.metrics.AddRemindersSent(ctx, "meeting")
	return nil
}

func eventReminderEmail(e *event.Event, loc *time.Location) (subject, body string) {
	when := e.StartsAt.In(loc).Format("Monday, 2 January 2006 at 15:04")
	subject = "Reminder: " + e.Title
	body = fmt.Sprintf(
		"<p>This is a reminder for <strong>%s</strong>.</p><p>Starts %s.</p>",
		e.Title, when)
	if e.Location != "" {
		body += fmt.Sprintf("<p>Location: %s</p>", e.Location)
	}
	return subject, body
}

func meetingReminderEmail(m *meeting.Meeting, loc *time.Location) (subject, body string) {
	when := m.StartsAt.In(loc).Format("Monday, 2 January 2006 at 15:04")
	subject = "Reminder: " + m.Title
	body = fmt.Sprintf(
		"<p>This is a reminder for the meeting <strong>%s</strong>.</p><p>Starts %s.</p>",
		m.Title, when)
	if m.Location != "" {
		body += fmt.Sprintf("<p>Location: %s</p>", m.Location)
	}
	return subject, body
}

package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "ensemble"

// Metrics holds all Ensemble metric instruments. A nil *Metrics is valid and
// records nothing, so call sites never need to branch.
type Metrics struct {
	NotificationsCreated metric.Int64Counter
	RemindersSent        metric.Int64Counter
	ReminderFailures     metric.Int64Counter
	ReminderRunDuration  metric.Float64Histogram
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.NotificationsCreated, err = meter.Int64Counter("ensemble.notifications.created",
		metric.WithDescription("Number of in-app notifications written"))
	if err != nil {
		return nil, err
	}

	m.RemindersSent, err = meter.Int64Counter("ensemble.reminders.sent",
		metric.WithDescription("Number of entities reminded"))
	if err != nil {
		return nil, err
	}

	m.ReminderFailures, err = meter.Int64Counter("ensemble.reminders.failed",
		metric.WithDescription("Number of entities whose reminder processing failed"))
	if err != nil {
		return nil, err
	}

	m.ReminderRunDuration, err = meter.Float64Histogram("ensemble.reminders.run_duration_seconds",
		metric.WithDescription("Daily reminder run duration in seconds"))
	if err != nil {
		return nil, err
	}

	return m, nil
}

// AddNotificationsCreated records n written notifications for the given pool.
func (m *Metrics) AddNotificationsCreated(ctx context.Context, n int, pool string) {
	if m == nil {
		return
	}
	m.NotificationsCreated.Add(ctx, int64(n),
		metric.WithAttributes(attribute.String("pool", pool)))
}

// AddRemindersSent records one reminded entity of the given kind.
func (m *Metrics) AddRemindersSent(ctx context.Context, kind string) {
	if m == nil {
		return
	}
	m.RemindersSent.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

// AddReminderFailure records one failed entity of the given kind.
func (m *Metrics) AddReminderFailure(ctx context.Context, kind string) {
	if m == nil {
		return
	}
	m.ReminderFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

// RecordRunDuration records the duration of one reminder run.
func (m *Metrics) RecordRunDuration(ctx context.Context, seconds float64) {
	if m == nil {
		return
	}
	m.ReminderRunDuration.Record(ctx, seconds)
}

package queue

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/viadorer/orchestrator-sub001/internal/services"
)

const minRecurrenceInterval = time.Minute

// Recurrence describes how a recurring task advances. Supported forms are
// "hourly", "daily", "weekly", "every:<duration>" and standard five-field cron
// expressions.
type Recurrence struct {
	raw      string
	interval time.Duration
	schedule cron.Schedule
}

// ParseRecurrence validates a cadence descriptor.
func ParseRecurrence(value string) (Recurrence, error) {
	raw := strings.TrimSpace(value)
	r := Recurrence{raw: raw}
	switch strings.ToLower(raw) {
	case "":
		return Recurrence{}, fmt.Errorf("%w: empty recurrence", services.ErrValidation)
	case "hourly":
		r.interval = time.Hour
		return r, nil
	case "daily":
		r.interval = 24 * time.Hour
		return r, nil
	case "weekly":
		r.interval = 7 * 24 * time.Hour
		return r, nil
	}
	if rest, ok := strings.CutPrefix(strings.ToLower(raw), "every:"); ok {
		d, err := time.ParseDuration(strings.TrimSpace(rest))
		if err != nil {
			return Recurrence{}, fmt.Errorf("%w: recurrence %q: %v", services.ErrValidation, raw, err)
		}
		if d < minRecurrenceInterval {
			return Recurrence{}, fmt.Errorf("%w: recurrence %q shorter than %s", services.ErrValidation, raw, minRecurrenceInterval)
		}
		r.interval = d
		return r, nil
	}
	schedule, err := cron.ParseStandard(raw)
	if err != nil {
		return Recurrence{}, fmt.Errorf("%w: recurrence %q: %v", services.ErrValidation, raw, err)
	}
	r.schedule = schedule
	return r, nil
}

// String returns the original descriptor.
func (r Recurrence) String() string {
	return r.raw
}

// Next returns the next occurrence strictly after both scheduledFor and
// completedAt. Cron expressions are evaluated in loc.
func (r Recurrence) Next(scheduledFor, completedAt time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	if r.schedule != nil {
		base := scheduledFor
		if completedAt.After(base) {
			base = completedAt
		}
		return r.schedule.Next(base.In(loc)).UTC()
	}
	if r.interval <= 0 {
		return time.Time{}
	}
	next := scheduledFor.Add(r.interval)
	for !next.After(completedAt) {
		next = next.Add(r.interval)
	}
	return next.UTC()
}

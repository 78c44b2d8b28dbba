// Package availability generates bookable time slots for a day, marking each
// slot against the working-hours window, the exclusion list, the current
// time, local appointments and remote calendar events.
package availability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"clinic-service/internal/gcal"
	"clinic-service/internal/store"
)

// Reason explains why a slot is unavailable. Checks run in a fixed order and
// the first failure wins.
type Reason string

const (
	ReasonInsufficientDuration Reason = "insufficient-duration"
	ReasonBlocked              Reason = "blocked"
	ReasonPast                 Reason = "past"
	ReasonAppointmentConflict  Reason = "appointment-conflict"
	ReasonCalendarConflict     Reason = "calendar-conflict"
)

// Slot is one candidate appointment window. Slots are computed fresh on
// every query and never persisted.
type Slot struct {
	Start        time.Time `json:"start"`
	DurationMins int       `json:"duration_minutes"`
	Available    bool      `json:"available"`
	Reason       Reason    `json:"unavailable_reason,omitempty"`
}

// Config is the working-hours window the slots are generated inside.
type Config struct {
	WorkStart    string   `json:"work_start"`   // "HH:MM"
	WorkEnd      string   `json:"work_end"`     // "HH:MM"
	IntervalMins int      `json:"interval_minutes"`
	Excluded     []string `json:"excluded,omitempty"` // "HH:MM" clock times
}

// DefaultConfig matches the clinic's standard working day.
func DefaultConfig() Config {
	return Config{WorkStart: "09:00", WorkEnd: "18:00", IntervalMins: 30}
}

// AppointmentSource provides the local appointments for a day.
type AppointmentSource interface {
	FindByDate(ctx context.Context, userID string, day time.Time) ([]store.Appointment, error)
}

// EventSource provides the remote calendar events for a range.
type EventSource interface {
	ListEvents(ctx context.Context, userID string, q gcal.ListQuery) ([]gcal.Event, error)
}

// Engine computes slot availability from both data sources.
type Engine struct {
	appointments AppointmentSource
	events       EventSource
	now          func() time.Time
}

func New(appointments AppointmentSource, events EventSource) *Engine {
	return &Engine{appointments: appointments, events: events, now: time.Now}
}

// Slots generates the day's candidate slots and annotates each with its
// availability. Conflict data is best effort: when either source fails the
// generated slots come back without conflict annotations so the booking UI
// is never blocked by a fetch error. A not-connected calendar only skips the
// remote check.
func (e *Engine) Slots(ctx context.Context, userID string, day time.Time, durationMins int, cfg Config) ([]Slot, error) {
	if cfg.IntervalMins <= 0 {
		return nil, fmt.Errorf("interval must be positive")
	}
	if durationMins <= 0 {
		return nil, fmt.Errorf("duration must be positive")
	}
	slots, err := e.generate(day, durationMins, cfg)
	if err != nil {
		return nil, err
	}

	degraded := false

	appointments, err := e.appointments.FindByDate(ctx, userID, day)
	if err != nil {
		degraded = true
	}

	var events []gcal.Event
	if !degraded {
		dayStart := startOfDay(day)
		events, err = e.events.ListEvents(ctx, userID, gcal.ListQuery{
			TimeMin: dayStart,
			TimeMax: dayStart.Add(24 * time.Hour),
		})
		if err != nil {
			if errors.Is(err, gcal.ErrNotConnected) {
				events = nil
			} else {
				degraded = true
			}
		}
	}
	if degraded {
		return slots, nil
	}

	duration := time.Duration(durationMins) * time.Minute
	for i := range slots {
		if !slots[i].Available {
			continue
		}
		slotEnd := slots[i].Start.Add(duration)
		if conflictsAppointment(slots[i].Start, slotEnd, appointments) {
			slots[i].Available = false
			slots[i].Reason = ReasonAppointmentConflict
			continue
		}
		if conflictsEvent(slots[i].Start, slotEnd, events) {
			slots[i].Available = false
			slots[i].Reason = ReasonCalendarConflict
		}
	}
	return slots, nil
}

// generate steps through the working window and applies the source-free
// checks: window fit, exclusion list, past time.
func (e *Engine) generate(day time.Time, durationMins int, cfg Config) ([]Slot, error) {
	workStart, err := atClockTime(day, cfg.WorkStart)
	if err != nil {
		return nil, fmt.Errorf("invalid work start: %w", err)
	}
	workEnd, err := atClockTime(day, cfg.WorkEnd)
	if err != nil {
		return nil, fmt.Errorf("invalid work end: %w", err)
	}
	if !workEnd.After(workStart) {
		return nil, fmt.Errorf("work end must be after work start")
	}

	excluded := make(map[string]bool, len(cfg.Excluded))
	for _, hhmm := range cfg.Excluded {
		excluded[hhmm] = true
	}

	interval := time.Duration(cfg.IntervalMins) * time.Minute
	duration := time.Duration(durationMins) * time.Minute
	now := e.now()

	var slots []Slot
	for start := workStart; start.Before(workEnd); start = start.Add(interval) {
		slot := Slot{Start: start, DurationMins: durationMins, Available: true}
		switch {
		case start.Add(duration).After(workEnd):
			slot.Available = false
			slot.Reason = ReasonInsufficientDuration
		case excluded[start.Format("15:04")]:
			slot.Available = false
			slot.Reason = ReasonBlocked
		case !start.After(now):
			slot.Available = false
			slot.Reason = ReasonPast
		}
		slots = append(slots, slot)
	}
	return slots, nil
}

// overlaps is the half-open interval test: touching boundaries do not
// conflict.
func overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}

func conflictsAppointment(start, end time.Time, appointments []store.Appointment) bool {
	for _, a := range appointments {
		if a.Status == store.StatusCancelled {
			continue
		}
		if overlaps(start, end, a.ScheduledAt, a.End()) {
			return true
		}
	}
	return false
}

func conflictsEvent(start, end time.Time, events []gcal.Event) bool {
	for _, ev := range events {
		if ev.Status == "cancelled" {
			continue
		}
		if ev.Start.IsZero() || ev.End.IsZero() {
			continue
		}
		if overlaps(start, end, ev.Start, ev.End) {
			return true
		}
	}
	return false
}

func startOfDay(day time.Time) time.Time {
	year, month, d := day.Date()
	return time.Date(year, month, d, 0, 0, 0, 0, day.Location())
}

// atClockTime places an "HH:MM" clock time on the given day.
func atClockTime(day time.Time, hhmm string) (time.Time, error) {
	if len(hhmm) < 5 {
		return time.Time{}, fmt.Errorf("invalid time string: %s", hhmm)
	}
	tod, err := time.Parse("15:04", hhmm[:5])
	if err != nil {
		return time.Time{}, err
	}
	year, month, d := day.Date()
	return time.Date(year, month, d, tod.Hour(), tod.Minute(), 0, 0, day.Location()), nil
}

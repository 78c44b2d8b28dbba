// Package sync reconciles local appointments with Google Calendar events.
package sync

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"clinic-service/internal/gcal"
	"clinic-service/internal/store"
)

// batchConcurrency bounds simultaneous event inserts per batch to stay under
// the provider's rate limits.
const batchConcurrency = 3

// EventCreator is the slice of the calendar gateway the syncer needs.
type EventCreator interface {
	CreateEvent(ctx context.Context, userID string, p gcal.EventPayload) (*gcal.Event, error)
}

// AppointmentStore is the local persistence the syncer depends on.
type AppointmentStore interface {
	FindUnsynced(ctx context.Context, userID string) ([]store.Appointment, error)
	SetEventLink(ctx context.Context, appointmentID, eventID string) error
	SyncCounts(ctx context.Context, userID string) (synced, unsynced int, err error)
}

// Result reports the outcome of syncing one appointment.
type Result struct {
	AppointmentID string `json:"appointmentId"`
	EventID       string `json:"eventId,omitempty"`
	Success       bool   `json:"success"`
	Error         string `json:"error,omitempty"`
}

// BatchResult aggregates one SyncAllUnsynced run.
type BatchResult struct {
	Results        []Result `json:"results"`
	SyncedCount    int      `json:"syncedCount"`
	FailedCount    int      `json:"failedCount"`
	TotalProcessed int      `json:"totalProcessed"`
}

// Syncer maps appointments onto calendar events and records the linkage.
type Syncer struct {
	gateway      EventCreator
	appointments AppointmentStore
	timezone     string
	now          func() time.Time

	history *history
}

func New(gateway EventCreator, appointments AppointmentStore, timezone string) *Syncer {
	return &Syncer{
		gateway:      gateway,
		appointments: appointments,
		timezone:     timezone,
		now:          time.Now,
		history:      newHistory(),
	}
}

// payload builds the calendar event for an appointment. The client email,
// when present, is invited as an attendee.
func (s *Syncer) payload(a store.Appointment) gcal.EventPayload {
	name := a.ClientName
	if name == "" {
		name = "Client"
	}
	p := gcal.EventPayload{
		Summary:     "Appointment - " + name,
		Description: a.Notes,
		Location:    a.ClientAddress,
		Start:       a.ScheduledAt,
		End:         a.End(),
		TimeZone:    s.timezone,
	}
	if a.ClientEmail != "" {
		p.Attendees = []string{a.ClientEmail}
	}
	return p
}

// SyncOne creates the remote event for one appointment and, only after the
// create succeeds, records the event id locally. A failed create leaves the
// appointment untouched.
func (s *Syncer) SyncOne(ctx context.Context, a store.Appointment) Result {
	op := s.history.begin(KindSingle, 1, s.now())
	res := s.syncOne(ctx, a)
	succeeded := 0
	if res.Success {
		succeeded = 1
	}
	s.history.finish(op, 1, succeeded, res.Error, s.now())
	return res
}

func (s *Syncer) syncOne(ctx context.Context, a store.Appointment) Result {
	event, err := s.gateway.CreateEvent(ctx, a.UserID, s.payload(a))
	if err != nil {
		return Result{AppointmentID: a.ID, Error: err.Error()}
	}
	if err := s.appointments.SetEventLink(ctx, a.ID, event.ID); err != nil {
		return Result{
			AppointmentID: a.ID,
			EventID:       event.ID,
			Error:         fmt.Sprintf("event created but link not persisted: %v", err),
		}
	}
	return Result{AppointmentID: a.ID, EventID: event.ID, Success: true}
}

// SyncAllUnsynced syncs every appointment that has no linked remote event.
// Per-item failures are isolated into the results; only a store failure
// aborts the batch. Item results keep the input order even though execution
// is concurrent. A second run with no intervening changes finds an empty
// candidate set, so no duplicate events are created.
func (s *Syncer) SyncAllUnsynced(ctx context.Context, userID string) (*BatchResult, error) {
	startedAt := s.now()
	appointments, err := s.appointments.FindUnsynced(ctx, userID)
	if err != nil {
		op := s.history.begin(KindBatch, 0, startedAt)
		s.history.finish(op, 0, 0, err.Error(), s.now())
		return nil, fmt.Errorf("load unsynced appointments: %w", err)
	}

	op := s.history.begin(KindBatch, len(appointments), startedAt)
	if len(appointments) == 0 {
		s.history.finish(op, 0, 0, "", s.now())
		return &BatchResult{Results: []Result{}}, nil
	}

	results := make([]Result, len(appointments))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(batchConcurrency)
	for i, a := range appointments {
		g.Go(func() error {
			results[i] = s.syncOne(gctx, a)
			return nil
		})
	}
	// Goroutines never return errors; per-item failures live in results.
	_ = g.Wait()

	batch := &BatchResult{Results: results, TotalProcessed: len(results)}
	for _, r := range results {
		if r.Success {
			batch.SyncedCount++
		} else {
			batch.FailedCount++
		}
	}
	s.history.finish(op, batch.TotalProcessed, batch.SyncedCount, "", s.now())
	return batch, nil
}

// StatusReport describes the current sync state of an account.
type StatusReport struct {
	EventsInSync    int         `json:"eventsInSync"`
	EventsOutOfSync int         `json:"eventsOutOfSync"`
	TotalEvents     int         `json:"totalEvents"`
	History         []Operation `json:"history"`
	LastSyncCheck   time.Time   `json:"lastSyncCheck"`
}

// Status combines store counts with the recent in-memory operation history.
func (s *Syncer) Status(ctx context.Context, userID string) (*StatusReport, error) {
	synced, unsynced, err := s.appointments.SyncCounts(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("sync counts: %w", err)
	}
	return &StatusReport{
		EventsInSync:    synced,
		EventsOutOfSync: unsynced,
		TotalEvents:     synced + unsynced,
		History:         s.history.recent(),
		LastSyncCheck:   s.now(),
	}, nil
}

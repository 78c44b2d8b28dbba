package sync

import (
	"context"
	"errors"
	"fmt"
	stdsync "sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinic-service/internal/gcal"
	"clinic-service/internal/store"
)

type fakeGateway struct {
	mu       stdsync.Mutex
	calls    int
	payloads []gcal.EventPayload
	failFor  map[string]error // keyed by event summary
	nextID   int
}

func (f *fakeGateway) CreateEvent(ctx context.Context, userID string, p gcal.EventPayload) (*gcal.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.payloads = append(f.payloads, p)
	if err, ok := f.failFor[p.Summary]; ok {
		return nil, err
	}
	f.nextID++
	return &gcal.Event{ID: fmt.Sprintf("evt-%d", f.nextID), Summary: p.Summary, Start: p.Start, End: p.End}, nil
}

type fakeAppointments struct {
	mu          stdsync.Mutex
	byID        map[string]*store.Appointment
	order       []string
	unsyncedErr error
	linkErr     error
	linkCalls   int
}

func newFakeAppointments(appointments ...store.Appointment) *fakeAppointments {
	f := &fakeAppointments{byID: make(map[string]*store.Appointment)}
	for i := range appointments {
		a := appointments[i]
		f.byID[a.ID] = &a
		f.order = append(f.order, a.ID)
	}
	return f
}

func (f *fakeAppointments) FindUnsynced(ctx context.Context, userID string) ([]store.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.unsyncedErr != nil {
		return nil, f.unsyncedErr
	}
	var out []store.Appointment
	for _, id := range f.order {
		a := f.byID[id]
		if a.UserID == userID && a.GoogleEventID == nil && a.Status != store.StatusCancelled {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (f *fakeAppointments) SetEventLink(ctx context.Context, appointmentID, eventID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.linkCalls++
	if f.linkErr != nil {
		return f.linkErr
	}
	a, ok := f.byID[appointmentID]
	if !ok {
		return store.ErrNotFound
	}
	a.GoogleEventID = &eventID
	a.CalendarSynced = true
	return nil
}

func (f *fakeAppointments) SyncCounts(ctx context.Context, userID string) (int, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var synced, unsynced int
	for _, a := range f.byID {
		if a.UserID != userID {
			continue
		}
		if a.GoogleEventID != nil {
			synced++
		} else if a.Status != store.StatusCancelled {
			unsynced++
		}
	}
	return synced, unsynced, nil
}

func appointment(id, clientName string, at time.Time) store.Appointment {
	return store.Appointment{
		ID:            id,
		UserID:        "u1",
		ClientID:      "c-" + id,
		ProcedureID:   "p-" + id,
		ScheduledAt:   at,
		DurationMins:  60,
		Status:        store.StatusScheduled,
		Notes:         "notes for " + id,
		ClientName:    clientName,
		ClientEmail:   clientName + "@example.com",
		ClientAddress: "12 Clinic St",
	}
}

func TestSyncOneSuccess(t *testing.T) {
	base := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	appointments := newFakeAppointments(appointment("a1", "Jane", base))
	gateway := &fakeGateway{}
	s := New(gateway, appointments, "America/Sao_Paulo")

	res := s.SyncOne(context.Background(), *appointments.byID["a1"])

	require.True(t, res.Success)
	assert.Equal(t, "a1", res.AppointmentID)
	assert.Equal(t, "evt-1", res.EventID)

	linked := appointments.byID["a1"]
	require.NotNil(t, linked.GoogleEventID)
	assert.Equal(t, "evt-1", *linked.GoogleEventID)
	assert.True(t, linked.CalendarSynced)

	require.Len(t, gateway.payloads, 1)
	p := gateway.payloads[0]
	assert.Equal(t, "Appointment - Jane", p.Summary)
	assert.Equal(t, "notes for a1", p.Description)
	assert.Equal(t, "12 Clinic St", p.Location)
	assert.Equal(t, base, p.Start)
	assert.Equal(t, base.Add(time.Hour), p.End)
	assert.Equal(t, []string{"Jane@example.com"}, p.Attendees)
	assert.Equal(t, "America/Sao_Paulo", p.TimeZone)
}

// A failed create must leave the appointment untouched: the local write
// happens only after the remote call fully succeeds.
func TestSyncOneWriteAfterConfirm(t *testing.T) {
	base := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	appointments := newFakeAppointments(appointment("a1", "Jane", base))
	gateway := &fakeGateway{failFor: map[string]error{
		"Appointment - Jane": &gcal.GatewayError{Op: "create event", Code: 400, Err: errors.New("invalid time range")},
	}}
	s := New(gateway, appointments, "UTC")

	res := s.SyncOne(context.Background(), *appointments.byID["a1"])

	require.False(t, res.Success)
	assert.Equal(t, "a1", res.AppointmentID)
	assert.Empty(t, res.EventID)
	assert.NotEmpty(t, res.Error)

	untouched := appointments.byID["a1"]
	assert.Nil(t, untouched.GoogleEventID)
	assert.False(t, untouched.CalendarSynced)
	assert.Zero(t, appointments.linkCalls)
}

func TestSyncAllUnsyncedEmpty(t *testing.T) {
	appointments := newFakeAppointments()
	gateway := &fakeGateway{}
	s := New(gateway, appointments, "UTC")

	batch, err := s.SyncAllUnsynced(context.Background(), "u1")

	require.NoError(t, err)
	assert.Empty(t, batch.Results)
	assert.Zero(t, batch.SyncedCount)
	assert.Zero(t, gateway.calls, "no gateway call for an empty candidate set")
}

func TestSyncAllUnsyncedPartialFailure(t *testing.T) {
	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	appointments := newFakeAppointments(
		appointment("a1", "Jane", base),
		appointment("a2", "Maria", base.Add(time.Hour)),
		appointment("a3", "Ana", base.Add(2*time.Hour)),
	)
	gateway := &fakeGateway{failFor: map[string]error{
		"Appointment - Maria": &gcal.GatewayError{Op: "create event", Code: 400, Err: errors.New("validation failed")},
	}}
	s := New(gateway, appointments, "UTC")

	batch, err := s.SyncAllUnsynced(context.Background(), "u1")

	require.NoError(t, err, "per-item failures never abort the batch")
	require.Len(t, batch.Results, 3)
	assert.Equal(t, 2, batch.SyncedCount)
	assert.Equal(t, 1, batch.FailedCount)
	assert.Equal(t, 3, batch.TotalProcessed)

	// Report order matches input order even with concurrent execution.
	assert.Equal(t, "a1", batch.Results[0].AppointmentID)
	assert.Equal(t, "a2", batch.Results[1].AppointmentID)
	assert.Equal(t, "a3", batch.Results[2].AppointmentID)

	var failures int
	for _, r := range batch.Results {
		if !r.Success {
			failures++
			assert.Equal(t, "a2", r.AppointmentID)
			assert.NotEmpty(t, r.Error)
		}
	}
	assert.Equal(t, 1, failures)

	assert.Nil(t, appointments.byID["a2"].GoogleEventID)
	require.NotNil(t, appointments.byID["a1"].GoogleEventID)
	require.NotNil(t, appointments.byID["a3"].GoogleEventID)
}

// Running the batch twice with no intervening changes creates no duplicate
// events: the first run clears the unsynced predicate for every item.
func TestSyncAllUnsyncedIdempotent(t *testing.T) {
	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	appointments := newFakeAppointments(
		appointment("a1", "Jane", base),
		appointment("a2", "Maria", base.Add(time.Hour)),
	)
	gateway := &fakeGateway{}
	s := New(gateway, appointments, "UTC")

	first, err := s.SyncAllUnsynced(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, first.SyncedCount)

	second, err := s.SyncAllUnsynced(context.Background(), "u1")
	require.NoError(t, err)
	assert.Zero(t, second.SyncedCount)
	assert.Empty(t, second.Results)
	assert.Equal(t, 2, gateway.calls, "no additional create calls on the second run")
}

func TestSyncAllUnsyncedStoreFailureAborts(t *testing.T) {
	appointments := newFakeAppointments()
	appointments.unsyncedErr = errors.New("connection refused")
	s := New(&fakeGateway{}, appointments, "UTC")

	_, err := s.SyncAllUnsynced(context.Background(), "u1")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "load unsynced appointments")
}

func TestSyncAllUnsyncedCancelledExcluded(t *testing.T) {
	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	cancelled := appointment("a1", "Jane", base)
	cancelled.Status = store.StatusCancelled
	appointments := newFakeAppointments(cancelled, appointment("a2", "Maria", base.Add(time.Hour)))
	gateway := &fakeGateway{}
	s := New(gateway, appointments, "UTC")

	batch, err := s.SyncAllUnsynced(context.Background(), "u1")

	require.NoError(t, err)
	require.Len(t, batch.Results, 1)
	assert.Equal(t, "a2", batch.Results[0].AppointmentID)
}

func TestStatusReportsCountsAndHistory(t *testing.T) {
	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	appointments := newFakeAppointments(
		appointment("a1", "Jane", base),
		appointment("a2", "Maria", base.Add(time.Hour)),
	)
	s := New(&fakeGateway{}, appointments, "UTC")

	_, err := s.SyncAllUnsynced(context.Background(), "u1")
	require.NoError(t, err)

	report, err := s.Status(context.Background(), "u1")
	require.NoError(t, err)

	assert.Equal(t, 2, report.EventsInSync)
	assert.Zero(t, report.EventsOutOfSync)
	assert.Equal(t, 2, report.TotalEvents)
	require.NotEmpty(t, report.History)

	op := report.History[0]
	assert.Equal(t, KindBatch, op.Kind)
	assert.Equal(t, StatusCompleted, op.Status)
	assert.Equal(t, 2, op.Total)
	assert.Equal(t, 2, op.Succeeded)
	assert.Zero(t, op.Failed)
}

func TestHistoryCapped(t *testing.T) {
	appointments := newFakeAppointments()
	s := New(&fakeGateway{}, appointments, "UTC")

	for range historySize + 5 {
		_, err := s.SyncAllUnsynced(context.Background(), "u1")
		require.NoError(t, err)
	}

	report, err := s.Status(context.Background(), "u1")
	require.NoError(t, err)
	assert.Len(t, report.History, historySize)
}

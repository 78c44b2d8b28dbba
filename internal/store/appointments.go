package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
)

const appointmentCols = `a.id, a.user_id, a.client_id, a.procedure_id, a.scheduled_at, a.duration_minutes,
	a.status, COALESCE(a.notes,''), a.google_event_id, a.calendar_synced, a.created_at, a.updated_at,
	COALESCE(c.name,''), COALESCE(c.email,''), COALESCE(c.address,'')`

func scanAppointment(row interface{ Scan(dest ...any) error }) (Appointment, error) {
	var a Appointment
	err := row.Scan(&a.ID, &a.UserID, &a.ClientID, &a.ProcedureID, &a.ScheduledAt, &a.DurationMins,
		&a.Status, &a.Notes, &a.GoogleEventID, &a.CalendarSynced, &a.CreatedAt, &a.UpdatedAt,
		&a.ClientName, &a.ClientEmail, &a.ClientAddress)
	return a, err
}

func (s *Store) InsertAppointment(ctx context.Context, a *Appointment) error {
	now := time.Now().UTC()
	q := `INSERT INTO appointments
	      (id, user_id, client_id, procedure_id, scheduled_at, duration_minutes, status, notes, calendar_synced, created_at, updated_at)
	      VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6, $7, false, $8, $8) RETURNING id`
	if a.Status == "" {
		a.Status = StatusScheduled
	}
	err := s.DB.QueryRow(ctx, q,
		a.UserID, a.ClientID, a.ProcedureID, a.ScheduledAt.UTC(), a.DurationMins, a.Status, a.Notes, now).Scan(&a.ID)
	if err != nil {
		return err
	}
	a.CreatedAt = now
	a.UpdatedAt = now
	return nil
}

func (s *Store) GetAppointment(ctx context.Context, id string) (*Appointment, error) {
	q := `SELECT ` + appointmentCols + `
	      FROM appointments a LEFT JOIN clients c ON c.id = a.client_id
	      WHERE a.id=$1`
	a, err := scanAppointment(s.DB.QueryRow(ctx, q, id))
	if err != nil {
		return nil, notFound(err, "appointment")
	}
	return &a, nil
}

func (s *Store) ListAppointments(ctx context.Context, userID string, from, to time.Time, filtered bool) ([]Appointment, error) {
	base := `SELECT ` + appointmentCols + `
	      FROM appointments a LEFT JOIN clients c ON c.id = a.client_id
	      WHERE a.user_id=$1`
	var (
		rows pgx.Rows
		err  error
	)
	if filtered {
		rows, err = s.DB.Query(ctx, base+` AND a.scheduled_at >= $2 AND a.scheduled_at < $3 ORDER BY a.scheduled_at`, userID, from, to)
	} else {
		rows, err = s.DB.Query(ctx, base+` ORDER BY a.scheduled_at`, userID)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// FindByDate returns the appointments whose scheduled_at falls inside the
// calendar day containing the given instant, in that instant's location.
func (s *Store) FindByDate(ctx context.Context, userID string, day time.Time) ([]Appointment, error) {
	year, month, d := day.Date()
	start := time.Date(year, month, d, 0, 0, 0, 0, day.Location())
	end := start.Add(24 * time.Hour)
	return s.ListAppointments(ctx, userID, start.UTC(), end.UTC(), true)
}

// FindUnsynced returns non-cancelled appointments that have no linked remote
// event. The google_event_id presence is the predicate; calendar_synced is not
// consulted because it can lag behind the id.
func (s *Store) FindUnsynced(ctx context.Context, userID string) ([]Appointment, error) {
	q := `SELECT ` + appointmentCols + `
	      FROM appointments a LEFT JOIN clients c ON c.id = a.client_id
	      WHERE a.user_id=$1 AND a.google_event_id IS NULL AND a.status != 'cancelled'
	      ORDER BY a.scheduled_at`
	rows, err := s.DB.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// SetEventLink records the remote event id on the appointment. The id and the
// synced flag are always written together.
func (s *Store) SetEventLink(ctx context.Context, appointmentID, eventID string) error {
	q := `UPDATE appointments SET google_event_id=$1, calendar_synced=true, updated_at=$2 WHERE id=$3`
	res, err := s.DB.Exec(ctx, q, eventID, time.Now().UTC(), appointmentID)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ClearEventLink drops the link on any appointment referencing the remote
// event. Called after a remote delete; the appointment row itself stays.
func (s *Store) ClearEventLink(ctx context.Context, userID, eventID string) error {
	q := `UPDATE appointments SET google_event_id=NULL, calendar_synced=false, updated_at=$1
	      WHERE user_id=$2 AND google_event_id=$3`
	_, err := s.DB.Exec(ctx, q, time.Now().UTC(), userID, eventID)
	return err
}

func (s *Store) UpdateAppointmentStatus(ctx context.Context, userID, id, status string) error {
	q := `UPDATE appointments SET status=$1, updated_at=$2 WHERE id=$3 AND user_id=$4`
	res, err := s.DB.Exec(ctx, q, status, time.Now().UTC(), id, userID)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SyncCounts reports how many appointments have and lack a remote event link.
func (s *Store) SyncCounts(ctx context.Context, userID string) (synced, unsynced int, err error) {
	q := `SELECT
	        COUNT(*) FILTER (WHERE google_event_id IS NOT NULL),
	        COUNT(*) FILTER (WHERE google_event_id IS NULL AND status != 'cancelled')
	      FROM appointments WHERE user_id=$1`
	err = s.DB.QueryRow(ctx, q, userID).Scan(&synced, &unsynced)
	return synced, unsynced, err
}

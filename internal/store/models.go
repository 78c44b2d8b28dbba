package store

import "time"

// Appointment statuses.
const (
	StatusScheduled = "scheduled"
	StatusConfirmed = "confirmed"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
	StatusNoShow    = "no_show"
)

// Credential is the per-user Google Calendar connection. The three fields are
// stored all-or-nothing: a partially populated credential counts as not
// connected.
type Credential struct {
	UserID       string `json:"user_id"`
	AccessToken  string `json:"-"`
	RefreshToken string `json:"-"`
	CalendarID   string `json:"calendar_id"`
}

// Connected reports whether the credential can be used for calendar calls.
func (c Credential) Connected() bool {
	return c.AccessToken != "" && c.RefreshToken != "" && c.CalendarID != ""
}

type Client struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Address   string    `json:"address,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

type Procedure struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	DurationMins int       `json:"duration_minutes"`
	PriceCents   int64     `json:"price_cents"`
	CreatedAt    time.Time `json:"created_at,omitempty"`
	UpdatedAt    time.Time `json:"updated_at,omitempty"`
}

// Appointment is the local scheduling record. GoogleEventID links it to a
// remote calendar event; a nil id means the appointment was never synced.
// CalendarSynced is written only together with the event id and is kept for
// API compatibility; the id is the source of truth.
type Appointment struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	ClientID       string    `json:"client_id"`
	ProcedureID    string    `json:"procedure_id"`
	ScheduledAt    time.Time `json:"scheduled_at"`
	DurationMins   int       `json:"duration_minutes"`
	Status         string    `json:"status"`
	Notes          string    `json:"notes,omitempty"`
	GoogleEventID  *string   `json:"google_event_id,omitempty"`
	CalendarSynced bool      `json:"calendar_synced"`
	CreatedAt      time.Time `json:"created_at,omitempty"`
	UpdatedAt      time.Time `json:"updated_at,omitempty"`

	// Joined client display data, populated by queries that join clients.
	ClientName    string `json:"client_name,omitempty"`
	ClientEmail   string `json:"client_email,omitempty"`
	ClientAddress string `json:"client_address,omitempty"`
}

// End returns the exclusive end instant of the appointment window.
func (a Appointment) End() time.Time {
	return a.ScheduledAt.Add(time.Duration(a.DurationMins) * time.Minute)
}

// RevenueRow is one line of the revenue report.
type RevenueRow struct {
	ProcedureID   string `json:"procedure_id"`
	ProcedureName string `json:"procedure_name"`
	Completed     int    `json:"completed"`
	RevenueCents  int64  `json:"revenue_cents"`
}

package gcal

import (
	"time"

	"google.golang.org/api/calendar/v3"
)

// Credential is the stored Google Calendar connection for one user.
type Credential struct {
	AccessToken  string
	RefreshToken string
	CalendarID   string
}

// Connected reports whether the credential can back a calendar call.
func (c Credential) Connected() bool {
	return c.AccessToken != "" && c.RefreshToken != "" && c.CalendarID != ""
}

// Attendee is one invitee on a remote event.
type Attendee struct {
	Email          string `json:"email"`
	ResponseStatus string `json:"response_status"`
}

// Event is the canonical shape every provider response is normalized into.
// Missing optional fields are zero values, never errors.
type Event struct {
	ID          string     `json:"id"`
	Summary     string     `json:"summary"`
	Description string     `json:"description,omitempty"`
	Location    string     `json:"location,omitempty"`
	Status      string     `json:"status,omitempty"`
	Start       time.Time  `json:"start_time"`
	End         time.Time  `json:"end_time"`
	TimeZone    string     `json:"time_zone,omitempty"`
	Attendees   []Attendee `json:"attendees,omitempty"`
	MeetLink    string     `json:"meet_link,omitempty"`
	HTMLLink    string     `json:"html_link,omitempty"`
	Creator     string     `json:"creator,omitempty"`
}

// Reminder overrides one default notification.
type Reminder struct {
	Method  string `json:"method"` // "email" or "popup"
	Minutes int64  `json:"minutes"`
}

// EventPayload describes a new event. Zero-value optional fields are simply
// omitted from the insert; Reminders nil means the default overrides (email
// 60 minutes + popup 15 minutes before).
type EventPayload struct {
	Summary      string
	Description  string
	Location     string
	Start        time.Time
	End          time.Time
	TimeZone     string
	Attendees    []string
	WithMeetLink bool
	Reminders    []Reminder
}

// EventPatch is a partial update. Only non-nil fields are sent; everything
// else keeps its prior remote value.
type EventPatch struct {
	Summary     *string
	Description *string
	Location    *string
	Start       *time.Time
	End         *time.Time
	TimeZone    string
	Attendees   []string // applied when non-nil
}

// BusyInterval is one opaque busy window from a free/busy query.
type BusyInterval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// ListQuery bounds an event listing. Zero TimeMin defaults to now; zero
// MaxResults defaults to 100.
type ListQuery struct {
	TimeMin    time.Time
	TimeMax    time.Time
	MaxResults int64
}

// CalendarInfo describes one entry of the user's calendar list.
type CalendarInfo struct {
	ID         string `json:"id"`
	Summary    string `json:"summary"`
	Primary    bool   `json:"primary"`
	AccessRole string `json:"access_role,omitempty"`
}

// normalizeEvent maps a provider event into the canonical shape. All-day
// events carry a date instead of a datetime; both are handled.
func normalizeEvent(item *calendar.Event) Event {
	ev := Event{
		ID:          item.Id,
		Summary:     item.Summary,
		Description: item.Description,
		Location:    item.Location,
		Status:      item.Status,
		MeetLink:    item.HangoutLink,
		HTMLLink:    item.HtmlLink,
	}
	if item.Creator != nil {
		ev.Creator = item.Creator.Email
	}
	if item.Start != nil {
		ev.Start = parseEventTime(item.Start)
		ev.TimeZone = item.Start.TimeZone
	}
	if item.End != nil {
		ev.End = parseEventTime(item.End)
	}
	for _, at := range item.Attendees {
		status := at.ResponseStatus
		if status == "" {
			status = "needsAction"
		}
		ev.Attendees = append(ev.Attendees, Attendee{Email: at.Email, ResponseStatus: status})
	}
	return ev
}

func parseEventTime(edt *calendar.EventDateTime) time.Time {
	if edt.DateTime != "" {
		if t, err := time.Parse(time.RFC3339, edt.DateTime); err == nil {
			return t
		}
	}
	if edt.Date != "" {
		if t, err := time.Parse("2006-01-02", edt.Date); err == nil {
			return t
		}
	}
	return time.Time{}
}

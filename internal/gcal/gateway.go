package gcal

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

const defaultMaxResults = 100

// TokenStore persists per-user calendar credentials.
type TokenStore interface {
	Credential(ctx context.Context, userID string) (Credential, error)
	SaveAccessToken(ctx context.Context, userID, accessToken string) error
}

// TokenRefresher exchanges a refresh token for a new access token.
// *Connector is the production implementation.
type TokenRefresher interface {
	Refresh(ctx context.Context, refreshToken string) (string, error)
}

// Gateway provides event CRUD and free/busy queries for a connected user.
// Every call loads the stored credential, runs with a per-call timeout, and
// on a 401 performs exactly one refresh-persist-retry cycle before giving up.
type Gateway struct {
	auth     TokenRefresher
	tokens   TokenStore
	timezone string
	timeout  time.Duration
	now      func() time.Time
}

func NewGateway(auth TokenRefresher, tokens TokenStore, timezone string, timeout time.Duration) *Gateway {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Gateway{
		auth:     auth,
		tokens:   tokens,
		timezone: timezone,
		timeout:  timeout,
		now:      time.Now,
	}
}

// withAuthRetry runs fn with the stored credential. An unauthorized response
// triggers a single token refresh; the new access token is persisted before
// the retried call so concurrent operations observe it. A second 401 after
// the refresh is terminal.
func (g *Gateway) withAuthRetry(ctx context.Context, userID, op string, fn func(ctx context.Context, cred Credential) error) error {
	cred, err := g.tokens.Credential(ctx, userID)
	if err != nil {
		return err
	}
	if !cred.Connected() {
		return ErrNotConnected
	}

	err = g.attempt(ctx, cred, fn)
	if err == nil || !isUnauthorized(err) {
		return classify(op, err)
	}

	accessToken, rerr := g.auth.Refresh(ctx, cred.RefreshToken)
	if rerr != nil {
		return rerr
	}
	if serr := g.tokens.SaveAccessToken(ctx, userID, accessToken); serr != nil {
		return serr
	}
	cred.AccessToken = accessToken

	err = g.attempt(ctx, cred, fn)
	if isUnauthorized(err) {
		return &AuthRefreshError{Err: err}
	}
	return classify(op, err)
}

func (g *Gateway) attempt(ctx context.Context, cred Credential, fn func(ctx context.Context, cred Credential) error) error {
	cctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	return fn(cctx, cred)
}

func (g *Gateway) service(ctx context.Context, accessToken string) (*calendar.Service, error) {
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken}))
	return calendar.NewService(ctx, option.WithHTTPClient(client))
}

// ListEvents returns upcoming events ordered by start time, with recurring
// events expanded to single occurrences. Zero TimeMin defaults to now.
func (g *Gateway) ListEvents(ctx context.Context, userID string, q ListQuery) ([]Event, error) {
	var out []Event
	err := g.withAuthRetry(ctx, userID, "list events", func(ctx context.Context, cred Credential) error {
		svc, err := g.service(ctx, cred.AccessToken)
		if err != nil {
			return err
		}
		timeMin := q.TimeMin
		if timeMin.IsZero() {
			timeMin = g.now()
		}
		maxResults := q.MaxResults
		if maxResults <= 0 {
			maxResults = defaultMaxResults
		}
		call := svc.Events.List(cred.CalendarID).
			SingleEvents(true).
			OrderBy("startTime").
			MaxResults(maxResults).
			TimeMin(timeMin.Format(time.RFC3339)).
			Context(ctx)
		if !q.TimeMax.IsZero() {
			call = call.TimeMax(q.TimeMax.Format(time.RFC3339))
		}
		resp, err := call.Do()
		if err != nil {
			return err
		}
		out = out[:0]
		for _, item := range resp.Items {
			out = append(out, normalizeEvent(item))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CreateEvent inserts a new event and notifies attendees. When the payload
// does not override reminders, the defaults are email 60 minutes and popup
// 15 minutes before the start.
func (g *Gateway) CreateEvent(ctx context.Context, userID string, p EventPayload) (*Event, error) {
	var out *Event
	err := g.withAuthRetry(ctx, userID, "create event", func(ctx context.Context, cred Credential) error {
		svc, err := g.service(ctx, cred.AccessToken)
		if err != nil {
			return err
		}
		tz := p.TimeZone
		if tz == "" {
			tz = g.timezone
		}
		event := &calendar.Event{
			Summary:     p.Summary,
			Description: p.Description,
			Location:    p.Location,
			Start:       &calendar.EventDateTime{DateTime: p.Start.Format(time.RFC3339), TimeZone: tz},
			End:         &calendar.EventDateTime{DateTime: p.End.Format(time.RFC3339), TimeZone: tz},
			Reminders:   reminderOverrides(p.Reminders),
		}
		for _, email := range p.Attendees {
			event.Attendees = append(event.Attendees, &calendar.EventAttendee{Email: email})
		}
		if p.WithMeetLink {
			event.ConferenceData = &calendar.ConferenceData{
				CreateRequest: &calendar.CreateConferenceRequest{
					RequestId:             "meet-" + uuid.NewString(),
					ConferenceSolutionKey: &calendar.ConferenceSolutionKey{Type: "hangoutsMeet"},
				},
			}
		}
		call := svc.Events.Insert(cred.CalendarID, event).
			SendUpdates("all").
			Context(ctx)
		if p.WithMeetLink {
			call = call.ConferenceDataVersion(1)
		}
		created, err := call.Do()
		if err != nil {
			return err
		}
		ev := normalizeEvent(created)
		out = &ev
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateEvent patches an existing event. Only fields set on the patch are
// sent; everything else keeps its prior remote value.
func (g *Gateway) UpdateEvent(ctx context.Context, userID, eventID string, p EventPatch) (*Event, error) {
	var out *Event
	err := g.withAuthRetry(ctx, userID, "update event", func(ctx context.Context, cred Credential) error {
		svc, err := g.service(ctx, cred.AccessToken)
		if err != nil {
			return err
		}
		tz := p.TimeZone
		if tz == "" {
			tz = g.timezone
		}
		updated, err := svc.Events.Patch(cred.CalendarID, eventID, patchBody(p, tz)).
			SendUpdates("all").
			Context(ctx).
			Do()
		if err != nil {
			return err
		}
		ev := normalizeEvent(updated)
		out = &ev
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetEvent fetches a single event by id.
func (g *Gateway) GetEvent(ctx context.Context, userID, eventID string) (*Event, error) {
	var out *Event
	err := g.withAuthRetry(ctx, userID, "get event", func(ctx context.Context, cred Credential) error {
		svc, err := g.service(ctx, cred.AccessToken)
		if err != nil {
			return err
		}
		item, err := svc.Events.Get(cred.CalendarID, eventID).Context(ctx).Do()
		if err != nil {
			return err
		}
		ev := normalizeEvent(item)
		out = &ev
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteEvent removes an event and notifies attendees. A not-found response
// means the event is already gone and is treated as success.
func (g *Gateway) DeleteEvent(ctx context.Context, userID, eventID string) error {
	err := g.withAuthRetry(ctx, userID, "delete event", func(ctx context.Context, cred Credential) error {
		svc, err := g.service(ctx, cred.AccessToken)
		if err != nil {
			return err
		}
		err = svc.Events.Delete(cred.CalendarID, eventID).SendUpdates("all").Context(ctx).Do()
		if isNotFound(err) {
			return nil
		}
		return err
	})
	return err
}

// FreeBusy returns the opaque busy windows of the user's calendar in the
// given range.
func (g *Gateway) FreeBusy(ctx context.Context, userID string, timeMin, timeMax time.Time) ([]BusyInterval, error) {
	var out []BusyInterval
	err := g.withAuthRetry(ctx, userID, "freebusy query", func(ctx context.Context, cred Credential) error {
		svc, err := g.service(ctx, cred.AccessToken)
		if err != nil {
			return err
		}
		resp, err := svc.Freebusy.Query(&calendar.FreeBusyRequest{
			TimeMin:  timeMin.Format(time.RFC3339),
			TimeMax:  timeMax.Format(time.RFC3339),
			TimeZone: g.timezone,
			Items:    []*calendar.FreeBusyRequestItem{{Id: cred.CalendarID}},
		}).Context(ctx).Do()
		if err != nil {
			return err
		}
		out = out[:0]
		for _, b := range resp.Calendars[cred.CalendarID].Busy {
			start, err := time.Parse(time.RFC3339, b.Start)
			if err != nil {
				continue
			}
			end, err := time.Parse(time.RFC3339, b.End)
			if err != nil {
				continue
			}
			out = append(out, BusyInterval{Start: start, End: end})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CheckAvailability reports whether the window is free of busy intervals.
func (g *Gateway) CheckAvailability(ctx context.Context, userID string, start, end time.Time) (bool, error) {
	busy, err := g.FreeBusy(ctx, userID, start, end)
	if err != nil {
		return false, err
	}
	return len(busy) == 0, nil
}

// ListCalendars returns the user's calendar list.
func (g *Gateway) ListCalendars(ctx context.Context, userID string) ([]CalendarInfo, error) {
	var out []CalendarInfo
	err := g.withAuthRetry(ctx, userID, "calendar list", func(ctx context.Context, cred Credential) error {
		svc, err := g.service(ctx, cred.AccessToken)
		if err != nil {
			return err
		}
		resp, err := svc.CalendarList.List().Context(ctx).Do()
		if err != nil {
			return err
		}
		out = out[:0]
		for _, item := range resp.Items {
			out = append(out, CalendarInfo{
				ID:         item.Id,
				Summary:    item.Summary,
				Primary:    item.Primary,
				AccessRole: item.AccessRole,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// patchBody maps the non-nil patch fields onto a provider event. Strings
// cleared to "" ride ForceSendFields so the JSON encoder does not drop them.
func patchBody(p EventPatch, tz string) *calendar.Event {
	event := &calendar.Event{}
	if p.Summary != nil {
		event.Summary = *p.Summary
		event.ForceSendFields = append(event.ForceSendFields, "Summary")
	}
	if p.Description != nil {
		event.Description = *p.Description
		event.ForceSendFields = append(event.ForceSendFields, "Description")
	}
	if p.Location != nil {
		event.Location = *p.Location
		event.ForceSendFields = append(event.ForceSendFields, "Location")
	}
	if p.Start != nil {
		event.Start = &calendar.EventDateTime{DateTime: p.Start.Format(time.RFC3339), TimeZone: tz}
	}
	if p.End != nil {
		event.End = &calendar.EventDateTime{DateTime: p.End.Format(time.RFC3339), TimeZone: tz}
	}
	for _, email := range p.Attendees {
		event.Attendees = append(event.Attendees, &calendar.EventAttendee{Email: email})
	}
	return event
}

func reminderOverrides(reminders []Reminder) *calendar.EventReminders {
	overrides := []*calendar.EventReminder{
		{Method: "email", Minutes: 60},
		{Method: "popup", Minutes: 15},
	}
	if reminders != nil {
		overrides = overrides[:0]
		for _, r := range reminders {
			overrides = append(overrides, &calendar.EventReminder{Method: r.Method, Minutes: r.Minutes})
		}
	}
	return &calendar.EventReminders{
		UseDefault:      false,
		Overrides:       overrides,
		ForceSendFields: []string{"UseDefault"},
	}
}

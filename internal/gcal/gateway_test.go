package gcal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
)

type fakeTokens struct {
	cred    Credential
	err     error
	saved   []string
	saveErr error
}

func (f *fakeTokens) Credential(ctx context.Context, userID string) (Credential, error) {
	if f.err != nil {
		return Credential{}, f.err
	}
	return f.cred, nil
}

func (f *fakeTokens) SaveAccessToken(ctx context.Context, userID, accessToken string) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, accessToken)
	f.cred.AccessToken = accessToken
	return nil
}

type fakeRefresher struct {
	calls int
	token string
	err   error
}

func (f *fakeRefresher) Refresh(ctx context.Context, refreshToken string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.token, nil
}

func connectedTokens() *fakeTokens {
	return &fakeTokens{cred: Credential{
		AccessToken:  "stale-token",
		RefreshToken: "refresh-token",
		CalendarID:   "primary",
	}}
}

func unauthorized() error {
	return &googleapi.Error{Code: http.StatusUnauthorized, Message: "Invalid Credentials"}
}

func TestWithAuthRetryNotConnected(t *testing.T) {
	refresher := &fakeRefresher{token: "fresh"}
	g := NewGateway(refresher, &fakeTokens{}, "UTC", time.Second)

	attempts := 0
	err := g.withAuthRetry(context.Background(), "u1", "list events", func(ctx context.Context, cred Credential) error {
		attempts++
		return nil
	})

	require.ErrorIs(t, err, ErrNotConnected)
	assert.Zero(t, attempts, "no network attempt without a credential")
	assert.Zero(t, refresher.calls)
}

func TestWithAuthRetryRefreshesOnceAndRetries(t *testing.T) {
	tokens := connectedTokens()
	refresher := &fakeRefresher{token: "fresh-token"}
	g := NewGateway(refresher, tokens, "UTC", time.Second)

	var seen []string
	err := g.withAuthRetry(context.Background(), "u1", "list events", func(ctx context.Context, cred Credential) error {
		seen = append(seen, cred.AccessToken)
		if len(seen) == 1 {
			return unauthorized()
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, refresher.calls)
	// The refreshed token is persisted before the retried call reads it.
	assert.Equal(t, []string{"fresh-token"}, tokens.saved)
	assert.Equal(t, []string{"stale-token", "fresh-token"}, seen)
}

func TestWithAuthRetryBound(t *testing.T) {
	tokens := connectedTokens()
	refresher := &fakeRefresher{token: "fresh-token"}
	g := NewGateway(refresher, tokens, "UTC", time.Second)

	attempts := 0
	err := g.withAuthRetry(context.Background(), "u1", "list events", func(ctx context.Context, cred Credential) error {
		attempts++
		return unauthorized()
	})

	var authErr *AuthRefreshError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, 2, attempts, "at most one retry after the refresh")
	assert.Equal(t, 1, refresher.calls, "at most one refresh")
}

// A connected credential left over from a configured deployment must not
// crash the retry path when OAuth is no longer configured.
func TestWithAuthRetryNilConnectorTreatedAsNotConnected(t *testing.T) {
	tokens := connectedTokens()
	g := NewGateway((*Connector)(nil), tokens, "UTC", time.Second)

	attempts := 0
	err := g.withAuthRetry(context.Background(), "u1", "list events", func(ctx context.Context, cred Credential) error {
		attempts++
		return unauthorized()
	})

	require.ErrorIs(t, err, ErrNotConnected)
	assert.Equal(t, 1, attempts, "no retry without a working refresher")
	assert.Empty(t, tokens.saved)
}

func TestWithAuthRetryRefreshFailureIsTerminal(t *testing.T) {
	tokens := connectedTokens()
	refresher := &fakeRefresher{err: &AuthRefreshError{Err: errors.New("invalid_grant")}}
	g := NewGateway(refresher, tokens, "UTC", time.Second)

	attempts := 0
	err := g.withAuthRetry(context.Background(), "u1", "create event", func(ctx context.Context, cred Credential) error {
		attempts++
		return unauthorized()
	})

	var authErr *AuthRefreshError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, 1, attempts)
	assert.Empty(t, tokens.saved, "nothing persisted on a failed refresh")
}

func TestWithAuthRetryOtherErrorsNotRetried(t *testing.T) {
	tokens := connectedTokens()
	refresher := &fakeRefresher{token: "fresh-token"}
	g := NewGateway(refresher, tokens, "UTC", time.Second)

	attempts := 0
	err := g.withAuthRetry(context.Background(), "u1", "create event", func(ctx context.Context, cred Credential) error {
		attempts++
		return &googleapi.Error{Code: http.StatusBadRequest, Message: "Invalid time range"}
	})

	var gatewayErr *GatewayError
	require.ErrorAs(t, err, &gatewayErr)
	assert.Equal(t, http.StatusBadRequest, gatewayErr.Code)
	assert.Equal(t, 1, attempts)
	assert.Zero(t, refresher.calls)
}

func TestIsUnauthorizedMatchesWrappedErrors(t *testing.T) {
	wrapped := fmt.Errorf("list events: %w", unauthorized())
	assert.True(t, isUnauthorized(wrapped))
	assert.False(t, isUnauthorized(errors.New("plain failure")))
	assert.False(t, isUnauthorized(&googleapi.Error{Code: http.StatusForbidden}))
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, isNotFound(&googleapi.Error{Code: http.StatusNotFound}))
	assert.True(t, isNotFound(&googleapi.Error{Code: http.StatusGone}))
	assert.False(t, isNotFound(&googleapi.Error{Code: http.StatusBadRequest}))
	assert.False(t, isNotFound(nil))
}

func TestNormalizeEvent(t *testing.T) {
	item := &calendar.Event{
		Id:          "evt-1",
		Summary:     "Appointment - Jane",
		Description: "follow-up",
		Status:      "confirmed",
		HangoutLink: "https://meet.google.com/abc",
		HtmlLink:    "https://calendar.google.com/event?eid=1",
		Creator:     &calendar.EventCreator{Email: "owner@clinic.test"},
		Start:       &calendar.EventDateTime{DateTime: "2026-03-10T14:00:00Z", TimeZone: "UTC"},
		End:         &calendar.EventDateTime{DateTime: "2026-03-10T15:00:00Z", TimeZone: "UTC"},
		Attendees: []*calendar.EventAttendee{
			{Email: "jane@example.com", ResponseStatus: "accepted"},
			{Email: "plusone@example.com"},
		},
	}

	ev := normalizeEvent(item)

	assert.Equal(t, "evt-1", ev.ID)
	assert.Equal(t, "Appointment - Jane", ev.Summary)
	assert.Equal(t, "owner@clinic.test", ev.Creator)
	assert.Equal(t, time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC), ev.Start)
	assert.Equal(t, time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC), ev.End)
	require.Len(t, ev.Attendees, 2)
	assert.Equal(t, "accepted", ev.Attendees[0].ResponseStatus)
	assert.Equal(t, "needsAction", ev.Attendees[1].ResponseStatus, "missing response status defaults")
	assert.Equal(t, "https://meet.google.com/abc", ev.MeetLink)
}

func TestNormalizeEventAllDayFallback(t *testing.T) {
	item := &calendar.Event{
		Id:    "evt-2",
		Start: &calendar.EventDateTime{Date: "2026-03-10"},
		End:   &calendar.EventDateTime{Date: "2026-03-11"},
	}

	ev := normalizeEvent(item)

	assert.Equal(t, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), ev.Start)
	assert.Equal(t, time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC), ev.End)
	assert.Empty(t, ev.Attendees)
	assert.Empty(t, ev.Creator)
}

// Clearing a string field to "" must still reach the provider; omitempty
// would otherwise drop it from the patch body.
func TestPatchBodyForceSendsClearedStrings(t *testing.T) {
	empty := ""
	start := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)
	p := EventPatch{
		Summary:     &empty,
		Description: &empty,
		Location:    &empty,
		Start:       &start,
		End:         &end,
		Attendees:   []string{"jane@example.com"},
	}

	event := patchBody(p, "UTC")

	assert.ElementsMatch(t, []string{"Summary", "Description", "Location"}, event.ForceSendFields)
	require.NotNil(t, event.Start)
	assert.Equal(t, start.Format(time.RFC3339), event.Start.DateTime)
	assert.Equal(t, "UTC", event.Start.TimeZone)
	require.NotNil(t, event.End)
	assert.Equal(t, end.Format(time.RFC3339), event.End.DateTime)
	require.Len(t, event.Attendees, 1)
	assert.Equal(t, "jane@example.com", event.Attendees[0].Email)
}

func TestPatchBodyOmitsUnsetFields(t *testing.T) {
	event := patchBody(EventPatch{}, "UTC")

	assert.Empty(t, event.ForceSendFields)
	assert.Nil(t, event.Start)
	assert.Nil(t, event.End)
	assert.Empty(t, event.Attendees)
	assert.Empty(t, event.Summary)
}

func TestReminderOverridesDefaults(t *testing.T) {
	reminders := reminderOverrides(nil)

	require.NotNil(t, reminders)
	assert.False(t, reminders.UseDefault)
	require.Len(t, reminders.Overrides, 2)
	assert.Equal(t, "email", reminders.Overrides[0].Method)
	assert.Equal(t, int64(60), reminders.Overrides[0].Minutes)
	assert.Equal(t, "popup", reminders.Overrides[1].Method)
	assert.Equal(t, int64(15), reminders.Overrides[1].Minutes)
}

func TestReminderOverridesCustom(t *testing.T) {
	reminders := reminderOverrides([]Reminder{{Method: "popup", Minutes: 5}})

	require.Len(t, reminders.Overrides, 1)
	assert.Equal(t, "popup", reminders.Overrides[0].Method)
	assert.Equal(t, int64(5), reminders.Overrides[0].Minutes)
}

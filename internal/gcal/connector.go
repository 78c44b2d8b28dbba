package gcal

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"clinic-service/internal/config"
)

// Connector performs the OAuth2 authorization-code flow and token refreshes
// against Google. It holds no per-user state.
type Connector struct {
	cfg *oauth2.Config
}

// NewConnector builds a connector from the app configuration. Returns nil
// when the Google OAuth settings are absent, matching the optional nature of
// the integration.
func NewConnector(gc config.GoogleConfig) *Connector {
	if !gc.Configured() {
		return nil
	}
	return &Connector{
		cfg: &oauth2.Config{
			ClientID:     gc.ClientID,
			ClientSecret: gc.ClientSecret,
			RedirectURL:  gc.RedirectURL,
			Scopes: []string{
				calendar.CalendarScope,
				calendar.CalendarEventsScope,
			},
			Endpoint: google.Endpoint,
		},
	}
}

// AuthURL returns the provider authorization URL. Offline access plus the
// consent prompt so a refresh token is always issued.
func (c *Connector) AuthURL(state string) string {
	return c.cfg.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"))
}

// Exchange trades the authorization code for tokens and discovers the user's
// primary calendar id. The caller persists the returned credential.
func (c *Connector) Exchange(ctx context.Context, code string) (Credential, error) {
	token, err := c.cfg.Exchange(ctx, code)
	if err != nil {
		return Credential{}, fmt.Errorf("exchange authorization code: %w", err)
	}
	if token.RefreshToken == "" {
		return Credential{}, errors.New("no refresh token in exchange response")
	}

	svc, err := calendar.NewService(ctx, option.WithHTTPClient(c.cfg.Client(ctx, token)))
	if err != nil {
		return Credential{}, fmt.Errorf("create calendar service: %w", err)
	}
	list, err := svc.CalendarList.List().Context(ctx).Do()
	if err != nil {
		return Credential{}, classify("calendar list", err)
	}

	for _, item := range list.Items {
		if item.Primary {
			return Credential{
				AccessToken:  token.AccessToken,
				RefreshToken: token.RefreshToken,
				CalendarID:   item.Id,
			}, nil
		}
	}
	return Credential{}, errors.New("primary calendar not found")
}

// Refresh exchanges the refresh token for a new access token. A rejected
// refresh token is terminal and comes back as AuthRefreshError. A nil
// connector cannot refresh, so credentials stored by a previously configured
// deployment surface as not connected instead of panicking.
func (c *Connector) Refresh(ctx context.Context, refreshToken string) (string, error) {
	if c == nil {
		return "", ErrNotConnected
	}
	src := c.cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	token, err := src.Token()
	if err != nil {
		return "", &AuthRefreshError{Err: err}
	}
	return token.AccessToken, nil
}

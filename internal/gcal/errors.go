package gcal

import (
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
)

// ErrNotConnected is returned when the user has no stored Google Calendar
// credential. Callers should prompt for a reconnect rather than retry.
var ErrNotConnected = errors.New("google calendar not connected")

// AuthRefreshError reports that the refresh token was rejected by Google.
// This is terminal for the operation; the account should be treated as
// disconnected.
type AuthRefreshError struct {
	Err error
}

func (e *AuthRefreshError) Error() string {
	return fmt.Sprintf("google token refresh failed: %v", e.Err)
}

func (e *AuthRefreshError) Unwrap() error { return e.Err }

// GatewayError wraps any other remote-API failure (rate limit, validation,
// timeout, 5xx). Code is the HTTP status when one is known, zero otherwise.
type GatewayError struct {
	Op   string
	Code int
	Err  error
}

func (e *GatewayError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("google calendar %s failed (%d): %v", e.Op, e.Code, e.Err)
	}
	return fmt.Sprintf("google calendar %s failed: %v", e.Op, e.Err)
}

func (e *GatewayError) Unwrap() error { return e.Err }

// isUnauthorized reports whether the error is Google's expired/invalid access
// token response.
func isUnauthorized(err error) bool {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code == http.StatusUnauthorized
	}
	var rerr *oauth2.RetrieveError
	if errors.As(err, &rerr) && rerr.Response != nil {
		return rerr.Response.StatusCode == http.StatusUnauthorized
	}
	return false
}

func isNotFound(err error) bool {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code == http.StatusNotFound || gerr.Code == http.StatusGone
	}
	return false
}

// classify wraps a raw provider error into the gateway taxonomy. Errors that
// already carry a type pass through unchanged.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var authErr *AuthRefreshError
	if errors.As(err, &authErr) {
		return err
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return &GatewayError{Op: op, Code: gerr.Code, Err: err}
	}
	return &GatewayError{Op: op, Err: err}
}

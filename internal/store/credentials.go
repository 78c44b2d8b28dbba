package store

import (
	"context"
	"time"
)

// Credential returns the Google Calendar credential stored on the user row.
// Absent tokens come back as empty strings, not an error.
func (s *Store) Credential(ctx context.Context, userID string) (Credential, error) {
	q := `SELECT COALESCE(google_access_token,''), COALESCE(google_refresh_token,''), COALESCE(google_calendar_id,'')
	      FROM users WHERE id=$1`
	cred := Credential{UserID: userID}
	err := s.DB.QueryRow(ctx, q, userID).Scan(&cred.AccessToken, &cred.RefreshToken, &cred.CalendarID)
	if err != nil {
		return Credential{}, notFound(err, "user")
	}
	return cred, nil
}

// SaveCredential stores all three connection fields together.
func (s *Store) SaveCredential(ctx context.Context, cred Credential) error {
	q := `UPDATE users
	      SET google_access_token=$1, google_refresh_token=$2, google_calendar_id=$3, updated_at=$4
	      WHERE id=$5`
	res, err := s.DB.Exec(ctx, q, cred.AccessToken, cred.RefreshToken, cred.CalendarID, time.Now().UTC(), cred.UserID)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SaveAccessToken replaces only the access token, leaving the refresh token
// and calendar id in place. Used after a token refresh; the write must land
// before the retried calendar call reads the credential again.
func (s *Store) SaveAccessToken(ctx context.Context, userID, accessToken string) error {
	q := `UPDATE users SET google_access_token=$1, updated_at=$2 WHERE id=$3`
	res, err := s.DB.Exec(ctx, q, accessToken, time.Now().UTC(), userID)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ClearCredential disconnects the account by nulling all three fields.
func (s *Store) ClearCredential(ctx context.Context, userID string) error {
	q := `UPDATE users
	      SET google_access_token=NULL, google_refresh_token=NULL, google_calendar_id=NULL, updated_at=$1
	      WHERE id=$2`
	_, err := s.DB.Exec(ctx, q, time.Now().UTC(), userID)
	return err
}

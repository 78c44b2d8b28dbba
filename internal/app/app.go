package app

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"clinic-service/internal/availability"
	"clinic-service/internal/config"
	"clinic-service/internal/gcal"
	"clinic-service/internal/store"
	appsync "clinic-service/internal/sync"
)

// App holds the wired services behind the HTTP handlers. One instance per
// process; everything it references is safe for concurrent use.
type App struct {
	Store        *store.Store
	Connector    *gcal.Connector
	Calendar     *gcal.Gateway
	Syncer       *appsync.Syncer
	Availability *availability.Engine
	Config       *config.Config
}

// tokenStore adapts the pgx store to the gateway's credential interface.
type tokenStore struct {
	store *store.Store
}

func NewTokenStore(s *store.Store) gcal.TokenStore {
	return tokenStore{store: s}
}

func (t tokenStore) Credential(ctx context.Context, userID string) (gcal.Credential, error) {
	cred, err := t.store.Credential(ctx, userID)
	if err != nil {
		return gcal.Credential{}, err
	}
	return gcal.Credential{
		AccessToken:  cred.AccessToken,
		RefreshToken: cred.RefreshToken,
		CalendarID:   cred.CalendarID,
	}, nil
}

func (t tokenStore) SaveAccessToken(ctx context.Context, userID, accessToken string) error {
	return t.store.SaveAccessToken(ctx, userID, accessToken)
}

// fail maps service errors onto HTTP responses.
func fail(c *gin.Context, err error) {
	var authErr *gcal.AuthRefreshError
	switch {
	case errors.Is(err, gcal.ErrNotConnected):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "google calendar not connected"})
	case errors.As(err, &authErr):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "google token expired, reconnect your account"})
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

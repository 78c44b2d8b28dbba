package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all configuration for the service.
type Config struct {
	Port         string
	DatabaseURL  string
	Origin       string
	StaticTokens []string
	JWTSecret    string
	Google       GoogleConfig
}

// GoogleConfig holds the Google Calendar OAuth2 settings.
type GoogleConfig struct {
	ClientID       string
	ClientSecret   string
	RedirectURL    string
	Timezone       string
	TimeoutSeconds int
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL required")
	}

	timeoutSecs, err := strconv.Atoi(getEnv("GCAL_REQUEST_TIMEOUT_SECONDS", "15"))
	if err != nil {
		return nil, fmt.Errorf("invalid GCAL_REQUEST_TIMEOUT_SECONDS: %w", err)
	}

	var staticTokens []string
	for _, t := range strings.Split(os.Getenv("STATIC_TOKENS"), ",") {
		if t = strings.TrimSpace(t); t != "" {
			staticTokens = append(staticTokens, t)
		}
	}

	return &Config{
		Port:         getEnv("PORT", "8080"),
		DatabaseURL:  dbURL,
		Origin:       getEnv("ORIGIN", "http://localhost:3000"),
		StaticTokens: staticTokens,
		JWTSecret:    strings.TrimSpace(os.Getenv("JWT_HMAC_SECRET")),
		Google: GoogleConfig{
			ClientID:       os.Getenv("GOOGLE_CLIENT_ID"),
			ClientSecret:   os.Getenv("GOOGLE_CLIENT_SECRET"),
			RedirectURL:    os.Getenv("GOOGLE_REDIRECT_URL"),
			Timezone:       getEnv("GCAL_TIMEZONE", "America/Sao_Paulo"),
			TimeoutSeconds: timeoutSecs,
		},
	}, nil
}

// Configured reports whether the Google OAuth2 settings are present.
func (g GoogleConfig) Configured() bool {
	return g.ClientID != "" && g.ClientSecret != "" && g.RedirectURL != ""
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

package config

import (
	"fmt"
	"os"
	"time"
)

// Server captures process-level configuration.
type Server struct {
	Addr       string
	Production bool

	// Spotify application credentials.
	SpotifyClientID     string
	SpotifyClientSecret string
	SpotifyRedirectURI  string

	// SessionSecret signs the auth cookie. Minimum 32 bytes.
	SessionSecret string

	// SessionMaxAge bounds how long a cookie session stays usable without a
	// fresh login, independent of access token expiry.
	SessionMaxAge time.Duration

	// UpstreamTimeout applies to both token exchanges and resource calls.
	UpstreamTimeout time.Duration
}

const minSessionSecretLen = 32

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("AUDIOGRAPH_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	maxAge := 30 * 24 * time.Hour
	if v := os.Getenv("SESSION_MAX_AGE"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			maxAge = d
		}
	}

	timeout := 15 * time.Second
	if v := os.Getenv("UPSTREAM_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			timeout = d
		}
	}

	return Server{
		Addr:                addr,
		Production:          os.Getenv("PRODUCTION") == "true",
		SpotifyClientID:     os.Getenv("SPOTIFY_CLIENT_ID"),
		SpotifyClientSecret: os.Getenv("SPOTIFY_CLIENT_SECRET"),
		SpotifyRedirectURI:  os.Getenv("SPOTIFY_REDIRECT_URI"),
		SessionSecret:       os.Getenv("SESSION_SECRET"),
		SessionMaxAge:       maxAge,
		UpstreamTimeout:     timeout,
	}
}

// Validate rejects configurations the server cannot safely run with. There
// are no development defaults for credentials or the signing secret.
func (s Server) Validate() error {
	if s.SpotifyClientID == "" {
		return fmt.Errorf("SPOTIFY_CLIENT_ID is required")
	}
	if s.SpotifyClientSecret == "" {
		return fmt.Errorf("SPOTIFY_CLIENT_SECRET is required")
	}
	if s.SpotifyRedirectURI == "" {
		return fmt.Errorf("SPOTIFY_REDIRECT_URI is required")
	}
	if len(s.SessionSecret) < minSessionSecretLen {
		return fmt.Errorf("SESSION_SECRET must be at least %d bytes", minSessionSecretLen)
	}
	return nil
}

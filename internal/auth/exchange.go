package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	spotifyauth "golang.org/x/oauth2/spotify"

	"audiograph/internal/auth/metrics"
	"audiograph/internal/platform/config"
	dErrors "audiograph/pkg/domain-errors"
)

// Scopes requested at login. The visualizer reads private playlists, the
// library, and the profile used as the session identity.
const Scopes = "playlist-read-private user-library-read user-read-email user-read-private"

const (
	grantAuthorizationCode = "authorization_code"
	grantRefreshToken      = "refresh_token"
)

// Exchanger performs the two OAuth exchanges against the provider's token
// endpoint. Both authenticate with client-credential Basic auth, never the
// end user's bearer token.
type Exchanger struct {
	conf    *oauth2.Config
	client  *http.Client
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// ExchangerOption configures an Exchanger.
type ExchangerOption func(*Exchanger)

// WithEndpoint overrides the provider endpoints. Tests point this at an
// httptest server.
func WithEndpoint(endpoint oauth2.Endpoint) ExchangerOption {
	return func(e *Exchanger) {
		e.conf.Endpoint = endpoint
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) ExchangerOption {
	return func(e *Exchanger) {
		e.client = client
	}
}

// NewExchanger builds an Exchanger for the configured Spotify application.
func NewExchanger(cfg config.Server, logger *slog.Logger, m *metrics.Metrics, opts ...ExchangerOption) *Exchanger {
	e := &Exchanger{
		conf: &oauth2.Config{
			ClientID:     cfg.SpotifyClientID,
			ClientSecret: cfg.SpotifyClientSecret,
			RedirectURL:  cfg.SpotifyRedirectURI,
			Scopes:       strings.Split(Scopes, " "),
			Endpoint:     spotifyauth.Endpoint,
		},
		client:  &http.Client{Timeout: cfg.UpstreamTimeout},
		logger:  logger,
		metrics: m,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// AuthorizeURL returns the provider authorization URL for the login
// redirect, carrying the anti-forgery state value.
func (e *Exchanger) AuthorizeURL(state string) string {
	return e.conf.AuthCodeURL(state)
}

// ExchangeCode trades an authorization code for a token pair. The response
// must carry a refresh token or the exchange fails.
func (e *Exchanger) ExchangeCode(ctx context.Context, code string) (*TokenResponse, error) {
	data := url.Values{
		"grant_type":   {grantAuthorizationCode},
		"code":         {code},
		"redirect_uri": {e.conf.RedirectURL},
	}
	return e.doTokenRequest(ctx, grantAuthorizationCode, data, true)
}

// ExchangeRefreshToken trades a refresh token for a fresh access token. The
// returned refresh token may differ from the input (rotation) or be absent,
// in which case the caller retains the previous one.
func (e *Exchanger) ExchangeRefreshToken(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	data := url.Values{
		"grant_type":    {grantRefreshToken},
		"refresh_token": {refreshToken},
		"client_id":     {e.conf.ClientID},
	}
	return e.doTokenRequest(ctx, grantRefreshToken, data, false)
}

func (e *Exchanger) doTokenRequest(ctx context.Context, grant string, data url.Values, requireRefreshToken bool) (*TokenResponse, error) {
	start := time.Now()
	resp, err := e.postForm(ctx, data)
	if err != nil {
		e.metrics.ObserveExchange(grant, "unreachable", time.Since(start))
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return nil, dErrors.Wrap(err, dErrors.CodeUpstreamUnavailable, "token endpoint timed out")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUpstreamUnavailable, "token endpoint unreachable")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		e.metrics.ObserveExchange(grant, "unreachable", time.Since(start))
		return nil, dErrors.Wrap(err, dErrors.CodeUpstreamUnavailable, "reading token response failed")
	}

	if resp.StatusCode != http.StatusOK {
		e.logger.ErrorContext(ctx, "token exchange rejected",
			"grant", grant,
			"status", resp.StatusCode,
		)
		e.metrics.ObserveExchange(grant, "rejected", time.Since(start))
		return nil, dErrors.New(dErrors.CodeAuthExchange,
			fmt.Sprintf("token endpoint returned status %d", resp.StatusCode))
	}

	var token TokenResponse
	if err := json.Unmarshal(body, &token); err != nil {
		e.metrics.ObserveExchange(grant, "malformed", time.Since(start))
		return nil, dErrors.Wrap(err, dErrors.CodeAuthExchange, "token response is not valid JSON")
	}
	if err := token.Validate(requireRefreshToken); err != nil {
		e.logger.ErrorContext(ctx, "token response failed schema validation",
			"grant", grant,
			"error", err,
		)
		e.metrics.ObserveExchange(grant, "malformed", time.Since(start))
		return nil, err
	}

	e.metrics.ObserveExchange(grant, "ok", time.Since(start))
	return &token, nil
}

func (e *Exchanger) postForm(ctx context.Context, data url.Values) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.conf.Endpoint.TokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(e.conf.ClientID, e.conf.ClientSecret)

	return e.client.Do(req)
}

func isTimeout(err error) bool {
	var ne interface{ Timeout() bool }
	return errors.As(err, &ne) && ne.Timeout()
}

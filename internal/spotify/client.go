package spotify

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

	"audiograph/internal/spotify/metrics"
	dErrors "audiograph/pkg/domain-errors"
)

// DefaultBaseURL is the upstream Web API root.
const DefaultBaseURL = "https://api.spotify.com"

// MaxFeatureIDs is the upstream limit on ids per audio-features call.
const MaxFeatureIDs = 100

// RefreshFunc exchanges the session's refresh token for a new access token.
// It returns the new token, or an error when the refresh path is unusable;
// the in-flight call then fails unauthorized without another attempt.
type RefreshFunc func(ctx context.Context) (string, error)

// Client issues bearer-authenticated calls against the upstream API. All
// resource operations route through a single authenticated-request
// primitive that retries exactly once after a successful refresh.
type Client struct {
	baseURL     string
	accessToken string
	refresh     RefreshFunc
	client      *http.Client
	logger      *slog.Logger
	metrics     *metrics.Metrics
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at a different API root. Tests use this
// with httptest servers.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// WithRefreshFunc installs the refresh path invoked on a 401.
func WithRefreshFunc(refresh RefreshFunc) Option {
	return func(c *Client) {
		c.refresh = refresh
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.client = client
	}
}

// WithMetrics attaches upstream call metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// NewClient builds a client around the current access token.
func NewClient(accessToken string, logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL:     DefaultBaseURL,
		accessToken: accessToken,
		client:      &http.Client{Timeout: 15 * time.Second},
		logger:      logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetUser fetches the authenticated profile.
func (c *Client) GetUser(ctx context.Context) (*User, error) {
	var user User
	if err := c.get(ctx, "/v1/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// PageParams bound list endpoints. Zero values defer to upstream defaults.
type PageParams struct {
	Limit  int
	Offset int
}

func (p PageParams) query() url.Values {
	q := url.Values{}
	if p.Limit > 0 {
		q.Set("limit", fmt.Sprintf("%d", p.Limit))
	}
	if p.Offset > 0 {
		q.Set("offset", fmt.Sprintf("%d", p.Offset))
	}
	return q
}

// GetPlaylists fetches one page of the user's playlists.
func (c *Client) GetPlaylists(ctx context.Context, page PageParams) (*PlaylistPage, error) {
	var playlists PlaylistPage
	if err := c.get(ctx, "/v1/me/playlists", page.query(), &playlists); err != nil {
		return nil, err
	}
	return &playlists, nil
}

// GetPlaylist fetches a single playlist.
func (c *Client) GetPlaylist(ctx context.Context, id string) (*Playlist, error) {
	if id == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "playlist id is required")
	}
	var playlist Playlist
	if err := c.get(ctx, "/v1/playlists/"+url.PathEscape(id), nil, &playlist); err != nil {
		return nil, err
	}
	return &playlist, nil
}

// GetPlaylistTracks fetches one page of a playlist's tracks.
func (c *Client) GetPlaylistTracks(ctx context.Context, id string, page PageParams) (*TrackPage, error) {
	if id == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "playlist id is required")
	}
	var tracks TrackPage
	if err := c.get(ctx, "/v1/playlists/"+url.PathEscape(id)+"/tracks", page.query(), &tracks); err != nil {
		return nil, err
	}
	return &tracks, nil
}

// GetTracksFeatures fetches feature vectors for up to MaxFeatureIDs tracks.
func (c *Client) GetTracksFeatures(ctx context.Context, ids []string) (*AudioFeaturesPage, error) {
	if len(ids) == 0 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "at least one track id is required")
	}
	if len(ids) > MaxFeatureIDs {
		return nil, dErrors.New(dErrors.CodeBadRequest,
			fmt.Sprintf("at most %d track ids per call", MaxFeatureIDs))
	}
	q := url.Values{"ids": {strings.Join(ids, ",")}}

	var features AudioFeaturesPage
	if err := c.get(ctx, "/v1/audio-features", q, &features); err != nil {
		return nil, err
	}
	return &features, nil
}

type validatable interface {
	Validate() error
}

// get is the authenticated-request primitive. On a 401 with a refresh path
// available it refreshes once and replays; a second 401, or a 401 with no
// refresh path, fails unauthorized.
func (c *Client) get(ctx context.Context, path string, query url.Values, out validatable) error {
	refreshed := false
	for {
		status, body, err := c.do(ctx, path, query)
		if err != nil {
			return err
		}

		switch {
		case status == http.StatusUnauthorized && !refreshed && c.refresh != nil:
			newToken, err := c.refresh(ctx)
			if err != nil {
				return dErrors.Wrap(err, dErrors.CodeUnauthorized, "token refresh failed")
			}
			c.accessToken = newToken
			refreshed = true
			c.metrics.IncrementRetries()
			continue

		case status == http.StatusUnauthorized:
			return dErrors.New(dErrors.CodeUnauthorized, "upstream rejected the access token")

		case status >= 500:
			return dErrors.New(dErrors.CodeUpstreamUnavailable,
				fmt.Sprintf("upstream returned status %d", status))

		case status != http.StatusOK:
			return dErrors.New(dErrors.CodeBadRequest,
				fmt.Sprintf("upstream returned status %d", status))
		}

		if err := json.Unmarshal(body, out); err != nil {
			c.metrics.IncrementSchemaFailures(path)
			return dErrors.Wrap(err, dErrors.CodeSchemaValidation, "upstream response is not valid JSON")
		}
		if err := out.Validate(); err != nil {
			c.logger.ErrorContext(ctx, "upstream response failed schema validation",
				"endpoint", path,
				"error", err,
			)
			c.metrics.IncrementSchemaFailures(path)
			return err
		}
		return nil
	}
}

func (c *Client) do(ctx context.Context, path string, query url.Values) (int, []byte, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return 0, nil, dErrors.Wrap(err, dErrors.CodeInternal, "building upstream request failed")
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		c.metrics.ObserveRequest(path, 0, time.Since(start))
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return 0, nil, dErrors.Wrap(err, dErrors.CodeUpstreamUnavailable, "upstream call timed out")
		}
		return 0, nil, dErrors.Wrap(err, dErrors.CodeUpstreamUnavailable, "upstream unreachable")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, dErrors.Wrap(err, dErrors.CodeUpstreamUnavailable, "reading upstream response failed")
	}

	c.metrics.ObserveRequest(path, resp.StatusCode, time.Since(start))
	return resp.StatusCode, body, nil
}

func isTimeout(err error) bool {
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}

package auth

import (
	"context"
	"log/slog"
	"net/http"

	"golang.org/x/sync/singleflight"

	"audiograph/internal/auth/metrics"
	"audiograph/internal/spotify"
	dErrors "audiograph/pkg/domain-errors"
	"audiograph/pkg/requestcontext"
)

// LoginPath is where unauthenticated requests are sent.
const LoginPath = "/login"

// SessionStore is the cookie-backed session as the guard sees it. Load
// returns nil for absent or invalid sessions; Save rewrites the full record.
type SessionStore interface {
	Load(r *http.Request) *Credential
	Save(w http.ResponseWriter, cred *Credential) error
	Clear(w http.ResponseWriter)
}

// TokenExchanger performs the two provider token exchanges.
type TokenExchanger interface {
	ExchangeCode(ctx context.Context, code string) (*TokenResponse, error)
	ExchangeRefreshToken(ctx context.Context, refreshToken string) (*TokenResponse, error)
}

// AuthedContext is what a protected handler works with: the validated
// record and an API client whose refresh path rewrites the session.
type AuthedContext struct {
	Credential *Credential
	Client     *spotify.Client
}

// Outcome is the guard's tagged result: exactly one of Continue or
// RedirectTo is set. Callers decide how to terminate the handler; the guard
// never unwinds control flow through errors.
type Outcome struct {
	Continue   *AuthedContext
	RedirectTo string
}

// Guard is the per-request entry point: it loads the session, validates the
// record, and yields an authenticated context or a login redirect.
type Guard struct {
	sessions   SessionStore
	exchanger  TokenExchanger
	clientOpts []spotify.Option
	logger     *slog.Logger
	metrics    *metrics.Metrics

	// Concurrent requests observing the same expired token share one
	// upstream exchange.
	group singleflight.Group
}

// NewGuard wires the guard's dependencies. clientOpts are applied to every
// API client the guard constructs.
func NewGuard(sessions SessionStore, exchanger TokenExchanger, logger *slog.Logger, m *metrics.Metrics, clientOpts ...spotify.Option) *Guard {
	return &Guard{
		sessions:   sessions,
		exchanger:  exchanger,
		clientOpts: clientOpts,
		logger:     logger,
		metrics:    m,
	}
}

// Authenticate resolves the inbound request to an outcome. An expired
// access token is refreshed eagerly so handlers start with a usable client;
// a 401 later in the request still goes through the same refresh path,
// retried once by the client.
func (g *Guard) Authenticate(w http.ResponseWriter, r *http.Request) Outcome {
	ctx := r.Context()

	cred := g.sessions.Load(r)
	if cred == nil {
		g.metrics.IncrementGuardOutcome("redirect")
		return Outcome{RedirectTo: LoginPath}
	}

	if cred.Expired(requestcontext.Now(ctx)) {
		if _, err := g.refresh(ctx, w, cred); err != nil {
			g.logger.WarnContext(ctx, "eager token refresh failed",
				"request_id", requestcontext.RequestID(ctx),
				"user_id", cred.UserID,
				"error", err,
			)
			g.sessions.Clear(w)
			g.metrics.IncrementGuardOutcome("redirect")
			return Outcome{RedirectTo: LoginPath}
		}
	}

	opts := append([]spotify.Option{}, g.clientOpts...)
	opts = append(opts, spotify.WithRefreshFunc(func(ctx context.Context) (string, error) {
		return g.refresh(ctx, w, cred)
	}))

	g.metrics.IncrementGuardOutcome("continue")
	return Outcome{Continue: &AuthedContext{
		Credential: cred,
		Client:     spotify.NewClient(cred.AccessToken, g.logger, opts...),
	}}
}

// EstablishSession completes a login: exchanges the authorization code,
// resolves the user identity with the fresh token, and persists the record.
func (g *Guard) EstablishSession(ctx context.Context, w http.ResponseWriter, code string) (*Credential, error) {
	resp, err := g.exchanger.ExchangeCode(ctx, code)
	if err != nil {
		return nil, err
	}

	user, err := spotify.NewClient(resp.AccessToken, g.logger, g.clientOpts...).GetUser(ctx)
	if err != nil {
		return nil, err
	}

	cred := NewCredential(resp, user.ID, requestcontext.Now(ctx))
	if err := g.sessions.Save(w, &cred); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "persisting session failed")
	}
	return &cred, nil
}

// RefreshSession performs a standalone refresh exchange for the given
// refresh token, resolves the identity, and rewrites the session. Used by
// the explicit refresh endpoint.
func (g *Guard) RefreshSession(ctx context.Context, w http.ResponseWriter, refreshToken string) (*Credential, error) {
	resp, err := g.exchangeRefresh(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	if resp.RefreshToken == "" {
		resp = cloneWithRefreshToken(resp, refreshToken)
	}

	user, err := spotify.NewClient(resp.AccessToken, g.logger, g.clientOpts...).GetUser(ctx)
	if err != nil {
		return nil, err
	}

	cred := NewCredential(resp, user.ID, requestcontext.Now(ctx))
	if err := g.sessions.Save(w, &cred); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "persisting session failed")
	}
	return &cred, nil
}

// DestroySession clears the cookie.
func (g *Guard) DestroySession(w http.ResponseWriter) {
	g.sessions.Clear(w)
}

// refresh exchanges the record's refresh token, folds the response into the
// record, and rewrites the session cookie on the in-flight response. It
// returns the new access token for the retried call.
func (g *Guard) refresh(ctx context.Context, w http.ResponseWriter, cred *Credential) (string, error) {
	resp, err := g.exchangeRefresh(ctx, cred.RefreshToken)
	if err != nil {
		return "", err
	}

	cred.ApplyRefresh(resp, requestcontext.Now(ctx))
	if err := g.sessions.Save(w, cred); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "persisting refreshed session failed")
	}

	g.metrics.IncrementGuardOutcome("refreshed")
	g.logger.InfoContext(ctx, "access token refreshed",
		"request_id", requestcontext.RequestID(ctx),
		"user_id", cred.UserID,
		"rotated", resp.RefreshToken != "",
	)
	return cred.AccessToken, nil
}

// exchangeRefresh single-flights concurrent refreshes for one refresh token.
func (g *Guard) exchangeRefresh(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	v, err, shared := g.group.Do(refreshToken, func() (interface{}, error) {
		return g.exchanger.ExchangeRefreshToken(ctx, refreshToken)
	})
	if shared {
		g.metrics.IncrementRefreshShared()
	}
	if err != nil {
		return nil, err
	}
	return v.(*TokenResponse), nil
}

func cloneWithRefreshToken(resp *TokenResponse, refreshToken string) *TokenResponse {
	clone := *resp
	clone.RefreshToken = refreshToken
	return &clone
}

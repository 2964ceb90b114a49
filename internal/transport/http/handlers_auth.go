package httptransport

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	dErrors "audiograph/pkg/domain-errors"
	"audiograph/pkg/platform/httputil"
	"audiograph/pkg/requestcontext"
)

// stateCookieName holds the anti-forgery state between the login redirect
// and the provider callback.
const stateCookieName = "auth_state"

const stateCookieMaxAge = 10 * time.Minute

// handleIndex reports whether the browser carries a usable session; the
// visualizer frontend uses this to decide between login and load.
func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	outcome := h.guard.Authenticate(w, r)
	if outcome.Continue == nil {
		httputil.WriteJSON(w, http.StatusOK, map[string]any{"authenticated": false})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"authenticated": true,
		"user_id":       outcome.Continue.Credential.UserID,
	})
}

// handleLogin redirects the browser to the provider's authorization URL and
// plants the state cookie verified on callback.
func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	state := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/",
		MaxAge:   int(stateCookieMaxAge.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.secure,
	})
	http.Redirect(w, r, h.authURL.AuthorizeURL(state), http.StatusFound)
}

// handleCallback finishes the login: state check, code exchange, identity
// fetch, session write. Exchange failures abort visibly; a silent redirect
// would leave the user with no session and no explanation.
func (h *Handler) handleCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")
	if code == "" || state == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "code and state are required"))
		return
	}

	stateCookie, err := r.Cookie(stateCookieName)
	if err != nil || stateCookie.Value != state {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "state mismatch"))
		return
	}
	clearCookie(w, stateCookieName, h.secure)

	cred, err := h.guard.EstablishSession(r.Context(), w, code)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "login failed",
			"request_id", requestcontext.RequestID(r.Context()),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(r.Context(), "session established",
		"request_id", requestcontext.RequestID(r.Context()),
		"user_id", cred.UserID,
	)
	http.Redirect(w, r, "/", http.StatusFound)
}

// handleLogout clears the session and sends the browser home.
func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	h.guard.DestroySession(w)
	http.Redirect(w, r, "/", http.StatusFound)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// handleRefresh performs an explicit refresh exchange and rewrites the
// session. Tokens never appear in the response body; the cookie carries
// them.
func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "refresh_token is required"))
		return
	}

	cred, err := h.guard.RefreshSession(r.Context(), w, req.RefreshToken)
	if err != nil {
		h.logger.WarnContext(r.Context(), "explicit refresh failed",
			"request_id", requestcontext.RequestID(r.Context()),
			"error", err,
		)
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"user_id":    cred.UserID,
		"scope":      cred.Scope,
		"token_type": cred.TokenType,
		"expires_at": cred.ExpiresAt.UnixMilli(),
	})
}

func clearCookie(w http.ResponseWriter, name string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   secure,
	})
}

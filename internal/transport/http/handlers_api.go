package httptransport

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"audiograph/internal/auth"
	"audiograph/internal/spotify"
	dErrors "audiograph/pkg/domain-errors"
	"audiograph/pkg/platform/httputil"
	pstrings "audiograph/pkg/platform/strings"
	"audiograph/pkg/requestcontext"
)

// writeResourceError translates an upstream failure. An unauthorized result
// means the refresh path is exhausted; the browser is sent back to login.
func (h *Handler) writeResourceError(w http.ResponseWriter, r *http.Request, err error) {
	if dErrors.Is(err, dErrors.CodeUnauthorized) {
		h.guard.DestroySession(w)
		http.Redirect(w, r, auth.LoginPath, http.StatusFound)
		return
	}
	h.logger.ErrorContext(r.Context(), "resource call failed",
		"request_id", requestcontext.RequestID(r.Context()),
		"path", r.URL.Path,
		"error", err,
	)
	httputil.WriteError(w, err)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request, authed *auth.AuthedContext) {
	user, err := authed.Client.GetUser(r.Context())
	if err != nil {
		h.writeResourceError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, user)
}

func (h *Handler) handlePlaylists(w http.ResponseWriter, r *http.Request, authed *auth.AuthedContext) {
	playlists, err := authed.Client.GetPlaylists(r.Context(), pageParams(r))
	if err != nil {
		h.writeResourceError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, playlists)
}

func (h *Handler) handlePlaylist(w http.ResponseWriter, r *http.Request, authed *auth.AuthedContext) {
	playlist, err := authed.Client.GetPlaylist(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeResourceError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, playlist)
}

func (h *Handler) handlePlaylistTracks(w http.ResponseWriter, r *http.Request, authed *auth.AuthedContext) {
	tracks, err := authed.Client.GetPlaylistTracks(r.Context(), chi.URLParam(r, "id"), pageParams(r))
	if err != nil {
		h.writeResourceError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, tracks)
}

func (h *Handler) handleAudioFeatures(w http.ResponseWriter, r *http.Request, authed *auth.AuthedContext) {
	ids := pstrings.DedupeAndTrim(strings.Split(r.URL.Query().Get("ids"), ","))
	if len(ids) == 0 {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "ids query parameter is required"))
		return
	}
	features, err := authed.Client.GetTracksFeatures(r.Context(), ids)
	if err != nil {
		h.writeResourceError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, features)
}

func pageParams(r *http.Request) spotify.PageParams {
	var page spotify.PageParams
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			page.Limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			page.Offset = n
		}
	}
	return page
}

package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"audiograph/internal/auth"
	"audiograph/internal/platform/metrics"
	"audiograph/internal/platform/middleware"
	"audiograph/pkg/platform/httputil"
)

// AuthURLBuilder produces the provider authorization redirect URL for the
// login entry point.
type AuthURLBuilder interface {
	AuthorizeURL(state string) string
}

// Handler is the thin HTTP layer. It delegates to the guard and API client;
// transport concerns stay here, token logic stays in internal/auth.
type Handler struct {
	guard   *auth.Guard
	authURL AuthURLBuilder
	logger  *slog.Logger
	metrics *metrics.Metrics
	secure  bool
}

// NewHandler wires the HTTP layer's dependencies. secure controls cookie
// attributes and should be true in production.
func NewHandler(guard *auth.Guard, authURL AuthURLBuilder, logger *slog.Logger, m *metrics.Metrics, secure bool) *Handler {
	return &Handler{
		guard:   guard,
		authURL: authURL,
		logger:  logger,
		metrics: m,
		secure:  secure,
	}
}

// NewRouter wires all endpoints and shared middleware.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestLogger(h.logger, h.metrics))

	r.Get("/healthz", handleHealthz)
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/", h.handleIndex)
	r.Get("/login", h.handleLogin)
	r.Get("/callback", h.handleCallback)
	r.Get("/logout", h.handleLogout)
	r.Post("/refresh", h.handleRefresh)

	r.Route("/api", func(r chi.Router) {
		r.Get("/me", h.protected(h.handleMe))
		r.Get("/playlists", h.protected(h.handlePlaylists))
		r.Get("/playlists/{id}", h.protected(h.handlePlaylist))
		r.Get("/playlists/{id}/tracks", h.protected(h.handlePlaylistTracks))
		r.Get("/audio-features", h.protected(h.handleAudioFeatures))
	})

	return r
}

func handleHealthz(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// protected runs the request guard and hands validated context to the
// wrapped handler. A redirect outcome terminates the request here.
func (h *Handler) protected(next func(http.ResponseWriter, *http.Request, *auth.AuthedContext)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		outcome := h.guard.Authenticate(w, r)
		if outcome.Continue == nil {
			http.Redirect(w, r, outcome.RedirectTo, http.StatusFound)
			return
		}
		next(w, r, outcome.Continue)
	}
}

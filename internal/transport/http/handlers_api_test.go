package httptransport_test

import (
	"net/http"
	"net/http/httptest"
	"time"

	"audiograph/internal/session"
)

// ============================================================
// Protected resources
// ============================================================

func (s *HandlersSuite) TestProtectedWithoutSessionRedirects() {
	targets := []string{
		"/api/me",
		"/api/playlists",
		"/api/playlists/pl1",
		"/api/playlists/pl1/tracks",
		"/api/audio-features?ids=t1",
	}
	for _, target := range targets {
		rec := s.do(httptest.NewRequest(http.MethodGet, target, nil))
		s.Equal(http.StatusFound, rec.Code, target)
		s.Equal("/login", rec.Header().Get("Location"), target)
	}
}

func (s *HandlersSuite) TestProtectedWithValidSession() {
	r := httptest.NewRequest(http.MethodGet, "/api/playlists", nil)
	r.AddCookie(s.sessionCookie(s.credential("A1", s.now.Add(time.Hour))))

	rec := s.do(r)

	s.Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), "pl1")
	s.Equal([]string{"Bearer A1"}, s.upstreamAuths)
	// Nothing to refresh, nothing rewritten.
	s.Nil(cookieByName(rec, session.CookieName))
}

func (s *HandlersSuite) TestExpiredTokenRefreshedBeforeResourceCall() {
	s.goodToken = "A2"

	r := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	r.AddCookie(s.sessionCookie(s.credential("A1", time.Now().Add(-time.Minute))))

	rec := s.do(r)

	// The stale token never reaches the resource server.
	s.Equal(http.StatusOK, rec.Code)
	s.Equal([]string{"Bearer A2"}, s.upstreamAuths)

	sess := cookieByName(rec, session.CookieName)
	s.Require().NotNil(sess)
	loaded := s.loadCookie(sess)
	s.Require().NotNil(loaded)
	s.Equal("A2", loaded.AccessToken)
	s.Equal("R1", loaded.RefreshToken)
}

func (s *HandlersSuite) TestUpstreamRejectionRefreshesAndReplays() {
	// The session looks fresh but the provider has already invalidated A1;
	// only the 401 reveals it.
	s.goodToken = "A2"

	r := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	r.AddCookie(s.sessionCookie(s.credential("A1", s.now.Add(time.Hour))))

	rec := s.do(r)

	// The rejected call is replayed once with the refreshed token and the
	// result still lands on this response.
	s.Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), "spotify-user-1")
	s.Equal([]string{"Bearer A1", "Bearer A2"}, s.upstreamAuths)

	// The rewritten session carries the new token for subsequent requests.
	sess := cookieByName(rec, session.CookieName)
	s.Require().NotNil(sess)
	loaded := s.loadCookie(sess)
	s.Require().NotNil(loaded)
	s.Equal("A2", loaded.AccessToken)
}

func (s *HandlersSuite) TestExhaustedRefreshPathEndsSession() {
	// Even the refreshed token is rejected upstream.
	s.goodToken = "none"

	r := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	r.AddCookie(s.sessionCookie(s.credential("A1", s.now.Add(time.Hour))))

	rec := s.do(r)

	s.Equal(http.StatusFound, rec.Code)
	s.Equal("/login", rec.Header().Get("Location"))

	// The dead session is cleared so the browser starts over cleanly.
	sess := cookieByName(rec, session.CookieName)
	s.Require().NotNil(sess)
	s.Equal(-1, sess.MaxAge)
}

func (s *HandlersSuite) TestAudioFeaturesRequiresIDs() {
	r := httptest.NewRequest(http.MethodGet, "/api/audio-features", nil)
	r.AddCookie(s.sessionCookie(s.credential("A1", s.now.Add(time.Hour))))

	rec := s.do(r)

	s.Equal(http.StatusBadRequest, rec.Code)
	s.Contains(rec.Body.String(), "bad_request")
	s.Empty(s.upstreamAuths)
}

func (s *HandlersSuite) TestUpstreamOutageMapsToGatewayTimeout() {
	s.upstream.Close()

	r := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	r.AddCookie(s.sessionCookie(s.credential("A1", s.now.Add(time.Hour))))

	rec := s.do(r)

	s.Equal(http.StatusGatewayTimeout, rec.Code)
	s.Contains(rec.Body.String(), "upstream_unavailable")
}

package session

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"audiograph/internal/auth"
	"audiograph/internal/platform/config"
)

func newTestCodec(t *testing.T) *Codec {
	t.Helper()
	return NewCodec(config.Server{
		SessionSecret: "0123456789abcdef0123456789abcdef",
		SessionMaxAge: 30 * 24 * time.Hour,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func testCredential() auth.Credential {
	return auth.Credential{
		UserID:       "spotify-user-1",
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		Scope:        "playlist-read-private user-read-email",
		TokenType:    auth.TokenTypeBearer,
		ExpiresAt:    time.Now().Add(time.Hour).Truncate(time.Millisecond),
	}
}

func requestWithSavedCookie(t *testing.T, codec *Codec, cred auth.Credential) *http.Request {
	t.Helper()
	rec := httptest.NewRecorder()
	require.NoError(t, codec.Save(rec, &cred))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(cookies[0])
	return r
}

func TestCodecRoundTrip(t *testing.T) {
	codec := newTestCodec(t)
	cred := testCredential()

	loaded := codec.Load(requestWithSavedCookie(t, codec, cred))
	require.NotNil(t, loaded)

	assert.Equal(t, cred.UserID, loaded.UserID)
	assert.Equal(t, cred.AccessToken, loaded.AccessToken)
	assert.Equal(t, cred.RefreshToken, loaded.RefreshToken)
	assert.Equal(t, cred.Scope, loaded.Scope)
	assert.Equal(t, cred.TokenType, loaded.TokenType)
	// Expiry survives the trip at millisecond precision.
	assert.True(t, cred.ExpiresAt.Equal(loaded.ExpiresAt))
}

func TestCodecCookieAttributes(t *testing.T) {
	codec := newTestCodec(t)
	cred := testCredential()

	rec := httptest.NewRecorder()
	require.NoError(t, codec.Save(rec, &cred))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	cookie := cookies[0]

	assert.Equal(t, CookieName, cookie.Name)
	assert.Equal(t, "/", cookie.Path)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
	assert.False(t, cookie.Secure)
	assert.Equal(t, int((30 * 24 * time.Hour).Seconds()), cookie.MaxAge)
}

func TestCodecSecureInProduction(t *testing.T) {
	codec := NewCodec(config.Server{
		SessionSecret: "0123456789abcdef0123456789abcdef",
		SessionMaxAge: time.Hour,
		Production:    true,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	cred := testCredential()

	rec := httptest.NewRecorder()
	require.NoError(t, codec.Save(rec, &cred))
	require.Len(t, rec.Result().Cookies(), 1)
	assert.True(t, rec.Result().Cookies()[0].Secure)
}

func TestCodecRejectsTampering(t *testing.T) {
	codec := newTestCodec(t)
	cred := testCredential()

	rec := httptest.NewRecorder()
	require.NoError(t, codec.Save(rec, &cred))
	cookie := rec.Result().Cookies()[0]

	t.Run("flipped signature byte", func(t *testing.T) {
		parts := strings.Split(cookie.Value, ".")
		require.Len(t, parts, 3)
		sig := []byte(parts[2])
		if sig[0] == 'A' {
			sig[0] = 'B'
		} else {
			sig[0] = 'A'
		}

		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.AddCookie(&http.Cookie{Name: CookieName, Value: parts[0] + "." + parts[1] + "." + string(sig)})
		assert.Nil(t, codec.Load(r))
	})

	t.Run("signed with a different key", func(t *testing.T) {
		other := NewCodec(config.Server{
			SessionSecret: "ffffffffffffffffffffffffffffffff",
			SessionMaxAge: time.Hour,
		}, slog.New(slog.NewTextHandler(io.Discard, nil)))

		assert.Nil(t, codec.Load(requestWithSavedCookie(t, other, cred)))
	})

	t.Run("alg none", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
			AccessToken:    cred.AccessToken,
			RefreshToken:   cred.RefreshToken,
			Scope:          cred.Scope,
			TokenType:      cred.TokenType,
			TokenExpiresAt: cred.ExpiresAt.UnixMilli(),
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   cred.UserID,
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		})
		unsigned, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.AddCookie(&http.Cookie{Name: CookieName, Value: unsigned})
		assert.Nil(t, codec.Load(r))
	})

	t.Run("garbage value", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.AddCookie(&http.Cookie{Name: CookieName, Value: "not-a-jwt"})
		assert.Nil(t, codec.Load(r))
	})
}

func TestCodecLoadMissingCookie(t *testing.T) {
	codec := newTestCodec(t)
	assert.Nil(t, codec.Load(httptest.NewRequest(http.MethodGet, "/", nil)))
}

func TestCodecRejectsPartialRecord(t *testing.T) {
	codec := newTestCodec(t)

	tests := []struct {
		name   string
		mutate func(*auth.Credential)
	}{
		{"missing user_id", func(c *auth.Credential) { c.UserID = "" }},
		{"missing access_token", func(c *auth.Credential) { c.AccessToken = "" }},
		{"missing refresh_token", func(c *auth.Credential) { c.RefreshToken = "" }},
		{"missing scope", func(c *auth.Credential) { c.Scope = "" }},
		{"missing token expiry", func(c *auth.Credential) { c.ExpiresAt = time.Time{} }},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cred := testCredential()
			test.mutate(&cred)
			assert.Nil(t, codec.Load(requestWithSavedCookie(t, codec, cred)))
		})
	}
}

func TestCodecRejectsExpiredSession(t *testing.T) {
	// A session past its own lifetime is invalid even when the embedded
	// access token is still fresh.
	codec := NewCodec(config.Server{
		SessionSecret: "0123456789abcdef0123456789abcdef",
		SessionMaxAge: -time.Minute,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	assert.Nil(t, codec.Load(requestWithSavedCookie(t, codec, testCredential())))
}

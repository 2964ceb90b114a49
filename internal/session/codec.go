// Package session reads and writes the cookie-backed session. The cookie
// value is a signed JWT over the full credential record; the browser owns
// the bytes, the codec owns their integrity.
package session

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"audiograph/internal/auth"
	"audiograph/internal/platform/config"
)

// CookieName is the session cookie.
const CookieName = "auth"

// Claims is the credential record as stored in the cookie. Subject carries
// the user id; RegisteredClaims.ExpiresAt bounds the session itself, which
// outlives any individual access token.
type Claims struct {
	AccessToken    string `json:"access_token"`
	RefreshToken   string `json:"refresh_token"`
	Scope          string `json:"scope"`
	TokenType      string `json:"token_type"`
	TokenExpiresAt int64  `json:"token_expires_at"` // unix milliseconds
	jwt.RegisteredClaims
}

// Codec signs and verifies session cookies.
type Codec struct {
	signingKey []byte
	maxAge     time.Duration
	secure     bool
	logger     *slog.Logger
}

// NewCodec builds a codec from server configuration.
func NewCodec(cfg config.Server, logger *slog.Logger) *Codec {
	return &Codec{
		signingKey: []byte(cfg.SessionSecret),
		maxAge:     cfg.SessionMaxAge,
		secure:     cfg.Production,
		logger:     logger,
	}
}

// Load reconstructs the credential record from the request cookie. Any
// failure — missing cookie, bad signature, wrong algorithm, expired session,
// partial record — yields nil. Invalid cookies are an expected steady-state
// condition and are logged at debug only.
func (c *Codec) Load(r *http.Request) *auth.Credential {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return nil
	}

	var claims Claims
	parsed, err := jwt.ParseWithClaims(cookie.Value, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return c.signingKey, nil
	})
	if err != nil || !parsed.Valid {
		c.logger.DebugContext(r.Context(), "session cookie rejected", "error", err)
		return nil
	}

	cred := auth.Credential{
		UserID:       claims.Subject,
		AccessToken:  claims.AccessToken,
		RefreshToken: claims.RefreshToken,
		Scope:        claims.Scope,
		TokenType:    claims.TokenType,
		ExpiresAt:    time.UnixMilli(claims.TokenExpiresAt),
	}
	if claims.TokenExpiresAt <= 0 {
		cred.ExpiresAt = time.Time{}
	}
	if err := cred.Validate(); err != nil {
		c.logger.DebugContext(r.Context(), "session cookie failed schema validation", "error", err)
		return nil
	}
	return &cred
}

// Save re-signs and re-serializes the full record onto the response. There
// are no partial updates; callers read-modify-write.
func (c *Codec) Save(w http.ResponseWriter, cred *auth.Credential) error {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		AccessToken:    cred.AccessToken,
		RefreshToken:   cred.RefreshToken,
		Scope:          cred.Scope,
		TokenType:      cred.TokenType,
		TokenExpiresAt: cred.ExpiresAt.UnixMilli(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   cred.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.maxAge)),
		},
	})

	signed, err := token.SignedString(c.signingKey)
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    signed,
		Path:     "/",
		MaxAge:   int(c.maxAge.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   c.secure,
	})
	return nil
}

// Clear expires the session cookie.
func (c *Codec) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   c.secure,
	})
}

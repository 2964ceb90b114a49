package auth

import (
	"strings"
	"time"

	"github.com/asaskevich/govalidator"

	dErrors "audiograph/pkg/domain-errors"
)

// TokenTypeBearer is the only token type the provider issues.
const TokenTypeBearer = "Bearer"

// TokenResponse is the provider token endpoint payload, shared by the
// authorization-code and refresh-token grants.
type TokenResponse struct {
	AccessToken  string `json:"access_token" valid:"required"`
	TokenType    string `json:"token_type" valid:"required"`
	Scope        string `json:"scope" valid:"required"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
}

// Validate checks the fixed token response schema. requireRefreshToken is
// true for code exchanges; refresh responses may legitimately omit the field
// (the caller then retains the previous refresh token).
func (t *TokenResponse) Validate(requireRefreshToken bool) error {
	if _, err := govalidator.ValidateStruct(t); err != nil {
		return dErrors.Wrap(err, dErrors.CodeAuthExchange, "token response failed schema validation")
	}
	if t.TokenType != TokenTypeBearer {
		return dErrors.New(dErrors.CodeAuthExchange, "unexpected token_type "+t.TokenType)
	}
	if t.ExpiresIn <= 0 {
		return dErrors.New(dErrors.CodeAuthExchange, "token response missing expires_in")
	}
	if requireRefreshToken && t.RefreshToken == "" {
		return dErrors.New(dErrors.CodeAuthExchange, "token response missing refresh_token")
	}
	return nil
}

// Credential is the authenticated session's token bundle and identity. It is
// a transient view reconstructed from the cookie on every request; the
// session codec owns the serialized bytes.
type Credential struct {
	UserID       string    `json:"user_id"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	Scope        string    `json:"scope"`
	TokenType    string    `json:"token_type"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// NewCredential builds a record from a validated token response. ExpiresAt
// is computed here, at issuance, and never trusted from client input.
func NewCredential(resp *TokenResponse, userID string, now time.Time) Credential {
	return Credential{
		UserID:       userID,
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		Scope:        resp.Scope,
		TokenType:    resp.TokenType,
		ExpiresAt:    now.Add(time.Duration(resp.ExpiresIn) * time.Second),
	}
}

// Validate enforces the all-or-nothing invariant: a record missing any field
// is treated as absent, never partially usable.
func (c *Credential) Validate() error {
	switch {
	case strings.TrimSpace(c.UserID) == "":
		return dErrors.New(dErrors.CodeUnauthorized, "credential missing user_id")
	case c.AccessToken == "":
		return dErrors.New(dErrors.CodeUnauthorized, "credential missing access_token")
	case c.RefreshToken == "":
		return dErrors.New(dErrors.CodeUnauthorized, "credential missing refresh_token")
	case c.Scope == "":
		return dErrors.New(dErrors.CodeUnauthorized, "credential missing scope")
	case c.TokenType != TokenTypeBearer:
		return dErrors.New(dErrors.CodeUnauthorized, "credential has unexpected token_type")
	case c.ExpiresAt.IsZero():
		return dErrors.New(dErrors.CodeUnauthorized, "credential missing expires_at")
	}
	return nil
}

// Expired reports whether the access token needs a refresh before use.
func (c *Credential) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// ApplyRefresh folds a refresh response into the record. The refresh token
// rotates only when the provider sends a replacement; an omitted field keeps
// the previous one.
func (c *Credential) ApplyRefresh(resp *TokenResponse, now time.Time) {
	c.AccessToken = resp.AccessToken
	c.TokenType = resp.TokenType
	c.Scope = resp.Scope
	c.ExpiresAt = now.Add(time.Duration(resp.ExpiresIn) * time.Second)
	if resp.RefreshToken != "" {
		c.RefreshToken = resp.RefreshToken
	}
}

package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "audiograph/pkg/domain-errors"
)

func validTokenResponse() *TokenResponse {
	return &TokenResponse{
		AccessToken:  "A",
		TokenType:    "Bearer",
		Scope:        "playlist-read-private",
		ExpiresIn:    3600,
		RefreshToken: "R",
	}
}

func TestTokenResponseValidate(t *testing.T) {
	tests := []struct {
		name           string
		mutate         func(*TokenResponse)
		requireRefresh bool
		wantErr        bool
	}{
		{name: "valid code exchange response", mutate: func(r *TokenResponse) {}, requireRefresh: true},
		{name: "valid refresh response without refresh_token", mutate: func(r *TokenResponse) { r.RefreshToken = "" }},
		{name: "missing access_token", mutate: func(r *TokenResponse) { r.AccessToken = "" }, wantErr: true},
		{name: "missing token_type", mutate: func(r *TokenResponse) { r.TokenType = "" }, wantErr: true},
		{name: "wrong token_type", mutate: func(r *TokenResponse) { r.TokenType = "MAC" }, wantErr: true},
		{name: "missing scope", mutate: func(r *TokenResponse) { r.Scope = "" }, wantErr: true},
		{name: "zero expires_in", mutate: func(r *TokenResponse) { r.ExpiresIn = 0 }, wantErr: true},
		{name: "negative expires_in", mutate: func(r *TokenResponse) { r.ExpiresIn = -10 }, wantErr: true},
		{name: "code exchange without refresh_token", mutate: func(r *TokenResponse) { r.RefreshToken = "" }, requireRefresh: true, wantErr: true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			resp := validTokenResponse()
			test.mutate(resp)

			err := resp.Validate(test.requireRefresh)
			if test.wantErr {
				require.Error(t, err)
				assert.True(t, dErrors.Is(err, dErrors.CodeAuthExchange))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestNewCredentialComputesExpiry(t *testing.T) {
	issued := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	resp := validTokenResponse()

	cred := NewCredential(resp, "u1", issued)

	// Expiry is fixed at issuance, independent of when the record is read.
	assert.Equal(t, issued.Add(3600*time.Second), cred.ExpiresAt)
	assert.Equal(t, "u1", cred.UserID)
	assert.Equal(t, "A", cred.AccessToken)
	assert.Equal(t, "R", cred.RefreshToken)

	assert.False(t, cred.Expired(issued.Add(59*time.Minute)))
	assert.True(t, cred.Expired(issued.Add(time.Hour)))
}

func TestCredentialValidateAllOrNothing(t *testing.T) {
	now := time.Now()
	valid := NewCredential(validTokenResponse(), "u1", now)
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*Credential)
	}{
		{"missing user_id", func(c *Credential) { c.UserID = "" }},
		{"missing access_token", func(c *Credential) { c.AccessToken = "" }},
		{"missing refresh_token", func(c *Credential) { c.RefreshToken = "" }},
		{"missing scope", func(c *Credential) { c.Scope = "" }},
		{"wrong token_type", func(c *Credential) { c.TokenType = "basic" }},
		{"zero expires_at", func(c *Credential) { c.ExpiresAt = time.Time{} }},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cred := valid
			test.mutate(&cred)
			assert.Error(t, cred.Validate())
		})
	}
}

func TestApplyRefreshRotation(t *testing.T) {
	issued := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	refreshed := issued.Add(time.Hour)

	t.Run("response omitting refresh_token retains the prior one", func(t *testing.T) {
		cred := NewCredential(validTokenResponse(), "u1", issued)

		resp := validTokenResponse()
		resp.AccessToken = "A2"
		resp.RefreshToken = ""
		cred.ApplyRefresh(resp, refreshed)

		assert.Equal(t, "A2", cred.AccessToken)
		assert.Equal(t, "R", cred.RefreshToken)
		assert.Equal(t, refreshed.Add(3600*time.Second), cred.ExpiresAt)
		assert.Equal(t, "u1", cred.UserID)
	})

	t.Run("response carrying a new refresh_token replaces it", func(t *testing.T) {
		cred := NewCredential(validTokenResponse(), "u1", issued)

		resp := validTokenResponse()
		resp.AccessToken = "A2"
		resp.RefreshToken = "R2"
		cred.ApplyRefresh(resp, refreshed)

		assert.Equal(t, "A2", cred.AccessToken)
		assert.Equal(t, "R2", cred.RefreshToken)
	})
}

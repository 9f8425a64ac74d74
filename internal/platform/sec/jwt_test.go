// Copyright (c) 2026 Vidora. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTokenService(t *testing.T) *TokenService {
	t.Helper()
	service, err := NewTokenService(TokenConfig{
		AccessSecret:  "access-secret",
		RefreshSecret: "refresh-secret",
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    7 * 24 * time.Hour,
		Issuer:        "vidora.test",
	})
	require.NoError(t, err)
	return service
}

/*
TestNewTokenService_Rejects verifies constructor guards on signing material and lifetimes.
*/
func TestNewTokenService_Rejects(t *testing.T) {
	tests := []struct {
		name string
		cfg  TokenConfig
	}{
		{"missing_access", TokenConfig{RefreshSecret: "r", AccessTTL: time.Minute, RefreshTTL: time.Hour}},
		{"same_secrets", TokenConfig{AccessSecret: "s", RefreshSecret: "s", AccessTTL: time.Minute, RefreshTTL: time.Hour}},
		{"zero_ttl", TokenConfig{AccessSecret: "a", RefreshSecret: "r", RefreshTTL: time.Hour}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTokenService(tt.cfg)
			assert.Error(t, err)
		})
	}
}

/*
TestTokenService_AccessRoundTrip checks that a freshly issued access token yields the user id.
*/
func TestTokenService_AccessRoundTrip(t *testing.T) {
	service := newTestTokenService(t)

	for _, userID := range []string{"0190b0a4-7e3c-7b41-9d7e-1f2e3d4c5b6a", "u-1", "42"} {
		token, err := service.IssueAccessToken(userID)
		require.NoError(t, err)

		claims, err := service.VerifyAccess(token)
		require.NoError(t, err)
		assert.Equal(t, userID, claims.UserID)
		assert.Equal(t, userID, claims.Subject)
		assert.WithinDuration(t, time.Now().Add(15*time.Minute), claims.ExpiresAt.Time, 2*time.Second)
	}
}

/*
TestTokenService_RefreshRoundTrip checks the refresh issuer/verifier pair and its lifetime.
*/
func TestTokenService_RefreshRoundTrip(t *testing.T) {
	service := newTestTokenService(t)

	token, err := service.IssueRefreshToken("user-7")
	require.NoError(t, err)

	claims, err := service.VerifyRefresh(token)
	require.NoError(t, err)
	assert.Equal(t, "user-7", claims.UserID)
	assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), claims.ExpiresAt.Time, 2*time.Second)
}

/*
TestTokenService_KeysAreNotInterchangeable ensures the two secrets are not cross-accepted.
*/
func TestTokenService_KeysAreNotInterchangeable(t *testing.T) {
	service := newTestTokenService(t)

	access, err := service.IssueAccessToken("user-1")
	require.NoError(t, err)
	refresh, err := service.IssueRefreshToken("user-1")
	require.NoError(t, err)

	_, err = service.VerifyRefresh(access)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = service.VerifyAccess(refresh)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

/*
TestTokenService_UniquePerIssue guarantees two tokens for one user never collide,
even when issued within the same second.
*/
func TestTokenService_UniquePerIssue(t *testing.T) {
	service := newTestTokenService(t)
	fixed := time.Now()
	service.now = func() time.Time { return fixed }

	first, err := service.IssueRefreshToken("user-1")
	require.NoError(t, err)
	second, err := service.IssueRefreshToken("user-1")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

/*
TestTokenService_Expired rejects a token whose lifetime has elapsed.
*/
func TestTokenService_Expired(t *testing.T) {
	service := newTestTokenService(t)
	service.now = func() time.Time { return time.Now().Add(-time.Hour) }

	token, err := service.IssueAccessToken("user-1")
	require.NoError(t, err)

	service.now = time.Now
	_, err = service.VerifyAccess(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

/*
TestTokenService_Tampered covers bad signatures, garbage input and foreign algorithms.
*/
func TestTokenService_Tampered(t *testing.T) {
	service := newTestTokenService(t)

	token, err := service.IssueAccessToken("user-1")
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	forged := parts[0] + "." + parts[1] + ".c2lnbmF0dXJl"

	noneToken, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"id":  "user-1",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	missingID, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("access-secret"))
	require.NoError(t, err)

	for name, candidate := range map[string]string{
		"forged_signature": forged,
		"garbage":          "not-a-jwt",
		"empty":            "",
		"alg_none":         noneToken,
		"missing_id":       missingID,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := service.VerifyAccess(candidate)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

// Copyright (c) 2026 Vidora. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/taibuivan/vidora/internal/platform/apperr"
	"github.com/taibuivan/vidora/internal/platform/sec"
)

// TokenSigner signs and verifies the two token kinds. Satisfied by [*sec.TokenService].
type TokenSigner interface {
	IssueAccessToken(userID string) (string, error)
	IssueRefreshToken(userID string) (string, error)
	VerifyRefresh(tokenString string) (*sec.TokenClaims, error)
	AccessTTL() time.Duration
	RefreshTTL() time.Duration
}

// errRefreshReused is the client-facing rejection for a superseded refresh token.
var errRefreshReused = apperr.Unauthorized("Refresh token is expired or used")

// TokenIssuer mints token pairs and keeps the user's stored refresh token in
// step with the newest one.
type TokenIssuer struct {
	signer TokenSigner
	users  UserRepository
}

// NewTokenIssuer wires a signer to the repository that stores refresh tokens.
func NewTokenIssuer(signer TokenSigner, users UserRepository) *TokenIssuer {
	return &TokenIssuer{signer: signer, users: users}
}

// AccessTTL reports the access-token lifetime, used for cookie MaxAge.
func (issuer *TokenIssuer) AccessTTL() time.Duration { return issuer.signer.AccessTTL() }

// RefreshTTL reports the refresh-token lifetime, used for cookie MaxAge.
func (issuer *TokenIssuer) RefreshTTL() time.Duration { return issuer.signer.RefreshTTL() }

// VerifyRefresh checks a refresh token's signature and expiry.
func (issuer *TokenIssuer) VerifyRefresh(tokenString string) (*sec.TokenClaims, error) {
	return issuer.signer.VerifyRefresh(tokenString)
}

/*
IssuePair signs a fresh pair and overwrites the stored refresh token.

Any failure, including a missing user record, is an INTERNAL_ERROR.
*/
func (issuer *TokenIssuer) IssuePair(ctx context.Context, userID string) (*TokenPair, error) {
	pair, err := issuer.mint(userID)
	if err != nil {
		return nil, err
	}

	if err := issuer.users.SetRefreshToken(ctx, userID, pair.RefreshToken); err != nil {
		return nil, apperr.Internal(fmt.Errorf("token_issuer_persist_failed: %w", err))
	}

	return pair, nil
}

/*
Rotate signs a fresh pair and stores it only if presented is still the
current refresh token.

Losing the compare-and-set means another request already rotated (or the user
logged out), so the caller gets UNAUTHORIZED.
*/
func (issuer *TokenIssuer) Rotate(ctx context.Context, userID, presented string) (*TokenPair, error) {
	pair, err := issuer.mint(userID)
	if err != nil {
		return nil, err
	}

	swapped, err := issuer.users.SwapRefreshToken(ctx, userID, presented, pair.RefreshToken)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("token_issuer_rotate_failed: %w", err))
	}
	if !swapped {
		return nil, errRefreshReused
	}

	return pair, nil
}

func (issuer *TokenIssuer) mint(userID string) (*TokenPair, error) {
	if userID == "" {
		return nil, apperr.Internal(errors.New("token_issuer_mint_failed: empty user id"))
	}

	accessToken, err := issuer.signer.IssueAccessToken(userID)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("token_issuer_access_failed: %w", err))
	}

	refreshToken, err := issuer.signer.IssueRefreshToken(userID)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("token_issuer_refresh_failed: %w", err))
	}

	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

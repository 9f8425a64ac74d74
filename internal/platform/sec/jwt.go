// Copyright (c) 2026 Vidora. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package sec provides cryptographic primitives and token management.
//
// # Architecture
//
// This package isolates security-sensitive code (Hashing, JWT Signing) from
// the domain logic. It acts as an Infrastructure service injected into the
// Application layer via the auth package's signer contract.
package sec

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken is returned for a bad signature, a malformed payload, or an
// expired token. The concrete reason is wrapped for logging.
var ErrInvalidToken = errors.New("sec: invalid token")

// TokenClaims is the payload embedded in both access and refresh tokens.
//
// The registered 'jti' is a fresh UUID per token so that two tokens issued
// for the same user within one second never compare equal.
type TokenClaims struct {
	jwt.RegisteredClaims

	UserID string `json:"id"`
}

// TokenConfig carries the signing material and lifetimes for [TokenService].
type TokenConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
}

// TokenService handles generation and verification of HS256 JWTs.
//
// Access and refresh tokens are signed with distinct secrets, so a token of
// one kind never verifies as the other.
type TokenService struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	issuer        string
	now           func() time.Time
}

// NewTokenService creates a new TokenService from an explicit configuration.
func NewTokenService(cfg TokenConfig) (*TokenService, error) {
	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" {
		return nil, errors.New("sec: access and refresh secrets are required")
	}
	if cfg.AccessSecret == cfg.RefreshSecret {
		return nil, errors.New("sec: access and refresh secrets must differ")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("sec: token lifetimes must be positive")
	}

	return &TokenService{
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		accessTTL:     cfg.AccessTTL,
		refreshTTL:    cfg.RefreshTTL,
		issuer:        cfg.Issuer,
		now:           time.Now,
	}, nil
}

// AccessTTL reports the configured access-token lifetime.
func (service *TokenService) AccessTTL() time.Duration { return service.accessTTL }

// RefreshTTL reports the configured refresh-token lifetime.
func (service *TokenService) RefreshTTL() time.Duration { return service.refreshTTL }

// IssueAccessToken signs {id: userID} with the access secret.
func (service *TokenService) IssueAccessToken(userID string) (string, error) {
	return service.sign(userID, service.accessSecret, service.accessTTL)
}

// IssueRefreshToken signs {id: userID} with the refresh secret.
func (service *TokenService) IssueRefreshToken(userID string) (string, error) {
	return service.sign(userID, service.refreshSecret, service.refreshTTL)
}

// VerifyAccess checks the signature and expiry of an access token.
func (service *TokenService) VerifyAccess(tokenString string) (*TokenClaims, error) {
	return service.verify(tokenString, service.accessSecret)
}

// VerifyRefresh checks the signature and expiry of a refresh token.
func (service *TokenService) VerifyRefresh(tokenString string) (*TokenClaims, error) {
	return service.verify(tokenString, service.refreshSecret)
}

func (service *TokenService) sign(userID string, secret []byte, timeToLive time.Duration) (string, error) {
	if userID == "" {
		return "", errors.New("sec: cannot sign token for empty user id")
	}

	currentTime := service.now()
	claims := TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID,
			Issuer:    service.issuer,
			IssuedAt:  jwt.NewNumericDate(currentTime),
			ExpiresAt: jwt.NewNumericDate(currentTime.Add(timeToLive)),
		},
		UserID: userID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sec: failed to sign token: %w", err)
	}

	return signedToken, nil
}

func (service *TokenService) verify(tokenString string, secret []byte) (*TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &TokenClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("sec: unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(service.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*TokenClaims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, fmt.Errorf("%w: malformed payload", ErrInvalidToken)
	}

	return claims, nil
}

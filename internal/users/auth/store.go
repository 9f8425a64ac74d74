// Copyright (c) 2026 Vidora. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"time"
)

// # User Data Access

// UserRepository defines the data access contract for user accounts.
//
// Lookups that find nothing return an [apperr.AppError] with code NOT_FOUND;
// a duplicate username or email on Create returns CONFLICT.
type UserRepository interface {

	// FindByID returns the account with the given ID.
	FindByID(ctx context.Context, id string) (*User, error)

	/*
		FindByUsernameOrEmail returns the first account whose username equals
		username or whose email equals email. Empty arguments never match.
		Both arguments must already be canonical.
	*/
	FindByUsernameOrEmail(ctx context.Context, username, email string) (*User, error)

	// Create persists a brand-new account. PasswordHash must be set.
	Create(ctx context.Context, user *User) error

	// SetRefreshToken overwrites the stored refresh token unconditionally.
	SetRefreshToken(ctx context.Context, id, token string) error

	/*
		SwapRefreshToken replaces the stored refresh token with next only if it
		currently equals presented. It reports whether the swap happened.

		This is the compare-and-set that keeps two concurrent refreshes with the
		same token from both succeeding.
	*/
	SwapRefreshToken(ctx context.Context, id, presented, next string) (bool, error)

	// ClearRefreshToken empties the stored refresh token.
	ClearRefreshToken(ctx context.Context, id string) error

	// UpdatePassword replaces only the password hash and clears the refresh token.
	UpdatePassword(ctx context.Context, id, passwordHash string) error
}

// # Login Throttle

// LoginThrottle counts failed logins per identifier within a fixed window.
type LoginThrottle interface {

	// RetryAfter reports how long the identifier stays locked, or 0 when it may try.
	RetryAfter(ctx context.Context, identifier string) (time.Duration, error)

	// RecordFailure counts one failed attempt.
	RecordFailure(ctx context.Context, identifier string) error

	// Reset forgets every failure of the identifier.
	Reset(ctx context.Context, identifier string) error
}

// # Image Storage

// Uploader stores a staged local file and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, localPath string) (string, error)
}

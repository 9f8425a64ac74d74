// Copyright (c) 2026 Vidora. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package auth implements account registration, login, logout and token refresh.

It defines the User entity, the repository contracts it is persisted through,
the token issuer that owns refresh-token rotation, and the HTTP delivery layer.

# Architecture

Entities defined here carry their own password rule: a hash is only computed
through [User.SetPassword], so unrelated field updates never rehash.
*/
package auth

import (
	"errors"
	"time"

	"github.com/taibuivan/vidora/internal/platform/sec"
	"github.com/taibuivan/vidora/pkg/ident"
	"github.com/taibuivan/vidora/pkg/uuid"
)

// # Domain Entities

// User is a registered account.
//
// PasswordHash and RefreshToken are tagged out of JSON; callers outside this
// package only ever see a [Profile].
type User struct {
	ID            string    `json:"id"`
	Username      string    `json:"username"`
	Email         string    `json:"email"`
	FullName      string    `json:"fullname"`
	AvatarURL     string    `json:"avatar_url"`
	CoverImageURL string    `json:"cover_image_url,omitempty"`
	PasswordHash  string    `json:"-"`
	RefreshToken  string    `json:"-"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Profile is the sanitized view of a [User]: no password hash, no refresh token.
type Profile struct {
	ID            string    `json:"id"`
	Username      string    `json:"username"`
	Email         string    `json:"email"`
	FullName      string    `json:"fullname"`
	AvatarURL     string    `json:"avatar_url"`
	CoverImageURL string    `json:"cover_image_url,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TokenPair is the transient result of issuing or rotating credentials.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// NewUserParams holds the caller-supplied fields of a new account. Image URLs
// are set on the returned [User] once uploads finish.
type NewUserParams struct {
	FullName string
	Email    string
	Username string
	Password string
}

// NewUser builds an account with a fresh id, canonical identifiers and a
// hashed password. The plain password is not retained.
func NewUser(hasher sec.PasswordHasher, params NewUserParams) (*User, error) {
	user := &User{
		ID:       uuid.New(),
		Username: ident.Canonical(params.Username),
		Email:    ident.Canonical(params.Email),
		FullName: params.FullName,
	}

	if err := user.SetPassword(hasher, params.Password); err != nil {
		return nil, err
	}

	return user, nil
}

// SetPassword replaces the stored hash with the hash of plainTextPassword.
// It is the only place a password is hashed.
func (user *User) SetPassword(hasher sec.PasswordHasher, plainTextPassword string) error {
	hash, err := hasher.Hash(plainTextPassword)
	if err != nil {
		return err
	}
	if hash == "" {
		return errors.New("auth: hasher returned an empty hash")
	}

	user.PasswordHash = hash
	return nil
}

// Sanitize strips secret fields.
func (user *User) Sanitize() *Profile {
	return &Profile{
		ID:            user.ID,
		Username:      user.Username,
		Email:         user.Email,
		FullName:      user.FullName,
		AvatarURL:     user.AvatarURL,
		CoverImageURL: user.CoverImageURL,
		CreatedAt:     user.CreatedAt,
		UpdatedAt:     user.UpdatedAt,
	}
}

// Identity returns the minimal view attached to authenticated requests.
func (user *User) Identity() *sec.Identity {
	return &sec.Identity{UserID: user.ID, Username: user.Username, Email: user.Email}
}

// Copyright (c) 2026 Vidora. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/taibuivan/vidora/internal/platform/apperr"
	"github.com/taibuivan/vidora/internal/platform/ctxutil"
	"github.com/taibuivan/vidora/internal/platform/sec"
	"github.com/taibuivan/vidora/internal/platform/validate"
	"github.com/taibuivan/vidora/pkg/ident"
)

// # Definitions & Constructors

// Service implements the account use cases.
//
// # Review Process
//
// This service is critical for security. Any changes to hashing, token
// rotation or login logic must be reviewed by the security team.
type Service struct {
	users    UserRepository
	hasher   sec.PasswordHasher
	tokens   *TokenIssuer
	uploader Uploader
	throttle LoginThrottle
}

// NewService constructs a new [Service]. throttle may be nil to disable
// failed-login counting.
func NewService(
	users UserRepository,
	hasher sec.PasswordHasher,
	tokens *TokenIssuer,
	uploader Uploader,
	throttle LoginThrottle,
) *Service {
	return &Service{
		users:    users,
		hasher:   hasher,
		tokens:   tokens,
		uploader: uploader,
		throttle: throttle,
	}
}

// # Registration Flow

// RegisterInput holds the data required to enroll a new member. The file
// paths point at staged uploads; CoverImagePath may be empty.
type RegisterInput struct {
	FullName       string `json:"fullname" validate:"required"`
	Email          string `json:"email" validate:"required"`
	Username       string `json:"username" validate:"required"`
	Password       string `json:"password" validate:"required"`
	AvatarPath     string `json:"-"`
	CoverImagePath string `json:"-"`
}

func (input RegisterInput) trimmed() RegisterInput {
	input.FullName = strings.TrimSpace(input.FullName)
	input.Email = strings.TrimSpace(input.Email)
	input.Username = strings.TrimSpace(input.Username)
	if ident.Blank(input.Password) {
		input.Password = ""
	}
	return input
}

/*
Register validates, hashes, uploads and persists a brand new account.

Steps run in a fixed order: input rules, identity conflict, avatar presence,
hashing, uploads, insert, read-back. Nothing is uploaded until the password
hash exists, and no record is written unless the avatar upload produced a URL.

Returns:
  - *Profile: The created account without secret fields
  - err: VALIDATION_ERROR, CONFLICT, UPLOAD_FAILED or INTERNAL_ERROR
*/
func (service *Service) Register(ctx context.Context, input RegisterInput) (*Profile, error) {
	logger := ctxutil.GetLogger(ctx)
	input = input.trimmed()

	// 1. Required fields and the bcrypt input limit
	if err := validate.Struct(input); err != nil {
		return nil, err
	}
	v := &validate.Validator{}
	if err := v.MaxBytes(FormPassword, input.Password, sec.MaxPasswordBytes).Err(); err != nil {
		return nil, err
	}

	username := ident.Canonical(input.Username)
	email := ident.Canonical(input.Email)

	// 2. Identity conflict
	_, err := service.users.FindByUsernameOrEmail(ctx, username, email)
	switch {
	case err == nil:
		return nil, apperr.Conflict("User with email or username already exists")
	case !apperr.HasCode(err, apperr.CodeNotFound):
		return nil, internal(err, "auth_service_conflict_check_failed")
	}

	// 3. Avatar presence
	v = &validate.Validator{}
	if err := v.Custom(FormAvatar, input.AvatarPath == "", "Avatar file is required").Err(); err != nil {
		return nil, err
	}

	// 4. Hash
	user, err := NewUser(service.hasher, NewUserParams{
		FullName: input.FullName,
		Email:    email,
		Username: username,
		Password: input.Password,
	})
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("auth_service_hash_failed: %w", err))
	}

	// 5. Uploads: the avatar is mandatory, the cover image is best-effort
	user.AvatarURL, err = service.uploader.Upload(ctx, input.AvatarPath)
	if err != nil || user.AvatarURL == "" {
		return nil, apperr.Upload("Avatar file upload failed", err)
	}

	if input.CoverImagePath != "" {
		user.CoverImageURL, err = service.uploader.Upload(ctx, input.CoverImagePath)
		if err != nil {
			logger.WarnContext(ctx, "cover_image_upload_failed", slog.String("error", err.Error()))
			user.CoverImageURL = ""
		}
	}

	// 6. Persist
	if err := service.users.Create(ctx, user); err != nil {
		if apperr.HasCode(err, apperr.CodeConflict) {
			return nil, apperr.Conflict("User with email or username already exists").WithCause(err)
		}
		return nil, internal(err, "auth_service_register_failed")
	}

	// 7. Read back the stored record
	created, err := service.users.FindByID(ctx, user.ID)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("auth_service_register_readback_failed: %w", err))
	}

	logger.InfoContext(ctx, "user_registered", slog.String("user_id", created.ID))
	return created.Sanitize(), nil
}

// # Authentication Flow

// LoginInput identifies the account by email or username.
type LoginInput struct {
	Email    string `json:"email" validate:"required_without=Username"`
	Username string `json:"username" validate:"required_without=Email"`
	Password string `json:"password"`
}

// LoginResult is the sanitized user plus a fresh token pair.
type LoginResult struct {
	User         *Profile `json:"user"`
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
}

/*
Login verifies credentials and issues a token pair.

Returns:
  - *LoginResult: Sanitized user and tokens
  - err: VALIDATION_ERROR, NOT_FOUND, UNAUTHORIZED, RATE_LIMITED or INTERNAL_ERROR
*/
func (service *Service) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	logger := ctxutil.GetLogger(ctx)

	input.Email = strings.TrimSpace(input.Email)
	input.Username = strings.TrimSpace(input.Username)

	// 1. At least one identifier
	if err := validate.Struct(input); err != nil {
		return nil, apperr.ValidationError("Username or email is required")
	}

	username := ident.Canonical(input.Username)
	email := ident.Canonical(input.Email)

	// 2. Lookup
	user, err := service.users.FindByUsernameOrEmail(ctx, username, email)
	if err != nil {
		if apperr.HasCode(err, apperr.CodeNotFound) {
			return nil, apperr.NotFound(resourceUser)
		}
		return nil, internal(err, "auth_service_login_lookup_failed")
	}

	// Failures count against the matched account, whichever identifier found it.
	// Locked accounts never reach the password check.
	if err := service.checkThrottle(ctx, user.ID); err != nil {
		return nil, err
	}

	// 3. Password
	if !service.hasher.Verify(input.Password, user.PasswordHash) {
		service.recordFailure(ctx, user.ID)
		logger.InfoContext(ctx, "login_failed", slog.String("user_id", user.ID))
		return nil, apperr.Unauthorized("Invalid user credentials")
	}

	// 4. Tokens
	pair, err := service.tokens.IssuePair(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	service.resetThrottle(ctx, user.ID)
	logger.InfoContext(ctx, "user_logged_in", slog.String("user_id", user.ID))

	return &LoginResult{
		User:         user.Sanitize(),
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}, nil
}

/*
Logout clears the stored refresh token so no outstanding refresh token can
be exchanged again, regardless of its expiry.
*/
func (service *Service) Logout(ctx context.Context, userID string) error {
	if err := service.users.ClearRefreshToken(ctx, userID); err != nil {
		return apperr.Internal(fmt.Errorf("auth_service_logout_failed: %w", err))
	}

	ctxutil.GetLogger(ctx).InfoContext(ctx, "user_logged_out", slog.String("user_id", userID))
	return nil
}

// # Session Management

/*
RefreshAccessToken exchanges a refresh token for a new pair.

The presented token must verify, belong to a live account, and byte-match the
token currently stored for it. The store-level compare-and-set then decides
between concurrent callers presenting the same token.
*/
func (service *Service) RefreshAccessToken(ctx context.Context, presented string) (*TokenPair, error) {
	logger := ctxutil.GetLogger(ctx)

	// 1. Presence
	presented = strings.TrimSpace(presented)
	if presented == "" {
		return nil, apperr.Unauthorized("Unauthorized request")
	}

	// 2. Signature and expiry
	claims, err := service.tokens.VerifyRefresh(presented)
	if err != nil {
		return nil, apperr.Unauthorized("Invalid refresh token").WithCause(err)
	}

	// 3. Owner
	user, err := service.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if apperr.HasCode(err, apperr.CodeNotFound) {
			return nil, apperr.Unauthorized("Invalid refresh token")
		}
		return nil, internal(err, "auth_service_refresh_lookup_failed")
	}

	// 4. Must be the current token
	if subtle.ConstantTimeCompare([]byte(presented), []byte(user.RefreshToken)) != 1 {
		logger.WarnContext(ctx, "refresh_token_reuse_detected", slog.String("user_id", user.ID))
		return nil, errRefreshReused
	}

	// 5. Rotate
	pair, err := service.tokens.Rotate(ctx, user.ID, presented)
	if err != nil {
		if apperr.HasCode(err, apperr.CodeUnauthorized) {
			logger.WarnContext(ctx, "refresh_token_rotation_lost", slog.String("user_id", user.ID))
		}
		return nil, err
	}

	return pair, nil
}

// # Account

// ChangePasswordInput carries the current and desired passwords.
type ChangePasswordInput struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required"`
}

/*
ChangePassword verifies the current password, stores the hash of the new one,
and revokes the stored refresh token.
*/
func (service *Service) ChangePassword(ctx context.Context, userID string, input ChangePasswordInput) error {
	if ident.Blank(input.CurrentPassword) {
		input.CurrentPassword = ""
	}
	if ident.Blank(input.NewPassword) {
		input.NewPassword = ""
	}
	if err := validate.Struct(input); err != nil {
		return err
	}
	v := &validate.Validator{}
	if err := v.MaxBytes(FieldNewPassword, input.NewPassword, sec.MaxPasswordBytes).Err(); err != nil {
		return err
	}

	user, err := service.users.FindByID(ctx, userID)
	if err != nil {
		if apperr.HasCode(err, apperr.CodeNotFound) {
			return err
		}
		return internal(err, "auth_service_change_password_lookup_failed")
	}

	if !service.hasher.Verify(input.CurrentPassword, user.PasswordHash) {
		return apperr.Unauthorized("Invalid old password")
	}

	if err := user.SetPassword(service.hasher, input.NewPassword); err != nil {
		return apperr.Internal(fmt.Errorf("auth_service_hash_failed: %w", err))
	}

	if err := service.users.UpdatePassword(ctx, user.ID, user.PasswordHash); err != nil {
		return internal(err, "auth_service_change_password_failed")
	}

	ctxutil.GetLogger(ctx).InfoContext(ctx, "password_changed", slog.String("user_id", user.ID))
	return nil
}

// CurrentUser returns the sanitized account for userID.
func (service *Service) CurrentUser(ctx context.Context, userID string) (*Profile, error) {
	user, err := service.users.FindByID(ctx, userID)
	if err != nil {
		if apperr.HasCode(err, apperr.CodeNotFound) {
			return nil, err
		}
		return nil, internal(err, "auth_service_current_user_failed")
	}
	return user.Sanitize(), nil
}

// ResolveIdentity implements the session guard's identity lookup.
func (service *Service) ResolveIdentity(ctx context.Context, userID string) (*sec.Identity, error) {
	user, err := service.users.FindByID(ctx, userID)
	if err != nil {
		if apperr.HasCode(err, apperr.CodeNotFound) {
			return nil, err
		}
		return nil, internal(err, "auth_service_resolve_identity_failed")
	}
	return user.Identity(), nil
}

// # Helpers

// checkThrottle rejects locked accounts. Throttle outages are logged and ignored.
func (service *Service) checkThrottle(ctx context.Context, identifier string) error {
	if service.throttle == nil {
		return nil
	}

	retryAfter, err := service.throttle.RetryAfter(ctx, identifier)
	if err != nil {
		ctxutil.GetLogger(ctx).WarnContext(ctx, "login_throttle_unavailable", slog.String("error", err.Error()))
		return nil
	}
	if retryAfter > 0 {
		return apperr.RateLimited(int(math.Ceil(retryAfter.Seconds())))
	}
	return nil
}

func (service *Service) recordFailure(ctx context.Context, identifier string) {
	if service.throttle == nil {
		return
	}
	if err := service.throttle.RecordFailure(ctx, identifier); err != nil {
		ctxutil.GetLogger(ctx).WarnContext(ctx, "login_throttle_unavailable", slog.String("error", err.Error()))
	}
}

func (service *Service) resetThrottle(ctx context.Context, identifier string) {
	if service.throttle == nil {
		return
	}
	if err := service.throttle.Reset(ctx, identifier); err != nil {
		ctxutil.GetLogger(ctx).WarnContext(ctx, "login_throttle_unavailable", slog.String("error", err.Error()))
	}
}

// internal keeps application errors as they are and wraps anything else.
func internal(err error, action string) error {
	var appError *apperr.AppError
	if errors.As(err, &appError) && appError.Code == apperr.CodeInternal {
		return appError
	}
	return apperr.Internal(fmt.Errorf("%s: %w", action, err))
}

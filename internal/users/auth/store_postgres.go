// Copyright (c) 2026 Vidora. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/vidora/internal/platform/apperr"
	"github.com/taibuivan/vidora/internal/platform/dberr"
	"github.com/taibuivan/vidora/pkg/uuid"
)

// resourceUser names the entity in NOT_FOUND / CONFLICT messages.
const resourceUser = "User"

// userColumns is the projection shared by every lookup. Nullable columns are
// coalesced so they scan into plain strings.
const userColumns = `
	id, username, email, fullname, avatarurl,
	COALESCE(coverimageurl, ''), passwordhash, COALESCE(refreshtoken, ''),
	createdat, updatedat`

// # User Repository

// PostgresUserRepository implements [UserRepository] on the users.account table.
type PostgresUserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new PostgreSQL implementation of the UserRepository.
func NewUserRepository(pool *pgxpool.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

/*
Create persists a new account.

Timestamps are assigned by the database and written back onto user. A unique
violation on username or email becomes CONFLICT.
*/
func (repository *PostgresUserRepository) Create(ctx context.Context, user *User) error {
	if user.PasswordHash == "" {
		return apperr.Internal(errors.New("postgres_user_repo_create_failed: empty password hash"))
	}

	const query = `
		INSERT INTO users.account (
			id, username, email, fullname, avatarurl, coverimageurl, passwordhash
		) VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7)
		RETURNING createdat, updatedat`

	err := repository.pool.QueryRow(ctx, query,
		user.ID,
		user.Username,
		user.Email,
		user.FullName,
		user.AvatarURL,
		user.CoverImageURL,
		user.PasswordHash,
	).Scan(&user.CreatedAt, &user.UpdatedAt)

	return dberr.Wrap(err, resourceUser, "postgres_user_repo_create_failed")
}

// FindByID retrieves an account by primary key. Ids that are not UUIDs never
// match and report NOT_FOUND without a round trip.
func (repository *PostgresUserRepository) FindByID(ctx context.Context, id string) (*User, error) {
	if !uuid.Valid(id) {
		return nil, apperr.NotFound(resourceUser)
	}

	const query = `SELECT ` + userColumns + ` FROM users.account WHERE id = $1`

	user, err := scanUser(repository.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, dberr.Wrap(err, resourceUser, "postgres_user_repo_find_by_id_failed")
	}
	return user, nil
}

/*
FindByUsernameOrEmail retrieves the first account matching either identifier.

Empty identifiers are excluded from the predicate so that a login by email
alone never matches on username.
*/
func (repository *PostgresUserRepository) FindByUsernameOrEmail(ctx context.Context, username, email string) (*User, error) {
	const query = `SELECT ` + userColumns + `
		FROM users.account
		WHERE ($1 <> '' AND username = $1) OR ($2 <> '' AND email = $2)
		ORDER BY createdat
		LIMIT 1`

	user, err := scanUser(repository.pool.QueryRow(ctx, query, username, email))
	if err != nil {
		return nil, dberr.Wrap(err, resourceUser, "postgres_user_repo_find_by_identifier_failed")
	}
	return user, nil
}

// SetRefreshToken overwrites the stored refresh token.
func (repository *PostgresUserRepository) SetRefreshToken(ctx context.Context, id, token string) error {
	const query = `
		UPDATE users.account
		SET refreshtoken = NULLIF($2, ''), updatedat = NOW()
		WHERE id = $1`

	return repository.execOne(ctx, "postgres_user_repo_set_refresh_failed", query, id, token)
}

// SwapRefreshToken rotates the refresh token with a single conditional UPDATE.
func (repository *PostgresUserRepository) SwapRefreshToken(ctx context.Context, id, presented, next string) (bool, error) {
	if presented == "" || !uuid.Valid(id) {
		return false, nil
	}

	const query = `
		UPDATE users.account
		SET refreshtoken = $3, updatedat = NOW()
		WHERE id = $1 AND refreshtoken = $2`

	tag, err := repository.pool.Exec(ctx, query, id, presented, next)
	if err != nil {
		return false, dberr.Wrap(err, resourceUser, "postgres_user_repo_swap_refresh_failed")
	}
	return tag.RowsAffected() == 1, nil
}

// ClearRefreshToken sets the stored refresh token to NULL.
func (repository *PostgresUserRepository) ClearRefreshToken(ctx context.Context, id string) error {
	const query = `
		UPDATE users.account
		SET refreshtoken = NULL, updatedat = NOW()
		WHERE id = $1`

	return repository.execOne(ctx, "postgres_user_repo_clear_refresh_failed", query, id)
}

// UpdatePassword replaces the hash and revokes the stored refresh token.
func (repository *PostgresUserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	if passwordHash == "" {
		return apperr.Internal(errors.New("postgres_user_repo_update_password_failed: empty password hash"))
	}

	const query = `
		UPDATE users.account
		SET passwordhash = $2, refreshtoken = NULL, updatedat = NOW()
		WHERE id = $1`

	return repository.execOne(ctx, "postgres_user_repo_update_password_failed", query, id, passwordHash)
}

// execOne runs an UPDATE keyed by id ($1) expected to touch exactly one row.
func (repository *PostgresUserRepository) execOne(ctx context.Context, action, query, id string, args ...any) error {
	if !uuid.Valid(id) {
		return apperr.NotFound(resourceUser)
	}

	tag, err := repository.pool.Exec(ctx, query, append([]any{id}, args...)...)
	if err != nil {
		return dberr.Wrap(err, resourceUser, action)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(resourceUser)
	}
	return nil
}

func scanUser(row pgx.Row) (*User, error) {
	user := &User{}
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.FullName,
		&user.AvatarURL,
		&user.CoverImageURL,
		&user.PasswordHash,
		&user.RefreshToken,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Copyright (c) 2026 Vidora. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth_test

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/taibuivan/vidora/internal/platform/apperr"
	"github.com/taibuivan/vidora/internal/platform/migration"
	pgstore "github.com/taibuivan/vidora/internal/platform/postgres"
	"github.com/taibuivan/vidora/internal/platform/sec"
	"github.com/taibuivan/vidora/internal/users/auth"
	"github.com/taibuivan/vidora/pkg/uuid"
)

// testDatabaseEnv names the DSN of a disposable database for repository tests.
const testDatabaseEnv = "VIDORA_TEST_DATABASE_URL"

// newPostgresRepository migrates the test database and returns a repository
// plus a factory for accounts that are deleted when the test ends.
func newPostgresRepository(t *testing.T) (*auth.PostgresUserRepository, func() *auth.User) {
	t.Helper()

	dsn := os.Getenv(testDatabaseEnv)
	if dsn == "" {
		t.Skipf("%s not set", testDatabaseEnv)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	require.NoError(t, migration.RunUp(dsn, "../../../data/migrations", logger))

	pool, err := pgstore.NewPool(context.Background(), dsn, logger)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	repository := auth.NewUserRepository(pool)
	hasher := sec.NewBcryptHasher(bcrypt.MinCost)

	create := func() *auth.User {
		suffix := uuid.New()
		user, err := auth.NewUser(hasher, auth.NewUserParams{
			FullName: "Alice Liddell",
			Email:    suffix + "@x.com",
			Username: "alice-" + suffix,
			Password: "pw1",
		})
		require.NoError(t, err)
		user.AvatarURL = "https://cdn.vidora.test/f.png"

		require.NoError(t, repository.Create(context.Background(), user))
		t.Cleanup(func() { deleteAccount(pool, user.ID) })
		return user
	}

	return repository, create
}

func deleteAccount(pool *pgxpool.Pool, id string) {
	_, _ = pool.Exec(context.Background(), `DELETE FROM users.account WHERE id = $1`, id)
}

/*
TestPostgresUserRepository_Lookups covers create, read-back, identifier lookup and conflicts.
*/
func TestPostgresUserRepository_Lookups(t *testing.T) {
	repository, create := newPostgresRepository(t)
	ctx := context.Background()
	user := create()

	found, err := repository.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Username, found.Username)
	assert.Empty(t, found.CoverImageURL)
	assert.Empty(t, found.RefreshToken)
	assert.False(t, found.CreatedAt.IsZero())

	byEmail, err := repository.FindByUsernameOrEmail(ctx, "", user.Email)
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)

	_, err = repository.FindByUsernameOrEmail(ctx, "", "")
	assert.True(t, apperr.HasCode(err, apperr.CodeNotFound))

	_, err = repository.FindByID(ctx, "not-a-uuid")
	assert.True(t, apperr.HasCode(err, apperr.CodeNotFound))

	duplicate := *user
	duplicate.ID = uuid.New()
	err = repository.Create(ctx, &duplicate)
	assert.True(t, apperr.HasCode(err, apperr.CodeConflict), "got %v", err)
}

/*
TestPostgresUserRepository_SwapRefreshToken lets exactly one of many concurrent
swaps of the same token win, and never matches a stale or cleared token.
*/
func TestPostgresUserRepository_SwapRefreshToken(t *testing.T) {
	repository, create := newPostgresRepository(t)
	ctx := context.Background()
	user := create()

	require.NoError(t, repository.SetRefreshToken(ctx, user.ID, "token-0"))

	const callers = 16
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins []string
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(next string) {
			defer wg.Done()
			swapped, err := repository.SwapRefreshToken(ctx, user.ID, "token-0", next)
			assert.NoError(t, err)
			if swapped {
				mu.Lock()
				wins = append(wins, next)
				mu.Unlock()
			}
		}(uuid.New())
	}
	wg.Wait()

	require.Len(t, wins, 1)
	stored, err := repository.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, wins[0], stored.RefreshToken)

	swapped, err := repository.SwapRefreshToken(ctx, user.ID, "token-0", "token-2")
	require.NoError(t, err)
	assert.False(t, swapped)

	require.NoError(t, repository.ClearRefreshToken(ctx, user.ID))
	swapped, err = repository.SwapRefreshToken(ctx, user.ID, wins[0], "token-3")
	require.NoError(t, err)
	assert.False(t, swapped)
}

/*
TestPostgresUserRepository_UpdatePassword replaces the hash and revokes the refresh token.
*/
func TestPostgresUserRepository_UpdatePassword(t *testing.T) {
	repository, create := newPostgresRepository(t)
	ctx := context.Background()
	user := create()

	require.NoError(t, repository.SetRefreshToken(ctx, user.ID, "token-0"))
	require.NoError(t, repository.UpdatePassword(ctx, user.ID, "$2a$04$replacement"))

	stored, err := repository.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "$2a$04$replacement", stored.PasswordHash)
	assert.Empty(t, stored.RefreshToken)

	err = repository.ClearRefreshToken(ctx, uuid.New())
	assert.True(t, apperr.HasCode(err, apperr.CodeNotFound))
}

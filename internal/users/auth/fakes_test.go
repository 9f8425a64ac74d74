// Copyright (c) 2026 Vidora. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/taibuivan/vidora/internal/platform/apperr"
	"github.com/taibuivan/vidora/internal/platform/sec"
	"github.com/taibuivan/vidora/internal/users/auth"
)

// # In-memory user repository

type memoryUsers struct {
	mu      sync.Mutex
	byID    map[string]*auth.User
	creates int

	// hideCreated makes FindByID miss freshly created rows.
	hideCreated bool
	// failWrites makes every token write fail.
	failWrites bool
}

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{byID: map[string]*auth.User{}}
}

func (repo *memoryUsers) FindByID(_ context.Context, id string) (*auth.User, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	user, ok := repo.byID[id]
	if !ok || repo.hideCreated {
		return nil, apperr.NotFound("User")
	}
	clone := *user
	return &clone, nil
}

func (repo *memoryUsers) FindByUsernameOrEmail(_ context.Context, username, email string) (*auth.User, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	for _, user := range repo.byID {
		if (username != "" && user.Username == username) || (email != "" && user.Email == email) {
			clone := *user
			return &clone, nil
		}
	}
	return nil, apperr.NotFound("User")
}

func (repo *memoryUsers) Create(_ context.Context, user *auth.User) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	if user.PasswordHash == "" {
		return apperr.Internal(errors.New("empty password hash"))
	}
	for _, existing := range repo.byID {
		if existing.Username == user.Username || existing.Email == user.Email {
			return apperr.Conflict("User already exists")
		}
	}

	now := time.Now()
	user.CreatedAt, user.UpdatedAt = now, now
	clone := *user
	repo.byID[user.ID] = &clone
	repo.creates++
	return nil
}

func (repo *memoryUsers) SetRefreshToken(_ context.Context, id, token string) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	if repo.failWrites {
		return errors.New("write failed")
	}
	user, ok := repo.byID[id]
	if !ok {
		return apperr.NotFound("User")
	}
	user.RefreshToken = token
	return nil
}

func (repo *memoryUsers) SwapRefreshToken(_ context.Context, id, presented, next string) (bool, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	if repo.failWrites {
		return false, errors.New("write failed")
	}
	user, ok := repo.byID[id]
	if !ok || presented == "" || user.RefreshToken != presented {
		return false, nil
	}
	user.RefreshToken = next
	return true, nil
}

func (repo *memoryUsers) ClearRefreshToken(_ context.Context, id string) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	if repo.failWrites {
		return errors.New("write failed")
	}
	user, ok := repo.byID[id]
	if !ok {
		return apperr.NotFound("User")
	}
	user.RefreshToken = ""
	return nil
}

func (repo *memoryUsers) UpdatePassword(_ context.Context, id, passwordHash string) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	user, ok := repo.byID[id]
	if !ok {
		return apperr.NotFound("User")
	}
	user.PasswordHash = passwordHash
	user.RefreshToken = ""
	return nil
}

func (repo *memoryUsers) stored(t *testing.T, id string) auth.User {
	t.Helper()
	repo.mu.Lock()
	defer repo.mu.Unlock()

	user, ok := repo.byID[id]
	require.True(t, ok, "user %s not stored", id)
	return *user
}

func (repo *memoryUsers) count() int {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	return len(repo.byID)
}

// # Uploader

type fakeUploader struct {
	mu       sync.Mutex
	uploaded []string
	contents map[string]string
	// fail lists base names whose upload errors.
	fail map[string]bool
}

func newFakeUploader() *fakeUploader {
	return &fakeUploader{contents: map[string]string{}, fail: map[string]bool{}}
}

func (uploader *fakeUploader) Upload(_ context.Context, localPath string) (string, error) {
	uploader.mu.Lock()
	defer uploader.mu.Unlock()

	base := filepath.Base(localPath)
	if uploader.fail[base] {
		return "", errors.New("storage unavailable")
	}

	// Record the bytes when the path is a real file (HTTP tests stage real files).
	if data, err := os.ReadFile(localPath); err == nil {
		uploader.contents[base] = string(data)
	}

	uploader.uploaded = append(uploader.uploaded, localPath)
	return "https://cdn.vidora.test/" + base, nil
}

func (uploader *fakeUploader) calls() int {
	uploader.mu.Lock()
	defer uploader.mu.Unlock()
	return len(uploader.uploaded)
}

// # Fixture

type fixture struct {
	users    *memoryUsers
	uploader *fakeUploader
	tokens   *sec.TokenService
	hasher   sec.PasswordHasher
	service  *auth.Service
}

func newFixture(t *testing.T, throttle auth.LoginThrottle) *fixture {
	t.Helper()

	tokens, err := sec.NewTokenService(sec.TokenConfig{
		AccessSecret:  "test-access-secret",
		RefreshSecret: "test-refresh-secret",
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    7 * 24 * time.Hour,
		Issuer:        "vidora.test",
	})
	require.NoError(t, err)

	users := newMemoryUsers()
	uploader := newFakeUploader()
	hasher := sec.NewBcryptHasher(bcrypt.MinCost)

	return &fixture{
		users:    users,
		uploader: uploader,
		tokens:   tokens,
		hasher:   hasher,
		service:  auth.NewService(users, hasher, auth.NewTokenIssuer(tokens, users), uploader, throttle),
	}
}

func aliceInput() auth.RegisterInput {
	return auth.RegisterInput{
		FullName:   "Alice Liddell",
		Email:      "a@x.com",
		Username:   "alice",
		Password:   "pw1",
		AvatarPath: "/tmp/f.png",
	}
}

func (f *fixture) registerAlice(t *testing.T) *auth.Profile {
	t.Helper()
	profile, err := f.service.Register(context.Background(), aliceInput())
	require.NoError(t, err)
	return profile
}

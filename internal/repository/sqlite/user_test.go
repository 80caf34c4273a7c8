package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/hackhub/internal/apperror"
	"github.com/sakif/hackhub/internal/model"
	"github.com/sakif/hackhub/internal/repository"
)

// createTestUser creates a user and fails the test if it errors.
func createTestUser(t *testing.T, db *DB, name, email string) *model.User {
	t.Helper()
	user := &model.User{Name: name, Email: email, PasswordHash: "hash", IsVerified: true}
	require.NoError(t, db.CreateUser(context.Background(), user))
	return user
}

// =========================================================================
// CREATE TESTS
// =========================================================================

func TestCreateUser(t *testing.T) {
	db := newTestDB(t)

	user := &model.User{Name: "Ada", Email: "  Ada@Example.com "}
	require.NoError(t, db.CreateUser(context.Background(), user))

	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "ada@example.com", user.Email)
	assert.Equal(t, int64(1), user.Version)
	assert.False(t, user.CreatedAt.IsZero())

	got, err := db.GetUserByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada", got.Name)
	assert.Equal(t, []string{}, got.Teams)
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	db := newTestDB(t)
	createTestUser(t, db, "First", "same@example.com")

	err := db.CreateUser(context.Background(), &model.User{Name: "Second", Email: "SAME@example.com"})

	assert.ErrorIs(t, err, apperror.ErrConflict)
	assert.True(t, repository.IsDuplicate(err, repository.KeyEmail))
}

func TestCreateUser_DuplicateGitHubID(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	require.NoError(t, db.CreateUser(ctx, &model.User{Name: "a", Email: "a@x.io", GitHubID: 42}))

	err := db.CreateUser(ctx, &model.User{Name: "b", Email: "b@x.io", GitHubID: 42})
	assert.True(t, repository.IsDuplicate(err, repository.KeyGitHubID))

	// Accounts without a GitHub id never collide with each other.
	require.NoError(t, db.CreateUser(ctx, &model.User{Name: "c", Email: "c@x.io"}))
	require.NoError(t, db.CreateUser(ctx, &model.User{Name: "d", Email: "d@x.io"}))
}

// =========================================================================
// LOOKUP TESTS
// =========================================================================

func TestGetUserByID_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetUserByID(context.Background(), "nonexistent")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestGetUserByEmail(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "Grace", "grace@example.com")

	got, err := db.GetUserByEmail(context.Background(), "GRACE@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = db.GetUserByEmail(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestGetUserByGitHubID(t *testing.T) {
	db := newTestDB(t)
	user := &model.User{Name: "octo", Email: "octo@example.com", GitHubID: 583231}
	require.NoError(t, db.CreateUser(context.Background(), user))

	got, err := db.GetUserByGitHubID(context.Background(), 583231)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
}

func TestGetUsersByIDs(t *testing.T) {
	db := newTestDB(t)
	a := createTestUser(t, db, "A", "a@example.com")
	b := createTestUser(t, db, "B", "b@example.com")
	createTestUser(t, db, "C", "c@example.com")

	users, err := db.GetUsersByIDs(context.Background(), []string{a.ID, b.ID, "missing"})
	require.NoError(t, err)
	assert.Len(t, users, 2)

	users, err = db.GetUsersByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestGetUserByResetToken(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	user := createTestUser(t, db, "Reset", "reset@example.com")
	expires := now.Add(time.Hour)
	user.ResetPasswordToken = "abc123"
	user.ResetPasswordExpiresAt = &expires
	require.NoError(t, db.UpdateUser(ctx, user))

	got, err := db.GetUserByResetToken(ctx, "abc123", now)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = db.GetUserByResetToken(ctx, "abc123", now.Add(2*time.Hour))
	assert.ErrorIs(t, err, apperror.ErrNotFound, "expired token")

	_, err = db.GetUserByResetToken(ctx, "", now)
	assert.ErrorIs(t, err, apperror.ErrNotFound, "empty token")
}

func TestSearchUsers(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	alice := createTestUser(t, db, "Alice Smith", "alice@example.com")
	createTestUser(t, db, "Alan Turing", "alan@example.com")
	createTestUser(t, db, "Bob", "bob@corp.io")

	users, err := db.SearchUsers(ctx, "AL", nil, 10)
	require.NoError(t, err)
	assert.Len(t, users, 2)

	users, err = db.SearchUsers(ctx, "al", []string{alice.ID}, 10)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "Alan Turing", users[0].Name)

	users, err = db.SearchUsers(ctx, "corp", nil, 10)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

// =========================================================================
// OPTIMISTIC CONCURRENCY TESTS
// =========================================================================

func TestUpdateUser_BumpsVersion(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "Old", "v@example.com")

	user.Name = "New"
	require.NoError(t, db.UpdateUser(context.Background(), user))
	assert.Equal(t, int64(2), user.Version)

	got, err := db.GetUserByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, "New", got.Name)
	assert.Equal(t, int64(2), got.Version)
}

func TestUpdateUser_StaleWriteRejected(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, db, "Racer", "race@example.com")

	first, err := db.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	second, err := db.GetUserByID(ctx, user.ID)
	require.NoError(t, err)

	first.Bio = "first"
	require.NoError(t, db.UpdateUser(ctx, first))

	second.Bio = "second"
	err = db.UpdateUser(ctx, second)
	assert.ErrorIs(t, err, repository.ErrStale)
	assert.Equal(t, int64(1), second.Version, "failed update must not touch the caller's copy")

	got, err := db.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "first", got.Bio)
}

func TestUpdateUser_Missing(t *testing.T) {
	db := newTestDB(t)

	err := db.UpdateUser(context.Background(), &model.User{ID: "ghost", Version: 1})
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/hackhub/internal/apperror"
	"github.com/sakif/hackhub/internal/model"
	"github.com/sakif/hackhub/internal/repository"
)

var _ repository.UserRepository = (*DB)(nil)

// CreateUser assigns the ID and timestamps and inserts the user.
// A taken email fails with repository.Duplicate(KeyEmail).
func (db *DB) CreateUser(ctx context.Context, user *model.User) error {
	now := time.Now().UTC()
	user.ID = xid.New().String()
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	user.CreatedAt = now
	user.UpdatedAt = now
	user.Version = 1
	return db.users.insert(ctx, user.ID, user.CreatedAt, user)
}

func (db *DB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	return db.users.byID(ctx, id)
}

// GetUsersByIDs returns the users that exist among ids, in no particular order.
func (db *DB) GetUsersByIDs(ctx context.Context, ids []string) ([]model.User, error) {
	if len(ids) == 0 {
		return []model.User{}, nil
	}
	return db.users.list(ctx, fmt.Sprintf(`WHERE id IN (%s)`, placeholders(len(ids))), stringArgs(ids)...)
}

func (db *DB) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := db.users.one(ctx, `json_extract(doc, '$.email') = ?`, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFoundMessage("no user with that email")
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: getting user by email: %w", err)
	}
	return u, nil
}

func (db *DB) GetUserByGitHubID(ctx context.Context, githubID int64) (*model.User, error) {
	u, err := db.users.one(ctx, `json_extract(doc, '$.githubId') = ?`, githubID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("user", fmt.Sprintf("github:%d", githubID))
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: getting user by github id %d: %w", githubID, err)
	}
	return u, nil
}

// GetUserByResetToken only returns users whose token has not expired at now.
func (db *DB) GetUserByResetToken(ctx context.Context, token string, now time.Time) (*model.User, error) {
	notFound := apperror.NotFoundMessage("invalid or expired reset token")
	if token == "" {
		return nil, notFound
	}
	u, err := db.users.one(ctx, `json_extract(doc, '$.resetPasswordToken') = ?`, token)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: getting user by reset token: %w", err)
	}
	if u.ResetPasswordExpiresAt == nil || !u.ResetPasswordExpiresAt.After(now) {
		return nil, notFound
	}
	return u, nil
}

func (db *DB) SearchUsers(ctx context.Context, query string, exclude []string, limit int) ([]model.User, error) {
	var w where
	pattern := likePattern(query)
	w.add(`(lower(json_extract(doc, '$.name')) LIKE ? ESCAPE '\' OR lower(json_extract(doc, '$.email')) LIKE ? ESCAPE '\')`,
		pattern, pattern)
	if len(exclude) > 0 {
		w.add(fmt.Sprintf(`id NOT IN (%s)`, placeholders(len(exclude))), stringArgs(exclude)...)
	}
	args := append(w.args, limit)
	return db.users.list(ctx, w.String()+` ORDER BY json_extract(doc, '$.name') LIMIT ?`, args...)
}

// UpdateUser saves user if nobody else saved it since it was loaded.
// On success user.Version and user.UpdatedAt reflect the stored row.
func (db *DB) UpdateUser(ctx context.Context, user *model.User) error {
	next := *user
	next.Version++
	next.UpdatedAt = time.Now().UTC()
	next.Email = strings.ToLower(strings.TrimSpace(next.Email))
	if err := db.users.update(ctx, user.ID, user.Version, &next); err != nil {
		return err
	}
	*user = next
	return nil
}

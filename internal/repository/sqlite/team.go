package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/hackhub/internal/apperror"
	"github.com/sakif/hackhub/internal/model"
	"github.com/sakif/hackhub/internal/repository"
)

var _ repository.TeamRepository = (*DB)(nil)

// CreateTeam inserts team. A colliding invite code fails with
// repository.Duplicate(KeyInviteCode) and the caller retries with a new code.
func (db *DB) CreateTeam(ctx context.Context, team *model.Team) error {
	now := time.Now().UTC()
	if team.ID == "" {
		team.ID = xid.New().String()
	}
	team.CreatedAt = now
	team.UpdatedAt = now
	team.Version = 1
	return db.teams.insert(ctx, team.ID, team.CreatedAt, team)
}

func (db *DB) GetTeamByID(ctx context.Context, id string) (*model.Team, error) {
	return db.teams.byID(ctx, id)
}

func (db *DB) GetTeamByInviteCode(ctx context.Context, code string) (*model.Team, error) {
	t, err := db.teams.one(ctx, `json_extract(doc, '$.inviteCode') = ?`, code)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFoundMessage("invalid invite code")
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: getting team by invite code: %w", err)
	}
	return t, nil
}

func (db *DB) ListTeamsByMember(ctx context.Context, userID string) ([]model.Team, error) {
	return db.teams.list(ctx, `
		WHERE EXISTS (
			SELECT 1 FROM json_each(teams.doc, '$.members') m
			WHERE json_extract(m.value, '$.userId') = ?
		)
		ORDER BY created_at DESC`, userID)
}

func (db *DB) SearchTeams(ctx context.Context, query string, limit int) ([]model.Team, error) {
	pattern := likePattern(query)
	return db.teams.list(ctx, `
		WHERE lower(json_extract(doc, '$.name')) LIKE ? ESCAPE '\'
		   OR lower(json_extract(doc, '$.description')) LIKE ? ESCAPE '\'
		ORDER BY created_at DESC
		LIMIT ?`, pattern, pattern, limit)
}

func (db *DB) UpdateTeam(ctx context.Context, team *model.Team) error {
	next := *team
	next.Version++
	next.UpdatedAt = time.Now().UTC()
	if err := db.teams.update(ctx, team.ID, team.Version, &next); err != nil {
		return err
	}
	*team = next
	return nil
}

func (db *DB) DeleteTeam(ctx context.Context, id string) error {
	return db.teams.delete(ctx, id)
}

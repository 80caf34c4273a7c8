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

var _ repository.JudgeRepository = (*DB)(nil)

func (db *DB) CreateJudge(ctx context.Context, judge *model.Judge) error {
	now := time.Now().UTC()
	judge.ID = xid.New().String()
	judge.Email = strings.ToLower(strings.TrimSpace(judge.Email))
	judge.CreatedAt = now
	judge.UpdatedAt = now
	judge.Version = 1
	return db.judges.insert(ctx, judge.ID, judge.CreatedAt, judge)
}

func (db *DB) GetJudgeByID(ctx context.Context, id string) (*model.Judge, error) {
	return db.judges.byID(ctx, id)
}

func (db *DB) GetJudgeByEmail(ctx context.Context, email string) (*model.Judge, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	j, err := db.judges.one(ctx, `json_extract(doc, '$.email') = ?`, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFoundMessage("no judge with that email")
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: getting judge by email: %w", err)
	}
	return j, nil
}

func (db *DB) CountActiveJudges(ctx context.Context) (int, error) {
	return db.judges.count(ctx, `json_extract(doc, '$.isActive') = 1`)
}

func (db *DB) UpdateJudge(ctx context.Context, judge *model.Judge) error {
	next := *judge
	next.Version++
	next.UpdatedAt = time.Now().UTC()
	if err := db.judges.update(ctx, judge.ID, judge.Version, &next); err != nil {
		return err
	}
	*judge = next
	return nil
}

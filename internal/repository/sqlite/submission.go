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

var _ repository.SubmissionRepository = (*DB)(nil)

// CreateSubmission relies on idx_submissions_project to reject a second
// submission for the same project, even when two requests race past the
// service's existence check.
func (db *DB) CreateSubmission(ctx context.Context, sub *model.Submission) error {
	now := time.Now().UTC()
	sub.ID = xid.New().String()
	sub.CreatedAt = now
	sub.UpdatedAt = now
	sub.Version = 1
	return db.submissions.insert(ctx, sub.ID, sub.CreatedAt, sub)
}

func (db *DB) GetSubmissionByID(ctx context.Context, id string) (*model.Submission, error) {
	return db.submissions.byID(ctx, id)
}

func (db *DB) GetSubmissionByProject(ctx context.Context, projectID string) (*model.Submission, error) {
	s, err := db.submissions.one(ctx, `json_extract(doc, '$.project') = ?`, projectID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("submission for project", projectID)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: getting submission of project %s: %w", projectID, err)
	}
	return s, nil
}

func (db *DB) ListSubmissions(ctx context.Context) ([]model.Submission, error) {
	return db.submissions.list(ctx, `ORDER BY created_at ASC, id ASC`)
}

func (db *DB) ListScoredSubmissions(ctx context.Context, status model.SubmissionStatus) ([]model.Submission, error) {
	var w where
	w.add(`json_array_length(doc, '$.scores') > 0`)
	if status != "" {
		w.add(`json_extract(doc, '$.status') = ?`, string(status))
	}
	return db.submissions.list(ctx, w.String()+` ORDER BY created_at ASC`, w.args...)
}

// FirstSubmission orders by rowid, which follows commit order. created_at is
// taken before the write lock is held, so two racing inserts can commit in
// the opposite order of their timestamps; rowid never disagrees with what a
// reader that committed earlier already saw.
func (db *DB) FirstSubmission(ctx context.Context) (*model.Submission, error) {
	subs, err := db.submissions.list(ctx, `ORDER BY rowid ASC LIMIT 1`)
	if err != nil {
		return nil, err
	}
	if len(subs) == 0 {
		return nil, apperror.NotFound("submission", "first")
	}
	return &subs[0], nil
}

func (db *DB) UpdateSubmission(ctx context.Context, sub *model.Submission) error {
	next := *sub
	next.Version++
	next.UpdatedAt = time.Now().UTC()
	if err := db.submissions.update(ctx, sub.ID, sub.Version, &next); err != nil {
		return err
	}
	*sub = next
	return nil
}

func (db *DB) DeleteSubmission(ctx context.Context, id string) error {
	return db.submissions.delete(ctx, id)
}

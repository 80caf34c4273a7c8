package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/hackhub/internal/model"
	"github.com/sakif/hackhub/internal/repository"
)

var _ repository.TaskRepository = (*DB)(nil)

func (db *DB) CreateTask(ctx context.Context, task *model.Task) error {
	now := time.Now().UTC()
	task.ID = xid.New().String()
	task.CreatedAt = now
	task.UpdatedAt = now
	task.Version = 1
	return db.tasks.insert(ctx, task.ID, task.CreatedAt, task)
}

func (db *DB) GetTaskByID(ctx context.Context, id string) (*model.Task, error) {
	return db.tasks.byID(ctx, id)
}

// ListTasks returns matching tasks, newest first. A non-nil but empty
// filter.ProjectIDs matches nothing.
func (db *DB) ListTasks(ctx context.Context, filter repository.TaskFilter) ([]model.Task, error) {
	if filter.ProjectIDs != nil && len(filter.ProjectIDs) == 0 {
		return []model.Task{}, nil
	}

	var w where
	if len(filter.ProjectIDs) > 0 {
		w.add(fmt.Sprintf(`json_extract(doc, '$.project') IN (%s)`, placeholders(len(filter.ProjectIDs))),
			stringArgs(filter.ProjectIDs)...)
	}
	if filter.Status != "" {
		w.add(`json_extract(doc, '$.status') = ?`, string(filter.Status))
	}
	if filter.AssignedTo != "" {
		w.add(`json_extract(doc, '$.assignedTo') = ?`, filter.AssignedTo)
	}
	return db.tasks.list(ctx, w.String()+` ORDER BY created_at DESC`, w.args...)
}

func (db *DB) UpdateTask(ctx context.Context, task *model.Task) error {
	next := *task
	next.Version++
	next.UpdatedAt = time.Now().UTC()
	if err := db.tasks.update(ctx, task.ID, task.Version, &next); err != nil {
		return err
	}
	*task = next
	return nil
}

func (db *DB) DeleteTask(ctx context.Context, id string) error {
	return db.tasks.delete(ctx, id)
}

func (db *DB) DeleteTasksByProject(ctx context.Context, projectID string) error {
	_, err := db.conn.ExecContext(ctx, `DELETE FROM tasks WHERE json_extract(doc, '$.project') = ?`, projectID)
	if err != nil {
		return fmt.Errorf("sqlite: deleting tasks of project %s: %w", projectID, err)
	}
	return nil
}

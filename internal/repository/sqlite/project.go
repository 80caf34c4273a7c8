package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/hackhub/internal/model"
	"github.com/sakif/hackhub/internal/repository"
)

var _ repository.ProjectRepository = (*DB)(nil)

func (db *DB) CreateProject(ctx context.Context, project *model.Project) error {
	now := time.Now().UTC()
	project.ID = xid.New().String()
	project.CreatedAt = now
	project.UpdatedAt = now
	project.Version = 1
	return db.projects.insert(ctx, project.ID, project.CreatedAt, project)
}

func (db *DB) GetProjectByID(ctx context.Context, id string) (*model.Project, error) {
	return db.projects.byID(ctx, id)
}

// ListProjects returns matching projects, newest first. A non-nil but empty
// filter.IDs matches nothing.
func (db *DB) ListProjects(ctx context.Context, filter repository.ProjectFilter) ([]model.Project, error) {
	if filter.IDs != nil && len(filter.IDs) == 0 {
		return []model.Project{}, nil
	}

	var w where
	if filter.TeamID != "" {
		w.add(`json_extract(doc, '$.team') = ?`, filter.TeamID)
	}
	if filter.Status != "" {
		w.add(`json_extract(doc, '$.status') = ?`, string(filter.Status))
	}
	if filter.Participant != "" {
		w.add(`(json_extract(doc, '$.owner') = ? OR EXISTS (
			SELECT 1 FROM json_each(projects.doc, '$.collaborators') c WHERE c.value = ?))`,
			filter.Participant, filter.Participant)
	}
	if len(filter.IDs) > 0 {
		w.add(fmt.Sprintf(`id IN (%s)`, placeholders(len(filter.IDs))), stringArgs(filter.IDs)...)
	}
	return db.projects.list(ctx, w.String()+` ORDER BY created_at DESC`, w.args...)
}

func showcaseWhere(q repository.ShowcaseQuery) *where {
	w := &where{}
	w.add(`json_extract(doc, '$.showcase.isPublic') = 1`)
	if q.Category != "" {
		w.add(`json_extract(doc, '$.category') = ?`, string(q.Category))
	}
	if q.Search != "" {
		pattern := likePattern(q.Search)
		w.add(`(lower(json_extract(doc, '$.title')) LIKE ? ESCAPE '\'
			OR lower(json_extract(doc, '$.description')) LIKE ? ESCAPE '\'
			OR EXISTS (SELECT 1 FROM json_each(projects.doc, '$.tags') t WHERE lower(t.value) LIKE ? ESCAPE '\'))`,
			pattern, pattern, pattern)
	}
	return w
}

func (db *DB) ListShowcase(ctx context.Context, q repository.ShowcaseQuery) ([]model.Project, int, error) {
	w := showcaseWhere(q)

	total, err := db.projects.count(ctx, w.bare(), w.args...)
	if err != nil {
		return nil, 0, err
	}

	order := `created_at DESC`
	switch q.Sort {
	case "popular":
		order = `json_array_length(doc, '$.showcase.likes') DESC, created_at DESC`
	case "views":
		order = `json_extract(doc, '$.showcase.views') DESC, created_at DESC`
	}

	args := append(append([]any{}, w.args...), q.Limit, q.Offset)
	projects, err := db.projects.list(ctx, w.String()+` ORDER BY `+order+` LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return nil, 0, err
	}
	return projects, total, nil
}

func (db *DB) ShowcaseStats(ctx context.Context) (*repository.ShowcaseStats, error) {
	stats := &repository.ShowcaseStats{Categories: map[string]int{}}

	err := db.conn.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(json_extract(doc, '$.showcase.views')), 0),
		       COALESCE(SUM(json_array_length(doc, '$.showcase.likes')), 0)
		FROM projects
		WHERE json_extract(doc, '$.showcase.isPublic') = 1`,
	).Scan(&stats.TotalProjects, &stats.TotalViews, &stats.TotalLikes)
	if err != nil {
		return nil, fmt.Errorf("sqlite: showcase totals: %w", err)
	}

	rows, err := db.conn.QueryContext(ctx, `
		SELECT json_extract(doc, '$.category'), COUNT(*)
		FROM projects
		WHERE json_extract(doc, '$.showcase.isPublic') = 1
		GROUP BY 1`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: showcase categories: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var category string
		var n int
		if err := rows.Scan(&category, &n); err != nil {
			return nil, fmt.Errorf("sqlite: scanning showcase category: %w", err)
		}
		stats.Categories[category] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: showcase categories: %w", err)
	}
	return stats, nil
}

func (db *DB) UpdateProject(ctx context.Context, project *model.Project) error {
	next := *project
	next.Version++
	next.UpdatedAt = time.Now().UTC()
	if err := db.projects.update(ctx, project.ID, project.Version, &next); err != nil {
		return err
	}
	*project = next
	return nil
}

func (db *DB) DeleteProject(ctx context.Context, id string) error {
	return db.projects.delete(ctx, id)
}

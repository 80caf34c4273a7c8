package mongostore

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/xid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sakif/hackhub/internal/model"
	"github.com/sakif/hackhub/internal/repository"
)

func (s *Store) CreateProject(ctx context.Context, project *model.Project) error {
	now := time.Now().UTC()
	project.ID = xid.New().String()
	project.CreatedAt = now
	project.UpdatedAt = now
	project.Version = 1
	return s.projects.insert(ctx, project.ID, project)
}

func (s *Store) GetProjectByID(ctx context.Context, id string) (*model.Project, error) {
	return s.projects.byID(ctx, id)
}

func (s *Store) ListProjects(ctx context.Context, filter repository.ProjectFilter) ([]model.Project, error) {
	if filter.IDs != nil && len(filter.IDs) == 0 {
		return []model.Project{}, nil
	}
	q := bson.M{}
	if filter.TeamID != "" {
		q["team"] = filter.TeamID
	}
	if filter.Status != "" {
		q["status"] = filter.Status
	}
	if filter.Participant != "" {
		q["$or"] = bson.A{bson.M{"owner": filter.Participant}, bson.M{"collaborators": filter.Participant}}
	}
	if len(filter.IDs) > 0 {
		q["_id"] = bson.M{"$in": filter.IDs}
	}
	return s.projects.find(ctx, q, options.Find().SetSort(newestFirst))
}

func showcaseMatch(q repository.ShowcaseQuery) bson.M {
	match := bson.M{"showcase.isPublic": true}
	if q.Category != "" {
		match["category"] = q.Category
	}
	if q.Search != "" {
		match["$or"] = bson.A{
			bson.M{"title": containsFold(q.Search)},
			bson.M{"description": containsFold(q.Search)},
			bson.M{"tags": containsFold(q.Search)},
		}
	}
	return match
}

// ListShowcase sorts in an aggregation so "popular" can order by the size of
// the likes array.
func (s *Store) ListShowcase(ctx context.Context, q repository.ShowcaseQuery) ([]model.Project, int, error) {
	match := showcaseMatch(q)

	total, err := s.projects.c.CountDocuments(ctx, match)
	if err != nil {
		return nil, 0, fmt.Errorf("mongostore: counting showcase: %w", err)
	}

	sort := newestFirst
	switch q.Sort {
	case "popular":
		sort = bson.D{{Key: "likeCount", Value: -1}, {Key: "createdAt", Value: -1}}
	case "views":
		sort = bson.D{{Key: "showcase.views", Value: -1}, {Key: "createdAt", Value: -1}}
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$addFields", Value: bson.M{"likeCount": bson.M{"$size": bson.M{"$ifNull": bson.A{"$showcase.likes", bson.A{}}}}}}},
		{{Key: "$sort", Value: sort}},
		{{Key: "$skip", Value: q.Offset}},
	}
	if q.Limit > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$limit", Value: q.Limit}})
	}
	pipeline = append(pipeline, bson.D{{Key: "$project", Value: bson.M{"likeCount": 0}}})
	cur, err := s.projects.c.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, 0, fmt.Errorf("mongostore: listing showcase: %w", err)
	}
	projects := []model.Project{}
	if err := cur.All(ctx, &projects); err != nil {
		return nil, 0, fmt.Errorf("mongostore: decoding showcase: %w", err)
	}
	return projects, int(total), nil
}

func (s *Store) ShowcaseStats(ctx context.Context) (*repository.ShowcaseStats, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"showcase.isPublic": true}}},
		{{Key: "$group", Value: bson.M{
			"_id":      "$category",
			"projects": bson.M{"$sum": 1},
			"views":    bson.M{"$sum": "$showcase.views"},
			"likes":    bson.M{"$sum": bson.M{"$size": bson.M{"$ifNull": bson.A{"$showcase.likes", bson.A{}}}}},
		}}},
	}
	cur, err := s.projects.c.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("mongostore: showcase stats: %w", err)
	}

	var groups []struct {
		Category string `bson:"_id"`
		Projects int    `bson:"projects"`
		Views    int    `bson:"views"`
		Likes    int    `bson:"likes"`
	}
	if err := cur.All(ctx, &groups); err != nil {
		return nil, fmt.Errorf("mongostore: decoding showcase stats: %w", err)
	}

	stats := &repository.ShowcaseStats{Categories: map[string]int{}}
	for _, g := range groups {
		stats.TotalProjects += g.Projects
		stats.TotalViews += g.Views
		stats.TotalLikes += g.Likes
		stats.Categories[g.Category] = g.Projects
	}
	return stats, nil
}

func (s *Store) UpdateProject(ctx context.Context, project *model.Project) error {
	next := *project
	next.Version++
	next.UpdatedAt = time.Now().UTC()
	if err := s.projects.replace(ctx, project.ID, project.Version, &next); err != nil {
		return err
	}
	*project = next
	return nil
}

func (s *Store) DeleteProject(ctx context.Context, id string) error {
	return s.projects.delete(ctx, id)
}

// =========================================================================
// TASKS
// =========================================================================

func (s *Store) CreateTask(ctx context.Context, task *model.Task) error {
	now := time.Now().UTC()
	task.ID = xid.New().String()
	task.CreatedAt = now
	task.UpdatedAt = now
	task.Version = 1
	return s.tasks.insert(ctx, task.ID, task)
}

func (s *Store) GetTaskByID(ctx context.Context, id string) (*model.Task, error) {
	return s.tasks.byID(ctx, id)
}

func (s *Store) ListTasks(ctx context.Context, filter repository.TaskFilter) ([]model.Task, error) {
	if filter.ProjectIDs != nil && len(filter.ProjectIDs) == 0 {
		return []model.Task{}, nil
	}
	q := bson.M{}
	if len(filter.ProjectIDs) > 0 {
		q["project"] = bson.M{"$in": filter.ProjectIDs}
	}
	if filter.Status != "" {
		q["status"] = filter.Status
	}
	if filter.AssignedTo != "" {
		q["assignedTo"] = filter.AssignedTo
	}
	return s.tasks.find(ctx, q, options.Find().SetSort(newestFirst))
}

func (s *Store) UpdateTask(ctx context.Context, task *model.Task) error {
	next := *task
	next.Version++
	next.UpdatedAt = time.Now().UTC()
	if err := s.tasks.replace(ctx, task.ID, task.Version, &next); err != nil {
		return err
	}
	*task = next
	return nil
}

func (s *Store) DeleteTask(ctx context.Context, id string) error {
	return s.tasks.delete(ctx, id)
}

func (s *Store) DeleteTasksByProject(ctx context.Context, projectID string) error {
	if _, err := s.tasks.c.DeleteMany(ctx, bson.M{"project": projectID}); err != nil {
		return fmt.Errorf("mongostore: deleting tasks of project %s: %w", projectID, err)
	}
	return nil
}

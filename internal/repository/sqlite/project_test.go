package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/hackhub/internal/model"
	"github.com/sakif/hackhub/internal/repository"
)

func createTestProject(t *testing.T, db *DB, title, teamID, owner string, public bool) *model.Project {
	t.Helper()
	p := &model.Project{
		Title:         title,
		Description:   "a project description",
		Category:      model.CategoryWeb,
		TeamID:        teamID,
		Owner:         owner,
		Collaborators: []string{owner},
		Status:        model.ProjectPlanning,
		Priority:      model.PriorityMedium,
		Showcase:      model.Showcase{IsPublic: public},
	}
	require.NoError(t, db.CreateProject(context.Background(), p))
	return p
}

// =========================================================================
// LIST TESTS
// =========================================================================

func TestListProjects_Filters(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	a := createTestProject(t, db, "A", "team1", "u1", false)
	b := createTestProject(t, db, "B", "team1", "u2", false)
	createTestProject(t, db, "C", "team2", "u3", false)

	b.Collaborators = append(b.Collaborators, "u1")
	b.Status = model.ProjectCompleted
	require.NoError(t, db.UpdateProject(ctx, b))

	byTeam, err := db.ListProjects(ctx, repository.ProjectFilter{TeamID: "team1"})
	require.NoError(t, err)
	assert.Len(t, byTeam, 2)

	mine, err := db.ListProjects(ctx, repository.ProjectFilter{Participant: "u1"})
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	done, err := db.ListProjects(ctx, repository.ProjectFilter{Participant: "u1", Status: model.ProjectCompleted})
	require.NoError(t, err)
	require.Len(t, done, 1)
	assert.Equal(t, b.ID, done[0].ID)

	byID, err := db.ListProjects(ctx, repository.ProjectFilter{IDs: []string{a.ID}})
	require.NoError(t, err)
	assert.Len(t, byID, 1)

	none, err := db.ListProjects(ctx, repository.ProjectFilter{IDs: []string{}})
	require.NoError(t, err)
	assert.Empty(t, none)
}

// =========================================================================
// SHOWCASE TESTS
// =========================================================================

func TestListShowcase(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	createTestProject(t, db, "Hidden", "t", "u1", false)
	popular := createTestProject(t, db, "Popular", "t", "u1", true)
	viewed := createTestProject(t, db, "Viewed", "t", "u1", true)
	tagged := createTestProject(t, db, "Tagged", "t", "u1", true)

	popular.Showcase.Likes = []model.Like{{UserID: "a"}, {UserID: "b"}}
	require.NoError(t, db.UpdateProject(ctx, popular))
	viewed.Showcase.Views = 99
	require.NoError(t, db.UpdateProject(ctx, viewed))
	tagged.Tags = []string{"blockchain"}
	tagged.Category = model.CategoryBlockchain
	require.NoError(t, db.UpdateProject(ctx, tagged))

	page, total, err := db.ListShowcase(ctx, repository.ShowcaseQuery{Sort: "recent", ListOptions: repository.ListOptions{Limit: 12}})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, page, 3)
	assert.Equal(t, tagged.ID, page[0].ID)

	page, _, err = db.ListShowcase(ctx, repository.ShowcaseQuery{Sort: "popular", ListOptions: repository.ListOptions{Limit: 12}})
	require.NoError(t, err)
	assert.Equal(t, popular.ID, page[0].ID)

	page, _, err = db.ListShowcase(ctx, repository.ShowcaseQuery{Sort: "views", ListOptions: repository.ListOptions{Limit: 12}})
	require.NoError(t, err)
	assert.Equal(t, viewed.ID, page[0].ID)

	page, total, err = db.ListShowcase(ctx, repository.ShowcaseQuery{Search: "BLOCK", ListOptions: repository.ListOptions{Limit: 12}})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, tagged.ID, page[0].ID)

	page, total, err = db.ListShowcase(ctx, repository.ShowcaseQuery{Category: model.CategoryWeb, ListOptions: repository.ListOptions{Limit: 1, Offset: 1}})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, page, 1)
}

func TestShowcaseStats(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	createTestProject(t, db, "Hidden", "t", "u1", false)
	a := createTestProject(t, db, "A", "t", "u1", true)
	b := createTestProject(t, db, "B", "t", "u1", true)

	a.Showcase.Views = 10
	a.Showcase.Likes = []model.Like{{UserID: "x"}}
	require.NoError(t, db.UpdateProject(ctx, a))
	b.Showcase.Views = 5
	b.Category = model.CategoryAI
	require.NoError(t, db.UpdateProject(ctx, b))

	stats, err := db.ShowcaseStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalProjects)
	assert.Equal(t, 15, stats.TotalViews)
	assert.Equal(t, 1, stats.TotalLikes)
	assert.Equal(t, map[string]int{"web": 1, "ai": 1}, stats.Categories)
}

// =========================================================================
// TASK TESTS
// =========================================================================

func TestTasks_ListAndDeleteByProject(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	for i, pid := range []string{"p1", "p1", "p2"} {
		task := &model.Task{Title: "task", ProjectID: pid, Status: model.TaskTodo, CreatedBy: "u1"}
		if i == 1 {
			task.Status = model.TaskCompleted
			task.AssignedTo = "u9"
		}
		require.NoError(t, db.CreateTask(ctx, task))
	}

	all, err := db.ListTasks(ctx, repository.TaskFilter{ProjectIDs: []string{"p1", "p2"}})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	done, err := db.ListTasks(ctx, repository.TaskFilter{ProjectIDs: []string{"p1"}, Status: model.TaskCompleted})
	require.NoError(t, err)
	assert.Len(t, done, 1)

	assigned, err := db.ListTasks(ctx, repository.TaskFilter{AssignedTo: "u9"})
	require.NoError(t, err)
	assert.Len(t, assigned, 1)

	none, err := db.ListTasks(ctx, repository.TaskFilter{ProjectIDs: []string{}})
	require.NoError(t, err)
	assert.Empty(t, none)

	require.NoError(t, db.DeleteTasksByProject(ctx, "p1"))
	left, err := db.ListTasks(ctx, repository.TaskFilter{})
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, "p2", left[0].ProjectID)
}

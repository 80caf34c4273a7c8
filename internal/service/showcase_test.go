package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/hackhub/internal/apperror"
	"github.com/sakif/hackhub/internal/model"
)

// publish creates a project and puts it on the showcase.
func (e *testEnv) publish(t *testing.T, owner *model.User, team *model.Team, title string) *model.Project {
	t.Helper()
	p := e.createProject(t, owner, team, title)
	public, err := e.projects.ToggleShowcase(context.Background(), owner.ID, p.ID)
	require.NoError(t, err)
	require.True(t, public)
	return p
}

// =========================================================================
// LIST TESTS
// =========================================================================

func TestShowcaseList_PaginatesPublicProjects(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.createUser(t, "Owner")
	team := env.createTeam(t, owner, "Rockets")
	env.publish(t, owner, team, "First")
	env.publish(t, owner, team, "Second")
	env.publish(t, owner, team, "Third")
	env.createProject(t, owner, team, "Private")

	page, err := env.showcase.List(ctx, "", ShowcaseParams{Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page.Projects, 2)
	assert.Equal(t, Pagination{Page: 1, Limit: 2, Total: 3, TotalPages: 2}, page.Pagination)

	page, err = env.showcase.List(ctx, "", ShowcaseParams{Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page.Projects, 1)
}

func TestShowcaseList_Defaults(t *testing.T) {
	env := newTestEnv(t)

	page, err := env.showcase.List(context.Background(), "", ShowcaseParams{Limit: 500})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Pagination.Page)
	assert.Equal(t, MaxShowcaseLimit, page.Pagination.Limit)

	page, err = env.showcase.List(context.Background(), "", ShowcaseParams{})
	require.NoError(t, err)
	assert.Equal(t, DefaultShowcaseLimit, page.Pagination.Limit)
	assert.Empty(t, page.Projects)
}

func TestShowcaseList_RejectsUnknownSortAndCategory(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.showcase.List(ctx, "", ShowcaseParams{Sort: "random"})
	assert.ErrorIs(t, err, apperror.ErrValidation)

	_, err = env.showcase.List(ctx, "", ShowcaseParams{Category: "desktop"})
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

// =========================================================================
// DETAIL TESTS
// =========================================================================

func TestShowcaseGet(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.createUser(t, "Owner")
	visitor := env.createUser(t, "Visitor")
	team := env.createTeam(t, owner, "Rockets")
	public := env.publish(t, owner, team, "Launcher")
	private := env.createProject(t, owner, team, "Secret")

	_, err := env.showcase.Get(ctx, owner.ID, private.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound, "private projects are not on the showcase")

	_, err = env.showcase.Get(ctx, owner.ID, public.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, env.reloadProject(t, public.ID).Showcase.Views, "own views are not counted")

	_, err = env.showcase.Get(ctx, visitor.ID, public.ID)
	require.NoError(t, err)
	item, err := env.showcase.Get(ctx, "", public.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, item.Showcase.Views)
}

// =========================================================================
// LIKE AND COMMENT TESTS
// =========================================================================

func TestShowcaseToggleLike(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.createUser(t, "Owner")
	fan := env.createUser(t, "Fan")
	team := env.createTeam(t, owner, "Rockets")
	p := env.publish(t, owner, team, "Launcher")

	res, err := env.showcase.ToggleLike(ctx, fan.ID, p.ID)
	require.NoError(t, err)
	assert.Equal(t, LikeResult{Liked: true, LikeCount: 1}, *res)

	page, err := env.showcase.List(ctx, fan.ID, ShowcaseParams{})
	require.NoError(t, err)
	require.Len(t, page.Projects, 1)
	assert.True(t, page.Projects[0].UserLiked)
	assert.Equal(t, 1, page.Projects[0].LikeCount)

	res, err = env.showcase.ToggleLike(ctx, fan.ID, p.ID)
	require.NoError(t, err)
	assert.Equal(t, LikeResult{Liked: false, LikeCount: 0}, *res)
}

func TestShowcaseAddComment(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.createUser(t, "Owner")
	fan := env.createUser(t, "Fan")
	team := env.createTeam(t, owner, "Rockets")
	p := env.publish(t, owner, team, "Launcher")

	c, err := env.showcase.AddComment(ctx, fan.ID, p.ID, "Great work!")
	require.NoError(t, err)
	assert.Equal(t, "Great work!", c.Text)

	comments := env.reloadProject(t, p.ID).Showcase.Comments
	require.Len(t, comments, 1)
	assert.Equal(t, c.ID, comments[0].ID)

	_, err = env.showcase.AddComment(ctx, fan.ID, p.ID, "")
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestShowcaseStats(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.createUser(t, "Owner")
	fan := env.createUser(t, "Fan")
	team := env.createTeam(t, owner, "Rockets")
	p := env.publish(t, owner, team, "Launcher")
	env.publish(t, owner, team, "Tracker")
	env.createProject(t, owner, team, "Private")

	_, err := env.showcase.ToggleLike(ctx, fan.ID, p.ID)
	require.NoError(t, err)
	_, err = env.showcase.Get(ctx, fan.ID, p.ID)
	require.NoError(t, err)

	stats, err := env.showcase.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalProjects)
	assert.Equal(t, 1, stats.TotalViews)
	assert.Equal(t, 1, stats.TotalLikes)
	assert.Equal(t, 2, stats.Categories[string(model.CategoryWeb)])
}

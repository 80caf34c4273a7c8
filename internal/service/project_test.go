package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/hackhub/internal/apperror"
	"github.com/sakif/hackhub/internal/model"
)

// =========================================================================
// CREATE TESTS
// =========================================================================

func TestProjectCreate_LinksIntoTeam(t *testing.T) {
	env := newTestEnv(t)
	owner := env.createUser(t, "Owner")
	team := env.createTeam(t, owner, "Rockets")

	p, err := env.projects.Create(context.Background(), owner.ID, ProjectInput{
		Title:       "  Launcher ",
		Description: "Launches rockets on schedule.",
		Category:    model.CategoryIoT,
		TeamID:      team.ID,
		Tags:        []string{"Hardware", "hardware", "IoT"},
	})
	require.NoError(t, err)

	assert.Equal(t, "Launcher", p.Title)
	assert.Equal(t, owner.ID, p.Owner)
	assert.Equal(t, []string{owner.ID}, p.Collaborators)
	assert.Equal(t, model.ProjectPlanning, p.Status)
	assert.Equal(t, model.PriorityMedium, p.Priority)
	assert.Equal(t, []string{"hardware", "iot"}, p.Tags)
	assert.Equal(t, []string{p.ID}, env.reloadTeam(t, team.ID).Projects)
}

func TestProjectCreate_Rejects(t *testing.T) {
	env := newTestEnv(t)
	owner := env.createUser(t, "Owner")
	outsider := env.createUser(t, "Outsider")
	team := env.createTeam(t, owner, "Rockets")

	valid := ProjectInput{
		Title:       "Launcher",
		Description: "Launches rockets on schedule.",
		Category:    model.CategoryWeb,
		TeamID:      team.ID,
	}

	tests := []struct {
		name    string
		actor   string
		mutate  func(in *ProjectInput)
		wantErr error
	}{
		{"non-member", outsider.ID, func(*ProjectInput) {}, apperror.ErrForbidden},
		{"missing team", owner.ID, func(in *ProjectInput) { in.TeamID = "" }, apperror.ErrValidation},
		{"unknown team", owner.ID, func(in *ProjectInput) { in.TeamID = "missing" }, apperror.ErrNotFound},
		{"short title", owner.ID, func(in *ProjectInput) { in.Title = "L" }, apperror.ErrValidation},
		{"short description", owner.ID, func(in *ProjectInput) { in.Description = "too short" }, apperror.ErrValidation},
		{"bad category", owner.ID, func(in *ProjectInput) { in.Category = "desktop" }, apperror.ErrValidation},
		{"bad priority", owner.ID, func(in *ProjectInput) { in.Priority = "whenever" }, apperror.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid
			tt.mutate(&in)
			_, err := env.projects.Create(context.Background(), tt.actor, in)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
	assert.Empty(t, env.reloadTeam(t, team.ID).Projects, "failed creates leave no link behind")
}

// =========================================================================
// ACCESS TESTS
// =========================================================================

func TestProjectGet_AccessRules(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.createUser(t, "Owner")
	teammate := env.createUser(t, "Teammate")
	collaborator := env.createUser(t, "Collab")
	outsider := env.createUser(t, "Outsider")
	team := env.createTeam(t, owner, "Rockets")
	env.join(t, teammate, team)
	p := env.createProject(t, owner, team, "Launcher")
	_, err := env.projects.AddCollaborator(ctx, owner.ID, p.ID, collaborator.ID)
	require.NoError(t, err)

	for _, who := range []*model.User{owner, teammate, collaborator} {
		_, err := env.projects.Get(ctx, who.ID, p.ID)
		assert.NoError(t, err, who.Name)
	}

	_, err = env.projects.Get(ctx, outsider.ID, p.ID)
	assert.ErrorIs(t, err, apperror.ErrForbidden, "denials are 403, not 404")
}

func TestProjectList_OnlyOwnedOrShared(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.createUser(t, "Owner")
	teammate := env.createUser(t, "Teammate")
	team := env.createTeam(t, owner, "Rockets")
	env.join(t, teammate, team)
	env.createProject(t, owner, team, "Launcher")

	mine, err := env.projects.List(ctx, owner.ID, "", "")
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	theirs, err := env.projects.List(ctx, teammate.ID, "", "")
	require.NoError(t, err)
	assert.Empty(t, theirs, "team membership alone does not list a project")

	_, err = env.projects.List(ctx, owner.ID, "", "archived")
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

// =========================================================================
// UPDATE TESTS
// =========================================================================

func TestProjectUpdate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.createUser(t, "Owner")
	collaborator := env.createUser(t, "Collab")
	teammate := env.createUser(t, "Teammate")
	team := env.createTeam(t, owner, "Rockets")
	env.join(t, teammate, team)
	p := env.createProject(t, owner, team, "Launcher")
	_, err := env.projects.AddCollaborator(ctx, owner.ID, p.ID, collaborator.ID)
	require.NoError(t, err)

	title := "Launcher v2"
	status := model.ProjectTesting
	updated, err := env.projects.Update(ctx, collaborator.ID, p.ID, ProjectPatch{Title: &title, Status: &status})
	require.NoError(t, err)
	assert.Equal(t, "Launcher v2", updated.Title)
	assert.Equal(t, model.ProjectTesting, updated.Status)

	_, err = env.projects.Update(ctx, teammate.ID, p.ID, ProjectPatch{Title: &title})
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	bad := model.ProjectStatus("archived")
	_, err = env.projects.Update(ctx, owner.ID, p.ID, ProjectPatch{Status: &bad})
	assert.ErrorIs(t, err, apperror.ErrValidation)
	assert.Equal(t, model.ProjectTesting, env.reloadProject(t, p.ID).Status, "rejected patch is not saved")
}

func TestAddCollaborator(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.createUser(t, "Owner")
	collaborator := env.createUser(t, "Collab")
	team := env.createTeam(t, owner, "Rockets")
	p := env.createProject(t, owner, team, "Launcher")

	_, err := env.projects.AddCollaborator(ctx, collaborator.ID, p.ID, collaborator.ID)
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	_, err = env.projects.AddCollaborator(ctx, owner.ID, p.ID, "ghost")
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	updated, err := env.projects.AddCollaborator(ctx, owner.ID, p.ID, collaborator.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{owner.ID, collaborator.ID}, updated.Collaborators)

	_, err = env.projects.AddCollaborator(ctx, owner.ID, p.ID, collaborator.ID)
	assert.ErrorIs(t, err, apperror.ErrConflict)
}

func TestToggleShowcase(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.createUser(t, "Owner")
	collaborator := env.createUser(t, "Collab")
	team := env.createTeam(t, owner, "Rockets")
	p := env.createProject(t, owner, team, "Launcher")
	_, err := env.projects.AddCollaborator(ctx, owner.ID, p.ID, collaborator.ID)
	require.NoError(t, err)

	_, err = env.projects.ToggleShowcase(ctx, collaborator.ID, p.ID)
	assert.ErrorIs(t, err, apperror.ErrForbidden, "owner only")

	public, err := env.projects.ToggleShowcase(ctx, owner.ID, p.ID)
	require.NoError(t, err)
	assert.True(t, public)

	public, err = env.projects.ToggleShowcase(ctx, owner.ID, p.ID)
	require.NoError(t, err)
	assert.False(t, public)
}

// =========================================================================
// DELETE TESTS
// =========================================================================

func TestProjectDelete_RemovesTasksAndLink(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.createUser(t, "Owner")
	collaborator := env.createUser(t, "Collab")
	team := env.createTeam(t, owner, "Rockets")
	p := env.createProject(t, owner, team, "Launcher")
	_, err := env.projects.AddCollaborator(ctx, owner.ID, p.ID, collaborator.ID)
	require.NoError(t, err)
	task, err := env.tasks.Create(ctx, owner.ID, TaskInput{Title: "Wire it", ProjectID: p.ID})
	require.NoError(t, err)

	assert.ErrorIs(t, env.projects.Delete(ctx, collaborator.ID, p.ID), apperror.ErrForbidden)

	require.NoError(t, env.projects.Delete(ctx, owner.ID, p.ID))

	_, err = env.store.GetProjectByID(ctx, p.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
	_, err = env.store.GetTaskByID(ctx, task.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
	assert.Empty(t, env.reloadTeam(t, team.ID).Projects)
}

package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/hackhub/internal/apperror"
	"github.com/sakif/hackhub/internal/model"
)

type taskFixture struct {
	env          *testEnv
	owner        *model.User
	collaborator *model.User
	teammate     *model.User
	outsider     *model.User
	project      *model.Project
}

func newTaskFixture(t *testing.T) *taskFixture {
	t.Helper()
	env := newTestEnv(t)
	f := &taskFixture{
		env:          env,
		owner:        env.createUser(t, "Owner"),
		collaborator: env.createUser(t, "Collab"),
		teammate:     env.createUser(t, "Teammate"),
		outsider:     env.createUser(t, "Outsider"),
	}
	team := env.createTeam(t, f.owner, "Rockets")
	env.join(t, f.teammate, team)
	f.project = env.createProject(t, f.owner, team, "Launcher")
	_, err := env.projects.AddCollaborator(context.Background(), f.owner.ID, f.project.ID, f.collaborator.ID)
	require.NoError(t, err)
	return f
}

func (f *taskFixture) createTask(t *testing.T, creator *model.User, title, assignee string) *model.Task {
	t.Helper()
	task, err := f.env.tasks.Create(context.Background(), creator.ID, TaskInput{
		Title: title, ProjectID: f.project.ID, AssignedTo: assignee,
	})
	require.NoError(t, err)
	return task
}

func setStatus(status model.TaskStatus) TaskPatch {
	return TaskPatch{Status: &status}
}

// =========================================================================
// CREATE TESTS
// =========================================================================

func TestTaskCreate_LinksAndRecomputesProgress(t *testing.T) {
	f := newTaskFixture(t)

	task := f.createTask(t, f.teammate, "Wire the igniter", "")
	assert.Equal(t, model.TaskTodo, task.Status)
	assert.Equal(t, model.PriorityMedium, task.Priority)
	assert.Equal(t, f.teammate.ID, task.CreatedBy)

	p := f.env.reloadProject(t, f.project.ID)
	assert.Equal(t, []string{task.ID}, p.Tasks)
	assert.Equal(t, model.ProjectMetrics{TotalTasks: 1, CompletedTasks: 0}, p.Metrics)
	assert.Equal(t, 0, p.Progress)
}

func TestTaskCreate_Rejects(t *testing.T) {
	f := newTaskFixture(t)
	ctx := context.Background()

	_, err := f.env.tasks.Create(ctx, f.outsider.ID, TaskInput{Title: "Sneak in", ProjectID: f.project.ID})
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	_, err = f.env.tasks.Create(ctx, f.owner.ID, TaskInput{Title: "X", ProjectID: f.project.ID})
	assert.ErrorIs(t, err, apperror.ErrValidation)

	_, err = f.env.tasks.Create(ctx, f.owner.ID, TaskInput{
		Title: "Document it", ProjectID: f.project.ID,
		Description: strings.Repeat("d", MaxTaskDescriptionLength+1),
	})
	assert.ErrorIs(t, err, apperror.ErrValidation)

	assert.Empty(t, f.env.reloadProject(t, f.project.ID).Tasks)
}

// =========================================================================
// UPDATE TESTS
// =========================================================================

func TestTaskUpdate_ProgressFollowsStatus(t *testing.T) {
	f := newTaskFixture(t)
	ctx := context.Background()
	a := f.createTask(t, f.owner, "First", "")
	f.createTask(t, f.owner, "Second", "")
	f.createTask(t, f.owner, "Third", "")

	_, err := f.env.tasks.Update(ctx, f.owner.ID, a.ID, setStatus(model.TaskCompleted))
	require.NoError(t, err)

	p := f.env.reloadProject(t, f.project.ID)
	assert.Equal(t, 33, p.Progress, "round(1/3*100)")
	assert.Equal(t, model.ProjectMetrics{TotalTasks: 3, CompletedTasks: 1}, p.Metrics)

	_, err = f.env.tasks.Update(ctx, f.owner.ID, a.ID, setStatus(model.TaskReview))
	require.NoError(t, err)
	assert.Equal(t, 0, f.env.reloadProject(t, f.project.ID).Progress)
}

func TestTaskUpdate_Permissions(t *testing.T) {
	f := newTaskFixture(t)
	ctx := context.Background()
	task := f.createTask(t, f.owner, "Assigned work", f.teammate.ID)

	title := "Renamed"
	tests := []struct {
		name    string
		actor   *model.User
		patch   TaskPatch
		wantErr error
	}{
		{"assignee moves status", f.teammate, setStatus(model.TaskInProgress), nil},
		{"assignee cannot rename", f.teammate, TaskPatch{Title: &title}, apperror.ErrForbidden},
		{"collaborator edits everything", f.collaborator, TaskPatch{Title: &title}, nil},
		{"outsider is forbidden", f.outsider, setStatus(model.TaskCompleted), apperror.ErrForbidden},
		{"invalid status", f.owner, setStatus("done"), apperror.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.env.tasks.Update(ctx, tt.actor.ID, task.ID, tt.patch)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}

	got, err := f.env.tasks.Get(ctx, f.owner.ID, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Title)
	assert.Equal(t, model.TaskInProgress, got.Status)
}

// =========================================================================
// LIST AND COMMENT TESTS
// =========================================================================

func TestTaskList(t *testing.T) {
	f := newTaskFixture(t)
	ctx := context.Background()
	f.createTask(t, f.owner, "Mine", f.collaborator.ID)
	f.createTask(t, f.owner, "Other", "")

	tasks, err := f.env.tasks.List(ctx, f.owner.ID, TaskListFilter{ProjectID: f.project.ID})
	require.NoError(t, err)
	assert.Len(t, tasks, 2)

	tasks, err = f.env.tasks.List(ctx, f.collaborator.ID, TaskListFilter{AssignedTo: f.collaborator.ID})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "Mine", tasks[0].Title)

	tasks, err = f.env.tasks.List(ctx, f.outsider.ID, TaskListFilter{})
	require.NoError(t, err)
	assert.Empty(t, tasks)

	_, err = f.env.tasks.List(ctx, f.outsider.ID, TaskListFilter{ProjectID: f.project.ID})
	assert.ErrorIs(t, err, apperror.ErrForbidden)
}

func TestTaskAddComment(t *testing.T) {
	f := newTaskFixture(t)
	ctx := context.Background()
	task := f.createTask(t, f.owner, "Discuss", "")

	updated, err := f.env.tasks.AddComment(ctx, f.teammate.ID, task.ID, "  looks good  ")
	require.NoError(t, err)
	require.Len(t, updated.Comments, 1)
	assert.Equal(t, "looks good", updated.Comments[0].Text)
	assert.Equal(t, f.teammate.ID, updated.Comments[0].UserID)
	assert.NotEmpty(t, updated.Comments[0].ID)

	_, err = f.env.tasks.AddComment(ctx, f.teammate.ID, task.ID, "   ")
	assert.ErrorIs(t, err, apperror.ErrValidation)

	_, err = f.env.tasks.AddComment(ctx, f.outsider.ID, task.ID, "hi")
	assert.ErrorIs(t, err, apperror.ErrForbidden)
}

// =========================================================================
// DELETE TESTS
// =========================================================================

func TestTaskDelete(t *testing.T) {
	f := newTaskFixture(t)
	ctx := context.Background()
	byTeammate := f.createTask(t, f.teammate, "Teammate's", "")
	done := f.createTask(t, f.owner, "Owner's", "")
	_, err := f.env.tasks.Update(ctx, f.owner.ID, done.ID, setStatus(model.TaskCompleted))
	require.NoError(t, err)

	assert.ErrorIs(t, f.env.tasks.Delete(ctx, f.collaborator.ID, byTeammate.ID), apperror.ErrForbidden,
		"collaborators cannot delete tasks they did not create")

	require.NoError(t, f.env.tasks.Delete(ctx, f.owner.ID, byTeammate.ID), "project owner may delete")

	p := f.env.reloadProject(t, f.project.ID)
	assert.Equal(t, []string{done.ID}, p.Tasks)
	assert.Equal(t, 100, p.Progress)

	require.NoError(t, f.env.tasks.Delete(ctx, f.owner.ID, done.ID))
	p = f.env.reloadProject(t, f.project.ID)
	assert.Empty(t, p.Tasks)
	assert.Equal(t, 0, p.Progress)
}

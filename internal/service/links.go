package service

import (
	"context"
	"fmt"

	"github.com/sakif/hackhub/internal/model"
	"github.com/sakif/hackhub/internal/repository"
)

// links maintains the back-references between aggregates. Every operation
// is idempotent: linking twice or unlinking something absent is a no-op.
type links struct {
	users    repository.UserRepository
	teams    repository.TeamRepository
	projects repository.ProjectRepository
	tasks    repository.TaskRepository
}

// userTeam records (or forgets) teamID in the user's Teams list.
func (l *links) userTeam(ctx context.Context, userID, teamID string, linked bool) error {
	return withRetry(ctx, "user", func(ctx context.Context) error {
		user, err := l.users.GetUserByID(ctx, userID)
		if err != nil {
			return err
		}
		var changed bool
		if linked {
			user.Teams, changed = appendUnique(user.Teams, teamID)
		} else {
			user.Teams, changed = removeID(user.Teams, teamID)
		}
		if !changed {
			return nil
		}
		return l.users.UpdateUser(ctx, user)
	})
}

// teamProject records (or forgets) projectID in Team.Projects.
func (l *links) teamProject(ctx context.Context, teamID, projectID string, linked bool) error {
	return withRetry(ctx, "team", func(ctx context.Context) error {
		team, err := l.teams.GetTeamByID(ctx, teamID)
		if err != nil {
			return err
		}
		var changed bool
		if linked {
			team.Projects, changed = appendUnique(team.Projects, projectID)
		} else {
			team.Projects, changed = removeID(team.Projects, projectID)
		}
		if !changed {
			return nil
		}
		return l.teams.UpdateTeam(ctx, team)
	})
}

// projectTask records (or forgets) taskID in Project.Tasks and recomputes
// the project's progress from its tasks in the same save.
func (l *links) projectTask(ctx context.Context, projectID, taskID string, linked bool) error {
	return withRetry(ctx, "project", func(ctx context.Context) error {
		project, err := l.projects.GetProjectByID(ctx, projectID)
		if err != nil {
			return err
		}
		if linked {
			project.Tasks, _ = appendUnique(project.Tasks, taskID)
		} else {
			project.Tasks, _ = removeID(project.Tasks, taskID)
		}
		if err := l.applyProgress(ctx, project); err != nil {
			return err
		}
		return l.projects.UpdateProject(ctx, project)
	})
}

// refreshProgress recomputes progress after a task changed status.
func (l *links) refreshProgress(ctx context.Context, projectID string) error {
	return withRetry(ctx, "project", func(ctx context.Context) error {
		project, err := l.projects.GetProjectByID(ctx, projectID)
		if err != nil {
			return err
		}
		before := project.Progress
		beforeMetrics := project.Metrics
		if err := l.applyProgress(ctx, project); err != nil {
			return err
		}
		if project.Progress == before && project.Metrics == beforeMetrics {
			return nil
		}
		return l.projects.UpdateProject(ctx, project)
	})
}

func (l *links) applyProgress(ctx context.Context, project *model.Project) error {
	tasks, err := l.tasks.ListTasks(ctx, repository.TaskFilter{ProjectIDs: []string{project.ID}})
	if err != nil {
		return fmt.Errorf("listing tasks of project %s: %w", project.ID, err)
	}
	project.ApplyProgress(tasks)
	return nil
}

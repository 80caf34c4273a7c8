package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sakif/hackhub/internal/access"
	"github.com/sakif/hackhub/internal/apperror"
	"github.com/sakif/hackhub/internal/metrics"
	"github.com/sakif/hackhub/internal/model"
	"github.com/sakif/hackhub/internal/repository"
)

const (
	MinTitleLength              = 2
	MaxTitleLength              = 100
	MinProjectDescriptionLength = 10
	MaxProjectDescriptionLength = 2000
	MaxShortDescriptionLength   = 200
)

// ProjectService manages projects inside teams.
type ProjectService struct {
	users    repository.UserRepository
	teams    repository.TeamRepository
	projects repository.ProjectRepository
	tasks    repository.TaskRepository
	links    *links
	logger   *slog.Logger
}

func NewProjectService(
	users repository.UserRepository,
	teams repository.TeamRepository,
	projects repository.ProjectRepository,
	tasks repository.TaskRepository,
	logger *slog.Logger,
) *ProjectService {
	return &ProjectService{
		users:    users,
		teams:    teams,
		projects: projects,
		tasks:    tasks,
		links:    &links{users: users, teams: teams, projects: projects, tasks: tasks},
		logger:   logger,
	}
}

type ProjectInput struct {
	Title            string         `json:"title"`
	Description      string         `json:"description"`
	ShortDescription string         `json:"shortDescription"`
	Tags             []string       `json:"tags"`
	Category         model.Category `json:"category"`
	TeamID           string         `json:"teamId"`
	Priority         model.Priority `json:"priority"`
	DueDate          *time.Time     `json:"dueDate"`
	Links            model.Links    `json:"links"`
}

// ProjectPatch is a partial update; nil fields are left unchanged.
type ProjectPatch struct {
	Title            *string              `json:"title"`
	Description      *string              `json:"description"`
	ShortDescription *string              `json:"shortDescription"`
	Tags             *[]string            `json:"tags"`
	Category         *model.Category      `json:"category"`
	Status           *model.ProjectStatus `json:"status"`
	Priority         *model.Priority      `json:"priority"`
	DueDate          *time.Time           `json:"dueDate"`
	Links            *model.Links         `json:"links"`
}

func validateProject(p *model.Project) error {
	if err := requireLength("title", p.Title, MinTitleLength, MaxTitleLength); err != nil {
		return err
	}
	if err := requireLength("description", p.Description, MinProjectDescriptionLength, MaxProjectDescriptionLength); err != nil {
		return err
	}
	if err := requireMax("shortDescription", p.ShortDescription, MaxShortDescriptionLength); err != nil {
		return err
	}
	if !p.Category.Valid() {
		return apperror.ValidationFailed("category", "invalid category")
	}
	if !p.Status.Valid() {
		return apperror.ValidationFailed("status", "invalid status")
	}
	if !p.Priority.Valid() {
		return apperror.ValidationFailed("priority", "invalid priority")
	}
	return nil
}

// Create adds a project to a team the caller belongs to and links it into
// the team's project list. If the link cannot be written the project is
// deleted again.
func (s *ProjectService) Create(ctx context.Context, userID string, in ProjectInput) (*model.Project, error) {
	if in.TeamID == "" {
		return nil, apperror.ValidationFailed("teamId", "team is required")
	}
	team, err := s.teams.GetTeamByID(ctx, in.TeamID)
	if err != nil {
		return nil, err
	}
	if !access.IsMember(team, access.ID(userID)) {
		return nil, apperror.Forbidden("you must be a member of the team to create a project")
	}

	project := &model.Project{
		Title:            strings.TrimSpace(in.Title),
		Description:      strings.TrimSpace(in.Description),
		ShortDescription: strings.TrimSpace(in.ShortDescription),
		Tags:             normalizeTags(in.Tags),
		Category:         in.Category,
		TeamID:           team.ID,
		Owner:            userID,
		Collaborators:    []string{userID},
		Status:           model.ProjectPlanning,
		Priority:         in.Priority,
		DueDate:          in.DueDate,
		Links:            in.Links,
		Tasks:            []string{},
	}
	if project.Priority == "" {
		project.Priority = model.PriorityMedium
	}
	if err := validateProject(project); err != nil {
		return nil, err
	}

	if err := s.projects.CreateProject(ctx, project); err != nil {
		return nil, fmt.Errorf("service/project: creating project: %w", err)
	}
	if err := s.links.teamProject(ctx, team.ID, project.ID, true); err != nil {
		if delErr := s.projects.DeleteProject(ctx, project.ID); delErr != nil {
			s.logger.Error("failed to roll back project creation",
				slog.String("projectID", project.ID), slog.String("error", delErr.Error()))
		}
		metrics.Event("project_created", err)
		return nil, fmt.Errorf("service/project: linking project to team: %w", err)
	}

	s.logger.Info("project created",
		slog.String("projectID", project.ID), slog.String("teamID", team.ID))
	metrics.Event("project_created", nil)
	return project, nil
}

// List returns the projects the caller owns or collaborates on.
func (s *ProjectService) List(ctx context.Context, userID, teamID string, status model.ProjectStatus) ([]model.Project, error) {
	if status != "" && !status.Valid() {
		return nil, apperror.ValidationFailed("status", "invalid status")
	}
	return s.projects.ListProjects(ctx, repository.ProjectFilter{
		TeamID:      teamID,
		Status:      status,
		Participant: userID,
	})
}

// teamOf loads the project's team; a team that no longer exists yields nil
// so that owner and collaborator access keeps working.
func teamOf(ctx context.Context, teams repository.TeamRepository, project *model.Project) (*model.Team, error) {
	if project.TeamID == "" {
		return nil, nil
	}
	team, err := teams.GetTeamByID(ctx, project.TeamID)
	if isNotFound(err) {
		return nil, nil
	}
	return team, err
}

func (s *ProjectService) Get(ctx context.Context, userID, projectID string) (*model.Project, error) {
	project, err := s.projects.GetProjectByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	team, err := teamOf(ctx, s.teams, project)
	if err != nil {
		return nil, err
	}
	if !access.CanAccessProject(project, team, access.ID(userID)) {
		return nil, apperror.Forbidden("you do not have access to this project")
	}
	return project, nil
}

// mutate loads the project, checks allowed and saves what fn changed.
func (s *ProjectService) mutate(ctx context.Context, projectID string, allowed func(p *model.Project) error, fn func(p *model.Project) error) (*model.Project, error) {
	var saved *model.Project
	err := withRetry(ctx, "project", func(ctx context.Context) error {
		project, err := s.projects.GetProjectByID(ctx, projectID)
		if err != nil {
			return err
		}
		if err := allowed(project); err != nil {
			return err
		}
		if err := fn(project); err != nil {
			return err
		}
		if err := s.projects.UpdateProject(ctx, project); err != nil {
			return err
		}
		saved = project
		return nil
	})
	return saved, err
}

func ownerOnly(userID, message string) func(p *model.Project) error {
	return func(p *model.Project) error {
		if !access.IsProjectOwner(p, access.ID(userID)) {
			return apperror.Forbidden(message)
		}
		return nil
	}
}

func (s *ProjectService) Update(ctx context.Context, userID, projectID string, patch ProjectPatch) (*model.Project, error) {
	editor := func(p *model.Project) error {
		if !access.CanEditProject(p, access.ID(userID)) {
			return apperror.Forbidden("only the owner and collaborators can update this project")
		}
		return nil
	}
	return s.mutate(ctx, projectID, editor, func(p *model.Project) error {
		if patch.Title != nil {
			p.Title = strings.TrimSpace(*patch.Title)
		}
		if patch.Description != nil {
			p.Description = strings.TrimSpace(*patch.Description)
		}
		if patch.ShortDescription != nil {
			p.ShortDescription = strings.TrimSpace(*patch.ShortDescription)
		}
		if patch.Tags != nil {
			p.Tags = normalizeTags(*patch.Tags)
		}
		if patch.Category != nil {
			p.Category = *patch.Category
		}
		if patch.Status != nil {
			p.Status = *patch.Status
		}
		if patch.Priority != nil {
			p.Priority = *patch.Priority
		}
		if patch.DueDate != nil {
			p.DueDate = patch.DueDate
		}
		if patch.Links != nil {
			p.Links = *patch.Links
		}
		return validateProject(p)
	})
}

func (s *ProjectService) AddCollaborator(ctx context.Context, userID, projectID, targetID string) (*model.Project, error) {
	if targetID == "" {
		return nil, apperror.ValidationFailed("userId", "user is required")
	}
	if _, err := s.users.GetUserByID(ctx, targetID); err != nil {
		return nil, err
	}
	return s.mutate(ctx, projectID, ownerOnly(userID, "only the project owner can add collaborators"),
		func(p *model.Project) error {
			var added bool
			p.Collaborators, added = appendUnique(p.Collaborators, targetID)
			if !added {
				return apperror.ConflictMessage("user is already a collaborator")
			}
			return nil
		})
}

// ToggleShowcase flips public visibility and returns the new state.
func (s *ProjectService) ToggleShowcase(ctx context.Context, userID, projectID string) (bool, error) {
	p, err := s.mutate(ctx, projectID, ownerOnly(userID, "only the project owner can change showcase visibility"),
		func(p *model.Project) error {
			p.Showcase.IsPublic = !p.Showcase.IsPublic
			return nil
		})
	if err != nil {
		return false, err
	}
	return p.Showcase.IsPublic, nil
}

// Delete unlinks the project from its team, then removes its tasks and the
// project itself. A failed delete re-links the project.
func (s *ProjectService) Delete(ctx context.Context, userID, projectID string) error {
	project, err := s.projects.GetProjectByID(ctx, projectID)
	if err != nil {
		return err
	}
	if !access.IsProjectOwner(project, access.ID(userID)) {
		return apperror.Forbidden("only the project owner can delete this project")
	}

	if project.TeamID != "" {
		if err := s.links.teamProject(ctx, project.TeamID, project.ID, false); err != nil && !isNotFound(err) {
			return fmt.Errorf("service/project: unlinking from team: %w", err)
		}
	}

	err = s.tasks.DeleteTasksByProject(ctx, project.ID)
	if err == nil {
		err = s.projects.DeleteProject(ctx, project.ID)
	}
	if err != nil {
		if project.TeamID != "" {
			if relinkErr := s.links.teamProject(ctx, project.TeamID, project.ID, true); relinkErr != nil && !isNotFound(relinkErr) {
				s.logger.Error("failed to re-link project after failed delete",
					slog.String("projectID", project.ID), slog.String("error", relinkErr.Error()))
			}
		}
		return fmt.Errorf("service/project: deleting project: %w", err)
	}

	s.logger.Info("project deleted", slog.String("projectID", project.ID))
	return nil
}

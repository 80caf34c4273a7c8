package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/hackhub/internal/access"
	"github.com/sakif/hackhub/internal/apperror"
	"github.com/sakif/hackhub/internal/model"
	"github.com/sakif/hackhub/internal/repository"
)

const (
	MaxTaskDescriptionLength = 1000
	MaxCommentLength         = 500
)

type TaskService struct {
	teams    repository.TeamRepository
	projects repository.ProjectRepository
	tasks    repository.TaskRepository
	links    *links
	logger   *slog.Logger
}

func NewTaskService(
	users repository.UserRepository,
	teams repository.TeamRepository,
	projects repository.ProjectRepository,
	tasks repository.TaskRepository,
	logger *slog.Logger,
) *TaskService {
	return &TaskService{
		teams:    teams,
		projects: projects,
		tasks:    tasks,
		links:    &links{users: users, teams: teams, projects: projects, tasks: tasks},
		logger:   logger,
	}
}

type TaskInput struct {
	Title          string         `json:"title"`
	Description    string         `json:"description"`
	ProjectID      string         `json:"projectId"`
	AssignedTo     string         `json:"assignedTo"`
	Priority       model.Priority `json:"priority"`
	DueDate        *time.Time     `json:"dueDate"`
	EstimatedHours float64        `json:"estimatedHours"`
	Tags           []string       `json:"tags"`
}

type TaskPatch struct {
	Title          *string           `json:"title"`
	Description    *string           `json:"description"`
	Status         *model.TaskStatus `json:"status"`
	Priority       *model.Priority   `json:"priority"`
	AssignedTo     *string           `json:"assignedTo"`
	DueDate        *time.Time        `json:"dueDate"`
	EstimatedHours *float64          `json:"estimatedHours"`
	ActualHours    *float64          `json:"actualHours"`
	Tags           *[]string         `json:"tags"`
}

// statusOnly reports whether the patch touches nothing but Status.
func (p TaskPatch) statusOnly() bool {
	return p.Title == nil && p.Description == nil && p.Priority == nil &&
		p.AssignedTo == nil && p.DueDate == nil && p.EstimatedHours == nil &&
		p.ActualHours == nil && p.Tags == nil
}

type TaskListFilter struct {
	ProjectID  string
	Status     model.TaskStatus
	AssignedTo string
}

func validateTask(t *model.Task) error {
	if err := requireLength("title", t.Title, MinTitleLength, MaxTitleLength); err != nil {
		return err
	}
	if err := requireMax("description", t.Description, MaxTaskDescriptionLength); err != nil {
		return err
	}
	if !t.Status.Valid() {
		return apperror.ValidationFailed("status", "invalid status")
	}
	if !t.Priority.Valid() {
		return apperror.ValidationFailed("priority", "invalid priority")
	}
	if t.EstimatedHours < 0 || t.ActualHours < 0 {
		return apperror.ValidationFailed("hours", "hours cannot be negative")
	}
	return nil
}

// accessibleProject loads a project and checks that userID may see its tasks.
func (s *TaskService) accessibleProject(ctx context.Context, userID, projectID string) (*model.Project, error) {
	project, err := s.projects.GetProjectByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	team, err := teamOf(ctx, s.teams, project)
	if err != nil {
		return nil, err
	}
	if !access.CanAccessTask(project, team, access.ID(userID)) {
		return nil, apperror.Forbidden("you do not have access to this project")
	}
	return project, nil
}

func (s *TaskService) Create(ctx context.Context, userID string, in TaskInput) (*model.Task, error) {
	if in.ProjectID == "" {
		return nil, apperror.ValidationFailed("projectId", "project is required")
	}
	project, err := s.accessibleProject(ctx, userID, in.ProjectID)
	if err != nil {
		return nil, err
	}

	task := &model.Task{
		Title:          strings.TrimSpace(in.Title),
		Description:    strings.TrimSpace(in.Description),
		Status:         model.TaskTodo,
		Priority:       in.Priority,
		ProjectID:      project.ID,
		AssignedTo:     in.AssignedTo,
		CreatedBy:      userID,
		DueDate:        in.DueDate,
		EstimatedHours: in.EstimatedHours,
		Tags:           normalizeTags(in.Tags),
		Comments:       []model.Comment{},
	}
	if task.Priority == "" {
		task.Priority = model.PriorityMedium
	}
	if err := validateTask(task); err != nil {
		return nil, err
	}

	if err := s.tasks.CreateTask(ctx, task); err != nil {
		return nil, fmt.Errorf("service/task: creating task: %w", err)
	}
	if err := s.links.projectTask(ctx, project.ID, task.ID, true); err != nil {
		if delErr := s.tasks.DeleteTask(ctx, task.ID); delErr != nil {
			s.logger.Error("failed to roll back task creation",
				slog.String("taskID", task.ID), slog.String("error", delErr.Error()))
		}
		return nil, fmt.Errorf("service/task: linking task to project: %w", err)
	}

	s.logger.Info("task created", slog.String("taskID", task.ID), slog.String("projectID", project.ID))
	return task, nil
}

// List returns tasks of one project when filter.ProjectID is set, otherwise
// tasks across every project the caller owns or collaborates on.
func (s *TaskService) List(ctx context.Context, userID string, filter TaskListFilter) ([]model.Task, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, apperror.ValidationFailed("status", "invalid status")
	}

	q := repository.TaskFilter{Status: filter.Status, AssignedTo: filter.AssignedTo}
	if filter.ProjectID != "" {
		if _, err := s.accessibleProject(ctx, userID, filter.ProjectID); err != nil {
			return nil, err
		}
		q.ProjectIDs = []string{filter.ProjectID}
	} else {
		projects, err := s.projects.ListProjects(ctx, repository.ProjectFilter{Participant: userID})
		if err != nil {
			return nil, err
		}
		if len(projects) == 0 {
			return []model.Task{}, nil
		}
		q.ProjectIDs = make([]string, len(projects))
		for i, p := range projects {
			q.ProjectIDs[i] = p.ID
		}
	}
	return s.tasks.ListTasks(ctx, q)
}

func (s *TaskService) Get(ctx context.Context, userID, taskID string) (*model.Task, error) {
	task, err := s.tasks.GetTaskByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if _, err := s.accessibleProject(ctx, userID, task.ProjectID); err != nil {
		return nil, err
	}
	return task, nil
}

// Update applies patch. Managers of the task may change any field; the
// assignee may only move the status.
func (s *TaskService) Update(ctx context.Context, userID, taskID string, patch TaskPatch) (*model.Task, error) {
	var saved *model.Task
	var statusChanged bool
	err := withRetry(ctx, "task", func(ctx context.Context) error {
		task, err := s.tasks.GetTaskByID(ctx, taskID)
		if err != nil {
			return err
		}
		project, err := s.projects.GetProjectByID(ctx, task.ProjectID)
		if err != nil {
			return err
		}

		switch access.TaskEditFor(task, project, access.ID(userID)) {
		case access.TaskEditNone:
			return apperror.Forbidden("you are not allowed to update this task")
		case access.TaskEditStatus:
			if !patch.statusOnly() {
				return apperror.Forbidden("assignees can only change the task status")
			}
		}

		before := task.Status
		applyTaskPatch(task, patch)
		if err := validateTask(task); err != nil {
			return err
		}
		if err := s.tasks.UpdateTask(ctx, task); err != nil {
			return err
		}
		statusChanged = task.Status != before
		saved = task
		return nil
	})
	if err != nil {
		return nil, err
	}

	if statusChanged {
		if err := s.links.refreshProgress(ctx, saved.ProjectID); err != nil {
			return nil, fmt.Errorf("service/task: refreshing progress: %w", err)
		}
	}
	return saved, nil
}

func applyTaskPatch(t *model.Task, p TaskPatch) {
	if p.Title != nil {
		t.Title = strings.TrimSpace(*p.Title)
	}
	if p.Description != nil {
		t.Description = strings.TrimSpace(*p.Description)
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.AssignedTo != nil {
		t.AssignedTo = *p.AssignedTo
	}
	if p.DueDate != nil {
		t.DueDate = p.DueDate
	}
	if p.EstimatedHours != nil {
		t.EstimatedHours = *p.EstimatedHours
	}
	if p.ActualHours != nil {
		t.ActualHours = *p.ActualHours
	}
	if p.Tags != nil {
		t.Tags = normalizeTags(*p.Tags)
	}
}

func newComment(userID, text string) (model.Comment, error) {
	text = strings.TrimSpace(text)
	if err := requireLength("text", text, 1, MaxCommentLength); err != nil {
		return model.Comment{}, err
	}
	return model.Comment{
		ID:        xid.New().String(),
		UserID:    userID,
		Text:      text,
		CreatedAt: now(),
	}, nil
}

func (s *TaskService) AddComment(ctx context.Context, userID, taskID, text string) (*model.Task, error) {
	comment, err := newComment(userID, text)
	if err != nil {
		return nil, err
	}
	var saved *model.Task
	err = withRetry(ctx, "task", func(ctx context.Context) error {
		task, err := s.tasks.GetTaskByID(ctx, taskID)
		if err != nil {
			return err
		}
		if _, err := s.accessibleProject(ctx, userID, task.ProjectID); err != nil {
			return err
		}
		task.Comments = append(task.Comments, comment)
		if err := s.tasks.UpdateTask(ctx, task); err != nil {
			return err
		}
		saved = task
		return nil
	})
	return saved, err
}

// Delete removes the task, then drops it from the project's task list and
// recomputes progress. The unlink is idempotent so a retry converges.
func (s *TaskService) Delete(ctx context.Context, userID, taskID string) error {
	task, err := s.tasks.GetTaskByID(ctx, taskID)
	if err != nil {
		return err
	}
	project, err := s.projects.GetProjectByID(ctx, task.ProjectID)
	if err != nil && !isNotFound(err) {
		return err
	}
	if project == nil {
		// Orphaned task: only its creator may clean it up.
		if !access.Same(task.CreatedBy, userID) {
			return apperror.Forbidden("you are not allowed to delete this task")
		}
		return s.tasks.DeleteTask(ctx, task.ID)
	}
	if !access.CanDeleteTask(task, project, access.ID(userID)) {
		return apperror.Forbidden("only the task creator or project owner can delete this task")
	}

	if err := s.tasks.DeleteTask(ctx, task.ID); err != nil {
		return fmt.Errorf("service/task: deleting task: %w", err)
	}
	if err := s.links.projectTask(ctx, project.ID, task.ID, false); err != nil {
		return fmt.Errorf("service/task: unlinking task from project: %w", err)
	}

	s.logger.Info("task deleted", slog.String("taskID", task.ID), slog.String("projectID", project.ID))
	return nil
}

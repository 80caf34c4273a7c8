// Package repository declares the storage contracts used by the service layer.
//
// Two backends implement every interface here: repository/sqlite (embedded,
// the default) and repository/mongostore. Both store each aggregate as one document
// and both honour the same error contract:
//
//   - a missing document        → *apperror.AppError wrapping apperror.ErrNotFound
//   - a unique index violation  → Duplicate(key), wrapping apperror.ErrConflict
//   - a stale Update            → ErrStale (the caller reloads and retries)
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sakif/hackhub/internal/apperror"
	"github.com/sakif/hackhub/internal/model"
)

// ErrStale is returned by Update when the stored document's version no longer
// matches the version the caller loaded. It never reaches HTTP clients.
var ErrStale = errors.New("repository: document was modified concurrently")

// Unique keys reported by Duplicate.
const (
	KeyEmail      = "email"
	KeyGitHubID   = "githubId"
	KeyInviteCode = "inviteCode"
	KeyProject    = "project"
	KeyJudgeCode  = "judgeCode"
)

// Duplicate builds the conflict error for a unique index violation on key.
func Duplicate(key string) *apperror.AppError {
	return &apperror.AppError{
		Err:     apperror.ErrConflict,
		Message: fmt.Sprintf("%s already exists", key),
		Field:   key,
	}
}

// IsDuplicate reports whether err is a unique violation on key.
func IsDuplicate(err error, key string) bool {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		return false
	}
	return errors.Is(appErr.Err, apperror.ErrConflict) && appErr.Field == key
}

type ListOptions struct {
	Limit  int
	Offset int
}

// =========================================================================
// USERS
// =========================================================================

type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUsersByIDs(ctx context.Context, ids []string) ([]model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByGitHubID(ctx context.Context, githubID int64) (*model.User, error)
	GetUserByResetToken(ctx context.Context, token string, now time.Time) (*model.User, error)
	// SearchUsers matches name or email (case-insensitive substring) and
	// skips the ids in exclude.
	SearchUsers(ctx context.Context, query string, exclude []string, limit int) ([]model.User, error)
	UpdateUser(ctx context.Context, user *model.User) error
}

// =========================================================================
// TEAMS
// =========================================================================

type TeamRepository interface {
	CreateTeam(ctx context.Context, team *model.Team) error
	GetTeamByID(ctx context.Context, id string) (*model.Team, error)
	GetTeamByInviteCode(ctx context.Context, code string) (*model.Team, error)
	// ListTeamsByMember returns the teams whose members list contains userID,
	// newest first.
	ListTeamsByMember(ctx context.Context, userID string) ([]model.Team, error)
	SearchTeams(ctx context.Context, query string, limit int) ([]model.Team, error)
	UpdateTeam(ctx context.Context, team *model.Team) error
	DeleteTeam(ctx context.Context, id string) error
}

// =========================================================================
// PROJECTS
// =========================================================================

// ProjectFilter narrows ListProjects. Empty fields do not filter.
type ProjectFilter struct {
	TeamID string
	Status model.ProjectStatus
	// Participant keeps projects owned by, or shared with, this user.
	Participant string
	IDs         []string
}

// ShowcaseQuery selects public projects for the gallery.
type ShowcaseQuery struct {
	Category model.Category
	Search   string // case-insensitive substring of title, description or tags
	Sort     string // "recent", "popular" or "views"
	ListOptions
}

// ShowcaseStats aggregates the public gallery.
type ShowcaseStats struct {
	TotalProjects int            `json:"totalProjects"`
	TotalViews    int            `json:"totalViews"`
	TotalLikes    int            `json:"totalLikes"`
	Categories    map[string]int `json:"categories"`
}

type ProjectRepository interface {
	CreateProject(ctx context.Context, project *model.Project) error
	GetProjectByID(ctx context.Context, id string) (*model.Project, error)
	ListProjects(ctx context.Context, filter ProjectFilter) ([]model.Project, error)
	// ListShowcase returns one page of public projects plus the total count.
	ListShowcase(ctx context.Context, q ShowcaseQuery) ([]model.Project, int, error)
	ShowcaseStats(ctx context.Context) (*ShowcaseStats, error)
	UpdateProject(ctx context.Context, project *model.Project) error
	DeleteProject(ctx context.Context, id string) error
}

// =========================================================================
// TASKS
// =========================================================================

type TaskFilter struct {
	ProjectIDs []string
	Status     model.TaskStatus
	AssignedTo string
}

type TaskRepository interface {
	CreateTask(ctx context.Context, task *model.Task) error
	GetTaskByID(ctx context.Context, id string) (*model.Task, error)
	ListTasks(ctx context.Context, filter TaskFilter) ([]model.Task, error)
	UpdateTask(ctx context.Context, task *model.Task) error
	DeleteTask(ctx context.Context, id string) error
	DeleteTasksByProject(ctx context.Context, projectID string) error
}

// =========================================================================
// SUBMISSIONS
// =========================================================================

type SubmissionRepository interface {
	// CreateSubmission fails with Duplicate(KeyProject) when the project
	// already has a submission.
	CreateSubmission(ctx context.Context, sub *model.Submission) error
	GetSubmissionByID(ctx context.Context, id string) (*model.Submission, error)
	GetSubmissionByProject(ctx context.Context, projectID string) (*model.Submission, error)
	// ListSubmissions returns every submission, oldest first.
	ListSubmissions(ctx context.Context) ([]model.Submission, error)
	// ListScoredSubmissions returns submissions holding at least one score,
	// optionally restricted to one status.
	ListScoredSubmissions(ctx context.Context, status model.SubmissionStatus) ([]model.Submission, error)
	// FirstSubmission returns the earliest stored submission, or NotFound
	// when there is none.
	FirstSubmission(ctx context.Context) (*model.Submission, error)
	UpdateSubmission(ctx context.Context, sub *model.Submission) error
	// DeleteSubmission exists for compensation when a submission cannot be
	// linked to its project.
	DeleteSubmission(ctx context.Context, id string) error
}

// =========================================================================
// JUDGES
// =========================================================================

type JudgeRepository interface {
	CreateJudge(ctx context.Context, judge *model.Judge) error
	GetJudgeByID(ctx context.Context, id string) (*model.Judge, error)
	GetJudgeByEmail(ctx context.Context, email string) (*model.Judge, error)
	CountActiveJudges(ctx context.Context) (int, error)
	UpdateJudge(ctx context.Context, judge *model.Judge) error
}

// Store bundles every repository plus lifecycle hooks. Both backends
// implement it, and main only needs to pick one.
type Store interface {
	UserRepository
	TeamRepository
	ProjectRepository
	TaskRepository
	SubmissionRepository
	JudgeRepository
	Ping(ctx context.Context) error
	Close() error
}

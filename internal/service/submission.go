package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/hackhub/internal/access"
	"github.com/sakif/hackhub/internal/apperror"
	"github.com/sakif/hackhub/internal/metrics"
	"github.com/sakif/hackhub/internal/model"
	"github.com/sakif/hackhub/internal/repository"
	"github.com/sakif/hackhub/internal/scoring"
)

const MaxSubmissionDescriptionLength = 1000

type SubmissionService struct {
	users       repository.UserRepository
	teams       repository.TeamRepository
	projects    repository.ProjectRepository
	submissions repository.SubmissionRepository
	judges      repository.JudgeRepository
	logger      *slog.Logger
}

func NewSubmissionService(
	users repository.UserRepository,
	teams repository.TeamRepository,
	projects repository.ProjectRepository,
	submissions repository.SubmissionRepository,
	judges repository.JudgeRepository,
	logger *slog.Logger,
) *SubmissionService {
	return &SubmissionService{
		users:       users,
		teams:       teams,
		projects:    projects,
		submissions: submissions,
		judges:      judges,
		logger:      logger,
	}
}

type SubmitInput struct {
	ProjectID   string   `json:"projectId"`
	LiveLink    string   `json:"liveLink"`
	GitHubLink  string   `json:"githubLink"`
	Description string   `json:"description"`
	TechStack   []string `json:"techStack"`
}

// ProjectRef and TeamRef are the parts of a project and team shown next to
// a submission.
type ProjectRef struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Category    model.Category `json:"category"`
	Tags        []string       `json:"tags"`
}

type TeamRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SubmissionView is a submission with its project, team and submitter
// resolved. References that no longer exist stay nil.
type SubmissionView struct {
	model.Submission
	Project   *ProjectRef        `json:"projectInfo,omitempty"`
	Team      *TeamRef           `json:"teamInfo,omitempty"`
	Submitter *model.UserSummary `json:"submitter,omitempty"`
}

type LeaderboardEntry struct {
	SubmissionView
	Rank int `json:"rank"`
}

// Submit files a project for judging on behalf of its team owner.
func (s *SubmissionService) Submit(ctx context.Context, userID string, in SubmitInput) (*model.Submission, error) {
	in.LiveLink = strings.TrimSpace(in.LiveLink)
	in.GitHubLink = strings.TrimSpace(in.GitHubLink)
	switch {
	case in.ProjectID == "":
		return nil, apperror.ValidationFailed("projectId", "project is required")
	case in.LiveLink == "":
		return nil, apperror.ValidationFailed("liveLink", "live link is required")
	case in.GitHubLink == "":
		return nil, apperror.ValidationFailed("githubLink", "GitHub link is required")
	}
	if err := requireMax("description", in.Description, MaxSubmissionDescriptionLength); err != nil {
		return nil, err
	}

	project, err := s.projects.GetProjectByID(ctx, in.ProjectID)
	if err != nil {
		return nil, err
	}
	team, err := teamOf(ctx, s.teams, project)
	if err != nil {
		return nil, err
	}
	if !access.IsTeamOwner(team, access.ID(userID)) {
		return nil, apperror.Forbidden("only the team owner can submit the project")
	}

	if _, err := s.submissions.GetSubmissionByProject(ctx, project.ID); err == nil {
		return nil, apperror.ConflictMessage("project already submitted")
	} else if !isNotFound(err) {
		return nil, err
	}

	active, err := s.judges.CountActiveJudges(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/submission: counting judges: %w", err)
	}

	techStack := make([]string, 0, len(in.TechStack))
	for _, t := range in.TechStack {
		if t = strings.TrimSpace(t); t != "" {
			techStack = append(techStack, t)
		}
	}

	sub := &model.Submission{
		ProjectID:      project.ID,
		TeamID:         team.ID,
		SubmittedBy:    userID,
		LiveLink:       in.LiveLink,
		GitHubLink:     in.GitHubLink,
		Description:    strings.TrimSpace(in.Description),
		TechStack:      techStack,
		Status:         model.StatusSubmitted,
		Scores:         []model.Score{},
		Badges:         []model.Badge{},
		RequiredJudges: active,
	}
	if err := s.submissions.CreateSubmission(ctx, sub); err != nil {
		if repository.IsDuplicate(err, repository.KeyProject) {
			return nil, apperror.ConflictMessage("project already submitted")
		}
		return nil, fmt.Errorf("service/submission: creating submission: %w", err)
	}

	if err := s.markSubmitted(ctx, project.ID, sub); err != nil {
		if delErr := s.submissions.DeleteSubmission(ctx, sub.ID); delErr != nil {
			s.logger.Error("failed to roll back submission",
				slog.String("submissionID", sub.ID), slog.String("error", delErr.Error()))
		}
		metrics.Event("project_submitted", err)
		return nil, fmt.Errorf("service/submission: marking project submitted: %w", err)
	}

	if err := s.awardFirstRiser(ctx, sub); err != nil {
		// The submission stands; the badge can still be awarded by a judge.
		s.logger.Error("failed to award first-riser badge",
			slog.String("submissionID", sub.ID), slog.String("error", err.Error()))
	}

	s.logger.Info("project submitted",
		slog.String("submissionID", sub.ID),
		slog.String("projectID", project.ID),
		slog.Int("requiredJudges", sub.RequiredJudges))
	metrics.Event("project_submitted", nil)
	return sub, nil
}

func (s *SubmissionService) markSubmitted(ctx context.Context, projectID string, sub *model.Submission) error {
	return withRetry(ctx, "project", func(ctx context.Context) error {
		project, err := s.projects.GetProjectByID(ctx, projectID)
		if err != nil {
			return err
		}
		project.IsSubmitted = true
		project.SubmissionID = sub.ID
		project.Links.LiveDemo = sub.LiveLink
		project.Links.Repository = sub.GitHubLink
		return s.projects.UpdateProject(ctx, project)
	})
}

// awardFirstRiser gives the badge to sub when it is the earliest submission.
//
// Asking "am I the earliest?" instead of "am I the only one?" keeps the
// badge from getting lost when the first two submissions arrive together:
// both would count two rows and skip it, while both agree on which of them
// is the earliest.
func (s *SubmissionService) awardFirstRiser(ctx context.Context, sub *model.Submission) error {
	first, err := s.submissions.FirstSubmission(ctx)
	if err != nil || first.ID != sub.ID {
		return err
	}
	badge, err := scoring.NewBadge(model.BadgeFirstRiser, "", "", "", now())
	if err != nil {
		return err
	}
	return withRetry(ctx, "submission", func(ctx context.Context) error {
		current, err := s.submissions.GetSubmissionByID(ctx, sub.ID)
		if err != nil {
			return err
		}
		if scoring.HasBadge(current, badge.Type) {
			*sub = *current
			return nil
		}
		if err := scoring.AwardBadge(current, badge); err != nil {
			return err
		}
		if err := s.submissions.UpdateSubmission(ctx, current); err != nil {
			return err
		}
		*sub = *current
		return nil
	})
}

// Leaderboard ranks scored submissions; see scoring.Leaderboard.
func (s *SubmissionService) Leaderboard(ctx context.Context) ([]LeaderboardEntry, error) {
	subs, err := s.submissions.ListScoredSubmissions(ctx, "")
	if err != nil {
		return nil, err
	}
	ranked := scoring.Leaderboard(subs)

	plain := make([]model.Submission, len(ranked))
	for i, e := range ranked {
		plain[i] = e.Submission
	}
	views, err := s.populate(ctx, plain)
	if err != nil {
		return nil, err
	}

	entries := make([]LeaderboardEntry, len(ranked))
	for i, e := range ranked {
		entries[i] = LeaderboardEntry{SubmissionView: views[i], Rank: e.Rank}
	}
	return entries, nil
}

// List returns every submission, first submitted first, for judges.
func (s *SubmissionService) List(ctx context.Context) ([]SubmissionView, error) {
	subs, err := s.submissions.ListSubmissions(ctx)
	if err != nil {
		return nil, err
	}
	return s.populate(ctx, subs)
}

func (s *SubmissionService) populate(ctx context.Context, subs []model.Submission) ([]SubmissionView, error) {
	views := make([]SubmissionView, len(subs))
	if len(subs) == 0 {
		return views, nil
	}

	projectIDs := make([]string, 0, len(subs))
	userIDs := make([]string, 0, len(subs))
	for _, sub := range subs {
		projectIDs, _ = appendUnique(projectIDs, sub.ProjectID)
		userIDs, _ = appendUnique(userIDs, sub.SubmittedBy)
	}

	projects, err := s.projects.ListProjects(ctx, repository.ProjectFilter{IDs: projectIDs})
	if err != nil {
		return nil, fmt.Errorf("service/submission: loading projects: %w", err)
	}
	projectByID := make(map[string]*ProjectRef, len(projects))
	for _, p := range projects {
		projectByID[p.ID] = &ProjectRef{
			ID: p.ID, Title: p.Title, Description: p.Description,
			Category: p.Category, Tags: p.Tags,
		}
	}

	users, err := s.users.GetUsersByIDs(ctx, userIDs)
	if err != nil {
		return nil, fmt.Errorf("service/submission: loading submitters: %w", err)
	}
	userByID := make(map[string]*model.UserSummary, len(users))
	for _, u := range users {
		summary := u.Summary()
		userByID[u.ID] = &summary
	}

	teamByID := make(map[string]*TeamRef)
	for i, sub := range subs {
		ref, seen := teamByID[sub.TeamID]
		if !seen {
			team, err := s.teams.GetTeamByID(ctx, sub.TeamID)
			switch {
			case err == nil:
				ref = &TeamRef{ID: team.ID, Name: team.Name}
			case !isNotFound(err):
				return nil, fmt.Errorf("service/submission: loading team %s: %w", sub.TeamID, err)
			}
			teamByID[sub.TeamID] = ref
		}
		views[i] = SubmissionView{
			Submission: sub,
			Project:    projectByID[sub.ProjectID],
			Team:       ref,
			Submitter:  userByID[sub.SubmittedBy],
		}
	}
	return views, nil
}

package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sakif/hackhub/internal/access"
	"github.com/sakif/hackhub/internal/apperror"
	"github.com/sakif/hackhub/internal/invite"
	"github.com/sakif/hackhub/internal/metrics"
	"github.com/sakif/hackhub/internal/model"
	"github.com/sakif/hackhub/internal/repository"
)

const (
	MaxDescriptionLength = 500
	MinSearchLength      = 2
	UserSearchLimit      = 10
	TeamSearchLimit      = 20
)

// TeamService manages teams, their members and invite codes.
type TeamService struct {
	users    repository.UserRepository
	teams    repository.TeamRepository
	projects repository.ProjectRepository
	issuer   *invite.Issuer
	links    *links
	logger   *slog.Logger
}

func NewTeamService(
	users repository.UserRepository,
	teams repository.TeamRepository,
	projects repository.ProjectRepository,
	tasks repository.TaskRepository,
	issuer *invite.Issuer,
	logger *slog.Logger,
) *TeamService {
	return &TeamService{
		users:    users,
		teams:    teams,
		projects: projects,
		issuer:   issuer,
		links:    &links{users: users, teams: teams, projects: projects, tasks: tasks},
		logger:   logger,
	}
}

type TeamInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// TeamPatch is a partial update; nil fields are left unchanged.
type TeamPatch struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

// MemberView is a member entry joined with the member's public profile.
type MemberView struct {
	UserID   string             `json:"userId"`
	Role     model.Role         `json:"role"`
	JoinedAt time.Time          `json:"joinedAt"`
	User     *model.UserSummary `json:"user,omitempty"`
}

type TeamStats struct {
	TotalProjects     int `json:"totalProjects"`
	CompletedProjects int `json:"completedProjects"`
	TotalMembers      int `json:"totalMembers"`
}

// TeamView is the detailed team returned to members.
type TeamView struct {
	model.Team
	Members []MemberView `json:"members"`
	Stats   TeamStats    `json:"stats"`
}

// TeamSearchResult annotates a team with the caller's relationship to it.
type TeamSearchResult struct {
	model.Team
	IsMember   bool       `json:"isMember"`
	MemberRole model.Role `json:"memberRole,omitempty"`
}

func validateTeamFields(name, description string) error {
	if err := requireLength("name", name, MinNameLength, MaxNameLength); err != nil {
		return err
	}
	return requireMax("description", description, MaxDescriptionLength)
}

// Create makes userID the owner of a new team with a fresh invite code.
func (s *TeamService) Create(ctx context.Context, userID string, in TeamInput) (*model.Team, error) {
	name := strings.TrimSpace(in.Name)
	description := strings.TrimSpace(in.Description)
	if err := validateTeamFields(name, description); err != nil {
		return nil, err
	}
	if _, err := s.users.GetUserByID(ctx, userID); err != nil {
		return nil, err
	}

	team := &model.Team{
		Name:        name,
		Description: description,
		Owner:       userID,
		Members:     []model.Member{{UserID: userID, Role: model.RoleOwner, JoinedAt: now()}},
		Projects:    []string{},
	}
	_, err := s.issuer.Assign(ctx, func(ctx context.Context, code string) error {
		team.InviteCode = code
		return s.teams.CreateTeam(ctx, team)
	})
	if err != nil {
		metrics.Event("team_created", err)
		return nil, fmt.Errorf("service/team: creating team: %w", err)
	}

	if err := s.links.userTeam(ctx, userID, team.ID, true); err != nil {
		if delErr := s.teams.DeleteTeam(ctx, team.ID); delErr != nil {
			s.logger.Error("failed to roll back team creation",
				slog.String("teamID", team.ID), slog.String("error", delErr.Error()))
		}
		metrics.Event("team_created", err)
		return nil, fmt.Errorf("service/team: linking owner: %w", err)
	}

	s.logger.Info("team created", slog.String("teamID", team.ID), slog.String("owner", userID))
	metrics.Event("team_created", nil)
	return team, nil
}

func (s *TeamService) List(ctx context.Context, userID string) ([]model.Team, error) {
	return s.teams.ListTeamsByMember(ctx, userID)
}

// Get returns the team with member profiles and project stats. Only members
// may see it.
func (s *TeamService) Get(ctx context.Context, userID, teamID string) (*TeamView, error) {
	team, err := s.teams.GetTeamByID(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if !access.IsMember(team, access.ID(userID)) {
		return nil, apperror.Forbidden("you are not a member of this team")
	}

	ids := make([]string, len(team.Members))
	for i, m := range team.Members {
		ids[i] = m.UserID
	}
	users, err := s.users.GetUsersByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("service/team: loading members: %w", err)
	}
	profiles := make(map[string]model.UserSummary, len(users))
	for i := range users {
		profiles[users[i].ID] = users[i].Summary()
	}

	view := &TeamView{Team: *team, Members: make([]MemberView, 0, len(team.Members))}
	for _, m := range team.Members {
		mv := MemberView{UserID: m.UserID, Role: m.Role, JoinedAt: m.JoinedAt}
		if p, ok := profiles[m.UserID]; ok {
			mv.User = &p
		}
		view.Members = append(view.Members, mv)
	}

	projects, err := s.projects.ListProjects(ctx, repository.ProjectFilter{TeamID: team.ID})
	if err != nil {
		return nil, fmt.Errorf("service/team: loading projects: %w", err)
	}
	view.Stats.TotalProjects = len(projects)
	view.Stats.TotalMembers = len(team.Members)
	for _, p := range projects {
		if p.Status == model.ProjectCompleted {
			view.Stats.CompletedProjects++
		}
	}
	return view, nil
}

// mutate loads the team, requires owner or admin, applies fn and saves.
func (s *TeamService) mutate(ctx context.Context, userID, teamID string, fn func(team *model.Team) error) (*model.Team, error) {
	var saved *model.Team
	err := withRetry(ctx, "team", func(ctx context.Context) error {
		team, err := s.teams.GetTeamByID(ctx, teamID)
		if err != nil {
			return err
		}
		if !access.CanManageTeam(team, access.ID(userID)) {
			return apperror.Forbidden("only team owners and admins can do this")
		}
		if err := fn(team); err != nil {
			return err
		}
		if err := s.teams.UpdateTeam(ctx, team); err != nil {
			return err
		}
		saved = team
		return nil
	})
	return saved, err
}

func (s *TeamService) Update(ctx context.Context, userID, teamID string, patch TeamPatch) (*model.Team, error) {
	return s.mutate(ctx, userID, teamID, func(team *model.Team) error {
		name, description := team.Name, team.Description
		if patch.Name != nil {
			name = strings.TrimSpace(*patch.Name)
		}
		if patch.Description != nil {
			description = strings.TrimSpace(*patch.Description)
		}
		if err := validateTeamFields(name, description); err != nil {
			return err
		}
		team.Name, team.Description = name, description
		return nil
	})
}

// RegenerateCode replaces the invite code; the old one stops working.
func (s *TeamService) RegenerateCode(ctx context.Context, userID, teamID string) (string, error) {
	var code string
	err := withRetry(ctx, "team", func(ctx context.Context) error {
		team, err := s.teams.GetTeamByID(ctx, teamID)
		if err != nil {
			return err
		}
		if !access.CanManageTeam(team, access.ID(userID)) {
			return apperror.Forbidden("only team owners and admins can regenerate the invite code")
		}
		code, err = s.issuer.Assign(ctx, func(ctx context.Context, candidate string) error {
			team.InviteCode = candidate
			return s.teams.UpdateTeam(ctx, team)
		})
		return err
	})
	if err != nil {
		return "", err
	}
	s.logger.Info("invite code regenerated", slog.String("teamID", teamID))
	return code, nil
}

// Join adds userID as a member of the team holding code.
func (s *TeamService) Join(ctx context.Context, userID, code string) (*model.Team, error) {
	found, err := s.teams.GetTeamByInviteCode(ctx, invite.Normalize(code))
	if err != nil {
		return nil, err
	}
	team, err := s.addMember(ctx, found.ID, userID, model.RoleMember, "you are already a member of this team", nil)
	if err != nil {
		return nil, err
	}
	s.logger.Info("user joined team", slog.String("teamID", team.ID), slog.String("userID", userID))
	metrics.Event("team_joined", nil)
	return team, nil
}

// AddMember lets an owner or admin add an existing user directly.
func (s *TeamService) AddMember(ctx context.Context, userID, teamID, targetID string, role model.Role) (*model.Team, error) {
	if role == "" {
		role = model.RoleMember
	}
	if role != model.RoleAdmin && role != model.RoleMember {
		return nil, apperror.ValidationFailed("role", "role must be admin or member")
	}
	if _, err := s.users.GetUserByID(ctx, targetID); err != nil {
		return nil, err
	}
	return s.addMember(ctx, teamID, targetID, role, "user is already a member of this team", access.ID(userID))
}

// addMember appends the member and then links the team on the user. If the
// user side cannot be written the member entry is removed again.
func (s *TeamService) addMember(ctx context.Context, teamID, targetID string, role model.Role, dupMessage string, manager access.Subject) (*model.Team, error) {
	var saved *model.Team
	err := withRetry(ctx, "team", func(ctx context.Context) error {
		team, err := s.teams.GetTeamByID(ctx, teamID)
		if err != nil {
			return err
		}
		if manager != nil && !access.CanManageTeam(team, manager) {
			return apperror.Forbidden("only team owners and admins can add members")
		}
		if access.IsMember(team, access.ID(targetID)) {
			return apperror.ConflictMessage(dupMessage)
		}
		team.Members = append(team.Members, model.Member{UserID: targetID, Role: role, JoinedAt: now()})
		if err := s.teams.UpdateTeam(ctx, team); err != nil {
			return err
		}
		saved = team
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.links.userTeam(ctx, targetID, teamID, true); err != nil {
		if undoErr := s.dropMember(ctx, teamID, targetID); undoErr != nil {
			s.logger.Error("failed to roll back member addition",
				slog.String("teamID", teamID), slog.String("userID", targetID),
				slog.String("error", undoErr.Error()))
		}
		return nil, fmt.Errorf("service/team: linking member: %w", err)
	}
	return saved, nil
}

func (s *TeamService) dropMember(ctx context.Context, teamID, targetID string) error {
	return withRetry(ctx, "team", func(ctx context.Context) error {
		team, err := s.teams.GetTeamByID(ctx, teamID)
		if err != nil {
			return err
		}
		kept := team.Members[:0:0]
		for _, m := range team.Members {
			if !access.Same(m.UserID, targetID) {
				kept = append(kept, m)
			}
		}
		if len(kept) == len(team.Members) {
			return nil
		}
		team.Members = kept
		return s.teams.UpdateTeam(ctx, team)
	})
}

// RemoveMember removes targetID. Managers cannot remove themselves and
// nobody can remove the owner.
func (s *TeamService) RemoveMember(ctx context.Context, userID, teamID, targetID string) (*model.Team, error) {
	if access.Same(userID, targetID) {
		return nil, apperror.ValidationFailed("userId", "you cannot remove yourself from the team")
	}

	var removed model.Member
	team, err := s.mutate(ctx, userID, teamID, func(team *model.Team) error {
		if access.Same(team.Owner, targetID) || access.IsTeamOwner(team, access.ID(targetID)) {
			return apperror.Forbidden("the team owner cannot be removed")
		}
		kept := team.Members[:0:0]
		found := false
		for _, m := range team.Members {
			if access.Same(m.UserID, targetID) {
				removed, found = m, true
				continue
			}
			kept = append(kept, m)
		}
		if !found {
			return apperror.ValidationFailed("userId", "user is not a member of this team")
		}
		team.Members = kept
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.links.userTeam(ctx, targetID, teamID, false); err != nil {
		undoErr := withRetry(ctx, "team", func(ctx context.Context) error {
			t, err := s.teams.GetTeamByID(ctx, teamID)
			if err != nil {
				return err
			}
			if access.IsMember(t, access.ID(targetID)) {
				return nil
			}
			t.Members = append(t.Members, removed)
			return s.teams.UpdateTeam(ctx, t)
		})
		if undoErr != nil {
			s.logger.Error("failed to roll back member removal",
				slog.String("teamID", teamID), slog.String("userID", targetID),
				slog.String("error", undoErr.Error()))
		}
		return nil, fmt.Errorf("service/team: unlinking member: %w", err)
	}

	s.logger.Info("member removed", slog.String("teamID", teamID), slog.String("userID", targetID))
	return team, nil
}

// Delete removes a team without projects and forgets it on every member.
func (s *TeamService) Delete(ctx context.Context, userID, teamID string) error {
	team, err := s.teams.GetTeamByID(ctx, teamID)
	if err != nil {
		return err
	}
	if !access.IsTeamOwner(team, access.ID(userID)) {
		return apperror.Forbidden("only the team owner can delete the team")
	}
	if len(team.Projects) > 0 {
		return apperror.ConflictMessage("cannot delete a team that still has projects")
	}

	if err := s.teams.DeleteTeam(ctx, teamID); err != nil {
		return err
	}
	for _, m := range team.Members {
		if err := s.links.userTeam(ctx, m.UserID, teamID, false); err != nil && !isNotFound(err) {
			s.logger.Error("failed to unlink deleted team from member",
				slog.String("teamID", teamID), slog.String("userID", m.UserID),
				slog.String("error", err.Error()))
		}
	}
	s.logger.Info("team deleted", slog.String("teamID", teamID))
	return nil
}

// SearchUsers finds users to invite. With teamID the team's current members
// are excluded, and the caller must belong to that team.
func (s *TeamService) SearchUsers(ctx context.Context, userID, query, teamID string) ([]model.UserSummary, error) {
	query = strings.TrimSpace(query)
	if len([]rune(query)) < MinSearchLength {
		return nil, apperror.ValidationFailed("q", "search query must be at least 2 characters")
	}

	exclude := []string{userID}
	if teamID != "" {
		team, err := s.teams.GetTeamByID(ctx, teamID)
		if err != nil {
			return nil, err
		}
		if !access.IsMember(team, access.ID(userID)) {
			return nil, apperror.Forbidden("you are not a member of this team")
		}
		for _, m := range team.Members {
			exclude = append(exclude, m.UserID)
		}
	}

	users, err := s.users.SearchUsers(ctx, query, exclude, UserSearchLimit)
	if err != nil {
		return nil, fmt.Errorf("service/team: searching users: %w", err)
	}
	out := make([]model.UserSummary, len(users))
	for i := range users {
		out[i] = users[i].Summary()
	}
	return out, nil
}

// SearchTeams lists teams by name or description. Invite codes are only
// shown to members.
func (s *TeamService) SearchTeams(ctx context.Context, userID, query string) ([]TeamSearchResult, error) {
	query = strings.TrimSpace(query)
	if len([]rune(query)) < MinSearchLength {
		return nil, apperror.ValidationFailed("q", "search query must be at least 2 characters")
	}

	teams, err := s.teams.SearchTeams(ctx, query, TeamSearchLimit)
	if err != nil {
		return nil, fmt.Errorf("service/team: searching teams: %w", err)
	}
	out := make([]TeamSearchResult, len(teams))
	for i, t := range teams {
		role, ok := access.RoleOf(&teams[i], access.ID(userID))
		if !ok {
			t.InviteCode = ""
		}
		out[i] = TeamSearchResult{Team: t, IsMember: ok, MemberRole: role}
	}
	return out, nil
}

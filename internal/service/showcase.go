package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/sakif/hackhub/internal/access"
	"github.com/sakif/hackhub/internal/apperror"
	"github.com/sakif/hackhub/internal/model"
	"github.com/sakif/hackhub/internal/repository"
)

const (
	DefaultShowcaseLimit = 12
	MaxShowcaseLimit     = 50
)

// ShowcaseService serves the public project gallery.
type ShowcaseService struct {
	projects repository.ProjectRepository
	logger   *slog.Logger
}

func NewShowcaseService(projects repository.ProjectRepository, logger *slog.Logger) *ShowcaseService {
	return &ShowcaseService{projects: projects, logger: logger}
}

type ShowcaseParams struct {
	Page     int
	Limit    int
	Category model.Category
	Search   string
	Sort     string
}

type ShowcaseItem struct {
	model.Project
	LikeCount    int  `json:"likeCount"`
	CommentCount int  `json:"commentCount"`
	UserLiked    bool `json:"userLiked"`
}

type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

type ShowcasePage struct {
	Projects   []ShowcaseItem `json:"projects"`
	Pagination Pagination     `json:"pagination"`
}

type LikeResult struct {
	Liked     bool `json:"liked"`
	LikeCount int  `json:"likeCount"`
}

func showcaseItem(p model.Project, userID string) ShowcaseItem {
	return ShowcaseItem{
		Project:      p,
		LikeCount:    len(p.Showcase.Likes),
		CommentCount: len(p.Showcase.Comments),
		UserLiked:    userID != "" && p.Showcase.LikedBy(userID),
	}
}

// List returns one page of public projects. userID may be empty for
// anonymous visitors.
func (s *ShowcaseService) List(ctx context.Context, userID string, params ShowcaseParams) (*ShowcasePage, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.Limit < 1 {
		params.Limit = DefaultShowcaseLimit
	}
	params.Limit = min(params.Limit, MaxShowcaseLimit)
	if params.Category != "" && !params.Category.Valid() {
		return nil, apperror.ValidationFailed("category", "invalid category")
	}
	switch params.Sort {
	case "":
		params.Sort = "recent"
	case "recent", "popular", "views":
	default:
		return nil, apperror.ValidationFailed("sort", "sort must be one of recent, popular, views")
	}

	projects, total, err := s.projects.ListShowcase(ctx, repository.ShowcaseQuery{
		Category: params.Category,
		Search:   strings.TrimSpace(params.Search),
		Sort:     params.Sort,
		ListOptions: repository.ListOptions{
			Limit:  params.Limit,
			Offset: (params.Page - 1) * params.Limit,
		},
	})
	if err != nil {
		return nil, err
	}

	items := make([]ShowcaseItem, len(projects))
	for i, p := range projects {
		items[i] = showcaseItem(p, userID)
	}
	return &ShowcasePage{
		Projects: items,
		Pagination: Pagination{
			Page:       params.Page,
			Limit:      params.Limit,
			Total:      total,
			TotalPages: (total + params.Limit - 1) / params.Limit,
		},
	}, nil
}

func (s *ShowcaseService) Stats(ctx context.Context) (*repository.ShowcaseStats, error) {
	return s.projects.ShowcaseStats(ctx)
}

// publicProject loads a project that is on the showcase. Private projects
// are reported as missing.
func (s *ShowcaseService) publicProject(ctx context.Context, projectID string) (*model.Project, error) {
	project, err := s.projects.GetProjectByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if !project.Showcase.IsPublic {
		return nil, apperror.NotFound("project", projectID)
	}
	return project, nil
}

// Get returns a public project and counts a view unless the visitor works
// on it.
func (s *ShowcaseService) Get(ctx context.Context, userID, projectID string) (*ShowcaseItem, error) {
	var saved *model.Project
	err := withRetry(ctx, "project", func(ctx context.Context) error {
		project, err := s.publicProject(ctx, projectID)
		if err != nil {
			return err
		}
		saved = project
		if userID != "" && access.CanEditProject(project, access.ID(userID)) {
			return nil
		}
		project.Showcase.Views++
		return s.projects.UpdateProject(ctx, project)
	})
	if err != nil {
		return nil, err
	}
	item := showcaseItem(*saved, userID)
	return &item, nil
}

// ToggleLike adds the caller's like, or removes it when already present.
func (s *ShowcaseService) ToggleLike(ctx context.Context, userID, projectID string) (*LikeResult, error) {
	var result LikeResult
	err := withRetry(ctx, "project", func(ctx context.Context) error {
		project, err := s.publicProject(ctx, projectID)
		if err != nil {
			return err
		}
		likes := project.Showcase.Likes[:0:0]
		liked := true
		for _, l := range project.Showcase.Likes {
			if access.Same(l.UserID, userID) {
				liked = false
				continue
			}
			likes = append(likes, l)
		}
		if liked {
			likes = append(likes, model.Like{UserID: userID, CreatedAt: now()})
		}
		project.Showcase.Likes = likes
		if err := s.projects.UpdateProject(ctx, project); err != nil {
			return err
		}
		result = LikeResult{Liked: liked, LikeCount: len(likes)}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *ShowcaseService) AddComment(ctx context.Context, userID, projectID, text string) (*model.Comment, error) {
	comment, err := newComment(userID, text)
	if err != nil {
		return nil, err
	}
	err = withRetry(ctx, "project", func(ctx context.Context) error {
		project, err := s.publicProject(ctx, projectID)
		if err != nil {
			return err
		}
		project.Showcase.Comments = append(project.Showcase.Comments, comment)
		return s.projects.UpdateProject(ctx, project)
	})
	if err != nil {
		return nil, err
	}
	return &comment, nil
}

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/sakif/hackhub/internal/apperror"
	"github.com/sakif/hackhub/internal/auth"
	"github.com/sakif/hackhub/internal/metrics"
	"github.com/sakif/hackhub/internal/model"
	"github.com/sakif/hackhub/internal/repository"
	"github.com/sakif/hackhub/internal/scoring"
)

type JudgeConfig struct {
	TokenTTL time.Duration
	Codes    []string // accepted registration codes
}

// JudgeService covers judge accounts and everything judges do to
// submissions: scoring and badges.
type JudgeService struct {
	judges      repository.JudgeRepository
	submissions repository.SubmissionRepository
	tokens      *auth.TokenService
	passwords   *auth.PasswordService
	config      JudgeConfig
	logger      *slog.Logger
}

func NewJudgeService(
	judges repository.JudgeRepository,
	submissions repository.SubmissionRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	cfg JudgeConfig,
	logger *slog.Logger,
) *JudgeService {
	return &JudgeService{
		judges:      judges,
		submissions: submissions,
		tokens:      tokens,
		passwords:   passwords,
		config:      cfg,
		logger:      logger,
	}
}

type JudgeRegisterInput struct {
	Name           string               `json:"name"`
	Email          string               `json:"email"`
	Password       string               `json:"password"`
	JudgeCode      string               `json:"judgeCode"`
	Specialization model.Specialization `json:"specialization"`
}

type JudgeResult struct {
	Judge *model.Judge
	Token string
}

type ScoreInput struct {
	Innovation   float64 `json:"innovation"`
	Technical    float64 `json:"technical"`
	Design       float64 `json:"design"`
	Presentation float64 `json:"presentation"`
	Overall      float64 `json:"overall"`
	Feedback     string  `json:"feedback"`
}

type BadgeInput struct {
	Type        model.BadgeType `json:"type"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
}

const MaxFeedbackLength = 500

func (s *JudgeService) Register(ctx context.Context, in JudgeRegisterInput) (*JudgeResult, error) {
	name := strings.TrimSpace(in.Name)
	email := normalizeEmail(in.Email)
	code := strings.TrimSpace(in.JudgeCode)

	if err := requireLength("name", name, MinNameLength, MaxNameLength); err != nil {
		return nil, err
	}
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validatePassword(in.Password); err != nil {
		return nil, err
	}
	if code == "" || !slices.Contains(s.config.Codes, code) {
		return nil, apperror.ValidationFailed("judgeCode", "invalid judge code")
	}
	specialty := in.Specialization
	if specialty == "" {
		specialty = model.SpecGeneral
	}
	if !specialty.Valid() {
		return nil, apperror.ValidationFailed("specialization", "invalid specialization")
	}

	if _, err := s.judges.GetJudgeByEmail(ctx, email); err == nil {
		return nil, apperror.ConflictMessage("a judge with this email already exists")
	} else if !isNotFound(err) {
		return nil, fmt.Errorf("service/judge: looking up email: %w", err)
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("service/judge: hashing password: %w", err)
	}
	judge := &model.Judge{
		Name:           name,
		Email:          email,
		PasswordHash:   hash,
		JudgeCode:      code,
		Specialization: specialty,
		IsActive:       true,
	}
	if err := s.judges.CreateJudge(ctx, judge); err != nil {
		switch {
		case repository.IsDuplicate(err, repository.KeyEmail):
			return nil, apperror.ConflictMessage("a judge with this email already exists")
		case repository.IsDuplicate(err, repository.KeyJudgeCode):
			return nil, apperror.ConflictMessage("this judge code has already been used")
		}
		return nil, fmt.Errorf("service/judge: creating judge: %w", err)
	}

	s.logger.Info("judge registered", slog.String("judgeID", judge.ID), slog.String("specialization", string(specialty)))
	metrics.Event("judge_registered", nil)
	return s.session(judge)
}

func (s *JudgeService) Login(ctx context.Context, email, password string) (*JudgeResult, error) {
	invalid := apperror.Unauthorized("invalid credentials")

	judge, err := s.judges.GetJudgeByEmail(ctx, normalizeEmail(email))
	if isNotFound(err) {
		return nil, invalid
	}
	if err != nil {
		return nil, fmt.Errorf("service/judge: loading judge: %w", err)
	}
	if !judge.IsActive {
		return nil, invalid
	}
	if err := s.passwords.Verify(judge.PasswordHash, password); err != nil {
		if !errors.Is(err, auth.ErrPasswordMismatch) {
			s.logger.Error("judge password verification failed",
				slog.String("judgeID", judge.ID), slog.String("error", err.Error()))
		}
		return nil, invalid
	}

	err = withRetry(ctx, "judge", func(ctx context.Context) error {
		j, err := s.judges.GetJudgeByID(ctx, judge.ID)
		if err != nil {
			return err
		}
		t := now()
		j.LastLogin = &t
		if err := s.judges.UpdateJudge(ctx, j); err != nil {
			return err
		}
		judge = j
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("service/judge: recording login: %w", err)
	}
	return s.session(judge)
}

func (s *JudgeService) session(judge *model.Judge) (*JudgeResult, error) {
	token, err := s.tokens.Issue(auth.KindJudge, judge.ID, s.config.TokenTTL)
	if err != nil {
		return nil, err
	}
	return &JudgeResult{Judge: judge, Token: token}, nil
}

// Get returns an active judge. Deactivated judges are Unauthorized.
func (s *JudgeService) Get(ctx context.Context, judgeID string) (*model.Judge, error) {
	judge, err := s.judges.GetJudgeByID(ctx, judgeID)
	if isNotFound(err) || (err == nil && !judge.IsActive) {
		return nil, apperror.Unauthorized("judge not found or inactive")
	}
	return judge, err
}

// IsActive satisfies auth.JudgeChecker.
func (s *JudgeService) IsActive(ctx context.Context, judgeID string) (bool, error) {
	judge, err := s.judges.GetJudgeByID(ctx, judgeID)
	if isNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return judge.IsActive, nil
}

// Score records judgeID's evaluation of a submission, replacing an earlier
// score by the same judge.
func (s *JudgeService) Score(ctx context.Context, judgeID, submissionID string, in ScoreInput) (*model.Submission, error) {
	if err := requireMax("feedback", in.Feedback, MaxFeedbackLength); err != nil {
		return nil, err
	}
	score := model.Score{
		JudgeID:      judgeID,
		Innovation:   in.Innovation,
		Technical:    in.Technical,
		Design:       in.Design,
		Presentation: in.Presentation,
		Overall:      in.Overall,
		Feedback:     strings.TrimSpace(in.Feedback),
	}
	if err := scoring.Validate(score); err != nil {
		return nil, err
	}

	sub, err := s.updateSubmission(ctx, submissionID, func(ctx context.Context, sub *model.Submission) error {
		active := 0
		if sub.RequiredJudges <= 0 {
			n, err := s.judges.CountActiveJudges(ctx)
			if err != nil {
				return fmt.Errorf("service/judge: counting judges: %w", err)
			}
			active = n
		}
		return scoring.ApplyScore(sub, score, active, now())
	})
	metrics.Event("submission_scored", err)
	if err != nil {
		return nil, err
	}

	s.logger.Info("submission scored",
		slog.String("submissionID", sub.ID),
		slog.String("judgeID", judgeID),
		slog.String("status", string(sub.Status)),
		slog.Float64("finalScore", sub.FinalScore))
	return sub, nil
}

func (s *JudgeService) AwardBadge(ctx context.Context, judgeID, submissionID string, in BadgeInput) (*model.Submission, error) {
	badge, err := scoring.NewBadge(in.Type, in.Name, in.Description, judgeID, now())
	if err != nil {
		return nil, err
	}
	sub, err := s.updateSubmission(ctx, submissionID, func(_ context.Context, sub *model.Submission) error {
		return scoring.AwardBadge(sub, badge)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("badge awarded",
		slog.String("submissionID", sub.ID), slog.String("type", string(badge.Type)))
	return sub, nil
}

func (s *JudgeService) RemoveBadge(ctx context.Context, submissionID string, index int) (*model.Submission, error) {
	var removed model.Badge
	sub, err := s.updateSubmission(ctx, submissionID, func(_ context.Context, sub *model.Submission) error {
		var err error
		removed, err = scoring.RemoveBadge(sub, index)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("badge removed",
		slog.String("submissionID", sub.ID), slog.String("type", string(removed.Type)))
	return sub, nil
}

// updateSubmission is the optimistic read-modify-write used by every judge
// action.
func (s *JudgeService) updateSubmission(ctx context.Context, id string, fn func(ctx context.Context, sub *model.Submission) error) (*model.Submission, error) {
	var saved *model.Submission
	err := withRetry(ctx, "submission", func(ctx context.Context) error {
		sub, err := s.submissions.GetSubmissionByID(ctx, id)
		if err != nil {
			return err
		}
		if err := fn(ctx, sub); err != nil {
			return err
		}
		if err := s.submissions.UpdateSubmission(ctx, sub); err != nil {
			return err
		}
		saved = sub
		return nil
	})
	return saved, err
}

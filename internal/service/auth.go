package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sakif/hackhub/internal/apperror"
	"github.com/sakif/hackhub/internal/auth"
	"github.com/sakif/hackhub/internal/metrics"
	"github.com/sakif/hackhub/internal/model"
	"github.com/sakif/hackhub/internal/notify"
	"github.com/sakif/hackhub/internal/pending"
	"github.com/sakif/hackhub/internal/repository"
)

const (
	MinNameLength     = 2
	MaxNameLength     = 50
	MinPasswordLength = 6
	MaxBioLength      = 500

	ResetTokenTTL = time.Hour
)

// AuthConfig carries the settings AuthService needs from the environment.
type AuthConfig struct {
	UserTokenTTL time.Duration
	ClientURL    string // base of the password reset link
}

// AuthService owns registration, login, profile and password recovery.
//
// Registration is verify-first: nothing is written to the user store until
// the emailed code comes back. Until then the registration lives in the
// pending store.
type AuthService struct {
	users     repository.UserRepository
	pending   pending.Store
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	mailer    Mailer
	config    AuthConfig
	logger    *slog.Logger
}

func NewAuthService(
	users repository.UserRepository,
	pendingStore pending.Store,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	mailer Mailer,
	cfg AuthConfig,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		pending:   pendingStore,
		tokens:    tokens,
		passwords: passwords,
		mailer:    mailer,
		config:    cfg,
		logger:    logger,
	}
}

// AuthResult bundles the account with a freshly issued session token.
type AuthResult struct {
	User  *model.User
	Token string
}

type RegisterInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// PendingRegistration is what the client learns after Register.
type PendingRegistration struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

func validatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return apperror.ValidationFailed("password",
			fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}
	if len(password) > auth.MaxPasswordBytes {
		return apperror.ValidationFailed("password",
			fmt.Sprintf("password must be %d bytes or fewer", auth.MaxPasswordBytes))
	}
	return nil
}

// Register validates the input, parks the registration under a 6-digit code
// and emails the code.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*PendingRegistration, error) {
	name := strings.TrimSpace(in.Name)
	email := normalizeEmail(in.Email)

	if err := requireLength("name", name, MinNameLength, MaxNameLength); err != nil {
		return nil, err
	}
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validatePassword(in.Password); err != nil {
		return nil, err
	}

	if err := s.ensureEmailFree(ctx, email); err != nil {
		return nil, err
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("service/auth: hashing password: %w", err)
	}
	code, err := pending.NewCode()
	if err != nil {
		return nil, err
	}

	reg := pending.Registration{Code: code, Name: name, Email: email, PasswordHash: hash}
	if err := s.pending.Save(ctx, reg); err != nil {
		return nil, fmt.Errorf("service/auth: saving pending registration: %w", err)
	}

	s.mailer.Notify(notify.VerificationMessage(email, code))
	s.logger.Info("registration pending verification", slog.String("email", email))
	return &PendingRegistration{Name: name, Email: email}, nil
}

func (s *AuthService) ensureEmailFree(ctx context.Context, email string) error {
	_, err := s.users.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		return apperror.ConflictMessage("user already exists")
	case isNotFound(err):
		return nil
	default:
		return fmt.Errorf("service/auth: checking email: %w", err)
	}
}

// VerifyEmail turns a pending registration into a verified user and logs
// them in.
func (s *AuthService) VerifyEmail(ctx context.Context, code string) (*AuthResult, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, apperror.ValidationFailed("code", "verification code is required")
	}

	// The code is consumed here whatever happens next.
	reg, err := s.pending.Take(ctx, code)
	if errors.Is(err, pending.ErrNotFound) {
		return nil, apperror.ValidationFailed("code",
			"invalid or expired verification code, please register again")
	}
	if err != nil {
		return nil, fmt.Errorf("service/auth: reading pending registration: %w", err)
	}

	if err := s.ensureEmailFree(ctx, reg.Email); err != nil {
		return nil, err
	}

	user := &model.User{
		Name:         reg.Name,
		Email:        reg.Email,
		PasswordHash: reg.PasswordHash,
		IsVerified:   true,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if repository.IsDuplicate(err, repository.KeyEmail) {
			return nil, apperror.ConflictMessage("user already exists")
		}
		s.restorePending(ctx, *reg)
		return nil, fmt.Errorf("service/auth: creating user: %w", err)
	}

	s.mailer.Notify(notify.WelcomeMessage(user.Email, user.Name))
	s.logger.Info("user registered", slog.String("userID", user.ID))
	metrics.Event("user_registered", nil)

	return s.session(user)
}

// restorePending puts a taken registration back after a storage failure so
// the user can retry with the same code.
func (s *AuthService) restorePending(ctx context.Context, reg pending.Registration) {
	if err := s.pending.Save(ctx, reg); err != nil {
		s.logger.Warn("failed to restore pending registration",
			slog.String("email", reg.Email), slog.String("error", err.Error()))
	}
}

func (s *AuthService) session(user *model.User) (*AuthResult, error) {
	token, err := s.tokens.Issue(auth.KindUser, user.ID, s.config.UserTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("service/auth: issuing token for %s: %w", user.ID, err)
	}
	return &AuthResult{User: user, Token: token}, nil
}

// Login checks the password and records the login time. Unknown emails and
// wrong passwords get the same answer.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	invalid := apperror.Unauthorized("invalid credentials")

	user, err := s.users.GetUserByEmail(ctx, normalizeEmail(email))
	if isNotFound(err) {
		return nil, invalid
	}
	if err != nil {
		return nil, fmt.Errorf("service/auth: loading user: %w", err)
	}
	if user.PasswordHash == "" {
		return nil, invalid
	}
	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		if !errors.Is(err, auth.ErrPasswordMismatch) {
			s.logger.Error("password verification failed",
				slog.String("userID", user.ID), slog.String("error", err.Error()))
		}
		return nil, invalid
	}

	user, err = s.touchLogin(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return s.session(user)
}

func (s *AuthService) touchLogin(ctx context.Context, userID string) (*model.User, error) {
	var user *model.User
	err := withRetry(ctx, "user", func(ctx context.Context) error {
		u, err := s.users.GetUserByID(ctx, userID)
		if err != nil {
			return err
		}
		t := now()
		u.LastLogin = &t
		if err := s.users.UpdateUser(ctx, u); err != nil {
			return err
		}
		user = u
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("service/auth: recording login: %w", err)
	}
	return user, nil
}

func (s *AuthService) CurrentUser(ctx context.Context, userID string) (*model.User, error) {
	return s.users.GetUserByID(ctx, userID)
}

// ProfileInput is a partial update; nil fields are left unchanged.
type ProfileInput struct {
	Name   *string   `json:"name"`
	Bio    *string   `json:"bio"`
	Skills *[]string `json:"skills"`
	Avatar *string   `json:"avatar"`
}

func (s *AuthService) UpdateProfile(ctx context.Context, userID string, in ProfileInput) (*model.User, error) {
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if err := requireLength("name", name, MinNameLength, MaxNameLength); err != nil {
			return nil, err
		}
		in.Name = &name
	}
	if in.Bio != nil {
		if err := requireMax("bio", *in.Bio, MaxBioLength); err != nil {
			return nil, err
		}
	}

	var user *model.User
	err := withRetry(ctx, "user", func(ctx context.Context) error {
		u, err := s.users.GetUserByID(ctx, userID)
		if err != nil {
			return err
		}
		if in.Name != nil {
			u.Name = *in.Name
		}
		if in.Bio != nil {
			u.Bio = strings.TrimSpace(*in.Bio)
		}
		if in.Skills != nil {
			u.Skills = trimAll(*in.Skills)
		}
		if in.Avatar != nil {
			u.Avatar = strings.TrimSpace(*in.Avatar)
		}
		if err := s.users.UpdateUser(ctx, u); err != nil {
			return err
		}
		user = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// ForgotPassword stores a one-hour reset token and mails the reset link.
// The response is the same whether or not the email is registered.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return err
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if isNotFound(err) {
		s.logger.Info("password reset requested for unknown email")
		return nil
	}
	if err != nil {
		return fmt.Errorf("service/auth: loading user: %w", err)
	}

	token, err := auth.NewResetToken()
	if err != nil {
		return err
	}
	expires := now().Add(ResetTokenTTL)

	err = withRetry(ctx, "user", func(ctx context.Context) error {
		u, err := s.users.GetUserByID(ctx, user.ID)
		if err != nil {
			return err
		}
		u.ResetPasswordToken = token
		u.ResetPasswordExpiresAt = &expires
		return s.users.UpdateUser(ctx, u)
	})
	if err != nil {
		return fmt.Errorf("service/auth: saving reset token: %w", err)
	}

	s.mailer.Notify(notify.ResetMessage(user.Email, s.config.ClientURL+"/reset-password/"+token))
	return nil
}

// ResetPassword consumes a valid reset token and sets the new password.
func (s *AuthService) ResetPassword(ctx context.Context, token, password string) error {
	if err := validatePassword(password); err != nil {
		return err
	}
	invalid := apperror.ValidationFailed("token", "invalid or expired reset token")

	user, err := s.users.GetUserByResetToken(ctx, token, now())
	if isNotFound(err) {
		return invalid
	}
	if err != nil {
		return fmt.Errorf("service/auth: loading reset token: %w", err)
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return fmt.Errorf("service/auth: hashing password: %w", err)
	}

	err = withRetry(ctx, "user", func(ctx context.Context) error {
		u, err := s.users.GetUserByID(ctx, user.ID)
		if err != nil {
			return err
		}
		if u.ResetPasswordToken != token {
			return invalid
		}
		u.PasswordHash = hash
		u.ResetPasswordToken = ""
		u.ResetPasswordExpiresAt = nil
		return s.users.UpdateUser(ctx, u)
	})
	if err != nil {
		return err
	}

	s.mailer.Notify(notify.ResetSuccessMessage(user.Email))
	s.logger.Info("password reset", slog.String("userID", user.ID))
	return nil
}

// LoginWithGitHub finds the account by GitHub id, links an existing account
// with the same email, or creates a new verified account.
func (s *AuthService) LoginWithGitHub(ctx context.Context, gh *auth.GitHubUser) (*AuthResult, error) {
	if gh == nil || gh.ID == 0 {
		return nil, apperror.Unauthorized("GitHub login failed")
	}

	user, err := s.users.GetUserByGitHubID(ctx, gh.ID)
	switch {
	case err == nil:
	case isNotFound(err):
		user, err = s.linkOrCreateGitHubUser(ctx, gh)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("service/auth: loading user by github id: %w", err)
	}

	user, err = s.touchLogin(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	s.logger.Info("user authenticated via GitHub",
		slog.String("userID", user.ID), slog.String("login", gh.Login))
	return s.session(user)
}

func (s *AuthService) linkOrCreateGitHubUser(ctx context.Context, gh *auth.GitHubUser) (*model.User, error) {
	email := normalizeEmail(gh.Email)
	if email == "" {
		email = fmt.Sprintf("%d+%s@users.noreply.github.com", gh.ID, strings.ToLower(gh.Login))
	}

	existing, err := s.users.GetUserByEmail(ctx, email)
	if err == nil {
		var linked *model.User
		err := withRetry(ctx, "user", func(ctx context.Context) error {
			u, err := s.users.GetUserByID(ctx, existing.ID)
			if err != nil {
				return err
			}
			u.GitHubID = gh.ID
			u.IsVerified = true
			if u.Avatar == "" {
				u.Avatar = gh.AvatarURL
			}
			if err := s.users.UpdateUser(ctx, u); err != nil {
				return err
			}
			linked = u
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("service/auth: linking GitHub account: %w", err)
		}
		return linked, nil
	}
	if !isNotFound(err) {
		return nil, fmt.Errorf("service/auth: checking email: %w", err)
	}

	user := &model.User{
		Name:       gh.DisplayName(),
		Email:      email,
		GitHubID:   gh.ID,
		Avatar:     gh.AvatarURL,
		IsVerified: true,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: creating GitHub user: %w", err)
	}
	metrics.Event("user_registered", nil)
	return user, nil
}

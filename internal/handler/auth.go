package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/hackhub/internal/auth"
	"github.com/sakif/hackhub/internal/service"
)

const stateCookie = "oauth_state"

// GitHubLogin is the part of the OAuth provider the handler uses.
// *auth.GitHubProvider satisfies it.
type GitHubLogin interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*auth.GitHubUser, error)
}

// SessionConfig controls the session cookie and the post-login redirect.
type SessionConfig struct {
	TokenTTL     time.Duration
	CookieSecure bool
	ClientURL    string
}

// AuthHandler serves registration, login, profile, password recovery and the
// optional GitHub login.
type AuthHandler struct {
	svc     *service.AuthService
	github  GitHubLogin // nil when GitHub login is disabled
	session SessionConfig
	logger  *slog.Logger
}

func NewAuthHandler(svc *service.AuthService, github GitHubLogin, session SessionConfig, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{svc: svc, github: github, session: session, logger: logger}
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func currentUserID(r *http.Request) string {
	id, _ := auth.UserIDFromContext(r.Context())
	return id
}

// HandleRegister parks the registration and mails a verification code.
//
// HTTP: POST /api/auth/register
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var in service.RegisterInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}
	reg, err := h.svc.Register(r.Context(), in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, envelope{
		"message":      "Verification code sent to " + reg.Email,
		"registration": reg,
	})
}

// HandleVerifyEmail turns a pending registration into an account and logs
// the new user in.
//
// HTTP: POST /api/auth/verify-email
func (h *AuthHandler) HandleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Code string `json:"code"`
	}
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}
	res, err := h.svc.VerifyEmail(r.Context(), strings.TrimSpace(in.Code))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	auth.SetSessionCookie(w, res.Token, h.session.TokenTTL, h.session.CookieSecure)
	writeJSON(w, http.StatusOK, envelope{"message": "Email verified", "user": res.User, "token": res.Token})
}

// HTTP: POST /api/auth/login
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}
	res, err := h.svc.Login(r.Context(), in.Email, in.Password)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	auth.SetSessionCookie(w, res.Token, h.session.TokenTTL, h.session.CookieSecure)
	writeJSON(w, http.StatusOK, envelope{"user": res.User, "token": res.Token})
}

// HandleLogout clears the session cookie. The token itself stays valid until
// it expires; without the cookie the browser no longer sends it.
//
// HTTP: POST /api/auth/logout
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	auth.ClearSessionCookie(w, h.session.CookieSecure)
	writeJSON(w, http.StatusOK, envelope{"message": "Logged out"})
}

// HandleCheckAuth reports whether the request carries a valid session. It
// never answers 401; the frontend calls it on every page load.
//
// HTTP: GET /api/auth/check-auth (optional auth)
func (h *AuthHandler) HandleCheckAuth(w http.ResponseWriter, r *http.Request) {
	userID := currentUserID(r)
	if userID == "" {
		writeJSON(w, http.StatusOK, envelope{"authenticated": false, "user": nil})
		return
	}
	user, err := h.svc.CurrentUser(r.Context(), userID)
	if err != nil {
		// A token for a deleted account is just a logged-out visitor.
		h.logger.Debug("check-auth: session user unavailable",
			slog.String("userID", userID), slog.String("error", err.Error()))
		writeJSON(w, http.StatusOK, envelope{"authenticated": false, "user": nil})
		return
	}
	writeJSON(w, http.StatusOK, envelope{"authenticated": true, "user": user})
}

// HTTP: GET /api/auth/me
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	user, err := h.svc.CurrentUser(r.Context(), currentUserID(r))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"user": user})
}

// HTTP: PUT /api/auth/profile
func (h *AuthHandler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var in service.ProfileInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}
	user, err := h.svc.UpdateProfile(r.Context(), currentUserID(r), in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"user": user})
}

// HandleForgotPassword answers the same way whether or not the address is
// registered.
//
// HTTP: POST /api/auth/forgot-password
func (h *AuthHandler) HandleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email string `json:"email"`
	}
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := h.svc.ForgotPassword(r.Context(), in.Email); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{
		"message": "If an account exists for that email, a password reset link has been sent",
	})
}

// HTTP: POST /api/auth/reset-password/{token}
func (h *AuthHandler) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Password string `json:"password"`
	}
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := h.svc.ResetPassword(r.Context(), param(r, "token"), in.Password); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"message": "Password reset successful"})
}

// HandleGitHubLogin redirects the browser to GitHub.
//
// A random state is stored in a short-lived HttpOnly cookie and echoed back
// by GitHub; the callback rejects a mismatch, which proves this server
// started the flow.
//
// HTTP: GET /api/auth/github/login
func (h *AuthHandler) HandleGitHubLogin(w http.ResponseWriter, r *http.Request) {
	if h.github == nil {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "not_found", Message: "GitHub login is not enabled"})
		return
	}
	state := xid.New().String()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   h.session.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, h.github.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGitHubCallback completes the OAuth flow:
//  1. check the state against the cookie
//  2. exchange the code for the GitHub profile
//  3. find, link or create the account
//  4. set the session cookie and send the browser back to the client
//
// HTTP: GET /api/auth/github/callback?code=&state=
func (h *AuthHandler) HandleGitHubCallback(w http.ResponseWriter, r *http.Request) {
	if h.github == nil {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "not_found", Message: "GitHub login is not enabled"})
		return
	}

	q := r.URL.Query()
	c, err := r.Cookie(stateCookie)
	if err != nil || c.Value == "" || q.Get("state") != c.Value {
		h.logger.Warn("github callback: state mismatch")
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: "invalid OAuth state"})
		return
	}
	// single use
	http.SetCookie(w, &http.Cookie{Name: stateCookie, Value: "", Path: "/", MaxAge: -1})

	if reason := q.Get("error"); reason != "" {
		h.logger.Info("github callback: authorization denied", slog.String("error", reason))
		http.Redirect(w, r, h.session.ClientURL+"/login?error=github_denied", http.StatusSeeOther)
		return
	}
	code := q.Get("code")
	if code == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: "missing OAuth code"})
		return
	}

	gh, err := h.github.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("github callback: exchange failed", slog.String("error", err.Error()))
		http.Redirect(w, r, h.session.ClientURL+"/login?error=github_failed", http.StatusSeeOther)
		return
	}
	res, err := h.svc.LoginWithGitHub(r.Context(), gh)
	if err != nil {
		h.logger.Error("github callback: login failed", slog.String("error", err.Error()))
		http.Redirect(w, r, h.session.ClientURL+"/login?error=github_failed", http.StatusSeeOther)
		return
	}

	auth.SetSessionCookie(w, res.Token, h.session.TokenTTL, h.session.CookieSecure)
	http.Redirect(w, r, h.session.ClientURL+"/dashboard", http.StatusSeeOther)
}

// Package server is the composition root of the HTTP API: it builds the
// services and handlers from the injected infrastructure, mounts the routes,
// and runs the listener with graceful shutdown.
//
// main.go owns the infrastructure (store, pending store, mail dispatcher,
// token signer); this package only wires it together, which keeps the whole
// API constructible in tests against an in-memory store.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/sakif/hackhub/internal/auth"
	"github.com/sakif/hackhub/internal/handler"
	"github.com/sakif/hackhub/internal/invite"
	"github.com/sakif/hackhub/internal/metrics"
	"github.com/sakif/hackhub/internal/middleware"
	"github.com/sakif/hackhub/internal/pending"
	"github.com/sakif/hackhub/internal/repository"
	"github.com/sakif/hackhub/internal/service"
)

// Config holds the settings the HTTP layer needs.
type Config struct {
	Port          int
	ClientURL     string
	CookieSecure  bool
	UserTokenTTL  time.Duration
	JudgeTokenTTL time.Duration
	JudgeCodes    []string

	// APIRateLimit covers every /api route; AuthRateLimit additionally
	// covers /api/auth, where password guessing happens.
	APIRateLimit  middleware.RatePolicy
	AuthRateLimit middleware.RatePolicy
}

// Deps is the infrastructure built by main.
type Deps struct {
	Store     repository.Store
	Pending   pending.Store
	Mailer    service.Mailer
	Tokens    *auth.TokenService
	Passwords *auth.PasswordService
	GitHub    handler.GitHubLogin // nil disables GitHub login

	// RateCounter builds the shared counter for one rate limit; nil keeps
	// the counts in process memory.
	RateCounter func() httprate.LimitCounter
}

// Server is the HTTP server and everything it routes to.
type Server struct {
	router *chi.Mux
	config Config
	deps   Deps
	logger *slog.Logger
}

// New wires services and handlers and mounts every route.
//
// Each layer receives only what it needs: services get repository
// interfaces, handlers get services.
func New(cfg Config, deps Deps, logger *slog.Logger) *Server {
	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		deps:   deps,
		logger: logger,
	}
	s.setupRoutes()
	return s
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes mounts middleware and routes.
//
// MIDDLEWARE ORDER MATTERS:
// chi applies Use calls outermost first. Order:
//  1. RequestID, so every later log line can carry it
//  2. RealIP
//  3. Logger and Metrics, which observe the final status
//  4. Recoverer, inside the observers so a panic is logged as a 500
//  5. SecureHeaders, so error and preflight responses carry them too
//  6. CORS for the browser client
//
// Rate limits sit on the /api routes, after CORS: a preflight is answered
// by the CORS handler and never counts against the client.
func (s *Server) setupRoutes() {
	r := s.router
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(s.logger))
	r.Use(middleware.Metrics)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.SecureHeaders(s.config.CookieSecure))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{s.config.ClientURL},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", chimiddleware.RequestIDHeader},
		ExposedHeaders:   []string{chimiddleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	st, d := s.deps.Store, s.deps

	authSvc := service.NewAuthService(st, d.Pending, d.Tokens, d.Passwords, d.Mailer,
		service.AuthConfig{UserTokenTTL: s.config.UserTokenTTL, ClientURL: s.config.ClientURL}, s.logger)
	teamSvc := service.NewTeamService(st, st, st, st, invite.NewIssuer(), s.logger)
	projectSvc := service.NewProjectService(st, st, st, st, s.logger)
	taskSvc := service.NewTaskService(st, st, st, st, s.logger)
	showcaseSvc := service.NewShowcaseService(st, s.logger)
	submissionSvc := service.NewSubmissionService(st, st, st, st, st, s.logger)
	judgeSvc := service.NewJudgeService(st, st, d.Tokens, d.Passwords,
		service.JudgeConfig{TokenTTL: s.config.JudgeTokenTTL, Codes: s.config.JudgeCodes}, s.logger)

	authH := handler.NewAuthHandler(authSvc, d.GitHub, handler.SessionConfig{
		TokenTTL:     s.config.UserTokenTTL,
		CookieSecure: s.config.CookieSecure,
		ClientURL:    s.config.ClientURL,
	}, s.logger)
	teamH := handler.NewTeamHandler(teamSvc, s.logger)
	projectH := handler.NewProjectHandler(projectSvc, s.logger)
	taskH := handler.NewTaskHandler(taskSvc, s.logger)
	showcaseH := handler.NewShowcaseHandler(showcaseSvc, s.logger)
	submissionH := handler.NewSubmissionHandler(submissionSvc, s.logger)
	judgeH := handler.NewJudgeHandler(judgeSvc, submissionSvc, s.logger)
	healthH := handler.NewHealthHandler(st, s.logger)

	requireUser := auth.RequireAuth(d.Tokens)
	optionalUser := auth.OptionalAuth(d.Tokens)
	requireJudge := auth.RequireJudge(d.Tokens, judgeSvc.IsActive)

	r.Get("/health", healthH.HandleHealth)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(s.rateLimit(s.config.APIRateLimit, "too many requests, please try again later"))

		r.Route("/auth", func(r chi.Router) {
			r.Use(s.rateLimit(s.config.AuthRateLimit, "too many login attempts, please try again later"))
			r.Post("/register", authH.HandleRegister)
			r.Post("/verify-email", authH.HandleVerifyEmail)
			r.Post("/login", authH.HandleLogin)
			r.Post("/logout", authH.HandleLogout)
			r.Post("/forgot-password", authH.HandleForgotPassword)
			r.Post("/reset-password/{token}", authH.HandleResetPassword)
			r.Get("/github/login", authH.HandleGitHubLogin)
			r.Get("/github/callback", authH.HandleGitHubCallback)
			r.With(optionalUser).Get("/check-auth", authH.HandleCheckAuth)
			r.With(requireUser).Get("/me", authH.HandleMe)
			r.With(requireUser).Put("/profile", authH.HandleUpdateProfile)
		})

		r.Route("/teams", func(r chi.Router) {
			r.Use(requireUser)
			r.Post("/", teamH.HandleCreate)
			r.Get("/", teamH.HandleList)
			r.Get("/users/search", teamH.HandleSearchUsers)
			r.Get("/search/all", teamH.HandleSearchTeams)
			r.Post("/join/{inviteCode}", teamH.HandleJoin)
			r.Get("/{id}", teamH.HandleGet)
			r.Put("/{id}", teamH.HandleUpdate)
			r.Delete("/{id}", teamH.HandleDelete)
			r.Post("/{id}/regenerate-code", teamH.HandleRegenerateCode)
			r.Post("/{id}/members", teamH.HandleAddMember)
			r.Delete("/{id}/members/{userId}", teamH.HandleRemoveMember)
		})

		r.Route("/projects", func(r chi.Router) {
			r.Use(requireUser)
			r.Post("/", projectH.HandleCreate)
			r.Get("/", projectH.HandleList)
			r.Get("/{id}", projectH.HandleGet)
			r.Put("/{id}", projectH.HandleUpdate)
			r.Delete("/{id}", projectH.HandleDelete)
			r.Post("/{id}/collaborators", projectH.HandleAddCollaborator)
			r.Post("/{id}/toggle-showcase", projectH.HandleToggleShowcase)
		})

		r.Route("/tasks", func(r chi.Router) {
			r.Use(requireUser)
			r.Post("/", taskH.HandleCreate)
			r.Get("/", taskH.HandleList)
			r.Get("/{id}", taskH.HandleGet)
			r.Put("/{id}", taskH.HandleUpdate)
			r.Delete("/{id}", taskH.HandleDelete)
			r.Post("/{id}/comments", taskH.HandleAddComment)
		})

		r.Route("/showcase", func(r chi.Router) {
			r.Get("/stats", showcaseH.HandleStats)
			r.With(optionalUser).Get("/", showcaseH.HandleList)
			r.With(optionalUser).Get("/{id}", showcaseH.HandleGet)
			r.With(requireUser).Post("/{id}/like", showcaseH.HandleToggleLike)
			r.With(requireUser).Post("/{id}/comments", showcaseH.HandleAddComment)
		})

		r.Route("/submissions", func(r chi.Router) {
			r.Get("/leaderboard", submissionH.HandleLeaderboard)
			r.With(requireUser).Post("/", submissionH.HandleSubmit)
		})

		r.Route("/judge", func(r chi.Router) {
			r.Post("/register", judgeH.HandleRegister)
			r.Post("/login", judgeH.HandleLogin)
			r.Group(func(r chi.Router) {
				r.Use(requireJudge)
				r.Get("/verify", judgeH.HandleVerify)
				r.Get("/submissions", judgeH.HandleSubmissions)
				r.Post("/submissions/{id}/score", judgeH.HandleScore)
				r.Post("/submissions/{id}/badge", judgeH.HandleAwardBadge)
				r.Delete("/submissions/{id}/badge/{badgeIndex}", judgeH.HandleRemoveBadge)
			})
		})
	})
}

func (s *Server) rateLimit(policy middleware.RatePolicy, message string) func(http.Handler) http.Handler {
	var counter httprate.LimitCounter
	if s.deps.RateCounter != nil && policy.Enabled() {
		counter = s.deps.RateCounter()
	}
	return middleware.RateLimit(policy, counter,
		handler.TooManyRequests(message, policy.Window),
		handler.RateLimitFailed(s.logger))
}

// Start serves until SIGINT or SIGTERM, then gives in-flight requests 30
// seconds to finish. Closing the store and stopping the mail dispatcher is
// left to the caller, after Start returns.
func (s *Server) Start() error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("clientURL", s.config.ClientURL),
			slog.Bool("githubLogin", s.deps.GitHub != nil),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}
	return nil
}

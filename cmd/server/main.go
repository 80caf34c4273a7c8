// Command server runs the HackHub API.
//
// main only builds infrastructure from the configuration (store, pending
// registrations, mail delivery, token signing, optional GitHub login) and
// hands it to internal/server, which wires services, handlers and routes.
package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/httprate"

	"github.com/sakif/hackhub/internal/auth"
	"github.com/sakif/hackhub/internal/config"
	"github.com/sakif/hackhub/internal/middleware"
	"github.com/sakif/hackhub/internal/notify"
	"github.com/sakif/hackhub/internal/pending"
	"github.com/sakif/hackhub/internal/repository"
	"github.com/sakif/hackhub/internal/repository/mongostore"
	"github.com/sakif/hackhub/internal/repository/sqlite"
	"github.com/sakif/hackhub/internal/server"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	// === 1. CONFIGURATION AND LOGGING ===
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := cfg.Logger()
	slog.SetDefault(logger)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	// === 2. STORE ===
	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("closing store", slog.String("error", err.Error()))
		}
	}()

	// === 3. PENDING REGISTRATIONS AND RATE LIMIT COUNTERS ===
	// Redis survives restarts and is shared between instances; without it
	// the codes and counters live in process memory.
	var pendingStore pending.Store
	var rateCounter func() httprate.LimitCounter
	if cfg.RedisAddr != "" {
		rs, err := pending.NewRedisStore(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, pending.DefaultTTL)
		if err != nil {
			return err
		}
		defer rs.Close()
		pendingStore = rs
		rateCounter = func() httprate.LimitCounter {
			return middleware.NewRedisCounter(rs.Client(), logger)
		}
		logger.Info("pending registrations and rate limits in redis", slog.String("addr", cfg.RedisAddr))
	} else {
		pendingStore = pending.NewMemoryStore(pending.DefaultTTL)
		logger.Info("pending registrations and rate limits in memory")
	}

	// === 4. MAIL ===
	var sender notify.Sender
	if cfg.MailEnabled() {
		sender = notify.NewMailgunSender(cfg.MailgunDomain, cfg.MailgunAPIKey, cfg.MailSender)
	} else {
		logger.Warn("MAILGUN_DOMAIN not set, emails are only logged")
		sender = notify.NewLogSender(logger)
	}
	dispatcher := notify.NewDispatcher(sender, notify.DefaultDispatcherConfig(), logger)
	dispatcher.Start()
	defer dispatcher.Stop()

	// === 5. AUTH ===
	tokens, err := auth.NewTokenService(cfg.JWTSecret)
	if err != nil {
		return err
	}
	deps := server.Deps{
		Store:       store,
		Pending:     pendingStore,
		Mailer:      dispatcher,
		Tokens:      tokens,
		Passwords:   auth.NewPasswordService(),
		RateCounter: rateCounter,
	}
	if cfg.GitHubEnabled() {
		deps.GitHub = auth.NewGitHubProvider(cfg.GitHubClientID, cfg.GitHubClientSecret, cfg.GitHubCallbackURL)
	}

	// === 6. SERVE ===
	srv := server.New(server.Config{
		Port:          cfg.Port,
		ClientURL:     cfg.ClientURL,
		CookieSecure:  cfg.CookieSecure,
		UserTokenTTL:  cfg.UserTokenTTL,
		JudgeTokenTTL: cfg.JudgeTokenTTL,
		JudgeCodes:    cfg.JudgeCodes,
		APIRateLimit: middleware.RatePolicy{
			Name: "api", Requests: cfg.RateLimitRequests, Window: cfg.RateLimitWindow,
		},
		AuthRateLimit: middleware.RatePolicy{
			Name: "auth", Requests: cfg.AuthRateLimitRequests, Window: cfg.RateLimitWindow,
		},
	}, deps, logger)

	// Start blocks until SIGINT/SIGTERM; the deferred Stop and Close run
	// after in-flight requests have drained.
	return srv.Start()
}

func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (repository.Store, error) {
	switch cfg.StoreDriver {
	case config.DriverMongo:
		logger.Info("opening mongo store", slog.String("database", cfg.MongoDatabase))
		st, err := mongostore.Open(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		return st, nil
	default:
		dir := filepath.Dir(cfg.DBPath)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
		logger.Info("opening sqlite store", slog.String("path", cfg.DBPath))
		db, err := sqlite.New(cfg.DBPath)
		if err != nil {
			return nil, err
		}
		return db, nil
	}
}

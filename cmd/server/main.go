// Command server runs the Athena API: HTTP routes, the SQLite store and the
// background calendar sync.
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/kjarisk/athena/internal/auth"
	"github.com/kjarisk/athena/internal/calendar"
	"github.com/kjarisk/athena/internal/calendar/eventkit"
	"github.com/kjarisk/athena/internal/calendar/google"
	"github.com/kjarisk/athena/internal/config"
	"github.com/kjarisk/athena/internal/logging"
	"github.com/kjarisk/athena/internal/model"
	"github.com/kjarisk/athena/internal/progression"
	"github.com/kjarisk/athena/internal/reconcile"
	sqliteRepo "github.com/kjarisk/athena/internal/repository/sqlite"
	"github.com/kjarisk/athena/internal/scheduler"
	"github.com/kjarisk/athena/internal/server"
	"github.com/kjarisk/athena/internal/service"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "athena:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, closer, err := logging.New(logging.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		File:   cfg.Log.File,
	})
	if err != nil {
		return err
	}
	defer closer.Close()

	// SQLite creates the file but not its directory.
	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating database directory %s: %w", dir, err)
		}
	}

	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := context.Background()
	catalog := progression.Catalog()
	if err := db.SeedAchievements(ctx, catalog); err != nil {
		return err
	}

	secret := cfg.JWTSecret
	if secret == "" {
		secret, err = randomSecret()
		if err != nil {
			return err
		}
		logger.Warn("ATHENA_JWT_SECRET not set, using a random secret; sessions will not survive a restart")
	}
	tokens, err := auth.NewTokenService(secret)
	if err != nil {
		return err
	}

	factories := map[model.CalendarSource]calendar.Factory{
		model.SourceEventKit: eventkit.NewFactory(eventkit.Config{
			BaseURL: cfg.EventKit.URL,
			Window:  calendar.Window{PastDays: cfg.EventKit.PastDays, FutureDays: cfg.EventKit.FutureDays},
			Timeout: cfg.EventKit.Timeout,
		}),
	}

	var oauthProvider service.OAuthProvider
	if cfg.Google.Enabled() {
		gcfg := google.Config{
			ClientID:     cfg.Google.ClientID,
			ClientSecret: cfg.Google.ClientSecret,
			RedirectURL:  cfg.Google.RedirectURL,
			Window:       calendar.Window{PastDays: cfg.Google.PastDays, FutureDays: cfg.Google.FutureDays},
		}
		oauthCfg := gcfg.OAuthConfig()
		factories[model.SourceGoogle] = google.NewFactory(gcfg, oauthCfg, db)
		oauthProvider = auth.NewGoogleCalendarProvider(oauthCfg)
	} else {
		logger.Info("google calendar disabled: ATHENA_GOOGLE_CLIENT_ID/SECRET not set")
	}

	reconciler := reconcile.NewEngine(reconcile.Repositories{
		Users:       db,
		Events:      db,
		WorkAreas:   db,
		Employees:   db,
		Connections: db,
	}, calendar.NewResolver(db, factories), logger)

	runner := scheduler.NewRunner(db, reconciler, scheduler.Config{
		Interval:    cfg.SyncInterval,
		UserTimeout: scheduler.DefaultConfig().UserTimeout,
	}, logger)
	runner.Start()
	defer runner.Stop()

	srv := server.New(server.Config{
		Port:          cfg.Port,
		SecureCookies: cfg.SecureCookies,
	}, server.Deps{
		DB:          db,
		Tokens:      tokens,
		Passwords:   auth.NewPasswordService(),
		Reconcile:   reconciler,
		Progression: progression.NewEngine(db, catalog, logger),
		Google:      oauthProvider,
	}, logger)

	logger.Info("athena configured",
		slog.String("database", cfg.DBPath),
		slog.Bool("google", cfg.Google.Enabled()),
		slog.String("eventkit", cfg.EventKit.URL),
		slog.Duration("syncInterval", cfg.SyncInterval),
	)
	return srv.Start()
}

func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating jwt secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// Package scheduler runs calendar sync for every connected user on a fixed
// interval in the background.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/kjarisk/athena/internal/reconcile"
)

// UserLister yields the users that have at least one calendar connection.
type UserLister interface {
	ListUserIDsWithConnections(ctx context.Context) ([]string, error)
}

// Syncer syncs one user's calendars.
type Syncer interface {
	SyncAllCalendars(ctx context.Context, userID string) (reconcile.Report, error)
}

// Config controls the runner.
type Config struct {
	// Interval between passes. Zero or negative disables the runner.
	Interval time.Duration
	// UserTimeout bounds one user's sync.
	UserTimeout time.Duration
}

// DefaultConfig syncs every 15 minutes with a 2 minute budget per user.
func DefaultConfig() Config {
	return Config{
		Interval:    15 * time.Minute,
		UserTimeout: 2 * time.Minute,
	}
}

// Runner is the background sync loop.
type Runner struct {
	users  UserLister
	syncer Syncer
	config Config
	logger *slog.Logger

	done      chan struct{}
	wg        sync.WaitGroup
	startOnce sync.Once
	stopOnce  sync.Once
}

func NewRunner(users UserLister, syncer Syncer, cfg Config, logger *slog.Logger) *Runner {
	if cfg.UserTimeout <= 0 {
		cfg.UserTimeout = DefaultConfig().UserTimeout
	}
	return &Runner{
		users:  users,
		syncer: syncer,
		config: cfg,
		logger: logger,
		done:   make(chan struct{}),
	}
}

// Start launches the loop once. It is a no-op when the interval is not
// positive.
func (r *Runner) Start() {
	if r.config.Interval <= 0 {
		r.logger.Info("periodic calendar sync disabled")
		return
	}
	r.startOnce.Do(func() {
		r.logger.Info("starting periodic calendar sync", slog.Duration("interval", r.config.Interval))
		r.wg.Add(1)
		go r.loop()
	})
}

// Stop ends the loop and waits for an in-flight pass to finish.
func (r *Runner) Stop() {
	r.stopOnce.Do(func() {
		r.logger.Info("stopping periodic calendar sync")
		close(r.done)
	})
	r.wg.Wait()
}

func (r *Runner) loop() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.done:
			return
		case <-ticker.C:
			r.RunOnce()
		}
	}
}

// RunOnce syncs every connected user sequentially. A failing user is
// logged and the pass moves on. It stops early if the runner is stopped.
func (r *Runner) RunOnce() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-r.done:
			cancel()
		case <-ctx.Done():
		}
	}()

	ids, err := r.users.ListUserIDsWithConnections(ctx)
	if err != nil {
		r.logger.Error("listing users for sync", slog.String("error", err.Error()))
		return
	}

	start := time.Now()
	failed := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			return
		}
		userCtx, cancelUser := context.WithTimeout(ctx, r.config.UserTimeout)
		_, err := r.syncer.SyncAllCalendars(userCtx, id)
		cancelUser()
		if err != nil {
			failed++
			r.logger.Error("scheduled sync failed", slog.String("user_id", id), slog.String("error", err.Error()))
		}
	}

	r.logger.Info("scheduled sync pass complete",
		slog.Int("users", len(ids)),
		slog.Int("failed", failed),
		slog.Duration("took", time.Since(start)))
}

// Package server assembles handlers, middleware and routes into the HTTP
// server and runs it with graceful shutdown.
//
// The dependency graph is built in cmd/server and handed over as Deps;
// New only wires services to handlers to routes.
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

	"github.com/kjarisk/athena/internal/auth"
	"github.com/kjarisk/athena/internal/handler"
	"github.com/kjarisk/athena/internal/middleware"
	"github.com/kjarisk/athena/internal/progression"
	"github.com/kjarisk/athena/internal/reconcile"
	sqliteRepo "github.com/kjarisk/athena/internal/repository/sqlite"
	"github.com/kjarisk/athena/internal/service"
)

type Config struct {
	Port          int
	SecureCookies bool
}

// Deps are the long-lived components the routes need. Google is nil when
// Google Calendar is not configured.
type Deps struct {
	DB          *sqliteRepo.DB
	Tokens      *auth.TokenService
	Passwords   *auth.PasswordService
	Reconcile   *reconcile.Engine
	Progression *progression.Engine
	Google      service.OAuthProvider
}

type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
}

func New(cfg Config, deps Deps, logger *slog.Logger) *Server {
	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
	}
	s.setupRoutes(deps)
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes registers every route. Middleware order: RequestID first so
// the access log can read it, Recoverer last so panics are still logged.
//
//	GET    /healthz
//	POST   /auth/register | /auth/login | /auth/logout
//	GET    /auth/google/callback                    (session required)
//	GET    /api/me
//	GET    /api/events              POST /api/events
//	GET    /api/events/{id}         PATCH, DELETE /api/events/{id}
//	GET    /api/work-areas          POST /api/work-areas
//	PATCH  /api/work-areas/{id}     DELETE /api/work-areas/{id}
//	PUT    /api/work-areas/{id}/employees
//	GET    /api/employees           POST /api/employees
//	DELETE /api/employees/{id}
//	GET    /api/employees/{id}/one-on-ones          POST (+XP)
//	GET    /api/workshops           POST /api/workshops (+XP)
//	GET    /api/actions             POST /api/actions
//	POST   /api/actions/{id}/complete               (+XP)
//	GET    /api/gamification        GET /api/achievements
//	POST   /api/achievements/check
//	POST   /api/calendar/sync       GET /api/calendar/sync/status
//	GET    /api/calendar/google/connect
//	POST   /api/calendar/eventkit   DELETE /api/calendar/connections/{id}
func (s *Server) setupRoutes(deps Deps) {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	db := deps.DB
	authSvc := service.NewAuthService(db, deps.Tokens, deps.Passwords, s.logger)
	eventSvc := service.NewEventService(db, db, deps.Progression, s.logger)
	areaSvc := service.NewWorkAreaService(db, s.logger)
	employeeSvc := service.NewEmployeeService(db, deps.Progression, s.logger)
	actionSvc := service.NewActionService(db, db, deps.Progression, s.logger)
	calendarSvc := service.NewCalendarService(db, db, deps.Reconcile, deps.Google, s.logger)

	authH := handler.NewAuthHandler(authSvc, deps.Tokens.TTL(), s.config.SecureCookies, s.logger)
	eventH := handler.NewEventHandler(eventSvc, s.logger)
	areaH := handler.NewWorkAreaHandler(areaSvc, s.logger)
	employeeH := handler.NewEmployeeHandler(employeeSvc, s.logger)
	actionH := handler.NewActionHandler(actionSvc, s.logger)
	gameH := handler.NewGamificationHandler(deps.Progression, s.logger)
	calendarH := handler.NewCalendarHandler(calendarSvc, s.config.SecureCookies, s.logger)
	healthH := handler.NewHealthHandler(db, s.logger)

	requireAuth := auth.RequireAuth(deps.Tokens)

	s.router.Get("/healthz", healthH.HandleHealth)

	s.router.Route("/auth", func(r chi.Router) {
		r.Post("/register", authH.HandleRegister)
		r.Post("/login", authH.HandleLogin)
		r.Post("/logout", authH.HandleLogout)
		// The browser comes back from Google with the session cookie.
		r.With(requireAuth).Get("/google/callback", calendarH.HandleGoogleCallback)
	})

	s.router.Route("/api", func(r chi.Router) {
		r.Use(requireAuth)

		r.Get("/me", authH.HandleMe)

		r.Route("/events", func(r chi.Router) {
			r.Get("/", eventH.HandleList)
			r.Post("/", eventH.HandleCreate)
			r.Get("/{id}", eventH.HandleGet)
			r.Patch("/{id}", eventH.HandleUpdate)
			r.Delete("/{id}", eventH.HandleDelete)
		})

		r.Route("/work-areas", func(r chi.Router) {
			r.Get("/", areaH.HandleList)
			r.Post("/", areaH.HandleCreate)
			r.Patch("/{id}", areaH.HandleUpdate)
			r.Delete("/{id}", areaH.HandleDelete)
			r.Put("/{id}/employees", areaH.HandleSetEmployees)
		})

		r.Route("/employees", func(r chi.Router) {
			r.Get("/", employeeH.HandleList)
			r.Post("/", employeeH.HandleCreate)
			r.Delete("/{id}", employeeH.HandleDelete)
			r.Get("/{id}/one-on-ones", employeeH.HandleListOneOnOnes)
			r.Post("/{id}/one-on-ones", employeeH.HandleLogOneOnOne)
		})

		r.Get("/workshops", employeeH.HandleListWorkshops)
		r.Post("/workshops", employeeH.HandleCreateWorkshop)

		r.Route("/actions", func(r chi.Router) {
			r.Get("/", actionH.HandleList)
			r.Post("/", actionH.HandleCreate)
			r.Post("/{id}/complete", actionH.HandleComplete)
		})

		r.Get("/gamification", gameH.HandleStats)
		r.Get("/achievements", gameH.HandleAchievements)
		r.Post("/achievements/check", gameH.HandleCheck)

		r.Route("/calendar", func(r chi.Router) {
			r.Post("/sync", calendarH.HandleSync)
			r.Get("/sync/status", calendarH.HandleStatus)
			r.Get("/google/connect", calendarH.HandleGoogleConnect)
			r.Post("/eventkit", calendarH.HandleEventKitConnect)
			r.Delete("/connections/{id}", calendarH.HandleDeleteConnection)
		})
	})
}

// Start serves until SIGINT/SIGTERM, then drains in-flight requests for up
// to 30 seconds. Closing the database is left to the caller.
func (s *Server) Start() error {
	// A full Google sync can take a while, so the write timeout is generous.
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
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

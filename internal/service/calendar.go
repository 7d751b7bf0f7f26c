package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/kjarisk/athena/internal/apperror"
	"github.com/kjarisk/athena/internal/model"
	"github.com/kjarisk/athena/internal/reconcile"
	"github.com/kjarisk/athena/internal/repository"
)

// Syncer runs a reconciliation pass for one user.
type Syncer interface {
	SyncAllCalendars(ctx context.Context, userID string) (reconcile.Report, error)
}

// OAuthProvider is the consent flow used to connect Google Calendar.
type OAuthProvider interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
}

// CalendarService manages calendar connections and triggers syncs.
type CalendarService struct {
	users  repository.UserRepository
	conns  repository.ConnectionRepository
	syncer Syncer
	google OAuthProvider // nil when Google is not configured
	logger *slog.Logger
}

func NewCalendarService(
	users repository.UserRepository,
	conns repository.ConnectionRepository,
	syncer Syncer,
	google OAuthProvider,
	logger *slog.Logger,
) *CalendarService {
	return &CalendarService{
		users:  users,
		conns:  conns,
		syncer: syncer,
		google: google,
		logger: logger,
	}
}

// SyncStatus is the user's overall and per-connection sync state.
type SyncStatus struct {
	LastSyncedAt *time.Time                 `json:"lastSyncedAt,omitempty"`
	Connections  []model.CalendarConnection `json:"connections"`
}

// Sync reconciles every connected calendar of the user.
func (s *CalendarService) Sync(ctx context.Context, userID string) (reconcile.Report, error) {
	report, err := s.syncer.SyncAllCalendars(ctx, userID)
	if err != nil {
		return reconcile.Report{}, fmt.Errorf("syncing calendars: %w", err)
	}
	return report, nil
}

func (s *CalendarService) Status(ctx context.Context, userID string) (*SyncStatus, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	conns, err := s.conns.ListConnections(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing connections: %w", err)
	}
	if conns == nil {
		conns = []model.CalendarConnection{}
	}
	return &SyncStatus{LastSyncedAt: user.LastSyncedAt, Connections: conns}, nil
}

// GoogleAuthURL returns the consent page for connecting Google Calendar.
func (s *CalendarService) GoogleAuthURL(state string) (string, error) {
	if s.google == nil {
		return "", apperror.ValidationFailed("source", "google calendar is not configured")
	}
	return s.google.AuthURL(state), nil
}

// ConnectGoogle exchanges the consent code and stores the tokens. A
// reconnect replaces the previous tokens of the user's Google connection.
func (s *CalendarService) ConnectGoogle(ctx context.Context, userID, code string) (*model.CalendarConnection, error) {
	if s.google == nil {
		return nil, apperror.ValidationFailed("source", "google calendar is not configured")
	}
	if strings.TrimSpace(code) == "" {
		return nil, apperror.ValidationFailed("code", "authorization code is required")
	}

	tok, err := s.google.Exchange(ctx, code)
	if err != nil {
		return nil, apperror.Unauthorized("google authorization failed")
	}

	conn := &model.CalendarConnection{
		UserID:       userID,
		Source:       model.SourceGoogle,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		CalendarName: "primary",
	}
	if !tok.Expiry.IsZero() {
		expiry := tok.Expiry
		conn.TokenExpiry = &expiry
	}
	if err := s.conns.SaveConnection(ctx, conn); err != nil {
		return nil, fmt.Errorf("saving google connection: %w", err)
	}

	s.logger.Info("google calendar connected",
		slog.String("userID", userID),
		slog.Bool("refreshToken", tok.RefreshToken != ""),
	)
	return conn, nil
}

// ConnectEventKit registers a calendar exposed by the local helper.
func (s *CalendarService) ConnectEventKit(ctx context.Context, userID, calendarName string) (*model.CalendarConnection, error) {
	calendarName = strings.TrimSpace(calendarName)
	if calendarName == "" {
		return nil, apperror.ValidationFailed("calendarName", "calendar name is required")
	}

	conn := &model.CalendarConnection{
		UserID:       userID,
		Source:       model.SourceEventKit,
		CalendarName: calendarName,
	}
	if err := s.conns.SaveConnection(ctx, conn); err != nil {
		return nil, fmt.Errorf("saving eventkit connection: %w", err)
	}

	s.logger.Info("eventkit calendar connected",
		slog.String("userID", userID),
		slog.String("calendar", calendarName),
	)
	return conn, nil
}

// DeleteConnection disconnects a source. Events already synced stay.
func (s *CalendarService) DeleteConnection(ctx context.Context, userID, id string) error {
	if err := s.conns.DeleteConnection(ctx, userID, id); err != nil {
		return err
	}
	s.logger.Info("calendar disconnected", slog.String("userID", userID), slog.String("connectionID", id))
	return nil
}

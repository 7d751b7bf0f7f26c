// Package repository declares the storage contracts the services and engines
// depend on. internal/repository/sqlite is the production implementation;
// tests substitute in-memory fakes.
package repository

import (
	"context"
	"time"

	"github.com/kjarisk/athena/internal/model"
)

type ListOptions struct {
	Limit  int
	Offset int
}

// EventRange bounds an event listing by start time. Zero values are open.
type EventRange struct {
	From time.Time
	To   time.Time
}

type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	SetLastSynced(ctx context.Context, userID string, at time.Time) error
	// ListUserIDsWithConnections returns users that have at least one
	// calendar connection, for the periodic sync runner.
	ListUserIDsWithConnections(ctx context.Context) ([]string, error)
}

type EventRepository interface {
	// FindBySourceExternalID returns apperror.ErrNotFound when no row exists.
	FindBySourceExternalID(ctx context.Context, userID string, source model.CalendarSource, externalID string) (*model.Event, error)
	// UpsertSynced inserts or updates a synced event keyed on
	// (user, source, external id). It only writes the fields sync owns and
	// reports whether a new row was inserted.
	UpsertSynced(ctx context.Context, event *model.Event) (bool, error)
	CreateEvent(ctx context.Context, event *model.Event) error
	GetEvent(ctx context.Context, userID, id string) (*model.Event, error)
	ListEvents(ctx context.Context, userID string, r EventRange) ([]model.Event, error)
	UpdateEvent(ctx context.Context, event *model.Event) error
	DeleteEvent(ctx context.Context, userID, id string) error
}

type WorkAreaRepository interface {
	CreateWorkArea(ctx context.Context, area *model.WorkArea) error
	GetWorkArea(ctx context.Context, userID, id string) (*model.WorkArea, error)
	// ListWorkAreas returns areas in creation order, hidden ones included.
	ListWorkAreas(ctx context.Context, userID string) ([]model.WorkArea, error)
	UpdateWorkArea(ctx context.Context, area *model.WorkArea) error
	DeleteWorkArea(ctx context.Context, userID, id string) error
	SetWorkAreaEmployees(ctx context.Context, userID, areaID string, employeeIDs []string) error
}

type EmployeeRepository interface {
	CreateEmployee(ctx context.Context, e *model.Employee) error
	GetEmployee(ctx context.Context, userID, id string) (*model.Employee, error)
	ListEmployees(ctx context.Context, userID string) ([]model.Employee, error)
	DeleteEmployee(ctx context.Context, userID, id string) error
	CreateOneOnOne(ctx context.Context, o *model.OneOnOne) error
	ListOneOnOnes(ctx context.Context, userID, employeeID string) ([]model.OneOnOne, error)
	CreateWorkshop(ctx context.Context, w *model.Workshop) error
	ListWorkshops(ctx context.Context, userID string) ([]model.Workshop, error)
}

type ActionRepository interface {
	CreateAction(ctx context.Context, a *model.Action) error
	GetAction(ctx context.Context, userID, id string) (*model.Action, error)
	ListActions(ctx context.Context, userID string, status model.ActionStatus, opts ListOptions) ([]model.Action, error)
	// CompleteAction marks an open action done. It returns
	// apperror.ErrConflict when the action is already done.
	CompleteAction(ctx context.Context, userID, id string, at time.Time) (*model.Action, error)
}

type ConnectionRepository interface {
	// SaveConnection inserts or replaces the connection for (user, source).
	SaveConnection(ctx context.Context, c *model.CalendarConnection) error
	ListConnections(ctx context.Context, userID string) ([]model.CalendarConnection, error)
	DeleteConnection(ctx context.Context, userID, id string) error
	UpdateToken(ctx context.Context, id, accessToken string, expiry time.Time) error
	RecordSyncResult(ctx context.Context, id string, at time.Time, syncErr error) error
}

// GamificationRepository persists progression state. UpdateStats runs fn
// inside one transaction so load-modify-store cannot lose updates.
type GamificationRepository interface {
	GetStats(ctx context.Context, userID string) (model.GamificationStats, error)
	UpdateStats(ctx context.Context, userID, reason string, amount int, fn func(*model.GamificationStats) error) (model.GamificationStats, error)
	// UnlockAchievement records the unlock and reports whether the row is
	// new. A second unlock of the same pair returns false, nil.
	UnlockAchievement(ctx context.Context, userID, achievementID string, at time.Time) (bool, error)
	UnlockedAchievementIDs(ctx context.Context, userID string) (map[string]bool, error)
	// CountMetric reads a persisted count for achievement predicates.
	CountMetric(ctx context.Context, userID string, metric model.Metric) (int, error)
}

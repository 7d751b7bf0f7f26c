package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/kjarisk/athena/internal/apperror"
	"github.com/kjarisk/athena/internal/model"
	"github.com/kjarisk/athena/internal/progression"
	"github.com/kjarisk/athena/internal/repository"
)

// EmployeeService manages the people a user leads and the leadership
// activities around them. Logging one-on-ones and workshops awards XP.
type EmployeeService struct {
	repo        repository.EmployeeRepository
	progression Progression
	logger      *slog.Logger
	now         func() time.Time
}

func NewEmployeeService(repo repository.EmployeeRepository, progression Progression, logger *slog.Logger) *EmployeeService {
	return &EmployeeService{repo: repo, progression: progression, logger: logger, now: time.Now}
}

type NewEmployee struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type NewOneOnOne struct {
	HeldAt *time.Time `json:"heldAt"`
	Notes  string     `json:"notes"`
}

type NewWorkshop struct {
	Title        string     `json:"title"`
	HeldAt       *time.Time `json:"heldAt"`
	Participants int        `json:"participants"`
}

type OneOnOneResult struct {
	OneOnOne *model.OneOnOne `json:"oneOnOne"`
	Reward   Reward          `json:"reward"`
}

type WorkshopResult struct {
	Workshop *model.Workshop `json:"workshop"`
	Reward   Reward          `json:"reward"`
}

func (s *EmployeeService) List(ctx context.Context, userID string) ([]model.Employee, error) {
	return s.repo.ListEmployees(ctx, userID)
}

func (s *EmployeeService) Create(ctx context.Context, userID string, in NewEmployee) (*model.Employee, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperror.ValidationFailed("name", "employee name is required")
	}
	if len(name) > MaxNameLength {
		return nil, apperror.ValidationFailed("name",
			fmt.Sprintf("employee name must be %d characters or less", MaxNameLength))
	}
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			return nil, apperror.ValidationFailed("email", "invalid email address")
		}
	}

	e := &model.Employee{
		UserID: userID,
		Name:   name,
		Email:  email,
		Role:   strings.TrimSpace(in.Role),
	}
	if err := s.repo.CreateEmployee(ctx, e); err != nil {
		return nil, fmt.Errorf("creating employee: %w", err)
	}
	s.logger.Info("employee added", slog.String("userID", userID), slog.String("employeeID", e.ID))

	if _, err := s.progression.CheckAchievements(ctx, userID); err != nil {
		s.logger.Error("achievement check failed",
			slog.String("userID", userID),
			slog.String("error", err.Error()),
		)
	}
	return e, nil
}

func (s *EmployeeService) Delete(ctx context.Context, userID, id string) error {
	return s.repo.DeleteEmployee(ctx, userID, id)
}

// LogOneOnOne records a one-on-one with one of the user's employees and
// awards progression.XPOneOnOne.
func (s *EmployeeService) LogOneOnOne(ctx context.Context, userID, employeeID string, in NewOneOnOne) (*OneOnOneResult, error) {
	if _, err := s.repo.GetEmployee(ctx, userID, employeeID); err != nil {
		return nil, err
	}

	o := &model.OneOnOne{
		UserID:     userID,
		EmployeeID: employeeID,
		HeldAt:     s.heldAt(in.HeldAt),
		Notes:      in.Notes,
	}
	if err := s.repo.CreateOneOnOne(ctx, o); err != nil {
		return nil, fmt.Errorf("logging one-on-one: %w", err)
	}

	reward, err := award(ctx, s.progression, s.logger, userID, progression.XPOneOnOne, "one_on_one")
	if err != nil {
		return nil, err
	}
	return &OneOnOneResult{OneOnOne: o, Reward: reward}, nil
}

func (s *EmployeeService) ListOneOnOnes(ctx context.Context, userID, employeeID string) ([]model.OneOnOne, error) {
	if _, err := s.repo.GetEmployee(ctx, userID, employeeID); err != nil {
		return nil, err
	}
	return s.repo.ListOneOnOnes(ctx, userID, employeeID)
}

// CreateWorkshop records a hosted workshop and awards progression.XPWorkshop.
func (s *EmployeeService) CreateWorkshop(ctx context.Context, userID string, in NewWorkshop) (*WorkshopResult, error) {
	title, err := validTitle(in.Title)
	if err != nil {
		return nil, err
	}
	if in.Participants < 0 {
		return nil, apperror.ValidationFailed("participants", "participants must not be negative")
	}

	w := &model.Workshop{
		UserID:       userID,
		Title:        title,
		HeldAt:       s.heldAt(in.HeldAt),
		Participants: in.Participants,
	}
	if err := s.repo.CreateWorkshop(ctx, w); err != nil {
		return nil, fmt.Errorf("creating workshop: %w", err)
	}

	reward, err := award(ctx, s.progression, s.logger, userID, progression.XPWorkshop, "workshop")
	if err != nil {
		return nil, err
	}
	return &WorkshopResult{Workshop: w, Reward: reward}, nil
}

func (s *EmployeeService) ListWorkshops(ctx context.Context, userID string) ([]model.Workshop, error) {
	return s.repo.ListWorkshops(ctx, userID)
}

func (s *EmployeeService) heldAt(t *time.Time) time.Time {
	if t == nil || t.IsZero() {
		return s.now()
	}
	return *t
}

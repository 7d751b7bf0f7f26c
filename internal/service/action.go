package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kjarisk/athena/internal/apperror"
	"github.com/kjarisk/athena/internal/model"
	"github.com/kjarisk/athena/internal/progression"
	"github.com/kjarisk/athena/internal/repository"
)

// ActionService manages follow-up tasks. Completing one is the main XP
// source of the dashboard.
type ActionService struct {
	actions     repository.ActionRepository
	workAreas   repository.WorkAreaRepository
	progression Progression
	logger      *slog.Logger
	now         func() time.Time
}

func NewActionService(
	actions repository.ActionRepository,
	workAreas repository.WorkAreaRepository,
	progression Progression,
	logger *slog.Logger,
) *ActionService {
	return &ActionService{
		actions:     actions,
		workAreas:   workAreas,
		progression: progression,
		logger:      logger,
		now:         time.Now,
	}
}

type NewAction struct {
	Title       string               `json:"title"`
	Description string               `json:"description"`
	Priority    model.ActionPriority `json:"priority"`
	EventID     *string              `json:"eventId"`
	WorkAreaID  *string              `json:"workAreaId"`
	DueAt       *time.Time           `json:"dueAt"`
}

type CompletionResult struct {
	Action *model.Action `json:"action"`
	Reward Reward        `json:"reward"`
}

// List returns actions newest first. status is "", "open" or "done".
func (s *ActionService) List(ctx context.Context, userID string, status string, limit, offset int) ([]model.Action, error) {
	st := model.ActionStatus(strings.TrimSpace(status))
	switch st {
	case "", model.ActionOpen, model.ActionDone:
	default:
		return nil, apperror.ValidationFailed("status", "status must be open or done")
	}
	if offset < 0 {
		offset = 0
	}
	return s.actions.ListActions(ctx, userID, st, repository.ListOptions{Limit: limit, Offset: offset})
}

// Create adds an open action. When it references an event, that event no
// longer needs an action.
func (s *ActionService) Create(ctx context.Context, userID string, in NewAction) (*model.Action, error) {
	title, err := validTitle(in.Title)
	if err != nil {
		return nil, err
	}

	priority := in.Priority
	switch priority {
	case "":
		priority = model.PriorityMedium
	case model.PriorityLow, model.PriorityMedium, model.PriorityHigh:
	default:
		return nil, apperror.ValidationFailed("priority", "priority must be low, medium or high")
	}

	a := &model.Action{
		UserID:      userID,
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		Priority:    priority,
		DueAt:       in.DueAt,
	}
	if in.EventID != nil && strings.TrimSpace(*in.EventID) != "" {
		id := strings.TrimSpace(*in.EventID)
		a.EventID = &id
	}
	if in.WorkAreaID != nil && strings.TrimSpace(*in.WorkAreaID) != "" {
		area, err := s.workAreas.GetWorkArea(ctx, userID, strings.TrimSpace(*in.WorkAreaID))
		if err != nil {
			if errors.Is(err, apperror.ErrNotFound) {
				return nil, apperror.ValidationFailed("workAreaId", "unknown work area "+*in.WorkAreaID)
			}
			return nil, err
		}
		a.WorkAreaID = &area.ID
	}

	if err := s.actions.CreateAction(ctx, a); err != nil {
		return nil, fmt.Errorf("creating action: %w", err)
	}
	s.logger.Info("action created",
		slog.String("userID", userID),
		slog.String("actionID", a.ID),
		slog.String("priority", string(a.Priority)),
	)
	return a, nil
}

// Complete marks the action done, awards XP by priority and checks
// achievements. Completing an action twice is a conflict and awards nothing.
func (s *ActionService) Complete(ctx context.Context, userID, id string) (*CompletionResult, error) {
	a, err := s.actions.CompleteAction(ctx, userID, id, s.now())
	if err != nil {
		return nil, err
	}

	reward, err := award(ctx, s.progression, s.logger, userID,
		progression.ActionXP(a.Priority), "action_completed:"+string(a.Priority))
	if err != nil {
		return nil, err
	}

	s.logger.Info("action completed",
		slog.String("userID", userID),
		slog.String("actionID", id),
		slog.Int("totalXp", reward.XP.TotalXP),
		slog.Bool("leveledUp", reward.XP.LeveledUp),
	)
	return &CompletionResult{Action: a, Reward: reward}, nil
}

package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kjarisk/athena/internal/apperror"
	"github.com/kjarisk/athena/internal/model"
	"github.com/kjarisk/athena/internal/repository"
)

type WorkAreaService struct {
	repo   repository.WorkAreaRepository
	logger *slog.Logger
}

func NewWorkAreaService(repo repository.WorkAreaRepository, logger *slog.Logger) *WorkAreaService {
	return &WorkAreaService{repo: repo, logger: logger}
}

// WorkAreaInput is used for create; on update nil fields keep their value.
type WorkAreaInput struct {
	Name        *string `json:"name"`
	Color       *string `json:"color"`
	Icon        *string `json:"icon"`
	Hidden      *bool   `json:"hidden"`
	SortOrder   *int    `json:"sortOrder"`
	Description *string `json:"description"`
}

func (s *WorkAreaService) List(ctx context.Context, userID string) ([]model.WorkArea, error) {
	return s.repo.ListWorkAreas(ctx, userID)
}

func (s *WorkAreaService) Get(ctx context.Context, userID, id string) (*model.WorkArea, error) {
	return s.repo.GetWorkArea(ctx, userID, id)
}

func (s *WorkAreaService) Create(ctx context.Context, userID string, in WorkAreaInput) (*model.WorkArea, error) {
	if in.Name == nil {
		return nil, apperror.ValidationFailed("name", "work area name is required")
	}
	area := &model.WorkArea{UserID: userID}
	if err := applyWorkArea(area, in); err != nil {
		return nil, err
	}

	if err := s.repo.CreateWorkArea(ctx, area); err != nil {
		return nil, fmt.Errorf("creating work area: %w", err)
	}
	s.logger.Info("work area created",
		slog.String("userID", userID),
		slog.String("workAreaID", area.ID),
		slog.String("name", area.Name),
	)
	return area, nil
}

func (s *WorkAreaService) Update(ctx context.Context, userID, id string, in WorkAreaInput) (*model.WorkArea, error) {
	area, err := s.repo.GetWorkArea(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if err := applyWorkArea(area, in); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateWorkArea(ctx, area); err != nil {
		return nil, fmt.Errorf("updating work area %s: %w", id, err)
	}
	return area, nil
}

// Delete removes the area. Events tagged with it become untagged.
func (s *WorkAreaService) Delete(ctx context.Context, userID, id string) error {
	if err := s.repo.DeleteWorkArea(ctx, userID, id); err != nil {
		return err
	}
	s.logger.Info("work area deleted", slog.String("userID", userID), slog.String("workAreaID", id))
	return nil
}

// SetEmployees replaces the employees linked to an area. Duplicates are
// dropped; every ID must belong to the user.
func (s *WorkAreaService) SetEmployees(ctx context.Context, userID, id string, employeeIDs []string) (*model.WorkArea, error) {
	seen := make(map[string]bool, len(employeeIDs))
	ids := make([]string, 0, len(employeeIDs))
	for _, e := range employeeIDs {
		e = strings.TrimSpace(e)
		if e == "" || seen[e] {
			continue
		}
		seen[e] = true
		ids = append(ids, e)
	}

	if err := s.repo.SetWorkAreaEmployees(ctx, userID, id, ids); err != nil {
		return nil, err
	}
	return s.repo.GetWorkArea(ctx, userID, id)
}

func applyWorkArea(area *model.WorkArea, in WorkAreaInput) error {
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return apperror.ValidationFailed("name", "work area name is required")
		}
		if len(name) > MaxNameLength {
			return apperror.ValidationFailed("name",
				fmt.Sprintf("work area name must be %d characters or less", MaxNameLength))
		}
		area.Name = name
	}
	if in.Color != nil {
		area.Color = strings.TrimSpace(*in.Color)
	}
	if in.Icon != nil {
		area.Icon = strings.TrimSpace(*in.Icon)
	}
	if in.Hidden != nil {
		area.Hidden = *in.Hidden
	}
	if in.SortOrder != nil {
		area.SortOrder = *in.SortOrder
	}
	if in.Description != nil {
		area.Description = strings.TrimSpace(*in.Description)
	}
	return nil
}

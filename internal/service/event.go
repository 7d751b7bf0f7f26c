package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kjarisk/athena/internal/apperror"
	"github.com/kjarisk/athena/internal/model"
	"github.com/kjarisk/athena/internal/repository"
)

// DefaultManualEventDuration applies when a manual event has no end.
const DefaultManualEventDuration = time.Hour

// EventService manages events on behalf of the user. Synced events are
// written by the reconcile engine; this service only edits the fields the
// user owns and records manual events.
type EventService struct {
	events      repository.EventRepository
	workAreas   repository.WorkAreaRepository
	progression Progression
	logger      *slog.Logger
}

func NewEventService(
	events repository.EventRepository,
	workAreas repository.WorkAreaRepository,
	progression Progression,
	logger *slog.Logger,
) *EventService {
	return &EventService{
		events:      events,
		workAreas:   workAreas,
		progression: progression,
		logger:      logger,
	}
}

// NewEvent is the input for a manual event.
type NewEvent struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	RawNotes    string     `json:"rawNotes"`
	StartTime   time.Time  `json:"startTime"`
	EndTime     *time.Time `json:"endTime"`
	WorkAreaID  *string    `json:"workAreaId"`
}

// EventPatch carries the fields a user may edit. Nil fields are left
// untouched; an empty WorkAreaID clears the tag.
type EventPatch struct {
	Title       *string         `json:"title"`
	Description *string         `json:"description"`
	RawNotes    *string         `json:"rawNotes"`
	WorkAreaID  *string         `json:"workAreaId"`
	NeedsAction *bool           `json:"needsAction"`
	Extraction  json.RawMessage `json:"extraction"`
}

func (s *EventService) List(ctx context.Context, userID string, from, to time.Time) ([]model.Event, error) {
	if !from.IsZero() && !to.IsZero() && !to.After(from) {
		return nil, apperror.ValidationFailed("to", "to must be after from")
	}
	return s.events.ListEvents(ctx, userID, repository.EventRange{From: from, To: to})
}

func (s *EventService) Get(ctx context.Context, userID, id string) (*model.Event, error) {
	return s.events.GetEvent(ctx, userID, id)
}

// Create records a manual event. Manual events start out needing an action
// so they show up in the follow-up queue.
func (s *EventService) Create(ctx context.Context, userID string, in NewEvent) (*model.Event, error) {
	title, err := validTitle(in.Title)
	if err != nil {
		return nil, err
	}
	if in.StartTime.IsZero() {
		return nil, apperror.ValidationFailed("startTime", "start time is required")
	}

	end := in.StartTime.Add(DefaultManualEventDuration)
	if in.EndTime != nil {
		if in.EndTime.Before(in.StartTime) {
			return nil, apperror.ValidationFailed("endTime", "end time must not be before start time")
		}
		end = *in.EndTime
	}

	areaID, err := s.ownedArea(ctx, userID, in.WorkAreaID)
	if err != nil {
		return nil, err
	}

	event := &model.Event{
		UserID:      userID,
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		RawNotes:    in.RawNotes,
		StartTime:   in.StartTime,
		EndTime:     end,
		WorkAreaID:  areaID,
		Source:      model.SourceManual,
		NeedsAction: true,
	}
	if err := s.events.CreateEvent(ctx, event); err != nil {
		return nil, fmt.Errorf("creating event: %w", err)
	}

	s.logger.Info("manual event created",
		slog.String("userID", userID),
		slog.String("eventID", event.ID),
	)
	if areaID != nil {
		s.checkAchievements(ctx, userID)
	}
	return event, nil
}

// Update applies patch to one of the user's events.
func (s *EventService) Update(ctx context.Context, userID, id string, patch EventPatch) (*model.Event, error) {
	event, err := s.events.GetEvent(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if patch.Title != nil {
		title, err := validTitle(*patch.Title)
		if err != nil {
			return nil, err
		}
		event.Title = title
	}
	if patch.Description != nil {
		event.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.RawNotes != nil {
		event.RawNotes = *patch.RawNotes
	}
	if patch.NeedsAction != nil {
		event.NeedsAction = *patch.NeedsAction
	}
	if len(patch.Extraction) > 0 {
		if !json.Valid(patch.Extraction) {
			return nil, apperror.ValidationFailed("extraction", "extraction must be valid JSON")
		}
		event.Extraction = patch.Extraction
	}

	tagged := false
	if patch.WorkAreaID != nil {
		areaID, err := s.ownedArea(ctx, userID, patch.WorkAreaID)
		if err != nil {
			return nil, err
		}
		tagged = areaID != nil
		event.WorkAreaID = areaID
	}

	if err := s.events.UpdateEvent(ctx, event); err != nil {
		return nil, fmt.Errorf("updating event %s: %w", id, err)
	}
	if tagged {
		s.checkAchievements(ctx, userID)
	}
	return event, nil
}

func (s *EventService) Delete(ctx context.Context, userID, id string) error {
	if err := s.events.DeleteEvent(ctx, userID, id); err != nil {
		return err
	}
	s.logger.Info("event deleted", slog.String("userID", userID), slog.String("eventID", id))
	return nil
}

// ownedArea resolves an optional work area reference. An empty ID means no
// area; an ID the user does not own is a validation error.
func (s *EventService) ownedArea(ctx context.Context, userID string, id *string) (*string, error) {
	if id == nil || strings.TrimSpace(*id) == "" {
		return nil, nil
	}
	area, err := s.workAreas.GetWorkArea(ctx, userID, strings.TrimSpace(*id))
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.ValidationFailed("workAreaId", "unknown work area "+*id)
		}
		return nil, err
	}
	return &area.ID, nil
}

// checkAchievements runs after an event gets tagged; the organizer
// achievement counts tagged events.
func (s *EventService) checkAchievements(ctx context.Context, userID string) {
	if _, err := s.progression.CheckAchievements(ctx, userID); err != nil {
		s.logger.Error("achievement check failed",
			slog.String("userID", userID),
			slog.String("error", err.Error()),
		)
	}
}

func validTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", apperror.ValidationFailed("title", "title is required")
	}
	if len(title) > MaxTitleLength {
		return "", apperror.ValidationFailed("title",
			fmt.Sprintf("title must be %d characters or less", MaxTitleLength))
	}
	return title, nil
}

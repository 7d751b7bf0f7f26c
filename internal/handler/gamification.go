package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/kjarisk/athena/internal/progression"
)

// Progression is the read side of the progression engine plus the manual
// achievement check.
type Progression interface {
	Summary(ctx context.Context, userID string) (progression.Summary, error)
	Achievements(ctx context.Context, userID string) ([]progression.AchievementStatus, error)
	CheckAchievements(ctx context.Context, userID string) ([]string, error)
}

type GamificationHandler struct {
	engine Progression
	logger *slog.Logger
}

func NewGamificationHandler(engine Progression, logger *slog.Logger) *GamificationHandler {
	return &GamificationHandler{engine: engine, logger: logger}
}

// HandleStats serves GET /api/gamification.
func (h *GamificationHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	summary, err := h.engine.Summary(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// HandleAchievements serves GET /api/achievements: the whole catalog with
// unlocked flags.
func (h *GamificationHandler) HandleAchievements(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	list, err := h.engine.Achievements(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// HandleCheck serves POST /api/achievements/check.
func (h *GamificationHandler) HandleCheck(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	unlocked, err := h.engine.CheckAchievements(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	if unlocked == nil {
		unlocked = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"unlocked": unlocked})
}

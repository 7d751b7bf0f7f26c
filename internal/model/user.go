// Package model defines the data structures used throughout the application.
package model

import "time"

// User is the account that owns every other record. Gamification progress is
// embedded as a value object and only ever written through the progression
// engine.
type User struct {
	ID           string            `json:"id"`
	Email        string            `json:"email"`
	Name         string            `json:"name"`
	PasswordHash string            `json:"-"`
	LastSyncedAt *time.Time        `json:"lastSyncedAt,omitempty"`
	Gamification GamificationStats `json:"gamification"`
	CreatedAt    time.Time         `json:"createdAt"`
	UpdatedAt    time.Time         `json:"updatedAt"`
}

// GamificationStats is the per-user progression state.
//
// Level must always equal progression.CalculateLevel(TotalXP). CurrentXP is
// the experience earned inside the current level, i.e. TotalXP minus the
// threshold of Level.
type GamificationStats struct {
	Level          int        `json:"level"`
	TotalXP        int        `json:"totalXp"`
	CurrentXP      int        `json:"currentXp"`
	Streak         int        `json:"streak"`
	LongestStreak  int        `json:"longestStreak"`
	Achievements   []string   `json:"achievements"`
	LastActivityAt *time.Time `json:"lastActivityAt,omitempty"`
}

// NewGamificationStats returns the state every user starts with.
func NewGamificationStats() GamificationStats {
	return GamificationStats{Level: 1, Achievements: []string{}}
}

package model

import "time"

// ConditionKind classifies how an achievement's threshold is read.
type ConditionKind string

const (
	ConditionCount     ConditionKind = "count"
	ConditionStreak    ConditionKind = "streak"
	ConditionMilestone ConditionKind = "milestone"
)

// Metric names the persisted quantity an achievement condition reads.
type Metric string

const (
	MetricActionsCompleted Metric = "actions_completed"
	MetricEmployeesAdded   Metric = "employees_added"
	MetricOneOnOnesLogged  Metric = "one_on_ones_logged"
	MetricWorkshopsHosted  Metric = "workshops_hosted"
	MetricEventsTagged     Metric = "events_tagged"
	MetricCurrentStreak    Metric = "current_streak"
	MetricLevel            Metric = "level"
)

type Condition struct {
	Kind   ConditionKind `json:"kind"`
	Target int           `json:"target"`
	Metric Metric        `json:"metric"`
}

// Achievement is a statically defined unlockable. The catalog is
// configuration, not user data.
type Achievement struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Icon        string    `json:"icon"`
	XPReward    int       `json:"xpReward"`
	Condition   Condition `json:"condition"`
}

// UserAchievement records an unlock. At most one row per (user, achievement).
type UserAchievement struct {
	UserID        string    `json:"userId"`
	AchievementID string    `json:"achievementId"`
	UnlockedAt    time.Time `json:"unlockedAt"`
}

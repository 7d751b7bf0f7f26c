package model

import "time"

type ActionPriority string

const (
	PriorityLow    ActionPriority = "low"
	PriorityMedium ActionPriority = "medium"
	PriorityHigh   ActionPriority = "high"
)

type ActionStatus string

const (
	ActionOpen ActionStatus = "open"
	ActionDone ActionStatus = "done"
)

// Action is a follow-up task, optionally created from an event.
type Action struct {
	ID          string         `json:"id"`
	UserID      string         `json:"userId"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Priority    ActionPriority `json:"priority"`
	Status      ActionStatus   `json:"status"`
	EventID     *string        `json:"eventId,omitempty"`
	WorkAreaID  *string        `json:"workAreaId,omitempty"`
	DueAt       *time.Time     `json:"dueAt,omitempty"`
	CompletedAt *time.Time     `json:"completedAt,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

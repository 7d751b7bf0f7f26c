package model

import (
	"encoding/json"
	"time"
)

// CalendarSource tags where an Event came from.
type CalendarSource string

const (
	SourceGoogle   CalendarSource = "google"
	SourceEventKit CalendarSource = "eventkit"
	SourceManual   CalendarSource = "manual"
)

// Valid reports whether s is one of the known sources.
func (s CalendarSource) Valid() bool {
	switch s {
	case SourceGoogle, SourceEventKit, SourceManual:
		return true
	}
	return false
}

// Event is a calendar occurrence belonging to one user.
//
// For synced events (ExternalID != nil) at most one row exists per
// (UserID, Source, ExternalID); sync updates it in place.
//
// RawNotes, NeedsAction and Extraction are owned by the user and never
// overwritten by sync.
type Event struct {
	ID          string          `json:"id"`
	UserID      string          `json:"userId"`
	ExternalID  *string         `json:"externalId,omitempty"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	RawNotes    string          `json:"rawNotes"`
	StartTime   time.Time       `json:"startTime"`
	EndTime     time.Time       `json:"endTime"`
	WorkAreaID  *string         `json:"workAreaId,omitempty"`
	Source      CalendarSource  `json:"source"`
	Extraction  json.RawMessage `json:"extraction,omitempty"`
	NeedsAction bool            `json:"needsAction"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

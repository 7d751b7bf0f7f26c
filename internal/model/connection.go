package model

import "time"

// CalendarConnection is a user's link to one external calendar source.
// Google connections carry OAuth tokens; EventKit connections name a calendar
// exposed by the local helper. One connection per (user, source).
type CalendarConnection struct {
	ID           string         `json:"id"`
	UserID       string         `json:"userId"`
	Source       CalendarSource `json:"source"`
	AccessToken  string         `json:"-"`
	RefreshToken string         `json:"-"`
	TokenExpiry  *time.Time     `json:"tokenExpiry,omitempty"`
	CalendarName string         `json:"calendarName"`
	LastSyncedAt *time.Time     `json:"lastSyncedAt,omitempty"`
	LastError    string         `json:"lastError,omitempty"`
	CreatedAt    time.Time      `json:"createdAt"`
}

package model

import "time"

// WorkArea buckets effort by leadership responsibility ("Team Lead",
// "Competence Lead", ...). Names are unique per user.
type WorkArea struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	Name        string    `json:"name"`
	Color       string    `json:"color"`
	Icon        string    `json:"icon"`
	Hidden      bool      `json:"hidden"`
	SortOrder   int       `json:"sortOrder"`
	Description string    `json:"description"`
	EmployeeIDs []string  `json:"employeeIds"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Employee is a person the user leads. Email addresses drive the
// participant rule of work-area inference.
type Employee struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

// OneOnOne records a logged one-on-one meeting with an employee.
type OneOnOne struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	EmployeeID string    `json:"employeeId"`
	HeldAt     time.Time `json:"heldAt"`
	Notes      string    `json:"notes"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Workshop records a workshop hosted by the user.
type Workshop struct {
	ID           string    `json:"id"`
	UserID       string    `json:"userId"`
	Title        string    `json:"title"`
	HeldAt       time.Time `json:"heldAt"`
	Participants int       `json:"participants"`
	CreatedAt    time.Time `json:"createdAt"`
}

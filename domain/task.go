package domain

import "time"

// Priority of a task.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"

	// PriorityAll is a filter selection only; no task carries it.
	PriorityAll Priority = "all"
)

// Valid reports whether p is a priority a task may carry.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// ValidSelection reports whether p may be used as a filter selection.
func (p Priority) ValidSelection() bool {
	return p == PriorityAll || p.Valid()
}

// Task is a card placed in exactly one column.
type Task struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	ColumnID    string    `json:"columnId"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	Priority    Priority  `json:"priority"`
	Position    int       `json:"position"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// CreateTaskInput is what a caller supplies to create a task. The position is
// assigned by the task service.
type CreateTaskInput struct {
	UserID      string   `json:"userId"`
	ColumnID    string   `json:"columnId"`
	Title       string   `json:"title"`
	Description *string  `json:"description,omitempty"`
	Priority    Priority `json:"priority"`
}

// TaskUpdate carries the optional fields of a task update.
type TaskUpdate struct {
	Title       *string   `json:"title,omitempty"`
	Description *string   `json:"description,omitempty"`
	Priority    *Priority `json:"priority,omitempty"`
	ColumnID    *string   `json:"columnId,omitempty"`
	Position    *int      `json:"position,omitempty"`
}

// Empty reports whether the update changes nothing.
func (u TaskUpdate) Empty() bool {
	return u.Title == nil && u.Description == nil && u.Priority == nil && u.ColumnID == nil && u.Position == nil
}

// TaskFilters narrows a task listing. Zero values disable a filter.
type TaskFilters struct {
	SearchQuery string   `json:"searchQuery,omitempty"`
	Priority    Priority `json:"priority,omitempty"`
}

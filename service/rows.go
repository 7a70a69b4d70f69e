package service

import (
	"context"
	"time"

	"board-sync/domain"
)

// ColumnRow is a column as stored by the persistence backend.
type ColumnRow struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Position  int       `json:"position"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ColumnInsert holds the caller-supplied fields of a new column row.
type ColumnInsert struct {
	UserID   string `json:"user_id"`
	Name     string `json:"name"`
	Position int    `json:"position"`
}

// ColumnPatch holds the fields of a column row to overwrite.
type ColumnPatch struct {
	Name     *string `json:"name,omitempty"`
	Position *int    `json:"position,omitempty"`
}

// TaskRow is a task as stored by the persistence backend.
type TaskRow struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	ColumnID    string    `json:"column_id"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	Priority    string    `json:"priority"`
	Position    int       `json:"position"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TaskInsert holds the caller-supplied fields of a new task row.
type TaskInsert struct {
	UserID      string  `json:"user_id"`
	ColumnID    string  `json:"column_id"`
	Title       string  `json:"title"`
	Description *string `json:"description"`
	Priority    string  `json:"priority"`
	Position    int     `json:"position"`
}

// TaskPatch holds the fields of a task row to overwrite.
type TaskPatch struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Priority    *string `json:"priority,omitempty"`
	ColumnID    *string `json:"column_id,omitempty"`
	Position    *int    `json:"position,omitempty"`
}

// TaskQuery selects a user's tasks. Search is a case-insensitive substring
// match on title or description; Priority is an equality filter. Empty
// fields do not filter. Results are ordered by position.
type TaskQuery struct {
	UserID   string
	Search   string
	Priority string
}

// ColumnTable is the persistence boundary for columns. ListColumns returns
// rows ordered by position ascending.
type ColumnTable interface {
	ListColumns(ctx context.Context, userID string) ([]ColumnRow, error)
	InsertColumn(ctx context.Context, row ColumnInsert) (ColumnRow, error)
	UpdateColumn(ctx context.Context, id string, patch ColumnPatch) (ColumnRow, error)
	DeleteColumn(ctx context.Context, id string) error
}

// TaskTable is the persistence boundary for tasks. MaxTaskPosition reports
// found=false for an empty column.
type TaskTable interface {
	ListTasks(ctx context.Context, q TaskQuery) ([]TaskRow, error)
	MaxTaskPosition(ctx context.Context, columnID string) (pos int, found bool, err error)
	InsertTask(ctx context.Context, row TaskInsert) (TaskRow, error)
	UpdateTask(ctx context.Context, id string, patch TaskPatch) (TaskRow, error)
	DeleteTask(ctx context.Context, id string) error
}

func columnFromRow(r ColumnRow) domain.Column {
	return domain.Column{
		ID:        r.ID,
		UserID:    r.UserID,
		Name:      r.Name,
		Position:  r.Position,
		CreatedAt: r.CreatedAt,
	}
}

func columnsFromRows(rows []ColumnRow) []domain.Column {
	out := make([]domain.Column, 0, len(rows))
	for _, r := range rows {
		out = append(out, columnFromRow(r))
	}
	return out
}

func columnPatch(u domain.ColumnUpdate) ColumnPatch {
	return ColumnPatch{Name: u.Name, Position: u.Position}
}

// MatchesSearch reports whether the row's title or description contains
// query, ignoring case.
func (r TaskRow) MatchesSearch(query string) bool {
	return domain.Task{Title: r.Title, Description: r.Description}.MatchesSearch(query)
}

func taskFromRow(r TaskRow) domain.Task {
	return domain.Task{
		ID:          r.ID,
		UserID:      r.UserID,
		ColumnID:    r.ColumnID,
		Title:       r.Title,
		Description: r.Description,
		Priority:    domain.Priority(r.Priority),
		Position:    r.Position,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func tasksFromRows(rows []TaskRow) []domain.Task {
	out := make([]domain.Task, 0, len(rows))
	for _, r := range rows {
		out = append(out, taskFromRow(r))
	}
	return out
}

func taskPatch(u domain.TaskUpdate) TaskPatch {
	p := TaskPatch{
		Title:       u.Title,
		Description: u.Description,
		ColumnID:    u.ColumnID,
		Position:    u.Position,
	}
	if u.Priority != nil {
		pr := string(*u.Priority)
		p.Priority = &pr
	}
	return p
}

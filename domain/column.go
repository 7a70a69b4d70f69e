package domain

import "time"

// Column is one lane of a user's board. Position orders columns left to right.
type Column struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Name      string    `json:"name"`
	Position  int       `json:"position"`
	CreatedAt time.Time `json:"createdAt"`
}

// ColumnUpdate carries the optional fields of a column update.
type ColumnUpdate struct {
	Name     *string `json:"name,omitempty"`
	Position *int    `json:"position,omitempty"`
}

// Empty reports whether the update changes nothing.
func (u ColumnUpdate) Empty() bool {
	return u.Name == nil && u.Position == nil
}

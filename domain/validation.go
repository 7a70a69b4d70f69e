package domain

import (
	"strings"
	"unicode/utf8"
)

const (
	MaxColumnNameLength  = 100
	MaxTitleLength       = 200
	MaxDescriptionLength = 2000
)

// ValidateColumnName checks a column name is 1..100 characters and not blank.
func ValidateColumnName(name string) error {
	if strings.TrimSpace(name) == "" {
		return ValidationError("column name must not be empty")
	}
	if n := utf8.RuneCountInString(name); n > MaxColumnNameLength {
		return ValidationError("column name must be at most %d characters, got %d", MaxColumnNameLength, n)
	}
	return nil
}

// ValidateColumnUpdate checks the fields present in u.
func ValidateColumnUpdate(u ColumnUpdate) error {
	if u.Empty() {
		return ValidationError("column update has no fields")
	}
	if u.Name != nil {
		if err := ValidateColumnName(*u.Name); err != nil {
			return err
		}
	}
	if u.Position != nil && *u.Position < 0 {
		return ValidationError("column position must not be negative")
	}
	return nil
}

// ValidateCreateTask checks a task creation request.
func ValidateCreateTask(in CreateTaskInput) error {
	if in.UserID == "" {
		return ValidationError("user id is required")
	}
	if in.ColumnID == "" {
		return ValidationError("column id is required")
	}
	if err := validateTitle(in.Title); err != nil {
		return err
	}
	if in.Description != nil {
		if err := validateDescription(*in.Description); err != nil {
			return err
		}
	}
	if !in.Priority.Valid() {
		return ValidationError("priority must be one of low, medium, high")
	}
	return nil
}

// ValidateTaskUpdate checks the fields present in u.
func ValidateTaskUpdate(u TaskUpdate) error {
	if u.Empty() {
		return ValidationError("task update has no fields")
	}
	if u.Title != nil {
		if err := validateTitle(*u.Title); err != nil {
			return err
		}
	}
	if u.Description != nil {
		if err := validateDescription(*u.Description); err != nil {
			return err
		}
	}
	if u.Priority != nil && !u.Priority.Valid() {
		return ValidationError("priority must be one of low, medium, high")
	}
	if u.ColumnID != nil && *u.ColumnID == "" {
		return ValidationError("column id must not be empty")
	}
	if u.Position != nil && *u.Position < 0 {
		return ValidationError("task position must not be negative")
	}
	return nil
}

func validateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return ValidationError("title must not be empty")
	}
	if n := utf8.RuneCountInString(title); n > MaxTitleLength {
		return ValidationError("title must be at most %d characters, got %d", MaxTitleLength, n)
	}
	return nil
}

func validateDescription(desc string) error {
	if n := utf8.RuneCountInString(desc); n > MaxDescriptionLength {
		return ValidationError("description must be at most %d characters, got %d", MaxDescriptionLength, n)
	}
	return nil
}

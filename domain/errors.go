package domain

import (
	"context"
	"errors"
	"fmt"
)

// Error codes carried by ServiceError.
const (
	CodeValidation = "validation_error"
	CodeFetch      = "FETCH_ERROR"
	CodeInsert     = "INSERT_ERROR"
	CodeUpdate     = "UPDATE_ERROR"
	CodeDelete     = "DELETE_ERROR"
	CodeReorder    = "REORDER_ERROR"
	CodeMove       = "MOVE_ERROR"
	CodeNotFound   = "NOT_FOUND"
	CodeUnknown    = "UNKNOWN_ERROR"
)

// ServiceError is the only failure shape that crosses the entity service
// boundary and the one stored in the board state.
type ServiceError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"statusCode,omitempty"`
}

func (e *ServiceError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s (%d): %s", e.Code, e.StatusCode, e.Message)
	}
	return e.Code + ": " + e.Message
}

// NewServiceError builds a ServiceError without a status code.
func NewServiceError(code, message string) *ServiceError {
	return &ServiceError{Code: code, Message: message}
}

// ValidationError builds a validation_error with the given message.
func ValidationError(format string, args ...any) *ServiceError {
	return &ServiceError{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

// AsServiceError normalizes err. A *ServiceError anywhere in the chain is
// returned as is; any other error is wrapped under fallback, or
// UNKNOWN_ERROR when fallback is empty. A nil err yields nil.
func AsServiceError(err error, fallback string) *ServiceError {
	if err == nil {
		return nil
	}
	var se *ServiceError
	if errors.As(err, &se) {
		return se
	}
	if fallback == "" {
		fallback = CodeUnknown
	}
	msg := err.Error()
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		fallback = CodeUnknown
	}
	return &ServiceError{Code: fallback, Message: msg}
}

// HasCode reports whether err normalizes to a ServiceError with code.
func HasCode(err error, code string) bool {
	var se *ServiceError
	return errors.As(err, &se) && se.Code == code
}

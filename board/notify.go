package board

import (
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	SuccessDuration = 4 * time.Second
	ErrorDuration   = 6 * time.Second
)

// Notifier shows short-lived messages about user actions.
type Notifier interface {
	Success(msg string)
	Error(msg string)
}

// LogNotifier writes notifications to a logger.
type LogNotifier struct {
	Logger *log.Logger
}

func (n LogNotifier) logger() *log.Logger {
	if n.Logger == nil {
		return log.StandardLogger()
	}
	return n.Logger
}

func (n LogNotifier) Success(msg string) {
	n.logger().WithFields(log.Fields{"kind": "success", "duration": SuccessDuration.String()}).Info(msg)
}

func (n LogNotifier) Error(msg string) {
	n.logger().WithFields(log.Fields{"kind": "error", "duration": ErrorDuration.String()}).Warn(msg)
}

const (
	msgColumnCreated      = "Column created"
	msgColumnCreateFailed = "Failed to create column"
	msgColumnUpdated      = "Column updated"
	msgColumnUpdateFailed = "Failed to update column"
	msgColumnDeleted      = "Column deleted"
	msgColumnDeleteFailed = "Failed to delete column"
	msgColumnsReordered   = "Columns reordered"
	msgColumnReorderFail  = "Failed to reorder columns"
	msgTaskCreated        = "Task created"
	msgTaskCreateFailed   = "Failed to create task"
	msgTaskUpdated        = "Task updated"
	msgTaskUpdateFailed   = "Failed to update task"
	msgTaskDeleted        = "Task deleted"
	msgTaskDeleteFailed   = "Failed to delete task"
	msgTaskMoveFailed     = "Failed to move task"
)

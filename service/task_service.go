package service

import (
	"context"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"board-sync/domain"
)

// TaskService maps task operations onto a TaskTable.
type TaskService struct {
	table  TaskTable
	logger *log.Logger
}

// NewTaskService returns a service backed by table.
func NewTaskService(table TaskTable, logger *log.Logger) *TaskService {
	if table == nil {
		panic("service.NewTaskService: table is nil")
	}
	return &TaskService{table: table, logger: loggerOrDefault(logger)}
}

// GetAll returns the user's tasks ordered by position, narrowed by filters
// when given. A PriorityAll selection does not filter.
func (s *TaskService) GetAll(ctx context.Context, userID string, filters *domain.TaskFilters) ([]domain.Task, error) {
	q := TaskQuery{UserID: userID}
	if filters != nil {
		q.Search = filters.SearchQuery
		if filters.Priority != domain.PriorityAll {
			q.Priority = string(filters.Priority)
		}
	}
	var tasks []domain.Task
	err := invoke(ctx, s.logger, "task.get_all", domain.CodeFetch,
		[]attribute.KeyValue{attrUserID.String(userID)},
		func(ctx context.Context, span trace.Span) error {
			rows, err := s.table.ListTasks(ctx, q)
			if err != nil {
				return err
			}
			span.SetAttributes(attrRows.Int(len(rows)))
			tasks = tasksFromRows(rows)
			return nil
		})
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

// Create inserts a task after the last task of its column. An empty column
// yields position 0.
func (s *TaskService) Create(ctx context.Context, in domain.CreateTaskInput) (domain.Task, error) {
	var task domain.Task
	err := invoke(ctx, s.logger, "task.create", domain.CodeInsert,
		[]attribute.KeyValue{attrUserID.String(in.UserID), attrColumnID.String(in.ColumnID)},
		func(ctx context.Context, _ trace.Span) error {
			maxPos, found, err := s.table.MaxTaskPosition(ctx, in.ColumnID)
			if err != nil {
				return domain.AsServiceError(err, domain.CodeFetch)
			}
			if !found {
				maxPos = -1
			}
			desc := in.Description
			if desc != nil && *desc == "" {
				desc = nil
			}
			row, err := s.table.InsertTask(ctx, TaskInsert{
				UserID:      in.UserID,
				ColumnID:    in.ColumnID,
				Title:       in.Title,
				Description: desc,
				Priority:    string(in.Priority),
				Position:    maxPos + 1,
			})
			if err != nil {
				return err
			}
			task = taskFromRow(row)
			return nil
		})
	return task, err
}

// Update overwrites the fields present in upd.
func (s *TaskService) Update(ctx context.Context, id string, upd domain.TaskUpdate) (domain.Task, error) {
	var task domain.Task
	err := invoke(ctx, s.logger, "task.update", domain.CodeUpdate,
		[]attribute.KeyValue{attrEntityID.String(id)},
		func(ctx context.Context, _ trace.Span) error {
			row, err := s.table.UpdateTask(ctx, id, taskPatch(upd))
			if err != nil {
				return err
			}
			task = taskFromRow(row)
			return nil
		})
	return task, err
}

// Delete removes a task.
func (s *TaskService) Delete(ctx context.Context, id string) error {
	return invoke(ctx, s.logger, "task.delete", domain.CodeDelete,
		[]attribute.KeyValue{attrEntityID.String(id)},
		func(ctx context.Context, _ trace.Span) error {
			return s.table.DeleteTask(ctx, id)
		})
}

// Move overwrites the task's column and position. Sibling positions are left
// as they are, so two tasks may share a position afterwards.
func (s *TaskService) Move(ctx context.Context, id, targetColumnID string, targetPosition int) (domain.Task, error) {
	var task domain.Task
	err := invoke(ctx, s.logger, "task.move", domain.CodeMove,
		[]attribute.KeyValue{attrEntityID.String(id), attrColumnID.String(targetColumnID)},
		func(ctx context.Context, _ trace.Span) error {
			col, pos := targetColumnID, targetPosition
			row, err := s.table.UpdateTask(ctx, id, TaskPatch{ColumnID: &col, Position: &pos})
			if err != nil {
				return err
			}
			task = taskFromRow(row)
			return nil
		})
	return task, err
}

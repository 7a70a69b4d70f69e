package board

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"board-sync/domain"
)

// fail stores err as the board error and reports it to the user.
func (s *Store) fail(op, msg string, err error, fallback string) error {
	se := domain.AsServiceError(err, fallback)
	s.update(op, func(st *State) { st.Error = se })
	s.logger.WithField("op", op).WithError(se).Warn("board action failed")
	if msg != "" && !s.closed() {
		s.notifier.Error(msg)
	}
	return se
}

func (s *Store) succeed(msg string) {
	if msg != "" && !s.closed() {
		s.notifier.Success(msg)
	}
}

// begin clears the error at the start of a user action.
func (s *Store) begin(op string) error {
	if !s.update(op, func(st *State) { st.Error = nil }) {
		return ErrClosed
	}
	return nil
}

// FetchBoard loads the user's columns and tasks together. Both must succeed
// for either to replace the held state. On failure the held state stays and
// the first error is reported; the other fetch is cancelled.
func (s *Store) FetchBoard(ctx context.Context, userID string) error {
	if !s.update("fetch_board", func(st *State) {
		st.Loading = true
		st.Error = nil
	}) {
		return ErrClosed
	}

	var (
		cols  []domain.Column
		tasks []domain.Task
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		defer recoverInto(&err)
		cols, err = s.columns.GetAll(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		defer recoverInto(&err)
		tasks, err = s.tasks.GetAll(gctx, userID, nil)
		return err
	})
	if err := g.Wait(); err != nil {
		se := domain.AsServiceError(err, domain.CodeFetch)
		s.update("fetch_board", func(st *State) {
			st.Error = se
			st.Loading = false
		})
		s.logger.WithField("user_id", userID).WithError(se).Warn("fetch board failed")
		return se
	}
	if cols == nil {
		cols = []domain.Column{}
	}
	if tasks == nil {
		tasks = []domain.Task{}
	}
	s.update("fetch_board", func(st *State) {
		st.Columns = cols
		st.Tasks = tasks
		st.Loading = false
	})
	s.logger.WithFields(log.Fields{"user_id": userID, "columns": len(cols), "tasks": len(tasks)}).Debug("board fetched")
	return nil
}

func recoverInto(err *error) {
	if r := recover(); r != nil {
		*err = domain.NewServiceError(domain.CodeFetch, fmt.Sprint(r))
	}
}

// CreateColumn appends a column at the next free position, counted from the
// columns held locally.
func (s *Store) CreateColumn(ctx context.Context, userID, name string) error {
	if err := s.begin("create_column"); err != nil {
		return err
	}
	if err := domain.ValidateColumnName(name); err != nil {
		return s.fail("create_column", msgColumnCreateFailed, err, domain.CodeValidation)
	}
	s.mu.Lock()
	position := len(s.state.Columns)
	s.mu.Unlock()

	col, err := s.columns.Create(ctx, userID, name, position)
	if err != nil {
		return s.fail("create_column", msgColumnCreateFailed, err, domain.CodeInsert)
	}
	if !s.update("create_column", func(st *State) {
		if st.columnIndex(col.ID) == -1 {
			st.Columns = append(st.Columns, col)
		}
	}) {
		return nil
	}
	s.succeed(msgColumnCreated)
	s.publishColumn(ctx, domain.ColumnCreated, col)
	return nil
}

// UpdateColumn applies upd remotely, then replaces the local column.
func (s *Store) UpdateColumn(ctx context.Context, columnID string, upd domain.ColumnUpdate) error {
	if err := s.begin("update_column"); err != nil {
		return err
	}
	if err := domain.ValidateColumnUpdate(upd); err != nil {
		return s.fail("update_column", msgColumnUpdateFailed, err, domain.CodeValidation)
	}
	col, err := s.columns.Update(ctx, columnID, upd)
	if err != nil {
		return s.fail("update_column", msgColumnUpdateFailed, err, domain.CodeUpdate)
	}
	if !s.update("update_column", func(st *State) {
		if i := st.columnIndex(columnID); i != -1 {
			st.Columns[i] = col
		}
	}) {
		return nil
	}
	s.succeed(msgColumnUpdated)
	s.publishColumn(ctx, domain.ColumnUpdated, col)
	return nil
}

// DeleteColumn removes the column and its tasks once the remote delete
// succeeds.
func (s *Store) DeleteColumn(ctx context.Context, columnID string) error {
	if err := s.begin("delete_column"); err != nil {
		return err
	}
	ref := domain.EntityRef{ID: columnID, UserID: s.userID}
	s.mu.Lock()
	if i := s.state.columnIndex(columnID); i != -1 {
		ref.UserID = s.state.Columns[i].UserID
	}
	s.mu.Unlock()

	if err := s.columns.Delete(ctx, columnID); err != nil {
		return s.fail("delete_column", msgColumnDeleteFailed, err, domain.CodeDelete)
	}
	if !s.update("delete_column", func(st *State) { st.removeColumn(columnID) }) {
		return nil
	}
	s.succeed(msgColumnDeleted)
	s.publishDelete(ctx, domain.ColumnDeleted, ref)
	return nil
}

// ReorderColumns writes the given left-to-right order and replaces the
// local columns with the re-read set.
func (s *Store) ReorderColumns(ctx context.Context, userID string, orderedIDs []string) error {
	if err := s.begin("reorder_columns"); err != nil {
		return err
	}
	cols, err := s.columns.Reorder(ctx, userID, orderedIDs)
	if err != nil {
		return s.fail("reorder_columns", msgColumnReorderFail, err, domain.CodeReorder)
	}
	if cols == nil {
		cols = []domain.Column{}
	}
	if !s.update("reorder_columns", func(st *State) { st.Columns = cols }) {
		return nil
	}
	s.succeed(msgColumnsReordered)
	for _, c := range cols {
		s.publishColumn(ctx, domain.ColumnUpdated, c)
	}
	return nil
}

// CreateTask appends the created task once the remote insert succeeds.
func (s *Store) CreateTask(ctx context.Context, in domain.CreateTaskInput) error {
	if err := s.begin("create_task"); err != nil {
		return err
	}
	if err := domain.ValidateCreateTask(in); err != nil {
		return s.fail("create_task", msgTaskCreateFailed, err, domain.CodeValidation)
	}
	task, err := s.tasks.Create(ctx, in)
	if err != nil {
		return s.fail("create_task", msgTaskCreateFailed, err, domain.CodeInsert)
	}
	if !s.update("create_task", func(st *State) {
		if st.taskIndex(task.ID) == -1 {
			st.Tasks = append(st.Tasks, task)
		}
	}) {
		return nil
	}
	s.succeed(msgTaskCreated)
	s.publishTask(ctx, domain.TaskCreated, task)
	return nil
}

// UpdateTask applies upd remotely, then replaces the local task.
func (s *Store) UpdateTask(ctx context.Context, taskID string, upd domain.TaskUpdate) error {
	if err := s.begin("update_task"); err != nil {
		return err
	}
	if err := domain.ValidateTaskUpdate(upd); err != nil {
		return s.fail("update_task", msgTaskUpdateFailed, err, domain.CodeValidation)
	}
	task, err := s.tasks.Update(ctx, taskID, upd)
	if err != nil {
		return s.fail("update_task", msgTaskUpdateFailed, err, domain.CodeUpdate)
	}
	if !s.update("update_task", func(st *State) {
		if i := st.taskIndex(taskID); i != -1 {
			st.Tasks[i] = task
		}
	}) {
		return nil
	}
	s.succeed(msgTaskUpdated)
	s.publishTask(ctx, domain.TaskUpdated, task)
	return nil
}

// DeleteTask removes the task once the remote delete succeeds.
func (s *Store) DeleteTask(ctx context.Context, taskID string) error {
	if err := s.begin("delete_task"); err != nil {
		return err
	}
	ref := domain.EntityRef{ID: taskID, UserID: s.userID}
	s.mu.Lock()
	if i := s.state.taskIndex(taskID); i != -1 {
		ref.ColumnID = s.state.Tasks[i].ColumnID
		ref.UserID = s.state.Tasks[i].UserID
	}
	s.mu.Unlock()

	if err := s.tasks.Delete(ctx, taskID); err != nil {
		return s.fail("delete_task", msgTaskDeleteFailed, err, domain.CodeDelete)
	}
	if !s.update("delete_task", func(st *State) { st.removeTask(taskID) }) {
		return nil
	}
	s.succeed(msgTaskDeleted)
	s.publishDelete(ctx, domain.TaskDeleted, ref)
	return nil
}

// MoveTask moves the task locally before asking the remote store. On
// failure only the moved task's column and position are restored; changes
// other actions committed meanwhile are kept.
func (s *Store) MoveTask(ctx context.Context, taskID, targetColumnID string, targetPosition int) error {
	if targetPosition < 0 {
		if err := s.begin("move_task"); err != nil {
			return err
		}
		return s.fail("move_task", msgTaskMoveFailed,
			domain.ValidationError("position must not be negative"), domain.CodeValidation)
	}

	var (
		found   bool
		prevCol string
		prevPos int
	)
	if !s.update("move_task", func(st *State) {
		if i := st.taskIndex(taskID); i != -1 {
			found = true
			prevCol, prevPos = st.Tasks[i].ColumnID, st.Tasks[i].Position
			st.Tasks[i].ColumnID = targetColumnID
			st.Tasks[i].Position = targetPosition
		}
		st.Error = nil
	}) {
		return ErrClosed
	}

	task, err := s.tasks.Move(ctx, taskID, targetColumnID, targetPosition)
	if err != nil {
		se := domain.AsServiceError(err, domain.CodeMove)
		if !s.update("move_task", func(st *State) {
			// only undo if nothing moved the task again in the meantime
			if i := st.taskIndex(taskID); found && i != -1 &&
				st.Tasks[i].ColumnID == targetColumnID && st.Tasks[i].Position == targetPosition {
				st.Tasks[i].ColumnID = prevCol
				st.Tasks[i].Position = prevPos
			}
			st.Error = se
		}) {
			return se
		}
		s.logger.WithField("task_id", taskID).WithError(se).Warn("move rolled back")
		s.notifier.Error(msgTaskMoveFailed)
		return se
	}

	// a task removed meanwhile (own delete or a column cascade) stays gone
	if !s.update("move_task", func(st *State) {
		if i := st.taskIndex(taskID); found && i != -1 {
			st.Tasks[i] = task
		}
	}) {
		return nil
	}
	s.publishTask(ctx, domain.TaskUpdated, task)
	return nil
}

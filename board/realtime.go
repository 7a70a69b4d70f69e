package board

import (
	"fmt"

	"board-sync/domain"
)

// Apply folds one realtime event into st. Creation is skipped when the id
// is already present, updates of unknown ids are dropped, and a deleted
// column takes its tasks with it. It returns an error only for events it
// cannot interpret; st is left unchanged in that case.
func Apply(st *State, ev domain.RealtimeEvent) error {
	switch ev.Type {
	case domain.TaskCreated:
		task, err := ev.TaskPayload()
		if err != nil {
			return err
		}
		if st.taskIndex(task.ID) == -1 {
			st.Tasks = append(st.Tasks, task)
		}
	case domain.TaskUpdated:
		task, err := ev.TaskPayload()
		if err != nil {
			return err
		}
		if i := st.taskIndex(task.ID); i != -1 {
			st.Tasks[i] = task
		}
	case domain.TaskDeleted:
		ref, err := ev.RefPayload()
		if err != nil {
			return err
		}
		st.removeTask(ref.ID)
	case domain.ColumnCreated:
		col, err := ev.ColumnPayload()
		if err != nil {
			return err
		}
		if st.columnIndex(col.ID) == -1 {
			st.Columns = append(st.Columns, col)
		}
	case domain.ColumnUpdated:
		col, err := ev.ColumnPayload()
		if err != nil {
			return err
		}
		if i := st.columnIndex(col.ID); i != -1 {
			st.Columns[i] = col
		}
	case domain.ColumnDeleted:
		ref, err := ev.RefPayload()
		if err != nil {
			return err
		}
		st.removeColumn(ref.ID)
	default:
		return fmt.Errorf("unknown realtime event type %q", ev.Type)
	}
	return nil
}

// HandleRealtimeEvent applies an event from another session. It never calls
// a remote service; events it cannot interpret are logged and ignored.
func (s *Store) HandleRealtimeEvent(ev domain.RealtimeEvent) {
	var applyErr error
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	applyErr = Apply(&s.state, ev)
	if applyErr == nil {
		s.notifyLocked()
	}
	s.mu.Unlock()

	entry := s.logger.WithField("type", ev.Type).WithField("session_id", ev.SessionID)
	if applyErr != nil {
		entry.WithError(applyErr).Warn("ignoring realtime event")
		return
	}
	entry.Debug("realtime event applied")
}

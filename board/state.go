package board

import (
	"sort"

	"board-sync/domain"
)

// State is the board as one session sees it.
type State struct {
	Columns          []domain.Column      `json:"columns"`
	Tasks            []domain.Task        `json:"tasks"`
	Loading          bool                 `json:"loading"`
	Error            *domain.ServiceError `json:"error"`
	SearchQuery      string               `json:"searchQuery"`
	SelectedPriority domain.Priority      `json:"selectedPriority"`
}

func initialState() State {
	return State{
		Columns:          []domain.Column{},
		Tasks:            []domain.Task{},
		SelectedPriority: domain.PriorityAll,
	}
}

func (s State) clone() State {
	out := s
	out.Columns = append([]domain.Column(nil), s.Columns...)
	out.Tasks = make([]domain.Task, len(s.Tasks))
	for i, t := range s.Tasks {
		if t.Description != nil {
			d := *t.Description
			t.Description = &d
		}
		out.Tasks[i] = t
	}
	if out.Columns == nil {
		out.Columns = []domain.Column{}
	}
	if s.Error != nil {
		e := *s.Error
		out.Error = &e
	}
	return out
}

// FilteredTasks applies the search query and the priority selection to
// Tasks. It never modifies s.
func (s State) FilteredTasks() []domain.Task {
	return domain.FilterTasks(s.Tasks, s.SearchQuery, s.SelectedPriority)
}

// TasksInColumn returns the column's tasks sorted by position. Tasks that
// share a position keep their relative order.
func TasksInColumn(tasks []domain.Task, columnID string) []domain.Task {
	out := []domain.Task{}
	for _, t := range tasks {
		if t.ColumnID == columnID {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}

func (s *State) taskIndex(id string) int {
	for i := range s.Tasks {
		if s.Tasks[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *State) columnIndex(id string) int {
	for i := range s.Columns {
		if s.Columns[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *State) removeTask(id string) {
	kept := s.Tasks[:0:0]
	for _, t := range s.Tasks {
		if t.ID != id {
			kept = append(kept, t)
		}
	}
	s.Tasks = kept
}

// removeColumn drops the column and every task that references it.
func (s *State) removeColumn(id string) {
	cols := s.Columns[:0:0]
	for _, c := range s.Columns {
		if c.ID != id {
			cols = append(cols, c)
		}
	}
	s.Columns = cols
	tasks := s.Tasks[:0:0]
	for _, t := range s.Tasks {
		if t.ColumnID != id {
			tasks = append(tasks, t)
		}
	}
	s.Tasks = tasks
}

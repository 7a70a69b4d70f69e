package board

import (
	"testing"

	"board-sync/domain"
)

func TestFilterComposition(t *testing.T) {
	s, _, _ := newTestStore(t)
	s.SetTasks([]domain.Task{
		{ID: "1", Title: "bug fix", Priority: domain.PriorityHigh},
		{ID: "2", Title: "feature x", Priority: domain.PriorityLow},
		{ID: "3", Title: "bug triage", Priority: domain.PriorityHigh},
	})

	s.SetSearchQuery("bug")
	if err := s.SetSelectedPriority(domain.PriorityHigh); err != nil {
		t.Fatalf("set priority: %v", err)
	}
	got := s.FilteredTasks()
	if len(got) != 2 || got[0].Title != "bug fix" || got[1].Title != "bug triage" {
		t.Fatalf("unexpected filtered tasks: %+v", got)
	}

	_ = s.SetSelectedPriority(domain.PriorityLow)
	if got := s.FilteredTasks(); len(got) != 0 {
		t.Fatalf("expected no tasks, got %+v", got)
	}

	s.ClearFilters()
	if got := s.FilteredTasks(); len(got) != 3 {
		t.Fatalf("expected all tasks after clearing filters, got %d", len(got))
	}
	if len(s.Tasks()) != 3 {
		t.Fatalf("filtering must not touch the raw tasks")
	}
}

func TestSetSelectedPriorityRejectsUnknown(t *testing.T) {
	s, _, _ := newTestStore(t)
	if err := s.SetSelectedPriority("urgent"); !domain.HasCode(err, domain.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if s.Snapshot().SelectedPriority != domain.PriorityAll {
		t.Fatalf("selection must be unchanged")
	}
}

func TestTasksInColumnStableOrder(t *testing.T) {
	tasks := []domain.Task{
		{ID: "a", ColumnID: "c1", Position: 1},
		{ID: "b", ColumnID: "c2", Position: 0},
		{ID: "c", ColumnID: "c1", Position: 0},
		{ID: "d", ColumnID: "c1", Position: 1},
	}
	got := TasksInColumn(tasks, "c1")
	ids := ""
	for _, task := range got {
		ids += task.ID
	}
	if ids != "cad" {
		t.Fatalf("expected stable order cad, got %s", ids)
	}
	if tasks[0].ID != "a" {
		t.Fatalf("input must not be reordered")
	}
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	s, _, _ := newTestStore(t)
	desc := "original"
	s.SetTasks([]domain.Task{{ID: "1", Title: "x", Description: &desc}})
	s.SetError(domain.NewServiceError(domain.CodeFetch, "boom"))

	snap := s.Snapshot()
	snap.Tasks[0].Title = "changed"
	*snap.Tasks[0].Description = "changed"
	snap.Error.Message = "changed"

	again := s.Snapshot()
	if again.Tasks[0].Title != "x" || *again.Tasks[0].Description != "original" || again.Error.Message != "boom" {
		t.Fatalf("snapshot aliases store state: %+v", again)
	}
}

func TestResetRestoresInitialState(t *testing.T) {
	s, _, _ := newTestStore(t)
	s.SetColumns([]domain.Column{{ID: "c"}})
	s.SetLoading(true)
	s.SetSearchQuery("q")
	s.Reset()
	st := s.Snapshot()
	if len(st.Columns) != 0 || st.Loading || st.SearchQuery != "" || st.SelectedPriority != domain.PriorityAll {
		t.Fatalf("unexpected state after reset: %+v", st)
	}
}

package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"board-sync/domain"
)

type fakeTables struct {
	columns map[string]ColumnRow
	tasks   map[string]TaskRow
	seq     int
	now     time.Time

	listColumnsErr error
	insertErr      error
	maxPosErr      error
	// updateErrAt fails the nth UpdateColumn call (1-based); 0 disables.
	updateErrAt  int
	updateErr    error
	updateCalls  int
	panicOnList  bool
	lastQuery    TaskQuery
	lastInsert   TaskInsert
	updatedOrder []string
}

func newFakeTables() *fakeTables {
	return &fakeTables{
		columns: map[string]ColumnRow{},
		tasks:   map[string]TaskRow{},
		now:     time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func (f *fakeTables) nextID(prefix string) string {
	f.seq++
	return fmt.Sprintf("%s-%d", prefix, f.seq)
}

func (f *fakeTables) ListColumns(ctx context.Context, userID string) ([]ColumnRow, error) {
	if f.panicOnList {
		panic("backend exploded")
	}
	if f.listColumnsErr != nil {
		return nil, f.listColumnsErr
	}
	var out []ColumnRow
	for _, c := range f.columns {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (f *fakeTables) InsertColumn(ctx context.Context, row ColumnInsert) (ColumnRow, error) {
	if f.insertErr != nil {
		return ColumnRow{}, f.insertErr
	}
	c := ColumnRow{
		ID:        f.nextID("col"),
		UserID:    row.UserID,
		Name:      row.Name,
		Position:  row.Position,
		CreatedAt: f.now,
		UpdatedAt: f.now,
	}
	f.columns[c.ID] = c
	return c, nil
}

func (f *fakeTables) UpdateColumn(ctx context.Context, id string, patch ColumnPatch) (ColumnRow, error) {
	f.updateCalls++
	if f.updateErrAt > 0 && f.updateCalls == f.updateErrAt {
		return ColumnRow{}, f.updateErr
	}
	c, ok := f.columns[id]
	if !ok {
		return ColumnRow{}, domain.NewServiceError(domain.CodeNotFound, "column not found")
	}
	if patch.Name != nil {
		c.Name = *patch.Name
	}
	if patch.Position != nil {
		c.Position = *patch.Position
	}
	f.columns[id] = c
	f.updatedOrder = append(f.updatedOrder, id)
	return c, nil
}

func (f *fakeTables) DeleteColumn(ctx context.Context, id string) error {
	if _, ok := f.columns[id]; !ok {
		return domain.NewServiceError(domain.CodeNotFound, "column not found")
	}
	delete(f.columns, id)
	for tid, t := range f.tasks {
		if t.ColumnID == id {
			delete(f.tasks, tid)
		}
	}
	return nil
}

func (f *fakeTables) ListTasks(ctx context.Context, q TaskQuery) ([]TaskRow, error) {
	f.lastQuery = q
	var out []TaskRow
	for _, t := range f.tasks {
		if t.UserID != q.UserID {
			continue
		}
		if q.Priority != "" && t.Priority != q.Priority {
			continue
		}
		if q.Search != "" {
			s := strings.ToLower(q.Search)
			desc := ""
			if t.Description != nil {
				desc = *t.Description
			}
			if !strings.Contains(strings.ToLower(t.Title), s) && !strings.Contains(strings.ToLower(desc), s) {
				continue
			}
		}
		out = append(out, t)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (f *fakeTables) MaxTaskPosition(ctx context.Context, columnID string) (int, bool, error) {
	if f.maxPosErr != nil {
		return 0, false, f.maxPosErr
	}
	found := false
	max := 0
	for _, t := range f.tasks {
		if t.ColumnID != columnID {
			continue
		}
		if !found || t.Position > max {
			max = t.Position
		}
		found = true
	}
	return max, found, nil
}

func (f *fakeTables) InsertTask(ctx context.Context, row TaskInsert) (TaskRow, error) {
	f.lastInsert = row
	if f.insertErr != nil {
		return TaskRow{}, f.insertErr
	}
	t := TaskRow{
		ID:          f.nextID("task"),
		UserID:      row.UserID,
		ColumnID:    row.ColumnID,
		Title:       row.Title,
		Description: row.Description,
		Priority:    row.Priority,
		Position:    row.Position,
		CreatedAt:   f.now,
		UpdatedAt:   f.now,
	}
	f.tasks[t.ID] = t
	return t, nil
}

func (f *fakeTables) UpdateTask(ctx context.Context, id string, patch TaskPatch) (TaskRow, error) {
	t, ok := f.tasks[id]
	if !ok {
		return TaskRow{}, fmt.Errorf("no rows for %s", id)
	}
	if patch.Title != nil {
		t.Title = *patch.Title
	}
	if patch.Description != nil {
		t.Description = patch.Description
	}
	if patch.Priority != nil {
		t.Priority = *patch.Priority
	}
	if patch.ColumnID != nil {
		t.ColumnID = *patch.ColumnID
	}
	if patch.Position != nil {
		t.Position = *patch.Position
	}
	t.UpdatedAt = f.now.Add(time.Minute)
	f.tasks[id] = t
	return t, nil
}

func (f *fakeTables) DeleteTask(ctx context.Context, id string) error {
	if _, ok := f.tasks[id]; !ok {
		return fmt.Errorf("no rows for %s", id)
	}
	delete(f.tasks, id)
	return nil
}

package service

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"

	"board-sync/domain"
)

func TestColumnServiceCreateAndGetAll(t *testing.T) {
	logger, _ := test.NewNullLogger()
	tables := newFakeTables()
	svc := NewColumnService(tables, logger)
	ctx := context.Background()

	if _, err := svc.Create(ctx, "u1", "Done", 2); err != nil {
		t.Fatalf("create: %v", err)
	}
	todo, err := svc.Create(ctx, "u1", "To Do", 0)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if todo.ID == "" || todo.UserID != "u1" || todo.Name != "To Do" || todo.CreatedAt.IsZero() {
		t.Fatalf("unexpected column: %+v", todo)
	}
	if _, err := svc.Create(ctx, "u2", "Other", 1); err != nil {
		t.Fatalf("create: %v", err)
	}

	cols, err := svc.GetAll(ctx, "u1")
	if err != nil {
		t.Fatalf("get all: %v", err)
	}
	if len(cols) != 2 {
		t.Fatalf("expected 2 columns, got %d", len(cols))
	}
	if cols[0].Name != "To Do" || cols[1].Name != "Done" {
		t.Fatalf("unexpected order: %+v", cols)
	}
}

func TestColumnServiceErrorsCarryOperationCode(t *testing.T) {
	logger, _ := test.NewNullLogger()
	tables := newFakeTables()
	svc := NewColumnService(tables, logger)
	ctx := context.Background()

	tables.listColumnsErr = errors.New("connection reset")
	if _, err := svc.GetAll(ctx, "u1"); !domain.HasCode(err, domain.CodeFetch) {
		t.Fatalf("expected FETCH_ERROR, got %v", err)
	}

	tables.insertErr = errors.New("disk full")
	if _, err := svc.Create(ctx, "u1", "x", 0); !domain.HasCode(err, domain.CodeInsert) {
		t.Fatalf("expected INSERT_ERROR, got %v", err)
	}

	name := "renamed"
	_, err := svc.Update(ctx, "missing", domain.ColumnUpdate{Name: &name})
	if !domain.HasCode(err, domain.CodeNotFound) {
		t.Fatalf("expected backend code to pass through, got %v", err)
	}

	if err := svc.Delete(ctx, "missing"); !domain.HasCode(err, domain.CodeNotFound) {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestColumnServicePanicBecomesUnknownError(t *testing.T) {
	logger, _ := test.NewNullLogger()
	tables := newFakeTables()
	tables.panicOnList = true
	svc := NewColumnService(tables, logger)

	_, err := svc.GetAll(context.Background(), "u1")
	if !domain.HasCode(err, domain.CodeUnknown) {
		t.Fatalf("expected UNKNOWN_ERROR, got %v", err)
	}
}

func TestColumnServiceReorderWritesIndexPositions(t *testing.T) {
	logger, _ := test.NewNullLogger()
	tables := newFakeTables()
	svc := NewColumnService(tables, logger)
	ctx := context.Background()

	a, _ := svc.Create(ctx, "u1", "A", 0)
	b, _ := svc.Create(ctx, "u1", "B", 1)
	c, _ := svc.Create(ctx, "u1", "C", 2)

	cols, err := svc.Reorder(ctx, "u1", []string{c.ID, a.ID, b.ID})
	if err != nil {
		t.Fatalf("reorder: %v", err)
	}
	want := []string{c.ID, a.ID, b.ID}
	for i, id := range want {
		if cols[i].ID != id {
			t.Fatalf("position %d: expected %s, got %s", i, id, cols[i].ID)
		}
	}
	if cols[0].Position != 0 || cols[1].Position != 1 || cols[2].Position != 2 {
		t.Fatalf("expected index positions: %+v", cols)
	}
}

func TestColumnServiceReorderRejectsEmptyID(t *testing.T) {
	logger, _ := test.NewNullLogger()
	tables := newFakeTables()
	svc := NewColumnService(tables, logger)
	ctx := context.Background()

	a, _ := svc.Create(ctx, "u1", "A", 0)
	b, _ := svc.Create(ctx, "u1", "B", 1)

	_, err := svc.Reorder(ctx, "u1", []string{b.ID, "", a.ID})
	if !domain.HasCode(err, domain.CodeReorder) {
		t.Fatalf("expected REORDER_ERROR, got %v", err)
	}
	if len(tables.updatedOrder) != 0 {
		t.Fatalf("expected no writes, got %v", tables.updatedOrder)
	}
	if tables.columns[a.ID].Position != 0 || tables.columns[b.ID].Position != 1 {
		t.Fatalf("positions must be untouched")
	}
}

func TestColumnServiceReorderStopsAtFirstFailure(t *testing.T) {
	logger, _ := test.NewNullLogger()
	tables := newFakeTables()
	svc := NewColumnService(tables, logger)
	ctx := context.Background()

	a, _ := svc.Create(ctx, "u1", "A", 0)
	b, _ := svc.Create(ctx, "u1", "B", 1)
	c, _ := svc.Create(ctx, "u1", "C", 2)

	tables.updateErrAt = 2
	tables.updateErr = errors.New("timeout")

	_, err := svc.Reorder(ctx, "u1", []string{c.ID, b.ID, a.ID})
	if !domain.HasCode(err, domain.CodeReorder) {
		t.Fatalf("expected REORDER_ERROR, got %v", err)
	}
	if len(tables.updatedOrder) != 1 || tables.updatedOrder[0] != c.ID {
		t.Fatalf("expected only the first write to land, got %v", tables.updatedOrder)
	}
	if tables.columns[c.ID].Position != 0 {
		t.Fatalf("first write should not be undone: %+v", tables.columns[c.ID])
	}
	if tables.columns[a.ID].Position != 0 || tables.columns[b.ID].Position != 1 {
		t.Fatalf("later columns should be untouched")
	}
}

func TestColumnServiceReorderRefetchFailure(t *testing.T) {
	logger, _ := test.NewNullLogger()
	tables := newFakeTables()
	svc := NewColumnService(tables, logger)
	ctx := context.Background()

	a, _ := svc.Create(ctx, "u1", "A", 0)
	tables.listColumnsErr = errors.New("read replica down")

	if _, err := svc.Reorder(ctx, "u1", []string{a.ID}); !domain.HasCode(err, domain.CodeFetch) {
		t.Fatalf("expected FETCH_ERROR, got %v", err)
	}
}

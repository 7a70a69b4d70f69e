package service

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"board-sync/domain"
)

// ColumnService maps column operations onto a ColumnTable. Apart from the
// reorder id list it validates nothing; callers check input before calling.
type ColumnService struct {
	table  ColumnTable
	logger *log.Logger
}

// NewColumnService returns a service backed by table.
func NewColumnService(table ColumnTable, logger *log.Logger) *ColumnService {
	if table == nil {
		panic("service.NewColumnService: table is nil")
	}
	return &ColumnService{table: table, logger: loggerOrDefault(logger)}
}

// GetAll returns the user's columns ordered by position.
func (s *ColumnService) GetAll(ctx context.Context, userID string) ([]domain.Column, error) {
	var cols []domain.Column
	err := invoke(ctx, s.logger, "column.get_all", domain.CodeFetch,
		[]attribute.KeyValue{attrUserID.String(userID)},
		func(ctx context.Context, span trace.Span) error {
			rows, err := s.table.ListColumns(ctx, userID)
			if err != nil {
				return err
			}
			span.SetAttributes(attrRows.Int(len(rows)))
			cols = columnsFromRows(rows)
			return nil
		})
	if err != nil {
		return nil, err
	}
	return cols, nil
}

// Create inserts a column at the given position and returns the stored row.
func (s *ColumnService) Create(ctx context.Context, userID, name string, position int) (domain.Column, error) {
	var col domain.Column
	err := invoke(ctx, s.logger, "column.create", domain.CodeInsert,
		[]attribute.KeyValue{attrUserID.String(userID)},
		func(ctx context.Context, _ trace.Span) error {
			row, err := s.table.InsertColumn(ctx, ColumnInsert{UserID: userID, Name: name, Position: position})
			if err != nil {
				return err
			}
			col = columnFromRow(row)
			return nil
		})
	return col, err
}

// Update overwrites the fields present in upd.
func (s *ColumnService) Update(ctx context.Context, id string, upd domain.ColumnUpdate) (domain.Column, error) {
	var col domain.Column
	err := invoke(ctx, s.logger, "column.update", domain.CodeUpdate,
		[]attribute.KeyValue{attrEntityID.String(id)},
		func(ctx context.Context, _ trace.Span) error {
			row, err := s.table.UpdateColumn(ctx, id, columnPatch(upd))
			if err != nil {
				return err
			}
			col = columnFromRow(row)
			return nil
		})
	return col, err
}

// Delete removes a column. The backend removes the column's tasks with it.
func (s *ColumnService) Delete(ctx context.Context, id string) error {
	return invoke(ctx, s.logger, "column.delete", domain.CodeDelete,
		[]attribute.KeyValue{attrEntityID.String(id)},
		func(ctx context.Context, _ trace.Span) error {
			return s.table.DeleteColumn(ctx, id)
		})
}

// Reorder writes position=index for each id in order, then returns the
// user's columns re-read from the backend. An empty id rejects the whole
// call before anything is written. The first failed write aborts the call;
// writes that already succeeded are not undone.
func (s *ColumnService) Reorder(ctx context.Context, userID string, orderedIDs []string) ([]domain.Column, error) {
	var cols []domain.Column
	err := invoke(ctx, s.logger, "column.reorder", domain.CodeReorder,
		[]attribute.KeyValue{attrUserID.String(userID), attrRows.Int(len(orderedIDs))},
		func(ctx context.Context, _ trace.Span) error {
			for i, id := range orderedIDs {
				if id == "" {
					return domain.NewServiceError(domain.CodeReorder, fmt.Sprintf("empty column id at index %d", i))
				}
			}
			for i, id := range orderedIDs {
				pos := i
				if _, err := s.table.UpdateColumn(ctx, id, ColumnPatch{Position: &pos}); err != nil {
					return domain.AsServiceError(err, domain.CodeReorder)
				}
			}
			rows, err := s.table.ListColumns(ctx, userID)
			if err != nil {
				return domain.AsServiceError(err, domain.CodeFetch)
			}
			cols = columnsFromRows(rows)
			return nil
		})
	if err != nil {
		return nil, err
	}
	return cols, nil
}

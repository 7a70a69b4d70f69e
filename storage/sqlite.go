package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pressly/goose/v3"
	log "github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"board-sync/domain"
	"board-sync/service"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const (
	columnFields = "id, user_id, name, position, created_at, updated_at"
	taskFields   = "id, user_id, column_id, title, description, priority, position, created_at, updated_at"
)

// SQLite stores columns and tasks in a local SQLite database.
type SQLite struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite opens (creating if needed) the database at path and applies
// pending migrations. ":memory:" gives a private in-memory database.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	if path == "" {
		return nil, fmt.Errorf("db path is required")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// one connection keeps ":memory:" coherent and serializes writers
	db.SetMaxOpenConns(1)
	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLite{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

// RunMigrations applies the embedded schema migrations.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrationsFS)
	goose.SetLogger(log.StandardLogger())
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run goose migrations: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) timestamp() string {
	return s.now().Format(time.RFC3339Nano)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanColumn(sc rowScanner) (service.ColumnRow, error) {
	var (
		r                service.ColumnRow
		created, updated string
	)
	if err := sc.Scan(&r.ID, &r.UserID, &r.Name, &r.Position, &created, &updated); err != nil {
		return service.ColumnRow{}, err
	}
	var err error
	if r.CreatedAt, err = parseTime(created); err != nil {
		return service.ColumnRow{}, err
	}
	if r.UpdatedAt, err = parseTime(updated); err != nil {
		return service.ColumnRow{}, err
	}
	return r, nil
}

func scanTask(sc rowScanner) (service.TaskRow, error) {
	var (
		r                service.TaskRow
		desc             sql.NullString
		created, updated string
	)
	if err := sc.Scan(&r.ID, &r.UserID, &r.ColumnID, &r.Title, &desc, &r.Priority, &r.Position, &created, &updated); err != nil {
		return service.TaskRow{}, err
	}
	if desc.Valid {
		d := desc.String
		r.Description = &d
	}
	var err error
	if r.CreatedAt, err = parseTime(created); err != nil {
		return service.TaskRow{}, err
	}
	if r.UpdatedAt, err = parseTime(updated); err != nil {
		return service.TaskRow{}, err
	}
	return r, nil
}

func parseTime(v string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", v, err)
	}
	return t, nil
}

func notFound(kind, id string) error {
	return &domain.ServiceError{Code: domain.CodeNotFound, Message: kind + " " + id + " not found", StatusCode: 404}
}

func (s *SQLite) ListColumns(ctx context.Context, userID string) ([]service.ColumnRow, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+columnFields+" FROM columns WHERE user_id = ? ORDER BY position ASC, rowid ASC", userID)
	if err != nil {
		return nil, fmt.Errorf("list columns: %w", err)
	}
	defer rows.Close()
	out := []service.ColumnRow{}
	for rows.Next() {
		c, err := scanColumn(rows)
		if err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *SQLite) InsertColumn(ctx context.Context, in service.ColumnInsert) (service.ColumnRow, error) {
	ts := s.timestamp()
	row := s.db.QueryRowContext(ctx,
		"INSERT INTO columns ("+columnFields+") VALUES (?, ?, ?, ?, ?, ?) RETURNING "+columnFields,
		uuid.NewString(), in.UserID, in.Name, in.Position, ts, ts)
	c, err := scanColumn(row)
	if err != nil {
		return service.ColumnRow{}, fmt.Errorf("insert column: %w", err)
	}
	return c, nil
}

func (s *SQLite) UpdateColumn(ctx context.Context, id string, patch service.ColumnPatch) (service.ColumnRow, error) {
	sets := []string{"updated_at = ?"}
	args := []any{s.timestamp()}
	if patch.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *patch.Name)
	}
	if patch.Position != nil {
		sets = append(sets, "position = ?")
		args = append(args, *patch.Position)
	}
	args = append(args, id)
	row := s.db.QueryRowContext(ctx,
		"UPDATE columns SET "+strings.Join(sets, ", ")+" WHERE id = ? RETURNING "+columnFields, args...)
	c, err := scanColumn(row)
	if errors.Is(err, sql.ErrNoRows) {
		return service.ColumnRow{}, notFound("column", id)
	}
	if err != nil {
		return service.ColumnRow{}, fmt.Errorf("update column: %w", err)
	}
	return c, nil
}

// DeleteColumn removes the column; its tasks go with it through the
// foreign key. Deleting a missing id is not an error.
func (s *SQLite) DeleteColumn(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM columns WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete column: %w", err)
	}
	return nil
}

func (s *SQLite) ListTasks(ctx context.Context, q service.TaskQuery) ([]service.TaskRow, error) {
	query := "SELECT " + taskFields + " FROM tasks WHERE user_id = ?"
	args := []any{q.UserID}
	if q.Priority != "" {
		query += " AND priority = ?"
		args = append(args, q.Priority)
	}
	query += " ORDER BY position ASC, rowid ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()
	out := []service.TaskRow{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		// sqlite lower() folds ASCII only, so search runs on the decoded rows
		if q.Search != "" && !t.MatchesSearch(q.Search) {
			continue
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *SQLite) MaxTaskPosition(ctx context.Context, columnID string) (int, bool, error) {
	var max sql.NullInt64
	err := s.db.QueryRowContext(ctx, "SELECT MAX(position) FROM tasks WHERE column_id = ?", columnID).Scan(&max)
	if err != nil {
		return 0, false, fmt.Errorf("max task position: %w", err)
	}
	if !max.Valid {
		return 0, false, nil
	}
	return int(max.Int64), true, nil
}

func (s *SQLite) InsertTask(ctx context.Context, in service.TaskInsert) (service.TaskRow, error) {
	ts := s.timestamp()
	var desc sql.NullString
	if in.Description != nil {
		desc = sql.NullString{String: *in.Description, Valid: true}
	}
	row := s.db.QueryRowContext(ctx,
		"INSERT INTO tasks ("+taskFields+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING "+taskFields,
		uuid.NewString(), in.UserID, in.ColumnID, in.Title, desc, in.Priority, in.Position, ts, ts)
	t, err := scanTask(row)
	if err != nil {
		return service.TaskRow{}, fmt.Errorf("insert task: %w", err)
	}
	return t, nil
}

func (s *SQLite) UpdateTask(ctx context.Context, id string, patch service.TaskPatch) (service.TaskRow, error) {
	sets := []string{"updated_at = ?"}
	args := []any{s.timestamp()}
	add := func(col string, v any) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}
	if patch.Title != nil {
		add("title", *patch.Title)
	}
	if patch.Description != nil {
		add("description", *patch.Description)
	}
	if patch.Priority != nil {
		add("priority", *patch.Priority)
	}
	if patch.ColumnID != nil {
		add("column_id", *patch.ColumnID)
	}
	if patch.Position != nil {
		add("position", *patch.Position)
	}
	args = append(args, id)
	row := s.db.QueryRowContext(ctx,
		"UPDATE tasks SET "+strings.Join(sets, ", ")+" WHERE id = ? RETURNING "+taskFields, args...)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return service.TaskRow{}, notFound("task", id)
	}
	if err != nil {
		return service.TaskRow{}, fmt.Errorf("update task: %w", err)
	}
	return t, nil
}

func (s *SQLite) DeleteTask(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM tasks WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}

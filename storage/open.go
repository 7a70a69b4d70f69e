package storage

import (
	"context"
	"fmt"

	"board-sync/service"
)

const (
	DriverSQLite = "sqlite"
	DriverTables = "tables"
)

// Backend is a persistence boundary for both entity services.
type Backend interface {
	service.ColumnTable
	service.TaskTable
	Close() error
}

// Options selects and configures a Backend.
type Options struct {
	Driver           string
	SQLitePath       string
	ConnectionString string
	ColumnsTable     string
	TasksTable       string
}

// Open returns the backend named by opts.Driver. An empty driver means
// SQLite.
func Open(ctx context.Context, opts Options) (Backend, error) {
	switch opts.Driver {
	case "", DriverSQLite:
		return OpenSQLite(ctx, opts.SQLitePath)
	case DriverTables:
		if opts.ConnectionString == "" {
			return nil, fmt.Errorf("storage: connection string is required for the %s driver", DriverTables)
		}
		return NewTables(opts.ConnectionString, opts.ColumnsTable, opts.TasksTable)
	default:
		return nil, fmt.Errorf("storage: unknown driver %q", opts.Driver)
	}
}

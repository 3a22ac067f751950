package store

import (
	"context"
	"database/sql"
)

// Driver is an interface for store driver.
// It contains all methods that store database driver should implement.
type Driver interface {
	GetDB() *sql.DB
	Close() error

	Migrate(ctx context.Context) error

	// LogEntry model related methods.
	CreateLogEntry(ctx context.Context, create *LogEntry) (*LogEntry, error)
	ListLogEntries(ctx context.Context, find *FindLogEntry) ([]*LogEntry, error)
	DeleteLogEntry(ctx context.Context, delete *DeleteLogEntry) error

	// Alarm model related methods.
	CreateAlarm(ctx context.Context, create *Alarm) (*Alarm, error)
	ListAlarms(ctx context.Context, find *FindAlarm) ([]*Alarm, error)
	UpdateAlarm(ctx context.Context, update *UpdateAlarm) (*Alarm, error)
	DeleteAlarm(ctx context.Context, delete *DeleteAlarm) error
}

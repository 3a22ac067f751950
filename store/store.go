package store

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/hrygo/healthlog/internal/profile"
)

// ErrNotFound is returned when a record addressed by id does not exist.
var ErrNotFound = errors.New("not found")

// Store provides database access to all raw objects.
type Store struct {
	profile *profile.Profile
	driver  Driver
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	return &Store{
		driver:  driver,
		profile: profile,
	}
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

func (s *Store) Close() error {
	return s.driver.Close()
}

// Migrate creates the schema when it does not exist yet.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.driver.Migrate(ctx); err != nil {
		return errors.Wrap(err, "failed to migrate schema")
	}
	return nil
}

func (s *Store) CreateLogEntry(ctx context.Context, create *LogEntry) (*LogEntry, error) {
	return s.driver.CreateLogEntry(ctx, create)
}

func (s *Store) ListLogEntries(ctx context.Context, find *FindLogEntry) ([]*LogEntry, error) {
	return s.driver.ListLogEntries(ctx, find)
}

func (s *Store) DeleteLogEntry(ctx context.Context, delete *DeleteLogEntry) error {
	return s.driver.DeleteLogEntry(ctx, delete)
}

// FetchEntries returns every entry of category logged at or after since.
// FetchEntries 返回指定类别自 since 起的全部记录。
func (s *Store) FetchEntries(ctx context.Context, category Category, since time.Time) ([]*LogEntry, error) {
	return s.driver.ListLogEntries(ctx, &FindLogEntry{
		Category: &category,
		Since:    &since,
	})
}

func (s *Store) CreateAlarm(ctx context.Context, create *Alarm) (*Alarm, error) {
	return s.driver.CreateAlarm(ctx, create)
}

func (s *Store) ListAlarms(ctx context.Context, find *FindAlarm) ([]*Alarm, error) {
	return s.driver.ListAlarms(ctx, find)
}

func (s *Store) UpdateAlarm(ctx context.Context, update *UpdateAlarm) (*Alarm, error) {
	return s.driver.UpdateAlarm(ctx, update)
}

func (s *Store) DeleteAlarm(ctx context.Context, delete *DeleteAlarm) error {
	return s.driver.DeleteAlarm(ctx, delete)
}

// Package alarm owns the set of daily alarms and keeps it consistent with
// the trigger registry.
package alarm

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/hrygo/healthlog/internal/daykey"
	"github.com/hrygo/healthlog/plugin/trigger"
	"github.com/hrygo/healthlog/store"
)

var (
	ErrInvalidTimeOfDay          = errors.New("invalid time of day")
	ErrAlarmNotFound             = errors.New("alarm not found")
	ErrTriggerRegistrationFailed = errors.New("trigger registration failed")
	ErrTriggerCancellationFailed = errors.New("trigger cancellation failed")
)

// Scheduler maintains alarms and their daily triggers.
// All methods serialize on one mutex, which is held across registry calls
// so an alarm record and its trigger never disagree.
type Scheduler struct {
	registry Registry
	store    AlarmStore
	alarms   map[string]*Alarm
	loc      *time.Location
	logger   *slog.Logger
	newID    func() string
	now      func() time.Time
	sequence uint64
	mu       sync.Mutex
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithStore mirrors every change to s.
func WithStore(s AlarmStore) Option {
	return func(sc *Scheduler) { sc.store = s }
}

// WithLocation sets the location time-of-day is evaluated in. Nil means time.Local.
func WithLocation(loc *time.Location) Option {
	return func(sc *Scheduler) { sc.loc = daykey.Location(loc) }
}

func WithLogger(logger *slog.Logger) Option {
	return func(sc *Scheduler) {
		if logger != nil {
			sc.logger = logger
		}
	}
}

// WithIDGenerator replaces the UUID generator.
func WithIDGenerator(newID func() string) Option {
	return func(sc *Scheduler) {
		if newID != nil {
			sc.newID = newID
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(sc *Scheduler) {
		if now != nil {
			sc.now = now
		}
	}
}

// NewScheduler creates a scheduler writing triggers to registry.
func NewScheduler(registry Registry, opts ...Option) *Scheduler {
	s := &Scheduler{
		registry: registry,
		alarms:   make(map[string]*Alarm),
		loc:      time.Local,
		logger:   slog.Default(),
		newID:    func() string { return uuid.New().String() },
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Location returns the location time-of-day is evaluated in.
func (s *Scheduler) Location() *time.Location {
	return s.loc
}

func payloadFor(a *Alarm) trigger.Payload {
	return trigger.Payload{
		AlarmID:    a.ID,
		Title:      NotificationTitle,
		Body:       a.Title,
		Category:   Category,
		StopAction: StopAction,
		Sound:      DefaultSound,
	}
}

// AddAlarm creates an enabled alarm and registers its daily trigger.
// On registration failure nothing is added.
func (s *Scheduler) AddAlarm(ctx context.Context, title string, tod TimeOfDay) (*Alarm, error) {
	if !tod.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidTimeOfDay, tod)
	}
	title = strings.TrimSpace(title)
	if title == "" {
		title = DefaultTitle
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sequence++
	a := &Alarm{
		ID:        s.newID(),
		Title:     title,
		Time:      tod,
		Enabled:   true,
		CreatedTs: s.now().Unix(),
		sequence:  s.sequence,
	}

	if err := s.registry.RegisterDailyTrigger(ctx, a.ID, tod.Hour, tod.Minute, payloadFor(a)); err != nil {
		s.logger.Warn("AlarmScheduler: failed to register trigger", "id", a.ID, "time", tod.String(), "error", err)
		return nil, fmt.Errorf("%w: %w", ErrTriggerRegistrationFailed, err)
	}

	if s.store != nil {
		if _, err := s.store.CreateAlarm(ctx, a.toStore()); err != nil {
			if cerr := s.registry.CancelTrigger(ctx, a.ID); cerr != nil && !errors.Is(cerr, trigger.ErrTriggerNotFound) {
				s.logger.Error("AlarmScheduler: failed to roll back trigger", "id", a.ID, "error", cerr)
			}
			return nil, errors.Wrap(err, "failed to persist alarm")
		}
	}

	s.alarms[a.ID] = a
	s.logger.Info("AlarmScheduler: alarm added", "id", a.ID, "time", tod.String())
	return a.clone(), nil
}

// DeleteAlarm removes an alarm and cancels its trigger.
// A cancellation failure does not keep the record; it is returned wrapped in
// ErrTriggerCancellationFailed after the alarm is gone.
func (s *Scheduler) DeleteAlarm(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.alarms[id]; !ok {
		return ErrAlarmNotFound
	}

	if s.store != nil {
		if err := s.store.DeleteAlarm(ctx, &store.DeleteAlarm{ID: id}); err != nil && !errors.Is(err, store.ErrNotFound) {
			return errors.Wrap(err, "failed to delete alarm")
		}
	}

	cancelErr := s.registry.CancelTrigger(ctx, id)
	if errors.Is(cancelErr, trigger.ErrTriggerNotFound) {
		cancelErr = nil
	}
	delete(s.alarms, id)

	if cancelErr != nil {
		s.logger.Warn("AlarmScheduler: alarm removed but trigger cancellation failed", "id", id, "error", cancelErr)
		return fmt.Errorf("%w: %w", ErrTriggerCancellationFailed, cancelErr)
	}
	s.logger.Info("AlarmScheduler: alarm deleted", "id", id)
	return nil
}

// SetEnabled toggles whether an alarm may fire. The trigger stays registered.
func (s *Scheduler) SetEnabled(ctx context.Context, id string, enabled bool) (*Alarm, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.alarms[id]
	if !ok {
		return nil, ErrAlarmNotFound
	}
	if a.Enabled == enabled {
		return a.clone(), nil
	}

	if s.store != nil {
		if _, err := s.store.UpdateAlarm(ctx, &store.UpdateAlarm{ID: id, Enabled: &enabled}); err != nil {
			return nil, errors.Wrap(err, "failed to update alarm")
		}
	}
	a.Enabled = enabled
	return a.clone(), nil
}

// DueAlarms returns every enabled alarm whose time-of-day is the minute of at.
// Seconds are ignored. It has no side effects.
func (s *Scheduler) DueAlarms(at time.Time) []*Alarm {
	minute := daykey.MinuteOfDay(at, s.loc)

	s.mu.Lock()
	defer s.mu.Unlock()

	due := make([]*Alarm, 0)
	for _, a := range s.alarms {
		if a.Enabled && a.Time.MinuteOfDay() == minute {
			due = append(due, a.clone())
		}
	}
	sortByCreation(due)
	return due
}

// ListAlarms returns every alarm in creation order.
func (s *Scheduler) ListAlarms() []*Alarm {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := make([]*Alarm, 0, len(s.alarms))
	for _, a := range s.alarms {
		list = append(list, a.clone())
	}
	sortByCreation(list)
	return list
}

// GetAlarm returns the alarm with id.
func (s *Scheduler) GetAlarm(id string) (*Alarm, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.alarms[id]
	if !ok {
		return nil, ErrAlarmNotFound
	}
	return a.clone(), nil
}

// Load restores persisted alarms and registers their triggers.
// An alarm whose trigger cannot be registered is left out of memory and
// reported in the returned error.
func (s *Scheduler) Load(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	records, err := s.store.ListAlarms(ctx, &store.FindAlarm{})
	if err != nil {
		return errors.Wrap(err, "failed to list alarms")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var failed []error
	for _, record := range records {
		a := fromStore(record)
		if !a.Time.Valid() {
			failed = append(failed, fmt.Errorf("alarm %s: %w: %s", a.ID, ErrInvalidTimeOfDay, a.Time))
			continue
		}
		if err := s.registry.RegisterDailyTrigger(ctx, a.ID, a.Time.Hour, a.Time.Minute, payloadFor(a)); err != nil {
			failed = append(failed, fmt.Errorf("alarm %s: %w: %w", a.ID, ErrTriggerRegistrationFailed, err))
			continue
		}
		s.sequence++
		a.sequence = s.sequence
		s.alarms[a.ID] = a
	}
	s.logger.Info("AlarmScheduler: alarms loaded", "count", len(s.alarms), "failed", len(failed))
	return stderrors.Join(failed...)
}

func sortByCreation(list []*Alarm) {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].CreatedTs != list[j].CreatedTs {
			return list[i].CreatedTs < list[j].CreatedTs
		}
		return list[i].sequence < list[j].sequence
	})
}

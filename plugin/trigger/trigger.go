// Package trigger is an in-process registry of daily recurring triggers.
//
// A trigger fires once per local calendar day at its hour:minute until it
// is cancelled. Fire handlers run outside the registry lock, so a handler
// may call back into code that registers or cancels triggers.
package trigger

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/hrygo/healthlog/internal/daykey"
)

var (
	// ErrTriggerNotFound is returned when cancelling an unknown trigger.
	ErrTriggerNotFound = errors.New("trigger not found")
	// ErrRegistryFull is returned when the registry is at capacity.
	ErrRegistryFull = errors.New("trigger registry full")
	// ErrInvalidTime is returned for an hour or minute out of range.
	ErrInvalidTime = errors.New("invalid trigger time")
)

// DefaultCapacity matches the pending-notification limit of common mobile platforms.
const DefaultCapacity = 64

// Payload is handed to the fire handler unchanged.
type Payload struct {
	AlarmID    string `json:"alarm_id"`
	Title      string `json:"title"`
	Body       string `json:"body"`
	Category   string `json:"category"`
	StopAction string `json:"stop_action"`
	Sound      string `json:"sound"`
}

// Fire describes one firing of a trigger.
type Fire struct {
	At      time.Time
	ID      string
	Payload Payload
}

// FireFunc handles a fired trigger.
type FireFunc func(ctx context.Context, fire Fire)

type entry struct {
	payload  Payload
	id       string
	lastDay  string
	hour     int
	minute   int
	sequence uint64
}

// Registry holds daily triggers keyed by id.
type Registry struct {
	triggers map[string]*entry
	onFire   FireFunc
	logger   *slog.Logger
	now      func() time.Time
	loc      *time.Location
	capacity int
	sequence uint64
	mu       sync.Mutex
}

// Option configures a Registry.
type Option func(*Registry)

// WithCapacity limits the number of pending triggers. Zero or less means DefaultCapacity.
func WithCapacity(n int) Option {
	return func(r *Registry) {
		if n > 0 {
			r.capacity = n
		}
	}
}

// WithLocation sets the location hour:minute is evaluated in.
func WithLocation(loc *time.Location) Option {
	return func(r *Registry) { r.loc = daykey.Location(loc) }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

// NewRegistry creates a registry that calls onFire for each fired trigger.
func NewRegistry(onFire FireFunc, opts ...Option) *Registry {
	r := &Registry{
		triggers: make(map[string]*entry),
		onFire:   onFire,
		logger:   slog.Default(),
		now:      time.Now,
		loc:      time.Local,
		capacity: DefaultCapacity,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SetFireFunc replaces the fire handler. It lets the handler be wired after
// the components it depends on are built.
func (r *Registry) SetFireFunc(onFire FireFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onFire = onFire
}

// RegisterDailyTrigger adds or replaces the trigger registered under id.
func (r *Registry) RegisterDailyTrigger(ctx context.Context, id string, hour, minute int, payload Payload) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return fmt.Errorf("%w: %02d:%02d", ErrInvalidTime, hour, minute)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	existing, replacing := r.triggers[id]
	if !replacing && len(r.triggers) >= r.capacity {
		return fmt.Errorf("%w: capacity %d", ErrRegistryFull, r.capacity)
	}

	r.sequence++
	e := &entry{id: id, hour: hour, minute: minute, payload: payload, sequence: r.sequence}
	if replacing {
		e.sequence = existing.sequence
	}
	// A trigger registered during its own minute waits for the next day.
	now := r.now().In(r.loc)
	if now.Hour() == hour && now.Minute() == minute {
		e.lastDay = daykey.Key(now, r.loc)
	}
	r.triggers[id] = e
	r.logger.Debug("TriggerRegistry: registered", "id", id, "hour", hour, "minute", minute)
	return nil
}

// CancelTrigger removes the trigger registered under id.
func (r *Registry) CancelTrigger(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.triggers[id]; !ok {
		return ErrTriggerNotFound
	}
	delete(r.triggers, id)
	r.logger.Debug("TriggerRegistry: cancelled", "id", id)
	return nil
}

// Len returns the number of pending triggers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.triggers)
}

// Pending reports whether a trigger is registered under id.
func (r *Registry) Pending(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.triggers[id]
	return ok
}

// Tick fires every trigger due at the minute of at that has not fired on
// that local day yet, and returns what it fired in registration order.
func (r *Registry) Tick(ctx context.Context, at time.Time) []Fire {
	local := at.In(r.loc)
	day := daykey.Key(local, r.loc)

	r.mu.Lock()
	due := make([]*entry, 0)
	for _, e := range r.triggers {
		if e.hour == local.Hour() && e.minute == local.Minute() && e.lastDay != day {
			e.lastDay = day
			due = append(due, e)
		}
	}
	onFire := r.onFire
	r.mu.Unlock()

	sort.Slice(due, func(i, j int) bool { return due[i].sequence < due[j].sequence })
	fires := make([]Fire, 0, len(due))
	for _, e := range due {
		fire := Fire{ID: e.id, Payload: e.payload, At: at}
		fires = append(fires, fire)
		if onFire != nil {
			onFire(ctx, fire)
		}
	}
	return fires
}

// maxCatchUp bounds how many missed minutes Run replays, e.g. after the host
// was suspended.
const maxCatchUp = time.Hour

// Run ticks on every minute boundary until ctx is done. Minutes that passed
// while fire handlers were running are ticked afterwards, so a slow handler
// never makes another trigger miss its minute.
func (r *Registry) Run(ctx context.Context) {
	r.logger.Info("TriggerRegistry: started", "location", r.loc.String())
	now := r.now()
	r.Tick(ctx, now)
	last := now.Truncate(time.Minute)
	for {
		now := r.now()
		wait := now.Truncate(time.Minute).Add(time.Minute).Sub(now)
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			r.logger.Info("TriggerRegistry: stopped")
			return
		case <-timer.C:
			last = r.tickThrough(ctx, last, r.now())
		}
	}
}

// tickThrough ticks every minute after last up to and including the minute
// of now, and returns the last minute ticked.
func (r *Registry) tickThrough(ctx context.Context, last, now time.Time) time.Time {
	target := now.Truncate(time.Minute)
	if target.Sub(last) > maxCatchUp {
		r.logger.Warn("TriggerRegistry: clock jumped, skipping missed minutes", "from", last, "to", target)
		last = target.Add(-maxCatchUp)
	}
	for m := last.Add(time.Minute); !m.After(target); m = m.Add(time.Minute) {
		if ctx.Err() != nil {
			return last
		}
		r.Tick(ctx, m)
		last = m
	}
	return last
}

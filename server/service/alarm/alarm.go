package alarm

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/hrygo/healthlog/store"
)

const (
	// DefaultTitle replaces an empty alarm title.
	DefaultTitle = "No Title"
	// NotificationTitle is the headline of every alarm notification.
	NotificationTitle = "Health Log"
	// Category tags alarm notifications for presentation with a stop action.
	Category = "ALARM_CATEGORY"
	// StopAction silences a ringing alarm.
	StopAction = "STOP_ACTION"
	// DefaultSound is played when an alarm fires.
	DefaultSound = "default"
)

// TimeOfDay is a wall-clock minute in the scheduler location.
type TimeOfDay struct {
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
}

// Valid reports whether t is within 00:00 and 23:59.
func (t TimeOfDay) Valid() bool {
	return t.Hour >= 0 && t.Hour <= 23 && t.Minute >= 0 && t.Minute <= 59
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// MinuteOfDay returns Hour*60+Minute.
func (t TimeOfDay) MinuteOfDay() int {
	return t.Hour*60 + t.Minute
}

// ParseTimeOfDay parses "HH:MM" (24-hour clock, leading zero on the hour optional).
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || len(mm) != 2 || len(hh) == 0 || len(hh) > 2 {
		return TimeOfDay{}, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s)
	}
	hour, err := strconv.Atoi(hh)
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s)
	}
	minute, err := strconv.Atoi(mm)
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s)
	}
	t := TimeOfDay{Hour: hour, Minute: minute}
	if !t.Valid() {
		return TimeOfDay{}, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s)
	}
	return t, nil
}

// Alarm is a daily recurring reminder.
type Alarm struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Time      TimeOfDay `json:"time"`
	Enabled   bool      `json:"enabled"`
	CreatedTs int64     `json:"created_ts"`

	sequence uint64
}

func (a *Alarm) clone() *Alarm {
	c := *a
	return &c
}

func (a *Alarm) toStore() *store.Alarm {
	return &store.Alarm{
		ID:        a.ID,
		Title:     a.Title,
		Hour:      a.Time.Hour,
		Minute:    a.Time.Minute,
		Enabled:   a.Enabled,
		CreatedTs: a.CreatedTs,
	}
}

func fromStore(s *store.Alarm) *Alarm {
	return &Alarm{
		ID:        s.ID,
		Title:     s.Title,
		Time:      TimeOfDay{Hour: s.Hour, Minute: s.Minute},
		Enabled:   s.Enabled,
		CreatedTs: s.CreatedTs,
	}
}

// Package daykey provides calendar-day bucketing helpers shared by the
// aggregation and alarm code.
//
// Every helper takes an explicit *time.Location. Day boundaries are local
// midnights in that location, so DST transitions never shift a bucket.
package daykey

import (
	"time"

	"github.com/pkg/errors"
)

// Layout is the day key format ("yyyy-MM-dd").
const Layout = "2006-01-02"

// Location returns loc, or time.Local when loc is nil.
func Location(loc *time.Location) *time.Location {
	if loc == nil {
		return time.Local
	}
	return loc
}

// Key returns the day key of t in loc.
func Key(t time.Time, loc *time.Location) string {
	return t.In(Location(loc)).Format(Layout)
}

// StartOfDay returns local midnight of the day containing t.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	local := t.In(Location(loc))
	y, m, d := local.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, local.Location())
}

// AddDays moves day by n calendar days and returns local midnight of the
// result. Calendar arithmetic keeps the result on a midnight even when a DST
// change makes the day 23 or 25 hours long.
func AddDays(day time.Time, n int) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d+n, 0, 0, 0, 0, day.Location())
}

// Parse parses a day key in loc and returns its local midnight.
func Parse(key string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(Layout, key, Location(loc))
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "invalid day key %q", key)
	}
	return t, nil
}

// Range returns count consecutive day keys ending on last (inclusive),
// in ascending order.
func Range(last time.Time, count int) []string {
	if count <= 0 {
		return nil
	}
	keys := make([]string, 0, count)
	first := AddDays(last, -(count - 1))
	for i := 0; i < count; i++ {
		keys = append(keys, AddDays(first, i).Format(Layout))
	}
	return keys
}

// MinuteOfDay returns hour*60+minute of t in loc. Seconds are ignored.
func MinuteOfDay(t time.Time, loc *time.Location) int {
	local := t.In(Location(loc))
	return local.Hour()*60 + local.Minute()
}

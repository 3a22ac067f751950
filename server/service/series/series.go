// Package series turns timestamped log entries into dense per-day totals
// for trend display.
package series

import (
	"fmt"
	"math"
	"time"

	"github.com/pkg/errors"

	"github.com/hrygo/healthlog/internal/daykey"
	"github.com/hrygo/healthlog/store"
)

// ErrInvalidMetric is returned for an unknown metric name.
var ErrInvalidMetric = errors.New("invalid metric")

// Metric selects what a day's value means.
type Metric string

const (
	// MetricTotal sums entry values per day.
	MetricTotal Metric = "total"
	// MetricActiveDays is 1 for a day with at least one entry, else 0.
	MetricActiveDays Metric = "active_days"
)

// ParseMetric validates a metric name. An empty name selects MetricTotal.
func ParseMetric(s string) (Metric, error) {
	switch Metric(s) {
	case "":
		return MetricTotal, nil
	case MetricTotal, MetricActiveDays:
		return Metric(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidMetric, s)
	}
}

// DayTotal is one point of a series.
type DayTotal struct {
	Day   string  `json:"day"`
	Total float64 `json:"total"`
}

// DaySeries is ordered by day ascending with exactly one point per day.
type DaySeries []DayTotal

// Max returns the largest total, or 1 when no total exceeds 1.
// Chart consumers divide by it, so it is never zero.
func (s DaySeries) Max() float64 {
	m := 1.0
	for _, p := range s {
		if p.Total > m {
			m = p.Total
		}
	}
	return m
}

// Sum returns the total over every day.
func (s DaySeries) Sum() float64 {
	var sum float64
	for _, p := range s {
		sum += p.Total
	}
	return sum
}

// Window describes the trailing range a series covers.
type Window struct {
	// Since is the fetch lower bound: now minus Days whole days.
	Since time.Time
	// First and Last are local midnights of the first and last bucket.
	First time.Time
	Last  time.Time
	Days  int
}

// Keys returns the ordered day keys of the window.
func (w Window) Keys() []string {
	return daykey.Range(w.Last, w.Days)
}

// Aggregator buckets entries by calendar day in a fixed location.
// It holds no mutable state and is safe for concurrent use.
type Aggregator struct {
	loc *time.Location
}

// NewAggregator creates an aggregator bucketing in loc. A nil loc means time.Local.
func NewAggregator(loc *time.Location) *Aggregator {
	return &Aggregator{loc: daykey.Location(loc)}
}

// Location returns the bucketing location.
func (a *Aggregator) Location() *time.Location {
	return a.loc
}

// Window resolves period against now.
func (a *Aggregator) Window(period Period, now time.Time) (Window, error) {
	days, err := period.Days()
	if err != nil {
		return Window{}, err
	}
	return a.window(days, now)
}

func (a *Aggregator) window(days int, now time.Time) (Window, error) {
	if err := validateDays(days); err != nil {
		return Window{}, err
	}
	now = now.In(a.loc)
	last := daykey.StartOfDay(now, a.loc)
	return Window{
		Since: now.AddDate(0, 0, -days),
		First: daykey.AddDays(last, -(days - 1)),
		Last:  last,
		Days:  days,
	}, nil
}

// ComputeSeries sums entry values per day over period ending today.
func (a *Aggregator) ComputeSeries(entries []*store.LogEntry, period Period, now time.Time) (DaySeries, error) {
	return a.ComputeMetricSeries(entries, period, MetricTotal, now)
}

// ComputeDays is ComputeSeries for a raw day count.
func (a *Aggregator) ComputeDays(entries []*store.LogEntry, days int, now time.Time) (DaySeries, error) {
	w, err := a.window(days, now)
	if err != nil {
		return nil, err
	}
	return a.fold(entries, w, MetricTotal), nil
}

// ComputeMetricSeries computes metric per day over period ending today.
func (a *Aggregator) ComputeMetricSeries(entries []*store.LogEntry, period Period, metric Metric, now time.Time) (DaySeries, error) {
	if metric != MetricTotal && metric != MetricActiveDays {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMetric, string(metric))
	}
	w, err := a.Window(period, now)
	if err != nil {
		return nil, err
	}
	return a.fold(entries, w, metric), nil
}

// fold gap-fills the window first, then makes a single pass over entries.
// Output order comes from the key list.
func (a *Aggregator) fold(entries []*store.LogEntry, w Window, metric Metric) DaySeries {
	keys := w.Keys()
	index := make(map[string]int, len(keys))
	out := make(DaySeries, len(keys))
	for i, k := range keys {
		index[k] = i
		out[i] = DayTotal{Day: k}
	}

	for _, e := range entries {
		if !countable(e) || e.Timestamp.Before(w.Since) {
			continue
		}
		i, ok := index[daykey.Key(e.Timestamp, a.loc)]
		if !ok {
			continue
		}
		switch metric {
		case MetricActiveDays:
			out[i].Total = 1
		default:
			out[i].Total += e.Value
		}
	}
	return out
}

// DayTotal sums the values of entries that fall on day's local calendar day.
func (a *Aggregator) DayTotal(entries []*store.LogEntry, day time.Time) float64 {
	key := daykey.Key(day, a.loc)
	var total float64
	for _, e := range entries {
		if countable(e) && daykey.Key(e.Timestamp, a.loc) == key {
			total += e.Value
		}
	}
	return total
}

func countable(e *store.LogEntry) bool {
	if e == nil {
		return false
	}
	return e.Value >= 0 && !math.IsNaN(e.Value) && !math.IsInf(e.Value, 0)
}

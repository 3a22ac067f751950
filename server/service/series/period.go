package series

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrInvalidPeriod is returned for an unknown period tag or a day count below one.
var ErrInvalidPeriod = errors.New("invalid period")

// Period selects a trailing window of fixed length.
// Months are fixed day counts, never calendar months.
type Period string

const (
	PeriodLastWeek    Period = "last_week"
	PeriodLastMonth   Period = "last_month"
	PeriodLast3Months Period = "last_3_months"
	PeriodLast6Months Period = "last_6_months"
	PeriodLastYear    Period = "last_year"

	DefaultPeriod = PeriodLastWeek
)

// maxDays bounds raw day counts so a bad request cannot allocate an
// arbitrarily large series.
const maxDays = 3660

var periodDays = map[Period]int{
	PeriodLastWeek:    7,
	PeriodLastMonth:   30,
	PeriodLast3Months: 90,
	PeriodLast6Months: 180,
	PeriodLastYear:    365,
}

// Periods lists every supported period, shortest first.
func Periods() []Period {
	return []Period{PeriodLastWeek, PeriodLastMonth, PeriodLast3Months, PeriodLast6Months, PeriodLastYear}
}

// ParsePeriod validates a period tag. An empty tag selects DefaultPeriod.
func ParsePeriod(s string) (Period, error) {
	if s == "" {
		return DefaultPeriod, nil
	}
	p := Period(s)
	if _, ok := periodDays[p]; !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
	}
	return p, nil
}

// Days returns the fixed day count of p.
func (p Period) Days() (int, error) {
	days, ok := periodDays[p]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPeriod, string(p))
	}
	return days, nil
}

func validateDays(days int) error {
	if days < 1 || days > maxDays {
		return fmt.Errorf("%w: %d days", ErrInvalidPeriod, days)
	}
	return nil
}

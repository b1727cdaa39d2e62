package event

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

var ErrInvalidPeriod = errors.New("invalid period")

// Period is a UTC time window. Start is always inclusive, End only when EndInclusive is set.
type Period struct {
	Start        time.Time
	End          time.Time
	EndInclusive bool
}

func (p Period) Contains(t time.Time) bool {
	if t.Before(p.Start) {
		return false
	}
	if p.EndInclusive {
		return !t.After(p.End)
	}
	return t.Before(p.End)
}

// DayPeriod spans [00:00:00.000, 23:59:59.999] of the given UTC day.
func DayPeriod(year, month, day int) (Period, error) {
	if err := validateYearMonth(year, month); err != nil {
		return Period{}, err
	}
	start := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	// time.Date normalises 2025-02-30 to March 2nd
	if start.Day() != day || int(start.Month()) != month {
		return Period{}, fmt.Errorf("%w: day %d does not exist in %04d-%02d", ErrInvalidPeriod, day, year, month)
	}
	return Period{
		Start:        start,
		End:          start.Add(24*time.Hour - time.Millisecond),
		EndInclusive: true,
	}, nil
}

// MonthPeriod spans [first day of month, first day of next month).
func MonthPeriod(year, month int) (Period, error) {
	if err := validateYearMonth(year, month); err != nil {
		return Period{}, err
	}
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return Period{
		Start: start,
		End:   start.AddDate(0, 1, 0),
	}, nil
}

// TodayPeriod is the UTC day containing now.
func TodayPeriod(now time.Time) Period {
	now = now.UTC()
	p, _ := DayPeriod(now.Year(), int(now.Month()), now.Day())
	return p
}

func ParseDayPeriod(year, month, day string) (Period, error) {
	y, m, err := parseYearMonth(year, month)
	if err != nil {
		return Period{}, err
	}
	d, err := strconv.Atoi(day)
	if err != nil {
		return Period{}, fmt.Errorf("%w: day %q is not a number", ErrInvalidPeriod, day)
	}
	return DayPeriod(y, m, d)
}

func ParseMonthPeriod(year, month string) (Period, error) {
	y, m, err := parseYearMonth(year, month)
	if err != nil {
		return Period{}, err
	}
	return MonthPeriod(y, m)
}

func parseYearMonth(year, month string) (int, int, error) {
	y, err := strconv.Atoi(year)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: year %q is not a number", ErrInvalidPeriod, year)
	}
	m, err := strconv.Atoi(month)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: month %q is not a number", ErrInvalidPeriod, month)
	}
	return y, m, nil
}

func validateYearMonth(year, month int) error {
	if year < 1 || year > 9999 {
		return fmt.Errorf("%w: year %d out of range", ErrInvalidPeriod, year)
	}
	if month < 1 || month > 12 {
		return fmt.Errorf("%w: month %d out of range", ErrInvalidPeriod, month)
	}
	return nil
}

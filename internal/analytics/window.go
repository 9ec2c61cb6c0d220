package analytics

import (
	"fmt"
	"time"
)

const dayLayout = "2006-01-02"

// Day is a calendar date selected for daily statistics.
type Day struct {
	t time.Time
}

// ParseDay parses a YYYY-MM-DD date.
func ParseDay(s string) (Day, error) {
	t, err := time.Parse(dayLayout, s)
	if err != nil {
		return Day{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return Day{t: t}, nil
}

// DayOf returns the calendar day of t, ignoring its clock and location offset.
func DayOf(t time.Time) Day {
	return Day{t: time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)}
}

// String formats the day as YYYY-MM-DD, the prefix orders are matched on.
func (d Day) String() string {
	return d.t.Format(dayLayout)
}

// Prev returns the calendar day before d.
func (d Day) Prev() Day {
	return Day{t: d.t.AddDate(0, 0, -1)}
}

// Month is a calendar month of a given year.
type Month struct {
	Year  int
	Month time.Month
}

// NewMonth validates and builds a Month.
func NewMonth(year, month int) (Month, error) {
	if month < 1 || month > 12 {
		return Month{}, fmt.Errorf("invalid month %d", month)
	}
	if year < 1 || year > 9999 {
		return Month{}, fmt.Errorf("invalid year %d", year)
	}
	return Month{Year: year, Month: time.Month(month)}, nil
}

// MonthOf returns the month containing t.
func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Month: t.Month()}
}

// String formats the month as YYYY-MM, the prefix orders are matched on.
func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// Prev returns the month before m, rolling over to December of the previous year.
func (m Month) Prev() Month {
	if m.Month == time.January {
		return Month{Year: m.Year - 1, Month: time.December}
	}
	return Month{Year: m.Year, Month: m.Month - 1}
}

// DaysIn returns the number of days in m, leap years included.
func (m Month) DaysIn() int {
	return time.Date(m.Year, m.Month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Day returns day d of the month.
func (m Month) Day(d int) Day {
	return Day{t: time.Date(m.Year, m.Month, d, 0, 0, 0, 0, time.UTC)}
}

// Package dates provides calendar-day bucketing for events and aggregates.
// All day boundaries are computed in UTC; mixing timezones when deriving day
// keys produces off-by-one buckets, so every caller goes through this package.
package dates

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidRange is returned for unrecognized range names.
var ErrInvalidRange = errors.New("invalid range")

const dayKeyLayout = "2006-01-02"

// DayKey is a canonical calendar date ("YYYY-MM-DD", UTC). Keys compare
// chronologically with plain string comparison.
type DayKey string

// Of returns the day key owning the given instant.
func Of(t time.Time) DayKey {
	return DayKey(t.UTC().Format(dayKeyLayout))
}

// Parse validates a "YYYY-MM-DD" string and returns it as a DayKey.
func Parse(s string) (DayKey, error) {
	if _, err := time.Parse(dayKeyLayout, s); err != nil {
		return "", fmt.Errorf("parse day key %q: %w", s, err)
	}
	return DayKey(s), nil
}

// Time returns midnight UTC of the day.
func (d DayKey) Time() time.Time {
	t, _ := time.Parse(dayKeyLayout, string(d))
	return t
}

// Add returns the day key n days after d (n may be negative).
func (d DayKey) Add(n int) DayKey {
	return Of(d.Time().AddDate(0, 0, n))
}

func (d DayKey) Next() DayKey { return d.Add(1) }
func (d DayKey) Prev() DayKey { return d.Add(-1) }

// Before reports whether d is an earlier calendar day than other.
func (d DayKey) Before(other DayKey) bool {
	return string(d) < string(other)
}

func (d DayKey) String() string { return string(d) }

// Range is an inclusive interval of instants.
type Range struct {
	Start time.Time
	End   time.Time
}

// Days returns the number of calendar days the range spans, by day key.
func (r Range) Days() int {
	start, end := Of(r.Start), Of(r.End)
	if end.Before(start) {
		return 0
	}
	return int(end.Time().Sub(start.Time())/(24*time.Hour)) + 1
}

// Keys returns every day key in the range in chronological order.
func (r Range) Keys() []DayKey {
	start, end := Of(r.Start), Of(r.End)
	if end.Before(start) {
		return nil
	}
	var keys []DayKey
	for d := start; !end.Before(d); d = d.Next() {
		keys = append(keys, d)
	}
	return keys
}

// RangeFor resolves a named range relative to now. "today" runs from UTC
// midnight to now; "7d" and "30d" run from now minus N days to now.
func RangeFor(name string, now time.Time) (Range, error) {
	now = now.UTC()
	switch name {
	case "today":
		return Range{Start: Of(now).Time(), End: now}, nil
	case "7d":
		return Range{Start: now.AddDate(0, 0, -7), End: now}, nil
	case "30d":
		return Range{Start: now.AddDate(0, 0, -30), End: now}, nil
	default:
		return Range{}, fmt.Errorf("%w: %q", ErrInvalidRange, name)
	}
}

// PreviousPeriod returns the immediately preceding range of identical
// duration. The result ends one tick before r starts, so the two never
// overlap.
func PreviousPeriod(r Range) Range {
	d := r.End.Sub(r.Start)
	return Range{
		Start: r.Start.Add(-d),
		End:   r.Start.Add(-time.Nanosecond),
	}
}

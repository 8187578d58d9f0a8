package revenue

import "time"

// secondsPerDay is the length of one UTC calendar day. UTC has no DST
// transitions, so every calendar day is exactly this long.
const secondsPerDay = 24 * 60 * 60

// ToCalendarDay truncates t to midnight UTC of its wall-clock date.
// The time-of-day and the zone offset are dropped, so two timestamps that
// name the same date compare equal regardless of where they were recorded.
func ToCalendarDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// InclusiveDayCount returns the number of calendar days in [a, b].
// A reversed range yields 0.
func InclusiveDayCount(a, b time.Time) int {
	a, b = ToCalendarDay(a), ToCalendarDay(b)
	if b.Before(a) {
		return 0
	}
	return int(epochDay(b)-epochDay(a)) + 1
}

// epochDay numbers the calendar day of a UTC midnight from 1970-01-01.
// Unix seconds do not saturate the way time.Duration does, so the count
// stays exact for dates centuries apart.
func epochDay(t time.Time) int64 {
	return t.Unix() / secondsPerDay
}

// DaysInMonth returns the number of days of the calendar month containing t.
func DaysInMonth(t time.Time) int {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return InclusiveDayCount(first, first.AddDate(0, 1, -1))
}

// Interval is an inclusive range of calendar days.
type Interval struct {
	Start time.Time
	End   time.Time
}

// NewInterval builds an Interval normalized to calendar days.
func NewInterval(start, end time.Time) Interval {
	return Interval{Start: ToCalendarDay(start), End: ToCalendarDay(end)}
}

// IsEmpty reports whether the interval contains no days.
func (i Interval) IsEmpty() bool {
	return i.End.Before(i.Start)
}

// Days returns the inclusive day count of the interval.
func (i Interval) Days() int {
	return InclusiveDayCount(i.Start, i.End)
}

// Contains reports whether the calendar day of t lies within the interval.
func (i Interval) Contains(t time.Time) bool {
	d := ToCalendarDay(t)
	return !d.Before(i.Start) && !d.After(i.End)
}

// Intersect returns the overlap of a and b. The second result is false when
// max(starts) > min(ends).
func Intersect(a, b Interval) (Interval, bool) {
	start := a.Start
	if b.Start.After(start) {
		start = b.Start
	}
	end := a.End
	if b.End.Before(end) {
		end = b.End
	}
	out := NewInterval(start, end)
	if out.IsEmpty() {
		return Interval{}, false
	}
	return out, true
}

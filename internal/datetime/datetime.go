// Package datetime converts between time.Time values and the backend's
// local-time wire form (YYYY-MM-DDTHH:mm:ss) and computes the day
// boundaries used for all-day events and date-range membership.
package datetime

import (
	"fmt"
	"strings"
	"time"
)

// Layout is the wire representation. It carries no zone; values are
// interpreted in time.Local.
const Layout = "2006-01-02T15:04:05"

const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"
)

// parseLayouts are tried in order by Parse.
var parseLayouts = []string{
	Layout,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	DateLayout,
}

// Format renders t in its own location as a wire string. Sub-second
// precision is truncated.
func Format(t time.Time) string {
	return t.Format(Layout)
}

// Parse reads a wire string. Zoned RFC3339 values are converted to local time.
func Parse(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("parse datetime: empty value")
	}
	for _, layout := range parseLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.In(time.Local), nil
	}
	return time.Time{}, fmt.Errorf("parse datetime %q: unsupported format", s)
}

// ParseDate reads YYYY-MM-DD as local midnight.
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, strings.TrimSpace(s), time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: expected YYYY-MM-DD", s)
	}
	return t, nil
}

// ParseClock reads HH:MM and returns the offset from midnight.
func ParseClock(s string) (time.Duration, error) {
	t, err := time.Parse(ClockLayout, strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("parse time %q: expected HH:MM", s)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

// Combine places a clock offset on date's calendar day.
func Combine(date time.Time, clock time.Duration) time.Time {
	d := StartOfDay(date)
	h := int(clock / time.Hour)
	m := int((clock % time.Hour) / time.Minute)
	return time.Date(d.Year(), d.Month(), d.Day(), h, m, 0, 0, d.Location())
}

// StartOfDay returns 00:00:00.000 of t's calendar day.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// EndOfDay returns 23:59:59.999 of t's calendar day.
func EndOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(999*time.Millisecond), t.Location())
}

// SameDay reports whether a and b fall on the same calendar day in a's location.
func SameDay(a, b time.Time) bool {
	b = b.In(a.Location())
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// DaysBetween counts calendar days from a to b (negative when b is earlier).
// It is DST safe because both ends are reduced to UTC dates first.
func DaysBetween(a, b time.Time) int {
	b = b.In(a.Location())
	ua := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	ub := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(ub.Sub(ua).Hours() / 24)
}

// NormalizeAllDay coerces an all-day range to whole days: start becomes
// 00:00:00.000 of its day and end becomes 23:59:59.999 of end's day, or of
// start's day when end is nil or earlier than start.
func NormalizeAllDay(start time.Time, end *time.Time) (time.Time, time.Time) {
	s := StartOfDay(start)
	last := start
	if end != nil && DaysBetween(start, *end) > 0 {
		last = *end
	}
	return s, EndOfDay(last)
}

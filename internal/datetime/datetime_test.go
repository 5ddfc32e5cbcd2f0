package datetime

import (
	"testing"
	"time"
)

func local(y int, m time.Month, d, h, min, s int) time.Time {
	return time.Date(y, m, d, h, min, s, 0, time.Local)
}

// ============================================================
// Wire format
// ============================================================

func TestFormatTruncatesMilliseconds(t *testing.T) {
	ts := time.Date(2024, 7, 4, 23, 59, 59, int(999*time.Millisecond), time.Local)
	if got := Format(ts); got != "2024-07-04T23:59:59" {
		t.Fatalf("Format = %q", got)
	}
}

func TestParseLayouts(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2024-06-01T10:00:00", local(2024, 6, 1, 10, 0, 0)},
		{"2024-06-01T10:00:00.123", time.Date(2024, 6, 1, 10, 0, 0, int(123*time.Millisecond), time.Local)},
		{"2024-06-01T10:00", local(2024, 6, 1, 10, 0, 0)},
		{"2024-06-01 10:00:05", local(2024, 6, 1, 10, 0, 5)},
		{"2024-06-01", local(2024, 6, 1, 0, 0, 0)},
	}
	for _, tt := range tests {
		got, err := Parse(tt.in)
		if err != nil {
			t.Fatalf("Parse(%q): %v", tt.in, err)
		}
		if !got.Equal(tt.want) {
			t.Errorf("Parse(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseRFC3339ConvertsToLocal(t *testing.T) {
	got, err := Parse("2024-06-01T10:00:00Z")
	if err != nil {
		t.Fatal(err)
	}
	want := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	if got.Location() != time.Local {
		t.Fatalf("expected local location, got %v", got.Location())
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "   ", "tomorrow", "2024-13-01T00:00:00"} {
		if _, err := Parse(in); err == nil {
			t.Errorf("Parse(%q) should fail", in)
		}
	}
}

func TestRoundTripKeepsDayAndMinute(t *testing.T) {
	in := time.Date(2024, 2, 29, 18, 45, 33, int(250*time.Millisecond), time.Local)
	out, err := Parse(Format(in))
	if err != nil {
		t.Fatal(err)
	}
	if !SameDay(in, out) || in.Hour() != out.Hour() || in.Minute() != out.Minute() {
		t.Fatalf("round trip changed value: %v -> %v", in, out)
	}
	if out.Nanosecond() != 0 {
		t.Fatalf("expected sub-second precision dropped, got %d ns", out.Nanosecond())
	}
}

// ============================================================
// Form helpers
// ============================================================

func TestParseDateAndClock(t *testing.T) {
	d, err := ParseDate("2024-07-04")
	if err != nil {
		t.Fatal(err)
	}
	c, err := ParseClock("09:30")
	if err != nil {
		t.Fatal(err)
	}
	got := Combine(d, c)
	if !got.Equal(local(2024, 7, 4, 9, 30, 0)) {
		t.Fatalf("Combine = %v", got)
	}

	if _, err := ParseDate("07/04/2024"); err == nil {
		t.Fatal("expected error for wrong date layout")
	}
	if _, err := ParseClock("25:00"); err == nil {
		t.Fatal("expected error for out-of-range hour")
	}
}

// ============================================================
// Day boundaries
// ============================================================

func TestStartAndEndOfDay(t *testing.T) {
	ts := local(2024, 6, 1, 13, 14, 15)
	if got := StartOfDay(ts); !got.Equal(local(2024, 6, 1, 0, 0, 0)) {
		t.Fatalf("StartOfDay = %v", got)
	}
	end := EndOfDay(ts)
	if end.Hour() != 23 || end.Minute() != 59 || end.Second() != 59 || end.Nanosecond() != int(999*time.Millisecond) {
		t.Fatalf("EndOfDay = %v", end)
	}
}

func TestDaysBetween(t *testing.T) {
	tests := []struct {
		a, b time.Time
		want int
	}{
		{local(2024, 6, 1, 23, 0, 0), local(2024, 6, 2, 1, 0, 0), 1},
		{local(2024, 6, 1, 0, 0, 0), local(2024, 6, 1, 23, 59, 59), 0},
		{local(2024, 6, 3, 0, 0, 0), local(2024, 6, 1, 0, 0, 0), -2},
		{local(2024, 2, 28, 12, 0, 0), local(2024, 3, 1, 12, 0, 0), 2},
	}
	for _, tt := range tests {
		if got := DaysBetween(tt.a, tt.b); got != tt.want {
			t.Errorf("DaysBetween(%v, %v) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestNormalizeAllDaySingleDate(t *testing.T) {
	picked := local(2024, 7, 4, 15, 20, 0)
	start, end := NormalizeAllDay(picked, nil)

	if got := Format(start); got != "2024-07-04T00:00:00" {
		t.Fatalf("start = %q", got)
	}
	if got := Format(end); got != "2024-07-04T23:59:59" {
		t.Fatalf("end = %q", got)
	}
}

func TestNormalizeAllDayEarlierEndFallsBackToStartDay(t *testing.T) {
	start := local(2024, 7, 4, 10, 0, 0)
	before := local(2024, 7, 3, 10, 0, 0)
	_, end := NormalizeAllDay(start, &before)
	if got := Format(end); got != "2024-07-04T23:59:59" {
		t.Fatalf("end = %q", got)
	}
}

func TestNormalizeAllDayKeepsLaterEndDay(t *testing.T) {
	start := local(2024, 7, 4, 10, 0, 0)
	later := local(2024, 7, 6, 8, 0, 0)
	s, e := NormalizeAllDay(start, &later)
	if Format(s) != "2024-07-04T00:00:00" || Format(e) != "2024-07-06T23:59:59" {
		t.Fatalf("got %s .. %s", Format(s), Format(e))
	}
}

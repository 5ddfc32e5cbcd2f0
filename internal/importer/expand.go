package importer

import (
	"errors"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/sadopc/duet/internal/datetime"
	"github.com/sadopc/duet/internal/log"
	"github.com/sadopc/duet/internal/model"
)

const defaultMaxPerEvent = 500

// Window bounds recurrence expansion.
type Window struct {
	From time.Time
	To   time.Time
	// MaxPerEvent caps occurrences of one recurring event; zero means 500.
	MaxPerEvent int
}

// Expand converts events into schedule submissions. Non-recurring events
// are kept when they overlap the window; recurring ones yield one
// submission per occurrence inside it. Overrides (RECURRENCE-ID) replace
// the matching occurrence.
func Expand(events []Event, w Window, categoryID *int64) ([]model.ScheduleInput, error) {
	if w.To.Before(w.From) {
		return nil, errors.New("expand: window ends before it starts")
	}
	if w.MaxPerEvent <= 0 {
		w.MaxPerEvent = defaultMaxPerEvent
	}

	overrides := make(map[string][]Event)
	var bases []Event
	for _, ev := range events {
		if ev.RecurrenceID != nil && ev.UID != "" {
			overrides[ev.UID] = append(overrides[ev.UID], ev)
			continue
		}
		bases = append(bases, ev)
	}

	var out []model.ScheduleInput
	for _, ev := range bases {
		if ev.RRule == "" {
			if overlaps(ev.Start, endOrStart(ev), w.From, w.To) {
				out = append(out, toInput(ev, ev.Start, ev.End, categoryID))
			}
			continue
		}

		starts, truncated := occurrences(ev, w)
		if truncated {
			log.Error("recurrence truncated", errors.New("occurrence cap reached"), "uid", ev.UID, "cap", w.MaxPerEvent)
		}
		for _, start := range starts {
			end := occurrenceEnd(ev, start)
			inst := ev
			if o, ok := findOverride(overrides[ev.UID], start); ok {
				inst, start, end = o, o.Start, o.End
			}
			out = append(out, toInput(inst, start, end, categoryID))
		}
	}
	return out, nil
}

func occurrences(ev Event, w Window) ([]time.Time, bool) {
	r, err := rrule.StrToRRule(ev.RRule)
	if err != nil {
		log.Error("parse rrule", err, "uid", ev.UID, "rrule", ev.RRule)
		return nil, false
	}
	r.DTStart(ev.Start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.ExDates {
		set.ExDate(ex.In(ev.Start.Location()))
	}

	starts := set.Between(w.From.In(ev.Start.Location()), w.To.In(ev.Start.Location()), true)
	if len(starts) > w.MaxPerEvent {
		return starts[:w.MaxPerEvent], true
	}
	return starts, false
}

// occurrenceEnd keeps an all-day span in calendar days so a DST change
// inside the span does not shift the end by an hour.
func occurrenceEnd(ev Event, start time.Time) time.Time {
	switch {
	case ev.End.IsZero():
		return time.Time{}
	case ev.AllDay:
		return start.AddDate(0, 0, datetime.DaysBetween(ev.Start, ev.End))
	default:
		return start.Add(ev.End.Sub(ev.Start))
	}
}

func findOverride(overrides []Event, start time.Time) (Event, bool) {
	for _, o := range overrides {
		if o.RecurrenceID.Equal(start) {
			return o, true
		}
	}
	return Event{}, false
}

// toInput maps an occurrence onto a submission. iCalendar all-day ends are
// exclusive, so the last day is the one before DTEND.
func toInput(ev Event, start, end time.Time, categoryID *int64) model.ScheduleInput {
	in := model.ScheduleInput{
		Title:      ev.Summary,
		Content:    ev.Description,
		Location:   ev.Location,
		StartTime:  start,
		IsAllDay:   ev.AllDay,
		CategoryID: categoryID,
	}
	if in.Title == "" {
		in.Title = "(untitled)"
	}
	if end.IsZero() {
		return in
	}
	if ev.AllDay {
		last := end.AddDate(0, 0, -1)
		if last.Before(start) {
			last = start
		}
		end = last
	}
	in.EndTime = &end
	return in
}

func endOrStart(ev Event) time.Time {
	if ev.End.IsZero() {
		return ev.Start
	}
	return ev.End
}

func overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return !aEnd.Before(bStart) && !bEnd.Before(aStart)
}

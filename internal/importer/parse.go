// Package importer turns an iCalendar file into schedule submissions,
// expanding recurring events over a bounded window, and submits them.
package importer

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/sadopc/duet/internal/log"
)

// Event is one VEVENT before recurrence expansion.
type Event struct {
	UID         string
	Summary     string
	Description string
	Location    string

	Start  time.Time
	End    time.Time // zero when the event has neither DTEND nor DURATION
	AllDay bool

	RRule   string
	ExDates []time.Time

	// RecurrenceID is set on overrides of a single recurring instance.
	RecurrenceID *time.Time
}

// Parse reads every VEVENT in r. Events that cannot be read are logged and
// skipped.
func Parse(r io.Reader) ([]Event, error) {
	cal, err := ical.ParseCalendar(r)
	if err != nil {
		return nil, fmt.Errorf("parse calendar: %w", err)
	}

	var events []Event
	for _, ve := range cal.Events() {
		ev, err := parseEvent(ve)
		if err != nil {
			log.Error("skip vevent", err, "uid", ev.UID)
			continue
		}
		events = append(events, ev)
	}
	log.Debug("parsed calendar", "events", len(events))
	return events, nil
}

func parseEvent(ve *ical.VEvent) (Event, error) {
	var ev Event
	if p := ve.GetProperty(ical.ComponentPropertyUniqueId); p != nil {
		ev.UID = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		ev.Summary = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		ev.Description = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyLocation); p != nil {
		ev.Location = p.Value
	}

	startProp := ve.GetProperty(ical.ComponentPropertyDtStart)
	if startProp == nil || strings.TrimSpace(startProp.Value) == "" {
		return ev, errors.New("missing DTSTART")
	}
	ev.AllDay = isDateValue(startProp)

	if ev.AllDay {
		start, err := parseDate(startProp.Value)
		if err != nil {
			return ev, fmt.Errorf("DTSTART: %w", err)
		}
		ev.Start = start
		if endProp := ve.GetProperty(ical.ComponentPropertyDtEnd); endProp != nil {
			if end, err := parseDate(endProp.Value); err == nil {
				ev.End = end
			}
		}
	} else {
		start, err := ve.GetStartAt()
		if err != nil {
			return ev, fmt.Errorf("DTSTART: %w", err)
		}
		ev.Start = start.In(time.Local)
		if end, err := ve.GetEndAt(); err == nil {
			ev.End = end.In(time.Local)
		}
	}

	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil {
		ev.RRule = p.Value
	}
	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		loc, err := propertyLocation(p)
		if err != nil {
			log.Error("EXDATE", err, "uid", ev.UID)
			continue
		}
		for _, part := range strings.Split(p.Value, ",") {
			if t, err := parseTimeIn(part, loc); err == nil {
				ev.ExDates = append(ev.ExDates, t)
			}
		}
	}
	if p := ve.GetProperty(ical.ComponentProperty("RECURRENCE-ID")); p != nil {
		loc, err := propertyLocation(p)
		if err != nil {
			return ev, fmt.Errorf("RECURRENCE-ID: %w", err)
		}
		if t, err := parseTimeIn(p.Value, loc); err == nil {
			ev.RecurrenceID = &t
		}
	}
	return ev, nil
}

func isDateValue(p *ical.IANAProperty) bool {
	if vs, ok := p.ICalParameters["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		return true
	}
	return !strings.Contains(p.Value, "T")
}

func parseDate(v string) (time.Time, error) {
	return time.ParseInLocation("20060102", strings.TrimSpace(v), time.Local)
}

// propertyLocation resolves a property's TZID parameter, defaulting to
// time.Local when it has none.
func propertyLocation(p *ical.IANAProperty) (*time.Location, error) {
	tzid, ok := p.ICalParameters["TZID"]
	if !ok || len(tzid) == 0 {
		return time.Local, nil
	}
	if len(tzid) > 1 {
		return nil, errors.New("expected only one TZID")
	}
	loc, err := time.LoadLocation(tzid[0])
	if err != nil {
		return nil, fmt.Errorf("TZID %q: %w", tzid[0], err)
	}
	return loc, nil
}

// parseTimeIn reads the DATE, UTC DATE-TIME and zoned DATE-TIME forms,
// the last in loc. The result is expressed in time.Local.
func parseTimeIn(v string, loc *time.Location) (time.Time, error) {
	v = strings.TrimSpace(v)
	switch {
	case v == "":
		return time.Time{}, errors.New("empty time value")
	case strings.HasSuffix(v, "Z"):
		t, err := time.Parse("20060102T150405Z", v)
		return t.In(time.Local), err
	case strings.Contains(v, "T"):
		t, err := time.ParseInLocation("20060102T150405", v, loc)
		return t.In(time.Local), err
	default:
		return parseDate(v)
	}
}

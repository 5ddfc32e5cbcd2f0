package export

import (
	"fmt"
	"os"
	"time"

	"github.com/emersion/go-ical"

	"github.com/sadopc/duet/internal/datetime"
	"github.com/sadopc/duet/internal/model"
)

const productID = "-//duet//schedules//EN"

// ToICS writes one VEVENT per schedule. All-day schedules use DATE values
// with an exclusive DTEND; timed ones are written in UTC.
func ToICS(schedules []model.Schedule, lookup CategoryLookup, path string) error {
	cal := Calendar(schedules, lookup, time.Now())

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create ics file: %w", err)
	}
	defer f.Close()

	if err := ical.NewEncoder(f).Encode(cal); err != nil {
		return fmt.Errorf("encode ics: %w", err)
	}
	return nil
}

// Calendar builds the iCalendar document; stamp fills DTSTAMP.
func Calendar(schedules []model.Schedule, lookup CategoryLookup, stamp time.Time) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)

	for _, s := range sorted(schedules) {
		ev := ical.NewEvent()
		ev.Props.SetText(ical.PropUID, fmt.Sprintf("schedule-%d@duet", s.ID))
		ev.Props.SetDateTime(ical.PropDateTimeStamp, stamp.UTC())
		ev.Props.SetText(ical.PropSummary, s.Title)
		if s.Content != "" {
			ev.Props.SetText(ical.PropDescription, s.Content)
		}
		if s.Location != "" {
			ev.Props.SetText(ical.PropLocation, s.Location)
		}
		if name, _ := categoryName(lookup, s.CategoryID); name != Uncategorized {
			ev.Props.SetText(ical.PropCategories, name)
		}

		if s.IsAllDay {
			last := s.StartTime
			if s.EndTime != nil {
				last = *s.EndTime
			}
			ev.Props.SetDate(ical.PropDateTimeStart, datetime.StartOfDay(s.StartTime))
			ev.Props.SetDate(ical.PropDateTimeEnd, datetime.StartOfDay(last).AddDate(0, 0, 1))
		} else {
			ev.Props.SetDateTime(ical.PropDateTimeStart, s.StartTime.UTC())
			if s.EndTime != nil {
				ev.Props.SetDateTime(ical.PropDateTimeEnd, s.EndTime.UTC())
			}
		}
		cal.Children = append(cal.Children, ev.Component)
	}
	return cal
}

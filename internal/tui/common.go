package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/x/ansi"

	"github.com/sadopc/duet/internal/datetime"
	"github.com/sadopc/duet/internal/model"
)

// viewState represents the currently active view.
type viewState int

const (
	viewCalendar viewState = iota
	viewCategories
	viewReports
	viewSettings
)

var viewNames = []string{"Calendar", "Categories", "Reports", "Settings"}

// viewKeys are the default_view setting values, indexed by viewState.
var viewKeys = []string{"calendar", "categories", "reports", "settings"}

func parseView(s string) viewState {
	for i, k := range viewKeys {
		if k == s {
			return viewState(i)
		}
	}
	return viewCalendar
}

// --- Messages ---

type statusMsg struct {
	text    string
	isError bool
}

type exportDoneMsg struct {
	path string
}

// schedulesFetchedMsg reports an explicit list fetch.
type schedulesFetchedMsg struct {
	err error
}

type categoriesFetchedMsg struct {
	err error
}

// watchStartedMsg hands the store's refresh channel to the app.
type watchStartedMsg struct {
	ch <-chan error
}

// refreshMsg is one result from the refresh channel. closed is set when the
// channel has been drained for good.
type refreshMsg struct {
	ch     <-chan error
	err    error
	closed bool
}

type detailMsg struct {
	schedule *model.Schedule
	err      error
}

type scheduleSavedMsg struct {
	verb string // "added", "updated", "deleted"
	err  error
}

type categorySavedMsg struct {
	verb string
	err  error
}

type settingsChangedMsg struct{}

// --- Helpers ---

// truncate cuts s to width terminal cells, keeping ANSI sequences intact.
func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if ansi.StringWidth(s) <= width {
		return s
	}
	return ansi.Truncate(s, width, "…")
}

// timeLabel renders the time part of a day-list row.
func timeLabel(sc model.Schedule, day time.Time) string {
	if sc.IsAllDay {
		if sc.IsMultiDay() {
			return fmt.Sprintf("all day (%d/%d)", datetime.DaysBetween(sc.StartTime, day)+1, datetime.DaysBetween(sc.StartTime, *sc.EndTime)+1)
		}
		return "all day"
	}
	start := sc.StartTime.Format(datetime.ClockLayout)
	if !datetime.SameDay(sc.StartTime, day) {
		start = "…"
	}
	if sc.EndTime == nil {
		return start
	}
	end := sc.EndTime.Format(datetime.ClockLayout)
	if !datetime.SameDay(*sc.EndTime, day) {
		end = "…"
	}
	return start + "–" + end
}

// monthStart returns midnight on the first of t's month.
func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

func parseWeekStart(s string) time.Weekday {
	if s == "sunday" {
		return time.Sunday
	}
	return time.Monday
}

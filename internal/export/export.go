// Package export writes schedules to CSV, JSON, iCalendar and PDF files.
package export

import (
	"sort"

	"github.com/sadopc/duet/internal/datetime"
	"github.com/sadopc/duet/internal/model"
)

// Uncategorized labels schedules without a live category.
const Uncategorized = "Uncategorized"

// CategoryLookup resolves a schedule's weak category reference.
// category.Registry.Lookup satisfies it.
type CategoryLookup func(id *int64) (model.Category, bool)

// Format names one export target.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatICS  Format = "ics"
	FormatPDF  Format = "pdf"
)

var Formats = []Format{FormatCSV, FormatJSON, FormatICS, FormatPDF}

// Write exports schedules in format f to path.
func Write(f Format, schedules []model.Schedule, lookup CategoryLookup, path string) error {
	switch f {
	case FormatJSON:
		return ToJSON(schedules, lookup, path)
	case FormatICS:
		return ToICS(schedules, lookup, path)
	case FormatPDF:
		return ToPDF(schedules, lookup, path)
	default:
		return ToCSV(schedules, lookup, path)
	}
}

func categoryName(lookup CategoryLookup, id *int64) (string, string) {
	if lookup != nil {
		if c, ok := lookup(id); ok {
			return c.Name, string(c.Color)
		}
	}
	return Uncategorized, ""
}

func endString(s model.Schedule) string {
	if s.EndTime == nil {
		return ""
	}
	return datetime.Format(*s.EndTime)
}

// sorted orders a copy of schedules by start then id.
func sorted(schedules []model.Schedule) []model.Schedule {
	out := append([]model.Schedule(nil), schedules...)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].StartTime.Before(out[j].StartTime)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

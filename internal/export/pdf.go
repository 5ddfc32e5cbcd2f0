package export

import (
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/sadopc/duet/internal/datetime"
	"github.com/sadopc/duet/internal/model"
)

// ToPDF writes an agenda grouped by start day.
func ToPDF(schedules []model.Schedule, lookup CategoryLookup, path string) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Schedules", true)
	pdf.AddPage()
	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(40, 10, "Schedules")
	pdf.Ln(12)

	tr := pdf.UnicodeTranslatorFromDescriptor("")
	list := sorted(schedules)
	if len(list) == 0 {
		pdf.SetFont("Arial", "", 12)
		pdf.Cell(0, 8, "No schedules.")
		pdf.Ln(8)
	}

	var current time.Time
	for i, s := range list {
		if i == 0 || !datetime.SameDay(current, s.StartTime) {
			current = s.StartTime
			pdf.Ln(2)
			pdf.SetFont("Arial", "B", 13)
			pdf.Cell(0, 9, s.StartTime.Format("Monday, January 2, 2006"))
			pdf.Ln(9)
		}

		name, _ := categoryName(lookup, s.CategoryID)
		pdf.SetFont("Arial", "", 11)
		pdf.Cell(0, 7, tr(fmt.Sprintf("  %s  %s  [%s]", timeLabel(s), s.Title, name)))
		pdf.Ln(6)
		if s.Location != "" {
			pdf.SetFont("Arial", "I", 10)
			pdf.Cell(0, 6, tr("      @ "+s.Location))
			pdf.Ln(5)
		}
		if s.Content != "" {
			pdf.SetFont("Arial", "", 10)
			pdf.MultiCell(0, 5, tr("      "+s.Content), "", "", false)
		}
	}

	if err := pdf.OutputFileAndClose(path); err != nil {
		return fmt.Errorf("write pdf file: %w", err)
	}
	return nil
}

func timeLabel(s model.Schedule) string {
	switch {
	case s.IsAllDay && s.IsMultiDay():
		return "all day until " + s.EndTime.Format("Jan 2")
	case s.IsAllDay:
		return "all day"
	case s.EndTime == nil:
		return s.StartTime.Format(datetime.ClockLayout)
	case s.IsMultiDay():
		return s.StartTime.Format(datetime.ClockLayout) + " - " + s.EndTime.Format("Jan 2 15:04")
	default:
		return s.StartTime.Format(datetime.ClockLayout) + " - " + s.EndTime.Format(datetime.ClockLayout)
	}
}

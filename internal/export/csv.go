package export

import (
	"fmt"
	"os"

	"github.com/gocarina/gocsv"

	"github.com/sadopc/duet/internal/datetime"
	"github.com/sadopc/duet/internal/model"
)

type csvRow struct {
	ID       int64  `csv:"id"`
	Title    string `csv:"title"`
	Start    string `csv:"start"`
	End      string `csv:"end"`
	AllDay   bool   `csv:"all_day"`
	Category string `csv:"category"`
	Color    string `csv:"color"`
	Location string `csv:"location"`
	Weather  string `csv:"weather"`
	Content  string `csv:"content"`
}

func ToCSV(schedules []model.Schedule, lookup CategoryLookup, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv file: %w", err)
	}
	defer f.Close()

	rows := make([]*csvRow, 0, len(schedules))
	for _, s := range sorted(schedules) {
		name, color := categoryName(lookup, s.CategoryID)
		rows = append(rows, &csvRow{
			ID:       s.ID,
			Title:    s.Title,
			Start:    datetime.Format(s.StartTime),
			End:      endString(s),
			AllDay:   s.IsAllDay,
			Category: name,
			Color:    color,
			Location: s.Location,
			Weather:  string(s.Weather),
			Content:  s.Content,
		})
	}

	if err := gocsv.Marshal(&rows, f); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

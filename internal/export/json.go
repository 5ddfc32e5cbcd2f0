package export

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/sadopc/duet/internal/datetime"
	"github.com/sadopc/duet/internal/model"
)

type jsonExport struct {
	ExportedAt string         `json:"exported_at"`
	Count      int            `json:"count"`
	Schedules  []jsonSchedule `json:"schedules"`
}

type jsonSchedule struct {
	ID         int64  `json:"id"`
	Title      string `json:"title"`
	Content    string `json:"content,omitempty"`
	Location   string `json:"location,omitempty"`
	StartTime  string `json:"start_time"`
	EndTime    string `json:"end_time,omitempty"`
	IsAllDay   bool   `json:"is_all_day"`
	CategoryID *int64 `json:"category_id,omitempty"`
	Category   string `json:"category"`
	Weather    string `json:"weather,omitempty"`
}

func ToJSON(schedules []model.Schedule, lookup CategoryLookup, path string) error {
	export := jsonExport{
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
		Count:      len(schedules),
		Schedules:  []jsonSchedule{},
	}

	for _, s := range sorted(schedules) {
		name, _ := categoryName(lookup, s.CategoryID)
		export.Schedules = append(export.Schedules, jsonSchedule{
			ID:         s.ID,
			Title:      s.Title,
			Content:    s.Content,
			Location:   s.Location,
			StartTime:  datetime.Format(s.StartTime),
			EndTime:    endString(s),
			IsAllDay:   s.IsAllDay,
			CategoryID: s.CategoryID,
			Category:   name,
			Weather:    string(s.Weather),
		})
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write json file: %w", err)
	}
	return nil
}

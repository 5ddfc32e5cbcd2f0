package api

import (
	"encoding/json"
	"fmt"

	"github.com/sadopc/duet/internal/datetime"
	"github.com/sadopc/duet/internal/model"
)

// Envelope wraps every response body.
type Envelope struct {
	Code    int             `json:"code"`
	Data    json.RawMessage `json:"data,omitempty"`
	Message string          `json:"message"`
}

// ScheduleRecord is a schedule as the backend sends it.
type ScheduleRecord struct {
	ID         int64   `json:"id"`
	Title      string  `json:"title"`
	Content    string  `json:"content,omitempty"`
	Location   string  `json:"location,omitempty"`
	StartTime  string  `json:"startTime"`
	EndTime    *string `json:"endTime,omitempty"`
	IsAllDay   bool    `json:"isAllDay"`
	CategoryID *int64  `json:"categoryId,omitempty"`
	Weather    string  `json:"weather,omitempty"`
}

// ScheduleRequest is the POST/PATCH body. EndTime and CategoryID are sent as
// null when unset so an update can clear them.
type ScheduleRequest struct {
	Title      string  `json:"title"`
	Content    string  `json:"content"`
	Location   string  `json:"location"`
	StartTime  string  `json:"startTime"`
	EndTime    *string `json:"endTime"`
	IsAllDay   bool    `json:"isAllDay"`
	CategoryID *int64  `json:"categoryId"`
	Weather    string  `json:"weather,omitempty"`
}

type CategoryRecord struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Color        string `json:"color"`
	CategoryType string `json:"categoryType"`
}

// CategoryCreateRequest is the POST /categories body.
type CategoryCreateRequest struct {
	Name         string `json:"name"`
	Color        string `json:"color"`
	CategoryType string `json:"categoryType"`
}

// CategoryUpdateRequest is the PATCH /categories body.
type CategoryUpdateRequest struct {
	CategoryID   int64  `json:"categoryId"`
	Name         string `json:"name"`
	Color        string `json:"color"`
	CategoryType string `json:"categoryType"`
}

// NewScheduleRequest renders an input for the wire. Every time value goes
// through the datetime wire format.
func NewScheduleRequest(in model.ScheduleInput) ScheduleRequest {
	req := ScheduleRequest{
		Title:      in.Title,
		Content:    in.Content,
		Location:   in.Location,
		StartTime:  datetime.Format(in.StartTime),
		IsAllDay:   in.IsAllDay,
		CategoryID: in.CategoryID,
		Weather:    string(in.Weather),
	}
	if in.EndTime != nil {
		end := datetime.Format(*in.EndTime)
		req.EndTime = &end
	}
	return req
}

// Schedule converts a record into the model type.
func (r ScheduleRecord) Schedule() (model.Schedule, error) {
	start, err := datetime.Parse(r.StartTime)
	if err != nil {
		return model.Schedule{}, fmt.Errorf("schedule %d start: %w", r.ID, err)
	}
	s := model.Schedule{
		ID:         r.ID,
		Title:      r.Title,
		Content:    r.Content,
		Location:   r.Location,
		StartTime:  start,
		IsAllDay:   r.IsAllDay,
		CategoryID: r.CategoryID,
	}
	if r.EndTime != nil && *r.EndTime != "" {
		end, err := datetime.Parse(*r.EndTime)
		if err != nil {
			return model.Schedule{}, fmt.Errorf("schedule %d end: %w", r.ID, err)
		}
		s.EndTime = &end
	}
	if w, ok := model.ParseWeather(r.Weather); ok {
		s.Weather = w
	}
	return s, nil
}

// RecordFromSchedule is the inverse of ScheduleRecord.Schedule.
func RecordFromSchedule(s model.Schedule) ScheduleRecord {
	r := ScheduleRecord{
		ID:         s.ID,
		Title:      s.Title,
		Content:    s.Content,
		Location:   s.Location,
		StartTime:  datetime.Format(s.StartTime),
		IsAllDay:   s.IsAllDay,
		CategoryID: s.CategoryID,
		Weather:    string(s.Weather),
	}
	if s.EndTime != nil {
		end := datetime.Format(*s.EndTime)
		r.EndTime = &end
	}
	return r
}

// Category converts a record into the model type. The color is kept
// verbatim (upper-cased when it matches the palette) so the registry can
// decide what to do with unknown tokens.
func (r CategoryRecord) Category() model.Category {
	color := model.Color(r.Color)
	if c, ok := model.ParseColor(r.Color); ok {
		color = c
	}
	return model.Category{
		ID:    r.ID,
		Name:  r.Name,
		Color: color,
		Type:  model.CategoryType(r.CategoryType),
	}
}

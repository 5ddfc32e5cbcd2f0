// Package model holds the schedule and category records shared by the
// API client, the caches and the UI.
package model

import (
	"strings"
	"time"

	"github.com/sadopc/duet/internal/datetime"
)

// Color is one slot of the fixed category palette. At most one live
// category holds a given color.
type Color string

const (
	ColorRed    Color = "RED"
	ColorOrange Color = "ORANGE"
	ColorYellow Color = "YELLOW"
	ColorGreen  Color = "GREEN"
	ColorBlue   Color = "BLUE"
	ColorIndigo Color = "INDIGO"
	ColorViolet Color = "VIOLET"
)

// Palette lists every color in allocation order.
var Palette = []Color{ColorRed, ColorOrange, ColorYellow, ColorGreen, ColorBlue, ColorIndigo, ColorViolet}

// ParseColor matches s against the palette, ignoring case and surrounding space.
func ParseColor(s string) (Color, bool) {
	c := Color(strings.ToUpper(strings.TrimSpace(s)))
	for _, p := range Palette {
		if p == c {
			return p, true
		}
	}
	return "", false
}

type CategoryType string

const CategoryTypeSchedule CategoryType = "SCHEDULE"

type Category struct {
	ID    int64
	Name  string
	Color Color
	Type  CategoryType
}

// Weather is an optional tag on a schedule. The zero value means none.
type Weather string

const (
	WeatherNone   Weather = ""
	WeatherSunny  Weather = "SUNNY"
	WeatherCloudy Weather = "CLOUDY"
	WeatherRainy  Weather = "RAINY"
	WeatherSnowy  Weather = "SNOWY"
	WeatherWindy  Weather = "WINDY"
)

var Weathers = []Weather{WeatherSunny, WeatherCloudy, WeatherRainy, WeatherSnowy, WeatherWindy}

// ParseWeather accepts any case; empty input yields WeatherNone.
func ParseWeather(s string) (Weather, bool) {
	w := Weather(strings.ToUpper(strings.TrimSpace(s)))
	if w == WeatherNone {
		return WeatherNone, true
	}
	for _, known := range Weathers {
		if known == w {
			return w, true
		}
	}
	return "", false
}

type Schedule struct {
	ID        int64
	Title     string
	Content   string
	Location  string
	StartTime time.Time
	EndTime   *time.Time // nil for point-in-time events
	IsAllDay  bool

	// CategoryID may point at a category that no longer exists.
	CategoryID *int64
	Weather    Weather
}

// IsMultiDay reports whether the schedule's start and end fall on different
// calendar days.
func (s Schedule) IsMultiDay() bool {
	return s.EndTime != nil && datetime.DaysBetween(s.StartTime, *s.EndTime) != 0
}

// Input converts a schedule back into an editable submission.
func (s Schedule) Input() ScheduleInput {
	in := ScheduleInput{
		Title:     s.Title,
		Content:   s.Content,
		Location:  s.Location,
		StartTime: s.StartTime,
		IsAllDay:  s.IsAllDay,
		Weather:   s.Weather,
	}
	if s.EndTime != nil {
		end := *s.EndTime
		in.EndTime = &end
	}
	if s.CategoryID != nil {
		id := *s.CategoryID
		in.CategoryID = &id
	}
	return in
}

// ScheduleInput is the payload of a create or update.
type ScheduleInput struct {
	Title      string
	Content    string
	Location   string
	StartTime  time.Time
	EndTime    *time.Time
	IsAllDay   bool
	CategoryID *int64
	Weather    Weather
}

// Validate checks the submission before anything is sent.
func (in ScheduleInput) Validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return &ValidationError{Field: "title", Message: "title is required"}
	}
	if in.StartTime.IsZero() {
		return &ValidationError{Field: "startTime", Message: "start time is required"}
	}
	if in.EndTime != nil && !in.IsAllDay && in.EndTime.Before(in.StartTime) {
		return &ValidationError{Field: "endTime", Message: "end time is before start time"}
	}
	if _, ok := ParseWeather(string(in.Weather)); !ok {
		return &ValidationError{Field: "weather", Message: "unknown weather " + string(in.Weather)}
	}
	return nil
}

// Normalize trims text fields and applies the all-day day-boundary coercion.
func (in ScheduleInput) Normalize() ScheduleInput {
	out := in
	out.Title = strings.TrimSpace(in.Title)
	out.Content = strings.TrimSpace(in.Content)
	out.Location = strings.TrimSpace(in.Location)
	if in.IsAllDay {
		start, end := datetime.NormalizeAllDay(in.StartTime, in.EndTime)
		out.StartTime = start
		out.EndTime = &end
	}
	return out
}

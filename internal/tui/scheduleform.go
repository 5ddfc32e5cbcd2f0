package tui

import (
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/huh"

	"github.com/sadopc/duet/internal/datetime"
	"github.com/sadopc/duet/internal/model"
)

// formValues backs the add/edit form. The form writes through these
// pointers, so they survive the value copies of the Bubble Tea models.
type formValues struct {
	Title    string
	Date     string
	Start    string
	EndDate  string
	End      string
	AllDay   bool
	Category int64 // 0 = none
	Weather  string
	Location string
	Content  string
}

func newFormValues(day time.Time) *formValues {
	return &formValues{
		Date:  day.Format(datetime.DateLayout),
		Start: "09:00",
	}
}

// valuesFromSchedule prefills the edit form. A category that no longer
// exists is cleared.
func valuesFromSchedule(sc model.Schedule, lookup func(*int64) (model.Category, bool)) *formValues {
	v := &formValues{
		Title:    sc.Title,
		Date:     sc.StartTime.Format(datetime.DateLayout),
		AllDay:   sc.IsAllDay,
		Weather:  string(sc.Weather),
		Location: sc.Location,
		Content:  sc.Content,
	}
	if !sc.IsAllDay {
		v.Start = sc.StartTime.Format(datetime.ClockLayout)
	}
	if sc.EndTime != nil {
		if !datetime.SameDay(sc.StartTime, *sc.EndTime) {
			v.EndDate = sc.EndTime.Format(datetime.DateLayout)
		}
		if !sc.IsAllDay {
			v.End = sc.EndTime.Format(datetime.ClockLayout)
		}
	}
	if c, ok := lookup(sc.CategoryID); ok {
		v.Category = c.ID
	}
	return v
}

// input converts the form into a submission. Format problems come back as
// validation errors; range checks are left to ScheduleInput.Validate.
func (v *formValues) input() (model.ScheduleInput, error) {
	in := model.ScheduleInput{
		Title:    v.Title,
		Location: v.Location,
		Content:  v.Content,
		IsAllDay: v.AllDay,
	}

	date, err := datetime.ParseDate(v.Date)
	if err != nil {
		return in, &model.ValidationError{Field: "date", Message: err.Error()}
	}
	endDate := date
	if strings.TrimSpace(v.EndDate) != "" {
		if endDate, err = datetime.ParseDate(v.EndDate); err != nil {
			return in, &model.ValidationError{Field: "endDate", Message: err.Error()}
		}
	}

	if v.AllDay {
		in.StartTime = date
		if strings.TrimSpace(v.EndDate) != "" {
			in.EndTime = &endDate
		}
	} else {
		if strings.TrimSpace(v.Start) == "" {
			return in, &model.ValidationError{Field: "startTime", Message: "start time is required unless the event is all day"}
		}
		clock, err := datetime.ParseClock(v.Start)
		if err != nil {
			return in, &model.ValidationError{Field: "startTime", Message: err.Error()}
		}
		in.StartTime = datetime.Combine(date, clock)

		switch {
		case strings.TrimSpace(v.End) != "":
			endClock, err := datetime.ParseClock(v.End)
			if err != nil {
				return in, &model.ValidationError{Field: "endTime", Message: err.Error()}
			}
			end := datetime.Combine(endDate, endClock)
			in.EndTime = &end
		case strings.TrimSpace(v.EndDate) != "":
			end := datetime.Combine(endDate, clock)
			in.EndTime = &end
		}
	}

	if v.Category != 0 {
		id := v.Category
		in.CategoryID = &id
	}
	w, ok := model.ParseWeather(v.Weather)
	if !ok {
		return in, &model.ValidationError{Field: "weather", Message: "unknown weather " + v.Weather}
	}
	in.Weather = w
	return in, nil
}

func optionalDate(s string) error {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	_, err := datetime.ParseDate(s)
	return err
}

func optionalClock(s string) error {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	_, err := datetime.ParseClock(s)
	return err
}

func newScheduleForm(v *formValues, categories []model.Category) *huh.Form {
	catOptions := []huh.Option[int64]{huh.NewOption("No category", int64(0))}
	for _, c := range categories {
		catOptions = append(catOptions, huh.NewOption("● "+c.Name+" ("+strings.ToLower(string(c.Color))+")", c.ID))
	}
	weatherOptions := []huh.Option[string]{huh.NewOption("None", "")}
	for _, w := range model.Weathers {
		weatherOptions = append(weatherOptions, huh.NewOption(strings.ToLower(string(w)), string(w)))
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Title").Value(&v.Title).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return errors.New("title is required")
					}
					return nil
				}),
			huh.NewInput().Title("Date (YYYY-MM-DD)").Value(&v.Date).
				Validate(func(s string) error {
					_, err := datetime.ParseDate(s)
					return err
				}),
			huh.NewConfirm().Title("All day?").Affirmative("Yes").Negative("No").Value(&v.AllDay),
			huh.NewInput().Title("Start time (HH:MM)").Value(&v.Start).Validate(optionalClock),
			huh.NewInput().Title("End date (optional)").Value(&v.EndDate).Validate(optionalDate),
			huh.NewInput().Title("End time (optional)").Value(&v.End).Validate(optionalClock),
		).Title("When"),
		huh.NewGroup(
			huh.NewSelect[int64]().Title("Category").Options(catOptions...).Value(&v.Category),
			huh.NewSelect[string]().Title("Weather").Options(weatherOptions...).Value(&v.Weather),
			huh.NewInput().Title("Location").Value(&v.Location),
			huh.NewText().Title("Notes").Value(&v.Content),
		).Title("Details"),
	).WithShowHelp(true).WithShowErrors(true)
}

func newConfirmForm(title string, confirmed *bool) *huh.Form {
	*confirmed = false
	return huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().Title(title).Affirmative("Delete").Negative("Cancel").Value(confirmed),
		),
	).WithShowHelp(false)
}

package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/sadopc/duet/internal/api"
	"github.com/sadopc/duet/internal/category"
	"github.com/sadopc/duet/internal/datetime"
	"github.com/sadopc/duet/internal/model"
	"github.com/sadopc/duet/internal/schedule"
)

type calendarMode int

const (
	modeBrowse calendarMode = iota
	modeDetail
	modeForm
	modeConfirmDelete
	modeSaving
)

const maxBars = 3

type calendarModel struct {
	ctx        context.Context
	schedules  *schedule.Store
	categories *category.Registry
	width      int
	height     int

	month      time.Time // first day of the visible month
	weekStart  time.Weekday
	listCursor int
	now        func() time.Time

	mode          calendarMode
	detail        *model.Schedule
	detailLoading bool

	form      *huh.Form
	values    *formValues
	editingID int64 // 0 while adding
	formErr   string

	confirm   *huh.Form
	confirmed *bool
	deleting  model.Schedule

	alert string
}

func newCalendarModel(ctx context.Context, s *schedule.Store, r *category.Registry, weekStart time.Weekday) calendarModel {
	confirmed := false
	return calendarModel{
		ctx:        ctx,
		schedules:  s,
		categories: r,
		month:      monthStart(s.SelectedDate()),
		weekStart:  weekStart,
		now:        time.Now,
		confirmed:  &confirmed,
	}
}

func (c *calendarModel) setSize(w, h int) {
	c.width = w
	c.height = h
}

// capturing reports whether the calendar owns the keyboard.
func (c calendarModel) capturing() bool {
	return c.mode != modeBrowse || c.alert != ""
}

func (c calendarModel) fetch() tea.Cmd {
	return func() tea.Msg {
		return schedulesFetchedMsg{err: c.schedules.Fetch(c.ctx)}
	}
}

// selectedSchedule is the day-list row under the cursor.
func (c calendarModel) selectedSchedule() (model.Schedule, bool) {
	list := c.schedules.Selected()
	if len(list) == 0 {
		return model.Schedule{}, false
	}
	i := min(c.listCursor, len(list)-1)
	return list[i], true
}

func (c calendarModel) update(msg tea.Msg) (calendarModel, tea.Cmd) {
	switch msg := msg.(type) {
	case detailMsg:
		c.detailLoading = false
		if c.mode != modeDetail {
			return c, nil
		}
		if msg.err != nil {
			c.alert = api.UserMessage(msg.err)
			return c, nil
		}
		if msg.schedule != nil {
			c.detail = msg.schedule
		}
		return c, nil

	case scheduleSavedMsg:
		return c.handleSaved(msg)
	}

	if c.alert != "" {
		if _, ok := msg.(tea.KeyMsg); ok {
			c.alert = ""
		}
		return c, nil
	}

	switch c.mode {
	case modeForm:
		return c.updateForm(msg)
	case modeConfirmDelete:
		return c.updateConfirm(msg)
	case modeSaving:
		return c, nil
	}

	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return c, nil
	}
	if c.mode == modeDetail {
		return c.updateDetail(keyMsg)
	}
	return c.updateBrowse(keyMsg)
}

func (c calendarModel) updateBrowse(msg tea.KeyMsg) (calendarModel, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Left):
		c.moveSelection(-1)
	case key.Matches(msg, keys.Right):
		c.moveSelection(1)
	case key.Matches(msg, keys.Up):
		c.moveSelection(-7)
	case key.Matches(msg, keys.Down):
		c.moveSelection(7)
	case key.Matches(msg, keys.PrevMonth):
		c.selectDay(c.month.AddDate(0, -1, 0))
	case key.Matches(msg, keys.NextMonth):
		c.selectDay(c.month.AddDate(0, 1, 0))
	case key.Matches(msg, keys.Today):
		c.selectDay(c.now())
	case key.Matches(msg, keys.ListUp):
		if c.listCursor > 0 {
			c.listCursor--
		}
	case key.Matches(msg, keys.ListDown):
		if c.listCursor < len(c.schedules.Selected())-1 {
			c.listCursor++
		}
	case key.Matches(msg, keys.Refresh):
		return c, c.fetch()
	case key.Matches(msg, keys.Enter):
		if sc, ok := c.selectedSchedule(); ok {
			return c.openDetail(sc)
		}
	case key.Matches(msg, keys.New):
		return c.openForm(newFormValues(c.schedules.SelectedDate()), 0)
	case key.Matches(msg, keys.Edit):
		if sc, ok := c.selectedSchedule(); ok {
			return c.openForm(valuesFromSchedule(sc, c.categories.Lookup), sc.ID)
		}
	case key.Matches(msg, keys.Delete):
		if sc, ok := c.selectedSchedule(); ok {
			return c.openConfirm(sc)
		}
	}
	return c, nil
}

func (c *calendarModel) moveSelection(days int) {
	c.selectDay(c.schedules.SelectedDate().AddDate(0, 0, days))
}

// selectDay moves the selection to t's day and scrolls the grid with it.
func (c *calendarModel) selectDay(t time.Time) {
	c.schedules.SetSelectedDate(t)
	c.month = monthStart(c.schedules.SelectedDate())
	c.listCursor = 0
}

// ============================================================
// Detail
// ============================================================

func (c calendarModel) openDetail(sc model.Schedule) (calendarModel, tea.Cmd) {
	c.mode = modeDetail
	c.detail = &sc
	c.detailLoading = true
	id := sc.ID
	return c, func() tea.Msg {
		fresh, err := c.schedules.Detail(c.ctx, id)
		return detailMsg{schedule: fresh, err: err}
	}
}

func (c calendarModel) updateDetail(msg tea.KeyMsg) (calendarModel, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Back):
		c.mode = modeBrowse
		c.detail = nil
	case key.Matches(msg, keys.Edit):
		if c.detail != nil {
			return c.openForm(valuesFromSchedule(*c.detail, c.categories.Lookup), c.detail.ID)
		}
	case key.Matches(msg, keys.Delete):
		if c.detail != nil {
			return c.openConfirm(*c.detail)
		}
	}
	return c, nil
}

// ============================================================
// Add / edit
// ============================================================

func (c calendarModel) openForm(v *formValues, id int64) (calendarModel, tea.Cmd) {
	c.values = v
	c.editingID = id
	c.formErr = ""
	c.mode = modeForm
	c.form = newScheduleForm(v, c.categories.Categories())
	return c, c.form.Init()
}

// reopenForm rebuilds the form around the current values after a rejected
// submission. A category deleted in the meantime is cleared.
func (c calendarModel) reopenForm(reason string) (calendarModel, tea.Cmd) {
	c.formErr = reason
	c.mode = modeForm
	if id := c.values.Category; id != 0 {
		if _, ok := c.categories.Lookup(&id); !ok {
			c.values.Category = 0
		}
	}
	c.form = newScheduleForm(c.values, c.categories.Categories())
	return c, c.form.Init()
}

func (c calendarModel) updateForm(msg tea.Msg) (calendarModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && msg.String() == "esc" {
		c.mode = modeBrowse
		c.form = nil
		c.detail = nil
		return c, nil
	}

	form, cmd := c.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		c.form = f
	}

	switch c.form.State {
	case huh.StateAborted:
		c.mode = modeBrowse
		c.form = nil
		return c, nil
	case huh.StateCompleted:
		in, err := c.values.input()
		if err != nil {
			return c.reopenForm(err.Error())
		}
		if err := in.Normalize().Validate(); err != nil {
			return c.reopenForm(err.Error())
		}
		c.mode = modeSaving
		return c, c.save(in)
	}
	return c, cmd
}

func (c calendarModel) save(in model.ScheduleInput) tea.Cmd {
	id := c.editingID
	return func() tea.Msg {
		if id == 0 {
			_, err := c.schedules.Add(c.ctx, in)
			return scheduleSavedMsg{verb: "added", err: err}
		}
		_, err := c.schedules.Update(c.ctx, id, in)
		return scheduleSavedMsg{verb: "updated", err: err}
	}
}

func (c calendarModel) handleSaved(msg scheduleSavedMsg) (calendarModel, tea.Cmd) {
	if msg.err != nil {
		if msg.verb == "deleted" {
			c.mode = modeBrowse
			c.alert = api.UserMessage(msg.err)
			return c, nil
		}
		if errors.Is(msg.err, model.ErrValidation) {
			return c.reopenForm(msg.err.Error())
		}
		// Keep the modal open so the user can correct and resubmit.
		c, cmd := c.reopenForm("")
		c.alert = api.UserMessage(msg.err)
		return c, cmd
	}

	c.mode = modeBrowse
	c.form = nil
	c.detail = nil
	text := "Schedule " + msg.verb
	return c, func() tea.Msg { return statusMsg{text: text} }
}

// ============================================================
// Delete
// ============================================================

func (c calendarModel) openConfirm(sc model.Schedule) (calendarModel, tea.Cmd) {
	c.deleting = sc
	c.form = nil
	c.mode = modeConfirmDelete
	c.confirm = newConfirmForm(fmt.Sprintf("Delete %q?", sc.Title), c.confirmed)
	return c, c.confirm.Init()
}

func (c calendarModel) updateConfirm(msg tea.Msg) (calendarModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && msg.String() == "esc" {
		c.mode = modeBrowse
		c.confirm = nil
		return c, nil
	}

	form, cmd := c.confirm.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		c.confirm = f
	}

	switch c.confirm.State {
	case huh.StateAborted:
		c.mode = modeBrowse
		c.confirm = nil
	case huh.StateCompleted:
		c.confirm = nil
		if !*c.confirmed {
			c.mode = modeBrowse
			return c, nil
		}
		c.mode = modeSaving
		id := c.deleting.ID
		return c, func() tea.Msg {
			return scheduleSavedMsg{verb: "deleted", err: c.schedules.Delete(c.ctx, id)}
		}
	}
	return c, cmd
}

// ============================================================
// Rendering
// ============================================================

func (c calendarModel) view() string {
	w := c.width - 4

	var content string
	switch {
	case c.fatalErr() != nil:
		content = c.renderFatal(w)
	case c.mode == modeForm || c.mode == modeSaving && c.form != nil:
		content = c.renderForm(w)
	case c.mode == modeConfirmDelete && c.confirm != nil:
		content = activePanelStyle.Width(w).Render(c.confirm.View())
	case c.mode == modeDetail && c.detail != nil:
		content = c.renderDetail(w)
	default:
		content = lipgloss.JoinVertical(lipgloss.Left, c.renderMonth(w), c.renderDayList(w))
	}

	if c.alert != "" {
		alert := alertPanelStyle.Width(min(w, 60)).Render(lipgloss.JoinVertical(lipgloss.Left,
			errorStyle.Render("Something went wrong"), "", c.alert, "", mutedStyle.Render("press any key"),
		))
		content = lipgloss.JoinVertical(lipgloss.Left, alert, content)
	}
	return content
}

// fatalErr is the list fetch failure when nothing is cached to show.
func (c calendarModel) fatalErr() error {
	st := c.schedules.Status()
	if st.Err != nil && st.FetchedAt.IsZero() && !st.Loading {
		return st.Err
	}
	return nil
}

func (c calendarModel) renderFatal(w int) string {
	return alertPanelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left,
		errorStyle.Render("Could not load schedules"),
		"",
		api.UserMessage(c.fatalErr()),
		"",
		mutedStyle.Render("r: retry  q: quit"),
	))
}

func (c calendarModel) renderForm(w int) string {
	title := "New schedule"
	if c.editingID != 0 {
		title = "Edit schedule"
	}
	rows := []string{titleStyle.Render(title), ""}
	if c.formErr != "" {
		rows = append(rows, errorStyle.Render(c.formErr), "")
	}
	if c.mode == modeSaving {
		rows = append(rows, mutedStyle.Render("Saving…"))
	} else {
		rows = append(rows, c.form.View())
	}
	return activePanelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (c calendarModel) renderDetail(w int) string {
	sc := *c.detail
	rows := []string{titleStyle.Render(sc.Title), ""}

	when := sc.StartTime.Format("Mon Jan 2, 2006 15:04")
	if sc.IsAllDay {
		when = sc.StartTime.Format("Mon Jan 2, 2006") + " (all day)"
	}
	if sc.EndTime != nil {
		end := sc.EndTime.Format("Mon Jan 2, 2006 15:04")
		switch {
		case sc.IsAllDay && sc.IsMultiDay():
			end = sc.EndTime.Format("Mon Jan 2, 2006")
		case sc.IsAllDay:
			end = ""
		case datetime.SameDay(sc.StartTime, *sc.EndTime):
			end = sc.EndTime.Format(datetime.ClockLayout)
		}
		if end != "" {
			when += " → " + end
		}
	}
	rows = append(rows, detailRow("When", when+"  "+mutedStyle.Render(humanize.Time(sc.StartTime))))

	if cat, ok := c.categories.Lookup(sc.CategoryID); ok {
		rows = append(rows, detailRow("Category", swatch(cat.Color)+" "+cat.Name))
	} else {
		rows = append(rows, detailRow("Category", mutedStyle.Render("No category")))
	}
	if sc.Location != "" {
		rows = append(rows, detailRow("Location", sc.Location))
	}
	if sc.Weather != model.WeatherNone {
		rows = append(rows, detailRow("Weather", strings.ToLower(string(sc.Weather))))
	}
	if sc.Content != "" {
		rows = append(rows, "", sc.Content)
	}
	if c.detailLoading {
		rows = append(rows, "", mutedStyle.Render("Refreshing…"))
	}
	rows = append(rows, "", mutedStyle.Render("e: edit  d: delete  esc: back"))
	return activePanelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func detailRow(label, value string) string {
	return lipgloss.NewStyle().Width(10).Foreground(colorMuted).Render(label) + value
}

func (c calendarModel) cellWidth(w int) int {
	cw := (w - 6) / 7
	return max(4, min(cw, 16))
}

// gridStart is the first day shown: the week-start day on or before the
// first of the month.
func (c calendarModel) gridStart() time.Time {
	offset := (int(c.month.Weekday()) - int(c.weekStart) + 7) % 7
	return c.month.AddDate(0, 0, -offset)
}

func (c calendarModel) renderMonth(w int) string {
	cw := c.cellWidth(w)
	cell := lipgloss.NewStyle().Width(cw)
	selected := c.schedules.SelectedDate()
	today := c.now()

	title := titleStyle.Render(c.month.Format("January 2006"))
	if c.schedules.Status().Loading {
		title += mutedStyle.Render("  syncing…")
	} else if st := c.schedules.Status(); st.Stale {
		title += warningStyle.Render("  offline copy from " + humanize.Time(st.FetchedAt))
	}

	var head []string
	for i := 0; i < 7; i++ {
		wd := time.Weekday((int(c.weekStart) + i) % 7)
		head = append(head, cell.Render(subtitleStyle.Render(wd.String()[:2])))
	}

	rows := []string{title, "", lipgloss.JoinHorizontal(lipgloss.Top, head...)}
	day := c.gridStart()
	for week := 0; week < 6; week++ {
		var nums, marks []string
		for i := 0; i < 7; i++ {
			nums = append(nums, cell.Render(c.dayNumber(day, selected, today)))
			marks = append(marks, cell.Render(c.dayMarks(day, cw)))
			day = day.AddDate(0, 0, 1)
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, nums...), lipgloss.JoinHorizontal(lipgloss.Top, marks...))
	}
	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (c calendarModel) dayNumber(day, selected, today time.Time) string {
	label := fmt.Sprintf("%2d", day.Day())
	switch {
	case datetime.SameDay(day, selected):
		return selectedDayStyle.Render(label)
	case datetime.SameDay(day, today):
		return todayStyle.Render(label)
	case day.Month() != c.month.Month():
		return otherMonthDayStyle.Render(label)
	}
	return dayStyle.Render(label)
}

// dayMarks draws a dot for single-day schedules and one bar per multi-day
// span, colored by category.
func (c calendarModel) dayMarks(day time.Time, cw int) string {
	m := c.schedules.Marks(day)
	if m.Empty() {
		return ""
	}
	var b strings.Builder
	if m.HasSingleDay {
		b.WriteString(highlightStyle.Render("●"))
	}
	spans := m.MultiDay
	if len(spans) > maxBars {
		spans = spans[:maxBars]
	}
	if len(spans) > 0 {
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		barW := max(1, (cw-3)/len(spans))
		for _, sc := range spans {
			color := model.Color("")
			if cat, ok := c.categories.Lookup(sc.CategoryID); ok {
				color = cat.Color
			}
			b.WriteString(categoryStyle(color).Render(strings.Repeat("━", barW)))
		}
	}
	return truncate(b.String(), cw-1)
}

func (c calendarModel) renderDayList(w int) string {
	selected := c.schedules.SelectedDate()
	list := c.schedules.Selected()
	title := titleStyle.Render(selected.Format("Monday, January 2"))

	if len(list) == 0 {
		return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left,
			title, "", mutedStyle.Render("Nothing planned. Press n to add a schedule."),
		))
	}

	cursor := min(c.listCursor, len(list)-1)
	rows := []string{title, ""}
	for i, sc := range list {
		prefix := "  "
		style := normalItemStyle
		if i == cursor {
			prefix = "> "
			style = selectedItemStyle
		}
		color := model.Color("")
		if cat, ok := c.categories.Lookup(sc.CategoryID); ok {
			color = cat.Color
		}
		label := fmt.Sprintf("%-16s", timeLabel(sc, selected))
		line := prefix + swatch(color) + " " + mutedStyle.Render(label) + " " + style.Render(sc.Title)
		rows = append(rows, truncate(line, w-6))
	}
	rows = append(rows, "", mutedStyle.Render("  J/K: select  enter: details  n: new  e: edit  d: delete"))
	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}

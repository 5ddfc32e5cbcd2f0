package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/sadopc/duet/internal/api"
	"github.com/sadopc/duet/internal/category"
	"github.com/sadopc/duet/internal/log"
	"github.com/sadopc/duet/internal/schedule"
	"github.com/sadopc/duet/internal/store"
)

type settingsModel struct {
	store      *store.Store
	schedules  *schedule.Store
	categories *category.Registry
	width      int
	height     int

	settings   []store.Setting
	formActive bool
	form       *huh.Form

	// Form values as pointers (survive value copies)
	weekStart   *string
	defaultView *string
}

func newSettingsModel(st *store.Store, s *schedule.Store, r *category.Registry) settingsModel {
	ws, dv := "", ""
	return settingsModel{
		store:       st,
		schedules:   s,
		categories:  r,
		weekStart:   &ws,
		defaultView: &dv,
	}
}

func (s *settingsModel) setSize(w, h int) {
	s.width = w
	s.height = h
}

type settingsDataMsg struct {
	settings []store.Setting
}

func (s settingsModel) refresh() tea.Cmd {
	return func() tea.Msg {
		settings, err := s.store.GetAllSettings()
		if err != nil {
			log.Error("load settings", err)
		}
		return settingsDataMsg{settings: settings}
	}
}

func (s settingsModel) update(msg tea.Msg) (settingsModel, tea.Cmd) {
	if s.formActive && s.form != nil {
		return s.updateForm(msg)
	}

	switch msg := msg.(type) {
	case settingsDataMsg:
		s.settings = msg.settings
		return s, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Enter), key.Matches(msg, keys.Edit):
			return s.showForm()
		}
	}
	return s, nil
}

func (s settingsModel) showForm() (settingsModel, tea.Cmd) {
	*s.weekStart = s.store.SettingOrDefault(store.SettingWeekStart)
	*s.defaultView = s.store.SettingOrDefault(store.SettingDefaultView)

	viewOptions := make([]huh.Option[string], len(viewKeys))
	for i, k := range viewKeys {
		viewOptions[i] = huh.NewOption(viewNames[i], k)
	}

	s.form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().Title("Week starts on").
				Options(
					huh.NewOption("Monday", "monday"),
					huh.NewOption("Sunday", "sunday"),
				).Value(s.weekStart),
			huh.NewSelect[string]().Title("Open on").
				Options(viewOptions...).Value(s.defaultView),
		).Title("General"),
	).WithShowHelp(true).WithShowErrors(true)

	s.formActive = true
	return s, s.form.Init()
}

func (s settingsModel) updateForm(msg tea.Msg) (settingsModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			s.formActive = false
			s.form = nil
			return s, nil
		}
	}

	form, cmd := s.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		s.form = f
	}

	if s.form.State == huh.StateCompleted {
		s.formActive = false
		if err := s.saveSettings(); err != nil {
			return s, func() tea.Msg { return statusMsg{text: "Settings not saved: " + err.Error(), isError: true} }
		}
		return s, tea.Batch(s.refresh(), func() tea.Msg { return settingsChangedMsg{} })
	}

	return s, cmd
}

func (s settingsModel) saveSettings() error {
	if err := s.store.SetSetting(store.SettingWeekStart, *s.weekStart); err != nil {
		return err
	}
	return s.store.SetSetting(store.SettingDefaultView, *s.defaultView)
}

func (s settingsModel) view() string {
	w := s.width - 4

	if s.formActive && s.form != nil {
		title := titleStyle.Render("Settings")
		return panelStyle.Width(w).Render(
			lipgloss.JoinVertical(lipgloss.Left, title, "", s.form.View()),
		)
	}

	var rows []string
	rows = append(rows, titleStyle.Render("Settings"), "")
	for _, setting := range s.settings {
		label := lipgloss.NewStyle().Width(24).Render(string(setting.Key))
		value := highlightStyle.Render(formatSettingValue(setting.Key, setting.Value))
		rows = append(rows, fmt.Sprintf("  %s %s", label, value))
	}

	rows = append(rows, "", titleStyle.Render("Sync"), "")
	rows = append(rows, s.syncRow("schedules", len(s.schedules.Schedules()), s.schedules.Status()))
	rows = append(rows, s.syncRow("categories", len(s.categories.Categories()), schedule.Status(s.categories.Status())))

	rows = append(rows, "", mutedStyle.Render("Press enter to edit settings"))
	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (s settingsModel) syncRow(name string, count int, st schedule.Status) string {
	label := lipgloss.NewStyle().Width(24).Render(name)
	var state string
	switch {
	case st.Loading:
		state = mutedStyle.Render("syncing…")
	case st.Err != nil:
		state = errorStyle.Render(api.UserMessage(st.Err))
	case st.FetchedAt.IsZero():
		state = mutedStyle.Render("never synced")
	case st.Stale:
		state = warningStyle.Render("offline copy, " + humanize.Time(st.FetchedAt))
	default:
		state = successStyle.Render("synced " + humanize.Time(st.FetchedAt))
	}
	return fmt.Sprintf("  %s %s %s", label, highlightStyle.Render(fmt.Sprintf("%3d", count)), state)
}

func formatSettingValue(k store.SettingKey, v string) string {
	switch k {
	case store.SettingWeekStart:
		return strings.ToUpper(v[:min(1, len(v))]) + v[min(1, len(v)):]
	case store.SettingDefaultView:
		return viewNames[parseView(v)]
	}
	return v
}

package tui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/duet/internal/api"
	"github.com/sadopc/duet/internal/category"
	"github.com/sadopc/duet/internal/export"
	"github.com/sadopc/duet/internal/log"
	"github.com/sadopc/duet/internal/schedule"
	"github.com/sadopc/duet/internal/store"
)

// App is the root Bubble Tea model.
type App struct {
	ctx        context.Context
	cancel     context.CancelFunc
	schedules  *schedule.Store
	categories *category.Registry
	store      *store.Store
	width      int
	height     int

	activeView    viewState
	showHelp      bool
	exportPicking bool
	exportCursor  int
	exportDir     string

	calendar       calendarModel
	categoriesView categoriesModel
	reports        reportsModel
	settings       settingsModel

	help      help.Model
	status    string
	statusErr bool
}

// NewApp wires the views to the schedule store, the category registry and
// the local settings cache. The returned model owns a context that is
// cancelled when the user quits.
func NewApp(s *schedule.Store, r *category.Registry, st *store.Store) App {
	h := help.New()
	h.ShowAll = false

	ctx, cancel := context.WithCancel(context.Background())

	weekStart := st.SettingOrDefault(store.SettingWeekStart)
	view := st.SettingOrDefault(store.SettingDefaultView)

	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}

	return App{
		ctx:            ctx,
		cancel:         cancel,
		schedules:      s,
		categories:     r,
		store:          st,
		activeView:     parseView(view),
		exportDir:      home,
		calendar:       newCalendarModel(ctx, s, r, parseWeekStart(weekStart)),
		categoriesView: newCategoriesModel(ctx, r),
		reports:        newReportsModel(s, r),
		settings:       newSettingsModel(st, s, r),
		help:           h,
	}
}

func (a App) Init() tea.Cmd {
	return tea.Batch(
		a.calendar.fetch(),
		a.categoriesView.refresh(),
		a.startWatch(),
		a.settings.refresh(),
	)
}

func (a App) startWatch() tea.Cmd {
	return func() tea.Msg {
		return watchStartedMsg{ch: a.schedules.Watch(a.ctx)}
	}
}

// waitForRefresh blocks on the next refetch result. It is re-armed after
// every delivery, so each mutation signal ends in exactly one redraw.
func waitForRefresh(ch <-chan error) tea.Cmd {
	return func() tea.Msg {
		err, ok := <-ch
		return refreshMsg{ch: ch, err: err, closed: !ok}
	}
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.help.Width = msg.Width
		contentHeight := a.height - 4 // header + footer
		a.calendar.setSize(a.width, contentHeight)
		a.categoriesView.setSize(a.width, contentHeight)
		a.reports.setSize(a.width, contentHeight)
		a.settings.setSize(a.width, contentHeight)
		return a, nil

	case tea.KeyMsg:
		if a.exportPicking {
			return a.updateExportPicker(msg)
		}

		// If a child view is capturing input (e.g. form), delegate first.
		if a.isFormActive() {
			if msg.String() == "ctrl+c" {
				return a.quit()
			}
			return a.updateActiveView(msg)
		}

		switch {
		case key.Matches(msg, keys.Export):
			a.exportPicking = true
			a.exportCursor = 0
			return a, nil
		case key.Matches(msg, keys.Quit):
			return a.quit()
		case key.Matches(msg, keys.Help):
			a.showHelp = !a.showHelp
			a.help.ShowAll = a.showHelp
			return a, nil
		case key.Matches(msg, keys.Tab1):
			return a.switchTo(viewCalendar)
		case key.Matches(msg, keys.Tab2):
			return a.switchTo(viewCategories)
		case key.Matches(msg, keys.Tab3):
			return a.switchTo(viewReports)
		case key.Matches(msg, keys.Tab4):
			return a.switchTo(viewSettings)
		case key.Matches(msg, keys.Tab):
			return a.switchTo((a.activeView + 1) % viewState(len(viewNames)))
		}

	case watchStartedMsg:
		return a, waitForRefresh(msg.ch)

	case refreshMsg:
		if msg.closed {
			return a, nil
		}
		if msg.err != nil {
			a.setStatus("Refresh failed: "+api.UserMessage(msg.err), true)
		}
		var cmd tea.Cmd
		if a.activeView == viewReports {
			cmd = a.reports.refresh()
		}
		return a, tea.Batch(waitForRefresh(msg.ch), cmd)

	case schedulesFetchedMsg:
		if msg.err != nil {
			a.setStatus("Could not load schedules: "+api.UserMessage(msg.err), true)
		} else if a.statusErr {
			a.setStatus("", false)
		}
		if a.activeView == viewReports {
			return a, a.reports.refresh()
		}
		return a, nil

	case categoriesFetchedMsg:
		if msg.err != nil {
			a.setStatus("Could not load categories: "+api.UserMessage(msg.err), true)
		}
		return a, nil

	case statusMsg:
		a.setStatus(msg.text, msg.isError)
		return a, nil

	case exportDoneMsg:
		a.setStatus("Exported to "+msg.path, false)
		a.exportPicking = false
		return a, nil

	case settingsChangedMsg:
		a.calendar.weekStart = parseWeekStart(a.store.SettingOrDefault(store.SettingWeekStart))
		a.setStatus("Settings saved", false)
		return a, nil

	case detailMsg, scheduleSavedMsg:
		var cmd tea.Cmd
		a.calendar, cmd = a.calendar.update(msg)
		return a, cmd

	case categorySavedMsg:
		var cmd tea.Cmd
		a.categoriesView, cmd = a.categoriesView.update(msg)
		return a, cmd
	}

	return a.updateActiveView(msg)
}

func (a *App) setStatus(text string, isErr bool) {
	a.status = text
	a.statusErr = isErr
	if isErr {
		log.Debug("status error shown", "text", text)
	}
}

func (a App) quit() (tea.Model, tea.Cmd) {
	if a.cancel != nil {
		a.cancel()
	}
	return a, tea.Quit
}

func (a App) switchTo(v viewState) (tea.Model, tea.Cmd) {
	a.activeView = v
	switch v {
	case viewCategories:
		return a, a.categoriesView.refresh()
	case viewReports:
		a.reports.month = a.calendar.month
		return a, a.reports.refresh()
	case viewSettings:
		return a, a.settings.refresh()
	}
	return a, nil
}

func (a App) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch a.activeView {
	case viewCalendar:
		a.calendar, cmd = a.calendar.update(msg)
	case viewCategories:
		a.categoriesView, cmd = a.categoriesView.update(msg)
	case viewReports:
		a.reports, cmd = a.reports.update(msg)
	case viewSettings:
		a.settings, cmd = a.settings.update(msg)
	}
	return a, cmd
}

func (a App) isFormActive() bool {
	switch a.activeView {
	case viewCalendar:
		return a.calendar.capturing()
	case viewCategories:
		return a.categoriesView.capturing()
	case viewSettings:
		return a.settings.formActive
	}
	return false
}

func (a App) View() string {
	if a.width == 0 {
		return "Loading..."
	}

	header := a.renderHeader()
	footer := a.renderFooter()

	var content string
	switch a.activeView {
	case viewCalendar:
		content = a.calendar.view()
	case viewCategories:
		content = a.categoriesView.view()
	case viewReports:
		content = a.reports.view()
	case viewSettings:
		content = a.settings.view()
	}

	contentHeight := a.height - lipgloss.Height(header) - lipgloss.Height(footer)
	if contentHeight < 1 {
		contentHeight = 1
	}

	if a.exportPicking {
		content = a.renderExportPicker()
	}

	content = lipgloss.NewStyle().
		Width(a.width).
		Height(contentHeight).
		MaxHeight(contentHeight).
		Render(content)

	return lipgloss.JoinVertical(lipgloss.Left, header, content, footer)
}

func (a App) renderHeader() string {
	var tabs []string
	for i, name := range viewNames {
		if viewState(i) == a.activeView {
			tabs = append(tabs, activeTabStyle.Render(name))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(name))
		}
	}

	tabRow := lipgloss.JoinHorizontal(lipgloss.Bottom, tabs...)

	title := lipgloss.NewStyle().Bold(true).Foreground(colorPrimary).Render("duet")
	gap := a.width - lipgloss.Width(title) - lipgloss.Width(tabRow) - 4
	if gap < 1 {
		gap = 1
	}
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return headerStyle.Render(
		lipgloss.JoinHorizontal(lipgloss.Bottom, title, spacer, tabRow),
	)
}

func (a App) renderFooter() string {
	helpView := a.help.View(keys)

	sync := ""
	if a.schedules.Status().Loading || a.categories.Status().Loading {
		sync = mutedStyle.Render(" ⟳ syncing")
	}

	status := ""
	if a.status != "" {
		style := mutedStyle
		if a.statusErr {
			style = errorStyle
		}
		status = style.Render(" " + a.status)
	}

	left := footerStyle.Render(helpView)
	right := sync + status

	gap := a.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return lipgloss.JoinHorizontal(lipgloss.Bottom, left, spacer, right)
}

func (a App) renderExportPicker() string {
	var rows []string
	rows = append(rows, titleStyle.Render("Export Format"), "")
	for i, f := range export.Formats {
		cursor := "  "
		style := normalItemStyle
		if i == a.exportCursor {
			cursor = "> "
			style = selectedItemStyle
		}
		rows = append(rows, style.Render(cursor+strings.ToUpper(string(f))))
	}
	rows = append(rows, "", mutedStyle.Render("  enter: export  esc: cancel"))

	return activePanelStyle.Width(a.width - 4).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (a App) updateExportPicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Up):
		if a.exportCursor > 0 {
			a.exportCursor--
		}
	case key.Matches(msg, keys.Down):
		if a.exportCursor < len(export.Formats)-1 {
			a.exportCursor++
		}
	case key.Matches(msg, keys.Enter):
		a.exportPicking = false
		return a, a.doExport(export.Formats[a.exportCursor])
	case key.Matches(msg, keys.Back):
		a.exportPicking = false
	}
	return a, nil
}

func (a App) exportPath(f export.Format, now time.Time) string {
	return filepath.Join(a.exportDir, fmt.Sprintf("duet-export-%s.%s", now.Format("2006-01-02"), f))
}

func (a App) doExport(f export.Format) tea.Cmd {
	return func() tea.Msg {
		path := a.exportPath(f, time.Now())
		if err := export.Write(f, a.schedules.Schedules(), a.categories.Lookup, path); err != nil {
			log.Error("export failed", err, "format", f)
			return statusMsg{text: fmt.Sprintf("Export error: %v", err), isError: true}
		}
		log.Info("exported schedules", "format", f, "path", path)
		return exportDoneMsg{path: path}
	}
}

package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/duet/internal/model"
)

// Color palette
var (
	colorPrimary   = lipgloss.Color("#6C63FF")
	colorAccent    = lipgloss.Color("#FF6B6B")
	colorMuted     = lipgloss.Color("#666666")
	colorSuccess   = lipgloss.Color("#2ECC71")
	colorWarning   = lipgloss.Color("#F39C12")
	colorError     = lipgloss.Color("#E74C3C")
	colorFg        = lipgloss.Color("#C0CAF5")
	colorSubtle    = lipgloss.Color("#414868")
	colorHighlight = lipgloss.Color("#7AA2F7")
)

// categoryColors maps palette slots to terminal colors.
var categoryColors = map[model.Color]lipgloss.Color{
	model.ColorRed:    lipgloss.Color("#E74C3C"),
	model.ColorOrange: lipgloss.Color("#E67E22"),
	model.ColorYellow: lipgloss.Color("#F1C40F"),
	model.ColorGreen:  lipgloss.Color("#2ECC71"),
	model.ColorBlue:   lipgloss.Color("#3498DB"),
	model.ColorIndigo: lipgloss.Color("#5C6BC0"),
	model.ColorViolet: lipgloss.Color("#9B59B6"),
}

// categoryStyle colors text by palette slot; unknown or missing colors
// fall back to muted.
func categoryStyle(c model.Color) lipgloss.Style {
	if col, ok := categoryColors[c]; ok {
		return lipgloss.NewStyle().Foreground(col)
	}
	return mutedStyle
}

func swatch(c model.Color) string {
	return categoryStyle(c).Render("●")
}

// Styles
var (
	// Tabs
	activeTabStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPrimary).
			Border(lipgloss.NormalBorder(), false, false, true, false).
			BorderForeground(colorPrimary).
			Padding(0, 2)

	inactiveTabStyle = lipgloss.NewStyle().
				Foreground(colorMuted).
				Padding(0, 2)

	// Panels
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorSubtle).
			Padding(1, 2)

	activePanelStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(colorPrimary).
				Padding(1, 2)

	alertPanelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorError).
			Padding(1, 2)

	// Calendar cells
	dayStyle = lipgloss.NewStyle().
			Foreground(colorFg)

	otherMonthDayStyle = lipgloss.NewStyle().
				Foreground(colorSubtle)

	todayStyle = lipgloss.NewStyle().
			Foreground(colorAccent).
			Bold(true)

	selectedDayStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#1A1B26")).
				Background(colorPrimary).
				Bold(true)

	// Text
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorFg)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(colorMuted)

	successStyle = lipgloss.NewStyle().
			Foreground(colorSuccess)

	warningStyle = lipgloss.NewStyle().
			Foreground(colorWarning)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorError)

	mutedStyle = lipgloss.NewStyle().
			Foreground(colorMuted)

	highlightStyle = lipgloss.NewStyle().
			Foreground(colorHighlight)

	// Header/footer
	headerStyle = lipgloss.NewStyle().
			Padding(0, 1)

	footerStyle = lipgloss.NewStyle().
			Foreground(colorMuted).
			Padding(0, 1)

	// List items
	selectedItemStyle = lipgloss.NewStyle().
				Foreground(colorPrimary).
				Bold(true)

	normalItemStyle = lipgloss.NewStyle().
			Foreground(colorFg)
)

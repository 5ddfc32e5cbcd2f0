package tui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/duet/internal/category"
	"github.com/sadopc/duet/internal/datetime"
	"github.com/sadopc/duet/internal/export"
	"github.com/sadopc/duet/internal/model"
	"github.com/sadopc/duet/internal/schedule"
)

// categoryCount is one bar of the report.
type categoryCount struct {
	Name     string
	Color    model.Color // empty for uncategorized
	Count    int
	AllDay   int
	MultiDay int
}

type reportsModel struct {
	schedules  *schedule.Store
	categories *category.Registry
	width      int
	height     int

	month  time.Time
	counts []categoryCount

	chart barchart.Model
}

func newReportsModel(s *schedule.Store, r *category.Registry) reportsModel {
	return reportsModel{
		schedules:  s,
		categories: r,
		month:      monthStart(s.SelectedDate()),
		chart:      barchart.New(60, 12),
	}
}

func (r *reportsModel) setSize(w, h int) {
	r.width = w
	r.height = h
}

type reportsDataMsg struct {
	month  time.Time
	counts []categoryCount
}

func (r reportsModel) refresh() tea.Cmd {
	month := r.month
	return func() tea.Msg {
		return reportsDataMsg{
			month:  month,
			counts: countByCategory(r.schedules.Schedules(), r.categories.Lookup, month),
		}
	}
}

// overlapsMonth reports whether sc touches any day of the month starting at m.
func overlapsMonth(sc model.Schedule, m time.Time) bool {
	last := m.AddDate(0, 1, -1)
	end := sc.StartTime
	if sc.EndTime != nil {
		end = *sc.EndTime
	}
	return datetime.DaysBetween(sc.StartTime, last) >= 0 && datetime.DaysBetween(m, end) >= 0
}

// countByCategory tallies the schedules touching month per live category.
// Schedules without one are grouped under export.Uncategorized, listed last.
func countByCategory(list []model.Schedule, lookup func(*int64) (model.Category, bool), month time.Time) []categoryCount {
	byID := make(map[int64]*categoryCount)
	var none categoryCount
	none.Name = export.Uncategorized

	for _, sc := range list {
		if !overlapsMonth(sc, month) {
			continue
		}
		bucket := &none
		if cat, ok := lookup(sc.CategoryID); ok {
			if byID[cat.ID] == nil {
				byID[cat.ID] = &categoryCount{Name: cat.Name, Color: cat.Color}
			}
			bucket = byID[cat.ID]
		}
		bucket.Count++
		if sc.IsAllDay {
			bucket.AllDay++
		}
		if sc.IsMultiDay() {
			bucket.MultiDay++
		}
	}

	out := make([]categoryCount, 0, len(byID)+1)
	for _, c := range byID {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	if none.Count > 0 {
		out = append(out, none)
	}
	return out
}

func (r reportsModel) update(msg tea.Msg) (reportsModel, tea.Cmd) {
	switch msg := msg.(type) {
	case reportsDataMsg:
		if !msg.month.Equal(r.month) {
			return r, nil
		}
		r.counts = msg.counts
		r.buildChart()
		return r, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Left), key.Matches(msg, keys.PrevMonth):
			r.month = r.month.AddDate(0, -1, 0)
			return r, r.refresh()
		case key.Matches(msg, keys.Right), key.Matches(msg, keys.NextMonth):
			r.month = r.month.AddDate(0, 1, 0)
			return r, r.refresh()
		}
	}
	return r, nil
}

func (r *reportsModel) buildChart() {
	chartWidth := r.width - 8
	if chartWidth < 20 {
		chartWidth = 20
	}
	chartHeight := 12
	if r.height > 30 {
		chartHeight = 16
	}

	r.chart = barchart.New(chartWidth, chartHeight)

	var bars []barchart.BarData
	for _, c := range r.counts {
		style := lipgloss.NewStyle().Foreground(colorSubtle)
		if c.Color != "" {
			style = categoryStyle(c.Color)
		}
		bars = append(bars, barchart.BarData{
			Label: truncate(c.Name, 10),
			Values: []barchart.BarValue{{
				Name:  c.Name,
				Value: float64(c.Count),
				Style: style,
			}},
		})
	}
	if len(bars) == 0 {
		bars = []barchart.BarData{{
			Label:  "",
			Values: []barchart.BarValue{{Name: "", Value: 0, Style: lipgloss.NewStyle().Foreground(colorSubtle)}},
		}}
	}

	r.chart.PushAll(bars)
	r.chart.Draw()
}

func (r reportsModel) view() string {
	w := r.width - 4

	header := lipgloss.JoinHorizontal(lipgloss.Bottom,
		titleStyle.Render("Reports"), "  ", mutedStyle.Render(r.month.Format("January 2006")),
	)

	return panelStyle.Width(w).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			header, "", r.chart.View(), "", r.renderSummaryTable(w), "",
			mutedStyle.Render("  ←/→: change month"),
		),
	)
}

func (r reportsModel) renderSummaryTable(w int) string {
	if len(r.counts) == 0 {
		return mutedStyle.Render("  Nothing scheduled this month")
	}

	var rows []string
	rows = append(rows, mutedStyle.Render(fmt.Sprintf("  %-22s %8s %8s %10s", "Category", "Total", "All day", "Multi-day")))
	rows = append(rows, mutedStyle.Render("  "+strings.Repeat("─", min(w-6, 52))))

	total := 0
	for _, c := range r.counts {
		total += c.Count
		rows = append(rows, fmt.Sprintf("  %s %-20s %8d %8d %10d",
			swatch(c.Color), truncate(c.Name, 20), c.Count, c.AllDay, c.MultiDay,
		))
	}
	rows = append(rows, mutedStyle.Render(fmt.Sprintf("  %-22s %8d", "All", total)))
	return strings.Join(rows, "\n")
}

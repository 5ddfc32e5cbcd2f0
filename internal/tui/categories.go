package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/duet/internal/api"
	"github.com/sadopc/duet/internal/category"
	"github.com/sadopc/duet/internal/model"
)

type categoriesModel struct {
	ctx      context.Context
	registry *category.Registry
	width    int
	height   int

	cursor int

	formActive bool
	saving     bool
	form       *huh.Form
	formType   string // "category" or "confirm_delete"
	alert      string

	// Form field pointers (survive value copies)
	formName  *string
	formColor *model.Color
	confirmed *bool

	deleting model.Category
}

func newCategoriesModel(ctx context.Context, r *category.Registry) categoriesModel {
	name, color, confirmed := "", model.Color(""), false
	return categoriesModel{
		ctx:       ctx,
		registry:  r,
		formName:  &name,
		formColor: &color,
		confirmed: &confirmed,
	}
}

func (p *categoriesModel) setSize(w, h int) {
	p.width = w
	p.height = h
}

func (p categoriesModel) capturing() bool {
	return p.formActive || p.saving || p.alert != ""
}

func (p categoriesModel) refresh() tea.Cmd {
	return func() tea.Msg {
		return categoriesFetchedMsg{err: p.registry.Fetch(p.ctx)}
	}
}

func (p categoriesModel) update(msg tea.Msg) (categoriesModel, tea.Cmd) {
	if msg, ok := msg.(categorySavedMsg); ok {
		return p.handleSaved(msg)
	}
	if p.alert != "" {
		if _, ok := msg.(tea.KeyMsg); ok {
			p.alert = ""
		}
		return p, nil
	}
	if p.formActive && p.form != nil {
		return p.updateForm(msg)
	}

	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok || p.saving {
		return p, nil
	}

	list := p.registry.Categories()
	switch {
	case key.Matches(keyMsg, keys.Up):
		if p.cursor > 0 {
			p.cursor--
		}
	case key.Matches(keyMsg, keys.Down):
		if p.cursor < len(list)-1 {
			p.cursor++
		}
	case key.Matches(keyMsg, keys.Refresh):
		return p, p.refresh()
	case key.Matches(keyMsg, keys.New):
		color, ok := p.registry.FirstAvailableColor()
		if !ok {
			return p, func() tea.Msg {
				return statusMsg{text: "Every color is in use. Delete a category to add another.", isError: true}
			}
		}
		return p.showForm("", color)
	case key.Matches(keyMsg, keys.Edit), key.Matches(keyMsg, keys.Enter):
		if len(list) > 0 {
			c := list[min(p.cursor, len(list)-1)]
			return p.showForm(c.Name, c.Color)
		}
	case key.Matches(keyMsg, keys.Delete):
		if len(list) > 0 {
			p.deleting = list[min(p.cursor, len(list)-1)]
			p.formType = "confirm_delete"
			p.form = newConfirmForm(fmt.Sprintf("Delete %q? Its schedules become uncategorized.", p.deleting.Name), p.confirmed)
			p.formActive = true
			return p, p.form.Init()
		}
	}
	return p, nil
}

// colorOptions labels each palette slot with its current holder, if any.
func (p categoriesModel) colorOptions() []huh.Option[model.Color] {
	opts := make([]huh.Option[model.Color], 0, len(model.Palette))
	for _, c := range model.Palette {
		label := strings.ToLower(string(c)) + " (free)"
		if holder, ok := p.registry.FindByColor(c); ok {
			label = strings.ToLower(string(c)) + " (rename " + holder.Name + ")"
		}
		opts = append(opts, huh.NewOption("● "+label, c))
	}
	return opts
}

func (p categoriesModel) showForm(name string, color model.Color) (categoriesModel, tea.Cmd) {
	*p.formName = name
	*p.formColor = color
	p.formType = "category"

	p.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Name").Value(p.formName).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("name is required")
					}
					return nil
				}),
			huh.NewSelect[model.Color]().Title("Color").Options(p.colorOptions()...).Value(p.formColor),
		),
	).WithShowHelp(true).WithShowErrors(true)

	p.formActive = true
	return p, p.form.Init()
}

func (p categoriesModel) updateForm(msg tea.Msg) (categoriesModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			p.formActive = false
			p.form = nil
			return p, nil
		}
	}

	form, cmd := p.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		p.form = f
	}

	switch p.form.State {
	case huh.StateAborted:
		p.formActive = false
		p.form = nil
		return p, nil
	case huh.StateCompleted:
		p.formActive = false
		switch p.formType {
		case "category":
			p.saving = true
			name, color := *p.formName, *p.formColor
			return p, func() tea.Msg {
				_, err := p.registry.AddOrUpdate(p.ctx, name, color)
				return categorySavedMsg{verb: "saved", err: err}
			}
		case "confirm_delete":
			if !*p.confirmed {
				return p, nil
			}
			p.saving = true
			id := p.deleting.ID
			return p, func() tea.Msg {
				return categorySavedMsg{verb: "deleted", err: p.registry.Delete(p.ctx, id)}
			}
		}
	}
	return p, cmd
}

func (p categoriesModel) handleSaved(msg categorySavedMsg) (categoriesModel, tea.Cmd) {
	p.saving = false
	if msg.err != nil {
		p.alert = api.UserMessage(msg.err)
		if msg.verb == "saved" {
			// Reopen with what was typed.
			return p.showForm(*p.formName, *p.formColor)
		}
		return p, nil
	}
	p.form = nil
	if n := len(p.registry.Categories()); p.cursor >= n {
		p.cursor = max(0, n-1)
	}
	text := "Category " + msg.verb
	return p, func() tea.Msg { return statusMsg{text: text} }
}

func (p categoriesModel) view() string {
	w := p.width - 4

	var content string
	if p.formActive && p.form != nil {
		title := titleStyle.Render("Category")
		if p.formType == "confirm_delete" {
			title = titleStyle.Render("Delete category")
		}
		content = activePanelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, title, "", p.form.View()))
	} else {
		content = p.renderList(w)
	}

	if p.alert != "" {
		alert := alertPanelStyle.Width(min(w, 60)).Render(lipgloss.JoinVertical(lipgloss.Left,
			errorStyle.Render("Could not save"), "", p.alert, "", mutedStyle.Render("press any key"),
		))
		content = lipgloss.JoinVertical(lipgloss.Left, alert, content)
	}
	return content
}

func (p categoriesModel) renderList(w int) string {
	title := titleStyle.Render("Categories")
	list := p.registry.Categories()

	var rows []string
	rows = append(rows, title, "")

	if st := p.registry.Status(); st.Err != nil {
		rows = append(rows, warningStyle.Render("Last refresh failed: "+api.UserMessage(st.Err)), "")
	}

	if len(list) == 0 {
		rows = append(rows, mutedStyle.Render("No categories yet. Press n to create one."))
	} else {
		for i, c := range list {
			cursor := "  "
			style := normalItemStyle
			if i == p.cursor {
				cursor = "> "
				style = selectedItemStyle
			}
			rows = append(rows, style.Render(cursor)+swatch(c.Color)+" "+style.Render(fmt.Sprintf("%-24s", c.Name))+mutedStyle.Render(strings.ToLower(string(c.Color))))
		}
	}

	var free []string
	for _, c := range model.Palette {
		if p.registry.IsColorAvailable(c) {
			free = append(free, swatch(c))
		}
	}
	rows = append(rows, "")
	if len(free) == 0 {
		rows = append(rows, warningStyle.Render("Every color is in use. Delete a category to add another."))
	} else {
		rows = append(rows, mutedStyle.Render("Free colors: ")+strings.Join(free, " "))
	}
	if p.saving {
		rows = append(rows, mutedStyle.Render("Saving…"))
	}
	rows = append(rows, "", mutedStyle.Render("  n: new  e: rename  d: delete  r: refresh"))

	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}

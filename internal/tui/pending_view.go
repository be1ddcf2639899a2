package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/kingrea/retorno/internal/roster"
	"github.com/kingrea/retorno/internal/triage"
)

// pendingItem implements list.Item for a contacted customer.
type pendingItem struct {
	rec roster.Record
}

func (i pendingItem) Title() string { return i.rec.DisplayName }
func (i pendingItem) Description() string {
	parts := []string{i.rec.CodeOrPlaceholder()}
	if i.rec.Phone != "" {
		parts = append(parts, i.rec.Phone)
	}
	return strings.Join(parts, " · ")
}
func (i pendingItem) FilterValue() string { return i.rec.DisplayName }

// pendingView lists Pending records with a search box. The list's own
// filtering is disabled; the term goes through roster.PendingList.
type pendingView struct {
	app       *App
	list      list.Model
	search    textinput.Model
	searching bool
}

func newPendingView(app *App) *pendingView {
	l := list.New(nil, list.NewDefaultDelegate(), 60, 14)
	l.Title = "Pendientes"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)
	l.KeyMap.Quit.SetEnabled(false)

	search := textinput.New()
	search.Placeholder = "Buscar por nombre o código"
	search.Prompt = "/ "

	return &pendingView{app: app, list: l, search: search}
}

// SetSize resizes the list.
func (v *pendingView) SetSize(width, height int) {
	v.list.SetSize(width, height)
}

// refresh re-derives the items from the engine using the current term.
func (v *pendingView) refresh() {
	records := v.app.engine.Pending(v.search.Value())
	items := make([]list.Item, 0, len(records))
	for _, rec := range records {
		items = append(items, pendingItem{rec: rec})
	}
	idx := v.list.Index()
	v.list.SetItems(items)
	if idx >= len(items) {
		idx = len(items) - 1
	}
	if idx >= 0 {
		v.list.Select(idx)
	}
}

func (v *pendingView) blurSearch() {
	v.searching = false
	v.search.Blur()
}

// Update handles input while the pending screen is active.
func (v *pendingView) Update(msg tea.Msg) tea.Cmd {
	key, isKey := msg.(tea.KeyMsg)
	if v.searching {
		if isKey {
			switch key.String() {
			case "enter":
				v.blurSearch()
				return nil
			case "esc":
				v.search.SetValue("")
				v.blurSearch()
				v.refresh()
				return nil
			}
		}
		var cmd tea.Cmd
		v.search, cmd = v.search.Update(msg)
		v.refresh()
		return cmd
	}

	if isKey {
		switch key.String() {
		case "q":
			return tea.Quit
		case "/":
			v.searching = true
			return v.search.Focus()
		case "tab", "esc", "1":
			v.app.returnToTriage()
			return nil
		case "e":
			return v.app.dispatch(triage.Export{})
		case "enter":
			item, ok := v.list.SelectedItem().(pendingItem)
			if !ok {
				return nil
			}
			cmd := v.app.dispatch(triage.Select{ID: item.rec.ID})
			if _, selected := v.app.engine.Selected(); selected {
				v.app.state = stateOutcome
			} else {
				v.refresh()
			}
			return cmd
		}
	}
	var cmd tea.Cmd
	v.list, cmd = v.list.Update(msg)
	return cmd
}

// View renders the search box and list.
func (v *pendingView) View() string {
	header := v.search.View()
	if !v.searching && v.search.Value() == "" {
		header = mutedStyle.Render("/ buscar")
	}
	if len(v.list.Items()) == 0 {
		empty := "No hay clientes pendientes."
		if term := v.search.Value(); term != "" {
			empty = fmt.Sprintf("Ningún pendiente coincide con %q.", term)
		}
		return header + "\n\n" + mutedStyle.Render(empty) + "\n\n" + mutedStyle.Render("tab volver · q salir")
	}
	help := mutedStyle.Render("enter elegir · / buscar · tab volver · e exportar · q salir")
	return header + "\n" + v.list.View() + "\n" + help
}

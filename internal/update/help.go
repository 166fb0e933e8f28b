package update

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"

	"github.com/sandeepkv93/dayplan/internal/views"
)

type KeyBinding struct {
	Key    string
	Action string
}

type helpKeyMap struct {
	short []key.Binding
	full  [][]key.Binding
}

func (k helpKeyMap) ShortHelp() []key.Binding  { return k.short }
func (k helpKeyMap) FullHelp() [][]key.Binding { return k.full }

func (m Model) renderHelpView() string {
	var plain []string
	for _, kb := range m.viewBindings() {
		plain = append(plain, fmt.Sprintf("- %s: %s", kb.Key, kb.Action))
	}
	global := toKeyBindings(m.globalBindings())
	contextual := toKeyBindings(m.viewBindings())
	full := m.helpModel
	full.ShowAll = true
	return views.RenderHelpPanel(views.HelpPanelData{
		CurrentView: string(m.CurrentView),
		Bindings:    plain,
		HelpView:    full.View(helpKeyMap{short: global, full: [][]key.Binding{global, contextual}}),
	})
}

func (m Model) shortBindings() []key.Binding {
	return toKeyBindings([]KeyBinding{
		{Key: "1-4", Action: "views"},
		{Key: "/", Action: "command"},
		{Key: m.Keys.Help, Action: "help"},
		{Key: m.Keys.Quit, Action: "quit"},
	})
}

func (m Model) globalBindings() []KeyBinding {
	return []KeyBinding{
		{Key: m.Keys.Queue, Action: "today's queue"},
		{Key: m.Keys.Later, Action: "deferred tasks"},
		{Key: m.Keys.Insights, Action: "insights"},
		{Key: m.Keys.Recommendations, Action: "recommendations"},
		{Key: "+/-", Action: "energy up/down"},
		{Key: "]/[", Action: "focus up/down"},
		{Key: "r", Action: "rebuild plan"},
		{Key: "/", Action: "open command palette"},
		{Key: m.Keys.Help, Action: "toggle help panel"},
		{Key: m.Keys.Quit, Action: "quit app"},
	}
}

func (m Model) viewBindings() []KeyBinding {
	switch m.CurrentView {
	case ViewQueue, ViewLater:
		return []KeyBinding{
			{Key: "j/k", Action: "move selection"},
			{Key: "x", Action: "complete task"},
			{Key: "p", Action: "postpone one day"},
			{Key: "m", Action: "toggle must-do"},
		}
	case ViewRecommendations:
		return []KeyBinding{
			{Key: "j/k", Action: "move selection"},
			{Key: "a", Action: "apply recommendation"},
		}
	case ViewInsights:
		return []KeyBinding{{Key: "j/k", Action: "move selection"}}
	default:
		return []KeyBinding{{Key: "-", Action: "no contextual bindings"}}
	}
}

func toKeyBindings(in []KeyBinding) []key.Binding {
	out := make([]key.Binding, 0, len(in))
	for _, kb := range in {
		out = append(out, key.NewBinding(key.WithKeys(kb.Key), key.WithHelp(kb.Key, kb.Action)))
	}
	return out
}

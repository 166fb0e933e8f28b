package update

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sandeepkv93/dayplan/internal/commands"
	"github.com/sandeepkv93/dayplan/internal/service"
)

func (m Model) handlePaletteKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.closePalette()
		m.Status = StatusBar{Text: "command palette closed"}
		return m, nil
	case "enter":
		raw := m.commandInput.Value()
		m.closePalette()
		return m.runCommand(raw)
	}
	if msg.Type == tea.KeyRunes {
		m.commandInput.SetValue(m.commandInput.Value() + string(msg.Runes))
		m.Palette.Input = m.commandInput.Value()
		return m, nil
	}
	var cmd tea.Cmd
	m.commandInput, cmd = m.commandInput.Update(msg)
	m.Palette.Input = m.commandInput.Value()
	return m, cmd
}

func (m *Model) closePalette() {
	m.Palette.Active = false
	m.Palette.Input = ""
	m.commandInput.SetValue("")
	m.commandInput.Blur()
}

// runCommand parses raw, runs it against the planner and reloads the plan
// when it changed anything.
func (m Model) runCommand(raw string) (tea.Model, tea.Cmd) {
	cmd, err := commands.Parse(strings.TrimSpace(raw))
	if err != nil {
		m.Status = StatusBar{Text: err.Error(), IsError: true}
		return m, nil
	}
	if m.planner == nil {
		m.Status = StatusBar{Text: "no planner configured", IsError: true}
		return m, nil
	}

	res, err := commands.Execute(cmd, m.handlers())
	if err != nil {
		m.Status = StatusBar{Text: err.Error(), IsError: true}
		m.notify("Command failed", err.Error(), "error")
		return m, nil
	}
	m.Status = StatusBar{Text: res.Message}
	m.notify("Command", res.Message, "info")
	return m.beginReload()
}

func (m Model) handlers() commands.Handlers {
	ctx, user, date := m.ctx, m.cfg.UserID, m.Date
	return commands.Handlers{
		Add: func(a commands.AddArgs) (commands.Result, error) {
			t, err := m.planner.CreateTask(ctx, user, service.NewTask{
				Title:         a.Title,
				Due:           a.Due,
				Priority:      a.Priority,
				CognitiveLoad: a.Load,
				IsMust:        a.Must,
				ContextType:   a.Context,
				EstimateMin:   a.EstimateMin,
			})
			if err != nil {
				return commands.Result{}, err
			}
			return commands.Result{Message: fmt.Sprintf("added: %s", t.Title)}, nil
		},
		Done: func(a commands.TargetArgs) (commands.Result, error) {
			id, err := m.resolveTarget(a.Target)
			if err != nil {
				return commands.Result{}, err
			}
			t, err := m.planner.CompleteTask(ctx, user, id)
			if err != nil {
				return commands.Result{}, err
			}
			return commands.Result{Message: fmt.Sprintf("done: %s", t.Title)}, nil
		},
		Postpone: func(a commands.PostponeArgs) (commands.Result, error) {
			id, err := m.resolveTarget(a.Target)
			if err != nil {
				return commands.Result{}, err
			}
			t, err := m.planner.PostponeTask(ctx, user, id, a.Days)
			if err != nil {
				return commands.Result{}, err
			}
			return commands.Result{Message: fmt.Sprintf("postponed %s by %dd", t.Title, a.Days)}, nil
		},
		Must: func(a commands.MustArgs) (commands.Result, error) {
			id, err := m.resolveTarget(a.Target)
			if err != nil {
				return commands.Result{}, err
			}
			t, err := m.planner.SetMust(ctx, user, id, a.On)
			if err != nil {
				return commands.Result{}, err
			}
			if t.IsMust {
				return commands.Result{Message: fmt.Sprintf("must-do: %s", t.Title)}, nil
			}
			return commands.Result{Message: fmt.Sprintf("no longer must-do: %s", t.Title)}, nil
		},
		Energy: func(a commands.LevelArgs) (commands.Result, error) {
			level := a.Level
			if _, err := m.planner.UpdateDayPlan(ctx, user, service.DayPlanPatch{Date: date, Energy: &level}); err != nil {
				return commands.Result{}, err
			}
			return commands.Result{Message: fmt.Sprintf("energy set to %d", level)}, nil
		},
		Focus: func(a commands.LevelArgs) (commands.Result, error) {
			level := a.Level
			if _, err := m.planner.UpdateDayPlan(ctx, user, service.DayPlanPatch{Date: date, Focus: &level}); err != nil {
				return commands.Result{}, err
			}
			return commands.Result{Message: fmt.Sprintf("focus set to %d", level)}, nil
		},
		Break: func(a commands.BreakArgs) (commands.Result, error) {
			if _, err := m.planner.RecordBreak(ctx, user, a.Minutes); err != nil {
				return commands.Result{}, err
			}
			return commands.Result{Message: fmt.Sprintf("break logged: %dm", a.Minutes)}, nil
		},
		Apply: func(a commands.ApplyArgs) (commands.Result, error) {
			rec, err := m.planner.Apply(ctx, user, date, a.RecommendationID)
			if err != nil {
				return commands.Result{}, err
			}
			return commands.Result{Message: fmt.Sprintf("applied: %s", rec.Title)}, nil
		},
	}
}

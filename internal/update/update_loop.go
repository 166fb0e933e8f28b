package update

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/sandeepkv93/dayplan/internal/scheduler"
)

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.loadPlanCmd(), m.loadSpinner.Tick}
	if m.scheduler != nil {
		cmds = append(cmds, waitForSlotCmd(m.scheduler.C()))
	}
	if m.cfg.RefreshInterval > 0 {
		cmds = append(cmds, refreshTickCmd(m.cfg.RefreshInterval))
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch typed := msg.(type) {
	case tea.KeyMsg:
		if m.Palette.Active {
			return m.handlePaletteKey(typed)
		}
		return m.handleKey(typed)
	case PlanLoadedMsg:
		m.Loading = false
		m.spinnerActive = false
		if typed.Err != nil {
			m.LastError = typed.Err
			m.Status = StatusBar{Text: fmt.Sprintf("plan failed: %v", typed.Err), IsError: true}
			return m, nil
		}
		m.Plan = typed.Plan
		m.Loaded = true
		m.LastError = nil
		m.clampCursors()
		m.rescheduleSlots()
		return m, nil
	case SlotDueMsg:
		m.announceSlot(typed.Event)
		if m.scheduler != nil {
			return m, waitForSlotCmd(m.scheduler.C())
		}
		return m, nil
	case RefreshTickMsg:
		next, cmd := m.beginReload()
		return next, tea.Batch(cmd, refreshTickCmd(m.cfg.RefreshInterval))
	case spinner.TickMsg:
		if m.spinnerActive {
			var cmd tea.Cmd
			m.loadSpinner, cmd = m.loadSpinner.Update(typed)
			return m, cmd
		}
		return m, nil
	case tea.WindowSizeMsg:
		m.Width = typed.Width
		return m, nil
	case SwitchViewMsg:
		if isKnownView(typed.View) {
			m.CurrentView = typed.View
		}
		return m, nil
	case SetStatusMsg:
		m.Status = StatusBar{Text: typed.Text, IsError: typed.IsError}
		return m, nil
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", m.Keys.Quit:
		m.Quitting = true
		return m, tea.Quit
	case "/":
		m.Palette.Active = true
		m.Palette.Input = ""
		m.commandInput.Focus()
		m.commandInput.SetValue("")
		m.Status = StatusBar{Text: "command palette active"}
		return m, nil
	case m.Keys.Help:
		m.HelpVisible = !m.HelpVisible
		return m, nil
	case m.Keys.Queue:
		m.CurrentView = ViewQueue
		return m, nil
	case m.Keys.Later:
		m.CurrentView = ViewLater
		return m, nil
	case m.Keys.Insights:
		m.CurrentView = ViewInsights
		return m, nil
	case m.Keys.Recommendations:
		m.CurrentView = ViewRecommendations
		return m, nil
	case "j", "down":
		m.moveCursor(1)
		return m, nil
	case "k", "up":
		m.moveCursor(-1)
		return m, nil
	case "r":
		return m.beginReload()
	case "+", "=":
		return m.adjustLevels(1, 0)
	case "-":
		return m.adjustLevels(-1, 0)
	case "]":
		return m.adjustLevels(0, 1)
	case "[":
		return m.adjustLevels(0, -1)
	}

	switch m.CurrentView {
	case ViewQueue, ViewLater:
		return m.handleTaskKey(msg)
	case ViewRecommendations:
		if msg.String() == "a" || msg.String() == "enter" {
			rec, ok := m.selectedRecommendation()
			if !ok {
				m.Status = StatusBar{Text: "no recommendation selected", IsError: true}
				return m, nil
			}
			return m.runCommand("apply " + rec.ID)
		}
	}
	return m, nil
}

func (m Model) handleTaskKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	task, ok := m.selectedTask()
	if !ok {
		return m, nil
	}
	switch msg.String() {
	case "x":
		return m.runCommand("done " + task.ID)
	case "p":
		return m.runCommand("postpone " + task.ID)
	case "m":
		state := "on"
		if task.IsMust {
			state = "off"
		}
		return m.runCommand("must " + task.ID + " " + state)
	}
	return m, nil
}

// adjustLevels nudges today's energy and focus, clamped to 1-5.
func (m Model) adjustLevels(energyDelta, focusDelta int) (tea.Model, tea.Cmd) {
	energy := clampLevel(m.Plan.DayPlan.Energy + energyDelta)
	focus := clampLevel(m.Plan.DayPlan.Focus + focusDelta)
	if energyDelta != 0 {
		return m.runCommand(fmt.Sprintf("energy %d", energy))
	}
	return m.runCommand(fmt.Sprintf("focus %d", focus))
}

func clampLevel(v int) int {
	if v < 1 {
		return 1
	}
	if v > 5 {
		return 5
	}
	return v
}

func (m Model) beginReload() (Model, tea.Cmd) {
	if m.planner == nil {
		return m, nil
	}
	m.Loading = true
	m.spinnerActive = true
	return m, tea.Batch(m.loadPlanCmd(), m.loadSpinner.Tick)
}

func (m Model) loadPlanCmd() tea.Cmd {
	if m.planner == nil {
		return nil
	}
	planner, ctx, userID, date := m.planner, m.ctx, m.cfg.UserID, m.Date
	return func() tea.Msg {
		plan, err := planner.Plan(ctx, userID, date)
		return PlanLoadedMsg{Plan: plan, Err: err}
	}
}

func refreshTickCmd(every time.Duration) tea.Cmd {
	if every <= 0 {
		return nil
	}
	return tea.Tick(every, func(time.Time) tea.Msg { return RefreshTickMsg{} })
}

func waitForSlotCmd(ch <-chan scheduler.SlotEvent) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return SlotDueMsg{Event: ev}
	}
}

// rescheduleSlots replaces the pending slot events with the current queue.
func (m *Model) rescheduleSlots() {
	if m.scheduler == nil {
		return
	}
	events := scheduler.EventsFor(m.Plan.Queue, m.now(), m.cfg.SlotLead)
	if err := m.scheduler.Replace(events); err != nil {
		m.Status = StatusBar{Text: fmt.Sprintf("slot reminders unavailable: %v", err), IsError: true}
	}
}

func (m *Model) announceSlot(ev scheduler.SlotEvent) {
	switch ev.Kind {
	case scheduler.KindSlotStart:
		body := fmt.Sprintf("%s starts at %s", ev.Title, ev.At.Add(m.cfg.SlotLead).Format("15:04"))
		m.Status = StatusBar{Text: "up next: " + ev.Title}
		m.notify("Up next", body, "info")
	case scheduler.KindSlotEnd:
		m.Status = StatusBar{Text: "time is up: " + ev.Title}
		m.notify("Slot ended", fmt.Sprintf("%s was planned to end now", ev.Title), "warn")
	}
}

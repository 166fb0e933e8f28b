package update

import (
	"fmt"
	"strings"
	"time"

	"github.com/sandeepkv93/dayplan/internal/model"
	"github.com/sandeepkv93/dayplan/internal/recommend"
	"github.com/sandeepkv93/dayplan/internal/views"
)

func (m Model) View() string {
	if m.Quitting {
		return "bye\n"
	}

	left, right := m.renderPanes()
	if m.HelpVisible {
		right = m.renderHelpView()
	}

	data := views.AppData{
		Header:       m.renderHeader(),
		LeftPane:     left,
		RightPane:    right,
		StatusLine:   m.Status.Text,
		StatusError:  m.Status.IsError,
		Palette:      views.RenderCommandPalette(m.Palette.Active, m.Palette.Input),
		Notification: m.renderNotificationsView(),
		Footer:       m.helpModel.ShortHelpView(m.shortBindings()),
		Width:        m.Width,
	}
	return views.RenderApp(data)
}

func (m Model) renderHeader() string {
	names := make([]string, 0, len(allViews))
	for _, v := range allViews {
		names = append(names, string(v))
	}
	burn := false
	for _, r := range m.Plan.Recommendations {
		if r.Type == recommend.TypeBurnoutWarning {
			burn = true
		}
	}
	return views.RenderHeader(views.HeaderData{
		Date:     m.Date,
		Energy:   m.Plan.DayPlan.Energy,
		Focus:    m.Plan.DayPlan.Focus,
		Views:    names,
		Current:  string(m.CurrentView),
		Spinner:  m.loadSpinner.View(),
		Loading:  m.Loading || !m.Loaded,
		BurnWarn: burn,
	})
}

func (m Model) renderPanes() (string, string) {
	if !m.Loaded {
		if m.LastError != nil {
			return "plan unavailable", m.LastError.Error()
		}
		return "loading plan...", ""
	}
	switch m.CurrentView {
	case ViewLater:
		return m.renderLater(), m.renderTaskDetail()
	case ViewInsights:
		return m.renderInsights(), m.renderInsightDetail()
	case ViewRecommendations:
		return m.renderRecommendations(), m.renderRecommendationDetail()
	default:
		return m.renderQueue(), m.renderSlotDetail()
	}
}

func (m Model) renderQueue() string {
	items := make([]views.SlotItemData, 0, len(m.Plan.Queue))
	for i, s := range m.Plan.Queue {
		items = append(items, views.SlotItemData{
			Position:   i + 1,
			ID:         s.Task.ID,
			Title:      s.Task.Title,
			Start:      clock(s.EstimatedStart, m.location()),
			End:        clock(s.EstimatedEnd, m.location()),
			Score:      s.Score.Total,
			Confidence: s.Confidence,
			Must:       s.Task.IsMust,
			Forced:     s.Forced,
			Overdue:    s.Task.IsOverdue(m.Plan.GeneratedAt),
		})
	}
	return views.RenderQueuePanel(views.QueuePanelData{
		Items:            items,
		Selected:         m.Cursor[ViewQueue],
		AvailableMinutes: m.Plan.AvailableMinutes,
		UsedMinutes:      m.Plan.UsedMinutes,
	})
}

func (m Model) renderSlotDetail() string {
	c := m.Cursor[ViewQueue]
	if c >= len(m.Plan.Queue) {
		return "slot:\n(no selection)"
	}
	s := m.Plan.Queue[c]
	lines := []string{
		fmt.Sprintf("task: %s", s.Task.Title),
		fmt.Sprintf("when: %s-%s", clock(s.EstimatedStart, m.location()), clock(s.EstimatedEnd, m.location())),
		fmt.Sprintf("score: %d (deadline %d, priority %d, load %d, postponed %d)", s.Score.Total,
			s.Score.Breakdown.Deadline, s.Score.Breakdown.Priority, s.Score.Breakdown.LoadPenalty, s.Score.Breakdown.PostponeBonus),
	}
	lines = append(lines, taskLines(s.Task)...)
	var md strings.Builder
	if len(s.Reasoning) > 0 {
		md.WriteString("**Why now**\n\n")
		for _, r := range s.Reasoning {
			md.WriteString("- " + r + "\n")
		}
	}
	if len(s.Alternatives) > 0 {
		md.WriteString("\n**Alternatives**\n\n")
		for _, a := range s.Alternatives {
			md.WriteString(fmt.Sprintf("- %s (%d)\n", a.Task.Title, a.Score))
		}
	}
	return views.RenderDetail(views.DetailData{Heading: "slot", Lines: lines, Markdown: md.String()})
}

func (m Model) renderLater() string {
	items := make([]views.TaskItemData, 0, len(m.Plan.Later))
	for _, t := range m.Plan.Later {
		items = append(items, taskItem(t, m.Plan.GeneratedAt))
	}
	return views.RenderLaterPanel(views.LaterPanelData{Items: items, Selected: m.Cursor[ViewLater]})
}

func (m Model) renderTaskDetail() string {
	c := m.Cursor[ViewLater]
	if c >= len(m.Plan.Later) {
		return "task:\n(no selection)"
	}
	t := m.Plan.Later[c]
	return views.RenderDetail(views.DetailData{
		Heading: "task",
		Lines:   append([]string{"title: " + t.Title}, taskLines(t)...),
	})
}

func (m Model) renderInsights() string {
	items := make([]views.CardData, 0, len(m.Plan.Insights))
	for _, in := range m.Plan.Insights {
		items = append(items, views.CardData{Title: in.Title, Priority: string(in.Priority), Kind: string(in.Type)})
	}
	return views.RenderCardList(views.CardListData{
		Heading:  "insights",
		Items:    items,
		Selected: m.Cursor[ViewInsights],
		Empty:    "(no insights for this queue)",
	})
}

func (m Model) renderInsightDetail() string {
	c := m.Cursor[ViewInsights]
	if c >= len(m.Plan.Insights) {
		return "insight:\n(no selection)"
	}
	in := m.Plan.Insights[c]
	return views.RenderDetail(views.DetailData{
		Heading:  "insight",
		Lines:    []string{fmt.Sprintf("type: %s", in.Type), fmt.Sprintf("tasks: %s", m.titles(in.HighlightedTaskIDs))},
		Markdown: "### " + in.Title + "\n\n" + in.Message,
	})
}

func (m Model) renderRecommendations() string {
	items := make([]views.CardData, 0, len(m.Plan.Recommendations))
	for _, r := range m.Plan.Recommendations {
		items = append(items, views.CardData{Title: r.Title, Priority: string(r.Priority), Kind: string(r.Type)})
	}
	return views.RenderCardList(views.CardListData{
		Heading:  "recommendations",
		Actions:  "[a]apply [j/k]move",
		Items:    items,
		Selected: m.Cursor[ViewRecommendations],
		Empty:    "(nothing to recommend)",
	})
}

func (m Model) renderRecommendationDetail() string {
	r, ok := m.selectedRecommendation()
	if !ok {
		return "recommendation:\n(no selection)"
	}
	lines := []string{
		fmt.Sprintf("id: %s", r.ID),
		fmt.Sprintf("confidence: %.0f%%", r.Confidence*100),
		fmt.Sprintf("tasks: %s", m.titles(r.HighlightedTaskIDs)),
	}
	var md strings.Builder
	md.WriteString("### " + r.Title + "\n\n" + r.Message + "\n")
	if len(r.Actions) > 0 {
		md.WriteString("\n**Applying will**\n\n")
		for _, a := range r.Actions {
			md.WriteString("- " + describeAction(a) + "\n")
		}
	}
	return views.RenderDetail(views.DetailData{Heading: "recommendation", Lines: lines, Markdown: md.String()})
}

func (m Model) renderNotificationsView() string {
	if len(m.Notifications) == 0 {
		return ""
	}
	n := m.Notifications[len(m.Notifications)-1]
	return views.RenderNotification(n.Level, n.Body)
}

func (m Model) location() *time.Location {
	return m.Plan.DayPlan.Location()
}

// titles maps ids to task titles, keeping unknown ids as they are.
func (m Model) titles(ids []string) string {
	if len(ids) == 0 {
		return "-"
	}
	byID := make(map[string]string)
	for _, t := range m.knownTasks() {
		byID[t.ID] = t.Title
	}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if title, ok := byID[id]; ok {
			out = append(out, title)
			continue
		}
		out = append(out, id)
	}
	return strings.Join(out, ", ")
}

func describeAction(a recommend.Action) string {
	switch act := a.(type) {
	case recommend.ReorderTasks:
		return fmt.Sprintf("move %d task(s) to the front", len(act.TaskIDs))
	case recommend.AddBreak:
		return fmt.Sprintf("log a %d minute break", act.Minutes)
	case recommend.SetMust:
		if act.Must {
			return "mark a task must-do"
		}
		return "clear a must-do flag"
	case recommend.PostponeTasks:
		return fmt.Sprintf("push %d task(s) back %d day(s)", len(act.TaskIDs), act.Days)
	default:
		return string(a.Kind())
	}
}

func taskItem(t model.Task, now time.Time) views.TaskItemData {
	item := views.TaskItemData{
		ID:          t.ID,
		Title:       t.Title,
		Priority:    t.Priority,
		Load:        int(t.CognitiveLoad),
		EstimateMin: t.EstimateMin,
		Must:        t.IsMust,
		Overdue:     t.IsOverdue(now),
	}
	if t.DueDate != nil {
		item.Due = model.FormatDate(*t.DueDate)
	}
	return item
}

func taskLines(t model.Task) []string {
	lines := []string{
		fmt.Sprintf("priority: %d  load: %d  estimate: %dm", t.Priority, t.CognitiveLoad, t.EstimateMin),
	}
	if t.ContextType != "" {
		lines = append(lines, "context: "+t.ContextType)
	}
	if t.DueDate != nil {
		due := model.FormatDate(*t.DueDate)
		if !t.DueDateOnly {
			due = t.DueDate.Format(time.RFC3339)
		}
		lines = append(lines, "due: "+due)
	}
	if t.PostponeCount > 0 {
		lines = append(lines, fmt.Sprintf("postponed: %d time(s)", t.PostponeCount))
	}
	return append(lines, "id: "+t.ID)
}

func clock(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return "--:--"
	}
	return t.In(loc).Format("15:04")
}

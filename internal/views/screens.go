package views

import (
	"fmt"
	"strings"
)

type SlotItemData struct {
	Position   int
	ID         string
	Title      string
	Start      string
	End        string
	Score      int
	Confidence float64
	Must       bool
	Forced     bool
	Overdue    bool
}

type QueuePanelData struct {
	Items            []SlotItemData
	Selected         int
	AvailableMinutes int
	UsedMinutes      int
}

type TaskItemData struct {
	ID          string
	Title       string
	Due         string
	Priority    int
	Load        int
	EstimateMin int
	Must        bool
	Overdue     bool
}

type LaterPanelData struct {
	Items    []TaskItemData
	Selected int
}

// CardData is one insight or recommendation row.
type CardData struct {
	Title    string
	Priority string
	Kind     string
}

type CardListData struct {
	Heading  string
	Actions  string
	Items    []CardData
	Selected int
	Empty    string
}

// DetailData is the right pane. Markdown is rendered after the plain lines.
type DetailData struct {
	Heading  string
	Lines    []string
	Markdown string
}

type HeaderData struct {
	Date     string
	Energy   int
	Focus    int
	Views    []string
	Current  string
	Spinner  string
	Loading  bool
	BurnWarn bool
}

type HelpPanelData struct {
	CurrentView string
	Bindings    []string
	HelpView    string
}

func RenderHeader(data HeaderData) string {
	tabs := make([]string, 0, len(data.Views))
	for i, v := range data.Views {
		label := fmt.Sprintf("%d %s", i+1, v)
		if v == data.Current {
			label = "[" + label + "]"
		}
		tabs = append(tabs, label)
	}
	line := fmt.Sprintf("dayplan %s | energy %d/5 | focus %d/5 | %s", data.Date, data.Energy, data.Focus, strings.Join(tabs, "  "))
	if data.Loading {
		line += " " + data.Spinner
	}
	if data.BurnWarn {
		line += " | !burnout"
	}
	return line
}

func RenderQueuePanel(data QueuePanelData) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("queue: %d/%d min planned\n", data.UsedMinutes, data.AvailableMinutes))
	b.WriteString("actions: [x]done [p]postpone [m]must [j/k]move\n")
	if len(data.Items) == 0 {
		b.WriteString("(nothing fits today)")
		return b.String()
	}
	for i, item := range data.Items {
		cursor := " "
		if i == data.Selected {
			cursor = ">"
		}
		b.WriteString(fmt.Sprintf("%s %d. %s-%s %s %s", cursor, item.Position, item.Start, item.End, slotBadge(item), item.Title))
		b.WriteString(fmt.Sprintf(" (%d, %.0f%%)\n", item.Score, item.Confidence*100))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func RenderLaterPanel(data LaterPanelData) string {
	var b strings.Builder
	b.WriteString("later:\n")
	b.WriteString("actions: [x]done [p]postpone [m]must [j/k]move\n")
	if len(data.Items) == 0 {
		b.WriteString("(nothing deferred)")
		return b.String()
	}
	for i, item := range data.Items {
		cursor := " "
		if i == data.Selected {
			cursor = ">"
		}
		b.WriteString(fmt.Sprintf("%s %s %s ~%dm", cursor, taskBadge(item), item.Title, item.EstimateMin))
		if item.Due != "" {
			b.WriteString(" due:" + item.Due)
		}
		b.WriteString("\n")
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func RenderCardList(data CardListData) string {
	var b strings.Builder
	b.WriteString(data.Heading + ":\n")
	if data.Actions != "" {
		b.WriteString("actions: " + data.Actions + "\n")
	}
	if len(data.Items) == 0 {
		b.WriteString(data.Empty)
		return b.String()
	}
	for i, item := range data.Items {
		cursor := " "
		if i == data.Selected {
			cursor = ">"
		}
		b.WriteString(fmt.Sprintf("%s [%s] %s\n", cursor, strings.ToUpper(item.Priority), item.Title))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func RenderDetail(data DetailData) string {
	var b strings.Builder
	b.WriteString(data.Heading + ":\n")
	for _, line := range data.Lines {
		b.WriteString(line + "\n")
	}
	if md := RenderMarkdown(data.Markdown); md != "" {
		b.WriteString("\n" + md)
	}
	return strings.TrimSpace(b.String())
}

func RenderCommandPalette(active bool, input string) string {
	if !active {
		return ""
	}
	return fmt.Sprintf("command: /%s", input)
}

func RenderNotification(level string, body string) string {
	if strings.TrimSpace(body) == "" {
		return ""
	}
	return fmt.Sprintf("notification: [%s] %s", strings.ToUpper(level), body)
}

func RenderHelpPanel(data HelpPanelData) string {
	return fmt.Sprintf("help:\n%s view:\n%s\n%s",
		strings.ToLower(data.CurrentView),
		strings.Join(data.Bindings, "\n"),
		data.HelpView,
	)
}

func slotBadge(item SlotItemData) string {
	switch {
	case item.Overdue:
		return "[RED]"
	case item.Must || item.Forced:
		return "[MUST]"
	default:
		return "[OK]"
	}
}

func taskBadge(item TaskItemData) string {
	switch {
	case item.Overdue:
		return "[RED]"
	case item.Must:
		return "[MUST]"
	case item.Priority >= 3:
		return "[YELLOW]"
	default:
		return "[GREEN]"
	}
}

// Package views renders the terminal client's panes from plain data.
package views

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

// DefaultWidth is used until the terminal reports its size.
const DefaultWidth = 120

const minPaneWidth = 30

type AppData struct {
	Header       string
	LeftPane     string
	RightPane    string
	StatusLine   string
	StatusError  bool
	Palette      string
	Footer       string
	Notification string
	Width        int
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	paneStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	noticeStyle = paneStyle.BorderForeground(lipgloss.Color("11"))
	footerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// PaneWidths splits the terminal 3:2 between the list and the detail pane,
// leaving room for the borders and padding.
func PaneWidths(total int) (int, int) {
	if total <= 0 {
		total = DefaultWidth
	}
	inner := total - 2*paneStyle.GetHorizontalFrameSize()
	left := max(minPaneWidth, inner*3/5)
	right := max(minPaneWidth, inner-left)
	return left, right
}

func RenderApp(data AppData) string {
	lw, rw := PaneWidths(data.Width)
	row := lipgloss.JoinHorizontal(lipgloss.Top,
		paneStyle.Width(lw).Render(data.LeftPane),
		paneStyle.Width(rw).Render(data.RightPane),
	)

	style := statusStyle
	if data.StatusError {
		style = errorStyle
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render(data.Header))
	b.WriteString("\n")
	b.WriteString(row)
	b.WriteString("\n")
	b.WriteString(style.Render(data.StatusLine))
	for _, extra := range []string{data.Palette, boxed(data.Notification), faint(data.Footer)} {
		if extra != "" {
			b.WriteString("\n")
			b.WriteString(extra)
		}
	}
	return b.String()
}

func boxed(s string) string {
	if s == "" {
		return ""
	}
	return noticeStyle.Render(s)
}

func faint(s string) string {
	if s == "" {
		return ""
	}
	return footerStyle.Render(s)
}

// RenderMarkdown falls back to the raw text when glamour cannot render it.
func RenderMarkdown(md string) string {
	if strings.TrimSpace(md) == "" {
		return ""
	}
	out, err := glamour.Render(md, "dark")
	if err != nil {
		return md
	}
	return strings.TrimSpace(out)
}

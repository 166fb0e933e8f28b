package update

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"

	"github.com/sandeepkv93/dayplan/internal/model"
	"github.com/sandeepkv93/dayplan/internal/recommend"
	"github.com/sandeepkv93/dayplan/internal/scheduler"
	"github.com/sandeepkv93/dayplan/internal/service"
)

type View string

const (
	ViewQueue           View = "Queue"
	ViewLater           View = "Later"
	ViewInsights        View = "Insights"
	ViewRecommendations View = "Recommendations"
)

var allViews = []View{ViewQueue, ViewLater, ViewInsights, ViewRecommendations}

// Planner is the slice of the planning service the terminal client drives.
type Planner interface {
	Today() string
	Plan(ctx context.Context, userID, date string) (service.Plan, error)
	Apply(ctx context.Context, userID, date, id string) (recommend.Recommendation, error)
	CreateTask(ctx context.Context, userID string, in service.NewTask) (model.Task, error)
	CompleteTask(ctx context.Context, userID, id string) (model.Task, error)
	PostponeTask(ctx context.Context, userID, id string, days int) (model.Task, error)
	SetMust(ctx context.Context, userID, id string, must bool) (model.Task, error)
	UpdateDayPlan(ctx context.Context, userID string, patch service.DayPlanPatch) (model.DayPlan, error)
	RecordBreak(ctx context.Context, userID string, minutes int) (model.Break, error)
}

type StatusBar struct {
	Text    string
	IsError bool
}

type GlobalKeyMap struct {
	Queue           string
	Later           string
	Insights        string
	Recommendations string
	Help            string
	Quit            string
}

type CommandPaletteState struct {
	Active bool
	Input  string
}

type Notification struct {
	Title string
	Body  string
	Level string
	At    time.Time
}

// Config wires the model to a user and tunes its timers.
type Config struct {
	UserID               string
	Date                 string
	SlotLead             time.Duration
	RefreshInterval      time.Duration
	DesktopNotifications bool
}

type Model struct {
	CurrentView   View
	Date          string
	Plan          service.Plan
	Loaded        bool
	Loading       bool
	Cursor        map[View]int
	Palette       CommandPaletteState
	HelpVisible   bool
	Notifications []Notification
	Status        StatusBar
	Keys          GlobalKeyMap
	Quitting      bool
	LastError     error
	Width         int

	planner   Planner
	scheduler *scheduler.Engine
	notifier  DesktopNotifier
	cfg       Config
	ctx       context.Context
	now       func() time.Time

	commandInput  textinput.Model
	loadSpinner   spinner.Model
	helpModel     help.Model
	spinnerActive bool
}

const maxNotifications = 20

type DesktopNotifier interface {
	Send(Notification) error
}

type NoopDesktopNotifier struct{}

func (NoopDesktopNotifier) Send(Notification) error { return nil }

type ExecDesktopNotifier struct{}

func (ExecDesktopNotifier) Send(n Notification) error {
	switch runtime.GOOS {
	case "linux":
		return exec.Command("notify-send", n.Title, n.Body).Run()
	case "darwin":
		script := fmt.Sprintf(`display notification "%s" with title "%s"`, escapeAppleScript(n.Body), escapeAppleScript(n.Title))
		return exec.Command("osascript", "-e", script).Run()
	default:
		return nil
	}
}

func escapeAppleScript(s string) string {
	return strings.ReplaceAll(s, `"`, `\"`)
}

type SwitchViewMsg struct {
	View View
}

type SetStatusMsg struct {
	Text    string
	IsError bool
}

type PlanLoadedMsg struct {
	Plan service.Plan
	Err  error
}

type SlotDueMsg struct {
	Event scheduler.SlotEvent
}

type RefreshTickMsg struct{}

// Option customises a Model built by NewModel.
type Option func(*Model)

func WithScheduler(engine *scheduler.Engine) Option {
	return func(m *Model) { m.scheduler = engine }
}

func WithNotifier(n DesktopNotifier) Option {
	return func(m *Model) {
		if n != nil {
			m.notifier = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(m *Model) { m.now = now }
}

func WithContext(ctx context.Context) Option {
	return func(m *Model) { m.ctx = ctx }
}

func NewModel(planner Planner, cfg Config, opts ...Option) Model {
	m := Model{
		CurrentView: ViewQueue,
		Cursor:      make(map[View]int, len(allViews)),
		Keys: GlobalKeyMap{
			Queue:           "1",
			Later:           "2",
			Insights:        "3",
			Recommendations: "4",
			Help:            "?",
			Quit:            "q",
		},
		planner:  planner,
		notifier: NoopDesktopNotifier{},
		cfg:      cfg,
		ctx:      context.Background(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(&m)
	}
	m.Date = cfg.Date
	if m.Date == "" && planner != nil {
		m.Date = planner.Today()
	}
	m.initBubbleComponents()
	return m
}

func (m *Model) initBubbleComponents() {
	m.commandInput = textinput.New()
	m.commandInput.Prompt = "/"
	m.commandInput.CharLimit = 256
	m.commandInput.Width = 48

	m.loadSpinner = spinner.New()
	m.loadSpinner.Spinner = spinner.Dot

	m.helpModel = help.New()
}

func isKnownView(v View) bool {
	for _, known := range allViews {
		if v == known {
			return true
		}
	}
	return false
}

func (m *Model) notify(title, body, level string) {
	n := Notification{Title: title, Body: body, Level: level, At: m.now()}
	m.Notifications = append(m.Notifications, n)
	if len(m.Notifications) > maxNotifications {
		m.Notifications = m.Notifications[len(m.Notifications)-maxNotifications:]
	}
	if m.cfg.DesktopNotifications {
		if err := m.notifier.Send(n); err != nil {
			m.Status = StatusBar{Text: fmt.Sprintf("desktop notification failed: %v", err), IsError: true}
		}
	}
}

// itemCount is the number of selectable rows in v.
func (m Model) itemCount(v View) int {
	switch v {
	case ViewQueue:
		return len(m.Plan.Queue)
	case ViewLater:
		return len(m.Plan.Later)
	case ViewInsights:
		return len(m.Plan.Insights)
	case ViewRecommendations:
		return len(m.Plan.Recommendations)
	default:
		return 0
	}
}

func (m *Model) moveCursor(delta int) {
	n := m.itemCount(m.CurrentView)
	if n == 0 {
		m.Cursor[m.CurrentView] = 0
		return
	}
	c := m.Cursor[m.CurrentView] + delta
	if c < 0 {
		c = 0
	}
	if c >= n {
		c = n - 1
	}
	m.Cursor[m.CurrentView] = c
}

// clampCursors keeps every cursor inside its list after a reload.
func (m *Model) clampCursors() {
	for _, v := range allViews {
		n := m.itemCount(v)
		switch {
		case n == 0:
			m.Cursor[v] = 0
		case m.Cursor[v] >= n:
			m.Cursor[v] = n - 1
		}
	}
}

// selectedTask is the task under the cursor in the Queue or Later view.
func (m Model) selectedTask() (model.Task, bool) {
	c := m.Cursor[m.CurrentView]
	switch m.CurrentView {
	case ViewQueue:
		if c < len(m.Plan.Queue) {
			return m.Plan.Queue[c].Task, true
		}
	case ViewLater:
		if c < len(m.Plan.Later) {
			return m.Plan.Later[c], true
		}
	}
	return model.Task{}, false
}

func (m Model) selectedRecommendation() (recommend.Recommendation, bool) {
	c := m.Cursor[ViewRecommendations]
	if c < len(m.Plan.Recommendations) {
		return m.Plan.Recommendations[c], true
	}
	return recommend.Recommendation{}, false
}

// resolveTarget maps a 1-based queue position or a task id (or unique id
// prefix) to a task id.
func (m Model) resolveTarget(target string) (string, error) {
	target = strings.TrimSpace(target)
	if n, err := strconv.Atoi(target); err == nil {
		if n < 1 || n > len(m.Plan.Queue) {
			return "", fmt.Errorf("queue has no position %d", n)
		}
		return m.Plan.Queue[n-1].Task.ID, nil
	}
	var match string
	for _, t := range m.knownTasks() {
		if t.ID == target {
			return t.ID, nil
		}
		if strings.HasPrefix(t.ID, target) {
			if match != "" && match != t.ID {
				return "", fmt.Errorf("task id %q is ambiguous", target)
			}
			match = t.ID
		}
	}
	if match != "" {
		return match, nil
	}
	return target, nil
}

func (m Model) knownTasks() []model.Task {
	out := make([]model.Task, 0, len(m.Plan.Queue)+len(m.Plan.Later))
	for _, s := range m.Plan.Queue {
		out = append(out, s.Task)
	}
	return append(out, m.Plan.Later...)
}

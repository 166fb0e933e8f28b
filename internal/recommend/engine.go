// Package recommend evaluates the day and proposes actionable changes, each
// carrying the operations a caller can execute against the task store.
package recommend

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/sandeepkv93/dayplan/internal/burnout"
	"github.com/sandeepkv93/dayplan/internal/digest"
	"github.com/sandeepkv93/dayplan/internal/log"
	"github.com/sandeepkv93/dayplan/internal/model"
	"github.com/sandeepkv93/dayplan/internal/scoring"
)

type Type string

const (
	TypeBurnoutWarning   Type = "burnout_warning"
	TypeBreakSuggestion  Type = "break_suggestion"
	TypeSustainedWork    Type = "sustained_work"
	TypeContextCluster   Type = "context_cluster"
	TypeEnergyMismatch   Type = "energy_mismatch"
	TypeHighEnergyWindow Type = "high_energy_window"
	TypeLowEnergyWindow  Type = "low_energy_window"
	TypeOverdueReview    Type = "overdue_review"
	TypeTaskDebt         Type = "task_debt"
)

type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

const (
	SustainedWorkMin   = 120
	MinClusterSize     = 3
	HeavyLoad          = 4
	LightLoad          = 2
	DrainedEnergy      = 2
	VeryLowEnergy      = 1
	PeakLevel          = 4
	WindowSize         = 3
	OverdueReviewCount = 5
	TaskDebtCount      = 10
	TaskDebtKeep       = 5

	longBreakMin  = 30
	breakMin      = 15
	shortBreakMin = 10
)

type Recommendation struct {
	ID                 string   `json:"id"`
	Type               Type     `json:"type"`
	Priority           Priority `json:"priority"`
	Confidence         float64  `json:"confidence"`
	Title              string   `json:"title"`
	Message            string   `json:"message"`
	HighlightedTaskIDs []string `json:"highlighted_task_ids"`
	Actions            []Action `json:"actions"`
}

// Context is the snapshot one evaluation runs against. Applied holds the IDs
// of recommendations the user already executed.
type Context struct {
	UserID      string
	Tasks       []model.Task
	Energy      int
	Focus       int
	Applied     map[string]bool
	LastBreakAt *time.Time
	Now         time.Time
}

// Assessor rates burnout risk for a user.
type Assessor interface {
	Assess(ctx context.Context, userID string) (burnout.Assessment, error)
}

type rule struct {
	name string
	eval func(context.Context, Context) (Recommendation, bool)
}

type Engine struct {
	assessor Assessor
	logger   *log.Logger
	rules    []rule
}

// New returns an engine. A nil assessor disables the burnout rule.
func New(assessor Assessor, logger *log.Logger) *Engine {
	e := &Engine{assessor: assessor, logger: log.OrNop(logger).With("component", "recommend")}
	e.rules = []rule{
		{"burnout", e.burnoutRisk},
		{"sustained_work", sustainedWork},
		{"context_cluster", contextCluster},
		{"energy_mismatch", energyMismatch},
		{"high_energy_window", highEnergyWindow},
		{"low_energy_window", lowEnergyWindow},
		{"overdue", overdue},
	}
	return e
}

// Generate evaluates every rule and drops recommendations already applied.
func (e *Engine) Generate(ctx context.Context, c Context) []Recommendation {
	out := make([]Recommendation, 0, len(e.rules))
	day := model.FormatDate(c.Now)
	for _, r := range e.rules {
		rec, ok := e.run(ctx, r, c)
		if !ok {
			continue
		}
		rec.ID = digest.ID("rec", string(rec.Type), day, digest.Join(rec.HighlightedTaskIDs))
		if c.Applied[rec.ID] {
			continue
		}
		if rec.HighlightedTaskIDs == nil {
			rec.HighlightedTaskIDs = []string{}
		}
		out = append(out, rec)
	}
	return out
}

func (e *Engine) run(ctx context.Context, r rule, c Context) (rec Recommendation, ok bool) {
	defer func() {
		if p := recover(); p != nil {
			e.logger.Warn("recommendation rule failed", "rule", r.name, "panic", fmt.Sprint(p))
			rec, ok = Recommendation{}, false
		}
	}()
	return r.eval(ctx, c)
}

func (e *Engine) burnoutRisk(ctx context.Context, c Context) (Recommendation, bool) {
	if e.assessor == nil || c.UserID == "" {
		return Recommendation{}, false
	}
	a, err := e.assessor.Assess(ctx, c.UserID)
	if err != nil {
		e.logger.WithError(err).Warn("burnout assessment failed", "user_id", c.UserID)
		return Recommendation{}, false
	}
	conf := float64(a.RiskScore) / 100
	switch a.RiskLevel {
	case burnout.LevelHigh:
		return Recommendation{
			Type:       TypeBurnoutWarning,
			Priority:   PriorityCritical,
			Confidence: conf,
			Title:      "High burnout risk",
			Message:    withWarnings("Your recent workload is unsustainable. Stop for a proper break before continuing.", a.Warnings),
			Actions:    []Action{AddBreak{Minutes: longBreakMin}},
		}, true
	case burnout.LevelMedium:
		return Recommendation{
			Type:       TypeBreakSuggestion,
			Priority:   PriorityMedium,
			Confidence: conf,
			Title:      "Time for a break",
			Message:    withWarnings("Your workload has been heavy this week.", a.Warnings),
			Actions:    []Action{AddBreak{Minutes: breakMin}},
		}, true
	default:
		return Recommendation{}, false
	}
}

func sustainedWork(_ context.Context, c Context) (Recommendation, bool) {
	since := startOfDay(c.Now)
	if c.LastBreakAt != nil && c.LastBreakAt.After(since) {
		since = *c.LastBreakAt
	}
	minutes := 0
	for _, t := range c.Tasks {
		if t.Completed && t.CompletedAt != nil && t.CompletedAt.After(since) && !t.CompletedAt.After(c.Now) {
			minutes += scoring.Estimate(t)
		}
	}
	if minutes < SustainedWorkMin {
		return Recommendation{}, false
	}
	return Recommendation{
		Type:       TypeSustainedWork,
		Priority:   PriorityHigh,
		Confidence: 0.8,
		Title:      "Take a break",
		Message:    fmt.Sprintf("You have completed %d minutes of work since your last break.", minutes),
		Actions:    []Action{AddBreak{Minutes: breakMin}},
	}, true
}

func contextCluster(_ context.Context, c Context) (Recommendation, bool) {
	open := incomplete(c.Tasks)
	sort.SliceStable(open, func(i, j int) bool { return open[i].Position < open[j].Position })

	var order []string
	groups := map[string][]model.Task{}
	for _, t := range open {
		if t.ContextType == "" {
			continue
		}
		if _, seen := groups[t.ContextType]; !seen {
			order = append(order, t.ContextType)
		}
		groups[t.ContextType] = append(groups[t.ContextType], t)
	}
	best := ""
	for _, ctx := range order {
		if len(groups[ctx]) >= MinClusterSize && len(groups[ctx]) > len(groups[best]) {
			best = ctx
		}
	}
	if best == "" {
		return Recommendation{}, false
	}
	analysis := AnalyzeSwitches(open)
	if analysis.Switches <= analysis.GroupedSwitches {
		return Recommendation{}, false
	}
	ids := taskIDs(groups[best])
	return Recommendation{
		Type:               TypeContextCluster,
		Priority:           PriorityMedium,
		Confidence:         0.7,
		Title:              fmt.Sprintf("Group your %s tasks", best),
		Message:            fmt.Sprintf("Your list switches context %d times. Doing the %d %s tasks together saves about %d minutes.", analysis.Switches, len(ids), best, analysis.SavedMin),
		HighlightedTaskIDs: ids,
		Actions:            []Action{ReorderTasks{TaskIDs: ids}},
	}, true
}

func energyMismatch(_ context.Context, c Context) (Recommendation, bool) {
	if c.Energy == 0 || c.Energy > DrainedEnergy {
		return Recommendation{}, false
	}
	var heavy []model.Task
	for _, t := range incomplete(c.Tasks) {
		if t.IsMust && scoring.Load(t) >= HeavyLoad {
			heavy = append(heavy, t)
		}
	}
	if len(heavy) == 0 {
		return Recommendation{}, false
	}
	actions := make([]Action, 0, len(heavy)+1)
	for _, t := range heavy {
		actions = append(actions, SetMust{TaskID: t.ID, Must: false})
	}
	actions = append(actions, AddBreak{Minutes: shortBreakMin})
	return Recommendation{
		Type:               TypeEnergyMismatch,
		Priority:           PriorityHigh,
		Confidence:         0.75,
		Title:              "Heavy must-do tasks on a low-energy day",
		Message:            fmt.Sprintf("%d must-do tasks need a lot of focus and your energy is %d. Unpin them and take a short break.", len(heavy), c.Energy),
		HighlightedTaskIDs: taskIDs(heavy),
		Actions:            actions,
	}, true
}

func highEnergyWindow(_ context.Context, c Context) (Recommendation, bool) {
	if c.Energy < PeakLevel || c.Focus < PeakLevel {
		return Recommendation{}, false
	}
	open := incomplete(c.Tasks)
	if len(open) == 0 {
		return Recommendation{}, false
	}
	sort.SliceStable(open, func(i, j int) bool { return scoring.Load(open[i]) > scoring.Load(open[j]) })
	top := open[:min(WindowSize, len(open))]
	ids := taskIDs(top)
	return Recommendation{
		Type:               TypeHighEnergyWindow,
		Priority:           PriorityMedium,
		Confidence:         0.7,
		Title:              "Use your peak for hard work",
		Message:            fmt.Sprintf("Energy and focus are high. Tackle your %d most demanding tasks now.", len(ids)),
		HighlightedTaskIDs: ids,
		Actions:            []Action{ReorderTasks{TaskIDs: ids}},
	}, true
}

func lowEnergyWindow(_ context.Context, c Context) (Recommendation, bool) {
	if c.Energy == 0 || c.Energy > DrainedEnergy {
		return Recommendation{}, false
	}
	var light []model.Task
	for _, t := range incomplete(c.Tasks) {
		if scoring.Load(t) <= LightLoad {
			light = append(light, t)
			if len(light) == WindowSize {
				break
			}
		}
	}
	if len(light) == 0 {
		return Recommendation{}, false
	}
	ids := taskIDs(light)
	return Recommendation{
		Type:               TypeLowEnergyWindow,
		Priority:           PriorityLow,
		Confidence:         0.65,
		Title:              "Start with something light",
		Message:            fmt.Sprintf("Energy is low. %d easy tasks can keep you moving.", len(ids)),
		HighlightedTaskIDs: ids,
		Actions:            []Action{ReorderTasks{TaskIDs: ids}},
	}, true
}

func overdue(_ context.Context, c Context) (Recommendation, bool) {
	var late []model.Task
	for _, t := range incomplete(c.Tasks) {
		if t.IsOverdue(c.Now) {
			late = append(late, t)
		}
	}
	n := len(late)
	if n < OverdueReviewCount {
		return Recommendation{}, false
	}

	easiestFirst := c.Energy > 0 && c.Energy <= VeryLowEnergy
	if easiestFirst {
		sort.SliceStable(late, func(i, j int) bool {
			li, lj := scoring.Load(late[i]), scoring.Load(late[j])
			if li != lj {
				return li < lj
			}
			return scoring.Estimate(late[i]) < scoring.Estimate(late[j])
		})
	} else {
		sort.SliceStable(late, func(i, j int) bool {
			return scoring.Outranks(scoring.Score(late[i], c.Now), scoring.Score(late[j], c.Now))
		})
	}

	hint := ""
	if easiestFirst {
		hint = fmt.Sprintf(" Start with %q, the easiest one.", late[0].Title)
	}
	if n >= TaskDebtCount {
		keep, tail := late[:TaskDebtKeep], late[TaskDebtKeep:]
		return Recommendation{
			Type:               TypeTaskDebt,
			Priority:           PriorityHigh,
			Confidence:         0.85,
			Title:              fmt.Sprintf("%d overdue tasks", n),
			Message:            fmt.Sprintf("Overdue work is piling up. Focus on %d and push the other %d to tomorrow.%s", len(keep), len(tail), hint),
			HighlightedTaskIDs: taskIDs(late),
			Actions: []Action{
				ReorderTasks{TaskIDs: taskIDs(keep)},
				PostponeTasks{TaskIDs: taskIDs(tail), Days: 1},
			},
		}, true
	}
	return Recommendation{
		Type:               TypeOverdueReview,
		Priority:           PriorityMedium,
		Confidence:         0.7,
		Title:              fmt.Sprintf("Review %d overdue tasks", n),
		Message:            "Several tasks are past due. Decide which still matter." + hint,
		HighlightedTaskIDs: taskIDs(late),
		Actions:            []Action{ReorderTasks{TaskIDs: taskIDs(late)}},
	}, true
}

func incomplete(tasks []model.Task) []model.Task {
	out := make([]model.Task, 0, len(tasks))
	for _, t := range tasks {
		if !t.Completed {
			out = append(out, t)
		}
	}
	return out
}

func taskIDs(tasks []model.Task) []string {
	out := make([]string, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.ID)
	}
	return out
}

func withWarnings(msg string, warnings []string) string {
	for _, w := range warnings {
		msg += " " + w + "."
	}
	return msg
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

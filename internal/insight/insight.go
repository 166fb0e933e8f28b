// Package insight derives read-only observations about a built queue.
package insight

import (
	"fmt"
	"time"

	"github.com/sandeepkv93/dayplan/internal/digest"
	"github.com/sandeepkv93/dayplan/internal/log"
	"github.com/sandeepkv93/dayplan/internal/model"
	"github.com/sandeepkv93/dayplan/internal/planner"
	"github.com/sandeepkv93/dayplan/internal/scoring"
)

type Type string

const (
	TypeContextStreak     Type = "context_streak"
	TypeEnergyMatch       Type = "energy_match"
	TypeEnergyMismatch    Type = "energy_mismatch"
	TypeDeadlineProximity Type = "deadline_proximity"
	TypeQuickWins         Type = "quick_wins"
	TypeLongTask          Type = "long_task"
	TypeOverload          Type = "overload"
	TypeFlowOpportunity   Type = "flow_opportunity"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

const (
	SwitchCostMin   = 15
	MinStreak       = 3
	QuickWinMaxMin  = 15
	MinQuickWins    = 3
	LongTaskMin     = 120
	FlowMinMembers  = 3
	FlowMinTotalMin = 60
	FlowMaxTotalMin = 180
	deadlineFactor  = 1.5
	energySample    = 3
)

type Insight struct {
	ID                 string   `json:"id"`
	Type               Type     `json:"type"`
	Priority           Priority `json:"priority"`
	Title              string   `json:"title"`
	Message            string   `json:"message"`
	HighlightedTaskIDs []string `json:"highlighted_task_ids"`
}

// Context carries the day signals the rules compare the queue against.
// Capacity and UsedTime are minutes.
type Context struct {
	Energy   int
	Capacity int
	UsedTime int
	Now      time.Time
}

// Input is the read-only snapshot every rule receives.
type Input struct {
	Queue   []planner.Slot
	Tasks   []model.Task
	Context Context
}

// Rule yields at most one insight.
type Rule struct {
	Name string
	Eval func(Input) (Insight, bool)
}

type Generator struct {
	logger *log.Logger
	rules  []Rule
}

// New returns a generator running rules in order, or DefaultRules when none
// are given.
func New(logger *log.Logger, rules ...Rule) *Generator {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	return &Generator{logger: log.OrNop(logger), rules: rules}
}

func DefaultRules() []Rule {
	return []Rule{
		{Name: "context_streak", Eval: contextStreak},
		{Name: "energy_match", Eval: energyMatch},
		{Name: "deadline_proximity", Eval: deadlineProximity},
		{Name: "quick_wins", Eval: quickWins},
		{Name: "long_task", Eval: longTask},
		{Name: "overload", Eval: overload},
		{Name: "flow_opportunity", Eval: flowOpportunity},
	}
}

// Generate runs every rule against the snapshot. A rule that panics is
// logged and skipped; the others still run.
func (g *Generator) Generate(queue []planner.Slot, all []model.Task, ctx Context) []Insight {
	in := Input{Queue: queue, Tasks: all, Context: ctx}
	out := make([]Insight, 0, len(g.rules))
	for _, r := range g.rules {
		if ins, ok := g.run(r, in); ok {
			out = append(out, ins)
		}
	}
	return out
}

func (g *Generator) run(r Rule, in Input) (ins Insight, ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			g.logger.Warn("insight rule failed", "rule", r.Name, "panic", fmt.Sprint(rec))
			ins, ok = Insight{}, false
		}
	}()
	ins, ok = r.Eval(in)
	if ok {
		ins.ID = digest.ID("ins", string(ins.Type), digest.Join(ins.HighlightedTaskIDs), ins.Message)
		if ins.HighlightedTaskIDs == nil {
			ins.HighlightedTaskIDs = []string{}
		}
	}
	return ins, ok
}

func contextStreak(in Input) (Insight, bool) {
	bestStart, bestLen := 0, 0
	for i := 0; i < len(in.Queue); {
		ctx := in.Queue[i].Task.ContextType
		j := i + 1
		for j < len(in.Queue) && ctx != "" && in.Queue[j].Task.ContextType == ctx {
			j++
		}
		if ctx != "" && j-i > bestLen {
			bestStart, bestLen = i, j-i
		}
		i = j
	}
	if bestLen < MinStreak {
		return Insight{}, false
	}
	run := in.Queue[bestStart : bestStart+bestLen]
	ctx := run[0].Task.ContextType
	saved := (bestLen - 1) * SwitchCostMin
	return Insight{
		Type:               TypeContextStreak,
		Priority:           PriorityMedium,
		Title:              fmt.Sprintf("%d %s tasks in a row", bestLen, ctx),
		Message:            fmt.Sprintf("Doing these %s tasks back to back saves about %d minutes of context switching.", ctx, saved),
		HighlightedTaskIDs: slotIDs(run),
	}, true
}

func energyMatch(in Input) (Insight, bool) {
	if len(in.Queue) == 0 {
		return Insight{}, false
	}
	head := in.Queue[:min(energySample, len(in.Queue))]
	sum := 0
	for _, s := range head {
		sum += scoring.Load(s.Task)
	}
	avg := float64(sum) / float64(len(head))
	energy := in.Context.Energy
	if energy == 0 {
		energy = scoring.DefaultLoad
	}
	diff := avg - float64(energy)
	switch {
	case diff >= -1 && diff <= 1:
		return Insight{
			Type:               TypeEnergyMatch,
			Priority:           PriorityLow,
			Title:              "Queue matches your energy",
			Message:            fmt.Sprintf("Your next tasks average load %.1f against energy %d.", avg, energy),
			HighlightedTaskIDs: slotIDs(head),
		}, true
	case diff > 2:
		return Insight{
			Type:               TypeEnergyMismatch,
			Priority:           PriorityHigh,
			Title:              "Next tasks are heavy for your energy",
			Message:            fmt.Sprintf("Your next tasks average load %.1f but energy is %d. Consider starting with something lighter.", avg, energy),
			HighlightedTaskIDs: slotIDs(head),
		}, true
	default:
		return Insight{}, false
	}
}

func deadlineProximity(in Input) (Insight, bool) {
	for _, s := range in.Queue {
		deadline, ok := s.Task.Deadline()
		if !ok {
			continue
		}
		left := deadline.Sub(in.Context.Now).Hours()
		need := deadlineFactor * float64(scoring.Estimate(s.Task)) / 60
		if left > 0 && left <= need {
			return Insight{
				Type:               TypeDeadlineProximity,
				Priority:           PriorityHigh,
				Title:              fmt.Sprintf("%q is due soon", s.Task.Title),
				Message:            fmt.Sprintf("%q is due in %s and needs about %d minutes.", s.Task.Title, formatHours(left), scoring.Estimate(s.Task)),
				HighlightedTaskIDs: []string{s.Task.ID},
			}, true
		}
	}
	return Insight{}, false
}

func quickWins(in Input) (Insight, bool) {
	var wins []planner.Slot
	total := 0
	for _, s := range in.Queue {
		if est := scoring.Estimate(s.Task); est <= QuickWinMaxMin {
			wins = append(wins, s)
			total += est
		}
	}
	if len(wins) < MinQuickWins {
		return Insight{}, false
	}
	return Insight{
		Type:               TypeQuickWins,
		Priority:           PriorityLow,
		Title:              fmt.Sprintf("%d quick wins", len(wins)),
		Message:            fmt.Sprintf("%d short tasks take %d minutes together.", len(wins), total),
		HighlightedTaskIDs: slotIDs(wins),
	}, true
}

func longTask(in Input) (Insight, bool) {
	for i, s := range in.Queue {
		est := scoring.Estimate(s.Task)
		if est < LongTaskMin {
			continue
		}
		return Insight{
			Type:               TypeLongTask,
			Priority:           PriorityMedium,
			Title:              fmt.Sprintf("Long task at position %d", i+1),
			Message:            fmt.Sprintf("%q needs %d minutes. Plan a break around it.", s.Task.Title, est),
			HighlightedTaskIDs: []string{s.Task.ID},
		}, true
	}
	return Insight{}, false
}

func overload(in Input) (Insight, bool) {
	over := in.Context.UsedTime - in.Context.Capacity
	if over <= 0 {
		return Insight{}, false
	}
	queued := make(map[string]bool, len(in.Queue))
	for _, s := range in.Queue {
		queued[s.Task.ID] = true
	}
	waiting := 0
	for _, t := range in.Tasks {
		if !t.Completed && !queued[t.ID] {
			waiting++
		}
	}
	msg := fmt.Sprintf("Scheduled work exceeds the time you have by %d minutes.", over)
	if waiting > 0 {
		msg += fmt.Sprintf(" %d more tasks are waiting.", waiting)
	}
	return Insight{
		Type:               TypeOverload,
		Priority:           PriorityHigh,
		Title:              fmt.Sprintf("Over capacity by %d minutes", over),
		Message:            msg,
		HighlightedTaskIDs: forcedIDs(in.Queue),
	}, true
}

func flowOpportunity(in Input) (Insight, bool) {
	var order []string
	groups := map[string][]planner.Slot{}
	for _, s := range in.Queue {
		ctx := s.Task.ContextType
		if ctx == "" {
			continue
		}
		if _, seen := groups[ctx]; !seen {
			order = append(order, ctx)
		}
		groups[ctx] = append(groups[ctx], s)
	}
	for _, ctx := range order {
		members := groups[ctx]
		if len(members) < FlowMinMembers {
			continue
		}
		total := 0
		for _, s := range members {
			total += scoring.Estimate(s.Task)
		}
		if total < FlowMinTotalMin || total > FlowMaxTotalMin {
			continue
		}
		return Insight{
			Type:               TypeFlowOpportunity,
			Priority:           PriorityMedium,
			Title:              fmt.Sprintf("Flow block: %s", ctx),
			Message:            fmt.Sprintf("%d %s tasks fit one %d-minute block.", len(members), ctx, total),
			HighlightedTaskIDs: slotIDs(members),
		}, true
	}
	return Insight{}, false
}

func slotIDs(slots []planner.Slot) []string {
	out := make([]string, 0, len(slots))
	for _, s := range slots {
		out = append(out, s.Task.ID)
	}
	return out
}

func forcedIDs(slots []planner.Slot) []string {
	out := []string{}
	for _, s := range slots {
		if s.Forced {
			out = append(out, s.Task.ID)
		}
	}
	return out
}

func formatHours(h float64) string {
	d := time.Duration(h * float64(time.Hour)).Round(time.Minute)
	if d < time.Hour {
		return fmt.Sprintf("%d minutes", int(d/time.Minute))
	}
	return fmt.Sprintf("%dh%02dm", int(d/time.Hour), int(d%time.Hour/time.Minute))
}

// Package planner packs scored tasks into the remaining working time of a day.
//
// Build is greedy and never backtracks: tasks are walked once in score order
// and either placed at the running clock or sent to the later list. Must-do
// and overdue tasks are always placed, even past the budget.
package planner

import (
	"math"
	"sort"
	"time"

	"github.com/sandeepkv93/dayplan/internal/model"
	"github.com/sandeepkv93/dayplan/internal/scoring"
)

const (
	DefaultHorizon  = 8 * time.Hour
	AlternativeSpan = 10
	MaxAlternatives = 2

	minConfidence    = 0.1
	forcedConfidence = 0.5
)

type Alternative struct {
	Task  model.Task `json:"task"`
	Score int        `json:"score"`
}

type Slot struct {
	Task           model.Task     `json:"task"`
	Score          scoring.Result `json:"score"`
	Confidence     float64        `json:"confidence"`
	EstimatedStart time.Time      `json:"estimated_start"`
	EstimatedEnd   time.Time      `json:"estimated_end"`
	Reasoning      []string       `json:"reasoning"`
	Alternatives   []Alternative  `json:"alternatives"`
	Forced         bool           `json:"forced,omitempty"`
}

type Result struct {
	Queue            []Slot       `json:"queue"`
	Later            []model.Task `json:"later"`
	AvailableMinutes int          `json:"available_minutes"`
	UsedMinutes      int          `json:"used_minutes"`
}

// Tasks returns the queued tasks in slot order.
func (r Result) Tasks() []model.Task {
	out := make([]model.Task, 0, len(r.Queue))
	for _, s := range r.Queue {
		out = append(out, s.Task)
	}
	return out
}

type scored struct {
	task     model.Task
	result   scoring.Result
	estimate int
	placed   bool
}

// Build computes the queue for plan at now. A nil plan yields an empty result.
func Build(tasks []model.Task, plan *model.DayPlan, calendar []model.CalendarInterval, now time.Time) Result {
	res := Result{Queue: []Slot{}, Later: []model.Task{}}
	if plan == nil {
		return res
	}

	start, end := Window(*plan, now)
	res.AvailableMinutes = AvailableMinutes(start, end, calendar)

	ranked := rank(tasks, now)
	clock := start
	for i := range ranked {
		c := &ranked[i]
		slotEnd := clock.Add(time.Duration(c.estimate) * time.Minute)
		forced := c.task.IsMust || c.result.Overdue()

		if !forced {
			if collides(clock, slotEnd, calendar) {
				res.Later = append(res.Later, c.task)
				continue
			}
			if res.UsedMinutes+c.estimate > res.AvailableMinutes {
				res.Later = append(res.Later, c.task)
				continue
			}
		}

		res.UsedMinutes += c.estimate
		c.placed = true
		conf := confidence(c.result)
		if forced && res.UsedMinutes > res.AvailableMinutes {
			conf = math.Min(conf, forcedConfidence)
		}
		res.Queue = append(res.Queue, Slot{
			Task:           c.task,
			Score:          c.result,
			Confidence:     conf,
			EstimatedStart: clock,
			EstimatedEnd:   slotEnd,
			Reasoning:      scoring.Reasons(c.task, c.result),
			Forced:         forced,
		})
		clock = slotEnd
	}

	for i := range res.Queue {
		res.Queue[i].Alternatives = alternatives(res.Queue[i], ranked)
	}
	return res
}

// Window returns the planning window for plan at now. The window opens at
// the later of now and the configured work start and closes at the work end,
// or DefaultHorizon after opening when no end is configured.
func Window(plan model.DayPlan, now time.Time) (time.Time, time.Time) {
	start := now
	if ws, ok := plan.WorkStartAt(); ok && now.Before(ws) {
		start = ws
	}
	end, ok := plan.WorkEndAt()
	if !ok {
		end = start.Add(DefaultHorizon)
	}
	return start, end
}

// AvailableMinutes is the free time in [start, end) after subtracting every
// interval that begins after start and finishes before end.
func AvailableMinutes(start, end time.Time, calendar []model.CalendarInterval) int {
	if !end.After(start) {
		return 0
	}
	total := end.Sub(start)
	for _, iv := range calendar {
		if iv.Start.After(start) && iv.End.Before(end) {
			total -= iv.Duration()
		}
	}
	if total <= 0 {
		return 0
	}
	return int(total / time.Minute)
}

// Overlaps reports whether [start, end) collides with iv. The slot collides
// when its start or end falls inside the interval or it encloses the
// interval; touching endpoints do not collide.
func Overlaps(start, end time.Time, iv model.CalendarInterval) bool {
	if !iv.End.After(iv.Start) {
		return false
	}
	return start.Before(iv.End) && iv.Start.Before(end)
}

func collides(start, end time.Time, calendar []model.CalendarInterval) bool {
	for _, iv := range calendar {
		if Overlaps(start, end, iv) {
			return true
		}
	}
	return false
}

func rank(tasks []model.Task, now time.Time) []scored {
	out := make([]scored, 0, len(tasks))
	for _, t := range tasks {
		if t.Completed {
			continue
		}
		out = append(out, scored{
			task:     t,
			result:   scoring.Score(t, now),
			estimate: scoring.Estimate(t),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return scoring.Outranks(out[i].result, out[j].result)
	})
	return out
}

func alternatives(slot Slot, ranked []scored) []Alternative {
	want := scoring.Estimate(slot.Task)
	var out []Alternative
	for _, c := range ranked {
		if c.placed || c.task.ID == slot.Task.ID {
			continue
		}
		if abs(c.estimate-want) > AlternativeSpan {
			continue
		}
		out = append(out, Alternative{Task: c.task, Score: c.result.Total})
		if len(out) == MaxAlternatives {
			break
		}
	}
	return out
}

func confidence(r scoring.Result) float64 {
	c := float64(r.Total) / float64(scoring.OverdueScore)
	c = math.Max(minConfidence, math.Min(1, c))
	return math.Round(c*100) / 100
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

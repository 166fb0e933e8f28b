// Package scoring computes the deterministic urgency score that orders the
// day queue. Every function here is pure and never fails: missing or
// malformed task fields resolve to neutral defaults in Normalize.
package scoring

import (
	"fmt"
	"time"

	"github.com/sandeepkv93/dayplan/internal/model"
)

const (
	DefaultLoad        = 3
	DefaultEstimateMin = 30

	// OverdueScore tops the deadline ramp.
	OverdueScore  = 150
	NoDeadline    = 10
	LoadWeight    = 2
	PostponeBonus = 5
)

// Input is a task reduced to the scalar fields the score depends on, with
// every default applied.
type Input struct {
	HoursUntilDue *float64
	Priority      int
	Load          int
	PostponeCount int
	EstimateMin   int
	IsMust        bool
}

// Breakdown holds each additive component of a score.
type Breakdown struct {
	Deadline      int `json:"deadline"`
	Priority      int `json:"priority"`
	LoadPenalty   int `json:"load_penalty"`
	PostponeBonus int `json:"postpone_bonus"`
}

type Result struct {
	Total     int       `json:"total"`
	Breakdown Breakdown `json:"breakdown"`
}

// Normalize resolves the defaults every engine component relies on.
func Normalize(t model.Task, now time.Time) Input {
	in := Input{
		Priority:      t.Priority,
		Load:          ClampLoad(int(t.CognitiveLoad)),
		PostponeCount: t.PostponeCount,
		EstimateMin:   Estimate(t),
		IsMust:        t.IsMust,
	}
	if in.PostponeCount < 0 {
		in.PostponeCount = 0
	}
	if deadline, ok := t.Deadline(); ok {
		hours := deadline.Sub(now).Hours()
		in.HoursUntilDue = &hours
	}
	return in
}

// ClampLoad maps an absent load to the mid-scale default and clamps the rest.
func ClampLoad(load int) int {
	switch {
	case load == 0:
		return DefaultLoad
	case load < model.LoadMin:
		return model.LoadMin
	case load > model.LoadMax:
		return model.LoadMax
	default:
		return load
	}
}

// Load returns the normalized cognitive load of a task.
func Load(t model.Task) int {
	return ClampLoad(int(t.CognitiveLoad))
}

// Estimate returns the task estimate in minutes, defaulting when unset.
func Estimate(t model.Task) int {
	if t.EstimateMin <= 0 {
		return DefaultEstimateMin
	}
	return t.EstimateMin
}

// Score computes the urgency of t at now.
func Score(t model.Task, now time.Time) Result {
	return ScoreInput(Normalize(t, now))
}

func ScoreInput(in Input) Result {
	b := Breakdown{
		Deadline:      DeadlineScore(in.HoursUntilDue),
		Priority:      PriorityScore(in.Priority),
		LoadPenalty:   LoadPenalty(in.Load),
		PostponeBonus: PostponeScore(in.PostponeCount),
	}
	return Result{
		Total:     b.Deadline + b.Priority - b.LoadPenalty + b.PostponeBonus,
		Breakdown: b,
	}
}

// Overdue reports whether the deadline component marks the task as late.
func (r Result) Overdue() bool {
	return r.Breakdown.Deadline == OverdueScore
}

// Outranks orders overdue tasks before all others and then by total.
// A task due within the hour can out-score an overdue one numerically, so
// the overdue tier is compared first.
func Outranks(a, b Result) bool {
	if a.Overdue() != b.Overdue() {
		return a.Overdue()
	}
	return a.Total > b.Total
}

// DeadlineScore maps hours until due to the urgency ramp. nil means no deadline.
func DeadlineScore(hoursUntilDue *float64) int {
	if hoursUntilDue == nil {
		return NoDeadline
	}
	h := *hoursUntilDue
	switch {
	case h < 0:
		return OverdueScore
	case h < 2:
		return 100
	case h < 4:
		return 80
	case h < 8:
		return 60
	case h < 24:
		return 40
	case h < 48:
		return 30
	case h < 168:
		return 15
	default:
		return NoDeadline
	}
}

func PriorityScore(priority int) int {
	switch priority {
	case 4:
		return 50
	case 3:
		return 30
	case 2:
		return 10
	default:
		return 5
	}
}

// LoadPenalty clamps load to [1,5] before weighting; zero takes the default.
func LoadPenalty(load int) int {
	return ClampLoad(load) * LoadWeight
}

func PostponeScore(count int) int {
	if count < 0 {
		return 0
	}
	return count * PostponeBonus
}

// Reasons lists the dominant contributors of a score, strongest first.
func Reasons(t model.Task, r Result) []string {
	out := make([]string, 0, 4)
	if t.IsMust {
		out = append(out, "must-do today")
	}
	switch d := r.Breakdown.Deadline; {
	case d == OverdueScore:
		out = append(out, "overdue")
	case d >= 80:
		out = append(out, "due within hours")
	case d >= 40:
		out = append(out, "due today")
	case d >= 30:
		out = append(out, "due tomorrow")
	}
	if r.Breakdown.Priority >= 30 {
		out = append(out, "high priority")
	}
	if r.Breakdown.PostponeBonus > 0 {
		out = append(out, fmt.Sprintf("postponed %d times", r.Breakdown.PostponeBonus/PostponeBonus))
	}
	switch load := r.Breakdown.LoadPenalty / LoadWeight; {
	case load <= 2:
		out = append(out, "low cognitive load")
	case load >= 4:
		out = append(out, "high cognitive load")
	}
	return out
}

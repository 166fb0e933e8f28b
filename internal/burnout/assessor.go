// Package burnout scores the risk of overwork from the last week of activity.
package burnout

import (
	"context"
	"fmt"
	"time"

	"github.com/sandeepkv93/dayplan/internal/model"
	"github.com/sandeepkv93/dayplan/internal/scoring"
	"github.com/sandeepkv93/dayplan/internal/storage"
)

type Level string

const (
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
)

const (
	Window = 7 * 24 * time.Hour

	highThreshold   = 70
	mediumThreshold = 40
)

type Assessment struct {
	RiskScore int      `json:"risk_score"`
	RiskLevel Level    `json:"risk_level"`
	Warnings  []string `json:"warnings"`
}

// Source is the slice of the task store the assessor reads.
type Source interface {
	ListTasks(ctx context.Context, filter storage.TaskFilter) ([]model.Task, error)
	ListBreaks(ctx context.Context, userID string, since time.Time) ([]model.Break, error)
}

type Assessor struct {
	src Source
	now func() time.Time
	loc *time.Location
}

type Option func(*Assessor)

func WithClock(now func() time.Time) Option {
	return func(a *Assessor) { a.now = now }
}

// WithLocation sets the zone used to bucket activity into days.
func WithLocation(loc *time.Location) Option {
	return func(a *Assessor) {
		if loc != nil {
			a.loc = loc
		}
	}
}

func NewAssessor(src Source, opts ...Option) *Assessor {
	a := &Assessor{src: src, now: time.Now, loc: time.UTC}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Assessor) Assess(ctx context.Context, userID string) (Assessment, error) {
	now := a.now()
	since := now.Add(-Window)

	tasks, err := a.src.ListTasks(ctx, storage.TaskFilter{UserID: userID})
	if err != nil {
		return Assessment{}, fmt.Errorf("burnout: list tasks: %w", err)
	}
	breaks, err := a.src.ListBreaks(ctx, userID, since)
	if err != nil {
		return Assessment{}, fmt.Errorf("burnout: list breaks: %w", err)
	}
	return Score(tasks, breaks, since, a.loc), nil
}

// Score is the pure part of Assess: it rates activity at or after since.
func Score(tasks []model.Task, breaks []model.Break, since time.Time, loc *time.Location) Assessment {
	if loc == nil {
		loc = time.UTC
	}
	minutesByDay := map[string]int{}
	weekend := false
	created, createdDone := 0, 0
	for _, t := range tasks {
		if !t.CreatedAt.Before(since) {
			created++
			if t.Completed {
				createdDone++
			}
		}
		if !t.Completed || t.CompletedAt == nil || t.CompletedAt.Before(since) {
			continue
		}
		local := t.CompletedAt.In(loc)
		minutesByDay[model.FormatDate(local)] += scoring.Estimate(t)
		if wd := local.Weekday(); wd == time.Saturday || wd == time.Sunday {
			weekend = true
		}
	}

	out := Assessment{Warnings: []string{}}
	if days := len(minutesByDay); days > 0 {
		total := 0
		for _, m := range minutesByDay {
			total += m
		}
		avgHours := float64(total) / 60 / float64(days)
		switch {
		case avgHours > 8:
			out.RiskScore += 40
			out.Warnings = append(out.Warnings, fmt.Sprintf("averaging %.1f hours of work per active day", avgHours))
		case avgHours > 6:
			out.RiskScore += 20
			out.Warnings = append(out.Warnings, fmt.Sprintf("averaging %.1f hours of work per active day", avgHours))
		}

		recent := 0
		for _, b := range breaks {
			if !b.StartedAt.Before(since) {
				recent++
			}
		}
		perDay := float64(recent) / float64(days)
		switch {
		case perDay < 1:
			out.RiskScore += 25
			out.Warnings = append(out.Warnings, "fewer than one break per working day")
		case perDay < 2:
			out.RiskScore += 10
			out.Warnings = append(out.Warnings, "fewer than two breaks per working day")
		}
	}
	if created > 0 && createdDone*2 < created {
		out.RiskScore += 20
		out.Warnings = append(out.Warnings, fmt.Sprintf("completed %d of %d tasks added this week", createdDone, created))
	}
	if weekend {
		out.RiskScore += 15
		out.Warnings = append(out.Warnings, "worked over the weekend")
	}
	if out.RiskScore > 100 {
		out.RiskScore = 100
	}
	out.RiskLevel = LevelFor(out.RiskScore)
	return out
}

func LevelFor(score int) Level {
	switch {
	case score >= highThreshold:
		return LevelHigh
	case score >= mediumThreshold:
		return LevelMedium
	default:
		return LevelLow
	}
}

// Package service wires the planning engine to the task store: it gathers a
// snapshot for a day, runs the engine over it, and executes the actions the
// user accepts.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sandeepkv93/dayplan/internal/calendar"
	"github.com/sandeepkv93/dayplan/internal/insight"
	"github.com/sandeepkv93/dayplan/internal/log"
	"github.com/sandeepkv93/dayplan/internal/model"
	"github.com/sandeepkv93/dayplan/internal/planner"
	"github.com/sandeepkv93/dayplan/internal/recommend"
	"github.com/sandeepkv93/dayplan/internal/storage"
	"github.com/sandeepkv93/dayplan/internal/syncqueue"
)

var (
	ErrMustLimit             = errors.New("service: must-do limit reached")
	ErrUnknownRecommendation = errors.New("service: recommendation not found")
	ErrUnknownAction         = errors.New("service: unknown action")
	ErrInvalidInput          = errors.New("service: invalid input")
)

const (
	MaxMustPerDay = 3
	SyncSource    = "dayplan"
)

// Defaults fill in a day plan the user has not configured yet.
type Defaults struct {
	Energy    int
	Focus     int
	WorkStart string
	WorkEnd   string
	Location  *time.Location
}

func DefaultDefaults() Defaults {
	return Defaults{Energy: 3, Focus: 3, WorkStart: "09:00", WorkEnd: "17:00", Location: time.UTC}
}

// Plan is everything one evaluation of a day produces.
type Plan struct {
	Date             string                     `json:"date"`
	DayPlan          model.DayPlan              `json:"day_plan"`
	Queue            []planner.Slot             `json:"queue"`
	Later            []model.Task               `json:"later"`
	AvailableMinutes int                        `json:"available_minutes"`
	UsedMinutes      int                        `json:"used_minutes"`
	Insights         []insight.Insight          `json:"insights"`
	Recommendations  []recommend.Recommendation `json:"recommendations"`
	GeneratedAt      time.Time                  `json:"generated_at"`
}

type Planner struct {
	store      storage.Repository
	calendar   calendar.Provider
	engine     *recommend.Engine
	insights   *insight.Generator
	logger     *log.Logger
	now        func() time.Time
	defaults   Defaults
	maxRetries int
}

type Option func(*Planner)

func WithClock(now func() time.Time) Option {
	return func(p *Planner) { p.now = now }
}

func WithDefaults(d Defaults) Option {
	return func(p *Planner) {
		if d.Location == nil {
			d.Location = time.UTC
		}
		p.defaults = d
	}
}

func WithMaxRetries(n int) Option {
	return func(p *Planner) { p.maxRetries = n }
}

// New builds a Planner. A nil calendar plans without busy time; nil engine
// or insights fall back to the defaults without a burnout assessor.
func New(store storage.Repository, cal calendar.Provider, engine *recommend.Engine, insights *insight.Generator, logger *log.Logger, opts ...Option) *Planner {
	logger = log.OrNop(logger)
	if engine == nil {
		engine = recommend.New(nil, logger)
	}
	if insights == nil {
		insights = insight.New(logger)
	}
	p := &Planner{
		store:      store,
		calendar:   cal,
		engine:     engine,
		insights:   insights,
		logger:     logger.With("component", "service"),
		now:        time.Now,
		defaults:   DefaultDefaults(),
		maxRetries: syncqueue.DefaultMaxRetries,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Today is the current date key in the default location.
func (p *Planner) Today() string {
	return model.FormatDate(p.now().In(p.defaults.Location))
}

// Plan evaluates date for userID. An empty date means today.
func (p *Planner) Plan(ctx context.Context, userID, date string) (Plan, error) {
	if date == "" {
		date = p.Today()
	}
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return Plan{}, fmt.Errorf("%w: date %q", ErrInvalidInput, date)
	}
	dayPlan, err := p.dayPlan(ctx, userID, date)
	if err != nil {
		return Plan{}, err
	}
	loc := dayPlan.Location()
	now := p.now().In(loc)

	tasks, err := p.snapshotTasks(ctx, userID, now)
	if err != nil {
		return Plan{}, err
	}
	intervals := p.busy(ctx, userID, date, loc)

	lastBreak, err := p.lastBreak(ctx, userID)
	if err != nil {
		return Plan{}, err
	}
	applied, err := p.applied(ctx, userID)
	if err != nil {
		return Plan{}, err
	}

	res := planner.Build(tasks, &dayPlan, intervals, now)
	ins := p.insights.Generate(res.Queue, tasks, insight.Context{
		Energy:   dayPlan.Energy,
		Capacity: res.AvailableMinutes,
		UsedTime: res.UsedMinutes,
		Now:      now,
	})
	recs := p.engine.Generate(ctx, recommend.Context{
		UserID:      userID,
		Tasks:       tasks,
		Energy:      dayPlan.Energy,
		Focus:       dayPlan.Focus,
		Applied:     applied,
		LastBreakAt: lastBreak,
		Now:         now,
	})

	return Plan{
		Date:             date,
		DayPlan:          dayPlan,
		Queue:            res.Queue,
		Later:            res.Later,
		AvailableMinutes: res.AvailableMinutes,
		UsedMinutes:      res.UsedMinutes,
		Insights:         ins,
		Recommendations:  recs,
		GeneratedAt:      now,
	}, nil
}

// Apply executes every action of the recommendation id as generated for
// date, then marks it applied so it is not offered again.
func (p *Planner) Apply(ctx context.Context, userID, date, id string) (recommend.Recommendation, error) {
	plan, err := p.Plan(ctx, userID, date)
	if err != nil {
		return recommend.Recommendation{}, err
	}
	var rec *recommend.Recommendation
	for i := range plan.Recommendations {
		if plan.Recommendations[i].ID == id {
			rec = &plan.Recommendations[i]
			break
		}
	}
	if rec == nil {
		return recommend.Recommendation{}, fmt.Errorf("%w: %s", ErrUnknownRecommendation, id)
	}
	for _, a := range rec.Actions {
		if err := p.applyAction(ctx, userID, a); err != nil {
			return recommend.Recommendation{}, fmt.Errorf("apply %s: %w", a.Kind(), err)
		}
	}
	if err := p.store.MarkApplied(ctx, storage.AppliedRecommendation{
		UserID:           userID,
		RecommendationID: rec.ID,
		AppliedAt:        p.now().UTC(),
	}); err != nil {
		return recommend.Recommendation{}, err
	}
	p.logger.InfoContext(ctx, "recommendation applied", "user_id", userID, "recommendation_id", rec.ID, "type", rec.Type)
	return *rec, nil
}

func (p *Planner) applyAction(ctx context.Context, userID string, action recommend.Action) error {
	switch a := action.(type) {
	case recommend.ReorderTasks:
		return p.Reorder(ctx, userID, a.TaskIDs)
	case recommend.AddBreak:
		_, err := p.RecordBreak(ctx, userID, a.Minutes)
		return err
	case recommend.SetMust:
		_, err := p.SetMust(ctx, userID, a.TaskID, a.Must)
		return err
	case recommend.PostponeTasks:
		for _, id := range a.TaskIDs {
			if _, err := p.PostponeTask(ctx, userID, id, a.Days); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("%w: %T", ErrUnknownAction, action)
	}
}

func (p *Planner) dayPlan(ctx context.Context, userID, date string) (model.DayPlan, error) {
	stored, err := p.store.GetDayPlan(ctx, userID, date)
	switch {
	case err == nil:
		return stored, nil
	case errors.Is(err, storage.ErrNotFound):
		return p.defaultPlan(userID, date), nil
	default:
		return model.DayPlan{}, fmt.Errorf("load day plan: %w", err)
	}
}

func (p *Planner) defaultPlan(userID, date string) model.DayPlan {
	return model.DayPlan{
		UserID:    userID,
		Date:      date,
		Timezone:  p.defaults.Location.String(),
		Energy:    p.defaults.Energy,
		Focus:     p.defaults.Focus,
		WorkStart: p.defaults.WorkStart,
		WorkEnd:   p.defaults.WorkEnd,
	}
}

// snapshotTasks returns open tasks plus the ones completed since the start of
// now's day, which feed the sustained-work rule.
func (p *Planner) snapshotTasks(ctx context.Context, userID string, now time.Time) ([]model.Task, error) {
	open, err := p.store.ListTasks(ctx, storage.TaskFilter{UserID: userID, Completed: storage.Bool(false)})
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	y, m, d := now.Date()
	dayStart := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	done, err := p.store.ListTasks(ctx, storage.TaskFilter{UserID: userID, Completed: storage.Bool(true), CompletedSince: &dayStart})
	if err != nil {
		return nil, fmt.Errorf("list completed tasks: %w", err)
	}
	return append(open, done...), nil
}

func (p *Planner) busy(ctx context.Context, userID, date string, loc *time.Location) []model.CalendarInterval {
	if p.calendar == nil {
		return nil
	}
	intervals, err := p.calendar.BusyIntervals(ctx, userID, date, loc)
	if err != nil {
		p.logger.WithError(err).WarnContext(ctx, "busy intervals unavailable", "user_id", userID, "date", date)
		return nil
	}
	return intervals
}

func (p *Planner) lastBreak(ctx context.Context, userID string) (*time.Time, error) {
	b, err := p.store.LastBreak(ctx, userID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("last break: %w", err)
	}
	end := b.StartedAt.Add(time.Duration(b.DurationMin) * time.Minute)
	return &end, nil
}

func (p *Planner) applied(ctx context.Context, userID string) (map[string]bool, error) {
	ids, err := p.store.ListApplied(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list applied recommendations: %w", err)
	}
	out := make(map[string]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}

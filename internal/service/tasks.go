package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sandeepkv93/dayplan/internal/mirror"
	"github.com/sandeepkv93/dayplan/internal/model"
	"github.com/sandeepkv93/dayplan/internal/storage"
	"github.com/sandeepkv93/dayplan/internal/syncqueue"
)

// NewTask is the input of CreateTask. Due accepts a calendar date or an
// RFC 3339 timestamp.
type NewTask struct {
	Title         string `json:"title"`
	Due           string `json:"due,omitempty"`
	Priority      int    `json:"priority,omitempty"`
	CognitiveLoad int    `json:"cognitive_load,omitempty"`
	IsMust        bool   `json:"is_must,omitempty"`
	ContextType   string `json:"context_type,omitempty"`
	EstimateMin   int    `json:"estimate_min,omitempty"`
}

// TaskPatch changes the non-nil fields. An empty Due clears the due date.
type TaskPatch struct {
	Title         *string `json:"title,omitempty"`
	Due           *string `json:"due,omitempty"`
	Priority      *int    `json:"priority,omitempty"`
	CognitiveLoad *int    `json:"cognitive_load,omitempty"`
	IsMust        *bool   `json:"is_must,omitempty"`
	ContextType   *string `json:"context_type,omitempty"`
	EstimateMin   *int    `json:"estimate_min,omitempty"`
}

func (p *Planner) ListTasks(ctx context.Context, userID string) ([]model.Task, error) {
	return p.store.ListTasks(ctx, storage.TaskFilter{UserID: userID})
}

func (p *Planner) GetTask(ctx context.Context, userID, id string) (model.Task, error) {
	t, err := p.store.GetTask(ctx, id)
	if err != nil {
		return model.Task{}, err
	}
	if t.UserID != userID {
		return model.Task{}, storage.ErrNotFound
	}
	return t, nil
}

func (p *Planner) CreateTask(ctx context.Context, userID string, in NewTask) (model.Task, error) {
	now := p.now().UTC()
	t := model.Task{
		ID:            uuid.NewString(),
		UserID:        userID,
		Title:         strings.TrimSpace(in.Title),
		Priority:      in.Priority,
		CognitiveLoad: model.Load(in.CognitiveLoad),
		IsMust:        in.IsMust,
		ContextType:   strings.TrimSpace(in.ContextType),
		EstimateMin:   in.EstimateMin,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if t.Priority == 0 {
		t.Priority = model.PriorityLowest
	}
	if err := p.setDue(&t, in.Due); err != nil {
		return model.Task{}, err
	}
	if err := t.Validate(); err != nil {
		return model.Task{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	open, err := p.openTasks(ctx, userID)
	if err != nil {
		return model.Task{}, err
	}
	if t.IsMust && countMust(open, "") >= MaxMustPerDay {
		return model.Task{}, ErrMustLimit
	}
	for _, o := range open {
		if o.Position >= t.Position {
			t.Position = o.Position + 1
		}
	}

	if err := p.store.CreateTask(ctx, t); err != nil {
		return model.Task{}, fmt.Errorf("create task: %w", err)
	}
	p.enqueue(ctx, syncqueue.OpCreate, t)
	return t, nil
}

func (p *Planner) UpdateTask(ctx context.Context, userID, id string, patch TaskPatch) (model.Task, error) {
	t, err := p.GetTask(ctx, userID, id)
	if err != nil {
		return model.Task{}, err
	}
	becomesMust := patch.IsMust != nil && *patch.IsMust && !t.IsMust
	if patch.Title != nil {
		t.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Due != nil {
		if err := p.setDue(&t, *patch.Due); err != nil {
			return model.Task{}, err
		}
	}
	if patch.Priority != nil {
		t.Priority = *patch.Priority
	}
	if patch.CognitiveLoad != nil {
		t.CognitiveLoad = model.Load(*patch.CognitiveLoad)
	}
	if patch.IsMust != nil {
		t.IsMust = *patch.IsMust
	}
	if patch.ContextType != nil {
		t.ContextType = strings.TrimSpace(*patch.ContextType)
	}
	if patch.EstimateMin != nil {
		t.EstimateMin = *patch.EstimateMin
	}
	if err := t.Validate(); err != nil {
		return model.Task{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if becomesMust && !t.Completed {
		if err := p.checkMustLimit(ctx, userID, t.ID); err != nil {
			return model.Task{}, err
		}
	}
	return p.save(ctx, t, syncqueue.OpUpdate)
}

func (p *Planner) SetMust(ctx context.Context, userID, id string, must bool) (model.Task, error) {
	return p.UpdateTask(ctx, userID, id, TaskPatch{IsMust: &must})
}

func (p *Planner) CompleteTask(ctx context.Context, userID, id string) (model.Task, error) {
	t, err := p.GetTask(ctx, userID, id)
	if err != nil {
		return model.Task{}, err
	}
	if t.Completed {
		return t, nil
	}
	now := p.now().UTC()
	t.Completed = true
	t.CompletedAt = &now
	return p.save(ctx, t, syncqueue.OpComplete)
}

// PostponeTask pushes the due date back by days and counts the deferral. A
// task without a due date becomes due on the date days from today.
func (p *Planner) PostponeTask(ctx context.Context, userID, id string, days int) (model.Task, error) {
	if days <= 0 {
		days = 1
	}
	t, err := p.GetTask(ctx, userID, id)
	if err != nil {
		return model.Task{}, err
	}
	if t.DueDate == nil {
		today := p.now().In(p.defaults.Location)
		due := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, days)
		t.DueDate = &due
		t.DueDateOnly = true
	} else {
		due := t.DueDate.AddDate(0, 0, days)
		t.DueDate = &due
	}
	t.PostponeCount++
	return p.save(ctx, t, syncqueue.OpUpdate)
}

func (p *Planner) DeleteTask(ctx context.Context, userID, id string) error {
	t, err := p.GetTask(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := p.store.DeleteTask(ctx, id); err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if t.ExternalID != "" {
		p.enqueue(ctx, syncqueue.OpDelete, t)
	}
	return nil
}

// Reorder moves ids, in order, to the front of the user's open tasks and
// renumbers positions densely.
func (p *Planner) Reorder(ctx context.Context, userID string, ids []string) error {
	open, err := p.openTasks(ctx, userID)
	if err != nil {
		return err
	}
	sort.SliceStable(open, func(i, j int) bool { return open[i].Position < open[j].Position })

	byID := make(map[string]int, len(open))
	for i, t := range open {
		byID[t.ID] = i
	}
	ordered := make([]model.Task, 0, len(open))
	moved := map[string]bool{}
	for _, id := range ids {
		i, ok := byID[id]
		if !ok || moved[id] {
			continue
		}
		moved[id] = true
		ordered = append(ordered, open[i])
	}
	for _, t := range open {
		if !moved[t.ID] {
			ordered = append(ordered, t)
		}
	}

	for pos, t := range ordered {
		if t.Position == pos {
			continue
		}
		t.Position = pos
		if _, err := p.save(ctx, t, syncqueue.OpUpdate); err != nil {
			return err
		}
	}
	return nil
}

func (p *Planner) RecordBreak(ctx context.Context, userID string, minutes int) (model.Break, error) {
	b := model.Break{ID: uuid.NewString(), UserID: userID, StartedAt: p.now().UTC(), DurationMin: minutes}
	if err := b.Validate(); err != nil {
		return model.Break{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err := p.store.RecordBreak(ctx, b); err != nil {
		return model.Break{}, fmt.Errorf("record break: %w", err)
	}
	return b, nil
}

// DayPlanPatch changes the non-nil fields of a day plan. An empty Date means
// today.
type DayPlanPatch struct {
	Date      string  `json:"date,omitempty"`
	Timezone  *string `json:"timezone,omitempty"`
	Energy    *int    `json:"energy,omitempty"`
	Focus     *int    `json:"focus,omitempty"`
	WorkStart *string `json:"work_start_time,omitempty"`
	WorkEnd   *string `json:"work_end_time,omitempty"`
}

func (p *Planner) UpdateDayPlan(ctx context.Context, userID string, patch DayPlanPatch) (model.DayPlan, error) {
	date := patch.Date
	if date == "" {
		date = p.Today()
	}
	plan, err := p.dayPlan(ctx, userID, date)
	if err != nil {
		return model.DayPlan{}, err
	}
	if patch.Timezone != nil {
		plan.Timezone = *patch.Timezone
	}
	if patch.Energy != nil {
		plan.Energy = *patch.Energy
	}
	if patch.Focus != nil {
		plan.Focus = *patch.Focus
	}
	if patch.WorkStart != nil {
		plan.WorkStart = *patch.WorkStart
	}
	if patch.WorkEnd != nil {
		plan.WorkEnd = *patch.WorkEnd
	}
	plan.UpdatedAt = p.now().UTC()
	if err := plan.Validate(); err != nil {
		return model.DayPlan{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err := p.store.UpsertDayPlan(ctx, plan); err != nil {
		return model.DayPlan{}, fmt.Errorf("save day plan: %w", err)
	}
	return plan, nil
}

func (p *Planner) save(ctx context.Context, t model.Task, op syncqueue.Operation) (model.Task, error) {
	t.UpdatedAt = p.now().UTC()
	if err := p.store.UpdateTask(ctx, t); err != nil {
		return model.Task{}, fmt.Errorf("update task: %w", err)
	}
	p.enqueue(ctx, op, t)
	return t, nil
}

// enqueue records a mirror job. Queue failures never fail the local write.
func (p *Planner) enqueue(ctx context.Context, op syncqueue.Operation, t model.Task) {
	var payload any
	if op == syncqueue.OpCreate || op == syncqueue.OpUpdate {
		payload = mirror.Payload(t)
	}
	job, err := syncqueue.NewJob(op, SyncSource, t.ID, t.ExternalID, payload, p.maxRetries, p.now().UTC())
	if err == nil {
		_, err = p.store.EnqueueSyncJob(ctx, job)
	}
	if err != nil {
		p.logger.WithError(err).WarnContext(ctx, "sync enqueue failed", "task_id", t.ID, "operation", op)
	}
}

func (p *Planner) setDue(t *model.Task, raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		t.DueDate = nil
		t.DueDateOnly = false
		return nil
	}
	due, dateOnly, err := model.ParseDue(raw, time.UTC)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	t.DueDate = &due
	t.DueDateOnly = dateOnly
	return nil
}

func (p *Planner) openTasks(ctx context.Context, userID string) ([]model.Task, error) {
	open, err := p.store.ListTasks(ctx, storage.TaskFilter{UserID: userID, Completed: storage.Bool(false)})
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return open, nil
}

func (p *Planner) checkMustLimit(ctx context.Context, userID, exceptID string) error {
	open, err := p.openTasks(ctx, userID)
	if err != nil {
		return err
	}
	if countMust(open, exceptID) >= MaxMustPerDay {
		return ErrMustLimit
	}
	return nil
}

func countMust(tasks []model.Task, exceptID string) int {
	n := 0
	for _, t := range tasks {
		if t.IsMust && !t.Completed && t.ID != exceptID {
			n++
		}
	}
	return n
}

// IsNotFound reports whether err means the target does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, storage.ErrNotFound) || errors.Is(err, ErrUnknownRecommendation)
}

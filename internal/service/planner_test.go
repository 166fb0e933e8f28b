package service

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandeepkv93/dayplan/internal/model"
	"github.com/sandeepkv93/dayplan/internal/recommend"
	"github.com/sandeepkv93/dayplan/internal/storage"
	"github.com/sandeepkv93/dayplan/internal/syncqueue"
)

type fixture struct {
	svc  *Planner
	repo *storage.SQLRepository
	now  time.Time
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "service.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	_, err = storage.MigrateUp(context.Background(), db)
	require.NoError(t, err)
	repo, err := storage.NewSQLRepository(db, storage.DriverSQLite)
	require.NoError(t, err)

	f := &fixture{repo: repo, now: time.Date(2026, 2, 9, 10, 0, 0, 0, time.UTC)}
	f.svc = New(repo, nil, nil, nil, nil, WithClock(func() time.Time { return f.now }))
	return f
}

func (f *fixture) create(t *testing.T, in NewTask) model.Task {
	t.Helper()
	task, err := f.svc.CreateTask(context.Background(), "u1", in)
	require.NoError(t, err)
	return task
}

func TestCreateTaskDefaultsAndQueuesSync(t *testing.T) {
	f := setup(t)
	a := f.create(t, NewTask{Title: " write report ", Due: "2026-02-10", EstimateMin: 45})
	f.now = f.now.Add(time.Second)
	b := f.create(t, NewTask{Title: "call bank", Priority: 3})

	assert.Equal(t, "write report", a.Title)
	assert.Equal(t, model.PriorityLowest, a.Priority)
	assert.True(t, a.DueDateOnly)
	assert.Equal(t, 0, a.Position)
	assert.Equal(t, 1, b.Position)

	jobs, err := f.repo.ListPendingSyncJobs(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, syncqueue.OpCreate, jobs[0].Operation)
	assert.Equal(t, a.ID, jobs[0].TaskID)
	assert.JSONEq(t, `{"content":"write report","priority":1,"due_date":"2026-02-10","duration":45}`, string(jobs[0].Payload))

	_, err = f.svc.CreateTask(context.Background(), "u1", NewTask{Title: " "})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.svc.CreateTask(context.Background(), "u1", NewTask{Title: "x", Due: "someday"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestMustLimit(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	var musts []model.Task
	for i := 0; i < MaxMustPerDay; i++ {
		musts = append(musts, f.create(t, NewTask{Title: "must", IsMust: true}))
	}
	_, err := f.svc.CreateTask(ctx, "u1", NewTask{Title: "one more", IsMust: true})
	assert.ErrorIs(t, err, ErrMustLimit)

	plain := f.create(t, NewTask{Title: "plain"})
	_, err = f.svc.SetMust(ctx, "u1", plain.ID, true)
	assert.ErrorIs(t, err, ErrMustLimit)

	// re-asserting an existing must does not count against the limit
	_, err = f.svc.SetMust(ctx, "u1", musts[0].ID, true)
	assert.NoError(t, err)

	_, err = f.svc.CompleteTask(ctx, "u1", musts[0].ID)
	require.NoError(t, err)
	updated, err := f.svc.SetMust(ctx, "u1", plain.ID, true)
	require.NoError(t, err)
	assert.True(t, updated.IsMust)

	// other users have their own limit
	_, err = f.svc.CreateTask(ctx, "u2", NewTask{Title: "theirs", IsMust: true})
	assert.NoError(t, err)
}

func TestPostponeTask(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	task := f.create(t, NewTask{Title: "gym"})

	got, err := f.svc.PostponeTask(ctx, "u1", task.ID, 1)
	require.NoError(t, err)
	require.NotNil(t, got.DueDate)
	assert.True(t, got.DueDateOnly)
	assert.Equal(t, "2026-02-10", model.FormatDate(*got.DueDate))
	assert.Equal(t, 1, got.PostponeCount)

	got, err = f.svc.PostponeTask(ctx, "u1", task.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, "2026-02-11", model.FormatDate(*got.DueDate))
	assert.Equal(t, 2, got.PostponeCount)

	stored, err := f.repo.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.PostponeCount)
}

func TestTasksAreScopedToUser(t *testing.T) {
	f := setup(t)
	task := f.create(t, NewTask{Title: "mine"})

	_, err := f.svc.GetTask(context.Background(), "u2", task.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = f.svc.CompleteTask(context.Background(), "u2", task.ID)
	assert.True(t, IsNotFound(err))
	assert.Error(t, f.svc.DeleteTask(context.Background(), "u2", task.ID))
}

func TestPlanUsesDefaultDayPlan(t *testing.T) {
	f := setup(t)
	for _, title := range []string{"a", "b", "c"} {
		f.create(t, NewTask{Title: title, EstimateMin: 30})
	}
	done := f.create(t, NewTask{Title: "done"})
	_, err := f.svc.CompleteTask(context.Background(), "u1", done.ID)
	require.NoError(t, err)

	plan, err := f.svc.Plan(context.Background(), "u1", "")
	require.NoError(t, err)
	assert.Equal(t, "2026-02-09", plan.Date)
	assert.Equal(t, 3, plan.DayPlan.Energy)
	assert.Equal(t, 420, plan.AvailableMinutes)
	assert.Equal(t, 90, plan.UsedMinutes)
	require.Len(t, plan.Queue, 3)
	assert.Equal(t, f.now, plan.Queue[0].EstimatedStart)
	assert.Empty(t, plan.Later)
	assert.NotNil(t, plan.Insights)
	assert.NotNil(t, plan.Recommendations)
}

func TestApplyRecommendation(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	a := f.create(t, NewTask{Title: "a", CognitiveLoad: 2})
	b := f.create(t, NewTask{Title: "b", CognitiveLoad: 5})
	c := f.create(t, NewTask{Title: "c", CognitiveLoad: 4})

	peak := 5
	_, err := f.svc.UpdateDayPlan(ctx, "u1", DayPlanPatch{Energy: &peak, Focus: &peak})
	require.NoError(t, err)

	plan, err := f.svc.Plan(ctx, "u1", "")
	require.NoError(t, err)
	require.Len(t, plan.Recommendations, 1)
	rec := plan.Recommendations[0]
	assert.Equal(t, recommend.TypeHighEnergyWindow, rec.Type)

	applied, err := f.svc.Apply(ctx, "u1", "", rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, applied.ID)

	tasks, err := f.svc.ListTasks(ctx, "u1")
	require.NoError(t, err)
	var order []string
	for _, task := range tasks {
		order = append(order, task.ID)
	}
	assert.Equal(t, []string{b.ID, c.ID, a.ID}, order)

	plan, err = f.svc.Plan(ctx, "u1", "")
	require.NoError(t, err)
	assert.Empty(t, plan.Recommendations)

	_, err = f.svc.Apply(ctx, "u1", "", rec.ID)
	assert.ErrorIs(t, err, ErrUnknownRecommendation)
}

func TestApplyActions(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	x := f.create(t, NewTask{Title: "x", IsMust: true})
	y := f.create(t, NewTask{Title: "y", Due: "2026-02-09"})

	require.NoError(t, f.svc.applyAction(ctx, "u1", recommend.SetMust{TaskID: x.ID, Must: false}))
	require.NoError(t, f.svc.applyAction(ctx, "u1", recommend.PostponeTasks{TaskIDs: []string{y.ID}, Days: 1}))
	require.NoError(t, f.svc.applyAction(ctx, "u1", recommend.AddBreak{Minutes: 15}))

	gotX, err := f.repo.GetTask(ctx, x.ID)
	require.NoError(t, err)
	assert.False(t, gotX.IsMust)
	gotY, err := f.repo.GetTask(ctx, y.ID)
	require.NoError(t, err)
	assert.Equal(t, "2026-02-10", model.FormatDate(*gotY.DueDate))
	assert.Equal(t, 1, gotY.PostponeCount)
	last, err := f.repo.LastBreak(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 15, last.DurationMin)
}

func TestUpdateDayPlanValidates(t *testing.T) {
	f := setup(t)
	bad := 9
	_, err := f.svc.UpdateDayPlan(context.Background(), "u1", DayPlanPatch{Energy: &bad})
	assert.ErrorIs(t, err, ErrInvalidInput)

	start, end := "10:00", "12:00"
	plan, err := f.svc.UpdateDayPlan(context.Background(), "u1", DayPlanPatch{Date: "2026-02-10", WorkStart: &start, WorkEnd: &end})
	require.NoError(t, err)
	assert.Equal(t, "2026-02-10", plan.Date)

	stored, err := f.repo.GetDayPlan(context.Background(), "u1", "2026-02-10")
	require.NoError(t, err)
	assert.Equal(t, "12:00", stored.WorkEnd)
	assert.Equal(t, 3, stored.Energy)
}

func TestRecordBreakRejectsNonPositive(t *testing.T) {
	f := setup(t)
	_, err := f.svc.RecordBreak(context.Background(), "u1", 0)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestTitleEditsQueueNewestStateLast(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	task := f.create(t, NewTask{Title: "A"})
	for _, title := range []string{"B", "A2", "B"} {
		f.now = f.now.Add(time.Second)
		_, err := f.svc.UpdateTask(ctx, "u1", task.ID, TaskPatch{Title: &title})
		require.NoError(t, err)
	}

	jobs, err := f.repo.ListPendingSyncJobs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, syncqueue.OpCreate, jobs[0].Operation)
	assert.Equal(t, syncqueue.OpUpdate, jobs[1].Operation)
	assert.Contains(t, string(jobs[1].Payload), `"content":"B"`)

	got, err := f.svc.GetTask(ctx, "u1", task.ID)
	require.NoError(t, err)
	assert.Equal(t, "B", got.Title)
}

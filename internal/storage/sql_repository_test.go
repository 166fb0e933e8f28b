package storage

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/sandeepkv93/dayplan/internal/model"
	"github.com/sandeepkv93/dayplan/internal/syncqueue"
)

func setupRepo(t *testing.T) *SQLRepository {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "dayplan-test.db")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if _, err := MigrateUp(context.Background(), db); err != nil {
		t.Fatalf("migrate up: %v", err)
	}

	repo, err := NewSQLRepository(db, DriverSQLite)
	if err != nil {
		t.Fatalf("new repo: %v", err)
	}
	return repo
}

func parseRFC3339(t *testing.T, value string) time.Time {
	t.Helper()
	out, err := time.Parse(time.RFC3339, value)
	if err != nil {
		t.Fatalf("parse time: %v", err)
	}
	return out
}

func TestTaskCRUDAndList(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	created := parseRFC3339(t, "2026-02-09T12:00:00Z")
	due := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)

	task := model.Task{
		ID:            "task-1",
		UserID:        "u1",
		Title:         "Write schema",
		DueDate:       &due,
		DueDateOnly:   true,
		Priority:      3,
		CognitiveLoad: 4,
		ContextType:   "deep_work",
		EstimateMin:   45,
		Position:      2,
		CreatedAt:     created,
		UpdatedAt:     created,
	}
	if err := repo.CreateTask(ctx, task); err != nil {
		t.Fatalf("create task: %v", err)
	}

	got, err := repo.GetTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if got.Title != task.Title || got.CognitiveLoad != 4 || got.ContextType != "deep_work" || got.Position != 2 {
		t.Fatalf("unexpected task get result: %#v", got)
	}
	if got.DueDate == nil || !got.DueDateOnly || !got.DueDate.Equal(due) {
		t.Fatalf("expected date-only due date to round trip, got %v only=%v", got.DueDate, got.DueDateOnly)
	}

	doneAt := created.Add(time.Hour)
	task.Title = "Write schema v2"
	task.Completed = true
	task.CompletedAt = &doneAt
	task.IsMust = true
	task.UpdatedAt = doneAt
	if err := repo.UpdateTask(ctx, task); err != nil {
		t.Fatalf("update task: %v", err)
	}

	completed, err := repo.ListTasks(ctx, TaskFilter{UserID: "u1", Completed: Bool(true)})
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	if len(completed) != 1 || !completed[0].IsMust || completed[0].CompletedAt == nil || !completed[0].CompletedAt.Equal(doneAt) {
		t.Fatalf("unexpected completed list: %#v", completed)
	}

	if err := repo.DeleteTask(ctx, task.ID); err != nil {
		t.Fatalf("delete task: %v", err)
	}
	_, err = repo.GetTask(ctx, task.ID)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got: %v", err)
	}
	if err := repo.UpdateTask(ctx, task); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on update, got: %v", err)
	}
}

func TestListTasksOrderAndFilters(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	base := parseRFC3339(t, "2026-02-09T08:00:00Z")

	mk := func(id, user string, position int, completedAt *time.Time) {
		t.Helper()
		task := model.Task{ID: id, UserID: user, Title: id, Priority: 2, Position: position, CreatedAt: base, UpdatedAt: base}
		if completedAt != nil {
			task.Completed = true
			task.CompletedAt = completedAt
		}
		if err := repo.CreateTask(ctx, task); err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
	}
	early := base.Add(-48 * time.Hour)
	recent := base.Add(-2 * time.Hour)
	mk("c", "u1", 3, nil)
	mk("a", "u1", 1, nil)
	mk("b", "u1", 2, &recent)
	mk("old", "u1", 4, &early)
	mk("other", "u2", 0, nil)

	all, err := repo.ListTasks(ctx, TaskFilter{UserID: "u1"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var ids []string
	for _, task := range all {
		ids = append(ids, task.ID)
	}
	if len(ids) != 4 || ids[0] != "a" || ids[1] != "b" || ids[2] != "c" || ids[3] != "old" {
		t.Fatalf("unexpected order: %v", ids)
	}

	since := base.Add(-24 * time.Hour)
	done, err := repo.ListTasks(ctx, TaskFilter{UserID: "u1", CompletedSince: &since})
	if err != nil {
		t.Fatalf("list since: %v", err)
	}
	if len(done) != 1 || done[0].ID != "b" {
		t.Fatalf("unexpected completed-since list: %#v", done)
	}

	open, err := repo.ListTasks(ctx, TaskFilter{UserID: "u1", Completed: Bool(false), Limit: 1, Offset: 1})
	if err != nil {
		t.Fatalf("list page: %v", err)
	}
	if len(open) != 1 || open[0].ID != "c" {
		t.Fatalf("unexpected page: %#v", open)
	}
}

func TestTaskExternalIDLink(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	now := parseRFC3339(t, "2026-02-09T12:00:00Z")
	if err := repo.CreateTask(ctx, model.Task{ID: "t1", UserID: "u1", Title: "x", Priority: 1, CreatedAt: now, UpdatedAt: now}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repo.SetTaskExternalID(ctx, "t1", "remote-7"); err != nil {
		t.Fatalf("set external id: %v", err)
	}
	got, err := repo.TaskExternalID(ctx, "t1")
	if err != nil || got != "remote-7" {
		t.Fatalf("external id = %q, %v", got, err)
	}
	if _, err := repo.TaskExternalID(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDayPlanUpsert(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	now := parseRFC3339(t, "2026-02-09T07:00:00Z")

	if _, err := repo.GetDayPlan(ctx, "u1", "2026-02-09"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	plan := model.DayPlan{UserID: "u1", Date: "2026-02-09", Timezone: "Europe/Berlin", Energy: 3, Focus: 4, WorkStart: "09:00", WorkEnd: "17:00", UpdatedAt: now}
	if err := repo.UpsertDayPlan(ctx, plan); err != nil {
		t.Fatalf("insert plan: %v", err)
	}
	plan.Energy = 5
	plan.Metadata = map[string]string{"mood": "good"}
	if err := repo.UpsertDayPlan(ctx, plan); err != nil {
		t.Fatalf("update plan: %v", err)
	}

	got, err := repo.GetDayPlan(ctx, "u1", "2026-02-09")
	if err != nil {
		t.Fatalf("get plan: %v", err)
	}
	if got.Energy != 5 || got.Focus != 4 || got.Timezone != "Europe/Berlin" || got.Metadata["mood"] != "good" {
		t.Fatalf("unexpected plan: %#v", got)
	}
}

func TestBusyBlocks(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	start := parseRFC3339(t, "2026-02-09T10:00:00Z")

	weekly := model.BusyBlock{
		ID: "b2", UserID: "u1", Title: "Standup", Start: start, End: start.Add(15 * time.Minute),
		Recurrence: &model.RecurrenceRule{Type: model.RecurrenceEveryWeekday, Interval: 1}, CreatedAt: start,
	}
	once := model.BusyBlock{ID: "b1", UserID: "u1", Title: "Dentist", Start: start.Add(-time.Hour), End: start, CreatedAt: start}
	for _, b := range []model.BusyBlock{weekly, once} {
		if err := repo.CreateBusyBlock(ctx, b); err != nil {
			t.Fatalf("create block %s: %v", b.ID, err)
		}
	}

	blocks, err := repo.ListBusyBlocks(ctx, "u1")
	if err != nil {
		t.Fatalf("list blocks: %v", err)
	}
	if len(blocks) != 2 || blocks[0].ID != "b1" || blocks[1].Recurrence == nil || blocks[1].Recurrence.Type != model.RecurrenceEveryWeekday {
		t.Fatalf("unexpected blocks: %#v", blocks)
	}

	if err := repo.DeleteBusyBlock(ctx, "b1"); err != nil {
		t.Fatalf("delete block: %v", err)
	}
	if err := repo.DeleteBusyBlock(ctx, "b1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestBreaks(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	base := parseRFC3339(t, "2026-02-09T10:00:00Z")

	if _, err := repo.LastBreak(ctx, "u1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	for i, offset := range []time.Duration{-72 * time.Hour, 0, 2 * time.Hour} {
		b := model.Break{ID: string(rune('a' + i)), UserID: "u1", StartedAt: base.Add(offset), DurationMin: 10}
		if err := repo.RecordBreak(ctx, b); err != nil {
			t.Fatalf("record break: %v", err)
		}
	}

	last, err := repo.LastBreak(ctx, "u1")
	if err != nil || last.ID != "c" {
		t.Fatalf("last break = %#v, %v", last, err)
	}
	recent, err := repo.ListBreaks(ctx, "u1", base.Add(-time.Hour))
	if err != nil || len(recent) != 2 {
		t.Fatalf("recent breaks = %#v, %v", recent, err)
	}
}

func TestAppliedRecommendationsAreIdempotent(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	now := parseRFC3339(t, "2026-02-09T10:00:00Z")

	for i := 0; i < 2; i++ {
		if err := repo.MarkApplied(ctx, AppliedRecommendation{UserID: "u1", RecommendationID: "rec-1", AppliedAt: now}); err != nil {
			t.Fatalf("mark applied: %v", err)
		}
	}
	ids, err := repo.ListApplied(ctx, "u1")
	if err != nil || len(ids) != 1 || ids[0] != "rec-1" {
		t.Fatalf("applied = %v, %v", ids, err)
	}
}

func TestSyncJobQueue(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	now := parseRFC3339(t, "2026-02-09T10:00:00Z")

	first, err := syncqueue.NewJob(syncqueue.OpUpdate, "dayplan", "t1", "r1", map[string]int{"priority": 4}, 3, now)
	if err != nil {
		t.Fatalf("new job: %v", err)
	}
	again, _ := syncqueue.NewJob(syncqueue.OpUpdate, "dayplan", "t1", "r1", map[string]int{"priority": 4}, 3, now.Add(time.Second))
	second, _ := syncqueue.NewJob(syncqueue.OpComplete, "dayplan", "t1", "r1", nil, 3, now.Add(2*time.Second))
	other, _ := syncqueue.NewJob(syncqueue.OpUpdate, "dayplan", "t2", "r2", map[string]int{"priority": 4}, 3, now.Add(3*time.Second))

	if inserted, err := repo.EnqueueSyncJob(ctx, first); err != nil || !inserted {
		t.Fatalf("enqueue first: inserted=%v err=%v", inserted, err)
	}
	inserted, err := repo.EnqueueSyncJob(ctx, again)
	if err != nil {
		t.Fatalf("enqueue repeat: %v", err)
	}
	if inserted {
		t.Fatal("expected a repeat of the newest open job to be ignored")
	}
	for _, job := range []syncqueue.Job{second, other} {
		inserted, err := repo.EnqueueSyncJob(ctx, job)
		if err != nil || !inserted {
			t.Fatalf("enqueue %s %s: inserted=%v err=%v", job.Operation, job.TaskID, inserted, err)
		}
	}

	pending, err := repo.ListPendingSyncJobs(ctx, 10)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 3 || pending[0].ID != first.ID || pending[1].ID != second.ID || pending[2].ID != other.ID {
		t.Fatalf("expected FIFO pending jobs, got %#v", pending)
	}
	if string(pending[0].Payload) != `{"priority":4}` || pending[1].Payload != nil {
		t.Fatalf("unexpected payloads: %q %q", pending[0].Payload, pending[1].Payload)
	}

	claimed, err := syncqueue.Transition(pending[0], syncqueue.Claim{}, now)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	done, _ := syncqueue.Transition(claimed, syncqueue.Succeed{}, now.Add(time.Minute))
	if err := repo.UpdateSyncJob(ctx, done); err != nil {
		t.Fatalf("update job: %v", err)
	}
	got, err := repo.GetSyncJob(ctx, first.ID)
	if err != nil || got.Status != syncqueue.StatusCompleted {
		t.Fatalf("job after update = %#v, %v", got, err)
	}

	limited, _ := repo.ListPendingSyncJobs(ctx, 1)
	if len(limited) != 1 || limited[0].ID != second.ID {
		t.Fatalf("unexpected limited list: %#v", limited)
	}
}

func TestEnqueueSupersedesQueuedUpdates(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	now := parseRFC3339(t, "2026-02-09T10:00:00Z")

	job := func(op syncqueue.Operation, title string, offset int) syncqueue.Job {
		t.Helper()
		var payload any
		if title != "" {
			payload = map[string]string{"content": title}
		}
		j, err := syncqueue.NewJob(op, "dayplan", "t1", "", payload, 3, now.Add(time.Duration(offset)*time.Second))
		if err != nil {
			t.Fatalf("new job: %v", err)
		}
		return j
	}
	create := job(syncqueue.OpCreate, "A", 0)
	toB := job(syncqueue.OpUpdate, "B", 1)
	toA := job(syncqueue.OpUpdate, "A", 2)
	backToB := job(syncqueue.OpUpdate, "B", 3)
	for _, j := range []syncqueue.Job{create, toB, toA, backToB} {
		inserted, err := repo.EnqueueSyncJob(ctx, j)
		if err != nil || !inserted {
			t.Fatalf("enqueue %s: inserted=%v err=%v", j.Payload, inserted, err)
		}
	}

	pending, err := repo.ListPendingSyncJobs(ctx, 10)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 2 || pending[0].ID != create.ID || pending[1].ID != backToB.ID {
		t.Fatalf("expected create then the newest update, got %#v", pending)
	}
	if string(pending[1].Payload) != `{"content":"B"}` {
		t.Fatalf("newest payload should land last, got %s", pending[1].Payload)
	}
	for _, id := range []string{toB.ID, toA.ID} {
		got, err := repo.GetSyncJob(ctx, id)
		if err != nil {
			t.Fatalf("get job: %v", err)
		}
		if got.Status != syncqueue.StatusSuperseded || got.LastError != "superseded by "+backToB.ID {
			t.Fatalf("expected %s superseded, got %s %q", id, got.Status, got.LastError)
		}
	}
	got, _ := repo.GetSyncJob(ctx, create.ID)
	if got.Status != syncqueue.StatusPending {
		t.Fatalf("create must never be superseded, got %s", got.Status)
	}
}

func TestNewSQLRepositoryRejectsUnknownDriver(t *testing.T) {
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "x.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()
	if _, err := NewSQLRepository(db, "mysql"); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
	if _, err := NewSQLRepository(nil, DriverSQLite); err == nil {
		t.Fatal("expected error for nil db")
	}
}

func TestRebind(t *testing.T) {
	pg := &SQLRepository{driver: DriverPostgres}
	got := pg.rebind("SELECT a FROM t WHERE x = ? AND y = ? LIMIT ?")
	if got != "SELECT a FROM t WHERE x = $1 AND y = $2 LIMIT $3" {
		t.Fatalf("unexpected rebind: %q", got)
	}
	lite := &SQLRepository{driver: DriverSQLite}
	if q := lite.rebind("x = ?"); q != "x = ?" {
		t.Fatalf("sqlite query must not change: %q", q)
	}
}

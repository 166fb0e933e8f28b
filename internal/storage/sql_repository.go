package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/sandeepkv93/dayplan/internal/model"
	"github.com/sandeepkv93/dayplan/internal/syncqueue"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// Fixed-width UTC timestamps keep text comparison in time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLRepository implements Repository on database/sql for sqlite3 and
// postgres. Queries are written with ? placeholders and rebound for postgres.
type SQLRepository struct {
	db     *sql.DB
	driver string
}

func NewSQLRepository(db *sql.DB, driver string) (*SQLRepository, error) {
	if db == nil {
		return nil, errors.New("storage: nil db")
	}
	switch driver {
	case DriverSQLite:
		if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			return nil, fmt.Errorf("enable foreign keys: %w", err)
		}
	case DriverPostgres:
	default:
		return nil, fmt.Errorf("storage: unsupported driver %q", driver)
	}
	return &SQLRepository{db: db, driver: driver}, nil
}

// Open connects to dsn and verifies the connection.
func Open(ctx context.Context, driver, dsn string) (*SQLRepository, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	repo, err := NewSQLRepository(db, driver)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

func OpenSQLite(path string) (*SQLRepository, error) {
	return Open(context.Background(), DriverSQLite, path)
}

func (r *SQLRepository) DB() *sql.DB { return r.db }

func (r *SQLRepository) Close() error {
	return r.db.Close()
}

func (r *SQLRepository) rebind(query string) string {
	if r.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

func (r *SQLRepository) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return r.db.ExecContext(ctx, r.rebind(query), args...)
}

func (r *SQLRepository) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return r.db.QueryContext(ctx, r.rebind(query), args...)
}

func (r *SQLRepository) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return r.db.QueryRowContext(ctx, r.rebind(query), args...)
}

const taskColumns = `id, user_id, title, due_at, due_date_only, priority, cognitive_load, postpone_count,
	is_must, context_type, estimate_min, completed, completed_at, sort_position, external_id, created_at, updated_at`

func (r *SQLRepository) CreateTask(ctx context.Context, in model.Task) error {
	_, err := r.exec(ctx, `
		INSERT INTO tasks (`+taskColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		in.ID, in.UserID, in.Title, dueValue(in), boolInt(in.DueDateOnly), in.Priority, int(in.CognitiveLoad), in.PostponeCount,
		boolInt(in.IsMust), in.ContextType, in.EstimateMin, boolInt(in.Completed), nullTime(in.CompletedAt), in.Position, in.ExternalID,
		mustTime(in.CreatedAt), mustTime(in.UpdatedAt),
	)
	return err
}

func (r *SQLRepository) GetTask(ctx context.Context, id string) (model.Task, error) {
	row := r.queryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	task, err := scanTask(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Task{}, ErrNotFound
		}
		return model.Task{}, err
	}
	return task, nil
}

func (r *SQLRepository) UpdateTask(ctx context.Context, in model.Task) error {
	res, err := r.exec(ctx, `
		UPDATE tasks
		SET title = ?, due_at = ?, due_date_only = ?, priority = ?, cognitive_load = ?, postpone_count = ?,
			is_must = ?, context_type = ?, estimate_min = ?, completed = ?, completed_at = ?, sort_position = ?,
			external_id = ?, updated_at = ?
		WHERE id = ?`,
		in.Title, dueValue(in), boolInt(in.DueDateOnly), in.Priority, int(in.CognitiveLoad), in.PostponeCount,
		boolInt(in.IsMust), in.ContextType, in.EstimateMin, boolInt(in.Completed), nullTime(in.CompletedAt), in.Position,
		in.ExternalID, mustTime(in.UpdatedAt), in.ID,
	)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func (r *SQLRepository) DeleteTask(ctx context.Context, id string) error {
	res, err := r.exec(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func (r *SQLRepository) ListTasks(ctx context.Context, filter TaskFilter) ([]model.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks`
	clauses := make([]string, 0, 3)
	args := make([]any, 0, 5)
	if filter.UserID != "" {
		clauses = append(clauses, "user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.Completed != nil {
		clauses = append(clauses, "completed = ?")
		args = append(args, boolInt(*filter.Completed))
	}
	if filter.CompletedSince != nil {
		clauses = append(clauses, "completed_at >= ?")
		args = append(args, mustTime(*filter.CompletedSince))
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += ` ORDER BY sort_position ASC, created_at ASC, id ASC`
	query += applyPagination(&args, filter.Limit, filter.Offset)

	rows, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Task, 0)
	for rows.Next() {
		task, scanErr := scanTask(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, task)
	}
	return out, rows.Err()
}

func (r *SQLRepository) TaskExternalID(ctx context.Context, taskID string) (string, error) {
	var id string
	err := r.queryRow(ctx, `SELECT external_id FROM tasks WHERE id = ?`, taskID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return id, err
}

func (r *SQLRepository) SetTaskExternalID(ctx context.Context, taskID, externalID string) error {
	res, err := r.exec(ctx, `UPDATE tasks SET external_id = ? WHERE id = ?`, externalID, taskID)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func (r *SQLRepository) GetDayPlan(ctx context.Context, userID, date string) (model.DayPlan, error) {
	row := r.queryRow(ctx, `
		SELECT user_id, plan_date, timezone, energy, focus, work_start, work_end, metadata, updated_at
		FROM day_plans WHERE user_id = ? AND plan_date = ?`, userID, date)
	var out model.DayPlan
	var metadata, updated string
	if err := row.Scan(&out.UserID, &out.Date, &out.Timezone, &out.Energy, &out.Focus, &out.WorkStart, &out.WorkEnd, &metadata, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.DayPlan{}, ErrNotFound
		}
		return model.DayPlan{}, err
	}
	if metadata != "" && metadata != "{}" {
		if err := json.Unmarshal([]byte(metadata), &out.Metadata); err != nil {
			return model.DayPlan{}, fmt.Errorf("decode day plan metadata: %w", err)
		}
	}
	updatedAt, err := parseRequiredTime(updated)
	if err != nil {
		return model.DayPlan{}, err
	}
	out.UpdatedAt = updatedAt
	return out, nil
}

func (r *SQLRepository) UpsertDayPlan(ctx context.Context, in model.DayPlan) error {
	metadata := "{}"
	if len(in.Metadata) > 0 {
		b, err := json.Marshal(in.Metadata)
		if err != nil {
			return fmt.Errorf("encode day plan metadata: %w", err)
		}
		metadata = string(b)
	}
	_, err := r.exec(ctx, `
		INSERT INTO day_plans (user_id, plan_date, timezone, energy, focus, work_start, work_end, metadata, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, plan_date) DO UPDATE SET
			timezone = excluded.timezone, energy = excluded.energy, focus = excluded.focus,
			work_start = excluded.work_start, work_end = excluded.work_end,
			metadata = excluded.metadata, updated_at = excluded.updated_at`,
		in.UserID, in.Date, in.Timezone, in.Energy, in.Focus, in.WorkStart, in.WorkEnd, metadata, mustTime(in.UpdatedAt),
	)
	return err
}

func (r *SQLRepository) CreateBusyBlock(ctx context.Context, in model.BusyBlock) error {
	var recurrence any
	if in.Recurrence != nil {
		b, err := json.Marshal(in.Recurrence)
		if err != nil {
			return fmt.Errorf("encode recurrence: %w", err)
		}
		recurrence = string(b)
	}
	_, err := r.exec(ctx, `
		INSERT INTO busy_blocks (id, user_id, title, start_at, end_at, recurrence, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		in.ID, in.UserID, in.Title, mustTime(in.Start), mustTime(in.End), recurrence, mustTime(in.CreatedAt),
	)
	return err
}

func (r *SQLRepository) ListBusyBlocks(ctx context.Context, userID string) ([]model.BusyBlock, error) {
	rows, err := r.query(ctx, `
		SELECT id, user_id, title, start_at, end_at, recurrence, created_at
		FROM busy_blocks WHERE user_id = ? ORDER BY start_at ASC, id ASC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.BusyBlock, 0)
	for rows.Next() {
		item, scanErr := scanBusyBlock(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func (r *SQLRepository) DeleteBusyBlock(ctx context.Context, id string) error {
	res, err := r.exec(ctx, `DELETE FROM busy_blocks WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func (r *SQLRepository) RecordBreak(ctx context.Context, in model.Break) error {
	_, err := r.exec(ctx, `
		INSERT INTO breaks (id, user_id, started_at, duration_min)
		VALUES (?, ?, ?, ?)`,
		in.ID, in.UserID, mustTime(in.StartedAt), in.DurationMin,
	)
	return err
}

func (r *SQLRepository) LastBreak(ctx context.Context, userID string) (model.Break, error) {
	row := r.queryRow(ctx, `
		SELECT id, user_id, started_at, duration_min
		FROM breaks WHERE user_id = ? ORDER BY started_at DESC LIMIT 1`, userID)
	item, err := scanBreak(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Break{}, ErrNotFound
		}
		return model.Break{}, err
	}
	return item, nil
}

func (r *SQLRepository) ListBreaks(ctx context.Context, userID string, since time.Time) ([]model.Break, error) {
	rows, err := r.query(ctx, `
		SELECT id, user_id, started_at, duration_min
		FROM breaks WHERE user_id = ? AND started_at >= ? ORDER BY started_at ASC`, userID, mustTime(since))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Break, 0)
	for rows.Next() {
		item, scanErr := scanBreak(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func (r *SQLRepository) MarkApplied(ctx context.Context, in AppliedRecommendation) error {
	_, err := r.exec(ctx, `
		INSERT INTO applied_recommendations (user_id, recommendation_id, applied_at)
		VALUES (?, ?, ?)
		ON CONFLICT DO NOTHING`,
		in.UserID, in.RecommendationID, mustTime(in.AppliedAt),
	)
	return err
}

func (r *SQLRepository) ListApplied(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.query(ctx, `
		SELECT recommendation_id FROM applied_recommendations
		WHERE user_id = ? ORDER BY applied_at ASC, recommendation_id ASC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

const syncJobColumns = `id, operation, source, task_id, external_id, payload, status, retry_count, max_retries,
	last_error, dedupe_key, created_at, updated_at`

// EnqueueSyncJob queues job for its task. The job is skipped when the newest
// open job for the task has the same dedupe key. An update retires the run of
// pending updates queued directly before it, so the latest task state is the
// one delivered last. It reports whether a row was written.
func (r *SQLRepository) EnqueueSyncJob(ctx context.Context, job syncqueue.Job) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin enqueue: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	open, err := r.openSyncJobs(ctx, tx, job.TaskID)
	if err != nil {
		return false, err
	}
	if len(open) > 0 && open[0].DedupeKey == job.DedupeKey {
		return false, nil
	}
	if job.Operation == syncqueue.OpUpdate {
		for _, prev := range open {
			if prev.Operation != syncqueue.OpUpdate || prev.Status != syncqueue.StatusPending {
				break
			}
			retired, err := syncqueue.Transition(prev, syncqueue.Supersede{By: job.ID}, job.CreatedAt)
			if err != nil {
				return false, err
			}
			if _, err := tx.ExecContext(ctx, r.rebind(`
				UPDATE sync_jobs SET status = ?, last_error = ?, updated_at = ?
				WHERE id = ? AND status = ?`),
				string(retired.Status), retired.LastError, mustTime(retired.UpdatedAt), retired.ID, string(syncqueue.StatusPending),
			); err != nil {
				return false, fmt.Errorf("supersede sync job %s: %w", prev.ID, err)
			}
		}
	}

	if _, err := tx.ExecContext(ctx, r.rebind(`
		INSERT INTO sync_jobs (`+syncJobColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		job.ID, string(job.Operation), job.Source, job.TaskID, job.ExternalID, nullPayload(job.Payload), string(job.Status),
		job.RetryCount, job.MaxRetries, job.LastError, job.DedupeKey, mustTime(job.CreatedAt), mustTime(job.UpdatedAt),
	); err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit enqueue: %w", err)
	}
	return true, nil
}

// openSyncJobs lists the task's pending and processing jobs, newest first.
func (r *SQLRepository) openSyncJobs(ctx context.Context, tx *sql.Tx, taskID string) ([]syncqueue.Job, error) {
	rows, err := tx.QueryContext(ctx, r.rebind(`SELECT `+syncJobColumns+` FROM sync_jobs
		WHERE task_id = ? AND status IN (?, ?)
		ORDER BY created_at DESC, id DESC`),
		taskID, string(syncqueue.StatusPending), string(syncqueue.StatusProcessing))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]syncqueue.Job, 0)
	for rows.Next() {
		job, scanErr := scanSyncJob(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, job)
	}
	return out, rows.Err()
}

func (r *SQLRepository) GetSyncJob(ctx context.Context, id string) (syncqueue.Job, error) {
	row := r.queryRow(ctx, `SELECT `+syncJobColumns+` FROM sync_jobs WHERE id = ?`, id)
	job, err := scanSyncJob(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return syncqueue.Job{}, ErrNotFound
		}
		return syncqueue.Job{}, err
	}
	return job, nil
}

func (r *SQLRepository) UpdateSyncJob(ctx context.Context, job syncqueue.Job) error {
	res, err := r.exec(ctx, `
		UPDATE sync_jobs
		SET status = ?, retry_count = ?, last_error = ?, external_id = ?, updated_at = ?
		WHERE id = ?`,
		string(job.Status), job.RetryCount, job.LastError, job.ExternalID, mustTime(job.UpdatedAt), job.ID,
	)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func (r *SQLRepository) ListPendingSyncJobs(ctx context.Context, limit int) ([]syncqueue.Job, error) {
	args := make([]any, 0, 2)
	args = append(args, string(syncqueue.StatusPending))
	query := `SELECT ` + syncJobColumns + ` FROM sync_jobs WHERE status = ? ORDER BY created_at ASC, id ASC` +
		applyPagination(&args, limit, 0)

	rows, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]syncqueue.Job, 0)
	for rows.Next() {
		job, scanErr := scanSyncJob(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, job)
	}
	return out, rows.Err()
}

func dueValue(t model.Task) any {
	if t.DueDate == nil {
		return nil
	}
	if t.DueDateOnly {
		return model.FormatDate(*t.DueDate)
	}
	return mustTime(*t.DueDate)
}

func nullTime(v *time.Time) any {
	if v == nil {
		return nil
	}
	return v.UTC().Format(timeLayout)
}

func mustTime(v time.Time) string {
	return v.UTC().Format(timeLayout)
}

func nullPayload(p json.RawMessage) any {
	if len(p) == 0 {
		return nil
	}
	return string(p)
}

func parseNullableTime(v sql.NullString) (*time.Time, error) {
	if !v.Valid || v.String == "" {
		return nil, nil
	}
	tm, err := time.Parse(time.RFC3339Nano, v.String)
	if err != nil {
		return nil, err
	}
	return &tm, nil
}

func parseRequiredTime(v string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, v)
}

func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func applyPagination(args *[]any, limit, offset int) string {
	sql := ""
	if limit > 0 {
		sql += " LIMIT ?"
		*args = append(*args, limit)
	}
	if offset > 0 {
		sql += " OFFSET ?"
		*args = append(*args, offset)
	}
	return sql
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(s scanner) (model.Task, error) {
	var out model.Task
	var due, completed sql.NullString
	var dueOnly, must, done, load int
	var created, updated string
	if err := s.Scan(&out.ID, &out.UserID, &out.Title, &due, &dueOnly, &out.Priority, &load, &out.PostponeCount,
		&must, &out.ContextType, &out.EstimateMin, &done, &completed, &out.Position, &out.ExternalID, &created, &updated); err != nil {
		return model.Task{}, err
	}
	if due.Valid && due.String != "" {
		dueAt, dateOnly, err := model.ParseDue(due.String, time.UTC)
		if err != nil {
			return model.Task{}, err
		}
		out.DueDate = &dueAt
		out.DueDateOnly = dateOnly
	}
	completedAt, err := parseNullableTime(completed)
	if err != nil {
		return model.Task{}, err
	}
	createdAt, err := parseRequiredTime(created)
	if err != nil {
		return model.Task{}, err
	}
	updatedAt, err := parseRequiredTime(updated)
	if err != nil {
		return model.Task{}, err
	}
	out.CognitiveLoad = model.Load(load)
	out.IsMust = must == 1
	out.Completed = done == 1
	out.CompletedAt = completedAt
	out.CreatedAt = createdAt
	out.UpdatedAt = updatedAt
	return out, nil
}

func scanBusyBlock(s scanner) (model.BusyBlock, error) {
	var out model.BusyBlock
	var start, end, created string
	var recurrence sql.NullString
	if err := s.Scan(&out.ID, &out.UserID, &out.Title, &start, &end, &recurrence, &created); err != nil {
		return model.BusyBlock{}, err
	}
	var err error
	if out.Start, err = parseRequiredTime(start); err != nil {
		return model.BusyBlock{}, err
	}
	if out.End, err = parseRequiredTime(end); err != nil {
		return model.BusyBlock{}, err
	}
	if out.CreatedAt, err = parseRequiredTime(created); err != nil {
		return model.BusyBlock{}, err
	}
	if recurrence.Valid && recurrence.String != "" {
		var rule model.RecurrenceRule
		if err := json.Unmarshal([]byte(recurrence.String), &rule); err != nil {
			return model.BusyBlock{}, fmt.Errorf("decode recurrence: %w", err)
		}
		out.Recurrence = &rule
	}
	return out, nil
}

func scanBreak(s scanner) (model.Break, error) {
	var out model.Break
	var started string
	if err := s.Scan(&out.ID, &out.UserID, &started, &out.DurationMin); err != nil {
		return model.Break{}, err
	}
	startedAt, err := parseRequiredTime(started)
	if err != nil {
		return model.Break{}, err
	}
	out.StartedAt = startedAt
	return out, nil
}

func scanSyncJob(s scanner) (syncqueue.Job, error) {
	var out syncqueue.Job
	var op, status, created, updated string
	var payload sql.NullString
	if err := s.Scan(&out.ID, &op, &out.Source, &out.TaskID, &out.ExternalID, &payload, &status, &out.RetryCount,
		&out.MaxRetries, &out.LastError, &out.DedupeKey, &created, &updated); err != nil {
		return syncqueue.Job{}, err
	}
	var err error
	if out.CreatedAt, err = parseRequiredTime(created); err != nil {
		return syncqueue.Job{}, err
	}
	if out.UpdatedAt, err = parseRequiredTime(updated); err != nil {
		return syncqueue.Job{}, err
	}
	out.Operation = syncqueue.Operation(op)
	out.Status = syncqueue.Status(status)
	if payload.Valid && payload.String != "" {
		out.Payload = json.RawMessage(payload.String)
	}
	return out, nil
}

func checkRowsAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

var _ Repository = (*SQLRepository)(nil)
var _ syncqueue.Store = (*SQLRepository)(nil)

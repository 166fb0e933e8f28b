package storage

import (
	"context"
	"errors"
	"time"

	"github.com/sandeepkv93/dayplan/internal/model"
	"github.com/sandeepkv93/dayplan/internal/syncqueue"
)

var ErrNotFound = errors.New("storage: not found")

type Repository interface {
	CreateTask(ctx context.Context, in model.Task) error
	GetTask(ctx context.Context, id string) (model.Task, error)
	UpdateTask(ctx context.Context, in model.Task) error
	DeleteTask(ctx context.Context, id string) error
	ListTasks(ctx context.Context, filter TaskFilter) ([]model.Task, error)
	TaskExternalID(ctx context.Context, taskID string) (string, error)
	SetTaskExternalID(ctx context.Context, taskID, externalID string) error

	GetDayPlan(ctx context.Context, userID, date string) (model.DayPlan, error)
	UpsertDayPlan(ctx context.Context, in model.DayPlan) error

	CreateBusyBlock(ctx context.Context, in model.BusyBlock) error
	ListBusyBlocks(ctx context.Context, userID string) ([]model.BusyBlock, error)
	DeleteBusyBlock(ctx context.Context, id string) error

	RecordBreak(ctx context.Context, in model.Break) error
	LastBreak(ctx context.Context, userID string) (model.Break, error)
	ListBreaks(ctx context.Context, userID string, since time.Time) ([]model.Break, error)

	MarkApplied(ctx context.Context, in AppliedRecommendation) error
	ListApplied(ctx context.Context, userID string) ([]string, error)

	EnqueueSyncJob(ctx context.Context, job syncqueue.Job) (bool, error)
	GetSyncJob(ctx context.Context, id string) (syncqueue.Job, error)
	UpdateSyncJob(ctx context.Context, job syncqueue.Job) error
	ListPendingSyncJobs(ctx context.Context, limit int) ([]syncqueue.Job, error)

	Close() error
}

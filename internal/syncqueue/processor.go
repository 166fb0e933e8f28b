package syncqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sandeepkv93/dayplan/internal/log"
)

var ErrNotMirrored = errors.New("syncqueue: task has no external id yet")

// Store persists jobs and the link between local tasks and remote ones.
type Store interface {
	ListPendingSyncJobs(ctx context.Context, limit int) ([]Job, error)
	UpdateSyncJob(ctx context.Context, job Job) error
	TaskExternalID(ctx context.Context, taskID string) (string, error)
	SetTaskExternalID(ctx context.Context, taskID, externalID string) error
}

// Remote is the external task service.
type Remote interface {
	Create(ctx context.Context, payload json.RawMessage) (string, error)
	Update(ctx context.Context, externalID string, payload json.RawMessage) error
	Complete(ctx context.Context, externalID string) error
	Delete(ctx context.Context, externalID string) error
}

// StatusCoder is implemented by remote errors that carry an HTTP status.
type StatusCoder interface {
	StatusCode() int
}

type Stats struct {
	Processed int
	Succeeded int
	Retried   int
	Failed    int
	Deferred  int
}

type Processor struct {
	store  Store
	remote Remote
	logger *log.Logger
	now    func() time.Time
}

type Option func(*Processor)

func WithClock(now func() time.Time) Option {
	return func(p *Processor) { p.now = now }
}

func NewProcessor(store Store, remote Remote, logger *log.Logger, opts ...Option) *Processor {
	p := &Processor{
		store:  store,
		remote: remote,
		logger: log.OrNop(logger).With("component", "syncqueue"),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// RunBatch processes up to limit pending jobs in FIFO order. Delivery
// failures are recorded on the job; only store failures are returned. Once a
// task's job goes back to pending, that task's later jobs wait for the next
// batch so they are never delivered ahead of it.
func (p *Processor) RunBatch(ctx context.Context, limit int) (Stats, error) {
	var stats Stats
	jobs, err := p.store.ListPendingSyncJobs(ctx, limit)
	if err != nil {
		return stats, fmt.Errorf("list pending sync jobs: %w", err)
	}
	blocked := make(map[string]bool)
	for _, job := range jobs {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		if blocked[job.TaskID] {
			stats.Deferred++
			continue
		}
		next, err := p.process(ctx, job)
		if err != nil {
			return stats, err
		}
		stats.Processed++
		switch next.Status {
		case StatusCompleted:
			stats.Succeeded++
		case StatusFailed:
			stats.Failed++
		case StatusPending:
			stats.Retried++
			blocked[next.TaskID] = true
		}
	}
	return stats, nil
}

// Run calls RunBatch every interval until ctx is done.
func (p *Processor) Run(ctx context.Context, interval time.Duration, limit int) error {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		stats, err := p.RunBatch(ctx, limit)
		if err != nil && !errors.Is(err, context.Canceled) {
			p.logger.WithError(err).Error("sync batch failed")
		} else if stats.Processed > 0 {
			p.logger.Info("sync batch done", "processed", stats.Processed, "succeeded", stats.Succeeded, "retried", stats.Retried, "failed", stats.Failed, "deferred", stats.Deferred)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (p *Processor) process(ctx context.Context, job Job) (Job, error) {
	claimed, err := Transition(job, Claim{}, p.now())
	if err != nil {
		return job, err
	}
	if err := p.store.UpdateSyncJob(ctx, claimed); err != nil {
		return job, fmt.Errorf("claim sync job %s: %w", job.ID, err)
	}

	externalID, deliverErr := p.deliver(ctx, claimed)
	var ev Event = Succeed{ExternalID: externalID}
	if deliverErr != nil {
		ev = Fail{StatusCode: statusCode(deliverErr), Err: deliverErr}
	}
	next, err := Transition(claimed, ev, p.now())
	if err != nil {
		return claimed, err
	}
	if err := p.store.UpdateSyncJob(ctx, next); err != nil {
		return claimed, fmt.Errorf("record sync job %s: %w", job.ID, err)
	}

	logger := p.logger.With("job_id", next.ID, "operation", string(next.Operation), "task_id", next.TaskID, "status", string(next.Status))
	switch next.Status {
	case StatusFailed:
		logger.WithError(deliverErr).Warn("sync job exhausted retries", "retries", next.RetryCount)
	case StatusPending:
		logger.WithError(deliverErr).Info("sync job will retry", "retries", next.RetryCount)
	default:
		logger.Debug("sync job delivered")
	}

	if next.Operation == OpCreate && next.Status == StatusCompleted && externalID != "" {
		if err := p.store.SetTaskExternalID(ctx, next.TaskID, externalID); err != nil {
			logger.WithError(err).Warn("link external id failed")
		}
	}
	return next, nil
}

func (p *Processor) deliver(ctx context.Context, job Job) (string, error) {
	if job.Operation == OpCreate {
		return p.remote.Create(ctx, job.Payload)
	}
	externalID := job.ExternalID
	if externalID == "" {
		id, err := p.store.TaskExternalID(ctx, job.TaskID)
		if err != nil {
			return "", fmt.Errorf("resolve external id: %w", err)
		}
		externalID = id
	}
	if externalID == "" {
		return "", ErrNotMirrored
	}
	switch job.Operation {
	case OpUpdate:
		return externalID, p.remote.Update(ctx, externalID, job.Payload)
	case OpComplete:
		return externalID, p.remote.Complete(ctx, externalID)
	case OpDelete:
		return externalID, p.remote.Delete(ctx, externalID)
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidOperation, job.Operation)
	}
}

func statusCode(err error) int {
	var sc StatusCoder
	if errors.As(err, &sc) {
		return sc.StatusCode()
	}
	return 0
}

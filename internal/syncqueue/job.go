// Package syncqueue mirrors local task changes to an external task service.
//
// A Job moves through pending, processing, completed and failed. A pending
// update replaced by a newer update for the same task ends as superseded.
// Every change of state goes through Transition, which is pure.
package syncqueue

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sandeepkv93/dayplan/internal/digest"
)

type Operation string

const (
	OpCreate   Operation = "create"
	OpUpdate   Operation = "update"
	OpComplete Operation = "complete"
	OpDelete   Operation = "delete"
)

func (o Operation) IsValid() bool {
	switch o {
	case OpCreate, OpUpdate, OpComplete, OpDelete:
		return true
	default:
		return false
	}
}

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusSuperseded Status = "superseded"
)

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusSuperseded
}

const DefaultMaxRetries = 3

var (
	ErrInvalidOperation  = errors.New("syncqueue: invalid operation")
	ErrInvalidTransition = errors.New("syncqueue: invalid transition")
)

type Job struct {
	ID         string          `json:"id"`
	Operation  Operation       `json:"operation"`
	Source     string          `json:"source"`
	TaskID     string          `json:"task_id"`
	ExternalID string          `json:"external_id,omitempty"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	Status     Status          `json:"status"`
	RetryCount int             `json:"retry_count"`
	MaxRetries int             `json:"max_retries"`
	LastError  string          `json:"last_error,omitempty"`
	DedupeKey  string          `json:"dedupe_key"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// NewJob builds a pending job. The dedupe key hashes the operation, task and
// payload; a job whose key matches the newest open job for its task adds
// nothing and is not queued.
func NewJob(op Operation, source, taskID, externalID string, payload any, maxRetries int, now time.Time) (Job, error) {
	if !op.IsValid() {
		return Job{}, fmt.Errorf("%w: %q", ErrInvalidOperation, op)
	}
	if strings.TrimSpace(taskID) == "" {
		return Job{}, errors.New("syncqueue: task id is required")
	}
	var raw json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return Job{}, fmt.Errorf("syncqueue: encode payload: %w", err)
		}
		raw = b
	}
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	return Job{
		ID:         uuid.NewString(),
		Operation:  op,
		Source:     source,
		TaskID:     taskID,
		ExternalID: externalID,
		Payload:    raw,
		Status:     StatusPending,
		MaxRetries: maxRetries,
		DedupeKey:  digest.Sum(string(op), taskID, externalID, string(raw))[:32],
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// Event drives a Transition.
type Event interface {
	isEvent()
}

// Claim takes a pending job for processing.
type Claim struct{}

// Succeed records a delivered job. ExternalID is set by create.
type Succeed struct {
	ExternalID string
}

// Fail records a delivery failure. StatusCode is the remote HTTP status, or
// zero when the request never got a response.
type Fail struct {
	StatusCode int
	Err        error
}

// Supersede retires a pending update once a newer update for the same task
// is queued. By is the newer job's ID.
type Supersede struct {
	By string
}

func (Claim) isEvent()     {}
func (Succeed) isEvent()   {}
func (Fail) isEvent()      {}
func (Supersede) isEvent() {}

// Transition returns the job after ev at now. Terminal jobs accept no events.
func Transition(job Job, ev Event, now time.Time) (Job, error) {
	if job.Status.Terminal() {
		return job, fmt.Errorf("%w: job %s is %s", ErrInvalidTransition, job.ID, job.Status)
	}
	switch e := ev.(type) {
	case Claim:
		if job.Status != StatusPending {
			return job, fmt.Errorf("%w: claim from %s", ErrInvalidTransition, job.Status)
		}
		job.Status = StatusProcessing
	case Succeed:
		if job.Status != StatusProcessing {
			return job, fmt.Errorf("%w: succeed from %s", ErrInvalidTransition, job.Status)
		}
		job.Status = StatusCompleted
		job.LastError = ""
		if e.ExternalID != "" {
			job.ExternalID = e.ExternalID
		}
	case Fail:
		if job.Status != StatusProcessing {
			return job, fmt.Errorf("%w: fail from %s", ErrInvalidTransition, job.Status)
		}
		if e.StatusCode == http.StatusNotFound && job.Operation != OpCreate {
			job.Status = StatusCompleted
			job.LastError = ""
			break
		}
		job.RetryCount++
		job.LastError = errorText(e)
		if job.RetryCount >= job.MaxRetries {
			job.Status = StatusFailed
		} else {
			job.Status = StatusPending
		}
	case Supersede:
		if job.Status != StatusPending || job.Operation != OpUpdate {
			return job, fmt.Errorf("%w: supersede %s from %s", ErrInvalidTransition, job.Operation, job.Status)
		}
		job.Status = StatusSuperseded
		job.LastError = "superseded by " + e.By
	default:
		return job, fmt.Errorf("%w: unknown event %T", ErrInvalidTransition, ev)
	}
	job.UpdatedAt = now
	return job, nil
}

func errorText(f Fail) string {
	switch {
	case f.Err != nil:
		return f.Err.Error()
	case f.StatusCode != 0:
		return fmt.Sprintf("remote status %d", f.StatusCode)
	default:
		return "unknown failure"
	}
}

package syncqueue

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 2, 9, 12, 0, 0, 0, time.UTC)

func newJob(t *testing.T, op Operation, maxRetries int) Job {
	t.Helper()
	job, err := NewJob(op, "dayplan", "task-1", "ext-1", map[string]string{"title": "x"}, maxRetries, t0)
	require.NoError(t, err)
	return job
}

func claimed(t *testing.T, job Job) Job {
	t.Helper()
	out, err := Transition(job, Claim{}, t0)
	require.NoError(t, err)
	require.Equal(t, StatusProcessing, out.Status)
	return out
}

func TestNewJob(t *testing.T) {
	job := newJob(t, OpUpdate, 0)
	assert.Equal(t, StatusPending, job.Status)
	assert.Equal(t, DefaultMaxRetries, job.MaxRetries)
	assert.JSONEq(t, `{"title":"x"}`, string(job.Payload))
	assert.Len(t, job.DedupeKey, 32)

	again := newJob(t, OpUpdate, 0)
	assert.NotEqual(t, job.ID, again.ID)
	assert.Equal(t, job.DedupeKey, again.DedupeKey)
	assert.NotEqual(t, job.DedupeKey, newJob(t, OpComplete, 0).DedupeKey)

	_, err := NewJob("archive", "dayplan", "task-1", "", nil, 0, t0)
	assert.ErrorIs(t, err, ErrInvalidOperation)
	_, err = NewJob(OpCreate, "dayplan", " ", "", nil, 0, t0)
	assert.Error(t, err)
}

func TestTransitionSuccess(t *testing.T) {
	job := claimed(t, newJob(t, OpCreate, 3))
	later := t0.Add(time.Minute)
	done, err := Transition(job, Succeed{ExternalID: "remote-9"}, later)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, done.Status)
	assert.Equal(t, "remote-9", done.ExternalID)
	assert.Equal(t, later, done.UpdatedAt)
}

func TestTransitionRetriesUntilExhausted(t *testing.T) {
	job := newJob(t, OpUpdate, 3)
	boom := errors.New("connection reset")
	for attempt := 1; attempt <= 3; attempt++ {
		job = claimed(t, job)
		var err error
		job, err = Transition(job, Fail{Err: boom}, t0)
		require.NoError(t, err)
		assert.Equal(t, attempt, job.RetryCount)
		assert.Equal(t, "connection reset", job.LastError)
		if attempt < 3 {
			assert.Equal(t, StatusPending, job.Status)
		}
	}
	assert.Equal(t, StatusFailed, job.Status)

	_, err := Transition(job, Claim{}, t0)
	assert.ErrorIs(t, err, ErrInvalidTransition, "failed is terminal")
}

func TestTransitionNotFoundIsSuccessExceptCreate(t *testing.T) {
	for _, op := range []Operation{OpUpdate, OpComplete, OpDelete} {
		job := claimed(t, newJob(t, op, 3))
		done, err := Transition(job, Fail{StatusCode: 404, Err: errors.New("not found")}, t0)
		require.NoError(t, err)
		assert.Equal(t, StatusCompleted, done.Status, string(op))
		assert.Zero(t, done.RetryCount)
	}

	job := claimed(t, newJob(t, OpCreate, 3))
	retry, err := Transition(job, Fail{StatusCode: 404}, t0)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, retry.Status)
	assert.Equal(t, "remote status 404", retry.LastError)
}

func TestTransitionRejectsOutOfOrderEvents(t *testing.T) {
	pending := newJob(t, OpDelete, 3)
	_, err := Transition(pending, Succeed{}, t0)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = Transition(pending, Fail{}, t0)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	processing := claimed(t, pending)
	_, err = Transition(processing, Claim{}, t0)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	done, err := Transition(processing, Succeed{}, t0)
	require.NoError(t, err)
	_, err = Transition(done, Succeed{}, t0)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestTransitionDoesNotMutateInput(t *testing.T) {
	job := claimed(t, newJob(t, OpUpdate, 3))
	before := job
	_, err := Transition(job, Fail{Err: errors.New("x")}, t0)
	require.NoError(t, err)
	assert.Equal(t, before, job)
}

func TestTransitionSupersede(t *testing.T) {
	pending := newJob(t, OpUpdate, 3)
	out, err := Transition(pending, Supersede{By: "job-2"}, t0.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, StatusSuperseded, out.Status)
	assert.Equal(t, "superseded by job-2", out.LastError)
	assert.True(t, out.Status.Terminal())

	_, err = Transition(out, Claim{}, t0)
	assert.ErrorIs(t, err, ErrInvalidTransition, "superseded jobs are never delivered")
	_, err = Transition(claimed(t, newJob(t, OpUpdate, 3)), Supersede{By: "job-2"}, t0)
	assert.ErrorIs(t, err, ErrInvalidTransition, "in-flight jobs are left alone")
	_, err = Transition(newJob(t, OpComplete, 3), Supersede{By: "job-2"}, t0)
	assert.ErrorIs(t, err, ErrInvalidTransition, "only updates carry replaceable state")
}

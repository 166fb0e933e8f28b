package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	ErrInvalidPriority = errors.New("model: invalid task priority")
	ErrInvalidLoad     = errors.New("model: invalid cognitive load")
	ErrInvalidEstimate = errors.New("model: invalid task estimate")
)

const (
	PriorityLowest  = 1
	PriorityHighest = 4

	LoadMin = 1
	LoadMax = 5
)

const dateLayout = "2006-01-02"

// Load is a 1-5 cognitive load rating. Zero means the rating is absent.
// It decodes from a JSON number or from a string carrying a digit ("3/5").
type Load int

func (l *Load) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" || raw == "" {
		*l = 0
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		v, _ := ParseLoad(s)
		*l = Load(v)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidLoad, raw)
	}
	*l = Load(int(f))
	return nil
}

// ParseLoad returns the first integer embedded in raw.
func ParseLoad(raw string) (int, bool) {
	start := strings.IndexFunc(raw, isDigit)
	if start < 0 {
		return 0, false
	}
	end := start
	for end < len(raw) && isDigit(rune(raw[end])) {
		end++
	}
	v, err := strconv.Atoi(raw[start:end])
	if err != nil {
		return 0, false
	}
	return v, true
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

type Task struct {
	ID            string     `json:"id"`
	UserID        string     `json:"user_id,omitempty"`
	Title         string     `json:"title"`
	DueDate       *time.Time `json:"due_date,omitempty"`
	DueDateOnly   bool       `json:"due_date_only,omitempty"`
	Priority      int        `json:"priority"`
	CognitiveLoad Load       `json:"cognitive_load"`
	PostponeCount int        `json:"postpone_count"`
	IsMust        bool       `json:"is_must"`
	ContextType   string     `json:"context_type,omitempty"`
	EstimateMin   int        `json:"estimate_min"`
	Completed     bool       `json:"completed"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	Position      int        `json:"position"`
	ExternalID    string     `json:"external_id,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// UnmarshalJSON accepts due_date as a calendar date or an RFC 3339 timestamp.
func (t *Task) UnmarshalJSON(data []byte) error {
	type plain Task
	aux := struct {
		*plain
		DueDate *string `json:"due_date"`
	}{plain: (*plain)(t)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	flagged := t.DueDateOnly
	t.DueDate = nil
	t.DueDateOnly = false
	if aux.DueDate == nil || strings.TrimSpace(*aux.DueDate) == "" {
		return nil
	}
	due, dateOnly, err := ParseDue(*aux.DueDate, time.UTC)
	if err != nil {
		return err
	}
	t.DueDate = &due
	t.DueDateOnly = dateOnly || flagged
	return nil
}

// ParseDue parses a calendar date (interpreted in loc) or an RFC 3339 timestamp.
func ParseDue(raw string, loc *time.Location) (time.Time, bool, error) {
	raw = strings.TrimSpace(raw)
	if loc == nil {
		loc = time.UTC
	}
	if d, err := time.ParseInLocation(dateLayout, raw, loc); err == nil {
		return d, true, nil
	}
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("model: invalid due date %q", raw)
	}
	return ts, false, nil
}

// Deadline is the instant the task becomes late. A date-only due date
// resolves to the last instant of that day.
func (t Task) Deadline() (time.Time, bool) {
	if t.DueDate == nil || t.DueDate.IsZero() {
		return time.Time{}, false
	}
	if !t.DueDateOnly {
		return *t.DueDate, true
	}
	y, m, d := t.DueDate.Date()
	return time.Date(y, m, d, 23, 59, 59, int(time.Second-time.Nanosecond), t.DueDate.Location()), true
}

func (t Task) IsOverdue(now time.Time) bool {
	deadline, ok := t.Deadline()
	return ok && deadline.Before(now)
}

func (t Task) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return errors.New("model: task id is required")
	}
	if strings.TrimSpace(t.Title) == "" {
		return errors.New("model: task title is required")
	}
	if t.Priority < PriorityLowest || t.Priority > PriorityHighest {
		return fmt.Errorf("%w: %d", ErrInvalidPriority, t.Priority)
	}
	if t.CognitiveLoad != 0 && (t.CognitiveLoad < LoadMin || t.CognitiveLoad > LoadMax) {
		return fmt.Errorf("%w: %d", ErrInvalidLoad, t.CognitiveLoad)
	}
	if t.EstimateMin < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidEstimate, t.EstimateMin)
	}
	if t.PostponeCount < 0 {
		return errors.New("model: postpone_count must not be negative")
	}
	if t.Completed && t.CompletedAt == nil {
		return errors.New("model: completed_at is required when task is completed")
	}
	if !t.Completed && t.CompletedAt != nil {
		return errors.New("model: completed_at must be nil when task is not completed")
	}
	return nil
}

package mirror

import (
	"encoding/json"
	"time"

	"github.com/sandeepkv93/dayplan/internal/model"
)

// Task is the remote representation of a local task.
type Task struct {
	Content     string   `json:"content"`
	Priority    int      `json:"priority"`
	DueDate     string   `json:"due_date,omitempty"`
	DueDatetime string   `json:"due_datetime,omitempty"`
	Labels      []string `json:"labels,omitempty"`
	Duration    int      `json:"duration,omitempty"`
}

// FromTask maps t onto the remote shape. Priorities share the 1-4 scale.
func FromTask(t model.Task) Task {
	out := Task{Content: t.Title, Priority: t.Priority, Duration: t.EstimateMin}
	if t.DueDate != nil {
		if t.DueDateOnly {
			out.DueDate = model.FormatDate(*t.DueDate)
		} else {
			out.DueDatetime = t.DueDate.UTC().Format(time.RFC3339)
		}
	}
	if t.ContextType != "" {
		out.Labels = []string{t.ContextType}
	}
	if t.IsMust {
		out.Labels = append(out.Labels, "must")
	}
	return out
}

// Payload encodes FromTask(t) for a sync job.
func Payload(t model.Task) json.RawMessage {
	b, _ := json.Marshal(FromTask(t))
	return b
}

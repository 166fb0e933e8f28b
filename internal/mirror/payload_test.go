package mirror

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sandeepkv93/dayplan/internal/model"
)

func TestFromTask(t *testing.T) {
	day := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	at := time.Date(2026, 2, 10, 15, 30, 0, 0, time.FixedZone("CET", 3600))

	dated := FromTask(model.Task{Title: "report", Priority: 4, DueDate: &day, DueDateOnly: true, ContextType: "writing", IsMust: true, EstimateMin: 45})
	assert.Equal(t, Task{Content: "report", Priority: 4, DueDate: "2026-02-10", Labels: []string{"writing", "must"}, Duration: 45}, dated)

	timed := FromTask(model.Task{Title: "call", Priority: 1, DueDate: &at})
	assert.Equal(t, "2026-02-10T14:30:00Z", timed.DueDatetime)
	assert.Empty(t, timed.DueDate)
	assert.Nil(t, timed.Labels)

	assert.JSONEq(t, `{"content":"call","priority":1,"due_datetime":"2026-02-10T14:30:00Z"}`, string(Payload(model.Task{Title: "call", Priority: 1, DueDate: &at})))
}

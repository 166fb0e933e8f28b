package scoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandeepkv93/dayplan/internal/model"
)

var now = time.Date(2026, 2, 9, 9, 0, 0, 0, time.UTC)

func hours(h float64) *float64 { return &h }

func dueIn(d time.Duration) *time.Time {
	t := now.Add(d)
	return &t
}

func TestDeadlineScore(t *testing.T) {
	cases := []struct {
		name  string
		hours *float64
		want  int
	}{
		{"overdue", hours(-3), 150},
		{"in one hour", hours(1), 100},
		{"in three hours", hours(3), 80},
		{"in five hours", hours(5), 60},
		{"in twelve hours", hours(12), 40},
		{"tomorrow", hours(36), 30},
		{"in four days", hours(96), 15},
		{"next month", hours(24 * 30), 10},
		{"no deadline", nil, 10},
		{"exactly now", hours(0), 100},
		{"boundary two hours", hours(2), 80},
		{"boundary one week", hours(168), 10},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, DeadlineScore(tc.hours))
		})
	}
}

func TestPriorityScore(t *testing.T) {
	assert.Equal(t, 50, PriorityScore(4))
	assert.Equal(t, 30, PriorityScore(3))
	assert.Equal(t, 10, PriorityScore(2))
	assert.Equal(t, 5, PriorityScore(1))
	assert.Equal(t, 5, PriorityScore(0))
	assert.Equal(t, 5, PriorityScore(9))
}

func TestLoadPenalty(t *testing.T) {
	assert.Equal(t, 2, LoadPenalty(1))
	assert.Equal(t, 6, LoadPenalty(3))
	assert.Equal(t, 10, LoadPenalty(5))
	assert.Equal(t, 10, LoadPenalty(8), "load clamps to 5")
	assert.Equal(t, 2, LoadPenalty(-1), "load clamps to 1")
	assert.Equal(t, 6, LoadPenalty(0), "absent load defaults to 3")


	for raw, want := range map[string]int{`"3/5"`: 6, `4.0`: 8, `"unknown"`: 6, `null`: 6} {
		var l model.Load
		require.NoError(t, l.UnmarshalJSON([]byte(raw)))
		assert.Equal(t, want, LoadPenalty(int(l)), "decoded load %s", raw)
	}
}

func TestPostponeScore(t *testing.T) {
	assert.Equal(t, 0, PostponeScore(0))
	assert.Equal(t, 15, PostponeScore(3))
	assert.Equal(t, 25, PostponeScore(5))
	assert.Equal(t, 0, PostponeScore(-2))
}

func TestScoreHigherPriorityRanksFirst(t *testing.T) {
	p4 := model.Task{ID: "a", Priority: 4, CognitiveLoad: 3, DueDate: dueIn(3 * time.Hour)}
	p3 := model.Task{ID: "b", Priority: 3, CognitiveLoad: 3, DueDate: dueIn(3 * time.Hour)}

	a, b := Score(p4, now), Score(p3, now)
	assert.Equal(t, 124, a.Total)
	assert.Equal(t, 104, b.Total)
	assert.Greater(t, a.Total, b.Total)
}

func TestScoreLighterTaskRanksFirst(t *testing.T) {
	heavy := model.Task{ID: "heavy", Priority: 4, CognitiveLoad: 5, DueDate: dueIn(3 * time.Hour)}
	light := model.Task{ID: "light", Priority: 4, CognitiveLoad: 2, DueDate: dueIn(3 * time.Hour)}

	assert.Equal(t, 120, Score(heavy, now).Total)
	assert.Equal(t, 126, Score(light, now).Total)
}

// Scenario labels use the inverse scheme: P1 is priority 4, P4 is priority 1.
func TestScorePostponePressureBeatsUrgency(t *testing.T) {
	postponedP2 := model.Task{ID: "p", Priority: 3, CognitiveLoad: 3, PostponeCount: 3, DueDate: dueIn(5 * time.Hour)}
	freshP3 := model.Task{ID: "f", Priority: 2, CognitiveLoad: 2, DueDate: dueIn(3 * time.Hour)}

	a, b := Score(postponedP2, now), Score(freshP3, now)
	assert.Equal(t, 99, a.Total)
	assert.Equal(t, 86, b.Total)
	assert.Greater(t, a.Total, b.Total)
}

func TestScoreOverdueDominates(t *testing.T) {
	overdue := model.Task{ID: "o", Priority: 1, CognitiveLoad: 5, DueDate: dueIn(-2 * time.Hour)}
	tomorrow := model.Task{ID: "t", Priority: 4, CognitiveLoad: 1, PostponeCount: 5, DueDate: dueIn(36 * time.Hour)}

	a, b := Score(overdue, now), Score(tomorrow, now)
	assert.Equal(t, 145, a.Total)
	assert.Equal(t, 103, b.Total)
	assert.Greater(t, a.Total, b.Total)
}

func TestOutranksPutsOverdueFirst(t *testing.T) {
	worstOverdue := Score(model.Task{Priority: 1, CognitiveLoad: 5, DueDate: dueIn(-time.Minute)}, now)
	for _, h := range []time.Duration{0, time.Hour, 3 * time.Hour, 30 * time.Hour} {
		best := Score(model.Task{Priority: 4, CognitiveLoad: 1, PostponeCount: 3, DueDate: dueIn(h)}, now)
		assert.True(t, Outranks(worstOverdue, best), "due in %s", h)
		assert.False(t, Outranks(best, worstOverdue), "due in %s", h)
	}

	a := Score(model.Task{Priority: 4}, now)
	b := Score(model.Task{Priority: 2}, now)
	assert.True(t, Outranks(a, b))
	assert.False(t, Outranks(a, a), "equal results do not outrank each other")
}

func TestScoreDefaults(t *testing.T) {
	r := Score(model.Task{ID: "bare"}, now)
	assert.Equal(t, Breakdown{Deadline: 10, Priority: 5, LoadPenalty: 6, PostponeBonus: 0}, r.Breakdown)
	assert.Equal(t, 9, r.Total)
}

func TestScoreLowestTotal(t *testing.T) {
	r := ScoreInput(Input{Priority: 1, Load: 5})
	assert.Equal(t, 5, r.Total)
	assert.False(t, r.Overdue())
}

func TestScoreIsDeterministic(t *testing.T) {
	task := model.Task{ID: "x", Priority: 3, CognitiveLoad: 4, PostponeCount: 2, DueDate: dueIn(7 * time.Hour)}
	first := Score(task, now)
	for i := 0; i < 10; i++ {
		require.Equal(t, first, Score(task, now))
	}
}

func TestScoreDateOnlyDueToday(t *testing.T) {
	day := time.Date(2026, 2, 9, 0, 0, 0, 0, time.UTC)
	task := model.Task{Priority: 2, DueDate: &day, DueDateOnly: true}
	r := Score(task, now)
	assert.Equal(t, 40, r.Breakdown.Deadline, "due end of day, fifteen hours away")
}

func TestNormalizeDefaults(t *testing.T) {
	in := Normalize(model.Task{PostponeCount: -4}, now)
	assert.Nil(t, in.HoursUntilDue)
	assert.Equal(t, DefaultLoad, in.Load)
	assert.Equal(t, DefaultEstimateMin, in.EstimateMin)
	assert.Equal(t, 0, in.PostponeCount)
}

func TestReasons(t *testing.T) {
	task := model.Task{IsMust: true, Priority: 4, CognitiveLoad: 1, PostponeCount: 2, DueDate: dueIn(-time.Hour)}
	got := Reasons(task, Score(task, now))
	assert.Equal(t, []string{"must-do today", "overdue", "high priority", "postponed 2 times", "low cognitive load"}, got)

	plain := model.Task{Priority: 1, CognitiveLoad: 3}
	assert.Empty(t, Reasons(plain, Score(plain, now)))
}

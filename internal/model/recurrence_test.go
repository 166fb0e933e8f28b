package model

import (
	"errors"
	"testing"
	"time"
)

func TestRecurrenceEveryWeekday(t *testing.T) {
	rule := RecurrenceRule{Type: RecurrenceEveryWeekday, Interval: 1}
	anchor := time.Date(2026, 2, 9, 9, 0, 0, 0, time.UTC) // Monday

	if !rule.OccursOn(anchor, time.Date(2026, 2, 13, 0, 0, 0, 0, time.UTC)) {
		t.Fatal("expected occurrence on friday")
	}
	if rule.OccursOn(anchor, time.Date(2026, 2, 14, 0, 0, 0, 0, time.UTC)) {
		t.Fatal("expected no occurrence on saturday")
	}
	if rule.OccursOn(anchor, time.Date(2026, 2, 6, 0, 0, 0, 0, time.UTC)) {
		t.Fatal("expected no occurrence before the anchor")
	}
}

func TestRecurrenceCustomWeekdays(t *testing.T) {
	rule := RecurrenceRule{Type: RecurrenceEveryWeekday, Interval: 1, Weekdays: []time.Weekday{time.Tuesday, time.Thursday}}
	anchor := time.Date(2026, 2, 9, 9, 0, 0, 0, time.UTC)
	if rule.OccursOn(anchor, time.Date(2026, 2, 9, 0, 0, 0, 0, time.UTC)) {
		t.Fatal("monday is not in the weekday set")
	}
	if !rule.OccursOn(anchor, time.Date(2026, 2, 12, 0, 0, 0, 0, time.UTC)) {
		t.Fatal("expected occurrence on thursday")
	}
}

func TestRecurrenceEveryNDays(t *testing.T) {
	rule := RecurrenceRule{Type: RecurrenceEveryNDays, Interval: 2}
	anchor := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
	if !rule.OccursOn(anchor, time.Date(2026, 2, 7, 0, 0, 0, 0, time.UTC)) {
		t.Fatal("expected occurrence on 2026-02-07")
	}
	if rule.OccursOn(anchor, time.Date(2026, 2, 8, 0, 0, 0, 0, time.UTC)) {
		t.Fatal("expected no occurrence on 2026-02-08")
	}
}

func TestRecurrenceEveryNWeeks(t *testing.T) {
	rule := RecurrenceRule{Type: RecurrenceEveryNWeeks, Interval: 2}
	anchor := time.Date(2026, 2, 2, 10, 30, 0, 0, time.UTC)
	if !rule.OccursOn(anchor, time.Date(2026, 2, 16, 0, 0, 0, 0, time.UTC)) {
		t.Fatal("expected occurrence two weeks later")
	}
	if rule.OccursOn(anchor, time.Date(2026, 2, 9, 0, 0, 0, 0, time.UTC)) {
		t.Fatal("expected no occurrence on the off week")
	}
}

func TestRecurrenceLastDayOfMonth(t *testing.T) {
	rule := RecurrenceRule{Type: RecurrenceLastDayOfMonth, Interval: 1}
	anchor := time.Date(2026, 1, 31, 17, 0, 0, 0, time.UTC)
	if !rule.OccursOn(anchor, time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC)) {
		t.Fatal("expected occurrence on 2026-02-28")
	}
	if rule.OccursOn(anchor, time.Date(2026, 2, 27, 0, 0, 0, 0, time.UTC)) {
		t.Fatal("expected no occurrence on 2026-02-27")
	}
}

func TestRecurrenceValidate(t *testing.T) {
	err := RecurrenceRule{Type: "hourly", Interval: 1}.Validate()
	if !errors.Is(err, ErrInvalidRecurrenceType) {
		t.Fatalf("expected ErrInvalidRecurrenceType, got %v", err)
	}
	err = RecurrenceRule{Type: RecurrenceEveryNDays}.Validate()
	if !errors.Is(err, ErrInvalidInterval) {
		t.Fatalf("expected ErrInvalidInterval, got %v", err)
	}
}

func TestBusyBlockIntervalsOn(t *testing.T) {
	start := time.Date(2026, 2, 9, 9, 30, 0, 0, time.UTC)
	standup := BusyBlock{
		ID:         "blk-1",
		UserID:     "u1",
		Title:      "Standup",
		Start:      start,
		End:        start.Add(15 * time.Minute),
		Recurrence: &RecurrenceRule{Type: RecurrenceEveryWeekday, Interval: 1},
	}
	got := standup.IntervalsOn(time.Date(2026, 2, 11, 0, 0, 0, 0, time.UTC))
	if len(got) != 1 {
		t.Fatalf("expected one interval, got %d", len(got))
	}
	if got[0].Start.Format("2006-01-02 15:04") != "2026-02-11 09:30" || got[0].Duration() != 15*time.Minute {
		t.Fatalf("unexpected interval: %+v", got[0])
	}

	oneOff := BusyBlock{ID: "blk-2", UserID: "u1", Start: start, End: start.Add(time.Hour)}
	if len(oneOff.IntervalsOn(time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC))) != 0 {
		t.Fatal("one-off block must not repeat")
	}
	if len(oneOff.IntervalsOn(time.Date(2026, 2, 9, 0, 0, 0, 0, time.UTC))) != 1 {
		t.Fatal("one-off block must appear on its own day")
	}
}

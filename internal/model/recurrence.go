package model

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

type RecurrenceType string

const (
	RecurrenceEveryWeekday   RecurrenceType = "every_weekday"
	RecurrenceEveryNDays     RecurrenceType = "every_n_days"
	RecurrenceEveryNWeeks    RecurrenceType = "every_n_weeks"
	RecurrenceLastDayOfMonth RecurrenceType = "last_day_of_month"
)

var (
	ErrInvalidRecurrenceType = errors.New("model: invalid recurrence type")
	ErrInvalidInterval       = errors.New("model: invalid recurrence interval")
)

// RecurrenceRule repeats a busy block. The block's own start anchors the
// series; occurrences keep the anchor's clock time and duration.
type RecurrenceRule struct {
	Type     RecurrenceType `json:"type"`
	Interval int            `json:"interval"`
	Weekdays []time.Weekday `json:"weekdays,omitempty"`
	Until    *time.Time     `json:"until,omitempty"`
}

func (r RecurrenceRule) Validate() error {
	switch r.Type {
	case RecurrenceEveryWeekday, RecurrenceEveryNDays, RecurrenceEveryNWeeks, RecurrenceLastDayOfMonth:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidRecurrenceType, r.Type)
	}
	if r.Interval <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidInterval, r.Interval)
	}
	if r.Type == RecurrenceEveryWeekday && len(r.Weekdays) > 0 {
		s := make([]int, 0, len(r.Weekdays))
		for _, d := range r.Weekdays {
			s = append(s, int(d))
		}
		sort.Ints(s)
		for i := 1; i < len(s); i++ {
			if s[i] == s[i-1] {
				return errors.New("model: duplicate weekday in recurrence")
			}
		}
	}
	return nil
}

// OccursOn reports whether a series anchored at anchor has an occurrence on
// the calendar day of day (compared in anchor's location).
func (r RecurrenceRule) OccursOn(anchor, day time.Time) bool {
	if r.Validate() != nil {
		return false
	}
	day = startOfDay(day.In(anchor.Location()))
	first := startOfDay(anchor)
	if day.Before(first) {
		return false
	}
	if r.Until != nil && day.After(*r.Until) {
		return false
	}

	switch r.Type {
	case RecurrenceEveryWeekday:
		return r.allowedWeekdays()[day.Weekday()]
	case RecurrenceEveryNDays:
		return daysBetween(first, day)%r.Interval == 0
	case RecurrenceEveryNWeeks:
		if day.Weekday() != first.Weekday() {
			return false
		}
		return (daysBetween(first, day)/7)%r.Interval == 0
	case RecurrenceLastDayOfMonth:
		return day.AddDate(0, 0, 1).Day() == 1
	default:
		return false
	}
}

func (r RecurrenceRule) allowedWeekdays() map[time.Weekday]bool {
	if len(r.Weekdays) > 0 {
		m := make(map[time.Weekday]bool, len(r.Weekdays))
		for _, w := range r.Weekdays {
			m[w] = true
		}
		return m
	}
	return map[time.Weekday]bool{
		time.Monday:    true,
		time.Tuesday:   true,
		time.Wednesday: true,
		time.Thursday:  true,
		time.Friday:    true,
	}
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// daysBetween counts calendar days, immune to DST-shortened days.
func daysBetween(from, to time.Time) int {
	a := time.Date(from.Year(), from.Month(), from.Day(), 12, 0, 0, 0, time.UTC)
	b := time.Date(to.Year(), to.Month(), to.Day(), 12, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}

// BusyBlock is stored calendar time that tasks cannot use.
type BusyBlock struct {
	ID         string          `json:"id"`
	UserID     string          `json:"user_id"`
	Title      string          `json:"title"`
	Start      time.Time       `json:"start"`
	End        time.Time       `json:"end"`
	Recurrence *RecurrenceRule `json:"recurrence,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

func (b BusyBlock) Validate() error {
	if strings.TrimSpace(b.ID) == "" {
		return errors.New("model: busy block id is required")
	}
	if strings.TrimSpace(b.UserID) == "" {
		return errors.New("model: busy block user_id is required")
	}
	if b.Start.IsZero() || b.End.IsZero() || !b.End.After(b.Start) {
		return errors.New("model: busy block end must be after start")
	}
	if b.Recurrence != nil {
		return b.Recurrence.Validate()
	}
	return nil
}

// IntervalsOn expands the block into the intervals that fall on day.
func (b BusyBlock) IntervalsOn(day time.Time) []CalendarInterval {
	dayStart := startOfDay(day)
	dayEnd := dayStart.AddDate(0, 0, 1)
	if b.Recurrence == nil {
		if b.End.After(dayStart) && b.Start.Before(dayEnd) {
			return []CalendarInterval{{Start: b.Start, End: b.End, Title: b.Title, Source: "busy_block"}}
		}
		return nil
	}
	if !b.Recurrence.OccursOn(b.Start, day) {
		return nil
	}
	local := day.In(b.Start.Location())
	y, m, d := local.Date()
	start := time.Date(y, m, d, b.Start.Hour(), b.Start.Minute(), b.Start.Second(), 0, b.Start.Location())
	return []CalendarInterval{{Start: start, End: start.Add(b.End.Sub(b.Start)), Title: b.Title, Source: "busy_block"}}
}

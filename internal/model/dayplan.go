package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"
)

var (
	ErrInvalidEnergy    = errors.New("model: invalid energy level")
	ErrInvalidFocus     = errors.New("model: invalid focus level")
	ErrInvalidClockTime = errors.New("model: invalid clock time")
)

const (
	LevelMin = 1
	LevelMax = 5
)

type DayPlan struct {
	UserID    string            `json:"user_id"`
	Date      string            `json:"date"`
	Timezone  string            `json:"timezone,omitempty"`
	Energy    int               `json:"energy"`
	Focus     int               `json:"focus"`
	WorkStart string            `json:"work_start_time,omitempty"`
	WorkEnd   string            `json:"work_end_time,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	UpdatedAt time.Time         `json:"updated_at"`
}

func (p DayPlan) Validate() error {
	if strings.TrimSpace(p.UserID) == "" {
		return errors.New("model: day plan user_id is required")
	}
	if _, err := time.Parse(dateLayout, p.Date); err != nil {
		return fmt.Errorf("model: invalid day plan date %q", p.Date)
	}
	if p.Timezone != "" {
		if _, err := time.LoadLocation(p.Timezone); err != nil {
			return fmt.Errorf("model: invalid timezone %q", p.Timezone)
		}
	}
	if p.Energy < LevelMin || p.Energy > LevelMax {
		return fmt.Errorf("%w: %d", ErrInvalidEnergy, p.Energy)
	}
	if p.Focus < LevelMin || p.Focus > LevelMax {
		return fmt.Errorf("%w: %d", ErrInvalidFocus, p.Focus)
	}
	for _, clock := range []string{p.WorkStart, p.WorkEnd} {
		if clock == "" {
			continue
		}
		if _, _, err := parseClock(clock); err != nil {
			return err
		}
	}
	if p.WorkStart != "" && p.WorkEnd != "" {
		start, _ := p.WorkStartAt()
		end, _ := p.WorkEndAt()
		if !end.After(start) {
			return errors.New("model: work_end_time must be after work_start_time")
		}
	}
	return nil
}

// Location resolves the plan timezone, falling back to UTC.
func (p DayPlan) Location() *time.Location {
	if p.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (p DayPlan) Day() (time.Time, error) {
	return time.ParseInLocation(dateLayout, p.Date, p.Location())
}

func (p DayPlan) WorkStartAt() (time.Time, bool) {
	return p.clockOnDay(p.WorkStart)
}

func (p DayPlan) WorkEndAt() (time.Time, bool) {
	return p.clockOnDay(p.WorkEnd)
}

func (p DayPlan) clockOnDay(clock string) (time.Time, bool) {
	if strings.TrimSpace(clock) == "" {
		return time.Time{}, false
	}
	day, err := p.Day()
	if err != nil {
		return time.Time{}, false
	}
	h, m, err := parseClock(clock)
	if err != nil {
		return time.Time{}, false
	}
	y, mo, d := day.Date()
	return time.Date(y, mo, d, h, m, 0, 0, day.Location()), true
}

func parseClock(raw string) (int, int, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(raw))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidClockTime, raw)
	}
	return t.Hour(), t.Minute(), nil
}

// FormatDate renders t as a day plan date key.
func FormatDate(t time.Time) string {
	return t.Format(dateLayout)
}

type CalendarInterval struct {
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	Title  string    `json:"title,omitempty"`
	Source string    `json:"source,omitempty"`
}

func (c CalendarInterval) Duration() time.Duration {
	if c.End.Before(c.Start) {
		return 0
	}
	return c.End.Sub(c.Start)
}

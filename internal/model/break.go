package model

import (
	"errors"
	"strings"
	"time"
)

// Break is a rest period the user logged; it resets sustained-work tracking.
type Break struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	StartedAt   time.Time `json:"started_at"`
	DurationMin int       `json:"duration_min"`
}

func (b Break) Validate() error {
	if strings.TrimSpace(b.ID) == "" {
		return errors.New("model: break id is required")
	}
	if strings.TrimSpace(b.UserID) == "" {
		return errors.New("model: break user_id is required")
	}
	if b.StartedAt.IsZero() {
		return errors.New("model: break started_at is required")
	}
	if b.DurationMin <= 0 {
		return errors.New("model: break duration must be positive")
	}
	return nil
}

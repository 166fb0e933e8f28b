package storage

import "time"

// TaskFilter narrows ListTasks. Zero values match everything.
type TaskFilter struct {
	UserID         string
	Completed      *bool
	CompletedSince *time.Time
	Limit          int
	Offset         int
}

// AppliedRecommendation records that a user executed a recommendation.
type AppliedRecommendation struct {
	UserID           string
	RecommendationID string
	AppliedAt        time.Time
}

func Bool(v bool) *bool { return &v }

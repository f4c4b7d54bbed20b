// Package feedback collects user feedback and publishes the product
// roadmap. Submitting feedback is open to every authenticated user,
// roadmap management is an admin concern.
package feedback

import (
	"errors"
	"time"
)

// Feedback is a user submission.
type Feedback struct {
	ID        int64
	UserID    int64
	Category  string
	Message   string
	CreatedAt time.Time
}

// Roadmap item statuses.
const (
	RoadmapPlanned    = "planned"
	RoadmapInProgress = "in_progress"
	RoadmapDone       = "done"
)

// RoadmapItem is a published roadmap entry.
type RoadmapItem struct {
	ID        int64
	Title     string
	Body      string
	Status    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func validRoadmapStatus(s string) bool {
	switch s {
	case RoadmapPlanned, RoadmapInProgress, RoadmapDone:
		return true
	}
	return false
}

// ErrInvalidStatus indicates an unknown roadmap status.
var ErrInvalidStatus = errors.New("feedback: invalid roadmap status")

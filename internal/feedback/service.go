package feedback

import (
	"context"
	"errors"
	"strings"
)

// Service manages feedback and roadmap items.
type Service struct {
	repo Repository
}

// NewService constructs a Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Submit stores a feedback entry.
func (s *Service) Submit(ctx context.Context, userID int64, category, message string) (*Feedback, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, errors.New("feedback: message required")
	}
	if category == "" {
		category = "general"
	}
	f := &Feedback{UserID: userID, Category: category, Message: message}
	if err := s.repo.CreateFeedback(ctx, f); err != nil {
		return nil, err
	}
	return f, nil
}

// List returns recent feedback submissions.
func (s *Service) List(ctx context.Context) ([]Feedback, error) {
	return s.repo.ListFeedback(ctx)
}

// Roadmap returns the published roadmap.
func (s *Service) Roadmap(ctx context.Context) ([]RoadmapItem, error) {
	return s.repo.ListRoadmap(ctx)
}

// AddRoadmapItem publishes a roadmap entry.
func (s *Service) AddRoadmapItem(ctx context.Context, title, body, status string) (*RoadmapItem, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, errors.New("feedback: title required")
	}
	if status == "" {
		status = RoadmapPlanned
	}
	if !validRoadmapStatus(status) {
		return nil, ErrInvalidStatus
	}
	item := &RoadmapItem{Title: title, Body: body, Status: status}
	if err := s.repo.CreateRoadmapItem(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// MoveRoadmapItem changes an item's status.
func (s *Service) MoveRoadmapItem(ctx context.Context, id int64, status string) error {
	if !validRoadmapStatus(status) {
		return ErrInvalidStatus
	}
	return s.repo.UpdateRoadmapStatus(ctx, id, status)
}

// RemoveRoadmapItem deletes an item.
func (s *Service) RemoveRoadmapItem(ctx context.Context, id int64) error {
	return s.repo.DeleteRoadmapItem(ctx, id)
}

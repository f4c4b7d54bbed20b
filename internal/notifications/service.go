package notifications

import (
	"context"
	"errors"
)

// Service manages a user's in-app notifications.
type Service struct {
	repo Repository
}

// NewService constructs a Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Notify records an in-app notification for a user.
func (s *Service) Notify(ctx context.Context, userID int64, title, body string) error {
	if title == "" {
		return errors.New("notifications: title required")
	}
	n := &Notification{UserID: userID, Title: title, Body: body}
	return s.repo.Create(ctx, n)
}

// List returns the user's notifications, newest first.
func (s *Service) List(ctx context.Context, userID int64, onlyUnread bool) ([]Notification, error) {
	return s.repo.ListForUser(ctx, userID, onlyUnread)
}

// MarkRead marks one notification read.
func (s *Service) MarkRead(ctx context.Context, userID, id int64) error {
	return s.repo.MarkRead(ctx, userID, id)
}

// MarkAllRead marks every unread notification read.
func (s *Service) MarkAllRead(ctx context.Context, userID int64) error {
	return s.repo.MarkAllRead(ctx, userID)
}

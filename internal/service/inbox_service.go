package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/BladexZN/dashboard-c/internal/models"
	appErrors "github.com/BladexZN/dashboard-c/pkg/errors"
)

const inboxPageSize = 20

type inboxRepository interface {
	ListByRecipient(ctx context.Context, userID string, limit int) ([]models.Notification, error)
	CountUnread(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, id, userID string) error
	MarkAllRead(ctx context.Context, userID string) (int64, error)
}

// InboxService serves the notification panel of the current user.
type InboxService struct {
	repo   inboxRepository
	logger *zap.Logger
}

// NewInboxService constructs the inbox service.
func NewInboxService(repo inboxRepository, logger *zap.Logger) *InboxService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InboxService{repo: repo, logger: logger}
}

// Inbox returns the latest notifications and the unread count.
func (s *InboxService) Inbox(ctx context.Context, userID string) (*models.Inbox, error) {
	items, err := s.repo.ListByRecipient(ctx, userID, inboxPageSize)
	if err != nil {
		return nil, internalError(err, "failed to load notifications")
	}
	unread, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return nil, internalError(err, "failed to count notifications")
	}
	if items == nil {
		items = []models.Notification{}
	}
	return &models.Inbox{Items: items, UnreadCount: unread}, nil
}

// UnreadCount returns the unread badge value.
func (s *InboxService) UnreadCount(ctx context.Context, userID string) (int, error) {
	count, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return 0, internalError(err, "failed to count notifications")
	}
	return count, nil
}

// MarkRead marks one notification of userID as read.
func (s *InboxService) MarkRead(ctx context.Context, id, userID string) error {
	if id == "" {
		return appErrors.Clone(appErrors.ErrValidation, "notification id is required")
	}
	if err := s.repo.MarkRead(ctx, id, userID); err != nil {
		return notFoundOr(err, "notification not found", "failed to mark notification read")
	}
	return nil
}

// MarkAllRead marks every unread notification of userID as read.
func (s *InboxService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	n, err := s.repo.MarkAllRead(ctx, userID)
	if err != nil {
		return 0, internalError(err, "failed to mark notifications read")
	}
	s.logger.Sugar().Debugw("notifications marked read", "user_id", userID, "count", n)
	return n, nil
}

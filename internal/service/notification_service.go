package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/smap-labs/smap-compliance-api/internal/dto"
	"github.com/smap-labs/smap-compliance-api/internal/models"
	appErrors "github.com/smap-labs/smap-compliance-api/pkg/errors"
)

type notificationRepository interface {
	ListByUser(ctx context.Context, userID string) ([]models.Notification, error)
	Prepend(ctx context.Context, notification *models.Notification) error
	ReplaceForUser(ctx context.Context, userID string, notifications []models.Notification) error
}

// NotificationService delivers per-user in-app notifications. Every write
// is best effort: a storage failure is logged, never surfaced to the action
// that triggered the notification.
type NotificationService struct {
	repo    notificationRepository
	enabled bool
	logger  *zap.Logger
}

// NewNotificationService constructs the service. When disabled, Notify is a
// no-op and reads return empty results.
func NewNotificationService(repo notificationRepository, enabled bool, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{repo: repo, enabled: enabled, logger: logger}
}

// Create validates and stores one notification, surfacing storage errors.
// Handlers use this; internal callers use Notify.
func (s *NotificationService) Create(ctx context.Context, req dto.CreateNotificationRequest) (*models.Notification, error) {
	notification := &models.Notification{
		ID:              uuid.NewString(),
		UserID:          req.UserID,
		Type:            models.NotificationType(req.Type),
		Title:           req.Title,
		Message:         req.Message,
		RelatedItemID:   req.RelatedItemID,
		RelatedItemType: req.RelatedItemType,
		CreatedAt:       time.Now().UTC(),
	}
	if err := s.repo.Prepend(ctx, notification); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store notification")
	}
	return notification, nil
}

// Notify stores a notification best effort. Failures are swallowed with a
// warning so workflow and document actions never block on delivery.
func (s *NotificationService) Notify(ctx context.Context, notification *models.Notification) {
	if !s.enabled || notification == nil {
		return
	}
	if notification.ID == "" {
		notification.ID = uuid.NewString()
	}
	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = time.Now().UTC()
	}
	if err := s.repo.Prepend(ctx, notification); err != nil {
		s.logger.Warn("failed to deliver notification",
			zap.String("user_id", notification.UserID),
			zap.String("type", string(notification.Type)),
			zap.Error(err))
	}
}

// List returns a user's notifications, newest first.
func (s *NotificationService) List(ctx context.Context, userID string) ([]models.Notification, error) {
	notifications, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notifications")
	}
	return notifications, nil
}

// UnreadCount returns the number of unread notifications for a user.
func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int, error) {
	notifications, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notifications")
	}
	count := 0
	for i := range notifications {
		if !notifications[i].IsRead {
			count++
		}
	}
	return count, nil
}

// MarkAsRead flags one notification read, ErrNotFound when absent.
func (s *NotificationService) MarkAsRead(ctx context.Context, userID, id string) error {
	notifications, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notifications")
	}
	for i := range notifications {
		if notifications[i].ID != id {
			continue
		}
		if notifications[i].IsRead {
			return nil
		}
		notifications[i].IsRead = true
		if err := s.repo.ReplaceForUser(ctx, userID, notifications); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store notifications")
		}
		return nil
	}
	return appErrors.ErrNotFound
}

// MarkAllAsRead flags every notification for the user read.
func (s *NotificationService) MarkAllAsRead(ctx context.Context, userID string) error {
	notifications, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notifications")
	}
	changed := false
	for i := range notifications {
		if !notifications[i].IsRead {
			notifications[i].IsRead = true
			changed = true
		}
	}
	if !changed {
		return nil
	}
	if err := s.repo.ReplaceForUser(ctx, userID, notifications); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store notifications")
	}
	return nil
}

// Delete removes one notification, ErrNotFound when absent.
func (s *NotificationService) Delete(ctx context.Context, userID, id string) error {
	notifications, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notifications")
	}
	remaining := make([]models.Notification, 0, len(notifications))
	found := false
	for i := range notifications {
		if notifications[i].ID == id {
			found = true
			continue
		}
		remaining = append(remaining, notifications[i])
	}
	if !found {
		return appErrors.ErrNotFound
	}
	if err := s.repo.ReplaceForUser(ctx, userID, remaining); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store notifications")
	}
	return nil
}

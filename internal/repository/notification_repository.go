package repository

import (
	"context"
	"fmt"

	"github.com/smap-labs/smap-compliance-api/internal/models"
	"github.com/smap-labs/smap-compliance-api/pkg/kvstore"
)

const notificationKeyPrefix = "notifications"

// NotificationRepository owns the per-user notification lists, stored
// most-recent-first.
type NotificationRepository struct {
	store kvstore.Store
}

// NewNotificationRepository constructs the repository.
func NewNotificationRepository(store kvstore.Store) *NotificationRepository {
	return &NotificationRepository{store: store}
}

func notificationKey(userID string) string {
	return fmt.Sprintf("%s:%s", notificationKeyPrefix, userID)
}

// ListByUser returns the user's notifications, newest first.
func (r *NotificationRepository) ListByUser(ctx context.Context, userID string) ([]models.Notification, error) {
	var notifications []models.Notification
	found, err := r.store.Get(ctx, notificationKey(userID), &notifications)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	if !found {
		return []models.Notification{}, nil
	}
	return notifications, nil
}

// Prepend inserts a notification at the head of the user's list.
func (r *NotificationRepository) Prepend(ctx context.Context, notification *models.Notification) error {
	notifications, err := r.ListByUser(ctx, notification.UserID)
	if err != nil {
		return err
	}
	notifications = append([]models.Notification{*notification}, notifications...)
	if err := r.store.Set(ctx, notificationKey(notification.UserID), notifications); err != nil {
		return fmt.Errorf("prepend notification: %w", err)
	}
	return nil
}

// ReplaceForUser overwrites the user's whole list, used for read-state flips
// and deletes.
func (r *NotificationRepository) ReplaceForUser(ctx context.Context, userID string, notifications []models.Notification) error {
	if notifications == nil {
		notifications = []models.Notification{}
	}
	if err := r.store.Set(ctx, notificationKey(userID), notifications); err != nil {
		return fmt.Errorf("replace notifications: %w", err)
	}
	return nil
}

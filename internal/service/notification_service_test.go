package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/smap-labs/smap-compliance-api/internal/dto"
	"github.com/smap-labs/smap-compliance-api/internal/models"
)

type notificationRepoStub struct {
	byUser     map[string][]models.Notification
	prependErr error
}

func newNotificationRepoStub() *notificationRepoStub {
	return &notificationRepoStub{byUser: make(map[string][]models.Notification)}
}

func (n *notificationRepoStub) ListByUser(ctx context.Context, userID string) ([]models.Notification, error) {
	return append([]models.Notification(nil), n.byUser[userID]...), nil
}

func (n *notificationRepoStub) Prepend(ctx context.Context, notification *models.Notification) error {
	if n.prependErr != nil {
		return n.prependErr
	}
	n.byUser[notification.UserID] = append([]models.Notification{*notification}, n.byUser[notification.UserID]...)
	return nil
}

func (n *notificationRepoStub) ReplaceForUser(ctx context.Context, userID string, notifications []models.Notification) error {
	n.byUser[userID] = append([]models.Notification(nil), notifications...)
	return nil
}

func TestNotificationServiceNewestFirst(t *testing.T) {
	repo := newNotificationRepoStub()
	svc := NewNotificationService(repo, true, nil)

	first, err := svc.Create(context.Background(), dto.CreateNotificationRequest{
		UserID: "user-1", Type: string(models.NotificationDocumentUpdate), Title: "first", Message: "m",
	})
	require.NoError(t, err)
	second, err := svc.Create(context.Background(), dto.CreateNotificationRequest{
		UserID: "user-1", Type: string(models.NotificationApprovalRequest), Title: "second", Message: "m",
	})
	require.NoError(t, err)

	list, err := svc.List(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, second.ID, list[0].ID)
	require.Equal(t, first.ID, list[1].ID)
}

func TestNotificationServiceNotifySwallowsStorageFailure(t *testing.T) {
	repo := newNotificationRepoStub()
	repo.prependErr = fmt.Errorf("kv store down")
	svc := NewNotificationService(repo, true, nil)

	// Must not panic or surface the failure.
	svc.Notify(context.Background(), &models.Notification{
		UserID: "user-1", Type: models.NotificationApprovalRequest, Title: "t", Message: "m",
	})
	list, err := svc.List(context.Background(), "user-1")
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestNotificationServiceNotifyDisabled(t *testing.T) {
	repo := newNotificationRepoStub()
	svc := NewNotificationService(repo, false, nil)

	svc.Notify(context.Background(), &models.Notification{UserID: "user-1", Title: "t", Message: "m"})
	require.Empty(t, repo.byUser["user-1"])
}

func TestNotificationServiceReadTracking(t *testing.T) {
	repo := newNotificationRepoStub()
	svc := NewNotificationService(repo, true, nil)
	for i := 0; i < 3; i++ {
		_, err := svc.Create(context.Background(), dto.CreateNotificationRequest{
			UserID: "user-1", Type: string(models.NotificationDocumentUpdate), Title: "t", Message: "m",
		})
		require.NoError(t, err)
	}

	count, err := svc.UnreadCount(context.Background(), "user-1")
	require.NoError(t, err)
	require.Equal(t, 3, count)

	list, err := svc.List(context.Background(), "user-1")
	require.NoError(t, err)
	require.NoError(t, svc.MarkAsRead(context.Background(), "user-1", list[0].ID))

	count, err = svc.UnreadCount(context.Background(), "user-1")
	require.NoError(t, err)
	require.Equal(t, 2, count)

	require.NoError(t, svc.MarkAllAsRead(context.Background(), "user-1"))
	count, err = svc.UnreadCount(context.Background(), "user-1")
	require.NoError(t, err)
	require.Zero(t, count)

	require.Error(t, svc.MarkAsRead(context.Background(), "user-1", "missing"))
}

func TestNotificationServiceDelete(t *testing.T) {
	repo := newNotificationRepoStub()
	svc := NewNotificationService(repo, true, nil)
	created, err := svc.Create(context.Background(), dto.CreateNotificationRequest{
		UserID: "user-1", Type: string(models.NotificationDocumentUpdate), Title: "t", Message: "m",
	})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), "user-1", created.ID))
	require.Error(t, svc.Delete(context.Background(), "user-1", created.ID))
}

package repository

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/smap-labs/smap-compliance-api/internal/models"
	"github.com/smap-labs/smap-compliance-api/pkg/kvstore"
)

func TestSyncRepositoryPreservesEnqueueOrder(t *testing.T) {
	repo := NewSyncRepository(kvstore.NewMemoryStore())
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, repo.Append(ctx, &models.SyncItem{
			ID:      id,
			Action:  models.SyncActionCreate,
			Entity:  models.SyncEntityDocument,
			Payload: json.RawMessage(`{}`),
		}))
	}

	items, err := repo.All(ctx)
	require.NoError(t, err)
	require.Len(t, items, 3)
	require.Equal(t, "a", items[0].ID)
	require.Equal(t, "b", items[1].ID)
	require.Equal(t, "c", items[2].ID)
}

func TestSyncRepositoryReplaceCompacts(t *testing.T) {
	repo := NewSyncRepository(kvstore.NewMemoryStore())
	ctx := context.Background()

	require.NoError(t, repo.Append(ctx, &models.SyncItem{ID: "a", Action: models.SyncActionCreate, Entity: models.SyncEntityRisk}))
	require.NoError(t, repo.Append(ctx, &models.SyncItem{ID: "b", Action: models.SyncActionUpdate, Entity: models.SyncEntityRisk}))

	require.NoError(t, repo.Replace(ctx, []models.SyncItem{{ID: "b", Action: models.SyncActionUpdate, Entity: models.SyncEntityRisk}}))

	items, err := repo.All(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "b", items[0].ID)

	require.NoError(t, repo.Replace(ctx, nil))
	items, err = repo.All(ctx)
	require.NoError(t, err)
	require.Empty(t, items)
}

func TestRevisionRepositoryAppendAndUpdate(t *testing.T) {
	repo := NewRevisionRepository(kvstore.NewMemoryStore())
	ctx := context.Background()

	rev := &models.DocumentRevision{
		ID:         "rev-1",
		DocumentID: "doc-1",
		Version:    "1.0",
		Content:    "initial",
		Status:     models.RevisionStatusDraft,
		Comments:   []models.DocumentComment{},
	}
	require.NoError(t, repo.Append(ctx, rev))

	listed, err := repo.ListByDocument(ctx, "doc-1")
	require.NoError(t, err)
	require.Len(t, listed, 1)

	rev.Status = models.RevisionStatusPendingReview
	ok, err := repo.Update(ctx, rev)
	require.NoError(t, err)
	require.True(t, ok)

	stored, err := repo.GetByID(ctx, "doc-1", "rev-1")
	require.NoError(t, err)
	require.NotNil(t, stored)
	require.Equal(t, models.RevisionStatusPendingReview, stored.Status)

	missing, err := repo.GetByID(ctx, "doc-1", "nope")
	require.NoError(t, err)
	require.Nil(t, missing)

	ok, err = repo.Update(ctx, &models.DocumentRevision{ID: "nope", DocumentID: "doc-1"})
	require.NoError(t, err)
	require.False(t, ok)
}

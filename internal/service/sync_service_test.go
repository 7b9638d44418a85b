package service

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/smap-labs/smap-compliance-api/internal/models"
)

type syncRepoStub struct {
	items  []models.SyncItem
	allErr error
}

func (s *syncRepoStub) All(ctx context.Context) ([]models.SyncItem, error) {
	if s.allErr != nil {
		return nil, s.allErr
	}
	return append([]models.SyncItem(nil), s.items...), nil
}

func (s *syncRepoStub) Append(ctx context.Context, item *models.SyncItem) error {
	s.items = append(s.items, *item)
	return nil
}

func (s *syncRepoStub) Replace(ctx context.Context, items []models.SyncItem) error {
	s.items = append([]models.SyncItem(nil), items...)
	return nil
}

type recordingApplier struct {
	applied []string
	failIDs map[string]bool
}

func (r *recordingApplier) Apply(ctx context.Context, item models.SyncItem) error {
	if r.failIDs[item.ID] {
		return fmt.Errorf("remote rejected item")
	}
	r.applied = append(r.applied, item.ID)
	return nil
}

type drainMetricsStub struct {
	synced int
	failed int
	calls  int
}

func (d *drainMetricsStub) ObserveSyncDrain(synced, failed int) {
	d.synced += synced
	d.failed += failed
	d.calls++
}

func enqueueDocumentItem(t *testing.T, svc *SyncService, documentID string) *models.SyncItem {
	t.Helper()
	payload, err := json.Marshal(models.DocumentSyncPayload{DocumentID: documentID})
	require.NoError(t, err)
	item, err := svc.Enqueue(context.Background(), models.SyncActionUpdate, models.SyncEntityDocument, payload)
	require.NoError(t, err)
	return item
}

func TestSyncServiceEnqueueValidatesTags(t *testing.T) {
	svc := NewSyncService(&syncRepoStub{}, nil)

	_, err := svc.Enqueue(context.Background(), "upsert", models.SyncEntityDocument, []byte(`{}`))
	require.Error(t, err)
	_, err = svc.Enqueue(context.Background(), models.SyncActionCreate, "invoice", []byte(`{}`))
	require.Error(t, err)
	_, err = svc.Enqueue(context.Background(), models.SyncActionCreate, models.SyncEntityDocument, []byte(`not json`))
	require.Error(t, err)

	count, err := svc.PendingCount(context.Background())
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestSyncServiceEnqueueSurvivesStorageFailure(t *testing.T) {
	repo := &syncRepoStub{}
	svc := NewSyncService(&failingAppendRepo{syncRepoStub: repo}, nil)

	item, err := svc.Enqueue(context.Background(), models.SyncActionCreate, models.SyncEntityRisk, []byte(`{"riskId":"r1"}`))
	require.NoError(t, err)
	require.NotEmpty(t, item.ID)
	require.Empty(t, repo.items)
}

type failingAppendRepo struct {
	*syncRepoStub
}

func (f *failingAppendRepo) Append(ctx context.Context, item *models.SyncItem) error {
	return fmt.Errorf("kv store down")
}

func TestSyncServiceDrainAllSequentialOrder(t *testing.T) {
	repo := &syncRepoStub{}
	applier := &recordingApplier{}
	metrics := &drainMetricsStub{}
	svc := NewSyncService(repo, nil,
		WithSyncAppliers(map[models.SyncEntity]SyncApplier{models.SyncEntityDocument: applier}),
		WithSyncMetrics(metrics))

	first := enqueueDocumentItem(t, svc, "doc-1")
	second := enqueueDocumentItem(t, svc, "doc-2")
	third := enqueueDocumentItem(t, svc, "doc-3")

	result, err := svc.DrainAll(context.Background())
	require.NoError(t, err)
	require.True(t, result.Success)
	require.Equal(t, 3, result.Synced)
	require.Zero(t, result.Failed)
	require.Equal(t, []string{first.ID, second.ID, third.ID}, applier.applied)
	// Synced items are compacted away.
	require.Empty(t, repo.items)
	require.Equal(t, 3, metrics.synced)
}

func TestSyncServiceDrainCreateThenUpdate(t *testing.T) {
	docs := &documentSyncRepoStub{documentAuthorityStub: newDocumentAuthorityStub()}
	repo := &syncRepoStub{}
	svc := NewSyncService(repo, nil,
		WithSyncAppliers(map[models.SyncEntity]SyncApplier{
			models.SyncEntityDocument: NewDocumentSyncApplier(docs, nil),
		}))

	create, err := json.Marshal(models.DocumentSyncPayload{
		DocumentID: "doc-new",
		Fields:     json.RawMessage(`{"title":"Retention Policy","category":"policy","content":"v1"}`),
	})
	require.NoError(t, err)
	_, err = svc.Enqueue(context.Background(), models.SyncActionCreate, models.SyncEntityDocument, create)
	require.NoError(t, err)

	update, err := json.Marshal(models.DocumentSyncPayload{
		DocumentID: "doc-new",
		Fields:     json.RawMessage(`{"status":"pending_review","content":"v2"}`),
	})
	require.NoError(t, err)
	_, err = svc.Enqueue(context.Background(), models.SyncActionUpdate, models.SyncEntityDocument, update)
	require.NoError(t, err)

	// The update depends on the create landing first.
	result, err := svc.DrainAll(context.Background())
	require.NoError(t, err)
	require.True(t, result.Success)
	require.Equal(t, 2, result.Synced)
	require.Zero(t, result.Failed)
	require.Empty(t, repo.items)

	created := docs.documents["doc-new"]
	require.NotNil(t, created)
	require.Equal(t, "Retention Policy", created.Title)
	require.Equal(t, models.DocumentStatusPendingReview, created.Status)
	require.Equal(t, "v2", created.Content)
}

func TestSyncServicePartialFailureKeepsFailedPending(t *testing.T) {
	repo := &syncRepoStub{}
	applier := &recordingApplier{failIDs: map[string]bool{}}
	svc := NewSyncService(repo, nil,
		WithSyncAppliers(map[models.SyncEntity]SyncApplier{models.SyncEntityDocument: applier}))

	enqueueDocumentItem(t, svc, "doc-1")
	failing := enqueueDocumentItem(t, svc, "doc-2")
	enqueueDocumentItem(t, svc, "doc-3")
	applier.failIDs[failing.ID] = true

	result, err := svc.DrainAll(context.Background())
	require.NoError(t, err)
	require.False(t, result.Success)
	require.Equal(t, 2, result.Synced)
	require.Equal(t, 1, result.Failed)
	require.Len(t, repo.items, 1)
	require.Equal(t, failing.ID, repo.items[0].ID)

	// A later drain retries only the failed item.
	applier.failIDs = map[string]bool{}
	result, err = svc.DrainAll(context.Background())
	require.NoError(t, err)
	require.True(t, result.Success)
	require.Equal(t, 1, result.Synced)
	require.Empty(t, repo.items)
}

func TestSyncServiceDrainIsIdempotentWhenEmpty(t *testing.T) {
	repo := &syncRepoStub{}
	applier := &recordingApplier{}
	svc := NewSyncService(repo, nil,
		WithSyncAppliers(map[models.SyncEntity]SyncApplier{models.SyncEntityDocument: applier}))

	enqueueDocumentItem(t, svc, "doc-1")
	_, err := svc.DrainAll(context.Background())
	require.NoError(t, err)

	result, err := svc.DrainAll(context.Background())
	require.NoError(t, err)
	require.True(t, result.Success)
	require.Zero(t, result.Synced)
	require.Len(t, applier.applied, 1)
}

func TestSyncServiceMissingApplierCountsAsFailure(t *testing.T) {
	repo := &syncRepoStub{}
	svc := NewSyncService(repo, nil)

	enqueueDocumentItem(t, svc, "doc-1")
	result, err := svc.DrainAll(context.Background())
	require.NoError(t, err)
	require.False(t, result.Success)
	require.Equal(t, 1, result.Failed)
	require.Len(t, repo.items, 1)
}

func TestSyncServiceMarkSyncedIdempotent(t *testing.T) {
	repo := &syncRepoStub{}
	svc := NewSyncService(repo, nil)
	item := enqueueDocumentItem(t, svc, "doc-1")

	found, err := svc.MarkSynced(context.Background(), item.ID)
	require.NoError(t, err)
	require.True(t, found)

	found, err = svc.MarkSynced(context.Background(), item.ID)
	require.NoError(t, err)
	require.True(t, found)

	found, err = svc.MarkSynced(context.Background(), "missing")
	require.NoError(t, err)
	require.False(t, found)

	count, err := svc.PendingCount(context.Background())
	require.NoError(t, err)
	require.Zero(t, count)
}

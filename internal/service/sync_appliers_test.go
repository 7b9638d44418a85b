package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/smap-labs/smap-compliance-api/internal/models"
)

type documentSyncRepoStub struct {
	*documentAuthorityStub
	deleted []string
}

func (d *documentSyncRepoStub) Create(ctx context.Context, document *models.Document) error {
	copy := *document
	d.documents[document.ID] = &copy
	return nil
}

func (d *documentSyncRepoStub) Delete(ctx context.Context, id string) (bool, error) {
	if _, ok := d.documents[id]; !ok {
		return false, nil
	}
	delete(d.documents, id)
	d.deleted = append(d.deleted, id)
	return true, nil
}

func TestDocumentSyncApplierCreate(t *testing.T) {
	repo := &documentSyncRepoStub{documentAuthorityStub: newDocumentAuthorityStub()}
	applier := NewDocumentSyncApplier(repo, nil)

	err := applier.Apply(context.Background(), models.SyncItem{
		Action:  models.SyncActionCreate,
		Entity:  models.SyncEntityDocument,
		Payload: json.RawMessage(`{"documentId":"doc-new","fields":{"title":"Access Policy","category":"policy","content":"body"}}`),
	})
	require.NoError(t, err)

	created := repo.documents["doc-new"]
	require.NotNil(t, created)
	require.Equal(t, "Access Policy", created.Title)
	require.Equal(t, models.DocumentStatusDraft, created.Status)
	require.False(t, created.CreatedAt.IsZero())
}

func TestDocumentSyncApplierCreateRequiresTitle(t *testing.T) {
	repo := &documentSyncRepoStub{documentAuthorityStub: newDocumentAuthorityStub()}
	applier := NewDocumentSyncApplier(repo, nil)

	err := applier.Apply(context.Background(), models.SyncItem{
		Action:  models.SyncActionCreate,
		Payload: json.RawMessage(`{"documentId":"doc-new","fields":{"content":"body"}}`),
	})
	require.Error(t, err)
	require.Empty(t, repo.documents)
}

func TestDocumentSyncApplierUpdate(t *testing.T) {
	repo := &documentSyncRepoStub{documentAuthorityStub: newDocumentAuthorityStub("doc-1")}
	applier := NewDocumentSyncApplier(repo, nil)

	payload, err := json.Marshal(models.DocumentSyncPayload{
		DocumentID: "doc-1",
		Fields:     json.RawMessage(`{"status":"approved","content":"final text"}`),
	})
	require.NoError(t, err)

	err = applier.Apply(context.Background(), models.SyncItem{
		Action:  models.SyncActionUpdate,
		Entity:  models.SyncEntityDocument,
		Payload: payload,
	})
	require.NoError(t, err)
	require.Equal(t, models.DocumentStatusApproved, repo.documents["doc-1"].Status)
}

func TestDocumentSyncApplierRejectsBadPayload(t *testing.T) {
	repo := &documentSyncRepoStub{documentAuthorityStub: newDocumentAuthorityStub("doc-1")}
	applier := NewDocumentSyncApplier(repo, nil)

	err := applier.Apply(context.Background(), models.SyncItem{
		Action:  models.SyncActionUpdate,
		Payload: json.RawMessage(`{"documentId":"doc-1","fields":{"status":"published"}}`),
	})
	require.Error(t, err)

	err = applier.Apply(context.Background(), models.SyncItem{
		Action:  models.SyncActionUpdate,
		Payload: json.RawMessage(`{"fields":{"status":"approved"}}`),
	})
	require.Error(t, err)
}

func TestDocumentSyncApplierDelete(t *testing.T) {
	repo := &documentSyncRepoStub{documentAuthorityStub: newDocumentAuthorityStub("doc-1")}
	applier := NewDocumentSyncApplier(repo, nil)

	payload, err := json.Marshal(models.DocumentSyncPayload{DocumentID: "doc-1"})
	require.NoError(t, err)
	err = applier.Apply(context.Background(), models.SyncItem{
		Action:  models.SyncActionDelete,
		Payload: payload,
	})
	require.NoError(t, err)
	require.Equal(t, []string{"doc-1"}, repo.deleted)
}

func TestRiskSyncApplierCreate(t *testing.T) {
	repo := &riskRepoStub{}
	applier := NewRiskSyncApplier(repo, nil)

	err := applier.Apply(context.Background(), models.SyncItem{
		Action:  models.SyncActionCreate,
		Entity:  models.SyncEntityRisk,
		Payload: json.RawMessage(`{"riskId":"risk-new","fields":{"title":"Vendor lock-in","category":"strategic","owner":"owner-1"}}`),
	})
	require.NoError(t, err)
	require.Len(t, repo.risks, 1)
	require.Equal(t, "risk-new", repo.risks[0].ID)
	require.Equal(t, models.RiskStatusIdentified, repo.risks[0].Status)
	require.Equal(t, models.RiskLevelLow, repo.risks[0].Level)
}

func TestRiskSyncApplierMergesFields(t *testing.T) {
	repo := &riskRepoStub{risks: []models.Risk{{ID: "risk-1", Title: "old", Owner: "owner-1"}}}
	applier := NewRiskSyncApplier(repo, nil)

	err := applier.Apply(context.Background(), models.SyncItem{
		Action:  models.SyncActionUpdate,
		Payload: json.RawMessage(`{"riskId":"risk-1","fields":{"title":"new"}}`),
	})
	require.NoError(t, err)
	require.Equal(t, "new", repo.risks[0].Title)
	require.Equal(t, "owner-1", repo.risks[0].Owner)
}

func TestRiskSyncApplierMissingRisk(t *testing.T) {
	applier := NewRiskSyncApplier(&riskRepoStub{}, nil)

	err := applier.Apply(context.Background(), models.SyncItem{
		Action:  models.SyncActionUpdate,
		Payload: json.RawMessage(`{"riskId":"ghost"}`),
	})
	require.Error(t, err)
}

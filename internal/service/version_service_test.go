package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/smap-labs/smap-compliance-api/internal/models"
)

type versionRepoStub struct {
	versions map[string][]models.DocumentVersion
}

func newVersionRepoStub() *versionRepoStub {
	return &versionRepoStub{versions: make(map[string][]models.DocumentVersion)}
}

func (v *versionRepoStub) ListByDocument(ctx context.Context, documentID string) ([]models.DocumentVersion, error) {
	return append([]models.DocumentVersion(nil), v.versions[documentID]...), nil
}

func (v *versionRepoStub) GetByNumber(ctx context.Context, documentID string, version int) (*models.DocumentVersion, error) {
	for _, stored := range v.versions[documentID] {
		if stored.Version == version {
			copy := stored
			return &copy, nil
		}
	}
	return nil, nil
}

func (v *versionRepoStub) Append(ctx context.Context, version *models.DocumentVersion) error {
	v.versions[version.DocumentID] = append(v.versions[version.DocumentID], *version)
	return nil
}

type documentAuthorityStub struct {
	documents map[string]*models.Document
	updateErr error
	updates   []models.DocumentUpdate
}

func newDocumentAuthorityStub(ids ...string) *documentAuthorityStub {
	stub := &documentAuthorityStub{documents: make(map[string]*models.Document)}
	for _, id := range ids {
		stub.documents[id] = &models.Document{ID: id, Status: models.DocumentStatusDraft}
	}
	return stub
}

func (d *documentAuthorityStub) GetByID(ctx context.Context, id string) (*models.Document, error) {
	if doc, ok := d.documents[id]; ok {
		copy := *doc
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (d *documentAuthorityStub) Update(ctx context.Context, id string, update models.DocumentUpdate) error {
	if d.updateErr != nil {
		return d.updateErr
	}
	doc, ok := d.documents[id]
	if !ok {
		return sql.ErrNoRows
	}
	d.updates = append(d.updates, update)
	if update.Status != nil {
		doc.Status = *update.Status
	}
	if update.Content != nil {
		doc.Content = *update.Content
	}
	if update.CurrentVersion != nil {
		doc.CurrentVersion = *update.CurrentVersion
	}
	if update.LastUpdated != nil {
		doc.LastUpdated = *update.LastUpdated
	}
	if update.LastUpdatedBy != nil {
		doc.LastUpdatedBy = *update.LastUpdatedBy
	}
	return nil
}

type auditStub struct {
	logs []*models.AuditLog
	err  error
}

func (a *auditStub) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	if a.err != nil {
		return a.err
	}
	a.logs = append(a.logs, log)
	return nil
}

func TestVersionServiceAssignsSequentialNumbers(t *testing.T) {
	repo := newVersionRepoStub()
	docs := newDocumentAuthorityStub("doc-1")
	svc := NewVersionService(repo, docs, &auditStub{}, nil)

	for i := 1; i <= 4; i++ {
		version, err := svc.CreateVersion(context.Background(), "doc-1", fmt.Sprintf("content %d", i), "user-1", "")
		require.NoError(t, err)
		require.Equal(t, i, version.Version)
	}

	versions, err := svc.ListVersions(context.Background(), "doc-1")
	require.NoError(t, err)
	require.Len(t, versions, 4)
	for i, version := range versions {
		require.Equal(t, i+1, version.Version)
	}
	require.Equal(t, 4, docs.documents["doc-1"].CurrentVersion)
}

func TestVersionServiceUnknownDocument(t *testing.T) {
	repo := newVersionRepoStub()
	docs := newDocumentAuthorityStub()
	svc := NewVersionService(repo, docs, &auditStub{}, nil)

	_, err := svc.CreateVersion(context.Background(), "missing", "content", "user-1", "")
	require.Error(t, err)
	require.Empty(t, repo.versions["missing"])
}

func TestVersionServicePointerUpdateFailureKeepsSnapshot(t *testing.T) {
	repo := newVersionRepoStub()
	docs := newDocumentAuthorityStub("doc-1")
	docs.updateErr = fmt.Errorf("connection reset")
	svc := NewVersionService(repo, docs, &auditStub{}, nil)

	version, err := svc.CreateVersion(context.Background(), "doc-1", "content", "user-1", "initial")
	require.NoError(t, err)
	require.Equal(t, 1, version.Version)
	require.Len(t, repo.versions["doc-1"], 1)
	require.Equal(t, 0, docs.documents["doc-1"].CurrentVersion)
}

func TestVersionServiceGetVersionAbsent(t *testing.T) {
	repo := newVersionRepoStub()
	docs := newDocumentAuthorityStub("doc-1")
	svc := NewVersionService(repo, docs, &auditStub{}, nil)

	version, err := svc.GetVersion(context.Background(), "doc-1", 3)
	require.NoError(t, err)
	require.Nil(t, version)

	versions, err := svc.ListVersions(context.Background(), "doc-1")
	require.NoError(t, err)
	require.Empty(t, versions)
}

package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/smap-labs/smap-compliance-api/internal/models"
	appErrors "github.com/smap-labs/smap-compliance-api/pkg/errors"
)

type versionRepository interface {
	ListByDocument(ctx context.Context, documentID string) ([]models.DocumentVersion, error)
	GetByNumber(ctx context.Context, documentID string, version int) (*models.DocumentVersion, error)
	Append(ctx context.Context, version *models.DocumentVersion) error
}

type documentAuthority interface {
	GetByID(ctx context.Context, id string) (*models.Document, error)
	Update(ctx context.Context, id string, update models.DocumentUpdate) error
}

// VersionService manages the immutable numbered snapshots of a document.
// Every successful create also moves the owning document's denormalized
// pointer fields, so currentVersion always equals the highest version.
type VersionService struct {
	versions  versionRepository
	documents documentAuthority
	audit     auditLogger
	logger    *zap.Logger
}

// NewVersionService constructs the service.
func NewVersionService(versions versionRepository, documents documentAuthority, audit auditLogger, logger *zap.Logger) *VersionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VersionService{versions: versions, documents: documents, audit: audit, logger: logger}
}

// CreateVersion snapshots the given content as version count+1. Fails with
// ErrNotFound when the document does not exist; nothing is persisted then.
func (s *VersionService) CreateVersion(ctx context.Context, documentID, content, authorID, comment string) (*models.DocumentVersion, error) {
	if _, err := s.documents.GetByID(ctx, documentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "document not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load document")
	}

	existing, err := s.versions.ListByDocument(ctx, documentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list versions")
	}

	version := &models.DocumentVersion{
		ID:         uuid.NewString(),
		DocumentID: documentID,
		Version:    len(existing) + 1,
		Content:    content,
		CreatedBy:  authorID,
		CreatedAt:  time.Now().UTC(),
		Comment:    comment,
	}
	if err := s.versions.Append(ctx, version); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist version")
	}

	update := models.DocumentUpdate{
		CurrentVersion: &version.Version,
		LastUpdated:    &version.CreatedAt,
		LastUpdatedBy:  &authorID,
	}
	if err := s.documents.Update(ctx, documentID, update); err != nil {
		// The snapshot is already persisted; the pointer is now stale and
		// will be corrected by the next successful save.
		s.logger.Warn("failed to update document version pointer",
			zap.String("document_id", documentID),
			zap.Int("version", version.Version),
			zap.Error(err))
	}

	if s.audit != nil {
		resourceID := documentID
		log := &models.AuditLog{
			UserID:     &authorID,
			Action:     models.AuditActionVersionCreate,
			Resource:   "document_version",
			ResourceID: &resourceID,
			IPAddress:  "system",
			UserAgent:  "version-service",
		}
		if err := s.audit.CreateAuditLog(ctx, log); err != nil {
			s.logger.Warn("failed to persist audit log", zap.Error(err))
		}
	}

	return version, nil
}

// ListVersions returns the document's snapshots in creation order. A
// document without versions yields an empty slice, never an error.
func (s *VersionService) ListVersions(ctx context.Context, documentID string) ([]models.DocumentVersion, error) {
	versions, err := s.versions.ListByDocument(ctx, documentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list versions")
	}
	return versions, nil
}

// GetVersion returns the snapshot with the exact number, nil when absent.
func (s *VersionService) GetVersion(ctx context.Context, documentID string, number int) (*models.DocumentVersion, error) {
	version, err := s.versions.GetByNumber(ctx, documentID, number)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load version")
	}
	return version, nil
}

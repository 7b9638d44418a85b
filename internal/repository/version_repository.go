package repository

import (
	"context"
	"fmt"

	"github.com/smap-labs/smap-compliance-api/internal/models"
	"github.com/smap-labs/smap-compliance-api/pkg/kvstore"
)

const versionKeyPrefix = "document_versions"

// VersionRepository owns the per-document immutable version snapshots.
type VersionRepository struct {
	store kvstore.Store
}

// NewVersionRepository constructs the repository.
func NewVersionRepository(store kvstore.Store) *VersionRepository {
	return &VersionRepository{store: store}
}

func versionKey(documentID string) string {
	return fmt.Sprintf("%s:%s", versionKeyPrefix, documentID)
}

// ListByDocument returns the document's versions in creation order.
func (r *VersionRepository) ListByDocument(ctx context.Context, documentID string) ([]models.DocumentVersion, error) {
	var versions []models.DocumentVersion
	found, err := r.store.Get(ctx, versionKey(documentID), &versions)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	if !found {
		return []models.DocumentVersion{}, nil
	}
	return versions, nil
}

// GetByNumber returns the version with the exact number, nil when absent.
func (r *VersionRepository) GetByNumber(ctx context.Context, documentID string, version int) (*models.DocumentVersion, error) {
	versions, err := r.ListByDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	for i := range versions {
		if versions[i].Version == version {
			v := versions[i]
			return &v, nil
		}
	}
	return nil, nil
}

// Append adds a snapshot to the end of the document's version history.
// Versions are never updated or deleted once written.
func (r *VersionRepository) Append(ctx context.Context, version *models.DocumentVersion) error {
	versions, err := r.ListByDocument(ctx, version.DocumentID)
	if err != nil {
		return err
	}
	versions = append(versions, *version)
	if err := r.store.Set(ctx, versionKey(version.DocumentID), versions); err != nil {
		return fmt.Errorf("append version: %w", err)
	}
	return nil
}

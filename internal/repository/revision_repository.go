package repository

import (
	"context"
	"fmt"

	"github.com/smap-labs/smap-compliance-api/internal/models"
	"github.com/smap-labs/smap-compliance-api/pkg/kvstore"
)

const revisionKeyPrefix = "document_revisions"

// RevisionRepository owns the per-document revision collections. Revisions
// are stored as one ordered JSON list per document.
type RevisionRepository struct {
	store kvstore.Store
}

// NewRevisionRepository constructs the repository.
func NewRevisionRepository(store kvstore.Store) *RevisionRepository {
	return &RevisionRepository{store: store}
}

func revisionKey(documentID string) string {
	return fmt.Sprintf("%s:%s", revisionKeyPrefix, documentID)
}

// ListByDocument returns the document's revisions in creation order. A
// document with no revisions yields an empty slice, never an error.
func (r *RevisionRepository) ListByDocument(ctx context.Context, documentID string) ([]models.DocumentRevision, error) {
	var revisions []models.DocumentRevision
	found, err := r.store.Get(ctx, revisionKey(documentID), &revisions)
	if err != nil {
		return nil, fmt.Errorf("list revisions: %w", err)
	}
	if !found {
		return []models.DocumentRevision{}, nil
	}
	return revisions, nil
}

// GetByID returns one revision, nil when it does not exist.
func (r *RevisionRepository) GetByID(ctx context.Context, documentID, revisionID string) (*models.DocumentRevision, error) {
	revisions, err := r.ListByDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	for i := range revisions {
		if revisions[i].ID == revisionID {
			rev := revisions[i]
			return &rev, nil
		}
	}
	return nil, nil
}

// Append adds a revision to the end of the document's sequence.
func (r *RevisionRepository) Append(ctx context.Context, revision *models.DocumentRevision) error {
	revisions, err := r.ListByDocument(ctx, revision.DocumentID)
	if err != nil {
		return err
	}
	revisions = append(revisions, *revision)
	if err := r.store.Set(ctx, revisionKey(revision.DocumentID), revisions); err != nil {
		return fmt.Errorf("append revision: %w", err)
	}
	return nil
}

// Update replaces the stored revision matching the given one's ID. Returns
// false when no such revision exists.
func (r *RevisionRepository) Update(ctx context.Context, revision *models.DocumentRevision) (bool, error) {
	revisions, err := r.ListByDocument(ctx, revision.DocumentID)
	if err != nil {
		return false, err
	}
	for i := range revisions {
		if revisions[i].ID == revision.ID {
			revisions[i] = *revision
			if err := r.store.Set(ctx, revisionKey(revision.DocumentID), revisions); err != nil {
				return false, fmt.Errorf("update revision: %w", err)
			}
			return true, nil
		}
	}
	return false, nil
}

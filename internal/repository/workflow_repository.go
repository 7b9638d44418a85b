package repository

import (
	"context"
	"fmt"

	"github.com/smap-labs/smap-compliance-api/internal/models"
	"github.com/smap-labs/smap-compliance-api/pkg/kvstore"
)

const workflowKeyPrefix = "workflow"

// WorkflowRepository owns the single addressable workflow per document.
// Saving a workflow for a document replaces any prior one; there is no
// archival of superseded workflows.
type WorkflowRepository struct {
	store kvstore.Store
}

// NewWorkflowRepository constructs the repository.
func NewWorkflowRepository(store kvstore.Store) *WorkflowRepository {
	return &WorkflowRepository{store: store}
}

func workflowKey(documentID string) string {
	return fmt.Sprintf("%s:%s", workflowKeyPrefix, documentID)
}

// GetByDocument returns the document's workflow, nil when none exists.
func (r *WorkflowRepository) GetByDocument(ctx context.Context, documentID string) (*models.ApprovalWorkflow, error) {
	var workflow models.ApprovalWorkflow
	found, err := r.store.Get(ctx, workflowKey(documentID), &workflow)
	if err != nil {
		return nil, fmt.Errorf("get workflow: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &workflow, nil
}

// Save persists the workflow under its document key, overwriting.
func (r *WorkflowRepository) Save(ctx context.Context, workflow *models.ApprovalWorkflow) error {
	if err := r.store.Set(ctx, workflowKey(workflow.DocumentID), workflow); err != nil {
		return fmt.Errorf("save workflow: %w", err)
	}
	return nil
}

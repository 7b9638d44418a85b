package repository

import (
	"context"
	"fmt"

	"github.com/smap-labs/smap-compliance-api/internal/models"
	"github.com/smap-labs/smap-compliance-api/pkg/kvstore"
)

const risksKey = "smap_risks"

// RiskRepository owns the global risk register list.
type RiskRepository struct {
	store kvstore.Store
}

// NewRiskRepository constructs the repository.
func NewRiskRepository(store kvstore.Store) *RiskRepository {
	return &RiskRepository{store: store}
}

// All returns every risk in registration order.
func (r *RiskRepository) All(ctx context.Context) ([]models.Risk, error) {
	var risks []models.Risk
	found, err := r.store.Get(ctx, risksKey, &risks)
	if err != nil {
		return nil, fmt.Errorf("list risks: %w", err)
	}
	if !found {
		return []models.Risk{}, nil
	}
	return risks, nil
}

// GetByID returns one risk, nil when absent.
func (r *RiskRepository) GetByID(ctx context.Context, id string) (*models.Risk, error) {
	risks, err := r.All(ctx)
	if err != nil {
		return nil, err
	}
	for i := range risks {
		if risks[i].ID == id {
			risk := risks[i]
			return &risk, nil
		}
	}
	return nil, nil
}

// Append registers a new risk.
func (r *RiskRepository) Append(ctx context.Context, risk *models.Risk) error {
	risks, err := r.All(ctx)
	if err != nil {
		return err
	}
	risks = append(risks, *risk)
	if err := r.store.Set(ctx, risksKey, risks); err != nil {
		return fmt.Errorf("append risk: %w", err)
	}
	return nil
}

// Update replaces the stored risk matching the given one's ID. Returns false
// when no such risk exists.
func (r *RiskRepository) Update(ctx context.Context, risk *models.Risk) (bool, error) {
	risks, err := r.All(ctx)
	if err != nil {
		return false, err
	}
	for i := range risks {
		if risks[i].ID == risk.ID {
			risks[i] = *risk
			if err := r.store.Set(ctx, risksKey, risks); err != nil {
				return false, fmt.Errorf("update risk: %w", err)
			}
			return true, nil
		}
	}
	return false, nil
}

// Delete removes a risk from the register. Returns false when absent.
func (r *RiskRepository) Delete(ctx context.Context, id string) (bool, error) {
	risks, err := r.All(ctx)
	if err != nil {
		return false, err
	}
	filtered := make([]models.Risk, 0, len(risks))
	for i := range risks {
		if risks[i].ID != id {
			filtered = append(filtered, risks[i])
		}
	}
	if len(filtered) == len(risks) {
		return false, nil
	}
	if err := r.store.Set(ctx, risksKey, filtered); err != nil {
		return false, fmt.Errorf("delete risk: %w", err)
	}
	return true, nil
}
